package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/discord-bot-shared/pkg/cmd"
)

func TestAuthorize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		required []string
		held     []string
		want     Decision
	}{
		{name: "no list", required: nil, held: nil, want: Allowed},
		{name: "empty list", required: []string{}, held: []string{"r-mod"}, want: Denied},
		{name: "one of several by id", required: []string{"r-admin", "r-mod"}, held: []string{"r-mod"}, want: Allowed},
		{name: "none held", required: []string{"r-admin"}, held: []string{"r-mod"}, want: Denied},
		{name: "by name", required: []string{"Moderator"}, held: []string{"r-mod"}, want: Allowed},
		{name: "everyone by id", required: []string{"g1"}, held: nil, want: Allowed},
		{name: "everyone by name", required: []string{"@everyone"}, held: nil, want: Allowed},
		{name: "name of unheld role", required: []string{"Admin"}, held: []string{"r-mod"}, want: Denied},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, _, members := fixture()
			members.members["u1"].Roles = tc.held
			inv := cmd.NewInvocation(slash("x"), cmd.ReplyFresh, nil)

			got, err := Authorize(context.Background(), members, cmd.Definition{Name: "x", RequiredRoles: tc.required}, inv)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("decision = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAuthorizeSkipsLookupsWhenUnneeded(t *testing.T) {
	t.Parallel()

	_, _, members := fixture()
	inv := cmd.NewInvocation(slash("x"), cmd.ReplyFresh, nil)

	for _, roles := range [][]string{nil, {}} {
		if _, err := Authorize(context.Background(), members, cmd.Definition{Name: "x", RequiredRoles: roles}, inv); err != nil {
			t.Fatal(err)
		}
	}
	if members.lookups != 0 {
		t.Fatalf("member lookups = %d, want 0", members.lookups)
	}
}

func TestAuthorizeResolutionFailures(t *testing.T) {
	t.Parallel()

	def := cmd.Definition{Name: "x", RequiredRoles: []string{"Admin"}}
	inv := cmd.NewInvocation(slash("x"), cmd.ReplyFresh, nil)

	t.Run("member", func(t *testing.T) {
		t.Parallel()
		_, _, members := fixture()
		members.memberErr = errors.New("timeout")

		got, err := Authorize(context.Background(), members, def, inv)
		if got != AuthError || !errors.Is(err, ErrAuthorizationError) {
			t.Fatalf("decision = %v, err = %v", got, err)
		}
	})

	t.Run("missing member", func(t *testing.T) {
		t.Parallel()
		_, _, members := fixture()
		members.members = map[string]*discordgo.Member{}

		if got, _ := Authorize(context.Background(), members, def, inv); got != AuthError {
			t.Fatalf("decision = %v, want error", got)
		}
	})

	t.Run("roles", func(t *testing.T) {
		t.Parallel()
		_, _, members := fixture()
		members.rolesErr = errors.New("timeout")

		got, err := Authorize(context.Background(), members, def, inv)
		if got != AuthError || !errors.Is(err, ErrAuthorizationError) {
			t.Fatalf("decision = %v, err = %v", got, err)
		}
	})
}
