package dispatch

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/google/go-cmp/cmp"
)

func TestFormat(t *testing.T) {
	t.Parallel()

	cases := []struct {
		sev   Severity
		title string
		color int
	}{
		{SeveritySuccess, "Success", ColorSuccess},
		{SeverityWarning, "Warning", ColorWarning},
		{SeverityError, "Error", ColorError},
	}
	for _, tc := range cases {
		got := Format(tc.sev, "hello")
		if got.Flags != discordgo.MessageFlagsEphemeral {
			t.Errorf("Format(%v) flags = %v, want ephemeral", tc.sev, got.Flags)
		}
		want := []*discordgo.MessageEmbed{{Title: tc.title, Description: "hello", Color: tc.color}}
		if diff := cmp.Diff(want, got.Embeds); diff != "" {
			t.Errorf("Format(%v) (-want +got):\n%s", tc.sev, diff)
		}
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  *Error
		want string
	}{
		{"validation", newError(KindValidation, "x", "Failed to get command with name: x", nil), "Failed to get command with name: x"},
		{"denied", newError(KindAuthorizationDenied, "x", "", nil), "You do not have one of the required roles to run this command."},
		{"veto", newError(KindHookVeto, "x", "", nil), DefaultHookReason},
		{"fault", newError(KindHandlerFault, "x", "", errors.New("oops")), "There was an error while running this command.\n```oops```"},
		{"user fault", newError(KindHandlerFault, "x", "", fmt.Errorf("wrapped: %w", UserErrorf("bad %s", "input"))), "wrapped: bad input"},
	}
	for _, tc := range cases {
		if got := describe(tc.err); got != tc.want {
			t.Errorf("%s: describe = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestErrorKinds(t *testing.T) {
	t.Parallel()

	cause := errors.New("root")
	err := fmt.Errorf("dispatch: %w", newError(KindHookVeto, "ping", "closed", cause))

	if !errors.Is(err, ErrHookVeto) || errors.Is(err, ErrHandlerFault) {
		t.Fatalf("errors.Is mismatch for %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause not reachable")
	}
	if k, ok := KindOf(err); !ok || k != KindHookVeto {
		t.Fatalf("KindOf = %v, %v", k, ok)
	}
	if _, ok := KindOf(cause); ok {
		t.Fatal("KindOf found a kind in a plain error")
	}
	if got := err.Error(); got != "dispatch: hook veto ping: closed: root" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestSeverity(t *testing.T) {
	t.Parallel()

	want := map[Kind]Severity{
		KindIgnored:             SeverityNone,
		KindValidation:          SeverityError,
		KindAuthorizationDenied: SeverityWarning,
		KindAuthorizationError:  SeverityError,
		KindHookVeto:            SeverityWarning,
		KindHandlerFault:        SeverityError,
		KindDeliveryFault:       SeverityNone,
	}
	for k, sev := range want {
		if got := k.Severity(); got != sev {
			t.Errorf("%v.Severity() = %v, want %v", k, got, sev)
		}
	}
}
