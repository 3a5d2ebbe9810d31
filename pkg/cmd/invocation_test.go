package cmd

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
)

type recordingReplier struct {
	modes []ReplyMode
	err   error
}

func (r *recordingReplier) Deliver(_ *discordgo.Interaction, mode ReplyMode, _ *discordgo.InteractionResponseData) error {
	r.modes = append(r.modes, mode)
	return r.err
}

func slashInteraction(name string) *discordgo.Interaction {
	return &discordgo.Interaction{
		Type:    discordgo.InteractionApplicationCommand,
		GuildID: "g1",
		Member:  &discordgo.Member{User: &discordgo.User{ID: "u1"}},
		Data: discordgo.ApplicationCommandInteractionData{
			Name:        name,
			CommandType: discordgo.ChatApplicationCommand,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "text", Type: discordgo.ApplicationCommandOptionString, Value: "hi"},
			},
		},
	}
}

func TestNewInvocationResolvesIdentity(t *testing.T) {
	t.Parallel()

	inv := NewInvocation(slashInteraction("echo"), ReplyDeferred, &recordingReplier{})
	if inv.GuildID != "g1" || inv.UserID != "u1" || inv.CommandName != "echo" {
		t.Fatalf("invocation = %+v", inv)
	}
	if inv.Mode() != ReplyDeferred {
		t.Fatalf("mode = %v, want deferred", inv.Mode())
	}
	opt, ok := inv.Option("text")
	if !ok || opt.StringValue() != "hi" {
		t.Fatalf("option text = %v, %v", opt, ok)
	}
	if _, ok := inv.Option("missing"); ok {
		t.Fatal("unexpected option")
	}
}

func TestInvocationRepliesOnce(t *testing.T) {
	t.Parallel()

	rep := &recordingReplier{}
	inv := NewInvocation(slashInteraction("echo"), ReplyFresh, rep)

	if err := inv.ReplyText("one"); err != nil {
		t.Fatalf("first reply: %v", err)
	}
	if err := inv.ReplyText("two"); !errors.Is(err, ErrAlreadyReplied) {
		t.Fatalf("second reply err = %v, want ErrAlreadyReplied", err)
	}
	if len(rep.modes) != 1 || rep.modes[0] != ReplyFresh {
		t.Fatalf("deliveries = %v, want one fresh", rep.modes)
	}
	if !inv.Replied() {
		t.Fatal("Replied() = false after reply")
	}
}

func TestInvocationFailedDeliveryStillCounts(t *testing.T) {
	t.Parallel()

	rep := &recordingReplier{err: errors.New("unknown interaction")}
	inv := NewInvocation(slashInteraction("echo"), ReplyFresh, rep)

	if err := inv.ReplyText("one"); err == nil {
		t.Fatal("expected delivery error")
	}
	if err := inv.ReplyText("two"); !errors.Is(err, ErrAlreadyReplied) {
		t.Fatalf("second reply err = %v, want ErrAlreadyReplied", err)
	}
	if len(rep.modes) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(rep.modes))
	}
}
