// Package cmd holds slash command definitions, the handlers bound to them and
// the registry that owns both. Dispatch, authorization and registration with
// Discord live in adapters that read from the registry.
package cmd

import (
	"context"
	"errors"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// ErrAlreadyReplied is returned by Invocation.Reply after the single reply of
// an invocation has been sent.
var ErrAlreadyReplied = errors.New("cmd: invocation already replied")

// ReplyMode selects how the reply of an invocation is delivered. It is fixed
// when the invocation is created.
type ReplyMode int

const (
	// ReplyFresh answers the interaction with a new response.
	ReplyFresh ReplyMode = iota
	// ReplyDeferred edits the acknowledgement that was already sent.
	ReplyDeferred
)

func (m ReplyMode) String() string {
	if m == ReplyDeferred {
		return "deferred"
	}
	return "fresh"
}

// Replier delivers reply data for an interaction on the channel chosen by mode.
type Replier interface {
	Deliver(i *discordgo.Interaction, mode ReplyMode, data *discordgo.InteractionResponseData) error
}

// Handler runs a command. It owns the success reply; returned errors are
// reported to the invoker by the dispatcher.
type Handler func(ctx context.Context, inv *Invocation) error

// Invocation is the context of one slash command interaction.
type Invocation struct {
	GuildID     string
	UserID      string
	CommandName string
	Interaction *discordgo.Interaction
	Guild       *discordgo.Guild

	mode    ReplyMode
	replier Replier

	mu      sync.Mutex
	replied bool
}

// NewInvocation builds the invocation for a slash command interaction.
func NewInvocation(i *discordgo.Interaction, mode ReplyMode, r Replier) *Invocation {
	inv := &Invocation{
		Interaction: i,
		GuildID:     i.GuildID,
		mode:        mode,
		replier:     r,
	}
	if i.Member != nil && i.Member.User != nil {
		inv.UserID = i.Member.User.ID
	} else if i.User != nil {
		inv.UserID = i.User.ID
	}
	if i.Type == discordgo.InteractionApplicationCommand {
		inv.CommandName = i.ApplicationCommandData().Name
	}
	return inv
}

// Mode reports the reply channel of the invocation.
func (inv *Invocation) Mode() ReplyMode { return inv.mode }

// Replied reports whether the reply has been sent (or attempted).
func (inv *Invocation) Replied() bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.replied
}

// Reply sends the one reply of the invocation. A failed delivery still counts
// as the reply; later calls return ErrAlreadyReplied.
func (inv *Invocation) Reply(data *discordgo.InteractionResponseData) error {
	inv.mu.Lock()
	if inv.replied {
		inv.mu.Unlock()
		return ErrAlreadyReplied
	}
	inv.replied = true
	inv.mu.Unlock()

	return inv.replier.Deliver(inv.Interaction, inv.mode, data)
}

// ReplyText is Reply with plain content.
func (inv *Invocation) ReplyText(content string) error {
	return inv.Reply(&discordgo.InteractionResponseData{Content: content})
}

// Option returns the top-level option with the given name.
func (inv *Invocation) Option(name string) (*discordgo.ApplicationCommandInteractionDataOption, bool) {
	if inv.Interaction == nil || inv.Interaction.Type != discordgo.InteractionApplicationCommand {
		return nil, false
	}
	for _, opt := range inv.Interaction.ApplicationCommandData().Options {
		if opt.Name == name {
			return opt, true
		}
	}
	return nil, false
}
