package discord

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

var ErrChannelNotFound = errors.New("channel not found")

// ChannelLister is the subset of *discordgo.Session used by GuildChannel.
type ChannelLister interface {
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
}

// GuildChannel finds a channel of the given type in a guild by name or by
// ID. A name may carry a leading '#'. Name matches win over ID matches.
func GuildChannel(l ChannelLister, guildID, nameOrID string, typ discordgo.ChannelType) (*discordgo.Channel, error) {
	channels, err := l.GuildChannels(guildID)
	if err != nil {
		return nil, fmt.Errorf("list channels of guild %s: %w", guildID, err)
	}

	name := strings.TrimPrefix(nameOrID, "#")
	var byID *discordgo.Channel
	for _, ch := range channels {
		if ch == nil || ch.Type != typ {
			continue
		}
		if ch.Name == name {
			return ch, nil
		}
		if byID == nil && ch.ID == nameOrID {
			byID = ch
		}
	}
	if byID != nil {
		return byID, nil
	}
	return nil, fmt.Errorf("%w: %q in guild %s", ErrChannelNotFound, nameOrID, guildID)
}
