package discord

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/discord-bot-shared/pkg/dispatch"
)

// Session adapts a discordgo session to the collaborators the dispatch engine
// and the bulk runner need. Reads prefer the state cache and fall back to
// REST.
type Session struct {
	dg *discordgo.Session

	mu    sync.Mutex
	appID string
}

// NewSession wraps dg. appID may be empty; it is then resolved from the
// logged-in user.
func NewSession(dg *discordgo.Session, appID string) *Session {
	return &Session{dg: dg, appID: appID}
}

func (s *Session) Respond(i *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	return s.dg.InteractionRespond(i, resp)
}

func (s *Session) EditResponse(i *discordgo.Interaction, edit *discordgo.WebhookEdit) error {
	_, err := s.dg.InteractionResponseEdit(i, edit)
	return err
}

func (s *Session) CachedGuild(guildID string) (*discordgo.Guild, bool) {
	if s.dg.State == nil {
		return nil, false
	}
	g, err := s.dg.State.Guild(guildID)
	return g, err == nil
}

func (s *Session) FetchGuild(guildID string) (*discordgo.Guild, error) {
	g, err := s.dg.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("fetch guild %s: %w", guildID, err)
	}
	if s.dg.State != nil && s.dg.StateEnabled {
		_ = s.dg.State.GuildAdd(g)
	}
	return g, nil
}

// Guilds lists the guilds the gateway session has seen, in state order.
// GUILD_CREATE rewrites cached guilds in place, so the fields are copied
// under the state lock.
func (s *Session) Guilds() ([]dispatch.GuildRef, error) {
	if s.dg.State == nil || !s.dg.StateEnabled {
		return nil, errors.New("guild state is disabled")
	}
	s.dg.State.RLock()
	defer s.dg.State.RUnlock()
	refs := make([]dispatch.GuildRef, 0, len(s.dg.State.Guilds))
	for _, g := range s.dg.State.Guilds {
		if g == nil {
			continue
		}
		refs = append(refs, dispatch.GuildRef{ID: g.ID, Name: g.Name})
	}
	return refs, nil
}

func (s *Session) Member(guildID, userID string) (*discordgo.Member, error) {
	if s.dg.State != nil {
		if m, err := s.dg.State.Member(guildID, userID); err == nil {
			return m, nil
		}
	}
	m, err := s.dg.GuildMember(guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch member %s in guild %s: %w", userID, guildID, err)
	}
	return m, nil
}

func (s *Session) Roles(guildID string) ([]*discordgo.Role, error) {
	if g, ok := s.CachedGuild(guildID); ok && len(g.Roles) > 0 {
		return g.Roles, nil
	}
	roles, err := s.dg.GuildRoles(guildID)
	if err != nil {
		return nil, fmt.Errorf("fetch roles of guild %s: %w", guildID, err)
	}
	return roles, nil
}

// OverwriteCommands replaces every command of the application in guildID, or
// globally when guildID is empty.
func (s *Session) OverwriteCommands(guildID string, cmds []*discordgo.ApplicationCommand) error {
	appID, err := s.AppID()
	if err != nil {
		return err
	}
	if _, err := s.dg.ApplicationCommandBulkOverwrite(appID, guildID, cmds); err != nil {
		return fmt.Errorf("overwrite commands: %w", err)
	}
	return nil
}

// AppID returns the application ID, fetching the bot user if it is neither
// configured nor cached in state.
func (s *Session) AppID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appID != "" {
		return s.appID, nil
	}
	if s.dg.State != nil && s.dg.State.User != nil && s.dg.State.User.ID != "" {
		s.appID = s.dg.State.User.ID
		return s.appID, nil
	}
	u, err := s.dg.User("@me")
	if err != nil {
		return "", fmt.Errorf("failed to fetch bot user: %w", err)
	}
	s.appID = u.ID
	return s.appID, nil
}
