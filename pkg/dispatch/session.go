package dispatch

import "github.com/bwmarrin/discordgo"

// Responder sends and edits interaction responses.
type Responder interface {
	Respond(i *discordgo.Interaction, resp *discordgo.InteractionResponse) error
	EditResponse(i *discordgo.Interaction, edit *discordgo.WebhookEdit) error
}

// GuildResolver gives access to the guilds visible to the session.
type GuildResolver interface {
	// CachedGuild returns a guild from local state without a network call.
	CachedGuild(guildID string) (*discordgo.Guild, bool)
	// FetchGuild resolves a guild remotely and caches it.
	FetchGuild(guildID string) (*discordgo.Guild, error)
	// Guilds lists every guild currently visible to the session. The refs are
	// copies and stay valid while the cache keeps changing.
	Guilds() ([]GuildRef, error)
}

// GuildRef identifies a guild targeted by a sweep.
type GuildRef struct {
	ID   string
	Name string
}

// MemberResolver resolves guild membership for role checks.
type MemberResolver interface {
	Member(guildID, userID string) (*discordgo.Member, error)
	Roles(guildID string) ([]*discordgo.Role, error)
}

// CommandWriter replaces the full command set of a scope. An empty guildID
// addresses the global scope; an empty command list unregisters everything.
type CommandWriter interface {
	OverwriteCommands(guildID string, commands []*discordgo.ApplicationCommand) error
}
