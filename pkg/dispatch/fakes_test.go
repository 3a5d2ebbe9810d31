package dispatch

import (
	"errors"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeResponder struct {
	mu         sync.Mutex
	responses  []*discordgo.InteractionResponse
	edits      []*discordgo.WebhookEdit
	respondErr error
	editErr    error
}

func (f *fakeResponder) Respond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	return f.respondErr
}

func (f *fakeResponder) EditResponse(_ *discordgo.Interaction, edit *discordgo.WebhookEdit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, edit)
	return f.editErr
}

func (f *fakeResponder) counts() (responses, edits int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.responses), len(f.edits)
}

// replyEmbed returns the embed of the single user-visible reply, looking at
// edits first and then at non-deferred responses.
func (f *fakeResponder) replyEmbed(t *testing.T) *discordgo.MessageEmbed {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	var embeds [][]*discordgo.MessageEmbed
	for _, e := range f.edits {
		if e.Embeds != nil {
			embeds = append(embeds, *e.Embeds)
		}
	}
	for _, r := range f.responses {
		if r.Type == discordgo.InteractionResponseChannelMessageWithSource && r.Data != nil {
			embeds = append(embeds, r.Data.Embeds)
		}
	}
	if len(embeds) != 1 || len(embeds[0]) != 1 {
		t.Fatalf("want exactly one embed reply, got %d replies", len(embeds))
	}
	return embeds[0][0]
}

type fakeGuilds struct {
	mu       sync.Mutex
	cached   map[string]*discordgo.Guild
	remote   map[string]*discordgo.Guild
	list     []GuildRef
	listErr  error
	fetches  int
	fetchErr error
}

func (f *fakeGuilds) CachedGuild(id string) (*discordgo.Guild, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.cached[id]
	return g, ok
}

func (f *fakeGuilds) FetchGuild(id string) (*discordgo.Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	g, ok := f.remote[id]
	if !ok {
		return nil, errors.New("unknown guild")
	}
	return g, nil
}

func (f *fakeGuilds) Guilds() ([]GuildRef, error) {
	return f.list, f.listErr
}

type fakeMembers struct {
	mu        sync.Mutex
	members   map[string]*discordgo.Member
	memberErr error
	roles     []*discordgo.Role
	rolesErr  error
	lookups   int
}

func (f *fakeMembers) Member(_, userID string) (*discordgo.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.memberErr != nil {
		return nil, f.memberErr
	}
	return f.members[userID], nil
}

func (f *fakeMembers) Roles(string) ([]*discordgo.Role, error) {
	return f.roles, f.rolesErr
}

type fakeWriter struct {
	mu      sync.Mutex
	calls   map[string][]*discordgo.ApplicationCommand
	writes  map[string]int
	fail    map[string]error
	panicOn string
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{
		calls:  make(map[string][]*discordgo.ApplicationCommand),
		writes: make(map[string]int),
		fail:   make(map[string]error),
	}
}

func (f *fakeWriter) OverwriteCommands(guildID string, cmds []*discordgo.ApplicationCommand) error {
	if f.panicOn != "" && guildID == f.panicOn {
		panic("writer exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[guildID] = cmds
	f.writes[guildID]++
	return f.fail[guildID]
}

// writeCount returns how many times the scope of guildID was written.
func (f *fakeWriter) writeCount(guildID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes[guildID]
}

func (f *fakeWriter) called(guildID string) ([]*discordgo.ApplicationCommand, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.calls[guildID]
	return c, ok
}

func slash(name string) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:      "i1",
		Type:    discordgo.InteractionApplicationCommand,
		GuildID: "g1",
		Member:  &discordgo.Member{User: &discordgo.User{ID: "u1"}},
		Data: discordgo.ApplicationCommandInteractionData{
			Name:        name,
			CommandType: discordgo.ChatApplicationCommand,
		},
	}
}

// fixture is a cached guild g1 whose member u1 holds the Moderator role.
func fixture() (*fakeResponder, *fakeGuilds, *fakeMembers) {
	guilds := &fakeGuilds{
		cached: map[string]*discordgo.Guild{"g1": {ID: "g1", Name: "Guild One"}},
	}
	members := &fakeMembers{
		members: map[string]*discordgo.Member{
			"u1": {User: &discordgo.User{ID: "u1"}, Roles: []string{"r-mod"}},
		},
		roles: []*discordgo.Role{
			{ID: "g1", Name: "@everyone"},
			{ID: "r-mod", Name: "Moderator"},
			{ID: "r-admin", Name: "Admin"},
		},
	}
	return &fakeResponder{}, guilds, members
}
