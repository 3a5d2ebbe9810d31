// Package command holds the slash commands the bot ships with.
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/discord-bot-shared/pkg/cmd"
	"github.com/keshon/discord-bot-shared/pkg/dispatch"
)

// Ping reports the gateway heartbeat latency.
func Ping(latency func() time.Duration) (cmd.Definition, cmd.Handler) {
	def := cmd.Definition{
		Name: "ping",
		Schema: &discordgo.ApplicationCommand{
			Description: "Check bot latency",
		},
	}
	run := func(_ context.Context, inv *cmd.Invocation) error {
		ms := latency().Milliseconds()
		return inv.Reply(dispatch.Format(dispatch.SeveritySuccess, fmt.Sprintf("🏓 Pong! Response time: `%dms`", ms)))
	}
	return def, run
}

// Register adds every built-in command to r.
func Register(r *cmd.Registry, s *discordgo.Session) error {
	def, run := Ping(s.HeartbeatLatency)
	if err := r.Add(def, run); err != nil {
		return fmt.Errorf("register %s: %w", def.Name, err)
	}
	return nil
}
