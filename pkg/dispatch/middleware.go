package dispatch

import (
	"context"
	"time"

	"github.com/keshon/discord-bot-shared/pkg/cmd"
	"github.com/rs/zerolog"
)

// WithCommandLog wraps a handler to log each execution with its duration.
func WithCommandLog(logger zerolog.Logger) cmd.Middleware {
	return func(next cmd.Handler) cmd.Handler {
		return func(ctx context.Context, inv *cmd.Invocation) error {
			start := time.Now()
			err := next(ctx, inv)

			ev := logger.Info()
			if err != nil {
				ev = logger.Warn().Err(err)
			}
			ev.Str("command", inv.CommandName).
				Str("guild", inv.GuildID).
				Str("user", inv.UserID).
				Str("reply_mode", inv.Mode().String()).
				Dur("took", time.Since(start)).
				Msg("command executed")
			return err
		}
	}
}
