// cmd/cli/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keshon/discord-bot-shared/internal/command"
	"github.com/keshon/discord-bot-shared/internal/config"
	"github.com/keshon/discord-bot-shared/internal/discord"
	"github.com/keshon/discord-bot-shared/internal/logging"
	"github.com/keshon/discord-bot-shared/pkg/dispatch"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		scope   string
		envFile string
		timeout time.Duration
	)

	root := &cobra.Command{
		Use:           "discord-cli",
		Short:         "Manage the bot's slash commands on Discord",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&scope, "scope", "guild", "where to write commands: global or guild")
	root.PersistentFlags().StringVar(&envFile, "env", ".env", "path to the .env file")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "give up after this long")

	for _, op := range []dispatch.BulkOp{dispatch.OpRegister, dispatch.OpUnregister} {
		root.AddCommand(&cobra.Command{
			Use:   op.String(),
			Short: fmt.Sprintf("%s every slash command in the chosen scope", op),
			Args:  cobra.NoArgs,
			RunE: func(c *cobra.Command, _ []string) error {
				target, err := parseScope(scope)
				if err != nil {
					return err
				}
				ctx, stop := signal.NotifyContext(c.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				ctx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()
				return runBulk(ctx, envFile, op, target)
			},
		})
	}
	return root
}

func parseScope(s string) (dispatch.Scope, error) {
	switch s {
	case "global":
		return dispatch.ScopeGlobal, nil
	case "guild":
		return dispatch.ScopeGuild, nil
	}
	return 0, fmt.Errorf("invalid scope %q (want global or guild)", s)
}

func runBulk(ctx context.Context, envFile string, op dispatch.BulkOp, scope dispatch.Scope) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	logger, logFile, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer logFile.Close()

	bot, err := discord.NewBot(cfg, logger)
	if err != nil {
		return err
	}
	if err := command.Register(bot.Engine().Commands(), bot.Session()); err != nil {
		return err
	}

	if scope == dispatch.ScopeGlobal {
		if op == dispatch.OpRegister {
			_, err = bot.Bulk().RegisterGlobal(ctx)
		} else {
			_, err = bot.Bulk().UnregisterGlobal(ctx)
		}
		return err
	}

	// Guild sweeps need the gateway to learn which guilds the bot is in.
	if err := bot.Open(ctx); err != nil {
		return err
	}
	defer bot.Close()

	select {
	case err := <-bot.Bulk().ScheduleGuildSweep(ctx, op):
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
