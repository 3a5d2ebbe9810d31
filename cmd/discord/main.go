// cmd/discord/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/discord-bot-shared/internal/command"
	"github.com/keshon/discord-bot-shared/internal/config"
	"github.com/keshon/discord-bot-shared/internal/discord"
	"github.com/keshon/discord-bot-shared/internal/logging"
	"github.com/keshon/discord-bot-shared/internal/telemetry"
	"github.com/keshon/discord-bot-shared/pkg/dispatch"
)

const appName = "discord-bot"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "[ERR] config:", err)
		os.Exit(1)
	}

	logger, logFile, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, "[ERR] logging:", err)
		os.Exit(1)
	}
	defer logFile.Close()

	logger.Info().Msgf("Starting %s...", appName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown, err := telemetry.Setup(ctx, appName, cfg.OTELEndpoint)
	if err != nil {
		logger.Warn().Err(err).Msg("tracing disabled")
	}
	defer shutdown(context.Background())

	bot, err := discord.NewBot(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create bot")
	}
	if err := command.Register(bot.Engine().Commands(), bot.Session()); err != nil {
		logger.Fatal().Err(err).Msg("failed to register commands")
	}
	err = dispatch.On(bot.Engine().Events(), "GUILD_CREATE", func(_ context.Context, g *discordgo.GuildCreate) error {
		logger.Info().Str("guild", g.ID).Str("name", g.Name).Int("members", g.MemberCount).Msg("guild available")
		return nil
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to subscribe to guild events")
	}

	errCh := make(chan error, 1)
	go func() {
		if err := bot.Run(ctx); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logger.Info().Msgf("Received signal %s, shutting down...", s)
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("Discord bot error")
		}
		cancel()
	}

	logger.Info().Msg("Discord bot exited cleanly")
}
