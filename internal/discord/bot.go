package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/discord-bot-shared/internal/config"
	"github.com/keshon/discord-bot-shared/pkg/dispatch"
	"github.com/keshon/discord-bot-shared/pkg/pacer"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Bot owns the gateway connection and feeds its events into the engine.
type Bot struct {
	cfg     *config.Config
	dg      *discordgo.Session
	session *Session
	gate    *dispatch.ReadyGate
	engine  *dispatch.Engine
	bulk    *dispatch.BulkRunner
	logger  zerolog.Logger
	ctx     context.Context
}

// NewBot creates the session, the engine and the bulk runner. Extra engine
// options are applied after the ones derived from cfg.
func NewBot(cfg *config.Config, logger zerolog.Logger, opts ...dispatch.Option) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsAllWithoutPrivileged

	b := &Bot{
		cfg:     cfg,
		dg:      dg,
		session: NewSession(dg, cfg.AppID),
		gate:    dispatch.NewReadyGate(),
		logger:  logger,
		ctx:     context.Background(),
	}

	engineOpts := []dispatch.Option{
		dispatch.WithLogger(logger.With().Str("component", "dispatch").Logger()),
		dispatch.WithDeferAll(cfg.DeferReplies),
		dispatch.WithMiddleware(dispatch.WithCommandLog(logger.With().Str("component", "commands").Logger())),
	}
	b.engine = dispatch.NewEngine(b.session, b.session, b.session, append(engineOpts, opts...)...)

	limit := rate.Limit(cfg.BulkRate)
	b.bulk = dispatch.NewBulkRunner(b.engine.Commands(), b.session, b.session, b.gate,
		dispatch.WithConcurrency(cfg.BulkConcurrency),
		dispatch.WithPacer(pacer.NewAdaptiveLimiter(limit, limit/4, limit*2, limit/10, 0.5), dispatch.IsRetryable),
		dispatch.WithSkip(cfg.IsGuildBlacklisted),
		dispatch.WithBulkLogger(logger.With().Str("component", "bulk").Logger()),
	)
	return b, nil
}

func (b *Bot) Engine() *dispatch.Engine { return b.engine }

func (b *Bot) Bulk() *dispatch.BulkRunner { return b.bulk }

// Session returns the underlying discordgo session.
func (b *Bot) Session() *discordgo.Session { return b.dg }

// Open connects to the gateway. Handlers are attached before the
// connection so the first READY is not missed.
func (b *Bot) Open(ctx context.Context) error {
	b.ctx = ctx
	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onInteractionCreate)
	b.dg.AddHandler(b.onEvent)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	return nil
}

func (b *Bot) Close() error {
	return b.dg.Close()
}

// Run connects, applies the configured registration plan and blocks until
// ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.Open(ctx); err != nil {
		return err
	}
	defer b.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.register(ctx)
	}()

	<-ctx.Done()
	b.logger.Info().Msg("shutdown signal received, cleaning up")
	<-done
	return nil
}

// register runs every step of the startup plan. Failures are logged and do
// not stop later steps.
func (b *Bot) register(ctx context.Context) {
	for _, step := range startupPlan(b.cfg.CommandScope, b.cfg.UnregisterOnStart) {
		var err error
		switch step.scope {
		case dispatch.ScopeGlobal:
			if step.op == dispatch.OpRegister {
				_, err = b.bulk.RegisterGlobal(ctx)
			} else {
				_, err = b.bulk.UnregisterGlobal(ctx)
			}
		case dispatch.ScopeGuild:
			if step.op == dispatch.OpRegister {
				_, err = b.bulk.RegisterGuilds(ctx)
			} else {
				_, err = b.bulk.UnregisterGuilds(ctx)
			}
		}
		if errors.Is(err, context.Canceled) {
			return
		}
		if err != nil {
			b.logger.Error().Err(err).Str("op", step.op.String()).Str("scope", step.scope.String()).Msg("startup registration step failed")
		}
	}
}

type planStep struct {
	op    dispatch.BulkOp
	scope dispatch.Scope
}

// startupPlan returns the bulk writes run on start. With unregister set, the
// scope not in use is cleared first so commands never show up twice after
// switching scopes.
func startupPlan(scope config.CommandScope, unregister bool) []planStep {
	var plan []planStep
	if unregister {
		if scope != config.ScopeGlobal {
			plan = append(plan, planStep{dispatch.OpUnregister, dispatch.ScopeGlobal})
		}
		if scope != config.ScopeGuild {
			plan = append(plan, planStep{dispatch.OpUnregister, dispatch.ScopeGuild})
		}
	}
	switch scope {
	case config.ScopeGlobal:
		plan = append(plan, planStep{dispatch.OpRegister, dispatch.ScopeGlobal})
	case config.ScopeGuild:
		plan = append(plan, planStep{dispatch.OpRegister, dispatch.ScopeGuild})
	}
	return plan
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	name := "unknown"
	if r.User != nil {
		name = r.User.String()
	}
	b.logger.Info().Int("guilds", len(r.Guilds)).Msgf("Client is ready. Logged in as %s", name)
	b.gate.MarkReady()
}

func (b *Bot) onInteractionCreate(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	b.engine.HandleInteraction(b.ctx, i.Interaction)
}

// onEvent receives every gateway event and forwards it to the event
// registry under its gateway name (e.g. GUILD_CREATE).
func (b *Bot) onEvent(_ *discordgo.Session, e *discordgo.Event) {
	if e.Struct == nil {
		return
	}
	b.engine.HandleEvent(b.ctx, e.Type, e.Struct)
}
