// Package dispatch routes Discord interactions and gateway events to the
// handlers registered for them.
//
// A slash command interaction passes, in order: admission (guild slash
// commands only), guild resolution, command lookup, the role gate, the global
// hook and finally the handler. Every interaction that is admitted ends with
// exactly one reply; failures are rendered by the formatter as warnings or
// errors visible only to the invoker. Nothing raised by a handler escapes to
// the gateway connection.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/discord-bot-shared/pkg/cmd"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/keshon/discord-bot-shared/pkg/dispatch"

// Outcome is the terminal state of one interaction.
type Outcome uint8

const (
	OutcomeIgnored Outcome = iota
	OutcomeRepliedSuccess
	OutcomeRepliedWarning
	OutcomeRepliedError
	// OutcomeUndelivered means the interaction could not be acknowledged.
	OutcomeUndelivered
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeRepliedSuccess:
		return "success"
	case OutcomeRepliedWarning:
		return "warning"
	case OutcomeRepliedError:
		return "error"
	case OutcomeUndelivered:
		return "undelivered"
	}
	return fmt.Sprintf("outcome(%d)", uint8(o))
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithTracer sets the tracer used for dispatch spans. The default comes from
// the global otel provider.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithHook installs the initial global hook.
func WithHook(h Hook) Option {
	return func(e *Engine) { e.hook.set(h) }
}

// WithDeferAll acknowledges every admitted interaction before it is handled,
// so all replies are delivered as edits.
func WithDeferAll(on bool) Option {
	return func(e *Engine) { e.deferAll = on }
}

// WithMiddleware wraps every command handler.
func WithMiddleware(mws ...cmd.Middleware) Option {
	return func(e *Engine) { e.mws = append(e.mws, mws...) }
}

// Engine owns the command and event registries and dispatches into them.
type Engine struct {
	commands *cmd.Registry
	events   *EventRegistry
	hook     hookSlot

	mu  sync.RWMutex
	mws []cmd.Middleware

	router   router
	guilds   GuildResolver
	members  MemberResolver
	deferAll bool

	logger zerolog.Logger
	tracer trace.Tracer
}

// NewEngine builds an engine over the session collaborators.
func NewEngine(responder Responder, guilds GuildResolver, members MemberResolver, opts ...Option) *Engine {
	e := &Engine{
		commands: cmd.NewRegistry(),
		router:   router{responder: responder},
		guilds:   guilds,
		members:  members,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}
	e.events = NewEventRegistry(e.logger.With().Str("component", "events").Logger())
	return e
}

// Commands returns the command registry.
func (e *Engine) Commands() *cmd.Registry { return e.commands }

// Events returns the event registry.
func (e *Engine) Events() *EventRegistry { return e.events }

// SetHook replaces the global hook. A nil hook removes it.
func (e *Engine) SetHook(h Hook) { e.hook.set(h) }

// Use appends handler middleware.
func (e *Engine) Use(mws ...cmd.Middleware) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mws = append(e.mws, mws...)
}

func (e *Engine) middleware() []cmd.Middleware {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]cmd.Middleware(nil), e.mws...)
}

// HandleEvent dispatches a gateway event to its subscriptions. Failures are
// logged only.
func (e *Engine) HandleEvent(ctx context.Context, kind string, payload any) {
	if e.events.Len(kind) == 0 {
		return
	}
	ctx, span := e.tracer.Start(ctx, "dispatch.event", trace.WithAttributes(attribute.String("event", kind)))
	defer span.End()
	if err := e.events.Dispatch(ctx, kind, payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "event handler failed")
	}
}

// admit reports whether the interaction is a guild slash command.
func admit(i *discordgo.Interaction) bool {
	if i == nil || i.Type != discordgo.InteractionApplicationCommand {
		return false
	}
	if i.ApplicationCommandData().CommandType != discordgo.ChatApplicationCommand {
		return false
	}
	return i.GuildID != ""
}

// HandleInteraction runs the dispatch pipeline for one interaction and
// returns its terminal state.
func (e *Engine) HandleInteraction(ctx context.Context, i *discordgo.Interaction) Outcome {
	if !admit(i) {
		return OutcomeIgnored
	}

	name := i.ApplicationCommandData().Name
	ctx, span := e.tracer.Start(ctx, "dispatch.interaction", trace.WithAttributes(
		attribute.String("command", name),
		attribute.String("guild", i.GuildID),
	))
	defer span.End()

	log := e.logger.With().Str("command", name).Str("guild", i.GuildID).Logger()

	// The reply channel is fixed here for the whole invocation.
	mode := cmd.ReplyFresh
	if known, ok := e.commands.Get(name); e.deferAll || (ok && known.Definition.Defer) {
		if err := e.router.acknowledge(i); err != nil {
			fault := newError(KindDeliveryFault, name, "acknowledge interaction", err)
			log.Error().Err(fault).Msg("failed to defer interaction")
			span.RecordError(fault)
			span.SetStatus(codes.Error, "acknowledge failed")
			return OutcomeUndelivered
		}
		mode = cmd.ReplyDeferred
	}
	inv := cmd.NewInvocation(i, mode, e.router)
	span.SetAttributes(attribute.String("reply_mode", mode.String()))

	outcome := e.run(ctx, inv, log)
	span.SetAttributes(attribute.String("outcome", outcome.String()))
	if outcome == OutcomeRepliedError || outcome == OutcomeRepliedWarning {
		span.SetStatus(codes.Error, outcome.String())
	}
	return outcome
}

func (e *Engine) run(ctx context.Context, inv *cmd.Invocation, log zerolog.Logger) Outcome {
	guild, gerr := e.resolveGuild(inv.GuildID)
	if gerr != nil {
		return e.fail(inv, log, gerr)
	}
	inv.Guild = guild

	command, ok := e.commands.Get(inv.CommandName)
	if !ok {
		return e.fail(inv, log, newError(KindValidation, inv.CommandName,
			fmt.Sprintf("Failed to get command with name: %s", inv.CommandName), nil))
	}

	switch decision, err := Authorize(ctx, e.members, command.Definition, inv); decision {
	case Denied:
		return e.fail(inv, log, newError(KindAuthorizationDenied, inv.CommandName, "", nil))
	case AuthError:
		var de *Error
		if !errors.As(err, &de) {
			de = newError(KindAuthorizationError, inv.CommandName, "", err)
		}
		return e.fail(inv, log, de)
	}

	verdict, err := e.hook.run(ctx, inv)
	if err != nil {
		return e.fail(inv, log, newError(KindHandlerFault, inv.CommandName, "global hook", err))
	}
	if !verdict.Proceed {
		reason := verdict.Reason
		if reason == "" {
			reason = DefaultHookReason
		}
		return e.fail(inv, log, newError(KindHookVeto, inv.CommandName, reason, nil))
	}

	run := cmd.Apply(command.Run, e.middleware()...)
	if err := runSafely(func() error { return run(ctx, inv) }); err != nil {
		return e.fail(inv, log, newError(KindHandlerFault, inv.CommandName, "", err))
	}
	if !inv.Replied() {
		log.Debug().Msg("handler finished without replying")
	}
	return OutcomeRepliedSuccess
}

// resolveGuild returns the cached guild, fetching it once on a miss.
func (e *Engine) resolveGuild(guildID string) (*discordgo.Guild, *Error) {
	if g, ok := e.guilds.CachedGuild(guildID); ok {
		return g, nil
	}
	g, err := e.guilds.FetchGuild(guildID)
	if err != nil || g == nil {
		return nil, newError(KindValidation, guildID, "Guild is not cached. Try again.", err)
	}
	return g, nil
}

// fail logs a dispatch failure and sends it as the invocation's one reply.
func (e *Engine) fail(inv *cmd.Invocation, log zerolog.Logger, derr *Error) Outcome {
	sev := derr.Kind.Severity()
	outcome := OutcomeRepliedError
	level := zerolog.ErrorLevel
	if sev == SeverityWarning {
		outcome = OutcomeRepliedWarning
		level = zerolog.WarnLevel
	}

	ev := log.WithLevel(level).Err(derr).Str("kind", derr.Kind.String()).Str("user", inv.UserID)
	var pe *panicError
	if errors.As(derr, &pe) {
		ev = ev.Bytes("stack", pe.stack)
	}
	ev.Msg("command failed")

	if inv.Replied() {
		log.Warn().Str("kind", derr.Kind.String()).Msg("reply already sent; failure not shown to invoker")
		return outcome
	}
	start := time.Now()
	if err := inv.Reply(Format(sev, describe(derr))); err != nil {
		fault := newError(KindDeliveryFault, inv.CommandName, "", err)
		log.Error().Err(fault).Dur("elapsed", time.Since(start)).Msg("failed to deliver reply")
	}
	return outcome
}
