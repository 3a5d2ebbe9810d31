package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/discord-bot-shared/pkg/cmd"
	"github.com/keshon/discord-bot-shared/pkg/pacer"
	"github.com/keshon/discord-bot-shared/pkg/util"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BulkOp is a bulk command write.
type BulkOp uint8

const (
	OpRegister BulkOp = iota
	OpUnregister
)

func (o BulkOp) String() string {
	if o == OpUnregister {
		return "unregister"
	}
	return "register"
}

// Scope is the target of a bulk write.
type Scope uint8

const (
	ScopeGlobal Scope = iota
	ScopeGuild
)

func (s Scope) String() string {
	if s == ScopeGuild {
		return "guild"
	}
	return "global"
}

// TargetResult is the outcome of one write. GuildID is empty for the global
// scope.
type TargetResult struct {
	GuildID   string
	GuildName string
	Err       error
}

func (t TargetResult) label() string {
	switch {
	case t.GuildID == "":
		return "global"
	case t.GuildName == "":
		return t.GuildID
	}
	return fmt.Sprintf("%s (%s)", t.GuildName, t.GuildID)
}

// BulkResult collects the outcome of every target of a bulk write.
type BulkResult struct {
	Op      BulkOp
	Scope   Scope
	Targets []TargetResult
}

// Attempted returns the number of targets written to.
func (r BulkResult) Attempted() int { return len(r.Targets) }

// Succeeded returns the number of targets written without error.
func (r BulkResult) Succeeded() int {
	n := 0
	for _, t := range r.Targets {
		if t.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the failing targets in attempt order.
func (r BulkResult) Failed() []TargetResult {
	var out []TargetResult
	for _, t := range r.Targets {
		if t.Err != nil {
			out = append(out, t)
		}
	}
	return out
}

// Err returns nil when every target succeeded. Otherwise the error names
// every failing target with its reason and the number of targets that
// succeeded.
func (r BulkResult) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	if r.Scope == ScopeGlobal {
		return newError(KindBulkFailure, "global", r.Op.String()+" commands", failed[0].Err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s commands failed in %d of %d guilds (%d succeeded)",
		r.Op, len(failed), r.Attempted(), r.Succeeded())
	for _, t := range failed {
		fmt.Fprintf(&b, "\n%s: %v", t.label(), t.Err)
	}
	return &Error{Kind: KindBulkPartialFailure, Message: b.String()}
}

// BulkOption configures a BulkRunner.
type BulkOption func(*BulkRunner)

// WithConcurrency bounds the number of guild writes in flight.
func WithConcurrency(n int) BulkOption {
	return func(b *BulkRunner) { b.concurrency = n }
}

// WithPacer paces guild writes and adapts the pace to rate limit responses
// recognised by classify. A nil classify keeps IsRetryable.
func WithPacer(l *pacer.AdaptiveLimiter, classify pacer.ErrorClassifier) BulkOption {
	return func(b *BulkRunner) {
		b.limiter = l
		if classify != nil {
			b.classify = classify
		}
	}
}

// WithSkip excludes guilds from guild sweeps.
func WithSkip(skip func(guildID string) bool) BulkOption {
	return func(b *BulkRunner) { b.skip = skip }
}

// WithBulkLogger sets the runner logger.
func WithBulkLogger(l zerolog.Logger) BulkOption {
	return func(b *BulkRunner) { b.logger = l }
}

// WithBulkTracer sets the tracer used for sweep spans.
func WithBulkTracer(t trace.Tracer) BulkOption {
	return func(b *BulkRunner) { b.tracer = t }
}

// BulkRunner writes the registry's command set to Discord, globally or to
// every guild visible to the session.
type BulkRunner struct {
	commands *cmd.Registry
	writer   CommandWriter
	guilds   GuildResolver
	gate     *ReadyGate

	concurrency int
	limiter     *pacer.AdaptiveLimiter
	classify    pacer.ErrorClassifier
	skip        func(guildID string) bool

	logger zerolog.Logger
	tracer trace.Tracer
}

// NewBulkRunner returns a runner. Guild sweeps wait on gate.
func NewBulkRunner(commands *cmd.Registry, writer CommandWriter, guilds GuildResolver, gate *ReadyGate, opts ...BulkOption) *BulkRunner {
	b := &BulkRunner{
		commands:    commands,
		writer:      writer,
		guilds:      guilds,
		gate:        gate,
		concurrency: 8,
		classify:    IsRetryable,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.tracer == nil {
		b.tracer = otel.Tracer(tracerName)
	}
	if b.concurrency < 1 {
		b.concurrency = 1
	}
	return b
}

func (b *BulkRunner) payload(op BulkOp) []*discordgo.ApplicationCommand {
	if op == OpUnregister {
		return []*discordgo.ApplicationCommand{}
	}
	return b.commands.Payloads()
}

// RegisterGlobal replaces the global command set with the registry contents.
func (b *BulkRunner) RegisterGlobal(ctx context.Context) (BulkResult, error) {
	return b.global(ctx, OpRegister)
}

// UnregisterGlobal removes every global command.
func (b *BulkRunner) UnregisterGlobal(ctx context.Context) (BulkResult, error) {
	return b.global(ctx, OpUnregister)
}

func (b *BulkRunner) global(ctx context.Context, op BulkOp) (BulkResult, error) {
	_, span := b.tracer.Start(ctx, "dispatch.bulk", trace.WithAttributes(
		attribute.String("op", op.String()),
		attribute.String("scope", ScopeGlobal.String()),
	))
	defer span.End()

	payload := b.payload(op)
	err := runSafely(func() error { return b.writer.OverwriteCommands("", payload) })
	res := BulkResult{Op: op, Scope: ScopeGlobal, Targets: []TargetResult{{Err: err}}}
	if err := res.Err(); err != nil {
		b.logger.Error().Err(err).Str("op", op.String()).Msg("global command write failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "global write failed")
		return res, err
	}
	b.logger.Info().Str("op", op.String()).Int("commands", len(payload)).Msg("global commands written")
	return res, nil
}

// RegisterGuilds writes the registry contents to every visible guild once
// the session is ready.
func (b *BulkRunner) RegisterGuilds(ctx context.Context) (BulkResult, error) {
	return b.sweep(ctx, OpRegister)
}

// UnregisterGuilds removes the commands of every visible guild once the
// session is ready.
func (b *BulkRunner) UnregisterGuilds(ctx context.Context) (BulkResult, error) {
	return b.sweep(ctx, OpUnregister)
}

// ScheduleGuildSweep runs a guild sweep as soon as the session is ready, or
// right away if it already is. The sweep runs exactly once; the channel
// yields its result and is then closed.
func (b *BulkRunner) ScheduleGuildSweep(ctx context.Context, op BulkOp) <-chan error {
	out := make(chan error, 1)
	b.gate.OnReady(func() {
		go func() {
			defer close(out)
			_, err := b.sweep(ctx, op)
			out <- err
		}()
	})
	return out
}

func (b *BulkRunner) sweep(ctx context.Context, op BulkOp) (BulkResult, error) {
	res := BulkResult{Op: op, Scope: ScopeGuild}
	if err := b.gate.Wait(ctx); err != nil {
		return res, fmt.Errorf("wait for ready: %w", err)
	}

	ctx, span := b.tracer.Start(ctx, "dispatch.bulk", trace.WithAttributes(
		attribute.String("op", op.String()),
		attribute.String("scope", ScopeGuild.String()),
	))
	defer span.End()

	guilds, err := b.guilds.Guilds()
	if err != nil {
		derr := newError(KindBulkFailure, "guilds", "enumerate guilds", err)
		b.logger.Error().Err(derr).Str("op", op.String()).Msg("guild sweep aborted")
		span.RecordError(derr)
		span.SetStatus(codes.Error, "enumerate guilds")
		return res, derr
	}

	targets := make([]GuildRef, 0, len(guilds))
	for _, g := range guilds {
		if b.skip != nil && b.skip(g.ID) {
			b.logger.Debug().Str("guild", g.ID).Msg("guild skipped")
			continue
		}
		targets = append(targets, g)
	}

	payload := b.payload(op)
	res.Targets = util.JoinAll(targets, b.concurrency, func(g GuildRef) TargetResult {
		t := TargetResult{GuildID: g.ID, GuildName: g.Name}
		if err := b.limiter.Wait(ctx); err != nil {
			t.Err = err
			return t
		}
		t.Err = runSafely(func() error { return b.writer.OverwriteCommands(g.ID, payload) })
		b.limiter.Observe(t.Err, b.classify)
		return t
	})
	span.SetAttributes(
		attribute.Int("attempted", res.Attempted()),
		attribute.Int("succeeded", res.Succeeded()),
	)

	if err := res.Err(); err != nil {
		b.logger.Error().Err(err).Str("op", op.String()).Msg("guild sweep finished with failures")
		span.RecordError(err)
		span.SetStatus(codes.Error, "guild sweep failed")
		return res, err
	}
	b.logger.Info().
		Str("op", op.String()).
		Int("guilds", res.Succeeded()).
		Int("commands", len(payload)).
		Msgf("commands %sed in %d guilds", op, res.Succeeded())
	return res, nil
}
