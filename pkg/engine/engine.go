// Package engine implements the reconciliation state machine for
// shell-managed resources: Validate, PlanCreate, PlanUpdate, PlanDestroy,
// Create, Read, Update, Destroy, and Import. Each step is a pure function
// of its inputs plus the transport; the only engine-owned side channel is
// the private version counter carried alongside each spec.
package engine

import (
	"context"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/shellform/shellform/pkg/diag"
	"github.com/shellform/shellform/pkg/telemetry"
	"github.com/shellform/shellform/pkg/transports"
	"github.com/shellform/shellform/pkg/value"
)

// Version is the engine-owned private version counter. Unknown specifically
// flags "freshly imported, not yet reconciled".
type Version = value.Value[int64]

// Options tunes engine behavior.
type Options struct {
	// Logger receives step-level logs. Nil disables logging.
	Logger *telemetry.Logger

	// Metrics receives step and command counters. Nil disables metrics.
	Metrics *telemetry.Metrics

	// Tracer traces lifecycle steps. Nil disables tracing.
	Tracer trace.Tracer

	// RunCatchAllOnNoChange makes a catch-all (empty-trigger) update block
	// fire on every apply even when no input changed. Off by default: an
	// apply with no modified inputs schedules no update blocks.
	RunCatchAllOnNoChange bool
}

// Engine reconciles declared resource specs against reality through a
// transport.
type Engine struct {
	connector transports.Connector
	logger    *telemetry.Logger
	metrics   *telemetry.Metrics
	tracer    trace.Tracer
	opts      Options
}

// New creates an engine using connector to resolve each spec's connection
// configuration to a live transport.
func New(connector transports.Connector, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.Nop()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(telemetry.TracerName)
	}
	return &Engine{
		connector: connector,
		logger:    logger.Component("engine"),
		metrics:   opts.Metrics,
		tracer:    tracer,
		opts:      opts,
	}
}

// startStep opens a span for a lifecycle step and returns a finish hook
// that records step metrics.
func (e *Engine) startStep(ctx context.Context, step string) (context.Context, func(diags *diag.Diagnostics)) {
	ctx, span := e.tracer.Start(ctx, step)
	started := time.Now()
	return ctx, func(diags *diag.Diagnostics) {
		status := "ok"
		if diags.HasErrors() {
			status = "error"
		}
		e.metrics.RecordStep(step, status, time.Since(started).Seconds())
		span.End()
	}
}

// connect resolves the spec's connection configuration to a transport.
func (e *Engine) connect(ctx context.Context, cfg transports.Config) (transports.Transport, error) {
	return e.connector.Connect(ctx, cfg)
}

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// idLength matches the token length commands have come to rely on.
const idLength = 30

// newID generates a random alphanumeric resource identifier.
func newID() string {
	buf := make([]byte, idLength)
	for i := range buf {
		buf[i] = idAlphabet[rand.IntN(len(idAlphabet))]
	}
	return string(buf)
}

// extractID returns the spec's id when Known, else a fresh random token.
func extractID(id value.String) string {
	if v, ok := id.Get(); ok {
		return v
	}
	return newID()
}
