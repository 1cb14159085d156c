package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/shellform/shellform/pkg/config"
	"github.com/shellform/shellform/pkg/engine"
	"github.com/shellform/shellform/pkg/stores"
	"github.com/shellform/shellform/pkg/telemetry"
	"github.com/shellform/shellform/pkg/transports"

	// Transport implementations register themselves by scheme.
	_ "github.com/shellform/shellform/pkg/transports/local"
	_ "github.com/shellform/shellform/pkg/transports/ssh"
)

// runtime bundles everything a subcommand needs: the parsed manifest, the
// state store, and a wired engine.
type runtime struct {
	logger   *telemetry.Logger
	metrics  *telemetry.Metrics
	tracing  *telemetry.Tracing
	engine   *engine.Engine
	store    stores.Store
	manifest *config.Manifest

	traceOut *os.File
}

// newRuntime assembles a runtime. The store is opened and migrated only
// when the command persists state.
func newRuntime(ctx context.Context, needStore bool) (*runtime, error) {
	rt := &runtime{
		logger:  telemetry.NewLogger(telemetry.LoggerOptions{Level: logLevel, Console: true}),
		metrics: telemetry.NewMetrics("shellform"),
	}

	var err error
	if traceFile != "" {
		rt.traceOut, err = os.Create(traceFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open trace file: %w", err)
		}
	}
	if rt.tracing, err = telemetry.NewTracing(traceWriter(rt.traceOut)); err != nil {
		rt.close(ctx)
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	rt.manifest, err = config.Load(manifestPath)
	if err != nil {
		rt.close(ctx)
		return nil, err
	}

	if needStore {
		store, err := stores.NewSQLiteStore(stores.Config{Path: statePath})
		if err != nil {
			rt.close(ctx)
			return nil, err
		}
		if err := store.Init(ctx); err != nil {
			rt.close(ctx)
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			rt.close(ctx)
			return nil, err
		}
		rt.store = store
	}

	rt.engine = engine.New(transports.DefaultConnector{}, engine.Options{
		Logger:  rt.logger,
		Metrics: rt.metrics,
		Tracer:  rt.tracing.Tracer(),
	})
	return rt, nil
}

func (rt *runtime) close(ctx context.Context) {
	if rt.store != nil {
		_ = rt.store.Close()
	}
	if rt.tracing != nil {
		_ = rt.tracing.Shutdown(ctx)
	}
	if rt.traceOut != nil {
		_ = rt.traceOut.Close()
	}
}

// traceWriter keeps the nil-disables-tracing contract: a nil *os.File must
// stay a nil io.Writer, not a typed non-nil interface.
func traceWriter(f *os.File) io.Writer {
	if f == nil {
		return nil
	}
	return f
}
