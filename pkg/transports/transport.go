// Package transports defines the capability surface the reconciliation core
// requires from a command transport: execute a command, move files, and
// validate connection configuration. Implementations live in subpackages
// (local process spawn, SSH session multiplexing) and register themselves
// by scheme, the way database drivers do.
package transports

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"sync"

	"github.com/shellform/shellform/pkg/diag"
)

// EnvVar is a single environment variable injected into a command.
// Order is preserved bit-for-bit from assembly to execution.
type EnvVar struct {
	Name  string
	Value string
}

// ExecResult is the outcome of a command execution. Exit status 0 is the
// only success; stdout and stderr are captured in full.
type ExecResult struct {
	Status int
	Stdout string
	Stderr string
}

// Transport is the capability consumed by the reconciliation core.
// Execute and the file operations are the suspension points of a
// reconciliation step; everything else in the core is synchronous.
type Transport interface {
	// Scheme names the transport for logs and metrics labels.
	Scheme() string

	// Execute runs cmd through the transport's shell in dir (empty means
	// the transport's default directory) with env appended to the base
	// environment. A non-nil error means the transport itself failed;
	// command failures are reported through ExecResult.Status.
	Execute(ctx context.Context, cmd, dir string, env []EnvVar) (*ExecResult, error)

	// ReadFile opens a remote file for reading.
	ReadFile(ctx context.Context, path string) (io.ReadCloser, error)

	// WriteFile opens a remote file for writing with the given mode.
	// When overwrite is false an existing file is an error.
	WriteFile(ctx context.Context, path string, mode fs.FileMode, overwrite bool) (io.WriteCloser, error)

	// DeleteFile removes a remote file.
	DeleteFile(ctx context.Context, path string) error
}

// TransportError wraps a failure of the transport layer itself, as opposed
// to a non-zero exit status of an executed command.
type TransportError struct {
	// Op is the operation that failed (e.g. "connect", "execute", "read").
	Op string

	// Err is the underlying error.
	Err error
}

func (e *TransportError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Connector resolves a connection configuration to a live Transport.
// Implementations may cache live connections keyed by configuration; the
// core treats the result as an opaque capability and never manages that
// cache's lifetime.
type Connector interface {
	Connect(ctx context.Context, cfg Config) (Transport, error)
}

// Factory builds a transport for one scheme.
type Factory func(ctx context.Context, cfg Config) (Transport, error)

var (
	registryMu sync.Mutex
	registry   = map[string]Factory{}
)

// Register makes a transport factory available under the given scheme.
// Called from implementation packages' init functions.
func Register(scheme string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[scheme]; dup {
		panic("transports: Register called twice for scheme " + scheme)
	}
	registry[scheme] = f
}

// Schemes returns the registered scheme names, sorted.
func Schemes() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	out := make([]string, 0, len(registry))
	for s := range registry {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// DefaultConnector dispatches to registered transport factories by
// Config.Type. An empty type means local.
type DefaultConnector struct{}

// Connect resolves cfg to a transport using the registered factories.
func (DefaultConnector) Connect(ctx context.Context, cfg Config) (Transport, error) {
	scheme := cfg.Type
	if scheme == "" {
		scheme = SchemeLocal
	}
	registryMu.Lock()
	f, ok := registry[scheme]
	registryMu.Unlock()
	if !ok {
		return nil, &TransportError{
			Op:  "connect",
			Err: fmt.Errorf("unknown transport type %q", scheme),
		}
	}
	return f(ctx, cfg)
}

// ValidateConfig runs connection-level checks on cfg, attributing findings
// to attrPath.
func ValidateConfig(cfg Config, diags *diag.Diagnostics, attrPath diag.Path) {
	cfg.validate(diags, attrPath)
}
