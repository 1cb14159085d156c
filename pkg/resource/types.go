// Package resource defines the declared shape of a shell-managed resource:
// inputs, outputs, the commands of its lifecycle, and the read rules that
// recompute outputs from reality.
package resource

import (
	"maps"
	"slices"

	"github.com/shellform/shellform/pkg/transports"
	"github.com/shellform/shellform/pkg/value"
)

// DefaultConcurrency bounds simultaneous read commands when the spec does
// not set its own limit.
const DefaultConcurrency = 4

// CommandSpec is one shell command with its working directory and
// environment overrides.
type CommandSpec struct {
	// Cmd is the shell command line. Empty means "no command".
	Cmd string

	// Dir is the working directory. Empty means the transport default.
	Dir string

	// Env overrides or extends the environment the engine injects.
	Env map[string]string
}

// IsEmpty reports whether no command is declared.
func (c CommandSpec) IsEmpty() bool { return c.Cmd == "" }

// Equal reports whether two command specs are byte-identical.
func (c CommandSpec) Equal(other CommandSpec) bool {
	return c.Cmd == other.Cmd && c.Dir == other.Dir && maps.Equal(c.Env, other.Env)
}

func (c CommandSpec) clone() CommandSpec {
	c.Env = maps.Clone(c.Env)
	return c
}

// ReadSpec declares how one output key is recomputed from reality.
type ReadSpec struct {
	CommandSpec

	// StripTrailingNewline removes a single trailing '\n' from stdout.
	StripTrailingNewline bool

	// Faillible downgrades this read's failures to warnings.
	Faillible bool
}

// Equal reports whether two read specs are byte-identical. A prior output
// survives planning only when its read spec is unchanged.
func (r ReadSpec) Equal(other ReadSpec) bool {
	return r.CommandSpec.Equal(other.CommandSpec) &&
		r.StripTrailingNewline == other.StripTrailingNewline &&
		r.Faillible == other.Faillible
}

// UpdateSpec declares one in-place update action.
type UpdateSpec struct {
	CommandSpec

	// Triggers is the set of input keys that activate this block when
	// changed. Empty means catch-all.
	Triggers []string

	// Reloads lists output keys invalidated when this block fires.
	Reloads []string

	// Triggered is the engine-owned scheduling marker: Unknown means the
	// block is scheduled for the next apply, Null means idle. Mutated only
	// by PlanUpdate and Update.
	Triggered value.Value[bool]
}

func (u UpdateSpec) clone() UpdateSpec {
	u.CommandSpec = u.CommandSpec.clone()
	u.Triggers = slices.Clone(u.Triggers)
	u.Reloads = slices.Clone(u.Reloads)
	return u
}

// Spec is a resource declaration plus its engine-managed state. A Spec
// instance is produced by a plan step, carried through apply, and
// superseded by the next plan's instance.
type Spec struct {
	// ID is the opaque resource identifier: Unknown during planning,
	// Known after create or import.
	ID value.String

	// Inputs is the user-declared configuration.
	Inputs value.StringMap

	// Outputs is the engine-computed state, keyed like Reads.
	Outputs value.StringMap

	// Reads maps output keys to their recompute rules. A nil map means the
	// resource declares no outputs.
	Reads map[string]ReadSpec

	// Create runs once when the resource comes into existence.
	Create CommandSpec

	// Destroy runs when the resource is removed.
	Destroy CommandSpec

	// Updates are the in-place update blocks, in declaration order.
	Updates []UpdateSpec

	// Connection selects and configures the transport.
	Connection transports.Config

	// Concurrency bounds simultaneous read commands. Zero means
	// DefaultConcurrency.
	Concurrency int
}

// ReadConcurrency returns the effective read fan-out bound.
func (s *Spec) ReadConcurrency() int {
	if s.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return s.Concurrency
}

// Clone returns a deep copy. Plan steps clone the proposed spec so the
// prior and planned instances never alias.
func (s *Spec) Clone() *Spec {
	out := &Spec{
		ID:          s.ID,
		Inputs:      cloneStringMap(s.Inputs),
		Outputs:     cloneStringMap(s.Outputs),
		Create:      s.Create.clone(),
		Destroy:     s.Destroy.clone(),
		Connection:  s.Connection,
		Concurrency: s.Concurrency,
	}
	if s.Reads != nil {
		out.Reads = make(map[string]ReadSpec, len(s.Reads))
		for k, r := range s.Reads {
			r.CommandSpec = r.CommandSpec.clone()
			out.Reads[k] = r
		}
	}
	if s.Updates != nil {
		out.Updates = make([]UpdateSpec, len(s.Updates))
		for i, u := range s.Updates {
			out.Updates[i] = u.clone()
		}
	}
	return out
}

func cloneStringMap(m value.StringMap) value.StringMap {
	inner, ok := m.Get()
	if !ok {
		return m
	}
	return value.Known(maps.Clone(inner))
}
