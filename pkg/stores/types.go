// Package stores persists reconciled resource state between CLI
// invocations in SQLite.
package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shellform/shellform/pkg/resource"
	"github.com/shellform/shellform/pkg/value"
)

// ResourceRecord is one tracked resource as persisted.
type ResourceRecord struct {
	// Name is the user-facing resource name from the manifest.
	Name string `json:"name"`

	// ID is the engine-allocated opaque identifier.
	ID string `json:"id"`

	// Inputs are the inputs the last successful apply saw. Null entries
	// persist as JSON null.
	Inputs map[string]value.String `json:"inputs"`

	// Outputs is the reconciled state. Never contains Unknown entries.
	Outputs map[string]value.String `json:"outputs"`

	// Version is the private version counter; nil marks a freshly
	// imported, never-reconciled resource.
	Version *int64 `json:"-"`

	// Declaration is the full spec snapshot taken at save time. It lets a
	// resource dropped from the manifest still be destroyed: the destroy
	// command lives here, not in the current manifest.
	Declaration json.RawMessage `json:"-"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// RecordFromSpec snapshots a reconciled spec for persistence. The spec must
// be fully resolved: an Unknown value anywhere in it is an error.
func RecordFromSpec(name string, spec *resource.Spec, version value.Value[int64]) (*ResourceRecord, error) {
	rec := &ResourceRecord{
		Name:    name,
		ID:      spec.ID.Or(""),
		Inputs:  map[string]value.String{},
		Outputs: map[string]value.String{},
	}
	if inputs, ok := spec.Inputs.Get(); ok {
		rec.Inputs = inputs
	}
	if outputs, ok := spec.Outputs.Get(); ok {
		rec.Outputs = outputs
	}
	if v, ok := version.Get(); ok {
		rec.Version = &v
	}

	decl, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot declaration: %w", err)
	}
	rec.Declaration = decl
	return rec, nil
}

// PriorSpec rebuilds the prior spec and version carried into planning.
// The declaration parts (commands, reads, connection) come from the
// current manifest; only id, inputs, outputs, and version come from the
// record.
func (r *ResourceRecord) PriorSpec(declared *resource.Spec) (*resource.Spec, value.Value[int64]) {
	prior := declared.Clone()
	prior.ID = value.Known(r.ID)
	prior.Inputs = value.Known(r.Inputs)
	prior.Outputs = value.Known(r.Outputs)

	return prior, r.VersionValue()
}

// StoredSpec decodes the declaration snapshot taken at save time.
func (r *ResourceRecord) StoredSpec() (*resource.Spec, error) {
	if len(r.Declaration) == 0 {
		return nil, fmt.Errorf("resource %q has no stored declaration", r.Name)
	}
	spec := &resource.Spec{}
	if err := json.Unmarshal(r.Declaration, spec); err != nil {
		return nil, fmt.Errorf("failed to decode declaration for %q: %w", r.Name, err)
	}
	return spec, nil
}

// VersionValue returns the tri-state version: Unknown when the resource was
// imported and never reconciled.
func (r *ResourceRecord) VersionValue() value.Value[int64] {
	if r.Version != nil {
		return value.Known(*r.Version)
	}
	return value.Unknown[int64]()
}

// Store is the persistence surface the CLI depends on.
type Store interface {
	Init(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error

	SaveResource(ctx context.Context, rec *ResourceRecord) error
	GetResource(ctx context.Context, name string) (*ResourceRecord, error)
	DeleteResource(ctx context.Context, name string) error
	ListResources(ctx context.Context) ([]*ResourceRecord, error)
}
