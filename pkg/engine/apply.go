package engine

import (
	"context"
	"fmt"

	"github.com/shellform/shellform/pkg/diag"
	"github.com/shellform/shellform/pkg/reader"
	"github.com/shellform/shellform/pkg/resource"
	"github.com/shellform/shellform/pkg/transports"
	"github.com/shellform/shellform/pkg/value"
)

// Create brings a planned resource into existence: allocates its id, bumps
// the version, runs the create command, and resolves the declared outputs.
// A create command failure or a transport connect failure is fatal: no new
// state is produced.
func (e *Engine) Create(
	ctx context.Context,
	planned *resource.Spec,
	version Version,
	diags *diag.Diagnostics,
) (*resource.Spec, Version) {
	ctx, finish := e.startStep(ctx, "create")
	defer func() { finish(diags) }()

	state := planned.Clone()
	state.Normalize()

	newVersion := version.Or(0) + 1
	id := extractID(state.ID)

	env := resource.PrepareEnv(
		resource.PrefixedMap{Prefix: resource.EnvPrefixInput, Map: planned.Inputs},
	)
	env = append(env,
		transports.EnvVar{Name: resource.EnvID, Value: id},
		transports.EnvVar{Name: resource.EnvVersion, Value: versionString(newVersion)},
	)

	t, err := e.connect(ctx, state.Connection)
	if err != nil {
		diags.Error("Failed to connect to resource", err.Error(), diag.Root("connection"))
		return nil, version
	}

	if !state.Create.IsEmpty() {
		attrPath := diag.Root("create").Attr("cmd")
		e.runCommand(ctx, t, "create", state.Create, env, attrPath, diags)
	}
	if diags.HasErrors() {
		return nil, version
	}

	e.logger.WithResource(id).Debug().Msg("create command finished, resolving outputs")
	stats := reader.ReadAll(ctx, t, state.Reads, state.Outputs, env, false, state.ReadConcurrency(), diags)
	e.metrics.RecordReads(stats.Scheduled, stats.Failed)

	state.ID = value.Known(id)
	return state, value.Known(newVersion)
}

// Read re-executes the declared reads against current reality. When the
// private version is Unknown the resource was imported and never
// reconciled; reading before the first apply is unsafe, so the state
// passes through unchanged.
func (e *Engine) Read(
	ctx context.Context,
	spec *resource.Spec,
	version Version,
	diags *diag.Diagnostics,
) (*resource.Spec, Version) {
	ctx, finish := e.startStep(ctx, "read")
	defer func() { finish(diags) }()

	if version.IsUnknown() {
		return spec, version
	}

	env := resource.PrepareEnv(
		resource.PrefixedMap{Prefix: resource.EnvPrefixInput, Map: spec.Inputs},
		resource.PrefixedMap{Prefix: resource.EnvPrefixState, Map: spec.Outputs},
	)
	env = append(env,
		transports.EnvVar{Name: resource.EnvID, Value: spec.ID.Or("")},
		transports.EnvVar{Name: resource.EnvVersion, Value: versionString(version.Or(0))},
	)

	state := spec.Clone()
	state.Normalize()

	// Mark every declared output unknown to force its read.
	outputs := make(map[string]value.String, len(state.Reads))
	for name := range state.Reads {
		outputs[name] = value.Unknown[string]()
	}
	state.Outputs = value.Known(outputs)

	t, err := e.connect(ctx, state.Connection)
	if err != nil {
		diags.Error("Failed to connect to resource", err.Error(), diag.Root("connection"))
		return nil, version
	}

	stats := reader.ReadAll(ctx, t, state.Reads, state.Outputs, env, true, state.ReadConcurrency(), diags)
	e.metrics.RecordReads(stats.Scheduled, stats.Failed)
	return state, version
}

// Update executes every update block scheduled by PlanUpdate, in
// declaration order, then resolves outputs. An update block with an empty
// command is a fatal configuration error; a block failure aborts the step
// before any later block runs.
func (e *Engine) Update(
	ctx context.Context,
	prior *resource.Spec,
	planned *resource.Spec,
	version Version,
	diags *diag.Diagnostics,
) (*resource.Spec, Version) {
	ctx, finish := e.startStep(ctx, "update")
	defer func() { finish(diags) }()

	state := planned.Clone()
	state.Normalize()

	newVersion := version.Or(0) + 1
	id := extractID(state.ID)

	env := resource.PrepareEnv(
		resource.PrefixedMap{Prefix: resource.EnvPrefixInput, Map: planned.Inputs},
		resource.PrefixedMap{Prefix: resource.EnvPrefixPrevious, Map: prior.Inputs},
		resource.PrefixedMap{Prefix: resource.EnvPrefixState, Map: prior.Outputs},
	)
	env = append(env,
		transports.EnvVar{Name: resource.EnvID, Value: id},
		transports.EnvVar{Name: resource.EnvVersion, Value: versionString(newVersion)},
	)

	t, err := e.connect(ctx, state.Connection)
	if err != nil {
		diags.Error("Failed to connect to resource", err.Error(), diag.Root("connection"))
		return nil, version
	}

	for i := range state.Updates {
		block := &state.Updates[i]
		if !block.Triggered.IsUnknown() {
			continue
		}

		attrPath := diag.Root("update").Index(i).Attr("cmd")
		if block.IsEmpty() {
			diags.Error("`update` cmd should not be null or empty", "", attrPath)
			return nil, version
		}
		e.runCommand(ctx, t, "update", block.CommandSpec, env, attrPath, diags)
		block.Triggered = value.Null[bool]()
		if diags.HasErrors() {
			// Later blocks may depend on this one's side effects; abort.
			return nil, version
		}
	}

	stats := reader.ReadAll(ctx, t, state.Reads, state.Outputs, env, false, state.ReadConcurrency(), diags)
	e.metrics.RecordReads(stats.Scheduled, stats.Failed)

	state.ID = value.Known(id)
	return state, value.Known(newVersion)
}

// Destroy runs the destroy command. Failures are reported but never keep
// the resource in tracked state.
func (e *Engine) Destroy(
	ctx context.Context,
	state *resource.Spec,
	version Version,
	diags *diag.Diagnostics,
) {
	ctx, finish := e.startStep(ctx, "destroy")
	defer func() { finish(diags) }()

	env := resource.PrepareEnv(
		resource.PrefixedMap{Prefix: resource.EnvPrefixInput, Map: state.Inputs},
		resource.PrefixedMap{Prefix: resource.EnvPrefixState, Map: state.Outputs},
	)
	env = append(env,
		transports.EnvVar{Name: resource.EnvID, Value: state.ID.Or("")},
		transports.EnvVar{Name: resource.EnvVersion, Value: versionString(version.Or(0))},
	)

	if state.Destroy.IsEmpty() {
		return
	}

	t, err := e.connect(ctx, state.Connection)
	if err != nil {
		diags.Error("Failed to destroy resource", err.Error(), diag.Root("connection"))
		return
	}

	e.runCommand(ctx, t, "destroy", state.Destroy, env, diag.Root("destroy").Attr("cmd"), diags)
}

// runCommand executes one lifecycle command and applies the shared outcome
// policy: transport errors and non-zero exits are errors; non-empty stdout
// and stderr-on-success are warnings (lifecycle commands are expected to
// be silent).
func (e *Engine) runCommand(
	ctx context.Context,
	t transports.Transport,
	op string,
	cmd resource.CommandSpec,
	env []transports.EnvVar,
	attrPath diag.Path,
	diags *diag.Diagnostics,
) {
	res, err := t.Execute(ctx, cmd.Cmd, cmd.Dir, resource.MergeEnv(env, cmd.Env))
	e.metrics.RecordCommand(op, t.Scheme(), err != nil || (res != nil && res.Status != 0))
	if err != nil {
		diags.Error(fmt.Sprintf("Failed to %s resource", op), err.Error(), attrPath)
		return
	}

	if res.Stdout != "" {
		diags.Warning(fmt.Sprintf("`%s` stdout was not empty", op), res.Stdout, attrPath)
	}
	if res.Status != 0 {
		diags.Error(
			fmt.Sprintf("`%s` failed with status code: %d", op, res.Status),
			res.Stderr,
			attrPath,
		)
		return
	}
	if res.Stderr != "" {
		diags.Warning(fmt.Sprintf("`%s` succeeded but stderr was not empty", op), res.Stderr, attrPath)
	}
}
