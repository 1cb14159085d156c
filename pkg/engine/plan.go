package engine

import (
	"context"
	"strconv"

	"github.com/shellform/shellform/pkg/diag"
	"github.com/shellform/shellform/pkg/diff"
	"github.com/shellform/shellform/pkg/reader"
	"github.com/shellform/shellform/pkg/resource"
	"github.com/shellform/shellform/pkg/transports"
	"github.com/shellform/shellform/pkg/value"
)

// Validate runs schema- and connection-level checks on a declaration.
func (e *Engine) Validate(ctx context.Context, spec *resource.Spec, diags *diag.Diagnostics) {
	_, finish := e.startStep(ctx, "validate")
	defer func() { finish(diags) }()

	spec.Validate(diags)
}

// PlanCreate produces the planned spec for a resource that does not exist
// yet: id and outputs are Unknown and the private version is absent.
func (e *Engine) PlanCreate(ctx context.Context, proposed *resource.Spec, diags *diag.Diagnostics) (*resource.Spec, Version) {
	_, finish := e.startStep(ctx, "plan_create")
	defer func() { finish(diags) }()

	planned := proposed.Clone()
	planned.ID = value.Unknown[string]()
	planned.Outputs = value.Unknown[map[string]value.String]()
	planned.Normalize()

	return planned, value.Null[int64]()
}

// PlanUpdate diffs the prior and proposed declarations and decides between
// no-op, in-place update, and replace. It returns the planned spec, the
// carried-over private version, and the replace-requirement paths (one per
// modified input when no update block can handle the change).
func (e *Engine) PlanUpdate(
	ctx context.Context,
	prior *resource.Spec,
	priorVersion Version,
	proposed *resource.Spec,
	diags *diag.Diagnostics,
) (*resource.Spec, Version, []diag.Path) {
	ctx, finish := e.startStep(ctx, "plan_update")
	defer func() { finish(diags) }()

	// A freshly imported resource has no reconciled baseline: synthesize
	// one by reading against the proposed inputs before diffing.
	if priorVersion.IsUnknown() {
		prior = e.backfillBaseline(ctx, prior, proposed, diags)
	}

	planned := proposed.Clone()
	planned.Normalize()

	// Recompute outputs: a prior value survives only when the key existed
	// before and its read rule is byte-identical to the new one.
	priorOutputs, _ := prior.Outputs.Get()
	outputs := make(map[string]value.String, len(planned.Reads))
	for name, read := range planned.Reads {
		outputs[name] = value.Unknown[string]()
		priorVal, hadValue := priorOutputs[name]
		priorRead, hadRead := prior.Reads[name]
		if hadValue && hadRead && priorRead.Equal(read) {
			outputs[name] = priorVal
		}
	}
	planned.Outputs = value.Known(outputs)

	modified := diff.FindModified(prior.Inputs, proposed.Inputs)

	var replace []diag.Path
	switch {
	case len(modified) > 0:
		if idx, ok := diff.FindUpdate(planned.Updates, modified); ok {
			e.scheduleUpdate(planned, idx, outputs)
		} else {
			for _, name := range modified {
				replace = append(replace, diag.Root("inputs").Attr(name))
			}
		}
	case e.opts.RunCatchAllOnNoChange:
		// Policy variant: an empty-trigger block represents an
		// unconditional refresh action and fires on every apply.
		for i := range planned.Updates {
			if len(planned.Updates[i].Triggers) == 0 {
				e.scheduleUpdate(planned, i, outputs)
				break
			}
		}
	}

	return planned, priorVersion, replace
}

// scheduleUpdate marks an update block for the next apply and invalidates
// the outputs in its reload set.
func (e *Engine) scheduleUpdate(planned *resource.Spec, idx int, outputs map[string]value.String) {
	planned.Updates[idx].Triggered = value.Unknown[bool]()
	for _, name := range planned.Updates[idx].Reloads {
		if _, ok := outputs[name]; ok {
			outputs[name] = value.Unknown[string]()
		}
	}
}

// backfillBaseline reads current reality against the proposed inputs (with
// unresolved fields stripped) so the diff for an imported resource is
// meaningful. The synthetic baseline runs as version 0 and read failures
// are tolerated.
func (e *Engine) backfillBaseline(
	ctx context.Context,
	prior *resource.Spec,
	proposed *resource.Spec,
	diags *diag.Diagnostics,
) *resource.Spec {
	baseline := proposed.Clone()
	baseline.ID = prior.ID
	baseline.Inputs = stripUnknown(baseline.Inputs)
	baseline.Outputs = value.Unknown[map[string]value.String]()
	baseline.Normalize()

	env := resource.PrepareEnv(
		resource.PrefixedMap{Prefix: resource.EnvPrefixInput, Map: baseline.Inputs},
	)
	env = append(env,
		transports.EnvVar{Name: resource.EnvID, Value: baseline.ID.Or("")},
		transports.EnvVar{Name: resource.EnvVersion, Value: "0"},
	)

	t, err := e.connect(ctx, baseline.Connection)
	if err != nil {
		diags.Warning("Failed to connect for baseline read", err.Error(), diag.Root("connection"))
		return prior
	}

	stats := reader.ReadAll(ctx, t, baseline.Reads, baseline.Outputs, env, true, baseline.ReadConcurrency(), diags)
	e.metrics.RecordReads(stats.Scheduled, stats.Failed)
	return baseline
}

// stripUnknown drops Unknown entries from a tri-state map, keeping Known
// and Null ones.
func stripUnknown(m value.StringMap) value.StringMap {
	inner, ok := m.Get()
	if !ok {
		return m
	}
	out := make(map[string]value.String, len(inner))
	for k, v := range inner {
		if !v.IsUnknown() {
			out[k] = v
		}
	}
	return value.Known(out)
}

// PlanDestroy checks whether a destroy can proceed. An imported resource
// that was never applied is simply dropped from tracked state, with a
// warning.
func (e *Engine) PlanDestroy(ctx context.Context, priorVersion Version, diags *diag.Diagnostics) {
	_, finish := e.startStep(ctx, "plan_destroy")
	defer func() { finish(diags) }()

	if priorVersion.IsUnknown() {
		diags.Warning(
			"Resource was imported but never applied",
			"the destroy command will be skipped and the resource dropped from tracked state",
			diag.Path{},
		)
	}
}

func versionString(v int64) string {
	return strconv.FormatInt(v, 10)
}
