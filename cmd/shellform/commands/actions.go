package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/shellform/shellform/pkg/diag"
	"github.com/shellform/shellform/pkg/engine"
	"github.com/shellform/shellform/pkg/resource"
	"github.com/shellform/shellform/pkg/stores"
)

type actionKind string

const (
	actionCreate  actionKind = "create"
	actionUpdate  actionKind = "update"
	actionReplace actionKind = "replace"
	actionRefresh actionKind = "refresh"
	actionNoop    actionKind = "no-op"
	actionDestroy actionKind = "destroy"
)

// plannedAction is one resource's planned step: what will run on apply.
type plannedAction struct {
	Name    string
	Kind    actionKind
	Prior   *resource.Spec
	Planned *resource.Spec
	Version engine.Version
	Replace []diag.Path
}

// planActions computes one action per declared resource plus a destroy per
// tracked resource missing from the manifest. Planning failures of one
// resource do not stop planning of the others.
func planActions(ctx context.Context, rt *runtime) ([]*plannedAction, error) {
	var actions []*plannedAction
	var failed bool

	for _, name := range rt.manifest.Names() {
		declared := rt.manifest.Resources[name]
		diags := &diag.Diagnostics{}

		rt.engine.Validate(ctx, declared, diags)
		if err := reportDiags(rt.logger, name, diags); err != nil {
			failed = true
			continue
		}

		rec, err := rt.store.GetResource(ctx, name)
		switch {
		case errors.Is(err, stores.ErrResourceNotFound):
			planned, version := rt.engine.PlanCreate(ctx, declared, diags)
			if err := reportDiags(rt.logger, name, diags); err != nil {
				failed = true
				continue
			}
			actions = append(actions, &plannedAction{
				Name:    name,
				Kind:    actionCreate,
				Planned: planned,
				Version: version,
			})

		case err != nil:
			return nil, err

		default:
			prior, priorVersion := rec.PriorSpec(declared)
			planned, version, replace := rt.engine.PlanUpdate(ctx, prior, priorVersion, declared, diags)
			if err := reportDiags(rt.logger, name, diags); err != nil {
				failed = true
				continue
			}

			action := &plannedAction{
				Name:    name,
				Prior:   prior,
				Planned: planned,
				Version: version,
				Replace: replace,
			}
			switch {
			case len(replace) > 0:
				action.Kind = actionReplace
			case hasScheduledUpdate(planned):
				action.Kind = actionUpdate
			case hasUnresolvedOutputs(planned):
				action.Kind = actionRefresh
			default:
				action.Kind = actionNoop
			}
			actions = append(actions, action)
		}
	}

	// Tracked resources dropped from the manifest get destroyed using the
	// declaration snapshot persisted alongside their state.
	records, err := rt.store.ListResources(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if _, declared := rt.manifest.Resources[rec.Name]; declared {
			continue
		}
		prior, err := rec.StoredSpec()
		if err != nil {
			return nil, fmt.Errorf("resource %s: %w", rec.Name, err)
		}
		actions = append(actions, &plannedAction{
			Name:    rec.Name,
			Kind:    actionDestroy,
			Prior:   prior,
			Version: rec.VersionValue(),
		})
	}

	if failed {
		return actions, errors.New("planning failed for one or more resources")
	}
	return actions, nil
}

// executeAction applies one planned action and persists the result.
func executeAction(ctx context.Context, rt *runtime, a *plannedAction) error {
	diags := &diag.Diagnostics{}

	switch a.Kind {
	case actionNoop:
		return nil

	case actionCreate:
		state, version := rt.engine.Create(ctx, a.Planned, a.Version, diags)
		if err := reportDiags(rt.logger, a.Name, diags); err != nil {
			return err
		}
		return saveState(ctx, rt, a.Name, state, version)

	case actionUpdate:
		state, version := rt.engine.Update(ctx, a.Prior, a.Planned, a.Version, diags)
		if err := reportDiags(rt.logger, a.Name, diags); err != nil {
			return err
		}
		return saveState(ctx, rt, a.Name, state, version)

	case actionRefresh:
		state, version := rt.engine.Read(ctx, a.Planned, a.Version, diags)
		if err := reportDiags(rt.logger, a.Name, diags); err != nil {
			return err
		}
		return saveState(ctx, rt, a.Name, state, version)

	case actionReplace:
		rt.engine.PlanDestroy(ctx, a.Version, diags)
		if !a.Version.IsUnknown() {
			rt.engine.Destroy(ctx, a.Prior, a.Version, diags)
		}
		// The old instance is gone either way; destroy failures are
		// reported but never resurrect it.
		destroyErr := reportDiags(rt.logger, a.Name, diags)
		if err := rt.store.DeleteResource(ctx, a.Name); err != nil {
			return err
		}
		if destroyErr != nil {
			return destroyErr
		}

		diags = &diag.Diagnostics{}
		planned, version := rt.engine.PlanCreate(ctx, a.Planned, diags)
		state, version := rt.engine.Create(ctx, planned, version, diags)
		if err := reportDiags(rt.logger, a.Name, diags); err != nil {
			return err
		}
		return saveState(ctx, rt, a.Name, state, version)

	case actionDestroy:
		rt.engine.PlanDestroy(ctx, a.Version, diags)
		if !a.Version.IsUnknown() {
			rt.engine.Destroy(ctx, a.Prior, a.Version, diags)
		}
		destroyErr := reportDiags(rt.logger, a.Name, diags)
		if err := rt.store.DeleteResource(ctx, a.Name); err != nil {
			return err
		}
		return destroyErr

	default:
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}
}

func saveState(ctx context.Context, rt *runtime, name string, state *resource.Spec, version engine.Version) error {
	rec, err := stores.RecordFromSpec(name, state, version)
	if err != nil {
		return err
	}
	return rt.store.SaveResource(ctx, rec)
}

// hasScheduledUpdate reports whether any update block was marked for the
// next apply.
func hasScheduledUpdate(spec *resource.Spec) bool {
	for i := range spec.Updates {
		if spec.Updates[i].Triggered.IsUnknown() {
			return true
		}
	}
	return false
}

// hasUnresolvedOutputs reports whether planning invalidated any output,
// meaning an apply must re-read even without commands to run.
func hasUnresolvedOutputs(spec *resource.Spec) bool {
	outputs, ok := spec.Outputs.Get()
	if !ok {
		return spec.Outputs.IsUnknown()
	}
	for _, v := range outputs {
		if v.IsUnknown() {
			return true
		}
	}
	return false
}
