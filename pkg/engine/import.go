package engine

import (
	"context"
	"strings"

	"github.com/shellform/shellform/pkg/diag"
	"github.com/shellform/shellform/pkg/resource"
	"github.com/shellform/shellform/pkg/value"
)

// Import adopts an existing resource into tracked state. The opaque import
// string is a comma-separated `key=value` list (a bare `key` means an
// empty value) loaded into outputs. The id is taken from the list's `id`
// key when present, else generated. The returned version is Unknown,
// flagging that a baseline read must happen on the first plan.
func (e *Engine) Import(ctx context.Context, importID string, diags *diag.Diagnostics) (*resource.Spec, Version) {
	_, finish := e.startStep(ctx, "import")
	defer func() { finish(diags) }()

	outputs := map[string]value.String{}
	for _, pair := range strings.Split(importID, ",") {
		if pair == "" {
			continue
		}
		key, val, _ := strings.Cut(pair, "=")
		outputs[key] = value.Known(val)
	}

	id := newID()
	if v, ok := outputs["id"]; ok {
		id = v.Or(id)
	}

	spec := &resource.Spec{
		ID:      value.Known(id),
		Outputs: value.Known(outputs),
	}
	spec.Normalize()

	e.logger.WithResource(id).Info().Int("outputs", len(outputs)).Msg("resource imported, baseline read pending")
	return spec, value.Unknown[int64]()
}
