package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shellform/shellform/pkg/diag"
	"github.com/shellform/shellform/pkg/telemetry"
	"github.com/shellform/shellform/pkg/value"
)

// reportDiags logs every collected diagnostic and returns an error when any
// of them is fatal.
func reportDiags(logger *telemetry.Logger, resourceName string, diags *diag.Diagnostics) error {
	for _, d := range diags.Warnings() {
		logger.Warn().
			Str("resource", resourceName).
			Str("path", d.Path.String()).
			Str("detail", d.Detail).
			Msg(d.Summary)
	}
	for _, d := range diags.Errors() {
		logger.Error().
			Str("resource", resourceName).
			Str("path", d.Path.String()).
			Str("detail", d.Detail).
			Msg(d.Summary)
	}
	if diags.HasErrors() {
		return errors.New("resource " + resourceName + " failed")
	}
	return nil
}

// renderOutputs prints an output map as JSON: Known values as strings, Null
// values as null.
func renderOutputs(outputs value.StringMap) (string, error) {
	inner, ok := outputs.Get()
	if !ok {
		return "{}", nil
	}
	flat := make(map[string]*string, len(inner))
	for k, v := range inner {
		if s, known := v.Get(); known {
			flat[k] = &s
		} else {
			flat[k] = nil
		}
	}
	data, err := json.MarshalIndent(flat, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render outputs: %w", err)
	}
	return string(data), nil
}
