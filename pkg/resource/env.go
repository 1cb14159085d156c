package resource

import (
	"sort"

	"github.com/shellform/shellform/pkg/transports"
	"github.com/shellform/shellform/pkg/value"
)

// Engine-injected environment variable names and prefixes. These are part
// of the contract with user commands and must not change.
const (
	EnvPrefixInput    = "INPUT_"
	EnvPrefixState    = "STATE_"
	EnvPrefixPrevious = "PREVIOUS_"
	EnvID             = "ID"
	EnvVersion        = "VERSION"
)

// PrefixedMap pairs a tri-state map with the prefix its keys are exported
// under.
type PrefixedMap struct {
	Prefix string
	Map    value.StringMap
}

// PrepareEnv flattens prefixed maps into an ordered environment variable
// list. Keys within each map are emitted in sorted order so the resulting
// environment is deterministic; Null and Unknown entries are skipped.
func PrepareEnv(envs ...PrefixedMap) []transports.EnvVar {
	var out []transports.EnvVar
	for _, pm := range envs {
		inner, ok := pm.Map.Get()
		if !ok {
			continue
		}
		keys := make([]string, 0, len(inner))
		for k := range inner {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v, known := inner[k].Get()
			if !known {
				continue
			}
			out = append(out, transports.EnvVar{Name: pm.Prefix + k, Value: v})
		}
	}
	return out
}

// MergeEnv appends a command's own environment overrides after the base
// engine environment, preserving order. Later entries win at execution.
func MergeEnv(base []transports.EnvVar, extra map[string]string) []transports.EnvVar {
	if len(extra) == 0 {
		return base
	}
	out := make([]transports.EnvVar, 0, len(base)+len(extra))
	out = append(out, base...)
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, transports.EnvVar{Name: k, Value: extra[k]})
	}
	return out
}
