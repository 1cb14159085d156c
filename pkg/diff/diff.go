// Package diff classifies input changes between the prior and planned
// declarations and selects the update block responsible for them.
package diff

import (
	"sort"

	"github.com/shellform/shellform/pkg/resource"
	"github.com/shellform/shellform/pkg/value"
)

// FindModified returns the sorted set of input keys that differ between
// the prior and planned input maps: additions, removals, and value
// changes. When exactly one side is Known every key on that side counts as
// modified (conservative: treat as "all changed"); when neither is Known
// the result is empty.
func FindModified(prior, planned value.StringMap) []string {
	priorMap, priorKnown := prior.Get()
	plannedMap, plannedKnown := planned.Get()

	set := map[string]struct{}{}
	switch {
	case priorKnown && plannedKnown:
		for k, pv := range priorMap {
			nv, ok := plannedMap[k]
			if !ok || nv != pv {
				set[k] = struct{}{}
			}
		}
		for k := range plannedMap {
			if _, ok := priorMap[k]; !ok {
				set[k] = struct{}{}
			}
		}
	case plannedKnown:
		for k := range plannedMap {
			set[k] = struct{}{}
		}
	case priorKnown:
		for k := range priorMap {
			set[k] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FindUpdate selects the update block handling the modified key set and
// returns its declaration index. Candidates are blocks whose trigger set
// is empty (catch-all) or a superset of modified. Among superset matches
// the smallest trigger set wins (most specific); ties, and the catch-all
// case, resolve to declaration order. A single linear scan keeps a running
// best candidate so the result is deterministic.
func FindUpdate(updates []resource.UpdateSpec, modified []string) (int, bool) {
	found := -1
	foundSize := 0
	for i := range updates {
		triggers := updates[i].Triggers
		if len(triggers) == 0 {
			if found < 0 {
				found = i
				foundSize = 0
			}
			continue
		}
		if !isSuperset(triggers, modified) {
			continue
		}
		if found < 0 || foundSize > len(triggers) {
			found = i
			foundSize = len(triggers)
		}
	}
	if found < 0 {
		return 0, false
	}
	return found, true
}

// isSuperset reports whether set contains every element of sub.
func isSuperset(set, sub []string) bool {
	members := make(map[string]struct{}, len(set))
	for _, s := range set {
		members[s] = struct{}{}
	}
	for _, s := range sub {
		if _, ok := members[s]; !ok {
			return false
		}
	}
	return true
}
