package diff

import (
	"reflect"
	"testing"

	"github.com/shellform/shellform/pkg/resource"
	"github.com/shellform/shellform/pkg/value"
)

func TestFindModified(t *testing.T) {
	tests := []struct {
		name    string
		prior   value.StringMap
		planned value.StringMap
		want    []string
	}{
		{
			name:    "no changes",
			prior:   value.Strings(map[string]string{"a": "1", "b": "2"}),
			planned: value.Strings(map[string]string{"a": "1", "b": "2"}),
			want:    []string{},
		},
		{
			name:    "value changed",
			prior:   value.Strings(map[string]string{"a": "1", "b": "2"}),
			planned: value.Strings(map[string]string{"a": "1", "b": "3"}),
			want:    []string{"b"},
		},
		{
			name:    "key added",
			prior:   value.Strings(map[string]string{"a": "1"}),
			planned: value.Strings(map[string]string{"a": "1", "b": "2"}),
			want:    []string{"b"},
		},
		{
			name:    "key removed",
			prior:   value.Strings(map[string]string{"a": "1", "b": "2"}),
			planned: value.Strings(map[string]string{"a": "1"}),
			want:    []string{"b"},
		},
		{
			name:    "null to known counts as change",
			prior:   value.Known(map[string]value.String{"a": value.Null[string]()}),
			planned: value.Strings(map[string]string{"a": "1"}),
			want:    []string{"a"},
		},
		{
			name:    "only planned known marks all keys",
			prior:   value.Null[map[string]value.String](),
			planned: value.Strings(map[string]string{"a": "1", "b": "2"}),
			want:    []string{"a", "b"},
		},
		{
			name:    "only prior known marks all keys",
			prior:   value.Strings(map[string]string{"a": "1"}),
			planned: value.Unknown[map[string]value.String](),
			want:    []string{"a"},
		},
		{
			name:    "neither known",
			prior:   value.Null[map[string]value.String](),
			planned: value.Null[map[string]value.String](),
			want:    []string{},
		},
		{
			name:    "sorted output",
			prior:   value.Strings(map[string]string{}),
			planned: value.Strings(map[string]string{"c": "1", "a": "2", "b": "3"}),
			want:    []string{"a", "b", "c"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindModified(tt.prior, tt.planned)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FindModified() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindModifiedDeterministic(t *testing.T) {
	prior := value.Strings(map[string]string{"a": "1", "b": "2", "c": "3"})
	planned := value.Strings(map[string]string{"a": "x", "b": "y", "c": "z"})
	first := FindModified(prior, planned)
	for i := 0; i < 50; i++ {
		if got := FindModified(prior, planned); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differed: %v vs %v", i, got, first)
		}
	}
}

func blocks(triggers ...[]string) []resource.UpdateSpec {
	out := make([]resource.UpdateSpec, len(triggers))
	for i, tr := range triggers {
		out[i] = resource.UpdateSpec{Triggers: tr}
	}
	return out
}

func TestFindUpdate(t *testing.T) {
	tests := []struct {
		name     string
		updates  []resource.UpdateSpec
		modified []string
		wantIdx  int
		wantOK   bool
	}{
		{
			name:     "exact match",
			updates:  blocks([]string{"a"}),
			modified: []string{"a"},
			wantIdx:  0,
			wantOK:   true,
		},
		{
			name:     "smallest superset wins",
			updates:  blocks([]string{"a", "b", "c"}, []string{"a", "b"}),
			modified: []string{"a", "b"},
			wantIdx:  1,
			wantOK:   true,
		},
		{
			name:     "declaration order breaks ties",
			updates:  blocks([]string{"a", "x"}, []string{"a", "y"}),
			modified: []string{"a"},
			wantIdx:  0,
			wantOK:   true,
		},
		{
			name:     "catch-all used when nothing matches",
			updates:  blocks([]string{"x"}, nil),
			modified: []string{"a"},
			wantIdx:  1,
			wantOK:   true,
		},
		{
			name:     "no candidate",
			updates:  blocks([]string{"x"}),
			modified: []string{"a"},
			wantOK:   false,
		},
		{
			name:     "no blocks",
			updates:  nil,
			modified: []string{"a"},
			wantOK:   false,
		},
		{
			name:     "subset trigger is not a candidate",
			updates:  blocks([]string{"a"}),
			modified: []string{"a", "b"},
			wantOK:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, ok := FindUpdate(tt.updates, tt.modified)
			if ok != tt.wantOK {
				t.Fatalf("FindUpdate() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && idx != tt.wantIdx {
				t.Errorf("FindUpdate() idx = %d, want %d", idx, tt.wantIdx)
			}
		})
	}
}

func TestFindUpdateDeterministic(t *testing.T) {
	updates := blocks([]string{"a", "b"}, []string{"b", "a"})
	first, _ := FindUpdate(updates, []string{"a"})
	for i := 0; i < 50; i++ {
		if got, _ := FindUpdate(updates, []string{"a"}); got != first {
			t.Fatalf("run %d selected %d, first run selected %d", i, got, first)
		}
	}
}
