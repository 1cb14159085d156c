package resource

import (
	"github.com/shellform/shellform/pkg/value"
)

// Normalize fixes degenerate states in place so later stages need not
// special-case them:
//
//   - a Null id becomes Unknown (an id must eventually be produced),
//   - Null inputs become an empty Known map,
//   - Unknown outputs become a Known map with every declared read key set
//     to Unknown, forcing each output to be (re)computed.
//
// Normalize never fails and has no side effects beyond mutating s.
func (s *Spec) Normalize() {
	if s.ID.IsNull() {
		s.ID = value.Unknown[string]()
	}
	if s.Inputs.IsNull() {
		s.Inputs = value.Known(map[string]value.String{})
	}
	if s.Outputs.IsUnknown() {
		outputs := make(map[string]value.String, len(s.Reads))
		for name := range s.Reads {
			outputs[name] = value.Unknown[string]()
		}
		s.Outputs = value.Known(outputs)
	}
}
