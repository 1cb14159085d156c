package resource

import (
	"fmt"

	"github.com/shellform/shellform/pkg/diag"
	"github.com/shellform/shellform/pkg/transports"
)

// Validate runs schema- and connection-level checks on the declaration and
// reports findings on diags. It does not touch the transport.
func (s *Spec) Validate(diags *diag.Diagnostics) {
	transports.ValidateConfig(s.Connection, diags, diag.Root("connection"))

	if s.Concurrency < 0 {
		diags.Error(
			"`concurrency` must be positive",
			fmt.Sprintf("got %d", s.Concurrency),
			diag.Root("concurrency"),
		)
	}

	for name, read := range s.Reads {
		if read.IsEmpty() {
			diags.Error(
				"`read` cmd should not be empty",
				fmt.Sprintf("the output %q has a read block with no command", name),
				diag.Root("read").Key(name).Attr("cmd"),
			)
		}
	}

	for i, update := range s.Updates {
		if update.IsEmpty() {
			diags.Error(
				"`update` cmd should not be empty",
				"every update block needs a command to run when triggered",
				diag.Root("update").Index(i).Attr("cmd"),
			)
		}
		for _, reload := range update.Reloads {
			if _, ok := s.Reads[reload]; !ok {
				diags.Error(
					"`reloads` references an undeclared output",
					fmt.Sprintf("no read block named %q exists", reload),
					diag.Root("update").Index(i).Attr("reloads"),
				)
			}
		}
	}
}
