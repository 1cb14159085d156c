package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shellform/shellform/pkg/diag"
	"github.com/shellform/shellform/pkg/value"
)

func newReadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read [resource...]",
		Short: "Run read commands and print the observed outputs",
		Long: `Execute the read commands of the named resources (or of every
declared resource) against current reality and print the resulting outputs
as JSON. Tracked state is neither consulted nor written; this is a
one-shot observation.`,
		Example: `  # Observe one resource
  shellform read app_dir

  # Observe everything in the manifest
  shellform read`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx, false)
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			names := args
			if len(names) == 0 {
				names = rt.manifest.Names()
			}

			var failed bool
			for _, name := range names {
				declared, ok := rt.manifest.Resources[name]
				if !ok {
					return fmt.Errorf("resource %q is not declared in the manifest", name)
				}

				diags := &diag.Diagnostics{}
				observed, _ := rt.engine.Read(ctx, declared.Clone(), value.Known[int64](0), diags)
				if err := reportDiags(rt.logger, name, diags); err != nil {
					failed = true
					continue
				}

				rendered, err := renderOutputs(observed.Outputs)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, rendered)
			}
			if failed {
				return errors.New("read failed for one or more resources")
			}
			return nil
		},
	}
	return cmd
}
