package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shellform/shellform/pkg/diag"
)

func newImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <resource> <key=value,...>",
		Short: "Adopt an existing resource into tracked state",
		Long: `Import a resource that already exists outside shellform. The import
string is a comma-separated key=value list loaded into the resource's
outputs; an "id" key sets the tracked identifier, otherwise one is
generated. The resource must be declared in the manifest. No commands run;
the first plan after import performs a baseline read.`,
		Example: `  # Import with an explicit id and a seed output
  shellform import app_dir id=XK3h...,path=/opt/app

  # Import with a generated id
  shellform import app_dir path=/opt/app`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name, importID := args[0], args[1]

			rt, err := newRuntime(ctx, true)
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			declared, ok := rt.manifest.Resources[name]
			if !ok {
				return fmt.Errorf("resource %q is not declared in the manifest", name)
			}

			diags := &diag.Diagnostics{}
			imported, version := rt.engine.Import(ctx, importID, diags)
			if err := reportDiags(rt.logger, name, diags); err != nil {
				return err
			}

			state := declared.Clone()
			state.ID = imported.ID
			state.Outputs = imported.Outputs

			if err := saveState(ctx, rt, name, state, version); err != nil {
				return err
			}
			rt.logger.Info().
				Str("resource", name).
				Str("id", state.ID.Or("")).
				Msg("imported; run plan to establish a baseline")
			return nil
		},
	}
	return cmd
}
