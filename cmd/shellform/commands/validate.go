package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/shellform/shellform/pkg/diag"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the manifest",
		Long: `Validate every resource declaration in the manifest: connection
configuration, read and update commands, and concurrency settings. No
commands are executed and no state is touched.`,
		Example: `  # Validate the default manifest
  shellform validate

  # Validate a specific manifest
  shellform validate -f infra.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx, false)
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			var failed bool
			for _, name := range rt.manifest.Names() {
				diags := &diag.Diagnostics{}
				rt.engine.Validate(ctx, rt.manifest.Resources[name], diags)
				if reportDiags(rt.logger, name, diags) != nil {
					failed = true
				}
			}
			if failed {
				return errors.New("manifest validation failed")
			}
			rt.logger.Info().Int("resources", len(rt.manifest.Resources)).Msg("manifest is valid")
			return nil
		},
	}
	return cmd
}
