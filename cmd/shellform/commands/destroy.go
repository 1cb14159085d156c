package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newDestroyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "destroy [resource...]",
		Short: "Destroy tracked resources",
		Long: `Run the destroy command of the named tracked resources, or of every
tracked resource when no names are given, and drop them from state. A
resource is dropped even when its destroy command fails; the failure is
reported. Imported resources that were never applied are dropped without
running anything.`,
		Example: `  # Destroy everything tracked in the state
  shellform destroy

  # Destroy a single resource
  shellform destroy app_dir`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx, true)
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			names := args
			if len(names) == 0 {
				records, err := rt.store.ListResources(ctx)
				if err != nil {
					return err
				}
				for _, rec := range records {
					names = append(names, rec.Name)
				}
			}

			var failed bool
			for _, name := range names {
				rec, err := rt.store.GetResource(ctx, name)
				if err != nil {
					return fmt.Errorf("resource %s: %w", name, err)
				}
				prior, err := rec.StoredSpec()
				if err != nil {
					return err
				}

				action := &plannedAction{
					Name:    name,
					Kind:    actionDestroy,
					Prior:   prior,
					Version: rec.VersionValue(),
				}
				rt.logger.Info().Str("resource", name).Msg("destroying")
				if err := executeAction(ctx, rt, action); err != nil {
					failed = true
				}
			}
			if failed {
				return errors.New("destroy failed for one or more resources")
			}
			return nil
		},
	}
	return cmd
}
