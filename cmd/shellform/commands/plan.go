package commands

import (
	"github.com/spf13/cobra"

	"github.com/shellform/shellform/pkg/diag"
)

func newPlanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what apply would do",
		Long: `Compare the manifest with tracked state and report, per resource,
whether apply would create it, update it in place, replace it, refresh its
outputs, or destroy it. Read commands may run (for imported resources that
need a baseline); lifecycle commands never do.`,
		Example: `  # Plan against the default manifest and state
  shellform plan

  # Plan a specific manifest
  shellform plan -f infra.yaml --state infra.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx, true)
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			actions, err := planActions(ctx, rt)
			for _, a := range actions {
				printAction(rt, a)
			}
			return err
		},
	}
	return cmd
}

func printAction(rt *runtime, a *plannedAction) {
	ev := rt.logger.Info().Str("resource", a.Name).Str("action", string(a.Kind))
	if a.Kind == actionReplace {
		ev = ev.Strs("forces_replacement", pathStrings(a.Replace))
	}
	if a.Kind == actionUpdate {
		var blocks []int
		for i := range a.Planned.Updates {
			if a.Planned.Updates[i].Triggered.IsUnknown() {
				blocks = append(blocks, i)
			}
		}
		ev = ev.Ints("update_blocks", blocks)
	}
	ev.Msg("planned")
}

func pathStrings(paths []diag.Path) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = p.String()
	}
	return out
}
