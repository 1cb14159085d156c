package commands

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newApplyCommand() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Reconcile resources to match the manifest",
		Long: `Plan against tracked state and execute the resulting actions: create
missing resources, run scheduled update blocks in declaration order, replace
resources whose changed inputs no update block can handle, and destroy
resources dropped from the manifest. State is persisted after each resource
so a failure mid-run loses at most the failing resource.`,
		Example: `  # Apply the default manifest
  shellform apply

  # Expose Prometheus metrics while a long apply runs
  shellform apply --metrics-addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx, true)
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			runID := uuid.NewString()
			rt.logger = rt.logger.WithRun(runID)

			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", rt.metrics.Handler())
				server := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
				go func() {
					if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						rt.logger.Error().Err(err).Msg("metrics server failed")
					}
				}()
				defer server.Close()
				rt.logger.Info().Str("addr", metricsAddr).Msg("serving metrics")
			}

			actions, err := planActions(ctx, rt)
			if err != nil {
				return err
			}

			var failed bool
			for _, a := range actions {
				if a.Kind == actionNoop {
					rt.logger.Debug().Str("resource", a.Name).Msg("no changes")
					continue
				}
				rt.logger.Info().Str("resource", a.Name).Str("action", string(a.Kind)).Msg("applying")
				if err := executeAction(ctx, rt, a); err != nil {
					rt.logger.Error().Err(err).Str("resource", a.Name).Msg("apply failed")
					failed = true
				}
			}
			if failed {
				return errors.New("apply failed for one or more resources")
			}
			rt.logger.Info().Int("resources", len(actions)).Msg("apply complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")

	return cmd
}
