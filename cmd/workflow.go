package cmd

import (
	"context"
	"fmt"
	"strings"

	"infra_crew/internal/workflow"

	"github.com/spf13/cobra"
)

func newWorkflowCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Run and inspect delegated workflows",
	}

	// each subcommand builds the app, renders one report and exits
	report := func(render func(ctx context.Context, api *workflow.Interface, args []string) string) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.env)
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Fprintln(cmd.OutOrStdout(), render(cmd.Context(), a.workflow, args))
			return nil
		}
	}

	var session string
	run := &cobra.Command{
		Use:   "run <type> <requirements...>",
		Short: "Execute a workflow (azure_landing_zone, software_development, ...)",
		Args:  cobra.MinimumNArgs(2),
		RunE: report(func(ctx context.Context, api *workflow.Interface, args []string) string {
			return api.ExecuteWorkflow(ctx, args[0], strings.Join(args[1:], " "), session)
		}),
	}
	run.Flags().StringVar(&session, "session", "", "session id (default workflow_<timestamp>)")

	status := &cobra.Command{
		Use:   "status <session_id>",
		Short: "Show a stored workflow session",
		Args:  cobra.ExactArgs(1),
		RunE: report(func(ctx context.Context, api *workflow.Interface, args []string) string {
			return api.GetStatus(ctx, args[0])
		}),
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored workflow sessions",
		Args:  cobra.NoArgs,
		RunE: report(func(ctx context.Context, api *workflow.Interface, _ []string) string {
			return api.ListSessions(ctx)
		}),
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check the agent delegation chains",
		Args:  cobra.NoArgs,
		RunE: report(func(_ context.Context, api *workflow.Interface, _ []string) string {
			return api.Validate()
		}),
	}

	connectivity := &cobra.Command{
		Use:   "connectivity",
		Short: "Probe every agent through the live bridge",
		Args:  cobra.NoArgs,
		RunE: report(func(ctx context.Context, api *workflow.Interface, _ []string) string {
			return api.Connectivity(ctx)
		}),
	}

	cmd.AddCommand(run, status, list, validate, connectivity)
	return cmd
}
