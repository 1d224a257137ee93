package cmd

import (
	"fmt"
	"strings"

	"infra_crew/internal/tools"
	"infra_crew/pkg"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
)

func newToolCmd(opts *rootOptions) *cobra.Command {
	var rawArgs []string
	var session, project string

	cmd := &cobra.Command{
		Use:   "tool <Name>",
		Short: "Invoke one coded tool and print its result",
		Long: `Invokes a coded tool the way an agent would. Arguments are key=value
pairs; values starting with { or [ are parsed as JSON.

Example:
  infra_crew tool TerraformBuilder --arg project_name=shop
  infra_crew tool CommitToMemory --project shop --arg topic=db --arg new_fact="Use PostgreSQL"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolArgs, err := parseToolArgs(rawArgs)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), opts.env)
			if err != nil {
				return err
			}
			defer a.Close()

			sly := pkg.SlyData{}
			if session != "" {
				sly["session_id"] = session
			}
			if project != "" {
				sly["project_name"] = project
			}

			result, err := a.registry.Invoke(cmd.Context(), args[0], toolArgs, sly)
			fmt.Fprintln(cmd.OutOrStdout(), tools.Render(result, err))
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&rawArgs, "arg", "a", nil, "tool argument as key=value (repeatable)")
	cmd.Flags().StringVar(&session, "session", "", "session_id passed to the tool")
	cmd.Flags().StringVar(&project, "project", "", "project_name passed to the tool")
	return cmd
}

func parseToolArgs(raw []string) (map[string]any, error) {
	args := make(map[string]any, len(raw))
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --arg %q, want key=value", kv)
		}
		if strings.HasPrefix(value, "{") || strings.HasPrefix(value, "[") {
			var parsed any
			if err := sonic.UnmarshalString(value, &parsed); err != nil {
				return nil, fmt.Errorf("invalid JSON for --arg %s: %w", key, err)
			}
			args[key] = parsed
			continue
		}
		args[key] = value
	}
	return args, nil
}
