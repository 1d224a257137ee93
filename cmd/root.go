// Package cmd is the infra_crew command line.
package cmd

import (
	"fmt"

	"infra_crew/src"
	"infra_crew/src/logger"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
	env        *src.Config
}

// NewRootCmd builds the command tree. Every call returns fresh flag state.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "infra_crew",
		Short: "Multi-agent infrastructure and software delivery assistant",
		Long: `infra_crew coordinates a team of specialist agents that design,
plan and provision infrastructure.

Run "infra_crew serve" to start the chat relay, or call a tool or
workflow directly from the shell.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			env, err := src.LoadConfig()
			if err != nil {
				return err
			}
			if opts.configFile != "" {
				env.ConfigFile = opts.configFile
			}
			if err := logger.InitLogger(env.LogConfig); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			opts.env = env
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "YAML config file (default $CONFIG_FILE or config.yaml)")

	root.AddCommand(
		newServeCmd(opts),
		newToolCmd(opts),
		newWorkflowCmd(opts),
		newSentimentCmd(opts),
		newSystemsCmd(opts),
	)
	return root
}

// Execute runs the command line
func Execute() error {
	return NewRootCmd().Execute()
}
