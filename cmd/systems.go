package cmd

import (
	"fmt"

	"infra_crew/internal/config"
	"infra_crew/internal/services"

	"github.com/spf13/cobra"
)

func newSystemsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "systems",
		Short: "List the enabled agent networks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			yamlConfig, err := config.LoadConfig(opts.env.ConfigFile)
			if err != nil {
				return err
			}
			catalog, err := services.NewSystemsCatalog(yamlConfig.Systems.Manifest)
			if err != nil {
				return err
			}

			def := catalog.Default()
			for _, name := range catalog.Available() {
				marker := " "
				if name == def {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, name)
			}
			return nil
		},
	}
}
