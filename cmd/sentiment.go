package cmd

import (
	"fmt"

	"infra_crew/internal/tools"

	"github.com/spf13/cobra"
)

func newSentimentCmd(opts *rootOptions) *cobra.Command {
	var source, keywords string

	cmd := &cobra.Command{
		Use:   "sentiment",
		Short: "Score news sentiment for keywords",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts.env)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.registry.Invoke(cmd.Context(), "SentimentAnalysis", map[string]any{
				"source":   source,
				"keywords": keywords,
			}, nil)
			fmt.Fprintln(cmd.OutOrStdout(), tools.Render(result, err))
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "all", "all, or a comma list of aljazeera, guardian, nyt")
	cmd.Flags().StringVar(&keywords, "keywords", "", "comma separated keywords")
	return cmd
}
