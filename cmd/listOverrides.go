package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// listOverridesCmd prints the override labels of a supergraph, one per line
func (c *cli) listOverridesCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list-overrides <schema>",
		Short:   "list the progressive override labels of a supergraph",
		Example: "qp-analyzer list-overrides supergraph.graphql",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			labels, err := c.analyzer(cmd).OverrideLabels(schema)
			if err != nil {
				return err
			}
			for _, label := range labels {
				fmt.Fprintln(cmd.OutOrStdout(), label)
			}
			return nil
		},
	}
}
