package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// planCmd plans an operation for every combination of override labels
func (c *cli) planCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <schema> <query|->",
		Short: "build the query plans of an operation for all override label combinations",
		Long: `plan builds one query plan per combination of the override labels of the supergraph.
Pass - as query to read the operation from stdin.`,
		Example: "qp-analyzer plan supergraph.graphql query.graphql --json",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			query, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			config, err := c.plannerConfiguration()
			if err != nil {
				return err
			}

			jsonOutput := c.jsonOutput()
			results, err := c.analyzer(cmd).BuildAllPlans(schema, query, args[1], config, !jsonOutput)
			if err != nil {
				return err
			}
			if !jsonOutput {
				return nil
			}
			return printJSON(cmd, results)
		},
	}
	addPlannerFlags(cmd.Flags())
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
