package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const overrideAllFlag = "override-all"

// planOneCmd plans an operation for one combination of override labels
func (c *cli) planOneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan-one <schema> <query|-> [labels...]",
		Short: "build the query plan of an operation with the given override labels enabled",
		Long: `plan-one builds the query plan with exactly the listed override labels enabled.
--override-all enables every label and cannot be combined with explicit labels.`,
		Example: `qp-analyzer plan-one supergraph.graphql query.graphql "percent(50)"`,
		Args:    cobra.MinimumNArgs(2),
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

			result, err := c.analyzer(cmd).BuildOnePlan(schema, query, args[1], config, args[2:], c.viper.GetBool(overrideAllFlag))
			if err != nil {
				return err
			}
			if c.jsonOutput() {
				return printJSON(cmd, result)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), result.QueryPlanDisplay)
			return err
		},
	}
	addPlannerFlags(cmd.Flags())
	cmd.Flags().Bool(overrideAllFlag, false, "enable all override labels")
	return cmd
}
