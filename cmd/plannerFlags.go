package cmd

import (
	"github.com/spf13/pflag"

	"github.com/wundergraph/qp-analyzer/pkg/planner"
)

const jsonFlag = "json"

func addPlannerFlags(flags *pflag.FlagSet) {
	defaults := planner.DefaultArgs()
	flags.Bool("disable-generate-query-fragments", defaults.DisableGenerateQueryFragments, "disable optimization of subgraph fetch queries using fragments")
	flags.Bool("disable-defer-support", defaults.DisableDeferSupport, "disable defer support")
	flags.Bool("experimental-type-conditioned-fetching", defaults.ExperimentalTypeConditionedFetching, "enable type conditioned fetching")
	flags.Uint32("experimental-plans-limit", defaults.ExperimentalPlansLimit, "sets a limit to the number of generated query plans")
	flags.Uint32("experimental-paths-limit", defaults.ExperimentalPathsLimit, "per-path limit to the number of options considered, 0 means no limit")
	flags.Bool(jsonFlag, false, "print the result as JSON")
}

// plannerConfiguration merges flags, environment and config file into planner options.
func (c *cli) plannerConfiguration() (planner.Configuration, error) {
	args := planner.DefaultArgs()
	if err := c.viper.Unmarshal(&args); err != nil {
		return planner.Configuration{}, err
	}
	config := args.Configuration()
	config.Logger = c.logger
	return config, nil
}

func (c *cli) jsonOutput() bool {
	return c.viper.GetBool(jsonFlag)
}
