package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jensneuse/abstractlogger"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wundergraph/qp-analyzer/pkg/analyzer"
)

const (
	envPrefix       = "QP_ANALYZER"
	configFlag      = "config"
	logLevelFlag    = "log-level"
	defaultLogLevel = "error"
)

// cli carries the state shared by the commands of one invocation.
type cli struct {
	viper  *viper.Viper
	logger abstractlogger.Logger
}

// NewRootCommand returns the qp-analyzer command tree.
func NewRootCommand() *cobra.Command {
	c := &cli{
		viper:  viper.New(),
		logger: abstractlogger.Noop{},
	}

	rootCmd := &cobra.Command{
		Use:   "qp-analyzer",
		Short: "qp-analyzer plans a federated operation under every combination of progressive override labels",
		Long: `qp-analyzer reads a supergraph schema and shows how the query plan of an operation
changes with the progressive override labels declared by @override(label: ...).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init(cmd)
		},
	}
	rootCmd.PersistentFlags().String(configFlag, "", "config file (yaml or json) with planner options")
	rootCmd.PersistentFlags().String(logLevelFlag, defaultLogLevel, "log level: debug, info, warn or error")

	rootCmd.AddCommand(
		c.listOverridesCmd(),
		c.planCmd(),
		c.planOneCmd(),
	)
	return rootCmd
}

// Execute runs the command line and reports a failure as "Error: <message>" on stderr.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %s\n", err)
		return err
	}
	return nil
}

func (c *cli) init(cmd *cobra.Command) error {
	c.viper.SetEnvPrefix(envPrefix)
	c.viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.viper.AutomaticEnv()

	if err := c.viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	if configFile := c.viper.GetString(configFlag); configFile != "" {
		c.viper.SetConfigFile(configFile)
		if err := c.viper.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "reading config file %s", configFile)
		}
	}

	logger, err := newLogger(c.viper.GetString(logLevelFlag), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	c.logger = logger
	return nil
}

func (c *cli) analyzer(cmd *cobra.Command) *analyzer.Analyzer {
	return analyzer.New(
		analyzer.WithLogger(c.logger),
		analyzer.WithOutput(cmd.OutOrStdout()),
	)
}

// newLogger builds a console logger without timestamps, the level filter is applied by zap.
func newLogger(level string, w io.Writer) (abstractlogger.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(w), zapLevel)

	return abstractlogger.NewZapLogger(zap.New(core), abstractlogger.DebugLevel), nil
}

// readInput reads a file, "-" reads stdin.
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", errors.Wrap(err, "reading stdin")
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", path)
	}
	return string(data), nil
}
