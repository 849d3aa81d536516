package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	configPath string
	logLevel   string
	logJSON    bool
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "cardflow",
	Version: Version,
	Short:   "A chat bot that runs tasks, glitches and fixes as cards",
	Long: `Cardflow turns a group chat into a small issue tracker.
Every task, glitch and fix is a message card whose buttons move it through
new, confirmed, work, test, accept and closed. Each step appends a stamp
naming who did what and when.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() error {
	err := RootCmd.Execute()
	var cliErr *CLIError
	if errors.As(err, &cliErr) && cliErr.Hint != "" {
		fmt.Fprintf(os.Stderr, "Hint: %s\n", cliErr.Hint)
	}
	return err
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: cardflow.yaml, cardflow.yml or cardflow.toml in the working directory)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	RootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write logs as JSON")
}
