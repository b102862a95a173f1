// Package cmd provides the CLI commands for rpcthrottle.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "rpcthrottle",
	Short: "rpcthrottle - throttled JSON-RPC client",
	Long: `rpcthrottle sends JSON-RPC calls to an Ethereum node through a request
throttle and a retry policy.

Configuration:
  Config is loaded from rpcthrottle.yaml in the current directory, or the
  file named by --config.

  Environment variables override config values with the RPCTHROTTLE_ prefix.
  Example: RPCTHROTTLE_THROTTLE_RPS=20
  The node url may also be given as ETHEREUM_PROVIDER.

Commands:
  scan        Print the transaction count of the most recent blocks
  version     Print version information`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./rpcthrottle.yaml)")
}
