// Mastertherm-cli is a debug utility for the Mastertherm heat pump cloud
// service.
//
// It lists the devices registered to an account, fetches installation
// records, decoded data points and raw register snapshots, and can watch
// devices continuously in a terminal dashboard. Both cloud generations are
// supported: installations from before 2022 (mastertherm.vip-it.cz) and
// from 2022 onward (mastertherm.online).
//
// Usage:
//
//	mastertherm-cli [command] [flags]
//
// See 'mastertherm-cli --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/mastertherm"
	"github.com/muurk/mastertherm/internal/logging"
	"github.com/muurk/mastertherm/internal/urls"
	"github.com/muurk/mastertherm/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "mastertherm-cli",
	Short: "Mastertherm heat pump cloud debug utility",
	Long: `A debug utility for the Mastertherm heat pump cloud service.

Lists the devices registered to an account, fetches installation records,
decoded data points and raw register snapshots, and can watch devices
continuously in a terminal dashboard.

Two cloud generations exist and accounts belong to exactly one of them:
installations from before 2022 use mastertherm.vip-it.cz (v1) and
installations from 2022 onward use mastertherm.online (v2). Select the
generation with --api-ver or the MASTERTHERM_API_VERSION variable.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mastertherm-cli %s (commit: %s)\n", version.Version, version.Commit)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := logging.InitializeFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := mastertherm.GetTroubleshootingHint(err); hint != "" {
			fmt.Fprintf(os.Stderr, "\n%s\n", hint)
		}
		if mastertherm.IsAuthError(err) {
			fmt.Fprintf(os.Stderr, "\nVerify the account on the vendor portal: %s\n", urls.Portal(resolvedAPIVersion))
		}
		os.Exit(1)
	}
}
