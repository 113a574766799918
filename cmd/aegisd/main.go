// Command aegisd is the daemon entrypoint: it wires the core packages
// (internal/repo, internal/fsal, internal/execengine,
// internal/validation, internal/nfsgateway, internal/httpapi) together
// and serves the HTTP API plus the NFS gateway's in-process adapter.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aegis-run/orchestrator/internal/apierr"
	"github.com/aegis-run/orchestrator/internal/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:     "aegisd",
	Short:   "Aegis orchestrator daemon",
	Long:    "aegisd runs the Aegis agent orchestrator: deploy agents, drive executions, and serve their mounted volumes over NFS.",
	Version: version.GetVersionString(),
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to aegis-config.yaml (overrides AEGIS_CONFIG_PATH and the default search order)")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(apierr.ExitCode(apierr.KindOf(err)))
	}
}
