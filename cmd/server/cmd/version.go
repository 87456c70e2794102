package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/Togather-Foundation/eventhub/internal/api"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"

	versionJSON bool
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the EventHub build and Go runtime versions.

With --json the output matches the body served at GET /version, which lets
deploy scripts compare a binary with a running server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := api.NewVersionInfo(buildInfo())
		out := cmd.OutOrStdout()
		if versionJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}
		fmt.Fprintf(out, "EventHub Server %s\n", info.Version)
		fmt.Fprintf(out, "  commit:   %s\n", info.GitCommit)
		fmt.Fprintf(out, "  built:    %s\n", info.BuildDate)
		fmt.Fprintf(out, "  go:       %s (%s/%s)\n", info.GoVersion, runtime.GOOS, runtime.GOARCH)
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "print the /version JSON body")
}

func buildInfo() api.BuildInfo {
	return api.BuildInfo{Version: Version, GitCommit: GitCommit, BuildDate: BuildDate}
}
