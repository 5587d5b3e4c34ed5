package command

// root.go defines the root command and the global flags.

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var apiURL string

var rootCmd = &cobra.Command{
	Use:   "releasewatch",
	Short: "releasewatch - movie release date operations",
	Long: `releasewatch is the operator tool for the release date pipeline. Use it to:
- Browse the cached movie lists served by the API
- Run a discovery or release-day pass by hand
- Manage follows and inspect job status

Commands that touch the database read the same environment as release-sync.`,
	SilenceUsage: true,
}

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", envOr("RELEASEWATCH_API", "http://localhost:8080"), "API server URL")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
