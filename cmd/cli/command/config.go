package command

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"releasewatch/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Load and validate the environment configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		fmt.Printf("  TMDB:        %s (key %s, %.1f rps, %s)\n", cfg.TMDBAPIURL, maskSecret(cfg.TMDBAPIKey), cfg.TMDBRateLimit, cfg.TMDBLanguage)
		fmt.Printf("  Country:     %s\n", cfg.HomeCountry)
		fmt.Printf("  Redis:       %s (ttl %s)\n", cfg.RedisURL, cfg.CacheTTLDuration())
		fmt.Printf("  Discovery:   batch %d, horizon %dd, stale after %s, every %s\n",
			cfg.DiscoveryBatchSize, cfg.DiscoveryHorizonDays, cfg.DiscoveryStaleAfter, cfg.DiscoveryInterval)
		if cfg.MailDryRun {
			fmt.Println("  Mail:        dry run")
		} else {
			fmt.Printf("  Mail:        %s:%d as %s (password %s)\n", cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, maskSecret(cfg.SMTPPassword))
		}

		failed := false
		if err := cfg.Validate(); err != nil {
			color.Red("✗ %v", err)
			failed = true
		}
		if err := cfg.ValidateMail(); err != nil {
			color.Red("✗ %v", err)
			failed = true
		}
		if failed {
			return fmt.Errorf("configuration is invalid")
		}
		color.Green("✓ configuration is valid")
		return nil
	},
}

func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

func init() {
	rootCmd.AddCommand(configCmd)
}
