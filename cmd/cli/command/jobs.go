package command

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"releasewatch/database"
	"releasewatch/internal/bootstrap"
	"releasewatch/internal/config"
	"releasewatch/internal/discovery"
	"releasewatch/internal/metrics"
	"releasewatch/internal/repository"
)

var dryRun bool

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run one release date discovery pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withJob(func(ctx context.Context, job *discovery.Job) error {
			result, err := job.Run(ctx)
			if result != nil {
				printResult("discovery", result)
			}
			return err
		})
	},
}

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Send today's release-day reminders",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withJob(func(ctx context.Context, job *discovery.Job) error {
			result, err := job.RunReleaseDay(ctx)
			if result != nil {
				printResult("release day", result)
			}
			return err
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last run of each job",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := openDB()
		if err != nil {
			return err
		}
		repo := repository.NewSyncStateRepository(db)
		for _, syncType := range []string{discovery.SyncTypeDiscovery, discovery.SyncTypeReleaseDay} {
			state, err := repo.Get(cmd.Context(), syncType)
			if err != nil {
				fmt.Printf("%-24s never run\n", syncType)
				continue
			}
			status := color.GreenString(state.Status)
			if state.Status == repository.SyncStatusError {
				status = color.RedString(state.Status)
			}
			fmt.Printf("%-24s %s\n", syncType, status)
			if state.LastRunAt != nil {
				fmt.Printf("  last run:     %s\n", state.LastRunAt.Local().Format("2006-01-02 15:04:05"))
			}
			if state.LastSuccessAt != nil {
				fmt.Printf("  last success: %s\n", state.LastSuccessAt.Local().Format("2006-01-02 15:04:05"))
			}
			if state.ErrorMessage != "" {
				fmt.Printf("  error:        %s\n", state.ErrorMessage)
			}
		}
		return nil
	},
}

func openDB() (*config.Config, *gorm.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("could not load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	db, err := database.ConnectDB(cfg, bootstrap.Logger(cfg, "cli"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return cfg, db, nil
}

// withJob wires a discovery job and runs fn until it returns or the user
// interrupts.
func withJob(fn func(ctx context.Context, job *discovery.Job) error) error {
	cfg, db, err := openDB()
	if err != nil {
		return err
	}
	if dryRun {
		cfg.MailDryRun = true
	}
	if err := cfg.ValidateMail(); err != nil {
		return err
	}

	logger := bootstrap.Logger(cfg, "cli")
	source, err := bootstrap.CatalogSource(cfg, logger)
	if err != nil {
		return err
	}
	job := bootstrap.DiscoveryJob(cfg, db, source, bootstrap.Mailer(cfg, logger), metrics.New(nil), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, job)
}

func printResult(name string, r *discovery.Result) {
	color.New(color.Bold).Printf("%s run %s\n", name, r.RunID)
	fmt.Printf("  selected:    %d (deferred %d)\n", r.Selected, r.Deferred)
	fmt.Printf("  refreshed:   %d (failed %d)\n", r.Refreshed, r.Failed)
	fmt.Printf("  discovered:  %d  changed: %d  unchanged: %d\n", r.Discovered, r.Changed, r.Unchanged)
	fmt.Printf("  eligible:    %d (suppressed %d)\n", r.Eligible, r.Suppressed)
	fmt.Printf("  emails:      %d  logged: %d\n", r.Emails, r.Notified)
	if r.MailFailures > 0 {
		color.Red("  mail failures: %d", r.MailFailures)
	}
}

func init() {
	for _, c := range []*cobra.Command{discoverCmd, remindersCmd} {
		c.Flags().BoolVar(&dryRun, "dry-run", false, "log notifications instead of sending them")
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(statusCmd)
}
