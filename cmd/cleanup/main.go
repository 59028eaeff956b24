package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"platform_backend/internal/app"
	"platform_backend/internal/clock"
	"platform_backend/internal/config"
	"platform_backend/internal/logger"
	"platform_backend/internal/metrics"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Archive and purge old notifications once",
	Long: `Runs the notification cleanup job a single time.
Notifications older than archive-days are soft-deleted, archived ones older
than purge-days are removed for good. With --dry-run only the counts are reported.`,
	SilenceUsage: true,
	RunE:         runCleanup,
}

func init() {
	rootCmd.Flags().Bool("dry-run", false, "Report counts without changing anything")
	rootCmd.Flags().Int("archive-days", 0, "Override archive threshold in days")
	rootCmd.Flags().Int("purge-days", 0, "Override purge threshold in days")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	archiveDays, _ := cmd.Flags().GetInt("archive-days")
	purgeDays, _ := cmd.Flags().GetInt("purge-days")

	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)

	if archiveDays > 0 {
		cfg.Cleanup.ArchiveDays = archiveDays
	}
	if purgeDays > 0 {
		cfg.Cleanup.PurgeDays = purgeDays
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	db, err := app.OpenDatabase(cfg.Database.DSN, cfg.Server.Env)
	if err != nil {
		return err
	}

	worker := app.NewCleanupWorker(cfg, db, clock.System(), metrics.New())
	result, err := worker.Run(ctx, dryRun)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
