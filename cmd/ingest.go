package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"kardex-ingest/internal/config"
	domain "kardex-ingest/internal/domain/kardex"
	"kardex-ingest/internal/infrastructure/database"
	"kardex-ingest/internal/infrastructure/repository"
	"kardex-ingest/internal/service"
	"kardex-ingest/pkg/logger"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.json>",
	Short: "Ingest a kardex payload from a JSON file",
	Long: `Read a kardex payload from disk and reconcile it against the catalog.
The file name is recorded on the created transcript entries. Re-running
the command with the same file creates no duplicate rows.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runIngest(args[0])
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("Failed to read payload file: %v", err)
		os.Exit(1)
	}

	var payload domain.Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		logger.Error("Failed to parse payload file: %v", err)
		os.Exit(1)
	}

	cfg := config.Get()
	db, err := database.NewConnection(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.Username,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		logger.Error("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(db); err != nil {
		logger.Error("Failed to run database migrations: %v", err)
		os.Exit(1)
	}

	ingestionService := service.NewIngestionService(repository.NewGormStore(db))
	result, err := ingestionService.Ingest(context.Background(), &payload, filepath.Base(path))
	if err != nil {
		logger.Error("Ingestion failed: %v", err)
		os.Exit(1)
	}

	fmt.Printf("Ingested kardex for student %s (plan %s): %d entries created, %d skipped\n",
		result.StudentID, result.PlanID, result.EntriesCreated, result.EntriesSkipped)
}
