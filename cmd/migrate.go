package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/usedamru/sql2nosql/internal/runner"
)

var (
	migrateSchema      string
	migrateDocSchema   string
	migrateDryRun      bool
	migrateSkipOnError bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run the migration with the built-in runner",
	Long: `Execute the migration directly: read rows from PostgreSQL in dependency
order and upsert documents into MongoDB. Re-running a completed migration is
a no-op because every write is an upsert by natural identity.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if migrateDryRun {
			cfg.Migration.DryRun = true
		}
		if migrateSkipOnError {
			cfg.Migration.SkipOnError = true
		}

		_, doc, res, err := loadPipeline(cfg, migrateSchema, migrateDocSchema)
		if err != nil {
			return err
		}
		for _, synthErr := range res.Errors {
			logger.Warn("collection not migratable", "error", synthErr)
		}

		ctx := context.Background()

		source, err := runner.NewPostgresSource(ctx, &cfg.Source)
		if err != nil {
			return err
		}
		defer source.Close()

		sink, err := runner.NewMongoSink(ctx, cfg.Target.ConnectionString, cfg.Target.Database)
		if err != nil {
			return err
		}
		defer sink.Close(ctx)

		if cfg.Migration.DryRun {
			fmt.Println("Dry run: no documents will be written.")
		}

		ex := &runner.Executor{Source: source, Sink: sink, Doc: doc, Logger: logger}
		summaries, runErr := ex.Run(ctx, res.Params)

		for _, s := range summaries {
			fmt.Printf("  %-24s attempted=%d succeeded=%d skipped=%d\n",
				s.Collection, s.Attempted, s.Succeeded, s.Skipped)
		}
		if runErr != nil {
			return fmt.Errorf("migration failed: %w", runErr)
		}
		fmt.Println("Migration complete.")
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateSchema, "schema", "", "relational schema path (default: <output>/source-schema.yaml)")
	migrateCmd.Flags().StringVar(&migrateDocSchema, "docschema", "", "document schema path (default: <output>/docschema-augmented.yaml)")
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "run every step except the writes")
	migrateCmd.Flags().BoolVar(&migrateSkipOnError, "skip-on-error", false, "log and skip failing rows instead of aborting")
	rootCmd.AddCommand(migrateCmd)
}
