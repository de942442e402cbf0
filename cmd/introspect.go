package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/usedamru/sql2nosql/internal/ddl"
	"github.com/usedamru/sql2nosql/internal/introspect"
	"github.com/usedamru/sql2nosql/internal/relschema"
)

var (
	introspectDDL    string
	introspectOutput string
)

var introspectCmd = &cobra.Command{
	Use:   "introspect",
	Short: "Extract the relational schema model",
	Long: `Connect to the source PostgreSQL database and extract tables, columns,
keys and constraints into the relational schema model. With --ddl, parse
CREATE TABLE statements from a SQL file instead of connecting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		var schema *relschema.Schema
		if introspectDDL != "" {
			data, err := os.ReadFile(introspectDDL)
			if err != nil {
				return fmt.Errorf("reading DDL file: %w", err)
			}
			schema, err = ddl.Parse(string(data))
			if err != nil {
				return fmt.Errorf("parsing DDL: %w", err)
			}
		} else {
			p := introspect.NewPostgres(&cfg.Source, logger)

			fmt.Printf("Connecting to %s:%d/%s...\n", cfg.Source.Host, cfg.Source.Port, cfg.Source.Database)
			ctx := context.Background()
			if err := p.Connect(ctx); err != nil {
				return err
			}
			defer p.Close()

			schema, err = p.Introspect(ctx)
			if err != nil {
				return err
			}
		}

		fmt.Printf("Found %d tables, %d foreign keys\n", len(schema.Tables), len(schema.ForeignKeys))

		out := outputPath(cfg, introspectOutput, "source-schema.yaml")
		if err := schema.WriteYAML(out); err != nil {
			return fmt.Errorf("writing schema: %w", err)
		}
		fmt.Printf("Schema written to %s\n", out)
		return nil
	},
}

func init() {
	introspectCmd.Flags().StringVar(&introspectDDL, "ddl", "", "parse CREATE TABLE statements from this SQL file instead of connecting")
	introspectCmd.Flags().StringVarP(&introspectOutput, "output", "o", "", "schema output path")
	rootCmd.AddCommand(introspectCmd)
}
