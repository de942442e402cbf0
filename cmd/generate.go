package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/usedamru/sql2nosql/internal/codegen"
	"github.com/usedamru/sql2nosql/internal/config"
	"github.com/usedamru/sql2nosql/internal/docschema"
	"github.com/usedamru/sql2nosql/internal/relschema"
	"github.com/usedamru/sql2nosql/internal/synth"
)

var (
	generateSchema    string
	generateDocSchema string
	generateOutput    string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a standalone Python migration script",
	Long: `Generate a self-contained Python migration script from the relational
schema and the augmented document schema produced by analyze.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		_, doc, res, err := loadPipeline(cfg, generateSchema, generateDocSchema)
		if err != nil {
			return err
		}
		for _, synthErr := range res.Errors {
			logger.Warn("collection not migratable", "error", synthErr)
		}

		g := &codegen.Generator{
			Source: &cfg.Source,
			Target: &cfg.Target,
			Doc:    doc,
			Params: res.Params,
		}
		script, err := g.Generate()
		if err != nil {
			return fmt.Errorf("generating script: %w", err)
		}

		out := outputPath(cfg, generateOutput, "migrate.py")
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		if err := os.WriteFile(out, []byte(script), 0o644); err != nil {
			return fmt.Errorf("writing script: %w", err)
		}
		fmt.Printf("Migration script written to %s (%d collections)\n", out, len(res.Params))
		return nil
	},
}

// loadPipeline loads the schemas produced by introspect and analyze and
// re-synthesizes migration parameters with the configured options.
func loadPipeline(cfg *config.Config, schemaOverride, docOverride string) (*relschema.Schema, *docschema.Schema, *synth.Result, error) {
	schemaPath := outputPath(cfg, schemaOverride, "source-schema.yaml")
	rel, err := relschema.LoadYAML(schemaPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading relational schema: %w", err)
	}

	docPath := outputPath(cfg, docOverride, "docschema-augmented.yaml")
	doc, err := docschema.LoadYAML(docPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading document schema (run analyze first): %w", err)
	}

	res, err := synth.Synthesize(rel, doc, cfg.Migration)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("synthesizing parameters: %w", err)
	}
	return rel, doc, res, nil
}

func init() {
	generateCmd.Flags().StringVar(&generateSchema, "schema", "", "relational schema path (default: <output>/source-schema.yaml)")
	generateCmd.Flags().StringVar(&generateDocSchema, "docschema", "", "document schema path (default: <output>/docschema-augmented.yaml)")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "script output path")
	rootCmd.AddCommand(generateCmd)
}
