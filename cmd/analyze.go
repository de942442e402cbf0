package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/usedamru/sql2nosql/internal/advisory"
	"github.com/usedamru/sql2nosql/internal/mapper"
	"github.com/usedamru/sql2nosql/internal/relschema"
	"github.com/usedamru/sql2nosql/internal/report"
	"github.com/usedamru/sql2nosql/internal/synth"
	"github.com/usedamru/sql2nosql/internal/wizard"
)

var (
	analyzeSchema   string
	analyzeAdvisory string
	analyzeReview   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Map the relational schema and synthesize migration parameters",
	Long: `Run the conversion pipeline: map the relational schema to a baseline
document schema, merge advisory recommendations, resolve collection
dependencies and synthesize per-collection migration parameters.

With --review, recommendations are reviewed interactively before merging.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		schemaPath := outputPath(cfg, analyzeSchema, "source-schema.yaml")
		rel, err := relschema.LoadYAML(schemaPath)
		if err != nil {
			return fmt.Errorf("loading relational schema: %w", err)
		}

		baseline := mapper.Map(rel)
		logger.Info("schema mapped", "tables", len(rel.Tables), "collections", len(baseline.Collections))

		doc := baseline
		var recs []advisory.Recommendation
		var skips []advisory.Skip
		if analyzeAdvisory != "" {
			recs, err = advisory.LoadYAML(analyzeAdvisory)
			if err != nil {
				return fmt.Errorf("loading advisories: %w", err)
			}

			if analyzeReview {
				accepted, ok, err := wizard.Run(recs)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("Review cancelled.")
					return nil
				}
				recs = accepted
			}

			doc, skips = advisory.Merge(baseline, rel, recs)
			logger.Info("advisories merged", "applied", len(recs)-len(skips), "skipped", len(skips))
			for _, s := range skips {
				logger.Warn("recommendation skipped",
					"collection", s.Recommendation.Collection,
					"field", s.Recommendation.Field,
					"reason", s.Reason)
			}
		}

		res, err := synth.Synthesize(rel, doc, cfg.Migration)
		if err != nil {
			return fmt.Errorf("synthesizing parameters: %w", err)
		}
		for _, synthErr := range res.Errors {
			logger.Warn("collection not migratable", "error", synthErr)
		}

		baselinePath := outputPath(cfg, "", "docschema.yaml")
		if err := baseline.WriteYAML(baselinePath); err != nil {
			return fmt.Errorf("writing baseline schema: %w", err)
		}
		docPath := outputPath(cfg, "", "docschema-augmented.yaml")
		if err := doc.WriteYAML(docPath); err != nil {
			return fmt.Errorf("writing augmented schema: %w", err)
		}

		r := report.Build(rel, doc, recs, skips, res)
		jsonPath := outputPath(cfg, "", "report.json")
		if err := report.WriteJSON(r, jsonPath); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		textPath := outputPath(cfg, "", "report.txt")
		if err := report.WriteText(r, textPath); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}

		fmt.Print(report.FormatText(r))
		fmt.Printf("\nArtifacts written to %s\n", cfg.Output.Directory)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeSchema, "schema", "", "relational schema path (default: <output>/source-schema.yaml)")
	analyzeCmd.Flags().StringVar(&analyzeAdvisory, "advisory", "", "advisory recommendations YAML file")
	analyzeCmd.Flags().BoolVar(&analyzeReview, "review", false, "review recommendations interactively before merging")
	rootCmd.AddCommand(analyzeCmd)
}
