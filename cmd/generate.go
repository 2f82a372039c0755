package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hurou927/ora-schema-gen/internal/engine"
	"github.com/hurou927/ora-schema-gen/internal/output"
)

var (
	outputDir string
	dryRun    bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate DDL scripts from the schema CSV",
	Long: `Reads the schema and grants files, clears the output directory and writes one
SQL file per object grouped by phase, plus build.sql and clean.sql.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		if outputDir != "" {
			cfg.Files.OutputDirectory = outputDir
		}

		gen := engine.New(cfg, logger, dryRun)
		plan, err := gen.Run(ctx)
		if err != nil {
			return err
		}

		if dryRun {
			return output.WriteListing(os.Stdout, plan)
		}

		fmt.Fprintln(os.Stderr, "Generation complete:")
		for _, line := range gen.Summary() {
			fmt.Fprintln(os.Stderr, line)
		}
		fmt.Fprintf(os.Stderr, "Output written to: %s\n", cfg.Files.OutputDirectory)
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&outputDir, "output", "", "output directory (overrides config)")
	generateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the files that would be written without touching the output directory")
	rootCmd.AddCommand(generateCmd)
}
