package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hurou927/ora-schema-gen/internal/engine"
	"github.com/hurou927/ora-schema-gen/internal/graph"
)

var analyzeFormat string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze the foreign key graph of the schema CSV",
	Long:  `Reads the schema file, resolves the model, builds the foreign key dependency graph and outputs it in the specified format.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		gen := engine.New(cfg, logger, true)
		in, err := gen.Load(ctx)
		if err != nil {
			return err
		}
		m, err := gen.BuildModel(in)
		if err != nil {
			return err
		}

		g := graph.Build(m)

		switch analyzeFormat {
		case "mermaid":
			return graph.WriteMermaid(os.Stdout, g)
		case "text":
			return graph.WriteText(os.Stdout, g)
		default:
			return fmt.Errorf("unknown format: %s (supported: mermaid, text)", analyzeFormat)
		}
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "mermaid", "output format: mermaid or text")
	rootCmd.AddCommand(analyzeCmd)
}
