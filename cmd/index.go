package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/shopagent/internal/ingest"
	"github.com/ziadkadry99/shopagent/internal/progress"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the product vector index from a catalog CSV",
	Long: `Reads the product catalog CSV, builds one document per product from its
title, promotion, specs, prices, colors, brand and category, and stores the
embedded documents in the vector index. Short titles and near-empty rows are
skipped.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().String("csv", "./data/products.csv", "catalog CSV file path")
	indexCmd.Flags().Int("batch-size", ingest.DefaultBatchSize, "documents stored per batch")
	indexCmd.Flags().Int("max-records", ingest.DefaultMaxRecords, "maximum catalog rows to read (0 reads all)")
	indexCmd.Flags().Bool("rebuild", false, "drop the collection before indexing")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := context.Background()

	csvPath, _ := cmd.Flags().GetString("csv")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	maxRecords, _ := cmd.Flags().GetInt("max-records")
	rebuild, _ := cmd.Flags().GetBool("rebuild")

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	docs, stats, err := ingest.LoadFile(csvPath, maxRecords)
	if err != nil {
		return err
	}
	log.Info("catalog loaded", "file", csvPath, "rows", stats.Loaded, "valid", stats.Valid, "documents", stats.Final)

	ix, err := openIndex(cfg, log)
	if err != nil {
		return err
	}

	builder := &ingest.Builder{
		Store:     ix,
		BatchSize: batchSize,
		Rebuild:   rebuild,
		Progress:  progress.NewReporter("Indexing products"),
		Logger:    log,
	}
	added, err := builder.Build(ctx, docs)
	if err != nil {
		return fmt.Errorf("building index (%d documents stored): %w", added, err)
	}

	elapsed := time.Since(start)
	fmt.Printf("Index built: %d documents in %s (collection %s, %d total)\n",
		added, elapsed.Round(time.Millisecond), ix.Name(), ix.Count())
	if secs := elapsed.Seconds(); secs > 0 {
		fmt.Printf("Speed: %.1f docs/second\n", float64(added)/secs)
	}

	fmt.Println("\nSmoke searches:")
	for _, r := range ingest.Smoke(ctx, ix) {
		fmt.Printf("  %q: %d results, top: %s\n", r.Query, r.Hits, r.TopTitle)
	}
	return nil
}
