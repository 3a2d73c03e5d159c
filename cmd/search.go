package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/shopagent/internal/tools"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Semantically search the product catalog",
	Long:  `Searches the product vector index with a natural language query and prints titles, prices and relevance scores.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().Int("limit", tools.DefaultMaxResults, "maximum number of results")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ix, err := openIndex(cfg, log)
	if err != nil {
		return err
	}
	if ix.Count() == 0 {
		fmt.Println("Product index is empty. Run `shopagent index` first.")
		return nil
	}

	products := tools.NewToolbox(ix, nil, log).SearchProducts(ctx, args[0], limit)
	if len(products) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(products)
	}

	fmt.Printf("Found %d results:\n\n", len(products))
	for i, p := range products {
		fmt.Printf("  %d. [%.1f%%] %s\n", i+1, p.RelevanceScore*100, orNA(p.Title))
		if p.Price != "" {
			fmt.Printf("     Price: %s\n", p.Price)
		}
		if p.Promotion != "" {
			fmt.Printf("     Promotion: %s\n", truncate(p.Promotion, 120))
		}
		fmt.Printf("     %s\n\n", truncate(p.Content, 160))
	}
	return nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
