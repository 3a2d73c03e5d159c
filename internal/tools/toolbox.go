package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ziadkadry99/shopagent/internal/logger"
	"github.com/ziadkadry99/shopagent/internal/vectordb"
	"github.com/ziadkadry99/shopagent/internal/websearch"
)

// DefaultMaxResults is used when a call does not set MaxResults.
const DefaultMaxResults = 5

// SourceVectorDB tags product hits that came from the vector index.
const SourceVectorDB = "vector_database"

// ErrUnknownTool is returned for a Kind outside the closed set.
var ErrUnknownTool = errors.New("tools: unknown tool")

// Product is a rag_search hit shaped for the model.
type Product struct {
	Content        string  `json:"content"`
	Title          string  `json:"title"`
	Price          string  `json:"price"`
	Specs          string  `json:"specs"`
	Promotion      string  `json:"promotion"`
	Colors         string  `json:"colors"`
	RelevanceScore float64 `json:"relevance_score"`
	Source         string  `json:"source"`
}

// Toolbox executes tool calls. A nil Index yields no products; a nil Web
// yields the unavailable placeholder.
type Toolbox struct {
	Index  vectordb.Searcher
	Web    websearch.Searcher
	Shops  []Shop
	Logger logger.Logger
}

// NewToolbox returns a Toolbox over the given collaborators with the
// default shop directory.
func NewToolbox(index vectordb.Searcher, web websearch.Searcher, log logger.Logger) *Toolbox {
	if log == nil {
		log = logger.Default()
	}
	return &Toolbox{Index: index, Web: web, Shops: DefaultShops(), Logger: log}
}

// Run executes call and returns its JSON-encoded output for the model.
func (t *Toolbox) Run(ctx context.Context, call Call) (string, error) {
	var out any
	switch call.Kind {
	case RagSearch:
		out = t.SearchProducts(ctx, call.Query, call.MaxResults)
	case ShopInfo:
		out = t.ShopInformation()
	case WebSearch:
		results, err := t.SearchWeb(ctx, call.Query, call.MaxResults)
		if err != nil {
			return "", err
		}
		out = results
	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownTool, int(call.Kind))
	}

	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encoding %s output: %w", call.Kind.Name(), err)
	}
	return string(data), nil
}

// SearchProducts runs a similarity search and projects each hit onto the
// product fields the model reads.
func (t *Toolbox) SearchProducts(ctx context.Context, query string, max int) []Product {
	if max <= 0 {
		max = DefaultMaxResults
	}
	products := []Product{}
	if t.Index == nil {
		return products
	}
	for _, r := range t.Index.Search(ctx, query, max) {
		md := r.Metadata
		products = append(products, Product{
			Content:        r.Content,
			Title:          md["title"],
			Price:          md["current_price"],
			Specs:          md["product_specs"],
			Promotion:      md["product_promotion"],
			Colors:         md["color_options"],
			RelevanceScore: r.RelevanceScore,
			Source:         SourceVectorDB,
		})
	}
	t.log().Debug("rag search", "query", query, "results", len(products))
	return products
}

// ShopInformation returns a copy of the shop directory.
func (t *Toolbox) ShopInformation() []Shop {
	out := make([]Shop, len(t.Shops))
	for i, s := range t.Shops {
		s.Services = append([]string(nil), s.Services...)
		out[i] = s
	}
	return out
}

// SearchWeb queries the web searcher.
func (t *Toolbox) SearchWeb(ctx context.Context, query string, max int) ([]websearch.Result, error) {
	if max <= 0 {
		max = DefaultMaxResults
	}
	if t.Web == nil {
		return []websearch.Result{websearch.Placeholder("Web Search Unavailable", "Web search is currently disabled or API key not configured.")}, nil
	}
	results, err := t.Web.Search(ctx, query, max)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	return results, nil
}

func (t *Toolbox) log() logger.Logger {
	if t.Logger == nil {
		return logger.Default()
	}
	return t.Logger
}
