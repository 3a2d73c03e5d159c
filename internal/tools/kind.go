// Package tools defines the closed set of tools the reasoning loop may call
// and runs them against the vector index, the shop directory and web search.
package tools

import "fmt"

// Kind identifies one tool. The set is closed; every switch over Kind must
// handle all three values.
type Kind int

const (
	RagSearch Kind = iota + 1
	ShopInfo
	WebSearch
)

// All returns every tool kind in presentation order.
func All() []Kind {
	return []Kind{RagSearch, ShopInfo, WebSearch}
}

// Name returns the wire name used by the model and in ToolsUsed.
func (k Kind) Name() string {
	switch k {
	case RagSearch:
		return "rag_search"
	case ShopInfo:
		return "shop_information_rag"
	case WebSearch:
		return "web_search"
	}
	return fmt.Sprintf("tool(%d)", int(k))
}

// Phrase is the fixed progress text shown when the tool is invoked.
func (k Kind) Phrase() string {
	switch k {
	case RagSearch:
		return "Searching product database with vector similarity..."
	case ShopInfo:
		return "Retrieving shop information..."
	case WebSearch:
		return "Searching web for current information..."
	}
	return ""
}

// Description is the one-line tool summary given to the model.
func (k Kind) Description() string {
	switch k {
	case RagSearch:
		return "Search product information (prices, specs, promotions, colors) using vector similarity. Args: query (string), max_results (int, default 5)."
	case ShopInfo:
		return "Get shop locations, opening hours, phone numbers and services. No args."
	case WebSearch:
		return "Search current information from the internet. Args: query (string), max_results (int, default 5)."
	}
	return ""
}

func (k Kind) String() string { return k.Name() }

// ParseKind resolves a wire name to its Kind.
func ParseKind(name string) (Kind, bool) {
	for _, k := range All() {
		if k.Name() == name {
			return k, true
		}
	}
	return 0, false
}

// Call is a single tool invocation requested by the reasoning loop.
type Call struct {
	Kind       Kind
	Query      string
	MaxResults int
}
