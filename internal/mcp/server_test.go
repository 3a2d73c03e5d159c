package mcp

import (
	"context"
	"iter"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/shopagent/internal/agent"
	"github.com/ziadkadry99/shopagent/internal/llm"
	"github.com/ziadkadry99/shopagent/internal/logger"
	"github.com/ziadkadry99/shopagent/internal/oracle"
	"github.com/ziadkadry99/shopagent/internal/task"
	"github.com/ziadkadry99/shopagent/internal/tools"
	"github.com/ziadkadry99/shopagent/internal/vectordb"
	"github.com/ziadkadry99/shopagent/internal/websearch"
)

// mockIndex implements vectordb.Searcher for testing.
type mockIndex struct {
	results []vectordb.Result
}

func (m *mockIndex) Search(_ context.Context, _ string, k int) []vectordb.Result {
	if k < len(m.results) {
		return m.results[:k]
	}
	return m.results
}

// mockWeb implements websearch.Searcher for testing.
type mockWeb struct{}

func (mockWeb) Search(_ context.Context, query string, _ int) ([]websearch.Result, error) {
	return []websearch.Result{{Title: "Result for " + query, Snippet: "snippet", Link: "http://example.com", Source: websearch.SourceWeb}}, nil
}

// mockOracle answers every thread with one rag_search call and a fixed verdict.
type mockOracle struct{}

func (mockOracle) Resolve(context.Context, string, []llm.Message) iter.Seq2[oracle.Step, error] {
	return func(yield func(oracle.Step, error) bool) {
		if !yield(oracle.Step{Call: tools.Call{Kind: tools.RagSearch}}, nil) {
			return
		}
		yield(oracle.Step{Final: &oracle.Verdict{Status: agent.StatusCompleted, Message: "Galaxy S24 giá 18.990.000"}}, nil)
	}
}

func (mockOracle) State(context.Context, string) (*oracle.Verdict, error) {
	return &oracle.Verdict{Status: agent.StatusCompleted, Message: "Galaxy S24 giá 18.990.000", Confidence: 0.8, Sources: []string{"vector DB"}}, nil
}

func newTestServer(t *testing.T, withExecutor bool) *Server {
	t.Helper()
	idx := &mockIndex{results: []vectordb.Result{
		{Content: "Samsung Galaxy S24", Metadata: map[string]string{"title": "Galaxy S24", "current_price": "18.990.000 ₫"}, RelevanceScore: 0.87},
		{Content: "Samsung Galaxy A55", Metadata: map[string]string{"title": "Galaxy A55"}, RelevanceScore: 0.61},
	}}
	tb := tools.NewToolbox(idx, mockWeb{}, logger.Discard())

	var exec *task.Executor
	if withExecutor {
		var err error
		exec, err = task.NewExecutor(task.Options{Oracle: mockOracle{}, Logger: logger.Discard()})
		if err != nil {
			t.Fatalf("NewExecutor: %v", err)
		}
	}
	return NewServer(tb, exec)
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", result.Content[0])
	}
	return text.Text
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"rag_search", ragSearchTool, "rag_search"},
		{"shop_information_rag", shopInfoTool, "shop_information_rag"},
		{"web_search", webSearchTool, "web_search"},
		{"ask", askTool, "ask"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	srv := newTestServer(t, false)
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
	if srv.executor != nil {
		t.Error("executor should be nil")
	}
}

func TestHandleRagSearch(t *testing.T) {
	srv := newTestServer(t, false)
	ctx := context.Background()

	t.Run("basic search", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"query": "samsung", "max_results": float64(1)}

		result, err := srv.handleRagSearch(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		text := resultText(t, result)
		if !strings.Contains(text, "Galaxy S24") || !strings.Contains(text, "18.990.000") {
			t.Errorf("expected product in result, got %s", text)
		}
		if strings.Contains(text, "Galaxy A55") {
			t.Error("max_results should limit the result count")
		}
	})

	t.Run("missing query", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		result, err := srv.handleRagSearch(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for missing query")
		}
	})

	t.Run("empty index", func(t *testing.T) {
		empty := NewServer(tools.NewToolbox(&mockIndex{}, nil, logger.Discard()), nil)
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"query": "anything"}

		result, err := empty.handleRagSearch(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Error("empty results should not be an error")
		}
		if !strings.Contains(resultText(t, result), "shopagent index") {
			t.Error("expected indexing hint")
		}
	})
}

func TestHandleShopInfo(t *testing.T) {
	srv := newTestServer(t, false)
	result, err := srv.handleShopInfo(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := resultText(t, result)
	for _, want := range []string{"Tam Trinh", "Nguyễn Công Trứ", "Trương Định"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in shop info", want)
		}
	}
}

func TestHandleWebSearch(t *testing.T) {
	srv := newTestServer(t, false)
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"query": "tin công nghệ"}

	result, err := srv.handleWebSearch(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(resultText(t, result), "Result for tin công nghệ") {
		t.Errorf("unexpected result: %s", resultText(t, result))
	}
}

func TestHandleAsk(t *testing.T) {
	srv := newTestServer(t, true)
	ctx := context.Background()

	t.Run("answer with progress and footer", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"query": "giá galaxy s24", "session_id": "s"}

		result, err := srv.handleAsk(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %s", resultText(t, result))
		}
		text := resultText(t, result)
		if !strings.Contains(text, tools.RagSearch.Phrase()) {
			t.Error("expected rag_search progress line")
		}
		if !strings.Contains(text, "Galaxy S24 giá 18.990.000") {
			t.Error("expected answer message")
		}
		if !strings.Contains(text, "Confidence: 0.80") {
			t.Error("expected confidence footer")
		}
	})

	t.Run("invalid query", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"query": "?"}

		result, err := srv.handleAsk(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected tool error for a one character query")
		}
	})
}
