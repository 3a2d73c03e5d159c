package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/shopagent/internal/agent"
	"github.com/ziadkadry99/shopagent/internal/task"
	"github.com/ziadkadry99/shopagent/internal/tools"
)

// handleRagSearch performs a similarity search over the product catalog.
func (s *Server) handleRagSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	products := s.toolbox.SearchProducts(ctx, query, request.GetInt("max_results", tools.DefaultMaxResults))
	if len(products) == 0 {
		return mcp.NewToolResultText("No products found. The catalog may not be indexed yet. Run `shopagent index` to build it."), nil
	}
	return jsonResult(products)
}

// handleShopInfo returns the store directory.
func (s *Server) handleShopInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.toolbox.ShopInformation())
}

// handleWebSearch runs a live web search.
func (s *Server) handleWebSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	results, err := s.toolbox.SearchWeb(ctx, query, request.GetInt("max_results", tools.DefaultMaxResults))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("web search failed: %v", err)), nil
	}
	return jsonResult(results)
}

// handleAsk runs a full task and returns the rendered answer with the
// progress it went through.
func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	req := agent.QueryRequest{
		Text:      query,
		SessionID: request.GetString("session_id", ""),
		ContextID: request.GetString("context_id", ""),
	}
	t, err := s.executor.Submit(ctx, req)
	if err != nil {
		if errors.Is(err, task.ErrInvalidRequest) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return nil, err
	}

	var progress []string
	var answer *agent.Answer
	var taskErr error
	for e := range t.Events() {
		if e.Terminal() {
			answer = e.Answer
			taskErr = e.Err
			continue
		}
		progress = append(progress, e.Content)
	}
	if answer == nil {
		return mcp.NewToolResultError("task ended without an answer"), nil
	}

	var b strings.Builder
	for _, p := range progress {
		fmt.Fprintf(&b, "> %s\n", p)
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(answer.Render())

	if taskErr != nil {
		return mcp.NewToolResultError(b.String()), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
