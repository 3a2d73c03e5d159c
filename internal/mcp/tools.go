package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/shopagent/internal/tools"
)

// ragSearchTool defines the rag_search MCP tool.
var ragSearchTool = mcp.NewTool(tools.RagSearch.Name(),
	mcp.WithDescription("Search the product catalog by vector similarity. Returns titles, prices, specs, promotions and colors."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language product query"),
	),
	mcp.WithNumber("max_results",
		mcp.Description("Maximum number of results to return (default 5)"),
	),
)

// shopInfoTool defines the shop_information_rag MCP tool.
var shopInfoTool = mcp.NewTool(tools.ShopInfo.Name(),
	mcp.WithDescription("List store locations with addresses, opening hours, phone numbers and services."),
)

// webSearchTool defines the web_search MCP tool.
var webSearchTool = mcp.NewTool(tools.WebSearch.Name(),
	mcp.WithDescription("Search the web for current information."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Search query"),
	),
	mcp.WithNumber("max_results",
		mcp.Description("Maximum number of results to return (default 5)"),
	),
)

// askTool defines the ask MCP tool.
var askTool = mcp.NewTool("ask",
	mcp.WithDescription("Ask the shop assistant a question. Uses cached answers, product search, shop data and web search as needed."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("The question"),
	),
	mcp.WithString("session_id",
		mcp.Description("Conversation identifier used to scope cached answers"),
	),
	mcp.WithString("context_id",
		mcp.Description("Thread identifier; reuse it to continue a conversation"),
	),
)
