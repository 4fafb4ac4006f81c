// Package mcpserver exposes the adapter as an MCP tool.
package mcpserver

import (
	"context"
	"encoding/json"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/comigor/wrestlingai/internal/aiclient"
	"github.com/comigor/wrestlingai/internal/logger"
)

// ToolName is the name under which the adapter is published.
const ToolName = "generate_response"

// Generator is the part of *aiclient.Client the tool needs.
type Generator interface {
	GenerateResponse(ctx context.Context, prompt string, opts aiclient.Options) (*aiclient.Response, error)
}

// New builds an MCP server with the generate_response tool registered.
func New(gen Generator, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"wrestlingai",
		version,
		server.WithToolCapabilities(false),
	)
	s.AddTool(Tool(), Handler(gen))
	return s
}

// Serve runs s over stdio until stdin closes.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

// Tool describes generate_response and its arguments.
func Tool() mcp.Tool {
	return mcp.NewTool(ToolName,
		mcp.WithDescription("Send a single prompt to the configured OpenRouter model and return the generated text."),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("User prompt sent as the only message.")),
		mcp.WithString("model", mcp.Description("Model identifier; defaults to the configured model.")),
		mcp.WithNumber("max_tokens", mcp.Description("Maximum tokens to generate; defaults to 1000.")),
		mcp.WithNumber("temperature", mcp.Description("Sampling temperature, conventionally 0 to 2; defaults to 0.7.")),
	)
}

// Handler adapts gen to an MCP tool handler. Adapter failures are reported as tool
// errors so the calling model can see them.
func Handler(gen Generator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		prompt, _ := args["prompt"].(string)
		if prompt == "" {
			return mcp.NewToolResultError("prompt is required"), nil
		}

		var opts aiclient.Options
		opts.Model, _ = args["model"].(string)
		if v, ok := number(args["max_tokens"]); ok {
			if v != math.Trunc(v) || v < math.MinInt32 || v > math.MaxInt32 {
				return mcp.NewToolResultError("max_tokens must be an integer"), nil
			}
			opts.MaxTokens = int(v)
		}
		if v, ok := number(args["temperature"]); ok {
			opts.Temperature = aiclient.Float32(float32(v))
		}

		logger.L.Debug("mcp tool invoked", "tool", req.Params.Name, "model", opts.Model)
		resp, err := gen.GenerateResponse(ctx, prompt, opts)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(resp.Content), nil
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
