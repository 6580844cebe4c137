package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/sage/internal/corpus"
)

// NewMCPServer creates an MCP server exposing the engine as tools, plus the
// conversation log as a resource.
func NewMCPServer(e Engine, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"sage",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("sage: decides whether an utterance is a command or chat and grows its vocabulary on request."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("understand",
			mcp.WithDescription("Classify an utterance as a command type or match it to a chat intent and pick a response."),
			mcp.WithString("text", mcp.Description("The utterance"), mcp.Required()),
			mcp.WithBoolean("remember", mcp.Description("Append the exchange to the conversation log")),
		),
		mcpUnderstand(e),
	)

	s.AddTool(
		mcp.NewTool("analyze",
			mcp.WithDescription("Run command analysis: command type, confidence, entities, context and tokens."),
			mcp.WithString("text", mcp.Description("The utterance"), mcp.Required()),
		),
		mcpAnalyze(e),
	)

	s.AddTool(
		mcp.NewTool("respond",
			mcp.WithDescription("Return a random response of the intent with the given tag."),
			mcp.WithString("tag", mcp.Description("Intent tag, e.g. greeting"), mcp.Required()),
		),
		mcpRespond(e),
	)

	s.AddTool(
		mcp.NewTool("add_intent",
			mcp.WithDescription("Add an intent, or extend an existing one, with example patterns and responses."),
			mcp.WithString("tag", mcp.Description("Intent tag"), mcp.Required()),
			mcp.WithArray("patterns", mcp.Description("Example phrasings")),
			mcp.WithArray("responses", mcp.Description("Candidate responses"), mcp.Required()),
		),
		mcpAddIntent(e),
	)

	s.AddTool(
		mcp.NewTool("add_command_synonym",
			mcp.WithDescription("Add surface variants for a canonical command keyword."),
			mcp.WithString("canonical", mcp.Description("Canonical keyword, e.g. open"), mcp.Required()),
			mcp.WithArray("variants", mcp.Description("Variants, e.g. launch"), mcp.Required()),
		),
		mcpAddCommandSynonym(e),
	)

	s.AddTool(
		mcp.NewTool("add_command_pattern",
			mcp.WithDescription("Add verbs, nouns or phrases that identify a command type."),
			mcp.WithString("type", mcp.Description("Command type, e.g. music"), mcp.Required()),
			mcp.WithArray("verbs", mcp.Description("Verbs")),
			mcp.WithArray("nouns", mcp.Description("Nouns")),
			mcp.WithArray("phrases", mcp.Description("Phrases")),
		),
		mcpAddCommandPattern(e),
	)

	s.AddTool(
		mcp.NewTool("add_context_pattern",
			mcp.WithDescription("Add keywords for a context type such as time or location."),
			mcp.WithString("type", mcp.Description("Context type"), mcp.Required()),
			mcp.WithArray("keywords", mcp.Description("Keywords, first listed wins"), mcp.Required()),
		),
		mcpAddContextPattern(e),
	)

	s.AddResource(
		mcp.NewResource(
			"sage://history",
			"Conversation History",
			mcp.WithResourceDescription("Remembered turns of this session as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceHistory(e),
	)

	return s
}

func mcpUnderstand(e Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}

		res := UnderstandResponse{Result: e.Understand(text)}
		if req.GetBool("remember", false) {
			turn := e.RememberWith(text, res.Response, res.Result)
			res.Turn = &turn
		}
		return mcpJSON(res), nil
	}
}

func mcpAnalyze(e Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}
		return mcpJSON(e.Analyze(text)), nil
	}
}

func mcpRespond(e Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tag, err := req.RequireString("tag")
		if err != nil {
			return mcpError("tag is required"), nil
		}
		return mcpText(e.Respond(tag)), nil
	}
}

func mcpAddIntent(e Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tag, err := req.RequireString("tag")
		if err != nil {
			return mcpError("tag is required"), nil
		}
		responses := req.GetStringSlice("responses", nil)
		if len(responses) == 0 {
			return mcpError("responses must not be empty"), nil
		}
		patterns := req.GetStringSlice("patterns", nil)

		return mcpMutation(fmt.Sprintf("Intent %s updated", tag), e.AddIntent(tag, patterns, responses)), nil
	}
}

func mcpAddCommandSynonym(e Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		canonical, err := req.RequireString("canonical")
		if err != nil {
			return mcpError("canonical is required"), nil
		}
		variants := req.GetStringSlice("variants", nil)
		if len(variants) == 0 {
			return mcpError("variants must not be empty"), nil
		}

		return mcpMutation(fmt.Sprintf("Synonyms for %s updated", canonical), e.AddCommandSynonym(canonical, variants)), nil
	}
}

func mcpAddCommandPattern(e Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cmdType, err := req.RequireString("type")
		if err != nil {
			return mcpError("type is required"), nil
		}
		verbs := req.GetStringSlice("verbs", nil)
		nouns := req.GetStringSlice("nouns", nil)
		phrases := req.GetStringSlice("phrases", nil)
		if len(verbs)+len(nouns)+len(phrases) == 0 {
			return mcpError("at least one of verbs, nouns or phrases is required"), nil
		}

		return mcpMutation(fmt.Sprintf("Command pattern %s updated", cmdType), e.AddCommandPattern(cmdType, verbs, nouns, phrases)), nil
	}
}

func mcpAddContextPattern(e Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctxType, err := req.RequireString("type")
		if err != nil {
			return mcpError("type is required"), nil
		}
		keywords := req.GetStringSlice("keywords", nil)
		if len(keywords) == 0 {
			return mcpError("keywords must not be empty"), nil
		}

		return mcpMutation(fmt.Sprintf("Context pattern %s updated", ctxType), e.AddContextPattern(ctxType, keywords)), nil
	}
}

func mcpResourceHistory(e Engine) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(e.History())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal history: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

// mcpMutation reports a vocabulary change; storage failures are reported as
// applied but not persisted.
func mcpMutation(done string, err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcpText(done)
	case errors.Is(err, corpus.ErrStorage):
		return mcpText(fmt.Sprintf("%s in memory, but not persisted: %v", done, err))
	default:
		return mcpError(err.Error())
	}
}

func mcpJSON(v any) *mcp.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err))
	}
	return mcpText(string(b))
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
