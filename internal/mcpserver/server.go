// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes nestmaid tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/nestmaid/internal/apperr"
	"github.com/starford/nestmaid/internal/docservice"
)

const syntaxURI = "nestmaid://syntax"

// Server wraps the MCP server with nestmaid tools.
type Server struct {
	mcp *server.MCPServer
	svc *docservice.Service
}

// New creates a new MCP server with all nestmaid tools registered.
func New(svc *docservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Nestmaid",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("resolve_diagram",
		mcp.WithDescription("Resolve a nested Mermaid document into its tree of diagrams. "+
			"Pass either 'source' (document text) or 'path' (a stored document). "+
			"Optionally pass 'node' as a slash-separated chain of definition ids to return one nested diagram."),
		mcp.WithString("source", mcp.Description("Document text to resolve without storing it")),
		mcp.WithString("path", mcp.Description("Relative path of a stored document (e.g. flows/checkout.mmd)")),
		mcp.WithString("node", mcp.Description("Definition id chain below the root, e.g. login/audit")),
	), s.resolveDiagram)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through document titles, diagram text and definition ids."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the raw content of a stored document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Create a new nested Mermaid document at the specified path. "+
			"Content MUST follow the nestmaid syntax contract. Read it first via "+
			"the get_syntax_contract tool or the "+syntaxURI+" resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new document (.mmd, .mermaid or .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Document text following the nestmaid syntax contract")),
	), s.createDocument)

	s.mcp.AddTool(mcp.NewTool("get_syntax_contract",
		mcp.WithDescription("Returns the nestmaid definition and embed syntax. "+
			"Call this before creating documents."),
	), s.getSyntaxContract)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List stored documents with their root type and resolution status."),
		mcp.WithString("type", mcp.Description("Optional root diagram type filter (e.g. flowchart)")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("get_dependents",
		mcp.WithDescription("Find every diagram across the vault that embeds the given definition id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Definition id")),
	), s.getDependents)

	s.mcp.AddResource(
		mcp.NewResource(syntaxURI, "Syntax Contract",
			mcp.WithResourceDescription("Definition block and embed syntax of nested Mermaid documents."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSyntaxResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) resolveDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source := req.GetString("source", "")
	path := req.GetString("path", "")
	node := req.GetString("node", "")

	switch {
	case source != "" && path != "":
		return mcp.NewToolResultError("pass either source or path, not both"), nil
	case source != "":
		if node != "" {
			return mcp.NewToolResultError("node requires path"), nil
		}
		return jsonResult(s.svc.Resolve(ctx, source)), nil
	case path == "":
		return mcp.NewToolResultError("source or path is required"), nil
	}

	if node != "" {
		n, err := s.svc.ResolvedNode(ctx, path, docservice.SplitNodePath(node))
		if err != nil {
			return mcp.NewToolResultError(toolError(path, err)), nil
		}
		return jsonResult(n), nil
	}
	res, err := s.svc.ResolveDocument(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(toolError(path, err)), nil
	}
	return jsonResult(res), nil
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.GetDocument(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(toolError(path, err)), nil
	}
	return mcp.NewToolResultText(doc.Content), nil
}

func (s *Server) createDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	doc, err := s.svc.CreateDocument(ctx, path, []byte(content))
	if err != nil {
		return mcp.NewToolResultError(toolError(path, err)), nil
	}
	if doc.Error != nil {
		return mcp.NewToolResultText(fmt.Sprintf("created: %s (unresolved: %s)", path, doc.Error.Message)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", path)), nil
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, _, err := s.svc.ListDocuments(ctx, 500, 0, req.GetString("type", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("%s\t%s\t%s", it.Path, it.RootType, it.Status))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getSyntaxContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SyntaxContract), nil
}

func (s *Server) readSyntaxResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      syntaxURI,
			MIMEType: "text/markdown",
			Text:     SyntaxContract,
		},
	}, nil
}

func (s *Server) getDependents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	deps, err := s.svc.Dependents(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(deps) == 0 {
		return mcp.NewToolResultText("no dependents found"), nil
	}
	lines := make([]string, 0, len(deps))
	for _, d := range deps {
		if d.Source == "" {
			lines = append(lines, d.Path)
			continue
		}
		lines = append(lines, d.Path+"#"+d.Source)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func toolError(path string, err error) string {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return fmt.Sprintf("not found: %s", path)
	case errors.Is(err, apperr.ErrAlreadyExists):
		return fmt.Sprintf("document already exists: %s", path)
	case errors.Is(err, apperr.ErrInvalidPath):
		return fmt.Sprintf("invalid document path: %s", path)
	}
	return err.Error()
}
