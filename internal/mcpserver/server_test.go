package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/nestmaid/internal/docservice"
	"github.com/starford/nestmaid/internal/nested"
	"github.com/starford/nestmaid/internal/storage"
	"github.com/starford/nestmaid/internal/testutil"
)

const loginDoc = "flowchart TD\n  A --> {{embed:login}}\n" +
	"---definition:login---\nsequenceDiagram\n  U->>S: hi\n---end---\n"

func testServer(t *testing.T) (*Server, storage.Provider) {
	t.Helper()

	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	svc := docservice.NewService(store, testutil.TestIndexer(t))
	return New(svc, "test"), store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" helper, so the handlers are invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "resolve_diagram":
		result, err = srv.resolveDiagram(ctx, req)
	case "search_documents":
		result, err = srv.searchDocuments(ctx, req)
	case "read_document":
		result, err = srv.readDocument(ctx, req)
	case "create_document":
		result, err = srv.createDocument(ctx, req)
	case "list_documents":
		result, err = srv.listDocuments(ctx, req)
	case "get_dependents":
		result, err = srv.getDependents(ctx, req)
	case "get_syntax_contract":
		result, err = srv.getSyntaxContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadDocument(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_document", map[string]any{
		"path":    "flows/login.mmd",
		"content": loginDoc,
	})
	if text := resultText(r); text != "created: flows/login.mmd" {
		t.Errorf("create result = %q", text)
	}

	r = callTool(t, srv, "read_document", map[string]any{"path": "flows/login.mmd"})
	if text := resultText(r); text != loginDoc {
		t.Errorf("read result = %q", text)
	}

	r = callTool(t, srv, "create_document", map[string]any{"path": "flows/login.mmd", "content": "pie"})
	if !r.IsError || !strings.Contains(resultText(r), "already exists") {
		t.Errorf("duplicate create = %q", resultText(r))
	}
}

func TestCreateDocument_Unresolved(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "create_document", map[string]any{
		"path":    "broken.mmd",
		"content": "flowchart TD\n  {{embed:ghost}}",
	})
	if r.IsError {
		t.Fatalf("create failed: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "referenced diagram not found: ghost") {
		t.Errorf("create result = %q", resultText(r))
	}
}

func TestCreateDocument_BadExtension(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "create_document", map[string]any{"path": "x.txt", "content": "pie"})
	if !r.IsError {
		t.Error("expected error for non-diagram extension")
	}
}

func TestResolveDiagram_Source(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "resolve_diagram", map[string]any{"source": loginDoc})
	if r.IsError {
		t.Fatalf("resolve error: %s", resultText(r))
	}

	var res nested.Result
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.Tree.Nested["login"] == nil {
		t.Errorf("result = %+v", res)
	}
	if !strings.Contains(res.Tree.Content, `A --> "login"`) {
		t.Errorf("root content = %q", res.Tree.Content)
	}
}

func TestResolveDiagram_PathAndNode(t *testing.T) {
	srv, store := testServer(t)
	_ = callTool(t, srv, "create_document", map[string]any{"path": "a.mmd", "content": loginDoc})

	r := callTool(t, srv, "resolve_diagram", map[string]any{"path": "a.mmd", "node": "login"})
	var n nested.Node
	if err := json.Unmarshal([]byte(resultText(r)), &n); err != nil {
		t.Fatalf("node json: %v (%s)", err, resultText(r))
	}
	if n.Type != "sequence" {
		t.Errorf("node type = %q", n.Type)
	}

	// A file written behind the index is still resolvable from disk.
	_ = store.Write("raw.mmd", []byte("pie\n  \"a\" : 1"))
	r = callTool(t, srv, "resolve_diagram", map[string]any{"path": "raw.mmd"})
	if r.IsError {
		t.Errorf("resolve raw: %s", resultText(r))
	}
}

func TestResolveDiagram_ArgumentErrors(t *testing.T) {
	srv, _ := testServer(t)
	cases := []map[string]any{
		{},
		{"source": "pie", "path": "a.mmd"},
		{"source": "pie", "node": "x"},
		{"path": "missing.mmd"},
	}
	for _, args := range cases {
		if r := callTool(t, srv, "resolve_diagram", args); !r.IsError {
			t.Errorf("args %v: expected error", args)
		}
	}
}

func TestListDocuments(t *testing.T) {
	srv, _ := testServer(t)
	_ = callTool(t, srv, "create_document", map[string]any{"path": "a.mmd", "content": loginDoc})
	_ = callTool(t, srv, "create_document", map[string]any{"path": "b.mmd", "content": "pie"})

	text := resultText(callTool(t, srv, "list_documents", map[string]any{}))
	if !strings.Contains(text, "a.mmd\tflowchart\tresolved") || !strings.Contains(text, "b.mmd\tpie") {
		t.Errorf("list = %q", text)
	}

	text = resultText(callTool(t, srv, "list_documents", map[string]any{"type": "pie"}))
	if text != "b.mmd\tpie\tresolved" {
		t.Errorf("filtered list = %q", text)
	}
}

func TestReadDocumentMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_document", map[string]any{"path": "nope.mmd"})
	if !r.IsError {
		t.Error("expected error for missing document")
	}
}

func TestGetDependents(t *testing.T) {
	srv, _ := testServer(t)
	_ = callTool(t, srv, "create_document", map[string]any{"path": "a.mmd", "content": loginDoc})

	if text := resultText(callTool(t, srv, "get_dependents", map[string]any{"id": "login"})); text != "a.mmd" {
		t.Errorf("dependents = %q, want a.mmd", text)
	}
	if text := resultText(callTool(t, srv, "get_dependents", map[string]any{"id": "other"})); text != "no dependents found" {
		t.Errorf("dependents = %q", text)
	}
}

func TestSearchDocuments(t *testing.T) {
	srv, _ := testServer(t)
	_ = callTool(t, srv, "create_document", map[string]any{"path": "a.mmd", "content": loginDoc})

	text := resultText(callTool(t, srv, "search_documents", map[string]any{"query": "sequenceDiagram"}))
	if !strings.Contains(text, "a.mmd") {
		t.Errorf("search = %q", text)
	}
}

func TestSyntaxContract(t *testing.T) {
	srv, _ := testServer(t)
	text := resultText(callTool(t, srv, "get_syntax_contract", nil))
	if !strings.Contains(text, "---definition:id---") || !strings.Contains(text, "{{embed:id}}") {
		t.Error("contract does not describe the block syntax")
	}

	contents, err := srv.readSyntaxResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
}
