package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/raido/internal/resource"
	"github.com/starford/raido/internal/schema"
	"github.com/starford/raido/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	engine := resource.New(testutil.TestStore(t), schema.Default())
	return New(engine, "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"describe_kinds":   srv.describeKinds,
		"list_resources":   srv.listResources,
		"get_resource":     srv.getResource,
		"search_resources": srv.searchResources,
		"create_resource":  srv.createResource,
		"update_resource":  srv.updateResource,
		"delete_resource":  srv.deleteResource,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
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

func decode(t *testing.T, r *mcp.CallToolResult) map[string]any {
	t.Helper()
	if r.IsError {
		t.Fatalf("tool error: %s", resultText(r))
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(resultText(r)), &out); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	return out
}

func TestCreateGetUpdateDelete(t *testing.T) {
	srv := testServer(t)

	created := decode(t, callTool(t, srv, "create_resource", map[string]any{
		"kind":   "categories",
		"fields": map[string]any{"name": "Lighting"},
	}))
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatalf("missing id in %v", created)
	}

	got := decode(t, callTool(t, srv, "get_resource", map[string]any{"kind": "category", "id": id}))
	if got["name"] != "Lighting" {
		t.Errorf("name = %v", got["name"])
	}

	upd := decode(t, callTool(t, srv, "update_resource", map[string]any{
		"kind": "category", "id": id, "fields": map[string]any{"description": "lamps"},
	}))
	if upd["description"] != "lamps" || upd["name"] != "Lighting" {
		t.Errorf("update = %v", upd)
	}

	del := decode(t, callTool(t, srv, "delete_resource", map[string]any{"kind": "category", "id": id}))
	if del["state"] != "removed" {
		t.Errorf("delete state = %v", del["state"])
	}

	r := callTool(t, srv, "get_resource", map[string]any{"kind": "category", "id": id})
	if !r.IsError {
		t.Error("expected error for deleted category")
	}
}

func TestListAndSearch(t *testing.T) {
	srv := testServer(t)
	user := decode(t, callTool(t, srv, "create_resource", map[string]any{
		"kind": "user", "fields": map[string]any{"username": "ada", "email": "ada@example.com"},
	}))
	project := decode(t, callTool(t, srv, "create_resource", map[string]any{
		"kind": "project", "fields": map[string]any{"name": "Apollo", "owner": user["id"]},
	}))
	for _, title := range []string{"write release notes", "fix login", "plan release"} {
		decode(t, callTool(t, srv, "create_resource", map[string]any{
			"kind": "task", "fields": map[string]any{"title": title, "project": project["id"]},
		}))
	}

	page := decode(t, callTool(t, srv, "list_resources", map[string]any{
		"kind": "tasks", "params": map[string]any{"limit": 2},
	}))
	if page["totalItems"] != 3.0 || page["totalPages"] != 2.0 {
		t.Errorf("page = %v", page)
	}

	found := decode(t, callTool(t, srv, "search_resources", map[string]any{"kind": "task", "query": "release"}))
	if found["totalItems"] != 2.0 {
		t.Errorf("search totalItems = %v", found["totalItems"])
	}
}

func TestErrorsAreToolResults(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "get_resource", map[string]any{"kind": "widget", "id": "x"})
	if !r.IsError || !strings.Contains(resultText(r), "unknown kind") {
		t.Errorf("unknown kind result = %q", resultText(r))
	}

	r = callTool(t, srv, "create_resource", map[string]any{
		"kind": "task", "fields": map[string]any{"title": "orphan", "project": "0190b0e4-0000-7000-8000-000000000000"},
	})
	if !r.IsError || !strings.Contains(resultText(r), "referenced project does not exist") {
		t.Errorf("missing reference result = %q", resultText(r))
	}

	r = callTool(t, srv, "search_resources", map[string]any{"kind": "user", "query": "ada"})
	if !r.IsError {
		t.Error("expected error searching a non-searchable kind")
	}
}

func TestDescribeKinds(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "describe_kinds", nil)
	var infos []schema.KindInfo
	if err := json.Unmarshal([]byte(resultText(r)), &infos); err != nil {
		t.Fatal(err)
	}
	if len(infos) != 5 {
		t.Errorf("kinds = %d, want 5", len(infos))
	}
}

func TestSchemaResource(t *testing.T) {
	srv := testServer(t)
	contents, err := srv.readSchemaResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != SchemaURI || !strings.Contains(tc.Text, `"plural": "categories"`) {
		t.Errorf("schema resource = %+v", contents[0])
	}
}
