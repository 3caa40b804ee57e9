// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the resource engine as tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/resource"
	"github.com/starford/raido/internal/schema"
)

// SchemaURI is the MCP resource describing every kind.
const SchemaURI = "raido://schema"

// Server wraps the MCP server with resource tools.
type Server struct {
	mcp    *server.MCPServer
	engine *resource.Engine
}

// New creates a new MCP server with all resource tools registered.
func New(engine *resource.Engine, version string) *Server {
	s := &Server{engine: engine}

	s.mcp = server.NewMCPServer(
		"Raido",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	kindArg := mcp.WithString("kind", mcp.Required(),
		mcp.Description("Resource kind, singular or plural (user, project, task, product, category)"))

	s.mcp.AddTool(mcp.NewTool("describe_kinds",
		mcp.WithDescription("Describe every resource kind: fields, references, filters, sort fields and delete policy. "+
			"Call this before creating or updating resources."),
	), s.describeKinds)

	s.mcp.AddTool(mcp.NewTool("list_resources",
		mcp.WithDescription("List resources of a kind with optional filters, sort and pagination. "+
			"References are expanded into summaries."),
		kindArg,
		mcp.WithObject("params", mcp.Description(
			"Query parameters as strings, e.g. {\"status\":\"active\",\"page\":\"2\",\"limit\":\"5\",\"sort\":\"-createdAt\"}")),
	), s.listResources)

	s.mcp.AddTool(mcp.NewTool("get_resource",
		mcp.WithDescription("Read one resource by id."),
		kindArg,
		mcp.WithString("id", mcp.Required(), mcp.Description("Resource identifier")),
	), s.getResource)

	s.mcp.AddTool(mcp.NewTool("search_resources",
		mcp.WithDescription("Full-text search over a searchable kind (project, task, product), most relevant first."),
		kindArg,
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithObject("params", mcp.Description("Additional filters and pagination as strings")),
	), s.searchResources)

	s.mcp.AddTool(mcp.NewTool("create_resource",
		mcp.WithDescription("Create a resource. Reference fields take the id of an existing resource."),
		kindArg,
		mcp.WithObject("fields", mcp.Required(), mcp.Description("Field values as described by describe_kinds")),
	), s.createResource)

	s.mcp.AddTool(mcp.NewTool("update_resource",
		mcp.WithDescription("Update some fields of a resource. Omitted fields keep their values."),
		kindArg,
		mcp.WithString("id", mcp.Required(), mcp.Description("Resource identifier")),
		mcp.WithObject("fields", mcp.Required(), mcp.Description("Fields to change")),
	), s.updateResource)

	s.mcp.AddTool(mcp.NewTool("delete_resource",
		mcp.WithDescription("Delete a resource. Users, projects and products become inactive; tasks and categories are removed."),
		kindArg,
		mcp.WithString("id", mcp.Required(), mcp.Description("Resource identifier")),
	), s.deleteResource)

	s.mcp.AddResource(
		mcp.NewResource(SchemaURI, "Resource Kinds",
			mcp.WithResourceDescription("Fields, references and policies of every resource kind."),
			mcp.WithMIMEType("application/json"),
		),
		s.readSchemaResource,
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

func (s *Server) kind(req mcp.CallToolRequest) (*schema.Kind, error) {
	name, err := req.RequireString("kind")
	if err != nil {
		return nil, err
	}
	kinds := s.engine.Kinds()
	if k, ok := kinds.Get(models.Kind(name)); ok {
		return k, nil
	}
	if k, ok := kinds.ByPlural(name); ok {
		return k, nil
	}
	return nil, fmt.Errorf("unknown kind %q", name)
}

func objectArg(req mcp.CallToolRequest, name string) map[string]any {
	m, _ := req.GetArguments()[name].(map[string]any)
	return m
}

// stringParams converts tool params to query parameters; non-string values
// are rendered with fmt so numbers and booleans work as well.
func stringParams(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// errorResult hides internal failures the same way the HTTP API does.
func errorResult(err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, apperr.ErrInvalidInput) || errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrConflict) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultError("internal error"), nil
}

func (s *Server) describeKinds(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.engine.Kinds().Describe())
}

func (s *Server) listResources(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	k, err := s.kind(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := s.engine.List(ctx, k.Name, stringParams(objectArg(req, "params")))
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(page)
}

func (s *Server) getResource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	k, err := s.kind(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.engine.Get(ctx, k.Name, id)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(rec)
}

func (s *Server) searchResources(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	k, err := s.kind(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	q, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := s.engine.Search(ctx, k.Name, q, stringParams(objectArg(req, "params")))
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(page)
}

func (s *Server) createResource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	k, err := s.kind(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fields := objectArg(req, "fields")
	if fields == nil {
		return mcp.NewToolResultError("fields must be an object"), nil
	}
	rec, err := s.engine.Create(ctx, k.Name, fields)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(rec)
}

func (s *Server) updateResource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	k, err := s.kind(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fields := objectArg(req, "fields")
	if fields == nil {
		return mcp.NewToolResultError("fields must be an object"), nil
	}
	rec, err := s.engine.Update(ctx, k.Name, id, fields)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(rec)
}

func (s *Server) deleteResource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	k, err := s.kind(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.engine.Delete(ctx, k.Name, id)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(res)
}

func (s *Server) readSchemaResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out, err := json.MarshalIndent(s.engine.Kinds().Describe(), "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SchemaURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}
