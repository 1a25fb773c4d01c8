// Package resources implements the MCP resources of taskpilot.
//
// Resources provide read-only data the host can consume for context. They
// use URI-based addressing (taskpilot://...).
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/HendryAvila/taskpilot/internal/commands"
	"github.com/mark3labs/mcp-go/mcp"
)

// CatalogURI addresses the command catalog.
const CatalogURI = "taskpilot://commands"

// Handler serves taskpilot resources.
type Handler struct {
	registry *commands.Registry
}

// NewHandler creates a resource Handler.
func NewHandler(registry *commands.Registry) *Handler {
	return &Handler{registry: registry}
}

// CatalogEntry is one command in the catalog resource.
type CatalogEntry struct {
	Name        commands.Name   `json:"name"`
	Tool        string          `json:"tool"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// CatalogResource returns the MCP resource definition for the command catalog.
func (h *Handler) CatalogResource() mcp.Resource {
	return mcp.NewResource(
		CatalogURI,
		"Command catalog",
		mcp.WithResourceDescription("Every command the assistant can run, with its parameter schema"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleCatalog returns the catalog as JSON.
func (h *Handler) HandleCatalog(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	var entries []CatalogEntry
	for _, s := range h.registry.Describe() {
		d, ok := h.registry.Lookup(s.Name)
		if !ok {
			return errorResource(req.Params.URI, fmt.Sprintf("command %s disappeared", s.Name)), nil
		}
		entries = append(entries, CatalogEntry{
			Name:        s.Name,
			Tool:        s.Name.ToolName(),
			Description: s.Description,
			Parameters:  json.RawMessage(d.JSONSchema()),
		})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling catalog: %w", err)
	}
	return jsonContents(req.Params.URI, data), nil
}
