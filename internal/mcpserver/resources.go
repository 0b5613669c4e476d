package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/agentworkforce/workspacestate/internal/workspacestate"
)

type resourceHandler struct {
	store *workspacestate.Store
}

func (h resourceHandler) definitions() []mcp.Resource {
	descriptors := workspacestate.Resources()
	resources := make([]mcp.Resource, 0, len(descriptors))
	for _, d := range descriptors {
		resources = append(resources, mcp.NewResource(d.URI, d.Name,
			mcp.WithResourceDescription(d.Description),
			mcp.WithMIMEType(d.MIMEType),
		))
	}
	return resources
}

// Handle serves every workspace:// resource. The section is rendered with
// two-space indentation, like the persisted document.
func (h resourceHandler) Handle(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	section, err := h.store.ReadResource(ctx, uri)
	if err != nil {
		return nil, err
	}
	text, err := json.MarshalIndent(section, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(text),
		},
	}, nil
}
