package workspacestate

import (
	"context"
	"fmt"
	"strings"
)

const resourceURIScheme = "workspace://"

const (
	ResourceState      = "state"
	ResourceMetrics    = "metrics"
	ResourceCompliance = "compliance"
)

type ResourceDescriptor struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MIMEType    string `json:"mimeType"`
}

var resourceDescriptors = []ResourceDescriptor{
	{
		URI:         resourceURIScheme + ResourceState,
		Name:        "Current Workspace State",
		Description: "Current state of all tracked workspaces",
		MIMEType:    "application/json",
	},
	{
		URI:         resourceURIScheme + ResourceMetrics,
		Name:        "Workspace Metrics",
		Description: "Aggregated metrics across workspaces",
		MIMEType:    "application/json",
	},
	{
		URI:         resourceURIScheme + ResourceCompliance,
		Name:        "Compliance Status",
		Description: "Current compliance status and issues",
		MIMEType:    "application/json",
	},
}

// Resources lists the readable views of the document.
func Resources() []ResourceDescriptor {
	return append([]ResourceDescriptor(nil), resourceDescriptors...)
}

// ReadResource returns one section of the current document. id is either a
// bare name ("metrics") or its URI ("workspace://metrics").
func (s *Store) ReadResource(ctx context.Context, id string) (any, error) {
	name := strings.TrimPrefix(strings.TrimSpace(id), resourceURIScheme)
	switch name {
	case ResourceState, ResourceMetrics, ResourceCompliance:
	default:
		return nil, fmt.Errorf("%w: unknown resource %q", ErrNotFound, id)
	}
	doc := s.Load(ctx)
	switch name {
	case ResourceState:
		return doc.Workspaces, nil
	case ResourceMetrics:
		return doc.Metrics, nil
	default:
		return doc.ComplianceStatus, nil
	}
}
