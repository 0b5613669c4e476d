package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/agentworkforce/workspacestate/internal/workspacestate"
)

type TrackWorkspaceArgs struct {
	WorkspacePath string         `json:"workspacePath" jsonschema_description:"Path to the workspace"`
	Action        string         `json:"action" jsonschema:"enum=init,enum=sync,enum=audit" jsonschema_description:"Action performed on workspace"`
	Metadata      map[string]any `json:"metadata,omitempty" jsonschema_description:"Additional metadata about the action"`
}

type RecordMetricArgs struct {
	WorkspacePath string  `json:"workspacePath" jsonschema_description:"Path to the workspace"`
	MetricName    string  `json:"metricName" jsonschema_description:"Name of the metric"`
	Value         float64 `json:"value" jsonschema_description:"Metric value"`
	Timestamp     string  `json:"timestamp,omitempty" jsonschema_description:"ISO timestamp"`
}

type UpdateComplianceArgs struct {
	WorkspacePath string   `json:"workspacePath" jsonschema_description:"Path to the workspace"`
	Category      string   `json:"category" jsonschema_description:"Compliance category"`
	Status        string   `json:"status" jsonschema:"enum=pass,enum=warn,enum=fail" jsonschema_description:"Compliance status"`
	Issues        []string `json:"issues,omitempty" jsonschema_description:"List of compliance issues"`
}

// tool couples a definition with its argument validator. Each concrete tool
// embeds one.
type tool struct {
	name        string
	description string
	schema      json.RawMessage
	validator   *argumentValidator
}

func newTool(name, description string, schema json.RawMessage) (tool, error) {
	validator, err := newArgumentValidator(name, schema)
	if err != nil {
		return tool{}, err
	}
	return tool{name: name, description: description, schema: schema, validator: validator}, nil
}

func (t tool) Definition() mcp.Tool {
	return mcp.NewToolWithRawSchema(t.name, t.description, t.schema)
}

func (t tool) decode(req mcp.CallToolRequest, out any) error {
	args := req.GetArguments()
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}
	if err := t.validator.decode(raw, out); err != nil {
		return fmt.Errorf("invalid arguments for %s: %w", t.name, err)
	}
	return nil
}

type TrackWorkspaceTool struct {
	tool
	store *workspacestate.Store
}

func NewTrackWorkspaceTool(store *workspacestate.Store) (*TrackWorkspaceTool, error) {
	base, err := newTool("track_workspace", "Track workspace initialization or updates", GenerateSchema[TrackWorkspaceArgs]())
	if err != nil {
		return nil, err
	}
	return &TrackWorkspaceTool{tool: base, store: store}, nil
}

func (t *TrackWorkspaceTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args TrackWorkspaceArgs
	if err := t.decode(req, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	msg, err := t.store.TrackWorkspace(ctx, workspacestate.TrackWorkspaceInput{
		WorkspacePath: args.WorkspacePath,
		Action:        workspacestate.Action(args.Action),
		Metadata:      args.Metadata,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(msg), nil
}

type RecordMetricTool struct {
	tool
	store *workspacestate.Store
}

func NewRecordMetricTool(store *workspacestate.Store) (*RecordMetricTool, error) {
	base, err := newTool("record_metric", "Record a workspace metric", GenerateSchema[RecordMetricArgs]())
	if err != nil {
		return nil, err
	}
	return &RecordMetricTool{tool: base, store: store}, nil
}

func (t *RecordMetricTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args RecordMetricArgs
	if err := t.decode(req, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	msg, err := t.store.RecordMetric(ctx, workspacestate.RecordMetricInput{
		WorkspacePath: args.WorkspacePath,
		MetricName:    args.MetricName,
		Value:         args.Value,
		Timestamp:     args.Timestamp,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(msg), nil
}

type UpdateComplianceTool struct {
	tool
	store *workspacestate.Store
}

func NewUpdateComplianceTool(store *workspacestate.Store) (*UpdateComplianceTool, error) {
	base, err := newTool("update_compliance", "Update compliance status", GenerateSchema[UpdateComplianceArgs]())
	if err != nil {
		return nil, err
	}
	return &UpdateComplianceTool{tool: base, store: store}, nil
}

func (t *UpdateComplianceTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args UpdateComplianceArgs
	if err := t.decode(req, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	msg, err := t.store.UpdateCompliance(ctx, workspacestate.UpdateComplianceInput{
		WorkspacePath: args.WorkspacePath,
		Category:      args.Category,
		Status:        workspacestate.ComplianceStatus(args.Status),
		Issues:        args.Issues,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(msg), nil
}
