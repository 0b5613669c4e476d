// Package mcpserver exposes a workspace state store over the Model Context
// Protocol: three mutation tools and three read-only resources.
package mcpserver

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/agentworkforce/workspacestate/internal/workspacestate"
)

const Name = "enterprise-workspace-server"

// Version is set at build time via ldflags.
var Version = "1.0.0"

// Resource subscriptions are not supported, so state changes are announced
// as a list change and clients re-read the resources they show.
const methodResourcesListChanged = "notifications/resources/list_changed"

type Options struct {
	Store  *workspacestate.Store
	Logger *slog.Logger
	// WatchPath is the state file to watch for edits by other processes.
	// Empty disables watching.
	WatchPath string
}

type Server struct {
	mcp     *server.MCPServer
	store   *workspacestate.Store
	logger  *slog.Logger
	watcher *workspacestate.Watcher
}

func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("mcpserver: store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mcp: server.NewMCPServer(
			Name,
			Version,
			server.WithToolCapabilities(true),
			server.WithResourceCapabilities(false, true),
			server.WithRecovery(),
		),
		store:  opts.Store,
		logger: logger,
	}

	trackTool, err := NewTrackWorkspaceTool(opts.Store)
	if err != nil {
		return nil, err
	}
	s.mcp.AddTool(trackTool.Definition(), trackTool.Handle)

	metricTool, err := NewRecordMetricTool(opts.Store)
	if err != nil {
		return nil, err
	}
	s.mcp.AddTool(metricTool.Definition(), metricTool.Handle)

	complianceTool, err := NewUpdateComplianceTool(opts.Store)
	if err != nil {
		return nil, err
	}
	s.mcp.AddTool(complianceTool.Definition(), complianceTool.Handle)

	resources := resourceHandler{store: opts.Store}
	for _, resource := range resources.definitions() {
		s.mcp.AddResource(resource, resources.Handle)
	}

	if opts.WatchPath != "" {
		s.watcher = workspacestate.NewWatcher(opts.WatchPath, workspacestate.WatcherOptions{Logger: logger})
	}
	opts.Store.Observe(s.storeChanged)
	return s, nil
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// Serve speaks MCP over in and out until ctx is done or in is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.watcher != nil {
		go func() {
			if err := s.watcher.Run(ctx, s.fileChanged); err != nil {
				s.logger.Warn("state watcher stopped", "error", err)
			}
		}()
	}

	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	s.logger.Info("workspace state server running on stdio", "backend", workspacestate.BackendKind(s.store.Backend()))
	return stdio.Listen(ctx, in, out)
}

func (s *Server) storeChanged(operation string) {
	if s.watcher != nil {
		s.watcher.Remember()
	}
	s.notifyResourcesChanged()
}

func (s *Server) fileChanged(change workspacestate.Change) {
	s.logger.Debug("state file changed externally", "path", change.Path, "digest", change.Digest)
	s.notifyResourcesChanged()
}

func (s *Server) notifyResourcesChanged() {
	s.mcp.SendNotificationToAllClients(methodResourcesListChanged, nil)
}
