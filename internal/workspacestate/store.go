package workspacestate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrPersist      = errors.New("persist workspace state")
)

type StoreOptions struct {
	Backend StateBackend
	Logger  *slog.Logger
	// Now overrides the clock used for store-assigned timestamps.
	Now func() time.Time
	// MaxSamples bounds every metric series. Zero means DefaultMaxSamples.
	MaxSamples int
	// SwallowSaveErrors acknowledges mutations whose save failed. The
	// failure is still logged.
	SwallowSaveErrors bool
}

type TrackWorkspaceInput struct {
	WorkspacePath string
	Action        Action
	Metadata      map[string]any
}

type RecordMetricInput struct {
	WorkspacePath string
	MetricName    string
	Value         float64
	// Timestamp is stored verbatim when set.
	Timestamp string
}

type UpdateComplianceInput struct {
	WorkspacePath string
	Category      string
	Status        ComplianceStatus
	Issues        []string
}

// Store runs every operation as a full load, mutate, save cycle against its
// backend. Nothing is cached between operations, so edits made by other
// processes between calls are picked up.
type Store struct {
	mu                sync.Mutex
	backend           StateBackend
	logger            *slog.Logger
	now               func() time.Time
	maxSamples        int
	swallowSaveErrors bool
	observers         []func(operation string)
}

func NewStore(opts StoreOptions) *Store {
	backend := opts.Backend
	if backend == nil {
		backend = NewInMemoryStateBackend()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	maxSamples := opts.MaxSamples
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &Store{
		backend:           backend,
		logger:            logger,
		now:               now,
		maxSamples:        maxSamples,
		swallowSaveErrors: opts.SwallowSaveErrors,
	}
}

func (s *Store) Backend() StateBackend {
	return s.backend
}

// Logger is the logger the store was built with, for components that
// serve it.
func (s *Store) Logger() *slog.Logger {
	return s.logger
}

func (s *Store) MaxSamples() int {
	return s.maxSamples
}

// EnsureReady creates the backend's containing directory. Failures are
// logged; the next save reports them again if they persist.
func (s *Store) EnsureReady() {
	ensurer, ok := s.backend.(dirEnsurer)
	if !ok {
		return
	}
	if err := ensurer.EnsureDir(); err != nil {
		s.logger.Warn("failed to create state directory", "error", err)
	}
}

// Observe registers fn to run after every successful save, with the
// operation name. Observers run while the store is locked and must not call
// back into it.
func (s *Store) Observe(fn func(operation string)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Store) Close() error {
	if closer, ok := s.backend.(stateBackendCloser); ok {
		return closer.Close()
	}
	return nil
}

// Load returns the persisted document, or the empty document when nothing
// is stored or the stored document cannot be read.
func (s *Store) Load(ctx context.Context) *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx, s.logger)
}

func (s *Store) TrackWorkspace(ctx context.Context, in TrackWorkspaceInput) (string, error) {
	if strings.TrimSpace(in.WorkspacePath) == "" {
		return "", fmt.Errorf("%w: workspacePath is required", ErrInvalidInput)
	}
	if !in.Action.Valid() {
		return "", fmt.Errorf("%w: action must be one of init, sync, audit, got %q", ErrInvalidInput, in.Action)
	}
	key := DeriveKey(in.WorkspacePath)
	err := s.mutate(ctx, "track_workspace", in.WorkspacePath, func(doc *Document, now string) {
		ws := doc.workspace(key, in.WorkspacePath, now)
		ws.Actions = append(ws.Actions, ActionEvent{
			Action:    in.Action,
			Metadata:  in.Metadata,
			Timestamp: now,
		})
		ws.LastAction = in.Action
		ws.LastUpdate = now
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Tracked %s for workspace: %s", in.Action, in.WorkspacePath), nil
}

func (s *Store) RecordMetric(ctx context.Context, in RecordMetricInput) (string, error) {
	if strings.TrimSpace(in.WorkspacePath) == "" {
		return "", fmt.Errorf("%w: workspacePath is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.MetricName) == "" {
		return "", fmt.Errorf("%w: metricName is required", ErrInvalidInput)
	}
	if math.IsNaN(in.Value) || math.IsInf(in.Value, 0) {
		return "", fmt.Errorf("%w: metric value must be finite", ErrInvalidInput)
	}
	key := DeriveKey(in.WorkspacePath)
	err := s.mutate(ctx, "record_metric", in.WorkspacePath, func(doc *Document, now string) {
		timestamp := in.Timestamp
		if timestamp == "" {
			timestamp = now
		}
		series := append(doc.metricSeries(key, in.MetricName), MetricSample{
			Value:     in.Value,
			Timestamp: timestamp,
		})
		doc.Metrics[key][in.MetricName] = boundSeries(series, s.maxSamples)
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Recorded %s = %s for %s", in.MetricName, strconv.FormatFloat(in.Value, 'f', -1, 64), in.WorkspacePath), nil
}

func (s *Store) UpdateCompliance(ctx context.Context, in UpdateComplianceInput) (string, error) {
	if strings.TrimSpace(in.WorkspacePath) == "" {
		return "", fmt.Errorf("%w: workspacePath is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Category) == "" {
		return "", fmt.Errorf("%w: category is required", ErrInvalidInput)
	}
	if !in.Status.Valid() {
		return "", fmt.Errorf("%w: status must be one of pass, warn, fail, got %q", ErrInvalidInput, in.Status)
	}
	issues := append([]string{}, in.Issues...)
	key := DeriveKey(in.WorkspacePath)
	err := s.mutate(ctx, "update_compliance", in.WorkspacePath, func(doc *Document, now string) {
		doc.complianceCategories(key)[in.Category] = ComplianceEntry{
			Status:      in.Status,
			Issues:      issues,
			LastChecked: now,
		}
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Updated %s compliance status to %s for %s", in.Category, in.Status, in.WorkspacePath), nil
}

func (s *Store) mutate(ctx context.Context, operation, workspacePath string, apply func(doc *Document, now string)) error {
	logger := s.logger.With("op_id", newOperationID(), "operation", operation, "workspace", workspacePath)

	s.mu.Lock()
	defer s.mu.Unlock()

	release := func() {}
	if locker, ok := s.backend.(stateLocker); ok {
		var err error
		release, err = locker.Acquire(ctx)
		if err != nil {
			logger.Warn("failed to lock workspace state", "error", err)
			return fmt.Errorf("%w: lock: %w", ErrPersist, err)
		}
	}
	defer release()

	doc := s.loadLocked(ctx, logger)
	apply(doc, formatTimestamp(s.now()))
	doc.Version = DocumentVersion

	if err := s.backend.Save(ctx, doc); err != nil {
		logger.Warn("failed to save workspace state", "error", err)
		if s.swallowSaveErrors {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	logger.Debug("workspace state saved")
	for _, observe := range s.observers {
		observe(operation)
	}
	return nil
}

func (s *Store) loadLocked(ctx context.Context, logger *slog.Logger) *Document {
	doc, err := s.backend.Load(ctx)
	if err != nil {
		logger.Warn("failed to load workspace state, starting empty", "error", err)
		return NewDocument()
	}
	if doc == nil {
		return NewDocument()
	}
	doc.normalize()
	switch {
	case doc.Version > DocumentVersion:
		logger.Warn("workspace state written by a newer version", "version", doc.Version, "supported", DocumentVersion)
	case doc.Version < DocumentVersion:
		logger.Debug("upgrading workspace state", "from", doc.Version, "to", DocumentVersion)
	}
	return doc
}

func newOperationID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
