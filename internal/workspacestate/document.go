package workspacestate

import (
	"encoding/json"
	"time"
)

// DocumentVersion is written to every saved document. Documents written
// before the field existed load as version 0.
const DocumentVersion = 1

const DefaultMaxSamples = 100

const timestampLayout = "2006-01-02T15:04:05.000Z"

type Action string

const (
	ActionInit  Action = "init"
	ActionSync  Action = "sync"
	ActionAudit Action = "audit"
)

var validActions = []Action{ActionInit, ActionSync, ActionAudit}

func (a Action) Valid() bool {
	for _, candidate := range validActions {
		if a == candidate {
			return true
		}
	}
	return false
}

type ComplianceStatus string

const (
	CompliancePass ComplianceStatus = "pass"
	ComplianceWarn ComplianceStatus = "warn"
	ComplianceFail ComplianceStatus = "fail"
)

var validStatuses = []ComplianceStatus{CompliancePass, ComplianceWarn, ComplianceFail}

func (s ComplianceStatus) Valid() bool {
	for _, candidate := range validStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

type Document struct {
	Version          int                                    `json:"version"`
	Workspaces       map[string]*Workspace                  `json:"workspaces"`
	Metrics          map[string]map[string][]MetricSample   `json:"metrics"`
	LastAudit        *string                                `json:"lastAudit"`
	ComplianceStatus map[string]map[string]ComplianceEntry `json:"complianceStatus"`
}

type Workspace struct {
	Path       string        `json:"path"`
	Actions    []ActionEvent `json:"actions"`
	CreatedAt  string        `json:"createdAt"`
	LastAction Action        `json:"lastAction,omitempty"`
	LastUpdate string        `json:"lastUpdate,omitempty"`
}

type ActionEvent struct {
	Action    Action         `json:"action"`
	Metadata  map[string]any `json:"metadata,omitzero"`
	Timestamp string         `json:"timestamp"`
}

type MetricSample struct {
	Value     float64 `json:"value"`
	Timestamp string  `json:"timestamp"`
}

type ComplianceEntry struct {
	Status      ComplianceStatus `json:"status"`
	Issues      []string         `json:"issues"`
	LastChecked string           `json:"lastChecked"`
}

// NewDocument returns the canonical empty document.
func NewDocument() *Document {
	return &Document{
		Version:          DocumentVersion,
		Workspaces:       map[string]*Workspace{},
		Metrics:          map[string]map[string][]MetricSample{},
		ComplianceStatus: map[string]map[string]ComplianceEntry{},
	}
}

// normalize fills nil maps and slices left by hand-edited or legacy
// documents so mutation code never has to nil-check.
func (d *Document) normalize() {
	if d.Workspaces == nil {
		d.Workspaces = map[string]*Workspace{}
	}
	for key, ws := range d.Workspaces {
		if ws == nil {
			delete(d.Workspaces, key)
			continue
		}
		if ws.Actions == nil {
			ws.Actions = []ActionEvent{}
		}
	}
	if d.Metrics == nil {
		d.Metrics = map[string]map[string][]MetricSample{}
	}
	for key, byName := range d.Metrics {
		if byName == nil {
			d.Metrics[key] = map[string][]MetricSample{}
		}
	}
	if d.ComplianceStatus == nil {
		d.ComplianceStatus = map[string]map[string]ComplianceEntry{}
	}
	for key, byCategory := range d.ComplianceStatus {
		if byCategory == nil {
			d.ComplianceStatus[key] = map[string]ComplianceEntry{}
			continue
		}
		for category, entry := range byCategory {
			if entry.Issues == nil {
				entry.Issues = []string{}
				byCategory[category] = entry
			}
		}
	}
}

// workspace is the get-or-create accessor for workspace records. It is
// the only place createdAt is assigned.
func (d *Document) workspace(key, path, now string) *Workspace {
	ws, ok := d.Workspaces[key]
	if !ok {
		ws = &Workspace{
			Path:      path,
			Actions:   []ActionEvent{},
			CreatedAt: now,
		}
		d.Workspaces[key] = ws
	}
	return ws
}

func (d *Document) metricSeries(key, metricName string) []MetricSample {
	byName := d.Metrics[key]
	if byName == nil {
		byName = map[string][]MetricSample{}
		d.Metrics[key] = byName
	}
	series, ok := byName[metricName]
	if !ok {
		series = []MetricSample{}
		byName[metricName] = series
	}
	return series
}

func (d *Document) complianceCategories(key string) map[string]ComplianceEntry {
	byCategory := d.ComplianceStatus[key]
	if byCategory == nil {
		byCategory = map[string]ComplianceEntry{}
		d.ComplianceStatus[key] = byCategory
	}
	return byCategory
}

// Clone returns a deep copy by round-tripping through JSON, the same way
// the in-memory backend isolates snapshots.
func (d *Document) Clone() (*Document, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var clone Document
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, err
	}
	return &clone, nil
}

// boundSeries keeps the most recent max samples, evicting from the front.
func boundSeries(series []MetricSample, max int) []MetricSample {
	if max <= 0 || len(series) <= max {
		return series
	}
	return append([]MetricSample(nil), series[len(series)-max:]...)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
