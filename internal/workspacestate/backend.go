package workspacestate

import (
	"context"
	"encoding/json"
	"sync"
)

// StateBackend loads and saves the whole document. Load returns (nil, nil)
// when nothing has been persisted yet.
type StateBackend interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
}

type stateBackendCloser interface {
	Close() error
}

// stateLocker is implemented by backends that can hold a lock across a
// full load-mutate-save cycle.
type stateLocker interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// dirEnsurer is implemented by backends with a containing location that
// must exist before the first save.
type dirEnsurer interface {
	EnsureDir() error
}

type InMemoryStateBackend struct {
	mu       sync.Mutex
	snapshot *Document
}

func NewInMemoryStateBackend() *InMemoryStateBackend {
	return &InMemoryStateBackend{}
}

func (b *InMemoryStateBackend) Load(ctx context.Context) (*Document, error) {
	if b == nil {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.snapshot == nil {
		return nil, nil
	}
	return b.snapshot.Clone()
}

func (b *InMemoryStateBackend) Save(ctx context.Context, doc *Document) error {
	if b == nil || doc == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	clone, err := doc.Clone()
	if err != nil {
		return err
	}
	b.snapshot = clone
	return nil
}

// encodeDocument is the stable on-disk encoding: two-space indentation,
// map keys sorted by encoding/json, trailing newline.
func encodeDocument(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func decodeDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
