package workspacestate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const lockPollInterval = 10 * time.Millisecond

type JSONFileStateBackend struct {
	Path string
	// Lock takes an advisory exclusive lock on Path+".lock" for the
	// duration of each store operation.
	Lock bool
}

func NewJSONFileStateBackend(path string) *JSONFileStateBackend {
	return &JSONFileStateBackend{Path: strings.TrimSpace(path)}
}

func (b *JSONFileStateBackend) Load(ctx context.Context) (*Document, error) {
	if b == nil || strings.TrimSpace(b.Path) == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(b.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", b.Path, err)
	}
	return doc, nil
}

func (b *JSONFileStateBackend) Save(ctx context.Context, doc *Document) error {
	if b == nil || strings.TrimSpace(b.Path) == "" || doc == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	if err := b.EnsureDir(); err != nil {
		return err
	}
	tmp := b.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, b.Path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func (b *JSONFileStateBackend) EnsureDir() error {
	if b == nil || strings.TrimSpace(b.Path) == "" {
		return nil
	}
	dir := filepath.Dir(b.Path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (b *JSONFileStateBackend) Acquire(ctx context.Context) (func(), error) {
	if b == nil || !b.Lock || strings.TrimSpace(b.Path) == "" {
		return func() {}, nil
	}
	if err := b.EnsureDir(); err != nil {
		return nil, err
	}
	return lockFile(ctx, b.Path+".lock")
}
