package workspacestate

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildStateBackendFromDSN selects a backend by DSN scheme:
//
//	/path/state.json, file:///path/state.json   JSON file
//	memory://                                   in-process only
//	postgres://user@host/db                     PostgreSQL row
//	sqlite:///path/state.db                     SQLite row
func BuildStateBackendFromDSN(dsn string) (StateBackend, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("%w: empty state DSN", ErrInvalidInput)
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, err
	}
	scheme := strings.ToLower(strings.TrimSpace(parsed.Scheme))
	if factory, ok := lookupStateBackendFactory(scheme); ok {
		return factory(dsn)
	}
	switch scheme {
	case "", "file":
		path, pathErr := dsnPath(parsed, dsn)
		if pathErr != nil {
			return nil, pathErr
		}
		return NewJSONFileStateBackend(path), nil
	case "memory", "mem", "inmem":
		return NewInMemoryStateBackend(), nil
	case "postgres", "postgresql":
		return NewPostgresStateBackend(dsn)
	case "sqlite", "sqlite3":
		path, pathErr := dsnPath(parsed, dsn)
		if pathErr != nil {
			return nil, pathErr
		}
		return OpenSQLiteStateBackend(path)
	default:
		return nil, fmt.Errorf("unsupported state backend scheme: %s", scheme)
	}
}

// BackendKind names a backend for status output.
func BackendKind(backend StateBackend) string {
	switch backend.(type) {
	case nil:
		return "none"
	case *JSONFileStateBackend:
		return "file"
	case *InMemoryStateBackend:
		return "memory"
	case *PostgresStateBackend:
		return "postgres"
	case *SQLiteStateBackend:
		return "sqlite"
	default:
		return "custom"
	}
}

func dsnPath(parsed *url.URL, raw string) (string, error) {
	if parsed == nil {
		return "", ErrInvalidInput
	}
	if strings.TrimSpace(parsed.Scheme) == "" {
		if strings.TrimSpace(raw) == "" {
			return "", ErrInvalidInput
		}
		return strings.TrimSpace(raw), nil
	}
	// sqlite://relative/state.db parses "relative" as the host.
	path := strings.TrimSpace(parsed.Host) + strings.TrimSpace(parsed.Path)
	if path == "" {
		path = strings.TrimSpace(parsed.Opaque)
	}
	if path == "" {
		return "", ErrInvalidInput
	}
	return path, nil
}
