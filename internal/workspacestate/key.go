package workspacestate

import (
	"encoding/base64"
	"fmt"
)

// DeriveKey maps a workspace path to the key it is indexed by in every
// document map. Standard padded base64 is reversible, so distinct paths
// never share a key, and it matches keys in documents written by earlier
// versions of the server.
func DeriveKey(path string) string {
	return base64.StdEncoding.EncodeToString([]byte(path))
}

// PathFromKey is the inverse of DeriveKey.
func PathFromKey(key string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return "", fmt.Errorf("%w: workspace key %q: %v", ErrInvalidInput, key, err)
	}
	return string(raw), nil
}
