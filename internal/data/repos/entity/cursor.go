package entity

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidCursor is returned when a continuation token cannot be used for
// the query it was presented with.
var ErrInvalidCursor = errors.New("invalid cursor")

// cursor is the state behind an opaque page token. Only this package builds
// or reads it; callers forward the encoded string verbatim.
type cursor struct {
	// After is the last id of the previous page.
	After int64 `json:"after"`
	// Desc records the order the token was minted for.
	Desc bool `json:"desc,omitempty"`
	// FilterHash invalidates the token when the filter changes.
	FilterHash string `json:"fh,omitempty"`
}

func encodeCursor(c cursor) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

func decodeCursor(token string) (cursor, error) {
	if token == "" {
		return cursor{}, fmt.Errorf("%w: empty token", ErrInvalidCursor)
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return cursor{}, fmt.Errorf("%w: decode base64: %v", ErrInvalidCursor, err)
	}
	var c cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return cursor{}, fmt.Errorf("%w: unmarshal: %v", ErrInvalidCursor, err)
	}
	if c.After <= 0 {
		return cursor{}, fmt.Errorf("%w: bad position", ErrInvalidCursor)
	}
	return c, nil
}

func hashFilter(key string) string {
	if key == "" {
		return ""
	}
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:8])
}
