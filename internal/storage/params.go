package storage

import (
	"encoding/json"
	"fmt"
)

const (
	// DefaultPageLimit applies when a list call does not set a limit.
	DefaultPageLimit = 100
	// MaxPageLimit caps any single page.
	MaxPageLimit = 1000
)

// PageLimit clamps a requested page size into [1, MaxPageLimit].
func PageLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageLimit
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return limit
}

// EncodeURLList serializes a post's outbound URLs. A nil list is stored as [].
func EncodeURLList(urls []string) (string, error) {
	if urls == nil {
		urls = []string{}
	}
	b, err := json.Marshal(urls)
	if err != nil {
		return "", fmt.Errorf("failed to encode url list: %w", err)
	}
	return string(b), nil
}

// DecodeURLList parses a stored url_list column.
func DecodeURLList(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var urls []string
	if err := json.Unmarshal([]byte(raw), &urls); err != nil {
		return nil, fmt.Errorf("failed to decode url list: %w", err)
	}
	if urls == nil {
		urls = []string{}
	}
	return urls, nil
}
