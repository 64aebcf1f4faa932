package models

import (
	"fmt"
	"strings"
)

// Status is the tri-state outcome of validating a URL.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusValid
	StatusInvalid
)

// String returns the persisted form of the status.
func (s Status) String() string {
	switch s {
	case StatusValid:
		return "VALID"
	case StatusInvalid:
		return "INVALID"
	default:
		return "UNKNOWN"
	}
}

// ParseStatus converts a persisted status string back into a Status.
// Anything other than the three known values is an error.
func ParseStatus(s string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "VALID":
		return StatusValid, nil
	case "INVALID":
		return StatusInvalid, nil
	case "UNKNOWN":
		return StatusUnknown, nil
	}
	return StatusUnknown, fmt.Errorf("unknown validation status %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	parsed, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// FetchOutcome is what the fetcher reduced a response to.
// A nil HTTPStatus means no HTTP response was ever received.
type FetchOutcome struct {
	HTTPStatus  *int
	FinalURL    *string
	BodySnippet string
}

// Verdict is the classification of a single URL. It doubles as the cache entry.
type Verdict struct {
	URL        string  `json:"url"`
	Status     Status  `json:"status"`
	Reason     string  `json:"reason"`
	FinalURL   *string `json:"final_url"`   // nil on network errors
	HTTPStatus *int    `json:"http_status"` // nil on network errors
	CheckedAt  int64   `json:"checked_at"`  // unix seconds
}

// Post is a community feed post with the links found in it.
type Post struct {
	PostID       string   `json:"post_id"`
	Source       string   `json:"source"`
	Subreddit    string   `json:"subreddit"`
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	OutboundURLs []string `json:"outbound_urls"`
	Author       string   `json:"author"`
	CreatedUTC   int64    `json:"created_utc"`
	Permalink    string   `json:"permalink"`
	InsertedAt   int64    `json:"inserted_at"`
}

// Summary aggregates the result of one validation batch.
type Summary struct {
	Total   int `json:"total"`
	Fresh   int `json:"fresh"`
	Cached  int `json:"cached"`
	Valid   int `json:"valid"`
	Invalid int `json:"invalid"`
	Unknown int `json:"unknown"`
}

// Add counts one verdict status.
func (s *Summary) Add(status Status) {
	switch status {
	case StatusValid:
		s.Valid++
	case StatusInvalid:
		s.Invalid++
	default:
		s.Unknown++
	}
}
