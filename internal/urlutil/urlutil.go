package urlutil

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile("(?i)https?://[^\\s<>\"{}|\\\\^`\\[\\]]+|www\\.[^\\s<>\"{}|\\\\^`\\[\\]]+")

// ExtractURLs finds http(s) and bare www. links in free text.
// Bare www. links get an http:// scheme. Duplicates are dropped and the
// first-seen order is kept.
func ExtractURLs(text string) []string {
	if text == "" {
		return nil
	}
	matches := urlPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		if strings.HasPrefix(m, "www.") {
			m = "http://" + m
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		urls = append(urls, m)
	}
	return urls
}

// FilterContaining keeps the URLs that contain substr, ignoring case.
// An empty substr keeps everything.
func FilterContaining(urls []string, substr string) []string {
	needle := strings.ToLower(substr)
	var out []string
	for _, u := range urls {
		if strings.Contains(strings.ToLower(u), needle) {
			out = append(out, u)
		}
	}
	return out
}

// ParseList splits a comma-separated list, trimming entries and dropping
// empty ones.
func ParseList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsRedditLink reports whether a post's link points back at reddit itself.
func IsRedditLink(link string) bool {
	return strings.HasPrefix(link, "https://www.reddit.com") || strings.HasPrefix(link, "/r/")
}

// ValidateHTTP checks that rawURL is an absolute http or https URL.
func ValidateHTTP(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if !u.IsAbs() || (scheme != "http" && scheme != "https") || u.Host == "" {
		return fmt.Errorf("url must be an absolute http or https url")
	}
	return nil
}
