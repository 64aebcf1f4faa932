// Package classifier turns a fetch outcome into a validation verdict.
//
// Rules are evaluated top to bottom and the first match wins:
//
//  1. HTTP 404                                 -> INVALID
//  2. snippet contains an unavailability phrase -> INVALID
//  3. HTTP 429                                 -> UNKNOWN
//  4. no HTTP response at all                  -> UNKNOWN
//  5. snippet contains an authentication phrase -> UNKNOWN
//  6. anything else                            -> VALID
package classifier

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"coursescout/internal/models"
)

const (
	ReasonNotFound     = "HTTP 404 - Page not found"
	ReasonRateLimited  = "HTTP 429 - Rate limited"
	ReasonNetworkError = "Network error - could not fetch URL"
	ReasonValid        = "URL accessible and appears valid"
)

// Rules holds the lowercase phrases the classifier looks for in page text.
type Rules struct {
	// UnavailablePhrases mark a page as gone.
	UnavailablePhrases []string
	// AuthPhrases mark a page that could not be judged without logging in.
	AuthPhrases []string
}

// DefaultRules returns the phrase set for Udemy course pages.
func DefaultRules() *Rules {
	return &Rules{
		UnavailablePhrases: []string{
			"course is no longer available",
			"we couldn't find the page",
			"we could not find the page",
			"not found",
		},
		AuthPhrases: []string{
			"please log in",
			"access denied",
		},
	}
}

var defaultRules = DefaultRules()

// Classify applies the default rules.
func Classify(url string, outcome models.FetchOutcome, checkedAt time.Time) models.Verdict {
	return defaultRules.Classify(url, outcome, checkedAt)
}

// Classify applies r to outcome. It performs no I/O.
func (r *Rules) Classify(url string, outcome models.FetchOutcome, checkedAt time.Time) models.Verdict {
	status, reason := r.evaluate(outcome)
	return models.Verdict{
		URL:        url,
		Status:     status,
		Reason:     reason,
		FinalURL:   outcome.FinalURL,
		HTTPStatus: outcome.HTTPStatus,
		CheckedAt:  checkedAt.Unix(),
	}
}

func (r *Rules) evaluate(outcome models.FetchOutcome) (models.Status, string) {
	text := strings.ToLower(outcome.BodySnippet)

	if hasStatus(outcome, http.StatusNotFound) {
		return models.StatusInvalid, ReasonNotFound
	}
	if phrase, ok := firstContained(text, r.UnavailablePhrases); ok {
		return models.StatusInvalid, fmt.Sprintf("Page indicates unavailability: '%s'", phrase)
	}
	if hasStatus(outcome, http.StatusTooManyRequests) {
		return models.StatusUnknown, ReasonRateLimited
	}
	if outcome.HTTPStatus == nil {
		return models.StatusUnknown, ReasonNetworkError
	}
	if phrase, ok := firstContained(text, r.AuthPhrases); ok {
		return models.StatusUnknown, fmt.Sprintf("Requires authentication: '%s'", phrase)
	}
	return models.StatusValid, ReasonValid
}

func hasStatus(outcome models.FetchOutcome, code int) bool {
	return outcome.HTTPStatus != nil && *outcome.HTTPStatus == code
}

func firstContained(text string, phrases []string) (string, bool) {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return p, true
		}
	}
	return "", false
}
