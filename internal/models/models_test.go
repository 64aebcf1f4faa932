package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, s := range []Status{StatusValid, StatusInvalid, StatusUnknown} {
		got, err := ParseStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	got, err := ParseStatus(" invalid ")
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, got)

	_, err = ParseStatus("MAYBE")
	assert.Error(t, err)
	_, err = ParseStatus("")
	assert.Error(t, err)
}

func TestVerdictJSON(t *testing.T) {
	v := Verdict{URL: "https://www.udemy.com/course/x/", Status: StatusInvalid, Reason: "HTTP 404 - Page not found", CheckedAt: 42}

	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"status":"INVALID"`)
	assert.Contains(t, string(b), `"http_status":null`)

	var back Verdict
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, v, back)

	assert.Error(t, json.Unmarshal([]byte(`{"status":"BROKEN"}`), &back))
}

func TestSummaryAdd(t *testing.T) {
	var s Summary
	s.Add(StatusValid)
	s.Add(StatusValid)
	s.Add(StatusInvalid)
	s.Add(StatusUnknown)
	assert.Equal(t, Summary{Valid: 2, Invalid: 1, Unknown: 1}, s)
}
