package urlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractURLs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", nil},
		{"no links", "free course today", []string{}},
		{
			"scheme and www",
			"Grab it https://www.udemy.com/course/go/?couponCode=FREE or www.example.com/x",
			[]string{"https://www.udemy.com/course/go/?couponCode=FREE", "http://www.example.com/x"},
		},
		{
			"stops at brackets and quotes",
			`[link](https://a.example/path) "https://b.example/q"`,
			[]string{"https://a.example/path)", "https://b.example/q"},
		},
		{
			"case insensitive and deduplicated",
			"HTTPS://A.EXAMPLE/ then HTTPS://A.EXAMPLE/ and www.b.example",
			[]string{"HTTPS://A.EXAMPLE/", "http://www.b.example"},
		},
		{
			"only lowercase www gets a scheme",
			"WWW.C.EXAMPLE/x and Www.d.example",
			[]string{"WWW.C.EXAMPLE/x", "Www.d.example"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractURLs(tt.text))
		})
	}
}

func TestFilterContaining(t *testing.T) {
	urls := []string{"https://www.UDEMY.com/course/a/", "https://example.com/", "https://udemy.com/course/b/"}
	assert.Equal(t, []string{"https://www.UDEMY.com/course/a/", "https://udemy.com/course/b/"}, FilterContaining(urls, "udemy.com"))
	assert.Nil(t, FilterContaining(urls, "coursera.org"))
	assert.Equal(t, urls, FilterContaining(urls, ""))
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, ParseList(" a , ,b,"))
	assert.Nil(t, ParseList(""))
}

func TestIsRedditLink(t *testing.T) {
	assert.True(t, IsRedditLink("https://www.reddit.com/r/udemyfreebies/comments/x/"))
	assert.True(t, IsRedditLink("/r/udemyfreebies/comments/x/"))
	assert.False(t, IsRedditLink("https://www.udemy.com/course/x/"))
}

func TestValidateHTTP(t *testing.T) {
	assert.NoError(t, ValidateHTTP("https://www.udemy.com/course/x/"))
	assert.NoError(t, ValidateHTTP("HTTP://example.com"))
	assert.Error(t, ValidateHTTP("ftp://example.com"))
	assert.Error(t, ValidateHTTP("/relative/path"))
	assert.Error(t, ValidateHTTP("https://"))
	assert.Error(t, ValidateHTTP("://bad"))
}
