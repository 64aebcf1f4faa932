package fetcher

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ExtractPlainText strips markup from an HTML document and returns every text
// node, script and style bodies included, joined by single spaces,
// whitespace-collapsed and cut to maxLength characters. maxLength <= 0
// disables truncation. It never fails: anything unparseable yields "".
func ExtractPlainText(htmlBody string, maxLength int) string {
	if htmlBody == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return ""
	}

	var parts []string
	for _, n := range doc.Nodes {
		parts = collectText(n, parts)
	}

	text := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	return truncate(text, maxLength)
}

// collectText appends text node contents in document order.
func collectText(n *html.Node, parts []string) []string {
	if n.Type == html.TextNode {
		return append(parts, n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		parts = collectText(c, parts)
	}
	return parts
}

func truncate(s string, maxLength int) string {
	if maxLength <= 0 || len(s) <= maxLength {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	return string(runes[:maxLength])
}
