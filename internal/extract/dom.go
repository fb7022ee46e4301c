package extract

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// NewDocument decodes a fetched body to UTF-8 and parses it. The decode
// follows the response content type with a byte-sniffing fallback. Both
// detail and listing pages go through here so charset handling is uniform.
func NewDocument(body []byte, contentType string) (*goquery.Document, error) {
	enc, _, _ := charset.DetermineEncoding(body, contentType)
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		if !utf8.Valid(body) {
			return nil, err
		}
		decoded = body
	}
	return goquery.NewDocumentFromReader(bytes.NewReader(decoded))
}

// strippedStrings collects the trimmed text nodes under sel in document
// order, skipping whitespace-only nodes.
func strippedStrings(sel *goquery.Selection) []string {
	var out []string
	for _, node := range sel.Nodes {
		collectText(node, &out)
	}
	return out
}

func collectText(node *html.Node, out *[]string) {
	if node.Type == html.TextNode {
		if text := strings.TrimSpace(node.Data); text != "" {
			*out = append(*out, text)
		}
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, out)
	}
}

// joinedText concatenates sel's text nodes with single spaces, the way a
// multi-element value cell reads on the page.
func joinedText(sel *goquery.Selection) string {
	return strings.Join(strippedStrings(sel), " ")
}
