// Package headline derives post titles from the rich text of a feed item.
package headline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var whitespace = regexp.MustCompile(`[ \t\r\n\f]+`)

// Result is the outcome of a title extraction. Title is empty when no usable
// first sentence exists.
type Result struct {
	Title      string
	HasContent bool
}

type tokenizer interface {
	Tokenize(text string) []*sentences.Sentence
}

type Extractor struct {
	tokenizer tokenizer
}

func NewExtractor() (*Extractor, error) {
	t, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("load sentence tokenizer: %w", err)
	}
	return &Extractor{tokenizer: t}, nil
}

// Extract takes the first sentence of the first non-blank line as the title.
// A first sentence that is a bare link yields no title.
func (e *Extractor) Extract(content string) Result {
	lines := Lines(PlainText(content))
	if len(lines) == 0 {
		return Result{}
	}

	var parts []string
	for _, s := range e.tokenizer.Tokenize(lines[0]) {
		if text := strings.TrimSpace(s.Text); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return Result{HasContent: len(lines) > 1}
	}

	title := parts[0]
	if strings.HasPrefix(title, "http://") || strings.HasPrefix(title, "https://") {
		title = ""
	}

	return Result{
		Title:      title,
		HasContent: len(parts) > 1 || len(lines) > 1,
	}
}

// PlainText renders an HTML fragment as text. Link targets, images and
// emphasis are dropped; block elements and <br> become line breaks.
func PlainText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	var sb strings.Builder
	for _, n := range doc.Nodes {
		writeText(&sb, n)
	}
	return sb.String()
}

// Lines splits text into its non-blank lines, trimmed.
func Lines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func writeText(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(whitespace.ReplaceAllString(n.Data, " "))
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Img, atom.Script, atom.Style, atom.Head:
			return
		case atom.Br:
			sb.WriteByte('\n')
			return
		}
	}

	block := n.Type == html.ElementNode && isBlock(n.DataAtom)
	if block {
		sb.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(sb, c)
	}
	if block {
		sb.WriteByte('\n')
	}
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Li, atom.Ul, atom.Ol, atom.Blockquote, atom.Pre,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Tr, atom.Table, atom.Hr:
		return true
	}
	return false
}
