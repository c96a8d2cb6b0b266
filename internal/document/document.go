package document

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Heading is one h1-h6 element in document order.
type Heading struct {
	// Level is the heading depth (1 for h1 .. 6 for h6).
	Level int `json:"level"`

	// Text is the flattened text content of the heading.
	Text string `json:"text"`

	// AnswerWords is the word count of the first <p> element that
	// immediately follows the heading, or 0 when no paragraph follows.
	// Answer engines weigh this adjacency heavily.
	AnswerWords int `json:"answer_words,omitempty"`
}

// Image is one <img> element.
type Image struct {
	Src    string `json:"src"`
	Alt    string `json:"alt,omitempty"`
	HasAlt bool   `json:"has_alt"`
}

// Document is an immutable snapshot of a single fetch. It is created once
// per audit request and never mutated afterwards; analysis modules only
// read from it, which makes concurrent fan-out safe without locks.
type Document struct {
	URL             string
	RawHTML         string
	PlainText       string
	Title           string
	TitleCount      int
	MetaDescription string
	MetaRobots      string
	Headings        []Heading
	Images          []Image
	Links           []string
	SchemaBlocks    []string
	Headers         http.Header
	StatusCode      int
	HTTPS           bool
	WordCount       int
	ElementCount    int

	// WellKnown records existence of advisory files probed alongside the
	// page fetch (robots.txt, security.txt, llms.txt, humans.txt).
	WellKnown map[string]bool

	// RobotsTxt is the robots.txt body when the probe found one. The
	// directives feed the AI-crawler blocking check.
	RobotsTxt string

	FetchedAt time.Time
}

// Build parses raw HTML into a canonical document. Parsing is tolerant:
// golang.org/x/net/html never fails on malformed markup, it repairs the
// tree the way browsers do, so real-world pages always produce a document.
func Build(rawURL, rawHTML string, headers http.Header, status int, wellKnown map[string]bool) (*Document, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}

	doc := &Document{
		URL:        rawURL,
		RawHTML:    rawHTML,
		Headers:    cloneHeader(headers),
		StatusCode: status,
		WellKnown:  cloneWellKnown(wellKnown),
		FetchedAt:  time.Now().UTC(),
	}

	if u, err := url.Parse(rawURL); err == nil {
		doc.HTTPS = strings.EqualFold(u.Scheme, "https")
	}

	var text strings.Builder
	walk(root, doc, &text)

	doc.PlainText = collapseWhitespace(text.String())
	doc.WordCount = len(strings.Fields(doc.PlainText))

	return doc, nil
}

func walk(n *html.Node, doc *Document, text *strings.Builder) {
	if n.Type == html.ElementNode {
		doc.ElementCount++

		switch n.Data {
		case "title":
			doc.TitleCount++
			if doc.Title == "" {
				doc.Title = strings.TrimSpace(textContent(n))
			}
		case "meta":
			name := strings.ToLower(attr(n, "name"))
			content := attr(n, "content")
			switch name {
			case "description":
				if doc.MetaDescription == "" {
					doc.MetaDescription = strings.TrimSpace(content)
				}
			case "robots":
				if doc.MetaRobots == "" {
					doc.MetaRobots = strings.TrimSpace(content)
				}
			}
		case "h1", "h2", "h3", "h4", "h5", "h6":
			doc.Headings = append(doc.Headings, Heading{
				Level:       int(n.Data[1] - '0'),
				Text:        collapseWhitespace(textContent(n)),
				AnswerWords: followingParagraphWords(n),
			})
		case "img":
			alt := strings.TrimSpace(attr(n, "alt"))
			doc.Images = append(doc.Images, Image{
				Src:    attr(n, "src"),
				Alt:    alt,
				HasAlt: alt != "",
			})
		case "a":
			if href := strings.TrimSpace(attr(n, "href")); href != "" {
				doc.Links = append(doc.Links, href)
			}
		case "script":
			if strings.EqualFold(attr(n, "type"), "application/ld+json") {
				if block := strings.TrimSpace(textContent(n)); block != "" {
					doc.SchemaBlocks = append(doc.SchemaBlocks, block)
				}
			}
			return // script bodies are not page text
		case "style", "noscript":
			return
		}
	}

	if n.Type == html.TextNode {
		text.WriteString(n.Data)
		text.WriteByte(' ')
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, doc, text)
	}
}

// followingParagraphWords returns the word count of the first element
// sibling after a heading, when that element is a <p>. Whitespace-only
// text nodes and comments between the two do not break adjacency.
func followingParagraphWords(heading *html.Node) int {
	for s := heading.NextSibling; s != nil; s = s.NextSibling {
		switch s.Type {
		case html.TextNode:
			if strings.TrimSpace(s.Data) != "" {
				return 0
			}
		case html.CommentNode:
			continue
		case html.ElementNode:
			if s.Data == "p" {
				return len(strings.Fields(textContent(s)))
			}
			return 0
		}
	}
	return 0
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func cloneHeader(h http.Header) http.Header {
	if h == nil {
		return http.Header{}
	}
	out := make(http.Header, len(h))
	for k, v := range h {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func cloneWellKnown(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
