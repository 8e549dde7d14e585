// Package processor cleans the text coming out of OCR and translation before
// it is stored: HTML markup is converted to Markdown, entities are unescaped
// and blank-line runs are collapsed.
package processor

import (
	"regexp"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
)

// MaxTitleLength bounds titles derived from a first line of text.
const MaxTitleLength = 80

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Processor normalizes document text.
type Processor struct{}

// New creates a new text processor.
func New() *Processor {
	return &Processor{}
}

// Clean returns text ready for storage. HTML input is converted to Markdown;
// anything else only has entities unescaped. Trailing spaces are stripped
// and runs of blank lines collapsed to one.
func (p *Processor) Clean(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	var out string
	if IsHTML(text) {
		md, err := p.Convert(text)
		if err != nil {
			return "", err
		}
		out = md
	} else {
		out = html.UnescapeString(text)
	}

	out = strings.ReplaceAll(out, "\r\n", "\n")
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	out = blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(out), nil
}

// Convert transforms HTML content into Markdown.
func (p *Processor) Convert(htmlContent string) (string, error) {
	if htmlContent == "" {
		return "", nil
	}

	markdown, err := htmltomarkdown.ConvertString(htmlContent)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(markdown), nil
}

// ExtractTitle derives a title: the HTML <title> or first <h1>, a leading
// Markdown heading, or else the first non-empty line, shortened to
// MaxTitleLength runes.
func (p *Processor) ExtractTitle(content string) string {
	if IsHTML(content) {
		if title := htmlTitle(content); title != "" {
			return title
		}
		md, err := p.Convert(content)
		if err != nil {
			return ""
		}
		content = md
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := heading.FindStringSubmatch(line); m != nil {
			line = m[1]
		}
		return shorten(line)
	}
	return ""
}

// htmlTitle returns the <title> text, falling back to the first <h1>.
func htmlTitle(content string) string {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return ""
	}

	var title, h1 string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if title == "" {
					title = textOf(n)
				}
			case "h1":
				if h1 == "" {
					h1 = textOf(n)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if title = strings.TrimSpace(title); title != "" {
		return title
	}
	return strings.TrimSpace(h1)
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func shorten(s string) string {
	if utf8.RuneCountInString(s) <= MaxTitleLength {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:MaxTitleLength-3])) + "..."
}
