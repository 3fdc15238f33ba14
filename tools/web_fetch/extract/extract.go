// Package extract pulls headings and paragraph text out of an HTML document.
package extract

import (
	"bytes"
	"io"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
	"github.com/mohammad-safakhou/askweb/tools/web_fetch/models"
	"github.com/mohammad-safakhou/askweb/utils"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var headingTags = []atom.Atom{atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6}

// Parse extracts headings (grouped h1 first, then h2, ...) and non-empty <p> texts.
// When the document has no paragraphs the readability article text is used instead.
// maxChars bounds the total extracted characters; <= 0 means unbounded.
func Parse(r io.Reader, pageURL string, maxChars int) (models.Page, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return models.Page{}, err
	}
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return models.Page{}, err
	}

	page := models.Page{URL: pageURL}
	byTag := make(map[atom.Atom][]string, len(headingTags))
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			case atom.Title:
				if page.Title == "" {
					page.Title = nodeText(n)
				}
				return
			case atom.P:
				if t := nodeText(n); t != "" {
					page.Paragraphs = append(page.Paragraphs, t)
				}
			case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
				if t := nodeText(n); t != "" {
					byTag[n.DataAtom] = append(byTag[n.DataAtom], t)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, tag := range headingTags {
		page.Headings = append(page.Headings, byTag[tag]...)
	}
	if len(page.Paragraphs) == 0 {
		page.Paragraphs = readableParagraphs(raw, pageURL)
	}

	budget := maxChars
	if budget > 0 {
		page.Headings, budget = clip(page.Headings, budget)
		page.Paragraphs, _ = clip(page.Paragraphs, budget)
	}
	return page, nil
}

func readableParagraphs(raw []byte, pageURL string) []string {
	u, err := url.Parse(pageURL)
	if err != nil {
		u = &url.URL{}
	}
	article, err := readability.FromReader(bytes.NewReader(raw), u)
	if err != nil {
		return nil
	}
	var out []string
	for _, line := range strings.Split(article.TextContent, "\n") {
		if t := utils.NormalizeSpace(line); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// nodeText concatenates the text below n with whitespace collapsed, skipping scripts.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
		case n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style):
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return utils.NormalizeSpace(b.String())
}

func clip(texts []string, budget int) ([]string, int) {
	var out []string
	for _, t := range texts {
		if budget <= 0 {
			break
		}
		if n := len([]rune(t)); n > budget {
			t = utils.Truncate(t, budget)
		}
		out = append(out, t)
		budget -= len([]rune(t))
	}
	return out, budget
}
