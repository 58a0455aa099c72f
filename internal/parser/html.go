package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/ismsdoc/internal/doctree"
	"golang.org/x/net/html"
)

// HTMLParser handles HTML files.
type HTMLParser struct {
	Options
}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	profile := p.profile()
	b := newBuilder(profile)
	title := findTitle(doc)
	firstH1 := ""

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				t := textContent(n)
				if level == 1 && firstH1 == "" {
					firstH1 = t
				}
				b.heading(t, level, attr(n, "id"))
				return
			}

			// Skip non-content elements.
			switch n.Data {
			case "script", "style", "nav", "footer", "header", "head":
				return
			case "p", "blockquote", "pre":
				runs := htmlRuns(n, doctree.Run{})
				b.paragraph(runsText(runs), runs)
				return
			case "ul", "ol":
				kind := doctree.KindBulletList
				if n.Data == "ol" {
					kind = doctree.KindNumberedList
				}
				htmlList(b, n, kind)
				return
			case "table":
				if b.table(htmlGrid(n)) {
					if c := findElement(n, "caption"); c != nil {
						b.caption(textContent(c))
					}
				}
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	// Find <body> or use whole document.
	if body := findElement(doc, "body"); body != nil {
		walk(body)
	} else {
		walk(doc)
	}

	switch {
	case title != "":
	case firstH1 != "":
		title = firstH1
	default:
		title = stem(filename)
	}
	return b.document(DefaultMetadata(title, p.DocType), profile)
}

// htmlList adds every li of a list; nested lists join the same block.
func htmlList(b *builder, list *html.Node, kind doctree.BlockKind) {
	for li := list.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}
		var nested []*html.Node
		var runs []doctree.Run
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
				nested = append(nested, c)
				continue
			}
			runs = append(runs, nodeRuns(c, doctree.Run{})...)
		}
		b.listItem(kind, runsText(runs), runs)
		for _, n := range nested {
			htmlList(b, n, kind)
		}
	}
}

func htmlGrid(tbl *html.Node) [][]string {
	var grid [][]string
	var rows func(*html.Node)
	rows = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "tr":
				var cells []string
				for td := c.FirstChild; td != nil; td = td.NextSibling {
					if td.Type == html.ElementNode && (td.Data == "td" || td.Data == "th") {
						cells = append(cells, textContent(td))
					}
				}
				grid = append(grid, cells)
			case "thead", "tbody", "tfoot":
				rows(c)
			}
		}
	}
	rows(tbl)
	return grid
}

// htmlRuns flattens the inline markup under n into runs.
func htmlRuns(n *html.Node, state doctree.Run) []doctree.Run {
	var out []doctree.Run
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, nodeRuns(c, state)...)
	}
	return out
}

func nodeRuns(c *html.Node, state doctree.Run) []doctree.Run {
	switch c.Type {
	case html.TextNode:
		r := state
		r.Text = collapseSpace(c.Data)
		return []doctree.Run{r}
	case html.ElementNode:
		s := state
		switch c.Data {
		case "b", "strong":
			s.Bold = true
		case "i", "em":
			s.Italic = true
		case "u", "ins":
			s.Underline = true
		case "a":
			s.Hyperlink = attr(c, "href")
		case "br":
			r := state
			r.Text = "\n"
			return []doctree.Run{r}
		case "script", "style":
			return nil
		}
		return htmlRuns(c, s)
	}
	return nil
}

// collapseSpace folds runs of whitespace into one space, keeping a single
// leading or trailing space so words in neighbouring runs stay apart.
func collapseSpace(s string) string {
	if s == "" {
		return ""
	}
	inner := strings.Join(strings.Fields(s), " ")
	if inner == "" {
		return " "
	}
	if strings.TrimLeft(s, " \t\r\n") != s {
		inner = " " + inner
	}
	if strings.TrimRight(s, " \t\r\n") != s {
		inner += " "
	}
	return inner
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findTitle(n *html.Node) string {
	if t := findElement(n, "title"); t != nil {
		return textContent(t)
	}
	return ""
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}
