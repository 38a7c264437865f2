// internal/doc/htmlimport.go
package doc

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// ErrNoTable is returned when the imported markup contains no <table>.
var ErrNoTable = errors.New("doc: no table element found")

// ParseHTMLTable builds a document from the first <table> in the given HTML.
// colspan/rowspan attributes are honored; cell text becomes one paragraph per
// cell with <br> mapped to hard breaks. Nested tables are flattened into
// their cell's text.
func ParseHTMLTable(r io.Reader) (*Node, error) {
	tree, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	table := findElement(tree, "table")
	if table == nil {
		return nil, ErrNoTable
	}
	t := &Node{Kind: KindTable}
	section := &Node{Kind: KindSection}
	for tr := range iterElements(table, "tr") {
		row := &Node{Kind: KindRow}
		for _, cell := range childElements(tr, "td", "th") {
			row.Children = append(row.Children, importCell(cell))
		}
		if len(row.Children) > 0 {
			section.Children = append(section.Children, row)
		}
	}
	if len(section.Children) == 0 {
		return nil, ErrNoTable
	}
	t.Children = []*Node{section}
	return NewNode(KindDoc, t), nil
}

func importCell(el *html.Node) *Node {
	kind := KindCell
	if el.Data == "th" {
		kind = KindHeaderCell
	}
	cell := &Node{Kind: kind}
	cell.Attrs.ColSpan = intAttr(el, "colspan")
	cell.Attrs.RowSpan = intAttr(el, "rowspan")

	para := EmptyParagraph()
	flushText := func(s string) {
		if s == "" {
			return
		}
		para.Children = append(para.Children, NewText(s))
	}
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch {
			case c.Type == html.TextNode:
				flushText(strings.TrimSpace(c.Data))
			case c.Type == html.ElementNode && c.Data == "br":
				para.Children = append(para.Children, NewNode(KindHardBreak))
			case c.Type == html.ElementNode && (c.Data == "p" || c.Data == "div"):
				if len(para.Children) > 0 {
					cell.Children = append(cell.Children, para)
					para = EmptyParagraph()
				}
				visit(c)
				if len(para.Children) > 0 {
					cell.Children = append(cell.Children, para)
					para = EmptyParagraph()
				}
			default:
				visit(c)
			}
		}
	}
	visit(el)
	if len(para.Children) > 0 || len(cell.Children) == 0 {
		cell.Children = append(cell.Children, para)
	}
	return cell
}

func intAttr(el *html.Node, name string) int {
	for _, a := range el.Attr {
		if a.Key == name {
			if v, err := strconv.Atoi(strings.TrimSpace(a.Val)); err == nil && v > 1 {
				return v
			}
		}
	}
	return 0
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

// iterElements yields descendant elements with the given tag, skipping nested
// tables so an inner table's rows are not hoisted into the outer grid.
func iterElements(root *html.Node, tag string) func(func(*html.Node) bool) {
	return func(yield func(*html.Node) bool) {
		var visit func(*html.Node) bool
		visit = func(n *html.Node) bool {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && c.Data == "table" {
					continue
				}
				if c.Type == html.ElementNode && c.Data == tag {
					if !yield(c) {
						return false
					}
					continue
				}
				if !visit(c) {
					return false
				}
			}
			return true
		}
		visit(root)
	}
}

func childElements(n *html.Node, tags ...string) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		for _, t := range tags {
			if c.Data == t {
				out = append(out, c)
				break
			}
		}
	}
	return out
}
