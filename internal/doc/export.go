// internal/doc/export.go
package doc

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"
)

// ExportXHTML renders a document tree as standalone XHTML. The chrome
// geometry provider measures this rendering, so the markup keeps covered
// cells in the tree with the same visibility semantics the engine assumes:
// hideMode none removes the cell from layout flow, hideMode hidden keeps its
// slot but blanks it.
func ExportXHTML(root *Node, cellWidth float64) (string, error) {
	d := etree.NewDocument()
	d.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	htmlEl := d.CreateElement("html")
	head := htmlEl.CreateElement("head")
	style := head.CreateElement("style")
	style.SetText(fmt.Sprintf(
		"table{border-collapse:collapse}td,th{width:%.0fpx;vertical-align:top;border:1px solid #999;padding:0}p{margin:0}",
		cellWidth))
	body := htmlEl.CreateElement("body")
	if err := exportNode(body, root); err != nil {
		return "", err
	}
	// No indentation: injected whitespace would become text nodes that shift
	// the geometry probe's stream offsets.
	return d.WriteToString()
}

// ExportCellXHTML renders a single cell's content in isolation, the unit the
// geometry provider measures.
func ExportCellXHTML(cell *Node, cellWidth float64) (string, error) {
	wrapper := NewNode(KindDoc, NewNode(KindTable, NewNode(KindSection, NewNode(KindRow, cell.Clone()))))
	return ExportXHTML(wrapper, cellWidth)
}

func exportNode(parent *etree.Element, n *Node) error {
	switch Classify(n) {
	case RoleTable:
		el := parent.CreateElement("table")
		return exportChildren(el, n)
	case RoleRow:
		el := parent.CreateElement("tr")
		return exportChildren(el, n)
	case RoleCell, RoleHeaderCell:
		if n.Attrs.MergedTo != "" && n.Attrs.HideMode == HideModeNone {
			return nil
		}
		tag := "td"
		if Classify(n) == RoleHeaderCell {
			tag = "th"
		}
		el := parent.CreateElement(tag)
		if s := n.Attrs.EffectiveColSpan(); s > 1 {
			el.CreateAttr("colspan", strconv.Itoa(s))
		}
		if s := n.Attrs.EffectiveRowSpan(); s > 1 {
			el.CreateAttr("rowspan", strconv.Itoa(s))
		}
		if n.Attrs.MergedTo != "" && n.Attrs.HideMode == HideModeHidden {
			el.CreateAttr("style", "visibility:hidden")
		}
		return exportChildren(el, n)
	}
	switch n.Kind {
	case KindDoc, KindSection:
		return exportChildren(parent, n)
	case KindParagraph:
		el := parent.CreateElement("p")
		return exportChildren(el, n)
	case KindText:
		parent.CreateCharData(n.Text)
		return nil
	case KindHardBreak:
		parent.CreateElement("br")
		return nil
	default:
		// Unknown kinds export as opaque blocks so measurement still sees
		// something occupying space.
		el := parent.CreateElement("div")
		return exportChildren(el, n)
	}
}

func exportChildren(el *etree.Element, n *Node) error {
	for _, c := range n.Children {
		if err := exportNode(el, c); err != nil {
			return err
		}
	}
	return nil
}
