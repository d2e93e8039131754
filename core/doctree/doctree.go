// Package doctree provides the markup-tree operations the citation
// engine needs: XPath selection, whole-subtree text access, in-place
// node splicing, and fragment reparsing.
//
// Nodes are xmlquery nodes. Splice exists because the tree API has no
// replace-by-reference primitive: replacing a node's content in place
// keeps every ancestor reference valid.
package doctree

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// Document represents a parsed XML document.
type Document struct {
	root *xmlquery.Node
}

// Parse parses XML data and returns a Document.
func Parse(data []byte) (*Document, error) {
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}
	return &Document{root: root}, nil
}

// Root returns the document node.
func (d *Document) Root() *xmlquery.Node {
	return d.root
}

// QueryAll executes an XPath query and returns all matching nodes.
func (d *Document) QueryAll(expr string) ([]*xmlquery.Node, error) {
	if _, err := xpath.Compile(expr); err != nil {
		return nil, fmt.Errorf("invalid xpath: %w", err)
	}
	nodes, err := xmlquery.QueryAll(d.root, expr)
	if err != nil {
		return nil, fmt.Errorf("xpath query failed: %w", err)
	}
	return nodes, nil
}

// Query executes an XPath query and returns the first matching node,
// or nil when nothing matches.
func (d *Document) Query(expr string) (*xmlquery.Node, error) {
	if _, err := xpath.Compile(expr); err != nil {
		return nil, fmt.Errorf("invalid xpath: %w", err)
	}
	node, err := xmlquery.Query(d.root, expr)
	if err != nil {
		return nil, fmt.Errorf("xpath query failed: %w", err)
	}
	return node, nil
}

// Serialize converts the document back to XML bytes.
func (d *Document) Serialize() []byte {
	if d.root == nil {
		return nil
	}
	return []byte(d.root.OutputXML(true))
}

// FullText returns the concatenated text of the node and all its
// descendants in document order, with no separators inserted.
func FullText(n *xmlquery.Node) string {
	if n == nil {
		return ""
	}
	return n.InnerText()
}

// Serialize returns the markup of a single node and its subtree.
func Serialize(n *xmlquery.Node) string {
	if n == nil {
		return ""
	}
	return n.OutputXML(true)
}

// TransformText applies f to every text chunk in the subtree rooted at
// n, in document order.
func TransformText(n *xmlquery.Node, f func(string) string) {
	if n == nil {
		return
	}
	if n.Type == xmlquery.TextNode || n.Type == xmlquery.CharDataNode {
		n.Data = f(n.Data)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		TransformText(child, f)
	}
}

// Splice replaces target's name, attributes, and children with
// source's, in place. target keeps its parent and sibling links, so
// references held by ancestors stay valid and now observe the new
// content. source is left childless and must be treated as scratch.
func Splice(target, source *xmlquery.Node) {
	target.Type = source.Type
	target.Data = source.Data
	target.Prefix = source.Prefix
	target.NamespaceURI = source.NamespaceURI
	target.Attr = append([]xmlquery.Attr(nil), source.Attr...)

	for child := target.FirstChild; child != nil; {
		next := child.NextSibling
		child.Parent = nil
		child.PrevSibling = nil
		child.NextSibling = nil
		child = next
	}

	for child := source.FirstChild; child != nil; child = child.NextSibling {
		child.Parent = target
	}
	target.FirstChild = source.FirstChild
	target.LastChild = source.LastChild
	source.FirstChild = nil
	source.LastChild = nil
}

// Clone returns a detached deep copy of n.
func Clone(n *xmlquery.Node) *xmlquery.Node {
	c := &xmlquery.Node{
		Type:         n.Type,
		Data:         n.Data,
		Prefix:       n.Prefix,
		NamespaceURI: n.NamespaceURI,
		Attr:         append([]xmlquery.Attr(nil), n.Attr...),
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		AppendChild(c, Clone(child))
	}
	return c
}

// AppendChild links child as the last child of parent. child must be
// detached.
func AppendChild(parent, child *xmlquery.Node) {
	child.Parent = parent
	child.NextSibling = nil
	if parent.LastChild == nil {
		parent.FirstChild = child
		child.PrevSibling = nil
	} else {
		parent.LastChild.NextSibling = child
		child.PrevSibling = parent.LastChild
	}
	parent.LastChild = child
}

// Unwrap replaces n with its children in the parent's child list. Text
// split across n's boundary becomes contiguous again at the parent
// level. n must have a parent; n itself is detached.
func Unwrap(n *xmlquery.Node) {
	parent := n.Parent
	if parent == nil {
		return
	}
	first, last := n.FirstChild, n.LastChild
	prev, next := n.PrevSibling, n.NextSibling

	for child := first; child != nil; child = child.NextSibling {
		child.Parent = parent
	}

	if first == nil {
		// Childless: just drop n from the chain.
		if prev != nil {
			prev.NextSibling = next
		} else {
			parent.FirstChild = next
		}
		if next != nil {
			next.PrevSibling = prev
		} else {
			parent.LastChild = prev
		}
	} else {
		first.PrevSibling = prev
		if prev != nil {
			prev.NextSibling = first
		} else {
			parent.FirstChild = first
		}
		last.NextSibling = next
		if next != nil {
			next.PrevSibling = last
		} else {
			parent.LastChild = last
		}
	}

	n.Parent = nil
	n.PrevSibling = nil
	n.NextSibling = nil
	n.FirstChild = nil
	n.LastChild = nil
}

// ParseFragment parses serialized markup as a detached node. The
// fragment may use namespace prefixes that are declared higher up in
// the source document; nsdecls supplies prefix to URI bindings for
// them. The fragment's root element is returned.
func ParseFragment(markup string, nsdecls map[string]string) (*xmlquery.Node, error) {
	var b strings.Builder
	b.WriteString("<fragment")
	prefixes := make([]string, 0, len(nsdecls))
	for prefix := range nsdecls {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	for _, prefix := range prefixes {
		fmt.Fprintf(&b, " xmlns:%s=%q", prefix, nsdecls[prefix])
	}
	b.WriteString(">")
	b.WriteString(markup)
	b.WriteString("</fragment>")

	doc, err := xmlquery.Parse(strings.NewReader(b.String()))
	if err != nil {
		return nil, fmt.Errorf("parsing fragment: %w", err)
	}

	wrapper := firstElement(doc)
	if wrapper == nil {
		return nil, fmt.Errorf("parsing fragment: no content")
	}
	root := firstElement(wrapper)
	if root == nil {
		return nil, fmt.Errorf("parsing fragment: no root element")
	}
	root.Parent = nil
	root.PrevSibling = nil
	root.NextSibling = nil
	return root, nil
}

func firstElement(n *xmlquery.Node) *xmlquery.Node {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			return child
		}
	}
	return nil
}
