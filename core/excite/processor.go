// Package excite implements the citation-processing engine: one scan
// pass over a document's text-bearing nodes builds a bibliography,
// a consistency check validates it, and two rewrite passes substitute
// citation markers and bibliography-entry markers with rendered text.
//
// The passes never interleave reads and writes: the scan completes
// before validation, and no node is mutated until validation passes.
// On any error the document is left untouched.
package excite

import (
	"fmt"

	"github.com/antchfx/xmlquery"

	"github.com/FocuswithJustin/excite/core/bibliography"
	"github.com/FocuswithJustin/excite/core/doctree"
	"github.com/FocuswithJustin/excite/core/marker"
	"github.com/FocuswithJustin/excite/core/render"
)

// Options configures one processing run. Styles and policy must come
// from the Parse functions of their packages; the CLI validates them
// before any scanning starts.
type Options struct {
	CitationStyle  render.CitationStyle
	ReferenceStyle render.ReferenceStyle
	Order          bibliography.OrderPolicy
	// Superscript describes the inline span markup for superscript
	// citations; supplied by the document adapter.
	Superscript render.SuperscriptMarkup
	// Namespaces maps the prefix bindings of the source document, used
	// when rewritten node markup is reparsed.
	Namespaces map[string]string
}

// Report summarizes a completed processing run.
type Report struct {
	// Labels is the number of distinct labels in the bibliography.
	Labels int
	// Citations is the total number of citation marker occurrences.
	Citations int
	// References is the number of bibliography entries rewritten.
	References int
}

// Process rewrites every citation and bibliography-entry marker in the
// given node sequence. Nodes must be supplied in document order.
//
// Failure modes: a *bibliography.DuplicateReferenceError when a label's
// entry is defined twice, a *bibliography.MissingReferenceError when
// the cited and referenced label sets differ. In both cases no node
// has been mutated.
func Process(nodes []*xmlquery.Node, opts Options) (*Report, error) {
	bib, citeNodes, refNodes, err := scan(nodes, opts.Order)
	if err != nil {
		return nil, err
	}

	if !bib.IsConsistent() {
		return nil, &bibliography.MissingReferenceError{
			Missing: bib.Missing(),
			Uncited: bib.Uncited(),
		}
	}

	renderer := render.Renderer{
		Citation:    opts.CitationStyle,
		Reference:   opts.ReferenceStyle,
		Superscript: opts.Superscript,
	}

	if err := rewriteCitations(citeNodes, bib, renderer, opts.Namespaces); err != nil {
		return nil, err
	}
	if err := rewriteReferences(refNodes, bib, renderer); err != nil {
		return nil, err
	}

	return &Report{
		Labels:     bib.Count(),
		Citations:  len(bib.Citations()),
		References: len(refNodes),
	}, nil
}

// scan visits every node once, building the bibliography and the two
// node lists in encounter order. A node may carry citation markers, a
// bib-item marker, or both; a node with both lands in both lists.
func scan(nodes []*xmlquery.Node, policy bibliography.OrderPolicy) (*bibliography.Bibliography, []*xmlquery.Node, []*xmlquery.Node, error) {
	bib := bibliography.New(policy)
	var citeNodes, refNodes []*xmlquery.Node

	for _, node := range nodes {
		text := doctree.FullText(node)

		if labels := marker.Citations(text); len(labels) > 0 {
			citeNodes = append(citeNodes, node)
			for _, label := range labels {
				bib.AddCitation(label)
			}
		}

		if item, ok := marker.FindBibItem(text); ok {
			refNodes = append(refNodes, node)
			if err := bib.AddReference(item.Label, node); err != nil {
				return nil, nil, nil, err
			}
		}
	}

	return bib, citeNodes, refNodes, nil
}

// rewriteCitations substitutes every citation marker in each node. The
// node is serialized, the substitution is applied to the markup string,
// and the result is reparsed and spliced back. Going through the
// serialized form lets one mechanism handle markers split across text
// and tail content and lets the superscript style insert an inline
// element.
func rewriteCitations(nodes []*xmlquery.Node, bib *bibliography.Bibliography, renderer render.Renderer, nsdecls map[string]string) error {
	for _, node := range nodes {
		var lookupErr error
		replaced := marker.ReplaceCitations(doctree.Serialize(node), func(label string) string {
			index, err := bib.IndexOf(label)
			if err != nil {
				lookupErr = err
				return ""
			}
			return renderer.RenderCitation(index)
		})
		if lookupErr != nil {
			return lookupErr
		}

		fragment, err := doctree.ParseFragment(replaced, nsdecls)
		if err != nil {
			return fmt.Errorf("reparsing rewritten citation node: %w", err)
		}
		doctree.Splice(node, fragment)
	}
	return nil
}

// rewriteReferences renders every entry by its assigned sequence
// number, then splices the rendered nodes onto the reference-bearing
// nodes in encounter order. Rendering completes before any splice so a
// later entry's source content cannot be clobbered by an earlier
// splice; this two-phase shape is what lets the printed bibliography
// order follow the numbering policy even when it disagrees with the
// entries' document order.
func rewriteReferences(refNodes []*xmlquery.Node, bib *bibliography.Bibliography, renderer render.Renderer) error {
	count := bib.Count()
	if count != len(refNodes) {
		return fmt.Errorf("bibliography holds %d entries but %d reference nodes were scanned", count, len(refNodes))
	}

	rendered := make([]*xmlquery.Node, 0, count)
	for i := 1; i <= count; i++ {
		entry, err := bib.EntryByIndex(i)
		if err != nil {
			return err
		}
		content, ok := entry.Content.(*xmlquery.Node)
		if !ok {
			return fmt.Errorf("reference %q carries no node content", entry.Label)
		}

		clone := doctree.Clone(content)
		prefix := renderer.RenderReferencePrefix(i)
		doctree.TransformText(clone, func(text string) string {
			return marker.ReplaceBibItem(text, entry.Label, prefix)
		})
		rendered = append(rendered, clone)
	}

	for i, node := range refNodes {
		doctree.Splice(node, rendered[i])
	}
	return nil
}
