// Package render maps (style, sequence number) pairs to the final text
// or markup substituted for citation and bibliography-entry markers.
//
// Styles are closed enumerations: unknown style names are rejected by
// the Parse functions, and rendering with an enum value outside the
// defined set is a programmer error.
package render

import (
	"fmt"

	cerrors "github.com/FocuswithJustin/excite/core/errors"
)

// CitationStyle selects how an inline citation index is rendered.
type CitationStyle int

const (
	// CiteSquareBrace renders "[n]".
	CiteSquareBrace CitationStyle = iota
	// CiteSuperscript renders a style-tagged inline span wrapping n.
	CiteSuperscript
	// CiteParens renders "(n)".
	CiteParens
)

// ReferenceStyle selects the numbering prefix of a bibliography entry.
type ReferenceStyle int

const (
	// RefSquareBrace renders the "[n] " prefix.
	RefSquareBrace ReferenceStyle = iota
	// RefDigitDot renders the "n. " prefix.
	RefDigitDot
)

// CitationStyles and ReferenceStyles list the supported style names in
// wire form.
var (
	CitationStyles  = []string{"square-brace", "superscript", "parens"}
	ReferenceStyles = []string{"square-brace", "digit-dot"}
)

func (s CitationStyle) String() string {
	switch s {
	case CiteSquareBrace:
		return "square-brace"
	case CiteSuperscript:
		return "superscript"
	case CiteParens:
		return "parens"
	}
	return "unknown"
}

func (s ReferenceStyle) String() string {
	switch s {
	case RefSquareBrace:
		return "square-brace"
	case RefDigitDot:
		return "digit-dot"
	}
	return "unknown"
}

// ParseCitationStyle parses the wire form of a citation style.
func ParseCitationStyle(s string) (CitationStyle, error) {
	switch s {
	case "square-brace":
		return CiteSquareBrace, nil
	case "superscript":
		return CiteSuperscript, nil
	case "parens":
		return CiteParens, nil
	}
	return 0, cerrors.NewUnsupported("citation style", s)
}

// ParseReferenceStyle parses the wire form of a reference style.
func ParseReferenceStyle(s string) (ReferenceStyle, error) {
	switch s {
	case "square-brace":
		return RefSquareBrace, nil
	case "digit-dot":
		return RefDigitDot, nil
	}
	return 0, cerrors.NewUnsupported("reference style", s)
}

// SuperscriptMarkup describes the inline span emitted for superscript
// citations. The element and attribute names and the style identifier
// come from the target document format; this package treats them as
// opaque configuration.
type SuperscriptMarkup struct {
	Tag       string // element name, e.g. "sf:span"
	StyleAttr string // style attribute name, e.g. "sf:style"
	StyleID   string // document style identifier the span points at
}

// Renderer renders citation indexes and reference prefixes for one
// fixed style configuration.
type Renderer struct {
	Citation    CitationStyle
	Reference   ReferenceStyle
	Superscript SuperscriptMarkup
}

// RenderCitation returns the text or markup replacing one citation
// marker with the given sequence number.
func (r Renderer) RenderCitation(index int) string {
	switch r.Citation {
	case CiteSquareBrace:
		return fmt.Sprintf("[%d]", index)
	case CiteParens:
		return fmt.Sprintf("(%d)", index)
	case CiteSuperscript:
		return fmt.Sprintf(`<%s %s="%s">%d</%s>`,
			r.Superscript.Tag, r.Superscript.StyleAttr, r.Superscript.StyleID, index, r.Superscript.Tag)
	}
	panic(fmt.Sprintf("render: citation style out of range: %d", int(r.Citation)))
}

// RenderReferencePrefix returns the numbering prefix substituted for a
// bibliography-entry marker. Only the marker itself is replaced; the
// rest of the entry's text stays as written.
func (r Renderer) RenderReferencePrefix(index int) string {
	switch r.Reference {
	case RefDigitDot:
		return fmt.Sprintf("%d. ", index)
	case RefSquareBrace:
		return fmt.Sprintf("[%d] ", index)
	}
	panic(fmt.Sprintf("render: reference style out of range: %d", int(r.Reference)))
}
