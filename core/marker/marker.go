// Package marker locates LaTeX-style citation and bibliography-entry
// markers in node text.
//
// The grammar is fixed and matched literally with ASCII regular
// expressions: a citation marker is `\cite{label}` and a
// bibliography-entry marker is `\bibitem{label} optional text`, where
// label is one or more word characters. No LaTeX escaping or nesting is
// interpreted.
package marker

import (
	"regexp"
	"strings"
)

var (
	citePattern = regexp.MustCompile(`\\cite\{(\w+)\}`)
	bibPattern  = regexp.MustCompile(`\\bibitem\{(\w+)\} ?(.*)`)
)

// BibItem is a bibliography-entry marker found in a node's text.
type BibItem struct {
	Label string
	// Text is the entry text following the marker on the same line,
	// with surrounding whitespace trimmed.
	Text string
}

// Citations returns the labels of all citation markers in text, in
// order of occurrence. A label cited N times appears N times.
func Citations(text string) []string {
	matches := citePattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	labels := make([]string, len(matches))
	for i, m := range matches {
		labels[i] = m[1]
	}
	return labels
}

// HasCitation reports whether text contains any citation marker.
func HasCitation(text string) bool {
	return citePattern.MatchString(text)
}

// FindBibItem returns the first bibliography-entry marker in text.
// A node is expected to carry at most one; later matches are ignored.
func FindBibItem(text string) (BibItem, bool) {
	m := bibPattern.FindStringSubmatch(text)
	if m == nil {
		return BibItem{}, false
	}
	return BibItem{Label: m[1], Text: strings.TrimSpace(m[2])}, true
}

// ReplaceCitations substitutes every citation marker in text with the
// result of render applied to the marker's label. Text between markers
// is preserved untouched.
func ReplaceCitations(text string, render func(label string) string) string {
	return citePattern.ReplaceAllStringFunc(text, func(match string) string {
		label := citePattern.FindStringSubmatch(match)[1]
		return render(label)
	})
}

// ReplaceBibItem substitutes the bib-item marker for the given label
// (and the single space that separates it from the entry text, if
// present) with the rendered prefix.
func ReplaceBibItem(text, label, prefix string) string {
	pattern := regexp.MustCompile(`\\bibitem\{` + regexp.QuoteMeta(label) + `\} ?`)
	return pattern.ReplaceAllLiteralString(text, prefix)
}
