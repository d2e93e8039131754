package excite

import (
	"sort"

	"github.com/antchfx/xmlquery"

	"github.com/FocuswithJustin/excite/core/bibliography"
	"github.com/FocuswithJustin/excite/core/doctree"
	"github.com/FocuswithJustin/excite/core/marker"
)

// LabelInfo describes one label seen during a survey.
type LabelInfo struct {
	Label string `json:"label"`
	// Index is the assigned sequence number, or 0 when the label was
	// never ordered under the chosen policy.
	Index         int    `json:"index,omitempty"`
	Citations     int    `json:"citations"`
	HasReference  bool   `json:"has_reference"`
	ReferenceText string `json:"reference_text,omitempty"`
}

// Survey is a read-only report over a document's markers. Unlike
// Process it mutates nothing and records problems instead of failing,
// so a broken document can still be examined.
type Survey struct {
	Policy        string      `json:"order_policy"`
	Labels        []LabelInfo `json:"labels"`
	CitationTotal int         `json:"citation_total"`
	Missing       []string    `json:"missing,omitempty"`
	Uncited       []string    `json:"uncited,omitempty"`
	Duplicates    []string    `json:"duplicates,omitempty"`
	Consistent    bool        `json:"consistent"`
}

// Inspect scans the node sequence the same way Process does but only
// reports what it finds. Duplicate reference entries are collected
// rather than fatal; the first entry per label wins, as in Process.
func Inspect(nodes []*xmlquery.Node, policy bibliography.OrderPolicy) *Survey {
	bib := bibliography.New(policy)
	citeCounts := make(map[string]int)
	refTexts := make(map[string]string)
	var duplicates []string

	for _, node := range nodes {
		text := doctree.FullText(node)

		for _, label := range marker.Citations(text) {
			bib.AddCitation(label)
			citeCounts[label]++
		}

		if item, ok := marker.FindBibItem(text); ok {
			if err := bib.AddReference(item.Label, node); err != nil {
				duplicates = append(duplicates, item.Label)
				continue
			}
			refTexts[item.Label] = item.Text
		}
	}
	sort.Strings(duplicates)

	survey := &Survey{
		Policy:        policy.String(),
		CitationTotal: len(bib.Citations()),
		Missing:       bib.Missing(),
		Uncited:       bib.Uncited(),
		Duplicates:    duplicates,
		Consistent:    bib.IsConsistent() && len(duplicates) == 0,
	}

	ordered := bib.Labels()
	seen := make(map[string]bool, len(ordered))
	for _, label := range ordered {
		index, _ := bib.IndexOf(label)
		text, hasRef := refTexts[label]
		survey.Labels = append(survey.Labels, LabelInfo{
			Label:         label,
			Index:         index,
			Citations:     citeCounts[label],
			HasReference:  hasRef,
			ReferenceText: text,
		})
		seen[label] = true
	}

	// Labels the policy never ordered (e.g. uncited entries under
	// citation-first) are appended alphabetically with index 0.
	var unordered []string
	for label := range citeCounts {
		if !seen[label] {
			unordered = append(unordered, label)
		}
	}
	for label := range refTexts {
		if !seen[label] && citeCounts[label] == 0 {
			unordered = append(unordered, label)
		}
	}
	sort.Strings(unordered)
	for _, label := range unordered {
		text, hasRef := refTexts[label]
		survey.Labels = append(survey.Labels, LabelInfo{
			Label:         label,
			Citations:     citeCounts[label],
			HasReference:  hasRef,
			ReferenceText: text,
		})
	}

	return survey
}
