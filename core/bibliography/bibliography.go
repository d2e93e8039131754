// Package bibliography tracks citation and reference labels found in a
// document and assigns each distinct label a stable sequence number.
//
// Sequence numbers start at 1 and reflect first-sighting order only:
// depending on the order policy, a label is numbered the first time it
// is cited or the first time its reference entry is seen. Numbers are
// never reassigned or reused.
package bibliography

import (
	"sort"

	cerrors "github.com/FocuswithJustin/excite/core/errors"
)

// OrderPolicy selects which first sighting assigns a label its number.
type OrderPolicy int

const (
	// OrderCitationFirst numbers labels in the order they are first cited.
	OrderCitationFirst OrderPolicy = iota
	// OrderReferenceFirst numbers labels in the order their reference
	// entries first appear.
	OrderReferenceFirst
)

// String returns the wire form of the policy ("citation-first" etc).
func (p OrderPolicy) String() string {
	switch p {
	case OrderCitationFirst:
		return "citation-first"
	case OrderReferenceFirst:
		return "reference-first"
	}
	return "unknown"
}

// OrderPolicies lists the supported policy names in wire form.
var OrderPolicies = []string{"citation-first", "reference-first"}

// ParseOrderPolicy parses the wire form of an order policy.
func ParseOrderPolicy(s string) (OrderPolicy, error) {
	switch s {
	case "citation-first":
		return OrderCitationFirst, nil
	case "reference-first":
		return OrderReferenceFirst, nil
	}
	return 0, cerrors.NewUnsupported("order policy", s)
}

// Entry is a numbered reference entry.
type Entry struct {
	Label   string
	Index   int
	Content any
}

// Bibliography records citation occurrences and reference content for a
// single processing pass. It is built once during the scan, read-only
// afterwards, and not safe for concurrent use.
type Bibliography struct {
	policy     OrderPolicy
	order      map[string]int
	next       int
	citations  []string
	references map[string]any
}

// New creates an empty bibliography using the given order policy.
func New(policy OrderPolicy) *Bibliography {
	return &Bibliography{
		policy:     policy,
		order:      make(map[string]int),
		next:       1,
		citations:  make([]string, 0),
		references: make(map[string]any),
	}
}

// Policy returns the order policy the bibliography was created with.
func (b *Bibliography) Policy() OrderPolicy {
	return b.policy
}

// AddCitation records one citation occurrence of label. Duplicates are
// expected; a label cited N times is recorded N times. Under the
// citation-first policy the label receives its sequence number on the
// first call.
func (b *Bibliography) AddCitation(label string) {
	b.citations = append(b.citations, label)
	if b.policy == OrderCitationFirst {
		b.maybeAssign(label)
	}
}

// AddReference stores the reference content for label. At most one
// reference may exist per label; a second call for the same label
// returns a DuplicateReferenceError regardless of content. Under the
// reference-first policy the label receives its sequence number here.
func (b *Bibliography) AddReference(label string, content any) error {
	if _, exists := b.references[label]; exists {
		return &DuplicateReferenceError{Label: label}
	}
	b.references[label] = content
	if b.policy == OrderReferenceFirst {
		b.maybeAssign(label)
	}
	return nil
}

// maybeAssign gives label the next sequence number unless it has one.
func (b *Bibliography) maybeAssign(label string) {
	if _, ok := b.order[label]; ok {
		return
	}
	b.order[label] = b.next
	b.next++
}

// IndexOf returns the sequence number assigned to label. The label must
// have been ordered during the scan pass; an unknown label is a
// caller error and reported as not-found.
func (b *Bibliography) IndexOf(label string) (int, error) {
	idx, ok := b.order[label]
	if !ok {
		return 0, cerrors.NewNotFound("label", label)
	}
	return idx, nil
}

// EntryByIndex returns the entry whose assigned number equals index.
// index must lie in [1, Count()].
func (b *Bibliography) EntryByIndex(index int) (Entry, error) {
	if index < 1 || index > b.Count() {
		return Entry{}, &cerrors.ValidationError{
			Field:   "index",
			Message: "sequence number out of range",
		}
	}
	for label, idx := range b.order {
		if idx == index {
			return Entry{Label: label, Index: index, Content: b.references[label]}, nil
		}
	}
	return Entry{}, cerrors.NewNotFound("entry", "")
}

// Citations returns the citation occurrences in scan order, duplicates
// included.
func (b *Bibliography) Citations() []string {
	out := make([]string, len(b.citations))
	copy(out, b.citations)
	return out
}

// Labels returns the ordered labels sorted by their sequence number.
func (b *Bibliography) Labels() []string {
	labels := make([]string, 0, len(b.order))
	for label := range b.order {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		return b.order[labels[i]] < b.order[labels[j]]
	})
	return labels
}

// IsConsistent reports whether the set of distinct cited labels equals
// the set of referenced labels. Citation duplicates are irrelevant.
// Intended to be called after a full scan pass.
func (b *Bibliography) IsConsistent() bool {
	return len(b.Missing()) == 0 && len(b.Uncited()) == 0
}

// Missing returns the labels that were cited but never referenced,
// sorted for deterministic reporting.
func (b *Bibliography) Missing() []string {
	seen := make(map[string]bool)
	var missing []string
	for _, label := range b.citations {
		if seen[label] {
			continue
		}
		seen[label] = true
		if _, ok := b.references[label]; !ok {
			missing = append(missing, label)
		}
	}
	sort.Strings(missing)
	return missing
}

// Uncited returns the labels that have a reference entry but were never
// cited, sorted.
func (b *Bibliography) Uncited() []string {
	cited := make(map[string]bool)
	for _, label := range b.citations {
		cited[label] = true
	}
	var uncited []string
	for label := range b.references {
		if !cited[label] {
			uncited = append(uncited, label)
		}
	}
	sort.Strings(uncited)
	return uncited
}

// Count returns the number of distinct ordered or referenced labels.
// For a consistent bibliography the two are equal; the max is a guard
// against reading a partially built table.
func (b *Bibliography) Count() int {
	if len(b.order) > len(b.references) {
		return len(b.order)
	}
	return len(b.references)
}
