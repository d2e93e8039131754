package bibliography

import (
	"errors"
	"reflect"
	"testing"

	cerrors "github.com/FocuswithJustin/excite/core/errors"
)

func TestParseOrderPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    OrderPolicy
		wantErr bool
	}{
		{"citation-first", OrderCitationFirst, false},
		{"reference-first", OrderReferenceFirst, false},
		{"alphabetical", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOrderPolicy(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseOrderPolicy(%q) should fail", tt.in)
				}
				if !errors.Is(err, cerrors.ErrUnsupported) {
					t.Errorf("error should unwrap to ErrUnsupported, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOrderPolicy(%q) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseOrderPolicy(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

// TestCitationFirstOrdering verifies that citation-first numbering
// follows first-citation document order, not reference order.
func TestCitationFirstOrdering(t *testing.T) {
	b := New(OrderCitationFirst)
	b.AddCitation("b")
	b.AddCitation("a")
	b.AddCitation("b")
	if err := b.AddReference("a", "Text A"); err != nil {
		t.Fatalf("AddReference(a) failed: %v", err)
	}
	if err := b.AddReference("b", "Text B"); err != nil {
		t.Fatalf("AddReference(b) failed: %v", err)
	}

	wantIndex := map[string]int{"b": 1, "a": 2}
	for label, want := range wantIndex {
		got, err := b.IndexOf(label)
		if err != nil {
			t.Fatalf("IndexOf(%q) failed: %v", label, err)
		}
		if got != want {
			t.Errorf("IndexOf(%q) = %d, want %d", label, got, want)
		}
	}
	if got := b.Labels(); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("Labels() = %v, want [b a]", got)
	}
}

// TestReferenceFirstOrdering verifies the same law keyed on the order
// reference entries appear.
func TestReferenceFirstOrdering(t *testing.T) {
	b := New(OrderReferenceFirst)
	b.AddCitation("b")
	b.AddCitation("a")
	b.AddCitation("b")
	if err := b.AddReference("a", "Text A"); err != nil {
		t.Fatalf("AddReference(a) failed: %v", err)
	}
	if err := b.AddReference("b", "Text B"); err != nil {
		t.Fatalf("AddReference(b) failed: %v", err)
	}

	wantIndex := map[string]int{"a": 1, "b": 2}
	for label, want := range wantIndex {
		got, err := b.IndexOf(label)
		if err != nil {
			t.Fatalf("IndexOf(%q) failed: %v", label, err)
		}
		if got != want {
			t.Errorf("IndexOf(%q) = %d, want %d", label, got, want)
		}
	}
}

// TestOrderIsGapless verifies numbers form a permutation of 1..Count.
func TestOrderIsGapless(t *testing.T) {
	b := New(OrderCitationFirst)
	labels := []string{"zeta", "alpha", "mid", "alpha", "zeta", "omega"}
	for _, l := range labels {
		b.AddCitation(l)
	}
	for _, l := range []string{"alpha", "mid", "omega", "zeta"} {
		if err := b.AddReference(l, l); err != nil {
			t.Fatalf("AddReference(%q) failed: %v", l, err)
		}
	}

	if b.Count() != 4 {
		t.Fatalf("Count() = %d, want 4", b.Count())
	}
	seen := make(map[int]string)
	for _, label := range b.Labels() {
		idx, err := b.IndexOf(label)
		if err != nil {
			t.Fatalf("IndexOf(%q) failed: %v", label, err)
		}
		if idx < 1 || idx > b.Count() {
			t.Errorf("index %d for %q out of range 1..%d", idx, label, b.Count())
		}
		if prev, dup := seen[idx]; dup {
			t.Errorf("index %d assigned to both %q and %q", idx, prev, label)
		}
		seen[idx] = label
	}
	if len(seen) != b.Count() {
		t.Errorf("order has gaps: %d distinct indexes for Count %d", len(seen), b.Count())
	}
}

// TestDuplicateReference verifies the duplicate law: a second
// AddReference for the same label always fails, even with equal or
// different content, and nothing is overwritten.
func TestDuplicateReference(t *testing.T) {
	for _, content := range []string{"same content", "different content"} {
		t.Run(content, func(t *testing.T) {
			b := New(OrderReferenceFirst)
			if err := b.AddReference("smith2020", "same content"); err != nil {
				t.Fatalf("first AddReference failed: %v", err)
			}
			err := b.AddReference("smith2020", content)
			if err == nil {
				t.Fatal("second AddReference should fail")
			}
			var dup *DuplicateReferenceError
			if !errors.As(err, &dup) {
				t.Fatalf("error should be DuplicateReferenceError, got %T", err)
			}
			if dup.Label != "smith2020" {
				t.Errorf("Label = %q, want smith2020", dup.Label)
			}
			if !errors.Is(err, cerrors.ErrAlreadyExists) {
				t.Errorf("error should unwrap to ErrAlreadyExists")
			}

			entry, err := b.EntryByIndex(1)
			if err != nil {
				t.Fatalf("EntryByIndex(1) failed: %v", err)
			}
			if entry.Content != "same content" {
				t.Errorf("content overwritten: %v", entry.Content)
			}
		})
	}
}

func TestConsistency(t *testing.T) {
	tests := []struct {
		name        string
		citations   []string
		references  []string
		consistent  bool
		wantMissing []string
		wantUncited []string
	}{
		{
			name:       "matching sets",
			citations:  []string{"a", "b", "a"},
			references: []string{"a", "b"},
			consistent: true,
		},
		{
			name:        "cited but not referenced",
			citations:   []string{"x", "y"},
			references:  []string{"y"},
			consistent:  false,
			wantMissing: []string{"x"},
		},
		{
			name:        "referenced but not cited",
			citations:   []string{"a"},
			references:  []string{"a", "stray"},
			consistent:  false,
			wantUncited: []string{"stray"},
		},
		{
			name:       "cited twice referenced once is consistent",
			citations:  []string{"a", "a"},
			references: []string{"a"},
			consistent: true,
		},
		{
			name:       "empty document",
			consistent: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(OrderCitationFirst)
			for _, c := range tt.citations {
				b.AddCitation(c)
			}
			for _, r := range tt.references {
				if err := b.AddReference(r, r); err != nil {
					t.Fatalf("AddReference(%q) failed: %v", r, err)
				}
			}
			if got := b.IsConsistent(); got != tt.consistent {
				t.Errorf("IsConsistent() = %v, want %v", got, tt.consistent)
			}
			if got := b.Missing(); !equalOrEmpty(got, tt.wantMissing) {
				t.Errorf("Missing() = %v, want %v", got, tt.wantMissing)
			}
			if got := b.Uncited(); !equalOrEmpty(got, tt.wantUncited) {
				t.Errorf("Uncited() = %v, want %v", got, tt.wantUncited)
			}
		})
	}
}

func equalOrEmpty(got, want []string) bool {
	if len(got) == 0 && len(want) == 0 {
		return true
	}
	return reflect.DeepEqual(got, want)
}

func TestIndexOfUnknownLabel(t *testing.T) {
	b := New(OrderCitationFirst)
	b.AddCitation("known")
	_, err := b.IndexOf("unknown")
	if err == nil {
		t.Fatal("IndexOf for unordered label should fail")
	}
	if !errors.Is(err, cerrors.ErrNotFound) {
		t.Errorf("error should unwrap to ErrNotFound, got %v", err)
	}
}

func TestEntryByIndex(t *testing.T) {
	b := New(OrderReferenceFirst)
	if err := b.AddReference("first", "Entry one"); err != nil {
		t.Fatalf("AddReference failed: %v", err)
	}
	if err := b.AddReference("second", "Entry two"); err != nil {
		t.Fatalf("AddReference failed: %v", err)
	}
	b.AddCitation("first")
	b.AddCitation("second")

	entry, err := b.EntryByIndex(2)
	if err != nil {
		t.Fatalf("EntryByIndex(2) failed: %v", err)
	}
	if entry.Label != "second" || entry.Index != 2 || entry.Content != "Entry two" {
		t.Errorf("EntryByIndex(2) = %+v, unexpected values", entry)
	}

	for _, idx := range []int{0, -1, 3} {
		if _, err := b.EntryByIndex(idx); err == nil {
			t.Errorf("EntryByIndex(%d) should fail", idx)
		}
	}
}

func TestCitationsPreservesDuplicates(t *testing.T) {
	b := New(OrderCitationFirst)
	for _, l := range []string{"a", "b", "a", "a"} {
		b.AddCitation(l)
	}
	got := b.Citations()
	want := []string{"a", "b", "a", "a"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Citations() = %v, want %v", got, want)
	}
}

// TestCountDefensive verifies Count uses the larger of the two tables
// when the bibliography is inconsistent.
func TestCountDefensive(t *testing.T) {
	b := New(OrderCitationFirst)
	if err := b.AddReference("uncited1", ""); err != nil {
		t.Fatalf("AddReference failed: %v", err)
	}
	if err := b.AddReference("uncited2", ""); err != nil {
		t.Fatalf("AddReference failed: %v", err)
	}
	b.AddCitation("onlycited")
	// order has 1 entry (citation-first), references 2.
	if got := b.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
}
