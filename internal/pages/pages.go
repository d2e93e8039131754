// Package pages reads and writes Apple Pages documents for citation
// processing. A Pages file is a zip container whose index.xml holds the
// document tree; this package opens the container, exposes the
// paragraph nodes, and writes the rewritten tree back without touching
// the other container entries.
package pages

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/antchfx/xmlquery"

	"github.com/FocuswithJustin/excite/core/bibliography"
	"github.com/FocuswithJustin/excite/core/doctree"
	"github.com/FocuswithJustin/excite/core/errors"
	"github.com/FocuswithJustin/excite/core/excite"
	"github.com/FocuswithJustin/excite/core/render"
)

const (
	// PrimaryDocument is the zip entry holding the document tree.
	PrimaryDocument = "index.xml"
	// SuperscriptStyleID is the character style applied to superscript
	// citation indices.
	SuperscriptStyleID = "SFWPCharacterStyle-50000"
)

// Namespaces are the prefix bindings used by Pages documents.
var Namespaces = map[string]string{
	"sf":  "http://developer.apple.com/namespaces/sf",
	"sfa": "http://developer.apple.com/namespaces/sfa",
	"xsi": "http://www.w3.org/2001/XMLSchema-instance",
	"sl":  "http://developer.apple.com/namespaces/sl",
}

// Document is an opened Pages document.
type Document struct {
	path string
	tree *doctree.Document
}

// Open reads a Pages container and parses its document tree. Insertion
// points left by the editor are removed up front so marker text split
// across them reads contiguously.
func Open(path string) (*Document, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.NewParse("pages", path, err.Error())
	}
	defer zr.Close()

	var data []byte
	for _, entry := range zr.File {
		if entry.Name != PrimaryDocument {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, errors.NewIO("open", PrimaryDocument, err)
		}
		data, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, errors.NewIO("read", PrimaryDocument, err)
		}
		break
	}
	if data == nil {
		return nil, errors.NewParse("pages", path, PrimaryDocument+" missing from container")
	}

	tree, err := doctree.Parse(data)
	if err != nil {
		return nil, errors.NewParse("XML", path, err.Error())
	}

	doc := &Document{path: path, tree: tree}
	if err := doc.fixInsertionPoints(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Path returns the container path the document was opened from.
func (d *Document) Path() string {
	return d.path
}

// Tree returns the parsed document tree.
func (d *Document) Tree() *doctree.Document {
	return d.tree
}

// fixInsertionPoints removes sf:insertion-point elements. The editor
// drops one wherever the cursor sat, which can split a marker into two
// text chunks.
func (d *Document) fixInsertionPoints() error {
	points, err := d.tree.QueryAll("//sf:insertion-point")
	if err != nil {
		return err
	}
	for _, point := range points {
		doctree.Unwrap(point)
	}
	return nil
}

// TextNodes returns the body paragraphs in document order.
func (d *Document) TextNodes() ([]*xmlquery.Node, error) {
	return d.tree.QueryAll("//sf:text-body//sf:p")
}

// EnsureSuperscriptStyle makes sure the stylesheet declares the
// superscript character style, appending it when absent. Safe to call
// more than once.
func (d *Document) EnsureSuperscriptStyle() error {
	existing, err := d.tree.Query(fmt.Sprintf(`//sf:characterstyle[@sfa:ID="%s"]`, SuperscriptStyleID))
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	styles, err := d.tree.Query("//sf:anon-styles")
	if err != nil {
		return err
	}
	if styles == nil {
		return errors.NewParse("pages", d.path, "stylesheet has no sf:anon-styles section")
	}

	markup := fmt.Sprintf(
		`<sf:characterstyle sfa:ID=%q sf:parent-ident="character-style-null"><sf:property-map><sf:superscript><sf:number sfa:number="1" sfa:type="i"/></sf:superscript></sf:property-map></sf:characterstyle>`,
		SuperscriptStyleID,
	)
	style, err := doctree.ParseFragment(markup, Namespaces)
	if err != nil {
		return err
	}
	doctree.AppendChild(styles, style)
	return nil
}

// Process rewrites the document's citation and bibliography markers in
// place in the parsed tree. Call Materialize to persist the result.
func (d *Document) Process(citation render.CitationStyle, reference render.ReferenceStyle, order bibliography.OrderPolicy) (*excite.Report, error) {
	if citation == render.CiteSuperscript {
		if err := d.EnsureSuperscriptStyle(); err != nil {
			return nil, err
		}
	}

	nodes, err := d.TextNodes()
	if err != nil {
		return nil, err
	}

	return excite.Process(nodes, excite.Options{
		CitationStyle:  citation,
		ReferenceStyle: reference,
		Order:          order,
		Superscript: render.SuperscriptMarkup{
			Tag:       "sf:span",
			StyleAttr: "sf:style",
			StyleID:   SuperscriptStyleID,
		},
		Namespaces: Namespaces,
	})
}

// Materialize writes the document to out as a Pages container. Every
// entry of the source container is copied except the document tree,
// which is written from the in-memory state. Writing over the source
// path goes through a temp file and rename.
func (d *Document) Materialize(out string) error {
	src, err := zip.OpenReader(d.path)
	if err != nil {
		return errors.NewIO("open", d.path, err)
	}
	defer src.Close()

	dir := filepath.Dir(out)
	tmp, err := os.CreateTemp(dir, ".pages-*")
	if err != nil {
		return errors.NewIO("create", dir, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	zw := zip.NewWriter(tmp)
	now := time.Now()

	header := &zip.FileHeader{Name: PrimaryDocument, Method: zip.Deflate, Modified: now}
	w, err := zw.CreateHeader(header)
	if err != nil {
		cleanup()
		return errors.NewIO("write", PrimaryDocument, err)
	}
	if _, err := w.Write(d.tree.Serialize()); err != nil {
		cleanup()
		return errors.NewIO("write", PrimaryDocument, err)
	}

	for _, entry := range src.File {
		if entry.Name == PrimaryDocument {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			cleanup()
			return errors.NewIO("open", entry.Name, err)
		}
		header := entry.FileHeader
		w, err := zw.CreateHeader(&header)
		if err != nil {
			rc.Close()
			cleanup()
			return errors.NewIO("write", entry.Name, err)
		}
		if _, err := io.Copy(w, rc); err != nil {
			rc.Close()
			cleanup()
			return errors.NewIO("write", entry.Name, err)
		}
		rc.Close()
	}

	if err := zw.Close(); err != nil {
		cleanup()
		return errors.NewIO("finalize", out, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.NewIO("close", tmpPath, err)
	}
	if err := os.Rename(tmpPath, out); err != nil {
		os.Remove(tmpPath)
		return errors.NewIO("rename", out, err)
	}
	return nil
}
