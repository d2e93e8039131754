// Package history records completed processing runs in a SQLite ledger
// so past rewrites can be listed and audited. Each run stores the input
// and output hashes alongside the style and ordering choices.
package history

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/excite/core/errors"
	"github.com/FocuswithJustin/excite/internal/sqlite"
)

// Run is one recorded processing run.
type Run struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	InputPath      string    `json:"input_path"`
	OutputPath     string    `json:"output_path"`
	BackupPath     string    `json:"backup_path,omitempty"`
	InputHash      string    `json:"input_hash"`
	OutputHash     string    `json:"output_hash"`
	CitationStyle  string    `json:"citation_style"`
	ReferenceStyle string    `json:"reference_style"`
	OrderPolicy    string    `json:"order_policy"`
	Citations      int       `json:"citations"`
	References     int       `json:"references"`
	Labels         int       `json:"labels"`
}

// Store is a handle to the history database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	created_at      TEXT NOT NULL,
	input_path      TEXT NOT NULL,
	output_path     TEXT NOT NULL,
	backup_path     TEXT NOT NULL DEFAULT '',
	input_hash      TEXT NOT NULL,
	output_hash     TEXT NOT NULL,
	citation_style  TEXT NOT NULL,
	reference_style TEXT NOT NULL,
	order_policy    TEXT NOT NULL,
	citations       INTEGER NOT NULL,
	refs            INTEGER NOT NULL,
	labels          INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs (created_at);
`

// Open opens (creating if necessary) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.NewIO("create", filepath.Dir(path), err)
	}
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.NewIO("initialize", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends a run to the ledger. A missing ID or timestamp is
// filled in; the stored run is returned.
func (s *Store) Record(run Run) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO runs (
			id, created_at, input_path, output_path, backup_path,
			input_hash, output_hash, citation_style, reference_style,
			order_policy, citations, refs, labels
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.CreatedAt.Format(time.RFC3339Nano),
		run.InputPath,
		run.OutputPath,
		run.BackupPath,
		run.InputHash,
		run.OutputHash,
		run.CitationStyle,
		run.ReferenceStyle,
		run.OrderPolicy,
		run.Citations,
		run.References,
		run.Labels,
	)
	if err != nil {
		return Run{}, errors.NewIO("record run", run.ID, err)
	}
	return run, nil
}

// List returns the most recent runs, newest first. limit <= 0 means no
// limit.
func (s *Store) List(limit int) ([]Run, error) {
	query := `
		SELECT id, created_at, input_path, output_path, backup_path,
		       input_hash, output_hash, citation_style, reference_style,
		       order_policy, citations, refs, labels
		FROM runs ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.NewIO("list runs", "", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewIO("list runs", "", err)
	}
	return runs, nil
}

// Get returns the run with the given ID.
func (s *Store) Get(id string) (Run, error) {
	rows, err := s.db.Query(`
		SELECT id, created_at, input_path, output_path, backup_path,
		       input_hash, output_hash, citation_style, reference_style,
		       order_policy, citations, refs, labels
		FROM runs WHERE id = ?`, id)
	if err != nil {
		return Run{}, errors.NewIO("get run", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Run{}, errors.NewIO("get run", id, err)
		}
		return Run{}, errors.NewNotFound("run", id)
	}
	return scanRun(rows)
}

func scanRun(rows *sql.Rows) (Run, error) {
	var run Run
	var createdAt string
	err := rows.Scan(
		&run.ID, &createdAt, &run.InputPath, &run.OutputPath,
		&run.BackupPath, &run.InputHash, &run.OutputHash,
		&run.CitationStyle, &run.ReferenceStyle, &run.OrderPolicy,
		&run.Citations, &run.References, &run.Labels,
	)
	if err != nil {
		return Run{}, errors.NewIO("scan run", "", err)
	}
	run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("parsing run timestamp %q: %w", createdAt, err)
	}
	return run, nil
}

// HashFile computes the BLAKE3 hash of a file's contents.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.NewIO("read", path, err)
	}
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:]), nil
}
