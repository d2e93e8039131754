package sqlite

import (
	"path/filepath"
	"testing"
)

func TestDriverInfo(t *testing.T) {
	info := GetInfo()
	if info.DriverName != DriverName() {
		t.Errorf("Info.DriverName = %q, want %q", info.DriverName, DriverName())
	}
	if info.IsCGO != IsCGO() {
		t.Errorf("Info.IsCGO = %v, want %v", info.IsCGO, IsCGO())
	}
	switch info.DriverType {
	case "purego":
		if info.DriverName != "sqlite" || info.IsCGO {
			t.Errorf("purego info inconsistent: %+v", info)
		}
	case "cgo":
		if info.DriverName != "sqlite3" || !info.IsCGO {
			t.Errorf("cgo info inconsistent: %+v", info)
		}
	default:
		t.Errorf("unknown driver type %q", info.DriverType)
	}
}

func TestOpenCreateQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)`); err != nil {
		t.Fatalf("create table failed: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO kv (k, v) VALUES (?, ?)`, "label", "smith2020"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	var v string
	if err := db.QueryRow(`SELECT v FROM kv WHERE k = ?`, "label").Scan(&v); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if v != "smith2020" {
		t.Errorf("value = %q, want smith2020", v)
	}
}

func TestOpenReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ro.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE t (n INTEGER)`); err != nil {
		t.Fatalf("create table failed: %v", err)
	}
	db.Close()

	ro, err := OpenReadOnly(path)
	if err != nil {
		t.Fatalf("OpenReadOnly failed: %v", err)
	}
	defer ro.Close()

	if _, err := ro.Exec(`INSERT INTO t (n) VALUES (1)`); err == nil {
		t.Error("write through read-only handle should fail")
	}
}
