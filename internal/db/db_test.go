package db

import (
	"path/filepath"
	"testing"
)

func TestNewDBRunsMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	d, err := NewDB(path)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	version, dirty, err := d.MigrateVersion()
	if err != nil {
		t.Fatal(err)
	}
	if dirty {
		t.Fatal("fresh database is dirty")
	}
	if version < 1 {
		t.Fatalf("migration version = %d, want at least 1", version)
	}

	for _, table := range []string{"runs", "spectrum_points"} {
		var count int
		err := d.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
		if err != nil {
			t.Fatal(err)
		}
		if count != 1 {
			t.Errorf("table %s missing after migration", table)
		}
	}
}

func TestNewDBReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	d, err := NewDB(path)
	if err != nil {
		t.Fatal(err)
	}
	d.Close()

	// Reopening an already-migrated database is a no-op, not an error.
	d2, err := NewDB(path)
	if err != nil {
		t.Fatal(err)
	}
	d2.Close()
}
