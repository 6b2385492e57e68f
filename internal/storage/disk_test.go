package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDatabaseSizeBytes(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "chats.db")
	if err := os.WriteFile(db, []byte("main!"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := DatabaseSizeBytes(db)
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Errorf("db only: got %d bytes, want 5", got)
	}

	// WAL sidecars are included when present.
	if err := os.WriteFile(db+"-wal", []byte("wal"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(db+"-shm", []byte("s"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err = DatabaseSizeBytes(db)
	if err != nil {
		t.Fatal(err)
	}
	if got != 9 {
		t.Errorf("with sidecars: got %d bytes, want 9", got)
	}

	got, err = DatabaseSizeBytes(filepath.Join(dir, "missing.db"))
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("missing db: got %d bytes, want 0", got)
	}

	if got, err = DatabaseSizeBytes(""); err != nil || got != 0 {
		t.Errorf("empty path: got %d, %v", got, err)
	}
}
