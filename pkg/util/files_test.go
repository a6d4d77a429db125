package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	if err := EnsureDir(dir); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("EnsureDir did not create %s", dir)
	}

	// Already existing is not an error.
	if err := EnsureDir(dir); err != nil {
		t.Errorf("EnsureDir on existing dir: %v", err)
	}
}

func TestFileExistsAndReadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	if FileExists(path) || Readable(path) {
		t.Error("missing file reported as present")
	}

	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if !FileExists(path) || !Readable(path) {
		t.Error("existing file reported as missing")
	}
}

func TestCleanupFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	if err := os.WriteFile(a, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	// Missing files are ignored.
	CleanupFiles(a, b)

	if FileExists(a) {
		t.Error("CleanupFiles left a behind")
	}
}
