package filestore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	t.Run("Creates New File", func(t *testing.T) {
		filename := filepath.Join(t.TempDir(), "data.json")
		if err := writeFileAtomic(filename, []byte("{}"), 0644); err != nil {
			t.Fatalf("writeFileAtomic failed: %v", err)
		}
		got, err := os.ReadFile(filename)
		if err != nil {
			t.Fatalf("Failed to read file: %v", err)
		}
		if string(got) != "{}" {
			t.Errorf("Expected '{}', got '%s'", string(got))
		}
	})

	t.Run("Overwrites And Leaves No Temp Files", func(t *testing.T) {
		dir := t.TempDir()
		filename := filepath.Join(dir, "data.json")
		if err := os.WriteFile(filename, []byte("old"), 0644); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}
		if err := writeFileAtomic(filename, []byte("new"), 0644); err != nil {
			t.Fatalf("writeFileAtomic failed: %v", err)
		}
		got, _ := os.ReadFile(filename)
		if string(got) != "new" {
			t.Errorf("Expected 'new', got '%s'", string(got))
		}

		entries, _ := os.ReadDir(dir)
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), TempFilePrefix) {
				t.Errorf("Temp file left behind: %s", e.Name())
			}
		}
	})

	t.Run("Missing Directory", func(t *testing.T) {
		filename := filepath.Join(t.TempDir(), "nope", "data.json")
		if err := writeFileAtomic(filename, []byte("x"), 0644); err == nil {
			t.Fatal("Expected error for missing directory")
		}
	})
}
