package archive

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func buildZip(t *testing.T, files map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip Create() error: %v", err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("zip Write() error: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip Close() error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "mod.zip")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractAndListChildren(t *testing.T) {
	zipPath := buildZip(t, map[string]string{
		"Author.Mod/Author.Mod.pallet.json": `{"pallet":true}`,
		"Author.Mod/catalog.json":           `{"catalog":true}`,
		"Author.Mod/assets/level.bundle":    "binary stuff",
	})

	dest := filepath.Join(t.TempDir(), "staging")
	var x Zip
	if err := x.Extract(zipPath, dest); err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	children, err := x.ListChildren(dest)
	if err != nil {
		t.Fatalf("ListChildren() error: %v", err)
	}
	if len(children) != 1 || !children[0].IsDir() || children[0].Name() != "Author.Mod" {
		t.Fatalf("unexpected children: %v", children)
	}

	data, err := os.ReadFile(filepath.Join(dest, "Author.Mod", "catalog.json"))
	if err != nil || string(data) != `{"catalog":true}` {
		t.Errorf("extracted catalog.json = %q, err %v", data, err)
	}
}

func TestExtractRejectsEscapingEntries(t *testing.T) {
	zipPath := buildZip(t, map[string]string{
		"../evil.txt": "nope",
	})

	var x Zip
	err := x.Extract(zipPath, filepath.Join(t.TempDir(), "staging"))
	if err == nil {
		t.Error("Extract() should reject entries escaping the destination")
	}
}

func TestMoveDirectoryReplaces(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "staging", "Author.Mod")
	dst := filepath.Join(root, "mods", "Author.Mod")

	if err := os.MkdirAll(src, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "new.txt"), []byte("new"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dst, "old.txt"), []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	var x Zip
	if err := x.MoveDirectory(src, dst); err != nil {
		t.Fatalf("MoveDirectory() error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dst, "old.txt")); !os.IsNotExist(err) {
		t.Error("old content survived the move; replace semantics expected")
	}
	if data, err := os.ReadFile(filepath.Join(dst, "new.txt")); err != nil || string(data) != "new" {
		t.Errorf("new content missing after move: %q, %v", data, err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source directory should be gone after move")
	}
}

func TestRemoveEmptyDirectory(t *testing.T) {
	var x Zip

	t.Run("empty", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "staging")
		if err := os.Mkdir(dir, 0755); err != nil {
			t.Fatal(err)
		}
		if err := x.RemoveEmptyDirectory(dir); err != nil {
			t.Fatalf("RemoveEmptyDirectory() error: %v", err)
		}
	})

	t.Run("non-empty fails", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "staging")
		if err := os.Mkdir(dir, 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "leftover"), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := x.RemoveEmptyDirectory(dir); err == nil {
			t.Error("RemoveEmptyDirectory() should fail on a non-empty directory")
		}
	})
}
