package filewalker_test

import (
	"os"
	"path/filepath"
	"testing"

	"esp-translator/internal/filewalker"
	"esp-translator/internal/parser"
	"esp-translator/internal/plugin"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWalk(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.esp"))
	touch(t, filepath.Join(root, "A.ESM"))
	touch(t, filepath.Join(root, "sub", "c.esl"))
	touch(t, filepath.Join(root, "sub", "readme.txt"))
	touch(t, filepath.Join(root, "Strings", "b_english.strings"))

	w := filewalker.NewWalker(parser.NewPluginParser(plugin.Options{}))
	entries, err := w.Walk(root)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
		if e.Parser == nil {
			t.Fatalf("%s has no parser", e.Path)
		}
	}
	want := []string{"A.ESM", "b.esp", "c.esl"}
	if len(names) != len(want) {
		t.Fatalf("names = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
	if entries[0].Ext != ".esm" {
		t.Fatalf("ext = %q", entries[0].Ext)
	}
}

func TestWalkRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.esp")
	touch(t, path)
	if _, err := filewalker.NewWalker().Walk(path); err == nil {
		t.Fatal("expected error for non-directory root")
	}
}

func TestEntry(t *testing.T) {
	w := filewalker.NewWalker(parser.NewPluginParser(plugin.Options{}))
	if _, err := w.Entry("Mod.esp"); err != nil {
		t.Fatalf("Entry(Mod.esp): %v", err)
	}
	if _, err := w.Entry("notes.txt"); err == nil {
		t.Fatal("expected error for unsupported file")
	}
}
