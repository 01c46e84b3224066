package stringtable

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"esp-translator/internal/codec"
)

type entry struct {
	id   uint32
	text string
}

func build(kind Kind, entries []entry) []byte {
	var dir, data []byte
	for _, e := range entries {
		dir = binary.LittleEndian.AppendUint32(dir, e.id)
		dir = binary.LittleEndian.AppendUint32(dir, uint32(len(data)))
		if kind == LStrings {
			data = binary.LittleEndian.AppendUint32(data, uint32(len(e.text)+1))
		}
		data = append(data, e.text...)
		data = append(data, 0)
	}
	out := binary.LittleEndian.AppendUint32(nil, uint32(len(entries)))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(data)))
	out = append(out, dir...)
	return append(out, data...)
}

func TestParse(t *testing.T) {
	entries := []entry{{1, "Iron Sword"}, {2, "  "}, {7, "A plain blade."}}
	for _, kind := range []Kind{Strings, LStrings} {
		tab, err := Parse(build(kind, entries), kind)
		if err != nil {
			t.Fatalf("kind %d: %v", kind, err)
		}
		if s, ok := tab.Lookup(7); !ok || s != "A plain blade." {
			t.Errorf("kind %d: Lookup(7) = %q, %v", kind, s, ok)
		}
		if _, ok := tab.Lookup(3); ok {
			t.Errorf("kind %d: unexpected id 3", kind)
		}
		visible := tab.Strings()
		if len(visible) != 2 || visible[1] != "Iron Sword" {
			t.Errorf("kind %d: Strings = %v", kind, visible)
		}
	}
}

func TestParseTruncated(t *testing.T) {
	data := build(Strings, []entry{{1, "x"}})
	if _, err := Parse(data[:10], Strings); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseOversizedDirectory(t *testing.T) {
	for _, count := range []uint32{2, 0x04000000, 0xFFFFFFF0} {
		data := binary.LittleEndian.AppendUint32(nil, count)
		data = binary.LittleEndian.AppendUint32(data, 0)
		data = append(data, 1, 0, 0, 0, 0, 0, 0, 0)
		_, err := Parse(data, Strings)
		if !errors.Is(err, codec.ErrTruncated) {
			t.Errorf("count %#x: err = %v, want ErrTruncated", count, err)
		}
	}
}

func TestKindOf(t *testing.T) {
	cases := map[string]Kind{"a.STRINGS": Strings, "a.dlstrings": LStrings, "a.ilstrings": LStrings}
	for name, want := range cases {
		if got, err := KindOf(name); err != nil || got != want {
			t.Errorf("KindOf(%s) = %v, %v", name, got, err)
		}
	}
	if _, err := KindOf("a.esp"); err == nil {
		t.Error("KindOf accepted .esp")
	}
}

func TestLoadForPlugin(t *testing.T) {
	dir := t.TempDir()
	stringsDir := filepath.Join(dir, "Strings")
	if err := os.MkdirAll(stringsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	write := func(name string, data []byte) {
		if err := os.WriteFile(filepath.Join(stringsDir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("Skyrim_english.strings", build(Strings, []entry{{1, "Iron Sword"}}))
	write("Skyrim_english.dlstrings", build(LStrings, []entry{{2, "A long description."}}))

	tab, err := LoadForPlugin(dir, "Skyrim.esm", "English")
	if err != nil {
		t.Fatal(err)
	}
	if tab.Len() != 2 {
		t.Fatalf("Len = %d", tab.Len())
	}
	if s, _ := tab.Lookup(2); s != "A long description." {
		t.Fatalf("Lookup(2) = %q", s)
	}

	if _, err := LoadForPlugin(dir, "Dawnguard.esm", "english"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing tables: %v", err)
	}
}
