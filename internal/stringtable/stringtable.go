// Package stringtable reads the .strings, .dlstrings and .ilstrings files
// that hold the text of localized plugins.
package stringtable

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"esp-translator/internal/codec"
)

// Kind is the entry layout of a table file.
type Kind int

const (
	// Strings entries are NUL-terminated.
	Strings Kind = iota
	// LStrings entries carry a uint32 length prefix (.dlstrings, .ilstrings).
	LStrings
)

// Extensions lists the table file extensions a localized plugin may use.
var Extensions = []string{".strings", ".dlstrings", ".ilstrings"}

// KindOf returns the layout implied by a file extension.
func KindOf(path string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".strings":
		return Strings, nil
	case ".dlstrings", ".ilstrings":
		return LStrings, nil
	}
	return 0, fmt.Errorf("%s is not a string table", filepath.Base(path))
}

// Table maps string ids to text.
type Table struct {
	entries map[uint32]codec.Text
}

// Parse decodes a table. Directory offsets are relative to the start of
// the string data, which is the last dataSize bytes of the file.
func Parse(data []byte, kind Kind) (*Table, error) {
	r := codec.NewReader(data)
	count, err := r.Uint32()
	if err != nil {
		return nil, fmt.Errorf("read entry count: %w", err)
	}
	dataSize, err := r.Uint32()
	if err != nil {
		return nil, fmt.Errorf("read data size: %w", err)
	}
	if uint64(dataSize) > uint64(len(data)) {
		return nil, fmt.Errorf("data size %d exceeds file size %d: %w", dataSize, len(data), codec.ErrTruncated)
	}
	base := len(data) - int(dataSize)
	if uint64(count)*8 > uint64(len(data)-8) {
		return nil, fmt.Errorf("directory of %d entries exceeds file size %d: %w", count, len(data), codec.ErrTruncated)
	}

	t := &Table{entries: make(map[uint32]codec.Text, count)}
	for i := uint32(0); i < count; i++ {
		id, err := r.Uint32()
		if err != nil {
			return nil, fmt.Errorf("read directory entry %d: %w", i, err)
		}
		offset, err := r.Uint32()
		if err != nil {
			return nil, fmt.Errorf("read directory entry %d: %w", i, err)
		}
		text, err := readEntry(data, base+int(offset), kind)
		if err != nil {
			return nil, fmt.Errorf("read string %d: %w", id, err)
		}
		t.entries[id] = text
	}
	return t, nil
}

func readEntry(data []byte, pos int, kind Kind) (codec.Text, error) {
	r := codec.NewReader(data)
	if err := r.Seek(pos); err != nil {
		return codec.Text{}, err
	}
	if kind == Strings {
		return r.ZString(), nil
	}
	n, err := r.Uint32()
	if err != nil {
		return codec.Text{}, err
	}
	b, err := r.Read(int(n))
	if err != nil {
		return codec.Text{}, err
	}
	return codec.Decode(bytes.TrimRight(b, "\x00")), nil
}

// Load reads a table file, taking the layout from its extension.
func Load(path string) (*Table, error) {
	kind, err := KindOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read string table: %w", err)
	}
	t, err := Parse(data, kind)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// Lookup returns the text stored under id.
func (t *Table) Lookup(id uint32) (string, bool) {
	text, ok := t.entries[id]
	return text.Value, ok
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// Strings returns the non-blank entries.
func (t *Table) Strings() map[uint32]string {
	out := make(map[uint32]string, len(t.entries))
	for id, text := range t.entries {
		if strings.TrimSpace(text.Value) != "" {
			out[id] = text.Value
		}
	}
	return out
}

// Merge adds the entries of other, replacing existing ids.
func (t *Table) Merge(other *Table) {
	for id, text := range other.entries {
		t.entries[id] = text
	}
}

// LoadForPlugin loads Strings/<plugin>_<language>.* below dataDir into one
// table. Missing files are skipped; it fails only if none exist.
func LoadForPlugin(dataDir, plugin, language string) (*Table, error) {
	stem := strings.TrimSuffix(plugin, filepath.Ext(plugin))
	merged := &Table{entries: map[uint32]codec.Text{}}
	found := 0
	for _, ext := range Extensions {
		path := filepath.Join(dataDir, "Strings", fmt.Sprintf("%s_%s%s", stem, strings.ToLower(language), ext))
		t, err := Load(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		log.Debug().Str("file", filepath.Base(path)).Int("strings", t.Len()).Msg("Loaded string table")
		merged.Merge(t)
		found++
	}
	if found == 0 {
		return nil, fmt.Errorf("no string tables for %s (%s): %w", plugin, language, os.ErrNotExist)
	}
	return merged, nil
}
