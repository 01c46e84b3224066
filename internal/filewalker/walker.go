// Package filewalker finds plugin files in a data folder.
package filewalker

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"esp-translator/internal/parser"

	"github.com/rs/zerolog/log"
)

// Walker matches files against a set of parsers.
type Walker struct {
	parsers []parser.Parser
}

func NewWalker(parsers ...parser.Parser) *Walker {
	return &Walker{parsers: parsers}
}

// FileEntry is a plugin file paired with the parser that reads it.
type FileEntry struct {
	Path   string
	Ext    string
	Parser parser.Parser
}

func (e FileEntry) Name() string { return filepath.Base(e.Path) }

func (w *Walker) match(path string) (FileEntry, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return FileEntry{}, false
	}
	for _, p := range w.parsers {
		if p.CanParse(ext) {
			return FileEntry{Path: path, Ext: ext, Parser: p}, true
		}
	}
	return FileEntry{}, false
}

// Walk returns every parseable file below root, sorted by path. Unreadable
// subdirectories are logged and skipped.
func (w *Walker) Walk(root string) ([]FileEntry, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root path: %w", err)
	}
	if info, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", root)
	}

	var entries []FileEntry
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			log.Warn().Err(err).Str("path", path).Msg("Skipping unreadable path")
		case !d.IsDir():
			if e, ok := w.match(path); ok {
				entries = append(entries, e)
			}
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk directory: %w", walkErr)
	}

	slices.SortFunc(entries, func(a, b FileEntry) int { return strings.Compare(a.Path, b.Path) })
	log.Info().Int("count", len(entries)).Str("root", root).Msg("Discovered plugins")
	return entries, nil
}

// Entry wraps a single file given on the command line.
func (w *Walker) Entry(path string) (FileEntry, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileEntry{}, fmt.Errorf("resolve path: %w", err)
	}
	e, ok := w.match(abs)
	if !ok {
		return FileEntry{}, fmt.Errorf("unsupported file type: %s", filepath.Base(path))
	}
	return e, nil
}
