package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"esp-translator/internal/stringunit"
)

// Translation is one installed translation: an index.json entry plus a
// folder holding one JSON file of units per plugin.
type Translation struct {
	Name      string `json:"name"`
	Version   string `json:"version,omitempty"`
	Source    string `json:"source,omitempty"`
	Timestamp int64  `json:"timestamp"`

	// Path is the folder with the per-plugin files.
	Path string `json:"-"`
	// Strings maps plugin file names to their units.
	Strings map[string][]stringunit.Unit `json:"-"`
}

// NewTranslation returns an empty translation stored below dir.
func NewTranslation(name, dir string) *Translation {
	return &Translation{
		Name:      name,
		Timestamp: time.Now().Unix(),
		Path:      filepath.Join(dir, name),
		Strings:   map[string][]stringunit.Unit{},
	}
}

// ID identifies a translation by name and location.
func (t *Translation) ID() string {
	return strings.ToLower(t.Name + "###" + t.Path)
}

// Plugins returns the covered plugin names in sorted order.
func (t *Translation) Plugins() []string {
	out := make([]string, 0, len(t.Strings))
	for p := range t.Strings {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Units returns every unit of every plugin.
func (t *Translation) Units() []stringunit.Unit {
	var out []stringunit.Unit
	for _, p := range t.Plugins() {
		out = append(out, t.Strings[p]...)
	}
	return out
}

// Covers reports whether the translation has units for plugin, ignoring
// case.
func (t *Translation) Covers(plugin string) (string, bool) {
	for p := range t.Strings {
		if strings.EqualFold(p, plugin) {
			return p, true
		}
	}
	return "", false
}

// Merge adds units for plugin, replacing units with the same ID.
func (t *Translation) Merge(plugin string, units []stringunit.Unit) {
	if t.Strings == nil {
		t.Strings = map[string][]stringunit.Unit{}
	}
	if existing, ok := t.Covers(plugin); ok {
		plugin = existing
	}
	t.Strings[plugin] = stringunit.Merge(t.Strings[plugin], units)
}

// RemoveDuplicates keeps one unit per ID in every plugin.
func (t *Translation) RemoveDuplicates() {
	for p, units := range t.Strings {
		t.Strings[p] = stringunit.Unique(units)
	}
}

// Save writes one <plugin>.json file per covered plugin.
func (t *Translation) Save() error {
	if err := os.MkdirAll(t.Path, 0o755); err != nil {
		return fmt.Errorf("create translation folder: %w", err)
	}
	for plugin, units := range t.Strings {
		if err := writeUnits(filepath.Join(t.Path, plugin+".json"), units); err != nil {
			return err
		}
	}
	return nil
}

func writeUnits(path string, units []stringunit.Unit) error {
	if units == nil {
		units = []stringunit.Unit{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(units); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readUnits(path string) ([]stringunit.Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var units []stringunit.Unit
	if err := json.Unmarshal(data, &units); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return units, nil
}

// loadStrings reads a translation folder. Legacy .ats files are converted
// to JSON first. Files that fail are logged and skipped.
func loadStrings(dir string) (map[string][]stringunit.Unit, error) {
	legacy, err := filepath.Glob(filepath.Join(dir, "*.ats"))
	if err != nil {
		return nil, err
	}
	for _, path := range legacy {
		if err := convertLegacy(path); err != nil {
			log.Error().Err(err).Str("file", path).Msg("Failed to convert legacy translation file")
		}
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	out := make(map[string][]stringunit.Unit, len(files))
	for _, path := range files {
		units, err := readUnits(path)
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("Failed to load translation file")
			continue
		}
		out[strings.TrimSuffix(filepath.Base(path), ".json")] = units
	}
	return out, nil
}

// convertLegacy decodes a legacy .ats file, writes its units next to it as
// JSON and removes the original.
func convertLegacy(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	units, err := decodeLegacy(f)
	f.Close()
	if err != nil {
		return err
	}
	if err := writeUnits(strings.TrimSuffix(path, filepath.Ext(path))+".json", units); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove legacy file: %w", err)
	}
	log.Info().Str("file", filepath.Base(path)).Int("strings", len(units)).Msg("Converted legacy translation file")
	return nil
}
