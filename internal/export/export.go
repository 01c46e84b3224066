// Package export writes translations out for the game: Dynamic String
// Distributor JSON files, TSV sheets and patched plugin copies.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"esp-translator/internal/plugin"
	"esp-translator/internal/store"
	"esp-translator/internal/stringunit"
)

// DSDDir is the folder below the output root that Dynamic String
// Distributor reads.
var DSDDir = filepath.Join("SKSE", "Plugins", "DynamicStringDistributor")

// Changed returns the units whose translation is set and differs from the
// original.
func Changed(units []stringunit.Unit) []stringunit.Unit {
	out := make([]stringunit.Unit, 0, len(units))
	for _, u := range units {
		if u.Translated != nil && *u.Translated != "" && *u.Translated != u.Original {
			out = append(out, u)
		}
	}
	return out
}

// DSD writes one JSON file per plugin of t to
// <outDir>/SKSE/Plugins/DynamicStringDistributor/<plugin>/<name>.json and
// returns the number of files written. Plugins without changed strings get
// no file.
func DSD(outDir string, t *store.Translation) (int, error) {
	written := 0
	for _, p := range t.Plugins() {
		units := Changed(t.Strings[p])
		if len(units) == 0 {
			continue
		}
		dir := filepath.Join(outDir, DSDDir, p)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return written, fmt.Errorf("create DSD folder: %w", err)
		}
		path := filepath.Join(dir, fileName(t.Name)+".json")
		if err := writeJSON(path, units); err != nil {
			return written, err
		}
		written++
		log.Debug().Str("plugin", p).Int("strings", len(units)).Str("path", path).Msg("Exported DSD file")
	}

	log.Info().Str("translation", t.Name).Int("files", written).Msg("Exported translation to DSD")
	return written, nil
}

func writeJSON(path string, units []stringunit.Unit) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create JSON file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "    ")
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(units); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return f.Close()
}

func fileName(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(`<>:"/\|?*`, r) {
			return '_'
		}
		return r
	}, name)
}

// TSV writes units as a tab separated sheet with a header row.
func TSV(w io.Writer, units []stringunit.Unit) error {
	if _, err := fmt.Fprintln(w, "form_id\teditor_id\ttype\tindex\tstatus\toriginal\tstring"); err != nil {
		return fmt.Errorf("write TSV: %w", err)
	}

	for _, u := range units {
		editorID := ""
		if u.EditorID != nil {
			editorID = *u.EditorID
		}
		index := ""
		if u.Index != nil {
			index = fmt.Sprint(*u.Index)
		}
		translated := ""
		if u.Translated != nil {
			translated = *u.Translated
		}
		_, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			u.FormID,
			escapeTSV(editorID),
			u.Type,
			index,
			u.Status,
			escapeTSV(u.Original),
			escapeTSV(translated),
		)
		if err != nil {
			return fmt.Errorf("write TSV: %w", err)
		}
	}
	return nil
}

// escapeTSV replaces tabs and newlines in a string for TSV safety.
func escapeTSV(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\t", "\\t")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	return s
}

// Plugins loads every plugin of t from sourceDir, applies the translation
// and saves the patched copy under outDir. Plugins missing from sourceDir
// are skipped with a warning. It returns the number of plugins written.
func Plugins(outDir, sourceDir string, t *store.Translation, opts plugin.Options) (int, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return 0, fmt.Errorf("create output folder: %w", err)
	}

	written := 0
	for _, name := range t.Plugins() {
		src := filepath.Join(sourceDir, name)
		p, err := plugin.Load(src, opts)
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn().Str("plugin", name).Str("dir", sourceDir).Msg("Plugin not found, skipping")
			continue
		}
		if err != nil {
			return written, err
		}

		replaced, err := p.ReplaceStrings(t.Strings[name])
		if err != nil {
			return written, fmt.Errorf("patch %s: %w", name, err)
		}
		if err := p.Save(filepath.Join(outDir, name)); err != nil {
			return written, err
		}
		written++
		log.Info().Str("plugin", name).Int("replaced", replaced).Msg("Wrote translated plugin")
	}
	return written, nil
}
