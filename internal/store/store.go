// Package store manages the translation database: the vanilla translation
// shipped with the application and the translations the user installed.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"

	"esp-translator/internal/stringunit"
)

var (
	// ErrTranslationNotFound is returned when no translation has the
	// requested name.
	ErrTranslationNotFound = errors.New("translation not found")
	// ErrLegacyFormat is returned when a legacy .ats file cannot be decoded.
	ErrLegacyFormat = errors.New("invalid legacy translation file")
)

const indexFile = "index.json"

// Store is the translation database of one language. Reads may run
// concurrently; writes are serialised in process and guarded by a lock
// file across processes.
type Store struct {
	mu       sync.RWMutex
	language string
	dbDir    string
	lock     *flock.Flock

	vanilla *Translation
	user    []*Translation
}

// Load opens the database for language. The user database folder and an
// empty index are created when missing.
func Load(appDir, userDir, language string) (*Store, error) {
	lang := strings.ToLower(language)
	dbDir := filepath.Join(userDir, lang)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("create user database: %w", err)
	}
	s := &Store{
		language: lang,
		dbDir:    dbDir,
		lock:     flock.New(filepath.Join(dbDir, ".lock")),
	}

	vanilla, err := loadStrings(filepath.Join(appDir, lang))
	if err != nil {
		return nil, fmt.Errorf("load vanilla translation: %w", err)
	}
	s.vanilla = &Translation{Name: "", Path: filepath.Join(appDir, lang), Strings: vanilla}

	indexPath := filepath.Join(dbDir, indexFile)
	data, err := os.ReadFile(indexPath)
	if errors.Is(err, os.ErrNotExist) {
		data = []byte("[]")
		if err := os.WriteFile(indexPath, data, 0o644); err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	var entries []*Translation
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	for _, t := range entries {
		t.Path = filepath.Join(dbDir, t.Name)
		t.Strings, err = loadStrings(t.Path)
		if err != nil {
			log.Error().Err(err).Str("translation", t.Name).Msg("Failed to load translation")
			continue
		}
		s.user = append(s.user, t)
	}

	log.Info().
		Str("language", lang).
		Int("vanilla_plugins", len(vanilla)).
		Int("translations", len(s.user)).
		Msg("Loaded translation database")
	return s, nil
}

// Language returns the lower-case language name.
func (s *Store) Language() string { return s.language }

// Dir returns the user database folder of the language.
func (s *Store) Dir() string { return s.dbDir }

// Vanilla returns the translation of the base game files.
func (s *Store) Vanilla() *Translation { return s.vanilla }

// Translations returns the installed user translations.
func (s *Store) Translations() []*Translation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.user)
}

// Strings returns every vanilla unit and every user unit that carries a
// translation.
func (s *Store) Strings() []stringunit.Unit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stringsLocked()
}

func (s *Store) stringsLocked() []stringunit.Unit {
	out := s.vanilla.Units()
	for _, t := range s.user {
		for _, u := range t.Units() {
			if u.Status != stringunit.TranslationRequired {
				out = append(out, u)
			}
		}
	}
	return out
}

// Get returns the translation called name.
func (s *Store) Get(name string) (*Translation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t := s.findLocked(name); t != nil {
		return t, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrTranslationNotFound, name)
}

func (s *Store) findLocked(name string) *Translation {
	for _, t := range s.user {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// ByPlugin returns the translation covering plugin, ignoring case.
func (s *Store) ByPlugin(plugin string) (*Translation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byPluginLocked(plugin)
}

func (s *Store) byPluginLocked(plugin string) (*Translation, bool) {
	for _, t := range s.user {
		if _, ok := t.Covers(plugin); ok {
			return t, true
		}
	}
	return nil, false
}

// Search returns the units matching filter keyed by "<translation>/<plugin>".
func (s *Store) Search(filter stringunit.SearchFilter) map[string][]stringunit.Unit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[string][]stringunit.Unit{}
	for _, t := range s.user {
		for plugin, units := range t.Strings {
			for _, u := range units {
				if filter.Matches(u) {
					key := t.Name + "/" + plugin
					out[key] = append(out[key], u)
				}
			}
		}
	}
	return out
}

// write runs fn holding the in-process write lock and the lock file.
func (s *Store) write(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock database: %w", err)
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			log.Warn().Err(err).Msg("Failed to release database lock")
		}
	}()
	return fn()
}

// Add installs t and saves it. A translation with the same id absorbs the
// units of t instead.
func (s *Store) Add(t *Translation) error {
	return s.write(func() error { return s.addLocked(t) })
}

func (s *Store) addLocked(t *Translation) error {
	if t.Path == "" {
		t.Path = filepath.Join(s.dbDir, t.Name)
	}
	target := t
	for _, existing := range s.user {
		if existing.ID() == t.ID() {
			for plugin, units := range t.Strings {
				existing.Merge(plugin, units)
			}
			target = existing
			break
		}
	}
	if target == t {
		s.user = append(s.user, t)
	}
	if err := target.Save(); err != nil {
		return err
	}
	return s.saveIndexLocked()
}

// Delete removes the translation called name and its folder.
func (s *Store) Delete(name string) error {
	return s.write(func() error {
		t := s.findLocked(name)
		if t == nil {
			return fmt.Errorf("%w: %s", ErrTranslationNotFound, name)
		}
		if err := os.RemoveAll(t.Path); err != nil {
			return fmt.Errorf("remove translation folder: %w", err)
		}
		s.user = slices.DeleteFunc(s.user, func(x *Translation) bool { return x == t })
		return s.saveIndexLocked()
	})
}

// Rename renames a translation and moves its folder.
func (s *Store) Rename(name, newName string) error {
	return s.write(func() error {
		t := s.findLocked(name)
		if t == nil {
			return fmt.Errorf("%w: %s", ErrTranslationNotFound, name)
		}
		if s.findLocked(newName) != nil {
			return fmt.Errorf("translation %s already exists", newName)
		}
		newPath := filepath.Join(s.dbDir, newName)
		if err := os.Rename(t.Path, newPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("move translation folder: %w", err)
		}
		t.Name = newName
		t.Path = newPath
		return s.saveIndexLocked()
	})
}

// Dedupe removes duplicate units from every translation and saves them.
func (s *Store) Dedupe() error {
	return s.write(func() error {
		for _, t := range s.user {
			t.RemoveDuplicates()
			if err := t.Save(); err != nil {
				return err
			}
		}
		return nil
	})
}

// Save writes index.json.
func (s *Store) Save() error {
	return s.write(s.saveIndexLocked)
}

func (s *Store) saveIndexLocked() error {
	entries := s.user
	if entries == nil {
		entries = []*Translation{}
	}
	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dbDir, indexFile), data, 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

// CreateForPlugin builds the translation of one plugin from its extracted
// units. Every unit starts as its own translation with status
// TranslationRequired; with applyDB the database fills in what it knows.
// The units are merged into the translation already covering the plugin,
// or into a new "<plugin> - <Language>" translation, which is saved.
func (s *Store) CreateForPlugin(plugin string, units []stringunit.Unit, applyDB bool) (*Translation, stringunit.Result, error) {
	prepared := make([]stringunit.Unit, len(units))
	for i, u := range units {
		u = u.Clone()
		u.SetTranslation(u.Original)
		u.Status = stringunit.TranslationRequired
		prepared[i] = u
	}

	var (
		res    stringunit.Result
		target *Translation
	)
	err := s.write(func() error {
		if applyDB {
			rc := stringunit.NewReconciler(s.stringsLocked())
			res = rc.Reconcile(prepared)
		}
		var ok bool
		target, ok = s.byPluginLocked(plugin)
		if !ok {
			target = NewTranslation(fmt.Sprintf("%s - %s", plugin, capitalize(s.language)), s.dbDir)
		}
		if name, ok := target.Covers(plugin); ok {
			// Translations already made for the plugin win over new units.
			var kept []stringunit.Unit
			for _, u := range target.Strings[name] {
				if u.Status != stringunit.TranslationRequired {
					kept = append(kept, u)
				}
			}
			target.Strings[name] = stringunit.Merge(prepared, kept)
		} else {
			target.Merge(plugin, prepared)
		}
		target.RemoveDuplicates()
		return s.addLocked(target)
	})
	if err != nil {
		return nil, res, err
	}
	log.Info().
		Str("plugin", plugin).
		Str("translation", target.Name).
		Int("strings", len(prepared)).
		Int("matched", res.Matched()).
		Msg("Created translation")
	return target, res, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
