package stringunit

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"
)

// Match describes how a unit was resolved against the sources.
type Match int

const (
	NoMatch Match = iota
	ExactMatch
	FallbackMatch
)

// Result aggregates the outcome of a reconciliation pass.
type Result struct {
	Exact     int
	Fallback  int
	Unmatched int
	Skipped   int
}

func (r *Result) add(o Result) {
	r.Exact += o.Exact
	r.Fallback += o.Fallback
	r.Unmatched += o.Unmatched
	r.Skipped += o.Skipped
}

// Matched returns the number of units that received a translation.
func (r Result) Matched() int { return r.Exact + r.Fallback }

// Reconciler carries translations from resolved sources onto new units.
// A structural (ID) match is authoritative; an original-text match is only
// a suggestion and is marked incomplete.
type Reconciler struct {
	byID       map[string]Unit
	byOriginal map[string]Unit
}

// NewReconciler indexes sources. Later units override earlier ones with the
// same key. Units still requiring a translation are not indexed by text.
func NewReconciler(sources ...[]Unit) *Reconciler {
	rc := &Reconciler{
		byID:       make(map[string]Unit),
		byOriginal: make(map[string]Unit),
	}
	for _, src := range sources {
		for _, u := range src {
			rc.byID[u.ID()] = u
			if u.Status != TranslationRequired {
				rc.byOriginal[u.Original] = u
			}
		}
	}
	return rc
}

// Size returns the number of distinct IDs indexed.
func (rc *Reconciler) Size() int { return len(rc.byID) }

// Apply resolves a single unit in place.
func (rc *Reconciler) Apply(u *Unit) Match {
	if u.Status == NoTranslationRequired {
		return NoMatch
	}
	if src, ok := rc.byID[u.ID()]; ok {
		u.Translated = clonePtr(src.Translated)
		u.Status = src.Status
		return ExactMatch
	}
	if src, ok := rc.byOriginal[u.Original]; ok {
		u.Translated = clonePtr(src.Translated)
		if src.Status == NoTranslationRequired {
			u.Status = NoTranslationRequired
		} else {
			u.Status = TranslationIncomplete
		}
		return FallbackMatch
	}
	return NoMatch
}

// Reconcile resolves every unit in place.
func (rc *Reconciler) Reconcile(units []Unit) Result {
	var res Result
	for i := range units {
		if units[i].Status == NoTranslationRequired {
			res.Skipped++
			continue
		}
		switch rc.Apply(&units[i]) {
		case ExactMatch:
			res.Exact++
		case FallbackMatch:
			res.Fallback++
		default:
			res.Unmatched++
		}
	}
	return res
}

// Progress is called after each plugin's units have been reconciled.
type Progress func(plugin string, done, total int)

// ReconcileAll resolves the units of several plugins. Cancellation is
// checked between plugins, never inside one plugin's list.
func (rc *Reconciler) ReconcileAll(ctx context.Context, sets map[string][]Unit, progress Progress) (Result, error) {
	plugins := make([]string, 0, len(sets))
	for name := range sets {
		plugins = append(plugins, name)
	}
	sort.Strings(plugins)

	var total Result
	for i, name := range plugins {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		total.add(rc.Reconcile(sets[name]))
		if progress != nil {
			progress(name, i+1, len(plugins))
		}
	}

	log.Info().
		Int("plugins", len(plugins)).
		Int("matched_exact", total.Exact).
		Int("matched_fallback", total.Fallback).
		Int("unmatched", total.Unmatched).
		Msg("Reconciled strings")
	return total, nil
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
