package plugin

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"esp-translator/internal/stringunit"
)

type fieldKey struct {
	formID   string
	typ      string
	original string
	index    int
	indexed  bool
}

func newFieldKey(formID, typ, original string, index *int) fieldKey {
	k := fieldKey{typ: typ, original: original}
	// The master index is ignored so that translations made against a
	// different load order still apply.
	if len(formID) > 2 {
		k.formID = formID[2:]
	}
	if index != nil {
		k.index = *index
		k.indexed = true
	}
	return k
}

// stringFields indexes the inline text fields of the plugin by the key
// units are matched with. Fields that reference a string table cannot be
// rewritten in place and are left out.
func (p *Plugin) stringFields() map[fieldKey][]*StringField {
	masters := p.Masters()
	out := make(map[fieldKey][]*StringField)
	for _, rec := range p.Records() {
		formID := fmt.Sprintf("%s|%s", rec.FormID, p.masterName(masters, rec.FormID.MasterIndex()))
		for _, sf := range rec.Strings() {
			if _, ok := sf.StringID(); ok {
				continue
			}
			k := newFieldKey(formID, rec.Type+" "+sf.Type(), sf.Text().Value, sf.Index)
			out[k] = append(out[k], sf)
		}
	}
	return out
}

// ReplaceStrings writes the translation of every unit into the matching
// text field. Units without a match are logged and skipped. It returns
// the number of fields changed.
func (p *Plugin) ReplaceStrings(units []stringunit.Unit) (int, error) {
	fields := p.stringFields()
	replaced := 0
	for _, u := range units {
		matches := fields[newFieldKey(u.FormID, u.Type, u.Original, u.Index)]
		if len(matches) == 0 {
			log.Error().
				Str("plugin", p.Name).
				Str("string", u.DisplayID()).
				Msg("String not found in plugin")
			continue
		}
		for _, sf := range matches {
			if err := sf.SetText(u.Text()); err != nil {
				return replaced, fmt.Errorf("replace %s: %w", u.DisplayID(), err)
			}
			replaced++
		}
	}
	return replaced, nil
}
