package plugin

import (
	"fmt"
	"strconv"

	"esp-translator/internal/stringunit"
)

// StringLookup resolves string table ids of localized plugins.
type StringLookup interface {
	Lookup(id uint32) (string, bool)
}

// ExtractOptions selects which text fields Extract returns.
type ExtractOptions struct {
	// Localized includes fields that reference a string table.
	Localized bool
	// Unfiltered includes strings that fail the validity filter.
	Unfiltered bool
	// Strings resolves localized fields. Without it their original is the
	// decimal string id.
	Strings StringLookup
}

// Extract returns the translatable strings of the plugin.
func (p *Plugin) Extract(opts ExtractOptions) []stringunit.Unit {
	masters := p.Masters()
	var units []stringunit.Unit
	for _, rec := range p.Records() {
		formID := fmt.Sprintf("%s|%s", rec.FormID, p.masterName(masters, rec.FormID.MasterIndex()))
		var edid *string
		if v, ok := rec.EditorID(); ok {
			edid = &v
		}

		for _, sf := range rec.Strings() {
			u := stringunit.Unit{
				FormID:   formID,
				EditorID: edid,
				Type:     rec.Type + " " + sf.Type(),
				Index:    sf.Index,
			}
			if sf.Localized() {
				if !opts.Localized {
					continue
				}
				u.Original = localizedText(sf, opts.Strings)
				u.Status = stringunit.TranslationRequired
				units = append(units, u)
				continue
			}

			text := sf.Text()
			valid := stringunit.IsValid(text.Value)
			if !valid && !opts.Unfiltered {
				continue
			}
			u.Original = text.Value
			u.DecodeLoss = text.Lossy
			u.Status = stringunit.NoTranslationRequired
			if valid {
				u.Status = stringunit.TranslationRequired
			}
			units = append(units, u)
		}
	}
	return units
}

func localizedText(sf *StringField, strings StringLookup) string {
	id, _ := sf.StringID()
	if strings != nil {
		if s, ok := strings.Lookup(id); ok {
			return s
		}
	}
	return strconv.FormatUint(uint64(id), 10)
}
