// Package stringunit models the localizable strings extracted from plugins
// and the rules used to carry translations from one string set to another.
package stringunit

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Unit is one localizable text field of a plugin record plus its translation.
type Unit struct {
	// FormID is the record's FormID followed by the plugin that defines it,
	// e.g. "0400D65A|Obsidian Weathers.esp".
	FormID   string  `json:"form_id"`
	EditorID *string `json:"editor_id,omitempty"`
	// Type is "<record> <subrecord>", e.g. "WEAP FULL".
	Type       string  `json:"type"`
	Index      *int    `json:"index,omitempty"`
	Original   string  `json:"original"`
	Translated *string `json:"string,omitempty"`
	Status     Status  `json:"status"`
	// DecodeLoss marks text that no codepage could decode cleanly.
	DecodeLoss bool `json:"decode_loss,omitempty"`
}

// ID identifies the unit within its plugin. The master index byte of the
// FormID is dropped so the key survives master list reordering.
func (u Unit) ID() string {
	formID := u.FormID
	if len(formID) > 2 {
		formID = formID[2:]
	} else {
		formID = ""
	}
	return strings.ToLower(formID) + "###" + optString(u.EditorID) + "###" + u.Type + "###" + optInt(u.Index)
}

// DisplayID is a human readable identifier.
func (u Unit) DisplayID() string {
	fields := []string{u.FormID}
	if u.EditorID != nil {
		fields = append(fields, *u.EditorID)
	}
	fields = append(fields, u.Type)
	if u.Index != nil {
		fields = append(fields, strconv.Itoa(*u.Index))
	}
	return strings.Join(fields, " - ")
}

// Text returns the translation if present and non-empty, else the original.
func (u Unit) Text() string {
	if u.Translated != nil && *u.Translated != "" {
		return *u.Translated
	}
	return u.Original
}

// SetTranslation stores a copy of s as the translated text.
func (u *Unit) SetTranslation(s string) {
	u.Translated = &s
}

// Clone returns a deep copy.
func (u Unit) Clone() Unit {
	c := u
	if u.EditorID != nil {
		v := *u.EditorID
		c.EditorID = &v
	}
	if u.Index != nil {
		v := *u.Index
		c.Index = &v
	}
	if u.Translated != nil {
		v := *u.Translated
		c.Translated = &v
	}
	return c
}

func (u Unit) String() string {
	return fmt.Sprintf("%s [%s] %q", u.DisplayID(), u.Status, u.Original)
}

// UnmarshalJSON accepts records that only carry "string": such a record is
// an untranslated original.
func (u *Unit) UnmarshalJSON(data []byte) error {
	type plain Unit
	var raw struct {
		plain
		Original *string `json:"original"`
		Status   *Status `json:"status"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = Unit(raw.plain)
	if raw.Status != nil {
		u.Status = *raw.Status
	}
	switch {
	case raw.Original != nil:
		u.Original = *raw.Original
	case u.Translated != nil:
		u.Original = *u.Translated
		u.Translated = nil
		u.Status = TranslationRequired
	}
	return nil
}

// Ptr returns a pointer to v. It is used for the optional unit fields.
func Ptr[T any](v T) *T { return &v }

func optString(s *string) string {
	if s == nil {
		return "None"
	}
	return *s
}

func optInt(i *int) string {
	if i == nil {
		return "None"
	}
	return strconv.Itoa(*i)
}
