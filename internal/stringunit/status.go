package stringunit

import (
	"encoding/json"
	"fmt"
)

// Status is the translation state of a Unit. It is persisted by name.
type Status int

const (
	NoneStatus Status = iota
	NoTranslationRequired
	TranslationComplete
	TranslationIncomplete
	TranslationRequired
)

var statusNames = [...]string{
	NoneStatus:            "NoneStatus",
	NoTranslationRequired: "NoTranslationRequired",
	TranslationComplete:   "TranslationComplete",
	TranslationIncomplete: "TranslationIncomplete",
	TranslationRequired:   "TranslationRequired",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// ParseStatus resolves a status name.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return NoneStatus, fmt.Errorf("unknown string status %q", name)
}

// StatusFromOrdinal maps the 1-based ordinal used by legacy files.
func StatusFromOrdinal(v int) (Status, error) {
	s := Status(v - 1)
	if s < NoneStatus || s > TranslationRequired {
		return NoneStatus, fmt.Errorf("unknown legacy status value %d", v)
	}
	return s, nil
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}
	st, err := ParseStatus(name)
	if err != nil {
		return err
	}
	*s = st
	return nil
}
