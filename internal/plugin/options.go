package plugin

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"slices"
)

//go:embed string_records.json
var defaultStringRecords []byte

// StringRecords maps a record type to the field tags that hold
// localizable text, e.g. {"WEAP": ["FULL", "DESC"]}.
type StringRecords map[string][]string

// IsText reports whether field of record holds localizable text.
func (s StringRecords) IsText(record, field string) bool {
	return slices.Contains(s[record], field)
}

// ParseStringRecords decodes an allow-list from JSON.
func ParseStringRecords(data []byte) (StringRecords, error) {
	var s StringRecords
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse string records: %w", err)
	}
	return s, nil
}

// LoadStringRecords reads an allow-list file.
func LoadStringRecords(path string) (StringRecords, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read string records: %w", err)
	}
	return ParseStringRecords(data)
}

// DefaultStringRecords returns the built-in allow-list.
func DefaultStringRecords() StringRecords {
	s, err := ParseStringRecords(defaultStringRecords)
	if err != nil {
		panic(err)
	}
	return s
}

// Options controls how plugins are decoded.
type Options struct {
	// StringRecords selects the text fields. Nil uses DefaultStringRecords.
	StringRecords StringRecords
	// IndexedTags are text fields that may repeat inside one record and get
	// a running index. Nil means ITXT only. Quest, dialogue and perk
	// records derive their indices from neighbouring fields instead.
	IndexedTags []string
}

func (o Options) withDefaults() Options {
	if o.StringRecords == nil {
		o.StringRecords = DefaultStringRecords()
	}
	if o.IndexedTags == nil {
		o.IndexedTags = []string{"ITXT"}
	}
	return o
}
