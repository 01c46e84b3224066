package store

import (
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/nlpodyssey/gopickle/pickle"
	"github.com/nlpodyssey/gopickle/types"

	"esp-translator/internal/stringunit"
)

// Legacy translation files are pickled lists of string objects. Every
// class the pickle names is mapped onto one of the two types below, so
// nothing in the file is ever executed.

// legacyString receives the attribute dict of a pickled string object.
type legacyString struct {
	unit stringunit.Unit
}

type legacyStringClass struct{}

func (legacyStringClass) PyNew(args ...interface{}) (interface{}, error) {
	return &legacyString{}, nil
}

func (legacyStringClass) Call(args ...interface{}) (interface{}, error) {
	return &legacyString{}, nil
}

func (s *legacyString) PySetState(state interface{}) error {
	if t, ok := state.(*types.Tuple); ok && t.Len() == 2 {
		// (dict, slots) form
		if d := t.Get(0); d != nil {
			state = d
		} else {
			state = t.Get(1)
		}
	}
	d, ok := state.(*types.Dict)
	if !ok {
		return fmt.Errorf("%w: string state is %T", ErrLegacyFormat, state)
	}
	var err error
	get := func(key string) (interface{}, bool) {
		return d.Get(key)
	}
	if v, ok := get("form_id"); ok {
		s.unit.FormID, err = legacyText(v)
	}
	if v, ok := get("editor_id"); ok && err == nil && v != nil {
		var edid string
		edid, err = legacyText(v)
		s.unit.EditorID = &edid
	}
	if v, ok := get("type"); ok && err == nil {
		s.unit.Type, err = legacyText(v)
	}
	if v, ok := get("index"); ok && err == nil && v != nil {
		var idx int
		idx, err = legacyInt(v)
		s.unit.Index = &idx
	}
	for _, key := range []string{"original_string", "original"} {
		if v, ok := get(key); ok && err == nil && v != nil {
			s.unit.Original, err = legacyText(v)
			break
		}
	}
	for _, key := range []string{"translated_string", "string"} {
		if v, ok := get(key); ok && err == nil && v != nil {
			var tr string
			tr, err = legacyText(v)
			s.unit.Translated = &tr
			break
		}
	}
	if v, ok := get("status"); ok && err == nil {
		switch st := v.(type) {
		case stringunit.Status:
			s.unit.Status = st
		case nil:
		default:
			s.unit.Status, err = legacyStatus(v)
		}
	}
	return err
}

// legacyStatusClass turns a pickled status enum member into a Status.
type legacyStatusClass struct{}

func (legacyStatusClass) Call(args ...interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%w: status takes one value, got %d", ErrLegacyFormat, len(args))
	}
	return legacyStatus(args[0])
}

func legacyStatus(v interface{}) (stringunit.Status, error) {
	n, err := legacyInt(v)
	if err != nil {
		return 0, err
	}
	return stringunit.StatusFromOrdinal(n)
}

func legacyInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case int32:
		return int(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case *big.Int:
		if !n.IsInt64() {
			return 0, fmt.Errorf("%w: integer %s out of range", ErrLegacyFormat, n)
		}
		return int(n.Int64()), nil
	}
	return 0, fmt.Errorf("%w: expected integer, got %T", ErrLegacyFormat, v)
}

func legacyText(v interface{}) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	}
	return "", fmt.Errorf("%w: expected text, got %T", ErrLegacyFormat, v)
}

func findLegacyClass(module, name string) (interface{}, error) {
	switch {
	case strings.HasSuffix(name, "Status"):
		return legacyStatusClass{}, nil
	case name == "String" || name == "LegacyString" || name == "PluginString":
		return legacyStringClass{}, nil
	}
	return nil, fmt.Errorf("%w: unexpected class %s.%s", ErrLegacyFormat, module, name)
}

// decodeLegacy reads the units of a pickled legacy translation file.
func decodeLegacy(r io.Reader) ([]stringunit.Unit, error) {
	u := pickle.NewUnpickler(r)
	u.FindClass = findLegacyClass
	v, err := u.Load()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLegacyFormat, err)
	}
	list, ok := v.(*types.List)
	if !ok {
		return nil, fmt.Errorf("%w: top level is %T, not a list", ErrLegacyFormat, v)
	}
	units := make([]stringunit.Unit, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		s, ok := list.Get(i).(*legacyString)
		if !ok {
			return nil, fmt.Errorf("%w: item %d is %T", ErrLegacyFormat, i, list.Get(i))
		}
		units = append(units, s.unit)
	}
	return units, nil
}
