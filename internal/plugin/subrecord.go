package plugin

import (
	"bytes"
	"fmt"

	"esp-translator/internal/codec"
)

// Subrecord is one typed field of a record. The set of implementations is
// closed: Raw, HeaderInfo, EditorID, Master, ResponseData, QuestObjective,
// PerkEffectType, Oversize and StringField.
type Subrecord interface {
	// Type returns the 4-character field tag.
	Type() string
	// Data returns the payload as it will be written.
	Data() []byte

	field() *fieldHeader
}

// fieldHeader holds what every subrecord carries besides its payload.
type fieldHeader struct {
	tag string
	// oversized fields follow an XXXX field which carries their real length;
	// declared is the uint16 size found in the file and is written back as is.
	oversized bool
	declared  uint16
}

func (h *fieldHeader) Type() string        { return h.tag }
func (h *fieldHeader) field() *fieldHeader { return h }

// Raw is a subrecord kept as opaque bytes.
type Raw struct {
	fieldHeader
	Bytes []byte
}

func (s *Raw) Data() []byte { return s.Bytes }

// HeaderInfo is the HEDR field of the plugin header record.
type HeaderInfo struct {
	fieldHeader
	Version      float32
	RecordCount  uint32
	NextObjectID uint32
}

func (s *HeaderInfo) Data() []byte {
	w := codec.NewWriter()
	w.Float32(s.Version)
	w.Uint32(s.RecordCount)
	w.Uint32(s.NextObjectID)
	return w.Bytes()
}

// EditorID is the EDID field.
type EditorID struct {
	fieldHeader
	Value codec.Text
	raw   []byte
}

func (s *EditorID) Data() []byte { return s.raw }

// Master is a MAST field naming one master file.
type Master struct {
	fieldHeader
	File codec.Text
	raw  []byte
}

func (s *Master) Data() []byte { return s.raw }

// ResponseData is the TRDT field of a dialogue response.
type ResponseData struct {
	fieldHeader
	EmotionType  uint32
	EmotionValue uint32
	Unknown      int32
	ResponseID   uint8
	Junk1        [3]byte
	SoundFile    uint32
	UseEmoAnim   uint8
	Junk2        [3]byte
}

const responseDataSize = 24

func (s *ResponseData) Data() []byte {
	w := codec.NewWriter()
	w.Uint32(s.EmotionType)
	w.Uint32(s.EmotionValue)
	w.Int32(s.Unknown)
	w.Uint8(s.ResponseID)
	w.Write(s.Junk1[:])
	w.Uint32(s.SoundFile)
	w.Uint8(s.UseEmoAnim)
	w.Write(s.Junk2[:])
	return w.Bytes()
}

// QuestObjective is the QOBJ field opening a quest objective block.
type QuestObjective struct {
	fieldHeader
	Objective int16
}

func (s *QuestObjective) Data() []byte {
	w := codec.NewWriter()
	w.Int16(s.Objective)
	return w.Bytes()
}

// PerkEffectType is the EPFT field selecting the layout of a perk effect.
type PerkEffectType struct {
	fieldHeader
	PerkType uint8
}

func (s *PerkEffectType) Data() []byte { return []byte{s.PerkType} }

// Oversize is an XXXX field. It carries the payload length of the field
// that follows it, in Width bytes. Value is refreshed on every write.
type Oversize struct {
	fieldHeader
	Width int
	Value uint64
}

func (s *Oversize) Data() []byte {
	out := make([]byte, s.Width)
	for i := range out {
		out[i] = byte(s.Value >> (8 * i))
	}
	return out
}

// StringField is a localizable text field. In localized plugins the payload
// is a uint32 id into the string tables, otherwise a NUL-terminated string.
type StringField struct {
	fieldHeader
	// Index disambiguates several strings of the same field in one record.
	Index *int

	text      codec.Text
	id        uint32
	localized bool
	raw       []byte
	dirty     bool
}

// Text returns the decoded string. It is empty for localized fields.
func (s *StringField) Text() codec.Text { return s.text }

// StringID returns the string table id of a localized field.
func (s *StringField) StringID() (uint32, bool) { return s.id, s.localized }

// Localized reports whether the field references a string table.
func (s *StringField) Localized() bool { return s.localized }

// SetText replaces the string, keeping the codepage it was decoded with.
func (s *StringField) SetText(v string) error {
	if s.localized {
		return fmt.Errorf("%w: %s", ErrLocalizedString, s.tag)
	}
	if v == s.text.Value {
		return nil
	}
	s.text = codec.Text{Value: v, Codepage: s.text.Codepage}
	s.dirty = true
	return nil
}

func (s *StringField) Data() []byte {
	if !s.dirty {
		return s.raw
	}
	w := codec.NewWriter()
	if s.localized {
		w.Uint32(s.id)
		return w.Bytes()
	}
	data, cp := codec.Encode(s.text.Value, s.text.Codepage)
	s.text.Codepage = cp
	w.Write(data)
	w.Uint8(0)
	return w.Bytes()
}

// decodeField builds the typed subrecord for tag. text marks fields the
// allow-list names as localizable for the enclosing record.
func decodeField(h fieldHeader, payload []byte, text, localized bool) (Subrecord, error) {
	if text {
		return decodeString(h, payload, localized), nil
	}
	switch h.tag {
	case "XXXX":
		if len(payload) == 0 || len(payload) > 8 {
			return nil, fmt.Errorf("%w: XXXX field of %d bytes", ErrMalformed, len(payload))
		}
		return &Oversize{fieldHeader: h, Width: len(payload), Value: codec.LittleEndian(payload)}, nil
	case "HEDR":
		if len(payload) != 12 {
			break
		}
		r := codec.NewReader(payload)
		v, _ := r.Float32()
		n, _ := r.Uint32()
		next, _ := r.Uint32()
		return &HeaderInfo{fieldHeader: h, Version: v, RecordCount: n, NextObjectID: next}, nil
	case "EDID":
		return &EditorID{fieldHeader: h, Value: codec.NewReader(payload).ZString(), raw: payload}, nil
	case "MAST":
		return &Master{fieldHeader: h, File: codec.NewReader(payload).ZString(), raw: payload}, nil
	case "TRDT":
		if len(payload) != responseDataSize {
			break
		}
		s := &ResponseData{fieldHeader: h}
		r := codec.NewReader(payload)
		s.EmotionType, _ = r.Uint32()
		s.EmotionValue, _ = r.Uint32()
		s.Unknown, _ = r.Int32()
		s.ResponseID, _ = r.Uint8()
		junk, _ := r.Read(3)
		copy(s.Junk1[:], junk)
		s.SoundFile, _ = r.Uint32()
		s.UseEmoAnim, _ = r.Uint8()
		junk, _ = r.Read(3)
		copy(s.Junk2[:], junk)
		return s, nil
	case "QOBJ":
		if len(payload) != 2 {
			break
		}
		v, _ := codec.NewReader(payload).Int16()
		return &QuestObjective{fieldHeader: h, Objective: v}, nil
	case "EPFT":
		if len(payload) != 1 {
			break
		}
		return &PerkEffectType{fieldHeader: h, PerkType: payload[0]}, nil
	}
	return &Raw{fieldHeader: h, Bytes: payload}, nil
}

func decodeString(h fieldHeader, payload []byte, localized bool) *StringField {
	s := &StringField{fieldHeader: h, raw: payload}
	if localized && len(payload) == 4 {
		s.localized = true
		s.id = uint32(codec.LittleEndian(payload))
		return s
	}
	end := bytes.IndexByte(payload, 0)
	if end < 0 {
		end = len(payload)
	}
	s.text = codec.Decode(payload[:end])
	return s
}
