package codec

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Codepage names a text encoding used inside plugin files.
type Codepage string

const (
	UTF8   Codepage = "utf8"
	CP1250 Codepage = "cp1250"
	CP1252 Codepage = "cp1252"
	CP1251 Codepage = "cp1251"
)

// Codepages is the order in which decoding is attempted.
var Codepages = []Codepage{UTF8, CP1250, CP1252, CP1251}

var charmaps = map[Codepage]*charmap.Charmap{
	CP1250: charmap.Windows1250,
	CP1252: charmap.Windows1252,
	CP1251: charmap.Windows1251,
}

// Bytes that the Windows code pages leave unassigned. charmap maps them to
// C1 controls, so they are rejected here to keep the fallback order meaningful.
var undefined = map[Codepage][]byte{
	CP1250: {0x81, 0x83, 0x88, 0x90, 0x98},
	CP1252: {0x81, 0x8D, 0x8F, 0x90, 0x9D},
	CP1251: {0x98},
}

// Text is decoded string data together with the codepage it was decoded with.
type Text struct {
	Value    string
	Codepage Codepage
	// Lossy is set when no codepage could decode the bytes and invalid
	// sequences were replaced with U+FFFD.
	Lossy bool
}

func (t Text) String() string { return t.Value }

// Decode tries every codepage in order and commits to the first that accepts data.
func Decode(data []byte) Text {
	for _, cp := range Codepages {
		if s, ok := decodeWith(data, cp); ok {
			return Text{Value: s, Codepage: cp}
		}
	}
	return Text{Value: forceUTF8(data), Codepage: UTF8, Lossy: true}
}

func decodeWith(data []byte, cp Codepage) (string, bool) {
	if cp == UTF8 {
		if !utf8.Valid(data) {
			return "", false
		}
		return string(data), true
	}
	cm, ok := charmaps[cp]
	if !ok {
		return "", false
	}
	for _, c := range data {
		if bytes.IndexByte(undefined[cp], c) >= 0 {
			return "", false
		}
	}
	out, err := cm.NewDecoder().Bytes(data)
	if err != nil {
		return "", false
	}
	return string(out), true
}

func forceUTF8(data []byte) string {
	var sb bytes.Buffer
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size <= 1 {
			sb.WriteRune(utf8.RuneError)
			data = data[1:]
			continue
		}
		sb.Write(data[:size])
		data = data[size:]
	}
	return sb.String()
}

// Encode converts s to bytes with cp. If s cannot be represented in cp the
// text is written as UTF-8 and the codepage actually used is returned.
func Encode(s string, cp Codepage) ([]byte, Codepage) {
	if cm, ok := charmaps[cp]; ok {
		out, err := cm.NewEncoder().Bytes([]byte(s))
		if err == nil {
			return out, cp
		}
	}
	return []byte(s), UTF8
}

// Bytes encodes t with its own codepage.
func (t Text) Bytes() []byte {
	b, _ := Encode(t.Value, t.Codepage)
	return b
}

// StrType selects one of the string layouts used by the format.
type StrType int

const (
	// Char is a single 8-bit character.
	Char StrType = iota
	// WChar is a single 16-bit character.
	WChar
	// BZString is NUL-terminated and prefixed by a uint8 length.
	BZString
	// BString is prefixed by a uint8 length.
	BString
	// WString is prefixed by a uint16 length.
	WString
	// WZString is NUL-terminated and prefixed by a uint16 length.
	WZString
	// ZString is NUL-terminated.
	ZString
	// String has a caller-supplied length.
	String
	// List is a run of NUL-separated strings.
	List
)

// ReadText reads one string of the given layout. size is only used by String.
func (r *Reader) ReadText(t StrType, size int) (Text, error) {
	switch t {
	case Char:
		b, err := r.Read(1)
		if err != nil {
			return Text{}, err
		}
		return Decode(b), nil
	case WChar:
		b, err := r.Read(2)
		if err != nil {
			return Text{}, err
		}
		return Decode(b), nil
	case BZString, BString:
		n, err := r.Uint8()
		if err != nil {
			return Text{}, err
		}
		b, err := r.Read(int(n))
		if err != nil {
			return Text{}, err
		}
		return Decode(bytes.Trim(b, "\x00")), nil
	case WString, WZString:
		n, err := r.Uint16()
		if err != nil {
			return Text{}, err
		}
		b, err := r.Read(int(n))
		if err != nil {
			return Text{}, err
		}
		return Decode(bytes.Trim(b, "\x00")), nil
	case ZString:
		return r.ZString(), nil
	case String:
		b, err := r.Read(size)
		if err != nil {
			return Text{}, err
		}
		return Decode(b), nil
	default:
		return Text{}, fmt.Errorf("string type %d is not a single string", t)
	}
}

// ZString reads up to the next NUL byte or the end of the buffer.
func (r *Reader) ZString() Text {
	rest := r.data[r.pos:]
	end := bytes.IndexByte(rest, 0)
	if end < 0 {
		r.pos = len(r.data)
		return Decode(rest)
	}
	r.pos += end + 1
	return Decode(rest[:end])
}

// ReadList reads NUL-separated strings until count non-empty strings were
// collected or the buffer is exhausted.
func (r *Reader) ReadList(count int) []Text {
	var out []Text
	for len(out) < count && !r.EOF() {
		t := r.ZString()
		if t.Value != "" {
			out = append(out, t)
		}
	}
	return out
}

// WriteText writes t in the given layout.
func (w *Writer) WriteText(t Text, st StrType) error {
	data := t.Bytes()
	switch st {
	case Char, WChar, String:
		w.Write(data)
	case BString:
		if len(data) > 0xFF {
			return fmt.Errorf("string of %d bytes exceeds uint8 length", len(data))
		}
		w.Uint8(uint8(len(data)))
		w.Write(data)
	case BZString:
		if len(data)+1 > 0xFF {
			return fmt.Errorf("string of %d bytes exceeds uint8 length", len(data))
		}
		w.Uint8(uint8(len(data) + 1))
		w.Write(data)
		w.Uint8(0)
	case WString:
		if len(data) > 0xFFFF {
			return fmt.Errorf("string of %d bytes exceeds uint16 length", len(data))
		}
		w.Uint16(uint16(len(data)))
		w.Write(data)
	case WZString:
		if len(data)+1 > 0xFFFF {
			return fmt.Errorf("string of %d bytes exceeds uint16 length", len(data))
		}
		w.Uint16(uint16(len(data) + 1))
		w.Write(data)
		w.Uint8(0)
	case ZString:
		w.Write(data)
		w.Uint8(0)
	default:
		return fmt.Errorf("string type %d is not a single string", st)
	}
	return nil
}

// WriteList writes texts separated and terminated by NUL bytes.
func (w *Writer) WriteList(texts []Text) {
	for i, t := range texts {
		if i > 0 {
			w.Uint8(0)
		}
		w.Write(t.Bytes())
	}
	w.Uint8(0)
}
