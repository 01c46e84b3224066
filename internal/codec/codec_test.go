package codec_test

import (
	"bytes"
	"errors"
	"testing"

	"esp-translator/internal/codec"
)

func TestReaderIntegersLittleEndian(t *testing.T) {
	data := []byte{
		0x01,
		0x02, 0x01,
		0x04, 0x03, 0x02, 0x01,
		0xFE, 0xFF,
		0x00, 0x00, 0x80, 0x3F,
	}
	r := codec.NewReader(data)

	u8, _ := r.Uint8()
	u16, _ := r.Uint16()
	u32, _ := r.Uint32()
	i16, _ := r.Int16()
	f32, err := r.Float32()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if u8 != 1 || u16 != 0x0102 || u32 != 0x01020304 || i16 != -2 || f32 != 1.0 {
		t.Fatalf("unexpected values: %d %#x %#x %d %v", u8, u16, u32, i16, f32)
	}
	if !r.EOF() {
		t.Fatalf("expected EOF, %d bytes left", r.Len())
	}
}

func TestReaderTruncated(t *testing.T) {
	r := codec.NewReader([]byte{0x01, 0x02})
	if _, err := r.Uint32(); !errors.Is(err, codec.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	if r.Pos() != 0 {
		t.Fatalf("failed read must not advance, pos=%d", r.Pos())
	}
}

func TestPeekDoesNotAdvance(t *testing.T) {
	r := codec.NewReader([]byte("GRUPxxxx"))
	b, err := r.Peek(4)
	if err != nil || string(b) != "GRUP" {
		t.Fatalf("peek: %q %v", b, err)
	}
	if r.Pos() != 0 {
		t.Fatalf("peek advanced to %d", r.Pos())
	}
}

func TestUintNWidths(t *testing.T) {
	w := codec.NewWriter()
	for _, width := range []int{1, 2, 4} {
		if err := w.UintN(200, width); err != nil {
			t.Fatalf("write width %d: %v", width, err)
		}
	}
	if err := w.UintN(300, 1); err == nil {
		t.Fatal("expected overflow error for width 1")
	}
	r := codec.NewReader(w.Bytes())
	for _, width := range []int{1, 2, 4} {
		v, err := r.UintN(width)
		if err != nil || v != 200 {
			t.Fatalf("width %d: got %d, %v", width, v, err)
		}
	}
}

func TestDecodeCodepageFallback(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		want  string
		cp    codec.Codepage
		lossy bool
	}{
		{"ascii", []byte("Iron Sword"), "Iron Sword", codec.UTF8, false},
		{"utf8", []byte("Épée"), "Épée", codec.UTF8, false},
		{"cp1250", []byte{'Z', 0xB9, 'b'}, "Ząb", codec.CP1250, false},
		// 0x98 is unassigned in cp1250, so cp1252 wins.
		{"cp1252", []byte{'a', 0x98, 0x9F}, "a˜Ÿ", codec.CP1252, false},
		{"lossy", []byte{0x98, 0x81}, "\uFFFD\uFFFD", codec.UTF8, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := codec.Decode(tc.data)
			if got.Value != tc.want || got.Codepage != tc.cp || got.Lossy != tc.lossy {
				t.Fatalf("got %+v, want %q/%s/%v", got, tc.want, tc.cp, tc.lossy)
			}
		})
	}
}

func TestEncodeReusesCodepage(t *testing.T) {
	raw := []byte{'Z', 0xB9, 'b'}
	text := codec.Decode(raw)
	if got := text.Bytes(); !bytes.Equal(got, raw) {
		t.Fatalf("re-encode: got %x want %x", got, raw)
	}

	out, cp := codec.Encode("日本", codec.CP1250)
	if cp != codec.UTF8 || string(out) != "日本" {
		t.Fatalf("unrepresentable text should fall back to utf8, got %s %q", cp, out)
	}
}

func TestStringLayouts(t *testing.T) {
	text := codec.Text{Value: "Skyrim", Codepage: codec.UTF8}
	layouts := []struct {
		st   codec.StrType
		want []byte
	}{
		{codec.ZString, []byte("Skyrim\x00")},
		{codec.BString, append([]byte{6}, "Skyrim"...)},
		{codec.BZString, append([]byte{7}, "Skyrim\x00"...)},
		{codec.WString, append([]byte{6, 0}, "Skyrim"...)},
		{codec.WZString, append([]byte{7, 0}, "Skyrim\x00"...)},
	}
	for _, l := range layouts {
		w := codec.NewWriter()
		if err := w.WriteText(text, l.st); err != nil {
			t.Fatalf("write %d: %v", l.st, err)
		}
		if !bytes.Equal(w.Bytes(), l.want) {
			t.Fatalf("layout %d: got %q want %q", l.st, w.Bytes(), l.want)
		}
		got, err := codec.NewReader(w.Bytes()).ReadText(l.st, 0)
		if err != nil || got.Value != "Skyrim" {
			t.Fatalf("read layout %d: %q %v", l.st, got.Value, err)
		}
	}
}

func TestZStringWithoutTerminator(t *testing.T) {
	r := codec.NewReader([]byte("abc"))
	if got := r.ZString(); got.Value != "abc" || !r.EOF() {
		t.Fatalf("got %q eof=%v", got.Value, r.EOF())
	}
}

func TestReadList(t *testing.T) {
	r := codec.NewReader([]byte("one\x00\x00two\x00three\x00"))
	list := r.ReadList(2)
	if len(list) != 2 || list[0].Value != "one" || list[1].Value != "two" {
		t.Fatalf("unexpected list %+v", list)
	}

	w := codec.NewWriter()
	w.WriteList([]codec.Text{{Value: "a"}, {Value: "b"}})
	if string(w.Bytes()) != "a\x00b\x00" {
		t.Fatalf("list bytes %q", w.Bytes())
	}
}
