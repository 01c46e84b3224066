package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Writer accumulates little-endian encoded values.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter creates an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the accumulated bytes.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return w.buf.Len() }

func (w *Writer) Write(p []byte) { w.buf.Write(p) }

// Tag writes a 4-byte signature. Shorter tags are NUL padded.
func (w *Writer) Tag(tag string) {
	var b [4]byte
	copy(b[:], tag)
	w.buf.Write(b[:])
}

func (w *Writer) Uint8(v uint8) { w.buf.WriteByte(v) }

func (w *Writer) Uint16(v uint16) {
	w.buf.Write(binary.LittleEndian.AppendUint16(nil, v))
}

func (w *Writer) Uint32(v uint32) {
	w.buf.Write(binary.LittleEndian.AppendUint32(nil, v))
}

func (w *Writer) Uint64(v uint64) {
	w.buf.Write(binary.LittleEndian.AppendUint64(nil, v))
}

func (w *Writer) Int8(v int8)   { w.Uint8(uint8(v)) }
func (w *Writer) Int16(v int16) { w.Uint16(uint16(v)) }
func (w *Writer) Int32(v int32) { w.Uint32(uint32(v)) }
func (w *Writer) Int64(v int64) { w.Uint64(uint64(v)) }

func (w *Writer) Float32(v float32) { w.Uint32(math.Float32bits(v)) }
func (w *Writer) Float64(v float64) { w.Uint64(math.Float64bits(v)) }

// UintN writes v as an unsigned little-endian integer of width bytes.
func (w *Writer) UintN(v uint64, width int) error {
	if width < 1 || width > 8 {
		return fmt.Errorf("unsupported integer width %d", width)
	}
	if width < 8 && v >= 1<<(8*width) {
		return fmt.Errorf("value %d does not fit in %d bytes", v, width)
	}
	for i := 0; i < width; i++ {
		w.buf.WriteByte(byte(v >> (8 * i)))
	}
	return nil
}
