// Package codec reads and writes the little-endian primitives and string
// encodings used by Creation Engine plugin files.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrTruncated is returned when a read needs more bytes than remain.
var ErrTruncated = errors.New("unexpected end of data")

// Reader is a cursor over an in-memory byte buffer.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a Reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Pos returns the current offset.
func (r *Reader) Pos() int { return r.pos }

// Size returns the total length of the underlying buffer.
func (r *Reader) Size() int { return len(r.data) }

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.data) - r.pos }

// EOF reports whether every byte has been consumed.
func (r *Reader) EOF() bool { return r.pos >= len(r.data) }

// Seek moves the cursor to an absolute offset.
func (r *Reader) Seek(pos int) error {
	if pos < 0 || pos > len(r.data) {
		return fmt.Errorf("seek to %d of %d: %w", pos, len(r.data), ErrTruncated)
	}
	r.pos = pos
	return nil
}

// Peek returns the next n bytes without advancing.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n < 0 || r.Len() < n {
		return nil, fmt.Errorf("peek %d bytes at offset %d: %w", n, r.pos, ErrTruncated)
	}
	return r.data[r.pos : r.pos+n], nil
}

// Read consumes n bytes. The returned slice aliases the buffer.
func (r *Reader) Read(n int) ([]byte, error) {
	b, err := r.Peek(n)
	if err != nil {
		return nil, err
	}
	r.pos += n
	return b, nil
}

// Tag consumes a 4-byte record or field signature.
func (r *Reader) Tag() (string, error) {
	b, err := r.Read(4)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *Reader) Uint8() (uint8, error) {
	b, err := r.Read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) Uint16() (uint16, error) {
	b, err := r.Read(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) Uint32() (uint32, error) {
	b, err := r.Read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) Uint64() (uint64, error) {
	b, err := r.Read(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) Int8() (int8, error) {
	v, err := r.Uint8()
	return int8(v), err
}

func (r *Reader) Int16() (int16, error) {
	v, err := r.Uint16()
	return int16(v), err
}

func (r *Reader) Int32() (int32, error) {
	v, err := r.Uint32()
	return int32(v), err
}

func (r *Reader) Int64() (int64, error) {
	v, err := r.Uint64()
	return int64(v), err
}

func (r *Reader) Float32() (float32, error) {
	v, err := r.Uint32()
	return math.Float32frombits(v), err
}

func (r *Reader) Float64() (float64, error) {
	v, err := r.Uint64()
	return math.Float64frombits(v), err
}

// UintN reads an unsigned little-endian integer of width bytes (1 to 8).
func (r *Reader) UintN(width int) (uint64, error) {
	if width < 1 || width > 8 {
		return 0, fmt.Errorf("unsupported integer width %d", width)
	}
	b, err := r.Read(width)
	if err != nil {
		return 0, err
	}
	return LittleEndian(b), nil
}

// LittleEndian decodes up to 8 bytes as an unsigned little-endian integer.
func LittleEndian(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
