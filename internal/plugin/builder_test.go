package plugin_test

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"math"
)

// Helpers that synthesise plugin bytes for tests.

func le16(v uint16) []byte { return binary.LittleEndian.AppendUint16(nil, v) }
func le32(v uint32) []byte { return binary.LittleEndian.AppendUint32(nil, v) }
func le64(v uint64) []byte { return binary.LittleEndian.AppendUint64(nil, v) }

func cat(parts ...[]byte) []byte { return bytes.Join(parts, nil) }

func zstr(s string) []byte { return append([]byte(s), 0) }

func field(tag string, data []byte) []byte {
	return cat([]byte(tag), le16(uint16(len(data))), data)
}

func recordHeader(tag string, size, flags, formID uint32) []byte {
	return cat([]byte(tag), le32(size), le32(flags), le32(formID), le16(0x1234), le16(7), le16(44), le16(0))
}

func record(tag string, flags, formID uint32, fields ...[]byte) []byte {
	body := cat(fields...)
	return cat(recordHeader(tag, uint32(len(body)), flags, formID), body)
}

func compressedRecord(tag string, flags, formID uint32, fields ...[]byte) []byte {
	payload := cat(fields...)
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(payload)
	zw.Close()
	body := cat(le32(uint32(len(payload))), buf.Bytes())
	return cat(recordHeader(tag, uint32(len(body)), flags|0x40000, formID), body)
}

func typedGroup(groupType int32, label []byte, children ...[]byte) []byte {
	body := cat(children...)
	return cat([]byte("GRUP"), le32(uint32(len(body)+24)), label, le32(uint32(groupType)), le16(3), le16(5), le32(0), body)
}

func group(label string, children ...[]byte) []byte {
	return typedGroup(0, []byte(label), children...)
}

func header(flags uint32, masters ...string) []byte {
	fields := [][]byte{
		field("HEDR", cat(le32(math.Float32bits(1.71)), le32(3), le32(0x800))),
		field("CNAM", zstr("Author")),
	}
	for _, m := range masters {
		fields = append(fields, field("MAST", zstr(m)), field("DATA", le64(0)))
	}
	return record("TES4", flags, 0, fields...)
}

type lookup map[uint32]string

func (l lookup) Lookup(id uint32) (string, bool) {
	s, ok := l[id]
	return s, ok
}
