package plugin

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/rs/zerolog/log"

	"esp-translator/internal/codec"
)

const recordHeaderSize = 24

// Record is a typed container of subrecords.
type Record struct {
	Type            string
	Flags           RecordFlags
	FormID          FormID
	Timestamp       uint16
	VersionControl  uint16
	InternalVersion uint16
	Unknown         uint16
	Subrecords      []Subrecord

	// packed is the zlib stream read from disk and unpacked the payload it
	// inflates to. Both are nil for uncompressed records.
	packed   []byte
	unpacked []byte
}

func (*Record) isNode() {}

// EditorID returns the text of the EDID field, if any.
func (rec *Record) EditorID() (string, bool) {
	for _, sr := range rec.Subrecords {
		if e, ok := sr.(*EditorID); ok {
			return e.Value.Value, true
		}
	}
	return "", false
}

// Strings returns the localizable text fields in encounter order.
func (rec *Record) Strings() []*StringField {
	var out []*StringField
	for _, sr := range rec.Subrecords {
		if s, ok := sr.(*StringField); ok {
			out = append(out, s)
		}
	}
	return out
}

func parseRecord(r *codec.Reader, localized bool, opts *Options) (*Record, error) {
	start := r.Pos()
	hdr, err := r.Read(recordHeaderSize)
	if err != nil {
		return nil, fmt.Errorf("%w: record header at offset %d: %w", ErrMalformed, start, err)
	}
	hr := codec.NewReader(hdr)
	rec := &Record{}
	rec.Type, _ = hr.Tag()
	size, _ := hr.Uint32()
	flags, _ := hr.Uint32()
	formID, _ := hr.Uint32()
	rec.Timestamp, _ = hr.Uint16()
	rec.VersionControl, _ = hr.Uint16()
	rec.InternalVersion, _ = hr.Uint16()
	rec.Unknown, _ = hr.Uint16()
	rec.Flags = RecordFlags(flags)
	rec.FormID = FormID(formID)

	body, err := r.Read(int(size))
	if err != nil {
		return nil, fmt.Errorf("%w: %s record %s at offset %d: %w", ErrMalformed, rec.Type, rec.FormID, start, err)
	}

	payload := body
	if rec.Flags.Has(FlagCompressed) {
		payload, err = rec.inflate(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %s record %s: %w", ErrMalformed, rec.Type, rec.FormID, err)
		}
	}

	if err := rec.decodeFields(payload, localized, opts); err != nil {
		return nil, fmt.Errorf("%w: %s record %s: %w", ErrMalformed, rec.Type, rec.FormID, err)
	}
	return rec, nil
}

func (rec *Record) inflate(body []byte) ([]byte, error) {
	br := codec.NewReader(body)
	declared, err := br.Uint32()
	if err != nil {
		return nil, fmt.Errorf("read decompressed size: %w", err)
	}
	packed := body[4:]
	zr, err := zlib.NewReader(bytes.NewReader(packed))
	if err != nil {
		return nil, fmt.Errorf("open zlib stream: %w", err)
	}
	defer zr.Close()
	payload, err := io.ReadAll(io.LimitReader(zr, int64(declared)+1))
	if err != nil {
		return nil, fmt.Errorf("inflate: %w", err)
	}
	if uint64(len(payload)) != uint64(declared) {
		return nil, fmt.Errorf("inflated %d bytes, header declares %d", len(payload), declared)
	}
	rec.packed = packed
	rec.unpacked = payload
	return payload, nil
}

// fieldScanner reads the subrecord stream of one record payload and takes
// care of XXXX length overrides.
type fieldScanner struct {
	r         *codec.Reader
	localized bool
	pending   int
}

func (s *fieldScanner) more() bool { return !s.r.EOF() }

func (s *fieldScanner) peekTag() string {
	b, err := s.r.Peek(4)
	if err != nil {
		return ""
	}
	return string(b)
}

func (s *fieldScanner) next(text bool) (Subrecord, error) {
	start := s.r.Pos()
	tag, err := s.r.Tag()
	if err != nil {
		return nil, fmt.Errorf("field at offset %d: %w", start, err)
	}
	size, err := s.r.Uint16()
	if err != nil {
		return nil, fmt.Errorf("%s field at offset %d: %w", tag, start, err)
	}
	h := fieldHeader{tag: tag}
	n := int(size)
	if s.pending >= 0 {
		h.oversized = true
		h.declared = size
		n = s.pending
		s.pending = -1
	}
	payload, err := s.r.Read(n)
	if err != nil {
		return nil, fmt.Errorf("%s field at offset %d: %w", tag, start, err)
	}
	sr, err := decodeField(h, payload, text, s.localized)
	if err != nil {
		return nil, err
	}
	if o, ok := sr.(*Oversize); ok {
		if o.Value > uint64(s.r.Len()) {
			return nil, fmt.Errorf("XXXX at offset %d announces %d bytes: %w", start, o.Value, codec.ErrTruncated)
		}
		s.pending = int(o.Value)
	}
	return sr, nil
}

type recordKind int

const (
	kindGeneric recordKind = iota
	kindQuest
	kindDialogue
	kindPerk
)

func kindOf(recordType string) recordKind {
	switch recordType {
	case "QUST":
		return kindQuest
	case "INFO":
		return kindDialogue
	case "PERK":
		return kindPerk
	}
	return kindGeneric
}

// scanState holds the running values used to derive string indices while
// the fields of one record are read. It never outlives the record.
type scanState struct {
	// quest
	stage      []byte
	hasStage   bool
	conditions [][]byte
	objective  int

	// dialogue
	response int

	// perk
	perkType    int
	effectIndex int

	// other records
	textIndex int
}

func (rec *Record) decodeFields(payload []byte, localized bool, opts *Options) error {
	s := &fieldScanner{r: codec.NewReader(payload), localized: localized, pending: -1}
	st := &scanState{perkType: -1}
	kind := kindOf(rec.Type)
	rec.Subrecords = nil

	for s.more() {
		tag := s.peekTag()
		text := opts.StringRecords.IsText(rec.Type, tag)
		if kind == kindPerk {
			text = st.perkText(tag, text)
		}

		sr, err := s.next(text)
		if err != nil {
			return err
		}
		rec.Subrecords = append(rec.Subrecords, sr)

		switch kind {
		case kindQuest:
			st.quest(rec, sr)
		case kindDialogue:
			st.dialogue(sr)
		case kindPerk:
			if err := st.perk(rec, s, sr); err != nil {
				return err
			}
		default:
			st.generic(sr, opts.IndexedTags)
		}
	}
	if s.pending >= 0 {
		return fmt.Errorf("XXXX field is not followed by another field: %w", codec.ErrTruncated)
	}
	return nil
}

func setIndex(sr Subrecord, v int) {
	if s, ok := sr.(*StringField); ok {
		s.Index = &v
	}
}

func (st *scanState) quest(rec *Record, sr Subrecord) {
	switch sr.Type() {
	case "INDX":
		st.stage = sr.Data()
		st.hasStage = true
		st.conditions = nil
	case "CTDA":
		st.conditions = append(st.conditions, sr.Data())
	case "CNAM":
		if !st.hasStage {
			log.Warn().
				Str("record", rec.FormID.String()).
				Err(ErrNoStageIndex).
				Msg("Quest log entry has no stage index")
			return
		}
		setIndex(sr, stageIndex(st.stage, st.conditions))
	case "QOBJ":
		if q, ok := sr.(*QuestObjective); ok {
			st.objective = int(q.Objective)
		}
	case "NNAM":
		setIndex(sr, st.objective)
	}
}

func (st *scanState) dialogue(sr Subrecord) {
	switch s := sr.(type) {
	case *ResponseData:
		st.response = int(s.ResponseID)
	case *StringField:
		if s.Type() == "NAM1" {
			setIndex(s, st.response)
		}
	}
}

// perkText decides whether a perk field holds text. EPF2 and EPFD carry
// text only for the effect types that define them as strings.
func (st *scanState) perkText(tag string, listed bool) bool {
	switch tag {
	case "EPF2":
		return st.perkType == 4
	case "EPFD":
		return st.perkType == 7
	}
	return listed
}

func (st *scanState) perk(rec *Record, s *fieldScanner, sr Subrecord) error {
	switch sr.Type() {
	case "EPFT":
		if e, ok := sr.(*PerkEffectType); ok {
			st.perkType = int(e.PerkType)
		}
	case "EPFD":
		setIndex(sr, st.effectIndex)
		st.effectIndex++
	case "EPF2":
		if s.peekTag() != "EPF3" {
			if _, ok := sr.(*StringField); ok {
				log.Warn().
					Str("record", rec.FormID.String()).
					Msg("EPF2 field without following EPF3")
			}
			return nil
		}
		ref, err := s.next(false)
		if err != nil {
			return err
		}
		rec.Subrecords = append(rec.Subrecords, ref)
		if data := ref.Data(); len(data) > 2 {
			setIndex(sr, int(codec.LittleEndian(data[2:])))
		} else {
			setIndex(sr, 0)
		}
	}
	return nil
}

func (st *scanState) generic(sr Subrecord, indexed []string) {
	if !slices.Contains(indexed, sr.Type()) {
		return
	}
	setIndex(sr, st.textIndex)
	st.textIndex++
}

func (rec *Record) encode(w *codec.Writer) error {
	payload, err := encodeFields(rec.Subrecords)
	if err != nil {
		return fmt.Errorf("encode %s record %s: %w", rec.Type, rec.FormID, err)
	}
	body := payload
	if rec.Flags.Has(FlagCompressed) {
		body, err = rec.deflate(payload)
		if err != nil {
			return fmt.Errorf("compress %s record %s: %w", rec.Type, rec.FormID, err)
		}
	}
	if uint64(len(body)) > math.MaxUint32 {
		return fmt.Errorf("%s record %s: body of %d bytes is too large", rec.Type, rec.FormID, len(body))
	}

	w.Tag(rec.Type)
	w.Uint32(uint32(len(body)))
	w.Uint32(uint32(rec.Flags))
	w.Uint32(uint32(rec.FormID))
	w.Uint16(rec.Timestamp)
	w.Uint16(rec.VersionControl)
	w.Uint16(rec.InternalVersion)
	w.Uint16(rec.Unknown)
	w.Write(body)
	return nil
}

func (rec *Record) deflate(payload []byte) ([]byte, error) {
	packed := rec.packed
	if packed == nil || !bytes.Equal(payload, rec.unpacked) {
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(payload); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		packed = buf.Bytes()
	}
	w := codec.NewWriter()
	w.Uint32(uint32(len(payload)))
	w.Write(packed)
	return w.Bytes(), nil
}

func encodeFields(fields []Subrecord) ([]byte, error) {
	w := codec.NewWriter()
	for i, sr := range fields {
		if o, ok := sr.(*Oversize); ok {
			if i+1 >= len(fields) {
				return nil, fmt.Errorf("XXXX field is not followed by another field")
			}
			n := uint64(len(fields[i+1].Data()))
			if o.Width < 8 && n >= 1<<(8*o.Width) {
				return nil, fmt.Errorf("%d bytes do not fit in a %d byte XXXX field", n, o.Width)
			}
			o.Value = n
		}
		data := sr.Data()
		h := sr.field()
		w.Tag(h.tag)
		switch {
		case h.oversized:
			w.Uint16(h.declared)
		case len(data) > math.MaxUint16:
			return nil, fmt.Errorf("%s field of %d bytes needs a preceding XXXX field", h.tag, len(data))
		default:
			w.Uint16(uint16(len(data)))
		}
		w.Write(data)
	}
	return w.Bytes(), nil
}
