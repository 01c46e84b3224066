package plugin

import (
	"fmt"
	"math"

	"esp-translator/internal/codec"
)

const groupHeaderSize = 24

// GroupType selects how a group's label is interpreted.
type GroupType int32

const (
	GroupNormal GroupType = iota
	GroupWorldChildren
	GroupInteriorCellBlock
	GroupInteriorCellSubBlock
	GroupExteriorCellBlock
	GroupExteriorCellSubBlock
	GroupCellChildren
	GroupTopicChildren
	GroupCellPersistentChildren
	GroupCellTemporaryChildren
)

var groupTypeNames = [...]string{
	"Normal",
	"WorldChildren",
	"InteriorCellBlock",
	"InteriorCellSubBlock",
	"ExteriorCellBlock",
	"ExteriorCellSubBlock",
	"CellChildren",
	"TopicChildren",
	"CellPersistentChildren",
	"CellTemporaryChildren",
}

func (t GroupType) String() string {
	if t < 0 || int(t) >= len(groupTypeNames) {
		return fmt.Sprintf("GroupType(%d)", int32(t))
	}
	return groupTypeNames[t]
}

// GroupLabel is the decoded 4-byte label. Which field is meaningful depends
// on the group type.
type GroupLabel struct {
	// Record is the record type collected by a Normal group.
	Record string
	// Parent is the world, topic or cell the group belongs to.
	Parent FormID
	// Block is the interior cell block or sub-block number.
	Block int32
	// Y and X are the exterior cell grid coordinates.
	Y, X int16
}

// Node is an element of a group: a *Record or a nested *Group.
type Node interface {
	isNode()
}

// Group is a GRUP container.
type Group struct {
	GroupType      GroupType
	Label          GroupLabel
	Timestamp      uint16
	VersionControl uint16
	Unknown        uint32
	Children       []Node
}

func (*Group) isNode() {}

// LabelString formats the label the way record browsers show it.
func (g *Group) LabelString() string {
	switch g.GroupType {
	case GroupNormal:
		return g.Label.Record
	case GroupInteriorCellBlock, GroupInteriorCellSubBlock:
		return fmt.Sprintf("%d", g.Label.Block)
	case GroupExteriorCellBlock, GroupExteriorCellSubBlock:
		return fmt.Sprintf("%d,%d", g.Label.Y, g.Label.X)
	default:
		return g.Label.Parent.String()
	}
}

func decodeLabel(t GroupType, raw []byte) (GroupLabel, error) {
	r := codec.NewReader(raw)
	var l GroupLabel
	switch t {
	case GroupNormal:
		l.Record = string(raw)
	case GroupWorldChildren, GroupTopicChildren,
		GroupCellChildren, GroupCellPersistentChildren, GroupCellTemporaryChildren:
		v, _ := r.Uint32()
		l.Parent = FormID(v)
	case GroupInteriorCellBlock, GroupInteriorCellSubBlock:
		l.Block, _ = r.Int32()
	case GroupExteriorCellBlock, GroupExteriorCellSubBlock:
		l.Y, _ = r.Int16()
		l.X, _ = r.Int16()
	default:
		return l, fmt.Errorf("%w: %d", ErrUnknownGroupType, int32(t))
	}
	return l, nil
}

func encodeLabel(w *codec.Writer, t GroupType, l GroupLabel) error {
	switch t {
	case GroupNormal:
		w.Tag(l.Record)
	case GroupWorldChildren, GroupTopicChildren,
		GroupCellChildren, GroupCellPersistentChildren, GroupCellTemporaryChildren:
		w.Uint32(uint32(l.Parent))
	case GroupInteriorCellBlock, GroupInteriorCellSubBlock:
		w.Int32(l.Block)
	case GroupExteriorCellBlock, GroupExteriorCellSubBlock:
		w.Int16(l.Y)
		w.Int16(l.X)
	default:
		return fmt.Errorf("%w: %d", ErrUnknownGroupType, int32(t))
	}
	return nil
}

func parseGroup(r *codec.Reader, localized bool, opts *Options) (*Group, error) {
	start := r.Pos()
	hdr, err := r.Read(groupHeaderSize)
	if err != nil {
		return nil, fmt.Errorf("%w: group header at offset %d: %w", ErrMalformed, start, err)
	}
	hr := codec.NewReader(hdr)
	tag, _ := hr.Tag()
	if tag != "GRUP" {
		return nil, fmt.Errorf("%w: expected GRUP at offset %d, found %q", ErrMalformed, start, tag)
	}
	size, _ := hr.Uint32()
	rawLabel, _ := hr.Read(4)
	gt, _ := hr.Int32()

	g := &Group{GroupType: GroupType(gt)}
	g.Timestamp, _ = hr.Uint16()
	g.VersionControl, _ = hr.Uint16()
	g.Unknown, _ = hr.Uint32()

	if size < groupHeaderSize {
		return nil, fmt.Errorf("%w: group at offset %d declares %d bytes", ErrMalformed, start, size)
	}
	g.Label, err = decodeLabel(g.GroupType, rawLabel)
	if err != nil {
		return nil, fmt.Errorf("group at offset %d: %w", start, err)
	}

	body, err := r.Read(int(size) - groupHeaderSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %s group at offset %d: %w", ErrMalformed, g.LabelString(), start, err)
	}

	cr := codec.NewReader(body)
	for !cr.EOF() {
		tag, err := cr.Peek(4)
		if err != nil {
			return nil, fmt.Errorf("%w: %s group: %w", ErrMalformed, g.LabelString(), err)
		}
		var child Node
		if string(tag) == "GRUP" {
			child, err = parseGroup(cr, localized, opts)
		} else {
			child, err = parseRecord(cr, localized, opts)
		}
		if err != nil {
			return nil, err
		}
		g.Children = append(g.Children, child)
	}
	return g, nil
}

func (g *Group) encode(w *codec.Writer) error {
	body := codec.NewWriter()
	for _, child := range g.Children {
		var err error
		switch c := child.(type) {
		case *Record:
			err = c.encode(body)
		case *Group:
			err = c.encode(body)
		}
		if err != nil {
			return err
		}
	}
	size := uint64(body.Len()) + groupHeaderSize
	if size > math.MaxUint32 {
		return fmt.Errorf("%s group of %d bytes is too large", g.LabelString(), size)
	}

	w.Tag("GRUP")
	w.Uint32(uint32(size))
	if err := encodeLabel(w, g.GroupType, g.Label); err != nil {
		return err
	}
	w.Int32(int32(g.GroupType))
	w.Uint16(g.Timestamp)
	w.Uint16(g.VersionControl)
	w.Uint32(g.Unknown)
	w.Write(body.Bytes())
	return nil
}

// Records returns every record below g, depth first in file order.
func (g *Group) Records() []*Record {
	var out []*Record
	g.walk(func(r *Record) { out = append(out, r) })
	return out
}

func (g *Group) walk(fn func(*Record)) {
	for _, child := range g.Children {
		switch c := child.(type) {
		case *Record:
			fn(c)
		case *Group:
			c.walk(fn)
		}
	}
}
