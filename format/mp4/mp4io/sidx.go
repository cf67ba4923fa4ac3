package mp4io

import "github.com/ugparu/remux/utils/bits/pio"

const (
	SIDX           = Tag(0x73696478)
	baseSIDXSize   = 32
	baseSIDXSizeV1 = 40
	ReferenceSize  = 12
	// MaxSegmentReferences is the largest reference count one sidx can carry.
	MaxSegmentReferences = 0xFFFF
)

// SegmentIndex is the sidx box.
type SegmentIndex struct {
	Version     uint8
	Flags       uint32
	ReferenceID uint32
	Timescale   uint32
	EarliestPT  uint64
	FirstOffset uint64
	Entries     []SegmentIndexReference
	AtomPos
}

// SegmentIndexLen is the size of a version 1 sidx with count references.
func SegmentIndexLen(count int) int {
	return baseSIDXSizeV1 + count*ReferenceSize
}

func (sidx SegmentIndex) Tag() Tag {
	return SIDX
}

func (sidx SegmentIndex) Len() int {
	n := baseSIDXSize
	if sidx.Version == 1 {
		n = baseSIDXSizeV1
	}
	return n + len(sidx.Entries)*ReferenceSize
}

func (sidx SegmentIndex) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[0:], uint32(sidx.Len()))
	pio.PutU32BE(b[4:], uint32(SIDX))
	pio.PutU8(b[8:], sidx.Version)
	pio.PutU24BE(b[9:], sidx.Flags)
	pio.PutU32BE(b[12:], sidx.ReferenceID)
	pio.PutU32BE(b[16:], sidx.Timescale)
	n = 20
	if sidx.Version == 0 {
		pio.PutU32BE(b[n:], uint32(sidx.EarliestPT))
		pio.PutU32BE(b[n+4:], uint32(sidx.FirstOffset))
		n += 8
	} else {
		pio.PutU64BE(b[n:], sidx.EarliestPT)
		pio.PutU64BE(b[n+8:], sidx.FirstOffset)
		n += 16
	}
	pio.PutU16BE(b[n:], 0)
	pio.PutU16BE(b[n+2:], uint16(len(sidx.Entries)))
	n += 4
	for _, e := range sidx.Entries {
		v := e.ReferencedSize & 0x7FFFFFFF
		if e.ReferenceType {
			v |= 0x80000000
		}
		pio.PutU32BE(b[n:], v)
		pio.PutU32BE(b[n+4:], e.SubsegmentDuration)
		v = uint32(e.SAPType&0x7)<<28 | e.SAPDeltaTime&0x0FFFFFFF
		if e.StartsWithSAP {
			v |= 0x80000000
		}
		pio.PutU32BE(b[n+8:], v)
		n += ReferenceSize
	}
	return
}

func (sidx *SegmentIndex) Unmarshal(b []byte, offset int) (n int, err error) {
	sidx.AtomPos.setPos(offset, len(b))
	if len(b) < 12 {
		return 0, parseErr("Version", offset+len(b), nil)
	}
	sidx.Version = pio.U8(b[8:])
	sidx.Flags = pio.U24BE(b[9:])
	base := baseSIDXSize
	if sidx.Version != 0 {
		base = baseSIDXSizeV1
	}
	if len(b) < base {
		return 0, parseErr("Header", offset+12, nil)
	}
	sidx.ReferenceID = pio.U32BE(b[12:])
	sidx.Timescale = pio.U32BE(b[16:])
	n = 20
	if sidx.Version == 0 {
		sidx.EarliestPT = uint64(pio.U32BE(b[n:]))
		sidx.FirstOffset = uint64(pio.U32BE(b[n+4:]))
		n += 8
	} else {
		sidx.EarliestPT = pio.U64BE(b[n:])
		sidx.FirstOffset = pio.U64BE(b[n+8:])
		n += 16
	}
	count := int(pio.U16BE(b[n+2:]))
	n += 4
	if len(b) < n+count*ReferenceSize {
		return 0, parseErr("References", offset+n, nil)
	}
	sidx.Entries = make([]SegmentIndexReference, count)
	for i := range sidx.Entries {
		e := &sidx.Entries[i]
		v := pio.U32BE(b[n:])
		e.ReferenceType = v&0x80000000 != 0
		e.ReferencedSize = v & 0x7FFFFFFF
		e.SubsegmentDuration = pio.U32BE(b[n+4:])
		v = pio.U32BE(b[n+8:])
		e.StartsWithSAP = v&0x80000000 != 0
		e.SAPType = uint8(v>>28) & 0x7
		e.SAPDeltaTime = v & 0x0FFFFFFF
		n += ReferenceSize
	}
	return
}

func (sidx *SegmentIndex) Children() []Atom {
	return nil
}
