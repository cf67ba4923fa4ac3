// Package webm reads WebM (EBML) files one track at a time and rebuilds
// seekable WebM files with Cues out of them.
package webm

import (
	"fmt"
	"math"

	"github.com/ugparu/remux/format/cursor"
	"github.com/ugparu/remux/utils"
	"github.com/ugparu/remux/utils/bits/pio"
)

// ID is an EBML element id with its length marker kept.
type ID uint32

const (
	IDEBML                   ID = 0x1A45DFA3
	IDEBMLVersion            ID = 0x4286
	IDEBMLReadVersion        ID = 0x42F7
	IDEBMLMaxIDLength        ID = 0x42F2
	IDEBMLMaxSizeLength      ID = 0x42F3
	IDEBMLDocType            ID = 0x4282
	IDEBMLDocTypeVersion     ID = 0x4287
	IDEBMLDocTypeReadVersion ID = 0x4285
	IDVoid                   ID = 0xEC

	IDSegment      ID = 0x18538067
	IDSeekHead     ID = 0x114D9B74
	IDSeek         ID = 0x4DBB
	IDSeekID       ID = 0x53AB
	IDSeekPosition ID = 0x53AC

	IDInfo          ID = 0x1549A966
	IDTimecodeScale ID = 0x2AD7B1
	IDDuration      ID = 0x4489
	IDMuxingApp     ID = 0x4D80
	IDWritingApp    ID = 0x5741

	IDTracks          ID = 0x1654AE6B
	IDTrackEntry      ID = 0xAE
	IDTrackNumber     ID = 0xD7
	IDTrackUID        ID = 0x73C5
	IDTrackType       ID = 0x83
	IDFlagLacing      ID = 0x9C
	IDLanguage        ID = 0x22B59C
	IDCodecID         ID = 0x86
	IDCodecPrivate    ID = 0x63A2
	IDCodecDelay      ID = 0x56AA
	IDSeekPreRoll     ID = 0x56BB
	IDDefaultDuration ID = 0x23E383
	IDVideo           ID = 0xE0
	IDAudio           ID = 0xE1
	IDSamplingFreq    ID = 0xB5
	IDChannels        ID = 0x9F

	IDCluster     ID = 0x1F43B675
	IDTimecode    ID = 0xE7
	IDSimpleBlock ID = 0xA3
	IDBlockGroup  ID = 0xA0
	IDBlock       ID = 0xA1

	IDCues                ID = 0x1C53BB6B
	IDCuePoint            ID = 0xBB
	IDCueTime             ID = 0xB3
	IDCueTrackPositions   ID = 0xB7
	IDCueTrack            ID = 0xF7
	IDCueClusterPosition  ID = 0xF1
	IDCueRelativePosition ID = 0xF0
)

var idNames = map[ID]string{
	IDEBML:        "EBML",
	IDSegment:     "Segment",
	IDSeekHead:    "SeekHead",
	IDInfo:        "Info",
	IDTracks:      "Tracks",
	IDTrackEntry:  "TrackEntry",
	IDCluster:     "Cluster",
	IDTimecode:    "Timecode",
	IDSimpleBlock: "SimpleBlock",
	IDBlockGroup:  "BlockGroup",
	IDBlock:       "Block",
	IDCues:        "Cues",
	IDVoid:        "Void",
}

func (id ID) String() string {
	if name, ok := idNames[id]; ok {
		return name
	}
	return fmt.Sprintf("0x%X", uint32(id))
}

// Len returns the encoded size of the id.
func (id ID) Len() int {
	switch {
	case id > 0xFFFFFF:
		return 4
	case id > 0xFFFF:
		return 3
	case id > 0xFF:
		return 2
	}
	return 1
}

// maxVint is the largest value a vint can carry.
const maxVint = 1<<56 - 1

// unknownSize marks an element whose size field has every value bit set.
const unknownSize = -1

// VintLen returns the minimal encoded length of v. A value with every bit of
// its length set is reserved, so it takes one more byte.
func VintLen(v uint64) int {
	for n := 1; n < 8; n++ {
		if v < 1<<(7*n)-1 {
			return n
		}
	}
	return 8
}

// AppendVint appends the minimal vint encoding of v, which must not exceed
// 1<<56 - 1.
func AppendVint(b []byte, v uint64) []byte {
	return appendVintWidth(b, v, VintLen(v))
}

func appendVintWidth(b []byte, v uint64, n int) []byte {
	v |= 1 << (7 * n)
	for i := n - 1; i >= 0; i-- {
		b = append(b, byte(v>>(8*i)))
	}
	return b
}

// readVint reads one vint. With keepMarker the length marker stays in the
// value, as element ids carry it.
func readVint(c *cursor.Cursor, keepMarker bool) (v uint64, n int, err error) {
	first, err := c.ReadU8()
	if err != nil {
		return 0, 0, err
	}
	if first == 0 {
		return 0, 0, &utils.UnsupportedFormatError{
			Format: "webm",
			Reason: fmt.Sprintf("invalid vint at %d", c.Position()-1),
		}
	}
	n = 1
	for mask := byte(0x80); first&mask == 0; mask >>= 1 {
		n++
	}
	v = uint64(first)
	if !keepMarker {
		v &= 0xFF >> n
	}
	for i := 1; i < n; i++ {
		next, err := c.ReadU8()
		if err != nil {
			return 0, 0, err
		}
		v = v<<8 | uint64(next)
	}
	return v, n, nil
}

// element is an element header read from the stream.
type element struct {
	id     ID
	offset int64
	// data is the position of the first content byte.
	data int64
	// end is the position after the content, unknownSize when the size
	// field has every bit set.
	end int64
}

func (e element) size() int64 {
	return e.end - e.data
}

func readElement(c *cursor.Cursor) (e element, err error) {
	e.offset = c.Position()
	id, n, err := readVint(c, true)
	if err != nil {
		return e, err
	}
	if n > 4 {
		return e, &utils.UnsupportedFormatError{Format: "webm", Reason: fmt.Sprintf("element id of %d bytes at %d", n, e.offset)}
	}
	e.id = ID(id)
	size, n, err := readVint(c, false)
	if err != nil {
		return e, err
	}
	e.data = c.Position()
	if size == 1<<(7*n)-1 {
		e.end = unknownSize
		return e, nil
	}
	if size > math.MaxInt64-uint64(e.data) {
		return e, &utils.InvalidOffsetError{What: e.id.String() + " size", Offset: e.data}
	}
	e.end = e.data + int64(size)
	return e, nil
}

// within reports whether the cursor is still inside a parent ending at end.
// A negative end means the parent runs to the end of the stream.
func within(c *cursor.Cursor, end int64) (bool, error) {
	if end < 0 {
		return c.More()
	}
	return c.Position() < end, nil
}

// until returns the next element of one of the wanted ids inside a parent
// ending at end, skipping everything else. Without ids any element matches.
// A nil element means the parent is exhausted.
func until(c *cursor.Cursor, end int64, ids ...ID) (*element, error) {
	for {
		ok, err := within(c, end)
		if err != nil || !ok {
			return nil, err
		}
		e, err := readElement(c)
		if err != nil {
			return nil, err
		}
		if e.end == unknownSize && e.id != IDSegment && e.id != IDCluster {
			return nil, &utils.UnsupportedFormatError{Format: "webm", Reason: e.id.String() + " of unknown size"}
		}
		if end >= 0 && e.end > end {
			return nil, &utils.InvalidOffsetError{What: e.id.String() + " end", Offset: e.end}
		}
		if len(ids) == 0 {
			return &e, nil
		}
		for _, id := range ids {
			if e.id == id {
				return &e, nil
			}
		}
		if err = skip(c, e); err != nil {
			return nil, err
		}
	}
}

// skip moves the cursor to the end of e.
func skip(c *cursor.Cursor, e element) error {
	if e.end < 0 {
		return &utils.UnsupportedFormatError{Format: "webm", Reason: e.id.String() + " of unknown size cannot be skipped"}
	}
	cur := c.Position()
	if e.end < cur {
		return &utils.InvalidOffsetError{What: e.id.String() + " end", Offset: e.end}
	}
	return c.Skip(e.end - cur)
}

func readUint(c *cursor.Cursor, e element) (uint64, error) {
	size := e.size()
	if size > 8 {
		return 0, &utils.UnsupportedFormatError{Format: "webm", Reason: fmt.Sprintf("%s: integer of %d bytes", e.id, size)}
	}
	var v uint64
	for ; size > 0; size-- {
		b, err := c.ReadU8()
		if err != nil {
			return 0, err
		}
		v = v<<8 | uint64(b)
	}
	return v, nil
}

func readFloat(c *cursor.Cursor, e element) (float64, error) {
	switch e.size() {
	case 0:
		return 0, nil
	case 4:
		v, err := c.ReadU32()
		return float64(math.Float32frombits(v)), err
	case 8:
		v, err := c.ReadU64()
		return math.Float64frombits(v), err
	}
	return 0, &utils.UnsupportedFormatError{Format: "webm", Reason: fmt.Sprintf("%s: float of %d bytes", e.id, e.size())}
}

func readBytes(c *cursor.Cursor, e element) ([]byte, error) {
	if e.end < 0 || e.size() > math.MaxInt32 {
		return nil, &utils.UnsupportedFormatError{Format: "webm", Reason: e.id.String() + " is too large"}
	}
	b := make([]byte, e.size())
	if err := c.ReadFull(b); err != nil {
		return nil, err
	}
	return b, nil
}

func readString(c *cursor.Cursor, e element) (string, error) {
	b, err := readBytes(c, e)
	if err != nil {
		return "", err
	}
	// strings may be zero padded
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return string(b), nil
}

// Element encoding helpers used by the writer.

func appendID(b []byte, id ID) []byte {
	for i := id.Len() - 1; i >= 0; i-- {
		b = append(b, byte(uint32(id)>>(8*i)))
	}
	return b
}

func uintLen(v uint64) int {
	n := 1
	for v > 0xFF {
		v >>= 8
		n++
	}
	return n
}

func appendUintElement(b []byte, id ID, v uint64) []byte {
	return appendUintWidth(b, id, v, uintLen(v))
}

// appendUintWidth writes v on exactly n bytes so it can be patched later.
func appendUintWidth(b []byte, id ID, v uint64, n int) []byte {
	b = appendID(b, id)
	b = AppendVint(b, uint64(n))
	for i := n - 1; i >= 0; i-- {
		b = append(b, byte(v>>(8*i)))
	}
	return b
}

func appendFloatElement(b []byte, id ID, v float64) []byte {
	b = appendID(b, id)
	b = AppendVint(b, 8)
	var f [8]byte
	pio.PutU64BE(f[:], math.Float64bits(v))
	return append(b, f[:]...)
}

func appendBinaryElement(b []byte, id ID, v []byte) []byte {
	b = appendID(b, id)
	b = AppendVint(b, uint64(len(v)))
	return append(b, v...)
}

func appendMaster(b []byte, id ID, body []byte) []byte {
	return appendBinaryElement(b, id, body)
}

// voidElement returns an EBML Void of exactly total bytes. The content is
// zero filled.
func voidElement(total int) []byte {
	if total < 2 {
		return nil
	}
	b := appendID(nil, IDVoid)
	if total < 9 {
		b = appendVintWidth(b, uint64(total-2), 1)
	} else {
		b = appendVintWidth(b, uint64(total-9), 8)
	}
	return append(b, make([]byte, total-len(b))...)
}
