package dash

import (
	"math"

	"github.com/ugparu/remux/format/cursor"
	"github.com/ugparu/remux/format/mp4/mp4io"
	"github.com/ugparu/remux/utils"
	"github.com/ugparu/remux/utils/bits/pio"
)

// toEnd marks a box whose declared size is zero.
const toEnd = math.MaxInt64

// boxHeader is a top level box header read from the stream.
type boxHeader struct {
	tag    mp4io.Tag
	offset int64
	hdr    int64
	end    int64
}

func (h boxHeader) body() int64 {
	return h.end - h.offset - h.hdr
}

func readHeader(c *cursor.Cursor) (h boxHeader, err error) {
	h.offset = c.Position()
	size, err := c.ReadU32()
	if err != nil {
		return h, err
	}
	tag, err := c.ReadU32()
	if err != nil {
		return h, err
	}
	h.tag, h.hdr = mp4io.Tag(tag), mp4io.HeaderSize

	var total int64
	switch size {
	case 0:
		h.end = toEnd
		if left := c.Available(); left >= 0 {
			h.end = c.Position() + left
		}
		return h, nil
	case 1:
		large, err := c.ReadU64()
		if err != nil {
			return h, err
		}
		h.hdr += 8
		total = int64(large)
	default:
		total = int64(size)
	}
	if total < h.hdr {
		return h, &utils.InvalidOffsetError{What: h.tag.String() + " size", Offset: total}
	}
	h.end = h.offset + total
	return h, nil
}

// readBox reads the whole box into memory behind a plain 8 byte header so
// mp4io can decode it.
func readBox(c *cursor.Cursor, h boxHeader) ([]byte, error) {
	if h.end == toEnd || h.body() > math.MaxUint32-mp4io.HeaderSize {
		return nil, &utils.UnsupportedFormatError{Format: "mp4", Reason: "box " + h.tag.String() + " is too large"}
	}
	b := make([]byte, mp4io.HeaderSize+h.body())
	pio.PutU32BE(b, uint32(len(b)))
	pio.PutU32BE(b[4:], uint32(h.tag))
	if err := c.ReadFull(b[mp4io.HeaderSize:]); err != nil {
		return nil, err
	}
	return b, nil
}

func decodeBox[T any, PT interface {
	*T
	mp4io.Atom
}](c *cursor.Cursor, h boxHeader) (*T, error) {
	b, err := readBox(c, h)
	if err != nil {
		return nil, err
	}
	atom := PT(new(T))
	if _, err = atom.Unmarshal(b, int(h.offset)); err != nil {
		return nil, err
	}
	return atom, nil
}

// skipTo advances the cursor to pos.
func skipTo(c *cursor.Cursor, pos int64) error {
	cur := c.Position()
	if pos < cur {
		return &utils.InvalidOffsetError{What: "box end", Offset: pos}
	}
	return c.Skip(pos - cur)
}
