package mp4io

import "github.com/ugparu/remux/utils/bits/pio"

const HDLR = Tag(0x68646c72)

// Handler types.
var (
	HandlerVideo     = [4]byte{'v', 'i', 'd', 'e'}
	HandlerSound     = [4]byte{'s', 'o', 'u', 'n'}
	HandlerSubtitle  = [4]byte{'s', 'u', 'b', 't'}
	HandlerText      = [4]byte{'t', 'e', 'x', 't'}
	HandlerMetadata  = [4]byte{'m', 'd', 'i', 'r'}
	handlerAppleName = [3]uint32{0x6170706c, 0, 0}
)

// NewHandlerRefer returns a handler with an empty, NUL terminated name.
func NewHandlerRefer(handlerType [4]byte) *HandlerRefer {
	return &HandlerRefer{HandlerType: handlerType, Name: []byte{0}}
}

type HandlerRefer struct {
	Version     uint8
	Flags       uint32
	PreDefined  uint32
	HandlerType [4]byte
	Reserved    [3]uint32
	Name        []byte
	AtomPos
}

func (hdlr HandlerRefer) Tag() Tag {
	return HDLR
}

// hdlrFixed is version and flags, pre_defined, the handler type and three
// reserved words.
const hdlrFixed = 4 + 4 + 4 + 12

func (hdlr HandlerRefer) Len() int {
	return HeaderSize + hdlrFixed + len(hdlr.Name)
}

func (hdlr HandlerRefer) Marshal(b []byte) int {
	size := hdlr.Len()
	pio.PutU32BE(b, uint32(size))
	pio.PutU32BE(b[4:], uint32(HDLR))
	b[8] = hdlr.Version
	pio.PutU24BE(b[9:], hdlr.Flags)
	pio.PutU32BE(b[12:], hdlr.PreDefined)
	copy(b[16:20], hdlr.HandlerType[:])
	for i, v := range hdlr.Reserved {
		pio.PutU32BE(b[20+4*i:], v)
	}
	copy(b[HeaderSize+hdlrFixed:], hdlr.Name)
	return size
}

// Unmarshal keeps Name as is, NUL terminator or Pascal length included.
func (hdlr *HandlerRefer) Unmarshal(b []byte, offset int) (int, error) {
	hdlr.AtomPos.setPos(offset, len(b))
	if len(b) < HeaderSize+hdlrFixed {
		return 0, parseErr("hdlr", offset, nil)
	}
	hdlr.Version = b[8]
	hdlr.Flags = pio.U24BE(b[9:])
	hdlr.PreDefined = pio.U32BE(b[12:])
	copy(hdlr.HandlerType[:], b[16:20])
	for i := range hdlr.Reserved {
		hdlr.Reserved[i] = pio.U32BE(b[20+4*i:])
	}
	hdlr.Name = b[HeaderSize+hdlrFixed:]
	return len(b), nil
}

func (hdlr HandlerRefer) Children() []Atom {
	return nil
}
