// nolint: all
package mp4io

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/ugparu/remux/utils/bits/pio"
)

// Constants representing flags for sample properties.
const (
	SampleIsNonSync       uint32 = 0x00010000
	SampleHasDependencies uint32 = 0x01000000
	SampleNoDependencies  uint32 = 0x02000000

	SampleNonKeyframe = SampleHasDependencies | SampleIsNonSync

	HeaderSize = 8
)

var epoch = time.Date(1904, time.January, 1, 0, 0, 0, 0, time.UTC)

func GetTime32(b []byte) (t time.Time) {
	sec := pio.U32BE(b)
	t = epoch.Add(time.Second * time.Duration(sec))
	return
}

func PutTime32(b []byte, t time.Time) {
	sec := uint32(0)
	if t.After(epoch) {
		sec = uint32(t.Sub(epoch) / time.Second)
	}
	pio.PutU32BE(b, sec)
}

func GetTime64(b []byte) (t time.Time) {
	sec := pio.U64BE(b)
	t = epoch.Add(time.Second * time.Duration(sec))
	return
}

func PutTime64(b []byte, t time.Time) {
	sec := uint64(0)
	if t.After(epoch) {
		sec = uint64(t.Sub(epoch) / time.Second)
	}
	pio.PutU64BE(b, sec)
}

func PutFixed16(b []byte, f float64) {
	intpart, fracpart := math.Modf(f)
	b[0] = uint8(intpart)
	b[1] = uint8(fracpart * 256.0)
}

func GetFixed16(b []byte) float64 {
	return float64(b[0]) + float64(b[1])/256.0
}

func PutFixed32(b []byte, f float64) {
	intpart, fracpart := math.Modf(f)
	pio.PutU16BE(b[0:2], uint16(intpart))
	pio.PutU16BE(b[2:4], uint16(fracpart*65536.0))
}

func GetFixed32(b []byte) float64 {
	return float64(pio.U16BE(b[0:2])) + float64(pio.U16BE(b[2:4]))/65536.0
}

type Tag uint32

func (self Tag) String() string {
	var b [4]byte
	pio.PutU32BE(b[:], uint32(self))
	for i := 0; i < 4; i++ {
		if b[i] == 0 {
			b[i] = ' '
		}
	}
	return string(b[:])
}

// Atom is one decoded box. Unknown boxes decode to *Dummy.
type Atom interface {
	Pos() (int, int)
	Tag() Tag
	Marshal([]byte) int
	Unmarshal([]byte, int) (int, error)
	Len() int
	Children() []Atom
}

type AtomPos struct {
	Offset int
	Size   int
}

func (self AtomPos) Pos() (int, int) {
	return self.Offset, self.Size
}

func (self *AtomPos) setPos(offset int, size int) {
	self.Offset, self.Size = offset, size
}

// Dummy keeps the raw bytes, header included, of a box that is not decoded.
type Dummy struct {
	Data []byte
	Tag_ Tag
	AtomPos
}

func (self Dummy) Children() []Atom {
	return nil
}

func (self Dummy) Tag() Tag {
	return self.Tag_
}

func (self Dummy) Len() int {
	return len(self.Data)
}

func (self Dummy) Marshal(b []byte) int {
	copy(b, self.Data)
	return len(self.Data)
}

func (self *Dummy) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	self.Data = b
	if len(b) >= 8 {
		self.Tag_ = Tag(pio.U32BE(b[4:]))
	}
	n = len(b)
	return
}

func StringToTag(tag string) Tag {
	var b [4]byte
	copy(b[:], []byte(tag))
	return Tag(pio.U32BE(b[:]))
}

func FindChildrenByName(root Atom, tag string) Atom {
	return FindChildren(root, StringToTag(tag))
}

func FindChildren(root Atom, tag Tag) Atom {
	if root.Tag() == tag {
		return root
	}
	for _, child := range root.Children() {
		if r := FindChildren(child, tag); r != nil {
			return r
		}
	}
	return nil
}

// walk calls fn with every child box found in b[n:]. A zero size extends the
// box to the end of its parent.
func walk(b []byte, n int, offset int, fn func(tag Tag, box []byte, offset int) error) (int, error) {
	for n+8 <= len(b) {
		size := int(pio.U32BE(b[n:]))
		tag := Tag(pio.U32BE(b[n+4:]))
		if size == 0 {
			size = len(b) - n
		}
		if size < 8 || len(b) < n+size {
			return n, parseErr("TagSizeInvalid", n+offset, nil)
		}
		if err := fn(tag, b[n:n+size], offset+n); err != nil {
			return n, parseErr(tag.String(), n+offset, err)
		}
		n += size
	}
	return n, nil
}

// decode unmarshals one child box into a new T.
func decode[T any, PT interface {
	*T
	Atom
}](box []byte, offset int) (*T, error) {
	atom := PT(new(T))
	if _, err := atom.Unmarshal(box, offset); err != nil {
		return nil, err
	}
	return atom, nil
}

func unknown(box []byte, offset int) Atom {
	atom := &Dummy{}
	_, _ = atom.Unmarshal(box, offset)
	return atom
}

func marshalAll(b []byte, atoms []Atom) (n int) {
	for _, atom := range atoms {
		n += atom.Marshal(b[n:])
	}
	return
}

func lenAll(atoms []Atom) (n int) {
	for _, atom := range atoms {
		n += atom.Len()
	}
	return
}

// Encode marshals atom into a new slice of exactly Len bytes.
func Encode(atom Atom) []byte {
	b := make([]byte, atom.Len())
	atom.Marshal(b)
	return b
}

func printatom(out io.Writer, root Atom, depth int) {
	offset, size := root.Pos()

	type stringintf interface {
		String() string
	}

	fmt.Fprintf(out,
		"%s%s offset=%d size=%d",
		strings.Repeat(" ", depth*2), root.Tag(), offset, size,
	)
	if str, ok := root.(stringintf); ok {
		fmt.Fprint(out, " ", str.String())
	}
	fmt.Fprintln(out)

	for _, child := range root.Children() {
		printatom(out, child, depth+1)
	}
}

// FprintAtom writes the box tree of root, one box per line.
func FprintAtom(out io.Writer, root Atom) {
	printatom(out, root, 0)
}

func (self TimeToSample) String() string {
	return fmt.Sprintf("entries=%d", len(self.Entries))
}

func (self SampleToChunk) String() string {
	return fmt.Sprintf("entries=%d", len(self.Entries))
}

func (self SampleSize) String() string {
	return fmt.Sprintf("entries=%d", len(self.Entries))
}

func (self SyncSample) String() string {
	return fmt.Sprintf("entries=%d", len(self.Entries))
}

func (self CompositionOffset) String() string {
	return fmt.Sprintf("entries=%d", len(self.Entries))
}

func (self ChunkOffset) String() string {
	return fmt.Sprintf("entries=%d", len(self.Entries))
}

func (self TrackFragRun) String() string {
	return fmt.Sprintf("entries=%d", len(self.Entries))
}
