package mp4io

import "github.com/ugparu/remux/utils/bits/pio"

const FREE = Tag(0x66726565)

// FreeType is a free box of Size bytes, header included. Writers use it to
// reserve space that is overwritten later.
type FreeType struct {
	Size int
	AtomPos
}

func (*FreeType) Tag() Tag {
	return FREE
}

func (f *FreeType) Marshal(b []byte) (n int) {
	n = f.Len()
	pio.PutU32BE(b, uint32(n))
	pio.PutU32BE(b[4:], uint32(FREE))
	clear(b[8:n])
	return
}

func (f *FreeType) Len() int {
	return max(f.Size, HeaderSize)
}

func (f *FreeType) Unmarshal(b []byte, offset int) (n int, err error) {
	n = len(b)
	f.Size = n
	f.AtomPos.setPos(offset, n)
	return n, nil
}

func (*FreeType) Children() []Atom {
	return nil
}
