package mp4io

import "github.com/ugparu/remux/utils/bits/pio"

const STSD = Tag(0x73747364)

func (self SampleDesc) Tag() Tag {
	return STSD
}

// SampleDesc is the stsd box. Sample entries are copied through undecoded.
type SampleDesc struct {
	Version uint8
	Flags   uint32
	Entries []Atom
	AtomPos
}

// Format returns the fourcc of the first sample entry.
func (self SampleDesc) Format() string {
	if len(self.Entries) == 0 {
		return ""
	}
	return self.Entries[0].Tag().String()
}

func (self SampleDesc) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(STSD))
	n += 8
	pio.PutU8(b[n:], self.Version)
	pio.PutU24BE(b[n+1:], self.Flags)
	n += 4
	pio.PutU32BE(b[n:], uint32(len(self.Entries)))
	n += 4
	n += marshalAll(b[n:], self.Entries)
	pio.PutU32BE(b[0:], uint32(n))
	return
}
func (self SampleDesc) Len() int {
	return 16 + lenAll(self.Entries)
}
func (self *SampleDesc) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	n += 8
	if len(b) < n+8 {
		err = parseErr("Version", n+offset, err)
		return
	}
	self.Version = pio.U8(b[n:])
	self.Flags = pio.U24BE(b[n+1:])
	n += 8
	return walk(b, n, offset, func(tag Tag, box []byte, off int) error {
		self.Entries = append(self.Entries, unknown(box, off))
		return nil
	})
}
func (self SampleDesc) Children() []Atom {
	return self.Entries
}
