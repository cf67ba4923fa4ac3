package mp4io

import "github.com/ugparu/remux/utils/bits/pio"

const (
	DINF = Tag(0x64696e66)
	DREF = Tag(0x64726566)
	URL  = Tag(0x75726c20)
)

// NewDataInfo returns a dinf with one self contained url entry.
func NewDataInfo() *DataInfo {
	return &DataInfo{
		Refer: &DataRefer{
			Url: &DataReferUrl{Flags: 0x000001},
		},
	}
}

func (self DataInfo) Tag() Tag {
	return DINF
}

type DataInfo struct {
	Refer    *DataRefer
	Unknowns []Atom
	AtomPos
}

func (self DataInfo) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(DINF))
	n += 8
	if self.Refer != nil {
		n += self.Refer.Marshal(b[n:])
	}
	n += marshalAll(b[n:], self.Unknowns)
	pio.PutU32BE(b[0:], uint32(n))
	return
}
func (self DataInfo) Len() (n int) {
	n += 8
	if self.Refer != nil {
		n += self.Refer.Len()
	}
	n += lenAll(self.Unknowns)
	return
}
func (self *DataInfo) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	return walk(b, 8, offset, func(tag Tag, box []byte, off int) (err error) {
		switch tag {
		case DREF:
			self.Refer, err = decode[DataRefer](box, off)
		default:
			self.Unknowns = append(self.Unknowns, unknown(box, off))
		}
		return
	})
}
func (self DataInfo) Children() (r []Atom) {
	if self.Refer != nil {
		r = append(r, self.Refer)
	}
	r = append(r, self.Unknowns...)
	return
}

func (self DataRefer) Tag() Tag {
	return DREF
}

// DataRefer is the dref box. Entries other than url are kept raw.
type DataRefer struct {
	Version  uint8
	Flags    uint32
	Url      *DataReferUrl
	Unknowns []Atom
	AtomPos
}

func (self DataRefer) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(DREF))
	n += 8
	pio.PutU8(b[n:], self.Version)
	n += 1
	pio.PutU24BE(b[n:], self.Flags)
	n += 3
	count := len(self.Unknowns)
	if self.Url != nil {
		count++
	}
	pio.PutU32BE(b[n:], uint32(count))
	n += 4
	if self.Url != nil {
		n += self.Url.Marshal(b[n:])
	}
	n += marshalAll(b[n:], self.Unknowns)
	pio.PutU32BE(b[0:], uint32(n))
	return
}
func (self DataRefer) Len() (n int) {
	n += 16
	if self.Url != nil {
		n += self.Url.Len()
	}
	n += lenAll(self.Unknowns)
	return
}
func (self *DataRefer) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	n += 8
	if len(b) < n+8 {
		err = parseErr("Version", n+offset, err)
		return
	}
	self.Version = pio.U8(b[n:])
	n += 1
	self.Flags = pio.U24BE(b[n:])
	n += 3
	n += 4
	return walk(b, n, offset, func(tag Tag, box []byte, off int) (err error) {
		switch tag {
		case URL:
			self.Url, err = decode[DataReferUrl](box, off)
		default:
			self.Unknowns = append(self.Unknowns, unknown(box, off))
		}
		return
	})
}
func (self DataRefer) Children() (r []Atom) {
	if self.Url != nil {
		r = append(r, self.Url)
	}
	r = append(r, self.Unknowns...)
	return
}

// DataReferUrl is a "url " entry; flag 1 means the media is in this file.
type DataReferUrl struct {
	Version  uint8
	Flags    uint32
	Location []byte
	AtomPos
}

func (self DataReferUrl) Tag() Tag {
	return URL
}
func (self DataReferUrl) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(URL))
	n += 8
	pio.PutU8(b[n:], self.Version)
	n += 1
	pio.PutU24BE(b[n:], self.Flags)
	n += 3
	n += copy(b[n:], self.Location)
	pio.PutU32BE(b[0:], uint32(n))
	return
}
func (self DataReferUrl) Len() int {
	return 12 + len(self.Location)
}
func (self *DataReferUrl) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	n += 8
	if len(b) < n+4 {
		err = parseErr("Flags", n+offset, err)
		return
	}
	self.Version = pio.U8(b[n:])
	self.Flags = pio.U24BE(b[n+1:])
	n += 4
	self.Location = b[n:]
	n = len(b)
	return
}
func (self DataReferUrl) Children() (r []Atom) {
	return
}
