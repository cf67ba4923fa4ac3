package mp4io

import "github.com/ugparu/remux/utils/bits/pio"

const STBL = Tag(0x7374626c)

func (self SampleTable) Tag() Tag {
	return STBL
}

// SampleTable is the stbl box, marshaled in the conventional child order.
type SampleTable struct {
	SampleDesc        *SampleDesc
	TimeToSample      *TimeToSample
	SyncSample        *SyncSample
	CompositionOffset *CompositionOffset
	SampleToChunk     *SampleToChunk
	SampleSize        *SampleSize
	ChunkOffset       *ChunkOffset
	GroupDesc         *SampleGroupDesc
	ToGroup           *SampleToGroup
	Unknowns          []Atom
	AtomPos
}

func (self SampleTable) atoms() (r []Atom) {
	if self.SampleDesc != nil {
		r = append(r, self.SampleDesc)
	}
	if self.TimeToSample != nil {
		r = append(r, self.TimeToSample)
	}
	if self.SyncSample != nil {
		r = append(r, self.SyncSample)
	}
	if self.CompositionOffset != nil {
		r = append(r, self.CompositionOffset)
	}
	if self.SampleToChunk != nil {
		r = append(r, self.SampleToChunk)
	}
	if self.SampleSize != nil {
		r = append(r, self.SampleSize)
	}
	if self.ChunkOffset != nil {
		r = append(r, self.ChunkOffset)
	}
	if self.GroupDesc != nil {
		r = append(r, self.GroupDesc)
	}
	if self.ToGroup != nil {
		r = append(r, self.ToGroup)
	}
	return append(r, self.Unknowns...)
}

func (self SampleTable) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(STBL))
	n += 8
	n += marshalAll(b[n:], self.atoms())
	pio.PutU32BE(b[0:], uint32(n))
	return
}
func (self SampleTable) Len() int {
	return 8 + lenAll(self.atoms())
}
func (self *SampleTable) Unmarshal(b []byte, offset int) (n int, err error) {
	(&self.AtomPos).setPos(offset, len(b))
	return walk(b, 8, offset, func(tag Tag, box []byte, off int) (err error) {
		switch tag {
		case STSD:
			self.SampleDesc, err = decode[SampleDesc](box, off)
		case STTS:
			self.TimeToSample, err = decode[TimeToSample](box, off)
		case CTTS:
			self.CompositionOffset, err = decode[CompositionOffset](box, off)
		case STSC:
			self.SampleToChunk, err = decode[SampleToChunk](box, off)
		case STSS:
			self.SyncSample, err = decode[SyncSample](box, off)
		case STCO, CO64:
			self.ChunkOffset, err = decode[ChunkOffset](box, off)
		case STSZ:
			self.SampleSize, err = decode[SampleSize](box, off)
		case SGPD:
			self.GroupDesc, err = decode[SampleGroupDesc](box, off)
		case SBGP:
			self.ToGroup, err = decode[SampleToGroup](box, off)
		default:
			self.Unknowns = append(self.Unknowns, unknown(box, off))
		}
		return
	})
}
func (self SampleTable) Children() []Atom {
	return self.atoms()
}
