package mp4io

import "github.com/ugparu/remux/utils/bits/pio"

const (
	TRUN                 = Tag(0x7472756e)
	TRUNDataOffset       = 0x01
	TRUNFirstSampleFlags = 0x04
	TRUNSampleDuration   = 0x100
	TRUNSampleSize       = 0x200
	TRUNSampleFlags      = 0x400
	TRUNSampleCTS        = 0x800
)

// TrackFragRun is the trun box. DataOffset is signed and relative to the
// base data offset of the enclosing traf.
type TrackFragRun struct {
	Version          uint8
	Flags            uint32
	DataOffset       int32
	FirstSampleFlags uint32
	Entries          []TrackFragRunEntry
	AtomPos
}

type TrackFragRunEntry struct {
	Duration uint32
	Size     uint32
	Flags    uint32
	Cts      int32
}

func (tfr TrackFragRun) Tag() Tag {
	return TRUN
}

// entryLen is the size of one sample record for the given flags.
func entryLen(flags uint32) (n int) {
	for _, bit := range []uint32{TRUNSampleDuration, TRUNSampleSize, TRUNSampleFlags, TRUNSampleCTS} {
		if flags&bit != 0 {
			n += 4
		}
	}
	return
}

func (tfr TrackFragRun) headerLen() (n int) {
	n = 16
	if tfr.Flags&TRUNDataOffset != 0 {
		n += 4
	}
	if tfr.Flags&TRUNFirstSampleFlags != 0 {
		n += 4
	}
	return
}

func (tfr TrackFragRun) Marshal(b []byte) (n int) {
	pio.PutU32BE(b[4:], uint32(TRUN))
	pio.PutU8(b[8:], tfr.Version)
	pio.PutU24BE(b[9:], tfr.Flags)
	pio.PutU32BE(b[12:], uint32(len(tfr.Entries)))
	n = 16
	if tfr.Flags&TRUNDataOffset != 0 {
		pio.PutI32BE(b[n:], tfr.DataOffset)
		n += 4
	}
	if tfr.Flags&TRUNFirstSampleFlags != 0 {
		pio.PutU32BE(b[n:], tfr.FirstSampleFlags)
		n += 4
	}
	for _, entry := range tfr.Entries {
		if tfr.Flags&TRUNSampleDuration != 0 {
			pio.PutU32BE(b[n:], entry.Duration)
			n += 4
		}
		if tfr.Flags&TRUNSampleSize != 0 {
			pio.PutU32BE(b[n:], entry.Size)
			n += 4
		}
		if tfr.Flags&TRUNSampleFlags != 0 {
			pio.PutU32BE(b[n:], entry.Flags)
			n += 4
		}
		if tfr.Flags&TRUNSampleCTS != 0 {
			pio.PutI32BE(b[n:], entry.Cts)
			n += 4
		}
	}
	pio.PutU32BE(b[0:], uint32(n))
	return
}

func (tfr TrackFragRun) Len() int {
	return tfr.headerLen() + len(tfr.Entries)*entryLen(tfr.Flags)
}

func (tfr *TrackFragRun) Unmarshal(b []byte, offset int) (n int, err error) {
	(&tfr.AtomPos).setPos(offset, len(b))
	if len(b) < 16 {
		err = parseErr("SampleCount", offset+len(b), err)
		return
	}
	tfr.Version = pio.U8(b[8:])
	tfr.Flags = pio.U24BE(b[9:])
	count := int(pio.U32BE(b[12:]))
	n = 16
	if len(b) < tfr.headerLen()+count*entryLen(tfr.Flags) {
		err = parseErr("Entries", offset+n, err)
		return
	}
	if tfr.Flags&TRUNDataOffset != 0 {
		tfr.DataOffset = pio.I32BE(b[n:])
		n += 4
	}
	if tfr.Flags&TRUNFirstSampleFlags != 0 {
		tfr.FirstSampleFlags = pio.U32BE(b[n:])
		n += 4
	}
	tfr.Entries = make([]TrackFragRunEntry, count)
	for i := range tfr.Entries {
		entry := &tfr.Entries[i]
		if tfr.Flags&TRUNSampleDuration != 0 {
			entry.Duration = pio.U32BE(b[n:])
			n += 4
		}
		if tfr.Flags&TRUNSampleSize != 0 {
			entry.Size = pio.U32BE(b[n:])
			n += 4
		}
		if tfr.Flags&TRUNSampleFlags != 0 {
			entry.Flags = pio.U32BE(b[n:])
			n += 4
		}
		if tfr.Flags&TRUNSampleCTS != 0 {
			entry.Cts = pio.I32BE(b[n:])
			n += 4
		}
	}
	return
}

func (tfr TrackFragRun) Children() (r []Atom) {
	return
}
