package dash

import (
	"github.com/ugparu/remux/format/cursor"
	"github.com/ugparu/remux/format/mp4/mp4io"
)

// Sample is the resolved description of one sample of a fragment.
type Sample struct {
	Duration uint32
	Size     uint32
	Flags    uint32
	// Offset is the composition time offset.
	Offset   int32
	Keyframe bool
}

type defaults struct {
	duration, size, flags uint32
}

// Chunk is the part of one moof/mdat pair that belongs to the selected track.
type Chunk struct {
	Sequence   uint32
	Header     *mp4io.TrackFragHeader
	DecodeTime uint64
	Run        *mp4io.TrackFragRun
	// Size is the payload length in bytes.
	Size int64
	// Duration is the sum of the sample durations in media timescale units.
	Duration uint64

	def  defaults
	data *cursor.View
	next int
}

func newChunk(seq uint32, traf *mp4io.TrackFrag, trex *mp4io.TrackExtend) *Chunk {
	c := &Chunk{Sequence: seq, Header: traf.Header, Run: traf.Run}
	if traf.DecodeTime != nil {
		c.DecodeTime = traf.DecodeTime.Time
	}
	if trex != nil {
		c.def = defaults{trex.DefaultSampleDuration, trex.DefaultSampleSize, trex.DefaultSampleFlags}
	}
	if h := traf.Header; h != nil {
		if h.Flags&mp4io.TFHDDefaultDuration != 0 {
			c.def.duration = h.DefaultDuration
		}
		if h.Flags&mp4io.TFHDDefaultSize != 0 {
			c.def.size = h.DefaultSize
		}
		if h.Flags&mp4io.TFHDDefaultFlags != 0 {
			c.def.flags = h.DefaultFlags
		}
	}
	for i := range c.Len() {
		s := c.SampleAt(i)
		c.Size += int64(s.Size)
		c.Duration += uint64(s.Duration)
	}
	return c
}

// Len returns the number of samples.
func (c *Chunk) Len() int {
	if c.Run == nil {
		return 0
	}
	return len(c.Run.Entries)
}

// SampleAt resolves entry i against the tfhd and trex defaults.
func (c *Chunk) SampleAt(i int) Sample {
	entry := c.Run.Entries[i]
	flags := c.Run.Flags
	s := Sample{Duration: c.def.duration, Size: c.def.size, Flags: c.def.flags}
	if flags&mp4io.TRUNSampleDuration != 0 {
		s.Duration = entry.Duration
	}
	if flags&mp4io.TRUNSampleSize != 0 {
		s.Size = entry.Size
	}
	switch {
	case flags&mp4io.TRUNSampleFlags != 0:
		s.Flags = entry.Flags
	case i == 0 && flags&mp4io.TRUNFirstSampleFlags != 0:
		s.Flags = c.Run.FirstSampleFlags
	}
	if flags&mp4io.TRUNSampleCTS != 0 {
		s.Offset = entry.Cts
	}
	s.Keyframe = s.Flags&mp4io.SampleIsNonSync == 0
	return s
}

// NextSampleInfo returns the next sample description without touching the payload.
func (c *Chunk) NextSampleInfo() (Sample, bool) {
	if c.next >= c.Len() {
		return Sample{}, false
	}
	c.next++
	return c.SampleAt(c.next - 1), true
}

// NextSample reads the next sample into buf, growing it when needed. A nil
// slice marks the end of the chunk.
func (c *Chunk) NextSample(buf []byte) (Sample, []byte, error) {
	if c.data == nil {
		return Sample{}, nil, nil
	}
	s, ok := c.NextSampleInfo()
	if !ok {
		return s, nil, nil
	}
	if buf == nil || cap(buf) < int(s.Size) {
		buf = make([]byte, s.Size)
	}
	buf = buf[:s.Size]
	if err := c.data.ReadFull(buf); err != nil {
		return s, nil, err
	}
	return s, buf, nil
}

// Data returns the payload view, nil for chunks read in info only mode.
func (c *Chunk) Data() *cursor.View {
	return c.data
}
