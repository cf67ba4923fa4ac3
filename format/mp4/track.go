package mp4

import (
	"github.com/ugparu/remux"
	"github.com/ugparu/remux/format/mp4/mp4io"
	"github.com/ugparu/remux/utils"
)

// Sample locates one sample of a progressive mp4.
type Sample struct {
	Track int
	// DecodeTime is in media timescale units.
	DecodeTime        int64
	Duration          uint32
	CompositionOffset int32
	Keyframe          bool
	Offset            int64
	Size              uint32
}

// Track walks the sample tables of one trak.
type Track struct {
	kind  remux.TrackKind
	index int

	Trak      *mp4io.Track
	sample    *mp4io.SampleTable
	timeScale int64

	dts int64

	sampleIndex         int
	chunkIndex          int
	chunkGroupIndex     int
	sampleIndexInChunk  int
	sampleOffsetInChunk int64
	syncSampleIndex     int

	sttsEntryIndex         int
	sampleIndexInSttsEntry int

	cttsEntryIndex         int
	sampleIndexInCttsEntry int
}

var _ remux.Track = (*Track)(nil)

func (t *Track) Kind() remux.TrackKind {
	return t.kind
}

// Codec returns the fourcc of the first sample entry.
func (t *Track) Codec() string {
	if t.sample.SampleDesc == nil {
		return ""
	}
	return t.sample.SampleDesc.Format()
}

// TimeScale returns the mdhd timescale.
func (t *Track) TimeScale() uint32 {
	return uint32(t.timeScale)
}

// Duration returns the tkhd duration in movie timescale units.
func (t *Track) Duration() int64 {
	return t.Trak.Header.Duration
}

// SampleCount returns the number of samples declared by stsz.
func (t *Track) SampleCount() int {
	if t.sample.SampleSize.SampleSize != 0 {
		return int(t.sample.SampleSize.SampleCount)
	}
	return len(t.sample.SampleSize.Entries)
}

// SampleTable returns the stbl box.
func (t *Track) SampleTable() *mp4io.SampleTable {
	return t.sample
}

func (t *Track) String() string {
	return "MP4_TRACK"
}

func (t *Track) isSampleValid() bool {
	if t.sampleIndex >= t.SampleCount() {
		return false
	}
	if t.chunkIndex >= len(t.sample.ChunkOffset.Entries) {
		return false
	}
	if t.chunkGroupIndex >= len(t.sample.SampleToChunk.Entries) {
		return false
	}
	return t.sttsEntryIndex < len(t.sample.TimeToSample.Entries)
}

func (t *Track) sampleSize() uint32 {
	if size := t.sample.SampleSize.SampleSize; size != 0 {
		return size
	}
	return t.sample.SampleSize.Entries[t.sampleIndex]
}

func (t *Track) keyframe() bool {
	stss := t.sample.SyncSample
	if stss == nil {
		return true
	}
	for t.syncSampleIndex < len(stss.Entries) && stss.Entries[t.syncSampleIndex] < uint32(t.sampleIndex+1) {
		t.syncSampleIndex++
	}
	return t.syncSampleIndex < len(stss.Entries) && stss.Entries[t.syncSampleIndex] == uint32(t.sampleIndex+1)
}

// nextSample describes the current sample and advances every table cursor.
func (t *Track) nextSample() (*Sample, error) {
	stsc := t.sample.SampleToChunk.Entries[t.chunkGroupIndex]
	if stsc.SamplesPerChunk == 0 {
		return nil, &utils.InvalidOffsetError{What: "stsc samples per chunk", Offset: int64(t.chunkIndex)}
	}
	stts := &t.sample.TimeToSample.Entries[t.sttsEntryIndex]
	s := &Sample{
		Track:      t.index,
		DecodeTime: t.dts,
		Duration:   stts.Duration,
		Keyframe:   t.keyframe(),
		Offset:     int64(t.sample.ChunkOffset.Entries[t.chunkIndex]) + t.sampleOffsetInChunk,
		Size:       t.sampleSize(),
	}
	if ctts := t.sample.CompositionOffset; ctts != nil && t.cttsEntryIndex < len(ctts.Entries) {
		entry := ctts.Entries[t.cttsEntryIndex]
		s.CompositionOffset = entry.Offset
		t.sampleIndexInCttsEntry++
		if uint32(t.sampleIndexInCttsEntry) == entry.Count {
			t.sampleIndexInCttsEntry = 0
			t.cttsEntryIndex++
		}
	}

	t.sampleIndexInChunk++
	if uint32(t.sampleIndexInChunk) == stsc.SamplesPerChunk {
		t.chunkIndex++
		t.sampleIndexInChunk = 0
		t.sampleOffsetInChunk = 0
	} else {
		t.sampleOffsetInChunk += int64(s.Size)
	}
	entries := t.sample.SampleToChunk.Entries
	if t.chunkGroupIndex+1 < len(entries) && uint32(t.chunkIndex+1) == entries[t.chunkGroupIndex+1].FirstChunk {
		t.chunkGroupIndex++
	}

	t.dts += int64(stts.Duration)
	t.sampleIndexInSttsEntry++
	if uint32(t.sampleIndexInSttsEntry) == stts.Count {
		t.sampleIndexInSttsEntry = 0
		t.sttsEntryIndex++
	}

	t.sampleIndex++
	return s, nil
}
