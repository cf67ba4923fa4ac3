package webm

import (
	"github.com/ugparu/remux"
	"github.com/ugparu/remux/format/cursor"
	"github.com/ugparu/remux/utils/stream"
)

// Matroska track types.
const (
	TrackTypeVideo = 1
	TrackTypeAudio = 2
)

// Track is one TrackEntry.
type Track struct {
	Number       uint64
	Type         uint64
	CodecID      string
	CodecPrivate []byte
	// Metadata is the raw content of the Video or Audio element.
	Metadata []byte
	// DefaultDuration, CodecDelay and SeekPreRoll are in nanoseconds, -1
	// when absent.
	DefaultDuration int64
	CodecDelay      int64
	SeekPreRoll     int64

	kind remux.TrackKind
}

var _ remux.Track = (*Track)(nil)

func newTrack() *Track {
	return &Track{DefaultDuration: -1, CodecDelay: -1, SeekPreRoll: -1}
}

func (t *Track) Kind() remux.TrackKind {
	return t.kind
}

func (t *Track) Codec() string {
	return t.CodecID
}

// AudioFormat returns the sampling frequency and channel count declared in
// the Audio element, with the Matroska defaults of 8000 Hz and one channel.
func (t *Track) AudioFormat() (rate float64, channels uint64) {
	rate, channels = 8000, 1
	if t.Type != TrackTypeAudio || len(t.Metadata) == 0 {
		return
	}
	c := cursor.New(stream.NewMemory(t.Metadata))
	defer c.Close()
	end := int64(len(t.Metadata))
	for {
		e, err := until(c, end, IDSamplingFreq, IDChannels)
		if err != nil || e == nil {
			return
		}
		switch e.id {
		case IDSamplingFreq:
			if v, err := readFloat(c, *e); err == nil && v > 0 {
				rate = v
			}
		case IDChannels:
			if v, err := readUint(c, *e); err == nil && v > 0 {
				channels = v
			}
		}
		if err = skip(c, *e); err != nil {
			return
		}
	}
}

func kindOf(trackType uint64) remux.TrackKind {
	switch trackType {
	case TrackTypeVideo:
		return remux.Video
	case TrackTypeAudio:
		return remux.Audio
	}
	return remux.Other
}
