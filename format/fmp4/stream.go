package fmp4

import (
	"github.com/ugparu/remux/format/mp4/dash"
	"github.com/ugparu/remux/format/mp4/mp4io"
)

// fragRef records where one fragment of a track was written.
type fragRef struct {
	moofOffset uint64
	size       uint64
	// time is the presentation time of the first sample, used by tfra.
	time     uint64
	duration uint64
	trafNum  uint32
}

// trackState is the per output track build state.
type trackState struct {
	source *dash.Reader
	track  *dash.Track
	id     uint32

	started    bool
	finished   bool
	decodeTime uint64
	presented  uint64
	reserved   int
	frags      []fragRef
}

func (s *trackState) String() string {
	return "FMP4_TRACK"
}

// header returns the rebuilt tkhd with the duration in movie timescale units.
func (s *trackState) header() *mp4io.TrackHeader {
	src := s.track.Trak.Header
	return &mp4io.TrackHeader{
		Version:        1,
		Flags:          mp4io.TrackEnabled | mp4io.TrackInMovie,
		TrackId:        int32(s.id),
		Duration:       s.duration(),
		Layer:          src.Layer,
		AlternateGroup: src.AlternateGroup,
		Volume:         src.Volume,
		Matrix:         src.Matrix,
		TrackWidth:     src.TrackWidth,
		TrackHeight:    src.TrackHeight,
	}
}

// duration converts the source tkhd duration to the 1000 Hz movie timescale.
func (s *trackState) duration() int64 {
	return mp4io.ToMovieTime(s.track.Duration(), s.track.MovieTimeScale)
}

func (s *trackState) extends() *mp4io.TrackExtend {
	trex := &mp4io.TrackExtend{TrackId: s.id, DefaultSampleDescIdx: 1}
	if src := s.track.Extends; src != nil {
		trex.DefaultSampleDescIdx = src.DefaultSampleDescIdx
		trex.DefaultSampleDuration = src.DefaultSampleDuration
		trex.DefaultSampleSize = src.DefaultSampleSize
		trex.DefaultSampleFlags = src.DefaultSampleFlags
	}
	return trex
}

// traf rewrites the source traf of c for the output track. The data
// offset is filled in once the moof size is known.
func (s *trackState) traf(c *dash.Chunk, moofOffset uint64) *mp4io.TrackFrag {
	src := c.Header
	header := &mp4io.TrackFragHeader{
		Flags:          src.Flags&(mp4io.TFHDDefaultDuration|mp4io.TFHDDefaultSize|mp4io.TFHDDefaultFlags) | mp4io.TFHDBaseDataOffset,
		TrackID:        s.id,
		BaseDataOffset: moofOffset,
	}
	header.DefaultDuration = src.DefaultDuration
	header.DefaultSize = src.DefaultSize
	header.DefaultFlags = src.DefaultFlags

	return &mp4io.TrackFrag{
		Header:     header,
		DecodeTime: &mp4io.TrackFragDecodeTime{Version: 1, Time: s.decodeTime},
		Run: &mp4io.TrackFragRun{
			Version:          c.Run.Version,
			Flags:            (c.Run.Flags | mp4io.TRUNDataOffset) & trunKeptFlags,
			FirstSampleFlags: c.Run.FirstSampleFlags,
			Entries:          c.Run.Entries,
		},
	}
}

// advance records a written fragment.
func (s *trackState) advance(c *dash.Chunk, ref fragRef) {
	if !s.started {
		s.started = true
		if c.Len() > 0 {
			s.presented = uint64(max(c.SampleAt(0).Offset, 0))
		}
	}
	ref.time = s.presented
	ref.duration = c.Duration
	s.frags = append(s.frags, ref)
	s.presented += c.Duration
	s.decodeTime += c.Duration
}

func (s *trackState) randomAccess() *mp4io.TrackFragRandomAccess {
	tfra := &mp4io.TrackFragRandomAccess{Version: 1, TrackID: s.id}
	for _, f := range s.frags {
		tfra.Entries = append(tfra.Entries, mp4io.TrackFragRandomAccessEntry{
			Time:         f.time,
			MoofOffset:   f.moofOffset,
			TrafNumber:   f.trafNum,
			TrunNumber:   1,
			SampleNumber: 1,
		})
	}
	return tfra
}

// segmentIndex builds the sidx of the track written at pos.
func (s *trackState) segmentIndex(pos uint64) *mp4io.SegmentIndex {
	sidx := &mp4io.SegmentIndex{
		Version:     1,
		ReferenceID: s.id,
		Timescale:   s.track.TimeScale(),
	}
	end := pos + uint64(mp4io.SegmentIndexLen(len(s.frags)))
	if len(s.frags) > 0 {
		sidx.FirstOffset = s.frags[0].moofOffset - end
	}
	for i, f := range s.frags {
		size := f.size
		if i+1 < len(s.frags) {
			size = s.frags[i+1].moofOffset - f.moofOffset
		}
		sidx.Entries = append(sidx.Entries, mp4io.SegmentIndexReference{
			ReferencedSize:     uint32(size) & 0x7FFFFFFF,
			SubsegmentDuration: uint32(f.duration),
			StartsWithSAP:      true,
			SAPType:            1,
		})
	}
	return sidx
}
