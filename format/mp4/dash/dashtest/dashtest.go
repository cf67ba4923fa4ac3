// Package dashtest builds small fragmented mp4 streams for tests.
package dashtest

import (
	"bytes"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/ugparu/remux/format/mp4/mp4io"
	"github.com/ugparu/remux/utils/bits/pio"
)

// Track describes one trak of an init segment.
type Track struct {
	ID        uint32
	Handler   [4]byte
	Codec     string
	TimeScale uint32
	// Duration is in movie timescale units.
	Duration      int64
	Width, Height float64
	Volume        float64
	Extends       mp4io.TrackExtend
	Edit          *mp4io.EditListEntry
}

// Sample is one sample of a fragment built by Fragment.
type Sample struct {
	Dur  uint32
	Sync bool
	Cto  int32
	Data []byte
}

var identity = [9]int32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000}

// SampleEntry returns an opaque sample entry box with the given fourcc.
func SampleEntry(codec string) mp4io.Atom {
	b := make([]byte, 16)
	pio.PutU32BE(b, 16)
	pio.PutU32BE(b[4:], uint32(mp4io.StringToTag(codec)))
	pio.PutU16BE(b[14:], 1)
	return &mp4io.Dummy{Data: b, Tag_: mp4io.StringToTag(codec)}
}

// Init returns ftyp and moov boxes with the given major brand.
func Init(major string, movieTimeScale int32, tracks ...Track) []byte {
	movie := &mp4io.Movie{Header: mp4io.NewMovieHeader(), MovieExtend: &mp4io.MovieExtend{}}
	movie.Header.TimeScale = movieTimeScale
	movie.Header.NextTrackID = int32(len(tracks) + 1)
	for _, t := range tracks {
		trak := &mp4io.Track{
			Header: &mp4io.TrackHeader{
				Flags:       mp4io.TrackEnabled | mp4io.TrackInMovie,
				TrackId:     int32(t.ID),
				Duration:    t.Duration,
				Volume:      t.Volume,
				Matrix:      identity,
				TrackWidth:  t.Width,
				TrackHeight: t.Height,
			},
			Media: &mp4io.Media{
				Header: &mp4io.MediaHeader{TimeScale: t.TimeScale, Language: 0x55c4},
				Info: &mp4io.MediaInfo{
					Data: mp4io.NewDataInfo(),
					Sample: &mp4io.SampleTable{
						SampleDesc:    &mp4io.SampleDesc{Entries: []mp4io.Atom{SampleEntry(t.Codec)}},
						TimeToSample:  &mp4io.TimeToSample{},
						SampleToChunk: &mp4io.SampleToChunk{},
						SampleSize:    &mp4io.SampleSize{},
						ChunkOffset:   &mp4io.ChunkOffset{},
					},
				},
			},
		}
		if t.Handler != [4]byte{} {
			trak.Media.Handler = mp4io.NewHandlerRefer(t.Handler)
		}
		if t.Edit != nil {
			trak.Edit = &mp4io.EditBox{List: &mp4io.EditList{Entries: []mp4io.EditListEntry{*t.Edit}}}
		}
		movie.Tracks = append(movie.Tracks, trak)

		trex := t.Extends
		trex.TrackId = t.ID
		if trex.DefaultSampleDescIdx == 0 {
			trex.DefaultSampleDescIdx = 1
		}
		movie.MovieExtend.Tracks = append(movie.MovieExtend.Tracks, &trex)
	}
	ftyp := mp4io.NewFileType(major, 0, "iso6", "mp41")
	return append(mp4io.Encode(ftyp), mp4io.Encode(movie)...)
}

// Fragment returns a moof and mdat pair for one track encoded by mp4ff.
func Fragment(seq, trackID uint32, decodeTime uint64, samples ...Sample) []byte {
	frag, err := mp4.CreateFragment(seq, trackID)
	if err != nil {
		panic(err)
	}
	for _, s := range samples {
		flags := mp4.NonSyncSampleFlags
		if s.Sync {
			flags = mp4.SyncSampleFlags
		}
		frag.AddFullSample(mp4.FullSample{
			Sample: mp4.Sample{
				Flags:                 flags,
				Dur:                   s.Dur,
				Size:                  uint32(len(s.Data)),
				CompositionTimeOffset: s.Cto,
			},
			DecodeTime: decodeTime,
			Data:       s.Data,
		})
		decodeTime += uint64(s.Dur)
	}
	var buf bytes.Buffer
	if err = frag.Encode(&buf); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Moof returns a moof holding the given trafs followed by an mdat with
// payload. Every trun data offset is rewritten to point at the payload
// start plus its index in offsets.
func Moof(seq uint32, payload []byte, offsets []int32, trafs ...*mp4io.TrackFrag) []byte {
	moof := &mp4io.MovieFrag{Header: &mp4io.MovieFragHeader{Seqnum: seq}, Tracks: trafs}
	size := int32(moof.Len())
	for i, traf := range trafs {
		if traf.Run != nil && traf.Run.Flags&mp4io.TRUNDataOffset != 0 {
			traf.Run.DataOffset = size + mp4io.HeaderSize + offsets[i]
		}
	}
	out := mp4io.Encode(moof)
	out = append(out, mp4io.MediaDataHeader(uint64(len(payload)), false)...)
	return append(out, payload...)
}

// Box returns a raw box with the given type and body.
func Box(tag string, body []byte) []byte {
	b := make([]byte, mp4io.HeaderSize, mp4io.HeaderSize+len(body))
	pio.PutU32BE(b, uint32(mp4io.HeaderSize+len(body)))
	pio.PutU32BE(b[4:], uint32(mp4io.StringToTag(tag)))
	return append(b, body...)
}

// Join concatenates stream parts.
func Join(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}
