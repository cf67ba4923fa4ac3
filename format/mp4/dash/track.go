package dash

import (
	"github.com/ugparu/remux"
	"github.com/ugparu/remux/format/mp4/mp4io"
)

// Track is one trak of a fragmented movie together with its trex defaults.
type Track struct {
	kind remux.TrackKind
	// MovieTimeScale is the mvhd timescale of the source, the unit of the tkhd duration.
	MovieTimeScale uint32
	Trak           *mp4io.Track
	Extends        *mp4io.TrackExtend
}

var _ remux.Track = (*Track)(nil)

func (t *Track) Kind() remux.TrackKind {
	return t.kind
}

// Codec returns the fourcc of the first sample entry, empty when there is none.
func (t *Track) Codec() string {
	if stsd := t.SampleDesc(); stsd != nil {
		return stsd.Format()
	}
	return ""
}

// ID returns the track id used by tfhd boxes.
func (t *Track) ID() uint32 {
	return uint32(t.Trak.Header.TrackId)
}

// TimeScale returns the mdhd timescale.
func (t *Track) TimeScale() uint32 {
	return t.Trak.Media.Header.TimeScale
}

// Duration returns the tkhd duration in movie timescale units.
func (t *Track) Duration() int64 {
	return t.Trak.Header.Duration
}

// SampleDesc returns the stsd box, nil when the track has no sample table.
func (t *Track) SampleDesc() *mp4io.SampleDesc {
	info := t.Trak.Media.Info
	if info == nil || info.Sample == nil {
		return nil
	}
	return info.Sample.SampleDesc
}

// EditList returns the first edit list entry, or the identity edit.
func (t *Track) EditList() mp4io.EditListEntry {
	if t.Trak.Edit != nil && t.Trak.Edit.List != nil && len(t.Trak.Edit.List.Entries) > 0 {
		return t.Trak.Edit.List.Entries[0]
	}
	return mp4io.EditListEntry{MediaRate: 1}
}

func (t *Track) String() string {
	return "DASH_TRACK"
}

// Classify derives the kind of trak from its handler, or from the track
// header when the handler is unknown.
func Classify(trak *mp4io.Track) remux.TrackKind {
	if handler := trak.Media.Handler; handler != nil {
		switch handler.HandlerType {
		case mp4io.HandlerVideo:
			return remux.Video
		case mp4io.HandlerSound:
			return remux.Audio
		case mp4io.HandlerSubtitle, mp4io.HandlerText:
			return remux.Subtitles
		}
	}
	switch hdr := trak.Header; {
	case hdr.TrackWidth > 0 && hdr.TrackHeight > 0:
		return remux.Video
	case hdr.Volume > 0:
		return remux.Audio
	}
	return remux.Other
}
