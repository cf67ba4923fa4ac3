package mp4

import (
	"math"
	"time"

	"github.com/ugparu/remux"
	"github.com/ugparu/remux/format/mp4/dash"
	"github.com/ugparu/remux/format/mp4/mp4io"
)

const (
	firstChunkSamples = 2
	chunkSamples      = 6
	// co64Threshold is the file size past which chunk offsets need 64 bits.
	co64Threshold = 0xFFFEFFFF
	// moovMemoryLimit is the largest moov marshaled into a single buffer.
	moovMemoryLimit = (256 + 2048) * 1024
)

// sampleRecord is what the dry run keeps of every sample.
type sampleRecord struct {
	duration uint32
	size     uint32
	cto      int32
	keyframe bool
}

// trackPlan is the dry run result of one track.
type trackPlan struct {
	track   *dash.Track
	samples []sampleRecord
	// duration is the track duration in movie timescale units.
	duration int64
	// first and next are the samples per chunk of the first and the
	// following chunks.
	first, next int
}

// chunkRef is one chunk of the interleaved mdat.
type chunkRef struct {
	track  int
	first  int
	count  int
	size   uint64
	offset uint64
}

// Layout is the complete plan of a flattened file: every box before the
// media data and the position of every chunk inside it.
type Layout struct {
	FileType *mp4io.FileType
	Movie    *mp4io.Movie
	// MovieSize is the marshaled size of Movie.
	MovieSize int
	// MdatOffset is the position of the mdat header, relative to the start
	// of the output.
	MdatOffset uint64
	MdatHeader []byte
	// Wide is set when chunk offsets need co64.
	Wide    bool
	Payload uint64
	Chunks  []chunkRef
}

// Len returns the total size of the file.
func (l *Layout) Len() uint64 {
	return l.MdatOffset + uint64(len(l.MdatHeader)) + l.Payload
}

// layout plans the output file. It does not touch any stream.
func layout(brand string, plans []trackPlan, now time.Time) *Layout {
	l := &Layout{FileType: fileType(brand)}

	chunks, perTrack := interleave(plans)
	l.Chunks = chunks
	for _, c := range l.Chunks {
		l.Payload += c.size
	}
	l.Wide = mp4io.HeaderSize+l.Payload > co64Threshold
	l.MdatHeader = mp4io.MediaDataHeader(l.Payload, l.Wide)

	moov := &mp4io.Movie{Header: mp4io.NewMovieHeader()}
	moov.Header.CreateTime, moov.Header.ModifyTime = now, now
	moov.Header.NextTrackID = int32(len(plans) + 1)
	offsets := make([]*mp4io.ChunkOffset, len(plans))
	for i := range plans {
		p := &plans[i]
		moov.Header.Duration = max(moov.Header.Duration, p.duration)
		trak, stco := trackBox(i, p, perTrack[i], l.Wide, now)
		moov.Tracks = append(moov.Tracks, trak)
		offsets[i] = stco
	}
	l.Movie = moov
	l.MovieSize = moov.Len()
	l.MdatOffset = uint64(l.FileType.Len() + l.MovieSize)

	pos := l.MdatOffset + uint64(len(l.MdatHeader))
	next := make([]int, len(plans))
	for i := range l.Chunks {
		c := &l.Chunks[i]
		c.offset = pos
		offsets[c.track].Entries[next[c.track]] = pos
		next[c.track]++
		pos += c.size
	}
	return l
}

func fileType(brand string) *mp4io.FileType {
	if brand == "" {
		return mp4io.NewFileType("mp42", 512, "mp41", "isom", "iso2")
	}
	return mp4io.NewFileType(brand, 0, "mp42", "mp41", "isom", "iso2")
}

// interleave orders the chunks round robin over the tracks and returns, for
// every track, the sample count of each of its chunks.
func interleave(plans []trackPlan) ([]chunkRef, [][]int) {
	var chunks []chunkRef
	perTrack := make([][]int, len(plans))
	pos := make([]int, len(plans))
	for written := true; written; {
		written = false
		for i := range plans {
			p := &plans[i]
			left := len(p.samples) - pos[i]
			if left <= 0 {
				continue
			}
			count := p.next
			if pos[i] == 0 {
				count = p.first
			}
			count = min(count, left)
			c := chunkRef{track: i, first: pos[i], count: count}
			for _, s := range p.samples[pos[i] : pos[i]+count] {
				c.size += uint64(s.size)
			}
			chunks = append(chunks, c)
			perTrack[i] = append(perTrack[i], count)
			pos[i] += count
			written = true
		}
	}
	return chunks, perTrack
}

// trackBox builds the trak of plan index i. The chunk offsets are zero and
// returned so the caller can fill them in once the moov size is known.
func trackBox(i int, p *trackPlan, chunks []int, wide bool, now time.Time) (*mp4io.Track, *mp4io.ChunkOffset) {
	src := p.track.Trak
	edit := p.track.EditList()

	trak := &mp4io.Track{
		Header: &mp4io.TrackHeader{
			Version:        1,
			Flags:          mp4io.TrackEnabled | mp4io.TrackInMovie,
			CreateTime:     now,
			ModifyTime:     now,
			TrackId:        int32(i + 1),
			Duration:       p.duration,
			Layer:          src.Header.Layer,
			AlternateGroup: src.Header.AlternateGroup,
			Volume:         src.Header.Volume,
			Matrix:         src.Header.Matrix,
			TrackWidth:     src.Header.TrackWidth,
			TrackHeight:    src.Header.TrackHeight,
		},
		Edit: &mp4io.EditBox{List: editList(uint64(p.duration), edit)},
	}

	stbl := sampleTable(p, chunks, wide)
	info := &mp4io.MediaInfo{Sample: stbl}
	if srcInfo := src.Media.Info; srcInfo != nil {
		info.Sound = srcInfo.Sound
		info.Video = srcInfo.Video
		info.Data = srcInfo.Data
		info.Unknowns = srcInfo.Unknowns
		if srcInfo.Sample != nil {
			stbl.SampleDesc = srcInfo.Sample.SampleDesc
		}
	}
	trak.Media = &mp4io.Media{
		Header:  src.Media.Header,
		Handler: handler(p.track),
		Info:    info,
	}
	return trak, stbl.ChunkOffset
}

// editList carries the media time and rate of the source edit over the
// whole track.
func editList(duration uint64, src mp4io.EditListEntry) *mp4io.EditList {
	elst := &mp4io.EditList{Entries: []mp4io.EditListEntry{{
		SegmentDuration: duration,
		MediaTime:       src.MediaTime,
		MediaRate:       src.MediaRate,
	}}}
	if duration > math.MaxUint32 || src.MediaTime > math.MaxInt32 || src.MediaTime < math.MinInt32 {
		elst.Version = 1
	}
	return elst
}

// handler rebuilds the hdlr box with an empty name.
func handler(t *dash.Track) *mp4io.HandlerRefer {
	if src := t.Trak.Media.Handler; src != nil {
		return &mp4io.HandlerRefer{
			PreDefined:  src.PreDefined,
			HandlerType: src.HandlerType,
			Reserved:    src.Reserved,
			Name:        []byte{0},
		}
	}
	switch t.Kind() {
	case remux.Video:
		return mp4io.NewHandlerRefer(mp4io.HandlerVideo)
	case remux.Audio:
		return mp4io.NewHandlerRefer(mp4io.HandlerSound)
	case remux.Subtitles:
		return mp4io.NewHandlerRefer(mp4io.HandlerSubtitle)
	}
	return nil
}

func sampleTable(p *trackPlan, chunks []int, wide bool) *mp4io.SampleTable {
	stbl := &mp4io.SampleTable{
		TimeToSample:  &mp4io.TimeToSample{},
		SampleToChunk: &mp4io.SampleToChunk{},
		SampleSize:    &mp4io.SampleSize{},
		ChunkOffset:   &mp4io.ChunkOffset{Wide: wide, Entries: make([]uint64, len(chunks))},
	}

	var (
		stts      *mp4io.TimeToSampleEntry
		ctts      *mp4io.CompositionOffsetEntry
		cto       = &mp4io.CompositionOffset{}
		sync      = &mp4io.SyncSample{}
		shifted   bool
		negative  bool
		constSize = true
	)
	for i, s := range p.samples {
		if stts == nil || stts.Duration != s.duration {
			stbl.TimeToSample.Entries = append(stbl.TimeToSample.Entries, mp4io.TimeToSampleEntry{Duration: s.duration})
			stts = &stbl.TimeToSample.Entries[len(stbl.TimeToSample.Entries)-1]
		}
		stts.Count++

		if ctts == nil || ctts.Offset != s.cto {
			cto.Entries = append(cto.Entries, mp4io.CompositionOffsetEntry{Offset: s.cto})
			ctts = &cto.Entries[len(cto.Entries)-1]
		}
		ctts.Count++
		shifted = shifted || s.cto != 0
		negative = negative || s.cto < 0

		if s.keyframe {
			sync.Entries = append(sync.Entries, uint32(i+1))
		}
		constSize = constSize && s.size == p.samples[0].size
	}

	if shifted {
		if negative {
			cto.Version = 1
		}
		stbl.CompositionOffset = cto
	}
	if len(sync.Entries) != len(p.samples) {
		stbl.SyncSample = sync
	}

	if constSize && len(p.samples) > 0 {
		stbl.SampleSize.SampleSize = p.samples[0].size
		stbl.SampleSize.SampleCount = uint32(len(p.samples))
	} else {
		stbl.SampleSize.Entries = make([]uint32, len(p.samples))
		for i, s := range p.samples {
			stbl.SampleSize.Entries[i] = s.size
		}
	}

	for i, count := range chunks {
		entries := stbl.SampleToChunk.Entries
		if n := len(entries); n > 0 && entries[n-1].SamplesPerChunk == uint32(count) {
			continue
		}
		stbl.SampleToChunk.Entries = append(entries, mp4io.SampleToChunkEntry{
			FirstChunk:      uint32(i + 1),
			SamplesPerChunk: uint32(count),
			SampleDescId:    1,
		})
	}

	if p.track.Kind() == remux.Audio {
		stbl.GroupDesc = mp4io.NewRollGroupDesc()
		stbl.ToGroup = &mp4io.SampleToGroup{
			GroupingType: mp4io.ROLL,
			Entries:      []mp4io.SampleToGroupEntry{{SampleCount: uint32(len(p.samples)), GroupDescriptionIndex: 1}},
		}
	}
	return stbl
}
