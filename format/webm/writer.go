package webm

import (
	"bufio"
	"math"

	"github.com/ugparu/remux"
	"github.com/ugparu/remux/utils"
	"github.com/ugparu/remux/utils/bits/pio"
	"github.com/ugparu/remux/utils/logger"
)

const (
	// timecodeScale is one millisecond per tick.
	timecodeScale = 1000000
	// window is the interleaving window in ticks.
	window = 100
	// audioCueInterval is the cue spacing in ticks for an audio cue track.
	audioCueInterval = 5000
	// cueReserve is the space kept for Cues after Tracks.
	cueReserve = 64 * 1024
	// sizeWidth is the width of every size field patched after the fact.
	sizeWidth = 8
	// clusterHeader is the Cluster id plus its size field.
	clusterHeader = 4 + sizeWidth
	writingApp    = "remux"
)

// source is the interleaving state of one input.
type source struct {
	r       *Reader
	track   *Track
	segment *Segment
	cluster *Cluster
	// defaultDuration is in ticks, -1 until known.
	defaultDuration int64
	// last is the time of the last written block in ticks, -1 before any.
	last int64
}

// next returns the next block. A nil block with end set marks the end of a
// source cluster, a nil block without it the end of the source.
func (s *source) next() (b *Block, end bool, err error) {
	for {
		if s.segment == nil {
			if s.segment, err = s.r.NextSegment(); err != nil || s.segment == nil {
				return nil, false, err
			}
		}
		if s.cluster == nil {
			if s.cluster, err = s.segment.NextCluster(); err != nil {
				return nil, false, err
			}
			if s.cluster == nil {
				s.segment = nil
				continue
			}
		}
		if b, err = s.cluster.NextBlock(); err != nil {
			return nil, false, err
		}
		if b == nil {
			s.cluster = nil
			return nil, true, nil
		}
		return b, false, nil
	}
}

// cuePoint positions are relative to the segment data.
type cuePoint struct {
	time     int64
	cluster  int64
	relative int64
}

// RemuxWriter interleaves the selected track of every source into one
// WebM file and indexes it with Cues. The output must be seekable: sizes,
// the duration, the SeekHead and the Cues are patched once every block is
// written.
type RemuxWriter struct {
	sources []*source
	done    bool

	out      remux.Stream
	writer   *bufio.Writer
	position int64

	segmentData int64
	clusters    []int64
	cluster     int64
	base        int64
	cues        []cuePoint
}

// NewRemuxWriter returns a writer over parsed sources.
func NewRemuxWriter(sources ...*Reader) *RemuxWriter {
	w := &RemuxWriter{}
	for _, r := range sources {
		w.sources = append(w.sources, &source{r: r, defaultDuration: -1, last: -1})
	}
	return w
}

func (w *RemuxWriter) String() string {
	return "WEBM_WRITER"
}

// SelectTracks selects one track per source by index.
func (w *RemuxWriter) SelectTracks(indexes ...int) error {
	if w.done {
		return &utils.AlreadyDoneError{}
	}
	if len(indexes) != len(w.sources) {
		return &utils.InconsistentTrackCountError{Sources: len(w.sources), Indexes: len(indexes)}
	}
	for i, s := range w.sources {
		t, err := s.r.SelectTrack(indexes[i])
		if err != nil {
			return err
		}
		s.track = t
	}
	return nil
}

// cueTrack prefers a kind shared by every track, then video, then audio.
func cueTrack(tracks []*Track) int {
	var video, audio int
	for _, t := range tracks {
		switch t.Type {
		case TrackTypeVideo:
			video++
		case TrackTypeAudio:
			audio++
		}
	}
	var want uint64
	switch {
	case audio == len(tracks):
		want = TrackTypeAudio
	case video > 0:
		want = TrackTypeVideo
	case audio > 0:
		want = TrackTypeAudio
	default:
		return 0
	}
	for i, t := range tracks {
		if t.Type == want {
			return i
		}
	}
	return 0
}

// Build writes the whole file to out. It can run once.
func (w *RemuxWriter) Build(out remux.Stream) error {
	if w.done {
		return &utils.AlreadyDoneError{}
	}
	w.done = true
	if !out.CanWrite() {
		return &utils.NotWritableError{}
	}
	if !out.CanSeek() {
		return &utils.NotSeekableError{}
	}
	if len(w.sources) == 0 {
		return &utils.NoTrackSelectedError{}
	}
	tracks := make([]*Track, len(w.sources))
	for i, s := range w.sources {
		if s.track == nil {
			return &utils.NoTrackSelectedError{}
		}
		tracks[i] = s.track
		if d := s.track.DefaultDuration; d >= 0 {
			s.defaultDuration = int64(math.Ceil(float64(d) / timecodeScale))
		}
	}

	w.out = out
	w.writer = bufio.NewWriterSize(out, pio.RecommendBufioSize)
	w.position = out.Position()

	if err := w.write(ebmlHeader()); err != nil {
		return err
	}
	segment := w.position
	hdr := appendID(nil, IDSegment)
	if err := w.write(appendVintWidth(hdr, 0, sizeWidth)); err != nil {
		return err
	}
	w.segmentData = w.position

	seekHead := w.position
	if err := w.write(seekHeadElement(0, 0, 0, 0)); err != nil {
		return err
	}
	info := w.position
	if err := w.write(infoElement(0)); err != nil {
		return err
	}
	tracksAt := w.position
	if err := w.write(tracksElement(tracks)); err != nil {
		return err
	}
	cues := w.position
	if err := w.write(voidElement(cueReserve)); err != nil {
		return err
	}

	if err := w.interleave(cueTrack(tracks)); err != nil {
		return err
	}
	if err := w.writer.Flush(); err != nil {
		return err
	}
	end := w.position

	var duration int64
	for _, s := range w.sources {
		d := s.last
		if s.defaultDuration > 0 {
			d += s.defaultDuration
		}
		duration = max(duration, d)
	}

	// patch pass
	for i, at := range w.clusters {
		next := end
		if i+1 < len(w.clusters) {
			next = w.clusters[i+1]
		}
		if err := w.patch(at+4, appendVintWidth(nil, uint64(next-at-clusterHeader), sizeWidth)); err != nil {
			return err
		}
	}
	cuesData, err := cuesElement(w.cues, cueTrack(tracks)+1)
	if err != nil {
		return err
	}
	if err = w.patch(cues, cuesData); err != nil {
		return err
	}
	first := cues + cueReserve
	if len(w.clusters) > 0 {
		first = w.clusters[0]
	}
	rel := func(pos int64) uint64 { return uint64(pos - w.segmentData) }
	if err = w.patch(seekHead, seekHeadElement(rel(info), rel(tracksAt), rel(first), rel(cues))); err != nil {
		return err
	}
	if err = w.patch(info, infoElement(duration)); err != nil {
		return err
	}
	if err = w.patch(segment+int64(IDSegment.Len()), appendVintWidth(nil, uint64(end-w.segmentData), sizeWidth)); err != nil {
		return err
	}
	logger.Debugf(w, "%d clusters, %d cues, %d ms", len(w.clusters), len(w.cues), duration)
	return out.SeekTo(end)
}

// interleave copies the blocks of every source in windows of 100 ms. A
// source cluster ending starts a new output cluster, timed by the next block
// of that source. So does a block too far from the cluster timecode.
func (w *RemuxWriter) interleave(cue int) error {
	nextCue := int64(0)
	if w.sources[cue].track.Type == TrackTypeVideo {
		nextCue = -1
	}
	limit := int64(-1)
	limitBy := cue
	newClusterBy := -1

	for written := true; written; {
		written = false
		for i := 0; i < len(w.sources); {
			s := w.sources[i]
			b, end, err := s.next()
			if err != nil {
				return err
			}
			if b == nil {
				if end {
					written = true
					newClusterBy = i
				}
				i++
				continue
			}
			tc := b.Time / timecodeScale

			if newClusterBy == i {
				limitBy = i
				newClusterBy = -1
				limit = tc + window
				err = w.startCluster(tc)
			} else if len(w.clusters) == 0 || tc-w.base > math.MaxInt16 {
				err = w.startCluster(tc)
			}
			if err != nil {
				return err
			}

			if i == cue && (nextCue >= 0 && tc >= nextCue || nextCue < 0 && b.Keyframe()) {
				if nextCue >= 0 {
					nextCue += audioCueInterval
				}
				w.cues = append(w.cues, cuePoint{
					time:     tc,
					cluster:  w.cluster - w.segmentData,
					relative: w.position - w.cluster - clusterHeader,
				})
			}
			if err = w.writeBlock(i, b, tc); err != nil {
				return err
			}
			written = true

			if s.defaultDuration < 0 && s.last >= 0 {
				s.defaultDuration = tc - s.last
			}
			s.last = tc

			if limit < 0 {
				limit = tc + window
				continue
			}
			if tc >= limit {
				if limitBy != i {
					limit += window - (tc - limit)
				}
				i++
			}
		}
	}
	return nil
}

func (w *RemuxWriter) startCluster(tc int64) error {
	w.cluster = w.position
	w.base = tc
	w.clusters = append(w.clusters, w.position)
	b := appendVintWidth(appendID(nil, IDCluster), 0, sizeWidth)
	return w.write(appendUintElement(b, IDTimecode, uint64(tc)))
}

func (w *RemuxWriter) writeBlock(i int, b *Block, tc int64) error {
	rel := tc - w.base
	if rel < math.MinInt16 || rel > math.MaxInt16 {
		return &utils.TimecodeOverflowError{Timecode: rel}
	}
	head := AppendVint(nil, uint64(i+1))
	head = append(head, byte(uint16(rel)>>8), byte(rel), b.Flags)

	hdr := appendID(make([]byte, 0, 16+len(head)), IDSimpleBlock)
	hdr = AppendVint(hdr, uint64(len(head))+uint64(b.Size))
	if err := w.write(append(hdr, head...)); err != nil {
		return err
	}
	n, err := b.Data.WriteTo(w.writer)
	w.position += n
	return err
}

func (w *RemuxWriter) write(b []byte) error {
	n, err := w.writer.Write(b)
	w.position += int64(n)
	return err
}

// patch overwrites b at pos. The buffered writer must be flushed.
func (w *RemuxWriter) patch(pos int64, b []byte) error {
	if err := w.out.SeekTo(pos); err != nil {
		return err
	}
	_, err := w.out.Write(b)
	return err
}

func ebmlHeader() []byte {
	var b []byte
	b = appendUintElement(b, IDEBMLVersion, 1)
	b = appendUintElement(b, IDEBMLReadVersion, 1)
	b = appendUintElement(b, IDEBMLMaxIDLength, 4)
	b = appendUintElement(b, IDEBMLMaxSizeLength, 8)
	b = appendBinaryElement(b, IDEBMLDocType, []byte("webm"))
	b = appendUintElement(b, IDEBMLDocTypeVersion, 2)
	b = appendUintElement(b, IDEBMLDocTypeReadVersion, 2)
	return appendMaster(nil, IDEBML, b)
}

// seekHeadElement has a fixed size whatever the positions.
func seekHeadElement(info, tracks, cluster, cues uint64) []byte {
	var b []byte
	for _, seek := range []struct {
		id  ID
		pos uint64
	}{{IDInfo, info}, {IDTracks, tracks}, {IDCluster, cluster}, {IDCues, cues}} {
		var entry []byte
		entry = appendBinaryElement(entry, IDSeekID, appendID(nil, seek.id))
		entry = appendUintWidth(entry, IDSeekPosition, seek.pos, sizeWidth)
		b = appendMaster(b, IDSeek, entry)
	}
	return appendMaster(nil, IDSeekHead, b)
}

// infoElement has a fixed size whatever the duration.
func infoElement(duration int64) []byte {
	var b []byte
	b = appendUintWidth(b, IDTimecodeScale, timecodeScale, 3)
	b = appendFloatElement(b, IDDuration, float64(duration))
	b = appendBinaryElement(b, IDMuxingApp, []byte(writingApp))
	b = appendBinaryElement(b, IDWritingApp, []byte(writingApp))
	return appendMaster(nil, IDInfo, b)
}

func tracksElement(tracks []*Track) []byte {
	var b []byte
	for i, t := range tracks {
		b = appendMaster(b, IDTrackEntry, trackEntry(i+1, t))
	}
	return appendMaster(nil, IDTracks, b)
}

func trackEntry(number int, t *Track) []byte {
	var b []byte
	b = appendUintElement(b, IDTrackNumber, uint64(number))
	b = appendUintElement(b, IDTrackUID, uint64(number))
	b = appendUintElement(b, IDFlagLacing, 0)
	b = appendBinaryElement(b, IDLanguage, []byte("und"))
	b = appendBinaryElement(b, IDCodecID, []byte(t.CodecID))
	if t.CodecDelay >= 0 {
		b = appendUintElement(b, IDCodecDelay, uint64(t.CodecDelay))
	}
	if t.SeekPreRoll >= 0 {
		b = appendUintElement(b, IDSeekPreRoll, uint64(t.SeekPreRoll))
	}
	b = appendUintElement(b, IDTrackType, t.Type)
	if t.DefaultDuration >= 0 {
		b = appendUintElement(b, IDDefaultDuration, uint64(t.DefaultDuration))
	}
	if len(t.Metadata) > 0 {
		switch t.Type {
		case TrackTypeVideo:
			b = appendBinaryElement(b, IDVideo, t.Metadata)
		case TrackTypeAudio:
			b = appendBinaryElement(b, IDAudio, t.Metadata)
		}
	}
	if len(t.CodecPrivate) > 0 {
		b = appendBinaryElement(b, IDCodecPrivate, t.CodecPrivate)
	}
	return b
}

// cuesElement returns the Cues followed by a Void filling the rest of the
// reservation.
func cuesElement(cues []cuePoint, track int) ([]byte, error) {
	var body []byte
	for _, cue := range cues {
		var pos []byte
		pos = appendUintElement(pos, IDCueTrack, uint64(track))
		pos = appendUintElement(pos, IDCueClusterPosition, uint64(cue.cluster))
		if cue.relative > 0 {
			pos = appendUintElement(pos, IDCueRelativePosition, uint64(cue.relative))
		}
		var point []byte
		point = appendUintElement(point, IDCueTime, uint64(cue.time))
		point = appendMaster(point, IDCueTrackPositions, pos)
		body = appendMaster(body, IDCuePoint, point)
	}
	b := appendMaster(nil, IDCues, body)
	rest := cueReserve - len(b)
	if rest != 0 && rest < 2 {
		return nil, &utils.TooManyCuesError{Reserved: cueReserve}
	}
	return append(b, voidElement(rest)...), nil
}
