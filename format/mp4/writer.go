// Package mp4 flattens fragmented (DASH) mp4 tracks into one progressive mp4
// with classic sample tables, and reads such files back.
package mp4

import (
	"bufio"
	"time"

	"github.com/ugparu/remux"
	"github.com/ugparu/remux/format/mp4/dash"
	"github.com/ugparu/remux/format/mp4/mp4io"
	"github.com/ugparu/remux/utils"
	"github.com/ugparu/remux/utils/bits/pio"
	"github.com/ugparu/remux/utils/buffer"
	"github.com/ugparu/remux/utils/logger"
)

// trackState is the emission state of one source.
type trackState struct {
	source *dash.Reader
	plan   trackPlan
	chunk  *dash.Chunk
	read   int
}

// RemuxWriter builds a non fragmented mp4 out of the selected track of every
// source. The sources are read twice: a dry run collects the sample tables,
// then the payloads are copied after a rewind.
type RemuxWriter struct {
	tracks []*trackState
	brand  string
	done   bool

	out           remux.Stream
	writer        *bufio.Writer
	writePosition int64
	sample        []byte
}

// NewRemuxWriter returns a writer over sources that are parsed and have a
// selected track.
func NewRemuxWriter(sources ...*dash.Reader) *RemuxWriter {
	w := &RemuxWriter{}
	for _, src := range sources {
		w.tracks = append(w.tracks, &trackState{source: src})
	}
	return w
}

// SelectTracks selects one track per source by index.
func (w *RemuxWriter) SelectTracks(indexes ...int) error {
	if w.done {
		return &utils.AlreadyDoneError{}
	}
	if len(indexes) != len(w.tracks) {
		return &utils.InconsistentTrackCountError{Sources: len(w.tracks), Indexes: len(indexes)}
	}
	for i, t := range w.tracks {
		if _, err := t.source.SelectTrack(indexes[i]); err != nil {
			return err
		}
	}
	return nil
}

// SetMainBrand replaces the "mp42" major brand, which then moves to the
// compatible brands.
func (w *RemuxWriter) SetMainBrand(brand string) {
	w.brand = brand
}

func (w *RemuxWriter) String() string {
	return "MP4_WRITER"
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
	for _, t := range w.tracks {
		if t.source.Selected() == nil {
			return &utils.NoTrackSelectedError{}
		}
		if !t.source.CanRewind() {
			return &utils.NotRewindableError{}
		}
	}

	plans := make([]trackPlan, len(w.tracks))
	for i, t := range w.tracks {
		plan, err := w.dryRun(t.source)
		if err != nil {
			return err
		}
		plans[i] = plan
	}
	if len(w.tracks) == 1 && plans[0].track.Kind() == remux.Audio {
		// about one second of audio per chunk
		if n := int(plans[0].track.TimeScale() / 1000); n > 0 {
			plans[0].first, plans[0].next = n, n
		}
	}
	for i, t := range w.tracks {
		t.plan = plans[i]
	}

	l := layout(w.brand, plans, time.Now().UTC())
	if l.Wide {
		logger.Debugf(w, "payload of %d bytes, using co64", l.Payload)
	}
	return w.emit(out, l)
}

// dryRun collects every sample of the selected track and rewinds the source.
func (w *RemuxWriter) dryRun(src *dash.Reader) (trackPlan, error) {
	track := src.Selected()
	plan := trackPlan{track: track, first: firstChunkSamples, next: chunkSamples}
	var total uint64
	for {
		c, err := src.NextChunkInfo()
		if err != nil {
			return plan, err
		}
		if c == nil {
			break
		}
		total += c.Duration
		for {
			s, ok := c.NextSampleInfo()
			if !ok {
				break
			}
			plan.samples = append(plan.samples, sampleRecord{
				duration: s.Duration,
				size:     s.Size,
				cto:      s.Offset,
				keyframe: s.Keyframe,
			})
		}
	}
	if err := src.Rewind(); err != nil {
		return plan, err
	}

	if d := track.Duration(); d > 0 {
		plan.duration = mp4io.ToMovieTime(d, track.MovieTimeScale)
	} else {
		plan.duration = mp4io.ToMovieTime(int64(total), track.TimeScale())
	}
	logger.Debugf(w, "track %d: %d samples, %d ms", track.ID(), len(plan.samples), plan.duration)
	return plan, nil
}

// emit writes l with sequential writes only.
func (w *RemuxWriter) emit(out remux.Stream, l *Layout) error {
	w.out = out
	w.writer = bufio.NewWriterSize(out, pio.RecommendBufioSize)
	w.writePosition = 0

	if err := w.writeAtom(l.FileType); err != nil {
		return err
	}
	if l.MovieSize < moovMemoryLimit {
		if err := w.writeAtom(l.Movie); err != nil {
			return err
		}
	} else {
		logger.Debugf(w, "moov of %d bytes written box by box", l.MovieSize)
		if err := w.writeMovie(l.Movie, l.MovieSize); err != nil {
			return err
		}
	}
	if w.writePosition != int64(l.MdatOffset) {
		return &utils.ReservedOverflowError{Region: "moov", Reserved: int64(l.MdatOffset), Written: w.writePosition}
	}
	if err := w.write(l.MdatHeader); err != nil {
		return err
	}

	for _, c := range l.Chunks {
		if w.writePosition != int64(c.offset) {
			return &utils.ReservedOverflowError{Region: "chunk", Reserved: int64(c.offset), Written: w.writePosition}
		}
		t := w.tracks[c.track]
		for k := c.first; k < c.first+c.count; k++ {
			if err := w.copySample(t, k); err != nil {
				return err
			}
		}
	}
	if w.writePosition != int64(l.Len()) {
		return &utils.ReservedOverflowError{Region: "mdat", Reserved: int64(l.Len()), Written: w.writePosition}
	}
	return w.writer.Flush()
}

// copySample copies sample k of t, which must match the dry run record.
func (w *RemuxWriter) copySample(t *trackState, k int) error {
	want := t.plan.samples[k]
	for {
		if t.chunk == nil {
			c, err := t.source.NextChunk()
			if err != nil {
				return err
			}
			if c == nil {
				return &utils.ReservedOverflowError{
					Region:   "track samples",
					Reserved: int64(len(t.plan.samples)),
					Written:  int64(t.read),
				}
			}
			t.chunk = c
		}
		s, data, err := t.chunk.NextSample(w.sample)
		if err != nil {
			return err
		}
		if data == nil {
			t.chunk = nil
			continue
		}
		w.sample = data
		if s.Size != want.size {
			return &utils.ReservedOverflowError{Region: "sample", Reserved: int64(want.size), Written: int64(s.Size)}
		}
		t.read++
		return w.write(data)
	}
}

func (w *RemuxWriter) write(b []byte) error {
	n, err := w.writer.Write(b)
	w.writePosition += int64(n)
	return err
}

func (w *RemuxWriter) writeAtom(atom mp4io.Atom) error {
	buf := buffer.Get(atom.Len())
	defer buf.Release()
	n := atom.Marshal(buf.Data())
	return w.write(buf.Data()[:n])
}

// writeMovie writes a large moov one child box at a time.
func (w *RemuxWriter) writeMovie(moov *mp4io.Movie, size int) error {
	hdr := make([]byte, mp4io.HeaderSize)
	pio.PutU32BE(hdr, uint32(size))
	pio.PutU32BE(hdr[4:], uint32(mp4io.MOOV))
	if err := w.write(hdr); err != nil {
		return err
	}
	for _, child := range moov.Children() {
		if err := w.writeAtom(child); err != nil {
			return err
		}
	}
	return nil
}
