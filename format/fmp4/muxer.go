// Package fmp4 writes fragmented mp4 files out of DASH fragment readers.
package fmp4

import (
	"math"

	"github.com/ugparu/remux"
	"github.com/ugparu/remux/format/mp4/dash"
	"github.com/ugparu/remux/format/mp4/mp4io"
	"github.com/ugparu/remux/utils"
	"github.com/ugparu/remux/utils/buffer"
	"github.com/ugparu/remux/utils/logger"
)

// trun flags carried over from the source: data offset, first sample flags
// and the four per sample fields.
const trunKeptFlags = 0x0F05

// Writer repackages the selected track of every source into one
// fragmented mp4. Fragments are written in rounds, one chunk per source
// and round, all sharing a moof.
type Writer struct {
	out    remux.Stream
	tracks []*trackState
	done   bool
	seq    uint32

	sidxPos  int64
	sidxSize int
}

// NewWriter returns a writer over sources that are parsed and have a
// selected track.
func NewWriter(out remux.Stream, sources ...*dash.Reader) *Writer {
	w := &Writer{out: out, sidxPos: -1}
	for i, src := range sources {
		w.tracks = append(w.tracks, &trackState{source: src, track: src.Selected(), id: uint32(i + 1)})
	}
	return w
}

func (w *Writer) String() string {
	return "FMP4_WRITER"
}

// Build writes the whole file. It can run once.
func (w *Writer) Build() error {
	if w.done {
		return &utils.AlreadyDoneError{}
	}
	w.done = true
	if !w.out.CanWrite() {
		return &utils.NotWritableError{}
	}
	for _, t := range w.tracks {
		if t.track == nil {
			return &utils.NoTrackSelectedError{}
		}
	}

	if err := w.writeHeader(); err != nil {
		return err
	}
	if err := w.reserveIndex(); err != nil {
		return err
	}
	for {
		more, err := w.writeFragment()
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	if err := w.writeRandomAccess(); err != nil {
		return err
	}
	return w.writeIndex()
}

func (w *Writer) write(atoms ...mp4io.Atom) error {
	size := 0
	for _, atom := range atoms {
		size += atom.Len()
	}
	buf := buffer.Get(size)
	defer buf.Release()

	n := 0
	for _, atom := range atoms {
		n += atom.Marshal(buf.Data()[n:])
	}
	_, err := w.out.Write(buf.Data()[:n])
	return err
}

func (w *Writer) writeHeader() error {
	moov := &mp4io.Movie{
		Header:      mp4io.NewMovieHeader(),
		MovieExtend: &mp4io.MovieExtend{},
		UserData:    mp4io.NewVendorUserData(mp4io.VendorComment),
	}
	moov.Header.NextTrackID = int32(len(w.tracks) + 1)

	for _, t := range w.tracks {
		moov.Header.Duration = max(moov.Header.Duration, t.duration())
		moov.Tracks = append(moov.Tracks, &mp4io.Track{
			Header: t.header(),
			Media:  t.track.Trak.Media,
		})
		moov.MovieExtend.Tracks = append(moov.MovieExtend.Tracks, t.extends())
	}

	ftyp := mp4io.NewFileType("dash", 0, "mp41", "isom", "iso6", "iso2")
	return w.write(ftyp, moov)
}

// reserveIndex writes a free box big enough for one sidx per track when
// every stream involved can rewind.
func (w *Writer) reserveIndex() error {
	if !w.out.CanRewind() {
		logger.Debug(w, "output cannot rewind, sidx skipped")
		return nil
	}
	size := 0
	for _, t := range w.tracks {
		if !t.source.CanRewind() {
			logger.Debug(w, "source cannot rewind, sidx skipped")
			return nil
		}
	}
	for _, t := range w.tracks {
		count, err := t.source.FragmentsCount()
		if err != nil {
			return err
		}
		if count > mp4io.MaxSegmentReferences {
			logger.Warningf(w, "track %d has %d fragments, sidx skipped", t.id, count)
			return nil
		}
		t.reserved = count
		size += mp4io.SegmentIndexLen(count)
	}
	w.sidxPos, w.sidxSize = w.out.Position(), size
	return w.write(&mp4io.FreeType{Size: size})
}

type part struct {
	t     *trackState
	chunk *dash.Chunk
}

// writeFragment writes one moof and mdat holding the next chunk of every
// unfinished track. It reports false once every source is exhausted.
func (w *Writer) writeFragment() (bool, error) {
	var parts []part
	active := false
	for _, t := range w.tracks {
		if t.finished {
			continue
		}
		c, err := t.source.NextChunk()
		if err != nil {
			return false, err
		}
		if c == nil {
			t.finished = true
			continue
		}
		active = true
		if c.Len() == 0 || c.Size == 0 {
			continue
		}
		parts = append(parts, part{t: t, chunk: c})
	}
	if !active {
		return false, nil
	}
	if len(parts) == 0 {
		return true, nil
	}

	w.seq++
	moofOffset := uint64(w.out.Position())
	moof := &mp4io.MovieFrag{Header: &mp4io.MovieFragHeader{Seqnum: w.seq}}
	var payload int64
	for _, p := range parts {
		moof.Tracks = append(moof.Tracks, p.t.traf(p.chunk, moofOffset))
		payload += p.chunk.Size
	}
	wide := uint64(payload)+mp4io.HeaderSize > math.MaxUint32
	mdat := mp4io.MediaDataHeader(uint64(payload), wide)

	offset := int64(moof.Len() + len(mdat))
	for i, p := range parts {
		if offset > math.MaxInt32 {
			return false, &utils.InvalidOffsetError{What: "trun data", Offset: offset}
		}
		moof.Tracks[i].Run.DataOffset = int32(offset)
		offset += p.chunk.Size
	}

	if err := w.write(moof); err != nil {
		return false, err
	}
	if _, err := w.out.Write(mdat); err != nil {
		return false, err
	}
	for _, p := range parts {
		if _, err := p.chunk.Data().WriteTo(w.out); err != nil {
			return false, err
		}
	}

	size := uint64(w.out.Position()) - moofOffset
	for i, p := range parts {
		p.t.advance(p.chunk, fragRef{moofOffset: moofOffset, size: size, trafNum: uint32(i + 1)})
	}
	return true, nil
}

func (w *Writer) writeRandomAccess() error {
	mfra := &mp4io.MovieFragRandomAccess{}
	for _, t := range w.tracks {
		mfra.Tracks = append(mfra.Tracks, t.randomAccess())
	}
	return w.write(mfra)
}

// writeIndex overwrites the reserved free box with the sidx boxes.
func (w *Writer) writeIndex() error {
	if w.sidxPos < 0 {
		return nil
	}
	for _, t := range w.tracks {
		if len(t.frags) != t.reserved {
			logger.Warningf(w, "track %d: %d fragments written, %d reserved, sidx skipped", t.id, len(t.frags), t.reserved)
			return nil
		}
	}

	end := w.out.Position()
	pos := uint64(w.sidxPos)
	var atoms []mp4io.Atom
	for _, t := range w.tracks {
		sidx := t.segmentIndex(pos)
		pos += uint64(sidx.Len())
		atoms = append(atoms, sidx)
	}
	if int(pos-uint64(w.sidxPos)) != w.sidxSize {
		return &utils.ReservedOverflowError{Region: "sidx", Reserved: int64(w.sidxSize), Written: int64(pos) - w.sidxPos}
	}

	if err := seekTo(w.out, w.sidxPos); err != nil {
		return err
	}
	if err := w.write(atoms...); err != nil {
		return err
	}
	return seekTo(w.out, end)
}

func seekTo(out remux.Stream, pos int64) error {
	if out.CanSeek() {
		return out.SeekTo(pos)
	}
	if err := out.Rewind(); err != nil {
		return err
	}
	return out.Skip(pos)
}
