// Package dash reads fragmented (DASH) mp4 streams one track at a time.
package dash

import (
	"github.com/ugparu/remux"
	"github.com/ugparu/remux/format/cursor"
	"github.com/ugparu/remux/format/mp4/mp4io"
	"github.com/ugparu/remux/utils"
	"github.com/ugparu/remux/utils/logger"
)

type state uint8

const (
	unparsed state = iota
	parsed
	selected
)

// fragment is a moof waiting for its mdat.
type fragment struct {
	offset int64
	seq    uint32
	traf   *mp4io.TrackFrag
}

// scan is the resumable part of the reader position.
type scan struct {
	pending *boxHeader
	moof    *fragment
	boxEnd  int64
	done    bool
}

// Reader demuxes the moof/mdat pairs of a single selected track.
type Reader struct {
	c      *cursor.Cursor
	state  state
	brands *mp4io.FileType
	movie  *mp4io.Movie
	tracks []*Track
	track  *Track

	firstMoof int64
	scan      scan
}

func NewReader(src remux.Stream) *Reader {
	return &Reader{c: cursor.New(src), firstMoof: -1}
}

func (r *Reader) String() string {
	return "DASH_READER"
}

// Parse reads the file type and movie boxes up to the first fragment.
func (r *Reader) Parse() error {
	if r.state != unparsed {
		return &utils.AlreadyParsedError{}
	}
	h, err := readHeader(r.c)
	if err != nil {
		return err
	}
	if h.tag != mp4io.FTYP {
		return &utils.UnsupportedFormatError{Format: "mp4", Reason: "stream does not start with ftyp"}
	}
	if r.brands, err = decodeBox[mp4io.FileType](r.c, h); err != nil {
		return err
	}
	if !r.brands.HasBrand(mp4io.BrandDash) && r.brands.MajorBrand != uint32(mp4io.BrandISO5) {
		return &utils.UnsupportedFormatError{
			Format: "mp4",
			Reason: "brand " + mp4io.Tag(r.brands.MajorBrand).String() + " is not dash",
		}
	}

loop:
	for {
		more, err := r.c.More()
		if err != nil {
			return err
		}
		if !more {
			break
		}
		if h, err = readHeader(r.c); err != nil {
			return err
		}
		switch h.tag {
		case mp4io.MOOV:
			if r.movie, err = decodeBox[mp4io.Movie](r.c, h); err != nil {
				return err
			}
		case mp4io.MOOF:
			r.firstMoof = h.offset
			r.scan.pending = &h
			break loop
		case mp4io.MDAT:
			return &utils.UnexpectedBoxError{Box: h.tag.String(), Offset: h.offset}
		default:
			if h.end == toEnd {
				break loop
			}
			if err = skipTo(r.c, h.end); err != nil {
				return err
			}
		}
	}
	if r.movie == nil {
		return &utils.MissingBoxError{Box: mp4io.MOOV.String()}
	}
	if r.firstMoof < 0 {
		r.scan.done = true
	}
	if err = r.buildTracks(); err != nil {
		return err
	}
	r.state = parsed
	return nil
}

func (r *Reader) buildTracks() error {
	var timescale uint32
	if r.movie.Header != nil {
		timescale = uint32(r.movie.Header.TimeScale)
	}
	for _, trak := range r.movie.Tracks {
		if trak.Header == nil {
			return &utils.MissingBoxError{Box: mp4io.TKHD.String()}
		}
		if trak.Media == nil || trak.Media.Header == nil {
			return &utils.MissingBoxError{Box: mp4io.MDHD.String()}
		}
		t := &Track{kind: Classify(trak), MovieTimeScale: timescale, Trak: trak}
		if mvex := r.movie.MovieExtend; mvex != nil {
			for _, trex := range mvex.Tracks {
				if trex.TrackId == t.ID() {
					t.Extends = trex
					break
				}
			}
		}
		logger.Debugf(r, "track %d: %s %s, timescale %d", t.ID(), t.Kind(), t.Codec(), t.TimeScale())
		r.tracks = append(r.tracks, t)
	}
	return nil
}

// Brands returns the parsed ftyp box.
func (r *Reader) Brands() *mp4io.FileType {
	return r.brands
}

// Movie returns the parsed moov box.
func (r *Reader) Movie() *mp4io.Movie {
	return r.movie
}

// Tracks returns every track of the movie.
func (r *Reader) Tracks() ([]*Track, error) {
	if r.state == unparsed {
		return nil, &utils.NotParsedError{}
	}
	return r.tracks, nil
}

// SelectTrack chooses the track NextChunk returns fragments for.
func (r *Reader) SelectTrack(index int) (*Track, error) {
	if r.state == unparsed {
		return nil, &utils.NotParsedError{}
	}
	if index < 0 || index >= len(r.tracks) {
		return nil, &utils.TrackIndexError{Index: index, Count: len(r.tracks)}
	}
	r.track = r.tracks[index]
	r.state = selected
	return r.track, nil
}

// Selected returns the selected track, nil before SelectTrack.
func (r *Reader) Selected() *Track {
	return r.track
}

// CanRewind reports whether Rewind and FragmentsCount can work.
func (r *Reader) CanRewind() bool {
	return r.c.CanRewind()
}

// NextChunk returns the next fragment of the selected track with its
// payload, or nil at the end of the stream. The payload of the previous
// chunk is skipped if it was not consumed.
func (r *Reader) NextChunk() (*Chunk, error) {
	return r.next(true)
}

// NextChunkInfo is NextChunk without payload access.
func (r *Reader) NextChunkInfo() (*Chunk, error) {
	return r.next(false)
}

func (r *Reader) next(withData bool) (*Chunk, error) {
	if r.state == unparsed {
		return nil, &utils.NotParsedError{}
	}
	if r.state != selected {
		return nil, &utils.NoTrackSelectedError{}
	}
	for !r.scan.done {
		if r.scan.boxEnd > 0 {
			if r.scan.boxEnd == toEnd {
				r.scan.done = true
				break
			}
			if err := skipTo(r.c, r.scan.boxEnd); err != nil {
				return nil, err
			}
			r.scan.boxEnd = 0
		}

		h, err := r.header()
		if err != nil {
			return nil, err
		}
		if h == nil {
			r.scan.done = true
			break
		}
		r.scan.boxEnd = h.end

		switch h.tag {
		case mp4io.MOOF:
			if err = r.readFragment(*h); err != nil {
				return nil, err
			}
			r.scan.boxEnd = 0
		case mp4io.MDAT:
			frag := r.scan.moof
			r.scan.moof = nil
			if frag == nil {
				return nil, &utils.UnexpectedBoxError{Box: h.tag.String(), Offset: h.offset}
			}
			if frag.traf == nil {
				continue
			}
			return r.chunk(frag, *h, withData)
		}
	}
	return nil, nil
}

func (r *Reader) header() (*boxHeader, error) {
	if h := r.scan.pending; h != nil {
		r.scan.pending = nil
		return h, nil
	}
	more, err := r.c.More()
	if err != nil || !more {
		return nil, err
	}
	h, err := readHeader(r.c)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *Reader) readFragment(h boxHeader) error {
	moof, err := decodeBox[mp4io.MovieFrag](r.c, h)
	if err != nil {
		return err
	}
	frag := &fragment{offset: h.offset}
	if moof.Header != nil {
		frag.seq = moof.Header.Seqnum
	}
	for _, traf := range moof.Tracks {
		if traf.Header != nil && traf.Header.TrackID == r.track.ID() {
			frag.traf = traf
			break
		}
	}
	r.scan.moof = frag
	return nil
}

func (r *Reader) chunk(frag *fragment, h boxHeader, withData bool) (*Chunk, error) {
	c := newChunk(frag.seq, frag.traf, r.track.Extends)
	payload := h.offset + h.hdr

	start := payload
	if c.Run != nil && c.Run.Flags&mp4io.TRUNDataOffset != 0 {
		base := frag.offset
		if c.Header.Flags&mp4io.TFHDBaseDataOffset != 0 {
			base = int64(c.Header.BaseDataOffset)
		}
		start = base + int64(c.Run.DataOffset)
	}
	skip := start - payload
	if skip < 0 {
		return nil, &utils.InvalidOffsetError{What: "trun data", Offset: skip}
	}
	if c.Size == 0 && h.end != toEnd {
		c.Size = h.end - start
	}
	if h.end != toEnd && start+c.Size > h.end {
		return nil, &utils.InvalidOffsetError{What: "trun data end", Offset: start + c.Size}
	}
	if err := r.c.Skip(skip); err != nil {
		return nil, err
	}
	if withData {
		c.data = r.c.View(c.Size)
	}
	return c, nil
}

// Rewind moves back to the first fragment.
func (r *Reader) Rewind() error {
	if r.state == unparsed {
		return &utils.NotParsedError{}
	}
	if err := r.c.Rewind(); err != nil {
		return err
	}
	r.scan = scan{}
	if r.firstMoof < 0 {
		r.scan.done = true
		return nil
	}
	return r.c.Skip(r.firstMoof)
}

// FragmentsCount counts the fragments carrying the selected track and
// restores the current position afterwards.
func (r *Reader) FragmentsCount() (int, error) {
	if r.state != selected {
		return 0, &utils.NoTrackSelectedError{}
	}
	if !r.c.CanRewind() {
		return 0, &utils.NotSeekableError{}
	}
	saved, pos := r.scan, r.c.Position()
	if err := r.Rewind(); err != nil {
		return 0, err
	}
	count := 0
	for {
		c, err := r.next(false)
		if err != nil {
			return 0, err
		}
		if c == nil {
			break
		}
		count++
	}
	if err := r.c.Rewind(); err != nil {
		return 0, err
	}
	if err := r.c.Skip(pos); err != nil {
		return 0, err
	}
	r.scan = saved
	return count, nil
}

func (r *Reader) Close() error {
	return r.c.Close()
}
