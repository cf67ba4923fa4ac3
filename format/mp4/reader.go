package mp4

import (
	"errors"
	"io"
	"math"

	"github.com/ugparu/remux"
	"github.com/ugparu/remux/format/mp4/dash"
	"github.com/ugparu/remux/format/mp4/mp4io"
	"github.com/ugparu/remux/utils"
	"github.com/ugparu/remux/utils/bits/pio"
	"github.com/ugparu/remux/utils/logger"
)

// Reader reads the samples of a progressive mp4 through its sample tables.
type Reader struct {
	r      remux.Stream
	brands *mp4io.FileType
	movie  *mp4io.Movie
	tracks []*Track
}

// NewReader returns a reader over a seekable stream.
func NewReader(r remux.Stream) *Reader {
	return &Reader{r: r}
}

func (rd *Reader) String() string {
	return "MP4_READER"
}

// Parse reads every top level box header and decodes ftyp and moov.
func (rd *Reader) Parse() (err error) {
	if rd.movie != nil {
		return &utils.AlreadyParsedError{}
	}
	if !rd.r.CanSeek() {
		return &utils.NotSeekableError{}
	}
	if err = rd.r.SeekTo(0); err != nil {
		return
	}

	var moov *mp4io.Movie
	for {
		tag, body, err := rd.readHeader()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		switch tag {
		case mp4io.FTYP:
			rd.brands = &mp4io.FileType{}
			if err = rd.decode(rd.brands, tag, body); err != nil {
				return err
			}
		case mp4io.MOOV:
			moov = &mp4io.Movie{}
			if err = rd.decode(moov, tag, body); err != nil {
				return err
			}
		default:
			if body < 0 {
				break
			}
			if err = rd.r.Skip(body); err != nil {
				return err
			}
			continue
		}
		if body < 0 {
			break
		}
	}
	if moov == nil {
		return &utils.MissingBoxError{Box: mp4io.MOOV.String()}
	}

	for i, trak := range moov.Tracks {
		if trak.Header == nil {
			return &utils.MissingBoxError{Box: mp4io.TKHD.String()}
		}
		if trak.Media == nil || trak.Media.Header == nil {
			return &utils.MissingBoxError{Box: mp4io.MDHD.String()}
		}
		if trak.Media.Info == nil || trak.Media.Info.Sample == nil {
			return &utils.MissingBoxError{Box: mp4io.STBL.String()}
		}
		stbl := trak.Media.Info.Sample
		for _, box := range []struct {
			tag     mp4io.Tag
			missing bool
		}{
			{mp4io.STTS, stbl.TimeToSample == nil},
			{mp4io.STSC, stbl.SampleToChunk == nil},
			{mp4io.STSZ, stbl.SampleSize == nil},
			{mp4io.STCO, stbl.ChunkOffset == nil},
		} {
			if box.missing {
				return &utils.MissingBoxError{Box: box.tag.String()}
			}
		}
		t := &Track{
			kind:      dash.Classify(trak),
			index:     i,
			Trak:      trak,
			sample:    stbl,
			timeScale: int64(trak.Media.Header.TimeScale),
		}
		logger.Debugf(rd, "track %d: %s %s, %d samples", trak.Header.TrackId, t.Kind(), t.Codec(), t.SampleCount())
		rd.tracks = append(rd.tracks, t)
	}
	rd.movie = moov
	return nil
}

// readHeader reads one box header and returns the body size, -1 for a box
// running to the end of the stream. io.EOF marks a clean end.
func (rd *Reader) readHeader() (mp4io.Tag, int64, error) {
	b := make([]byte, mp4io.HeaderSize)
	if err := rd.readFull(b, true); err != nil {
		return 0, 0, err
	}
	size, tag := int64(pio.U32BE(b)), mp4io.Tag(pio.U32BE(b[4:]))
	switch size {
	case 0:
		return tag, -1, nil
	case 1:
		if err := rd.readFull(b, false); err != nil {
			return 0, 0, err
		}
		size = int64(pio.U64BE(b))
		if size < 2*mp4io.HeaderSize {
			return 0, 0, &utils.InvalidOffsetError{What: tag.String() + " size", Offset: size}
		}
		return tag, size - 2*mp4io.HeaderSize, nil
	}
	if size < mp4io.HeaderSize {
		return 0, 0, &utils.InvalidOffsetError{What: tag.String() + " size", Offset: size}
	}
	return tag, size - mp4io.HeaderSize, nil
}

// readFull reads len(b) bytes. Only a read that gets nothing at a box
// boundary reports io.EOF.
func (rd *Reader) readFull(b []byte, boundary bool) error {
	n, err := io.ReadFull(rd.r, b)
	switch {
	case err == nil:
		return nil
	case n == 0 && boundary && errors.Is(err, io.EOF):
		return io.EOF
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return &utils.TruncatedStreamError{Missing: int64(len(b) - n)}
	}
	return err
}

func (rd *Reader) decode(atom mp4io.Atom, tag mp4io.Tag, body int64) error {
	if body < 0 {
		body = rd.r.Available()
	}
	if body < 0 || body > math.MaxUint32-mp4io.HeaderSize {
		return &utils.UnsupportedFormatError{Format: "mp4", Reason: "box " + tag.String() + " is too large"}
	}
	b := make([]byte, mp4io.HeaderSize+body)
	pio.PutU32BE(b, uint32(len(b)))
	pio.PutU32BE(b[4:], uint32(tag))
	if err := rd.readFull(b[mp4io.HeaderSize:], false); err != nil {
		return err
	}
	_, err := atom.Unmarshal(b, 0)
	return err
}

// Brands returns the ftyp box, nil when the file has none.
func (rd *Reader) Brands() *mp4io.FileType {
	return rd.brands
}

// Movie returns the moov box.
func (rd *Reader) Movie() *mp4io.Movie {
	return rd.movie
}

// Tracks returns every track of the movie.
func (rd *Reader) Tracks() ([]*Track, error) {
	if rd.movie == nil {
		return nil, &utils.NotParsedError{}
	}
	return rd.tracks, nil
}

// NextSample returns the sample with the lowest decode time over all
// tracks, or nil once every track is exhausted.
func (rd *Reader) NextSample() (*Sample, error) {
	if rd.movie == nil {
		return nil, &utils.NotParsedError{}
	}
	var chosen *Track
	for _, t := range rd.tracks {
		if !t.isSampleValid() {
			continue
		}
		if chosen == nil || t.dts*chosen.timeScale < chosen.dts*t.timeScale {
			chosen = t
		}
	}
	if chosen == nil {
		return nil, nil
	}
	return chosen.nextSample()
}

// ReadSample reads the payload of s into buf, growing it when needed.
func (rd *Reader) ReadSample(s *Sample, buf []byte) ([]byte, error) {
	if err := rd.r.SeekTo(s.Offset); err != nil {
		return nil, err
	}
	if cap(buf) < int(s.Size) {
		buf = make([]byte, s.Size)
	}
	buf = buf[:s.Size]
	if err := rd.readFull(buf, false); err != nil {
		return nil, err
	}
	return buf, nil
}

func (rd *Reader) Close() error {
	return rd.r.Close()
}
