package webm

import (
	"github.com/ugparu/remux"
	"github.com/ugparu/remux/format/cursor"
	"github.com/ugparu/remux/utils"
	"github.com/ugparu/remux/utils/logger"
)

// Versions this reader understands.
const (
	maxReadVersion        = 1
	maxDocTypeReadVersion = 2
	defaultTimecodeScale  = 1000000
)

// Info is the segment information.
type Info struct {
	// TimecodeScale is the length of one tick in nanoseconds.
	TimecodeScale uint64
	// Duration is in ticks, zero when absent.
	Duration float64
}

// Reader demuxes the blocks of a single selected track, segment by segment.
type Reader struct {
	c *cursor.Cursor
	// Lacing is the FlagLacing value a track must carry to be selectable.
	// Laced blocks are not split, so the default keeps only unlaced tracks.
	Lacing uint64

	parsed  bool
	tracks  []*Track
	track   *Track
	segment *Segment
	served  bool
	done    bool
}

func NewReader(src remux.Stream) *Reader {
	return &Reader{c: cursor.New(src)}
}

func (r *Reader) String() string {
	return "WEBM_READER"
}

// Parse checks the EBML header and reads the metadata of the first segment.
func (r *Reader) Parse() error {
	if r.parsed {
		return &utils.AlreadyParsedError{}
	}
	e, err := readElement(r.c)
	if err != nil {
		return err
	}
	if e.id != IDEBML {
		return &utils.UnsupportedFormatError{Format: "webm", Reason: "stream does not start with an EBML header"}
	}
	if err = readHeader(r.c, e); err != nil {
		return err
	}

	seg, err := until(r.c, unknownSize, IDSegment)
	if err != nil {
		return err
	}
	if seg == nil {
		return &utils.MissingBoxError{Box: IDSegment.String()}
	}
	if r.segment, err = r.readSegment(*seg, nil, true); err != nil {
		return err
	}
	r.tracks = r.segment.Tracks
	r.parsed = true
	for _, t := range r.tracks {
		logger.Debugf(r, "track %d: %s %s", t.Number, t.Kind(), t.CodecID)
	}
	return nil
}

func readHeader(c *cursor.Cursor, header element) error {
	var (
		readVersion    uint64 = 1
		docType               = "matroska"
		docTypeVersion uint64 = 1
	)
	for {
		e, err := until(c, header.end, IDEBMLReadVersion, IDEBMLDocType, IDEBMLDocTypeReadVersion)
		if err != nil {
			return err
		}
		if e == nil {
			break
		}
		switch e.id {
		case IDEBMLReadVersion:
			readVersion, err = readUint(c, *e)
		case IDEBMLDocType:
			docType, err = readString(c, *e)
		case IDEBMLDocTypeReadVersion:
			docTypeVersion, err = readUint(c, *e)
		}
		if err != nil {
			return err
		}
		if err = skip(c, *e); err != nil {
			return err
		}
	}
	switch {
	case docType != "webm":
		return &utils.UnsupportedFormatError{Format: "webm", Reason: "doc type " + docType}
	case readVersion > maxReadVersion:
		return &utils.UnsupportedFormatError{Format: "webm", Reason: "EBML read version above 1"}
	case docTypeVersion > maxDocTypeReadVersion:
		return &utils.UnsupportedFormatError{Format: "webm", Reason: "doc type read version above 2"}
	}
	return nil
}

// Tracks returns the selectable tracks of the first segment.
func (r *Reader) Tracks() ([]*Track, error) {
	if !r.parsed {
		return nil, &utils.NotParsedError{}
	}
	return r.tracks, nil
}

// SelectTrack picks the track whose blocks NextBlock returns.
func (r *Reader) SelectTrack(index int) (*Track, error) {
	if !r.parsed {
		return nil, &utils.NotParsedError{}
	}
	if index < 0 || index >= len(r.tracks) {
		return nil, &utils.TrackIndexError{Index: index, Count: len(r.tracks)}
	}
	r.track = r.tracks[index]
	return r.track, nil
}

// Selected returns the selected track, nil before SelectTrack.
func (r *Reader) Selected() *Track {
	return r.track
}

// NextSegment returns the first segment, then every following one. Later
// segments keep the track numbering of the first. It returns nil once the
// stream is exhausted.
func (r *Reader) NextSegment() (*Segment, error) {
	if !r.parsed {
		return nil, &utils.NotParsedError{}
	}
	if r.done {
		return nil, nil
	}
	if !r.served {
		r.served = true
		return r.segment, nil
	}
	if r.segment.el.end < 0 {
		r.done = true
		return nil, nil
	}
	if err := skip(r.c, r.segment.el); err != nil {
		return nil, err
	}
	e, err := until(r.c, unknownSize, IDSegment)
	if err != nil {
		return nil, err
	}
	if e == nil {
		r.done = true
		return nil, nil
	}
	if r.segment, err = r.readSegment(*e, r.segment.Info, false); err != nil {
		return nil, err
	}
	return r.segment, nil
}

// readSegment reads Info and Tracks up to the first Cluster. Without
// metadataRequired a segment may lack them and inherits prev.
func (r *Reader) readSegment(e element, prev *Info, metadataRequired bool) (*Segment, error) {
	s := &Segment{r: r, el: e, Info: prev}
	var hasInfo bool
	for {
		child, err := until(r.c, e.end, IDInfo, IDTracks, IDCluster)
		if err != nil {
			return nil, err
		}
		if child == nil {
			break
		}
		if child.id == IDCluster {
			s.cluster = child
			break
		}
		switch child.id {
		case IDInfo:
			if s.Info, err = readInfo(r.c, *child); err != nil {
				return nil, err
			}
			hasInfo = true
		case IDTracks:
			if s.Tracks, err = readTracks(r.c, *child, r.Lacing); err != nil {
				return nil, err
			}
		}
		if err = skip(r.c, *child); err != nil {
			return nil, err
		}
	}
	if metadataRequired && (!hasInfo || s.Tracks == nil) {
		return nil, &utils.MissingMetadataError{Offset: e.offset}
	}
	if s.Info == nil {
		s.Info = &Info{TimecodeScale: defaultTimecodeScale}
	}
	return s, nil
}

func readInfo(c *cursor.Cursor, parent element) (*Info, error) {
	info := &Info{TimecodeScale: defaultTimecodeScale}
	for {
		e, err := until(c, parent.end, IDTimecodeScale, IDDuration)
		if err != nil {
			return nil, err
		}
		if e == nil {
			return info, nil
		}
		switch e.id {
		case IDTimecodeScale:
			info.TimecodeScale, err = readUint(c, *e)
			if err == nil && info.TimecodeScale == 0 {
				err = &utils.UnsupportedFormatError{Format: "webm", Reason: "zero TimecodeScale"}
			}
		case IDDuration:
			info.Duration, err = readFloat(c, *e)
		}
		if err != nil {
			return nil, err
		}
		if err = skip(c, *e); err != nil {
			return nil, err
		}
	}
}

// readTracks reads every TrackEntry and drops those whose FlagLacing is not
// lacing. Tracks without FlagLacing are kept.
func readTracks(c *cursor.Cursor, parent element, lacing uint64) ([]*Track, error) {
	tracks := []*Track{}
	for {
		entry, err := until(c, parent.end, IDTrackEntry)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return tracks, nil
		}
		t := newTrack()
		drop := false
		for {
			e, err := until(c, entry.end)
			if err != nil {
				return nil, err
			}
			if e == nil {
				break
			}
			var v uint64
			switch e.id {
			case IDTrackNumber:
				t.Number, err = readUint(c, *e)
			case IDTrackType:
				t.Type, err = readUint(c, *e)
			case IDCodecID:
				t.CodecID, err = readString(c, *e)
			case IDCodecPrivate:
				t.CodecPrivate, err = readBytes(c, *e)
			case IDVideo, IDAudio:
				t.Metadata, err = readBytes(c, *e)
			case IDDefaultDuration:
				v, err = readUint(c, *e)
				t.DefaultDuration = int64(v)
			case IDFlagLacing:
				v, err = readUint(c, *e)
				drop = v != lacing
			case IDCodecDelay:
				v, err = readUint(c, *e)
				t.CodecDelay = int64(v)
			case IDSeekPreRoll:
				v, err = readUint(c, *e)
				t.SeekPreRoll = int64(v)
			}
			if err != nil {
				return nil, err
			}
			if err = skip(c, *e); err != nil {
				return nil, err
			}
		}
		if err = skip(c, *entry); err != nil {
			return nil, err
		}
		if drop {
			logger.Debugf("WEBM_READER", "track %d dropped, laced blocks are not supported", t.Number)
			continue
		}
		t.kind = kindOf(t.Type)
		tracks = append(tracks, t)
	}
}

func (r *Reader) Close() error {
	return r.c.Close()
}

// Segment walks the clusters of one Segment element.
type Segment struct {
	r    *Reader
	el   element
	Info *Info
	// Tracks is nil when the segment carries no Tracks element.
	Tracks []*Track

	cluster *element
	started bool
}

// NextCluster returns the next Cluster of the segment, nil at its end.
func (s *Segment) NextCluster() (*Cluster, error) {
	c := s.r.c
	if s.started && s.cluster != nil {
		if err := skip(c, *s.cluster); err != nil {
			return nil, err
		}
		s.cluster = nil
	}
	s.started = true
	if s.cluster == nil {
		e, err := until(c, s.el.end, IDCluster)
		if err != nil || e == nil {
			return nil, err
		}
		s.cluster = e
	}
	if s.cluster.end < 0 {
		return nil, &utils.UnsupportedFormatError{Format: "webm", Reason: "cluster of unknown size"}
	}
	cl := &Cluster{s: s, el: *s.cluster}
	tc, err := until(c, cl.el.end, IDTimecode)
	if err != nil {
		return nil, err
	}
	if tc == nil {
		return nil, &utils.MissingBoxError{Box: IDTimecode.String()}
	}
	if cl.Timecode, err = readUint(c, *tc); err != nil {
		return nil, err
	}
	return cl, nil
}

// Cluster walks the blocks of one Cluster element.
type Cluster struct {
	s  *Segment
	el element
	// Timecode is in ticks.
	Timecode uint64
	pending  *element
}

// Block is one SimpleBlock, or the Block of a BlockGroup, of the selected
// track.
type Block struct {
	Track uint64
	// Timecode is relative to the cluster, in ticks.
	Timecode int16
	Flags    uint8
	// Time is the absolute time in nanoseconds.
	Time      int64
	Size      int64
	FromGroup bool
	// Data is valid until the next call to NextBlock.
	Data *cursor.View
}

// Keyframe reports the SimpleBlock keyframe flag. Blocks of a BlockGroup
// never carry it.
func (b *Block) Keyframe() bool {
	return b.Flags&0x80 != 0
}

// NextBlock returns the next block of the selected track in the cluster,
// nil at its end.
func (cl *Cluster) NextBlock() (*Block, error) {
	r := cl.s.r
	if r.track == nil {
		return nil, &utils.NoTrackSelectedError{}
	}
	c := r.c
	if cl.pending != nil {
		if err := skip(c, *cl.pending); err != nil {
			return nil, err
		}
		cl.pending = nil
	}
	for {
		e, err := until(c, cl.el.end, IDSimpleBlock, IDBlockGroup)
		if err != nil || e == nil {
			return nil, err
		}
		cl.pending = e
		block := e
		if e.id == IDBlockGroup {
			if block, err = until(c, e.end, IDBlock); err != nil {
				return nil, err
			}
			if block == nil {
				if err = skip(c, *e); err != nil {
					return nil, err
				}
				cl.pending = nil
				continue
			}
		}
		b, err := readBlock(c, *block)
		if err != nil {
			return nil, err
		}
		if b.Track == r.track.Number {
			b.Data = c.View(b.Size)
			b.Time = (int64(b.Timecode) + int64(cl.Timecode)) * int64(cl.s.Info.TimecodeScale)
			return b, nil
		}
		if err = skip(c, *e); err != nil {
			return nil, err
		}
		cl.pending = nil
	}
}

func readBlock(c *cursor.Cursor, e element) (*Block, error) {
	track, _, err := readVint(c, false)
	if err != nil {
		return nil, err
	}
	b := &Block{Track: track, FromGroup: e.id == IDBlock}
	if b.Timecode, err = c.ReadI16(); err != nil {
		return nil, err
	}
	if b.Flags, err = c.ReadU8(); err != nil {
		return nil, err
	}
	b.Size = e.end - c.Position()
	if b.Size < 0 {
		return nil, &utils.InvalidOffsetError{What: "block payload", Offset: b.Size}
	}
	return b, nil
}
