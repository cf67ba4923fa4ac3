// Package ogg repackages one WebM audio track into an Ogg bitstream.
package ogg

import (
	"bufio"
	"time"

	"github.com/ugparu/remux"
	"github.com/ugparu/remux/codec/opus"
	"github.com/ugparu/remux/format/webm"
	"github.com/ugparu/remux/utils"
	"github.com/ugparu/remux/utils/bits/pio"
	"github.com/ugparu/remux/utils/buffer"
	"github.com/ugparu/remux/utils/logger"
)

// Vendor is written in the OpusTags and Vorbis comment headers.
const Vendor = "NewPipe"

const second = int64(time.Second)

// Writer copies the selected track of a parsed WebM reader into Ogg pages.
// Data pages are flushed when the segment table is full or when a block
// crosses the next one-second boundary.
type Writer struct {
	r *webm.Reader
	// Serial is the bitstream serial number.
	Serial uint32

	track *webm.Track
	done  bool

	out      *bufio.Writer
	sequence uint32
	flag     byte
	page     page
	boundary int64
	delay    int64
	// a granule count is ns * num / den, rounded up
	num, den int64

	segment *webm.Segment
	cluster *webm.Cluster
	pending *webm.Block
	ended   bool
	// last and near are the time of the last block and the spacing to the
	// one before it, in nanoseconds.
	last, near int64
	lastPacket []byte
}

func NewWriter(r *webm.Reader) *Writer {
	return &Writer{r: r, Serial: uint32(time.Now().UnixMilli())}
}

func (w *Writer) String() string {
	return "OGG_WRITER"
}

// Tracks returns the tracks of the source.
func (w *Writer) Tracks() ([]*webm.Track, error) {
	return w.r.Tracks()
}

// SelectTrack picks the source track by index. Only audio and video tracks
// can be selected, once.
func (w *Writer) SelectTrack(index int) error {
	if w.done {
		return &utils.AlreadyDoneError{}
	}
	if w.track != nil {
		return &utils.UnsupportedTrackError{Reason: "track already selected"}
	}
	tracks, err := w.r.Tracks()
	if err != nil {
		return err
	}
	if index >= 0 && index < len(tracks) {
		if k := tracks[index].Kind(); k != remux.Audio && k != remux.Video {
			return &utils.UnsupportedTrackError{Reason: "track " + tracks[index].CodecID + " is neither audio nor video"}
		}
	}
	t, err := w.r.SelectTrack(index)
	if err != nil {
		return err
	}
	w.track = t
	return nil
}

// Build writes the whole bitstream to out. It can run once.
func (w *Writer) Build(out remux.Stream) error {
	if w.done {
		return &utils.AlreadyDoneError{}
	}
	w.done = true
	if !out.CanWrite() {
		return &utils.NotWritableError{}
	}
	if w.track == nil {
		return &utils.NoTrackSelectedError{}
	}
	headers, err := w.setup()
	if err != nil {
		return err
	}
	w.out = bufio.NewWriterSize(out, pio.RecommendBufioSize)
	block := buffer.GetBlock()
	defer block.Release()
	w.page.data = block.Data()[:0]
	w.flag = FlagFirst

	// the first header packet goes alone on the first page
	for i, packet := range headers {
		if !w.page.empty() && !w.page.fits(len(packet)) {
			if err = w.flush(0); err != nil {
				return err
			}
		}
		dst, err := w.page.reserve(len(packet))
		if err != nil {
			return err
		}
		copy(dst, packet)
		if i == 0 || i == len(headers)-1 {
			if err = w.flush(0); err != nil {
				return err
			}
		}
	}
	w.boundary = second

	if err = w.data(); err != nil {
		return err
	}
	logger.Debugf(w, "%d pages, serial %08x", w.sequence, w.Serial)
	return w.out.Flush()
}

// setup returns the header packets and the granule rate of the track.
func (w *Writer) setup() ([][]byte, error) {
	t := w.track
	var headers [][]byte
	switch {
	case t.CodecID == "A_OPUS":
		w.num, w.den = opus.GranuleRate, second
		if t.CodecDelay >= 0 {
			w.delay = t.CodecDelay
		} else if head, err := opus.ParseHead(t.CodecPrivate); err == nil {
			w.delay = int64(head.PreSkip) * second / opus.GranuleRate
		}
		if len(t.CodecPrivate) > 0 {
			headers = append(headers, t.CodecPrivate)
		}
		headers = append(headers, opusTags())
		return headers, nil
	case t.Kind() == remux.Audio:
		rate, _ := t.AudioFormat()
		w.num, w.den = int64(rate+0.5), second
	case t.DefaultDuration > 0:
		w.num, w.den = 1, t.DefaultDuration
	default:
		return nil, &utils.UnsupportedTrackError{Reason: "video track without a default duration"}
	}
	if t.CodecDelay > 0 {
		w.delay = t.CodecDelay
	}
	if t.CodecID == "A_VORBIS" {
		packets, err := xiphSplit(t.CodecPrivate)
		if err != nil {
			return nil, err
		}
		// identification, comment, setup
		return [][]byte{packets[0], vorbisComment(), packets[2]}, nil
	}
	if len(t.CodecPrivate) > 0 {
		headers = append(headers, t.CodecPrivate)
	}
	return headers, nil
}

// data copies every block, flushing a page whenever the next block does not
// belong to it. The last page carries the end of stream flag.
func (w *Writer) data() error {
	for {
		b, err := w.next()
		if err != nil {
			return err
		}
		if b != nil {
			ok, err := w.add(b)
			if err != nil {
				return err
			}
			if ok {
				continue
			}
		}

		elapsed := w.delay
		if b == nil {
			w.flag |= FlagLast
			elapsed += w.last + w.lastDuration()
		} else {
			elapsed += b.Time
		}
		if err = w.flush(w.granule(elapsed)); err != nil {
			return err
		}
		if b == nil {
			return nil
		}
		w.pending = b
	}
}

// add appends b to the page, or reports that the page must be flushed first.
func (w *Writer) add(b *webm.Block) (bool, error) {
	ts := b.Time + w.delay
	if w.page.empty() {
		for ts >= w.boundary {
			w.boundary += second
		}
	}
	if ts >= w.boundary || !w.page.fits(int(b.Size)) {
		if b.Size > MaxPacketSize {
			return false, &utils.PacketTooLargeError{Size: int(b.Size)}
		}
		return false, nil
	}
	dst, err := w.page.reserve(int(b.Size))
	if err != nil {
		return false, err
	}
	if err = b.Data.ReadFull(dst); err != nil {
		return false, err
	}
	w.lastPacket = dst
	return true, nil
}

// next returns the pending block, or the next one of the source.
func (w *Writer) next() (*webm.Block, error) {
	if b := w.pending; b != nil {
		w.pending = nil
		return b, nil
	}
	for !w.ended {
		var err error
		if w.segment == nil {
			if w.segment, err = w.r.NextSegment(); err != nil {
				return nil, err
			}
			if w.segment == nil {
				w.ended = true
				break
			}
		}
		if w.cluster == nil {
			if w.cluster, err = w.segment.NextCluster(); err != nil {
				return nil, err
			}
			if w.cluster == nil {
				w.segment = nil
				continue
			}
		}
		b, err := w.cluster.NextBlock()
		if err != nil {
			return nil, err
		}
		if b == nil {
			w.cluster = nil
			continue
		}
		w.near = b.Time - w.last
		w.last = b.Time
		return b, nil
	}
	return nil, nil
}

// lastDuration is the default duration of the track, the length of the last
// Opus packet, or the spacing of the last two blocks.
func (w *Writer) lastDuration() int64 {
	if w.track.DefaultDuration > 0 {
		return w.track.DefaultDuration
	}
	if w.track.CodecID == "A_OPUS" && len(w.lastPacket) > 0 {
		if d, err := opus.PacketDuration(w.lastPacket); err == nil {
			return int64(d)
		}
	}
	return w.near
}

// granule converts nanoseconds to granules, rounding up.
func (w *Writer) granule(ns int64) int64 {
	return (ns*w.num + w.den - 1) / w.den
}

func (w *Writer) flush(granule int64) error {
	h := w.page.header(w.flag, granule, w.Serial, w.sequence)
	if _, err := w.out.Write(h); err != nil {
		return err
	}
	if _, err := w.out.Write(w.page.data); err != nil {
		return err
	}
	w.sequence++
	w.flag = 0
	w.page.reset()
	w.lastPacket = nil
	w.boundary += second
	return nil
}

func opusTags() []byte {
	b := []byte("OpusTags")
	b = appendString(b, Vendor)
	return pio.AppendU32LE(b, 0)
}

// vorbisComment ends with the framing bit.
func vorbisComment() []byte {
	b := []byte("\x03vorbis")
	b = appendString(b, Vendor)
	b = pio.AppendU32LE(b, 0)
	return append(b, 1)
}

func appendString(b []byte, s string) []byte {
	b = pio.AppendU32LE(b, uint32(len(s)))
	return append(b, s...)
}

// xiphSplit splits the Xiph laced CodecPrivate of a Vorbis track into its
// three header packets.
func xiphSplit(b []byte) ([][]byte, error) {
	bad := &utils.UnsupportedFormatError{Format: "vorbis", Reason: "malformed CodecPrivate"}
	if len(b) < 1 || b[0] != 2 {
		return nil, bad
	}
	b = b[1:]
	var sizes [2]int
	for i := range sizes {
		for {
			if len(b) == 0 {
				return nil, bad
			}
			v := b[0]
			b = b[1:]
			sizes[i] += int(v)
			if v < 255 {
				break
			}
		}
	}
	if sizes[0]+sizes[1] > len(b) {
		return nil, bad
	}
	return [][]byte{b[:sizes[0]], b[sizes[0] : sizes[0]+sizes[1]], b[sizes[0]+sizes[1]:]}, nil
}
