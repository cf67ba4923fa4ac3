package ogg

import (
	"bytes"
	"testing"

	"github.com/at-wat/ebml-go"
	"github.com/stretchr/testify/require"

	"github.com/ugparu/remux/format/webm"
	"github.com/ugparu/remux/utils"
	"github.com/ugparu/remux/utils/bits/pio"
	"github.com/ugparu/remux/utils/stream"
)

type headerFixture struct {
	EBMLVersion            uint64 `ebml:"EBMLVersion"`
	EBMLReadVersion        uint64 `ebml:"EBMLReadVersion"`
	EBMLDocType            string `ebml:"EBMLDocType"`
	EBMLDocTypeVersion     uint64 `ebml:"EBMLDocTypeVersion"`
	EBMLDocTypeReadVersion uint64 `ebml:"EBMLDocTypeReadVersion"`
}

type audioFixture struct {
	SamplingFrequency float64 `ebml:"SamplingFrequency"`
	Channels          uint64  `ebml:"Channels"`
}

type trackFixture struct {
	TrackNumber  uint64       `ebml:"TrackNumber"`
	TrackUID     uint64       `ebml:"TrackUID"`
	TrackType    uint64       `ebml:"TrackType"`
	CodecID      string       `ebml:"CodecID"`
	CodecPrivate []byte       `ebml:"CodecPrivate,omitempty"`
	CodecDelay   uint64       `ebml:"CodecDelay,omitempty"`
	Audio        audioFixture `ebml:"Audio"`
}

type clusterFixture struct {
	Timecode    uint64       `ebml:"Timecode"`
	SimpleBlock []ebml.Block `ebml:"SimpleBlock"`
}

type segmentFixture struct {
	Info struct {
		TimecodeScale uint64 `ebml:"TimecodeScale"`
	} `ebml:"Info"`
	Tracks struct {
		TrackEntry []trackFixture `ebml:"TrackEntry"`
	} `ebml:"Tracks"`
	Cluster []clusterFixture `ebml:"Cluster"`
}

var opusHead = []byte("OpusHead\x01\x02\x38\x01\x80\xbb\x00\x00\x00\x00\x00")

// webmSource returns a parsed reader over one track whose blocks hold
// payloads, spaced step milliseconds apart, perCluster to a cluster.
func webmSource(t *testing.T, track trackFixture, step int, perCluster int, payloads [][]byte) *webm.Reader {
	t.Helper()
	var seg segmentFixture
	seg.Info.TimecodeScale = 1000000
	seg.Tracks.TrackEntry = []trackFixture{track}
	for i, p := range payloads {
		if i%perCluster == 0 {
			seg.Cluster = append(seg.Cluster, clusterFixture{Timecode: uint64(i * step)})
		}
		cl := &seg.Cluster[len(seg.Cluster)-1]
		cl.SimpleBlock = append(cl.SimpleBlock, ebml.Block{
			TrackNumber: track.TrackNumber,
			Timecode:    int16(i%perCluster*step),
			Keyframe:    true,
			Data:        [][]byte{p},
		})
	}
	var buf bytes.Buffer
	require.NoError(t, ebml.Marshal(&struct {
		Header  headerFixture  `ebml:"EBML"`
		Segment segmentFixture `ebml:"Segment"`
	}{headerFixture{1, 1, "webm", 4, 2}, seg}, &buf))

	r := webm.NewReader(stream.NewMemory(buf.Bytes()))
	t.Cleanup(func() { r.Close() })
	require.NoError(t, r.Parse())
	return r
}

func opusTrack() trackFixture {
	return trackFixture{
		TrackNumber:  1,
		TrackUID:     1,
		TrackType:    webm.TrackTypeAudio,
		CodecID:      "A_OPUS",
		CodecPrivate: opusHead,
		CodecDelay:   6500000,
		Audio:        audioFixture{SamplingFrequency: 48000, Channels: 2},
	}
}

type oggPage struct {
	flag     byte
	granule  int64
	serial   uint32
	sequence uint32
	table    []byte
	data     []byte
}

// readPages splits b into pages and checks every checksum.
func readPages(t *testing.T, b []byte) []oggPage {
	t.Helper()
	var pages []oggPage
	for len(b) > 0 {
		require.GreaterOrEqual(t, len(b), headerSize)
		require.Equal(t, "OggS", string(b[:4]))
		require.Equal(t, byte(0), b[4])
		n := headerSize + int(b[26])
		table := b[headerSize:n]
		size := 0
		for _, v := range table {
			size += int(v)
		}
		raw := append([]byte(nil), b[:n+size]...)
		stored := pio.U32LE(raw[checksumOffset:])
		copy(raw[checksumOffset:], []byte{0, 0, 0, 0})
		require.Equal(t, stored, Checksum(0, raw), "page %d", len(pages))

		pages = append(pages, oggPage{
			flag:     b[5],
			granule:  int64(pio.U64LE(b[6:])),
			serial:   pio.U32LE(b[14:]),
			sequence: pio.U32LE(b[18:]),
			table:    table,
			data:     b[n : n+size],
		})
		b = b[n+size:]
	}
	return pages
}

// packets reassembles the packets laced in pages.
func packets(pages []oggPage) [][]byte {
	var out [][]byte
	var cur []byte
	for _, p := range pages {
		data := p.data
		for _, v := range p.table {
			cur = append(cur, data[:v]...)
			data = data[v:]
			if v < 255 {
				out = append(out, cur)
				cur = nil
			}
		}
	}
	return out
}

func build(t *testing.T, r *webm.Reader) []oggPage {
	t.Helper()
	w := NewWriter(r)
	w.Serial = 0x1234
	require.NoError(t, w.SelectTrack(0))
	out := stream.NewMemoryWriter()
	require.NoError(t, w.Build(out))
	return readPages(t, out.Bytes())
}

func TestChecksum(t *testing.T) {
	t.Parallel()

	require.Equal(t, uint32(0x89A1897F), Checksum(0, []byte("123456789")))
	require.Equal(t, Checksum(0, []byte("123456789")), Checksum(Checksum(0, []byte("1234")), []byte("56789")))
}

func TestLacing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		size int
		want []byte
	}{
		{0, []byte{0}},
		{1, []byte{1}},
		{254, []byte{254}},
		{255, []byte{255, 0}},
		{256, []byte{255, 1}},
		{510, []byte{255, 255, 0}},
		{600, []byte{255, 255, 90}},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, lacing(tt.size), "size %d", tt.size)
		require.Len(t, tt.want, tt.size/255+1)
	}

	var p page
	_, err := p.reserve(MaxPacketSize)
	require.NoError(t, err)
	require.Len(t, p.table, maxSegments)
	require.False(t, p.fits(0))

	_, err = p.reserve(MaxPacketSize + 1)
	var large *utils.PacketTooLargeError
	require.ErrorAs(t, err, &large)
}

func TestOpus(t *testing.T) {
	t.Parallel()

	payloads := make([][]byte, 100)
	for i := range payloads {
		payloads[i] = make([]byte, 100)
		payloads[i][0] = 0xF8 // CELT FB 20 ms
		payloads[i][1] = byte(i)
	}
	pages := build(t, webmSource(t, opusTrack(), 20, 50, payloads))

	require.Len(t, pages, 4)
	var flags []byte
	var granules []int64
	for i, p := range pages {
		require.Equal(t, uint32(0x1234), p.serial)
		require.Equal(t, uint32(i), p.sequence)
		flags = append(flags, p.flag)
		granules = append(granules, p.granule)
	}
	require.Equal(t, []byte{FlagFirst, 0, 0, FlagLast}, flags)
	// 6.5 ms of codec delay, 48 samples per millisecond
	require.Equal(t, []int64{0, 0, 48312, 96312}, granules)

	got := packets(pages)
	require.Len(t, got, 102)
	require.Equal(t, opusHead, got[0])
	require.Equal(t, []byte("OpusTags\x07\x00\x00\x00NewPipe\x00\x00\x00\x00"), got[1])
	require.Equal(t, payloads, got[2:])
	require.Len(t, pages[2].table, 50)
}

func TestVorbis(t *testing.T) {
	t.Parallel()

	ident := append([]byte("\x01vorbis"), make([]byte, 23)...)
	comment := append([]byte("\x03vorbis"), make([]byte, 13)...)
	setup := append([]byte("\x05vorbis"), make([]byte, 50)...)
	private := append([]byte{2, byte(len(ident)), byte(len(comment))}, ident...)
	private = append(private, comment...)
	private = append(private, setup...)

	payloads := make([][]byte, 20)
	for i := range payloads {
		size := 5000
		if i == 3 {
			size = 510
		}
		payloads[i] = bytes.Repeat([]byte{byte(i)}, size)
	}
	track := trackFixture{
		TrackNumber:  1,
		TrackUID:     1,
		TrackType:    webm.TrackTypeAudio,
		CodecID:      "A_VORBIS",
		CodecPrivate: private,
		Audio:        audioFixture{SamplingFrequency: 48000, Channels: 1},
	}
	pages := build(t, webmSource(t, track, 10, 8, payloads))

	require.Len(t, pages, 4)
	require.Equal(t, byte(FlagFirst), pages[0].flag)
	require.Equal(t, byte(FlagLast), pages[3].flag)
	// a full segment table flushes page 2 before block 13
	require.Equal(t, int64(6240), pages[2].granule)
	require.Equal(t, int64(9600), pages[3].granule)
	require.Len(t, pages[2].table, 243)
	require.Equal(t, []byte{255, 255, 0}, pages[2].table[60:63])

	got := packets(pages)
	require.Len(t, got, 23)
	require.Equal(t, ident, got[0])
	require.Equal(t, []byte("\x03vorbis\x07\x00\x00\x00NewPipe\x00\x00\x00\x00\x01"), got[1])
	require.Equal(t, setup, got[2])
	require.Equal(t, payloads, got[3:])
}

func TestPacketTooLarge(t *testing.T) {
	t.Parallel()

	w := NewWriter(webmSource(t, opusTrack(), 20, 10, [][]byte{make([]byte, MaxPacketSize+1)}))
	require.NoError(t, w.SelectTrack(0))
	err := w.Build(stream.NewMemoryWriter())
	var large *utils.PacketTooLargeError
	require.ErrorAs(t, err, &large)
	require.Equal(t, MaxPacketSize+1, large.Size)
}

func TestWriterErrors(t *testing.T) {
	t.Parallel()

	payloads := [][]byte{{0xF8, 0x00}}

	t.Run("no track", func(t *testing.T) {
		t.Parallel()
		w := NewWriter(webmSource(t, opusTrack(), 20, 10, payloads))
		var none *utils.NoTrackSelectedError
		require.ErrorAs(t, w.Build(stream.NewMemoryWriter()), &none)
	})

	t.Run("built twice", func(t *testing.T) {
		t.Parallel()
		w := NewWriter(webmSource(t, opusTrack(), 20, 10, payloads))
		require.NoError(t, w.SelectTrack(0))
		require.NoError(t, w.Build(stream.NewMemoryWriter()))
		var done *utils.AlreadyDoneError
		require.ErrorAs(t, w.Build(stream.NewMemoryWriter()), &done)
	})

	t.Run("selected twice", func(t *testing.T) {
		t.Parallel()
		w := NewWriter(webmSource(t, opusTrack(), 20, 10, payloads))
		require.NoError(t, w.SelectTrack(0))
		var unsupported *utils.UnsupportedTrackError
		require.ErrorAs(t, w.SelectTrack(0), &unsupported)
	})

	t.Run("subtitle track", func(t *testing.T) {
		t.Parallel()
		track := opusTrack()
		track.TrackType = 0x11
		track.CodecID = "S_TEXT/UTF8"
		w := NewWriter(webmSource(t, track, 20, 10, payloads))
		var unsupported *utils.UnsupportedTrackError
		require.ErrorAs(t, w.SelectTrack(0), &unsupported)
	})

	t.Run("not writable", func(t *testing.T) {
		t.Parallel()
		w := NewWriter(webmSource(t, opusTrack(), 20, 10, payloads))
		require.NoError(t, w.SelectTrack(0))
		var writable *utils.NotWritableError
		require.ErrorAs(t, w.Build(stream.NewMemory(nil)), &writable)
	})
}
