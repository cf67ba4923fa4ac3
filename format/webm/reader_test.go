package webm

import (
	"io"
	"testing"

	"github.com/at-wat/ebml-go"
	"github.com/stretchr/testify/require"

	"github.com/ugparu/remux"
	"github.com/ugparu/remux/format/cursor"
	"github.com/ugparu/remux/utils"
	"github.com/ugparu/remux/utils/stream"
)

func TestVint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		v uint64
		n int
	}{
		{0, 1},
		{1, 1},
		{126, 1},
		{127, 2},
		{300, 2},
		{1<<14 - 2, 2},
		{1<<14 - 1, 3},
		{1<<21 - 2, 3},
		{1<<21 - 1, 4},
		{1<<28 - 1, 5},
		{1 << 35, 6},
		{1<<42 - 1, 7},
		{1<<49 - 2, 7},
		{1<<49 - 1, 8},
		{1<<56 - 2, 8},
	}
	for _, tt := range tests {
		b := AppendVint(nil, tt.v)
		require.Len(t, b, tt.n, "value %d", tt.v)
		require.Equal(t, tt.n, VintLen(tt.v))

		c := cursor.New(stream.NewMemory(b))
		v, n, err := readVint(c, false)
		require.NoError(t, err)
		require.Equal(t, tt.v, v)
		require.Equal(t, tt.n, n)
	}
}

func TestVintInvalid(t *testing.T) {
	t.Parallel()

	c := cursor.New(stream.NewMemory([]byte{0x00, 0x81}))
	_, _, err := readVint(c, false)
	var unsupported *utils.UnsupportedFormatError
	require.ErrorAs(t, err, &unsupported)

	c = cursor.New(stream.NewMemory([]byte{0x40}))
	_, _, err = readVint(c, false)
	var truncated *utils.TruncatedStreamError
	require.ErrorAs(t, err, &truncated)
}

func TestVoidElement(t *testing.T) {
	t.Parallel()

	for _, total := range []int{2, 8, 9, 10, 65536} {
		b := voidElement(total)
		require.Len(t, b, total)
		c := cursor.New(stream.NewMemory(b))
		e, err := readElement(c)
		require.NoError(t, err)
		require.Equal(t, IDVoid, e.id)
		require.Equal(t, int64(total), e.end)
	}
	require.Nil(t, voidElement(1))
}

func parse(t *testing.T, file []byte) *Reader {
	t.Helper()
	r := NewReader(stream.NewMemory(file))
	t.Cleanup(func() { r.Close() })
	require.NoError(t, r.Parse())
	return r
}

func TestParseTracks(t *testing.T) {
	t.Parallel()

	file := webmFile(t, segmentFixture{
		Info: msInfo(),
		Tracks: tracksFixture{
			Video: []videoEntryFixture{vp9Track(1)},
			Audio: []audioEntryFixture{opusTrack(2)},
		},
		Cluster: videoClusters(1, 1, 5),
	})
	r := parse(t, file)
	tracks, err := r.Tracks()
	require.NoError(t, err)
	require.Len(t, tracks, 2)

	video := tracks[0]
	require.Equal(t, remux.Video, video.Kind())
	require.Equal(t, "V_VP9", video.Codec())
	require.Equal(t, uint64(1), video.Number)
	require.Equal(t, int64(40000000), video.DefaultDuration)
	require.Equal(t, int64(-1), video.CodecDelay)
	require.NotEmpty(t, video.Metadata)

	audio := tracks[1]
	require.Equal(t, remux.Audio, audio.Kind())
	require.Equal(t, opusHead, audio.CodecPrivate)
	require.Equal(t, int64(6500000), audio.CodecDelay)
	require.Equal(t, int64(80000000), audio.SeekPreRoll)
	require.Equal(t, int64(-1), audio.DefaultDuration)
	rate, channels := audio.AudioFormat()
	require.Equal(t, 48000.0, rate)
	require.Equal(t, uint64(2), channels)

	var parsed *utils.AlreadyParsedError
	require.ErrorAs(t, r.Parse(), &parsed)

	_, err = r.SelectTrack(2)
	var index *utils.TrackIndexError
	require.ErrorAs(t, err, &index)
}

func TestLacedTrackDropped(t *testing.T) {
	t.Parallel()

	laced := vp9Track(1)
	laced.FlagLacing = 1
	file := webmFile(t, segmentFixture{
		Info: msInfo(),
		Tracks: tracksFixture{
			Video: []videoEntryFixture{laced},
			Audio: []audioEntryFixture{opusTrack(2)},
		},
	})
	tracks, err := parse(t, file).Tracks()
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	require.Equal(t, uint64(2), tracks[0].Number)
}

func TestHeaderRejected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header func(h *ebmlHeaderFixture)
	}{
		{"matroska doc type", func(h *ebmlHeaderFixture) { h.EBMLDocType = "matroska" }},
		{"read version", func(h *ebmlHeaderFixture) { h.EBMLReadVersion = 2 }},
		{"doc type read version", func(h *ebmlHeaderFixture) { h.EBMLDocTypeReadVersion = 3 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			header := webmHeader()
			tt.header(&header)
			file := marshal(t, &struct {
				Header  ebmlHeaderFixture `ebml:"EBML"`
				Segment segmentFixture    `ebml:"Segment"`
			}{header, segmentFixture{Info: msInfo()}})

			err := NewReader(stream.NewMemory(file)).Parse()
			var unsupported *utils.UnsupportedFormatError
			require.ErrorAs(t, err, &unsupported)
		})
	}

	t.Run("not ebml", func(t *testing.T) {
		t.Parallel()
		err := NewReader(stream.NewMemory([]byte("\x00\x00\x00\x18ftypdash"))).Parse()
		var unsupported *utils.UnsupportedFormatError
		require.ErrorAs(t, err, &unsupported)
	})
}

func TestClusterBeforeMetadata(t *testing.T) {
	t.Parallel()

	type clusterFirst struct {
		Cluster []clusterFixture `ebml:"Cluster"`
		Info    infoFixture      `ebml:"Info"`
		Tracks  tracksFixture    `ebml:"Tracks"`
	}
	file := marshal(t, &struct {
		Header  ebmlHeaderFixture `ebml:"EBML"`
		Segment clusterFirst      `ebml:"Segment"`
	}{webmHeader(), clusterFirst{
		Cluster: videoClusters(1, 1, 2),
		Info:    msInfo(),
		Tracks:  tracksFixture{Video: []videoEntryFixture{vp9Track(1)}},
	}})

	err := NewReader(stream.NewMemory(file)).Parse()
	var missing *utils.MissingMetadataError
	require.ErrorAs(t, err, &missing)
}

func block(track uint64, timecode int16, data ...byte) ebml.Block {
	return ebml.Block{TrackNumber: track, Timecode: timecode, Keyframe: true, Data: [][]byte{data}}
}

func TestNextBlock(t *testing.T) {
	t.Parallel()

	file := webmFile(t, segmentFixture{
		Info: msInfo(),
		Tracks: tracksFixture{
			Video: []videoEntryFixture{vp9Track(1)},
			Audio: []audioEntryFixture{opusTrack(2)},
		},
		Cluster: []clusterFixture{{
			Timecode: 1000,
			SimpleBlock: []ebml.Block{
				block(1, 0, 0x10, 0x11),
				block(2, 0, 0x20, 0x21, 0x22),
				block(1, 40, 0x12),
				block(2, 20, 0x23),
			},
			BlockGroup: []blockGroupFixture{
				{Block: []ebml.Block{{TrackNumber: 2, Timecode: 40, Data: [][]byte{{0x24, 0x25}}}}},
				{Block: []ebml.Block{{TrackNumber: 1, Timecode: 80, Data: [][]byte{{0x13}}}}},
			},
		}},
	})
	r := parse(t, file)

	seg, err := r.NextSegment()
	require.NoError(t, err)
	require.Equal(t, uint64(1000000), seg.Info.TimecodeScale)
	cl, err := seg.NextCluster()
	require.NoError(t, err)
	require.Equal(t, uint64(1000), cl.Timecode)

	_, err = cl.NextBlock()
	var none *utils.NoTrackSelectedError
	require.ErrorAs(t, err, &none)

	_, err = r.SelectTrack(1)
	require.NoError(t, err)

	type got struct {
		time      int64
		data      []byte
		keyframe  bool
		fromGroup bool
	}
	var blocks []got
	for i := 0; ; i++ {
		b, err := cl.NextBlock()
		require.NoError(t, err)
		if b == nil {
			break
		}
		require.Equal(t, uint64(2), b.Track)
		var data []byte
		if i == 0 {
			// a partly read payload is skipped by the next call
			data = make([]byte, 1)
			require.NoError(t, b.Data.ReadFull(data))
		} else {
			data, err = io.ReadAll(b.Data)
			require.NoError(t, err)
		}
		blocks = append(blocks, got{b.Time, data, b.Keyframe(), b.FromGroup})
	}
	require.Equal(t, []got{
		{1000000000, []byte{0x20}, true, false},
		{1020000000, []byte{0x23}, true, false},
		{1040000000, []byte{0x24, 0x25}, false, true},
	}, blocks)

	cl, err = seg.NextCluster()
	require.NoError(t, err)
	require.Nil(t, cl)
	seg, err = r.NextSegment()
	require.NoError(t, err)
	require.Nil(t, seg)
}

func TestNextClusterSkipsUnreadBlocks(t *testing.T) {
	t.Parallel()

	file := webmFile(t, segmentFixture{
		Info:    msInfo(),
		Tracks:  tracksFixture{Video: []videoEntryFixture{vp9Track(1)}},
		Cluster: videoClusters(1, 3, 5),
	})
	r := parse(t, file)
	_, err := r.SelectTrack(0)
	require.NoError(t, err)
	seg, err := r.NextSegment()
	require.NoError(t, err)

	var timecodes []uint64
	var first [][]byte
	for {
		cl, err := seg.NextCluster()
		require.NoError(t, err)
		if cl == nil {
			break
		}
		timecodes = append(timecodes, cl.Timecode)
		// only the first block of each cluster is read
		b, err := cl.NextBlock()
		require.NoError(t, err)
		require.NotNil(t, b)
		data, err := io.ReadAll(b.Data)
		require.NoError(t, err)
		first = append(first, data)
	}
	require.Equal(t, []uint64{0, 200, 400}, timecodes)
	require.Equal(t, [][]byte{{0, 0, 0xB0}, {5, 0, 0xB0}, {10, 0, 0xB0}}, first)
}

func TestMultipleSegments(t *testing.T) {
	t.Parallel()

	info := msInfo()
	info.TimecodeScale = 500000
	second := videoClusters(1, 1, 5)
	second[0].Timecode = 4000
	file := marshal(t, &struct {
		Header ebmlHeaderFixture  `ebml:"EBML"`
		First  segmentFixture     `ebml:"Segment"`
		Second bareSegmentFixture `ebml:"Segment"`
	}{
		Header: webmHeader(),
		First: segmentFixture{
			Info:    info,
			Tracks:  tracksFixture{Video: []videoEntryFixture{vp9Track(1)}},
			Cluster: videoClusters(1, 2, 5),
		},
		Second: bareSegmentFixture{Cluster: second},
	})
	r := parse(t, file)
	_, err := r.SelectTrack(0)
	require.NoError(t, err)

	var times []int64
	var segments int
	for {
		seg, err := r.NextSegment()
		require.NoError(t, err)
		if seg == nil {
			break
		}
		segments++
		require.Equal(t, uint64(500000), seg.Info.TimecodeScale)
		if segments == 2 {
			require.Nil(t, seg.Tracks)
		}
		for {
			cl, err := seg.NextCluster()
			require.NoError(t, err)
			if cl == nil {
				break
			}
			for {
				b, err := cl.NextBlock()
				require.NoError(t, err)
				if b == nil {
					break
				}
				times = append(times, b.Time/500000)
			}
		}
	}
	require.Equal(t, 2, segments)
	require.Equal(t, []int64{
		0, 40, 80, 120, 160,
		200, 240, 280, 320, 360,
		4000, 4040, 4080, 4120, 4160,
	}, times)
}
