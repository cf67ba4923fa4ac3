package mp4

import (
	"bytes"
	"testing"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/stretchr/testify/require"

	"github.com/ugparu/remux"
	"github.com/ugparu/remux/format/mp4/dash"
	"github.com/ugparu/remux/format/mp4/dash/dashtest"
	"github.com/ugparu/remux/format/mp4/mp4io"
	"github.com/ugparu/remux/utils"
	"github.com/ugparu/remux/utils/stream"
)

var (
	videoTrack = dashtest.Track{
		ID: 1, Handler: mp4io.HandlerVideo, Codec: "vtst", TimeScale: 90000,
		Duration: 270000, Width: 640, Height: 360,
		Edit: &mp4io.EditListEntry{SegmentDuration: 270000, MediaTime: 3000, MediaRate: 1},
	}
	audioTrack = dashtest.Track{
		ID: 2, Handler: mp4io.HandlerSound, Codec: "atst", TimeScale: 48000, Volume: 1,
	}
)

func videoSamples(from, n int) []dashtest.Sample {
	out := make([]dashtest.Sample, n)
	for i := range out {
		k := from + i
		out[i] = dashtest.Sample{
			Dur:  3000,
			Sync: i == 0,
			Cto:  int32(k%2) * 3000,
			Data: bytes.Repeat([]byte{byte(0x10 + k)}, 10+k),
		}
	}
	return out
}

func audioSamples(from, n int) []dashtest.Sample {
	out := make([]dashtest.Sample, n)
	for i := range out {
		out[i] = dashtest.Sample{Dur: 1024, Sync: true, Data: bytes.Repeat([]byte{byte(0x40 + from + i)}, 6)}
	}
	return out
}

func videoSource() []byte {
	return dashtest.Join(
		dashtest.Init("dash", 90000, videoTrack),
		dashtest.Fragment(1, 1, 0, videoSamples(0, 4)...),
		dashtest.Fragment(2, 1, 12000, videoSamples(4, 4)...),
		dashtest.Fragment(3, 1, 24000, videoSamples(8, 1)...),
	)
}

func audioSource() []byte {
	return dashtest.Join(
		dashtest.Init("dash", 1000, audioTrack),
		dashtest.Fragment(1, 2, 0, audioSamples(0, 2)...),
		dashtest.Fragment(2, 2, 2048, audioSamples(2, 2)...),
	)
}

func open(t *testing.T, s remux.Stream) *dash.Reader {
	t.Helper()
	r := dash.NewReader(s)
	t.Cleanup(func() { r.Close() })
	require.NoError(t, r.Parse())
	return r
}

func flatten(t *testing.T, brand string, sources ...[]byte) []byte {
	t.Helper()
	var readers []*dash.Reader
	for _, s := range sources {
		readers = append(readers, open(t, stream.NewMemory(s)))
	}
	w := NewRemuxWriter(readers...)
	w.SetMainBrand(brand)
	require.NoError(t, w.SelectTracks(make([]int, len(sources))...))
	out := stream.NewMemoryWriter()
	require.NoError(t, w.Build(out))
	return out.Bytes()
}

// readBack returns every sample payload of the file grouped by track.
func readBack(t *testing.T, file []byte) (*Reader, [][][]byte) {
	t.Helper()
	r := NewReader(stream.NewMemory(file))
	require.NoError(t, r.Parse())
	tracks, err := r.Tracks()
	require.NoError(t, err)
	payloads := make([][][]byte, len(tracks))
	for {
		s, err := r.NextSample()
		require.NoError(t, err)
		if s == nil {
			break
		}
		data, err := r.ReadSample(s, nil)
		require.NoError(t, err)
		payloads[s.Track] = append(payloads[s.Track], data)
	}
	return r, payloads
}

func sourcePayloads(samples ...[]dashtest.Sample) [][]byte {
	var out [][]byte
	for _, group := range samples {
		for _, s := range group {
			out = append(out, s.Data)
		}
	}
	return out
}

func TestFlattenRoundTrip(t *testing.T) {
	t.Parallel()

	file := flatten(t, "", videoSource(), audioSource())
	r, payloads := readBack(t, file)

	require.Equal(t, sourcePayloads(videoSamples(0, 4), videoSamples(4, 4), videoSamples(8, 1)), payloads[0])
	require.Equal(t, sourcePayloads(audioSamples(0, 2), audioSamples(2, 2)), payloads[1])

	tracks, err := r.Tracks()
	require.NoError(t, err)
	require.Equal(t, remux.Video, tracks[0].Kind())
	require.Equal(t, "vtst", tracks[0].Codec())
	require.Equal(t, 9, tracks[0].SampleCount())
	require.Equal(t, int64(3000), tracks[0].Duration())
	require.Equal(t, remux.Audio, tracks[1].Kind())
	require.Equal(t, "atst", tracks[1].Codec())
	require.Equal(t, 4, tracks[1].SampleCount())
	// 4096 ticks at 48 kHz is 85.33 ms, rounded up
	require.Equal(t, int64(86), tracks[1].Duration())

	brands := r.Brands()
	require.Equal(t, uint32(mp4io.BrandMP42), brands.MajorBrand)
	require.Equal(t, uint32(512), brands.MinorVersion)
	require.False(t, brands.HasBrand(mp4io.BrandDash))
	require.Equal(t, int64(3000), r.Movie().Header.Duration)
	require.Equal(t, int32(3), r.Movie().Header.NextTrackID)
}

func TestFlattenSampleTables(t *testing.T) {
	t.Parallel()

	r, _ := readBack(t, flatten(t, "", videoSource(), audioSource()))
	tracks, err := r.Tracks()
	require.NoError(t, err)

	video := tracks[0].SampleTable()
	require.Equal(t, []mp4io.TimeToSampleEntry{{Count: 9, Duration: 3000}}, video.TimeToSample.Entries)
	require.Equal(t, []uint32{1, 5, 9}, video.SyncSample.Entries)
	require.Len(t, video.CompositionOffset.Entries, 9)
	require.Equal(t, mp4io.CompositionOffsetEntry{Count: 1, Offset: 3000}, video.CompositionOffset.Entries[1])
	require.Equal(t, []mp4io.SampleToChunkEntry{
		{FirstChunk: 1, SamplesPerChunk: 2, SampleDescId: 1},
		{FirstChunk: 2, SamplesPerChunk: 6, SampleDescId: 1},
		{FirstChunk: 3, SamplesPerChunk: 1, SampleDescId: 1},
	}, video.SampleToChunk.Entries)
	require.Zero(t, video.SampleSize.SampleSize)
	require.Len(t, video.SampleSize.Entries, 9)
	require.Len(t, video.ChunkOffset.Entries, 3)
	require.False(t, video.ChunkOffset.Wide)
	require.Nil(t, video.GroupDesc)

	elst := tracks[0].Trak.Edit.List.Entries
	require.Equal(t, []mp4io.EditListEntry{{SegmentDuration: 3000, MediaTime: 3000, MediaRate: 1}}, elst)

	audio := tracks[1].SampleTable()
	require.Nil(t, audio.SyncSample)
	require.Nil(t, audio.CompositionOffset)
	require.Equal(t, uint32(6), audio.SampleSize.SampleSize)
	require.Equal(t, uint32(4), audio.SampleSize.SampleCount)
	require.Equal(t, []mp4io.SampleToChunkEntry{{FirstChunk: 1, SamplesPerChunk: 2, SampleDescId: 1}}, audio.SampleToChunk.Entries)
	require.NotNil(t, audio.GroupDesc)
	require.Equal(t, []mp4io.SampleToGroupEntry{{SampleCount: 4, GroupDescriptionIndex: 1}}, audio.ToGroup.Entries)
	require.Equal(t, []mp4io.EditListEntry{{SegmentDuration: 86, MediaRate: 1}}, tracks[1].Trak.Edit.List.Entries)

	// chunks alternate between the tracks: v v a a v*6 a a v
	require.Equal(t, video.ChunkOffset.Entries[0]+10+11, audio.ChunkOffset.Entries[0])
	require.Equal(t, audio.ChunkOffset.Entries[0]+12, video.ChunkOffset.Entries[1])
}

func TestFlattenDecodesWithMp4ff(t *testing.T) {
	t.Parallel()

	file := flatten(t, "", videoSource(), audioSource())
	f, err := mp4.DecodeFile(bytes.NewReader(file))
	require.NoError(t, err)

	require.Equal(t, "mp42", f.Ftyp.MajorBrand())
	require.Equal(t, uint64(3000), f.Moov.Mvhd.Duration)
	require.Len(t, f.Moov.Traks, 2)

	stbl := f.Moov.Traks[0].Mdia.Minf.Stbl
	require.Equal(t, uint32(9), stbl.Stsz.SampleNumber)
	require.Len(t, stbl.Stco.ChunkOffset, 3)
	require.Equal(t, []uint32{1, 5, 9}, stbl.Stss.SampleNumber)

	first := stbl.Stco.ChunkOffset[0]
	require.Equal(t, bytes.Repeat([]byte{0x10}, 10), file[first:first+10])
}

func TestSingleAudioChunking(t *testing.T) {
	t.Parallel()

	r, payloads := readBack(t, flatten(t, "M4A ", audioSource()))
	require.Len(t, payloads[0], 4)

	tracks, err := r.Tracks()
	require.NoError(t, err)
	stbl := tracks[0].SampleTable()
	require.Equal(t, []mp4io.SampleToChunkEntry{{FirstChunk: 1, SamplesPerChunk: 4, SampleDescId: 1}}, stbl.SampleToChunk.Entries)
	require.Len(t, stbl.ChunkOffset.Entries, 1)

	brands := r.Brands()
	require.Equal(t, uint32(mp4io.BrandM4A), brands.MajorBrand)
	require.Equal(t, uint32(mp4io.BrandMP42), brands.CompatibleBrands[0])
}

func TestRemuxWriterErrors(t *testing.T) {
	t.Parallel()

	t.Run("track count", func(t *testing.T) {
		t.Parallel()
		w := NewRemuxWriter(open(t, stream.NewMemory(videoSource())), open(t, stream.NewMemory(audioSource())))
		var inconsistent *utils.InconsistentTrackCountError
		require.ErrorAs(t, w.SelectTracks(0), &inconsistent)
		require.Equal(t, 2, inconsistent.Sources)
	})

	t.Run("track index", func(t *testing.T) {
		t.Parallel()
		w := NewRemuxWriter(open(t, stream.NewMemory(videoSource())))
		var index *utils.TrackIndexError
		require.ErrorAs(t, w.SelectTracks(3), &index)
	})

	t.Run("no track selected", func(t *testing.T) {
		t.Parallel()
		w := NewRemuxWriter(open(t, stream.NewMemory(videoSource())))
		var noTrack *utils.NoTrackSelectedError
		require.ErrorAs(t, w.Build(stream.NewMemoryWriter()), &noTrack)
	})

	t.Run("not rewindable", func(t *testing.T) {
		t.Parallel()
		w := NewRemuxWriter(open(t, stream.NewReader(bytes.NewReader(videoSource()))))
		require.NoError(t, w.SelectTracks(0))
		var notRewindable *utils.NotRewindableError
		require.ErrorAs(t, w.Build(stream.NewMemoryWriter()), &notRewindable)
	})

	t.Run("not writable", func(t *testing.T) {
		t.Parallel()
		w := NewRemuxWriter(open(t, stream.NewMemory(videoSource())))
		require.NoError(t, w.SelectTracks(0))
		var notWritable *utils.NotWritableError
		require.ErrorAs(t, w.Build(stream.NewMemory(nil)), &notWritable)
	})

	t.Run("reuse", func(t *testing.T) {
		t.Parallel()
		w := NewRemuxWriter(open(t, stream.NewMemory(videoSource())))
		require.NoError(t, w.SelectTracks(0))
		require.NoError(t, w.Build(stream.NewMemoryWriter()))
		var done *utils.AlreadyDoneError
		require.ErrorAs(t, w.Build(stream.NewMemoryWriter()), &done)
		require.ErrorAs(t, w.SelectTracks(0), &done)
	})
}

func TestSequentialOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewRemuxWriter(open(t, stream.NewMemory(videoSource())))
	require.NoError(t, w.SelectTracks(0))
	require.NoError(t, w.Build(stream.NewWriter(&buf)))

	_, payloads := readBack(t, buf.Bytes())
	require.Len(t, payloads[0], 9)
}

// changingStream serves next after its first rewind.
type changingStream struct {
	*stream.Memory
	next []byte
}

func (s *changingStream) Rewind() error {
	if s.next != nil {
		s.Memory, s.next = stream.NewMemory(s.next), nil
	}
	return s.Memory.Rewind()
}

func TestBuildSourceChangedBetweenPasses(t *testing.T) {
	t.Parallel()

	grown := videoSamples(0, 4)
	grown[2].Data = append(grown[2].Data, 0xFF)
	changed := dashtest.Join(
		dashtest.Init("dash", 90000, videoTrack),
		dashtest.Fragment(1, 1, 0, grown...),
		dashtest.Fragment(2, 1, 12000, videoSamples(4, 4)...),
		dashtest.Fragment(3, 1, 24000, videoSamples(8, 1)...),
	)

	src := open(t, &changingStream{Memory: stream.NewMemory(videoSource()), next: changed})
	w := NewRemuxWriter(src)
	require.NoError(t, w.SelectTracks(0))

	var overflow *utils.ReservedOverflowError
	require.ErrorAs(t, w.Build(stream.NewMemoryWriter()), &overflow)
	require.Equal(t, "sample", overflow.Region)
	require.Equal(t, int64(12), overflow.Reserved)
	require.Equal(t, int64(13), overflow.Written)
}
