package mp4io

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/stretchr/testify/require"
)

func decodeWithMp4ff(t *testing.T, atom Atom) mp4.Box {
	t.Helper()
	b := Encode(atom)
	box, err := mp4.DecodeBox(0, bytes.NewReader(b))
	require.NoError(t, err)
	require.Equal(t, uint64(len(b)), box.Size())
	return box
}

func TestFileType(t *testing.T) {
	t.Parallel()

	ftyp := NewFileType("dash", 0, "mp41", "isom", "iso6", "iso2")
	b := Encode(ftyp)
	require.Len(t, b, 32)
	require.Equal(t, []byte("ftypdash"), b[4:12])

	box := decodeWithMp4ff(t, ftyp)
	decoded, ok := box.(*mp4.FtypBox)
	require.True(t, ok)
	require.Equal(t, "dash", decoded.MajorBrand())
	require.Equal(t, []string{"mp41", "isom", "iso6", "iso2"}, decoded.CompatibleBrands())

	parsed := &FileType{}
	_, err := parsed.Unmarshal(b, 0)
	require.NoError(t, err)
	require.True(t, parsed.HasBrand(BrandDash))
	require.True(t, parsed.HasBrand(StringToTag("iso2")))
	require.False(t, parsed.HasBrand(BrandM4A))
}

func TestVendorUserData(t *testing.T) {
	t.Parallel()

	udta := NewVendorUserData(VendorComment)
	b := Encode(udta)
	require.Len(t, b, 92)
	require.Equal(t, []byte("NewPipe"), b[len(b)-7:])

	parsed := &UserData{}
	_, err := parsed.Unmarshal(b, 0)
	require.NoError(t, err)
	require.NotNil(t, parsed.Meta)
	require.Equal(t, HandlerMetadata, parsed.Meta.Handler.HandlerType)
	require.Len(t, parsed.Meta.Items.Items, 1)
	require.Equal(t, CMT, parsed.Meta.Items.Items[0].Name)
	require.Equal(t, []byte("NewPipe"), parsed.Meta.Items.Items[0].Value)
}

func TestSampleTables(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		atom Atom
	}{
		{"stts", &TimeToSample{Entries: []TimeToSampleEntry{{Count: 10, Duration: 1024}, {Count: 1, Duration: 512}}}},
		{"ctts", &CompositionOffset{Entries: []CompositionOffsetEntry{{Count: 2, Offset: 1000}, {Count: 1, Offset: 0}}}},
		{"stsc", &SampleToChunk{Entries: []SampleToChunkEntry{{FirstChunk: 1, SamplesPerChunk: 2, SampleDescId: 1}}}},
		{"stsz", &SampleSize{Entries: []uint32{10, 20, 30}}},
		{"stsz_uniform", &SampleSize{SampleSize: 7, SampleCount: 4}},
		{"stss", &SyncSample{Entries: []uint32{1, 30, 60}}},
		{"stco", &ChunkOffset{Entries: []uint64{48, 1000}}},
		{"co64", &ChunkOffset{Wide: true, Entries: []uint64{48, 1 << 33}}},
		{"sgpd", NewRollGroupDesc()},
		{"sbgp", &SampleToGroup{GroupingType: ROLL, Entries: []SampleToGroupEntry{{SampleCount: 5, GroupDescriptionIndex: 1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			box := decodeWithMp4ff(t, tt.atom)
			require.Equal(t, tt.atom.Tag().String(), box.Type())
		})
	}
}

func TestSampleSizeUniformCount(t *testing.T) {
	t.Parallel()

	box := decodeWithMp4ff(t, &SampleSize{SampleSize: 7, SampleCount: 4})
	stsz, ok := box.(*mp4.StszBox)
	require.True(t, ok)
	require.Equal(t, uint32(7), stsz.SampleUniformSize)
	require.Equal(t, uint32(4), stsz.SampleNumber)
}

func TestTrackFragmentRoundTrip(t *testing.T) {
	t.Parallel()

	frag, err := mp4.CreateFragment(3, 2)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		flags := mp4.NonSyncSampleFlags
		if i == 0 {
			flags = mp4.SyncSampleFlags
		}
		frag.AddFullSample(mp4.FullSample{
			Sample:     mp4.Sample{Flags: flags, Dur: 1000, Size: 4, CompositionTimeOffset: int32(i * 10)},
			DecodeTime: uint64(9000 + i*1000),
			Data:       []byte{byte(i), 1, 2, 3},
		})
	}
	var buf bytes.Buffer
	require.NoError(t, frag.Encode(&buf))
	b := buf.Bytes()

	require.Equal(t, MOOF, Tag(uint32(b[4])<<24|uint32(b[5])<<16|uint32(b[6])<<8|uint32(b[7])))
	size := int(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))

	moof := &MovieFrag{}
	_, err = moof.Unmarshal(b[:size], 0)
	require.NoError(t, err)
	require.Equal(t, uint32(3), moof.Header.Seqnum)
	require.Len(t, moof.Tracks, 1)

	traf := moof.Tracks[0]
	require.Equal(t, uint32(2), traf.Header.TrackID)
	require.Equal(t, uint64(9000), traf.DecodeTime.Time)
	require.Len(t, traf.Run.Entries, 3)
	require.Equal(t, uint32(1000), traf.Run.Entries[1].Duration)
	require.Equal(t, int32(20), traf.Run.Entries[2].Cts)
	require.Equal(t, uint32(4), traf.Run.Entries[2].Size)
	require.Equal(t, int32(size+8), traf.Run.DataOffset)

	again := Encode(moof)
	require.Equal(t, b[:size], again)
}

func TestTrackFragHeaderFlags(t *testing.T) {
	t.Parallel()

	tfhd := &TrackFragHeader{
		Flags:           TFHDBaseDataOffset | TFHDDefaultDuration | TFHDDefaultFlags,
		TrackID:         1,
		BaseDataOffset:  4096,
		DefaultDuration: 1024,
		DefaultFlags:    SampleNonKeyframe,
	}
	b := Encode(tfhd)
	require.Len(t, b, 16+8+4+4)

	parsed := &TrackFragHeader{}
	_, err := parsed.Unmarshal(b, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(4096), parsed.BaseDataOffset)
	require.Equal(t, uint32(1024), parsed.DefaultDuration)
	require.Equal(t, uint32(0), parsed.DefaultSize)
	require.Equal(t, SampleNonKeyframe, parsed.DefaultFlags)

	require.Equal(t, uint32(0x20000), TFHDDefaultBaseIsMOOF)
}

func TestTrackFragRunTruncated(t *testing.T) {
	t.Parallel()

	trun := &TrackFragRun{
		Flags:   TRUNDataOffset | TRUNSampleSize,
		Entries: []TrackFragRunEntry{{Size: 1}, {Size: 2}},
	}
	b := Encode(trun)
	_, err := (&TrackFragRun{}).Unmarshal(b[:len(b)-2], 0)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestDecodeTimeVersions(t *testing.T) {
	t.Parallel()

	for _, version := range []uint8{0, 1} {
		tfdt := &TrackFragDecodeTime{Version: version, Time: 123456}
		parsed := &TrackFragDecodeTime{}
		_, err := parsed.Unmarshal(Encode(tfdt), 0)
		require.NoError(t, err)
		require.Equal(t, uint64(123456), parsed.Time)
	}
}

func TestSegmentIndex(t *testing.T) {
	t.Parallel()

	sidx := &SegmentIndex{
		Version:     1,
		ReferenceID: 1,
		Timescale:   48000,
		FirstOffset: 0,
		Entries: []SegmentIndexReference{
			{ReferencedSize: 1000, SubsegmentDuration: 96000, StartsWithSAP: true, SAPType: 1},
			{ReferencedSize: 2000, SubsegmentDuration: 48000, StartsWithSAP: true, SAPType: 1},
		},
	}
	require.Equal(t, SegmentIndexLen(2), sidx.Len())

	box := decodeWithMp4ff(t, sidx)
	decoded, ok := box.(*mp4.SidxBox)
	require.True(t, ok)
	require.Equal(t, uint32(48000), decoded.Timescale)
	require.Len(t, decoded.SidxRefs, 2)
	require.Equal(t, uint32(2000), decoded.SidxRefs[1].ReferencedSize)
	require.Equal(t, uint32(48000), decoded.SidxRefs[1].SubSegmentDuration)

	parsed := &SegmentIndex{}
	_, err := parsed.Unmarshal(Encode(sidx), 0)
	require.NoError(t, err)
	require.Equal(t, sidx.Entries, parsed.Entries)
}

func TestMovieFragRandomAccess(t *testing.T) {
	t.Parallel()

	mfra := &MovieFragRandomAccess{
		Tracks: []*TrackFragRandomAccess{{
			Version: 1,
			TrackID: 1,
			Entries: []TrackFragRandomAccessEntry{
				{Time: 0, MoofOffset: 1200, TrafNumber: 1, TrunNumber: 1, SampleNumber: 1},
				{Time: 96000, MoofOffset: 5400, TrafNumber: 1, TrunNumber: 1, SampleNumber: 1},
			},
		}},
	}
	b := Encode(mfra)
	require.Equal(t, mfra.Len(), len(b))

	box := decodeWithMp4ff(t, mfra)
	decoded, ok := box.(*mp4.MfraBox)
	require.True(t, ok)
	require.Len(t, decoded.Tfras, 1)
	require.Len(t, decoded.Tfras[0].Entries, 2)
	require.Equal(t, uint32(len(b)), decoded.Mfro.ParentSize)

	parsed := &MovieFragRandomAccess{}
	_, err := parsed.Unmarshal(b, 0)
	require.NoError(t, err)
	require.Equal(t, mfra.Tracks[0].Entries, parsed.Tracks[0].Entries)
	require.Equal(t, uint32(len(b)), parsed.Offset.Size)
}

func TestFreeReservation(t *testing.T) {
	t.Parallel()

	free := &FreeType{Size: 64}
	b := make([]byte, 64)
	for i := range b {
		b[i] = 0xAA
	}
	require.Equal(t, 64, free.Marshal(b))
	require.Equal(t, bytes.Repeat([]byte{0}, 56), b[8:])
}

func TestUnknownBoxesAreKept(t *testing.T) {
	t.Parallel()

	raw := []byte{0, 0, 0, 12, 'a', 'b', 'c', 'd', 1, 2, 3, 4}
	mvex := Encode(&MovieExtend{Tracks: []*TrackExtend{{TrackId: 1, DefaultSampleDescIdx: 1}}})
	b := append(mvex, raw...)
	b[3] = byte(len(b))

	parsed := &MovieExtend{}
	_, err := parsed.Unmarshal(b, 0)
	require.NoError(t, err)
	require.Len(t, parsed.Tracks, 1)
	require.Len(t, parsed.Unknowns, 1)
	require.Equal(t, "abcd", parsed.Unknowns[0].Tag().String())
	require.Equal(t, b, Encode(parsed))
}

func TestWalkRejectsOverrun(t *testing.T) {
	t.Parallel()

	b := []byte{0, 0, 0, 16, 'm', 'v', 'e', 'x', 0, 0, 0, 32, 't', 'r', 'e', 'x'}
	_, err := (&MovieExtend{}).Unmarshal(b, 100)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	require.True(t, strings.Contains(err.Error(), "TagSizeInvalid:108"))
}

func TestFprintAtom(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	FprintAtom(&out, NewVendorUserData(VendorComment))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	require.True(t, strings.HasPrefix(lines[0], "udta"))
	require.True(t, strings.HasPrefix(lines[2], "    hdlr"))
}

func TestToMovieTime(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		name      string
		d         int64
		timescale uint32
		want      int64
	}{
		{"fraction rounds up", 4096, 48000, 86},
		{"half", 3000, 48000, 63},
		{"exact", 96000, 48000, 2000},
		{"just over", 48001, 48000, 1001},
		{"movie timescale", 1234, MovieTimeScale, 1234},
		{"zero timescale", 77, 0, 77},
		{"zero duration", 0, 90000, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, ToMovieTime(tc.d, tc.timescale))
		})
	}
}
