package webm

import (
	"bytes"
	"testing"

	"github.com/at-wat/ebml-go"
	"github.com/stretchr/testify/require"
)

type ebmlHeaderFixture struct {
	EBMLVersion            uint64 `ebml:"EBMLVersion"`
	EBMLReadVersion        uint64 `ebml:"EBMLReadVersion"`
	EBMLMaxIDLength        uint64 `ebml:"EBMLMaxIDLength"`
	EBMLMaxSizeLength      uint64 `ebml:"EBMLMaxSizeLength"`
	EBMLDocType            string `ebml:"EBMLDocType"`
	EBMLDocTypeVersion     uint64 `ebml:"EBMLDocTypeVersion"`
	EBMLDocTypeReadVersion uint64 `ebml:"EBMLDocTypeReadVersion"`
}

func webmHeader() ebmlHeaderFixture {
	return ebmlHeaderFixture{
		EBMLVersion:            1,
		EBMLReadVersion:        1,
		EBMLMaxIDLength:        4,
		EBMLMaxSizeLength:      8,
		EBMLDocType:            "webm",
		EBMLDocTypeVersion:     4,
		EBMLDocTypeReadVersion: 2,
	}
}

type infoFixture struct {
	TimecodeScale uint64  `ebml:"TimecodeScale"`
	Duration      float64 `ebml:"Duration"`
	MuxingApp     string  `ebml:"MuxingApp"`
}

type videoFixture struct {
	PixelWidth  uint64 `ebml:"PixelWidth"`
	PixelHeight uint64 `ebml:"PixelHeight"`
}

type audioFixture struct {
	SamplingFrequency float64 `ebml:"SamplingFrequency"`
	Channels          uint64  `ebml:"Channels"`
}

type videoEntryFixture struct {
	TrackNumber     uint64       `ebml:"TrackNumber"`
	TrackUID        uint64       `ebml:"TrackUID"`
	TrackType       uint64       `ebml:"TrackType"`
	FlagLacing      uint64       `ebml:"FlagLacing"`
	CodecID         string       `ebml:"CodecID"`
	DefaultDuration uint64       `ebml:"DefaultDuration"`
	Video           videoFixture `ebml:"Video"`
}

type audioEntryFixture struct {
	TrackNumber  uint64       `ebml:"TrackNumber"`
	TrackUID     uint64       `ebml:"TrackUID"`
	TrackType    uint64       `ebml:"TrackType"`
	FlagLacing   uint64       `ebml:"FlagLacing"`
	CodecID      string       `ebml:"CodecID"`
	CodecPrivate []byte       `ebml:"CodecPrivate"`
	CodecDelay   uint64       `ebml:"CodecDelay"`
	SeekPreRoll  uint64       `ebml:"SeekPreRoll"`
	Audio        audioFixture `ebml:"Audio"`
}

type tracksFixture struct {
	Video []videoEntryFixture `ebml:"TrackEntry"`
	Audio []audioEntryFixture `ebml:"TrackEntry"`
}

type blockGroupFixture struct {
	Block []ebml.Block `ebml:"Block"`
}

type clusterFixture struct {
	Timecode    uint64              `ebml:"Timecode"`
	SimpleBlock []ebml.Block        `ebml:"SimpleBlock"`
	BlockGroup  []blockGroupFixture `ebml:"BlockGroup"`
}

type segmentFixture struct {
	Info    infoFixture      `ebml:"Info"`
	Tracks  tracksFixture    `ebml:"Tracks"`
	Cluster []clusterFixture `ebml:"Cluster"`
}

// bareSegmentFixture carries clusters only.
type bareSegmentFixture struct {
	Cluster []clusterFixture `ebml:"Cluster"`
}

func marshal(t *testing.T, v any) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, ebml.Marshal(v, &buf))
	return buf.Bytes()
}

func webmFile(t *testing.T, segment segmentFixture) []byte {
	t.Helper()
	return marshal(t, &struct {
		Header  ebmlHeaderFixture `ebml:"EBML"`
		Segment segmentFixture    `ebml:"Segment"`
	}{webmHeader(), segment})
}

func msInfo() infoFixture {
	return infoFixture{TimecodeScale: 1000000, MuxingApp: "fixture"}
}

func vp9Track(number uint64) videoEntryFixture {
	return videoEntryFixture{
		TrackNumber:     number,
		TrackUID:        number,
		TrackType:       TrackTypeVideo,
		CodecID:         "V_VP9",
		DefaultDuration: 40000000,
		Video:           videoFixture{PixelWidth: 320, PixelHeight: 240},
	}
}

var opusHead = []byte("OpusHead\x01\x02\x38\x01\x80\xbb\x00\x00\x00\x00\x00")

func opusTrack(number uint64) audioEntryFixture {
	return audioEntryFixture{
		TrackNumber:  number,
		TrackUID:     number,
		TrackType:    TrackTypeAudio,
		CodecID:      "A_OPUS",
		CodecPrivate: opusHead,
		CodecDelay:   6500000,
		SeekPreRoll:  80000000,
		Audio:        audioFixture{SamplingFrequency: 48000, Channels: 2},
	}
}

// videoClusters returns clusters of perCluster blocks spaced 40 ms apart,
// with a keyframe every fifth block. The first two payload bytes hold the
// block index.
func videoClusters(track uint64, clusters, perCluster int) []clusterFixture {
	out := make([]clusterFixture, clusters)
	for k := range out {
		out[k].Timecode = uint64(k * perCluster * 40)
		for j := 0; j < perCluster; j++ {
			n := k*perCluster + j
			out[k].SimpleBlock = append(out[k].SimpleBlock, ebml.Block{
				TrackNumber: track,
				Timecode:    int16(j * 40),
				Keyframe:    j%5 == 0,
				Data:        [][]byte{{byte(n), byte(n >> 8), 0xB0}},
			})
		}
	}
	return out
}

// audioClusters returns clusters of perCluster blocks spaced 20 ms apart.
func audioClusters(track uint64, clusters, perCluster int) []clusterFixture {
	out := make([]clusterFixture, clusters)
	for k := range out {
		out[k].Timecode = uint64(k * perCluster * 20)
		for j := 0; j < perCluster; j++ {
			n := k*perCluster + j
			out[k].SimpleBlock = append(out[k].SimpleBlock, ebml.Block{
				TrackNumber: track,
				Timecode:    int16(j * 20),
				Keyframe:    true,
				Data:        [][]byte{{byte(n), byte(n >> 8), 0xA0, 0xA1}},
			})
		}
	}
	return out
}
