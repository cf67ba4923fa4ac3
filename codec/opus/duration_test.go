package opus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ugparu/remux/utils"
)

func TestPacketDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		pkt  []byte
		want time.Duration
	}{
		{"silk nb 20ms", []byte{1 << 3, 0xAA}, 20 * time.Millisecond},
		{"silk wb 60ms", []byte{11 << 3}, 60 * time.Millisecond},
		{"celt fb single", []byte{0xF8, 0x01}, 20 * time.Millisecond},
		{"celt fb two equal frames", []byte{0xF9, 0x01, 0x02}, 40 * time.Millisecond},
		{"celt fb two frames", []byte{0xFA, 0x01, 0x01, 0x02}, 40 * time.Millisecond},
		{"celt fb three frames", []byte{0xFB, 0x03, 0x01}, 60 * time.Millisecond},
		{"celt nb 2.5ms", []byte{16 << 3}, 2500 * time.Microsecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d, err := PacketDuration(tt.pkt)
			require.NoError(t, err)
			require.Equal(t, tt.want, d)
		})
	}
}

func TestPacketDurationInvalid(t *testing.T) {
	t.Parallel()

	var unsupported *utils.UnsupportedFormatError
	_, err := PacketDuration(nil)
	require.ErrorAs(t, err, &unsupported)
	_, err = PacketDuration([]byte{0xFB})
	require.ErrorAs(t, err, &unsupported)
}

func TestPacketSamples(t *testing.T) {
	t.Parallel()

	n, err := PacketSamples([]byte{0xF8})
	require.NoError(t, err)
	require.Equal(t, int64(960), n)

	n, err = PacketSamples([]byte{16 << 3})
	require.NoError(t, err)
	require.Equal(t, int64(120), n)
}

func TestParseHead(t *testing.T) {
	t.Parallel()

	h, err := ParseHead([]byte("OpusHead\x01\x02\x38\x01\x80\xbb\x00\x00\x00\x00\x00"))
	require.NoError(t, err)
	require.Equal(t, &Head{Version: 1, Channels: 2, PreSkip: 312, InputRate: 48000}, h)

	var unsupported *utils.UnsupportedFormatError
	_, err = ParseHead([]byte("OpusTags\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00"))
	require.ErrorAs(t, err, &unsupported)
	_, err = ParseHead([]byte("OpusHead\x01"))
	require.ErrorAs(t, err, &unsupported)
	_, err = ParseHead([]byte("OpusHead\x00\x02\x38\x01\x80\xbb\x00\x00\x00\x00\x00"))
	require.ErrorAs(t, err, &unsupported)
}
