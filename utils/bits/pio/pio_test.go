package pio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBigEndianRoundTrip(t *testing.T) {
	t.Parallel()

	b := make([]byte, 8)

	PutU16BE(b, 0xBEEF)
	require.Equal(t, []byte{0xBE, 0xEF}, b[:2])
	require.Equal(t, uint16(0xBEEF), U16BE(b))

	PutU24BE(b, 0x123456)
	require.Equal(t, uint32(0x123456), U24BE(b))

	PutU32BE(b, 0xDEADBEEF)
	require.Equal(t, uint32(0xDEADBEEF), U32BE(b))
	require.Equal(t, int32(-559038737), I32BE(b))

	PutU64BE(b, 0x0102030405060708)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, b)
	require.Equal(t, uint64(0x0102030405060708), U64BE(b))

	PutI16BE(b, -2)
	require.Equal(t, int16(-2), I16BE(b))
}

func TestSignedTwentyFourBits(t *testing.T) {
	t.Parallel()

	require.Equal(t, int32(-1), I24BE([]byte{0xFF, 0xFF, 0xFF}))
	require.Equal(t, int32(0x7FFFFF), I24BE([]byte{0x7F, 0xFF, 0xFF}))
}

func TestLittleEndian(t *testing.T) {
	t.Parallel()

	b := make([]byte, 8)
	PutU32LE(b, 0x5367674F)
	require.Equal(t, []byte("OggS"), b[:4])
	require.Equal(t, uint32(0x5367674F), U32LE(b))

	PutU64LE(b, 0x1122334455667788)
	require.Equal(t, []byte{0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11}, b)
	require.Equal(t, uint64(0x1122334455667788), U64LE(b))

	PutU16LE(b, 0x0102)
	require.Equal(t, uint16(0x0102), U16LE(b))
}
