// Package opus reads the Opus identification header and packet TOC bytes.
package opus

import (
	"bytes"

	"github.com/ugparu/remux/utils"
	"github.com/ugparu/remux/utils/bits/pio"
)

// GranuleRate is the Ogg granule position rate of every Opus stream.
const GranuleRate = 48000

const headSize = 19

var headMagic = []byte("OpusHead")

// Head is the OpusHead identification header, the CodecPrivate of a WebM
// Opus track.
type Head struct {
	Version  uint8
	Channels uint8
	// PreSkip is in 48 kHz samples.
	PreSkip    uint16
	InputRate  uint32
	OutputGain int16
	Mapping    uint8
}

// ParseHead decodes an OpusHead. Version 0 and any version above 15 are
// rejected.
func ParseHead(b []byte) (*Head, error) {
	if len(b) < headSize || !bytes.Equal(b[:len(headMagic)], headMagic) {
		return nil, &utils.UnsupportedFormatError{Format: "opus", Reason: "not an OpusHead"}
	}
	h := &Head{
		Version:    b[8],
		Channels:   b[9],
		PreSkip:    pio.U16LE(b[10:]),
		InputRate:  pio.U32LE(b[12:]),
		OutputGain: int16(pio.U16LE(b[16:])),
		Mapping:    b[18],
	}
	if h.Version == 0 || h.Version > 15 {
		return nil, &utils.UnsupportedFormatError{Format: "opus", Reason: "unsupported OpusHead version"}
	}
	if h.Channels == 0 {
		return nil, &utils.UnsupportedFormatError{Format: "opus", Reason: "zero channels"}
	}
	return h, nil
}
