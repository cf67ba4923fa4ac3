package opus

import (
	"time"

	"github.com/ugparu/remux/utils"
)

// TOC byte layout
const (
	configShift    = 3
	framesCodeMask = 0x3
	frameCountMask = 0x3F

	singleFrameCode = 0
	arbitraryCode   = 3
)

// PacketDuration returns the audio length of one Opus packet from its TOC
// byte and, for code 3 packets, the frame count byte.
func PacketDuration(pkt []byte) (time.Duration, error) {
	if len(pkt) < 1 {
		return 0, &utils.UnsupportedFormatError{Format: "opus", Reason: "empty packet"}
	}
	toc := pkt[0]
	frame := frameDurations[toc>>configShift]
	switch toc & framesCodeMask {
	case singleFrameCode:
		return frame, nil
	case arbitraryCode:
		if len(pkt) < 2 {
			return 0, &utils.UnsupportedFormatError{Format: "opus", Reason: "code 3 packet without frame count"}
		}
		return time.Duration(pkt[1]&frameCountMask) * frame, nil
	}
	// codes 1 and 2 carry two frames
	return 2 * frame, nil
}

// PacketSamples returns the packet length in 48 kHz samples.
func PacketSamples(pkt []byte) (int64, error) {
	d, err := PacketDuration(pkt)
	if err != nil {
		return 0, err
	}
	return int64(d) * GranuleRate / int64(time.Second), nil
}

var frameDurations = [32]time.Duration{
	// SILK NB
	10 * time.Millisecond,
	20 * time.Millisecond,
	40 * time.Millisecond,
	60 * time.Millisecond,
	// SILK MB
	10 * time.Millisecond,
	20 * time.Millisecond,
	40 * time.Millisecond,
	60 * time.Millisecond,
	// SILK WB
	10 * time.Millisecond,
	20 * time.Millisecond,
	40 * time.Millisecond,
	60 * time.Millisecond,
	// Hybrid SWB
	10 * time.Millisecond,
	20 * time.Millisecond,
	// Hybrid FB
	10 * time.Millisecond,
	20 * time.Millisecond,
	// CELT NB
	2500 * time.Microsecond,
	5 * time.Millisecond,
	10 * time.Millisecond,
	20 * time.Millisecond,
	// CELT WB
	2500 * time.Microsecond,
	5 * time.Millisecond,
	10 * time.Millisecond,
	20 * time.Millisecond,
	// CELT SWB
	2500 * time.Microsecond,
	5 * time.Millisecond,
	10 * time.Millisecond,
	20 * time.Millisecond,
	// CELT FB
	2500 * time.Microsecond,
	5 * time.Millisecond,
	10 * time.Millisecond,
	20 * time.Millisecond,
}
