package ttml

import (
	"bufio"
	"io"
	"strconv"

	"github.com/ugparu/remux/utils/logger"
)

// Options control the conversion.
type Options struct {
	// IgnoreEmptyFrames drops frames holding only whitespace. The
	// remaining frames are numbered without gaps.
	IgnoreEmptyFrames bool
	// DetectYoutubeDuplicateLines trims overlapping auto-generated frames.
	DetectYoutubeDuplicateLines bool
}

// SRTWriter writes numbered SubRip frames. Numbering starts at 1.
type SRTWriter struct {
	w     *bufio.Writer
	index int
	// IgnoreEmptyFrames drops frames holding only whitespace.
	IgnoreEmptyFrames bool
}

func NewSRTWriter(w io.Writer) *SRTWriter {
	return &SRTWriter{w: bufio.NewWriter(w)}
}

func (s *SRTWriter) String() string {
	return "SRT_WRITER"
}

// WriteFrame writes one frame.
func (s *SRTWriter) WriteFrame(f Frame) error {
	if s.IgnoreEmptyFrames && blank(f.Text) {
		return nil
	}
	s.index++
	buf := make([]byte, 0, 64+len(f.Text))
	buf = strconv.AppendInt(buf, int64(s.index), 10)
	buf = append(buf, NewLine...)
	buf = append(buf, FormatTime(f.Start)...)
	buf = append(buf, " --> "...)
	buf = append(buf, FormatTime(f.End)...)
	buf = append(buf, NewLine...)
	buf = append(buf, f.Text...)
	buf = append(buf, NewLine+NewLine...)
	_, err := s.w.Write(buf)
	return err
}

// Frames returns the number of frames written.
func (s *SRTWriter) Frames() int {
	return s.index
}

func (s *SRTWriter) Flush() error {
	return s.w.Flush()
}

// Convert reads a TTML or timed text document from in and writes it to out
// as SubRip.
func Convert(out io.Writer, in io.Reader, opts Options) error {
	frames, err := Parse(in, opts.DetectYoutubeDuplicateLines)
	if err != nil {
		return err
	}
	w := NewSRTWriter(out)
	w.IgnoreEmptyFrames = opts.IgnoreEmptyFrames
	for _, f := range frames {
		if err = w.WriteFrame(f); err != nil {
			return err
		}
	}
	logger.Debugf(w, "%d of %d frames written", w.Frames(), len(frames))
	return w.Flush()
}
