package stream

import (
	"io"

	"github.com/ugparu/remux/utils"
)

// Sequential is a forward only stream over an io.Reader or an io.Writer.
type Sequential struct {
	r   io.Reader
	w   io.Writer
	pos int64
}

// NewReader wraps r. Available reports -1.
func NewReader(r io.Reader) *Sequential {
	return &Sequential{r: r}
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Sequential {
	return &Sequential{w: w}
}

func (s *Sequential) Read(p []byte) (n int, err error) {
	if s.r == nil {
		return 0, io.EOF
	}
	n, err = s.r.Read(p)
	s.pos += int64(n)
	return
}

func (s *Sequential) Write(p []byte) (n int, err error) {
	if s.w == nil {
		return 0, &utils.NotWritableError{}
	}
	n, err = s.w.Write(p)
	s.pos += int64(n)
	return
}

func (s *Sequential) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *Sequential) CanRead() bool    { return s.r != nil }
func (s *Sequential) CanWrite() bool   { return s.w != nil }
func (s *Sequential) CanSeek() bool    { return false }
func (s *Sequential) CanRewind() bool  { return false }
func (s *Sequential) Available() int64 { return -1 }
func (s *Sequential) Position() int64  { return s.pos }

// Skip discards n bytes of input.
func (s *Sequential) Skip(n int64) error {
	if s.r == nil {
		return &utils.NotSeekableError{}
	}
	copied, err := io.CopyN(io.Discard, s.r, n)
	s.pos += copied
	if err == io.EOF {
		return &utils.TruncatedStreamError{Missing: n - copied}
	}
	return err
}

func (s *Sequential) SeekTo(int64) error {
	return &utils.NotSeekableError{}
}

func (s *Sequential) Rewind() error {
	return &utils.NotRewindableError{}
}
