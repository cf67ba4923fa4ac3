package stream

import (
	"io"
	"os"

	"github.com/ugparu/remux/utils"
)

// File is a seekable stream over an *os.File.
type File struct {
	f        *os.File
	pos      int64
	writable bool
}

// Open opens path for reading.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &File{f: f}, nil
}

// Create truncates or creates path for reading and writing.
func Create(path string) (*File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &File{f: f, writable: true}, nil
}

func (s *File) Read(p []byte) (n int, err error) {
	n, err = s.f.Read(p)
	s.pos += int64(n)
	return
}

func (s *File) Write(p []byte) (n int, err error) {
	if !s.writable {
		return 0, &utils.NotWritableError{}
	}
	n, err = s.f.Write(p)
	s.pos += int64(n)
	return
}

func (s *File) Close() error {
	return s.f.Close()
}

func (s *File) CanRead() bool   { return true }
func (s *File) CanWrite() bool  { return s.writable }
func (s *File) CanSeek() bool   { return true }
func (s *File) CanRewind() bool { return true }
func (s *File) Position() int64 { return s.pos }

func (s *File) Available() int64 {
	st, err := s.f.Stat()
	if err != nil {
		return -1
	}
	return max(st.Size()-s.pos, 0)
}

// Skip moves forward. A read only file cannot move past its end.
func (s *File) Skip(n int64) error {
	if n < 0 {
		return &utils.InvalidOffsetError{What: "skip", Offset: n}
	}
	if !s.writable {
		if left := s.Available(); left >= 0 && n > left {
			if err := s.SeekTo(s.pos + left); err != nil {
				return err
			}
			return &utils.TruncatedStreamError{Missing: n - left}
		}
	}
	return s.SeekTo(s.pos + n)
}

func (s *File) SeekTo(pos int64) error {
	if pos < 0 {
		return &utils.InvalidOffsetError{What: "seek", Offset: pos}
	}
	if _, err := s.f.Seek(pos, io.SeekStart); err != nil {
		return err
	}
	s.pos = pos
	return nil
}

func (s *File) Rewind() error {
	return s.SeekTo(0)
}
