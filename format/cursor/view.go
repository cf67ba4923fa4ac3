package cursor

import (
	"io"

	"github.com/ugparu/remux/utils"
	"github.com/ugparu/remux/utils/buffer"
)

// View is a forward only reader bounded to a fixed number of bytes of its
// cursor. Reads past the bound return io.EOF.
type View struct {
	c         *Cursor
	remaining int64
}

func (v *View) Read(p []byte) (int, error) {
	if v.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > v.remaining {
		p = p[:v.remaining]
	}
	n, err := v.c.Read(p)
	v.remaining -= int64(n)
	if err == io.EOF {
		err = &utils.TruncatedStreamError{Missing: v.remaining}
	}
	return n, err
}

// ReadFull fills p from the view.
func (v *View) ReadFull(p []byte) error {
	if int64(len(p)) > v.remaining {
		return &utils.TruncatedStreamError{Missing: int64(len(p)) - v.remaining}
	}
	err := v.c.ReadFull(p)
	v.remaining -= int64(len(p))
	return err
}

// Remaining returns the bytes left in the view.
func (v *View) Remaining() int64 {
	return v.remaining
}

// Skip discards n bytes of the view.
func (v *View) Skip(n int64) error {
	if n > v.remaining {
		n = v.remaining
	}
	v.remaining -= n
	return v.c.Skip(n)
}

// Drain skips whatever is left.
func (v *View) Drain() error {
	return v.Skip(v.remaining)
}

// WriteTo copies the rest of the view to w.
func (v *View) WriteTo(w io.Writer) (int64, error) {
	var written int64
	block := buffer.GetBlock()
	defer block.Release()
	buf := block.Data()
	for v.remaining > 0 {
		n, err := v.Read(buf)
		if n > 0 {
			m, werr := w.Write(buf[:n])
			written += int64(m)
			if werr != nil {
				return written, werr
			}
		}
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
