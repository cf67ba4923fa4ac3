// Package remux holds the stream contract shared by the container readers and
// writers of this module.
package remux

import "io"

// Stream is a byte stream with individually queryable capabilities.
type Stream interface {
	io.Reader
	io.Writer
	io.Closer

	CanRead() bool          // Reports whether Read is allowed.
	CanWrite() bool         // Reports whether Write is allowed.
	CanSeek() bool          // Reports whether SeekTo is allowed.
	CanRewind() bool        // Reports whether Rewind is allowed.
	Available() int64       // Returns the bytes left to read, -1 when unknown.
	Skip(n int64) error     // Advances the read position by n bytes.
	SeekTo(pos int64) error // Moves to an absolute position.
	Rewind() error          // Moves back to position 0.
	Position() int64        // Returns the current absolute position.
}

// Track describes one selectable elementary stream of a parsed container.
type Track interface {
	Kind() TrackKind // Returns the stream kind.
	Codec() string   // Returns the container specific codec identifier.
}
