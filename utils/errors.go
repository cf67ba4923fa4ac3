package utils

import "fmt"

// UnsupportedFormatError is returned when a container declares a brand, doc type
// or version the readers do not handle.
type UnsupportedFormatError struct {
	Format string
	Reason string
}

// Error returns the error message for UnsupportedFormatError.
func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported %s: %s", e.Format, e.Reason)
}

// MissingBoxError is returned when a mandatory mp4 box is absent.
type MissingBoxError struct {
	Box string
}

// Error returns the error message for MissingBoxError.
func (e *MissingBoxError) Error() string {
	return fmt.Sprintf("box %q not found", e.Box)
}

// MissingMetadataError is returned when a WebM cluster shows up before Info or Tracks.
type MissingMetadataError struct {
	Offset int64
}

// Error returns the error message for MissingMetadataError.
func (e *MissingMetadataError) Error() string {
	return fmt.Sprintf("cluster found without Info and/or Tracks element at %d", e.Offset)
}

// UnexpectedBoxError is returned when a box appears where the stream layout forbids it.
type UnexpectedBoxError struct {
	Box    string
	Offset int64
}

// Error returns the error message for UnexpectedBoxError.
func (e *UnexpectedBoxError) Error() string {
	return fmt.Sprintf("unexpected box %q at %d", e.Box, e.Offset)
}

// TruncatedStreamError is returned when the source ends in the middle of a fixed size read.
type TruncatedStreamError struct {
	Missing int64
}

// Error returns the error message for TruncatedStreamError.
func (e *TruncatedStreamError) Error() string {
	return fmt.Sprintf("stream truncated, missing %d bytes", e.Missing)
}

// InvalidOffsetError is returned when a computed or declared offset points backwards
// or outside of its parent.
type InvalidOffsetError struct {
	What   string
	Offset int64
}

// Error returns the error message for InvalidOffsetError.
func (e *InvalidOffsetError) Error() string {
	return fmt.Sprintf("invalid %s offset %d", e.What, e.Offset)
}

// InvalidTrackMatrixError is returned when a track header has no usable transformation matrix.
type InvalidTrackMatrixError struct {
	TrackID uint32
	Size    int
}

// Error returns the error message for InvalidTrackMatrixError.
func (e *InvalidTrackMatrixError) Error() string {
	return fmt.Sprintf("track %d: matrix must be 36 bytes, got %d", e.TrackID, e.Size)
}

// NotSeekableError is returned when an algorithm needs to seek a stream that cannot.
type NotSeekableError struct{}

// Error returns the error message for NotSeekableError.
func (*NotSeekableError) Error() string {
	return "stream is not seekable"
}

// NotRewindableError is returned when a stream cannot go back to its start.
type NotRewindableError struct{}

// Error returns the error message for NotRewindableError.
func (*NotRewindableError) Error() string {
	return "stream is not rewindable"
}

// NotWritableError is returned when the output stream does not accept writes.
type NotWritableError struct{}

// Error returns the error message for NotWritableError.
func (*NotWritableError) Error() string {
	return "stream is not writable"
}

// TooManyCuesError is returned when the cue points do not fit the reserved Cues space.
type TooManyCuesError struct {
	Reserved int
}

// Error returns the error message for TooManyCuesError.
func (e *TooManyCuesError) Error() string {
	return fmt.Sprintf("too many cue points for %d reserved bytes", e.Reserved)
}

// ReservedOverflowError is returned when written data does not match a reserved region.
type ReservedOverflowError struct {
	Region   string
	Reserved int64
	Written  int64
}

// Error returns the error message for ReservedOverflowError.
func (e *ReservedOverflowError) Error() string {
	return fmt.Sprintf("%s: reserved %d bytes, written %d", e.Region, e.Reserved, e.Written)
}

// AlreadyDoneError is returned when a writer or reader is reused after its build.
type AlreadyDoneError struct{}

// Error returns the error message for AlreadyDoneError.
func (*AlreadyDoneError) Error() string {
	return "already done"
}

// AlreadyParsedError is returned on a second Parse call.
type AlreadyParsedError struct{}

// Error returns the error message for AlreadyParsedError.
func (*AlreadyParsedError) Error() string {
	return "already parsed"
}

// NotParsedError is returned when tracks are requested before Parse.
type NotParsedError struct{}

// Error returns the error message for NotParsedError.
func (*NotParsedError) Error() string {
	return "source must be parsed first"
}

// NoTrackSelectedError is returned when a read starts before SelectTrack.
type NoTrackSelectedError struct{}

// Error returns the error message for NoTrackSelectedError.
func (*NoTrackSelectedError) Error() string {
	return "no track selected"
}

// InconsistentTrackCountError is returned when the selected track indexes do not match the sources.
type InconsistentTrackCountError struct {
	Sources int
	Indexes int
}

// Error returns the error message for InconsistentTrackCountError.
func (e *InconsistentTrackCountError) Error() string {
	return fmt.Sprintf("%d track indexes for %d sources", e.Indexes, e.Sources)
}

// TrackIndexError is returned when a track index is out of range.
type TrackIndexError struct {
	Index int
	Count int
}

// Error returns the error message for TrackIndexError.
func (e *TrackIndexError) Error() string {
	return fmt.Sprintf("track index %d out of range [0,%d)", e.Index, e.Count)
}

// UnsupportedTrackError is returned when the selected track kind or codec cannot be written.
type UnsupportedTrackError struct {
	Reason string
}

// Error returns the error message for UnsupportedTrackError.
func (e *UnsupportedTrackError) Error() string {
	return "unsupported track: " + e.Reason
}

// MalformedDocumentError wraps XML decoding failures of subtitle documents.
type MalformedDocumentError struct {
	Err error
}

// Error returns the error message for MalformedDocumentError.
func (e *MalformedDocumentError) Error() string {
	return "malformed document: " + e.Err.Error()
}

// Unwrap returns the underlying parser error.
func (e *MalformedDocumentError) Unwrap() error {
	return e.Err
}

// PacketTooLargeError is returned when a packet cannot be laced into one Ogg page.
type PacketTooLargeError struct {
	Size int
}

// Error returns the error message for PacketTooLargeError.
func (e *PacketTooLargeError) Error() string {
	return fmt.Sprintf("packet of %d bytes does not fit in one Ogg page", e.Size)
}

// TimecodeOverflowError is returned when a block timecode does not fit its cluster.
type TimecodeOverflowError struct {
	Timecode int64
}

// Error returns the error message for TimecodeOverflowError.
func (e *TimecodeOverflowError) Error() string {
	return fmt.Sprintf("block timecode %d does not fit in a signed 16 bit field", e.Timecode)
}

// UnsupportedAlgorithmError is returned for unknown post-processing names.
type UnsupportedAlgorithmError struct {
	Name string
}

// Error returns the error message for UnsupportedAlgorithmError.
func (e *UnsupportedAlgorithmError) Error() string {
	return fmt.Sprintf("unsupported algorithm %q", e.Name)
}

// SourceCountError is returned when an algorithm gets the wrong number of
// sources. Want is 0 when any positive count works.
type SourceCountError struct {
	Algorithm string
	Want, Got int
}

// Error returns the error message for SourceCountError.
func (e *SourceCountError) Error() string {
	if e.Want == 0 {
		return fmt.Sprintf("%s needs at least one source", e.Algorithm)
	}
	return fmt.Sprintf("%s takes %d source(s), got %d", e.Algorithm, e.Want, e.Got)
}
