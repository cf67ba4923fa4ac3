package remux

// TrackKind is the media kind of an elementary stream.
type TrackKind uint8

// Track kinds.
const (
	Other TrackKind = iota
	Video
	Audio
	Subtitles
)

// String returns the human-readable name of the kind.
func (k TrackKind) String() string {
	switch k {
	case Video:
		return "video"
	case Audio:
		return "audio"
	case Subtitles:
		return "subtitles"
	default:
		return "other"
	}
}
