package postprocess

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ugparu/remux"
	"github.com/ugparu/remux/format/mp4"
	"github.com/ugparu/remux/format/mp4/dash"
	"github.com/ugparu/remux/format/ogg"
	"github.com/ugparu/remux/format/ttml"
	"github.com/ugparu/remux/format/webm"
	"github.com/ugparu/remux/utils"
)

// ttmlConverter writes SubRip subtitles. Its arguments are the booleans
// ignoreEmptyFrames and detectYoutubeDuplicateLines, both optional.
type ttmlConverter struct {
	opts ttml.Options
}

func newTTMLConverter(args []string) (Algorithm, error) {
	c := &ttmlConverter{}
	flags := []*bool{&c.opts.IgnoreEmptyFrames, &c.opts.DetectYoutubeDuplicateLines}
	if len(args) > len(flags) {
		return nil, fmt.Errorf("%s: %d arguments, at most %d", TTML, len(args), len(flags))
	}
	for i, arg := range args {
		v, err := strconv.ParseBool(arg)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", TTML, i, err)
		}
		*flags[i] = v
	}
	return c, nil
}

func (c *ttmlConverter) Name() string { return TTML }

func (c *ttmlConverter) Test(sources ...remux.Stream) (bool, error) {
	return true, expect(TTML, 1, sources)
}

func (c *ttmlConverter) Process(out remux.Stream, sources ...remux.Stream) (err error) {
	defer closeAll(&err, sources)
	if err = expect(TTML, 1, sources); err != nil {
		return err
	}
	return ttml.Convert(out, sources[0], c.opts)
}

// webmMuxer joins a video and one or more audio WebM files.
type webmMuxer struct{}

func (m *webmMuxer) Name() string { return WebM }

func (m *webmMuxer) Test(sources ...remux.Stream) (bool, error) {
	return true, expect(WebM, 0, sources)
}

func (m *webmMuxer) Process(out remux.Stream, sources ...remux.Stream) (err error) {
	if err = expect(WebM, 0, sources); err != nil {
		closeAll(&err, sources)
		return err
	}
	readers := make([]*webm.Reader, len(sources))
	for i, s := range sources {
		readers[i] = webm.NewReader(s)
	}
	defer func() {
		for _, r := range readers {
			err = errors.Join(err, r.Close())
		}
	}()

	indexes := make([]int, len(readers))
	for i, r := range readers {
		if err = r.Parse(); err != nil {
			return err
		}
		var tracks []*webm.Track
		if tracks, err = r.Tracks(); err != nil {
			return err
		}
		// the first source brings the video, the others the audio; YouTube
		// audio files may carry a still image track as well
		want := remux.Audio
		if i == 0 {
			want = remux.Video
		}
		for j, t := range tracks {
			if t.Kind() == want {
				indexes[i] = j
				break
			}
		}
	}
	w := webm.NewRemuxWriter(readers...)
	if err = w.SelectTracks(indexes...); err != nil {
		return err
	}
	return w.Build(out)
}

// mp4Muxer flattens DASH mp4 sources. With test set it only runs on DASH
// input, so an ordinary m4a is left alone.
type mp4Muxer struct {
	name  string
	brand string
	test  bool
}

func (m *mp4Muxer) Name() string { return m.name }

func (m *mp4Muxer) Test(sources ...remux.Stream) (bool, error) {
	if err := expect(m.name, 0, sources); err != nil {
		return false, err
	}
	if !m.test {
		return true, nil
	}
	err := dash.NewReader(sources[0]).Parse()
	var unsupported *utils.UnsupportedFormatError
	if errors.As(err, &unsupported) {
		return false, nil
	}
	return err == nil, err
}

func (m *mp4Muxer) Process(out remux.Stream, sources ...remux.Stream) (err error) {
	if err = expect(m.name, 0, sources); err != nil {
		closeAll(&err, sources)
		return err
	}
	readers := make([]*dash.Reader, len(sources))
	for i, s := range sources {
		readers[i] = dash.NewReader(s)
	}
	defer func() {
		for _, r := range readers {
			err = errors.Join(err, r.Close())
		}
	}()

	for _, r := range readers {
		if err = r.Parse(); err != nil {
			return err
		}
	}
	w := mp4.NewRemuxWriter(readers...)
	if m.brand != "" {
		w.SetMainBrand(m.brand)
	}
	if err = w.SelectTracks(make([]int, len(readers))...); err != nil {
		return err
	}
	return w.Build(out)
}

// oggDemuxer extracts the Opus or Vorbis track of a WebM audio file.
type oggDemuxer struct{}

func (d *oggDemuxer) Name() string { return OggFromWebM }

// xiphTrack returns the index of the first Opus or Vorbis track, or -1.
func xiphTrack(tracks []*webm.Track) int {
	for i, t := range tracks {
		if t.CodecID == "A_OPUS" || t.CodecID == "A_VORBIS" {
			return i
		}
	}
	return -1
}

func (d *oggDemuxer) Test(sources ...remux.Stream) (bool, error) {
	if err := expect(OggFromWebM, 1, sources); err != nil {
		return false, err
	}
	r := webm.NewReader(sources[0])
	if err := r.Parse(); err != nil {
		return false, err
	}
	tracks, err := r.Tracks()
	if err != nil {
		return false, err
	}
	return xiphTrack(tracks) >= 0, nil
}

func (d *oggDemuxer) Process(out remux.Stream, sources ...remux.Stream) (err error) {
	if err = expect(OggFromWebM, 1, sources); err != nil {
		closeAll(&err, sources)
		return err
	}
	r := webm.NewReader(sources[0])
	defer func() {
		err = errors.Join(err, r.Close())
	}()
	if err = r.Parse(); err != nil {
		return err
	}
	tracks, err := r.Tracks()
	if err != nil {
		return err
	}
	index := xiphTrack(tracks)
	if index < 0 {
		return &utils.UnsupportedTrackError{Reason: "no Opus or Vorbis track"}
	}
	w := ogg.NewWriter(r)
	if err = w.SelectTrack(index); err != nil {
		return err
	}
	return w.Build(out)
}
