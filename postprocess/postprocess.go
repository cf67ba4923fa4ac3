// Package postprocess names the remux operations applied to finished
// downloads, so callers can pick one by its name and arguments.
package postprocess

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ugparu/remux"
	"github.com/ugparu/remux/utils"
	"github.com/ugparu/remux/utils/logger"
)

// Algorithm names.
const (
	TTML        = "ttml"
	WebM        = "webm"
	MP4FromDash = "mp4D-mp4"
	M4ANoDash   = "mp4D-m4a"
	OggFromWebM = "webm-ogg-d"
)

// Algorithm turns one or more source streams into a single output.
type Algorithm interface {
	Name() string
	// Test reports whether Process is needed at all. It may read the
	// sources but leaves them open.
	Test(sources ...remux.Stream) (bool, error)
	// Process writes the result to out. It closes the sources.
	Process(out remux.Stream, sources ...remux.Stream) error
}

type factory func(args []string) (Algorithm, error)

var registry = map[string]factory{
	TTML:        newTTMLConverter,
	WebM:        func([]string) (Algorithm, error) { return &webmMuxer{}, nil },
	MP4FromDash: func([]string) (Algorithm, error) { return &mp4Muxer{name: MP4FromDash}, nil },
	M4ANoDash:   func([]string) (Algorithm, error) { return &mp4Muxer{name: M4ANoDash, brand: "M4A ", test: true}, nil },
	OggFromWebM: func([]string) (Algorithm, error) { return &oggDemuxer{}, nil },
}

// Get returns the algorithm called name, configured by args.
func Get(name string, args ...string) (Algorithm, error) {
	f, ok := registry[name]
	if !ok {
		return nil, &utils.UnsupportedAlgorithmError{Name: name}
	}
	return f(args)
}

// Names lists the known algorithms, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run tests the sources, rewinds them and processes them into out. It
// reports whether anything was written. The sources are closed in every
// case.
func Run(a Algorithm, out remux.Stream, sources ...remux.Stream) (processed bool, err error) {
	defer func() {
		if processed {
			return
		}
		for _, s := range sources {
			err = errors.Join(err, s.Close())
		}
	}()
	if !out.CanWrite() {
		return false, &utils.NotWritableError{}
	}
	needed, err := a.Test(sources...)
	if err != nil {
		return false, fmt.Errorf("%s: test: %w", a.Name(), err)
	}
	if !needed {
		logger.Infof(a.Name(), "nothing to do")
		return false, nil
	}
	for _, s := range sources {
		if err = s.Rewind(); err != nil {
			return false, err
		}
	}
	if err = a.Process(out, sources...); err != nil {
		return true, fmt.Errorf("%s: %w", a.Name(), err)
	}
	logger.Debugf(a.Name(), "%d source(s) written, %d bytes", len(sources), out.Position())
	return true, nil
}

func expect(name string, want int, sources []remux.Stream) error {
	if want > 0 && len(sources) != want || len(sources) == 0 {
		return &utils.SourceCountError{Algorithm: name, Want: want, Got: len(sources)}
	}
	return nil
}

// closeAll closes every source, keeping err when it is already set.
func closeAll(err *error, sources []remux.Stream) {
	for _, s := range sources {
		if cerr := s.Close(); cerr != nil && *err == nil {
			*err = cerr
		}
	}
}
