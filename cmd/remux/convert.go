package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ugparu/remux"
	"github.com/ugparu/remux/format/fmp4"
	"github.com/ugparu/remux/format/mp4"
	"github.com/ugparu/remux/format/mp4/dash"
	"github.com/ugparu/remux/postprocess"
	"github.com/ugparu/remux/utils/stream"
)

func openAll(paths []string) ([]remux.Stream, error) {
	sources := make([]remux.Stream, 0, len(paths))
	for _, p := range paths {
		s, err := stream.Open(p)
		if err != nil {
			for _, opened := range sources {
				opened.Close()
			}
			return nil, err
		}
		sources = append(sources, s)
	}
	return sources, nil
}

// run applies a post-processing algorithm to the input files. The output
// file is removed again on failure or when the input needs no processing.
func run(cmd *cobra.Command, name string, args []string, output string, inputs []string) (err error) {
	if err = cmd.Context().Err(); err != nil {
		return err
	}
	a, err := postprocess.Get(name, args...)
	if err != nil {
		return err
	}
	sources, err := openAll(inputs)
	if err != nil {
		return err
	}
	out, err := stream.Create(output)
	if err != nil {
		for _, s := range sources {
			s.Close()
		}
		return err
	}
	processed, err := postprocess.Run(a, out, sources...)
	err = errors.Join(err, out.Close())
	if err == nil && !processed {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: nothing to do, %s left as is\n", name, inputs[0])
		err = os.Remove(output)
	}
	if err != nil {
		os.Remove(output)
	}
	return err
}

func newMP4Cmd() *cobra.Command {
	var brand string
	cmd := &cobra.Command{
		Use:   "mp4 <output> <source>...",
		Short: "Flatten DASH mp4 tracks into one progressive mp4",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if brand == "" {
				return run(cmd, postprocess.MP4FromDash, nil, args[0], args[1:])
			}
			return flatten(cmd, brand, args[0], args[1:])
		},
	}
	cmd.Flags().StringVar(&brand, "brand", "", "major brand of the output, mp42 when empty")
	return cmd
}

// flatten is mp4D-mp4 with a chosen major brand.
func flatten(cmd *cobra.Command, brand, output string, inputs []string) (err error) {
	if len(brand) != 4 {
		return fmt.Errorf("brand %q is not four characters", brand)
	}
	readers, err := dashReaders(inputs)
	if err != nil {
		return err
	}
	defer func() {
		for _, r := range readers {
			err = errors.Join(err, r.Close())
		}
	}()
	if err = cmd.Context().Err(); err != nil {
		return err
	}
	out, err := stream.Create(output)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, out.Close())
	}()
	w := mp4.NewRemuxWriter(readers...)
	w.SetMainBrand(brand)
	if err = w.SelectTracks(make([]int, len(readers))...); err != nil {
		return err
	}
	return w.Build(out)
}

func dashReaders(inputs []string) ([]*dash.Reader, error) {
	sources, err := openAll(inputs)
	if err != nil {
		return nil, err
	}
	readers := make([]*dash.Reader, len(sources))
	for i, s := range sources {
		readers[i] = dash.NewReader(s)
	}
	for _, r := range readers {
		if err = r.Parse(); err != nil {
			for _, r := range readers {
				r.Close()
			}
			return nil, err
		}
	}
	return readers, nil
}

func newM4ACmd() *cobra.Command {
	return &cobra.Command{
		Use:   "m4a <output> <source>",
		Short: "Turn a DASH audio track into an m4a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, postprocess.M4ANoDash, nil, args[0], args[1:])
		},
	}
}

func newFMP4Cmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fmp4 <output> <source>...",
		Short: "Rewrite DASH mp4 tracks as one fragmented mp4 with sidx and mfra",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			readers, err := dashReaders(args[1:])
			if err != nil {
				return err
			}
			defer func() {
				for _, r := range readers {
					err = errors.Join(err, r.Close())
				}
			}()
			for _, r := range readers {
				if _, err = r.SelectTrack(0); err != nil {
					return err
				}
			}
			if err = cmd.Context().Err(); err != nil {
				return err
			}
			out, err := stream.Create(args[0])
			if err != nil {
				return err
			}
			defer func() {
				err = errors.Join(err, out.Close())
			}()
			return fmp4.NewWriter(out, readers...).Build()
		},
	}
}

func newWebMCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "webm <output> <video> [audio]...",
		Short: "Mux WebM video and audio into one seekable WebM with cues",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, postprocess.WebM, nil, args[0], args[1:])
		},
	}
}

func newOggCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ogg <output> <source>",
		Short: "Extract the Opus or Vorbis track of a WebM file into Ogg",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, postprocess.OggFromWebM, nil, args[0], args[1:])
		},
	}
}

func newSRTCmd() *cobra.Command {
	var ignoreEmpty, dedupe bool
	cmd := &cobra.Command{
		Use:   "srt <output> <source>",
		Short: "Convert TTML or YouTube timed text subtitles to SubRip",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []string{strconv.FormatBool(ignoreEmpty), strconv.FormatBool(dedupe)}
			return run(cmd, postprocess.TTML, opts, args[0], args[1:])
		},
	}
	cmd.Flags().BoolVar(&ignoreEmpty, "ignore-empty", false, "drop frames holding only whitespace")
	cmd.Flags().BoolVar(&dedupe, "dedupe", false, "trim duplicated lines of auto-generated captions")
	return cmd
}
