package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ugparu/remux"
	"github.com/ugparu/remux/format/mp4"
	"github.com/ugparu/remux/format/mp4/dash"
	"github.com/ugparu/remux/format/webm"
	"github.com/ugparu/remux/utils"
	"github.com/ugparu/remux/utils/stream"
)

var ebmlMagic = []byte{0x1A, 0x45, 0xDF, 0xA3}

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>",
		Short: "List the tracks of an mp4 or WebM file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := stream.Open(args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			layout, tracks, err := probe(s)
			if err != nil {
				return err
			}
			out := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(out, "%s\n", layout)
			for i, t := range tracks {
				fmt.Fprintf(out, "%d\t%s\t%s\n", i, t.Kind(), t.Codec())
			}
			return out.Flush()
		},
	}
}

// probe sniffs the container of s and returns its layout name and tracks.
// The stream is left open.
func probe(s remux.Stream) (string, []remux.Track, error) {
	magic := make([]byte, len(ebmlMagic))
	if _, err := io.ReadFull(s, magic); err != nil {
		return "", nil, err
	}
	if err := s.Rewind(); err != nil {
		return "", nil, err
	}
	if bytes.Equal(magic, ebmlMagic) {
		r := webm.NewReader(s)
		if err := r.Parse(); err != nil {
			return "", nil, err
		}
		tracks, err := r.Tracks()
		return "webm", generic(tracks), err
	}

	d := dash.NewReader(s)
	err := d.Parse()
	if err == nil {
		tracks, err := d.Tracks()
		return "dash mp4", generic(tracks), err
	}
	var unsupported *utils.UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		return "", nil, err
	}
	if err = s.Rewind(); err != nil {
		return "", nil, err
	}
	m := mp4.NewReader(s)
	if err = m.Parse(); err != nil {
		return "", nil, err
	}
	tracks, err := m.Tracks()
	return "mp4", generic(tracks), err
}

func generic[T remux.Track](tracks []T) []remux.Track {
	out := make([]remux.Track, len(tracks))
	for i, t := range tracks {
		out[i] = t
	}
	return out
}
