package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSRT(t *testing.T) {
	in := writeFile(t, "in.ttml", `<tt xmlns="http://www.w3.org/ns/ttml"><body><div>`+
		`<p begin="1s" end="2s">one</p>`+
		`<p begin="2s" end="3s"> </p>`+
		`</div></body></tt>`)
	out := filepath.Join(t.TempDir(), "out.srt")

	_, err := execute(t, "srt", "--ignore-empty", out, in)
	require.NoError(t, err)
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "1\r\n00:00:01,000 --> 00:00:02,000\r\none\r\n\r\n", string(got))
}

func TestSRTMalformed(t *testing.T) {
	in := writeFile(t, "in.ttml", `<tt xmlns="http://www.w3.org/ns/ttml"><body>`)
	out := filepath.Join(t.TempDir(), "out.srt")

	_, err := execute(t, "srt", out, in)
	require.Error(t, err)
	require.NoFileExists(t, out)
}

func TestM4ANothingToDo(t *testing.T) {
	in := writeFile(t, "in.m4a", "\x00\x00\x00\x14ftypM4A \x00\x00\x00\x00mp42")
	out := filepath.Join(t.TempDir(), "out.m4a")

	msg, err := execute(t, "m4a", out, in)
	require.NoError(t, err)
	require.Contains(t, msg, "nothing to do")
	require.NoFileExists(t, out)
}

func TestArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing sources", []string{"webm", "out.webm"}},
		{"two ogg sources", []string{"ogg", "out.ogg", "a.webm", "b.webm"}},
		{"bad brand", []string{"mp4", "--brand", "dash5", "out.mp4", "in.mp4"}},
		{"bad log level", []string{"--log-level", "loud", "srt", "out.srt", "in.ttml"}},
		{"missing source file", []string{"fmp4", "out.mp4", filepath.Join(t.TempDir(), "none.mp4")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
		})
	}
}

func TestProbeShortFile(t *testing.T) {
	in := writeFile(t, "in.bin", "\x1a")
	_, err := execute(t, "probe", in)
	require.Error(t, err)
}
