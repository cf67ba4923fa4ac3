package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ugparu/remux/internal/config"
	"github.com/ugparu/remux/postprocess"
	"github.com/ugparu/remux/utils"
	"github.com/ugparu/remux/utils/lifecycle"
)

const document = `<tt xmlns="http://www.w3.org/ns/ttml"><body><div>` +
	`<p begin="00:00:01.000" end="00:00:02.500">Hello&#xA0;World</p>` +
	`</div></body></tt>`

const srt = "1\r\n00:00:01,000 --> 00:00:02,500\r\nHello World\r\n\r\n"

func newServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.TempDir = t.TempDir()
	cfg.Addr = "127.0.0.1:0"
	pool := NewPool(1)
	pool.Start()
	t.Cleanup(pool.Close)
	return NewServer(cfg, pool)
}

func upload(t *testing.T, s *Server, algorithm string, args []string, sources ...string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, a := range args {
		require.NoError(t, mw.WriteField("arg", a))
	}
	for i, src := range sources {
		fw, err := mw.CreateFormFile("source", fmt.Sprintf("source-%d", i))
		require.NoError(t, err)
		_, err = fw.Write([]byte(src))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/remux/"+algorithm, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestAlgorithms(t *testing.T) {
	t.Parallel()

	s := newServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/algorithms", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Algorithms []string `json:"algorithms"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, postprocess.Names(), got.Algorithms)
}

func TestRemuxTTML(t *testing.T) {
	t.Parallel()

	s := newServer(t)
	rec := upload(t, s, postprocess.TTML, []string{"true"}, document)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, srt, rec.Body.String())
	require.Equal(t, "application/x-subrip", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "output.srt")

	entries, err := os.ReadDir(s.cfg.TempDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestRemuxErrors(t *testing.T) {
	t.Parallel()

	s := newServer(t)
	tests := []struct {
		name      string
		algorithm string
		args      []string
		sources   []string
		status    int
	}{
		{"unknown algorithm", "mkv", nil, []string{document}, http.StatusBadRequest},
		{"bad argument", postprocess.TTML, []string{"perhaps"}, []string{document}, http.StatusBadRequest},
		{"no source", postprocess.TTML, nil, nil, http.StatusBadRequest},
		{"malformed document", postprocess.TTML, nil, []string{"<tt><body>"}, http.StatusUnprocessableEntity},
		{"two documents", postprocess.TTML, nil, []string{document, document}, http.StatusUnprocessableEntity},
		{"not webm", postprocess.OggFromWebM, nil, []string{"plain text"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		rec := upload(t, s, tt.algorithm, tt.args, tt.sources...)
		require.Equal(t, tt.status, rec.Code, tt.name)
		var body struct {
			Error string `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), tt.name)
		require.NotEmpty(t, body.Error, tt.name)
	}
}

func TestRemuxNothingToDo(t *testing.T) {
	t.Parallel()

	s := newServer(t)
	// an mp4 whose major brand is not dash is left alone
	ftyp := "\x00\x00\x00\x14ftypM4A \x00\x00\x00\x00mp42"
	rec := upload(t, s, postprocess.M4ANoDash, nil, ftyp)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Body.Bytes())
}

func TestJobRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "in.ttml")
	require.NoError(t, os.WriteFile(src, []byte(document), 0o600))
	j := &Job{Algorithm: postprocess.TTML, Sources: []string{src}, Output: filepath.Join(dir, "out.srt")}
	processed, err := j.Run()
	require.NoError(t, err)
	require.True(t, processed)
	out, err := os.ReadFile(j.Output)
	require.NoError(t, err)
	require.Equal(t, srt, string(out))

	j = &Job{Algorithm: postprocess.TTML, Sources: []string{filepath.Join(dir, "missing")}, Output: filepath.Join(dir, "x")}
	_, err = j.Run()
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestSubmitCanceled(t *testing.T) {
	t.Parallel()

	pool := NewPool(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := pool.Submit(ctx, &Job{Algorithm: postprocess.TTML})
	require.ErrorIs(t, err, context.Canceled)
	pool.Close()
}

func TestStatusOf(t *testing.T) {
	t.Parallel()

	require.Equal(t, http.StatusUnprocessableEntity, statusOf(&utils.MalformedDocumentError{Err: errors.New("x")}))
	require.Equal(t, http.StatusUnprocessableEntity, statusOf(&utils.SourceCountError{Algorithm: "ttml", Want: 1, Got: 2}))
	require.Equal(t, http.StatusInternalServerError, statusOf(os.ErrPermission))
}

func TestServerStartClose(t *testing.T) {
	t.Parallel()

	s := newServer(t)
	require.NoError(t, s.Start())
	var already *lifecycle.StartedAlreadyError
	require.ErrorAs(t, s.Start(), &already)
	s.Close()
	select {
	case <-s.Dead():
	case <-time.After(5 * time.Second):
		t.Fatal("server still serving")
	}
}
