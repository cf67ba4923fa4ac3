package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"

	"github.com/ugparu/remux/internal/config"
	"github.com/ugparu/remux/postprocess"
	"github.com/ugparu/remux/utils"
	"github.com/ugparu/remux/utils/lifecycle"
	"github.com/ugparu/remux/utils/logger"
)

const shutdownTimeout = 10 * time.Second

// outputs holds the file extension and content type of every algorithm.
var outputs = map[string][2]string{
	postprocess.TTML:        {".srt", "application/x-subrip"},
	postprocess.WebM:        {".webm", "video/webm"},
	postprocess.MP4FromDash: {".mp4", "video/mp4"},
	postprocess.M4ANoDash:   {".m4a", "audio/mp4"},
	postprocess.OggFromWebM: {".ogg", "audio/ogg"},
}

type Server struct {
	cfg     *config.Config
	pool    *Pool
	router  *gin.Engine
	server  *http.Server
	manager lifecycle.Manager[*Server]
	dead    chan struct{}
}

func NewServer(cfg *config.Config, pool *Pool) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Pprof {
		pprof.Register(router)
	}

	s := &Server{
		cfg:    cfg,
		pool:   pool,
		router: router,
		server: &http.Server{Addr: cfg.Addr, Handler: router},
		dead:   make(chan struct{}),
	}
	s.manager = lifecycle.NewDefaultManager(s)

	router.GET("/v1/algorithms", s.algorithms)
	router.POST("/v1/remux/:algorithm", s.remux)
	logger.Debug(s, "Initialized and set up")
	return s
}

func (s *Server) String() string {
	return "HTTP_SERVER"
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listen address and serves in the background.
func (s *Server) Start() error {
	return s.manager.Start(func(s *Server) error {
		ln, err := net.Listen("tcp", s.server.Addr)
		if err != nil {
			close(s.dead)
			return err
		}
		logger.Infof(s, "Listening on %s", ln.Addr())
		go func() {
			defer close(s.dead)
			if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warning(s, err.Error())
			}
		}()
		return nil
	})
}

// Dead is closed once the server stops serving.
func (s *Server) Dead() <-chan struct{} {
	return s.dead
}

func (s *Server) Close() {
	s.manager.Close()
}

func (s *Server) Close_() {
	logger.Warning(s, "Stopping and closing")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		logger.Warning(s, err.Error())
	}
}

func (s *Server) algorithms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"algorithms": postprocess.Names()})
}

// remux takes the multipart files "source", in order, and the optional
// "arg" values of the algorithm. It answers 204 when the sources need no
// processing.
func (s *Server) remux(c *gin.Context) {
	name := c.Param("algorithm")
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.UploadLimit)
	form, err := c.MultipartForm()
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	args := form.Value["arg"]
	if _, err = postprocess.Get(name, args...); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	files := form.File["source"]
	if len(files) == 0 {
		fail(c, http.StatusBadRequest, errors.New(`no "source" file`))
		return
	}

	dir, err := os.MkdirTemp(s.cfg.TempDir, "remux-")
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	defer os.RemoveAll(dir)

	job := &Job{Algorithm: name, Args: args, Output: filepath.Join(dir, "output")}
	for i, fh := range files {
		path := filepath.Join(dir, fmt.Sprintf("source-%d", i))
		if err = c.SaveUploadedFile(fh, path); err != nil {
			fail(c, http.StatusInternalServerError, err)
			return
		}
		job.Sources = append(job.Sources, path)
	}

	res, err := s.pool.Submit(c.Request.Context(), job)
	if err != nil {
		fail(c, http.StatusServiceUnavailable, err)
		return
	}
	if res.Err != nil {
		fail(c, statusOf(res.Err), res.Err)
		return
	}
	if !res.Processed {
		c.Status(http.StatusNoContent)
		return
	}
	out := outputs[name]
	c.Header("Content-Type", out[1])
	c.FileAttachment(job.Output, "output"+out[0])
}

// statusOf maps input problems to 422 and everything else to 500.
func statusOf(err error) int {
	var (
		format    *utils.UnsupportedFormatError
		document  *utils.MalformedDocumentError
		box       *utils.MissingBoxError
		metadata  *utils.MissingMetadataError
		unexpect  *utils.UnexpectedBoxError
		truncated *utils.TruncatedStreamError
		offset    *utils.InvalidOffsetError
		track     *utils.UnsupportedTrackError
		packet    *utils.PacketTooLargeError
		cues      *utils.TooManyCuesError
		count     *utils.SourceCountError
	)
	switch {
	case errors.As(err, &format), errors.As(err, &document), errors.As(err, &box),
		errors.As(err, &metadata), errors.As(err, &unexpect), errors.As(err, &truncated),
		errors.As(err, &offset), errors.As(err, &track), errors.As(err, &packet),
		errors.As(err, &cues), errors.As(err, &count):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, status int, err error) {
	logger.Warningf("HTTP_SERVER", "%s %s: %d %s", c.Request.Method, c.Request.URL.Path, status, err)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
