package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"reelsmith/internal/logging"
	"reelsmith/internal/services"
)

// Download tracks one monitored file.
type Download struct {
	name         string
	startOnce    sync.Once
	finishOnce   sync.Once
	started      chan struct{}
	finished     chan struct{}
	bytesWritten int64
	mu           sync.Mutex
}

func newDownload(name string) *Download {
	return &Download{name: name, started: make(chan struct{}), finished: make(chan struct{})}
}

func (d *Download) markStarted()  { d.startOnce.Do(func() { close(d.started) }) }
func (d *Download) markFinished() { d.finishOnce.Do(func() { close(d.finished) }) }

// Started is closed on the first request for the file.
func (d *Download) Started() <-chan struct{} { return d.started }

// Finished is closed after a complete response was written.
func (d *Download) Finished() <-chan struct{} { return d.finished }

// BytesWritten reports the total body bytes served for the file.
func (d *Download) BytesWritten() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bytesWritten
}

// WaitStarted blocks until the download starts or timeout elapses.
func (d *Download) WaitStarted(ctx context.Context, timeout time.Duration) error {
	return wait(ctx, d.started, timeout, "instagram never requested "+d.name)
}

// WaitFinished blocks until the download completes or timeout elapses.
func (d *Download) WaitFinished(ctx context.Context, timeout time.Duration) error {
	return wait(ctx, d.finished, timeout, "instagram did not finish downloading "+d.name)
}

func wait(ctx context.Context, ch <-chan struct{}, timeout time.Duration, message string) error {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case <-ch:
		return nil
	case <-expired:
		return services.Wrap(services.ErrTimeout, "publish", "download", message, nil)
	case <-ctx.Done():
		return services.Wrap(services.ErrTimeout, "publish", "download", message, ctx.Err())
	}
}

// Server serves the publish folder and reports downloads of watched files.
type Server struct {
	dir    string
	logger *slog.Logger

	mu        sync.Mutex
	downloads map[string]*Download

	listener net.Listener
	srv      *http.Server
	done     chan struct{}
}

// NewServer returns an unstarted server for dir.
func NewServer(dir string, logger *slog.Logger) *Server {
	return &Server{
		dir:       dir,
		logger:    logging.NewComponentLogger(logger, "publish-server"),
		downloads: make(map[string]*Download),
	}
}

// Watch registers name (a file in the served folder) for monitoring,
// replacing any earlier registration.
func (s *Server) Watch(name string) *Download {
	d := newDownload(name)
	s.mu.Lock()
	s.downloads[name] = d
	s.mu.Unlock()
	return d
}

func (s *Server) download(name string) *Download {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.downloads[name]
}

// Start listens on port (0 picks a free port) and serves in the background.
func (s *Server) Start(port int) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return services.Wrap(services.ErrIO, "publish", "serve", fmt.Sprintf("listen on port %d", port), err)
	}
	s.listener = listener
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 30 * time.Second,
	}
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		if err := s.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("publish server stopped", logging.Error(err))
		}
	}()
	s.logger.Info("serving publish folder", logging.String("dir", s.dir), logging.Int("port", s.Port()))
	return nil
}

// Port returns the bound port, 0 before Start.
func (s *Server) Port() int {
	if s.listener == nil {
		return 0
	}
	if addr, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// Close shuts the server down.
func (s *Server) Close() error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.srv.Shutdown(ctx)
	<-s.done
	return err
}

// Handler serves files from the folder, tracking watched downloads.
func (s *Server) Handler() http.Handler {
	files := http.FileServer(http.Dir(s.dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		d := s.download(name)
		if d == nil || r.Method != http.MethodGet {
			files.ServeHTTP(w, r)
			return
		}
		d.markStarted()
		s.logger.Info("download started", logging.String("file", name), logging.String("remote", r.RemoteAddr))
		cw := &countingWriter{ResponseWriter: w, status: http.StatusOK}
		files.ServeHTTP(cw, r)
		d.mu.Lock()
		d.bytesWritten += cw.written
		d.mu.Unlock()
		if r.Context().Err() == nil && (cw.status == http.StatusOK || cw.status == http.StatusPartialContent) {
			d.markFinished()
			s.logger.Info("download finished", logging.String("file", name), logging.Int64("bytes", cw.written))
		}
	})
}

type countingWriter struct {
	http.ResponseWriter
	status  int
	written int64
}

func (w *countingWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *countingWriter) Write(p []byte) (int, error) {
	n, err := w.ResponseWriter.Write(p)
	w.written += int64(n)
	return n, err
}
