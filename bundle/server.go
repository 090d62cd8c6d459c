package bundle

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 8080
)

// ServerConfig configures the dev server.
type ServerConfig struct {
	// Root is the directory holding index.html and the built assets.
	Root string
	Host string
	// Port defaults to $PORT, then 8080.
	Port   int
	Logger *slog.Logger
}

func (c *ServerConfig) defaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port <= 0 {
		if p, err := strconv.Atoi(os.Getenv("PORT")); err == nil && p > 0 {
			c.Port = p
		} else {
			c.Port = DefaultPort
		}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Server serves a bundle directory with history-API fallback: any GET for
// a path that is neither a file nor an asset answers with index.html, so
// client-side routes load the app.
type Server struct {
	cfg  ServerConfig
	fsys fs.FS
}

// NewServer returns a Server for cfg.Root.
func NewServer(cfg ServerConfig) (*Server, error) {
	cfg.defaults()
	if cfg.Root == "" {
		return nil, errors.New("bundle: server root is empty")
	}
	st, err := os.Stat(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("bundle: server root: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("bundle: server root %s is not a directory", cfg.Root)
	}
	return &Server{cfg: cfg, fsys: os.DirFS(cfg.Root)}, nil
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Handler returns the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.CleanPath)
	r.Use(s.logRequests)

	files := http.FileServerFS(s.fsys)
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		if s.exists(r.URL.Path) || path.Ext(r.URL.Path) != "" {
			files.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFileFS(w, r, s.fsys, "index.html")
	})
	return r
}

func (s *Server) exists(urlPath string) bool {
	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if name == "" {
		name = "."
	}
	_, err := fs.Stat(s.fsys, name)
	return err == nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.cfg.Logger.Debug("bundle: request",
			"method", r.Method, "path", r.URL.Path, "status", ww.Status(), "dur", time.Since(start))
	})
}

// ListenAndServe listens on Addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("bundle: listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.cfg.Logger.Info("bundle: serving", "addr", ln.Addr().String(), "root", s.cfg.Root)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("bundle: serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("bundle: shutdown: %w", err)
	}
	s.cfg.Logger.Info("bundle: stopped")
	return nil
}
