package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/shamank/zgstore-go/pkg/sdk"
)

// DefaultMaxUploadBytes bounds multipart and JSON request bodies.
const DefaultMaxUploadBytes = 64 << 20

// Options configures a Server.
type Options struct {
	// TempDir receives downloaded files before they are streamed to the
	// client. Defaults to os.TempDir().
	TempDir string
	// MaxUploadBytes bounds request bodies. Default DefaultMaxUploadBytes.
	MaxUploadBytes int64
	// HealthTimeout bounds the endpoint probes behind /api/health. Default 10s.
	HealthTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.TempDir == "" {
		o.TempDir = os.TempDir()
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if o.HealthTimeout <= 0 {
		o.HealthTimeout = 10 * time.Second
	}
	return o
}

// Server exposes the storage calls over HTTP.
type Server struct {
	store sdk.Storage
	opts  Options
	mux   *http.ServeMux
}

// New builds a Server serving store.
func New(store sdk.Storage, opts Options) *Server {
	s := &Server{store: store, opts: opts.withDefaults(), mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /api/upload/file", s.handleUploadFile)
	s.mux.HandleFunc("POST /api/upload/json", s.handleUploadJSON)
	s.mux.HandleFunc("GET /api/download/file/{rootHash}", s.handleDownloadFile)
	s.mux.HandleFunc("GET /api/download/json/{rootHash}", s.handleDownloadJSON)
	s.mux.HandleFunc("GET /api/download-transaction", s.handleDownloadTransaction)
	s.mux.HandleFunc("POST /api/upload-transaction", s.handleUploadTransaction)
	s.mux.HandleFunc("POST /api/kv", s.handleKV)
	s.mux.HandleFunc("GET /api/kv", s.handleKVLookup)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	return s
}

// ServeHTTP logs every request and dispatches it.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	zap.L().Info("http request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", rec.status),
		zap.Duration("latency", time.Since(start)))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	zap.L().Info("HTTP gateway listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
