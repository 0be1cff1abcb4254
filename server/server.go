// Package server exposes the inference engine over HTTP: a JSON API, a
// server-rendered form, the feature schema and Prometheus metrics.
package server

import (
	"context"
	"embed"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/peakwhale/harbor/inference"
	"github.com/peakwhale/harbor/pkg/errors"
	"github.com/peakwhale/harbor/pkg/log"
	"github.com/peakwhale/harbor/schema"
)

// AppName is reported by /health and /schema and shown on the form.
const AppName = "PeakWhale Harbor"

//go:embed templates/*.html
var templateFS embed.FS

// Predictor computes predictions for validated rows. *inference.Engine
// implements it.
type Predictor interface {
	Schema() *schema.Schema
	Predict(ctx context.Context, row schema.FeatureRow) (inference.Result, error)
}

// Options configures a Server.
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64

	Logger log.Logger

	// Registry receives the server's collectors and backs /metrics.
	// nil means a fresh registry from NewRegistry.
	Registry *prometheus.Registry
}

// Server serves the Harbor HTTP API.
type Server struct {
	predictor Predictor
	schema    *schema.Schema
	logger    log.Logger
	metrics   *serverMetrics
	tmpl      *template.Template
	schemaDoc []byte

	shutdownTimeout time.Duration
	httpServer      *http.Server
}

// New builds a Server. It renders the /schema document once, running one
// example prediction through p to fill in the example response.
func New(p Predictor, opts Options) (*Server, error) {
	if p == nil {
		return nil, errors.New("server: predictor is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 15 * time.Second
	}

	tmpl, err := template.ParseFS(templateFS, "templates/home.html")
	if err != nil {
		return nil, errors.Wrap(err, "parse templates")
	}

	s := &Server{
		predictor:       p,
		schema:          p.Schema(),
		logger:          logger.With(log.ComponentKey, "server"),
		metrics:         newServerMetrics(reg),
		tmpl:            tmpl,
		shutdownTimeout: opts.ShutdownTimeout,
	}
	if s.schemaDoc, err = s.buildSchemaDoc(); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /schema", s.handleSchema)
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("POST /predict_api", s.handlePredictAPI)
	mux.HandleFunc("POST /predict", s.handlePredictForm)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	handler := Chain(
		s.observe,
		s.recovery,
		limitBody(opts.MaxBodyBytes),
	)(mux)

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Serve accepts connections on l until ctx is canceled, then shuts down
// gracefully, letting in-flight requests finish within the shutdown timeout.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", log.AddrKey, l.Addr().String())
		if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- errors.Wrap(err, "http server failed")
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "http server forced to shutdown")
	}
	return <-errCh
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	l, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.httpServer.Addr)
	}
	return s.Serve(ctx, l)
}
