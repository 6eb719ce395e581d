package signer

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/taurusgroup/tss-factors/pkg/pool"
	"go.uber.org/atomic"
)

// RequestIDHeader carries the id of a request, generated if the client did not send one.
const RequestIDHeader = "X-Request-Id"

// Server is the HTTP server of a third party signer.
type Server struct {
	cfg     Config
	isReady atomic.Bool
	log     zerolog.Logger
	handler *Handler
	pool    *pool.Pool
	srv     *http.Server
}

func New(cfg Config, handler *Handler, log zerolog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, errors.New("signer: nil handler")
	}
	handler.maxBodySize = cfg.MaxBodySize

	srv := &Server{
		cfg:     cfg,
		log:     log,
		handler: handler,
	}
	if cfg.Workers > 0 {
		srv.pool = pool.NewPool(cfg.Workers)
		handler.reconstructor.Pool = srv.pool
	}
	srv.isReady.Store(true)
	srv.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return srv, nil
}

// Router returns the routes of the server.
func (srv *Server) Router() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Use(srv.requestLogger)

	mux.Get("/factorPub", srv.handler.HandleFactorPub)
	mux.Post("/sign", srv.handler.HandleSign)

	mux.Get("/livez", srv.handleLivenessCheck)
	mux.Get("/readyz", srv.handleReadinessCheck)
	return mux
}

// requestLogger tags every request with an id, and puts a logger carrying it in the request context.
func (srv *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		log := srv.log.With().
			Str("request_id", id).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(log.WithContext(r.Context())))
		log.Debug().Int("status", ww.Status()).Int("bytes", ww.BytesWritten()).Msg("request")
	})
}

func (srv *Server) handleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (srv *Server) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// SetReady changes what /readyz reports.
func (srv *Server) SetReady(ready bool) {
	srv.isReady.Store(ready)
}

// RunInBackground starts listening. Errors other than a shutdown are logged.
func (srv *Server) RunInBackground() {
	go func() {
		srv.log.Info().Str("listen_addr", srv.cfg.ListenAddr).Msg("starting HTTP server")
		if err := srv.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.log.Error().Err(err).Msg("HTTP server failed")
		}
	}()
}

// Shutdown marks the server not ready and stops it gracefully.
func (srv *Server) Shutdown() {
	srv.isReady.Store(false)
	ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
	defer cancel()
	if err := srv.srv.Shutdown(ctx); err != nil {
		srv.log.Error().Err(err).Msg("graceful HTTP server shutdown failed")
	} else {
		srv.log.Info().Msg("HTTP server gracefully stopped")
	}
	if srv.pool != nil {
		srv.pool.TearDown()
	}
}
