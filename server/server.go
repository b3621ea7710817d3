package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/Tutortoise/object-detection-service/config"
)

type Server struct {
	inner           *http.Server
	shutdownTimeout time.Duration
	log             *zap.Logger
}

func NewServer(cfg *config.Config, handler http.Handler, log *zap.Logger) *Server {
	return &Server{
		inner: &http.Server{
			Handler:      handler,
			Addr:         cfg.Addr(),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             log,
	}
}

func (s *Server) Addr() string {
	return s.inner.Addr
}

// Start serves until Stop is called. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.log.Info("starting server", zap.String("addr", s.inner.Addr))
	if err := s.inner.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	if err := s.inner.Shutdown(ctx); err != nil {
		return err
	}
	s.log.Info("server stopped")
	return nil
}

// Routes builds the HTTP handler: routing, CORS for any origin, request ids,
// request logging and panic recovery.
func Routes(h *Handler, log *zap.Logger) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", h.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/detect", h.handleDetect).Methods(http.MethodPost)
	r.HandleFunc("/metrics", h.handleMetrics).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(h.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(h.handleMethodNotAllowed)

	c := cors.New(cors.Options{
		AllowOriginFunc: func(string) bool { return true },
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodHead,
			http.MethodOptions,
		},
		AllowedHeaders:       []string{"*"},
		AllowCredentials:     true,
		MaxAge:               600,
		OptionsSuccessStatus: http.StatusOK,
	})

	var handler http.Handler = r
	handler = recoverer(log)(handler)
	handler = c.Handler(handler)
	handler = logRequests(log)(handler)
	handler = requestID(handler)
	return handler
}
