package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/replicate/replicate-client/internal/config"
	"github.com/replicate/replicate-client/pkg/replicate"
	"github.com/replicate/replicate-client/pkg/webhook"
)

const defaultMaxBodyBytes = 10 << 20

// PredictionHandler receives each verified webhook delivery.
type PredictionHandler func(ctx context.Context, p *replicate.Prediction) error

// Service is the root lifecycle owner for the webhook receiver
type Service struct {
	cfg config.Config

	// Lifecycle state
	started         chan struct{}
	stopped         chan struct{}
	shutdown        chan struct{}
	shutdownStarted atomic.Bool

	listener     net.Listener
	httpServer   *http.Server
	verifier     *webhook.Verifier
	onPrediction PredictionHandler

	registry *prometheus.Registry
	received *prometheus.CounterVec

	logger *zap.Logger
}

// New creates a new Service with the given configuration
func New(cfg config.Config, onPrediction PredictionHandler, baseLogger *zap.Logger) *Service {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	registry := prometheus.NewRegistry()
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "replicate",
		Subsystem: "webhook",
		Name:      "deliveries_total",
		Help:      "Webhook deliveries by result and prediction status.",
	}, []string{"result", "status"})
	registry.MustRegister(received)

	return &Service{
		cfg:          cfg,
		started:      make(chan struct{}),
		stopped:      make(chan struct{}),
		shutdown:     make(chan struct{}),
		onPrediction: onPrediction,
		registry:     registry,
		received:     received,
		logger:       baseLogger.Named("service"),
	}
}

// Initialize sets up the service components (idempotent)
func (s *Service) Initialize(ctx context.Context) error {
	if s.httpServer != nil {
		return nil
	}

	log := s.logger.Sugar()
	log.Info("initializing HTTP server")

	if s.cfg.Secret != "" {
		v, err := webhook.NewVerifier(s.cfg.Secret, s.cfg.Tolerance)
		if err != nil {
			return fmt.Errorf("failed to create verifier: %w", err)
		}
		s.verifier = v
	} else {
		log.Warn("no webhook secret configured, signatures will not be checked")
	}

	l, err := net.Listen("tcp", net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port)))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = l
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(l net.Listener) context.Context { return ctx },
	}
	return nil
}

// Addr returns the bound listen address once initialized
func (s *Service) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health-check", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /webhook", s.handleWebhook)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return mux
}

func (s *Service) handleWebhook(w http.ResponseWriter, r *http.Request) {
	log := s.logger.Sugar()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		s.reject(w, http.StatusRequestEntityTooLarge, "too_large", err)
		return
	}
	if s.verifier != nil {
		if err := s.verifier.Verify(r.Header, body); err != nil {
			s.reject(w, http.StatusUnauthorized, "unverified", err)
			return
		}
	}

	var p replicate.Prediction
	if err := json.Unmarshal(body, &p); err != nil {
		s.reject(w, http.StatusBadRequest, "malformed", err)
		return
	}
	log.Infow("received webhook", "id", p.ID, "status", p.Status, "delivery", r.Header.Get(webhook.HeaderID))

	if s.onPrediction != nil {
		if err := s.onPrediction(r.Context(), &p); err != nil {
			log.Errorw("prediction handler failed", "id", p.ID, "error", err)
			s.received.WithLabelValues("handler_error", string(p.Status)).Inc()
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}
	s.received.WithLabelValues("ok", string(p.Status)).Inc()
	w.WriteHeader(http.StatusOK)
}

func (s *Service) reject(w http.ResponseWriter, code int, result string, err error) {
	s.logger.Sugar().Warnw("rejected webhook", "result", result, "error", err)
	s.received.WithLabelValues(result, "").Inc()
	w.WriteHeader(code)
}

// Run starts the service and blocks until shutdown
func (s *Service) Run(ctx context.Context) error {
	log := s.logger.Sugar()

	select {
	case <-s.started:
		log.Errorw("service already started")
		return nil
	default:
	}

	if s.httpServer == nil {
		return fmt.Errorf("service not initialized - call Initialize() first")
	}

	log.Infow("starting service", "addr", s.Addr(), "verify_signatures", s.verifier != nil)

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		log.Info("starting HTTP server")
		if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		select {
		case <-s.shutdown:
			log.Info("initiating graceful shutdown")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
			defer cancel()
			return s.httpServer.Shutdown(shutdownCtx)
		case <-egCtx.Done():
			if s.shutdownStarted.CompareAndSwap(false, true) {
				close(s.shutdown)
			}
			if err := s.httpServer.Close(); err != nil {
				log.Errorw("failed to close HTTP server", "error", err)
			}
			// Only report cancellation of the caller's context
			return ctx.Err()
		}
	})

	close(s.started)

	err := eg.Wait()

	s.stop()

	return err
}

// Shutdown initiates graceful shutdown of the service (non-blocking)
func (s *Service) Shutdown() {
	log := s.logger.Sugar()
	log.Info("shutdown requested")

	// Use atomic CAS to ensure only one shutdown
	if !s.shutdownStarted.CompareAndSwap(false, true) {
		log.Debug("already shutting down")
		return
	}

	close(s.shutdown)
}

// stop performs final cleanup after shutdown
func (s *Service) stop() {
	log := s.logger.Sugar()
	log.Info("stopping service")

	select {
	case <-s.stopped:
		log.Debug("service already stopped")
	default:
		close(s.stopped)
	}
}

// IsStarted returns true if the service has been started
func (s *Service) IsStarted() bool {
	select {
	case <-s.started:
		return true
	default:
		return false
	}
}

// IsStopped returns true if the service has been stopped
func (s *Service) IsStopped() bool {
	select {
	case <-s.stopped:
		return true
	default:
		return false
	}
}

// IsRunning returns true if the service is running (started but not stopped)
func (s *Service) IsRunning() bool {
	return s.IsStarted() && !s.IsStopped()
}
