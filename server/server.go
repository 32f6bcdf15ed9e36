// Package server exposes the effects processor over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stellar/go/xdr"

	"github.com/withObsrvr/ttp-processor-demo/effects-processor/config"
	"github.com/withObsrvr/ttp-processor-demo/effects-processor/logging"
	"github.com/withObsrvr/ttp-processor-demo/effects-processor/processor"
)

// EffectsRequest is the body of POST /v1/effects. All XDR fields are base64.
type EffectsRequest struct {
	Network string `json:"network,omitempty"`
	Tx      string `json:"tx"`
	Result  string `json:"result,omitempty"`
	Meta    string `json:"meta,omitempty"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// Stats are the counters reported by the health endpoint.
type Stats struct {
	Analyzed uint64 `json:"analyzed"`
	Rejected uint64 `json:"rejected"`
	Started  string `json:"started"`
}

// Server routes HTTP requests to a processor.
type Server struct {
	processor *processor.Processor
	cfg       *config.Config
	logger    *logging.ComponentLogger
	router    chi.Router
	started   time.Time

	analyzed atomic.Uint64
	rejected atomic.Uint64
}

// New builds the router.
func New(p *processor.Processor, cfg *config.Config, logger *logging.ComponentLogger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{processor: p, cfg: cfg, logger: logger, started: time.Now()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/health", s.handleHealth)
	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		r.Post("/effects", s.handleEffects)
	})
	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddress,
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.RequestTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("address", s.cfg.ListenAddress).Msg("Starting HTTP server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"stats": Stats{
			Analyzed: s.analyzed.Load(),
			Rejected: s.rejected.Load(),
			Started:  s.started.UTC().Format(time.RFC3339),
		},
	})
}

func (s *Server) handleEffects(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	var body EffectsRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		s.fail(w, r, http.StatusBadRequest, "malformed_input", err)
		return
	}

	report, err := s.processor.Process(r.Context(), processor.Request{
		Network:  body.Network,
		Envelope: processor.FromBase64[xdr.TransactionEnvelope](body.Tx),
		Result:   processor.FromBase64[xdr.TransactionResult](body.Result),
		Meta:     processor.FromBase64[xdr.TransactionMeta](body.Meta),
	})
	if err != nil {
		kind := processor.ErrorKind(err)
		s.fail(w, r, statusFor(kind), kind, err)
		return
	}
	s.analyzed.Add(1)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, kind string, err error) {
	s.rejected.Add(1)
	s.logger.Warn().
		Err(err).
		Str("kind", kind).
		Str("request_id", middleware.GetReqID(r.Context())).
		Msg("Rejected effects request")
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind})
}

func statusFor(kind string) int {
	switch kind {
	case "malformed_input", "invalid_amount", "missing_source":
		return http.StatusBadRequest
	case "unexpected_ledger_state", "empty_call_stack":
		return http.StatusUnprocessableEntity
	case "canceled":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
