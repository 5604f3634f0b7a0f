// Package httpapi exposes observation storage and strategy evaluation over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"MACrossover/internal/model"
	"MACrossover/internal/performance"
	"MACrossover/internal/series"
	"MACrossover/internal/store"
)

const (
	defaultListLimit = 100
	maxBodyBytes     = 32 << 20
)

// Server serves the data and strategy endpoints.
type Server struct {
	Store       store.Store
	Performance *performance.Service
	// Instrument and Window are applied when a request omits them.
	Instrument string
	Window     model.WindowConfig
}

// NewServer creates a new Server.
func NewServer(st store.Store, svc *performance.Service, instrument string, window model.WindowConfig) *Server {
	return &Server{Store: st, Performance: svc, Instrument: instrument, Window: window}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /data", s.handleList)
	mux.HandleFunc("POST /data", s.handleAdd)
	mux.HandleFunc("POST /data/bulk", s.handleBulk)
	mux.HandleFunc("DELETE /data/all", s.handleDeleteAll)
	mux.HandleFunc("GET /strategy/performance", s.handlePerformance)
	mux.HandleFunc("GET /strategy/history", s.handleHistory)
}

// Handler returns the routed handler wrapped with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return logRequests(mux)
}

// ListenAndServe runs the HTTP server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] http server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Println("[INFO] http server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("[INFO] %s %s %d %s", r.Method, r.URL.RequestURI(), rec.status, time.Since(start).Round(time.Millisecond))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[ERROR] encode JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrInvalidWindowConfig),
		errors.Is(err, series.ErrInsufficientData),
		errors.Is(err, model.ErrInvalidObservation):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrDuplicate):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		log.Printf("[ERROR] %v", err)
	}
	writeJSON(w, status, ErrorResponse{Detail: err.Error()})
}

func badRequest(w http.ResponseWriter, format string, args ...any) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: fmt.Sprintf(format, args...)})
}

// queryInt reads a non-negative integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}

// queryWindow reads a window size. Range checks are left to WindowConfig.Validate.
func queryWindow(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Stock Data API - see /data and /strategy/performance"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	n, err := s.Store.Count(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "observations": n})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		badRequest(w, "%v", err)
		return
	}
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		badRequest(w, "%v", err)
		return
	}
	recs, err := s.Store.List(r.Context(), skip, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]ObservationResponse, len(recs))
	for i, rec := range recs {
		out[i] = newObservationResponse(rec)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req ObservationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		badRequest(w, "decode body: %v", err)
		return
	}
	obs, err := req.Observation()
	if err != nil {
		writeError(w, err)
		return
	}
	rec, err := s.Store.Append(r.Context(), obs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newObservationResponse(rec))
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	var reqs []ObservationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&reqs); err != nil {
		badRequest(w, "decode body: %v", err)
		return
	}
	obs := make([]model.Observation, len(reqs))
	for i, req := range reqs {
		o, err := req.Observation()
		if err != nil {
			writeError(w, fmt.Errorf("record %d: %w", i, err))
			return
		}
		obs[i] = o
	}
	n, err := s.Store.AppendBatch(r.Context(), obs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageResponse{Message: bulkMessage(n)})
}

func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.Store.DeleteAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("Deleted %d records and reset ID sequence", n)})
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	window := s.Window
	var err error
	if window.Short, err = queryWindow(r, "short_window", window.Short); err != nil {
		badRequest(w, "%v", err)
		return
	}
	if window.Long, err = queryWindow(r, "long_window", window.Long); err != nil {
		badRequest(w, "%v", err)
		return
	}
	instrument := s.Instrument
	if r.URL.Query().Has("instrument") {
		instrument = r.URL.Query().Get("instrument")
	}

	res, err := s.Performance.Evaluate(r.Context(), instrument, window)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Summary)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		badRequest(w, "%v", err)
		return
	}
	recs, err := s.Performance.History(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]EvaluationResponse, len(recs))
	for i, rec := range recs {
		out[i] = newEvaluationResponse(rec)
	}
	writeJSON(w, http.StatusOK, out)
}
