// Package server exposes the assistant over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/graph"
	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/history"
	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/metrics"
)

// Runner answers one question.
type Runner interface {
	Run(ctx context.Context, question string) (graph.State, error)
}

// TurnLog stores answered turns per session.
type TurnLog interface {
	Append(ctx context.Context, session string, t history.Turn) error
	Turns(ctx context.Context, session string) ([]history.Turn, error)
	Ping(ctx context.Context) error
}

type AskRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

type AskResponse struct {
	SessionID string `json:"session_id"`
	Route     string `json:"route"`
	Rationale string `json:"rationale,omitempty"`
	Answer    string `json:"answer"`
}

type Server struct {
	runner  Runner
	turns   TurnLog
	log     *zap.Logger
	handler http.Handler
}

func New(runner Runner, turns TurnLog, log *zap.Logger) *Server {
	s := &Server{runner: runner, turns: turns, log: log}

	router := mux.NewRouter()
	router.HandleFunc("/ask", s.handleAsk).Methods("POST")
	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.HandleFunc("/sessions/{id}/turns", s.handleTurns).Methods("GET")
	router.Handle("/metrics", promhttp.Handler())
	router.Use(instrument)

	s.handler = router
	return s
}

func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("http server starting", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("server exited")
	return nil
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		http.Error(w, "question is required", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	} else if _, err := uuid.Parse(req.SessionID); err != nil {
		http.Error(w, "session_id must be a UUID", http.StatusBadRequest)
		return
	}

	state, err := s.runner.Run(r.Context(), req.Question)
	if err != nil {
		s.log.Error("workflow failed", zap.Error(err))
		http.Error(w, "failed to answer question", http.StatusInternalServerError)
		return
	}

	turn := history.Turn{Question: req.Question, Route: string(state.Route()), Answer: state.Answer(), At: time.Now().UTC()}
	if err := s.turns.Append(r.Context(), req.SessionID, turn); err != nil {
		s.log.Warn("failed to record turn", zap.String("session", req.SessionID), zap.Error(err))
	}

	writeJSONResponse(w, AskResponse{
		SessionID: req.SessionID,
		Route:     string(state.Route()),
		Rationale: state.Rationale(),
		Answer:    state.Answer(),
	})
}

func (s *Server) handleTurns(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := uuid.Parse(id); err != nil {
		http.Error(w, "session id must be a UUID", http.StatusBadRequest)
		return
	}
	turns, err := s.turns.Turns(r.Context(), id)
	if err != nil {
		s.log.Error("failed to list turns", zap.String("session", id), zap.Error(err))
		http.Error(w, "failed to list turns", http.StatusInternalServerError)
		return
	}
	if turns == nil {
		turns = []history.Turn{}
	}
	writeJSONResponse(w, map[string]any{"session_id": id, "turns": turns})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]string{
		"status": "healthy",
		"redis":  "disconnected",
	}
	if err := s.turns.Ping(r.Context()); err == nil {
		health["redis"] = "connected"
	}
	writeJSONResponse(w, health)
}

func writeJSONResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument counts requests by route template and status code.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}
		metrics.ObserveHTTP(path, strconv.Itoa(rec.status), start)
	})
}
