// Package server is the webhook variant of stylegate: an HTTP service that
// reviews pull requests when GitHub delivers pull_request events.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dshills/stylegate/internal/bot"
	"github.com/dshills/stylegate/internal/github"
	"github.com/dshills/stylegate/internal/logging"
	"github.com/dshills/stylegate/internal/metrics"
	"github.com/dshills/stylegate/internal/review"
	"github.com/dshills/stylegate/internal/storage"
)

// Reviewer reviews one pull request. *bot.Runner implements it.
type Reviewer interface {
	Run(ctx context.Context, ref bot.PRRef) (*review.Report, error)
}

// Options configures a Server.
type Options struct {
	// WebhookSecret verifies X-Hub-Signature-256. Empty disables the check.
	WebhookSecret []byte
	Store         storage.Store
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
}

// Server routes webhook and API requests to a Reviewer.
type Server struct {
	reviewer Reviewer
	opts     Options
	logger   *slog.Logger
	mux      *http.ServeMux

	// Webhook reviews run in the background under ctx so a delivery is
	// acknowledged before the review finishes.
	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup
}

// New returns a server for reviewer.
func New(reviewer Reviewer, opts Options) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		reviewer: reviewer,
		opts:     opts,
		logger:   logging.OrDiscard(opts.Logger),
		mux:      http.NewServeMux(),
		ctx:      ctx,
		cancel:   cancel,
	}
	s.mux.HandleFunc("GET /health", s.Health)
	s.mux.HandleFunc("POST /webhook/github", s.WebhookGitHub)
	s.mux.HandleFunc("POST /analyze", s.Analyze)
	s.mux.HandleFunc("GET /runs", s.Runs)
	if opts.Metrics != nil {
		s.mux.Handle("GET /metrics", opts.Metrics.Handler())
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully and waits for in-flight reviews.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		shutdownErr <- srv.Shutdown(sctx)
	}()

	s.logger.Info("server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	err := <-shutdownErr
	s.Wait(10 * time.Second)
	s.cancel()
	return err
}

// Wait blocks until background reviews finish or timeout elapses.
func (s *Server) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		s.logger.Warn("reviews still running at shutdown")
		return false
	}
}

type statusResponse struct {
	Status string `json:"status"`
	RunID  string `json:"runId,omitempty"`
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) WebhookGitHub(w http.ResponseWriter, r *http.Request) {
	event := r.Header.Get("X-GitHub-Event")
	if event == "" {
		respondError(w, http.StatusBadRequest, "missing X-GitHub-Event header")
		return
	}
	payload, err := github.ValidateWebhook(r, s.opts.WebhookSecret)
	if err != nil {
		s.logger.Warn("rejected webhook", "event", event, "err", err)
		respondError(w, http.StatusUnauthorized, "invalid webhook signature")
		return
	}

	ev, err := github.ParseWebhook(event, payload)
	if errors.Is(err, github.ErrIgnoredEvent) {
		respondJSON(w, http.StatusOK, statusResponse{Status: "ignored"})
		return
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !ev.Supported() {
		respondJSON(w, http.StatusOK, statusResponse{Status: "ignored"})
		return
	}

	ref := bot.PRRef{Owner: ev.Owner, Repo: ev.Repo, Number: ev.Number, HeadSHA: ev.HeadSHA}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if _, err := s.reviewer.Run(s.ctx, ref); err != nil {
			s.logger.Error("webhook review failed", "pr", ref.String(), "err", err)
		}
	}()
	s.logger.Info("queued review", "pr", ref.String(), "action", ev.Action, "head", ev.HeadSHA)
	respondJSON(w, http.StatusAccepted, statusResponse{Status: "queued"})
}

type analyzeRequest struct {
	Repository string `json:"repository"`
	Number     int    `json:"number"`
	HeadSHA    string `json:"headSha,omitempty"`
}

// Analyze reviews a pull request synchronously and returns the report.
func (s *Server) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	owner, repo, err := github.SplitFullName(req.Repository)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Number <= 0 {
		respondError(w, http.StatusBadRequest, "number must be positive")
		return
	}

	report, err := s.reviewer.Run(r.Context(), bot.PRRef{Owner: owner, Repo: repo, Number: req.Number, HeadSHA: req.HeadSHA})
	if err != nil {
		status := http.StatusBadGateway
		if github.IsAuthError(err) {
			status = http.StatusUnauthorized
		}
		respondError(w, status, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Runs lists recent runs without their full reports.
func (s *Server) Runs(w http.ResponseWriter, r *http.Request) {
	if s.opts.Store == nil {
		respondJSON(w, http.StatusOK, []storage.Run{})
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := s.opts.Store.ListRuns(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for i := range runs {
		runs[i].Report = nil
	}
	if runs == nil {
		runs = []storage.Run{}
	}
	respondJSON(w, http.StatusOK, runs)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
