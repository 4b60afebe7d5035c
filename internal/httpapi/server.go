// Package httpapi exposes the shift tracker as a small JSON API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Tiliavir/shiftr/internal/confirm"
	"github.com/Tiliavir/shiftr/internal/log"
	"github.com/Tiliavir/shiftr/internal/metrics"
	"github.com/Tiliavir/shiftr/internal/model"
	"github.com/Tiliavir/shiftr/internal/report"
	"github.com/Tiliavir/shiftr/internal/roster"
	"github.com/Tiliavir/shiftr/internal/shift"
	"github.com/Tiliavir/shiftr/internal/storage"
)

// Server serves the API.
type Server struct {
	machine   *shift.Machine
	store     storage.Store
	refresher *roster.Refresher
	prompts   *confirm.Manager
	mux       *http.ServeMux
	logger    zerolog.Logger
}

// NewServer wires the handlers. refresher renders rosters for
// POST /orgs/{org}/roster/refresh; prompts guards POST /orgs/{org}/reset-all.
func NewServer(machine *shift.Machine, store storage.Store, refresher *roster.Refresher, prompts *confirm.Manager) *Server {
	s := &Server{
		machine:   machine,
		store:     store,
		refresher: refresher,
		prompts:   prompts,
		mux:       http.NewServeMux(),
		logger:    log.WithComponent("httpapi"),
	}

	s.handle("GET /health", "health", s.health)
	s.mux.Handle("GET /metrics", metrics.Handler())

	s.handle("POST /orgs/{org}/workers/{worker}/start", "start", s.startShift)
	s.handle("POST /orgs/{org}/workers/{worker}/end", "end", s.endShift)
	s.handle("POST /orgs/{org}/workers/{worker}/remove", "remove", s.removeWorker)
	s.handle("POST /orgs/{org}/workers/{worker}/reset", "reset", s.resetWorker)
	s.handle("GET /orgs/{org}/workers/{worker}/stats", "stats", s.stats)
	s.handle("GET /orgs/{org}/leaderboard", "leaderboard", s.leaderboard)
	s.handle("GET /orgs/{org}/roster", "roster", s.roster)
	s.handle("POST /orgs/{org}/roster/refresh", "roster_refresh", s.refreshRoster)
	s.handle("GET /orgs/{org}/settings", "settings_get", s.getSettings)
	s.handle("PUT /orgs/{org}/settings", "settings_put", s.putSettings)
	s.handle("POST /orgs/{org}/reset-all", "reset_all", s.resetAll)
	s.handle("POST /confirmations/{id}", "confirm", s.resolve)

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()
	s.logger.Info().Str("addr", addr).Msg("API listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
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

func (s *Server) handle(pattern, route string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		metrics.APIRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shift.ErrAlreadyActive),
		errors.Is(err, shift.ErrNotActive),
		errors.Is(err, roster.ErrUnbound),
		errors.Is(err, confirm.ErrExpired),
		errors.Is(err, confirm.ErrResolved):
		return http.StatusConflict
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, confirm.ErrUnknown):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Reason: shift.Reason(err)})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

type workerRequest struct {
	DisplayName string `json:"display_name"`
}

// decodeOptional reads a JSON body if there is one.
func decodeOptional(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": s.machine.Now(),
	})
}

func (s *Server) startShift(w http.ResponseWriter, r *http.Request) {
	var req workerRequest
	if err := decodeOptional(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	rec, err := s.machine.StartShift(r.Context(), r.PathValue("org"), r.PathValue("worker"), req.DisplayName)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type closedResponse struct {
	Worker    *model.WorkerRecord `json:"worker"`
	ElapsedMs int64               `json:"elapsed_ms"`
	Day       string              `json:"day"`
}

func closed(c *shift.Closed) closedResponse {
	return closedResponse{Worker: c.Record, ElapsedMs: c.Elapsed.Milliseconds(), Day: c.DayKey}
}

func (s *Server) endShift(w http.ResponseWriter, r *http.Request) {
	var req workerRequest
	if err := decodeOptional(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	c, err := s.machine.EndShift(r.Context(), r.PathValue("org"), r.PathValue("worker"), req.DisplayName)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, closed(c))
}

func (s *Server) removeWorker(w http.ResponseWriter, r *http.Request) {
	c, err := s.machine.RemoveWorker(r.Context(), r.PathValue("org"), r.PathValue("worker"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, closed(c))
}

func (s *Server) resetWorker(w http.ResponseWriter, r *http.Request) {
	rec, err := s.machine.ResetWorker(r.Context(), r.PathValue("org"), r.PathValue("worker"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetWorker(r.Context(), r.PathValue("org"), r.PathValue("worker"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report.WorkerDetail(rec, s.machine.Now()))
}

func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("window")
	if name == "" {
		name = string(report.Week)
	}
	window, err := report.ParseWindow(name)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	records, err := s.store.ListWorkers(r.Context(), r.PathValue("org"), storage.Filter{})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report.Aggregate(records, window, s.machine.Now()))
}

func (s *Server) roster(w http.ResponseWriter, r *http.Request) {
	view, err := roster.Build(r.Context(), s.store, r.PathValue("org"), s.machine.Now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) refreshRoster(w http.ResponseWriter, r *http.Request) {
	view, err := s.refresher.Refresh(r.Context(), r.PathValue("org"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.GetSettings(r.Context(), r.PathValue("org"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) putSettings(w http.ResponseWriter, r *http.Request) {
	var update model.SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	org := r.PathValue("org")
	settings, err := s.store.UpsertSettings(r.Context(), org, update)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.refresher.Trigger(org)
	writeJSON(w, http.StatusOK, settings)
}

type promptResponse struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	State       string    `json:"state"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func promptJSON(p confirm.Prompt) promptResponse {
	return promptResponse{ID: p.ID, Description: p.Description, State: p.State.String(), ExpiresAt: p.ExpiresAt}
}

// resetAll offers a confirmation; the reset runs when it is accepted
// through POST /confirmations/{id}.
func (s *Server) resetAll(w http.ResponseWriter, r *http.Request) {
	org := r.PathValue("org")
	p := s.prompts.Offer("delete all shift data of "+org, func(ctx context.Context) error {
		n, err := s.machine.ResetAll(ctx, org)
		if err != nil {
			return err
		}
		s.logger.Warn().Str("org_id", org).Int("workers", n).Msg("organization reset")
		return nil
	})
	writeJSON(w, http.StatusAccepted, promptJSON(p))
}

type resolveRequest struct {
	Accept bool `json:"accept"`
}

func (s *Server) resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	p, err := s.prompts.Resolve(r.Context(), r.PathValue("id"), req.Accept)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, promptJSON(p))
}
