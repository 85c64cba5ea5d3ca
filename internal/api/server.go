// Package api serves target management, yield estimates, the execution
// plan and schedule commits over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"targetscope/internal/backend"
	"targetscope/internal/capacity"
	"targetscope/internal/commit"
	"targetscope/internal/jobs"
	"targetscope/internal/logging"
	"targetscope/internal/metrics"
	"targetscope/internal/model"
	"targetscope/internal/planner"
	"targetscope/internal/store/sqlite"
	"targetscope/internal/yield"
)

const maxBodyBytes = 1 << 20

// TargetStore is implemented by the local store and the backend client.
type TargetStore interface {
	ListTargets(ctx context.Context) ([]model.Target, error)
	CreateTarget(ctx context.Context, t model.Target) (model.Target, error)
	UpdateTarget(ctx context.Context, id string, e model.Edit) (model.Target, error)
	DeleteTarget(ctx context.Context, id string) error
	ToggleTarget(ctx context.Context, id string) (model.Target, error)
}

// Trigger previews plans and dispatches commits.
type Trigger interface {
	Preview(ctx context.Context) (commit.Preview, error)
	Run(ctx context.Context) (commit.Result, error)
}

type Server struct {
	store   TargetStore
	trigger Trigger
	source  string
	latest  *jobs.Latest
	preview atomic.Int64

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

type Option func(*Server)

// WithSource names the data source reported by /api/health.
func WithSource(mode string) Option { return func(s *Server) { s.source = mode } }

// WithLatest exposes the background plan refresh in /api/health.
func WithLatest(l *jobs.Latest) Option { return func(s *Server) { s.latest = l } }

// WithPreviewSize sets the default plan limit.
func WithPreviewSize(n int) Option { return func(s *Server) { s.SetPreviewSize(n) } }

func NewServer(store TargetStore, trigger Trigger, opts ...Option) *Server {
	s := &Server{store: store, trigger: trigger, source: "local"}
	s.preview.Store(planner.DefaultPreviewSize)
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// SetPreviewSize changes the default plan limit; safe while serving.
func (s *Server) SetPreviewSize(n int) {
	if n <= 0 {
		n = planner.DefaultPreviewSize
	}
	s.preview.Store(int64(n))
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.route(mux, "GET /api/health", s.handleHealth)
	s.route(mux, "GET /api/targets", s.handleListTargets)
	s.route(mux, "POST /api/targets", s.handleCreateTarget)
	s.route(mux, "GET /api/targets/plan", s.handlePlan)
	s.route(mux, "PUT /api/targets/{id}", s.handleUpdateTarget)
	s.route(mux, "DELETE /api/targets/{id}", s.handleDeleteTarget)
	s.route(mux, "POST /api/targets/{id}/toggle", s.handleToggleTarget)
	s.route(mux, "GET /api/capacity", s.handleCapacity)
	s.route(mux, "GET /api/estimate/keyword", s.handleEstimateKeyword)
	s.route(mux, "GET /api/estimate/account", s.handleEstimateAccount)
	s.route(mux, "POST /api/schedule/commit", s.handleCommit)
	return mux
}

// Start listens on addr and serves in the background until Shutdown.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return errors.New("api: server already started")
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("api: listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.listener, s.server = ln, srv
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("api_serve_error", map[string]any{"error": err.Error()})
		}
	}()
	logging.Info("api_listening", map[string]any{"addr": ln.Addr().String(), "source": s.source})
	return nil
}

// Addr is the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	s.server, s.listener = nil, nil
	return err
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		h(rec, r)
		metrics.HTTPRequests.WithLabelValues(pattern, strconv.Itoa(rec.code)).Inc()
	})
}

type envelope struct {
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{OK: true, Data: data})
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= 500 {
		logging.Error("api_error", map[string]any{"status": status, "error": err.Error()})
	}
	writeJSON(w, status, envelope{Error: err.Error()})
}

func statusFor(err error) int {
	var se *backend.StatusError
	switch {
	case errors.Is(err, model.ErrImmutableField):
		return http.StatusConflict
	case errors.Is(err, model.ErrInvalidTarget), errors.Is(err, model.ErrUnknownPriority),
		errors.Is(err, model.ErrUnknownMode), errors.Is(err, model.ErrUnknownType):
		return http.StatusBadRequest
	case errors.Is(err, sqlite.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, commit.ErrNoCapacity), errors.Is(err, commit.ErrNothingToCommit):
		return http.StatusConflict
	case errors.Is(err, backend.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &se) && se.Code >= 400 && se.Code < 500:
		return se.Code
	}
	return http.StatusInternalServerError
}

var errBadBody = fmt.Errorf("%w: malformed request body", model.ErrInvalidTarget)

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return errBadBody
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errBadBody
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"ok": true, "service": "targetscope", "source": s.source}
	if s.latest != nil {
		if p, at, ok := s.latest.Get(); ok {
			resp["lastPlanAt"] = at
			resp["planEntries"] = len(p.Entries)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := s.store.ListTargets(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, yield.Annotate(targets))
}

func (s *Server) handleCreateTarget(w http.ResponseWriter, r *http.Request) {
	var d model.Draft
	if err := decodeBody(w, r, &d); err != nil {
		writeError(w, err)
		return
	}
	t, err := d.Target()
	if err != nil {
		writeError(w, err)
		return
	}
	created, err := s.store.CreateTarget(r.Context(), t)
	if err != nil {
		writeError(w, err)
		return
	}
	logging.Info("target_created", map[string]any{"id": created.ID, "type": created.Type(), "query": created.Query})
	writeData(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateTarget(w http.ResponseWriter, r *http.Request) {
	var e model.Edit
	if err := decodeBody(w, r, &e); err != nil {
		writeError(w, err)
		return
	}
	t, err := s.store.UpdateTarget(r.Context(), r.PathValue("id"), e)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTarget(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTarget(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{OK: true})
}

func (s *Server) handleToggleTarget(w http.ResponseWriter, r *http.Request) {
	t, err := s.store.ToggleTarget(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, t)
}

type planResponse struct {
	Entries []model.ExecutionOrderEntry `json:"entries"`
	Total   int                         `json:"total"`
	Summary planner.Summary             `json:"summary"`
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	limit := int(s.preview.Load())
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, envelope{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	p, err := s.trigger.Preview(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, planResponse{
		Entries: planner.Preview(p.Entries, limit),
		Total:   len(p.Entries),
		Summary: p.Summary,
	})
}

type capacityResponse struct {
	Bands      capacity.Shares        `json:"bands"`
	Allocation capacity.Allocation    `json:"allocation"`
	Quota      model.CapacitySnapshot `json:"quota"`
}

func (s *Server) handleCapacity(w http.ResponseWriter, r *http.Request) {
	p, err := s.trigger.Preview(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, capacityResponse{Bands: p.Allocation.Shares, Allocation: p.Allocation, Quota: p.Quota})
}

type estimateResponse struct {
	EstimatedPostsPerHour int `json:"estimatedPostsPerHour"`
}

// queryCount reads a non-negative integer query parameter.
func queryCount(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", model.ErrInvalidTarget, key)
	}
	return n, nil
}

func (s *Server) handleEstimateKeyword(w http.ResponseWriter, r *http.Request) {
	p, err := model.ParsePriority(r.URL.Query().Get("priority"))
	if err != nil {
		writeError(w, err)
		return
	}
	var f model.KeywordFilters
	active, err := queryCount(r, "active", 1)
	if err == nil {
		f.MinLikes, err = queryCount(r, "minLikes", 0)
	}
	if err == nil {
		f.MinReposts, err = queryCount(r, "minReposts", 0)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, estimateResponse{yield.EstimateKeywordYield(p, active, f)})
}

func (s *Server) handleEstimateAccount(w http.ResponseWriter, r *http.Request) {
	p, err := model.ParsePriority(r.URL.Query().Get("priority"))
	if err != nil {
		writeError(w, err)
		return
	}
	m := model.ModeTweets
	if v := r.URL.Query().Get("mode"); v != "" {
		if m, err = model.ParseMode(v); err != nil {
			writeError(w, err)
			return
		}
	}
	writeData(w, http.StatusOK, estimateResponse{yield.EstimateAccountYield(p, m)})
}

type commitResponse struct {
	model.CommitResult
	Preview []model.ExecutionOrderEntry `json:"preview"`
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	res, err := s.trigger.Run(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, commitResponse{
		CommitResult: res.CommitResult,
		Preview:      planner.Preview(res.Preview.Entries, int(s.preview.Load())),
	})
}
