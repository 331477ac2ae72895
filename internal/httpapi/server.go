// Package httpapi exposes the collection engine over HTTP. Runs are
// serialized: the browser surface tolerates exactly one run at a time.
package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"golang.org/x/sync/semaphore"

	"github.com/leadsweep/leadsweep/internal/collector"
	"github.com/leadsweep/leadsweep/internal/events"
	"github.com/leadsweep/leadsweep/internal/logger"
	"github.com/leadsweep/leadsweep/internal/store"
)

// Runner executes one collection run end to end.
type Runner interface {
	Run(ctx context.Context, req collector.Request, onPass func(collector.Progress)) (collector.Result, error)
}

// Server routes API requests to the engine.
type Server struct {
	router   *mux.Router
	runner   Runner
	store    *store.Store // optional
	hub      *events.Hub
	validate *validator.Validate
	sem      *semaphore.Weighted

	mu   sync.Mutex
	runs map[string]*RunRecord
}

// New builds the server. store may be nil; runs then live only in memory.
func New(runner Runner, st *store.Store, hub *events.Hub) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		runner:   runner,
		store:    st,
		hub:      hub,
		validate: validator.New(),
		sem:      semaphore.NewWeighted(1),
		runs:     make(map[string]*RunRecord),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	api.HandleFunc("/leads/collect", s.handleCollect).Methods(http.MethodPost)
	api.HandleFunc("/runs/{id}", s.handleGetRun).Methods(http.MethodGet)
	api.HandleFunc("/runs/events", s.handleEvents).Methods(http.MethodGet)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	var wire CollectRequest
	if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "malformed JSON: "+err.Error(), nil)
		return
	}
	if err := s.validate.Struct(wire); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error(), nil)
		return
	}

	req, err := toEngineRequest(wire)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error(), nil)
		return
	}

	if !s.sem.TryAcquire(1) {
		writeError(w, http.StatusConflict, CodeBusy, "a collection run is already in progress", nil)
		return
	}
	defer s.sem.Release(1)

	runID := newRunID()
	record := &RunRecord{ID: runID, State: "running", StartedAt: time.Now()}
	s.mu.Lock()
	s.runs[runID] = record
	s.mu.Unlock()

	logger.Info("api run starting", "run_id", runID, "target_status", wire.TargetStatus)

	result, runErr := s.runner.Run(r.Context(), req, func(p collector.Progress) {
		p.RunID = runID
		s.hub.Publish(p)
	})

	s.mu.Lock()
	record.FinishedAt = time.Now()
	record.TotalLeads = result.TotalLeads
	record.Termination = string(result.Termination)
	if runErr != nil {
		record.State = "failed"
		record.Error = runErr.Error()
	} else {
		record.State = "done"
	}
	s.mu.Unlock()

	if runErr != nil {
		partial := &PartialResult{TotalLeads: result.TotalLeads, Passes: result.Passes, Leads: result.Leads}
		if errors.Is(runErr, collector.ErrSessionInvalidated) {
			writeError(w, http.StatusConflict, CodeSessionClosed,
				"session closed: the credential was used elsewhere, please retry", partial)
			return
		}
		logger.Error("api run failed", "run_id", runID, "error", runErr)
		writeError(w, http.StatusInternalServerError, CodeInternal,
			"unexpected failure: "+runErr.Error(), partial)
		return
	}

	if s.store != nil {
		if err := s.store.SaveRun(r.Context(), runID, req, result); err != nil {
			logger.Error("run persistence failed", "run_id", runID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, CollectResponse{
		RunID:       runID,
		ScrapedAt:   result.ScrapedAt,
		CutoffDate:  wire.CutoffDate,
		TotalLeads:  result.TotalLeads,
		Termination: string(result.Termination),
		Leads:       result.Leads,
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	// Copy under the lock; the collect handler mutates the record in place
	// when its run finishes.
	s.mu.Lock()
	record, ok := s.runs[id]
	var snapshot RunRecord
	if ok {
		snapshot = *record
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, CodeNotFound, "unknown run "+id, nil)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func toEngineRequest(wire CollectRequest) (collector.Request, error) {
	status := collector.Status(wire.TargetStatus)
	if !status.Valid() {
		return collector.Request{}, errors.New("unknown target_status " + wire.TargetStatus)
	}

	cutoff, err := time.ParseInLocation("2006-01-02", wire.CutoffDate, time.Local)
	if err != nil {
		return collector.Request{}, err
	}

	req := collector.Request{
		TargetStatus:   status,
		CutoffDate:     cutoff,
		MaxLeads:       wire.MaxLeads,
		ExtractDetails: wire.ExtractDetails,
	}
	if wire.StartDate != "" {
		start, err := time.ParseInLocation("2006-01-02", wire.StartDate, time.Local)
		if err != nil {
			return collector.Request{}, err
		}
		req.StartDate = start
	}
	return req, nil
}

func newRunID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
