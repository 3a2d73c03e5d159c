package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/shopagent/internal/agent"
	"github.com/ziadkadry99/shopagent/internal/metrics"
	"github.com/ziadkadry99/shopagent/internal/task"
)

// submitResponse is the body of POST /v1/tasks.
type submitResponse struct {
	TaskID string        `json:"task_id"`
	State  task.State    `json:"state"`
	Answer *agent.Answer `json:"answer,omitempty"`
	Error  string        `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type features struct {
	RAG       bool `json:"rag"`
	WebSearch bool `json:"web_search"`
	Caching   bool `json:"caching"`
}

type detailedHealth struct {
	Status       string           `json:"status"`
	Provider     string           `json:"provider"`
	Model        string           `json:"model"`
	Features     features         `json:"features"`
	Documents    int              `json:"documents"`
	CacheEntries int              `json:"cache_entries"`
	Metrics      metrics.Snapshot `json:"metrics"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req agent.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	t, err := s.deps.Executor.Submit(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, task.ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	answer, err := t.Wait()
	resp := submitResponse{TaskID: t.ID, State: t.State(), Answer: &answer}
	if err != nil {
		resp.Error = err.Error()
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	err := s.deps.Executor.Cancel(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, task.ErrUnsupportedOperation) {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "canceled"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Executor.Metrics().Snapshot())
}

func (s *Server) handleDetailedHealth(w http.ResponseWriter, r *http.Request) {
	h := detailedHealth{
		Status:   "healthy",
		Provider: s.cfg.Provider,
		Model:    s.cfg.Model,
		Features: features{
			RAG:       s.cfg.EnableRAG,
			WebSearch: s.cfg.EnableWebSearch,
			Caching:   s.cfg.EnableCaching,
		},
		CacheEntries: s.cacheEntries(),
		Metrics:      s.deps.Executor.Metrics().Snapshot(),
	}
	if s.deps.Index != nil {
		h.Documents = s.deps.Index.Count()
	}
	writeJSON(w, http.StatusOK, h)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
