package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/intentd/internal/engine"
)

// errorBody is the JSON error envelope.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps engine errors onto HTTP statuses with a coded envelope.
func writeError(w http.ResponseWriter, err error) {
	var engErr *engine.Error
	if errors.As(err, &engErr) {
		status := http.StatusInternalServerError
		switch engErr.Code {
		case engine.ErrCodeNotFound:
			status = http.StatusNotFound
		case engine.ErrCodeInvalidFilter:
			status = http.StatusBadRequest
		case engine.ErrCodeDuplicateIntent:
			status = http.StatusConflict
		}
		writeJSON(w, status, errorBody{Error: errorDetail{
			Code:    string(engErr.Code),
			Message: engErr.Message,
		}})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: errorDetail{
		Code:    "INTERNAL",
		Message: err.Error(),
	}})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req engine.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{
			Code:    "BAD_REQUEST",
			Message: "malformed JSON body",
		}})
		return
	}

	in, err := s.engine.Create(req)
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.intentsCreated.Inc()
	writeJSON(w, http.StatusAccepted, in)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	in, err := s.engine.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

// parseListFilter reads filter parameters from the query string:
// state (comma-separated), created_after / created_before (RFC 3339),
// cursor, limit.
func parseListFilter(r *http.Request) (engine.ListFilter, error) {
	q := r.URL.Query()
	var f engine.ListFilter

	if raw := q.Get("state"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			f.States = append(f.States, engine.State(strings.TrimSpace(s)))
		}
	}
	if raw := q.Get("created_after"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, engine.NewInvalidFilterError("created_after must be RFC 3339")
		}
		f.CreatedAfter = t
	}
	if raw := q.Get("created_before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, engine.NewInvalidFilterError("created_before must be RFC 3339")
		}
		f.CreatedBefore = t
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return f, engine.NewInvalidFilterError("limit must be an integer")
		}
		f.Limit = n
	}
	f.Cursor = q.Get("cursor")
	return f, nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	f, err := parseListFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.engine.List(f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if r.Body != nil {
		// Body is optional; ignore decode errors on an empty body.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	res, err := s.engine.Cancel(chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	if res.Cancelled {
		s.metrics.intentsCancelled.Inc()
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Pause())
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Resume())
}

type killRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleKill(w http.ResponseWriter, r *http.Request) {
	var req killRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	res := s.engine.Kill(req.Reason)
	s.metrics.killsTotal.Inc()
	s.metrics.intentsCancelled.Add(float64(res.IntentsCancelled))
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.QueueStatus())
}
