package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"docgen-progress/internal/domain"
	"docgen-progress/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type submitResponse struct {
	JobID     string `json:"jobId"`
	Streaming bool   `json:"streaming"`
}

type jobView struct {
	Status       model.JobStatus `json:"status"`
	Progress     float64         `json:"progress"`
	Phase        string          `json:"phase,omitempty"`
	OutputRef    string          `json:"outputReference,omitempty"`
	ErrorCode    string          `json:"errorCode,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var sub model.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid submission payload")
		return
	}

	jobID, streaming, err := s.jobUC.Submit(r.Context(), sub)
	if err != nil {
		if errors.Is(err, domain.ErrQueueFull) {
			writeError(w, http.StatusServiceUnavailable, "server is busy, try again later")
			return
		}
		if errors.Is(err, domain.ErrJobTerminal) {
			writeError(w, http.StatusConflict, "job already finished")
			return
		}
		s.log.Error().Err(err).Msg("job submission failed")
		writeError(w, http.StatusInternalServerError, "could not accept job")
		return
	}

	writeJSON(w, http.StatusAccepted, submitResponse{JobID: jobID, Streaming: streaming})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	state, ok := s.store.Get(jobID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown job")
		return
	}
	writeJSON(w, http.StatusOK, jobView{
		Status:       state.Status,
		Progress:     state.Progress,
		Phase:        state.Phase,
		OutputRef:    state.OutputRef,
		ErrorCode:    state.ErrorCode,
		ErrorMessage: state.ErrorMessage,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
