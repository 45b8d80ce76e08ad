package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"docgen-progress/internal/domain/model"
	"docgen-progress/internal/domain/ports/repository"
	"docgen-progress/internal/infra/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Wire payloads for the named stream events.

type openPayload struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"` // always "connected"
}

type progressPayload struct {
	Status   model.JobStatus `json:"status"`
	Progress float64         `json:"progress"`
	Phase    string          `json:"phase"`
}

type completePayload struct {
	Status    string  `json:"status"` // always "succeeded"
	Progress  float64 `json:"progress"`
	OutputRef string  `json:"outputReference"`
}

type errorPayload struct {
	Status       string `json:"status"` // always "failed"
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// handleStream serves GET /jobs/{jobID}/stream as Server-Sent Events: one
// long-lived response, named events with JSON payloads, comment lines as
// heartbeats. The handler returns when the job reaches a terminal state,
// the job is unknown, or the client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sess := &streamSession{
		jobID:     chi.URLParam(r, "jobID"),
		store:     s.store,
		pollEvery: s.stream.PollInterval,
		hbEvery:   s.stream.HeartbeatInterval,
		w:         w,
		flusher:   flusher,
		log:       s.log,
	}
	sess.run(r)
}

// streamSession is the server-side state of one open stream: the job it
// watches, the fingerprint of the last state it sent, and its two tickers.
type streamSession struct {
	jobID     string
	store     repository.ProgressStore
	pollEvery time.Duration
	hbEvery   time.Duration

	w        http.ResponseWriter
	flusher  http.Flusher
	lastSent string // fingerprint of the last transmitted state
	log      *zerolog.Logger
}

func (ss *streamSession) run(r *http.Request) {
	metrics.StreamOpened()
	defer metrics.StreamClosed()

	ss.send("open", openPayload{JobID: ss.jobID, Status: "connected"})

	state, ok := ss.store.Get(ss.jobID)
	if !ok {
		// An unknown job is treated as already finished, not as an error.
		// Sending complete here keeps clients from reconnecting forever
		// against a job that will never exist.
		ss.send("complete", completePayload{Status: "succeeded", Progress: 100})
		return
	}

	if done := ss.sendState(state); done {
		return
	}

	poll := time.NewTicker(ss.pollEvery)
	defer poll.Stop()
	heartbeat := time.NewTicker(ss.hbEvery)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			ss.log.Debug().Str("job_id", ss.jobID).Msg("stream client disconnected")
			return

		case <-heartbeat.C:
			// Comment line, ignored by clients as non-data. Keeps
			// intermediaries from timing out a silent connection.
			fmt.Fprint(ss.w, ": keep-alive\n\n")
			ss.flusher.Flush()
			metrics.IncHeartbeat()

		case <-poll.C:
			state, ok := ss.store.Get(ss.jobID)
			if !ok {
				// Evicted mid-stream; same treatment as unknown at open.
				ss.send("complete", completePayload{Status: "succeeded", Progress: 100})
				return
			}
			if done := ss.sendState(state); done {
				return
			}
		}
	}
}

// sendState transmits the state if its fingerprint differs from the last one
// sent, and reports whether the stream is finished. Deduplication is load-
// bearing: an unchanged state polled N times must reach the client once.
func (ss *streamSession) sendState(state model.ProgressState) (done bool) {
	fp := state.Fingerprint()
	if fp == ss.lastSent {
		if state.Terminal() {
			// Terminal state already transmitted on a previous tick.
			return true
		}
		metrics.IncDedupSuppressed()
		return false
	}
	ss.lastSent = fp

	switch state.Status {
	case model.JobStatusSucceeded:
		ss.send("complete", completePayload{Status: "succeeded", Progress: 100, OutputRef: state.OutputRef})
		return true
	case model.JobStatusFailed:
		ss.send("error", errorPayload{Status: "failed", ErrorCode: state.ErrorCode, ErrorMessage: state.ErrorMessage})
		return true
	default:
		ss.send("progress", progressPayload{Status: state.Status, Progress: state.Progress, Phase: state.Phase})
		return false
	}
}

func (ss *streamSession) send(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		ss.log.Error().Err(err).Str("event", event).Msg("marshal stream payload")
		return
	}
	fmt.Fprintf(ss.w, "event: %s\ndata: %s\n\n", event, data)
	ss.flusher.Flush()
	metrics.IncStreamEvent(event)
}
