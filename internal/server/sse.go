package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/intentd/internal/engine"
)

// endOfStream is the payload of the final SSE event, emitted exactly once
// per stream when the intent is terminal.
type endOfStream struct {
	IntentID   string       `json:"intentId"`
	FinalState engine.State `json:"finalState"`
}

// handleEvents streams an intent's transition events as server-sent events.
//
// A client connecting to a non-terminal intent receives the current latest
// event immediately, then each subsequent transition as it occurs, then an
// explicit "end" event when the intent reaches a terminal state. A client
// connecting to an already-terminal intent receives exactly the last
// recorded transition and then the "end" event.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: errorDetail{
			Code:    "STREAMING_UNSUPPORTED",
			Message: "response writer does not support streaming",
		}})
		return
	}

	events, stop, err := s.engine.Watch(id)
	if err != nil {
		writeError(w, err)
		return
	}
	defer stop()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.metrics.watchStreams.Inc()
	defer s.metrics.watchStreams.Dec()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			// Comment line keepalive so intermediaries do not drop the
			// connection during long stage delays.
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()

		case ev, open := <-events:
			if !open {
				s.writeEnd(w, id)
				flusher.Flush()
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.log.Error("marshal transition event", "intent_id", id, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: transition\ndata: %s\n\n", data)
			flusher.Flush()

			if ev.Stage.Terminal() {
				// The engine closes the channel after the terminal event;
				// drain the close so the end marker follows immediately.
				if _, open := <-events; !open {
					s.writeEnd(w, id)
					flusher.Flush()
					return
				}
			}
		}
	}
}

func (s *Server) writeEnd(w http.ResponseWriter, id string) {
	final := engine.State("")
	if in, err := s.engine.Get(id); err == nil {
		final = in.State
	}
	data, _ := json.Marshal(endOfStream{IntentID: id, FinalState: final})
	fmt.Fprintf(w, "event: end\ndata: %s\n\n", data)
}
