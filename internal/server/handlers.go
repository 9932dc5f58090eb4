package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	serrors "github.com/sourcebot-dev/sourcebot-sub003/internal/errors"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/search"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/telemetry"
	"github.com/sourcebot-dev/sourcebot-sub003/pkg/version"
)

// userIDHeader identifies the requesting user for permission scoping.
// Empty means anonymous; with permission syncing disabled every user sees
// everything anyway.
const userIDHeader = "X-User-Id"

// doneSentinel terminates an event stream. It is a literal string, not
// JSON, written immediately after the final record.
const doneSentinel = "[DONE]"

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	s.recorder.Record(telemetry.EventAPIRequest, map[string]string{"endpoint": "search"})

	req, err := decodeSearchRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp, err := s.service.Search(r.Context(), r.Header.Get(userIDHeader), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStreamSearch(w http.ResponseWriter, r *http.Request) {
	s.recorder.Record(telemetry.EventAPIRequest, map[string]string{"endpoint": "stream_search"})

	req, err := decodeSearchRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, serrors.UnexpectedError("streaming is not supported by this connection", nil))
		return
	}

	events, err := s.service.StreamSearch(r.Context(), r.Header.Get(userIDHeader), req)
	if err != nil {
		// Compile and scope failures arrive before any event is written,
		// so they still map to a plain HTTP error response.
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			s.logger.Error("failed to encode stream event", slog.String("error", err.Error()))
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()

		if _, isFinal := event.(*search.FinalEvent); isFinal {
			fmt.Fprintf(w, "data: %s\n\n", doneSentinel)
			flusher.Flush()
		}
	}
}

func decodeSearchRequest(r *http.Request) (*search.Request, error) {
	var req search.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, serrors.New(serrors.ErrCodeQueryParse, "invalid request body", err)
	}
	return &req, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	se := serrors.ToServiceError(err)
	if se.StatusCode >= http.StatusInternalServerError {
		s.logger.Error("search request failed",
			slog.String("code", se.ErrorCode),
			slog.String("error", err.Error()))
	}
	writeJSON(w, se.StatusCode, se)
}
