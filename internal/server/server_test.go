package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/sourcebot-dev/sourcebot-sub003/internal/errors"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/search"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/telemetry"
)

type fakeService struct {
	response  *search.Response
	err       error
	events    []search.StreamEvent
	streamErr error
	gotUser   string
	gotQuery  string
}

func (s *fakeService) Search(_ context.Context, userID string, req *search.Request) (*search.Response, error) {
	s.gotUser = userID
	s.gotQuery = req.Query
	return s.response, s.err
}

func (s *fakeService) StreamSearch(_ context.Context, userID string, req *search.Request) (<-chan search.StreamEvent, error) {
	s.gotUser = userID
	s.gotQuery = req.Query
	if s.streamErr != nil {
		return nil, s.streamErr
	}
	events := make(chan search.StreamEvent, len(s.events))
	for _, event := range s.events {
		events <- event
	}
	close(events)
	return events, nil
}

func newTestServer(service *fakeService) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New("127.0.0.1:0", service, logger, nil)
}

func postJSON(t *testing.T, handler http.Handler, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(payload)))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleSearch(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		service := &fakeService{response: &search.Response{
			Stats:              search.Stats{ActualMatchCount: 3, TotalMatchCount: 3},
			Files:              []search.File{},
			RepositoryInfo:     []search.RepositoryInfo{},
			IsSearchExhaustive: true,
		}}
		server := newTestServer(service)

		rec := postJSON(t, server.Handler(), "/api/search",
			search.Request{Query: "foo", Matches: 10},
			map[string]string{"X-User-Id": "alice"})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "alice", service.gotUser)
		assert.Equal(t, "foo", service.gotQuery)

		var resp search.Response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.IsSearchExhaustive)
		assert.Equal(t, 3, resp.Stats.ActualMatchCount)
	})

	t.Run("user-correctable errors map to 400", func(t *testing.T) {
		service := &fakeService{err: serrors.QueryParseError("(foo", assert.AnError)}
		server := newTestServer(service)

		rec := postJSON(t, server.Handler(), "/api/search", search.Request{Query: "(foo"}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var se serrors.ServiceError
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &se))
		assert.Equal(t, serrors.ErrCodeQueryParse, se.ErrorCode)
		assert.Contains(t, se.Message, "(foo")
	})

	t.Run("engine errors map to 502", func(t *testing.T) {
		service := &fakeService{err: serrors.EngineError("engine down", assert.AnError)}
		server := newTestServer(service)

		rec := postJSON(t, server.Handler(), "/api/search", search.Request{Query: "foo"}, nil)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("malformed body maps to 400", func(t *testing.T) {
		server := newTestServer(&fakeService{})
		req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		server := newTestServer(&fakeService{})
		req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("requests are counted per endpoint", func(t *testing.T) {
		recorder := telemetry.NewRecorder()
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		server := New("127.0.0.1:0", &fakeService{response: &search.Response{}}, logger, recorder)

		postJSON(t, server.Handler(), "/api/search", search.Request{Query: "foo"}, nil)
		postJSON(t, server.Handler(), "/api/search", search.Request{Query: "bar"}, nil)
		postJSON(t, server.Handler(), "/api/stream_search", search.Request{Query: "baz"}, nil)

		assert.Equal(t, uint64(3), recorder.Count(telemetry.EventAPIRequest))
		recent := recorder.Recent(telemetry.EventAPIRequest)
		require.NotEmpty(t, recent)
	})
}

func TestHandleStreamSearch(t *testing.T) {
	t.Run("sse framing", func(t *testing.T) {
		chunk := &search.ChunkEvent{
			Type:           "chunk",
			Stats:          search.Stats{ActualMatchCount: 2, TotalMatchCount: 2},
			Files:          []search.File{},
			RepositoryInfo: []search.RepositoryInfo{},
		}
		final := &search.FinalEvent{
			Type:               "final",
			AccumulatedStats:   search.Stats{ActualMatchCount: 2, TotalMatchCount: 2},
			IsSearchExhaustive: true,
		}
		service := &fakeService{events: []search.StreamEvent{chunk, final}}
		server := newTestServer(service)

		rec := postJSON(t, server.Handler(), "/api/stream_search", search.Request{Query: "foo"}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

		body := rec.Body.String()
		records := strings.Split(strings.TrimSuffix(body, "\n\n"), "\n\n")
		require.Len(t, records, 3)

		var first map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(records[0], "data: ")), &first))
		assert.Equal(t, "chunk", first["type"])

		var second map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(records[1], "data: ")), &second))
		assert.Equal(t, "final", second["type"])
		assert.Equal(t, true, second["isSearchExhaustive"])

		// The terminator is the literal sentinel, not JSON.
		assert.Equal(t, "data: [DONE]", records[2])
	})

	t.Run("error event ends the stream without the sentinel", func(t *testing.T) {
		errEvent := &search.ErrorEvent{
			Type:  "error",
			Error: serrors.ToServiceError(serrors.EngineError("stream broke", nil)),
		}
		service := &fakeService{events: []search.StreamEvent{errEvent}}
		server := newTestServer(service)

		rec := postJSON(t, server.Handler(), "/api/stream_search", search.Request{Query: "foo"}, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := rec.Body.String()
		assert.Contains(t, body, `"type":"error"`)
		assert.NotContains(t, body, "[DONE]")
	})

	t.Run("compile failures are plain http errors", func(t *testing.T) {
		service := &fakeService{streamErr: serrors.QueryParseError("(foo", assert.AnError)}
		server := newTestServer(service)

		rec := postJSON(t, server.Handler(), "/api/stream_search", search.Request{Query: "(foo"}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	})
}

func TestHandleHealth(t *testing.T) {
	server := newTestServer(&fakeService{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}
