package search

import (
	"context"
	"errors"
	"io"
	"log/slog"

	serrors "github.com/sourcebot-dev/sourcebot-sub003/internal/errors"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/ir"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/telemetry"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/zoekt"
)

// streamEventBuffer bounds how far chunk processing may run ahead of the
// consumer. The worker blocks on a full buffer, which in turn stops it
// from receiving more engine frames: backpressure falls out of the
// channel rather than explicit pause/resume.
const streamEventBuffer = 8

// StreamEvent is one element of a streamed search: a sequence of chunk
// events terminated by exactly one final or error event. Nothing is
// emitted after the terminal event or after cancellation.
type StreamEvent interface {
	streamEvent()
}

// ChunkEvent carries one transformed response chunk.
type ChunkEvent struct {
	Type           string           `json:"type"`
	Stats          Stats            `json:"stats"`
	Files          []File           `json:"files"`
	RepositoryInfo []RepositoryInfo `json:"repositoryInfo"`
}

// FinalEvent closes a stream that ran to completion.
type FinalEvent struct {
	Type               string `json:"type"`
	AccumulatedStats   Stats  `json:"accumulatedStats"`
	IsSearchExhaustive bool   `json:"isSearchExhaustive"`
}

// ErrorEvent closes a stream that failed mid-flight.
type ErrorEvent struct {
	Type  string               `json:"type"`
	Error serrors.ServiceError `json:"error"`
}

func (*ChunkEvent) streamEvent() {}
func (*FinalEvent) streamEvent() {}
func (*ErrorEvent) streamEvent() {}

func newChunkEvent(chunk ResponseChunk) *ChunkEvent {
	return &ChunkEvent{
		Type:           "chunk",
		Stats:          chunk.Stats,
		Files:          chunk.Files,
		RepositoryInfo: chunk.RepositoryInfo,
	}
}

func newFinalEvent(acc Stats) *FinalEvent {
	return &FinalEvent{
		Type:               "final",
		AccumulatedStats:   acc,
		IsSearchExhaustive: acc.IsExhaustive(),
	}
}

func newErrorEvent(err error) *ErrorEvent {
	return &ErrorEvent{Type: "error", Error: serrors.ToServiceError(err)}
}

// Executor runs compiled searches against the engine and resolves their
// results against the repository store.
type Executor struct {
	client   zoekt.Client
	source   RepoSource
	logger   *slog.Logger
	recorder *telemetry.Recorder
}

// NewExecutor creates an executor. The recorder may be nil.
func NewExecutor(client zoekt.Client, source RepoSource, logger *slog.Logger, recorder *telemetry.Recorder) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		client:   client,
		source:   source,
		logger:   logger,
		recorder: recorder,
	}
}

// Search runs a unary search: one engine call, one resolved and
// transformed response.
func (e *Executor) Search(ctx context.Context, q ir.Q, opts RequestOptions, repoScope []string) (*Response, error) {
	req := BuildSearchRequest(q, opts, repoScope)

	resp, err := e.client.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, serrors.UnexpectedError("search engine returned an empty response", nil)
	}

	resolver := newRepoResolver(e.source)
	if err := resolver.resolveChunk(ctx, resp.Files); err != nil {
		return nil, err
	}

	chunk := transformResponse(resp, resolver, e.logger, e.recorder)
	e.recorder.Record(telemetry.EventSearch, map[string]string{
		"flush_reason": string(chunk.Stats.FlushReason),
	})

	return &Response{
		Stats:              chunk.Stats,
		Files:              chunk.Files,
		RepositoryInfo:     chunk.RepositoryInfo,
		IsSearchExhaustive: chunk.Stats.IsExhaustive(),
	}, nil
}

// StreamSearch runs a streamed search. Events arrive on the returned
// channel in engine receive order; the channel closes after the terminal
// event, or without one if ctx is cancelled first. The engine stream is
// released exactly once regardless of which exit path fires.
func (e *Executor) StreamSearch(ctx context.Context, q ir.Q, opts RequestOptions, repoScope []string) (<-chan StreamEvent, error) {
	req := BuildSearchRequest(q, opts, repoScope)

	stream, err := e.client.StreamSearch(ctx, req)
	if err != nil {
		return nil, err
	}

	events := make(chan StreamEvent, streamEventBuffer)
	go e.pump(ctx, stream, events)
	return events, nil
}

// pump drains the engine stream, transforming each chunk and forwarding
// it to the consumer. One resolver accumulates repository metadata
// across all chunks of the call.
func (e *Executor) pump(ctx context.Context, stream zoekt.SearchStream, events chan<- StreamEvent) {
	defer close(events)
	// Covers the error path; after a normal drain the stream is already
	// closed and Cancel is a no-op.
	defer stream.Cancel()

	// Recv is a connection read with no deadline, so consumer
	// cancellation must close the stream out-of-band to unblock it.
	stop := context.AfterFunc(ctx, stream.Cancel)
	defer stop()

	resolver := newRepoResolver(e.source)
	var acc Stats

	emit := func(event StreamEvent) bool {
		select {
		case events <- event:
			return true
		case <-ctx.Done():
			e.recorder.Record(telemetry.EventStreamCancelled, nil)
			return false
		}
	}

	for {
		resp, err := stream.Recv()
		if ctx.Err() != nil {
			// Cancelled while receiving; whatever Recv returned after the
			// out-of-band close is not forwarded.
			e.recorder.Record(telemetry.EventStreamCancelled, nil)
			return
		}
		if errors.Is(err, io.EOF) {
			emit(newFinalEvent(acc))
			e.recorder.Record(telemetry.EventStreamSearch, map[string]string{
				"flush_reason": string(acc.FlushReason),
			})
			return
		}
		if err != nil {
			emit(newErrorEvent(err))
			return
		}

		if err := resolver.resolveChunk(ctx, resp.Files); err != nil {
			emit(newErrorEvent(err))
			return
		}

		chunk := transformResponse(resp, resolver, e.logger, e.recorder)
		acc = AccumulateStats(acc, chunk.Stats)

		if !emit(newChunkEvent(chunk)) {
			return
		}
	}
}
