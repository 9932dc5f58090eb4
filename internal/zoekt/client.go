package zoekt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	serrors "github.com/sourcebot-dev/sourcebot-sub003/internal/errors"
)

// JSON-RPC 2.0 method names.
const (
	MethodSearch       = "search"
	MethodStreamSearch = "stream_search"
)

// Standard JSON-RPC 2.0 error codes.
const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      string `json:"id"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      string          `json:"id"`
}

// Error represents a JSON-RPC 2.0 error.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code: %d)", e.Message, e.Code)
}

// Frame kinds for streamed searches. After accepting a stream_search
// request the engine writes a sequence of chunk frames followed by
// exactly one done or error frame.
const (
	FrameResponseChunk = "response_chunk"
	FrameDone          = "done"
	FrameError         = "error"
)

// StreamFrame is one element of a streamed search response.
type StreamFrame struct {
	Kind     string          `json:"kind"`
	Response *SearchResponse `json:"response,omitempty"`
	Error    *Error          `json:"error,omitempty"`
}

// SearchStream yields the responses of a streamed search. Recv returns
// io.EOF after the final response. Cancel releases the stream early;
// both paths close the underlying connection exactly once.
type SearchStream interface {
	Recv() (*SearchResponse, error)
	Cancel()
}

// Client executes searches against the engine.
type Client interface {
	// Search runs a single-shot search and returns the complete response.
	Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error)

	// StreamSearch starts a streamed search. The caller must drain or
	// cancel the returned stream.
	StreamSearch(ctx context.Context, req *SearchRequest) (SearchStream, error)
}

// Options configure the engine connection.
type Options struct {
	// Network is "unix" or "tcp".
	Network string

	// Address is the socket path or host:port.
	Address string

	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration
}

// client dials a fresh connection per call. The engine closes the
// connection after each response, so there is nothing to pool.
type client struct {
	opts      Options
	requestID atomic.Uint64
}

var _ Client = (*client)(nil)

// NewClient creates an engine client. It does not dial until the first
// search.
func NewClient(opts Options) Client {
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	return &client{opts: opts}
}

func (c *client) dial(ctx context.Context) (net.Conn, error) {
	dialer := net.Dialer{Timeout: c.opts.DialTimeout}
	conn, err := dialer.DialContext(ctx, c.opts.Network, c.opts.Address)
	if err != nil {
		return nil, serrors.EngineError(
			fmt.Sprintf("failed to connect to search engine at %s", c.opts.Address), err)
	}
	return conn, nil
}

func (c *client) nextID() string {
	return fmt.Sprintf("req-%d", c.requestID.Add(1))
}

func (c *client) send(conn net.Conn, method string, req *SearchRequest) error {
	rpc := Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  req,
		ID:      c.nextID(),
	}
	if err := json.NewEncoder(conn).Encode(rpc); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	return nil
}

func (c *client) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, fmt.Errorf("failed to set deadline: %w", err)
		}
	}

	if err := c.send(conn, MethodSearch, req); err != nil {
		return nil, err
	}

	var rpc Response
	if err := json.NewDecoder(conn).Decode(&rpc); err != nil {
		return nil, serrors.New(serrors.ErrCodeEngineStream, "failed to receive search response", err)
	}
	if rpc.Error != nil {
		return nil, serrors.New(serrors.ErrCodeEngineStream, "search failed", rpc.Error)
	}

	var resp SearchResponse
	if err := json.Unmarshal(rpc.Result, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return &resp, nil
}

func (c *client) StreamSearch(ctx context.Context, req *SearchRequest) (SearchStream, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set deadline: %w", err)
		}
	}

	if err := c.send(conn, MethodStreamSearch, req); err != nil {
		conn.Close()
		return nil, err
	}

	return &searchStream{
		conn:    conn,
		decoder: json.NewDecoder(conn),
	}, nil
}

// searchStream reads chunk frames off the connection until a terminal
// frame arrives.
type searchStream struct {
	conn      net.Conn
	decoder   *json.Decoder
	closeOnce sync.Once
	done      bool
}

var _ SearchStream = (*searchStream)(nil)

func (s *searchStream) Recv() (*SearchResponse, error) {
	if s.done {
		return nil, io.EOF
	}

	var frame StreamFrame
	if err := s.decoder.Decode(&frame); err != nil {
		s.close()
		if err == io.EOF {
			// The engine hung up without a terminal frame.
			return nil, serrors.New(serrors.ErrCodeEngineStream,
				"search stream ended unexpectedly", err)
		}
		return nil, serrors.New(serrors.ErrCodeEngineStream,
			"failed to receive stream frame", err)
	}

	switch frame.Kind {
	case FrameResponseChunk:
		if frame.Response == nil {
			s.close()
			return nil, serrors.New(serrors.ErrCodeEngineStream,
				"stream chunk frame missing response", nil)
		}
		return frame.Response, nil
	case FrameDone:
		s.done = true
		s.close()
		return nil, io.EOF
	case FrameError:
		s.done = true
		s.close()
		if frame.Error == nil {
			return nil, serrors.New(serrors.ErrCodeEngineStream,
				"stream error frame missing error", nil)
		}
		return nil, serrors.New(serrors.ErrCodeEngineStream, "search stream failed", frame.Error)
	default:
		s.close()
		return nil, serrors.New(serrors.ErrCodeEngineStream,
			fmt.Sprintf("unknown stream frame kind %q", frame.Kind), nil)
	}
}

func (s *searchStream) Cancel() {
	s.done = true
	s.close()
}

func (s *searchStream) close() {
	s.closeOnce.Do(func() {
		_ = s.conn.Close()
	})
}
