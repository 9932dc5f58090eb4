package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	serrors "github.com/sourcebot-dev/sourcebot-sub003/internal/errors"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/ir"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/query"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/telemetry"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/zoekt"
)

// Request is the inbound search request. Query carries query-language
// text by default; programmatic callers set QueryType to "ir" and supply
// a pre-built IR in QueryIR, bypassing the parser but not request
// building or scoping.
type Request struct {
	Query     string          `json:"query"`
	QueryType string          `json:"queryType,omitempty"` // "" or "string" or "ir"
	QueryIR   json.RawMessage `json:"queryIr,omitempty"`

	Source       string `json:"source,omitempty"`
	Matches      int    `json:"matches"`
	ContextLines int    `json:"contextLines,omitempty"`
	Whole        bool   `json:"whole,omitempty"`

	IsRegexEnabled           bool `json:"isRegexEnabled,omitempty"`
	IsCaseSensitivityEnabled bool `json:"isCaseSensitivityEnabled,omitempty"`
	IsArchivedExcluded       bool `json:"isArchivedExcluded,omitempty"`
	IsForkedExcluded         bool `json:"isForkedExcluded,omitempty"`

	// GitRevision pins the whole search to one revision, regardless of
	// rev: filters in the query text.
	GitRevision string `json:"gitRevision,omitempty"`

	// Since and Until restrict results to repositories indexed inside
	// the given window. Values accept ISO dates and relative forms like
	// "30 days ago".
	Since string `json:"since,omitempty"`
	Until string `json:"until,omitempty"`
}

// Store is the repository metadata collaborator the service depends on.
type Store interface {
	RepoSource
	ExpandSearchContext(ctx context.Context, name string) ([]string, error)
	AccessibleRepoNames(ctx context.Context, userID string) ([]string, error)
	RepoNamesIndexedBetween(ctx context.Context, since, until *time.Time) ([]string, error)
}

// Defaults fill in request fields the caller left unset.
type Defaults struct {
	Matches      int
	ContextLines int
}

// Service is the top of the search pipeline: it compiles inbound
// requests, computes the repository scope, and hands off to the
// executor.
type Service struct {
	executor *Executor
	store    Store
	logger   *slog.Logger
	recorder *telemetry.Recorder
	defaults Defaults

	// now is swappable for relative-date tests.
	now func() time.Time
}

// NewService wires the search pipeline. The recorder may be nil.
func NewService(client zoekt.Client, store Store, logger *slog.Logger, recorder *telemetry.Recorder, defaults Defaults) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if defaults.Matches == 0 {
		defaults.Matches = 10000
	}
	return &Service{
		executor: NewExecutor(client, store, logger, recorder),
		store:    store,
		logger:   logger,
		recorder: recorder,
		defaults: defaults,
		now:      time.Now,
	}
}

// Search runs a unary search for the given user.
func (s *Service) Search(ctx context.Context, userID string, req *Request) (*Response, error) {
	q, opts, scope, err := s.prepare(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	return s.executor.Search(ctx, q, opts, scope)
}

// StreamSearch runs a streamed search for the given user. Compile and
// scope failures surface synchronously; mid-stream failures arrive as
// error events.
func (s *Service) StreamSearch(ctx context.Context, userID string, req *Request) (<-chan StreamEvent, error) {
	q, opts, scope, err := s.prepare(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	return s.executor.StreamSearch(ctx, q, opts, scope)
}

func (s *Service) prepare(ctx context.Context, userID string, req *Request) (ir.Q, RequestOptions, []string, error) {
	q, err := s.compile(ctx, req)
	if err != nil {
		return nil, RequestOptions{}, nil, err
	}

	scope, err := s.resolveScope(ctx, userID, req)
	if err != nil {
		return nil, RequestOptions{}, nil, err
	}

	opts := RequestOptions{
		Matches:      req.Matches,
		ContextLines: req.ContextLines,
		Whole:        req.Whole,
	}
	if opts.Matches <= 0 {
		opts.Matches = s.defaults.Matches
	}
	if opts.ContextLines <= 0 {
		opts.ContextLines = s.defaults.ContextLines
	}

	return q, opts, scope, nil
}

// compile turns the inbound request into IR: parse + transform for text
// queries, decode for pre-built IR, then the request-level wrappers
// (archived/fork exclusion, revision pin) in both cases.
func (s *Service) compile(ctx context.Context, req *Request) (ir.Q, error) {
	var q ir.Q

	switch req.QueryType {
	case "", "string":
		tree, err := query.Parse(req.Query)
		if err != nil {
			s.recorder.Record(telemetry.EventQueryParseFailure, map[string]string{
				"source": req.Source,
			})
			return nil, serrors.QueryParseError(req.Query, err)
		}

		q, err = ir.Transform(ctx, tree, ir.TransformOptions{
			CaseSensitive: req.IsCaseSensitivityEnabled,
			RegexEnabled:  req.IsRegexEnabled,
			Logger:        s.logger,
		}, s.store)
		if err != nil {
			return nil, err
		}

	case "ir":
		decoded, err := ir.UnmarshalQ(req.QueryIR)
		if err != nil {
			return nil, serrors.QueryParseError(string(req.QueryIR), err)
		}
		q = decoded

	default:
		return nil, serrors.InvalidFilterValueError(
			fmt.Sprintf("invalid queryType: %q. Expected 'string' or 'ir'", req.QueryType))
	}

	var wrappers []ir.Q
	if req.IsArchivedExcluded {
		wrappers = append(wrappers, &ir.RawConfig{Flags: []ir.RawConfigFlag{ir.FlagNoArchived}})
	}
	if req.IsForkedExcluded {
		wrappers = append(wrappers, &ir.RawConfig{Flags: []ir.RawConfigFlag{ir.FlagNoForks}})
	}
	if req.GitRevision != "" {
		wrappers = append(wrappers, &ir.Branch{Pattern: req.GitRevision, Exact: true})
	}
	if len(wrappers) > 0 {
		q = &ir.And{Children: append([]ir.Q{q}, wrappers...)}
	}

	return q, nil
}

// resolveScope combines the permission scope with the temporal scope.
// Nil means unrestricted; an empty non-nil slice matches nothing.
func (s *Service) resolveScope(ctx context.Context, userID string, req *Request) ([]string, error) {
	permitted, err := s.store.AccessibleRepoNames(ctx, userID)
	if err != nil {
		return nil, err
	}

	temporal, err := s.temporalScope(ctx, req)
	if err != nil {
		return nil, err
	}

	return combineRepoFilters(permitted, temporal), nil
}

func (s *Service) temporalScope(ctx context.Context, req *Request) ([]string, error) {
	if req.Since == "" && req.Until == "" {
		return nil, nil
	}

	var since, until *time.Time
	if req.Since != "" {
		t, err := ParseDateFilter(req.Since, s.now())
		if err != nil {
			return nil, serrors.InvalidFilterValueError(
				fmt.Sprintf("invalid since date: %s", err.Error()))
		}
		since = &t
	}
	if req.Until != "" {
		t, err := ParseDateFilter(req.Until, s.now())
		if err != nil {
			return nil, serrors.InvalidFilterValueError(
				fmt.Sprintf("invalid until date: %s", err.Error()))
		}
		until = &t
	}

	return s.store.RepoNamesIndexedBetween(ctx, since, until)
}

// combineRepoFilters intersects two repository scopes, where nil means
// "no restriction".
func combineRepoFilters(a, b []string) []string {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}

	inB := make(map[string]bool, len(b))
	for _, name := range b {
		inB[name] = true
	}

	out := []string{}
	for _, name := range a {
		if inB[name] {
			out = append(out, name)
		}
	}
	return out
}
