package search

import (
	"github.com/sourcebot-dev/sourcebot-sub003/internal/ir"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/zoekt"
)

// RequestOptions shape how much the engine materializes per search.
type RequestOptions struct {
	// Matches is the display cap: the maximum number of matches
	// materialized for the caller.
	Matches int

	// ContextLines is the number of context lines around each match.
	ContextLines int

	// Whole requests full file content alongside matches.
	Whole bool
}

// BuildSearchRequest wraps a compiled query for the engine. The query is
// combined under a top-level and with:
//
//   - an exact HEAD branch filter, only when the query carries no
//     revision expression of its own (default-branch scoping, never
//     double-applied);
//   - a repo_set built from repoScope, only when a scope is given. A nil
//     scope means unrestricted; an empty non-nil scope matches nothing.
//
// The engine-side collection cap is set one above the display cap so the
// response reveals whether truncation occurred.
func BuildSearchRequest(q ir.Q, opts RequestOptions, repoScope []string) *zoekt.SearchRequest {
	children := []ir.Q{q}

	if !ir.Some(q, ir.IsBranch) {
		children = append(children, &ir.Branch{Pattern: "HEAD", Exact: true})
	}

	if repoScope != nil {
		children = append(children, ir.NewRepoSet(repoScope...))
	}

	return &zoekt.SearchRequest{
		Query: &ir.And{Children: children},
		Opts: zoekt.SearchOptions{
			ChunkMatches:         true,
			MaxMatchDisplayCount: opts.Matches,
			TotalMaxMatchCount:   opts.Matches + 1,
			NumContextLines:      opts.ContextLines,
			Whole:                opts.Whole,
			ShardMaxMatchCount:   -1,
			MaxWallTime:          0,
		},
	}
}
