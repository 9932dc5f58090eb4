// Package zoekt is a thin client for the search engine's socket API. It
// carries the wire types for search requests and responses and a client
// supporting both single-shot and streamed searches.
package zoekt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sourcebot-dev/sourcebot-sub003/internal/ir"
)

// SearchOptions tune how the engine executes a search.
type SearchOptions struct {
	// ChunkMatches requests chunk-oriented match results.
	ChunkMatches bool `json:"chunk_matches"`

	// MaxMatchDisplayCount caps the number of matches returned to the
	// caller.
	MaxMatchDisplayCount int `json:"max_match_display_count"`

	// TotalMaxMatchCount caps the number of matches the engine collects
	// before stopping. Set one above the display cap to detect truncation.
	TotalMaxMatchCount int `json:"total_max_match_count"`

	// NumContextLines is the number of context lines around each match.
	NumContextLines int `json:"num_context_lines"`

	// Whole requests full file content alongside matches.
	Whole bool `json:"whole"`

	// ShardMaxMatchCount limits matches per shard. -1 disables the limit.
	ShardMaxMatchCount int `json:"shard_max_match_count"`

	// MaxWallTime bounds engine-side execution. Zero means no bound.
	MaxWallTime time.Duration `json:"max_wall_time"`
}

// SearchRequest is a compiled query plus execution options.
type SearchRequest struct {
	Query ir.Q
	Opts  SearchOptions
}

type searchRequestWire struct {
	Query json.RawMessage `json:"query"`
	Opts  SearchOptions   `json:"opts"`
}

func (r *SearchRequest) MarshalJSON() ([]byte, error) {
	query, err := ir.MarshalQ(r.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}
	return json.Marshal(searchRequestWire{Query: query, Opts: r.Opts})
}

func (r *SearchRequest) UnmarshalJSON(data []byte) error {
	var wire searchRequestWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	query, err := ir.UnmarshalQ(wire.Query)
	if err != nil {
		return err
	}
	r.Query = query
	r.Opts = wire.Opts
	return nil
}

// FlushReason records why the engine emitted a response chunk.
type FlushReason string

const (
	FlushReasonUnknown      FlushReason = ""
	FlushReasonTimerExpired FlushReason = "timer_expired"
	FlushReasonFinalFlush   FlushReason = "final_flush"
	FlushReasonMaxSize      FlushReason = "max_size_reached"
)

// Stats describe the work one engine response represents. Streamed
// responses each carry partial stats covering only that chunk.
type Stats struct {
	MatchCount            int           `json:"match_count"`
	FileCount             int           `json:"file_count"`
	FilesSkipped          int           `json:"files_skipped"`
	FilesConsidered       int           `json:"files_considered"`
	FilesLoaded           int           `json:"files_loaded"`
	ShardFilesConsidered  int           `json:"shard_files_considered"`
	ShardsScanned         int           `json:"shards_scanned"`
	ShardsSkipped         int           `json:"shards_skipped"`
	ShardsSkippedFilter   int           `json:"shards_skipped_filter"`
	ContentBytesLoaded    int64         `json:"content_bytes_loaded"`
	IndexBytesLoaded      int64         `json:"index_bytes_loaded"`
	Crashes               int           `json:"crashes"`
	NgramMatches          int           `json:"ngram_matches"`
	NgramLookups          int           `json:"ngram_lookups"`
	RegexpsConsidered     int           `json:"regexps_considered"`
	Duration              time.Duration `json:"duration"`
	Wait                  time.Duration `json:"wait"`
	MatchTreeConstruction time.Duration `json:"match_tree_construction"`
	MatchTreeSearch       time.Duration `json:"match_tree_search"`
	FlushReason           FlushReason   `json:"flush_reason"`
}

// Location is a position within a file. Line and column are 1-based.
type Location struct {
	ByteOffset uint32 `json:"byte_offset"`
	LineNumber uint32 `json:"line_number"`
	Column     uint32 `json:"column"`
}

// Range is a half-open [Start, End) span within a file.
type Range struct {
	Start Location `json:"start"`
	End   Location `json:"end"`
}

// SymbolInfo describes the enclosing symbol of a match.
type SymbolInfo struct {
	Sym        string `json:"sym"`
	Kind       string `json:"kind"`
	Parent     string `json:"parent,omitempty"`
	ParentKind string `json:"parent_kind,omitempty"`
}

// ChunkMatch is a contiguous region of matched content. FileName chunks
// match against the file path rather than its content.
type ChunkMatch struct {
	Content      []byte        `json:"content"`
	ContentStart Location      `json:"content_start"`
	Ranges       []Range       `json:"ranges"`
	FileName     bool          `json:"file_name"`
	SymbolInfo   []*SymbolInfo `json:"symbol_info,omitempty"`
}

// MatchCount sums the ranges across all chunks of a file.
func (m *FileMatch) MatchCount() int {
	n := 0
	for _, chunk := range m.ChunkMatches {
		n += len(chunk.Ranges)
	}
	return n
}

// FileMatch is one file with matches. RepositoryID is only present for
// engines that index repository identifiers.
type FileMatch struct {
	FileName     string       `json:"file_name"`
	Repository   string       `json:"repository"`
	RepositoryID *uint32      `json:"repository_id,omitempty"`
	Language     string       `json:"language"`
	Branches     []string     `json:"branches,omitempty"`
	ChunkMatches []ChunkMatch `json:"chunk_matches"`
	Content      []byte       `json:"content,omitempty"`
}

// SearchResponse is one engine response. A single-shot search yields
// exactly one; a streamed search yields a sequence of them.
type SearchResponse struct {
	Stats Stats       `json:"stats"`
	Files []FileMatch `json:"files"`
}
