// Package search compiles query text into the engine IR, executes
// searches against the engine, and shapes engine responses into the
// public result schema.
package search

import (
	"time"

	"github.com/sourcebot-dev/sourcebot-sub003/internal/zoekt"
)

// Location is a position within a file or chunk. Line and column are
// 1-based; column counts runes.
type Location struct {
	ByteOffset uint32 `json:"byteOffset"`
	LineNumber uint32 `json:"lineNumber"`
	Column     uint32 `json:"column"`
}

// Range is a half-open [Start, End) span.
type Range struct {
	Start Location `json:"start"`
	End   Location `json:"end"`
}

// SymbolInfo describes the symbol enclosing a match range.
type SymbolInfo struct {
	Sym        string `json:"sym"`
	Kind       string `json:"kind"`
	Parent     string `json:"parent,omitempty"`
	ParentKind string `json:"parentKind,omitempty"`
}

// Chunk is a contiguous region of matched file content. Match ranges are
// relative to the chunk's own content, not the whole file.
type Chunk struct {
	Content      string       `json:"content"`
	MatchRanges  []Range      `json:"matchRanges"`
	ContentStart Location     `json:"contentStart"`
	SymbolInfo   []SymbolInfo `json:"symbolInfo,omitempty"`
}

// FileName carries the file path together with any match ranges against
// the path itself.
type FileName struct {
	Text        string  `json:"text"`
	MatchRanges []Range `json:"matchRanges"`
}

// File is one matched file in the result set.
type File struct {
	FileName     FileName `json:"fileName"`
	Repository   string   `json:"repository"`
	RepositoryID uint32   `json:"repositoryId"`
	Language     string   `json:"language"`
	WebURL       string   `json:"webUrl,omitempty"`
	Chunks       []Chunk  `json:"chunks"`
	Branches     []string `json:"branches,omitempty"`
	Content      string   `json:"content,omitempty"`
}

// RepositoryInfo is the metadata block for one repository appearing in
// the result set.
type RepositoryInfo struct {
	ID           uint32 `json:"id"`
	Name         string `json:"name"`
	DisplayName  string `json:"displayName,omitempty"`
	CodeHostType string `json:"codeHostType,omitempty"`
	WebURL       string `json:"webUrl,omitempty"`
}

// Stats describe the work behind one response or response chunk.
// ActualMatchCount counts matches actually materialized in the returned
// files; TotalMatchCount is the engine's own (possibly truncated) total.
// The two stay distinct: exhaustiveness compares them.
type Stats struct {
	ActualMatchCount      int               `json:"actualMatchCount"`
	TotalMatchCount       int               `json:"totalMatchCount"`
	Duration              time.Duration     `json:"duration"`
	FileCount             int               `json:"fileCount"`
	FilesSkipped          int               `json:"filesSkipped"`
	FilesConsidered       int               `json:"filesConsidered"`
	FilesLoaded           int               `json:"filesLoaded"`
	ShardFilesConsidered  int               `json:"shardFilesConsidered"`
	ShardsScanned         int               `json:"shardsScanned"`
	ShardsSkipped         int               `json:"shardsSkipped"`
	ShardsSkippedFilter   int               `json:"shardsSkippedFilter"`
	ContentBytesLoaded    int64             `json:"contentBytesLoaded"`
	IndexBytesLoaded      int64             `json:"indexBytesLoaded"`
	Crashes               int               `json:"crashes"`
	NgramMatches          int               `json:"ngramMatches"`
	NgramLookups          int               `json:"ngramLookups"`
	RegexpsConsidered     int               `json:"regexpsConsidered"`
	Wait                  time.Duration     `json:"wait"`
	MatchTreeConstruction time.Duration     `json:"matchTreeConstruction"`
	MatchTreeSearch       time.Duration     `json:"matchTreeSearch"`
	FlushReason           zoekt.FlushReason `json:"flushReason"`
}

// Response is the complete result of a unary search.
type Response struct {
	Stats              Stats            `json:"stats"`
	Files              []File           `json:"files"`
	RepositoryInfo     []RepositoryInfo `json:"repositoryInfo"`
	IsSearchExhaustive bool             `json:"isSearchExhaustive"`
}
