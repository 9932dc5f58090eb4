package search

import (
	"log/slog"

	"github.com/sourcebot-dev/sourcebot-sub003/internal/telemetry"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/zoekt"
)

// ResponseChunk is the public shape of one transformed engine response.
// In the unary path there is exactly one; in the streaming path one per
// received chunk.
type ResponseChunk struct {
	Stats          Stats            `json:"stats"`
	Files          []File           `json:"files"`
	RepositoryInfo []RepositoryInfo `json:"repositoryInfo"`
}

// transformResponse shapes one engine response into the public schema
// using the metadata the resolver has accumulated so far.
//
// Files whose repository cannot be resolved are skipped, not failed: a
// stale shard can reference a repository the store no longer knows. The
// skip is logged and counted for operational visibility.
//
// Stats.ActualMatchCount is recomputed from the materialized files
// (content match ranges plus filename match ranges), independent of the
// engine's own match counter.
func transformResponse(resp *zoekt.SearchResponse, resolver *repoResolver, logger *slog.Logger, recorder *telemetry.Recorder) ResponseChunk {
	files := make([]File, 0, len(resp.Files))
	actualMatchCount := 0

	for i := range resp.Files {
		engineFile := &resp.Files[i]

		repo, ok := resolver.lookup(engineFile)
		if !ok {
			logger.Warn("skipping file with unknown repository",
				slog.String("repository", engineFile.Repository),
				slog.String("file", engineFile.FileName))
			recorder.Record(telemetry.EventRepoNotFoundForFile, map[string]string{
				"repository": engineFile.Repository,
			})
			continue
		}

		file := File{
			FileName:     FileName{Text: engineFile.FileName},
			Repository:   repo.Name,
			RepositoryID: repo.ID,
			Language:     engineFile.Language,
			Branches:     engineFile.Branches,
			Content:      string(engineFile.Content),
			WebURL: fileWebURL(repo, defaultBranchFor(engineFile.Branches),
				engineFile.FileName),
		}

		for _, chunk := range engineFile.ChunkMatches {
			ranges := copyRanges(chunk.Ranges)
			if chunk.FileName {
				// Filename chunks match the path, not the content.
				file.FileName.MatchRanges = append(file.FileName.MatchRanges, ranges...)
				actualMatchCount += len(ranges)
				continue
			}

			file.Chunks = append(file.Chunks, Chunk{
				Content:      string(chunk.Content),
				MatchRanges:  ranges,
				ContentStart: copyLocation(chunk.ContentStart),
				SymbolInfo:   copySymbols(chunk.SymbolInfo),
			})
			actualMatchCount += len(ranges)
		}

		files = append(files, file)
	}

	stats := statsFromEngine(resp.Stats)
	stats.ActualMatchCount = actualMatchCount

	return ResponseChunk{
		Stats:          stats,
		Files:          files,
		RepositoryInfo: resolver.repositoryInfo(),
	}
}

func copyLocation(l zoekt.Location) Location {
	return Location{
		ByteOffset: l.ByteOffset,
		LineNumber: l.LineNumber,
		Column:     l.Column,
	}
}

func copyRanges(ranges []zoekt.Range) []Range {
	out := make([]Range, len(ranges))
	for i, r := range ranges {
		out[i] = Range{Start: copyLocation(r.Start), End: copyLocation(r.End)}
	}
	return out
}

func copySymbols(symbols []*zoekt.SymbolInfo) []SymbolInfo {
	if len(symbols) == 0 {
		return nil
	}
	out := make([]SymbolInfo, 0, len(symbols))
	for _, s := range symbols {
		if s == nil {
			continue
		}
		out = append(out, SymbolInfo{
			Sym:        s.Sym,
			Kind:       s.Kind,
			Parent:     s.Parent,
			ParentKind: s.ParentKind,
		})
	}
	return out
}
