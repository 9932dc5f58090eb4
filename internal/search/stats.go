package search

import "github.com/sourcebot-dev/sourcebot-sub003/internal/zoekt"

// statsFromEngine maps one engine stats block into the public vocabulary.
// ActualMatchCount is left zero; the response transformer recomputes it
// from the materialized files.
func statsFromEngine(s zoekt.Stats) Stats {
	return Stats{
		TotalMatchCount:       s.MatchCount,
		Duration:              s.Duration,
		FileCount:             s.FileCount,
		FilesSkipped:          s.FilesSkipped,
		FilesConsidered:       s.FilesConsidered,
		FilesLoaded:           s.FilesLoaded,
		ShardFilesConsidered:  s.ShardFilesConsidered,
		ShardsScanned:         s.ShardsScanned,
		ShardsSkipped:         s.ShardsSkipped,
		ShardsSkippedFilter:   s.ShardsSkippedFilter,
		ContentBytesLoaded:    s.ContentBytesLoaded,
		IndexBytesLoaded:      s.IndexBytesLoaded,
		Crashes:               s.Crashes,
		NgramMatches:          s.NgramMatches,
		NgramLookups:          s.NgramLookups,
		RegexpsConsidered:     s.RegexpsConsidered,
		Wait:                  s.Wait,
		MatchTreeConstruction: s.MatchTreeConstruction,
		MatchTreeSearch:       s.MatchTreeSearch,
		FlushReason:           s.FlushReason,
	}
}

// AccumulateStats merges one chunk's stats into an accumulator. Every
// numeric field adds field-wise, making accumulation associative and
// commutative with the zero value as identity. FlushReason is the one
// exception: the first non-unknown value seen wins.
func AccumulateStats(acc, chunk Stats) Stats {
	flushReason := acc.FlushReason
	if flushReason == zoekt.FlushReasonUnknown {
		flushReason = chunk.FlushReason
	}

	return Stats{
		ActualMatchCount:      acc.ActualMatchCount + chunk.ActualMatchCount,
		TotalMatchCount:       acc.TotalMatchCount + chunk.TotalMatchCount,
		Duration:              acc.Duration + chunk.Duration,
		FileCount:             acc.FileCount + chunk.FileCount,
		FilesSkipped:          acc.FilesSkipped + chunk.FilesSkipped,
		FilesConsidered:       acc.FilesConsidered + chunk.FilesConsidered,
		FilesLoaded:           acc.FilesLoaded + chunk.FilesLoaded,
		ShardFilesConsidered:  acc.ShardFilesConsidered + chunk.ShardFilesConsidered,
		ShardsScanned:         acc.ShardsScanned + chunk.ShardsScanned,
		ShardsSkipped:         acc.ShardsSkipped + chunk.ShardsSkipped,
		ShardsSkippedFilter:   acc.ShardsSkippedFilter + chunk.ShardsSkippedFilter,
		ContentBytesLoaded:    acc.ContentBytesLoaded + chunk.ContentBytesLoaded,
		IndexBytesLoaded:      acc.IndexBytesLoaded + chunk.IndexBytesLoaded,
		Crashes:               acc.Crashes + chunk.Crashes,
		NgramMatches:          acc.NgramMatches + chunk.NgramMatches,
		NgramLookups:          acc.NgramLookups + chunk.NgramLookups,
		RegexpsConsidered:     acc.RegexpsConsidered + chunk.RegexpsConsidered,
		Wait:                  acc.Wait + chunk.Wait,
		MatchTreeConstruction: acc.MatchTreeConstruction + chunk.MatchTreeConstruction,
		MatchTreeSearch:       acc.MatchTreeSearch + chunk.MatchTreeSearch,
		FlushReason:           flushReason,
	}
}

// IsExhaustive reports whether the accumulated results are the complete
// match set. The engine collects up to one match beyond the display cap,
// so a total exceeding the materialized count means truncation happened.
func (s Stats) IsExhaustive() bool {
	return s.TotalMatchCount <= s.ActualMatchCount
}
