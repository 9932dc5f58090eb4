package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sourcebot-dev/sourcebot-sub003/internal/zoekt"
)

func sampleStats(seed int) Stats {
	return Stats{
		ActualMatchCount:   seed,
		TotalMatchCount:    seed * 2,
		Duration:           time.Duration(seed) * time.Millisecond,
		FileCount:          seed + 1,
		FilesSkipped:       seed % 3,
		ContentBytesLoaded: int64(seed) * 100,
		NgramMatches:       seed * 7,
		Wait:               time.Duration(seed) * time.Microsecond,
	}
}

func TestAccumulateStatsMonoid(t *testing.T) {
	a, b, c := sampleStats(1), sampleStats(5), sampleStats(11)

	t.Run("associative", func(t *testing.T) {
		left := AccumulateStats(AccumulateStats(a, b), c)
		right := AccumulateStats(a, AccumulateStats(b, c))
		assert.Equal(t, left, right)
	})

	t.Run("commutative", func(t *testing.T) {
		assert.Equal(t, AccumulateStats(a, b), AccumulateStats(b, a))
	})

	t.Run("zero is the identity", func(t *testing.T) {
		assert.Equal(t, a, AccumulateStats(Stats{}, a))
		assert.Equal(t, a, AccumulateStats(a, Stats{}))
	})
}

func TestAccumulateStatsFlushReason(t *testing.T) {
	timer := Stats{FlushReason: zoekt.FlushReasonTimerExpired}
	final := Stats{FlushReason: zoekt.FlushReasonFinalFlush}
	unknown := Stats{}

	// The first non-unknown reason wins; it is not additive.
	assert.Equal(t, zoekt.FlushReasonTimerExpired, AccumulateStats(timer, final).FlushReason)
	assert.Equal(t, zoekt.FlushReasonFinalFlush, AccumulateStats(unknown, final).FlushReason)
	assert.Equal(t, zoekt.FlushReasonUnknown, AccumulateStats(unknown, unknown).FlushReason)
}

func TestIsExhaustive(t *testing.T) {
	tests := []struct {
		name       string
		actual     int
		total      int
		exhaustive bool
	}{
		{"nothing truncated", 10, 10, true},
		{"engine found more than materialized", 10, 11, false},
		{"empty result", 0, 0, true},
		{"engine total below materialized", 12, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Stats{ActualMatchCount: tt.actual, TotalMatchCount: tt.total}
			assert.Equal(t, tt.exhaustive, s.IsExhaustive())
		})
	}
}

func TestStatsFromEngine(t *testing.T) {
	engine := zoekt.Stats{
		MatchCount:   42,
		FileCount:    7,
		Duration:     3 * time.Second,
		FlushReason:  zoekt.FlushReasonFinalFlush,
		NgramLookups: 9,
	}

	got := statsFromEngine(engine)
	assert.Equal(t, 42, got.TotalMatchCount)
	assert.Zero(t, got.ActualMatchCount, "actual count is recomputed from files, not copied")
	assert.Equal(t, 7, got.FileCount)
	assert.Equal(t, 3*time.Second, got.Duration)
	assert.Equal(t, zoekt.FlushReasonFinalFlush, got.FlushReason)
	assert.Equal(t, 9, got.NgramLookups)
}
