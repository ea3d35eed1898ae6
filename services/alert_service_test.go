package services

import (
	"testing"
	"time"

	"safehorizon/models"

	"github.com/stretchr/testify/assert"
)

func TestDedupBucket(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	// Same half-hour bucket.
	assert.Equal(t, DedupBucket(base), DedupBucket(base.Add(10*time.Second)))
	assert.Equal(t, DedupBucket(base), DedupBucket(base.Add(29*time.Minute)))

	// 31 minutes later lands in a later bucket.
	assert.NotEqual(t, DedupBucket(base), DedupBucket(base.Add(31*time.Minute)))
}

func TestSequenceFires(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	lowRun := func(count int, spacing time.Duration) []ScoredSample {
		samples := make([]ScoredSample, count)
		for i := 0; i < count; i++ {
			samples[i] = ScoredSample{Score: 45, Timestamp: now.Add(-time.Duration(i+1) * spacing)}
		}
		return samples
	}

	// Five low scores inside twenty minutes.
	assert.True(t, SequenceFires(lowRun(4, 3*time.Minute), 48, now))

	// Current sample above the threshold never fires.
	assert.False(t, SequenceFires(lowRun(4, 3*time.Minute), 51, now))

	// Not enough history.
	assert.False(t, SequenceFires(lowRun(3, 3*time.Minute), 45, now))

	// One healthy score inside the window breaks the run.
	prior := lowRun(4, 3*time.Minute)
	prior[2].Score = 80
	assert.False(t, SequenceFires(prior, 45, now))

	// Span exceeding twenty minutes does not fire.
	assert.False(t, SequenceFires(lowRun(4, 7*time.Minute), 45, now))

	// Exactly at the span limit still fires (closed bound).
	exact := []ScoredSample{
		{Score: 40, Timestamp: now.Add(-20 * time.Minute)},
		{Score: 40, Timestamp: now.Add(-15 * time.Minute)},
		{Score: 40, Timestamp: now.Add(-10 * time.Minute)},
		{Score: 40, Timestamp: now.Add(-5 * time.Minute)},
	}
	assert.True(t, SequenceFires(exact, 40, now))
}

func TestSeverityForScore(t *testing.T) {
	assert.Equal(t, models.SeverityCritical, severityForScore(30))
	assert.Equal(t, models.SeverityCritical, severityForScore(40))
	assert.Equal(t, models.SeverityHigh, severityForScore(50))
	assert.Equal(t, models.SeverityMedium, severityForScore(70))
	assert.Equal(t, models.SeverityLow, severityForScore(90))
}
