package fetcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRequestTrackerCountsDecreaseAsEntriesAge(t *testing.T) {
	tr := NewRequestTracker()
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	tr.Record(base)
	tr.Record(base.Add(30 * time.Second))

	last60, last900 := tr.Counts(base.Add(45 * time.Second))
	assert.Equal(t, 2, last60)
	assert.Equal(t, 2, last900)

	last60, last900 = tr.Counts(base.Add(89 * time.Second))
	assert.Equal(t, 1, last60, "first request has aged out of the 60s window")
	assert.Equal(t, 2, last900)

	last60, last900 = tr.Counts(base.Add(931 * time.Second))
	assert.Equal(t, 0, last60)
	assert.Equal(t, 0, last900, "both requests have aged out of the 900s window")
}
