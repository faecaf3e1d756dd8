package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountersSnapshot(t *testing.T) {
	c := New()
	c.IncKBScans()
	c.IncKBScans()
	c.AddTransitiveSteps(5)
	c.IncHDCQueries()
	c.IncHDCSuccesses()
	c.AddHDCBindings(3)

	snap := c.Snapshot()
	assert.Equal(t, uint64(2), snap.KBScans)
	assert.Equal(t, uint64(5), snap.TransitiveSteps)
	assert.Equal(t, uint64(1), snap.HDCQueries)
	assert.Equal(t, uint64(1), snap.HDCSuccesses)
	assert.Equal(t, uint64(3), snap.HDCBindings)
}

func TestCountersConcurrentIncrement(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncSimilarityChecks()
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(100), c.Snapshot().SimilarityChecks)
}

func TestReset(t *testing.T) {
	c := New()
	c.IncKBScans()
	c.Reset()
	assert.Equal(t, uint64(0), c.Snapshot().KBScans)
}
