package taskqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueNamesAreDistinct(t *testing.T) {
	names := []string{Common, Tika, EasyOCR, Indexing}
	seen := map[string]bool{}
	for _, n := range names {
		assert.False(t, seen[n], "duplicate queue name %q", n)
		seen[n] = true
	}
}

func TestConcurrencyIsPositive(t *testing.T) {
	for _, n := range []int{CommonConcurrency, TikaConcurrency, EasyOCRConcurrency, IndexingConcurrency, CommonWorkerCount} {
		assert.Greater(t, n, 0)
	}
}

func TestIndexingIsSingleConcurrency(t *testing.T) {
	assert.Equal(t, 1, IndexingConcurrency)
}
