package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liquidinvestigations/hoover4/pkg/taskqueue"
)

func TestQueueSpecFor_KnownKinds(t *testing.T) {
	cases := []struct {
		kind        string
		queue       string
		concurrency int
	}{
		{"common", taskqueue.Common, taskqueue.CommonConcurrency},
		{"tika", taskqueue.Tika, taskqueue.TikaConcurrency},
		{"easyocr", taskqueue.EasyOCR, taskqueue.EasyOCRConcurrency},
		{"indexing", taskqueue.Indexing, taskqueue.IndexingConcurrency},
	}
	for _, c := range cases {
		spec, err := queueSpecFor(c.kind)
		require.NoError(t, err, c.kind)
		assert.Equal(t, c.queue, spec.Queue)
		assert.Equal(t, c.concurrency, spec.Concurrency)
		assert.NotNil(t, spec.Register)
	}
}

func TestQueueSpecFor_UnknownKind(t *testing.T) {
	_, err := queueSpecFor("bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}
