package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatasetSlugPattern(t *testing.T) {
	valid := []string{"dataset1", "my_dataset", "a", "dataset_2026"}
	for _, s := range valid {
		assert.True(t, datasetSlugPattern.MatchString(s), "expected %q to be valid", s)
	}

	invalid := []string{"My Dataset", "has space", "UPPER", "dash-name", "", "has.dot"}
	for _, s := range invalid {
		assert.False(t, datasetSlugPattern.MatchString(s), "expected %q to be invalid", s)
	}
}
