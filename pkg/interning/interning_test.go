package interning

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestID_Deterministic(t *testing.T) {
	assert.Equal(t, ID("hello"), ID("hello"))
}

func TestID_DifferentInputsUsuallyDiffer(t *testing.T) {
	assert.NotEqual(t, ID("hello"), ID("world"))
}

func TestID_NonNegative(t *testing.T) {
	for _, v := range []string{"", "a", "a longer string of text", "日本語"} {
		assert.GreaterOrEqual(t, ID(v), int64(0))
	}
}

func TestID_EmptyString(t *testing.T) {
	assert.Equal(t, ID(""), ID(""))
}
