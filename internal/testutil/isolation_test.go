package testutil

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsolateClearsAndRestores(t *testing.T) {
	t.Setenv("KSTEST_KEEP", "outer")

	t.Run("isolated", func(t *testing.T) {
		Isolate(t, "KSTEST_")

		_, ok := os.LookupEnv("KSTEST_KEEP")
		assert.False(t, ok)

		_ = os.Setenv("KSTEST_NEW", "inner")
	})

	value, ok := os.LookupEnv("KSTEST_KEEP")
	assert.True(t, ok)
	assert.Equal(t, "outer", value)

	_, ok = os.LookupEnv("KSTEST_NEW")
	assert.False(t, ok)
}
