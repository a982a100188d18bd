package repositories

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateError(t *testing.T) {
	short := "connection refused"
	assert.Equal(t, short, TruncateError(short))

	long := strings.Repeat("x", 600)
	got := TruncateError(long)
	assert.Len(t, got, 500)

	exact := strings.Repeat("y", 500)
	assert.Equal(t, exact, TruncateError(exact))
}

func TestTruncateError_MultibyteSafe(t *testing.T) {
	// Cutting must never split a rune
	long := strings.Repeat("é", 600)
	got := TruncateError(long)
	assert.Equal(t, 500, len([]rune(got)))
	for _, r := range got {
		assert.Equal(t, 'é', r)
	}
}
