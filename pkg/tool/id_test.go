package tool

import (
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUUIDV7(t *testing.T) {
	id, err := uuid.Parse(GenerateUUIDV7())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestGenerateTransactionCode(t *testing.T) {
	at := time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^SUB-20260314-[A-Z0-9]{6}$`)

	seen := map[string]struct{}{}
	for range 50 {
		code := GenerateTransactionCode(at)
		assert.Regexp(t, pattern, code)
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 1)
}
