package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanRequestNormalize(t *testing.T) {
	r := &ScanRequest{From: -3, SortOrder: "sideways"}
	r.Normalize("start_at")

	assert.Equal(t, 0, r.From)
	assert.Equal(t, 10, r.Size)
	assert.Equal(t, "start_at", r.SortBy)
	assert.Equal(t, "desc", r.SortOrder)

	r = &ScanRequest{Size: 50, SortBy: "end_at", SortOrder: "asc"}
	r.Normalize("start_at")
	assert.Equal(t, 50, r.Size)
	assert.Equal(t, "end_at", r.SortBy)
	assert.Equal(t, "asc", r.SortOrder)
}
