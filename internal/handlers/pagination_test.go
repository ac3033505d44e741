package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageLimitsClamp(t *testing.T) {
	limits := PageLimits{Default: 25, Max: 50}

	page, limit := limits.clamp(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 25, limit)

	page, limit = limits.clamp(3, 40)
	assert.Equal(t, 3, page)
	assert.Equal(t, 40, limit)

	// over the max falls back to the configured default
	_, limit = limits.clamp(1, 200)
	assert.Equal(t, 25, limit)

	page, limit = limits.clamp(-5, -5)
	assert.Equal(t, 1, page)
	assert.Equal(t, 25, limit)
}

func TestPageLimitsClampZeroValueConfig(t *testing.T) {
	var limits PageLimits

	page, limit := limits.clamp(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)

	_, limit = limits.clamp(1, 101)
	assert.Equal(t, 20, limit)
}
