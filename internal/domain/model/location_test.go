package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidLatLng(t *testing.T) {
	assert.True(t, ValidLatLng(0, 0))
	assert.True(t, ValidLatLng(90, 180))
	assert.True(t, ValidLatLng(-90, -180))

	assert.False(t, ValidLatLng(90.0001, 0))
	assert.False(t, ValidLatLng(0, 180.0001))
	assert.False(t, ValidLatLng(math.NaN(), 0))
	assert.False(t, ValidLatLng(0, math.Inf(1)))
}

func TestFiniteAccuracy(t *testing.T) {
	assert.True(t, FiniteAccuracy(0))
	assert.True(t, FiniteAccuracy(12.5))
	assert.False(t, FiniteAccuracy(-1))
	assert.False(t, FiniteAccuracy(math.NaN()))
	assert.False(t, FiniteAccuracy(math.Inf(-1)))
}
