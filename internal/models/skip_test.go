package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSkipIntervalCovers(t *testing.T) {
	closed := SkipInterval{Start: 10, End: 20}
	open := SkipInterval{Start: 10, Open: true}

	tests := []struct {
		name     string
		interval SkipInterval
		at       float64
		want     bool
	}{
		{"before start", closed, 9.99, false},
		{"at start", closed, 10, true},
		{"inside", closed, 15, true},
		{"at end", closed, 20, true},
		{"after end", closed, 20.01, false},
		{"open never covers", open, 15, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.interval.Covers(tt.at))
		})
	}
}

func TestSkipIntervalLengthAndString(t *testing.T) {
	assert.Equal(t, 10.0, SkipInterval{Start: 10, End: 20}.Length())
	assert.Equal(t, 0.0, SkipInterval{Start: 10, Open: true}.Length())
	assert.Equal(t, "[10.00, 20.00]", SkipInterval{Start: 10, End: 20}.String())
	assert.Equal(t, "[10.00, ...)", SkipInterval{Start: 10, Open: true}.String())
}
