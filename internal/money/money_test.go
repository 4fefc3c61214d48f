package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound(t *testing.T) {
	assert.Equal(t, 112.5, Round(112.49999999999999))
	assert.Equal(t, 1201.5, Round(1201.49656862278))
	assert.Equal(t, -0.01, Round(-0.005))
	assert.Equal(t, 0.0, Round(0))
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{5, "$5.00"},
		{999.999, "$1,000.00"},
		{1234.5, "$1,234.50"},
		{240000, "$240,000.00"},
		{-1234567.891, "-$1,234,567.89"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.in))
		})
	}
}

func TestFormatWhole(t *testing.T) {
	assert.Equal(t, "$312,000", FormatWhole(311999.6))
	assert.Equal(t, "-$45", FormatWhole(-45.2))
}
