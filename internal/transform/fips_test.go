package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombineFIPS(t *testing.T) {
	tests := []struct {
		name   string
		state  string
		county string
		want   string
	}{
		{"plain", "01", "001", "01001"},
		{"trims whitespace", " 06 ", " 037 ", "06037"},
		{"no padding added", "6", "37", "637"},
		{"empty state", "", "001", ""},
		{"empty county", "01", "", ""},
		{"whitespace only", "  ", "001", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CombineFIPS(tt.state, tt.county))
		})
	}
}

func TestPadFIPS(t *testing.T) {
	assert.Equal(t, "01001", PadFIPS("1001"))
	assert.Equal(t, "06037", PadFIPS("06037"))
	assert.Equal(t, "00001", PadFIPS("1"))
	assert.Equal(t, "", PadFIPS("  "))
}

func TestFormatFIPS(t *testing.T) {
	assert.Equal(t, "01", FormatFIPS(1, 2))
	assert.Equal(t, "001", FormatFIPS(1, 3))
	assert.Equal(t, "06037", FormatFIPS(6037, 5))
}
