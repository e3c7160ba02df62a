package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLayoutFor(t *testing.T) {
	tests := []struct {
		count     int
		columns   string
		highCount bool
	}{
		{1, "1fr", false},
		{2, "repeat(2, 1fr)", false},
		{4, "repeat(2, 1fr)", false},
		{5, "repeat(3, 1fr)", false},
		{9, "repeat(3, 1fr)", false},
		{10, "repeat(4, 1fr)", false},
		{12, "repeat(4, 1fr)", false},
		{13, "repeat(5, 1fr)", true},
		{20, "repeat(5, 1fr)", true},
		{21, "repeat(auto-fit, minmax(130px, 1fr))", true},
		{500, "repeat(auto-fit, minmax(130px, 1fr))", true},
	}

	for _, tt := range tests {
		l := layoutFor(tt.count)
		assert.Equal(t, tt.columns, l.Columns, "count %d", tt.count)
		assert.Equal(t, tt.highCount, l.HighCount, "count %d", tt.count)
		assert.NotEmpty(t, l.FontSize)
		assert.NotEmpty(t, l.Padding)
	}
}
