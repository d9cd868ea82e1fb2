//go:build !windows

package proctree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePids(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []int
	}{
		{"typical", "123\n456\n", []int{123, 456}},
		{"trailing blank", "123\n\n", []int{123}},
		{"whitespace padding", "  123  \n\t456\n", []int{123, 456}},
		{"garbage lines skipped", "123\nabc\n-5\n456\n", []int{123, 456}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parsePids(tt.in))
		})
	}
}
