package controllers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriceToCents(t *testing.T) {
	tests := []struct {
		name     string
		price    float64
		expected int64
	}{
		{"whole amount", 20.0, 2000},
		{"binary-unrepresentable fraction", 19.99, 1999},
		{"single cent", 0.01, 1},
		{"repeating fraction", 0.29, 29},
		{"large amount", 1234.56, 123456},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, priceToCents(tt.price))
		})
	}
}
