package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWebhookEventProcessed(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name        string
		processedAt *time.Time
		procErr     string
		expected    bool
	}{
		{"never handled", nil, "", false},
		{"handled successfully", &now, "", true},
		{"handler failed", &now, "subscription fetch failed", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &WebhookEvent{ProcessedAt: tt.processedAt, ProcessingError: tt.procErr}
			assert.Equal(t, tt.expected, e.Processed())
		})
	}
}
