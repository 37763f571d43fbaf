package jobqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicationReconcileJobPayload(t *testing.T) {
	payload := PublicationReconcileJobPayload{
		UserID:   7,
		PageUUID: "page-uuid-1",
	}

	m := payload.ToMap()
	assert.Equal(t, uint(7), m["user_id"])
	assert.Equal(t, "page-uuid-1", m["page_uuid"])

	restored, err := PublicationReconcileJobPayloadFromMap(m)
	require.NoError(t, err)
	assert.Equal(t, payload, *restored)
}

func TestJobIsRetryable(t *testing.T) {
	tests := []struct {
		name       string
		status     JobStatus
		retryCount int
		maxRetries int
		expected   bool
	}{
		{"failed with retries left", JobStatusFailed, 1, 3, true},
		{"failed with no retries left", JobStatusFailed, 3, 3, false},
		{"pending job", JobStatusPending, 0, 3, false},
		{"completed job", JobStatusCompleted, 0, 3, false},
		{"processing job", JobStatusProcessing, 0, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &Job{
				Status:     tt.status,
				RetryCount: tt.retryCount,
				MaxRetries: tt.maxRetries,
			}
			assert.Equal(t, tt.expected, job.IsRetryable())
		})
	}
}

func TestJobStatusTransitions(t *testing.T) {
	job := &Job{
		ID:         "job-1",
		Type:       JobTypePublicationReconcile,
		Status:     JobStatusPending,
		MaxRetries: DefaultMaxRetries,
	}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	assert.NotNil(t, job.ProcessedAt)

	job.MarkAsFailed("provider unavailable")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "provider unavailable", job.ErrorMsg)
	assert.Equal(t, 1, job.RetryCount)
	assert.True(t, job.IsRetryable())

	job.MarkAsRetrying()
	assert.Equal(t, JobStatusRetrying, job.Status)

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.NotNil(t, job.CompletedAt)
	assert.Empty(t, job.ErrorMsg)
}
