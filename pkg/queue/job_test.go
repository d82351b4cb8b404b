package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecodePayload(t *testing.T) {
	job := &Job{Payload: []byte(`{"post_id":"post-1"}`)}

	var payload PublishJob
	assert.NoError(t, job.DecodePayload(&payload))
	assert.Equal(t, "post-1", payload.PostID)
}

func TestDecodePayload_Malformed(t *testing.T) {
	job := &Job{Payload: []byte(`not json`)}

	var payload PublishJob
	assert.Error(t, job.DecodePayload(&payload))
}

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{attempt: 0, expected: 2 * time.Second},
		{attempt: 1, expected: 2 * time.Second},
		{attempt: 2, expected: 4 * time.Second},
		{attempt: 3, expected: 8 * time.Second},
		{attempt: 4, expected: 16 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, backoffDelay(2*time.Second, tt.attempt))
	}
}
