package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestElapsedMs(t *testing.T) {
	start := int64(1700000000000)
	running := ActiveTimer{StartTime: &start, AccumulatedMs: 60000}
	at := time.UnixMilli(start + 30000)
	assert.Equal(t, int64(90000), running.ElapsedMs(at))

	paused := ActiveTimer{IsPaused: true, AccumulatedMs: 60000}
	assert.Equal(t, int64(60000), paused.ElapsedMs(at))

	// a start time in the future contributes nothing rather than going negative
	future := start + 100000
	skewed := ActiveTimer{StartTime: &future}
	assert.Equal(t, int64(0), skewed.ElapsedMs(at))
}

func TestConsistent(t *testing.T) {
	start := int64(1700000000000)
	assert.True(t, ActiveTimer{StartTime: &start}.Consistent())
	assert.True(t, ActiveTimer{IsPaused: true}.Consistent())
	assert.False(t, ActiveTimer{IsPaused: true, StartTime: &start}.Consistent())
	assert.False(t, ActiveTimer{}.Consistent())
	assert.False(t, ActiveTimer{StartTime: &start, AccumulatedMs: -1}.Consistent())
}
