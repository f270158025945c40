package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPhaseAlignedDelayAlignsToInterval(t *testing.T) {
	interval := 10 * time.Second
	now := time.UnixMilli(1_700_000_003_000) // 3s past a 10s boundary

	delay := PhaseAlignedDelay(now, interval)
	assert.Equal(t, 7*time.Second, delay)

	aligned := now.Add(delay)
	assert.Zero(t, aligned.UnixMilli()%interval.Milliseconds())
}

func TestPhaseAlignedDelayNeverExceedsInterval(t *testing.T) {
	interval := 30 * time.Second
	for _, ms := range []int64{1_700_000_000_000, 1_700_000_000_001, 1_700_000_029_999, 1_700_000_030_000} {
		delay := PhaseAlignedDelay(time.UnixMilli(ms), interval)
		assert.LessOrEqual(t, delay, interval)
		assert.GreaterOrEqual(t, delay, time.Duration(0))
	}
}

func TestPhaseAlignedDelayZeroIntervalIsZero(t *testing.T) {
	assert.Equal(t, time.Duration(0), PhaseAlignedDelay(time.Now(), 0))
	assert.Equal(t, time.Duration(0), PhaseAlignedDelay(time.Now(), -time.Second))
}

func TestPhaseAlignedDelayOnExactBoundaryIsFullInterval(t *testing.T) {
	interval := 10 * time.Second
	now := time.UnixMilli(1_700_000_030_000)
	assert.Equal(t, interval, PhaseAlignedDelay(now, interval))
}
