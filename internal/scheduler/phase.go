package scheduler

import "time"

// PhaseAlignedDelay computes the wait until the next wall-clock instant
// aligned to interval, per spec.md §4.13 and the "Phase alignment"
// testable property in §8: for now_ms and interval_ms, delay is
// interval_ms - (now_ms mod interval_ms), satisfying
// (now_ms + delay) mod interval_ms == 0 and delay <= interval_ms.
func PhaseAlignedDelay(now time.Time, interval time.Duration) time.Duration {
	if interval <= 0 {
		return 0
	}
	nowMs := now.UnixMilli()
	intervalMs := interval.Milliseconds()
	mod := nowMs % intervalMs
	delayMs := intervalMs - mod
	return time.Duration(delayMs) * time.Millisecond
}
