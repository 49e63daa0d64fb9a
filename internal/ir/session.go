package ir

import "time"

// HistoryCap bounds the number of retained session records.
const HistoryCap = 200

// SessionRecord is one completed or stopped session.
type SessionRecord struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	TensionSec     int       `json:"tension_sec"`
	TotalSec       int       `json:"total_sec"`
	PosesCompleted int       `json:"poses_completed"`
	Reason         EndReason `json:"reason"`
	Routine        string    `json:"routine,omitempty"`
}

// FloorSeconds converts a non-negative duration to whole seconds, truncating
// any fraction.
func FloorSeconds(d time.Duration) int {
	if d < 0 {
		return -int((-d + time.Second - 1) / time.Second)
	}
	return int(d / time.Second)
}
