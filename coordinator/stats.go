package coordinator

import "time"

// UpdateStats are the per-call counters spec.md §6 requires the
// Coordinator to expose: v4_added, v4_deleted, v6_added, v6_deleted,
// duration_microseconds.
type UpdateStats struct {
	V4Added              int
	V4Deleted            int
	V6Added              int
	V6Deleted            int
	DurationMicroseconds int64
}

func statsFromDuration(d time.Duration) UpdateStats {
	return UpdateStats{DurationMicroseconds: d.Microseconds()}
}
