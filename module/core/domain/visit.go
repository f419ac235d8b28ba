package domain

import "time"

type VisitRecord struct {
	ID              int64      `json:"id"`
	GeofenceID      int64      `json:"geofence_id"`
	GeofenceName    string     `json:"geofence_name"`
	EntryTime       time.Time  `json:"entry_time"`
	ExitTime        *time.Time `json:"exit_time,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
}

// Open reports whether the visitor is still inside the geofence.
func (v *VisitRecord) Open() bool {
	return v.ExitTime == nil
}

// VisitDurationMinutes returns the whole minutes between entry and exit.
// A clock that moved backwards yields 0.
func VisitDurationMinutes(entry, exit time.Time) int {
	if !exit.After(entry) {
		return 0
	}
	return int(exit.Sub(entry) / time.Minute)
}
