package model

import "time"

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceExcused AttendanceStatus = "excused"
)

func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceExcused:
		return true
	}
	return false
}

// Attendance is unique per (user, event).
type Attendance struct {
	ID       int64            `json:"id"`
	UserID   int64            `json:"user"`
	User     *UserSummary     `json:"user_details"`
	EventID  int64            `json:"event"`
	Event    *EventSummary    `json:"event_details"`
	MarkedBy *int64           `json:"marked_by"`
	Marker   *UserSummary     `json:"marked_by_details"`
	MarkedAt time.Time        `json:"marked_at"`
	Status   AttendanceStatus `json:"status"`
}

type AttendanceFilter struct {
	UserID  int64
	EventID int64
	Status  AttendanceStatus
}
