package model

import "time"

type EventType string

const (
	EventMeetup    EventType = "meetup"
	EventWorkshop  EventType = "workshop"
	EventHackathon EventType = "hackathon"
	EventWebinar   EventType = "webinar"
)

func (t EventType) Valid() bool {
	switch t {
	case EventMeetup, EventWorkshop, EventHackathon, EventWebinar:
		return true
	}
	return false
}

type Event struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	EventType       EventType `json:"event_type"`
	EventDate       time.Time `json:"event_date"`
	Location        string    `json:"location"`
	MeetingLink     string    `json:"meeting_link"`
	Banner          string    `json:"banner"`
	Past            bool      `json:"is_past"`
	AttendanceCount int       `json:"attendance_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsPast reports whether the event date is strictly before now.
func (e Event) IsPast(now time.Time) bool {
	return e.EventDate.Before(now)
}

// Decorate fills the derived fields that depend on the current time.
func (e Event) Decorate(now time.Time) Event {
	e.Past = e.IsPast(now)
	return e
}

func (e Event) Summary() EventSummary {
	return EventSummary{ID: e.ID, Title: e.Title, EventDate: e.EventDate, EventType: e.EventType}
}

type EventSummary struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	EventDate time.Time `json:"event_date"`
	EventType EventType `json:"event_type"`
}

// TimeBucket selects events relative to the current time.
type TimeBucket string

const (
	TimeAny      TimeBucket = ""
	TimeUpcoming TimeBucket = "upcoming"
	TimePast     TimeBucket = "past"
)

func (b TimeBucket) Valid() bool {
	return b == TimeAny || b == TimeUpcoming || b == TimePast
}

// EventFilter narrows event listings. Now is the reference point for Time;
// upcoming means event_date >= Now.
type EventFilter struct {
	Type EventType
	Time TimeBucket
	Now  time.Time
}
