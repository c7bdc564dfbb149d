// Package events manages the club event calendar.
package events

import (
	"context"
	"strings"
	"time"

	"clubhub/internal/apperr"
	"clubhub/internal/model"
	"clubhub/internal/policy"
)

type Repository interface {
	CreateEvent(ctx context.Context, e *model.Event) error
	GetEvent(ctx context.Context, id int64) (model.Event, error)
	UpdateEvent(ctx context.Context, e model.Event) error
	DeleteEvent(ctx context.Context, id int64) error
	ListEvents(ctx context.Context, f model.EventFilter) ([]model.Event, error)
	ListAttendance(ctx context.Context, f model.AttendanceFilter) ([]model.Attendance, error)
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository, now func() time.Time) *Service {
	return &Service{repo: repo, now: now}
}

type Input struct {
	Title       *string          `json:"title" binding:"omitempty,notblank,max=200"`
	Description *string          `json:"description"`
	EventType   *model.EventType `json:"event_type" binding:"omitempty,oneof=meetup workshop hackathon webinar"`
	EventDate   *time.Time       `json:"event_date"`
	Location    *string          `json:"location" binding:"omitempty,max=200"`
	MeetingLink *string          `json:"meeting_link" binding:"omitempty,url"`
	Banner      *string          `json:"banner" binding:"omitempty,url"`
}

func (in Input) missing() error {
	var fields []apperr.FieldError
	if in.Title == nil {
		fields = append(fields, apperr.FieldError{Field: "title", Error: "this field is required"})
	}
	if in.EventType == nil {
		fields = append(fields, apperr.FieldError{Field: "event_type", Error: "this field is required"})
	}
	if in.EventDate == nil {
		fields = append(fields, apperr.FieldError{Field: "event_date", Error: "this field is required"})
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid event", fields...)
	}
	return nil
}

func (in Input) apply(e *model.Event) {
	if in.Title != nil {
		e.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		e.Description = *in.Description
	}
	if in.EventType != nil {
		e.EventType = *in.EventType
	}
	if in.EventDate != nil {
		e.EventDate = in.EventDate.UTC()
	}
	if in.Location != nil {
		e.Location = *in.Location
	}
	if in.MeetingLink != nil {
		e.MeetingLink = *in.MeetingLink
	}
	if in.Banner != nil {
		e.Banner = *in.Banner
	}
}

// List returns events newest event date first. The time bucket is resolved
// against the service clock.
func (s *Service) List(ctx context.Context, actor policy.Actor, f model.EventFilter) ([]model.Event, error) {
	if err := policy.Authorize(actor, policy.EventRead, policy.Resource{}); err != nil {
		return nil, err
	}
	if f.Type != "" && !f.Type.Valid() {
		return nil, apperr.Field("type", "invalid event type")
	}
	if !f.Time.Valid() {
		return nil, apperr.Field("time", "must be upcoming or past")
	}
	now := s.now()
	f.Now = now
	list, err := s.repo.ListEvents(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i] = list[i].Decorate(now)
	}
	return list, nil
}

func (s *Service) Get(ctx context.Context, actor policy.Actor, id int64) (model.Event, error) {
	if err := policy.Authorize(actor, policy.EventRead, policy.Resource{}); err != nil {
		return model.Event{}, err
	}
	e, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return model.Event{}, err
	}
	return e.Decorate(s.now()), nil
}

func (s *Service) Create(ctx context.Context, actor policy.Actor, in Input) (model.Event, error) {
	if err := policy.Authorize(actor, policy.EventWrite, policy.Resource{}); err != nil {
		return model.Event{}, err
	}
	if err := in.missing(); err != nil {
		return model.Event{}, err
	}
	now := s.now()
	e := model.Event{CreatedAt: now, UpdatedAt: now}
	in.apply(&e)
	if err := s.repo.CreateEvent(ctx, &e); err != nil {
		return model.Event{}, err
	}
	return s.Get(ctx, actor, e.ID)
}

func (s *Service) Update(ctx context.Context, actor policy.Actor, id int64, in Input, partial bool) (model.Event, error) {
	if err := policy.Authorize(actor, policy.EventWrite, policy.Resource{}); err != nil {
		return model.Event{}, err
	}
	if !partial {
		if err := in.missing(); err != nil {
			return model.Event{}, err
		}
	}
	e, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return model.Event{}, err
	}
	in.apply(&e)
	e.UpdatedAt = s.now()
	if err := s.repo.UpdateEvent(ctx, e); err != nil {
		return model.Event{}, err
	}
	return s.Get(ctx, actor, id)
}

func (s *Service) Delete(ctx context.Context, actor policy.Actor, id int64) error {
	if err := policy.Authorize(actor, policy.EventWrite, policy.Resource{}); err != nil {
		return err
	}
	return s.repo.DeleteEvent(ctx, id)
}

// Attendees lists every attendance record of the event.
func (s *Service) Attendees(ctx context.Context, actor policy.Actor, id int64) ([]model.Attendance, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.repo.ListAttendance(ctx, model.AttendanceFilter{EventID: id})
}

// SetBanner stores an uploaded banner URL on the event.
func (s *Service) SetBanner(ctx context.Context, actor policy.Actor, id int64, url string) (model.Event, error) {
	return s.Update(ctx, actor, id, Input{Banner: &url}, true)
}
