// Package attendance records who showed up to which event.
package attendance

import (
	"context"
	"fmt"
	"time"

	"clubhub/internal/apperr"
	"clubhub/internal/metrics"
	"clubhub/internal/model"
	"clubhub/internal/policy"
)

type Repository interface {
	GetEvent(ctx context.Context, id int64) (model.Event, error)
	CreateAttendance(ctx context.Context, a *model.Attendance) error
	MarkAttendance(ctx context.Context, a model.Attendance) (bool, error)
	ListAttendance(ctx context.Context, f model.AttendanceFilter) ([]model.Attendance, error)
}

// Service records attendance. Records are only ever written by admins.
type Service struct {
	repo    Repository
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(repo Repository, m *metrics.Metrics, now func() time.Time) *Service {
	return &Service{repo: repo, metrics: m, now: now}
}

// List returns records newest mark first. Non-admins only see their own.
func (s *Service) List(ctx context.Context, actor policy.Actor, f model.AttendanceFilter) ([]model.Attendance, error) {
	if !policy.Allowed(actor, policy.AttendanceAll, policy.Resource{}) {
		f.UserID = actor.UserID
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Field("status", "invalid attendance status")
	}
	return s.repo.ListAttendance(ctx, f)
}

type MarkInput struct {
	User   int64                  `json:"user" binding:"required,min=1"`
	Event  int64                  `json:"event" binding:"required,min=1"`
	Status model.AttendanceStatus `json:"status" binding:"omitempty,oneof=present absent excused"`
}

// Mark creates a single record. A second record for the same pair is a
// conflict.
func (s *Service) Mark(ctx context.Context, actor policy.Actor, in MarkInput) (model.Attendance, error) {
	if err := policy.Authorize(actor, policy.AttendanceAdd, policy.Resource{}); err != nil {
		return model.Attendance{}, apperr.Forbidden("only admins can mark attendance")
	}
	if in.Status == "" {
		in.Status = model.AttendancePresent
	}
	marker := actor.UserID
	a := model.Attendance{
		UserID:   in.User,
		EventID:  in.Event,
		MarkedBy: &marker,
		MarkedAt: s.now(),
		Status:   in.Status,
	}
	if err := s.repo.CreateAttendance(ctx, &a); err != nil {
		return model.Attendance{}, err
	}
	s.metrics.AttendanceMarked(string(a.Status), 1)

	list, err := s.repo.ListAttendance(ctx, model.AttendanceFilter{UserID: a.UserID, EventID: a.EventID})
	if err != nil || len(list) == 0 {
		return a, err
	}
	return list[0], nil
}

type BulkInput struct {
	Event  int64                  `json:"event"`
	Users  []int64                `json:"users"`
	Status model.AttendanceStatus `json:"status" binding:"omitempty,oneof=present absent excused"`
}

type BulkResult struct {
	Detail  string  `json:"detail"`
	Created int     `json:"created"`
	Skipped []int64 `json:"skipped_users"`
}

// BulkMark creates missing records for every listed user. Existing records
// are left untouched and unknown users are skipped without aborting the rest.
func (s *Service) BulkMark(ctx context.Context, actor policy.Actor, in BulkInput) (BulkResult, error) {
	if err := policy.Authorize(actor, policy.AttendanceAdd, policy.Resource{}); err != nil {
		return BulkResult{}, err
	}
	if in.Event == 0 || len(in.Users) == 0 {
		return BulkResult{}, apperr.Validation("event and users are required")
	}
	if in.Status == "" {
		in.Status = model.AttendancePresent
	}
	if _, err := s.repo.GetEvent(ctx, in.Event); err != nil {
		return BulkResult{}, err
	}

	marker := actor.UserID
	now := s.now()
	res := BulkResult{Skipped: []int64{}}
	for _, uid := range model.UniqueIDs(in.Users) {
		created, err := s.repo.MarkAttendance(ctx, model.Attendance{
			UserID:   uid,
			EventID:  in.Event,
			MarkedBy: &marker,
			MarkedAt: now,
			Status:   in.Status,
		})
		if apperr.Is(err, apperr.KindNotFound) {
			// Either the user or the event is gone; only the former is skippable.
			if _, evErr := s.repo.GetEvent(ctx, in.Event); evErr != nil {
				return BulkResult{}, evErr
			}
			res.Skipped = append(res.Skipped, uid)
			continue
		}
		if err != nil {
			return BulkResult{}, err
		}
		if created {
			res.Created++
		}
	}
	s.metrics.AttendanceMarked(string(in.Status), res.Created)
	res.Detail = fmt.Sprintf("Marked attendance for %d users", res.Created)
	return res, nil
}
