// Package tasks runs the task board: assignment, submission and the
// verification step that awards points.
package tasks

import (
	"context"
	"strings"
	"time"

	"clubhub/internal/apperr"
	"clubhub/internal/metrics"
	"clubhub/internal/model"
	"clubhub/internal/policy"
)

type Repository interface {
	CreateTask(ctx context.Context, t *model.Task) error
	GetTask(ctx context.Context, id int64) (model.Task, error)
	UpdateTask(ctx context.Context, t model.Task) error
	DeleteTask(ctx context.Context, id int64) error
	ListTasks(ctx context.Context, f model.TaskFilter) ([]model.Task, error)
	TransitionTask(ctx context.Context, id int64, from []model.TaskStatus, to model.TaskStatus, link *string, at time.Time) (model.Task, error)
	VerifyTask(ctx context.Context, id int64, at time.Time) (model.Task, error)
}

var errTaskNotFound = apperr.NotFound("task not found")

type Service struct {
	repo    Repository
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(repo Repository, m *metrics.Metrics, now func() time.Time) *Service {
	return &Service{repo: repo, metrics: m, now: now}
}

type Input struct {
	Title          *string                   `json:"title" binding:"omitempty,notblank,max=200"`
	Description    *string                   `json:"description"`
	AssignedTo     *int64                    `json:"assigned_to" binding:"omitempty,min=1"`
	Status         *model.TaskStatus         `json:"status" binding:"omitempty,oneof=pending in_progress submitted"`
	Points         *int                      `json:"points" binding:"omitempty,min=0"`
	SubmissionLink *string                   `json:"submission_link" binding:"omitempty,url"`
	DueDate        model.Optional[time.Time] `json:"due_date"`
}

func (in Input) missing() error {
	var fields []apperr.FieldError
	if in.Title == nil {
		fields = append(fields, apperr.FieldError{Field: "title", Error: "this field is required"})
	}
	if in.AssignedTo == nil {
		fields = append(fields, apperr.FieldError{Field: "assigned_to", Error: "this field is required"})
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid task", fields...)
	}
	return nil
}

func (in Input) apply(t *model.Task) {
	if in.Title != nil {
		t.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.AssignedTo != nil {
		t.AssignedTo = *in.AssignedTo
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.Points != nil {
		t.Points = *in.Points
	}
	if in.SubmissionLink != nil {
		t.SubmissionLink = *in.SubmissionLink
	}
	if in.DueDate.Set {
		t.DueDate = nil
		if in.DueDate.Value != nil {
			due := in.DueDate.Value.UTC()
			t.DueDate = &due
		}
	}
}

func (s *Service) decorate(list []model.Task) []model.Task {
	now := s.now()
	for i := range list {
		list[i] = list[i].Decorate(now)
	}
	return list
}

// List returns tasks newest first. Non-admins only see tasks assigned to them.
func (s *Service) List(ctx context.Context, actor policy.Actor, f model.TaskFilter) ([]model.Task, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Field("status", "invalid task status")
	}
	if !policy.Allowed(actor, policy.TaskReadAll, policy.Resource{}) {
		if f.AssignedTo != 0 && f.AssignedTo != actor.UserID {
			return []model.Task{}, nil
		}
		f.AssignedTo = actor.UserID
	}
	list, err := s.repo.ListTasks(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.decorate(list), nil
}

// Get hides other members' tasks from non-admins behind not found.
func (s *Service) Get(ctx context.Context, actor policy.Actor, id int64) (model.Task, error) {
	t, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	if !policy.Allowed(actor, policy.TaskReadAll, policy.Resource{}) && t.AssignedTo != actor.UserID {
		return model.Task{}, errTaskNotFound
	}
	return t.Decorate(s.now()), nil
}

func (s *Service) Create(ctx context.Context, actor policy.Actor, in Input) (model.Task, error) {
	if err := policy.Authorize(actor, policy.TaskWrite, policy.Resource{}); err != nil {
		return model.Task{}, apperr.Forbidden("only admins can create tasks")
	}
	if err := in.missing(); err != nil {
		return model.Task{}, err
	}
	now := s.now()
	t := model.Task{Status: model.TaskPending, Points: 10, CreatedAt: now, UpdatedAt: now}
	in.apply(&t)
	if err := s.repo.CreateTask(ctx, &t); err != nil {
		return model.Task{}, err
	}
	return s.Get(ctx, actor, t.ID)
}

// Update edits a task. Admins can never move a task into or out of verified
// here; verification only happens through Verify.
func (s *Service) Update(ctx context.Context, actor policy.Actor, id int64, in Input, partial bool) (model.Task, error) {
	if err := policy.Authorize(actor, policy.TaskWrite, policy.Resource{}); err != nil {
		return model.Task{}, err
	}
	if !partial {
		if err := in.missing(); err != nil {
			return model.Task{}, err
		}
	}
	t, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	if t.Status == model.TaskVerified {
		if in.Status != nil && *in.Status != model.TaskVerified {
			return model.Task{}, apperr.Conflict("status of a verified task cannot change")
		}
		if in.Points != nil && *in.Points != t.Points {
			return model.Task{}, apperr.Conflict("points of a verified task cannot change")
		}
		if in.AssignedTo != nil && *in.AssignedTo != t.AssignedTo {
			return model.Task{}, apperr.Conflict("a verified task cannot be reassigned")
		}
	}
	in.apply(&t)
	t.UpdatedAt = s.now()
	if err := s.repo.UpdateTask(ctx, t); err != nil {
		return model.Task{}, err
	}
	return s.Get(ctx, actor, id)
}

func (s *Service) Delete(ctx context.Context, actor policy.Actor, id int64) error {
	if err := policy.Authorize(actor, policy.TaskWrite, policy.Resource{}); err != nil {
		return err
	}
	return s.repo.DeleteTask(ctx, id)
}

// Start marks a pending task as in progress. Assignee only.
func (s *Service) Start(ctx context.Context, actor policy.Actor, id int64) (model.Task, error) {
	t, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	if err := policy.Authorize(actor, policy.TaskSubmit, policy.Owned(t.AssignedTo)); err != nil {
		return model.Task{}, apperr.Forbidden("you can only start your own tasks")
	}
	t, err = s.repo.TransitionTask(ctx, id, []model.TaskStatus{model.TaskPending}, model.TaskInProgress, nil, s.now())
	if err != nil {
		return model.Task{}, err
	}
	return t.Decorate(s.now()), nil
}

type SubmitInput struct {
	SubmissionLink string `json:"submission_link" binding:"omitempty,url"`
}

// Submit records the assignee's submission link. Anyone else, admins
// included, is forbidden. Resubmitting a submitted task replaces the link; a
// verified task cannot be resubmitted.
func (s *Service) Submit(ctx context.Context, actor policy.Actor, id int64, in SubmitInput) (model.Task, error) {
	t, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	if err := policy.Authorize(actor, policy.TaskSubmit, policy.Owned(t.AssignedTo)); err != nil {
		return model.Task{}, err
	}
	link := strings.TrimSpace(in.SubmissionLink)
	if link == "" {
		return model.Task{}, apperr.Field("submission_link", "submission_link is required")
	}
	if t.Status == model.TaskVerified {
		return model.Task{}, apperr.Conflict("task is already verified")
	}
	from := []model.TaskStatus{model.TaskPending, model.TaskInProgress, model.TaskSubmitted}
	t, err = s.repo.TransitionTask(ctx, id, from, model.TaskSubmitted, &link, s.now())
	if err != nil {
		return model.Task{}, err
	}
	return t.Decorate(s.now()), nil
}

type Verification struct {
	Task          model.Task `json:"task"`
	PointsAwarded int        `json:"points_awarded"`
}

// Verify accepts a submitted task and credits its points to the assignee.
// The store applies both writes atomically and only while the task is still
// submitted, so points are awarded at most once per task.
func (s *Service) Verify(ctx context.Context, actor policy.Actor, id int64) (Verification, error) {
	if err := policy.Authorize(actor, policy.TaskVerify, policy.Resource{}); err != nil {
		return Verification{}, err
	}
	t, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return Verification{}, err
	}
	if t.Status != model.TaskSubmitted {
		return Verification{}, apperr.Conflict("task must be submitted before verification")
	}
	t, err = s.repo.VerifyTask(ctx, id, s.now())
	if err != nil {
		return Verification{}, err
	}
	s.metrics.TaskVerified(t.Points)
	return Verification{Task: t.Decorate(s.now()), PointsAwarded: t.Points}, nil
}
