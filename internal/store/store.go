// Package store persists club data. Postgres is the production backend;
// Memory mirrors its semantics for tests and local runs.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"clubhub/internal/apperr"
	"clubhub/internal/model"
)

// Store is the full persistence surface used by the services.
type Store interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id int64) (model.User, error)
	GetUserByLogin(ctx context.Context, login string) (model.User, error)
	UpdateUser(ctx context.Context, u model.User) error
	SetLastLogin(ctx context.Context, id int64, at time.Time) error
	SetPassword(ctx context.Context, id int64, hash []byte, at time.Time) error
	DeleteUser(ctx context.Context, id int64) error
	ListUsers(ctx context.Context, f model.UserFilter) ([]model.User, error)

	CreateProject(ctx context.Context, p *model.Project) error
	GetProject(ctx context.Context, id int64) (model.Project, error)
	UpdateProject(ctx context.Context, p model.Project) error
	DeleteProject(ctx context.Context, id int64) error
	ListProjects(ctx context.Context, f model.ProjectFilter) ([]model.Project, error)
	AddContributor(ctx context.Context, projectID, userID int64, at time.Time) (bool, error)
	RemoveContributor(ctx context.Context, projectID, userID int64, at time.Time) (bool, error)

	CreateEvent(ctx context.Context, e *model.Event) error
	GetEvent(ctx context.Context, id int64) (model.Event, error)
	UpdateEvent(ctx context.Context, e model.Event) error
	DeleteEvent(ctx context.Context, id int64) error
	ListEvents(ctx context.Context, f model.EventFilter) ([]model.Event, error)

	CreateAttendance(ctx context.Context, a *model.Attendance) error
	MarkAttendance(ctx context.Context, a model.Attendance) (bool, error)
	ListAttendance(ctx context.Context, f model.AttendanceFilter) ([]model.Attendance, error)
	CountAttendance(ctx context.Context, f model.AttendanceFilter) (int, error)

	CreateTask(ctx context.Context, t *model.Task) error
	GetTask(ctx context.Context, id int64) (model.Task, error)
	UpdateTask(ctx context.Context, t model.Task) error
	DeleteTask(ctx context.Context, id int64) error
	ListTasks(ctx context.Context, f model.TaskFilter) ([]model.Task, error)
	TransitionTask(ctx context.Context, id int64, from []model.TaskStatus, to model.TaskStatus, link *string, at time.Time) (model.Task, error)
	VerifyTask(ctx context.Context, id int64, at time.Time) (model.Task, error)

	Standings(ctx context.Context, q model.ScoreQuery) ([]model.Standing, error)

	Ping(ctx context.Context) error
	Close() error
}

// Shared error values. Callers match them with apperr kinds.
var (
	errUserNotFound    = apperr.NotFound("user not found")
	errProjectNotFound = apperr.NotFound("project not found")
	errEventNotFound   = apperr.NotFound("event not found")
	errTaskNotFound    = apperr.NotFound("task not found")
	errUsernameTaken   = apperr.Field("username", "a user with that username already exists")
	errEmailTaken      = apperr.Field("email", "a user with that email already exists")
	errAlreadyMarked   = apperr.Conflict("attendance already recorded for this user and event")
)

// errTaskState reports a guarded transition whose precondition no longer holds.
func errTaskState(current model.TaskStatus) error {
	if current == model.TaskVerified {
		return apperr.Conflict("task is already verified")
	}
	return apperr.Conflict("task status is %s", current)
}

func itoa(i int) string { return fmt.Sprintf("%d", i) }

// placeholder returns the next $n marker for args.
func placeholder(args []any) string { return "$" + itoa(len(args)+1) }

func where(clauses []string) string {
	if len(clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

func statusIn(status model.TaskStatus, from []model.TaskStatus) bool {
	for _, s := range from {
		if s == status {
			return true
		}
	}
	return false
}
