// Package dashboard assembles the signed-in member's overview.
package dashboard

import (
	"context"
	"sort"
	"time"

	"clubhub/internal/model"
)

const (
	upcomingEvents = 5
	recentProjects = 3
)

type Repository interface {
	GetUser(ctx context.Context, id int64) (model.User, error)
	ListTasks(ctx context.Context, f model.TaskFilter) ([]model.Task, error)
	ListEvents(ctx context.Context, f model.EventFilter) ([]model.Event, error)
	ListProjects(ctx context.Context, f model.ProjectFilter) ([]model.Project, error)
	CountAttendance(ctx context.Context, f model.AttendanceFilter) (int, error)
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository, now func() time.Time) *Service {
	return &Service{repo: repo, now: now}
}

type UserCard struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Points    int    `json:"points"`
	Batch     *int   `json:"batch"`
	StudentID string `json:"student_id"`
	Avatar    string `json:"avatar"`
	IsAdmin   bool   `json:"is_admin"`
}

type View struct {
	User            UserCard        `json:"user"`
	ActiveTasks     []model.Task    `json:"active_tasks"`
	UpcomingEvents  []model.Event   `json:"upcoming_events"`
	RecentProjects  []model.Project `json:"recent_projects"`
	AttendanceCount int             `json:"attendance_count"`
}

func (s *Service) View(ctx context.Context, userID int64) (View, error) {
	now := s.now()
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return View{}, err
	}

	tasks, err := s.repo.ListTasks(ctx, model.TaskFilter{
		AssignedTo: userID,
		Statuses:   []model.TaskStatus{model.TaskPending, model.TaskInProgress},
	})
	if err != nil {
		return View{}, err
	}
	sortByDueDate(tasks)
	for i := range tasks {
		tasks[i] = tasks[i].Decorate(now)
	}

	events, err := s.repo.ListEvents(ctx, model.EventFilter{Time: model.TimeUpcoming, Now: now})
	if err != nil {
		return View{}, err
	}
	// soonest first
	sort.SliceStable(events, func(i, j int) bool { return events[i].EventDate.Before(events[j].EventDate) })
	if len(events) > upcomingEvents {
		events = events[:upcomingEvents]
	}
	for i := range events {
		events[i] = events[i].Decorate(now)
	}

	projects, err := s.repo.ListProjects(ctx, model.ProjectFilter{MemberID: userID})
	if err != nil {
		return View{}, err
	}
	if len(projects) > recentProjects {
		projects = projects[:recentProjects]
	}

	count, err := s.repo.CountAttendance(ctx, model.AttendanceFilter{UserID: userID, Status: model.AttendancePresent})
	if err != nil {
		return View{}, err
	}

	return View{
		User: UserCard{
			ID:        u.ID,
			Name:      u.FullName(),
			Username:  u.Username,
			Email:     u.Email,
			Points:    u.Points,
			Batch:     u.BatchYear,
			StudentID: u.StudentID,
			Avatar:    u.Avatar,
			IsAdmin:   u.IsAdmin(),
		},
		ActiveTasks:     tasks,
		UpcomingEvents:  events,
		RecentProjects:  projects,
		AttendanceCount: count,
	}, nil
}

// sortByDueDate orders tasks by due date ascending with undated tasks last.
func sortByDueDate(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i].DueDate, tasks[j].DueDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}
