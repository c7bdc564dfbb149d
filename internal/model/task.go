package model

import "time"

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskSubmitted  TaskStatus = "submitted"
	TaskVerified   TaskStatus = "verified"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskSubmitted, TaskVerified:
		return true
	}
	return false
}

// Done reports whether the assignee has finished their part.
func (s TaskStatus) Done() bool {
	return s == TaskSubmitted || s == TaskVerified
}

type Task struct {
	ID             int64        `json:"id"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	AssignedTo     int64        `json:"assigned_to"`
	Assignee       *UserSummary `json:"assigned_to_details"`
	Status         TaskStatus   `json:"status"`
	Points         int          `json:"points"`
	SubmissionLink string       `json:"submission_link"`
	DueDate        *time.Time   `json:"due_date"`
	Overdue        bool         `json:"is_overdue"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// IsOverdue is true once the due date has passed and the task is not yet
// submitted or verified.
func (t Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Status.Done() {
		return false
	}
	return t.DueDate.Before(now)
}

func (t Task) Decorate(now time.Time) Task {
	t.Overdue = t.IsOverdue(now)
	return t
}

// TaskFilter narrows task listings. Statuses, when set, matches any of them.
type TaskFilter struct {
	AssignedTo int64
	Status     TaskStatus
	Statuses   []TaskStatus
}

// Match reports whether t passes the filter.
func (f TaskFilter) Match(t Task) bool {
	if f.AssignedTo != 0 && t.AssignedTo != f.AssignedTo {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if len(f.Statuses) > 0 {
		for _, s := range f.Statuses {
			if s == t.Status {
				return true
			}
		}
		return false
	}
	return true
}
