package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"clubhub/internal/model"
)

var taskSelect = `
	SELECT t.id, t.title, t.description, t.assigned_to, t.status, t.points, t.submission_link, t.due_date,
		t.created_at, t.updated_at, ` + summarySelect("u") + `
	FROM tasks t
	JOIN users u ON u.id = t.assigned_to`

func scanTask(row scanner) (model.Task, error) {
	var (
		t   model.Task
		due sql.NullTime
		sum summaryCols
	)
	dests := []any{&t.ID, &t.Title, &t.Description, &t.AssignedTo, &t.Status, &t.Points, &t.SubmissionLink, &due,
		&t.CreatedAt, &t.UpdatedAt}
	if err := row.Scan(append(dests, sum.dest()...)...); err != nil {
		return model.Task{}, err
	}
	t.DueDate = timePtr(due)
	t.Assignee = sum.summary()
	return t, nil
}

func (p *Postgres) CreateTask(ctx context.Context, t *model.Task) error {
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO tasks (title, description, assigned_to, status, points, submission_link, due_date, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id
	`, t.Title, t.Description, t.AssignedTo, t.Status, t.Points, t.SubmissionLink, nullTime(t.DueDate), t.CreatedAt, t.UpdatedAt)
	return mapErr(row.Scan(&t.ID))
}

func (p *Postgres) GetTask(ctx context.Context, id int64) (model.Task, error) {
	t, err := scanTask(p.db.QueryRowContext(ctx, taskSelect+` WHERE t.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, errTaskNotFound
	}
	return t, err
}

// currentStatus explains why a guarded task write matched no row.
func (p *Postgres) currentStatus(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, id int64) error {
	var status model.TaskStatus
	err := q.QueryRowContext(ctx, `SELECT status FROM tasks WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return errTaskNotFound
	}
	if err != nil {
		return err
	}
	return errTaskState(status)
}

// UpdateTask saves editable fields. A task can neither enter nor leave the
// verified state through this path.
func (p *Postgres) UpdateTask(ctx context.Context, t model.Task) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE tasks SET title = $2, description = $3, assigned_to = $4, status = $5, points = $6,
			submission_link = $7, due_date = $8, updated_at = $9
		WHERE id = $1 AND (status = 'verified') = $10
	`, t.ID, t.Title, t.Description, t.AssignedTo, t.Status, t.Points, t.SubmissionLink, nullTime(t.DueDate), t.UpdatedAt,
		t.Status == model.TaskVerified)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return p.currentStatus(ctx, p.db, t.ID)
	}
	return nil
}

func (p *Postgres) DeleteTask(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return affected(res, err, errTaskNotFound)
}

func (p *Postgres) ListTasks(ctx context.Context, f model.TaskFilter) ([]model.Task, error) {
	query := taskSelect
	args := []any{}
	clauses := []string{}
	if f.AssignedTo != 0 {
		clauses = append(clauses, "t.assigned_to = "+placeholder(args))
		args = append(args, f.AssignedTo)
	}
	if f.Status != "" {
		clauses = append(clauses, "t.status = "+placeholder(args))
		args = append(args, f.Status)
	}
	if len(f.Statuses) > 0 {
		clauses = append(clauses, "t.status = ANY("+placeholder(args)+")")
		args = append(args, statusStrings(f.Statuses))
	}
	query += where(clauses) + " ORDER BY t.created_at DESC, t.id DESC"

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// TransitionTask moves the task to `to` only while its status is one of from.
func (p *Postgres) TransitionTask(ctx context.Context, id int64, from []model.TaskStatus, to model.TaskStatus, link *string, at time.Time) (model.Task, error) {
	var linkArg sql.NullString
	if link != nil {
		linkArg = sql.NullString{String: *link, Valid: true}
	}
	res, err := p.db.ExecContext(ctx, `
		UPDATE tasks SET status = $2, submission_link = COALESCE($3, submission_link), updated_at = $4
		WHERE id = $1 AND status = ANY($5)
	`, id, to, linkArg, at, statusStrings(from))
	if err != nil {
		return model.Task{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Task{}, err
	}
	if n == 0 {
		return model.Task{}, p.currentStatus(ctx, p.db, id)
	}
	return p.GetTask(ctx, id)
}

// VerifyTask flips submitted to verified and credits the assignee in one
// transaction. The status guard makes a second verification a no-op that
// reports a conflict.
func (p *Postgres) VerifyTask(ctx context.Context, id int64, at time.Time) (model.Task, error) {
	err := p.inTx(ctx, func(tx *sql.Tx) error {
		var (
			assignee int64
			points   int
		)
		err := tx.QueryRowContext(ctx, `
			UPDATE tasks SET status = 'verified', updated_at = $2
			WHERE id = $1 AND status = 'submitted'
			RETURNING assigned_to, points
		`, id, at).Scan(&assignee, &points)
		if errors.Is(err, sql.ErrNoRows) {
			return p.currentStatus(ctx, tx, id)
		}
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE users SET points = points + $2 WHERE id = $1`, assignee, points)
		return err
	})
	if err != nil {
		return model.Task{}, err
	}
	return p.GetTask(ctx, id)
}

func statusStrings(ss []model.TaskStatus) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}
