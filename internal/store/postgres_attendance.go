package store

import (
	"context"
	"database/sql"

	"clubhub/internal/model"
)

func (p *Postgres) CreateAttendance(ctx context.Context, a *model.Attendance) error {
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO attendance (user_id, event_id, marked_by, marked_at, status)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, a.UserID, a.EventID, nullID(a.MarkedBy), a.MarkedAt, a.Status)
	return mapErr(row.Scan(&a.ID))
}

// MarkAttendance inserts the record unless one already exists for the pair.
func (p *Postgres) MarkAttendance(ctx context.Context, a model.Attendance) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO attendance (user_id, event_id, marked_by, marked_at, status)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (user_id, event_id) DO NOTHING
	`, a.UserID, a.EventID, nullID(a.MarkedBy), a.MarkedAt, a.Status)
	if err != nil {
		return false, mapErr(err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func attendanceWhere(f model.AttendanceFilter) (string, []any) {
	args := []any{}
	clauses := []string{}
	if f.UserID != 0 {
		clauses = append(clauses, "a.user_id = "+placeholder(args))
		args = append(args, f.UserID)
	}
	if f.EventID != 0 {
		clauses = append(clauses, "a.event_id = "+placeholder(args))
		args = append(args, f.EventID)
	}
	if f.Status != "" {
		clauses = append(clauses, "a.status = "+placeholder(args))
		args = append(args, f.Status)
	}
	return where(clauses), args
}

func (p *Postgres) ListAttendance(ctx context.Context, f model.AttendanceFilter) ([]model.Attendance, error) {
	cond, args := attendanceWhere(f)
	rows, err := p.db.QueryContext(ctx, `
		SELECT a.id, a.user_id, a.event_id, a.marked_by, a.marked_at, a.status,
			e.title, e.event_date, e.event_type,
			`+summarySelect("u")+`, `+summarySelect("m")+`
		FROM attendance a
		JOIN events e ON e.id = a.event_id
		JOIN users u ON u.id = a.user_id
		LEFT JOIN users m ON m.id = a.marked_by`+cond+`
		ORDER BY a.marked_at DESC, a.id DESC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []model.Attendance{}
	for rows.Next() {
		var (
			a        model.Attendance
			ev       model.EventSummary
			markedBy sql.NullInt64
			user     summaryCols
			marker   summaryCols
		)
		dests := []any{&a.ID, &a.UserID, &a.EventID, &markedBy, &a.MarkedAt, &a.Status,
			&ev.Title, &ev.EventDate, &ev.EventType}
		dests = append(dests, user.dest()...)
		dests = append(dests, marker.dest()...)
		if err := rows.Scan(dests...); err != nil {
			return nil, err
		}
		ev.ID = a.EventID
		a.Event = &ev
		a.MarkedBy = idPtr(markedBy)
		a.User = user.summary()
		a.Marker = marker.summary()
		res = append(res, a)
	}
	return res, rows.Err()
}

func (p *Postgres) CountAttendance(ctx context.Context, f model.AttendanceFilter) (int, error) {
	cond, args := attendanceWhere(f)
	var n int
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendance a`+cond, args...).Scan(&n)
	return n, err
}
