package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"clubhub/internal/model"
)

const eventSelect = `
	SELECT e.id, e.title, e.description, e.event_type, e.event_date, e.location, e.meeting_link, e.banner,
		(SELECT COUNT(*) FROM attendance a WHERE a.event_id = e.id AND a.status = 'present'),
		e.created_at, e.updated_at
	FROM events e`

func scanEvent(row scanner) (model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.EventType, &e.EventDate, &e.Location, &e.MeetingLink,
		&e.Banner, &e.AttendanceCount, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (p *Postgres) CreateEvent(ctx context.Context, e *model.Event) error {
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO events (title, description, event_type, event_date, location, meeting_link, banner, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id
	`, e.Title, e.Description, e.EventType, e.EventDate, e.Location, e.MeetingLink, e.Banner, e.CreatedAt, e.UpdatedAt)
	return row.Scan(&e.ID)
}

func (p *Postgres) GetEvent(ctx context.Context, id int64) (model.Event, error) {
	e, err := scanEvent(p.db.QueryRowContext(ctx, eventSelect+` WHERE e.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, errEventNotFound
	}
	return e, err
}

func (p *Postgres) UpdateEvent(ctx context.Context, e model.Event) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE events SET title = $2, description = $3, event_type = $4, event_date = $5, location = $6,
			meeting_link = $7, banner = $8, updated_at = $9
		WHERE id = $1
	`, e.ID, e.Title, e.Description, e.EventType, e.EventDate, e.Location, e.MeetingLink, e.Banner, e.UpdatedAt)
	return affected(res, err, errEventNotFound)
}

func (p *Postgres) DeleteEvent(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	return affected(res, err, errEventNotFound)
}

func (p *Postgres) ListEvents(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	query := eventSelect
	args := []any{}
	clauses := []string{}
	if f.Type != "" {
		clauses = append(clauses, "e.event_type = "+placeholder(args))
		args = append(args, f.Type)
	}
	switch f.Time {
	case model.TimeUpcoming:
		clauses = append(clauses, "e.event_date >= "+placeholder(args))
		args = append(args, f.Now)
	case model.TimePast:
		clauses = append(clauses, "e.event_date < "+placeholder(args))
		args = append(args, f.Now)
	}
	query += where(clauses) + " ORDER BY e.event_date DESC, e.id DESC"

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
