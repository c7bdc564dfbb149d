package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"

	"clubhub/internal/model"
)

// Postgres persists club data with hand-written SQL over database/sql.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

var _ Store = (*Postgres)(nil)

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }
func (p *Postgres) Close() error                   { return p.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

// mapErr turns constraint violations into API errors.
func mapErr(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.ConstraintName {
	case "users_username_key":
		return errUsernameTaken
	case "users_email_lower_idx":
		return errEmailTaken
	case "attendance_user_id_event_id_key":
		return errAlreadyMarked
	case "attendance_event_id_fkey":
		return errEventNotFound
	case "attendance_user_id_fkey", "attendance_marked_by_fkey", "tasks_assigned_to_fkey",
		"projects_lead_id_fkey", "project_contributors_user_id_fkey":
		return errUserNotFound
	case "project_contributors_project_id_fkey":
		return errProjectNotFound
	}
	return err
}

func (p *Postgres) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func jsonList(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func parseList(raw []byte) ([]string, error) {
	var v []string
	if len(raw) == 0 {
		return []string{}, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullID(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

func idPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

// summaryCols scans the six user columns used for nested summaries.
type summaryCols struct {
	id        sql.NullInt64
	username  sql.NullString
	firstName sql.NullString
	lastName  sql.NullString
	avatar    sql.NullString
	email     sql.NullString
}

func (s *summaryCols) dest() []any {
	return []any{&s.id, &s.username, &s.firstName, &s.lastName, &s.avatar, &s.email}
}

func (s *summaryCols) summary() *model.UserSummary {
	if !s.id.Valid {
		return nil
	}
	u := model.User{
		ID:        s.id.Int64,
		Username:  s.username.String,
		FirstName: s.firstName.String,
		LastName:  s.lastName.String,
		Avatar:    s.avatar.String,
		Email:     s.email.String,
	}
	sum := u.Summary()
	return &sum
}

func summarySelect(alias string) string {
	return alias + ".id, " + alias + ".username, " + alias + ".first_name, " +
		alias + ".last_name, " + alias + ".avatar, " + alias + ".email"
}
