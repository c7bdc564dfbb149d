package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"clubhub/internal/model"
)

const userColumns = `id, username, email, password_hash, first_name, last_name, student_id, batch_year,
	points, is_member, is_club_admin, is_staff, is_active, avatar, bio, github_username,
	linkedin_url, portfolio_url, tech_skills, skill_level, last_login, created_at, updated_at`

func scanUser(row scanner) (model.User, error) {
	var (
		u         model.User
		batchYear sql.NullInt64
		skills    []byte
		lastLogin sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.StudentID, &batchYear,
		&u.Points, &u.IsMember, &u.IsClubAdmin, &u.IsStaff, &u.IsActive, &u.Avatar, &u.Bio, &u.GithubUsername,
		&u.LinkedinURL, &u.PortfolioURL, &skills, &u.SkillLevel, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if batchYear.Valid {
		by := int(batchYear.Int64)
		u.BatchYear = &by
	}
	u.LastLogin = timePtr(lastLogin)
	if u.TechSkills, err = parseList(skills); err != nil {
		return model.User{}, errors.Wrap(err, "decode tech_skills")
	}
	return u, nil
}

func (p *Postgres) CreateUser(ctx context.Context, u *model.User) error {
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash, first_name, last_name, student_id, batch_year,
			points, is_member, is_club_admin, is_staff, is_active, avatar, bio, github_username,
			linkedin_url, portfolio_url, tech_skills, skill_level, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
		RETURNING id
	`, u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.StudentID, nullInt(u.BatchYear),
		u.Points, u.IsMember, u.IsClubAdmin, u.IsStaff, u.IsActive, u.Avatar, u.Bio, u.GithubUsername,
		u.LinkedinURL, u.PortfolioURL, jsonList(u.TechSkills), u.SkillLevel, u.CreatedAt, u.UpdatedAt)
	return mapErr(row.Scan(&u.ID))
}

func (p *Postgres) GetUser(ctx context.Context, id int64) (model.User, error) {
	u, err := scanUser(p.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, errUserNotFound
	}
	return u, err
}

func (p *Postgres) GetUserByLogin(ctx context.Context, login string) (model.User, error) {
	u, err := scanUser(p.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE username = $1::text OR LOWER(email) = LOWER($1::text)
		ORDER BY (username = $1::text) DESC
		LIMIT 1
	`, login))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, errUserNotFound
	}
	return u, err
}

// UpdateUser saves profile and role fields. Points, password and last login
// have dedicated write paths and are left untouched.
func (p *Postgres) UpdateUser(ctx context.Context, u model.User) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE users SET
			username = $2, email = $3, first_name = $4, last_name = $5, student_id = $6, batch_year = $7,
			is_member = $8, is_club_admin = $9, is_staff = $10, is_active = $11, avatar = $12, bio = $13,
			github_username = $14, linkedin_url = $15, portfolio_url = $16, tech_skills = $17,
			skill_level = $18, updated_at = $19
		WHERE id = $1
	`, u.ID, u.Username, u.Email, u.FirstName, u.LastName, u.StudentID, nullInt(u.BatchYear),
		u.IsMember, u.IsClubAdmin, u.IsStaff, u.IsActive, u.Avatar, u.Bio,
		u.GithubUsername, u.LinkedinURL, u.PortfolioURL, jsonList(u.TechSkills),
		u.SkillLevel, u.UpdatedAt)
	return affected(res, mapErr(err), errUserNotFound)
}

func (p *Postgres) SetLastLogin(ctx context.Context, id int64, at time.Time) error {
	res, err := p.db.ExecContext(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
	return affected(res, err, errUserNotFound)
}

func (p *Postgres) SetPassword(ctx context.Context, id int64, hash []byte, at time.Time) error {
	res, err := p.db.ExecContext(ctx, `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, hash, at)
	return affected(res, err, errUserNotFound)
}

func (p *Postgres) DeleteUser(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return affected(res, err, errUserNotFound)
}

func (p *Postgres) ListUsers(ctx context.Context, f model.UserFilter) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []any{}
	clauses := []string{"is_active"}
	if f.MembersOnly {
		clauses = append(clauses, "is_member")
	}
	if f.BatchYear != nil {
		clauses = append(clauses, "batch_year = "+placeholder(args))
		args = append(args, *f.BatchYear)
	}
	if f.SkillLevel != "" {
		clauses = append(clauses, "skill_level = "+placeholder(args))
		args = append(args, f.SkillLevel)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		ph := placeholder(args)
		clauses = append(clauses, "(username ILIKE "+ph+" OR first_name ILIKE "+ph+
			" OR last_name ILIKE "+ph+" OR email ILIKE "+ph+")")
		args = append(args, "%"+escapeLike(s)+"%")
	}
	query += where(clauses) + " ORDER BY created_at DESC, id DESC"

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

// affected converts a zero-row write into notFound.
func affected(res sql.Result, err error, notFound error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
