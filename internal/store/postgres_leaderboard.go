package store

import (
	"context"
	"database/sql"

	"clubhub/internal/model"
)

const allTimeStandings = `
	SELECT ROW_NUMBER() OVER (ORDER BY u.points DESC, u.id ASC),
		u.id, u.username, u.first_name, u.last_name, u.avatar, u.points, u.batch_year, u.skill_level
	FROM users u
	WHERE u.is_active AND u.is_member
	ORDER BY u.points DESC, u.id ASC
	LIMIT $1`

// Windowed score: points of tasks submitted or verified since $1 plus
// present attendance since $1 weighted by $2.
const windowedStandings = `
	WITH scores AS (
		SELECT u.id, u.username, u.first_name, u.last_name, u.avatar, u.batch_year, u.skill_level,
			COALESCE((
				SELECT SUM(t.points) FROM tasks t
				WHERE t.assigned_to = u.id AND t.status IN ('submitted', 'verified') AND t.updated_at >= $1
			), 0) + COALESCE((
				SELECT COUNT(*) FROM attendance a
				WHERE a.user_id = u.id AND a.status = 'present' AND a.marked_at >= $1
			), 0) * $2 AS score
		FROM users u
		WHERE u.is_active AND u.is_member
	)
	SELECT ROW_NUMBER() OVER (ORDER BY score DESC, id ASC),
		id, username, first_name, last_name, avatar, score, batch_year, skill_level
	FROM scores
	ORDER BY score DESC, id ASC
	LIMIT $3`

func (p *Postgres) Standings(ctx context.Context, q model.ScoreQuery) ([]model.Standing, error) {
	limit := sql.NullInt64{Int64: int64(q.Limit), Valid: q.Limit > 0}

	var (
		rows *sql.Rows
		err  error
	)
	if q.Since.IsZero() {
		rows, err = p.db.QueryContext(ctx, allTimeStandings, limit)
	} else {
		rows, err = p.db.QueryContext(ctx, windowedStandings, q.Since, q.AttendancePoints, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []model.Standing{}
	for rows.Next() {
		var (
			u         model.User
			rank      int
			points    int
			batchYear sql.NullInt64
		)
		if err := rows.Scan(&rank, &u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Avatar, &points,
			&batchYear, &u.SkillLevel); err != nil {
			return nil, err
		}
		if batchYear.Valid {
			by := int(batchYear.Int64)
			u.BatchYear = &by
		}
		s := model.NewStanding(u, points)
		s.Rank = rank
		res = append(res, s)
	}
	return res, rows.Err()
}
