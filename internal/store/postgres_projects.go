package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"clubhub/internal/model"
)

var projectSelect = `
	SELECT p.id, p.name, p.description, p.status, p.tech_stack, p.github_repo, p.demo_url, p.image,
		p.lead_id, p.created_at, p.updated_at, ` + summarySelect("l") + `
	FROM projects p
	LEFT JOIN users l ON l.id = p.lead_id`

func scanProject(row scanner) (model.Project, error) {
	var (
		pr    model.Project
		tech  []byte
		lead  sql.NullInt64
		lsum  summaryCols
		dests = []any{&pr.ID, &pr.Name, &pr.Description, &pr.Status, &tech, &pr.GithubRepo, &pr.DemoURL, &pr.Image,
			&lead, &pr.CreatedAt, &pr.UpdatedAt}
	)
	if err := row.Scan(append(dests, lsum.dest()...)...); err != nil {
		return model.Project{}, err
	}
	var err error
	if pr.TechStack, err = parseList(tech); err != nil {
		return model.Project{}, errors.Wrap(err, "decode tech_stack")
	}
	pr.LeadID = idPtr(lead)
	pr.Lead = lsum.summary()
	return pr, nil
}

// loadContributors fills contributor ids and summaries for the given projects.
func (p *Postgres) loadContributors(ctx context.Context, projects []model.Project) error {
	if len(projects) == 0 {
		return nil
	}
	ids := make([]int64, len(projects))
	index := make(map[int64]int, len(projects))
	for i := range projects {
		ids[i] = projects[i].ID
		index[projects[i].ID] = i
		projects[i].ContributorIDs = []int64{}
		projects[i].Contributors = []model.UserSummary{}
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT pc.project_id, `+summarySelect("u")+`
		FROM project_contributors pc
		JOIN users u ON u.id = pc.user_id
		WHERE pc.project_id = ANY($1)
		ORDER BY pc.position
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			projectID int64
			sum       summaryCols
		)
		if err := rows.Scan(append([]any{&projectID}, sum.dest()...)...); err != nil {
			return err
		}
		pr := &projects[index[projectID]]
		s := sum.summary()
		pr.ContributorIDs = append(pr.ContributorIDs, s.ID)
		pr.Contributors = append(pr.Contributors, *s)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range projects {
		projects[i].ContributorsCount = len(projects[i].ContributorIDs)
	}
	return nil
}

func setContributors(ctx context.Context, tx *sql.Tx, projectID int64, ids []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM project_contributors WHERE project_id = $1`, projectID); err != nil {
		return err
	}
	for _, uid := range model.UniqueIDs(ids) {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO project_contributors (project_id, user_id) VALUES ($1, $2)
		`, projectID, uid); err != nil {
			return mapErr(err)
		}
	}
	return nil
}

func (p *Postgres) CreateProject(ctx context.Context, pr *model.Project) error {
	return p.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO projects (name, description, status, tech_stack, github_repo, demo_url, image, lead_id, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			RETURNING id
		`, pr.Name, pr.Description, pr.Status, jsonList(pr.TechStack), pr.GithubRepo, pr.DemoURL, pr.Image,
			nullID(pr.LeadID), pr.CreatedAt, pr.UpdatedAt)
		if err := row.Scan(&pr.ID); err != nil {
			return mapErr(err)
		}
		return setContributors(ctx, tx, pr.ID, pr.ContributorIDs)
	})
}

func (p *Postgres) GetProject(ctx context.Context, id int64) (model.Project, error) {
	pr, err := scanProject(p.db.QueryRowContext(ctx, projectSelect+` WHERE p.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Project{}, errProjectNotFound
	}
	if err != nil {
		return model.Project{}, err
	}
	list := []model.Project{pr}
	if err := p.loadContributors(ctx, list); err != nil {
		return model.Project{}, err
	}
	return list[0], nil
}

func (p *Postgres) UpdateProject(ctx context.Context, pr model.Project) error {
	return p.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE projects SET name = $2, description = $3, status = $4, tech_stack = $5, github_repo = $6,
				demo_url = $7, image = $8, lead_id = $9, updated_at = $10
			WHERE id = $1
		`, pr.ID, pr.Name, pr.Description, pr.Status, jsonList(pr.TechStack), pr.GithubRepo,
			pr.DemoURL, pr.Image, nullID(pr.LeadID), pr.UpdatedAt)
		if err := affected(res, mapErr(err), errProjectNotFound); err != nil {
			return err
		}
		return setContributors(ctx, tx, pr.ID, pr.ContributorIDs)
	})
}

func (p *Postgres) DeleteProject(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	return affected(res, err, errProjectNotFound)
}

func (p *Postgres) ListProjects(ctx context.Context, f model.ProjectFilter) ([]model.Project, error) {
	query := projectSelect
	args := []any{}
	clauses := []string{}
	if f.Status != "" {
		clauses = append(clauses, "p.status = "+placeholder(args))
		args = append(args, f.Status)
	}
	if tech := strings.TrimSpace(f.Tech); tech != "" {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM jsonb_array_elements_text(p.tech_stack) t WHERE t ILIKE "+placeholder(args)+")")
		args = append(args, "%"+escapeLike(tech)+"%")
	}
	if f.MemberID != 0 {
		ph := placeholder(args)
		clauses = append(clauses, "(p.lead_id = "+ph+
			" OR EXISTS (SELECT 1 FROM project_contributors pc WHERE pc.project_id = p.id AND pc.user_id = "+ph+"))")
		args = append(args, f.MemberID)
	}
	query += where(clauses) + " ORDER BY p.created_at DESC, p.id DESC"

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	res := []model.Project{}
	for rows.Next() {
		pr, err := scanProject(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		res = append(res, pr)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, p.loadContributors(ctx, res)
}

// AddContributor inserts the membership row; false means it already existed.
func (p *Postgres) AddContributor(ctx context.Context, projectID, userID int64, at time.Time) (bool, error) {
	var added bool
	err := p.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO project_contributors (project_id, user_id) VALUES ($1, $2)
			ON CONFLICT (project_id, user_id) DO NOTHING
		`, projectID, userID)
		if err != nil {
			return mapErr(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if added = n > 0; !added {
			return nil
		}
		_, err = tx.ExecContext(ctx, `UPDATE projects SET updated_at = $2 WHERE id = $1`, projectID, at)
		return err
	})
	return added, err
}

func (p *Postgres) RemoveContributor(ctx context.Context, projectID, userID int64, at time.Time) (bool, error) {
	var removed bool
	err := p.inTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1)`, projectID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return errProjectNotFound
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM project_contributors WHERE project_id = $1 AND user_id = $2`, projectID, userID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if removed = n > 0; !removed {
			return nil
		}
		_, err = tx.ExecContext(ctx, `UPDATE projects SET updated_at = $2 WHERE id = $1`, projectID, at)
		return err
	})
	return removed, err
}
