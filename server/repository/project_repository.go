package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyhub/server/domain"
)

type ProjectRepository struct {
	pool *pgxpool.Pool
}

func NewProjectRepository(pool *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

const projectColumns = `project_id, title, description, subject, tags, is_public, created_by, member_ids, roles, created_at, updated_at`

func scanProject(row pgx.Row) (domain.Project, error) {
	var p domain.Project
	var tags, memberIDs, roles []byte
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Subject, &tags, &p.IsPublic, &p.CreatedBy, &memberIDs, &roles, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Project{}, domain.ErrNotFound
		}
		return domain.Project{}, err
	}
	p.Tags = fromJSONB(tags, []string{})
	p.MemberIDs = fromJSONB(memberIDs, []string{})
	p.Roles = fromJSONB(roles, map[string]domain.ProjectRole{})
	return p, nil
}

// CreateProject persists the project with the creator as initial member and admin.
func (r *ProjectRepository) CreateProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	tags, err := toJSONB(p.Tags)
	if err != nil {
		return domain.Project{}, err
	}
	members, err := toJSONB([]string{p.CreatedBy})
	if err != nil {
		return domain.Project{}, err
	}
	roles, err := toJSONB(map[string]domain.ProjectRole{p.CreatedBy: domain.RoleAdmin})
	if err != nil {
		return domain.Project{}, err
	}
	return scanProject(r.pool.QueryRow(ctx, `
		INSERT INTO projects(title, description, subject, tags, is_public, created_by, member_ids, roles)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+projectColumns,
		p.Title, p.Description, p.Subject, tags, p.IsPublic, p.CreatedBy, members, roles))
}

func (r *ProjectRepository) GetProject(ctx context.Context, projectID string) (domain.Project, error) {
	return scanProject(r.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE project_id=$1`, projectID))
}

func (r *ProjectRepository) ListProjectsForUser(ctx context.Context, userID string) ([]domain.Project, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE member_ids ? $1
		ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *ProjectRepository) ListPublicProjects(ctx context.Context, limit int) ([]domain.Project, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE is_public
		ORDER BY updated_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *ProjectRepository) UpdateProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	tags, err := toJSONB(p.Tags)
	if err != nil {
		return domain.Project{}, err
	}
	return scanProject(r.pool.QueryRow(ctx, `
		UPDATE projects
		SET title=$2, description=$3, subject=$4, tags=$5, is_public=$6, updated_at=NOW()
		WHERE project_id=$1
		RETURNING `+projectColumns,
		p.ID, p.Title, p.Description, p.Subject, tags, p.IsPublic))
}

func (r *ProjectRepository) AddMember(ctx context.Context, projectID, userID string) error {
	cmd, err := r.pool.Exec(ctx, `
		UPDATE projects
		SET member_ids = CASE WHEN member_ids ? $2 THEN member_ids ELSE member_ids || to_jsonb($2::text) END,
		    updated_at = NOW()
		WHERE project_id=$1`, projectID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProjectRepository) RemoveMember(ctx context.Context, projectID, userID string) error {
	cmd, err := r.pool.Exec(ctx, `
		UPDATE projects
		SET member_ids = (
			SELECT COALESCE(jsonb_agg(m), '[]'::jsonb)
			FROM jsonb_array_elements_text(member_ids) m
			WHERE m <> $2
		), roles = roles - $2, updated_at = NOW()
		WHERE project_id=$1`, projectID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProjectRepository) SetRole(ctx context.Context, projectID, userID string, role domain.ProjectRole) error {
	cmd, err := r.pool.Exec(ctx, `
		UPDATE projects
		SET roles = roles || jsonb_build_object($2::text, $3::text), updated_at = NOW()
		WHERE project_id=$1 AND member_ids ? $2`, projectID, userID, string(role))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
