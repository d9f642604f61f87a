package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrWorkItemNotFound = errors.New("work item not found")
)

type Repo interface {
	Create(ctx context.Context, companyId string, p Project) (string, error)
	Get(ctx context.Context, companyId string, id string) (Project, error)
	GetAll(ctx context.Context, companyId string, includeArchived bool) ([]Project, error)
	Update(ctx context.Context, companyId string, p Project) (bool, error)
	Delete(ctx context.Context, companyId string, id string) (bool, error)

	CreateWorkItem(ctx context.Context, companyId string, item WorkItem) (string, error)
	GetWorkItem(ctx context.Context, companyId string, id string) (WorkItem, error)
	GetWorkItems(ctx context.Context, companyId string, projectId string) ([]WorkItem, error)
	UpdateWorkItem(ctx context.Context, companyId string, item WorkItem) (bool, error)
	DeleteWorkItem(ctx context.Context, companyId string, projectId string, id string) (bool, error)
}

type RepoImpl struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *RepoImpl {
	return &RepoImpl{db: db}
}

func (r *RepoImpl) Create(ctx context.Context, companyId string, p Project) (string, error) {
	query := `INSERT INTO projects (id, company_id, name, color, budget_minutes, archived)
				VALUES ($1, $2, $3, $4, $5, $6)`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %v", err)
		log.Error(err)
		return "", err
	}
	defer stmt.Close()

	id := uuid.New().String()
	_, err = stmt.ExecContext(ctx, id, companyId, p.Name, p.Color, p.BudgetMinutes, p.Archived)
	if err != nil {
		err := fmt.Errorf("could not execute query: %v", err)
		log.Error(err)
		return "", err
	}
	return id, nil
}

func (r *RepoImpl) Get(ctx context.Context, companyId string, id string) (Project, error) {
	query := `SELECT id, name, color, budget_minutes, archived FROM projects
				WHERE company_id = $1 AND id = $2`

	var p Project
	err := r.db.QueryRowContext(ctx, query, companyId, id).Scan(&p.Id, &p.Name, &p.Color, &p.BudgetMinutes, &p.Archived)
	if errors.Is(err, sql.ErrNoRows) {
		return Project{}, ErrProjectNotFound
	} else if err != nil {
		err := fmt.Errorf("could not get project: %w", err)
		log.Error(err)
		return Project{}, err
	}
	return p, nil
}

func (r *RepoImpl) GetAll(ctx context.Context, companyId string, includeArchived bool) ([]Project, error) {
	query := `SELECT id, name, color, budget_minutes, archived FROM projects
				WHERE company_id = $1 AND (archived = FALSE OR $2) ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, query, companyId, includeArchived)
	if err != nil {
		err := fmt.Errorf("could not query projects: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	projects := make([]Project, 0)
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.Id, &p.Name, &p.Color, &p.BudgetMinutes, &p.Archived); err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *RepoImpl) Update(ctx context.Context, companyId string, p Project) (bool, error) {
	query := `UPDATE projects SET name = $1, color = $2, budget_minutes = $3, archived = $4
				WHERE company_id = $5 AND id = $6`

	result, err := r.db.ExecContext(ctx, query, p.Name, p.Color, p.BudgetMinutes, p.Archived, companyId, p.Id)
	if err != nil {
		err := fmt.Errorf("could not update project: %w", err)
		log.Error(err)
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *RepoImpl) Delete(ctx context.Context, companyId string, id string) (bool, error) {
	query := `DELETE FROM projects WHERE company_id = $1 AND id = $2`

	result, err := r.db.ExecContext(ctx, query, companyId, id)
	if err != nil {
		err := fmt.Errorf("could not delete project: %w", err)
		log.Error(err)
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *RepoImpl) CreateWorkItem(ctx context.Context, companyId string, item WorkItem) (string, error) {
	query := `INSERT INTO work_items (id, company_id, project_id, name, total_minutes, sort_order)
				VALUES ($1, $2, $3, $4, $5, $6)`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %v", err)
		log.Error(err)
		return "", err
	}
	defer stmt.Close()

	id := uuid.New().String()
	_, err = stmt.ExecContext(ctx, id, companyId, item.ProjectId, item.Name, item.TotalMinutes, item.SortOrder)
	if err != nil {
		err := fmt.Errorf("could not execute query: %v", err)
		log.Error(err)
		return "", err
	}
	return id, nil
}

func (r *RepoImpl) GetWorkItem(ctx context.Context, companyId string, id string) (WorkItem, error) {
	query := `SELECT id, project_id, name, total_minutes, sort_order FROM work_items
				WHERE company_id = $1 AND id = $2`

	var item WorkItem
	err := r.db.QueryRowContext(ctx, query, companyId, id).Scan(&item.Id, &item.ProjectId, &item.Name, &item.TotalMinutes, &item.SortOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return WorkItem{}, ErrWorkItemNotFound
	} else if err != nil {
		err := fmt.Errorf("could not get work item: %w", err)
		log.Error(err)
		return WorkItem{}, err
	}
	return item, nil
}

func (r *RepoImpl) GetWorkItems(ctx context.Context, companyId string, projectId string) ([]WorkItem, error) {
	query := `SELECT id, project_id, name, total_minutes, sort_order FROM work_items
				WHERE company_id = $1 AND project_id = $2 ORDER BY sort_order, name, id`

	rows, err := r.db.QueryContext(ctx, query, companyId, projectId)
	if err != nil {
		err := fmt.Errorf("could not query work items: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	items := make([]WorkItem, 0)
	for rows.Next() {
		var item WorkItem
		if err := rows.Scan(&item.Id, &item.ProjectId, &item.Name, &item.TotalMinutes, &item.SortOrder); err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *RepoImpl) UpdateWorkItem(ctx context.Context, companyId string, item WorkItem) (bool, error) {
	query := `UPDATE work_items SET name = $1, total_minutes = $2, sort_order = $3
				WHERE company_id = $4 AND id = $5`

	result, err := r.db.ExecContext(ctx, query, item.Name, item.TotalMinutes, item.SortOrder, companyId, item.Id)
	if err != nil {
		err := fmt.Errorf("could not update work item: %w", err)
		log.Error(err)
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *RepoImpl) DeleteWorkItem(ctx context.Context, companyId string, projectId string, id string) (bool, error) {
	query := `DELETE FROM work_items WHERE company_id = $1 AND project_id = $2 AND id = $3`

	result, err := r.db.ExecContext(ctx, query, companyId, projectId, id)
	if err != nil {
		err := fmt.Errorf("could not delete work item: %w", err)
		log.Error(err)
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
