package company

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var ErrCompanyNotFound = errors.New("company not found")

type Repo interface {
	Create(ctx context.Context, company Company) (string, error)
	Get(ctx context.Context, id string) (Company, error)
	GetAll(ctx context.Context) ([]Company, error)
}

type RepoImpl struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *RepoImpl {
	return &RepoImpl{db: db}
}

func (r *RepoImpl) Create(ctx context.Context, company Company) (string, error) {
	query := `INSERT INTO companies (id, name, created_at) VALUES ($1, $2, $3)`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %v", err)
		log.Error(err)
		return "", err
	}
	defer stmt.Close()

	id := uuid.New().String()
	_, err = stmt.ExecContext(ctx, id, company.Name, company.CreatedAt.UnixMilli())
	if err != nil {
		err := fmt.Errorf("could not execute query: %v", err)
		log.Error(err)
		return "", err
	}
	return id, nil
}

func (r *RepoImpl) Get(ctx context.Context, id string) (Company, error) {
	query := `SELECT id, name, created_at FROM companies WHERE id = $1`

	var company Company
	var createdAtMillis int64
	err := r.db.QueryRowContext(ctx, query, id).Scan(&company.Id, &company.Name, &createdAtMillis)
	if errors.Is(err, sql.ErrNoRows) {
		return Company{}, ErrCompanyNotFound
	} else if err != nil {
		err := fmt.Errorf("could not get company: %w", err)
		log.Error(err)
		return Company{}, err
	}
	company.CreatedAt = time.UnixMilli(createdAtMillis)
	return company, nil
}

func (r *RepoImpl) GetAll(ctx context.Context) ([]Company, error) {
	query := `SELECT id, name, created_at FROM companies ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not query companies: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	companies := make([]Company, 0)
	for rows.Next() {
		var company Company
		var createdAtMillis int64
		if err := rows.Scan(&company.Id, &company.Name, &createdAtMillis); err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		company.CreatedAt = time.UnixMilli(createdAtMillis)
		companies = append(companies, company)
	}
	return companies, rows.Err()
}
