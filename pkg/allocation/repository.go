package allocation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NescAdmin/nesc-planering/pkg/period"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var ErrAllocationNotFound = errors.New("allocation not found")

// Repository is the store for all three allocation kinds. Range queries use
// the overlap predicate start <= to AND end >= from; a nil personIds slice
// means every person in the company.
type Repository interface {
	// WithTransaction runs fn against a transaction-bound repository and
	// commits when fn returns nil. Any error from fn rolls everything back,
	// which is how soft conflicts discard hypothetically applied writes.
	WithTransaction(ctx context.Context, fn func(repo Repository) error) error

	StorePercent(ctx context.Context, companyId string, a Percent) (string, error)
	GetPercent(ctx context.Context, companyId string, id string) (Percent, error)
	UpdatePercent(ctx context.Context, companyId string, a Percent) (bool, error)
	DeletePercent(ctx context.Context, companyId string, id string) (bool, error)
	FindPercentForPeople(ctx context.Context, companyId string, personIds []string, from, to time.Time) ([]Percent, error)
	FindPercentByProject(ctx context.Context, companyId string, projectId string) ([]Percent, error)

	StoreUnit(ctx context.Context, companyId string, a Unit) (string, error)
	GetUnit(ctx context.Context, companyId string, id string) (Unit, error)
	UpdateUnit(ctx context.Context, companyId string, a Unit) (bool, error)
	DeleteUnit(ctx context.Context, companyId string, id string) (bool, error)
	FindUnitForPeople(ctx context.Context, companyId string, personIds []string, from, to time.Time) ([]Unit, error)
	FindUnitByProject(ctx context.Context, companyId string, projectId string) ([]Unit, error)
	FindUnitByWorkItem(ctx context.Context, companyId string, workItemId string) ([]Unit, error)

	StoreAdhoc(ctx context.Context, companyId string, a Adhoc) (string, error)
	GetAdhoc(ctx context.Context, companyId string, id string) (Adhoc, error)
	UpdateAdhoc(ctx context.Context, companyId string, a Adhoc) (bool, error)
	DeleteAdhoc(ctx context.Context, companyId string, id string) (bool, error)
	FindAdhocForPeople(ctx context.Context, companyId string, personIds []string, from, to time.Time) ([]Adhoc, error)

	// HasAllocationsForPerson reports whether any allocation of any kind for
	// the person ends on or after the given date.
	HasAllocationsForPerson(ctx context.Context, companyId string, personId string, from time.Time) (bool, error)
}

// queryer is satisfied by both *sql.DB and *sql.Tx so every query method can
// run inside or outside a transaction.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repositoryImpl struct {
	db *sql.DB
	tx *sql.Tx
}

func NewRepo(db *sql.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) getQueryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *repositoryImpl) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		// The Rollback is a no-op if the transaction was already committed.
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	txRepo := &repositoryImpl{db: r.db, tx: tx}

	if err := fn(txRepo); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPercent(row rowScanner) (Percent, error) {
	var a Percent
	var startDate, endDate string
	var createdAtMillis, updatedAtMillis int64
	err := row.Scan(&a.Id, &a.PersonId, &a.ProjectId, &startDate, &endDate, &a.Percent, &a.Note, &createdAtMillis, &updatedAtMillis)
	if err != nil {
		return Percent{}, err
	}
	if a.StartDate, err = period.ParseDate(startDate); err != nil {
		return Percent{}, err
	}
	if a.EndDate, err = period.ParseDate(endDate); err != nil {
		return Percent{}, err
	}
	a.CreatedAt = time.UnixMilli(createdAtMillis)
	a.UpdatedAt = time.UnixMilli(updatedAtMillis)
	return a, nil
}

func (r *repositoryImpl) StorePercent(ctx context.Context, companyId string, a Percent) (string, error) {
	query := `INSERT INTO percent_allocations (id, company_id, person_id, project_id, start_date, end_date, percent, note, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	id := uuid.New().String()
	_, err := r.getQueryer().ExecContext(ctx, query,
		id,
		companyId,
		a.PersonId,
		a.ProjectId,
		period.FormatDate(a.StartDate),
		period.FormatDate(a.EndDate),
		a.Percent,
		a.Note,
		a.CreatedAt.UnixMilli(),
		a.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		err := fmt.Errorf("could not store percent allocation: %w", err)
		log.Error(err)
		return "", err
	}
	return id, nil
}

func (r *repositoryImpl) GetPercent(ctx context.Context, companyId string, id string) (Percent, error) {
	query := `SELECT id, person_id, project_id, start_date, end_date, percent, note, created_at, updated_at
				FROM percent_allocations WHERE company_id = $1 AND id = $2`

	a, err := scanPercent(r.getQueryer().QueryRowContext(ctx, query, companyId, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Percent{}, ErrAllocationNotFound
	} else if err != nil {
		err := fmt.Errorf("could not get percent allocation: %w", err)
		log.Error(err)
		return Percent{}, err
	}
	return a, nil
}

func (r *repositoryImpl) UpdatePercent(ctx context.Context, companyId string, a Percent) (bool, error) {
	query := `UPDATE percent_allocations
				SET person_id = $1, start_date = $2, end_date = $3, percent = $4, note = $5, updated_at = $6
				WHERE company_id = $7 AND id = $8`

	result, err := r.getQueryer().ExecContext(ctx, query,
		a.PersonId,
		period.FormatDate(a.StartDate),
		period.FormatDate(a.EndDate),
		a.Percent,
		a.Note,
		a.UpdatedAt.UnixMilli(),
		companyId,
		a.Id,
	)
	if err != nil {
		err := fmt.Errorf("could not update percent allocation: %w", err)
		log.Error(err)
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *repositoryImpl) DeletePercent(ctx context.Context, companyId string, id string) (bool, error) {
	return r.deleteRow(ctx, "percent_allocations", companyId, id)
}

func (r *repositoryImpl) FindPercentForPeople(ctx context.Context, companyId string, personIds []string, from, to time.Time) ([]Percent, error) {
	query := `SELECT id, person_id, project_id, start_date, end_date, percent, note, created_at, updated_at
				FROM percent_allocations
				WHERE company_id = $1 AND start_date <= $2 AND end_date >= $3`
	args := []any{companyId, period.FormatDate(to), period.FormatDate(from)}
	if len(personIds) > 0 {
		query += fmt.Sprintf(" AND person_id IN (%s)", placeholders(4, len(personIds)))
		for _, id := range personIds {
			args = append(args, id)
		}
	}
	query += " ORDER BY start_date, id"

	return r.queryPercent(ctx, query, args...)
}

func (r *repositoryImpl) FindPercentByProject(ctx context.Context, companyId string, projectId string) ([]Percent, error) {
	query := `SELECT id, person_id, project_id, start_date, end_date, percent, note, created_at, updated_at
				FROM percent_allocations
				WHERE company_id = $1 AND project_id = $2
				ORDER BY start_date, id`
	return r.queryPercent(ctx, query, companyId, projectId)
}

func (r *repositoryImpl) queryPercent(ctx context.Context, query string, args ...any) ([]Percent, error) {
	rows, err := r.getQueryer().QueryContext(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not query percent allocations: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	allocations := make([]Percent, 0)
	for rows.Next() {
		a, err := scanPercent(rows)
		if err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

func scanUnit(row rowScanner) (Unit, error) {
	var a Unit
	var startDate, endDate string
	var createdAtMillis, updatedAtMillis int64
	err := row.Scan(&a.Id, &a.PersonId, &a.WorkItemId, &a.ProjectId, &startDate, &endDate, &a.Minutes, &a.Note, &createdAtMillis, &updatedAtMillis)
	if err != nil {
		return Unit{}, err
	}
	if a.StartDate, err = period.ParseDate(startDate); err != nil {
		return Unit{}, err
	}
	if a.EndDate, err = period.ParseDate(endDate); err != nil {
		return Unit{}, err
	}
	a.CreatedAt = time.UnixMilli(createdAtMillis)
	a.UpdatedAt = time.UnixMilli(updatedAtMillis)
	return a, nil
}

const unitSelect = `SELECT u.id, u.person_id, u.work_item_id, w.project_id, u.start_date, u.end_date, u.minutes, u.note, u.created_at, u.updated_at
				FROM unit_allocations u
				JOIN work_items w ON w.id = u.work_item_id`

func (r *repositoryImpl) StoreUnit(ctx context.Context, companyId string, a Unit) (string, error) {
	query := `INSERT INTO unit_allocations (id, company_id, person_id, work_item_id, start_date, end_date, minutes, note, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	id := uuid.New().String()
	_, err := r.getQueryer().ExecContext(ctx, query,
		id,
		companyId,
		a.PersonId,
		a.WorkItemId,
		period.FormatDate(a.StartDate),
		period.FormatDate(a.EndDate),
		a.Minutes,
		a.Note,
		a.CreatedAt.UnixMilli(),
		a.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		err := fmt.Errorf("could not store unit allocation: %w", err)
		log.Error(err)
		return "", err
	}
	return id, nil
}

func (r *repositoryImpl) GetUnit(ctx context.Context, companyId string, id string) (Unit, error) {
	query := unitSelect + ` WHERE u.company_id = $1 AND u.id = $2`

	a, err := scanUnit(r.getQueryer().QueryRowContext(ctx, query, companyId, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Unit{}, ErrAllocationNotFound
	} else if err != nil {
		err := fmt.Errorf("could not get unit allocation: %w", err)
		log.Error(err)
		return Unit{}, err
	}
	return a, nil
}

func (r *repositoryImpl) UpdateUnit(ctx context.Context, companyId string, a Unit) (bool, error) {
	query := `UPDATE unit_allocations
				SET person_id = $1, start_date = $2, end_date = $3, minutes = $4, note = $5, updated_at = $6
				WHERE company_id = $7 AND id = $8`

	result, err := r.getQueryer().ExecContext(ctx, query,
		a.PersonId,
		period.FormatDate(a.StartDate),
		period.FormatDate(a.EndDate),
		a.Minutes,
		a.Note,
		a.UpdatedAt.UnixMilli(),
		companyId,
		a.Id,
	)
	if err != nil {
		err := fmt.Errorf("could not update unit allocation: %w", err)
		log.Error(err)
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *repositoryImpl) DeleteUnit(ctx context.Context, companyId string, id string) (bool, error) {
	return r.deleteRow(ctx, "unit_allocations", companyId, id)
}

func (r *repositoryImpl) FindUnitForPeople(ctx context.Context, companyId string, personIds []string, from, to time.Time) ([]Unit, error) {
	query := unitSelect + ` WHERE u.company_id = $1 AND u.start_date <= $2 AND u.end_date >= $3`
	args := []any{companyId, period.FormatDate(to), period.FormatDate(from)}
	if len(personIds) > 0 {
		query += fmt.Sprintf(" AND u.person_id IN (%s)", placeholders(4, len(personIds)))
		for _, id := range personIds {
			args = append(args, id)
		}
	}
	query += " ORDER BY u.start_date, u.id"

	return r.queryUnit(ctx, query, args...)
}

func (r *repositoryImpl) FindUnitByProject(ctx context.Context, companyId string, projectId string) ([]Unit, error) {
	query := unitSelect + ` WHERE u.company_id = $1 AND w.project_id = $2 ORDER BY u.start_date, u.id`
	return r.queryUnit(ctx, query, companyId, projectId)
}

func (r *repositoryImpl) FindUnitByWorkItem(ctx context.Context, companyId string, workItemId string) ([]Unit, error) {
	query := unitSelect + ` WHERE u.company_id = $1 AND u.work_item_id = $2 ORDER BY u.start_date, u.id`
	return r.queryUnit(ctx, query, companyId, workItemId)
}

func (r *repositoryImpl) queryUnit(ctx context.Context, query string, args ...any) ([]Unit, error) {
	rows, err := r.getQueryer().QueryContext(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not query unit allocations: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	allocations := make([]Unit, 0)
	for rows.Next() {
		a, err := scanUnit(rows)
		if err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

func scanAdhoc(row rowScanner) (Adhoc, error) {
	var a Adhoc
	var startDate, endDate string
	var createdAtMillis, updatedAtMillis int64
	err := row.Scan(&a.Id, &a.PersonId, &a.Label, &a.Color, &startDate, &endDate, &a.Percent, &a.Note, &createdAtMillis, &updatedAtMillis)
	if err != nil {
		return Adhoc{}, err
	}
	if a.StartDate, err = period.ParseDate(startDate); err != nil {
		return Adhoc{}, err
	}
	if a.EndDate, err = period.ParseDate(endDate); err != nil {
		return Adhoc{}, err
	}
	a.CreatedAt = time.UnixMilli(createdAtMillis)
	a.UpdatedAt = time.UnixMilli(updatedAtMillis)
	return a, nil
}

func (r *repositoryImpl) StoreAdhoc(ctx context.Context, companyId string, a Adhoc) (string, error) {
	query := `INSERT INTO adhoc_allocations (id, company_id, person_id, label, color, start_date, end_date, percent, note, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	id := uuid.New().String()
	_, err := r.getQueryer().ExecContext(ctx, query,
		id,
		companyId,
		a.PersonId,
		a.Label,
		a.Color,
		period.FormatDate(a.StartDate),
		period.FormatDate(a.EndDate),
		a.Percent,
		a.Note,
		a.CreatedAt.UnixMilli(),
		a.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		err := fmt.Errorf("could not store adhoc allocation: %w", err)
		log.Error(err)
		return "", err
	}
	return id, nil
}

func (r *repositoryImpl) GetAdhoc(ctx context.Context, companyId string, id string) (Adhoc, error) {
	query := `SELECT id, person_id, label, color, start_date, end_date, percent, note, created_at, updated_at
				FROM adhoc_allocations WHERE company_id = $1 AND id = $2`

	a, err := scanAdhoc(r.getQueryer().QueryRowContext(ctx, query, companyId, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Adhoc{}, ErrAllocationNotFound
	} else if err != nil {
		err := fmt.Errorf("could not get adhoc allocation: %w", err)
		log.Error(err)
		return Adhoc{}, err
	}
	return a, nil
}

func (r *repositoryImpl) UpdateAdhoc(ctx context.Context, companyId string, a Adhoc) (bool, error) {
	query := `UPDATE adhoc_allocations
				SET person_id = $1, label = $2, color = $3, start_date = $4, end_date = $5, percent = $6, note = $7, updated_at = $8
				WHERE company_id = $9 AND id = $10`

	result, err := r.getQueryer().ExecContext(ctx, query,
		a.PersonId,
		a.Label,
		a.Color,
		period.FormatDate(a.StartDate),
		period.FormatDate(a.EndDate),
		a.Percent,
		a.Note,
		a.UpdatedAt.UnixMilli(),
		companyId,
		a.Id,
	)
	if err != nil {
		err := fmt.Errorf("could not update adhoc allocation: %w", err)
		log.Error(err)
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *repositoryImpl) DeleteAdhoc(ctx context.Context, companyId string, id string) (bool, error) {
	return r.deleteRow(ctx, "adhoc_allocations", companyId, id)
}

func (r *repositoryImpl) FindAdhocForPeople(ctx context.Context, companyId string, personIds []string, from, to time.Time) ([]Adhoc, error) {
	query := `SELECT id, person_id, label, color, start_date, end_date, percent, note, created_at, updated_at
				FROM adhoc_allocations
				WHERE company_id = $1 AND start_date <= $2 AND end_date >= $3`
	args := []any{companyId, period.FormatDate(to), period.FormatDate(from)}
	if len(personIds) > 0 {
		query += fmt.Sprintf(" AND person_id IN (%s)", placeholders(4, len(personIds)))
		for _, id := range personIds {
			args = append(args, id)
		}
	}
	query += " ORDER BY start_date, id"

	rows, err := r.getQueryer().QueryContext(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not query adhoc allocations: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	allocations := make([]Adhoc, 0)
	for rows.Next() {
		a, err := scanAdhoc(rows)
		if err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

func (r *repositoryImpl) HasAllocationsForPerson(ctx context.Context, companyId string, personId string, from time.Time) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM percent_allocations WHERE company_id = $1 AND person_id = $2 AND end_date >= $3)
				OR EXISTS (SELECT 1 FROM unit_allocations WHERE company_id = $4 AND person_id = $5 AND end_date >= $6)
				OR EXISTS (SELECT 1 FROM adhoc_allocations WHERE company_id = $7 AND person_id = $8 AND end_date >= $9)`

	date := period.FormatDate(from)
	var found bool
	err := r.getQueryer().QueryRowContext(ctx, query,
		companyId, personId, date,
		companyId, personId, date,
		companyId, personId, date,
	).Scan(&found)
	if err != nil {
		err := fmt.Errorf("could not check person allocations: %w", err)
		log.Error(err)
		return false, err
	}
	return found, nil
}

func (r *repositoryImpl) deleteRow(ctx context.Context, table string, companyId string, id string) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE company_id = $1 AND id = $2`, table)

	result, err := r.getQueryer().ExecContext(ctx, query, companyId, id)
	if err != nil {
		err := fmt.Errorf("could not delete from %s: %w", table, err)
		log.Error(err)
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// placeholders renders "$first, $first+1, ..." for IN clauses.
func placeholders(first, count int) string {
	parts := make([]string, 0, count)
	for i := 0; i < count; i++ {
		parts = append(parts, fmt.Sprintf("$%d", first+i))
	}
	return strings.Join(parts, ", ")
}
