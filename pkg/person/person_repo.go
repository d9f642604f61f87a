package person

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

var (
	ErrPersonNotFound  = errors.New("person not found")
	ErrTimeOffNotFound = errors.New("time off not found")
)

type Repo interface {
	Create(ctx context.Context, companyId string, p Person) (string, error)
	Get(ctx context.Context, companyId string, id string) (Person, error)
	GetAll(ctx context.Context, companyId string) ([]Person, error)
	Update(ctx context.Context, companyId string, p Person) (bool, error)
	Delete(ctx context.Context, companyId string, id string) (bool, error)

	CreateTimeOff(ctx context.Context, companyId string, off TimeOff) (string, error)
	DeleteTimeOff(ctx context.Context, companyId string, personId string, id string) (bool, error)
	// GetTimeOff returns the person's time off overlapping [from, to].
	GetTimeOff(ctx context.Context, companyId string, personId string, from, to time.Time) ([]TimeOff, error)
	// GetTimeOffForPeople returns overlapping time off for several people, keyed by person id.
	GetTimeOffForPeople(ctx context.Context, companyId string, personIds []string, from, to time.Time) (map[string][]TimeOff, error)
}

type RepoImpl struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *RepoImpl {
	return &RepoImpl{db: db}
}

func (r *RepoImpl) Create(ctx context.Context, companyId string, p Person) (string, error) {
	query := `INSERT INTO people (id, company_id, name, workday_start, workday_end, lunch_minutes, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %v", err)
		log.Error(err)
		return "", err
	}
	defer stmt.Close()

	id := uuid.New().String()
	_, err = stmt.ExecContext(ctx,
		id,
		companyId,
		p.Name,
		p.WorkdayStart,
		p.WorkdayEnd,
		p.LunchMinutes,
		p.CreatedAt.UnixMilli(),
		p.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		err := fmt.Errorf("could not execute query: %v", err)
		log.Error(err)
		return "", err
	}
	return id, nil
}

func (r *RepoImpl) Get(ctx context.Context, companyId string, id string) (Person, error) {
	query := `SELECT id, name, workday_start, workday_end, lunch_minutes, created_at, updated_at
				FROM people WHERE company_id = $1 AND id = $2`

	var p Person
	var createdAtMillis, updatedAtMillis int64
	err := r.db.QueryRowContext(ctx, query, companyId, id).Scan(
		&p.Id, &p.Name, &p.WorkdayStart, &p.WorkdayEnd, &p.LunchMinutes, &createdAtMillis, &updatedAtMillis,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Person{}, ErrPersonNotFound
	} else if err != nil {
		err := fmt.Errorf("could not get person: %w", err)
		log.Error(err)
		return Person{}, err
	}
	p.CreatedAt = time.UnixMilli(createdAtMillis)
	p.UpdatedAt = time.UnixMilli(updatedAtMillis)
	return p, nil
}

func (r *RepoImpl) GetAll(ctx context.Context, companyId string) ([]Person, error) {
	query := `SELECT id, name, workday_start, workday_end, lunch_minutes, created_at, updated_at
				FROM people WHERE company_id = $1 ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, query, companyId)
	if err != nil {
		err := fmt.Errorf("could not query people: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	people := make([]Person, 0)
	for rows.Next() {
		var p Person
		var createdAtMillis, updatedAtMillis int64
		if err := rows.Scan(&p.Id, &p.Name, &p.WorkdayStart, &p.WorkdayEnd, &p.LunchMinutes, &createdAtMillis, &updatedAtMillis); err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		p.CreatedAt = time.UnixMilli(createdAtMillis)
		p.UpdatedAt = time.UnixMilli(updatedAtMillis)
		people = append(people, p)
	}
	return people, rows.Err()
}

func (r *RepoImpl) Update(ctx context.Context, companyId string, p Person) (bool, error) {
	query := `UPDATE people SET name = $1, workday_start = $2, workday_end = $3, lunch_minutes = $4, updated_at = $5
				WHERE company_id = $6 AND id = $7`

	result, err := r.db.ExecContext(ctx, query,
		p.Name, p.WorkdayStart, p.WorkdayEnd, p.LunchMinutes, p.UpdatedAt.UnixMilli(), companyId, p.Id,
	)
	if err != nil {
		err := fmt.Errorf("could not update person: %w", err)
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
	query := `DELETE FROM people WHERE company_id = $1 AND id = $2`

	result, err := r.db.ExecContext(ctx, query, companyId, id)
	if err != nil {
		err := fmt.Errorf("could not delete person: %w", err)
		log.Error(err)
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *RepoImpl) CreateTimeOff(ctx context.Context, companyId string, off TimeOff) (string, error) {
	query := `INSERT INTO time_off (id, company_id, person_id, start_date, end_date, kind)
				VALUES ($1, $2, $3, $4, $5, $6)`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %v", err)
		log.Error(err)
		return "", err
	}
	defer stmt.Close()

	id := uuid.New().String()
	_, err = stmt.ExecContext(ctx,
		id,
		companyId,
		off.PersonId,
		period.FormatDate(off.StartDate),
		period.FormatDate(off.EndDate),
		string(off.Kind),
	)
	if err != nil {
		err := fmt.Errorf("could not execute query: %v", err)
		log.Error(err)
		return "", err
	}
	return id, nil
}

func (r *RepoImpl) DeleteTimeOff(ctx context.Context, companyId string, personId string, id string) (bool, error) {
	query := `DELETE FROM time_off WHERE company_id = $1 AND person_id = $2 AND id = $3`

	result, err := r.db.ExecContext(ctx, query, companyId, personId, id)
	if err != nil {
		err := fmt.Errorf("could not delete time off: %w", err)
		log.Error(err)
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *RepoImpl) GetTimeOff(ctx context.Context, companyId string, personId string, from, to time.Time) ([]TimeOff, error) {
	byPerson, err := r.GetTimeOffForPeople(ctx, companyId, []string{personId}, from, to)
	if err != nil {
		return nil, err
	}
	return byPerson[personId], nil
}

func (r *RepoImpl) GetTimeOffForPeople(ctx context.Context, companyId string, personIds []string, from, to time.Time) (map[string][]TimeOff, error) {
	result := make(map[string][]TimeOff, len(personIds))
	if len(personIds) == 0 {
		return result, nil
	}

	// Overlap: starts before the range ends and ends after the range starts.
	query := fmt.Sprintf(`SELECT id, person_id, start_date, end_date, kind
				FROM time_off
				WHERE company_id = $1 AND start_date <= $2 AND end_date >= $3 AND person_id IN (%s)
				ORDER BY start_date, id`, placeholders(4, len(personIds)))

	args := []interface{}{companyId, period.FormatDate(to), period.FormatDate(from)}
	for _, id := range personIds {
		args = append(args, id)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not query time off: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var off TimeOff
		var startDate, endDate, kind string
		if err := rows.Scan(&off.Id, &off.PersonId, &startDate, &endDate, &kind); err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		if off.StartDate, err = period.ParseDate(startDate); err != nil {
			return nil, err
		}
		if off.EndDate, err = period.ParseDate(endDate); err != nil {
			return nil, err
		}
		off.Kind = TimeOffKind(kind)
		result[off.PersonId] = append(result[off.PersonId], off)
	}
	return result, rows.Err()
}

// placeholders renders "$first, $first+1, ..." for IN clauses.
func placeholders(first, count int) string {
	parts := make([]string, 0, count)
	for i := 0; i < count; i++ {
		parts = append(parts, fmt.Sprintf("$%d", first+i))
	}
	return strings.Join(parts, ", ")
}
