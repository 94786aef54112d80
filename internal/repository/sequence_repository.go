package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Sequence names used by the admissions workflow.
const (
	SequenceRegistration = "psb_registration"
	SequenceNIS          = "nis"
)

// sequences are scoped per calendar year so registration numbers and NIS
// values restart at 1 each year. The upsert bumps and returns the counter
// in one statement, which makes concurrent allocations safe.
const nextSequenceQuery = `INSERT INTO sequences (name, year, value) VALUES ($1, $2, 1)
        ON CONFLICT (name, year) DO UPDATE SET value = sequences.value + 1
        RETURNING value`

// SequenceRepository allocates monotonically increasing counters.
type SequenceRepository struct {
	db *sqlx.DB
}

// NewSequenceRepository constructs the repository.
func NewSequenceRepository(db *sqlx.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next atomically increments and returns the counter for a name and year.
func (r *SequenceRepository) Next(ctx context.Context, name string, year int) (int64, error) {
	return nextSequence(ctx, r.db, name, year)
}

func nextSequence(ctx context.Context, q sqlx.QueryerContext, name string, year int) (int64, error) {
	var value int64
	if err := sqlx.GetContext(ctx, q, &value, nextSequenceQuery, name, year); err != nil {
		return 0, fmt.Errorf("next %s sequence for %d: %w", name, year, err)
	}
	return value, nil
}
