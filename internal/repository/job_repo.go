package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"cartbooking/internal/db"

	"github.com/lib/pq"
)

type JobRepository struct {
	DB *sql.DB
}

func NewJobRepository(database *sql.DB) *JobRepository {
	return &JobRepository{DB: database}
}

// GetActiveReservationIDsPastEndTime returns ids of active reservations whose
// end time has already passed.
func (r *JobRepository) GetActiveReservationIDsPastEndTime(ctx context.Context) ([]int, error) {
	query := `SELECT id FROM reservations WHERE status = $1 AND end_time < NOW()`
	rows, err := r.DB.QueryContext(ctx, query, db.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("error querying active reservations past end time: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning reservation ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating rows: %w", err)
	}
	return ids, nil
}

// CompleteReservations marks the given reservations completed and records who
// closed them out.
func (r *JobRepository) CompleteReservations(ctx context.Context, ids []int, completedBy string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE reservations SET status = $1, completed_by = $2, updated_at = NOW() WHERE id = ANY($3) AND status = $4`
	result, err := r.DB.ExecContext(ctx, query, db.StatusCompleted, completedBy, pq.Array(ids), db.StatusActive)
	if err != nil {
		return fmt.Errorf("error updating reservation statuses: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Printf("Could not get rows affected: %v", err)
	} else {
		log.Printf("Marked %d reservations as '%s'", rowsAffected, db.StatusCompleted)
	}
	return nil
}

// DeleteExpiredRecurrenceRules removes rules whose end date has passed; their
// virtual occurrences can no longer affect availability.
func (r *JobRepository) DeleteExpiredRecurrenceRules(ctx context.Context) (int64, error) {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM recurrence_rules WHERE until < CURRENT_DATE`)
	if err != nil {
		return 0, fmt.Errorf("error deleting expired recurrence rules: %w", err)
	}
	return result.RowsAffected()
}
