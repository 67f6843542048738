package service

import (
	"context"
	"fmt"
	"log"

	"cartbooking/internal/repository"
)

type JobService struct {
	Repo *repository.JobRepository
}

func NewJobService(repo *repository.JobRepository) *JobService {
	return &JobService{Repo: repo}
}

// CompleteOverdueReservations finds active reservations past their end time
// and closes them out on behalf of the operators.
func (s *JobService) CompleteOverdueReservations(ctx context.Context) error {
	log.Println("Cron Job: checking for reservations to mark as completed...")

	reservationIDs, err := s.Repo.GetActiveReservationIDsPastEndTime(ctx)
	if err != nil {
		return fmt.Errorf("cron job: failed to get active reservations past end time: %w", err)
	}

	if len(reservationIDs) == 0 {
		log.Println("Cron Job: no active reservations found past their end time.")
		return nil
	}

	log.Printf("Cron Job: found %d reservations to complete. IDs: %v", len(reservationIDs), reservationIDs)

	if err := s.Repo.CompleteReservations(ctx, reservationIDs, "system"); err != nil {
		return fmt.Errorf("cron job: failed to update reservation statuses: %w", err)
	}
	return nil
}

// CleanupExpiredRecurrences deletes recurrence rules whose end date passed.
func (s *JobService) CleanupExpiredRecurrences(ctx context.Context) error {
	deleted, err := s.Repo.DeleteExpiredRecurrenceRules(ctx)
	if err != nil {
		return fmt.Errorf("cron job: failed to delete expired recurrence rules: %w", err)
	}
	if deleted > 0 {
		log.Printf("Cron Job: deleted %d expired recurrence rules", deleted)
	}
	return nil
}
