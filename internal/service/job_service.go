package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"rentacar/internal/db"
	"rentacar/internal/events"
	"rentacar/internal/utils"
)

// SweepStore is the persistence surface the scheduled sweeps need.
// Satisfied by repository.JobRepository.
type SweepStore interface {
	GetDueForActivation(ctx context.Context) ([]db.Booking, error)
	GetActivePastEndDate(ctx context.Context) ([]db.Booking, error)
	GetStalePending(ctx context.Context, before time.Time) ([]db.Booking, error)
	UpdateBookingStatuses(ctx context.Context, ids []int, newStatus string) error
}

// JobService runs the scheduled bookkeeping the lifecycle needs:
// confirmed bookings become ACTIVE once the rental window starts,
// active ones COMPLETED once it ends, and unpaid PENDING bookings are
// declined after the configured TTL so the car frees up. Sweeps emit
// the same domain events and car-status refreshes as interactive
// transitions.
type JobService struct {
	Repo      SweepStore
	publisher EventPublisher
	refs      ReferenceStore
}

func NewJobService(repo SweepStore, publisher EventPublisher, refs ReferenceStore) *JobService {
	return &JobService{Repo: repo, publisher: publisher, refs: refs}
}

func (s *JobService) ActivateDueBookings(ctx context.Context) error {
	bookings, err := s.Repo.GetDueForActivation(ctx)
	if err != nil {
		return fmt.Errorf("cron job: failed to get bookings due for activation: %w", err)
	}
	return s.sweep(ctx, bookings, db.BookingActive, "activating")
}

func (s *JobService) CompleteFinishedBookings(ctx context.Context) error {
	bookings, err := s.Repo.GetActivePastEndDate(ctx)
	if err != nil {
		return fmt.Errorf("cron job: failed to get active bookings past end date: %w", err)
	}
	return s.sweep(ctx, bookings, db.BookingCompleted, "completing")
}

func (s *JobService) DeclineStalePending(ctx context.Context, ttl time.Duration) error {
	cutoff := time.Now().UTC().Add(-ttl)
	bookings, err := s.Repo.GetStalePending(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("cron job: failed to get stale pending bookings: %w", err)
	}
	return s.sweep(ctx, bookings, db.BookingDeclined, "declining")
}

func (s *JobService) sweep(ctx context.Context, bookings []db.Booking, newStatus, verb string) error {
	if len(bookings) == 0 {
		return nil
	}
	ids := make([]int, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.ID)
	}
	log.Printf("Cron Job: %s %d bookings. IDs: %v", verb, len(ids), ids)
	if err := s.Repo.UpdateBookingStatuses(ctx, ids, newStatus); err != nil {
		return fmt.Errorf("cron job: failed to update booking statuses: %w", err)
	}

	for _, b := range bookings {
		if s.refs != nil {
			if err := s.refs.UpdateCarStatus(ctx, b.CarID, utils.DerivedCarStatus(newStatus)); err != nil {
				log.Printf("Cron Job: could not refresh status cache for car %d: %v", b.CarID, err)
			}
		}
		if s.publisher == nil {
			continue
		}
		ev := events.BookingEvent{
			Type:       events.BookingUpdated,
			UserID:     b.UserID,
			BookingID:  b.ID,
			Status:     newStatus,
			OccurredAt: time.Now().UTC().Format(time.RFC3339),
		}
		if err := s.publisher.Publish(ctx, ev); err != nil {
			log.Printf("Cron Job: could not publish %s event for booking %d: %v", ev.Type, b.ID, err)
		}
	}
	return nil
}
