package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"

	"rentacar/internal/db"
)

type JobRepository struct {
	DB *sql.DB
}

func NewJobRepository(database *sql.DB) *JobRepository {
	return &JobRepository{DB: database}
}

// GetDueForActivation returns paid bookings whose rental window has
// started but that are still CONFIRMED/BOOKED.
func (r *JobRepository) GetDueForActivation(ctx context.Context) ([]db.Booking, error) {
	query := `SELECT id, user_id, car_id, status FROM bookings WHERE status IN ($1, $2) AND start_date <= NOW()`
	return r.collectBookings(ctx, query, db.BookingConfirmed, db.BookingBooked)
}

// GetActivePastEndDate returns ACTIVE bookings whose rental window has
// ended.
func (r *JobRepository) GetActivePastEndDate(ctx context.Context) ([]db.Booking, error) {
	query := `SELECT id, user_id, car_id, status FROM bookings WHERE status = $1 AND end_date < NOW()`
	return r.collectBookings(ctx, query, db.BookingActive)
}

// GetStalePending returns PENDING bookings created before the cutoff
// that never received a settled payment.
func (r *JobRepository) GetStalePending(ctx context.Context, before time.Time) ([]db.Booking, error) {
	query := `
		SELECT b.id, b.user_id, b.car_id, b.status FROM bookings b
		WHERE b.status = $1
		  AND b.created_at < $2
		  AND NOT EXISTS (SELECT 1 FROM payments p WHERE p.booking_id = b.id AND p.status = $3)`
	return r.collectBookings(ctx, query, db.BookingPending, before, db.PaymentPaid)
}

// UpdateBookingStatuses moves a batch of bookings to newStatus.
func (r *JobRepository) UpdateBookingStatuses(ctx context.Context, ids []int, newStatus string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = ANY($2)`
	result, err := r.DB.ExecContext(ctx, query, newStatus, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("error updating booking statuses: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Printf("Could not get rows affected: %v", err)
	} else {
		log.Printf("Updated status for %d bookings to '%s'", rowsAffected, newStatus)
	}
	return nil
}

func (r *JobRepository) collectBookings(ctx context.Context, query string, args ...interface{}) ([]db.Booking, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying bookings: %w", err)
	}
	defer rows.Close()

	var bookings []db.Booking
	for rows.Next() {
		var b db.Booking
		if err := rows.Scan(&b.ID, &b.UserID, &b.CarID, &b.Status); err != nil {
			return nil, fmt.Errorf("error scanning booking row: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating rows: %w", err)
	}
	return bookings, nil
}
