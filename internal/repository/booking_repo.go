package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"

	"rentacar/internal/db"
	"rentacar/internal/utils"
)

type BookingRepository struct {
	DB *sql.DB
}

func NewBookingRepository(database *sql.DB) *BookingRepository {
	return &BookingRepository{DB: database}
}

// occupyingStatuses is inlined into queries as a positional array
// parameter; it must stay in sync with the bookings_no_overlap
// exclusion constraint predicate in the schema.
var occupyingStatuses = pq.Array(utils.OccupyingStatuses())

// IsSlotTakenError reports whether err is the unique or exclusion
// constraint violation Postgres raises when a concurrent insert won an
// overlapping rental window. Callers retry once, then surface the
// condition as car-unavailable.
func IsSlotTakenError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" || pqErr.Code == "23P01" || pqErr.Code == "40001"
	}
	return false
}

// WithinTx runs fn inside a transaction, committing on nil and rolling
// back otherwise. Booking create and date edits go through this so the
// availability check and the write are one atomic check-and-reserve.
func (r *BookingRepository) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// LockCarTx takes a row-level lock on the car record so the
// availability check and booking insert behave as one atomic
// check-and-reserve. Returns the car's current cached status.
func (r *BookingRepository) LockCarTx(ctx context.Context, tx *sql.Tx, carID int) (string, error) {
	var status string
	err := tx.QueryRowContext(ctx, `SELECT status FROM cars WHERE id = $1 FOR UPDATE`, carID).Scan(&status)
	if err != nil {
		return "", err
	}
	return status, nil
}

// FindConflictsTx returns the non-cancelled bookings for the car whose
// windows overlap the half-open interval [start, end), so a booking ending on day
// N never conflicts with one starting on day N. excludeBookingID lets
// a date edit check against other bookings only; pass 0 to exclude
// nothing.
func (r *BookingRepository) FindConflictsTx(ctx context.Context, tx *sql.Tx, carID int, start, end time.Time, excludeBookingID int) ([]db.Booking, error) {
	return r.findConflicts(ctx, tx, carID, start, end, excludeBookingID)
}

func (r *BookingRepository) FindConflicts(ctx context.Context, carID int, start, end time.Time, excludeBookingID int) ([]db.Booking, error) {
	return r.findConflicts(ctx, r.DB, carID, start, end, excludeBookingID)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func (r *BookingRepository) findConflicts(ctx context.Context, q querier, carID int, start, end time.Time, excludeBookingID int) ([]db.Booking, error) {
	query := `
		SELECT id, code, user_id, car_id, pickup_location_id, dropoff_location_id,
		       start_date, end_date, status, rental_days, subtotal, tax_amount, discount_amount, total_amount,
		       created_at, updated_at
		FROM bookings
		WHERE car_id = $1
		  AND status = ANY($2)
		  AND start_date < $4
		  AND end_date > $3
		  AND id <> $5
		ORDER BY start_date`
	rows, err := q.QueryContext(ctx, query, carID, occupyingStatuses, start, end, excludeBookingID)
	if err != nil {
		return nil, fmt.Errorf("error querying booking conflicts: %w", err)
	}
	defer rows.Close()

	var conflicts []db.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, *b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating conflict rows: %w", err)
	}
	return conflicts, nil
}

// CreateTx inserts a booking inside the caller's transaction and
// populates the generated ID and timestamps.
func (r *BookingRepository) CreateTx(ctx context.Context, tx *sql.Tx, b *db.Booking) error {
	query := `
		INSERT INTO bookings
		(code, user_id, car_id, pickup_location_id, dropoff_location_id, start_date, end_date,
		 status, rental_days, subtotal, tax_amount, discount_amount, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`
	return tx.QueryRowContext(ctx, query,
		b.Code, b.UserID, b.CarID, b.PickupLocationID, b.DropOffLocationID,
		b.StartDate, b.EndDate, b.Status, b.RentalDays,
		b.Subtotal, b.TaxAmount, b.DiscountAmount, b.TotalAmount,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (r *BookingRepository) GetByID(ctx context.Context, id int) (*db.Booking, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, code, user_id, car_id, pickup_location_id, dropoff_location_id,
		       start_date, end_date, status, rental_days, subtotal, tax_amount, discount_amount, total_amount,
		       created_at, updated_at
		FROM bookings WHERE id = $1`, id)
	return scanBooking(row)
}

// GetByIDTx reads the booking under the caller's transaction so a
// status check and the subsequent update see the same row version.
func (r *BookingRepository) GetByIDTx(ctx context.Context, tx *sql.Tx, id int) (*db.Booking, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, code, user_id, car_id, pickup_location_id, dropoff_location_id,
		       start_date, end_date, status, rental_days, subtotal, tax_amount, discount_amount, total_amount,
		       created_at, updated_at
		FROM bookings WHERE id = $1 FOR UPDATE`, id)
	return scanBooking(row)
}

func (r *BookingRepository) GetByCode(ctx context.Context, code string) (*db.Booking, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, code, user_id, car_id, pickup_location_id, dropoff_location_id,
		       start_date, end_date, status, rental_days, subtotal, tax_amount, discount_amount, total_amount,
		       created_at, updated_at
		FROM bookings WHERE code = $1`, code)
	return scanBooking(row)
}

// UpdateDatesTx rewrites the rental window and the derived financial
// fields inside the caller's transaction.
func (r *BookingRepository) UpdateDatesTx(ctx context.Context, tx *sql.Tx, id int, start, end time.Time, rentalDays int, subtotal, taxAmount, totalAmount float64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE bookings
		SET start_date = $2, end_date = $3, rental_days = $4, subtotal = $5, tax_amount = $6, total_amount = $7, updated_at = NOW()
		WHERE id = $1`,
		id, start, end, rentalDays, subtotal, taxAmount, totalAmount)
	if err != nil {
		return fmt.Errorf("error updating booking %d dates: %w", id, err)
	}
	return nil
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, id int, status string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("error updating booking %d status: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *BookingRepository) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id int, status string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("error updating booking %d status: %w", id, err)
	}
	return nil
}

// HasPayments reports whether any payment row references the booking,
// in any payment status. Deletion is blocked while this is true.
func (r *BookingRepository) HasPayments(ctx context.Context, bookingID int) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM payments WHERE booking_id = $1)`, bookingID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking payment history for booking %d: %w", bookingID, err)
	}
	return exists, nil
}

func (r *BookingRepository) Delete(ctx context.Context, id int) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting booking %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns bookings for the admin surface, optionally filtered by
// start date (YYYY-MM-DD), status and car.
func (r *BookingRepository) List(ctx context.Context, date, status string, carID int) ([]db.Booking, error) {
	query := `
		SELECT id, code, user_id, car_id, pickup_location_id, dropoff_location_id,
		       start_date, end_date, status, rental_days, subtotal, tax_amount, discount_amount, total_amount,
		       created_at, updated_at
		FROM bookings WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if date != "" {
		query += " AND DATE(start_date) = $" + strconv.Itoa(idx)
		args = append(args, date)
		idx++
	}
	if status != "" {
		query += " AND status = $" + strconv.Itoa(idx)
		args = append(args, status)
		idx++
	}
	if carID > 0 {
		query += " AND car_id = $" + strconv.Itoa(idx)
		args = append(args, carID)
		idx++
	}
	query += " ORDER BY start_date DESC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []db.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*db.Booking, error) {
	var b db.Booking
	err := row.Scan(
		&b.ID, &b.Code, &b.UserID, &b.CarID, &b.PickupLocationID, &b.DropOffLocationID,
		&b.StartDate, &b.EndDate, &b.Status, &b.RentalDays,
		&b.Subtotal, &b.TaxAmount, &b.DiscountAmount, &b.TotalAmount,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
