package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"rentacar/internal/db"
)

type PaymentRepository struct {
	DB *sql.DB
}

func NewPaymentRepository(database *sql.DB) *PaymentRepository {
	return &PaymentRepository{DB: database}
}

// IsDuplicateReferenceError reports whether err is the unique
// violation on (booking_id, gateway_ref), i.e. a replayed gateway webhook.
func IsDuplicateReferenceError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && pqErr.Constraint == "payments_booking_ref_key"
	}
	return false
}

// Insert records a payment. The (booking_id, gateway_ref) unique
// constraint makes duplicate webhook deliveries fail atomically
// instead of creating a second payment.
func (r *PaymentRepository) Insert(ctx context.Context, p *db.Payment) error {
	query := `
		INSERT INTO payments (booking_id, amount, method, status, gateway_ref, fail_reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	return r.DB.QueryRowContext(ctx, query,
		p.BookingID, p.Amount, p.Method, p.Status, p.GatewayRef, p.FailReason,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *PaymentRepository) FindByReference(ctx context.Context, bookingID int, reference string) (*db.Payment, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, booking_id, amount, method, status, gateway_ref, COALESCE(fail_reason, ''), created_at, updated_at
		FROM payments WHERE booking_id = $1 AND gateway_ref = $2`, bookingID, reference)
	return scanPayment(row)
}

// FindSettled returns the booking's PAID payment, if one exists. The
// partial unique index on (booking_id) WHERE status = 'PAID'
// guarantees at most one row.
func (r *PaymentRepository) FindSettled(ctx context.Context, bookingID int) (*db.Payment, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, booking_id, amount, method, status, gateway_ref, COALESCE(fail_reason, ''), created_at, updated_at
		FROM payments WHERE booking_id = $1 AND status = $2`, bookingID, db.PaymentPaid)
	return scanPayment(row)
}

// FindByGatewayRef resolves a payment from the gateway's reference
// alone, for webhook events that do not carry a booking ID.
func (r *PaymentRepository) FindByGatewayRef(ctx context.Context, reference string) (*db.Payment, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, booking_id, amount, method, status, gateway_ref, COALESCE(fail_reason, ''), created_at, updated_at
		FROM payments WHERE gateway_ref = $1`, reference)
	return scanPayment(row)
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, id int, status, reason string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE payments SET status = $2, fail_reason = NULLIF($3, ''), updated_at = NOW() WHERE id = $1`,
		id, status, reason)
	if err != nil {
		return fmt.Errorf("error updating payment %d status: %w", id, err)
	}
	return nil
}

func (r *PaymentRepository) ListByBooking(ctx context.Context, bookingID int) ([]db.Payment, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, booking_id, amount, method, status, gateway_ref, COALESCE(fail_reason, ''), created_at, updated_at
		FROM payments WHERE booking_id = $1 ORDER BY created_at`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []db.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func scanPayment(row rowScanner) (*db.Payment, error) {
	var p db.Payment
	err := row.Scan(&p.ID, &p.BookingID, &p.Amount, &p.Method, &p.Status, &p.GatewayRef, &p.FailReason, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
