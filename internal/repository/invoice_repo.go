package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"rentacar/internal/db"
)

type InvoiceRepository struct {
	DB *sql.DB
}

func NewInvoiceRepository(database *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{DB: database}
}

// IsDuplicateInvoiceError reports whether err is the unique violation
// on (booking_id, payment_id), i.e. a regenerate for an already-invoiced
// settlement.
func IsDuplicateInvoiceError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && pqErr.Constraint == "invoices_booking_payment_key"
	}
	return false
}

func (r *InvoiceRepository) Insert(ctx context.Context, inv *db.Invoice) error {
	query := `
		INSERT INTO invoices (booking_id, payment_id, subtotal, tax_amount, discount_amount, total_amount, status, issue_date, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	return r.DB.QueryRowContext(ctx, query,
		inv.BookingID, inv.PaymentID, inv.SubTotal, inv.TaxAmount, inv.DiscountAmount,
		inv.TotalAmount, inv.Status, inv.IssueDate, inv.DueDate,
	).Scan(&inv.ID)
}

func (r *InvoiceRepository) FindByBookingAndPayment(ctx context.Context, bookingID, paymentID int) (*db.Invoice, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, booking_id, payment_id, subtotal, tax_amount, discount_amount, total_amount, status, issue_date, due_date
		FROM invoices WHERE booking_id = $1 AND payment_id = $2`, bookingID, paymentID)
	return scanInvoice(row)
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id int) (*db.Invoice, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, booking_id, payment_id, subtotal, tax_amount, discount_amount, total_amount, status, issue_date, due_date
		FROM invoices WHERE id = $1`, id)
	return scanInvoice(row)
}

func (r *InvoiceRepository) ListByBooking(ctx context.Context, bookingID int) ([]db.Invoice, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, booking_id, payment_id, subtotal, tax_amount, discount_amount, total_amount, status, issue_date, due_date
		FROM invoices WHERE booking_id = $1 ORDER BY issue_date`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []db.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}

// UpdateStatus applies an administrative reversal or close. Final
// invoices are never mutated through any other path.
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id int, status string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE invoices SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanInvoice(row rowScanner) (*db.Invoice, error) {
	var inv db.Invoice
	err := row.Scan(&inv.ID, &inv.BookingID, &inv.PaymentID, &inv.SubTotal, &inv.TaxAmount,
		&inv.DiscountAmount, &inv.TotalAmount, &inv.Status, &inv.IssueDate, &inv.DueDate)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
