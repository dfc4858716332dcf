package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rentacar/internal/db"
	"rentacar/internal/repository"
)

// InvoiceStore is the persistence surface the generator needs.
type InvoiceStore interface {
	Insert(ctx context.Context, inv *db.Invoice) error
	FindByBookingAndPayment(ctx context.Context, bookingID, paymentID int) (*db.Invoice, error)
	GetByID(ctx context.Context, id int) (*db.Invoice, error)
	UpdateStatus(ctx context.Context, id int, status string) error
	ListByBooking(ctx context.Context, bookingID int) ([]db.Invoice, error)
}

// InvoiceService derives an invoice snapshot from a booking + settled
// payment pair. Generation is idempotent per pair: a second call
// returns the existing invoice instead of creating a duplicate.
type InvoiceService struct {
	repo    InvoiceStore
	taxRate float64
	dueDays int
	now     func() time.Time
}

func NewInvoiceService(repo InvoiceStore, taxRate float64, dueDays int) *InvoiceService {
	return &InvoiceService{
		repo:    repo,
		taxRate: taxRate,
		dueDays: dueDays,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *InvoiceService) Generate(ctx context.Context, booking *db.Booking, payment *db.Payment) (*db.Invoice, error) {
	existing, err := s.repo.FindByBookingAndPayment(ctx, booking.ID, payment.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("error checking existing invoice: %w", err)
	}

	issueDate := s.now()
	tax := round2(booking.Subtotal * s.taxRate)
	inv := &db.Invoice{
		BookingID:      booking.ID,
		PaymentID:      payment.ID,
		SubTotal:       booking.Subtotal,
		TaxAmount:      tax,
		DiscountAmount: booking.DiscountAmount,
		TotalAmount:    round2(booking.Subtotal + tax - booking.DiscountAmount),
		Status:         db.InvoicePaid,
		IssueDate:      issueDate,
		DueDate:        issueDate.AddDate(0, 0, s.dueDays),
	}
	if err := s.repo.Insert(ctx, inv); err != nil {
		if repository.IsDuplicateInvoiceError(err) {
			// Concurrent generation for the same settlement; the first
			// insert is authoritative.
			return s.repo.FindByBookingAndPayment(ctx, booking.ID, payment.ID)
		}
		return nil, fmt.Errorf("error inserting invoice: %w", err)
	}
	return inv, nil
}

func (s *InvoiceService) Get(ctx context.Context, id int) (*db.Invoice, error) {
	return s.repo.GetByID(ctx, id)
}

// SetStatus applies an administrative correction to an invoice, for
// example closing it after a refund.
func (s *InvoiceService) SetStatus(ctx context.Context, id int, status string) error {
	switch status {
	case db.InvoiceIssued, db.InvoicePaid, db.InvoiceClosed:
	default:
		return fmt.Errorf("unknown invoice status %q", status)
	}
	return s.repo.UpdateStatus(ctx, id, status)
}

func (s *InvoiceService) ListByBooking(ctx context.Context, bookingID int) ([]db.Invoice, error) {
	return s.repo.ListByBooking(ctx, bookingID)
}
