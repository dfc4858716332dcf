package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"rentacar/internal/db"
	"rentacar/internal/entities"
	apperrors "rentacar/internal/errors"
	"rentacar/internal/events"
	"rentacar/internal/repository"
)

// PaymentStore is the persistence surface the reconciler needs.
type PaymentStore interface {
	Insert(ctx context.Context, p *db.Payment) error
	FindByReference(ctx context.Context, bookingID int, reference string) (*db.Payment, error)
	FindByGatewayRef(ctx context.Context, reference string) (*db.Payment, error)
	FindSettled(ctx context.Context, bookingID int) (*db.Payment, error)
	UpdateStatus(ctx context.Context, id int, status, reason string) error
	ListByBooking(ctx context.Context, bookingID int) ([]db.Payment, error)
}

// InvoiceIssuer generates the invoice for a settled payment.
type InvoiceIssuer interface {
	Generate(ctx context.Context, booking *db.Booking, payment *db.Payment) (*db.Invoice, error)
}

// Refunder executes the gateway-side refund for a settled payment.
type Refunder interface {
	RefundPayment(ctx context.Context, gatewayRef string) error
}

// BookingTransitioner is the slice of the booking lifecycle the
// reconciler drives.
type BookingTransitioner interface {
	Get(ctx context.Context, bookingID int) (*db.Booking, error)
	TransitionStatus(ctx context.Context, bookingID int, newStatus string) (*db.Booking, error)
}

// PaymentService reconciles gateway settlement callbacks against
// bookings: it records the payment, advances the booking, and triggers
// invoice generation. Settlement is idempotent per gateway reference;
// duplicate webhook deliveries return the already-recorded payment.
type PaymentService struct {
	payments  PaymentStore
	bookings  BookingTransitioner
	invoices  InvoiceIssuer
	gateway   Refunder
	publisher EventPublisher
	notifier  Notifier

	tolerance     float64
	settledStatus string
}

func NewPaymentService(payments PaymentStore, bookings BookingTransitioner, invoices InvoiceIssuer, gateway Refunder, publisher EventPublisher, notifier Notifier, tolerance float64, settledStatus string) *PaymentService {
	if settledStatus == "" {
		settledStatus = db.BookingConfirmed
	}
	return &PaymentService{
		payments:      payments,
		bookings:      bookings,
		invoices:      invoices,
		gateway:       gateway,
		publisher:     publisher,
		notifier:      notifier,
		tolerance:     tolerance,
		settledStatus: settledStatus,
	}
}

// Settle records a gateway-confirmed payment against a booking. The
// amount must match the booking total within the configured tolerance;
// a mismatch is recorded and flagged for support rather than silently
// dropped, because the charge already happened at the gateway.
func (s *PaymentService) Settle(ctx context.Context, req entities.SettlePaymentRequest) (*db.Payment, error) {
	booking, err := s.bookings.Get(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}

	// Replayed webhook deliveries must not create a second payment.
	existing, err := s.payments.FindByReference(ctx, req.BookingID, req.Reference)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("error checking payment reference: %w", err)
	}
	if existing != nil {
		if math.Abs(existing.Amount-req.Amount) > s.tolerance {
			return nil, apperrors.ErrDuplicatePaymentReference
		}
		if existing.Status == db.PaymentPaid {
			return existing, nil
		}
		// A replay of a flagged mismatch keeps failing the same way;
		// returning the flagged row would mask the support condition.
		return nil, apperrors.ErrAmountMismatch
	}

	if math.Abs(req.Amount-booking.TotalAmount) > s.tolerance {
		flagged := &db.Payment{
			BookingID:  req.BookingID,
			Amount:     req.Amount,
			Method:     req.Method,
			Status:     db.PaymentPending,
			GatewayRef: req.Reference,
			FailReason: fmt.Sprintf("amount mismatch: gateway %.2f, booking total %.2f", req.Amount, booking.TotalAmount),
		}
		if err := s.payments.Insert(ctx, flagged); err != nil {
			log.Printf("Could not record mismatched payment for booking %d: %v", req.BookingID, err)
		}
		s.publish(ctx, events.PaymentFlagged, booking, db.PaymentPending)
		return nil, apperrors.ErrAmountMismatch
	}

	payment := &db.Payment{
		BookingID:  req.BookingID,
		Amount:     req.Amount,
		Method:     req.Method,
		Status:     db.PaymentPaid,
		GatewayRef: req.Reference,
	}
	if err := s.payments.Insert(ctx, payment); err != nil {
		if repository.IsDuplicateReferenceError(err) {
			// Lost the race against a concurrent delivery of the same
			// webhook; the first insert is authoritative.
			return s.payments.FindByReference(ctx, req.BookingID, req.Reference)
		}
		return nil, fmt.Errorf("error recording payment: %w", err)
	}

	if booking.Status == db.BookingPending {
		booking, err = s.bookings.TransitionStatus(ctx, req.BookingID, s.settledStatus)
		if err != nil {
			return nil, fmt.Errorf("payment %d recorded but booking transition failed: %w", payment.ID, err)
		}
	}

	if _, err := s.invoices.Generate(ctx, booking, payment); err != nil {
		return nil, fmt.Errorf("payment %d recorded but invoice generation failed: %w", payment.ID, err)
	}

	s.publish(ctx, events.PaymentSettled, booking, db.PaymentPaid)
	if s.notifier != nil {
		s.notifier.NotifyBookingStatus(ctx, booking, booking.Status)
	}
	return payment, nil
}

// MarkFailed records a failed gateway attempt for audit; the booking
// stays PENDING and the car stays reserved until the pending TTL job
// declines it.
func (s *PaymentService) MarkFailed(ctx context.Context, bookingID int, reason string) (*db.Payment, error) {
	if _, err := s.bookings.Get(ctx, bookingID); err != nil {
		return nil, err
	}
	payment := &db.Payment{
		BookingID:  bookingID,
		Amount:     0,
		Method:     "gateway",
		Status:     db.PaymentFailed,
		GatewayRef: "failed-" + uuid.NewString(),
		FailReason: reason,
	}
	if err := s.payments.Insert(ctx, payment); err != nil {
		return nil, fmt.Errorf("error recording failed payment: %w", err)
	}
	return payment, nil
}

// Refund reverses the booking's settled payment at the gateway and
// marks it REFUNDED. A booking that has not started yet is cancelled
// along the way; refunding a completed or active rental leaves the
// booking status untouched.
func (s *PaymentService) Refund(ctx context.Context, bookingID int) (*db.Payment, error) {
	booking, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	payment, err := s.payments.FindSettled(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewHTTPError(404, fmt.Sprintf("no settled payment for booking %d", bookingID))
		}
		return nil, fmt.Errorf("error finding settled payment: %w", err)
	}

	if s.gateway != nil {
		if err := s.gateway.RefundPayment(ctx, payment.GatewayRef); err != nil {
			return nil, fmt.Errorf("gateway refund failed for payment %d: %w", payment.ID, err)
		}
	}
	if err := s.payments.UpdateStatus(ctx, payment.ID, db.PaymentRefunded, ""); err != nil {
		return nil, err
	}
	payment.Status = db.PaymentRefunded

	switch booking.Status {
	case db.BookingPending, db.BookingConfirmed, db.BookingBooked:
		if _, err := s.bookings.TransitionStatus(ctx, bookingID, db.BookingCancelled); err != nil {
			log.Printf("Refunded payment %d but could not cancel booking %d: %v", payment.ID, bookingID, err)
		}
	}

	s.publish(ctx, events.PaymentRefunded, booking, db.PaymentRefunded)
	return payment, nil
}

// ReconcileGatewayRefund records a refund that originated at the
// gateway (e.g. issued from the Stripe dashboard). The money already
// moved, so only bookkeeping happens here.
func (s *PaymentService) ReconcileGatewayRefund(ctx context.Context, reference string) error {
	payment, err := s.payments.FindByGatewayRef(ctx, reference)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("no payment found for gateway reference %s", reference)
		}
		return err
	}
	if payment.Status == db.PaymentRefunded {
		return nil
	}
	if err := s.payments.UpdateStatus(ctx, payment.ID, db.PaymentRefunded, ""); err != nil {
		return err
	}

	booking, err := s.bookings.Get(ctx, payment.BookingID)
	if err != nil {
		return err
	}
	switch booking.Status {
	case db.BookingPending, db.BookingConfirmed, db.BookingBooked:
		if _, err := s.bookings.TransitionStatus(ctx, booking.ID, db.BookingCancelled); err != nil {
			log.Printf("Reconciled refund %s but could not cancel booking %d: %v", reference, booking.ID, err)
		}
	}
	s.publish(ctx, events.PaymentRefunded, booking, db.PaymentRefunded)
	return nil
}

func (s *PaymentService) ListByBooking(ctx context.Context, bookingID int) ([]db.Payment, error) {
	return s.payments.ListByBooking(ctx, bookingID)
}

func (s *PaymentService) publish(ctx context.Context, eventType string, booking *db.Booking, status string) {
	if s.publisher == nil {
		return
	}
	ev := events.BookingEvent{
		Type:       eventType,
		UserID:     booking.UserID,
		BookingID:  booking.ID,
		Status:     status,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		log.Printf("Could not publish %s event for booking %d: %v", eventType, booking.ID, err)
	}
}
