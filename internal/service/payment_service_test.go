package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"rentacar/internal/db"
	"rentacar/internal/entities"
	apperrors "rentacar/internal/errors"
)

type fakePaymentStore struct {
	payments map[int]*db.Payment
	nextID   int
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{payments: make(map[int]*db.Payment), nextID: 1}
}

func (f *fakePaymentStore) Insert(ctx context.Context, p *db.Payment) error {
	p.ID = f.nextID
	f.nextID++
	cp := *p
	f.payments[p.ID] = &cp
	return nil
}

func (f *fakePaymentStore) FindByReference(ctx context.Context, bookingID int, reference string) (*db.Payment, error) {
	for _, p := range f.payments {
		if p.BookingID == bookingID && p.GatewayRef == reference {
			cp := *p
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakePaymentStore) FindByGatewayRef(ctx context.Context, reference string) (*db.Payment, error) {
	for _, p := range f.payments {
		if p.GatewayRef == reference {
			cp := *p
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakePaymentStore) FindSettled(ctx context.Context, bookingID int) (*db.Payment, error) {
	for _, p := range f.payments {
		if p.BookingID == bookingID && p.Status == db.PaymentPaid {
			cp := *p
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakePaymentStore) UpdateStatus(ctx context.Context, id int, status, reason string) error {
	p, ok := f.payments[id]
	if !ok {
		return sql.ErrNoRows
	}
	p.Status = status
	p.FailReason = reason
	return nil
}

func (f *fakePaymentStore) ListByBooking(ctx context.Context, bookingID int) ([]db.Payment, error) {
	var out []db.Payment
	for _, p := range f.payments {
		if p.BookingID == bookingID {
			out = append(out, *p)
		}
	}
	return out, nil
}

// fakeLifecycle implements BookingTransitioner over a single booking,
// enforcing the real state table.
type fakeLifecycle struct {
	booking *db.Booking
}

func (f *fakeLifecycle) Get(ctx context.Context, bookingID int) (*db.Booking, error) {
	if f.booking == nil || f.booking.ID != bookingID {
		return nil, apperrors.ErrBookingNotFound
	}
	cp := *f.booking
	return &cp, nil
}

func (f *fakeLifecycle) TransitionStatus(ctx context.Context, bookingID int, newStatus string) (*db.Booking, error) {
	if f.booking == nil || f.booking.ID != bookingID {
		return nil, apperrors.ErrBookingNotFound
	}
	if !CanTransition(f.booking.Status, newStatus) {
		return nil, apperrors.ErrInvalidTransition
	}
	f.booking.Status = newStatus
	cp := *f.booking
	return &cp, nil
}

type fakeIssuer struct {
	generated []struct{ bookingID, paymentID int }
}

func (f *fakeIssuer) Generate(ctx context.Context, booking *db.Booking, payment *db.Payment) (*db.Invoice, error) {
	f.generated = append(f.generated, struct{ bookingID, paymentID int }{booking.ID, payment.ID})
	return &db.Invoice{ID: len(f.generated), BookingID: booking.ID, PaymentID: payment.ID}, nil
}

type fakeGateway struct {
	refunded []string
	err      error
}

func (f *fakeGateway) RefundPayment(ctx context.Context, gatewayRef string) error {
	if f.err != nil {
		return f.err
	}
	f.refunded = append(f.refunded, gatewayRef)
	return nil
}

func pendingBooking() *db.Booking {
	return &db.Booking{ID: 1, UserID: 5, CarID: 7, Status: db.BookingPending, Subtotal: 1200, TaxAmount: 180, TotalAmount: 1380}
}

func settleReq(amount float64) entities.SettlePaymentRequest {
	return entities.SettlePaymentRequest{
		BookingID: 1,
		Amount:    amount,
		Method:    "card",
		Reference: "pi_abc123",
	}
}

func TestSettle_Success(t *testing.T) {
	store := newFakePaymentStore()
	lifecycle := &fakeLifecycle{booking: pendingBooking()}
	issuer := &fakeIssuer{}
	svc := NewPaymentService(store, lifecycle, issuer, nil, nil, nil, 0.01, db.BookingConfirmed)

	p, err := svc.Settle(context.Background(), settleReq(1380))
	require.NoError(t, err)
	require.Equal(t, db.PaymentPaid, p.Status)
	require.Equal(t, "pi_abc123", p.GatewayRef)
	require.Equal(t, db.BookingConfirmed, lifecycle.booking.Status)
	require.Len(t, issuer.generated, 1)
	require.Equal(t, p.ID, issuer.generated[0].paymentID)
}

func TestSettle_DuplicateReferenceIsIdempotent(t *testing.T) {
	store := newFakePaymentStore()
	lifecycle := &fakeLifecycle{booking: pendingBooking()}
	issuer := &fakeIssuer{}
	svc := NewPaymentService(store, lifecycle, issuer, nil, nil, nil, 0.01, db.BookingConfirmed)

	first, err := svc.Settle(context.Background(), settleReq(1380))
	require.NoError(t, err)

	second, err := svc.Settle(context.Background(), settleReq(1380))
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Len(t, store.payments, 1)
	require.Len(t, issuer.generated, 1)
}

func TestSettle_ReplayWithDifferentAmount(t *testing.T) {
	store := newFakePaymentStore()
	lifecycle := &fakeLifecycle{booking: pendingBooking()}
	svc := NewPaymentService(store, lifecycle, &fakeIssuer{}, nil, nil, nil, 0.01, db.BookingConfirmed)

	_, err := svc.Settle(context.Background(), settleReq(1380))
	require.NoError(t, err)

	_, err = svc.Settle(context.Background(), settleReq(900))
	require.ErrorIs(t, err, apperrors.ErrDuplicatePaymentReference)
}

func TestSettle_AmountMismatchIsFlagged(t *testing.T) {
	store := newFakePaymentStore()
	lifecycle := &fakeLifecycle{booking: pendingBooking()}
	issuer := &fakeIssuer{}
	svc := NewPaymentService(store, lifecycle, issuer, nil, nil, nil, 0.01, db.BookingConfirmed)

	_, err := svc.Settle(context.Background(), settleReq(1000))
	require.ErrorIs(t, err, apperrors.ErrAmountMismatch)

	// The charge happened at the gateway, so the row is kept for
	// support follow-up instead of being dropped.
	require.Len(t, store.payments, 1)
	flagged, err := store.FindByReference(context.Background(), 1, "pi_abc123")
	require.NoError(t, err)
	require.Equal(t, db.PaymentPending, flagged.Status)
	require.Contains(t, flagged.FailReason, "amount mismatch")

	require.Equal(t, db.BookingPending, lifecycle.booking.Status)
	require.Empty(t, issuer.generated)
}

func TestSettle_MismatchReplayKeepsFailing(t *testing.T) {
	store := newFakePaymentStore()
	lifecycle := &fakeLifecycle{booking: pendingBooking()}
	issuer := &fakeIssuer{}
	svc := NewPaymentService(store, lifecycle, issuer, nil, nil, nil, 0.01, db.BookingConfirmed)

	_, err := svc.Settle(context.Background(), settleReq(1000))
	require.ErrorIs(t, err, apperrors.ErrAmountMismatch)

	// A retry of the identical webhook must not turn the flagged row
	// into a successful settlement.
	_, err = svc.Settle(context.Background(), settleReq(1000))
	require.ErrorIs(t, err, apperrors.ErrAmountMismatch)
	require.Len(t, store.payments, 1)
	require.Equal(t, db.BookingPending, lifecycle.booking.Status)
	require.Empty(t, issuer.generated)
}

func TestSettle_WithinTolerance(t *testing.T) {
	store := newFakePaymentStore()
	lifecycle := &fakeLifecycle{booking: pendingBooking()}
	svc := NewPaymentService(store, lifecycle, &fakeIssuer{}, nil, nil, nil, 0.01, db.BookingConfirmed)

	p, err := svc.Settle(context.Background(), settleReq(1380.004))
	require.NoError(t, err)
	require.Equal(t, db.PaymentPaid, p.Status)
}

func TestSettle_UnknownBooking(t *testing.T) {
	svc := NewPaymentService(newFakePaymentStore(), &fakeLifecycle{}, &fakeIssuer{}, nil, nil, nil, 0.01, db.BookingConfirmed)
	_, err := svc.Settle(context.Background(), settleReq(1380))
	require.ErrorIs(t, err, apperrors.ErrBookingNotFound)
}

func TestMarkFailed(t *testing.T) {
	store := newFakePaymentStore()
	lifecycle := &fakeLifecycle{booking: pendingBooking()}
	svc := NewPaymentService(store, lifecycle, &fakeIssuer{}, nil, nil, nil, 0.01, db.BookingConfirmed)

	p, err := svc.MarkFailed(context.Background(), 1, "card declined")
	require.NoError(t, err)
	require.Equal(t, db.PaymentFailed, p.Status)
	require.Equal(t, "card declined", p.FailReason)
	require.Equal(t, db.BookingPending, lifecycle.booking.Status)
}

func TestRefund_CancelsNotStartedBooking(t *testing.T) {
	store := newFakePaymentStore()
	booking := pendingBooking()
	booking.Status = db.BookingConfirmed
	lifecycle := &fakeLifecycle{booking: booking}
	gateway := &fakeGateway{}
	svc := NewPaymentService(store, lifecycle, &fakeIssuer{}, gateway, nil, nil, 0.01, db.BookingConfirmed)

	store.Insert(context.Background(), &db.Payment{BookingID: 1, Amount: 1380, Status: db.PaymentPaid, GatewayRef: "pi_abc123"})

	p, err := svc.Refund(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, db.PaymentRefunded, p.Status)
	require.Equal(t, []string{"pi_abc123"}, gateway.refunded)
	require.Equal(t, db.BookingCancelled, lifecycle.booking.Status)
}

func TestRefund_LeavesCompletedBookingAlone(t *testing.T) {
	store := newFakePaymentStore()
	booking := pendingBooking()
	booking.Status = db.BookingCompleted
	lifecycle := &fakeLifecycle{booking: booking}
	svc := NewPaymentService(store, lifecycle, &fakeIssuer{}, &fakeGateway{}, nil, nil, 0.01, db.BookingConfirmed)

	store.Insert(context.Background(), &db.Payment{BookingID: 1, Amount: 1380, Status: db.PaymentPaid, GatewayRef: "pi_abc123"})

	p, err := svc.Refund(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, db.PaymentRefunded, p.Status)
	require.Equal(t, db.BookingCompleted, lifecycle.booking.Status)
}

func TestRefund_NoSettledPayment(t *testing.T) {
	lifecycle := &fakeLifecycle{booking: pendingBooking()}
	svc := NewPaymentService(newFakePaymentStore(), lifecycle, &fakeIssuer{}, &fakeGateway{}, nil, nil, 0.01, db.BookingConfirmed)

	_, err := svc.Refund(context.Background(), 1)
	var httpErr *apperrors.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, 404, httpErr.Code)
}

func TestReconcileGatewayRefund(t *testing.T) {
	store := newFakePaymentStore()
	booking := pendingBooking()
	booking.Status = db.BookingConfirmed
	lifecycle := &fakeLifecycle{booking: booking}
	svc := NewPaymentService(store, lifecycle, &fakeIssuer{}, nil, nil, nil, 0.01, db.BookingConfirmed)

	store.Insert(context.Background(), &db.Payment{BookingID: 1, Amount: 1380, Status: db.PaymentPaid, GatewayRef: "pi_abc123"})

	require.NoError(t, svc.ReconcileGatewayRefund(context.Background(), "pi_abc123"))
	require.Equal(t, db.BookingCancelled, lifecycle.booking.Status)

	// Replayed webhook is a no-op once the payment is marked refunded.
	require.NoError(t, svc.ReconcileGatewayRefund(context.Background(), "pi_abc123"))

	require.Error(t, svc.ReconcileGatewayRefund(context.Background(), "pi_unknown"))
}
