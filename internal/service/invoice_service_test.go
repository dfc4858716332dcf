package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rentacar/internal/db"
)

type fakeInvoiceStore struct {
	invoices map[int]*db.Invoice
	nextID   int
}

func newFakeInvoiceStore() *fakeInvoiceStore {
	return &fakeInvoiceStore{invoices: make(map[int]*db.Invoice), nextID: 1}
}

func (f *fakeInvoiceStore) Insert(ctx context.Context, inv *db.Invoice) error {
	inv.ID = f.nextID
	f.nextID++
	cp := *inv
	f.invoices[inv.ID] = &cp
	return nil
}

func (f *fakeInvoiceStore) FindByBookingAndPayment(ctx context.Context, bookingID, paymentID int) (*db.Invoice, error) {
	for _, inv := range f.invoices {
		if inv.BookingID == bookingID && inv.PaymentID == paymentID {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeInvoiceStore) GetByID(ctx context.Context, id int) (*db.Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeInvoiceStore) UpdateStatus(ctx context.Context, id int, status string) error {
	inv, ok := f.invoices[id]
	if !ok {
		return sql.ErrNoRows
	}
	inv.Status = status
	return nil
}

func (f *fakeInvoiceStore) ListByBooking(ctx context.Context, bookingID int) ([]db.Invoice, error) {
	var out []db.Invoice
	for _, inv := range f.invoices {
		if inv.BookingID == bookingID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func TestGenerate_Amounts(t *testing.T) {
	store := newFakeInvoiceStore()
	svc := NewInvoiceService(store, 0.15, 14)
	issued := day("2026-06-10")
	svc.now = func() time.Time { return issued }

	booking := &db.Booking{ID: 1, Subtotal: 1200, DiscountAmount: 100}
	payment := &db.Payment{ID: 3, BookingID: 1, Amount: 1280, Status: db.PaymentPaid}

	inv, err := svc.Generate(context.Background(), booking, payment)
	require.NoError(t, err)
	require.Equal(t, float64(1200), inv.SubTotal)
	require.Equal(t, float64(180), inv.TaxAmount)
	require.Equal(t, float64(100), inv.DiscountAmount)
	require.Equal(t, float64(1280), inv.TotalAmount)
	require.Equal(t, db.InvoicePaid, inv.Status)
	require.Equal(t, issued, inv.IssueDate)
	require.Equal(t, issued.AddDate(0, 0, 14), inv.DueDate)
}

func TestSetStatus(t *testing.T) {
	store := newFakeInvoiceStore()
	svc := NewInvoiceService(store, 0.15, 14)
	store.Insert(context.Background(), &db.Invoice{BookingID: 1, PaymentID: 3, Status: db.InvoicePaid})

	require.NoError(t, svc.SetStatus(context.Background(), 1, db.InvoiceClosed))
	inv, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, db.InvoiceClosed, inv.Status)

	require.Error(t, svc.SetStatus(context.Background(), 1, "VOID"))
}

func TestGenerate_IdempotentPerSettlement(t *testing.T) {
	store := newFakeInvoiceStore()
	svc := NewInvoiceService(store, 0.15, 14)

	booking := &db.Booking{ID: 1, Subtotal: 1200}
	payment := &db.Payment{ID: 3, BookingID: 1, Amount: 1380, Status: db.PaymentPaid}

	first, err := svc.Generate(context.Background(), booking, payment)
	require.NoError(t, err)
	second, err := svc.Generate(context.Background(), booking, payment)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Len(t, store.invoices, 1)

	// A different settlement for the same booking gets its own invoice.
	other := &db.Payment{ID: 4, BookingID: 1, Amount: 1380, Status: db.PaymentPaid}
	third, err := svc.Generate(context.Background(), booking, other)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, third.ID)
	require.Len(t, store.invoices, 2)
}
