package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"rentacar/internal/db"
	"rentacar/internal/entities"
	apperrors "rentacar/internal/errors"
	"rentacar/internal/events"
	"rentacar/internal/repository"
	"rentacar/internal/utils"
)

// editableStatuses are the booking states in which the rental window
// may still be changed.
var editableStatuses = map[string]bool{
	db.BookingPending:   true,
	db.BookingConfirmed: true,
	db.BookingBooked:    true,
}

// transitions is the lifecycle state table. Missing keys are terminal
// states; CANCELLED is reachable from every non-terminal state.
var transitions = map[string][]string{
	db.BookingPending:   {db.BookingConfirmed, db.BookingBooked, db.BookingCancelled, db.BookingDeclined},
	db.BookingConfirmed: {db.BookingActive, db.BookingCancelled},
	db.BookingBooked:    {db.BookingActive, db.BookingCancelled},
	db.BookingActive:    {db.BookingCompleted, db.BookingCancelled},
}

// CanTransition reports whether the state table allows from → to.
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// BookingStore is the persistence surface the lifecycle needs. It is
// satisfied by repository.BookingRepository and faked in tests.
type BookingStore interface {
	WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error
	LockCarTx(ctx context.Context, tx *sql.Tx, carID int) (string, error)
	FindConflictsTx(ctx context.Context, tx *sql.Tx, carID int, start, end time.Time, excludeBookingID int) ([]db.Booking, error)
	FindConflicts(ctx context.Context, carID int, start, end time.Time, excludeBookingID int) ([]db.Booking, error)
	CreateTx(ctx context.Context, tx *sql.Tx, b *db.Booking) error
	GetByID(ctx context.Context, id int) (*db.Booking, error)
	GetByIDTx(ctx context.Context, tx *sql.Tx, id int) (*db.Booking, error)
	GetByCode(ctx context.Context, code string) (*db.Booking, error)
	UpdateDatesTx(ctx context.Context, tx *sql.Tx, id int, start, end time.Time, rentalDays int, subtotal, taxAmount, totalAmount float64) error
	UpdateStatus(ctx context.Context, id int, status string) error
	HasPayments(ctx context.Context, bookingID int) (bool, error)
	Delete(ctx context.Context, id int) error
	List(ctx context.Context, date, status string, carID int) ([]db.Booking, error)
}

// ReferenceStore serves the read-only lookups against reference data.
type ReferenceStore interface {
	GetCar(ctx context.Context, id int) (*db.Car, error)
	GetLocation(ctx context.Context, id int) (*db.Location, error)
	UpdateCarStatus(ctx context.Context, carID int, status string) error
}

// Quoter resolves a price for a car type and rental window.
type Quoter interface {
	Quote(ctx context.Context, carTypeID int, start, end time.Time) (*entities.Quote, error)
}

// EventPublisher pushes domain events to the message broker. Failures
// are logged, never propagated into the request path.
type EventPublisher interface {
	Publish(ctx context.Context, ev events.BookingEvent) error
}

// Notifier dispatches customer-facing notifications for a booking
// transition. Delivery mechanics live behind this interface.
type Notifier interface {
	NotifyBookingStatus(ctx context.Context, booking *db.Booking, status string)
}

type BookingService struct {
	repo      BookingStore
	refs      ReferenceStore
	pricing   Quoter
	publisher EventPublisher
	notifier  Notifier
	taxRate   float64
}

func NewBookingService(repo BookingStore, refs ReferenceStore, pricing Quoter, publisher EventPublisher, notifier Notifier, taxRate float64) *BookingService {
	return &BookingService{
		repo:      repo,
		refs:      refs,
		pricing:   pricing,
		publisher: publisher,
		notifier:  notifier,
		taxRate:   taxRate,
	}
}

// Create validates a booking request, reserves the car inside one
// transaction (row lock + conflict check + insert) and persists a
// PENDING booking with its derived financial fields. A storage-level
// conflict from a concurrent request is retried once, then surfaced as
// car-unavailable.
func (s *BookingService) Create(ctx context.Context, req entities.CreateBookingRequest) (*db.Booking, error) {
	if req.StartDate.IsZero() || req.EndDate.IsZero() || !req.EndDate.After(req.StartDate) {
		return nil, apperrors.ErrInvalidDateRange
	}

	car, err := s.refs.GetCar(ctx, req.CarID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrCarNotFound
		}
		return nil, fmt.Errorf("error fetching car %d: %w", req.CarID, err)
	}
	if car.Status == db.CarMaintenance || car.Status == db.CarOutOfService {
		return nil, apperrors.ErrCarUnavailable
	}

	for _, locID := range []int{req.PickupLocationID, req.DropOffLocationID} {
		if _, err := s.refs.GetLocation(ctx, locID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, apperrors.ErrLocationNotFound
			}
			return nil, fmt.Errorf("error fetching location %d: %w", locID, err)
		}
	}

	quote, err := s.pricing.Quote(ctx, car.CarTypeID, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	tax := round2(quote.Subtotal * s.taxRate)
	booking := &db.Booking{
		Code:              newBookingCode(),
		UserID:            req.UserID,
		CarID:             req.CarID,
		PickupLocationID:  req.PickupLocationID,
		DropOffLocationID: req.DropOffLocationID,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		Status:            db.BookingPending,
		RentalDays:        quote.RentalDays,
		Subtotal:          quote.Subtotal,
		TaxAmount:         tax,
		TotalAmount:       round2(quote.Subtotal + tax),
	}

	attempt := func() error {
		return s.repo.WithinTx(ctx, func(tx *sql.Tx) error {
			carStatus, err := s.repo.LockCarTx(ctx, tx, req.CarID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return apperrors.ErrCarNotFound
				}
				return fmt.Errorf("error locking car %d: %w", req.CarID, err)
			}
			// The pre-transaction check can go stale; the locked row is
			// authoritative.
			if carStatus == db.CarMaintenance || carStatus == db.CarOutOfService {
				return apperrors.ErrCarUnavailable
			}
			conflicts, err := s.repo.FindConflictsTx(ctx, tx, req.CarID, req.StartDate, req.EndDate, 0)
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				return apperrors.ErrCarUnavailable
			}
			return s.repo.CreateTx(ctx, tx, booking)
		})
	}

	if err := attempt(); err != nil {
		if !repository.IsSlotTakenError(err) {
			return nil, err
		}
		// The slot may have been taken by a concurrent request; one
		// retry distinguishes a transient conflict from a real one.
		if err := attempt(); err != nil {
			if repository.IsSlotTakenError(err) {
				return nil, apperrors.ErrCarUnavailable
			}
			return nil, err
		}
	}

	s.refreshCarStatus(ctx, booking.CarID, booking.Status)
	s.publish(ctx, events.BookingCreated, booking, booking.Status)
	if s.notifier != nil {
		s.notifier.NotifyBookingStatus(ctx, booking, db.BookingPending)
	}
	return booking, nil
}

// UpdateDates moves the rental window of a not-yet-active booking,
// re-checking availability against other bookings only and refreshing
// the derived financial fields.
func (s *BookingService) UpdateDates(ctx context.Context, bookingID int, newStart, newEnd time.Time) (*db.Booking, error) {
	if newStart.IsZero() || newEnd.IsZero() || !newEnd.After(newStart) {
		return nil, apperrors.ErrInvalidDateRange
	}

	var updated *db.Booking
	err := s.repo.WithinTx(ctx, func(tx *sql.Tx) error {
		booking, err := s.repo.GetByIDTx(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.ErrBookingNotFound
			}
			return err
		}
		if !editableStatuses[booking.Status] {
			return apperrors.ErrInvalidTransition
		}
		carStatus, err := s.repo.LockCarTx(ctx, tx, booking.CarID)
		if err != nil {
			return fmt.Errorf("error locking car %d: %w", booking.CarID, err)
		}
		if carStatus == db.CarMaintenance || carStatus == db.CarOutOfService {
			return apperrors.ErrCarUnavailable
		}
		conflicts, err := s.repo.FindConflictsTx(ctx, tx, booking.CarID, newStart, newEnd, booking.ID)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return apperrors.ErrCarUnavailable
		}

		car, err := s.refs.GetCar(ctx, booking.CarID)
		if err != nil {
			return fmt.Errorf("error fetching car %d: %w", booking.CarID, err)
		}
		quote, err := s.pricing.Quote(ctx, car.CarTypeID, newStart, newEnd)
		if err != nil {
			return err
		}
		tax := round2(quote.Subtotal * s.taxRate)
		total := round2(quote.Subtotal + tax - booking.DiscountAmount)
		if err := s.repo.UpdateDatesTx(ctx, tx, booking.ID, newStart, newEnd, quote.RentalDays, quote.Subtotal, tax, total); err != nil {
			return err
		}

		booking.StartDate = newStart
		booking.EndDate = newEnd
		booking.RentalDays = quote.RentalDays
		booking.Subtotal = quote.Subtotal
		booking.TaxAmount = tax
		booking.TotalAmount = total
		updated = booking
		return nil
	})
	if err != nil {
		if repository.IsSlotTakenError(err) {
			return nil, apperrors.ErrCarUnavailable
		}
		return nil, err
	}

	s.publish(ctx, events.BookingUpdated, updated, updated.Status)
	return updated, nil
}

// TransitionStatus validates and applies a status change against the
// lifecycle state table. Terminal states reject every transition.
func (s *BookingService) TransitionStatus(ctx context.Context, bookingID int, newStatus string) (*db.Booking, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrBookingNotFound
		}
		return nil, err
	}
	if !CanTransition(booking.Status, newStatus) {
		return nil, apperrors.ErrInvalidTransition
	}
	if err := s.repo.UpdateStatus(ctx, bookingID, newStatus); err != nil {
		return nil, err
	}
	booking.Status = newStatus

	s.refreshCarStatus(ctx, booking.CarID, newStatus)

	eventType := events.BookingUpdated
	if newStatus == db.BookingCancelled {
		eventType = events.BookingCancelled
	}
	s.publish(ctx, eventType, booking, newStatus)
	if newStatus == db.BookingCancelled && s.notifier != nil {
		s.notifier.NotifyBookingStatus(ctx, booking, newStatus)
	}
	return booking, nil
}

// Cancel is customer- or admin-initiated cancellation; allowed from
// any non-terminal state.
func (s *BookingService) Cancel(ctx context.Context, bookingID int) (*db.Booking, error) {
	return s.TransitionStatus(ctx, bookingID, db.BookingCancelled)
}

// Delete hard-removes a booking. It is an administrative escape hatch
// that bypasses the state machine and is blocked while any payment
// references the booking.
func (s *BookingService) Delete(ctx context.Context, bookingID int) error {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.ErrBookingNotFound
		}
		return err
	}
	hasPayments, err := s.repo.HasPayments(ctx, bookingID)
	if err != nil {
		return err
	}
	if hasPayments {
		return apperrors.ErrHasPaymentHistory
	}
	if err := s.repo.Delete(ctx, bookingID); err != nil {
		return err
	}
	s.refreshCarStatus(ctx, booking.CarID, db.BookingCancelled)
	return nil
}

func (s *BookingService) Get(ctx context.Context, bookingID int) (*db.Booking, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

// GetByCode looks a booking up by its customer-facing code.
func (s *BookingService) GetByCode(ctx context.Context, code string) (*db.Booking, error) {
	booking, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

func (s *BookingService) List(ctx context.Context, date, status string, carID int) ([]db.Booking, error) {
	return s.repo.List(ctx, date, status, carID)
}

// CheckAvailability answers the read-only availability question for a
// car and window. Committing a booking re-checks inside a transaction;
// this result alone is never relied on for the reserve.
func (s *BookingService) CheckAvailability(ctx context.Context, carID int, start, end time.Time) (*entities.AvailabilityResponse, error) {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return nil, apperrors.ErrInvalidDateRange
	}
	conflicts, err := s.repo.FindConflicts(ctx, carID, start, end, 0)
	if err != nil {
		return nil, fmt.Errorf("error checking availability: %w", err)
	}
	resp := &entities.AvailabilityResponse{
		CarID:     carID,
		StartDate: start,
		EndDate:   end,
		Available: len(conflicts) == 0,
	}
	for _, c := range conflicts {
		resp.Conflicts = append(resp.Conflicts, entities.BookingConflict{
			BookingID:     c.ID,
			StartDate:     c.StartDate,
			EndDate:       c.EndDate,
			BookingStatus: c.Status,
		})
	}
	return resp, nil
}

func (s *BookingService) refreshCarStatus(ctx context.Context, carID int, bookingStatus string) {
	if err := s.refs.UpdateCarStatus(ctx, carID, utils.DerivedCarStatus(bookingStatus)); err != nil {
		log.Printf("Could not refresh status cache for car %d: %v", carID, err)
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *db.Booking, status string) {
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

func newBookingCode() string {
	return "BK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
