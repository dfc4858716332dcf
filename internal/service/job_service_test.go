package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rentacar/internal/db"
	"rentacar/internal/events"
)

type fakeSweepStore struct {
	dueForActivation []db.Booking
	activePastEnd    []db.Booking
	stalePending     []db.Booking

	updatedIDs    []int
	updatedStatus string
}

func (f *fakeSweepStore) GetDueForActivation(ctx context.Context) ([]db.Booking, error) {
	return f.dueForActivation, nil
}

func (f *fakeSweepStore) GetActivePastEndDate(ctx context.Context) ([]db.Booking, error) {
	return f.activePastEnd, nil
}

func (f *fakeSweepStore) GetStalePending(ctx context.Context, before time.Time) ([]db.Booking, error) {
	return f.stalePending, nil
}

func (f *fakeSweepStore) UpdateBookingStatuses(ctx context.Context, ids []int, newStatus string) error {
	f.updatedIDs = ids
	f.updatedStatus = newStatus
	return nil
}

type recordingPublisher struct {
	published []events.BookingEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, ev events.BookingEvent) error {
	p.published = append(p.published, ev)
	return nil
}

type recordingRefs struct {
	fakeRefs
	carStatuses map[int]string
}

func (r *recordingRefs) UpdateCarStatus(ctx context.Context, carID int, status string) error {
	if r.carStatuses == nil {
		r.carStatuses = map[int]string{}
	}
	r.carStatuses[carID] = status
	return nil
}

func TestActivateDueBookings_PublishesAndRefreshesCars(t *testing.T) {
	store := &fakeSweepStore{
		dueForActivation: []db.Booking{
			{ID: 11, UserID: 5, CarID: 7, Status: db.BookingConfirmed},
			{ID: 12, UserID: 6, CarID: 8, Status: db.BookingBooked},
		},
	}
	publisher := &recordingPublisher{}
	refs := &recordingRefs{}
	svc := NewJobService(store, publisher, refs)

	require.NoError(t, svc.ActivateDueBookings(context.Background()))

	require.Equal(t, []int{11, 12}, store.updatedIDs)
	require.Equal(t, db.BookingActive, store.updatedStatus)

	require.Len(t, publisher.published, 2)
	require.Equal(t, events.BookingUpdated, publisher.published[0].Type)
	require.Equal(t, 11, publisher.published[0].BookingID)
	require.Equal(t, 5, publisher.published[0].UserID)
	require.Equal(t, db.BookingActive, publisher.published[0].Status)
	require.Equal(t, 12, publisher.published[1].BookingID)

	require.Equal(t, db.CarRented, refs.carStatuses[7])
	require.Equal(t, db.CarRented, refs.carStatuses[8])
}

func TestDeclineStalePending_FreesCar(t *testing.T) {
	store := &fakeSweepStore{
		stalePending: []db.Booking{{ID: 21, UserID: 9, CarID: 7, Status: db.BookingPending}},
	}
	publisher := &recordingPublisher{}
	refs := &recordingRefs{}
	svc := NewJobService(store, publisher, refs)

	require.NoError(t, svc.DeclineStalePending(context.Background(), 24*time.Hour))

	require.Equal(t, []int{21}, store.updatedIDs)
	require.Equal(t, db.BookingDeclined, store.updatedStatus)
	require.Equal(t, db.CarAvailable, refs.carStatuses[7])

	require.Len(t, publisher.published, 1)
	require.Equal(t, db.BookingDeclined, publisher.published[0].Status)
}

func TestCompleteFinishedBookings_EmptySweepIsNoop(t *testing.T) {
	store := &fakeSweepStore{}
	publisher := &recordingPublisher{}
	svc := NewJobService(store, publisher, &recordingRefs{})

	require.NoError(t, svc.CompleteFinishedBookings(context.Background()))
	require.Nil(t, store.updatedIDs)
	require.Empty(t, publisher.published)
}
