package utils

import (
	"testing"

	"github.com/stretchr/testify/require"

	"rentacar/internal/db"
)

func TestDerivedCarStatus(t *testing.T) {
	tests := []struct {
		bookingStatus string
		want          string
	}{
		{db.BookingPending, db.CarReserved},
		{db.BookingConfirmed, db.CarReserved},
		{db.BookingBooked, db.CarReserved},
		{db.BookingActive, db.CarRented},
		{db.BookingCancelled, db.CarAvailable},
		{db.BookingDeclined, db.CarAvailable},
		{db.BookingCompleted, db.CarAvailable},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, DerivedCarStatus(tt.bookingStatus), tt.bookingStatus)
	}
}

func TestOccupyingStatusesMatchDerivedOccupancy(t *testing.T) {
	// Every status that counts toward occupancy must also pin the car
	// status cache to a non-available value, and vice versa.
	occupying := map[string]bool{}
	for _, s := range OccupyingStatuses() {
		occupying[s] = true
	}
	all := []string{
		db.BookingPending, db.BookingConfirmed, db.BookingBooked, db.BookingActive,
		db.BookingCancelled, db.BookingDeclined, db.BookingCompleted,
	}
	for _, s := range all {
		require.Equal(t, occupying[s], DerivedCarStatus(s) != db.CarAvailable, s)
	}
}
