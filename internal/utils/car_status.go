package utils

import "rentacar/internal/db"

// DerivedCarStatus maps a booking status to the car status cache value
// it implies for the current moment. The car row is a convenience
// cache only; availability decisions always go through the booking
// occupancy query.
func DerivedCarStatus(bookingStatus string) string {
	switch bookingStatus {
	case db.BookingPending, db.BookingConfirmed, db.BookingBooked:
		return db.CarReserved
	case db.BookingActive:
		return db.CarRented
	default:
		return db.CarAvailable
	}
}

// OccupyingStatuses lists the booking statuses that count toward car
// occupancy. Shared by the availability query and the schema's
// exclusion constraint predicate.
func OccupyingStatuses() []string {
	return []string{db.BookingPending, db.BookingConfirmed, db.BookingBooked, db.BookingActive}
}
