package entities

import "time"

type AvailabilityRequest struct {
	CarID     int       `json:"carID" validate:"required,gt=0"`
	StartDate time.Time `json:"startDate" validate:"required"`
	EndDate   time.Time `json:"endDate" validate:"required"`
}

// BookingConflict describes an existing booking that blocks a
// requested rental window.
type BookingConflict struct {
	BookingID     int       `json:"bookingID"`
	StartDate     time.Time `json:"startDate"`
	EndDate       time.Time `json:"endDate"`
	BookingStatus string    `json:"bookingStatus"`
}

type AvailabilityResponse struct {
	CarID     int               `json:"carID"`
	StartDate time.Time         `json:"startDate"`
	EndDate   time.Time         `json:"endDate"`
	Available bool              `json:"available"`
	Conflicts []BookingConflict `json:"conflicts,omitempty"`
}
