package entities

import "time"

// CreateBookingRequest is the customer-facing create payload. The
// caller's identity travels explicitly in UserID; nothing is read from
// ambient session state.
type CreateBookingRequest struct {
	UserID            int       `json:"userID" validate:"required,gt=0"`
	CarID             int       `json:"carID" validate:"required,gt=0"`
	StartDate         time.Time `json:"startDate" validate:"required"`
	EndDate           time.Time `json:"endDate" validate:"required"`
	PickupLocationID  int       `json:"pickupLocationID" validate:"required,gt=0"`
	DropOffLocationID int       `json:"dropOffLocationID" validate:"required,gt=0"`
}

type UpdateDatesRequest struct {
	StartDate time.Time `json:"startDate" validate:"required"`
	EndDate   time.Time `json:"endDate" validate:"required"`
}

type TransitionRequest struct {
	Status string `json:"bookingStatus" validate:"required,oneof=PENDING CONFIRMED BOOKED ACTIVE COMPLETED CANCELLED DECLINED"`
}

// BookingResponse is the canonical booking shape exposed over the REST
// surface. Field names match the existing client contract.
type BookingResponse struct {
	BookingID         int       `json:"bookingID"`
	BookingCode       string    `json:"bookingCode"`
	UserID            int       `json:"userID"`
	CarID             int       `json:"carID"`
	PickupLocationID  int       `json:"pickupLocationID"`
	DropOffLocationID int       `json:"dropOffLocationID"`
	StartDate         time.Time `json:"startDate"`
	EndDate           time.Time `json:"endDate"`
	BookingStatus     string    `json:"bookingStatus"`
	RentalDays        int       `json:"rentalDays"`
	Subtotal          float64   `json:"subtotal"`
	TaxAmount         float64   `json:"taxAmount"`
	DiscountAmount    float64   `json:"discountAmount"`
	TotalAmount       float64   `json:"totalAmount"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type BookingsList struct {
	Total    int               `json:"total"`
	Bookings []BookingResponse `json:"bookings"`
}
