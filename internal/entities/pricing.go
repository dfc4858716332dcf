package entities

import "time"

type QuoteRequest struct {
	CarTypeID int       `json:"carTypeID" validate:"required,gt=0"`
	StartDate time.Time `json:"startDate" validate:"required"`
	EndDate   time.Time `json:"endDate" validate:"required"`
}

// Quote is the result of resolving a pricing rule for a car type and
// rental window. Subtotal includes the seasonal multiplier but no tax;
// tax is applied when the booking is created.
type Quote struct {
	CarTypeID  int     `json:"carTypeID"`
	DailyRate  float64 `json:"dailyRate"`
	RentalDays int     `json:"rentalDays"`
	Subtotal   float64 `json:"subtotal"`
}
