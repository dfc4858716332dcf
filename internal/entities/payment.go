package entities

import "time"

// SettlePaymentRequest mirrors the gateway webhook payload the
// reconciler consumes: {reference, bookingID, amount, status}.
type SettlePaymentRequest struct {
	BookingID int     `json:"bookingID" validate:"required,gt=0"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Method    string  `json:"paymentMethod" validate:"required"`
	Reference string  `json:"reference" validate:"required"`
}

type PaymentResponse struct {
	PaymentID     int       `json:"paymentID"`
	BookingID     int       `json:"bookingID"`
	Amount        float64   `json:"amount"`
	PaymentMethod string    `json:"paymentMethod"`
	PaymentStatus string    `json:"paymentStatus"`
	Reference     string    `json:"reference"`
	CreatedAt     time.Time `json:"createdAt"`
}
