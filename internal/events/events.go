// Package events defines the domain-event payloads published to the
// message broker after booking state transitions. Downstream consumers
// (the notification dispatcher, analytics) act on these without
// querying the primary database.
package events

const (
	BookingCreated   = "booking.created"
	BookingCancelled = "booking.cancelled"
	BookingUpdated   = "booking.updated"
	PaymentSettled   = "payment.settled"
	PaymentRefunded  = "payment.refunded"
	PaymentFlagged   = "payment.flagged"
)

// BookingEvent is emitted after every booking or payment state
// transition: {type, userID, bookingID, status}.
type BookingEvent struct {
	Type       string `json:"type"`
	UserID     int    `json:"userID"`
	BookingID  int    `json:"bookingID"`
	Status     string `json:"status"`
	OccurredAt string `json:"occurredAt"`
}
