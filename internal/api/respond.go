package api

import (
	"encoding/json"
	"log"
	"net/http"

	"rentacar/internal/db"
	"rentacar/internal/entities"
	apperrors "rentacar/internal/errors"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// writeError maps a domain error to its HTTP status and a specific,
// user-presentable message. Internal errors are logged and masked.
func writeError(w http.ResponseWriter, err error) {
	status := apperrors.StatusCode(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("Internal error: %v", err)
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func toBookingResponse(b *db.Booking) entities.BookingResponse {
	return entities.BookingResponse{
		BookingID:         b.ID,
		BookingCode:       b.Code,
		UserID:            b.UserID,
		CarID:             b.CarID,
		PickupLocationID:  b.PickupLocationID,
		DropOffLocationID: b.DropOffLocationID,
		StartDate:         b.StartDate,
		EndDate:           b.EndDate,
		BookingStatus:     b.Status,
		RentalDays:        b.RentalDays,
		Subtotal:          b.Subtotal,
		TaxAmount:         b.TaxAmount,
		DiscountAmount:    b.DiscountAmount,
		TotalAmount:       b.TotalAmount,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
}

func toPaymentResponse(p *db.Payment) entities.PaymentResponse {
	return entities.PaymentResponse{
		PaymentID:     p.ID,
		BookingID:     p.BookingID,
		Amount:        p.Amount,
		PaymentMethod: p.Method,
		PaymentStatus: p.Status,
		Reference:     p.GatewayRef,
		CreatedAt:     p.CreatedAt,
	}
}

func toInvoiceResponse(inv *db.Invoice) entities.InvoiceResponse {
	return entities.InvoiceResponse{
		InvoiceID:      inv.ID,
		BookingID:      inv.BookingID,
		PaymentID:      inv.PaymentID,
		SubTotal:       inv.SubTotal,
		TaxAmount:      inv.TaxAmount,
		DiscountAmount: inv.DiscountAmount,
		TotalAmount:    inv.TotalAmount,
		Status:         inv.Status,
		IssueDate:      inv.IssueDate,
		DueDate:        inv.DueDate,
	}
}
