package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"rentacar/internal/entities"
	apperrors "rentacar/internal/errors"
	"rentacar/internal/repository"
	"rentacar/internal/service"
)

type BookingHandler struct {
	Bookings *service.BookingService
	Pricing  *service.PricingService
	Stripe   *service.StripeService
	Refs     *repository.ReferenceRepository
	validate *validator.Validate
}

func NewBookingHandler(bookings *service.BookingService, pricing *service.PricingService, stripeSvc *service.StripeService, refs *repository.ReferenceRepository) *BookingHandler {
	return &BookingHandler{
		Bookings: bookings,
		Pricing:  pricing,
		Stripe:   stripeSvc,
		Refs:     refs,
		validate: validator.New(),
	}
}

func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req entities.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	booking, err := h.Bookings.Create(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingResponse(booking))
}

func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	booking, err := h.Bookings.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(booking))
}

// GetBookingByCode serves the customer-facing lookup: the code is what
// the confirmation email carries, not the numeric ID.
func (h *BookingHandler) GetBookingByCode(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	booking, err := h.Bookings.GetByCode(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(booking))
}

func (h *BookingHandler) UpdateDates(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	var req entities.UpdateDatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	booking, err := h.Bookings.UpdateDates(r.Context(), id, req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(booking))
}

func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	booking, err := h.Bookings.Cancel(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(booking))
}

func (h *BookingHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req entities.AvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp, err := h.Bookings.CheckAvailability(r.Context(), req.CarID, req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	var req entities.QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := h.Refs.GetCarType(r.Context(), req.CarTypeID); err != nil {
		writeError(w, apperrors.NewHTTPError(http.StatusNotFound, "car type not found"))
		return
	}
	quote, err := h.Pricing.Quote(r.Context(), req.CarTypeID, req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// CreateCheckoutSession opens a Stripe Checkout session for a pending
// booking and returns the payment URL to redirect the customer to.
func (h *BookingHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	booking, err := h.Bookings.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	_, email, _, err := h.Refs.GetUserContact(r.Context(), booking.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	url, sessionID, err := h.Stripe.CreateCheckoutSession(booking, email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"bookingCode": booking.Code,
		"url":         url,
		"sessionID":   sessionID,
	})
}
