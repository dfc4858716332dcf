package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"rentacar/internal/entities"
	"rentacar/internal/service"
)

// PaymentHandler exposes the generic gateway callback contract
// {reference, bookingID, amount, status} for gateways that post plain
// JSON instead of signed Stripe events.
type PaymentHandler struct {
	Payments *service.PaymentService
	validate *validator.Validate
}

func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{Payments: payments, validate: validator.New()}
}

func (h *PaymentHandler) SettlePayment(w http.ResponseWriter, r *http.Request) {
	var req entities.SettlePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	payment, err := h.Payments.Settle(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(payment))
}

func (h *PaymentHandler) MarkFailed(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	payment, err := h.Payments.MarkFailed(r.Context(), id, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(payment))
}
