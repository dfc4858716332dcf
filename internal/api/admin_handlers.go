package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"rentacar/internal/db"
	"rentacar/internal/entities"
	"rentacar/internal/repository"
	"rentacar/internal/service"
)

type AdminHandler struct {
	Bookings *service.BookingService
	Payments *service.PaymentService
	Invoices *service.InvoiceService
	Pricing  *repository.PricingRuleRepository
	Refs     *repository.ReferenceRepository
}

func NewAdminHandler(bookings *service.BookingService, payments *service.PaymentService, invoices *service.InvoiceService, pricing *repository.PricingRuleRepository, refs *repository.ReferenceRepository) *AdminHandler {
	return &AdminHandler{
		Bookings: bookings,
		Payments: payments,
		Invoices: invoices,
		Pricing:  pricing,
		Refs:     refs,
	}
}

func (h *AdminHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	status := r.URL.Query().Get("status")
	carID, _ := strconv.Atoi(r.URL.Query().Get("carID"))

	bookings, err := h.Bookings.List(r.Context(), date, status, carID)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	list := entities.BookingsList{Total: len(bookings)}
	for i := range bookings {
		list.Bookings = append(list.Bookings, toBookingResponse(&bookings[i]))
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AdminHandler) TransitionBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	var req entities.TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	booking, err := h.Bookings.TransitionStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(booking))
}

func (h *AdminHandler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	if err := h.Bookings.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Booking deleted"})
}

func (h *AdminHandler) RefundBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	payment, err := h.Payments.Refund(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(payment))
}

func (h *AdminHandler) ListBookingPayments(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	payments, err := h.Payments.ListByBooking(r.Context(), id)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	resp := make([]entities.PaymentResponse, 0, len(payments))
	for i := range payments {
		resp = append(resp, toPaymentResponse(&payments[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AdminHandler) ListBookingInvoices(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	invoices, err := h.Invoices.ListByBooking(r.Context(), id)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	resp := make([]entities.InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		resp = append(resp, toInvoiceResponse(&invoices[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AdminHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	invoice, err := h.Invoices.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Invoice not found", http.StatusNotFound)
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceResponse(invoice))
}

// SetInvoiceStatus applies an administrative correction, e.g. closing
// an invoice after a refund.
func (h *AdminHandler) SetInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.Invoices.SetStatus(r.Context(), id, req.Status); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Invoice status updated"})
}

func (h *AdminHandler) CreatePricingRule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CarTypeID          int      `json:"carTypeID"`
		BaseDailyRate      float64  `json:"baseDailyRate"`
		WeeklyRate         *float64 `json:"weeklyRate"`
		MonthlyRate        *float64 `json:"monthlyRate"`
		WeekendRate        *float64 `json:"weekendRate"`
		SeasonalMultiplier float64  `json:"seasonalMultiplier"`
		ValidFrom          string   `json:"validFrom"`
		ValidTo            string   `json:"validTo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	validFrom, err := time.Parse("2006-01-02", req.ValidFrom)
	if err != nil {
		http.Error(w, "Invalid validFrom date", http.StatusBadRequest)
		return
	}
	validTo, err := time.Parse("2006-01-02", req.ValidTo)
	if err != nil {
		http.Error(w, "Invalid validTo date", http.StatusBadRequest)
		return
	}
	if req.SeasonalMultiplier <= 0 {
		req.SeasonalMultiplier = 1.0
	}
	rule := &db.PricingRule{
		CarTypeID:          req.CarTypeID,
		BaseDailyRate:      req.BaseDailyRate,
		WeeklyRate:         req.WeeklyRate,
		MonthlyRate:        req.MonthlyRate,
		WeekendRate:        req.WeekendRate,
		SeasonalMultiplier: req.SeasonalMultiplier,
		ValidFrom:          validFrom,
		ValidTo:            validTo,
		Active:             true,
	}
	if err := h.Pricing.Insert(r.Context(), rule); err != nil {
		http.Error(w, "Could not create pricing rule", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"pricingRuleID": rule.ID})
}

func (h *AdminHandler) DeactivatePricingRule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	if err := h.Pricing.Deactivate(r.Context(), id); err != nil {
		http.Error(w, "Could not deactivate pricing rule", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Pricing rule deactivated"})
}

func (h *AdminHandler) ListPricingRules(w http.ResponseWriter, r *http.Request) {
	carTypeID, err := strconv.Atoi(mux.Vars(r)["carTypeID"])
	if err != nil {
		http.Error(w, "Invalid car type ID", http.StatusBadRequest)
		return
	}
	rules, err := h.Pricing.ListByCarType(r.Context(), carTypeID)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

// SetCarStatus moves a car in or out of maintenance / out-of-service.
func (h *AdminHandler) SetCarStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	switch req.Status {
	case db.CarAvailable, db.CarMaintenance, db.CarOutOfService:
	default:
		http.Error(w, "Invalid car status", http.StatusBadRequest)
		return
	}
	if err := h.Refs.SetCarServiceStatus(r.Context(), id, req.Status); err != nil {
		http.Error(w, "Could not update car status", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Car status updated"})
}
