package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"rentacar/internal/entities"
	"rentacar/internal/service"
)

type StripeWebhookHandler struct {
	StripeSecret string
	payments     *service.PaymentService
}

func NewStripeWebhookHandler(stripeSecret string, payments *service.PaymentService) *StripeWebhookHandler {
	return &StripeWebhookHandler{
		StripeSecret: stripeSecret,
		payments:     payments,
	}
}

func (h *StripeWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	const maxBodyBytes = int64(65536)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("Error reading body: %v", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEvent(payload, sigHeader, h.StripeSecret)
	if err != nil {
		log.Printf("Webhook signature verification failed: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			log.Printf("Error parsing checkout.session: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		bookingID, err := strconv.Atoi(sess.Metadata["bookingID"])
		if err != nil {
			log.Printf("No bookingID metadata in checkout.session.completed")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		reference := sess.ID
		if sess.PaymentIntent != nil && sess.PaymentIntent.ID != "" {
			reference = sess.PaymentIntent.ID
		}
		_, err = h.payments.Settle(r.Context(), entities.SettlePaymentRequest{
			BookingID: bookingID,
			Amount:    float64(sess.AmountTotal) / 100,
			Method:    "card",
			Reference: reference,
		})
		if err != nil {
			// The charge has already happened; log and acknowledge so
			// Stripe stops retrying, support follow-up happens via the
			// flagged payment record.
			log.Printf("Settlement reconciliation failed for booking %d: %v", bookingID, err)
		}

	case "charge.refunded":
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			log.Printf("Error parsing charge: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if charge.PaymentIntent != nil && charge.PaymentIntent.ID != "" {
			if err := h.payments.ReconcileGatewayRefund(r.Context(), charge.PaymentIntent.ID); err != nil {
				log.Printf("Refund reconciliation failed for intent %s: %v", charge.PaymentIntent.ID, err)
			}
		}
	default:
		log.Printf("Unhandled event type: %s", event.Type)
	}

	w.WriteHeader(http.StatusOK)
}
