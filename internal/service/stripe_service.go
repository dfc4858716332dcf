package service

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/refund"

	"rentacar/internal/db"
)

// StripeService wraps the gateway calls the core depends on: creating
// a checkout session for a pending booking and refunding a settled
// payment intent.
type StripeService struct {
	successURL string
	cancelURL  string
}

func NewStripeService(successURL, cancelURL string) *StripeService {
	return &StripeService{successURL: successURL, cancelURL: cancelURL}
}

// amountToCents converts a euro amount to the integer cents Stripe
// expects. Rounds to the nearest cent; plain truncation drops a cent
// on amounts like 1380.07 whose float form sits just under the cent
// boundary.
func amountToCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

// CreateCheckoutSession opens a Stripe Checkout session for the
// booking's total. The booking ID travels in the session metadata so
// the webhook can reconcile the settlement.
func (s *StripeService) CreateCheckoutSession(booking *db.Booking, customerEmail string) (url, sessionID string, err error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String("eur"),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Car rental " + booking.Code),
					},
					UnitAmount: stripe.Int64(amountToCents(booking.TotalAmount)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(s.successURL),
		CancelURL:     stripe.String(s.cancelURL),
		CustomerEmail: stripe.String(customerEmail),
	}
	params.AddMetadata("bookingID", strconv.Itoa(booking.ID))

	sess, err := session.New(params)
	if err != nil {
		return "", "", err
	}
	return sess.URL, sess.ID, nil
}

// RefundPayment refunds the charge behind a payment intent.
func (s *StripeService) RefundPayment(ctx context.Context, gatewayRef string) error {
	if gatewayRef == "" {
		return fmt.Errorf("no payment intent reference to refund")
	}
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(gatewayRef),
	}
	params.Context = ctx
	_, err := refund.New(params)
	return err
}
