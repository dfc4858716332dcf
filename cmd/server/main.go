package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/stripe/stripe-go/v82"

	"rentacar/internal/api"
	"rentacar/internal/auth"
	"rentacar/internal/config"
	"rentacar/internal/repository"
	"rentacar/internal/service"
)

func main() {
	godotenv.Load()
	cfg := config.Load()

	database, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := database.Ping(); err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}

	stripe.Key = cfg.StripeAPIKey

	bookingRepo := repository.NewBookingRepository(database)
	paymentRepo := repository.NewPaymentRepository(database)
	invoiceRepo := repository.NewInvoiceRepository(database)
	pricingRepo := repository.NewPricingRuleRepository(database)
	refRepo := repository.NewReferenceRepository(database)
	jobRepo := repository.NewJobRepository(database)
	adminAuthRepo := repository.NewAdminAuthRepository(database)

	publisher := service.NewRabbitPublisher(cfg.AMQPURL)
	sender := service.NewSenderService(refRepo)
	pricingSvc := service.NewPricingService(pricingRepo)
	bookingSvc := service.NewBookingService(bookingRepo, refRepo, pricingSvc, publisher, sender, cfg.TaxRate)
	invoiceSvc := service.NewInvoiceService(invoiceRepo, cfg.TaxRate, cfg.InvoiceDueDays)
	stripeSvc := service.NewStripeService(
		os.Getenv("STRIPE_SUCCESS_URL"),
		os.Getenv("STRIPE_CANCEL_URL"),
	)
	paymentSvc := service.NewPaymentService(paymentRepo, bookingSvc, invoiceSvc, stripeSvc, publisher, sender, cfg.AmountTolerance, cfg.SettledStatus)
	jobSvc := service.NewJobService(jobRepo, publisher, refRepo)
	adminAuthSvc := service.NewAdminAuthService(adminAuthRepo, cfg.JWTSecret)

	bookingHandler := api.NewBookingHandler(bookingSvc, pricingSvc, stripeSvc, refRepo)
	paymentHandler := api.NewPaymentHandler(paymentSvc)
	adminHandler := api.NewAdminHandler(bookingSvc, paymentSvc, invoiceSvc, pricingRepo, refRepo)
	adminAuthHandler := api.NewAdminAuthHandler(adminAuthSvc)
	stripeHandler := api.NewStripeWebhookHandler(cfg.StripeWebhookSecret, paymentSvc)

	r := mux.NewRouter()

	// Public endpoints
	r.HandleFunc("/api/availability", bookingHandler.CheckAvailability).Methods("POST")
	r.HandleFunc("/api/quotes", bookingHandler.GetQuote).Methods("POST")
	r.HandleFunc("/api/bookings", bookingHandler.CreateBooking).Methods("POST")
	r.HandleFunc("/api/bookings/code/{code}", bookingHandler.GetBookingByCode).Methods("GET")
	r.HandleFunc("/api/bookings/{id}", bookingHandler.GetBooking).Methods("GET")
	r.HandleFunc("/api/bookings/{id}/dates", bookingHandler.UpdateDates).Methods("PUT")
	r.HandleFunc("/api/bookings/{id}", bookingHandler.CancelBooking).Methods("DELETE")
	r.HandleFunc("/api/bookings/{id}/checkout", bookingHandler.CreateCheckoutSession).Methods("POST")

	// Gateway callbacks
	r.HandleFunc("/api/payments/webhook", paymentHandler.SettlePayment).Methods("POST")
	r.HandleFunc("/api/stripe/webhook", stripeHandler.HandleWebhook).Methods("POST")

	// Admin endpoints (protected)
	r.HandleFunc("/admin/login", adminAuthHandler.Login).Methods("POST")
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(auth.AdminAuthMiddleware(cfg.JWTSecret))
	admin.HandleFunc("/register", adminAuthHandler.CreateAdmin).Methods("POST")
	admin.HandleFunc("/bookings", adminHandler.ListBookings).Methods("GET")
	admin.HandleFunc("/bookings/{id}/status", adminHandler.TransitionBooking).Methods("PUT")
	admin.HandleFunc("/bookings/{id}/dates", bookingHandler.UpdateDates).Methods("PUT")
	admin.HandleFunc("/bookings/{id}", adminHandler.DeleteBooking).Methods("DELETE")
	admin.HandleFunc("/bookings/{id}/refund", adminHandler.RefundBooking).Methods("POST")
	admin.HandleFunc("/bookings/{id}/payments", adminHandler.ListBookingPayments).Methods("GET")
	admin.HandleFunc("/bookings/{id}/payments/failed", paymentHandler.MarkFailed).Methods("POST")
	admin.HandleFunc("/bookings/{id}/invoices", adminHandler.ListBookingInvoices).Methods("GET")
	admin.HandleFunc("/invoices/{id}", adminHandler.GetInvoice).Methods("GET")
	admin.HandleFunc("/invoices/{id}/status", adminHandler.SetInvoiceStatus).Methods("PUT")
	admin.HandleFunc("/pricing-rules", adminHandler.CreatePricingRule).Methods("POST")
	admin.HandleFunc("/pricing-rules/{id}", adminHandler.DeactivatePricingRule).Methods("DELETE")
	admin.HandleFunc("/car-types/{carTypeID}/pricing-rules", adminHandler.ListPricingRules).Methods("GET")
	admin.HandleFunc("/cars/{id}/status", adminHandler.SetCarStatus).Methods("PUT")

	c := cron.New()
	c.AddFunc("@every 5m", func() {
		ctx := context.Background()
		if err := jobSvc.ActivateDueBookings(ctx); err != nil {
			log.Printf("Cron error: %v", err)
		}
		if err := jobSvc.CompleteFinishedBookings(ctx); err != nil {
			log.Printf("Cron error: %v", err)
		}
		if err := jobSvc.DeclineStalePending(ctx, time.Duration(cfg.PendingTTLHours)*time.Hour); err != nil {
			log.Printf("Cron error: %v", err)
		}
	})
	c.Start()
	defer c.Stop()

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{getEnv("CORS_ORIGIN", "*")}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	log.Printf("Server running on port %s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, handlers.LoggingHandler(os.Stdout, cors(r))))
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
