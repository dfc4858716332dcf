package db

import "time"

// Booking statuses. PENDING through ACTIVE occupy the car for
// availability purposes; CANCELLED and DECLINED free it.
const (
	BookingPending   = "PENDING"
	BookingConfirmed = "CONFIRMED"
	BookingBooked    = "BOOKED"
	BookingActive    = "ACTIVE"
	BookingCompleted = "COMPLETED"
	BookingCancelled = "CANCELLED"
	BookingDeclined  = "DECLINED"
)

// Payment statuses.
const (
	PaymentPending  = "PENDING"
	PaymentPaid     = "PAID"
	PaymentFailed   = "FAILED"
	PaymentRefunded = "REFUNDED"
)

// Invoice statuses.
const (
	InvoiceIssued = "ISSUED"
	InvoicePaid   = "PAID"
	InvoiceClosed = "CLOSED"
)

// Car statuses. Car.Status is a derived cache of current occupancy;
// the authoritative source is the set of non-cancelled bookings.
const (
	CarAvailable    = "AVAILABLE"
	CarRented       = "RENTED"
	CarMaintenance  = "MAINTENANCE"
	CarOutOfService = "OUT_OF_SERVICE"
	CarReserved     = "RESERVED"
)

type Car struct {
	ID           int
	CarTypeID    int
	Brand        string
	Model        string
	Year         int
	VIN          string
	LicensePlate string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type CarType struct {
	ID           int
	Category     string
	FuelType     string
	Transmission string
	Seats        int
}

type Location struct {
	ID      int
	Name    string
	Address string
	City    string
}

type PricingRule struct {
	ID                 int
	CarTypeID          int
	BaseDailyRate      float64
	WeeklyRate         *float64
	MonthlyRate        *float64
	WeekendRate        *float64
	SeasonalMultiplier float64
	ValidFrom          time.Time
	ValidTo            time.Time
	Active             bool
}

type Booking struct {
	ID                int
	Code              string
	UserID            int
	CarID             int
	PickupLocationID  int
	DropOffLocationID int
	StartDate         time.Time
	EndDate           time.Time
	Status            string
	RentalDays        int
	Subtotal          float64
	TaxAmount         float64
	DiscountAmount    float64
	TotalAmount       float64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Payment struct {
	ID         int
	BookingID  int
	Amount     float64
	Method     string
	Status     string
	GatewayRef string
	FailReason string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Invoice struct {
	ID             int
	BookingID      int
	PaymentID      int
	SubTotal       float64
	TaxAmount      float64
	DiscountAmount float64
	TotalAmount    float64
	Status         string
	IssueDate      time.Time
	DueDate        time.Time
}

type AdminUser struct {
	ID           int
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
