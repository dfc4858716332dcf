package entities

// BookingEmailData feeds the notification templates for booking
// lifecycle emails.
type BookingEmailData struct {
	UserName           string
	BookingCode        string
	CarLabel           string
	StartDateFormatted string
	EndDateFormatted   string
	TotalAmount        float64
	Status             string
	CurrentYear        int
}
