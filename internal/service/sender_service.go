package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"rentacar/internal/db"
	"rentacar/internal/entities"
)

// ContactSource resolves the contact details for a booking's user.
type ContactSource interface {
	GetCar(ctx context.Context, id int) (*db.Car, error)
	GetUserContact(ctx context.Context, userID int) (name, email, phone string, err error)
}

// SenderService turns booking transitions into customer email and SMS
// notifications. Sends run asynchronously; a delivery failure never
// fails the booking operation that triggered it.
type SenderService struct {
	contacts ContactSource
}

func NewSenderService(contacts ContactSource) *SenderService {
	return &SenderService{contacts: contacts}
}

func (s *SenderService) NotifyBookingStatus(ctx context.Context, booking *db.Booking, status string) {
	name, email, phone, err := s.contacts.GetUserContact(ctx, booking.UserID)
	if err != nil {
		log.Printf("Could not load contact info for user %d (booking %s): %v", booking.UserID, booking.Code, err)
		return
	}

	carLabel := fmt.Sprintf("car #%d", booking.CarID)
	if car, err := s.contacts.GetCar(ctx, booking.CarID); err == nil {
		carLabel = fmt.Sprintf("%s %s (%s)", car.Brand, car.Model, car.LicensePlate)
	}

	data := entities.BookingEmailData{
		UserName:           name,
		BookingCode:        booking.Code,
		CarLabel:           carLabel,
		StartDateFormatted: booking.StartDate.Format("02 Jan 2006"),
		EndDateFormatted:   booking.EndDate.Format("02 Jan 2006"),
		TotalAmount:        booking.TotalAmount,
		Status:             status,
		CurrentYear:        time.Now().Year(),
	}

	subject := fmt.Sprintf("Your RentACar booking is %s - Code: %s", data.Status, data.BookingCode)
	body := fmt.Sprintf(
		"Hello %s,\n\nYour booking at RentACar is %s.\n\n"+
			"Booking details:\n"+
			"Booking code: %s\n"+
			"Vehicle: %s\n"+
			"Pickup: %s\n"+
			"Drop-off: %s\n"+
			"Total: %.2f\n\n"+
			"Thank you for choosing RentACar.\n\n"+
			"RentACar %d. All rights reserved.",
		data.UserName, data.Status, data.BookingCode, data.CarLabel,
		data.StartDateFormatted, data.EndDateFormatted, data.TotalAmount, data.CurrentYear,
	)

	go func() {
		if err := SendEmailWithSendGrid(email, name, subject, body, body); err != nil {
			log.Printf("ALERT (async): email for booking %s failed: %v", data.BookingCode, err)
		}
	}()

	if phone != "" {
		sms := fmt.Sprintf("RentACar: booking %s is %s!\nPickup: %s.\nMore details in your email.",
			data.BookingCode, data.Status, data.StartDateFormatted)
		if err := SendSMS(phone, sms); err != nil {
			log.Printf("ALERT: booking %s notification SMS to %s failed: %v", data.BookingCode, phone, err)
		}
	}
}
