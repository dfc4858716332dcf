package entities

import "time"

type InvoiceResponse struct {
	InvoiceID      int       `json:"invoiceID"`
	BookingID      int       `json:"bookingID"`
	PaymentID      int       `json:"paymentID"`
	SubTotal       float64   `json:"subTotal"`
	TaxAmount      float64   `json:"taxAmount"`
	DiscountAmount float64   `json:"discountAmount"`
	TotalAmount    float64   `json:"totalAmount"`
	Status         string    `json:"status"`
	IssueDate      time.Time `json:"issueDate"`
	DueDate        time.Time `json:"dueDate"`
}
