package services

import (
	"bytes"
	"fmt"
	"time"

	"ridepool/internal/domain"
	"ridepool/internal/domain/models"
	"ridepool/internal/repositories"
	"ridepool/internal/utils"

	"github.com/phpdave11/gofpdf"
)

// ReceiptService renders a PDF receipt for a confirmed booking.
type ReceiptService struct {
	BookingRepo repositories.BookingRepo
	PaymentRepo repositories.PaymentRepo
	RideRepo    repositories.RideRepo
	UserRepo    repositories.UserRepo
	RequestID   string
}

type receiptData struct {
	Booking   models.Booking
	Payment   models.Payment
	Ride      models.Ride
	Passenger models.User
}

func (s ReceiptService) GenerateReceipt(bookingID int64) ([]byte, string, error) {
	booking, err := s.BookingRepo.GetBookingByID(bookingID)
	if err != nil {
		return nil, "", err
	}
	if booking.Status != models.BookingConfirmed {
		return nil, "", domain.ConflictError{Resource: "booking", Msg: "receipt available only for confirmed bookings"}
	}
	payment, err := s.PaymentRepo.GetByBookingID(bookingID)
	if err != nil {
		return nil, "", err
	}
	ride, err := s.RideRepo.GetRideByID(booking.RideID)
	if err != nil {
		return nil, "", err
	}
	passenger, err := s.UserRepo.GetUserByID(booking.PassengerID)
	if err != nil {
		return nil, "", err
	}

	utils.LogEvent(s.RequestID, "receipt", "generate", fmt.Sprintf("booking_id=%d", bookingID))
	return buildReceiptPDF(receiptData{Booking: booking, Payment: payment, Ride: ride, Passenger: passenger})
}

func buildReceiptPDF(d receiptData) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Booking Receipt", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "BOOKING RECEIPT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Receipt No  : RCP-%d", d.Booking.ID),
		"Date        : " + time.Now().Format("2006-01-02 15:04"),
		"Passenger   : " + d.Passenger.FullName,
		fmt.Sprintf("Ride        : #%d, departs %s", d.Ride.ID, utils.FormatDateTime(d.Ride.DepartureTime)),
		fmt.Sprintf("Seats       : %d", d.Booking.Seats),
		fmt.Sprintf("Amount      : %s %s", d.Payment.Currency, utils.FormatAmount(d.Payment.Amount)),
		"Method      : " + d.Payment.Method,
		"Reference   : " + d.Payment.ProviderRef,
		"Status      : " + d.Payment.Status,
	}
	for _, line := range lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Show this receipt to the driver at pickup. Seats are held under the booking reference above.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", domain.InternalError{Msg: "failed to render receipt", Err: err}
	}
	return buf.Bytes(), fmt.Sprintf("receipt-%d.pdf", d.Booking.ID), nil
}
