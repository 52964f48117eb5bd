package models

import "time"

const (
	PaymentPending  = "PENDING"
	PaymentPaid     = "PAID"
	PaymentFailed   = "FAILED"
	PaymentRefunded = "REFUNDED"
)

// Payment records the passenger-side charge for a booking, one-to-one
// with the booking. Amounts are in minor units.
type Payment struct {
	ID          int64     `json:"id"`
	BookingID   int64     `json:"booking_id"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency"`
	Method      string    `json:"method"`
	PayerMSISDN string    `json:"-"`
	ProviderRef string    `json:"provider_ref"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Payout records the driver-side transfer tied to a booking. Kept as a
// distinct row from Payment so the two legs never share status or
// provider refs.
type Payout struct {
	ID          int64     `json:"id"`
	BookingID   int64     `json:"booking_id"`
	DriverID    int64     `json:"driver_id"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency"`
	Method      string    `json:"method"`
	ProviderRef string    `json:"provider_ref"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
