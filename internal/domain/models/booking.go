package models

import "time"

const (
	BookingPending   = "PENDING"
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
)

// Booking is a passenger's claim on seats of a ride. Status moves
// PENDING -> CONFIRMED only after payment settles; every compensation
// path lands on CANCELLED and gives the seats back.
type Booking struct {
	ID             int64     `json:"id"`
	RideID         int64     `json:"ride_id"`
	PassengerID    int64     `json:"passenger_id"`
	Seats          int       `json:"seats"`
	Status         string    `json:"status"`
	PickupLat      float64   `json:"pickup_lat"`
	PickupLng      float64   `json:"pickup_lng"`
	DropoffLat     float64   `json:"dropoff_lat"`
	DropoffLng     float64   `json:"dropoff_lng"`
	IdempotencyKey string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
