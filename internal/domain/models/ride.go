package models

import "time"

const (
	RideScheduled  = "SCHEDULED"
	RideInProgress = "IN_PROGRESS"
	RideCompleted  = "COMPLETED"
	RideCancelled  = "CANCELLED"
)

// Ride is a driver-offered trip. ReservedSeats is owned exclusively by
// the capacity ledger; nothing else writes it.
type Ride struct {
	ID             int64     `json:"id"`
	DriverID       int64     `json:"driver_id"`
	VehicleID      int64     `json:"vehicle_id"`
	OriginLat      float64   `json:"origin_lat"`
	OriginLng      float64   `json:"origin_lng"`
	DestinationLat float64   `json:"destination_lat"`
	DestinationLng float64   `json:"destination_lng"`
	DepartureTime  time.Time `json:"departure_time"`
	TotalSeats     int       `json:"total_seats"`
	ReservedSeats  int       `json:"reserved_seats"`
	PricePerSeat   int64     `json:"price_per_seat"` // minor units
	Currency       string    `json:"currency"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// SeatsAvailable never goes negative even if the row is mid-repair.
func (r Ride) SeatsAvailable() int {
	avail := r.TotalSeats - r.ReservedSeats
	if avail < 0 {
		return 0
	}
	return avail
}

// RideUpdate supports PATCH-style updates via key presence.
type RideUpdate struct {
	DepartureTime *time.Time
	PricePerSeat  *int64
	Status        *string
}
