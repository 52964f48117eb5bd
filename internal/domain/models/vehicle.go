package models

import "time"

type Vehicle struct {
	ID           int64     `json:"id"`
	OwnerID      int64     `json:"owner_id"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	Year         int       `json:"year"`
	Color        string    `json:"color"`
	LicensePlate string    `json:"license_plate"`
	Capacity     int       `json:"capacity"`
	CreatedAt    time.Time `json:"created_at"`
}

type VehicleUpdate struct {
	Make     *string
	Model    *string
	Year     *int
	Color    *string
	Capacity *int
}
