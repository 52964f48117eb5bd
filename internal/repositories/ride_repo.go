package repositories

import (
	"database/sql"
	"errors"

	intconfig "ridepool/internal/config"
	"ridepool/internal/domain"
	"ridepool/internal/domain/models"
)

type RideRepo struct {
	DB *sql.DB
}

func (r RideRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const rideColumns = `id, driver_id, vehicle_id, origin_lat, origin_lng,
		destination_lat, destination_lng, departure_time, total_seats,
		reserved_seats, price_per_seat, currency, status, created_at`

func scanRide(row *sql.Row) (models.Ride, error) {
	var ride models.Ride
	err := row.Scan(
		&ride.ID,
		&ride.DriverID,
		&ride.VehicleID,
		&ride.OriginLat,
		&ride.OriginLng,
		&ride.DestinationLat,
		&ride.DestinationLng,
		&ride.DepartureTime,
		&ride.TotalSeats,
		&ride.ReservedSeats,
		&ride.PricePerSeat,
		&ride.Currency,
		&ride.Status,
		&ride.CreatedAt,
	)
	return ride, err
}

func (r RideRepo) CreateRide(ride models.Ride) (int64, error) {
	res, err := r.db().Exec(`
		INSERT INTO rides
		(driver_id, vehicle_id, origin_lat, origin_lng, destination_lat, destination_lng,
		 departure_time, total_seats, reserved_seats, price_per_seat, currency, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, NOW())`,
		ride.DriverID,
		ride.VehicleID,
		ride.OriginLat,
		ride.OriginLng,
		ride.DestinationLat,
		ride.DestinationLng,
		ride.DepartureTime,
		ride.TotalSeats,
		ride.PricePerSeat,
		ride.Currency,
		models.RideScheduled,
	)
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}
	return id, nil
}

func (r RideRepo) GetRideByID(id int64) (models.Ride, error) {
	if id <= 0 {
		return models.Ride{}, domain.ValidationError{Field: "ride_id", Msg: "invalid id"}
	}
	ride, err := scanRide(r.db().QueryRow(`SELECT `+rideColumns+` FROM rides WHERE id=? LIMIT 1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Ride{}, domain.NotFoundError{Resource: "ride"}
		}
		return models.Ride{}, domain.InternalError{Err: err}
	}
	return ride, nil
}

func (r RideRepo) ListRides(limit, offset int) ([]models.Ride, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db().Query(`SELECT `+rideColumns+` FROM rides ORDER BY departure_time LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	defer rows.Close()

	out := []models.Ride{}
	for rows.Next() {
		var ride models.Ride
		if err := rows.Scan(
			&ride.ID,
			&ride.DriverID,
			&ride.VehicleID,
			&ride.OriginLat,
			&ride.OriginLng,
			&ride.DestinationLat,
			&ride.DestinationLng,
			&ride.DepartureTime,
			&ride.TotalSeats,
			&ride.ReservedSeats,
			&ride.PricePerSeat,
			&ride.Currency,
			&ride.Status,
			&ride.CreatedAt,
		); err != nil {
			return nil, domain.InternalError{Err: err}
		}
		out = append(out, ride)
	}
	return out, rows.Err()
}

// UpdateRide performs PATCH-style updates based on key presence.
func (r RideRepo) UpdateRide(id int64, upd models.RideUpdate) error {
	if id <= 0 {
		return domain.ValidationError{Field: "ride_id", Msg: "invalid id"}
	}
	sets := []string{}
	args := []any{}
	if upd.DepartureTime != nil {
		sets = append(sets, "departure_time=?")
		args = append(args, *upd.DepartureTime)
	}
	if upd.PricePerSeat != nil {
		sets = append(sets, "price_per_seat=?")
		args = append(args, *upd.PricePerSeat)
	}
	if upd.Status != nil {
		sets = append(sets, "status=?")
		args = append(args, *upd.Status)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.db().Exec(`UPDATE rides SET `+joinSets(sets)+` WHERE id=?`, args...)
	if err != nil {
		return domain.InternalError{Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundError{Resource: "ride"}
	}
	return nil
}

// DeleteRide refuses while seats are held so bookings can't dangle.
func (r RideRepo) DeleteRide(id int64) error {
	if id <= 0 {
		return domain.ValidationError{Field: "ride_id", Msg: "invalid id"}
	}
	var reserved int
	err := r.db().QueryRow(`SELECT reserved_seats FROM rides WHERE id=? LIMIT 1`, id).Scan(&reserved)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFoundError{Resource: "ride"}
		}
		return domain.InternalError{Err: err}
	}
	if reserved > 0 {
		return domain.ConflictError{Resource: "ride", Msg: "active bookings hold seats"}
	}
	if _, err := r.db().Exec(`DELETE FROM rides WHERE id=?`, id); err != nil {
		return domain.InternalError{Err: err}
	}
	return nil
}
