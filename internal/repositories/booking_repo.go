package repositories

import (
	"database/sql"
	"errors"
	"time"

	intconfig "ridepool/internal/config"
	intdb "ridepool/internal/db"
	"ridepool/internal/domain"
	"ridepool/internal/domain/models"
)

type BookingRepo struct {
	DB *sql.DB
}

func (r BookingRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const bookingColumns = `id, ride_id, passenger_id, seats, status,
		pickup_lat, pickup_lng, dropoff_lat, dropoff_lng,
		COALESCE(idempotency_key, ''), created_at, updated_at`

func scanBooking(scan func(dest ...any) error) (models.Booking, error) {
	var b models.Booking
	err := scan(
		&b.ID,
		&b.RideID,
		&b.PassengerID,
		&b.Seats,
		&b.Status,
		&b.PickupLat,
		&b.PickupLng,
		&b.DropoffLat,
		&b.DropoffLng,
		&b.IdempotencyKey,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	return b, err
}

// CreateBooking inserts a PENDING row. The unique idempotency_key
// column turns a concurrent duplicate submit into a Conflict instead
// of a second booking.
func (r BookingRepo) CreateBooking(b models.Booking) (int64, error) {
	res, err := r.db().Exec(`
		INSERT INTO bookings
		(ride_id, passenger_id, seats, status, pickup_lat, pickup_lng,
		 dropoff_lat, dropoff_lng, idempotency_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`,
		b.RideID,
		b.PassengerID,
		b.Seats,
		models.BookingPending,
		b.PickupLat,
		b.PickupLng,
		b.DropoffLat,
		b.DropoffLng,
		intdb.NullIfEmpty(b.IdempotencyKey),
	)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return 0, domain.ConflictError{Resource: "booking", Msg: "duplicate idempotency key", Err: err}
		}
		return 0, domain.InternalError{Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}
	return id, nil
}

func (r BookingRepo) GetBookingByID(id int64) (models.Booking, error) {
	if id <= 0 {
		return models.Booking{}, domain.ValidationError{Field: "booking_id", Msg: "invalid id"}
	}
	row := r.db().QueryRow(`SELECT `+bookingColumns+` FROM bookings WHERE id=? LIMIT 1`, id)
	b, err := scanBooking(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Booking{}, domain.NotFoundError{Resource: "booking"}
		}
		return models.Booking{}, domain.InternalError{Err: err}
	}
	return b, nil
}

// GetByIdempotencyKey returns the prior booking for a client key, or
// NotFound when the key is unseen.
func (r BookingRepo) GetByIdempotencyKey(key string) (models.Booking, error) {
	if key == "" {
		return models.Booking{}, domain.ValidationError{Field: "idempotency_key", Msg: "empty"}
	}
	row := r.db().QueryRow(`SELECT `+bookingColumns+` FROM bookings WHERE idempotency_key=? LIMIT 1`, key)
	b, err := scanBooking(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Booking{}, domain.NotFoundError{Resource: "booking"}
		}
		return models.Booking{}, domain.InternalError{Err: err}
	}
	return b, nil
}

func (r BookingRepo) ListBookings(limit, offset int) ([]models.Booking, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db().Query(`SELECT `+bookingColumns+` FROM bookings ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	defer rows.Close()

	out := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, domain.InternalError{Err: err}
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateStatus moves a booking between lifecycle states. The WHERE
// guard on the current status keeps compensation and confirmation from
// racing each other.
func (r BookingRepo) UpdateStatus(id int64, from, to string) error {
	if id <= 0 {
		return domain.ValidationError{Field: "booking_id", Msg: "invalid id"}
	}
	res, err := r.db().Exec(`UPDATE bookings SET status=?, updated_at=NOW() WHERE id=? AND status=?`, to, id, from)
	if err != nil {
		return domain.InternalError{Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ConflictError{Resource: "booking", Msg: "status changed concurrently"}
	}
	return nil
}

// ListStalePending returns PENDING bookings older than cutoff, the
// reconciler's work queue.
func (r BookingRepo) ListStalePending(cutoff time.Time, limit int) ([]models.Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db().Query(`SELECT `+bookingColumns+` FROM bookings WHERE status=? AND created_at < ? ORDER BY id LIMIT ?`,
		models.BookingPending, cutoff, limit)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	defer rows.Close()

	out := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, domain.InternalError{Err: err}
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
