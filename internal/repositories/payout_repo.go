package repositories

import (
	"database/sql"
	"errors"

	intconfig "ridepool/internal/config"
	"ridepool/internal/domain"
	"ridepool/internal/domain/models"
)

// PayoutRepo persists driver-side transfers. Payouts never share a row
// or a provider ref with the passenger charge.
type PayoutRepo struct {
	DB *sql.DB
}

func (r PayoutRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const payoutColumns = `id, booking_id, driver_id, amount, currency, method,
		COALESCE(provider_ref, ''), status, created_at, updated_at`

func scanPayout(scan func(dest ...any) error) (models.Payout, error) {
	var p models.Payout
	err := scan(
		&p.ID,
		&p.BookingID,
		&p.DriverID,
		&p.Amount,
		&p.Currency,
		&p.Method,
		&p.ProviderRef,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func (r PayoutRepo) CreatePending(bookingID, driverID, amount int64, currency, method string) (int64, error) {
	res, err := r.db().Exec(`
		INSERT INTO payouts (booking_id, driver_id, amount, currency, method, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, NOW(), NOW())`,
		bookingID, driverID, amount, currency, method, models.PaymentPending,
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

func (r PayoutRepo) MarkStatus(id int64, status, providerRef string) error {
	if id <= 0 {
		return domain.ValidationError{Field: "payout_id", Msg: "invalid id"}
	}
	_, err := r.db().Exec(`UPDATE payouts SET status=?, provider_ref=?, updated_at=NOW() WHERE id=?`,
		status, providerRef, id)
	if err != nil {
		return domain.InternalError{Err: err}
	}
	return nil
}

func (r PayoutRepo) GetByBookingID(bookingID int64) (models.Payout, error) {
	if bookingID <= 0 {
		return models.Payout{}, domain.ValidationError{Field: "booking_id", Msg: "invalid id"}
	}
	row := r.db().QueryRow(`SELECT `+payoutColumns+` FROM payouts WHERE booking_id=? LIMIT 1`, bookingID)
	p, err := scanPayout(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Payout{}, domain.NotFoundError{Resource: "payout"}
		}
		return models.Payout{}, domain.InternalError{Err: err}
	}
	return p, nil
}
