package repositories

import (
	"database/sql"
	"errors"

	intconfig "ridepool/internal/config"
	"ridepool/internal/domain"
	"ridepool/internal/domain/models"
)

type PaymentRepo struct {
	DB *sql.DB
}

func (r PaymentRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const paymentColumns = `id, booking_id, amount, currency, method,
		COALESCE(payer_msisdn, ''), COALESCE(provider_ref, ''), status, created_at, updated_at`

func scanPayment(scan func(dest ...any) error) (models.Payment, error) {
	var p models.Payment
	err := scan(
		&p.ID,
		&p.BookingID,
		&p.Amount,
		&p.Currency,
		&p.Method,
		&p.PayerMSISDN,
		&p.ProviderRef,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

// CreatePending opens the payment record before the charge leaves the
// building, so a crash mid-charge leaves evidence for the reconciler.
func (r PaymentRepo) CreatePending(bookingID, amount int64, currency, method, payerMSISDN string) (int64, error) {
	res, err := r.db().Exec(`
		INSERT INTO payments (booking_id, amount, currency, method, payer_msisdn, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, NOW(), NOW())`,
		bookingID, amount, currency, method, payerMSISDN, models.PaymentPending,
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

func (r PaymentRepo) MarkStatus(id int64, status, providerRef string) error {
	if id <= 0 {
		return domain.ValidationError{Field: "payment_id", Msg: "invalid id"}
	}
	_, err := r.db().Exec(`UPDATE payments SET status=?, provider_ref=?, updated_at=NOW() WHERE id=?`,
		status, providerRef, id)
	if err != nil {
		return domain.InternalError{Err: err}
	}
	return nil
}

func (r PaymentRepo) GetByBookingID(bookingID int64) (models.Payment, error) {
	if bookingID <= 0 {
		return models.Payment{}, domain.ValidationError{Field: "booking_id", Msg: "invalid id"}
	}
	row := r.db().QueryRow(`SELECT `+paymentColumns+` FROM payments WHERE booking_id=? LIMIT 1`, bookingID)
	p, err := scanPayment(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Payment{}, domain.NotFoundError{Resource: "payment"}
		}
		return models.Payment{}, domain.InternalError{Err: err}
	}
	return p, nil
}

func (r PaymentRepo) GetPaymentByID(id int64) (models.Payment, error) {
	if id <= 0 {
		return models.Payment{}, domain.ValidationError{Field: "payment_id", Msg: "invalid id"}
	}
	row := r.db().QueryRow(`SELECT `+paymentColumns+` FROM payments WHERE id=? LIMIT 1`, id)
	p, err := scanPayment(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Payment{}, domain.NotFoundError{Resource: "payment"}
		}
		return models.Payment{}, domain.InternalError{Err: err}
	}
	return p, nil
}

func (r PaymentRepo) ListPayments(limit, offset int) ([]models.Payment, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db().Query(`SELECT `+paymentColumns+` FROM payments ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	defer rows.Close()

	out := []models.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows.Scan)
		if err != nil {
			return nil, domain.InternalError{Err: err}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
