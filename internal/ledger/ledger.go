package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	intconfig "ridepool/internal/config"
	"ridepool/internal/domain"
	"ridepool/internal/domain/models"
	"ridepool/internal/utils"
)

// Ledger is the single authority over rides.reserved_seats. Every
// check-and-increment runs inside one transaction holding the ride row
// lock, so concurrent reservations against the same ride serialize.
type Ledger struct {
	DB *sql.DB
}

func (l Ledger) db() *sql.DB {
	if l.DB != nil {
		return l.DB
	}
	return intconfig.DB
}

type tokenState int32

const (
	tokenIssued tokenState = iota
	tokenReleased
	tokenConfirmed
)

var tokenSeq atomic.Int64

// Token represents one provisional seat hold. It may be spent exactly
// once, by Release or by Confirm.
type Token struct {
	id     string
	rideID int64
	seats  int

	mu    sync.Mutex
	state tokenState
}

func (t *Token) ID() string    { return t.id }
func (t *Token) RideID() int64 { return t.rideID }
func (t *Token) Seats() int    { return t.seats }

func (t *Token) spend(next tokenState) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != tokenIssued {
		return domain.InvalidTokenError{Token: t.id, Msg: "already spent"}
	}
	t.state = next
	return nil
}

// TryReserve atomically checks availability and increments
// reserved_seats. Returns domain.CapacityError when the ride cannot
// hold the requested seats; no side effect happens in that case.
func (l Ledger) TryReserve(ctx context.Context, rideID int64, seats int) (*Token, error) {
	if rideID <= 0 {
		return nil, domain.ValidationError{Field: "ride_id", Msg: "invalid id"}
	}
	if seats <= 0 {
		return nil, domain.ValidationError{Field: "seats", Msg: "must be at least 1"}
	}

	db := l.db()
	if db == nil {
		return nil, domain.InternalError{Msg: "db not available"}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	defer tx.Rollback()

	var total, reserved int
	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT total_seats, reserved_seats, status FROM rides WHERE id=? FOR UPDATE`,
		rideID,
	).Scan(&total, &reserved, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundError{Resource: "ride"}
		}
		return nil, domain.InternalError{Err: err}
	}

	if status != models.RideScheduled {
		return nil, domain.ConflictError{Resource: "ride", Msg: "not open for booking"}
	}

	if avail := total - reserved; avail < seats {
		return nil, domain.CapacityError{RideID: rideID, Requested: seats, Available: avail}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE rides SET reserved_seats = reserved_seats + ? WHERE id=?`,
		seats, rideID,
	); err != nil {
		return nil, domain.InternalError{Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, domain.InternalError{Err: err}
	}

	tok := &Token{
		id:     fmt.Sprintf("RSV-%d-%d", rideID, tokenSeq.Add(1)),
		rideID: rideID,
		seats:  seats,
	}
	return tok, nil
}

// Release gives the token's seats back. A token can be released at
// most once; a second call is an invariant violation and changes
// nothing.
func (l Ledger) Release(ctx context.Context, tok *Token) error {
	if tok == nil {
		return domain.InvalidTokenError{Token: "<nil>", Msg: "missing token"}
	}
	if err := tok.spend(tokenReleased); err != nil {
		utils.LogEvent("", "ledger", "release", "double spend of "+tok.id)
		return err
	}

	db := l.db()
	if db == nil {
		return domain.InternalError{Msg: "db not available"}
	}

	res, err := db.ExecContext(ctx,
		`UPDATE rides SET reserved_seats = reserved_seats - ? WHERE id=? AND reserved_seats >= ?`,
		tok.seats, tok.rideID, tok.seats,
	)
	if err != nil {
		return domain.InternalError{Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// counter would have gone negative: the ledger invariant is broken
		utils.LogEvent("", "ledger", "release", fmt.Sprintf("counter underflow ride=%d token=%s", tok.rideID, tok.id))
		return domain.InternalError{Msg: "reserved seats counter underflow"}
	}
	return nil
}

// Confirm marks the token permanently spent. The seats stay counted
// against the ride; only the booking row records who holds them now.
func (l Ledger) Confirm(tok *Token) error {
	if tok == nil {
		return domain.InvalidTokenError{Token: "<nil>", Msg: "missing token"}
	}
	if err := tok.spend(tokenConfirmed); err != nil {
		utils.LogEvent("", "ledger", "confirm", "double spend of "+tok.id)
		return err
	}
	return nil
}

// ReleaseSeats decrements the counter directly, without a token. Used
// only by the reconciler for bookings whose token died with the
// process.
func (l Ledger) ReleaseSeats(ctx context.Context, rideID int64, seats int) error {
	if rideID <= 0 || seats <= 0 {
		return domain.ValidationError{Field: "seats", Msg: "invalid release"}
	}
	db := l.db()
	if db == nil {
		return domain.InternalError{Msg: "db not available"}
	}
	res, err := db.ExecContext(ctx,
		`UPDATE rides SET reserved_seats = reserved_seats - ? WHERE id=? AND reserved_seats >= ?`,
		seats, rideID, seats,
	)
	if err != nil {
		return domain.InternalError{Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		utils.LogEvent("", "ledger", "reconcile-release", fmt.Sprintf("counter underflow ride=%d", rideID))
		return domain.InternalError{Msg: "reserved seats counter underflow"}
	}
	return nil
}
