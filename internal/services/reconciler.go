package services

import (
	"context"
	"fmt"
	"time"

	"ridepool/internal/domain"
	"ridepool/internal/domain/models"
	"ridepool/internal/gateway"
	"ridepool/internal/utils"
)

// Reconciler sweeps PENDING bookings older than the timeout and drives
// each saga to an end state. A booking is only ever PENDING while an
// operation is in flight; after a crash or a transient gateway outage
// this pass either retries forward or runs the compensation chain from
// the point reached.
type Reconciler struct {
	Coordinator Coordinator
	Interval    time.Duration
	PendingAge  time.Duration
	BatchSize   int
}

func (r Reconciler) interval() time.Duration {
	if r.Interval > 0 {
		return r.Interval
	}
	return time.Minute
}

func (r Reconciler) pendingAge() time.Duration {
	if r.PendingAge > 0 {
		return r.PendingAge
	}
	return 10 * time.Minute
}

func (r Reconciler) log(msg string) {
	utils.LogEvent(r.Coordinator.RequestID, "reconciler", "sweep", msg)
}

// Run blocks until ctx is done, sweeping on every tick.
func (r Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := r.SweepOnce(ctx); err != nil {
				r.log("sweep error: " + err.Error())
			} else if n > 0 {
				r.log(fmt.Sprintf("resolved %d stale bookings", n))
			}
		}
	}
}

// SweepOnce resolves one batch of stale PENDING bookings and returns
// how many it touched.
func (r Reconciler) SweepOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-r.pendingAge())
	stale, err := r.Coordinator.BookingRepo.ListStalePending(cutoff, r.BatchSize)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, booking := range stale {
		if ctx.Err() != nil {
			return resolved, ctx.Err()
		}
		if err := r.resolve(ctx, booking); err != nil {
			// transient outcomes stay pending for the next sweep
			if domain.IsTransientGateway(err) {
				continue
			}
			r.log(fmt.Sprintf("booking=%d: %v", booking.ID, err))
			continue
		}
		resolved++
	}
	return resolved, nil
}

func (r Reconciler) resolve(ctx context.Context, booking models.Booking) error {
	c := r.Coordinator

	payment, err := c.PaymentRepo.GetByBookingID(booking.ID)
	if domain.IsNotFound(err) {
		// Crash before the charge was even recorded: pure release.
		return r.cancelAndRelease(ctx, booking)
	}
	if err != nil {
		return err
	}

	switch payment.Status {
	case models.PaymentFailed:
		return r.cancelAndRelease(ctx, booking)

	case models.PaymentRefunded:
		return r.cancelAndRelease(ctx, booking)

	case models.PaymentPending:
		// Charge outcome unknown. Replaying with the same idempotency
		// key is safe: the provider reports the original result.
		res, gerr := c.callGateway(ctx, "charge", func() (gateway.Result, error) {
			return c.Gateway.Charge(ctx, payment.PayerMSISDN, payment.Amount, chargeKey(booking.ID))
		})
		if gerr != nil {
			return gerr
		}
		switch res.Status {
		case gateway.StatusSucceeded:
			if err := c.PaymentRepo.MarkStatus(payment.ID, models.PaymentPaid, res.ProviderRef); err != nil {
				return err
			}
			return r.finishForward(ctx, booking, payment, res.ProviderRef)
		case gateway.StatusDeclined:
			_ = c.PaymentRepo.MarkStatus(payment.ID, models.PaymentFailed, res.ProviderRef)
			return r.cancelAndRelease(ctx, booking)
		default:
			return domain.TransientGatewayError{Op: "charge"}
		}

	case models.PaymentPaid:
		return r.finishForward(ctx, booking, payment, payment.ProviderRef)
	}

	return domain.InternalError{Msg: "unknown payment status " + payment.Status}
}

// finishForward runs the payout leg for a booking whose charge has
// settled, confirming or compensating exactly like the live saga.
func (r Reconciler) finishForward(ctx context.Context, booking models.Booking, payment models.Payment, _ string) error {
	c := r.Coordinator

	ride, err := c.RideRepo.GetRideByID(booking.RideID)
	if err != nil {
		return err
	}
	driver, err := c.UserRepo.GetUserByID(ride.DriverID)
	if err != nil {
		return err
	}

	_, err = c.runPayoutLeg(ctx, booking.ID, driver, payment.Amount, payment.Currency, payment.PayerMSISDN, payment.ID, nil)
	if err != nil && !domain.IsPayoutFailed(err) {
		return err
	}
	// PayoutFailedError means the compensation chain already ran to
	// completion; the booking reached an end state either way.
	return nil
}

// cancelAndRelease ends a dead saga. The guarded status transition goes
// first: if another actor already moved the booking the seats were (or
// will be) accounted for by that actor, and decrementing here as well
// would oversell the ride.
func (r Reconciler) cancelAndRelease(ctx context.Context, booking models.Booking) error {
	c := r.Coordinator
	if err := c.BookingRepo.UpdateStatus(booking.ID, models.BookingPending, models.BookingCancelled); err != nil {
		return err
	}
	return c.Ledger.ReleaseSeats(ctx, booking.RideID, booking.Seats)
}
