package services

import (
	"context"
	"fmt"

	"ridepool/internal/domain"
	"ridepool/internal/domain/models"
	"ridepool/internal/gateway"
	"ridepool/internal/ledger"
	"ridepool/internal/repositories"
	"ridepool/internal/utils"
)

const methodMpesa = "MPESA"

// Coordinator runs the booking saga: reserve seats, charge the
// passenger, pay out the driver, confirm. Every step after the reserve
// has a compensating action; the coordinator alone moves booking,
// payment and payout statuses.
type Coordinator struct {
	RideRepo    repositories.RideRepo
	UserRepo    repositories.UserRepo
	BookingRepo repositories.BookingRepo
	PaymentRepo repositories.PaymentRepo
	PayoutRepo  repositories.PayoutRepo

	Ledger  ledger.Ledger
	Gateway gateway.Gateway

	PayoutFraction float64
	MaxAttempts    int // gateway attempts per leg, transient failures only
	RequestID      string
}

type PlaceBookingInput struct {
	RideID         int64
	PassengerID    int64
	Seats          int
	FundingMSISDN  string
	PickupLat      float64
	PickupLng      float64
	DropoffLat     float64
	DropoffLng     float64
	IdempotencyKey string
}

func (c Coordinator) attempts() int {
	if c.MaxAttempts > 0 {
		return c.MaxAttempts
	}
	return 3
}

func (c Coordinator) fraction() float64 {
	if c.PayoutFraction > 0 && c.PayoutFraction <= 1 {
		return c.PayoutFraction
	}
	return 0.9
}

func (c Coordinator) log(action, msg string) {
	utils.LogEvent(c.RequestID, "coordinator", action, msg)
}

// PlaceBooking is the one operation this core exposes upward.
//
// Step order and compensation boundaries:
//  1. ledger.TryReserve (capacity error means zero side effects)
//  2. booking row PENDING
//  3. gateway.Charge (declined: cancel, then release)
//  4. payment PAID
//  5. gateway.Payout (declined: refund, cancel, then release)
//  6. booking CONFIRMED, token spent
//
// A transient gateway outcome (timeout included) leaves the booking
// PENDING with its idempotency keys intact; the reconciler finishes
// the saga in either direction later.
func (c Coordinator) PlaceBooking(ctx context.Context, in PlaceBookingInput) (models.Booking, error) {
	if in.Seats <= 0 {
		return models.Booking{}, domain.ValidationError{Field: "seats", Msg: "must be at least 1"}
	}
	if in.FundingMSISDN == "" {
		return models.Booking{}, domain.ValidationError{Field: "funding_msisdn", Msg: "required"}
	}

	// Same client key: same outcome, never a second booking.
	if in.IdempotencyKey != "" {
		if prior, err := c.BookingRepo.GetByIdempotencyKey(in.IdempotencyKey); err == nil {
			c.log("place", fmt.Sprintf("idempotent replay booking=%d status=%s", prior.ID, prior.Status))
			return prior, nil
		} else if !domain.IsNotFound(err) {
			return models.Booking{}, err
		}
	}

	ride, err := c.RideRepo.GetRideByID(in.RideID)
	if err != nil {
		return models.Booking{}, err
	}
	driver, err := c.UserRepo.GetUserByID(ride.DriverID)
	if err != nil {
		return models.Booking{}, err
	}
	amount := ride.PricePerSeat * int64(in.Seats)

	// Step 1: atomic seat hold. Capacity errors carry no side effects.
	tok, err := c.Ledger.TryReserve(ctx, in.RideID, in.Seats)
	if err != nil {
		return models.Booking{}, err
	}

	// Step 2: durable PENDING booking tied to the hold.
	bookingID, err := c.BookingRepo.CreateBooking(models.Booking{
		RideID:         in.RideID,
		PassengerID:    in.PassengerID,
		Seats:          in.Seats,
		PickupLat:      in.PickupLat,
		PickupLng:      in.PickupLng,
		DropoffLat:     in.DropoffLat,
		DropoffLng:     in.DropoffLng,
		IdempotencyKey: in.IdempotencyKey,
	})
	if err != nil {
		if relErr := c.Ledger.Release(ctx, tok); relErr != nil {
			c.log("place", "release after create failure: "+relErr.Error())
		}
		return models.Booking{}, err
	}

	paymentID, err := c.PaymentRepo.CreatePending(bookingID, amount, ride.Currency, methodMpesa, in.FundingMSISDN)
	if err != nil {
		c.cancelThenRelease(ctx, bookingID, tok)
		return models.Booking{}, err
	}

	// Step 3: charge. The key is derived from the booking id, never
	// from the clock, so provider-side retries are idempotent.
	chargeKey := chargeKey(bookingID)
	res, err := c.callGateway(ctx, "charge", func() (gateway.Result, error) {
		return c.Gateway.Charge(ctx, in.FundingMSISDN, amount, chargeKey)
	})
	if err != nil {
		return models.Booking{}, err
	}
	switch res.Status {
	case gateway.StatusSucceeded:
		// fall through
	case gateway.StatusDeclined:
		_ = c.PaymentRepo.MarkStatus(paymentID, models.PaymentFailed, res.ProviderRef)
		c.cancelThenRelease(ctx, bookingID, tok)
		return models.Booking{}, domain.PaymentDeclinedError{BookingID: bookingID, Reason: res.Detail}
	default:
		// Outcome unknown after retries. Do not assume declined: the
		// booking stays PENDING and the reconciler replays the charge
		// with the same key.
		c.log("place", fmt.Sprintf("charge outcome unknown booking=%d", bookingID))
		return models.Booking{}, domain.TransientGatewayError{Op: "charge"}
	}

	// Step 4: charge settled.
	if err := c.PaymentRepo.MarkStatus(paymentID, models.PaymentPaid, res.ProviderRef); err != nil {
		c.log("place", "mark paid failed: "+err.Error())
	}

	// Step 5: driver payout.
	booking, err := c.runPayoutLeg(ctx, bookingID, driver, amount, ride.Currency, in.FundingMSISDN, paymentID, tok)
	if err != nil {
		return models.Booking{}, err
	}
	return booking, nil
}

// runPayoutLeg handles steps 5-6. tok may be nil when invoked from the
// reconciler, in which case seats are released by direct decrement.
func (c Coordinator) runPayoutLeg(ctx context.Context, bookingID int64, driver models.User,
	chargedAmount int64, currency, payerMSISDN string, paymentID int64, tok *ledger.Token) (models.Booking, error) {

	payoutAmount := utils.PayoutShare(chargedAmount, c.fraction())

	payout, err := c.PayoutRepo.GetByBookingID(bookingID)
	payoutID := payout.ID
	if err != nil {
		if !domain.IsNotFound(err) {
			return models.Booking{}, err
		}
		payoutID, err = c.PayoutRepo.CreatePending(bookingID, driver.ID, payoutAmount, currency, methodMpesa)
		if err != nil {
			c.log("payout", "insert failed: "+err.Error())
			return models.Booking{}, err
		}
	}

	res, err := c.callGateway(ctx, "payout", func() (gateway.Result, error) {
		return c.Gateway.Payout(ctx, driver.Phone, payoutAmount, payoutKey(bookingID))
	})
	if err != nil {
		return models.Booking{}, err
	}

	switch res.Status {
	case gateway.StatusSucceeded:
		if err := c.PayoutRepo.MarkStatus(payoutID, models.PaymentPaid, res.ProviderRef); err != nil {
			c.log("payout", "mark paid failed: "+err.Error())
		}
	case gateway.StatusDeclined:
		_ = c.PayoutRepo.MarkStatus(payoutID, models.PaymentFailed, res.ProviderRef)
		return models.Booking{}, c.compensateAfterCharge(ctx, bookingID, chargedAmount, payerMSISDN, paymentID, tok)
	default:
		c.log("payout", fmt.Sprintf("outcome unknown booking=%d", bookingID))
		return models.Booking{}, domain.TransientGatewayError{Op: "payout"}
	}

	// Step 6: confirm.
	if err := c.BookingRepo.UpdateStatus(bookingID, models.BookingPending, models.BookingConfirmed); err != nil {
		return models.Booking{}, err
	}
	if tok != nil {
		if err := c.Ledger.Confirm(tok); err != nil {
			c.log("confirm", err.Error())
		}
	}
	c.log("place", fmt.Sprintf("booking=%d confirmed", bookingID))
	return c.BookingRepo.GetBookingByID(bookingID)
}

// compensateAfterCharge unwinds a settled charge: refund the
// passenger, cancel the booking, give the seats back. Refund failure
// is never silent; the payment is flagged for manual reconciliation.
func (c Coordinator) compensateAfterCharge(ctx context.Context, bookingID, chargedAmount int64,
	payerMSISDN string, paymentID int64, tok *ledger.Token) error {

	refunded := false
	res, err := c.callGateway(ctx, "refund", func() (gateway.Result, error) {
		return c.Gateway.Refund(ctx, payerMSISDN, chargedAmount, refundKey(bookingID))
	})
	if err == nil && res.Status == gateway.StatusSucceeded {
		refunded = true
		_ = c.PaymentRepo.MarkStatus(paymentID, models.PaymentRefunded, res.ProviderRef)
	} else {
		_ = c.PaymentRepo.MarkStatus(paymentID, models.PaymentFailed, res.ProviderRef)
		c.log("refund", fmt.Sprintf("booking=%d refund failed, manual reconciliation required", bookingID))
	}

	c.cancelThenRelease(ctx, bookingID, tok)
	return domain.PayoutFailedError{BookingID: bookingID, Refunded: refunded}
}

// CancelBooking is the caller-facing cancel. Before the charge commits
// the seats are simply given back; after it, the compensation path
// runs. A raw delete never happens.
func (c Coordinator) CancelBooking(ctx context.Context, bookingID int64) (models.Booking, error) {
	booking, err := c.BookingRepo.GetBookingByID(bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	if booking.Status == models.BookingCancelled {
		return booking, nil
	}

	payment, err := c.PaymentRepo.GetByBookingID(bookingID)
	switch {
	case domain.IsNotFound(err):
		// No charge ever attempted; cancel and give the seats back.
	case err != nil:
		return models.Booking{}, err
	case payment.Status == models.PaymentPending:
		// Charge may be in flight; only the reconciler may decide.
		return models.Booking{}, domain.ConflictError{Resource: "booking", Msg: "charge in flight, retry shortly"}
	case payment.Status == models.PaymentPaid:
		res, gerr := c.callGateway(ctx, "refund", func() (gateway.Result, error) {
			return c.Gateway.Refund(ctx, payment.PayerMSISDN, payment.Amount, refundKey(bookingID))
		})
		if gerr != nil {
			return models.Booking{}, gerr
		}
		if res.Status != gateway.StatusSucceeded {
			return models.Booking{}, domain.TransientGatewayError{Op: "refund"}
		}
		_ = c.PaymentRepo.MarkStatus(payment.ID, models.PaymentRefunded, res.ProviderRef)
		// The driver payout for a CONFIRMED booking has already settled;
		// it cannot be clawed back through the gateway here, so flag it.
		if payout, perr := c.PayoutRepo.GetByBookingID(bookingID); perr == nil && payout.Status == models.PaymentPaid {
			_ = c.PayoutRepo.MarkStatus(payout.ID, models.PaymentFailed, payout.ProviderRef)
			c.log("cancel", fmt.Sprintf("booking=%d payout needs claw-back, manual reconciliation required", bookingID))
		}
	}

	// The guarded transition decides any cancel race; seats move back
	// only when this call flipped the row.
	if err := c.BookingRepo.UpdateStatus(bookingID, booking.Status, models.BookingCancelled); err != nil {
		return models.Booking{}, err
	}
	if err := c.Ledger.ReleaseSeats(ctx, booking.RideID, booking.Seats); err != nil {
		c.log("cancel", fmt.Sprintf("booking=%d seats not released, manual reconciliation required: %v", bookingID, err))
		return models.Booking{}, err
	}
	c.log("cancel", fmt.Sprintf("booking=%d cancelled", bookingID))
	return c.BookingRepo.GetBookingByID(bookingID)
}

// callGateway retries transient outcomes with the same idempotency
// key. Declines are terminal immediately.
func (c Coordinator) callGateway(ctx context.Context, op string, call func() (gateway.Result, error)) (gateway.Result, error) {
	var last gateway.Result
	for attempt := 1; attempt <= c.attempts(); attempt++ {
		res, err := call()
		if err != nil {
			return gateway.Result{}, domain.InternalError{Msg: "gateway " + op + " failed", Err: err}
		}
		if res.Status != gateway.StatusTransient {
			return res, nil
		}
		last = res
		c.log(op, fmt.Sprintf("transient failure attempt=%d", attempt))
		if ctx.Err() != nil {
			break
		}
	}
	return last, nil
}

// cancelThenRelease flips the booking to CANCELLED first and gives the
// seats back only when this call won the transition, so a racing
// cancel can never credit the ledger twice.
func (c Coordinator) cancelThenRelease(ctx context.Context, bookingID int64, tok *ledger.Token) {
	if err := c.BookingRepo.UpdateStatus(bookingID, models.BookingPending, models.BookingCancelled); err != nil {
		c.log("cancel", fmt.Sprintf("booking=%d: %v", bookingID, err))
		return
	}
	c.releaseSeats(ctx, bookingID, tok)
}

func (c Coordinator) releaseSeats(ctx context.Context, bookingID int64, tok *ledger.Token) {
	var err error
	if tok != nil {
		err = c.Ledger.Release(ctx, tok)
	} else {
		var booking models.Booking
		booking, err = c.BookingRepo.GetBookingByID(bookingID)
		if err == nil {
			err = c.Ledger.ReleaseSeats(ctx, booking.RideID, booking.Seats)
		}
	}
	if err != nil {
		c.log("release", fmt.Sprintf("booking=%d: %v", bookingID, err))
	}
}

// Provider idempotency keys are derived from the booking id plus the
// saga leg, never from wall-clock time.
func chargeKey(bookingID int64) string { return fmt.Sprintf("BK%d-CHG", bookingID) }
func payoutKey(bookingID int64) string { return fmt.Sprintf("BK%d-PAY", bookingID) }
func refundKey(bookingID int64) string { return fmt.Sprintf("BK%d-RFD", bookingID) }
