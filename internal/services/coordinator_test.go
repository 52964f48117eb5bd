package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"ridepool/internal/domain"
	"ridepool/internal/domain/models"
	"ridepool/internal/gateway"
	"ridepool/internal/ledger"
	"ridepool/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
)

type gatewayCall struct {
	Op     string
	MSISDN string
	Amount int64
	Key    string
}

// scriptedGateway pops one result per call from the per-op queue and
// records every call. An exhausted queue yields transient outcomes.
type scriptedGateway struct {
	chargeQ []gateway.Result
	payoutQ []gateway.Result
	refundQ []gateway.Result
	calls   []gatewayCall
}

func (g *scriptedGateway) pop(op string, q *[]gateway.Result, msisdn string, amount int64, key string) (gateway.Result, error) {
	g.calls = append(g.calls, gatewayCall{Op: op, MSISDN: msisdn, Amount: amount, Key: key})
	if len(*q) == 0 {
		return gateway.Result{Status: gateway.StatusTransient}, nil
	}
	res := (*q)[0]
	*q = (*q)[1:]
	return res, nil
}

func (g *scriptedGateway) Charge(_ context.Context, msisdn string, amount int64, key string) (gateway.Result, error) {
	return g.pop("charge", &g.chargeQ, msisdn, amount, key)
}

func (g *scriptedGateway) Payout(_ context.Context, msisdn string, amount int64, key string) (gateway.Result, error) {
	return g.pop("payout", &g.payoutQ, msisdn, amount, key)
}

func (g *scriptedGateway) Refund(_ context.Context, msisdn string, amount int64, key string) (gateway.Result, error) {
	return g.pop("refund", &g.refundQ, msisdn, amount, key)
}

func (g *scriptedGateway) keysFor(op string) []string {
	var keys []string
	for _, call := range g.calls {
		if call.Op == op {
			keys = append(keys, call.Key)
		}
	}
	return keys
}

func ok(ref string) gateway.Result {
	return gateway.Result{Status: gateway.StatusSucceeded, ProviderRef: ref}
}

func declined(detail string) gateway.Result {
	return gateway.Result{Status: gateway.StatusDeclined, Detail: detail}
}

func newCoordinator(t *testing.T, gw gateway.Gateway) (Coordinator, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	c := Coordinator{
		RideRepo:    repositories.RideRepo{DB: db},
		UserRepo:    repositories.UserRepo{DB: db},
		BookingRepo: repositories.BookingRepo{DB: db},
		PaymentRepo: repositories.PaymentRepo{DB: db},
		PayoutRepo:  repositories.PayoutRepo{DB: db},
		Ledger:      ledger.Ledger{DB: db},
		Gateway:     gw,
	}
	return c, mock, func() { db.Close() }
}

var testTime = time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)

func rideRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "driver_id", "vehicle_id", "origin_lat", "origin_lng",
		"destination_lat", "destination_lng", "departure_time", "total_seats",
		"reserved_seats", "price_per_seat", "currency", "status", "created_at",
	}).AddRow(7, 3, 5, -1.28, 36.82, -1.32, 36.85, testTime, 4, 0, int64(50000), "KES", models.RideScheduled, testTime)
}

func driverRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "password_hash", "full_name", "phone",
		"identity_id", "driver_license", "role", "user_is_verified",
		"created_at", "updated_at",
	}).AddRow(3, "driver@example.com", "x", "Test Driver", "254700000001", "ID1", "DL1", models.RoleDriver, true, testTime, testTime)
}

func bookingRow(id int64, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "ride_id", "passenger_id", "seats", "status",
		"pickup_lat", "pickup_lng", "dropoff_lat", "dropoff_lng",
		"idempotency_key", "created_at", "updated_at",
	}).AddRow(id, 7, 11, 2, status, -1.29, 36.83, -1.31, 36.84, "", testTime, testTime)
}

func paymentRow(id, bookingID, amount int64, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "booking_id", "amount", "currency", "method",
		"payer_msisdn", "provider_ref", "status", "created_at", "updated_at",
	}).AddRow(id, bookingID, amount, "KES", "MPESA", "254711000000", "", status, testTime, testTime)
}

func payoutRow(id, bookingID, amount int64, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "booking_id", "driver_id", "amount", "currency", "method",
		"provider_ref", "status", "created_at", "updated_at",
	}).AddRow(id, bookingID, 3, amount, "KES", "MPESA", "MP-PAY-1", status, testTime, testTime)
}

func expectSagaHead(mock sqlmock.Sqlmock) {
	// ride, driver, seat hold, booking row, pending payment
	mock.ExpectQuery("FROM rides WHERE id=").WithArgs(int64(7)).WillReturnRows(rideRow())
	mock.ExpectQuery("FROM users WHERE id=").WithArgs(int64(3)).WillReturnRows(driverRow())
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT total_seats, reserved_seats, status FROM rides").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"total_seats", "reserved_seats", "status"}).
			AddRow(4, 0, models.RideScheduled))
	mock.ExpectExec("UPDATE rides SET reserved_seats = reserved_seats \\+").
		WithArgs(2, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec("INSERT INTO bookings").WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec("INSERT INTO payments").WillReturnResult(sqlmock.NewResult(9, 1))
}

func placeInput() PlaceBookingInput {
	return PlaceBookingInput{
		RideID:        7,
		PassengerID:   11,
		Seats:         2,
		FundingMSISDN: "254711000000",
		PickupLat:     -1.29,
		PickupLng:     36.83,
		DropoffLat:    -1.31,
		DropoffLng:    36.84,
	}
}

func TestPlaceBookingConfirmsOnHappyPath(t *testing.T) {
	gw := &scriptedGateway{
		chargeQ: []gateway.Result{ok("MP-CHG-1")},
		payoutQ: []gateway.Result{ok("MP-PAY-1")},
	}
	c, mock, closeDB := newCoordinator(t, gw)
	defer closeDB()

	expectSagaHead(mock)
	mock.ExpectExec("UPDATE payments SET status").
		WithArgs(models.PaymentPaid, "MP-CHG-1", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM payouts WHERE booking_id=").WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO payouts").WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectExec("UPDATE payouts SET status").
		WithArgs(models.PaymentPaid, "MP-PAY-1", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bookings SET status").
		WithArgs(models.BookingConfirmed, int64(42), models.BookingPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM bookings WHERE id=").WithArgs(int64(42)).
		WillReturnRows(bookingRow(42, models.BookingConfirmed))

	booking, err := c.PlaceBooking(context.Background(), placeInput())
	if err != nil {
		t.Fatalf("expected saga to succeed, got %v", err)
	}
	if booking.Status != models.BookingConfirmed {
		t.Fatalf("booking status = %s, want CONFIRMED", booking.Status)
	}

	if got := gw.keysFor("charge"); len(got) != 1 || got[0] != "BK42-CHG" {
		t.Fatalf("charge keys = %v", got)
	}
	if got := gw.keysFor("payout"); len(got) != 1 || got[0] != "BK42-PAY" {
		t.Fatalf("payout keys = %v", got)
	}
	// driver receives the configured share of the fare, in minor units
	for _, call := range gw.calls {
		if call.Op == "payout" && call.Amount != 90000 {
			t.Fatalf("payout amount = %d, want 90000", call.Amount)
		}
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPlaceBookingDeclineReleasesSeats(t *testing.T) {
	gw := &scriptedGateway{chargeQ: []gateway.Result{declined("insufficient funds")}}
	c, mock, closeDB := newCoordinator(t, gw)
	defer closeDB()

	expectSagaHead(mock)
	mock.ExpectExec("UPDATE payments SET status").
		WithArgs(models.PaymentFailed, "", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// guarded cancel first, then the seats go back
	mock.ExpectExec("UPDATE bookings SET status").
		WithArgs(models.BookingCancelled, int64(42), models.BookingPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE rides SET reserved_seats = reserved_seats -").
		WithArgs(2, int64(7), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := c.PlaceBooking(context.Background(), placeInput())
	if !domain.IsPaymentDeclined(err) {
		t.Fatalf("expected payment declined, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPlaceBookingPayoutFailureRefundsAndCancels(t *testing.T) {
	gw := &scriptedGateway{
		chargeQ: []gateway.Result{ok("MP-CHG-1")},
		payoutQ: []gateway.Result{declined("driver wallet blocked")},
		refundQ: []gateway.Result{ok("MP-RFD-1")},
	}
	c, mock, closeDB := newCoordinator(t, gw)
	defer closeDB()

	expectSagaHead(mock)
	mock.ExpectExec("UPDATE payments SET status").
		WithArgs(models.PaymentPaid, "MP-CHG-1", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM payouts WHERE booking_id=").WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO payouts").WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectExec("UPDATE payouts SET status").
		WithArgs(models.PaymentFailed, "", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// compensation: refund, mark refunded, cancel booking, free seats
	mock.ExpectExec("UPDATE payments SET status").
		WithArgs(models.PaymentRefunded, "MP-RFD-1", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bookings SET status").
		WithArgs(models.BookingCancelled, int64(42), models.BookingPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE rides SET reserved_seats = reserved_seats -").
		WithArgs(2, int64(7), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := c.PlaceBooking(context.Background(), placeInput())
	if !domain.IsPayoutFailed(err) {
		t.Fatalf("expected payout failed, got %v", err)
	}
	var pf domain.PayoutFailedError
	if !errors.As(err, &pf) || !pf.Refunded {
		t.Fatalf("payout failure should report the refund, got %+v", err)
	}
	if got := gw.keysFor("refund"); len(got) != 1 || got[0] != "BK42-RFD" {
		t.Fatalf("refund keys = %v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPlaceBookingTransientChargeStaysPending(t *testing.T) {
	gw := &scriptedGateway{} // every charge attempt comes back transient
	c, mock, closeDB := newCoordinator(t, gw)
	defer closeDB()

	expectSagaHead(mock)

	_, err := c.PlaceBooking(context.Background(), placeInput())
	if !domain.IsTransientGateway(err) {
		t.Fatalf("expected transient gateway error, got %v", err)
	}

	// every retry reuses the same provider key
	keys := gw.keysFor("charge")
	if len(keys) != 3 {
		t.Fatalf("charge attempts = %d, want 3", len(keys))
	}
	for _, k := range keys {
		if k != "BK42-CHG" {
			t.Fatalf("retry switched idempotency key: %v", keys)
		}
	}

	// no release, no cancel: the booking stays PENDING for the reconciler
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPlaceBookingReplaysIdempotencyKey(t *testing.T) {
	gw := &scriptedGateway{}
	c, mock, closeDB := newCoordinator(t, gw)
	defer closeDB()

	mock.ExpectQuery("FROM bookings WHERE idempotency_key=").
		WithArgs("client-key-1").
		WillReturnRows(bookingRow(42, models.BookingConfirmed))

	in := placeInput()
	in.IdempotencyKey = "client-key-1"
	booking, err := c.PlaceBooking(context.Background(), in)
	if err != nil {
		t.Fatalf("replay should succeed, got %v", err)
	}
	if booking.ID != 42 || booking.Status != models.BookingConfirmed {
		t.Fatalf("replay returned wrong booking: %+v", booking)
	}
	if len(gw.calls) != 0 {
		t.Fatalf("replay must not touch the gateway, got %d calls", len(gw.calls))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// Two 2-seat requests against a 2-seat ride: the ledger's row lock
// linearizes the holds, so exactly one booking confirms and the loser
// gets a capacity error before any booking, payment or gateway side
// effect.
func TestPlaceBookingTwoRequestsOneSeatPool(t *testing.T) {
	gw := &scriptedGateway{
		chargeQ: []gateway.Result{ok("MP-CHG-1")},
		payoutQ: []gateway.Result{ok("MP-PAY-1")},
	}
	c, mock, closeDB := newCoordinator(t, gw)
	defer closeDB()

	smallRide := func(reserved int) *sqlmock.Rows {
		return sqlmock.NewRows([]string{
			"id", "driver_id", "vehicle_id", "origin_lat", "origin_lng",
			"destination_lat", "destination_lng", "departure_time", "total_seats",
			"reserved_seats", "price_per_seat", "currency", "status", "created_at",
		}).AddRow(7, 3, 5, -1.28, 36.82, -1.32, 36.85, testTime, 2, reserved, int64(50000), "KES", models.RideScheduled, testTime)
	}
	counter := func(reserved int) *sqlmock.Rows {
		return sqlmock.NewRows([]string{"total_seats", "reserved_seats", "status"}).
			AddRow(2, reserved, models.RideScheduled)
	}

	// first passenger takes both seats and runs the full saga
	mock.ExpectQuery("FROM rides WHERE id=").WithArgs(int64(7)).WillReturnRows(smallRide(0))
	mock.ExpectQuery("FROM users WHERE id=").WithArgs(int64(3)).WillReturnRows(driverRow())
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT total_seats, reserved_seats, status FROM rides").
		WithArgs(int64(7)).WillReturnRows(counter(0))
	mock.ExpectExec("UPDATE rides SET reserved_seats = reserved_seats \\+").
		WithArgs(2, int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec("INSERT INTO bookings").WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec("INSERT INTO payments").WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec("UPDATE payments SET status").
		WithArgs(models.PaymentPaid, "MP-CHG-1", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM payouts WHERE booking_id=").WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO payouts").WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectExec("UPDATE payouts SET status").
		WithArgs(models.PaymentPaid, "MP-PAY-1", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bookings SET status").
		WithArgs(models.BookingConfirmed, int64(42), models.BookingPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM bookings WHERE id=").WithArgs(int64(42)).
		WillReturnRows(bookingRow(42, models.BookingConfirmed))

	// second passenger sees the drained counter under the row lock
	mock.ExpectQuery("FROM rides WHERE id=").WithArgs(int64(7)).WillReturnRows(smallRide(2))
	mock.ExpectQuery("FROM users WHERE id=").WithArgs(int64(3)).WillReturnRows(driverRow())
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT total_seats, reserved_seats, status FROM rides").
		WithArgs(int64(7)).WillReturnRows(counter(2))
	mock.ExpectRollback()

	first, err := c.PlaceBooking(context.Background(), placeInput())
	if err != nil {
		t.Fatalf("first booking should confirm, got %v", err)
	}
	if first.Status != models.BookingConfirmed {
		t.Fatalf("first booking status = %s, want CONFIRMED", first.Status)
	}

	second := placeInput()
	second.PassengerID = 12
	_, err = c.PlaceBooking(context.Background(), second)
	var capErr domain.CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("second booking should hit capacity, got %v", err)
	}
	if capErr.Available != 0 || capErr.Requested != 2 {
		t.Fatalf("capacity error misreports: available=%d requested=%d", capErr.Available, capErr.Requested)
	}

	// all gateway traffic belongs to the winner
	if len(gw.calls) != 2 {
		t.Fatalf("gateway calls = %d, want 2 (winner's charge and payout)", len(gw.calls))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCancelBookingRefundsPaidCharge(t *testing.T) {
	gw := &scriptedGateway{refundQ: []gateway.Result{ok("MP-RFD-2")}}
	c, mock, closeDB := newCoordinator(t, gw)
	defer closeDB()

	mock.ExpectQuery("FROM bookings WHERE id=").WithArgs(int64(42)).
		WillReturnRows(bookingRow(42, models.BookingConfirmed))
	mock.ExpectQuery("FROM payments WHERE booking_id=").WithArgs(int64(42)).
		WillReturnRows(paymentRow(9, 42, 100000, models.PaymentPaid))
	mock.ExpectExec("UPDATE payments SET status").
		WithArgs(models.PaymentRefunded, "MP-RFD-2", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// the settled driver payout gets flagged for claw-back
	mock.ExpectQuery("FROM payouts WHERE booking_id=").WithArgs(int64(42)).
		WillReturnRows(payoutRow(3, 42, 90000, models.PaymentPaid))
	mock.ExpectExec("UPDATE payouts SET status").
		WithArgs(models.PaymentFailed, "MP-PAY-1", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// guarded cancel first, then the seats go back
	mock.ExpectExec("UPDATE bookings SET status").
		WithArgs(models.BookingCancelled, int64(42), models.BookingConfirmed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE rides SET reserved_seats = reserved_seats -").
		WithArgs(2, int64(7), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM bookings WHERE id=").WithArgs(int64(42)).
		WillReturnRows(bookingRow(42, models.BookingCancelled))

	booking, err := c.CancelBooking(context.Background(), 42)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if booking.Status != models.BookingCancelled {
		t.Fatalf("booking status = %s, want CANCELLED", booking.Status)
	}
	if got := gw.keysFor("refund"); len(got) != 1 || got[0] != "BK42-RFD" {
		t.Fatalf("refund keys = %v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// A cancel that loses the guarded status transition must leave the seat
// counter alone: whichever actor won the transition owns the release,
// and a second decrement would oversell the ride.
func TestCancelBookingLosingStatusRaceKeepsSeats(t *testing.T) {
	gw := &scriptedGateway{refundQ: []gateway.Result{ok("MP-RFD-3")}}
	c, mock, closeDB := newCoordinator(t, gw)
	defer closeDB()

	mock.ExpectQuery("FROM bookings WHERE id=").WithArgs(int64(42)).
		WillReturnRows(bookingRow(42, models.BookingConfirmed))
	mock.ExpectQuery("FROM payments WHERE booking_id=").WithArgs(int64(42)).
		WillReturnRows(paymentRow(9, 42, 100000, models.PaymentPaid))
	mock.ExpectExec("UPDATE payments SET status").
		WithArgs(models.PaymentRefunded, "MP-RFD-3", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM payouts WHERE booking_id=").WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	// a concurrent cancel already moved the row: zero rows match
	mock.ExpectExec("UPDATE bookings SET status").
		WithArgs(models.BookingCancelled, int64(42), models.BookingConfirmed).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := c.CancelBooking(context.Background(), 42)
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict after losing the status race, got %v", err)
	}

	// no rides decrement was scripted: releasing here would have failed
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCancelBookingRejectsInFlightCharge(t *testing.T) {
	gw := &scriptedGateway{}
	c, mock, closeDB := newCoordinator(t, gw)
	defer closeDB()

	mock.ExpectQuery("FROM bookings WHERE id=").WithArgs(int64(42)).
		WillReturnRows(bookingRow(42, models.BookingPending))
	mock.ExpectQuery("FROM payments WHERE booking_id=").WithArgs(int64(42)).
		WillReturnRows(paymentRow(9, 42, 100000, models.PaymentPending))

	_, err := c.CancelBooking(context.Background(), 42)
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict while charge is in flight, got %v", err)
	}
	if len(gw.calls) != 0 {
		t.Fatalf("no gateway call expected, got %d", len(gw.calls))
	}
}
