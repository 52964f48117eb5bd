package services

import (
	"context"
	"testing"

	"ridepool/internal/domain/models"
	"ridepool/internal/gateway"

	"github.com/DATA-DOG/go-sqlmock"
)

func expectStaleBookings(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery("FROM bookings WHERE status=").
		WithArgs(models.BookingPending, sqlmock.AnyArg(), 50).
		WillReturnRows(rows)
}

func TestSweepCancelsDeclinedReplay(t *testing.T) {
	gw := &scriptedGateway{chargeQ: []gateway.Result{declined("insufficient funds")}}
	c, mock, closeDB := newCoordinator(t, gw)
	defer closeDB()
	r := Reconciler{Coordinator: c}

	expectStaleBookings(mock, bookingRow(42, models.BookingPending))
	mock.ExpectQuery("FROM payments WHERE booking_id=").WithArgs(int64(42)).
		WillReturnRows(paymentRow(9, 42, 100000, models.PaymentPending))
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

	n, err := r.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("resolved = %d, want 1", n)
	}
	// the replay must reuse the booking's original charge key
	if got := gw.keysFor("charge"); len(got) != 1 || got[0] != "BK42-CHG" {
		t.Fatalf("charge keys = %v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// When a caller cancels the booking between the sweep's listing and its
// status transition, the sweep loses the guarded update and must not
// decrement the counter a second time.
func TestSweepLosingCancelRaceKeepsSeats(t *testing.T) {
	gw := &scriptedGateway{}
	c, mock, closeDB := newCoordinator(t, gw)
	defer closeDB()
	r := Reconciler{Coordinator: c}

	expectStaleBookings(mock, bookingRow(42, models.BookingPending))
	mock.ExpectQuery("FROM payments WHERE booking_id=").WithArgs(int64(42)).
		WillReturnRows(paymentRow(9, 42, 100000, models.PaymentFailed))
	// the booking already moved on: zero rows match the transition
	mock.ExpectExec("UPDATE bookings SET status").
		WithArgs(models.BookingCancelled, int64(42), models.BookingPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := r.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("resolved = %d, want 0; the other actor owns this booking", n)
	}

	// no rides decrement was scripted: releasing here would have failed
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSweepFinishesPaidBooking(t *testing.T) {
	gw := &scriptedGateway{payoutQ: []gateway.Result{ok("MP-PAY-9")}}
	c, mock, closeDB := newCoordinator(t, gw)
	defer closeDB()
	r := Reconciler{Coordinator: c}

	expectStaleBookings(mock, bookingRow(42, models.BookingPending))
	mock.ExpectQuery("FROM payments WHERE booking_id=").WithArgs(int64(42)).
		WillReturnRows(paymentRow(9, 42, 100000, models.PaymentPaid))
	mock.ExpectQuery("FROM rides WHERE id=").WithArgs(int64(7)).WillReturnRows(rideRow())
	mock.ExpectQuery("FROM users WHERE id=").WithArgs(int64(3)).WillReturnRows(driverRow())
	mock.ExpectQuery("FROM payouts WHERE booking_id=").WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO payouts").WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectExec("UPDATE payouts SET status").
		WithArgs(models.PaymentPaid, "MP-PAY-9", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bookings SET status").
		WithArgs(models.BookingConfirmed, int64(42), models.BookingPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM bookings WHERE id=").WithArgs(int64(42)).
		WillReturnRows(bookingRow(42, models.BookingConfirmed))

	n, err := r.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("resolved = %d, want 1", n)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSweepLeavesTransientChargePending(t *testing.T) {
	gw := &scriptedGateway{} // transient forever
	c, mock, closeDB := newCoordinator(t, gw)
	defer closeDB()
	r := Reconciler{Coordinator: c}

	expectStaleBookings(mock, bookingRow(42, models.BookingPending))
	mock.ExpectQuery("FROM payments WHERE booking_id=").WithArgs(int64(42)).
		WillReturnRows(paymentRow(9, 42, 100000, models.PaymentPending))

	n, err := r.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("resolved = %d, want 0; transient bookings stay pending", n)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
