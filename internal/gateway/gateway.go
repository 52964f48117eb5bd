package gateway

import "context"

// Status tags a gateway call outcome. Transient is distinguished from
// Declined because only the former is safe to retry automatically with
// the same idempotency key.
type Status string

const (
	StatusSucceeded Status = "SUCCEEDED"
	StatusDeclined  Status = "DECLINED"
	StatusTransient Status = "TRANSIENT_FAILURE"
)

// Result carries the outcome tag plus the provider transaction id.
type Result struct {
	Status      Status
	ProviderRef string
	Detail      string
}

// Gateway abstracts the mobile-money provider. Amounts are minor
// units; msisdn identifies the payer or payee wallet; idemKey makes
// retried calls safe on the provider side.
type Gateway interface {
	Charge(ctx context.Context, msisdn string, amount int64, idemKey string) (Result, error)
	Payout(ctx context.Context, msisdn string, amount int64, idemKey string) (Result, error)
	Refund(ctx context.Context, msisdn string, amount int64, idemKey string) (Result, error)
}
