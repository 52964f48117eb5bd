package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ridepool/internal/utils"
)

// MpesaGateway talks to the mobile-money HTTP API. The provider keys
// every call by our idempotency key, so resubmitting after a timeout
// cannot double-move money.
type MpesaGateway struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewMpesaGateway(baseURL, apiKey string, timeout time.Duration) *MpesaGateway {
	return &MpesaGateway{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: timeout},
	}
}

type mpesaRequest struct {
	Reference string `json:"reference"`
	MSISDN    string `json:"msisdn"`
	Amount    string `json:"amount"`
}

type mpesaResponse struct {
	TransactionID string `json:"transaction_id"`
	ResultCode    string `json:"result_code"`
	ResultDesc    string `json:"result_desc"`
}

func (g *MpesaGateway) Charge(ctx context.Context, msisdn string, amount int64, idemKey string) (Result, error) {
	return g.call(ctx, "charge", "/c2b/charge", msisdn, amount, idemKey)
}

func (g *MpesaGateway) Payout(ctx context.Context, msisdn string, amount int64, idemKey string) (Result, error) {
	return g.call(ctx, "payout", "/b2c/payout", msisdn, amount, idemKey)
}

func (g *MpesaGateway) Refund(ctx context.Context, msisdn string, amount int64, idemKey string) (Result, error) {
	return g.call(ctx, "refund", "/c2b/refund", msisdn, amount, idemKey)
}

func (g *MpesaGateway) call(ctx context.Context, op, path, msisdn string, amount int64, idemKey string) (Result, error) {
	body, err := json.Marshal(mpesaRequest{
		Reference: idemKey,
		MSISDN:    normalizeMSISDN(msisdn),
		Amount:    utils.FormatAmount(amount),
	})
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.APIKey)
	req.Header.Set("X-Idempotency-Key", idemKey)

	resp, err := g.Client.Do(req)
	if err != nil {
		// timeout or transport failure: outcome unknown, never assume declined
		return Result{Status: StatusTransient, Detail: err.Error()}, nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{Status: StatusTransient, Detail: err.Error()}, nil
	}

	var out mpesaResponse
	if err := json.Unmarshal(raw, &out); err != nil && resp.StatusCode < 300 {
		return Result{}, fmt.Errorf("mpesa %s: bad response: %w", op, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out.TransactionID == "" {
			out.TransactionID = idemKey
		}
		return Result{Status: StatusSucceeded, ProviderRef: out.TransactionID, Detail: out.ResultDesc}, nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return Result{Status: StatusTransient, ProviderRef: out.TransactionID, Detail: out.ResultDesc}, nil
	default:
		return Result{Status: StatusDeclined, ProviderRef: out.TransactionID, Detail: out.ResultDesc}, nil
	}
}

func normalizeMSISDN(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(s)
	s = strings.TrimPrefix(s, "+")
	return s
}

var errNoGateway = errors.New("gateway not configured")

// Noop is used when no provider is configured; every call fails as
// declined so nothing appears settled by accident.
type Noop struct{}

func (Noop) Charge(context.Context, string, int64, string) (Result, error) {
	return Result{Status: StatusDeclined, Detail: errNoGateway.Error()}, nil
}

func (Noop) Payout(context.Context, string, int64, string) (Result, error) {
	return Result{Status: StatusDeclined, Detail: errNoGateway.Error()}, nil
}

func (Noop) Refund(context.Context, string, int64, string) (Result, error) {
	return Result{Status: StatusDeclined, Detail: errNoGateway.Error()}, nil
}
