package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Env struct {
	AppAddr string
	GinMode string

	DBUser string
	DBPass string
	DBHost string
	DBName string

	JWTSecret string

	// Mobile-money gateway
	GatewayBaseURL string
	GatewayAPIKey  string
	GatewayTimeout time.Duration

	// Coordinator policy
	PayoutFraction  float64
	DefaultCurrency string

	// Reconciler policy
	ReconcileInterval time.Duration
	PendingTimeout    time.Duration
}

func LoadEnv() Env {
	return Env{
		AppAddr: envString("APP_ADDR", ":8080"),
		GinMode: envString("GIN_MODE", ""),

		DBUser: envString("DB_USER", "root"),
		DBPass: envString("DB_PASS", ""),
		DBHost: envString("DB_HOST", "127.0.0.1:3306"),
		DBName: envString("DB_NAME", "ridepool"),

		JWTSecret: envString("JWT_SECRET", "super-secret-key-change-me"),

		// Empty means no gateway configured; main falls back to the
		// declining no-op adapter.
		GatewayBaseURL: envString("GATEWAY_BASE_URL", ""),
		GatewayAPIKey:  envString("GATEWAY_API_KEY", ""),
		GatewayTimeout: envDuration("GATEWAY_TIMEOUT", 15*time.Second),

		PayoutFraction:  envFloat("PAYOUT_FRACTION", 0.9),
		DefaultCurrency: envString("DEFAULT_CURRENCY", "KES"),

		ReconcileInterval: envDuration("RECONCILE_INTERVAL", time.Minute),
		PendingTimeout:    envDuration("PENDING_TIMEOUT", 10*time.Minute),
	}
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("config: %s=%q invalid, using default %s", key, v, def)
		return def
	}
	return d
}

func envFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 || f > 1 {
		log.Printf("config: %s=%q invalid, using default %.2f", key, v, def)
		return def
	}
	return f
}
