package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"sync"

	"ridepool/internal/services"

	"github.com/gin-gonic/gin"
)

var (
	depsMu    sync.RWMutex
	coord     services.Coordinator
	jwtSecret []byte
	currency  = "KES"
)

// Configure stores the wired coordinator, auth secret and default
// currency for the package-level handlers.
func Configure(c services.Coordinator, secretValue, defaultCurrency string) {
	depsMu.Lock()
	defer depsMu.Unlock()
	coord = c
	jwtSecret = []byte(secretValue)
	if defaultCurrency != "" {
		currency = defaultCurrency
	}
}

func coordinator() services.Coordinator {
	depsMu.RLock()
	defer depsMu.RUnlock()
	return coord
}

func secret() []byte {
	depsMu.RLock()
	defer depsMu.RUnlock()
	return jwtSecret
}

func coordinatorCurrency() string {
	depsMu.RLock()
	defer depsMu.RUnlock()
	return currency
}

// BindJSONOrError ensures body is present and parsable.
func BindJSONOrError[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil {
		respondError(c, http.StatusBadRequest, "validation_error", "empty body", nil)
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "invalid payload", err.Error())
		return false
	}
	return true
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "validation_error", "invalid id", nil)
		return 0, false
	}
	return id, true
}

func pageParams(c *gin.Context) (limit, offset int) {
	limit = 100
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := strings.TrimSpace(c.Query("page")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	return limit, offset
}
