// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"vetrimart/internal/maps"
	"vetrimart/internal/modules/delivery"
	"vetrimart/internal/modules/order"
	"vetrimart/internal/modules/payment"
	"vetrimart/internal/modules/slot"
	"vetrimart/internal/modules/zone"
	"vetrimart/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

// Clock is injected so handlers never read the wall clock directly.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// isValidID ensures IDs are alphanumeric and at most 32 chars (matches current ID generator).
func isValidID(v string) bool {
	if v == "" || len(v) > 32 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

const retryMessage = "order is being updated, please retry"

// errorTable maps domain sentinels to status codes. The sentinel's own text
// is returned, never the wrapped detail.
var errorTable = []struct {
	err    error
	status int
}{
	{order.ErrBadRequest, http.StatusBadRequest},
	{zone.ErrBadRequest, http.StatusBadRequest},
	{zone.ErrCityMismatch, http.StatusBadRequest},
	{delivery.ErrInvalidZone, http.StatusBadRequest},
	{delivery.ErrInvalidCoordinates, http.StatusBadRequest},
	{delivery.ErrMissingFields, http.StatusBadRequest},
	{slot.ErrInvalidSlotFormat, http.StatusBadRequest},
	{types.ErrInvalidPoint, http.StatusBadRequest},
	{payment.ErrInvalidAmount, http.StatusBadRequest},
	{order.ErrNotFound, http.StatusNotFound},
	{zone.ErrNotFound, http.StatusNotFound},
	{maps.ErrNoAddress, http.StatusNotFound},
	{order.ErrOrderLocked, http.StatusConflict},
	{order.ErrEditInstead, http.StatusConflict},
	{order.ErrInvalidState, http.StatusConflict},
	{order.ErrPaymentVerification, http.StatusBadGateway},
	{payment.ErrGateway, http.StatusBadGateway},
	{payment.ErrMissingCredential, http.StatusBadGateway},
}

func writeDomainError(c *gin.Context, err error) {
	if errors.Is(err, order.ErrConflict) || errors.Is(err, order.ErrLockTimeout) {
		writeError(c, http.StatusConflict, retryMessage)
		return
	}
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			writeError(c, e.status, e.err.Error())
			return
		}
	}
	log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	writeError(c, http.StatusInternalServerError, "internal error")
}

// parseFloatParam reads a decimal-degree value from query or form input.
func parseFloatParam(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
