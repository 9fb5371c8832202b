// README: Reverse geocoding for the checkout map pin.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vetrimart/internal/maps"
	"vetrimart/internal/types"
)

type GeocodeHandler struct {
	geocode *maps.GeocodeService
}

func NewGeocodeHandler(svc *maps.GeocodeService) *GeocodeHandler {
	return &GeocodeHandler{geocode: svc}
}

func (h *GeocodeHandler) Reverse(c *gin.Context) {
	lat, okLat := parseFloatParam(c.Query("lat"))
	lng, okLng := parseFloatParam(c.Query("lon"))
	if !okLat || !okLng {
		writeError(c, http.StatusBadRequest, "lat and lon are required")
		return
	}
	if h.geocode == nil {
		writeError(c, http.StatusServiceUnavailable, "geocoding not configured")
		return
	}
	addr, err := h.geocode.Reverse(c.Request.Context(), types.GeoPoint{Lat: lat, Lng: lng})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, addr)
}
