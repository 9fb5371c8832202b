// README: Zone lookup endpoints and the session's selected-zone context.
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"vetrimart/internal/modules/zone"
	"vetrimart/internal/types"
)

const SessionHeader = "X-Session-ID"

type ZoneHandler struct {
	zones     *zone.Resolver
	selection zone.Selection
}

func NewZoneHandler(zones *zone.Resolver, selection zone.Selection) *ZoneHandler {
	return &ZoneHandler{zones: zones, selection: selection}
}

type zoneJSON struct {
	ID         types.ID `json:"id"`
	AreaName   string   `json:"area_name"`
	Pincode    string   `json:"pincode"`
	City       string   `json:"city"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	DelayHours float64  `json:"delay_hours"`
	Slots      []string `json:"slots"`
}

func toZoneJSON(z zone.Zone) zoneJSON {
	out := zoneJSON{
		ID:         z.ID,
		AreaName:   z.AreaName,
		Pincode:    z.Pincode,
		City:       z.City,
		DelayHours: z.DelayHours,
		Slots:      z.Slots,
	}
	if z.Coordinates != nil {
		lat, lng := z.Coordinates.Lat, z.Coordinates.Lng
		out.Latitude, out.Longitude = &lat, &lng
	}
	if out.Slots == nil {
		out.Slots = []string{}
	}
	return out
}

func availabilityMessage(z *zone.Zone) string {
	return fmt.Sprintf("Delivery available in %s (%s) within %g hours.", z.AreaName, z.City, z.DelayHours)
}

func (h *ZoneHandler) List(c *gin.Context) {
	zones, err := h.zones.ListActive(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]zoneJSON, 0, len(zones))
	for _, z := range zones {
		out = append(out, toZoneJSON(z))
	}
	writeJSON(c, http.StatusOK, gin.H{"zones": out})
}

// Check resolves a pincode or area name typed by the customer.
func (h *ZoneHandler) Check(c *gin.Context) {
	z, err := h.zones.FindByPincodeOrArea(c.Request.Context(), c.Query("query"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"available": true, "message": availabilityMessage(z), "zone": toZoneJSON(*z)})
}

func (h *ZoneHandler) Pincode(c *gin.Context) {
	z, err := h.zones.CheckPincode(c.Request.Context(), c.Query("pincode"), c.Query("city"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"available": true, "message": availabilityMessage(z), "zone": toZoneJSON(*z)})
}

func (h *ZoneHandler) Slots(c *gin.Context) {
	slots, delay, err := h.zones.Slots(c.Request.Context(), c.Query("pincode"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if slots == nil {
		slots = []string{}
	}
	writeJSON(c, http.StatusOK, gin.H{"slots": slots, "delay_hours": delay})
}

type nearestReq struct {
	Latitude  any `json:"latitude"`
	Longitude any `json:"longitude"`
}

func (h *ZoneHandler) Nearest(c *gin.Context) {
	var req nearestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	lat, okLat := parseFloatParam(rawString(req.Latitude))
	lng, okLng := parseFloatParam(rawString(req.Longitude))
	p := types.GeoPoint{Lat: lat, Lng: lng}
	if !okLat || !okLng || p.Validate() != nil {
		writeError(c, http.StatusBadRequest, "invalid coordinates")
		return
	}
	m, err := h.zones.Nearest(c.Request.Context(), p)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"zone_id":     m.Zone.ID,
		"zone_name":   m.Zone.AreaName,
		"pincode":     m.Zone.Pincode,
		"distance_km": round2(m.DistanceKm),
	})
}

type selectZoneReq struct {
	ZoneID string `json:"zone_id"`
}

func sessionID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.GetHeader(SessionHeader))
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "missing or invalid "+SessionHeader)
		return "", false
	}
	return id, true
}

func (h *ZoneHandler) Select(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req selectZoneReq
	if err := c.ShouldBindJSON(&req); err != nil || !isValidID(req.ZoneID) {
		writeError(c, http.StatusBadRequest, "invalid zone_id")
		return
	}
	z, err := h.zones.Get(c.Request.Context(), types.ID(req.ZoneID))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	prev, err := h.selection.Select(c.Request.Context(), sid, z.ID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	resp := gin.H{"zone_id": z.ID, "zone": toZoneJSON(*z)}
	if prev != "" {
		resp["previous_zone_id"] = prev
	}
	writeJSON(c, http.StatusOK, resp)
}

func (h *ZoneHandler) Selected(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	id, found, err := h.selection.Selected(c.Request.Context(), sid)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if !found {
		writeError(c, http.StatusNotFound, "no zone selected")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"zone_id": id})
}

func (h *ZoneHandler) Clear(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	if err := h.selection.Clear(c.Request.Context(), sid); err != nil {
		writeDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
