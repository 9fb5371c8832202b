// README: Delivery feasibility endpoint.
package handlers

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"vetrimart/internal/modules/delivery"
	"vetrimart/internal/modules/slot"
)

type DeliveryHandler struct {
	delivery *delivery.Service
	clock    Clock
}

func NewDeliveryHandler(svc *delivery.Service, clock Clock) *DeliveryHandler {
	return &DeliveryHandler{delivery: svc, clock: clock}
}

// Coordinates arrive either as JSON numbers or as form strings.
type feasibilityReq struct {
	ZoneID    string `json:"zone_id"`
	Latitude  any    `json:"latitude"`
	Longitude any    `json:"longitude"`
	Slot      string `json:"slot"`
	Mode      string `json:"mode"`
}

type feasibilityResp struct {
	Success          bool    `json:"success"`
	Message          string  `json:"message"`
	Mode             string  `json:"mode"`
	DistanceKm       float64 `json:"distance_km"`
	EstimatedMinutes float64 `json:"estimated_minutes"`
	BufferMinutes    int     `json:"buffer_minutes,omitempty"`
	ETA              string  `json:"eta"`
	ETATime          string  `json:"eta_time"`
	DayLabel         string  `json:"day_label"`
	SlotWindow       string  `json:"slot_window"`
}

func (h *DeliveryHandler) Feasibility(c *gin.Context) {
	var req feasibilityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	mode := delivery.Mode(req.Mode)
	if mode != "" && mode != delivery.ModeDispatch && mode != delivery.ModeDeadline {
		writeError(c, http.StatusBadRequest, "mode must be dispatch or deadline")
		return
	}
	res, err := h.delivery.Check(c.Request.Context(), delivery.CheckRequest{
		ZoneID:    req.ZoneID,
		Latitude:  rawString(req.Latitude),
		Longitude: rawString(req.Longitude),
		Slot:      req.Slot,
		Mode:      mode,
	}, h.clock.now())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toFeasibilityResp(res))
}

func toFeasibilityResp(r delivery.Result) feasibilityResp {
	return feasibilityResp{
		Success:          r.Feasible,
		Message:          r.Message,
		Mode:             string(r.Mode),
		DistanceKm:       round2(r.DistanceKm),
		EstimatedMinutes: round2(r.EstimatedMinutes),
		BufferMinutes:    r.BufferMinutes,
		ETA:              slot.Format(r.ETA),
		ETATime:          r.ETA.Format(time.RFC3339),
		DayLabel:         r.DayLabel,
		SlotWindow:       r.Window.String(),
	}
}

func rawString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprint(t)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
