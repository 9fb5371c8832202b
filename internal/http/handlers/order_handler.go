// README: Order handlers for checkout, payment callback, tracking, edit and cancel.
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"vetrimart/internal/http/middleware"
	"vetrimart/internal/modules/cart"
	"vetrimart/internal/modules/delivery"
	"vetrimart/internal/modules/order"
	"vetrimart/internal/modules/zone"
	"vetrimart/internal/types"
)

type OrderHandler struct {
	order     *order.Service
	delivery  *delivery.Service
	selection zone.Selection
	clock     Clock
}

func NewOrderHandler(svc *order.Service, deliverySvc *delivery.Service, selection zone.Selection, clock Clock) *OrderHandler {
	return &OrderHandler{order: svc, delivery: deliverySvc, selection: selection, clock: clock}
}

type lineReq struct {
	CartItemID  string `json:"cart_item_id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

type createOrderReq struct {
	ZoneID        string    `json:"zone_id"`
	FullName      string    `json:"full_name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	StreetAddress string    `json:"street_address"`
	City          string    `json:"city"`
	Latitude      *float64  `json:"latitude"`
	Longitude     *float64  `json:"longitude"`
	Slot          string    `json:"slot"`
	PaymentMethod string    `json:"payment_method"`
	BuyNow        bool      `json:"buy_now"`
	Items         []lineReq `json:"items"`
}

// checkoutZone resolves the zone named in the request, or else the one the
// customer picked earlier in the session. Having no zone is allowed; naming one
// that does not resolve is not.
func (h *OrderHandler) checkoutZone(ctx context.Context, c *gin.Context, requested string) (*zone.Zone, error) {
	id := types.ID(strings.TrimSpace(requested))
	if id == "" {
		id = h.sessionZone(ctx, c)
	}
	if id == "" {
		return nil, nil
	}
	return h.delivery.Zone(ctx, id)
}

func (h *OrderHandler) sessionZone(ctx context.Context, c *gin.Context) types.ID {
	sid := strings.TrimSpace(c.GetHeader(SessionHeader))
	if h.selection == nil || !isValidID(sid) {
		return ""
	}
	id, ok, err := h.selection.Selected(ctx, sid)
	if err != nil || !ok {
		return ""
	}
	return id
}

// checkoutDestination takes the map pin when one was dropped and the zone
// centre otherwise.
func checkoutDestination(lat, lng *float64, z *zone.Zone) (types.GeoPoint, error) {
	switch {
	case lat != nil && lng != nil:
		p := types.GeoPoint{Lat: *lat, Lng: *lng}
		if err := p.Validate(); err != nil {
			return types.GeoPoint{}, delivery.ErrInvalidCoordinates
		}
		return p, nil
	case lat != nil || lng != nil:
		return types.GeoPoint{}, delivery.ErrInvalidCoordinates
	case z != nil && z.Coordinates != nil:
		return *z.Coordinates, nil
	}
	return types.GeoPoint{}, delivery.ErrInvalidCoordinates
}

func toLines(items []lineReq, buyNow bool) ([]cart.Line, bool) {
	if len(items) == 0 || (buyNow && len(items) != 1) {
		return nil, false
	}
	lines := make([]cart.Line, 0, len(items))
	for _, it := range items {
		price, err := decimal.NewFromString(strings.TrimSpace(it.UnitPrice))
		if err != nil || !isValidID(it.ProductID) {
			return nil, false
		}
		ref := cart.ProductRef{ID: types.ID(it.ProductID), Name: it.ProductName}
		if buyNow {
			lines = append(lines, cart.BuyNowItem{Ref: ref, Qty: it.Quantity, Price: price})
			continue
		}
		lines = append(lines, cart.RegularItem{CartItemID: types.ID(it.CartItemID), Ref: ref, Qty: it.Quantity, Price: price})
	}
	return lines, true
}

// eta promises slot start plus the handling buffer. An unparseable slot is
// left for the service to reject.
func (h *OrderHandler) eta(dest types.GeoPoint, slotRaw string, now time.Time) *time.Time {
	res, err := h.delivery.Evaluator().EvaluateDispatch(dest, slotRaw, now)
	if err != nil {
		return nil
	}
	t := res.ETA
	return &t
}

func (h *OrderHandler) Create(c *gin.Context) {
	uid := middleware.CallerUID(c)
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	lines, ok := toLines(req.Items, req.BuyNow)
	if !ok {
		writeError(c, http.StatusBadRequest, "invalid items")
		return
	}
	ctx := c.Request.Context()
	now := h.clock.now()
	z, err := h.checkoutZone(ctx, c, req.ZoneID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	dest, err := checkoutDestination(req.Latitude, req.Longitude, z)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	var zoneID *types.ID
	if z != nil {
		id := z.ID
		zoneID = &id
	}
	res, err := h.order.Create(ctx, order.CreateCommand{
		CustomerID:  types.ID(uid),
		ZoneID:      zoneID,
		Destination: dest,
		Slot:        req.Slot,
		Contact: order.Contact{
			FullName:      req.FullName,
			Email:         req.Email,
			Phone:         req.Phone,
			StreetAddress: req.StreetAddress,
			City:          req.City,
		},
		PaymentMethod: req.PaymentMethod,
		Lines:         lines,
		ETA:           h.eta(dest, req.Slot, now),
	}, now)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{
		"status":             res.Status,
		"order_id":           res.OrderID,
		"gateway_order_id":   res.GatewayOrderID,
		"amount_minor_units": res.AmountMinorUnits,
		"gateway_key":        res.GatewayKey,
	})
}

type verifyReq struct {
	OrderID          string `json:"order_id"`
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	GatewaySignature string `json:"gateway_signature"`
}

func (h *OrderHandler) VerifyPayment(c *gin.Context) {
	var req verifyReq
	if err := c.ShouldBindJSON(&req); err != nil || !isValidID(req.OrderID) {
		writeError(c, http.StatusBadRequest, "invalid request")
		return
	}
	o, err := h.order.VerifyPayment(c.Request.Context(), order.VerifyCommand{
		OrderID:          types.ID(req.OrderID),
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.GatewaySignature,
	}, h.clock.now())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "success", "order_id": o.ID, "order_status": o.Status})
}

func (h *OrderHandler) Track(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid order id")
		return
	}
	t, err := h.order.Track(c.Request.Context(), types.ID(id), types.ID(middleware.CallerUID(c)), h.clock.now())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	resp := gin.H{
		"order_id":     t.OrderID,
		"driver_lat":   nil,
		"driver_lon":   nil,
		"customer_lat": t.Customer.Lat,
		"customer_lon": t.Customer.Lng,
		"status":       t.Status,
	}
	if t.Driver != nil {
		resp["driver_lat"] = t.Driver.Lat
		resp["driver_lon"] = t.Driver.Lng
	}
	writeJSON(c, http.StatusOK, resp)
}

type itemJSON struct {
	ProductID   types.ID `json:"product_id"`
	ProductName string   `json:"product_name"`
	Quantity    int      `json:"quantity"`
	UnitPrice   string   `json:"unit_price"`
	LineTotal   string   `json:"line_total"`
}

type orderJSON struct {
	ID                   types.ID     `json:"order_id"`
	Status               order.Status `json:"status"`
	PaymentStatus        string       `json:"payment_status"`
	PaymentMethod        string       `json:"payment_method"`
	ZoneID               *types.ID    `json:"zone_id,omitempty"`
	FullName             string       `json:"full_name"`
	StreetAddress        string       `json:"street_address"`
	City                 string       `json:"city"`
	Latitude             float64      `json:"latitude"`
	Longitude            float64      `json:"longitude"`
	Slot                 string       `json:"slot"`
	Subtotal             string       `json:"subtotal"`
	Tax                  string       `json:"tax"`
	TotalAmount          string       `json:"total_amount"`
	ExpectedDeliveryTime *time.Time   `json:"expected_delivery_time,omitempty"`
	CancelReason         *string      `json:"cancel_reason,omitempty"`
	CreatedAt            time.Time    `json:"created_at"`
	Items                []itemJSON   `json:"items"`
}

func toOrderJSON(o *order.Order) orderJSON {
	out := orderJSON{
		ID:                   o.ID,
		Status:               o.Status,
		PaymentStatus:        string(o.PaymentStatus),
		PaymentMethod:        o.PaymentMethod,
		ZoneID:               o.ZoneID,
		FullName:             o.Contact.FullName,
		StreetAddress:        o.Contact.StreetAddress,
		City:                 o.Contact.City,
		Latitude:             o.Destination.Lat,
		Longitude:            o.Destination.Lng,
		Slot:                 o.Slot,
		Subtotal:             o.Subtotal.StringFixed(2),
		Tax:                  o.Tax.StringFixed(2),
		TotalAmount:          o.TotalAmount.StringFixed(2),
		ExpectedDeliveryTime: o.ExpectedDeliveryTime,
		CancelReason:         o.CancelReason,
		CreatedAt:            o.CreatedAt,
		Items:                make([]itemJSON, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, itemJSON{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice.StringFixed(2),
			LineTotal:   it.LineTotal().StringFixed(2),
		})
	}
	return out
}

func (h *OrderHandler) List(c *gin.Context) {
	orders, err := h.order.ListByCustomer(c.Request.Context(), types.ID(middleware.CallerUID(c)))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]orderJSON, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderJSON(o))
	}
	writeJSON(c, http.StatusOK, gin.H{"orders": out})
}

func (h *OrderHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid order id")
		return
	}
	o, err := h.order.GetForCustomer(c.Request.Context(), types.ID(id), types.ID(middleware.CallerUID(c)))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toOrderJSON(o))
}

type editOrderReq struct {
	StreetAddress string   `json:"street_address"`
	City          string   `json:"city"`
	ZoneID        string   `json:"zone_id"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	Slot          string   `json:"slot"`
}

func (h *OrderHandler) Edit(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid order id")
		return
	}
	var req editOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		writeError(c, http.StatusBadRequest, "latitude and longitude go together")
		return
	}
	ctx := c.Request.Context()
	uid := types.ID(middleware.CallerUID(c))
	now := h.clock.now()
	cmd := order.EditCommand{
		OrderID:       types.ID(id),
		CustomerID:    uid,
		StreetAddress: req.StreetAddress,
		City:          req.City,
		Slot:          req.Slot,
	}
	if raw := strings.TrimSpace(req.ZoneID); raw != "" {
		z, err := h.delivery.Zone(ctx, types.ID(raw))
		if err != nil {
			writeDomainError(c, err)
			return
		}
		zid := z.ID
		cmd.ZoneID = &zid
	}
	if req.Latitude != nil {
		cmd.Destination = &types.GeoPoint{Lat: *req.Latitude, Lng: *req.Longitude}
	}
	// A new pin or slot moves the promised ETA.
	if cmd.Destination != nil || cmd.Slot != "" {
		cur, err := h.order.GetForCustomer(ctx, cmd.OrderID, uid)
		if err != nil {
			writeDomainError(c, err)
			return
		}
		dest, slotRaw := cur.Destination, cur.Slot
		if cmd.Destination != nil {
			dest = *cmd.Destination
		}
		if cmd.Slot != "" {
			slotRaw = cmd.Slot
		}
		cmd.ETA = h.eta(dest, slotRaw, now)
	}
	o, err := h.order.Edit(ctx, cmd, now)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toOrderJSON(o))
}

type cancelOrderReq struct {
	Reason      string `json:"reason"`
	OtherReason string `json:"other_reason"`
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid order id")
		return
	}
	var req cancelOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	o, err := h.order.Cancel(c.Request.Context(), order.CancelCommand{
		OrderID:     types.ID(id),
		CustomerID:  types.ID(middleware.CallerUID(c)),
		Reason:      req.Reason,
		OtherReason: req.OtherReason,
	}, h.clock.now())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"order_id": o.ID, "status": o.Status, "cancel_reason": o.CancelReason})
}
