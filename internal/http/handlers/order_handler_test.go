// README: HTTP tests for auth checks, the checkout flow and the zone/delivery endpoints.
package handlers_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	httptransport "vetrimart/internal/http"
	"vetrimart/internal/infra"
	"vetrimart/internal/modules/delivery"
	"vetrimart/internal/modules/order"
	"vetrimart/internal/modules/payment"
	"vetrimart/internal/modules/zone"
	"vetrimart/internal/types"
)

var (
	ist       = time.FixedZone("IST", 5*3600+1800)
	warehouse = types.GeoPoint{Lat: 12.97, Lng: 77.59}
	testNow   = time.Date(2026, 3, 10, 9, 0, 0, 0, ist)
)

const testSecret = "test_secret"

// stubTokenVerifier maps bearer tokens to identities.
type stubTokenVerifier struct {
	tokens map[string]*infra.FirebaseToken
}

func (s *stubTokenVerifier) VerifyIDToken(_ context.Context, raw string) (*infra.FirebaseToken, error) {
	if t, ok := s.tokens[raw]; ok {
		return t, nil
	}
	return nil, errors.New("no token")
}

type stubGateway struct{}

func (stubGateway) CreateOrder(_ context.Context, amount int64, receipt string) (*payment.GatewayOrder, error) {
	return &payment.GatewayOrder{ID: "order_gw_" + receipt[:8], AmountMinorUnits: amount, Currency: "INR"}, nil
}

func (stubGateway) KeyID() string { return "rzp_test_key" }

type testServer struct {
	router *gin.Engine
}

// checkoutSignature signs a callback the way Razorpay checkout does.
func checkoutSignature(gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	zones := zone.NewResolver(zone.NewMemoryStore(
		zone.Zone{ID: "z1", AreaName: "Indiranagar", Pincode: "560038", City: "Bengaluru",
			Coordinates: &types.GeoPoint{Lat: 12.9784, Lng: 77.6408}, DelayHours: 2, IsActive: true,
			Slots: []string{"10AM-12PM", "4PM-6PM"}},
		zone.Zone{ID: "z2", AreaName: "Whitefield", Pincode: "560066", City: "Bengaluru",
			Coordinates: &types.GeoPoint{Lat: 12.9698, Lng: 77.7500}, IsActive: false},
		zone.Zone{ID: "z3", AreaName: "Hebbal", Pincode: "560024", City: "Bengaluru", IsActive: true},
	))
	evaluator := delivery.NewEvaluator(warehouse, delivery.DefaultSpeedKmph, ist)
	orders := order.NewService(order.NewMemoryStore(), order.Deps{
		Gateway:   stubGateway{},
		Verifier:  payment.NewSignatureVerifier(testSecret),
		Warehouse: warehouse,
	})
	verifier := &stubTokenVerifier{tokens: map[string]*infra.FirebaseToken{
		"cust":  {UID: "cust1", Claims: map[string]interface{}{}},
		"other": {UID: "cust2", Claims: map[string]interface{}{}},
		"ops":   {UID: "ops1", Claims: map[string]interface{}{"role": "ops"}},
	}}
	r := httptransport.NewRouter(httptransport.ServerDeps{
		Order:     orders,
		Delivery:  delivery.NewService(evaluator, zones),
		Zones:     zones,
		Selection: zone.NewMemorySelection(),
		Verifier:  verifier,
		Clock:     func() time.Time { return testNow },
	})
	return &testServer{router: r}
}

func (s *testServer) do(method, path string, body interface{}, token string, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func checkoutBody() map[string]any {
	return map[string]any{
		"full_name":      "Asha Rao",
		"email":          "asha@example.com",
		"street_address": "12 CMH Road",
		"city":           "Bengaluru",
		"latitude":       13.00,
		"longitude":      77.65,
		"slot":           "10AM-12PM",
		"items": []map[string]any{
			{"cart_item_id": "c1", "product_id": "p1", "product_name": "Rice", "quantity": 2, "unit_price": "100.00"},
		},
	}
}

func (s *testServer) createOrder(t *testing.T) map[string]any {
	t.Helper()
	w := s.do(http.MethodPost, "/api/orders", checkoutBody(), "cust", "X-Session-ID", "sess1")
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	return decode(t, w)
}

func (s *testServer) pay(t *testing.T, created map[string]any) {
	t.Helper()
	gwID := created["gateway_order_id"].(string)
	w := s.do(http.MethodPost, "/api/payments/verify", map[string]any{
		"order_id":           created["order_id"],
		"gateway_order_id":   gwID,
		"gateway_payment_id": "pay_1",
		"gateway_signature":  checkoutSignature(gwID, "pay_1"),
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("verify: expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	if w := s.do(http.MethodGet, "/health", nil, ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

// TestCreate_Unauthenticated verifies that requests without a valid token are rejected.
func TestCreate_Unauthenticated(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodPost, "/api/orders", checkoutBody(), "badtoken")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestCreate_InvalidItems(t *testing.T) {
	s := newTestServer(t)
	body := checkoutBody()
	body["items"] = []map[string]any{{"product_id": "p1", "quantity": 1, "unit_price": "abc"}}
	if w := s.do(http.MethodPost, "/api/orders", body, "cust"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestCreate_RejectsUnresolvedZone(t *testing.T) {
	s := newTestServer(t)
	for _, id := range []string{"nope", "z2"} {
		body := checkoutBody()
		body["zone_id"] = id
		w := s.do(http.MethodPost, "/api/orders", body, "cust")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("zone %s: expected 400, got %d: %s", id, w.Code, w.Body.String())
		}
		if got := decode(t, w); got["error"] != delivery.ErrInvalidZone.Error() {
			t.Errorf("zone %s: error = %v", id, got["error"])
		}
	}

	got := decode(t, s.do(http.MethodGet, "/api/orders", nil, "cust"))
	if n := len(got["orders"].([]any)); n != 0 {
		t.Errorf("orders stored for rejected checkouts: %d", n)
	}
}

func TestCreate_MissingPin(t *testing.T) {
	s := newTestServer(t)

	// Falls back to the zone centre.
	body := checkoutBody()
	delete(body, "latitude")
	delete(body, "longitude")
	body["zone_id"] = "z1"
	w := s.do(http.MethodPost, "/api/orders", body, "cust")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decode(t, w)
	got := decode(t, s.do(http.MethodGet, "/api/orders/"+created["order_id"].(string), nil, "cust"))
	if got["latitude"] != 12.9784 || got["longitude"] != 77.6408 {
		t.Errorf("destination = %v,%v, want zone centre", got["latitude"], got["longitude"])
	}

	cases := map[string]func(map[string]any){
		"no zone":             func(b map[string]any) { delete(b, "latitude"); delete(b, "longitude") },
		"zone without centre": func(b map[string]any) { delete(b, "latitude"); delete(b, "longitude"); b["zone_id"] = "z3" },
		"half a pin":          func(b map[string]any) { delete(b, "longitude") },
		"out of range":        func(b map[string]any) { b["latitude"] = 95.0 },
	}
	for name, mutate := range cases {
		body := checkoutBody()
		mutate(body)
		w := s.do(http.MethodPost, "/api/orders", body, "cust")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d: %s", name, w.Code, w.Body.String())
			continue
		}
		if got := decode(t, w); got["error"] != delivery.ErrInvalidCoordinates.Error() {
			t.Errorf("%s: error = %v", name, got["error"])
		}
	}
}

func TestCreate_FreeOrderRejected(t *testing.T) {
	s := newTestServer(t)
	body := checkoutBody()
	body["items"] = []map[string]any{{"product_id": "p1", "quantity": 2, "unit_price": "0.00"}}
	if w := s.do(http.MethodPost, "/api/orders", body, "cust"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreate_BuyNowNeedsQuantity(t *testing.T) {
	s := newTestServer(t)
	body := checkoutBody()
	body["buy_now"] = true
	body["items"] = []map[string]any{{"product_id": "p1", "quantity": 0, "unit_price": "40.00"}}
	if w := s.do(http.MethodPost, "/api/orders", body, "cust"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreate_ReturnsGatewayOrder(t *testing.T) {
	s := newTestServer(t)
	created := s.createOrder(t)
	if created["status"] != "created" {
		t.Errorf("status = %v", created["status"])
	}
	// 2 x 100 + 5% tax = 210.00
	if created["amount_minor_units"] != float64(21000) {
		t.Errorf("amount = %v, want 21000", created["amount_minor_units"])
	}
	if created["gateway_key"] != "rzp_test_key" {
		t.Errorf("gateway_key = %v", created["gateway_key"])
	}

	w := s.do(http.MethodGet, "/api/orders/"+created["order_id"].(string), nil, "cust")
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}
	got := decode(t, w)
	if got["status"] != string(order.StatusPending) || got["total_amount"] != "210.00" {
		t.Errorf("unexpected order %v", got)
	}
	eta, err := time.Parse(time.RFC3339, got["expected_delivery_time"].(string))
	if err != nil || !eta.Equal(time.Date(2026, 3, 10, 10, 40, 0, 0, ist)) {
		t.Errorf("eta = %v (%v)", got["expected_delivery_time"], err)
	}
}

func TestVerifyPayment_BadSignature(t *testing.T) {
	s := newTestServer(t)
	created := s.createOrder(t)
	w := s.do(http.MethodPost, "/api/payments/verify", map[string]any{
		"order_id":           created["order_id"],
		"gateway_order_id":   created["gateway_order_id"],
		"gateway_payment_id": "pay_1",
		"gateway_signature":  "deadbeef",
	}, "")
	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
}

func TestOps_RequiresOpsRole(t *testing.T) {
	s := newTestServer(t)
	created := s.createOrder(t)
	s.pay(t, created)
	path := "/api/ops/orders/" + created["order_id"].(string) + "/dispatch"
	if w := s.do(http.MethodPost, path, nil, "cust"); w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
	if w := s.do(http.MethodPost, path, nil, "ops"); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestTrack_Flow(t *testing.T) {
	s := newTestServer(t)
	created := s.createOrder(t)
	id := created["order_id"].(string)
	track := "/api/orders/" + id + "/track"

	got := decode(t, s.do(http.MethodGet, track, nil, "cust"))
	if got["driver_lat"] != nil || got["status"] != string(order.StatusPending) {
		t.Fatalf("pending order should have no driver: %v", got)
	}

	s.pay(t, created)
	for _, step := range []string{"dispatch", "start"} {
		if w := s.do(http.MethodPost, "/api/ops/orders/"+id+"/"+step, nil, "ops"); w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", step, w.Code, w.Body.String())
		}
	}

	got = decode(t, s.do(http.MethodGet, track, nil, "cust"))
	if got["driver_lat"] == nil || got["status"] != string(order.StatusOutForDelivery) {
		t.Fatalf("expected moving driver, got %v", got)
	}
	if got["customer_lat"] != 13.00 || got["customer_lon"] != 77.65 {
		t.Errorf("customer position = %v,%v", got["customer_lat"], got["customer_lon"])
	}

	for i := 0; i < 40 && got["status"] != string(order.StatusDelivered); i++ {
		got = decode(t, s.do(http.MethodGet, track, nil, "cust"))
	}
	if got["status"] != string(order.StatusDelivered) {
		t.Fatalf("order never arrived: %v", got)
	}
}

// TestTrack_OtherCustomer verifies that one customer cannot see another's order.
func TestTrack_OtherCustomer(t *testing.T) {
	s := newTestServer(t)
	created := s.createOrder(t)
	w := s.do(http.MethodGet, "/api/orders/"+created["order_id"].(string)+"/track", nil, "other")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestCancel(t *testing.T) {
	s := newTestServer(t)
	created := s.createOrder(t)
	path := "/api/orders/" + created["order_id"].(string) + "/cancel"

	w := s.do(http.MethodPost, path, map[string]any{"reason": "wrong_address"}, "cust")
	if w.Code != http.StatusConflict || !strings.Contains(w.Body.String(), "edit delivery details") {
		t.Fatalf("expected edit hint, got %d: %s", w.Code, w.Body.String())
	}

	w = s.do(http.MethodPost, path, map[string]any{"reason": "other", "other_reason": "  found it cheaper "}, "cust")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got := decode(t, w)
	if got["status"] != string(order.StatusCancelled) || got["cancel_reason"] != "found it cheaper" {
		t.Errorf("unexpected cancel response %v", got)
	}
}

func TestEdit_MovesETA(t *testing.T) {
	s := newTestServer(t)
	created := s.createOrder(t)
	w := s.do(http.MethodPut, "/api/orders/"+created["order_id"].(string), map[string]any{"slot": "4PM-6PM"}, "cust")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got := decode(t, w)
	eta, err := time.Parse(time.RFC3339, got["expected_delivery_time"].(string))
	if err != nil || !eta.Equal(time.Date(2026, 3, 10, 16, 40, 0, 0, ist)) {
		t.Errorf("eta = %v (%v)", got["expected_delivery_time"], err)
	}
}

func TestEdit_RejectsUnresolvedZone(t *testing.T) {
	s := newTestServer(t)
	created := s.createOrder(t)
	path := "/api/orders/" + created["order_id"].(string)
	for _, id := range []string{"nope", "z2"} {
		if w := s.do(http.MethodPut, path, map[string]any{"zone_id": id}, "cust"); w.Code != http.StatusBadRequest {
			t.Errorf("zone %s: expected 400, got %d: %s", id, w.Code, w.Body.String())
		}
	}
	got := decode(t, s.do(http.MethodGet, path, nil, "cust"))
	if z, ok := got["zone_id"]; ok {
		t.Errorf("zone set to %v by a rejected edit", z)
	}

	if w := s.do(http.MethodPut, path, map[string]any{"zone_id": "z1"}, "cust"); w.Code != http.StatusOK {
		t.Fatalf("valid zone: expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestList_OnlyOwnOrders(t *testing.T) {
	s := newTestServer(t)
	s.createOrder(t)
	s.createOrder(t)
	got := decode(t, s.do(http.MethodGet, "/api/orders", nil, "cust"))
	if n := len(got["orders"].([]any)); n != 2 {
		t.Errorf("cust1 orders = %d, want 2", n)
	}
	got = decode(t, s.do(http.MethodGet, "/api/orders", nil, "other"))
	if n := len(got["orders"].([]any)); n != 0 {
		t.Errorf("cust2 orders = %d, want 0", n)
	}
}

func TestFeasibility(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/delivery/feasibility", map[string]any{
		"zone_id": "z1", "latitude": "13.00", "longitude": 77.65, "slot": "10AM-12PM", "mode": "dispatch",
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got := decode(t, w)
	if got["eta"] != "10:40 AM" || got["day_label"] != "Today" || got["success"] != true {
		t.Errorf("unexpected feasibility %v", got)
	}
	if got["slot_window"] != "10:00 AM - 12:00 PM" {
		t.Errorf("slot_window = %v", got["slot_window"])
	}

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing slot", map[string]any{"zone_id": "z1", "latitude": "13", "longitude": "77.6"}},
		{"unknown zone", map[string]any{"zone_id": "nope", "latitude": "13", "longitude": "77.6", "slot": "4PM-6PM"}},
		{"bad latitude", map[string]any{"zone_id": "z1", "latitude": "north", "longitude": "77.6", "slot": "4PM-6PM"}},
		{"bad slot", map[string]any{"zone_id": "z1", "latitude": "13", "longitude": "77.6", "slot": "soon"}},
		{"bad mode", map[string]any{"zone_id": "z1", "slot": "4PM-6PM", "mode": "teleport"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if w := s.do(http.MethodPost, "/api/delivery/feasibility", tc.body, ""); w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestZones(t *testing.T) {
	s := newTestServer(t)

	got := decode(t, s.do(http.MethodGet, "/api/zones/check?query=560038", nil, ""))
	if got["message"] != "Delivery available in Indiranagar (Bengaluru) within 2 hours." {
		t.Errorf("message = %v", got["message"])
	}
	if w := s.do(http.MethodGet, "/api/zones/check?query=999999", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown pincode: expected 404, got %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/api/zones/pincode?pincode=560038&city=Mumbai", nil, ""); w.Code != http.StatusBadRequest {
		t.Errorf("city mismatch: expected 400, got %d", w.Code)
	}

	w := s.do(http.MethodPost, "/api/zones/nearest", map[string]any{"latitude": 12.98, "longitude": "77.64"}, "")
	if w.Code != http.StatusOK || decode(t, w)["zone_id"] != "z1" {
		t.Errorf("nearest: %d %s", w.Code, w.Body.String())
	}
	if w := s.do(http.MethodPost, "/api/zones/nearest", map[string]any{"latitude": 120, "longitude": 77}, ""); w.Code != http.StatusBadRequest {
		t.Errorf("out of range: expected 400, got %d", w.Code)
	}
}

func TestSessionZone(t *testing.T) {
	s := newTestServer(t)
	hdr := []string{"X-Session-ID", "sess1"}

	if w := s.do(http.MethodGet, "/api/session/zone", nil, "", hdr...); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 before select, got %d", w.Code)
	}
	if w := s.do(http.MethodPut, "/api/session/zone", map[string]any{"zone_id": "z1"}, "", hdr...); w.Code != http.StatusOK {
		t.Fatalf("select: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// The selected zone is carried into checkout.
	created := s.createOrder(t)
	got := decode(t, s.do(http.MethodGet, "/api/orders/"+created["order_id"].(string), nil, "cust"))
	if got["zone_id"] != "z1" {
		t.Errorf("order zone = %v, want z1", got["zone_id"])
	}

	if w := s.do(http.MethodDelete, "/api/session/zone", nil, "", hdr...); w.Code != http.StatusNoContent {
		t.Errorf("clear: expected 204, got %d", w.Code)
	}
	if w := s.do(http.MethodPut, "/api/session/zone", map[string]any{"zone_id": "z1"}, ""); w.Code != http.StatusBadRequest {
		t.Errorf("missing header: expected 400, got %d", w.Code)
	}
}
