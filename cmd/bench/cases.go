// README: Smoke/bench cases for the delivery and order APIs; includes HTTP, DB, Redis and load checks.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"vetrimart/internal/modules/zone"
	"vetrimart/internal/types"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client

	// orderID is the order created by the checkout case, shared by later cases.
	orderID string
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name  string
	Focus string
	Run   func(ctx context.Context, r *Runner) Result
}

const benchZoneID = "benchzone1"

var benchZone = zone.Zone{
	ID:          benchZoneID,
	AreaName:    "Bench Indiranagar",
	Pincode:     "560038",
	City:        "Bengaluru",
	Coordinates: &types.GeoPoint{Lat: 12.9784, Lng: 77.6408},
	DelayHours:  2,
	IsActive:    true,
	Slots:       []string{"10AM-12PM", "4PM-6PM"},
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-7s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}

	return results
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	return []TestCase{
		{
			Name:  "Env: Postgres connect",
			Focus: "database reachable",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: "FAIL", Note: "db not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name:  "Env: Redis connect",
			Focus: "redis reachable (only needed for lock.backend=redis)",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: "SKIP", Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name:  "Migration: apply (optional)",
			Focus: "optionally apply the migration SQL",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.ApplyMigration {
					return Result{Status: "SKIP", Note: "apply-migration=false"}
				}
				if r.db == nil {
					return Result{Status: "FAIL", Note: "db not configured"}
				}
				sql, err := os.ReadFile(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				for _, s := range splitSQL(string(sql)) {
					if _, err := r.db.Exec(ctx, s); err != nil {
						return Result{Status: "FAIL", Note: err.Error()}
					}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name:  "Migration: tables exist",
			Focus: "tables from migrations/0001_init.sql exist",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: "FAIL", Note: "db not configured"}
				}
				tables, err := extractTables(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				for _, t := range tables {
					var exists bool
					err := r.db.QueryRow(ctx,
						"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
						t,
					).Scan(&exists)
					if err != nil {
						return Result{Status: "FAIL", Note: err.Error()}
					}
					if !exists {
						return Result{Status: "FAIL", Note: "missing table: " + t}
					}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name:  "Seed: bench zone",
			Focus: "upsert a known active zone",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.SeedZone {
					return Result{Status: "SKIP", Note: "seed-zone=false"}
				}
				if r.db == nil {
					return Result{Status: "FAIL", Note: "db not configured"}
				}
				if err := zone.NewStore(r.db).Upsert(ctx, benchZone); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return Result{Status: "PASS"}
			},
		},
		httpCaseMethod("API: health", http.MethodGet, base+"/health", nil, "", []int{200}, nil),

		// Zones
		httpCaseMethod("Zones: list active", http.MethodGet, base+"/api/zones", nil, "", []int{200}, nil),
		httpCaseMethod("Zones: check pincode", http.MethodGet, base+"/api/zones/check?query=560038", nil, "", []int{200}, []int{404}),
		httpCaseMethod("Zones: unknown pincode -> 404", http.MethodGet, base+"/api/zones/check?query=000000", nil, "", []int{404}, nil),
		httpCaseMethod("Zones: city mismatch -> 400", http.MethodGet, base+"/api/zones/pincode?pincode=560038&city=Mumbai", nil, "", []int{400}, []int{404}),
		httpCase("Zones: nearest", base+"/api/zones/nearest", map[string]any{
			"latitude":  12.98,
			"longitude": 77.64,
		}, "", []int{200}, []int{404}),
		httpCase("Zones: nearest invalid coords -> 400", base+"/api/zones/nearest", map[string]any{
			"latitude":  123.0,
			"longitude": 456.0,
		}, "", []int{400}, nil),

		// Feasibility
		httpCase("Delivery: dispatch feasibility", base+"/api/delivery/feasibility", map[string]any{
			"zone_id":   benchZoneID,
			"latitude":  "13.00",
			"longitude": "77.65",
			"slot":      "4PM-6PM",
			"mode":      "dispatch",
		}, "", []int{200}, nil),
		httpCase("Delivery: deadline feasibility", base+"/api/delivery/feasibility", map[string]any{
			"zone_id":   benchZoneID,
			"latitude":  13.00,
			"longitude": 77.65,
			"slot":      "4PM-6PM",
		}, "", []int{200}, nil),
		httpCase("Delivery: missing slot -> 400", base+"/api/delivery/feasibility", map[string]any{
			"zone_id": benchZoneID,
		}, "", []int{400}, nil),
		httpCase("Delivery: bad slot -> 400", base+"/api/delivery/feasibility", map[string]any{
			"zone_id":   benchZoneID,
			"latitude":  13.00,
			"longitude": 77.65,
			"slot":      "whenever",
		}, "", []int{400}, nil),

		// Orders
		httpCase("Order: create without token -> 401", base+"/api/orders", checkoutPayload(), "", []int{401}, nil),
		{
			Name:  "Order: checkout",
			Focus: "creates the gateway order",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.cfg.CustomerToken == "" {
					return Result{Status: "SKIP", Note: "customer-token not set"}
				}
				start := time.Now()
				status, body, err := r.call(ctx, http.MethodPost, base+"/api/orders", checkoutPayload(), r.cfg.CustomerToken)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				latency := time.Since(start)
				if status == http.StatusBadGateway {
					return Result{Status: "PENDING", Latency: latency, Note: "payment gateway not configured"}
				}
				if status != http.StatusCreated {
					return Result{Status: "FAIL", Latency: latency, Note: fmt.Sprintf("status=%d", status)}
				}
				var out struct {
					OrderID string `json:"order_id"`
				}
				if err := json.Unmarshal(body, &out); err != nil || out.OrderID == "" {
					return Result{Status: "FAIL", Latency: latency, Note: "no order_id in response"}
				}
				r.orderID = out.OrderID
				return Result{Status: "PASS", Latency: latency, Note: "order=" + out.OrderID}
			},
		},
		orderCase("Order: track pending order", http.MethodGet, "/track", nil, false, []int{200}),
		orderCase("Order: dispatch unpaid -> 409", http.MethodPost, "/dispatch", nil, true, []int{409}),
		orderCase("Order: cancel with fixable reason -> 409", http.MethodPost, "/cancel", map[string]any{
			"reason": "wrong_address",
		}, false, []int{409}),
		{
			Name:  "Concurrency: parallel cancels",
			Focus: "only one cancel succeeds",
			Run: func(ctx context.Context, r *Runner) Result {
				return concurrentCancel(ctx, r, base)
			},
		},
		manualCase("Payment: verify signature", "needs a real gateway payment id and signature"),
		manualCase("Order: full delivery by polling", "pay, dispatch and start, then poll /track until delivered"),
		manualCase("Consistency: status_version increments", "query orders.status_version between transitions"),
		manualCase("Error: DB down -> 500", "stop the database and observe responses"),

		// Performance
		{
			Name:  "Perf: feasibility throughput",
			Focus: "feasibility checks under load",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, base+"/api/delivery/feasibility", map[string]any{
					"zone_id":   benchZoneID,
					"latitude":  13.00,
					"longitude": 77.65,
					"slot":      "4PM-6PM",
					"mode":      "dispatch",
				})
			},
		},
	}
}

func checkoutPayload() map[string]any {
	return map[string]any{
		"zone_id":        benchZoneID,
		"full_name":      "Bench Customer",
		"email":          "",
		"street_address": "1 Bench Road",
		"city":           "Bengaluru",
		"latitude":       13.00,
		"longitude":      77.65,
		"slot":           "4PM-6PM",
		"items": []map[string]any{
			{"product_id": "benchp1", "product_name": "Rice 5kg", "quantity": 1, "unit_price": "450.00"},
		},
		"buy_now": true,
	}
}

func (r *Runner) call(ctx context.Context, method, url string, body any, token string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	return resp.StatusCode, b, err
}

func httpCase(name, url string, body any, token string, okStatuses, pendingStatuses []int) TestCase {
	return httpCaseMethod(name, http.MethodPost, url, body, token, okStatuses, pendingStatuses)
}

func httpCaseMethod(name, method, url string, body any, token string, okStatuses, pendingStatuses []int) TestCase {
	return TestCase{
		Name:  name,
		Focus: "HTTP API",
		Run: func(ctx context.Context, r *Runner) Result {
			start := time.Now()
			status, _, err := r.call(ctx, method, url, body, token)
			if err != nil {
				return Result{Status: "FAIL", Note: err.Error()}
			}
			return classify(status, time.Since(start), okStatuses, pendingStatuses)
		},
	}
}

// orderCase runs against the order created by the checkout case. Ops paths
// go through /api/ops/orders with the ops token.
func orderCase(name, method, suffix string, body any, ops bool, okStatuses []int) TestCase {
	return TestCase{
		Name:  name,
		Focus: "HTTP API",
		Run: func(ctx context.Context, r *Runner) Result {
			if r.orderID == "" {
				return Result{Status: "SKIP", Note: "no order created"}
			}
			url := r.cfg.BaseURL + "/api/orders/" + r.orderID + suffix
			token := r.cfg.CustomerToken
			if ops {
				if r.cfg.OpsToken == "" {
					return Result{Status: "SKIP", Note: "ops-token not set"}
				}
				url = r.cfg.BaseURL + "/api/ops/orders/" + r.orderID + suffix
				token = r.cfg.OpsToken
			}
			start := time.Now()
			status, _, err := r.call(ctx, method, url, body, token)
			if err != nil {
				return Result{Status: "FAIL", Note: err.Error()}
			}
			return classify(status, time.Since(start), okStatuses, nil)
		},
	}
}

func classify(status int, latency time.Duration, okStatuses, pendingStatuses []int) Result {
	note := fmt.Sprintf("status=%d", status)
	if contains(okStatuses, status) {
		return Result{Status: "PASS", Latency: latency, Note: note}
	}
	if contains(pendingStatuses, status) {
		return Result{Status: "PENDING", Latency: latency, Note: note}
	}
	return Result{Status: "FAIL", Latency: latency, Note: note}
}

func manualCase(name, note string) TestCase {
	return TestCase{
		Name:  name,
		Focus: "Manual",
		Run: func(ctx context.Context, r *Runner) Result {
			return Result{Status: "SKIP", Note: note}
		},
	}
}

func concurrentCancel(ctx context.Context, r *Runner, base string) Result {
	if r.orderID == "" {
		return Result{Status: "SKIP", Note: "no order created"}
	}
	url := base + "/api/orders/" + r.orderID + "/cancel"
	payload := map[string]any{"reason": "item_not_needed"}

	wg := sync.WaitGroup{}
	succ, conflicts := 0, 0
	mu := sync.Mutex{}
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _, err := r.call(ctx, http.MethodPost, url, payload, r.cfg.CustomerToken)
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if status >= 200 && status < 300 {
				succ++
			} else if status == http.StatusConflict {
				conflicts++
			}
		}()
	}
	wg.Wait()

	note := fmt.Sprintf("success=%d conflict=%d", succ, conflicts)
	if succ == 1 {
		return Result{Status: "PASS", Note: note}
	}
	return Result{Status: "FAIL", Note: note}
}

func perfLoad(ctx context.Context, r *Runner, url string, payload any) Result {
	end := time.Now().Add(r.cfg.Duration)
	var count int64
	var errCount int64
	var mu sync.Mutex
	wg := sync.WaitGroup{}

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) {
				_, _, err := r.call(ctx, http.MethodPost, url, payload, "")
				mu.Lock()
				if err != nil {
					errCount++
				} else {
					count++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: "FAIL", Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: "PASS", Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func contains(list []int, v int) bool {
	for _, i := range list {
		if i == v {
			return true
		}
	}
	return false
}

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
	matches := re.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m[1])
	}
	return tables, nil
}

func splitSQL(sql string) []string {
	lines := strings.Split(sql, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "--") || l == "" {
			continue
		}
		filtered = append(filtered, line)
	}
	cleaned := strings.Join(filtered, "\n")
	parts := strings.Split(cleaned, ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
