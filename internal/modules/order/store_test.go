// README: DB-backed store tests; skipped unless VETRI_TEST_DSN points at a Postgres database.
package order

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"vetrimart/internal/modules/cart"
	"vetrimart/internal/modules/payment"
	"vetrimart/internal/types"
)

func TestStoreRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	eta := now.Add(2 * time.Hour)
	pending := StatusPending

	o := &Order{
		ID:                   newID(),
		CustomerID:           "u_db",
		Contact:              Contact{FullName: "Asha", Email: "asha@example.com", StreetAddress: "12 MG Road", City: "Bengaluru"},
		Destination:          testCustomer,
		Slot:                 "4PM-6PM",
		Status:               StatusPending,
		PaymentStatus:        PaymentPending,
		PaymentMethod:        "razorpay",
		Subtotal:             decimal.RequireFromString("200.00"),
		Tax:                  decimal.RequireFromString("10.00"),
		TotalAmount:          decimal.RequireFromString("210.00"),
		ExpectedDeliveryTime: &eta,
		LastNotifiedStatus:   &pending,
		GatewayOrderID:       "order_db_1",
		CreatedAt:            now,
		UpdatedAt:            now,
		Items: []Item{
			{ProductID: "p1", ProductName: "Rice", Quantity: 2, UnitPrice: decimal.RequireFromString("100.00")},
		},
	}
	if err := store.Create(ctx, o); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.TotalAmount.Equal(o.TotalAmount) || len(got.Items) != 1 || !got.Items[0].UnitPrice.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.ExpectedDeliveryTime == nil || !got.ExpectedDeliveryTime.Equal(eta) {
		t.Fatalf("eta mismatch: %v", got.ExpectedDeliveryTime)
	}

	departed := now.Add(time.Minute)
	got.Status = StatusConfirmed
	got.DepartedAt = &departed
	ok, err := store.Save(ctx, got, got.StatusVersion)
	if err != nil || !ok {
		t.Fatalf("save: %v %v", ok, err)
	}
	saved, err := store.Get(ctx, o.ID)
	if err != nil || saved.DepartedAt == nil || !saved.DepartedAt.Equal(departed) {
		t.Fatalf("departed_at not persisted: %v %v", saved, err)
	}
	// Stale version loses.
	ok, err = store.Save(ctx, got, got.StatusVersion)
	if err != nil || ok {
		t.Fatalf("stale save should fail: %v %v", ok, err)
	}

	if _, err := store.Get(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	list, err := store.ListByCustomer(ctx, "u_db")
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %d", err, len(list))
	}
}

func TestConcurrentTrackAgainstDB(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	verifier := payment.NewSignatureVerifier(testSecret)
	notifier := &recordingNotifier{}
	svc := NewService(store, Deps{Gateway: &fakeGateway{}, Verifier: verifier, Notifier: notifier, Warehouse: testWarehouse})

	res, err := svc.Create(ctx, CreateCommand{
		CustomerID:  "u_db_race",
		Destination: testCustomer,
		Slot:        "4PM-6PM",
		Contact:     Contact{FullName: "A", StreetAddress: "B"},
		Lines:       []cart.Line{cart.BuyNowItem{Ref: cart.ProductRef{ID: "p"}, Qty: 1, Price: decimal.NewFromInt(10)}},
	}, time.Now())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.VerifyPayment(ctx, VerifyCommand{
		OrderID: res.OrderID, GatewayOrderID: res.GatewayOrderID, GatewayPaymentID: "pay", Signature: checkoutSignature(res.GatewayOrderID, "pay"),
	}, time.Now()); err != nil {
		t.Fatalf("verify: %v", err)
	}
	for _, step := range []func(context.Context, types.ID, Actor, time.Time) (*Order, error){svc.Dispatch, svc.StartDelivery} {
		if _, err := step(ctx, res.OrderID, Actor{Type: ActorOps}, time.Now()); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Track(ctx, res.OrderID, "u_db_race", time.Now()); err != nil {
				t.Errorf("track: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := notifier.count(StatusDelivered); n > 1 {
		t.Fatalf("delivered notified %d times", n)
	}
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("VETRI_TEST_DSN")
	if dsn == "" {
		t.Skip("VETRI_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := applyMigration(ctx, db); err != nil {
		t.Fatalf("apply migration: %v", err)
	}

	if _, err := db.Exec(ctx, "TRUNCATE TABLE order_state_events, order_items, orders CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	return NewStore(db)
}

func applyMigration(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	content, err := os.ReadFile(filepath.Join(root, "migrations", "0001_init.sql"))
	if err != nil {
		return err
	}
	for _, stmt := range splitSQL(stripSQLComments(string(content))) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	parts := strings.Split(input, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
