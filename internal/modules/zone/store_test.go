// README: DB-backed zone store tests; skipped unless VETRI_TEST_DSN points at a Postgres database.
package zone

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetrimart/internal/types"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("VETRI_TEST_DSN")
	if dsn == "" {
		t.Skip("VETRI_TEST_DSN not set; skipping DB-backed zone tests")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, file, _, _ := runtime.Caller(0)
	raw, err := os.ReadFile(filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations", "0001_init.sql"))
	require.NoError(t, err)
	for _, stmt := range strings.Split(string(raw), ";") {
		var lines []string
		for _, l := range strings.Split(stmt, "\n") {
			if !strings.HasPrefix(strings.TrimSpace(l), "--") {
				lines = append(lines, l)
			}
		}
		if s := strings.TrimSpace(strings.Join(lines, "\n")); s != "" {
			_, err := pool.Exec(ctx, s)
			require.NoError(t, err, s)
		}
	}
	return NewStore(pool)
}

// prefixed gives the fixture zones ids unique to this run so rows left by
// other runs or packages do not interfere.
func prefixed(prefix string) []Zone {
	zones := testZones()
	for i := range zones {
		zones[i].ID = types.ID(prefix) + zones[i].ID
	}
	return zones
}

func ours(zones []Zone, prefix string) []Zone {
	var out []Zone
	for _, z := range zones {
		if strings.HasPrefix(string(z.ID), prefix) {
			out = append(out, z)
		}
	}
	return out
}

func TestStore_UpsertListGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	prefix := "t" + strconv.FormatInt(time.Now().UnixNano(), 36)
	fixtures := prefixed(prefix)
	for _, z := range fixtures {
		require.NoError(t, store.Upsert(ctx, z))
	}

	all, err := store.ListActive(ctx)
	require.NoError(t, err)
	zones := ours(all, prefix)
	require.Len(t, zones, 4)
	assert.Equal(t, "Indiranagar", zones[0].AreaName)

	z, err := store.Get(ctx, fixtures[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"9AM-11AM", "4PM-6PM"}, z.Slots)
	require.NotNil(t, z.Coordinates)
	assert.InDelta(t, 12.9756, z.Coordinates.Lat, 1e-9)

	z5, err := store.Get(ctx, fixtures[4].ID)
	require.NoError(t, err)
	assert.Nil(t, z5.Coordinates)
	assert.Empty(t, z5.Slots)

	_, err = store.Get(ctx, types.ID(prefix+"missing"))
	assert.ErrorIs(t, err, ErrNotFound)

	// Upsert overwrites in place.
	updated := fixtures[3]
	updated.IsActive = true
	require.NoError(t, store.Upsert(ctx, updated))
	all, err = store.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, ours(all, prefix), 5)
}
