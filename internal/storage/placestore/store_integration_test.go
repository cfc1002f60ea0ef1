package placestore

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chompapp/search-api/internal/core/model"
)

// These tests run the real SQL and are skipped unless TEST_DATABASE_URL
// points at a disposable postgres database.
func newIntegrationPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	t.Cleanup(pool.Close)

	ddl, err := os.ReadFile("../../../migrations/001_init.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	for _, stmt := range strings.Split(string(ddl), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("apply migration: %v", err)
		}
	}

	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(),
			`DELETE FROM places WHERE provider_place_id LIKE 'it-%'`)
	})
	return pool
}

func TestUpsertBatch_IdempotentAcrossRefreshes(t *testing.T) {
	pool := newIntegrationPool(t)
	store := New(pool)
	ctx := context.Background()

	name := "Trattoria Da Enzo"
	t0 := time.Now().UTC().Truncate(time.Microsecond)
	first, err := store.UpsertBatch(ctx, []model.PlaceFields{{
		ProviderPlaceID: "it-1",
		Name:            &name,
		ProviderPayload: json.RawMessage(`{"id":"it-1"}`),
		LastFetchedAt:   t0,
	}})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if len(first) != 1 || first[0].ID == "" {
		t.Fatalf("first upsert returned %+v", first)
	}

	// refresh carrying an older fetch time and a changed name
	renamed := "Trattoria Da Enzo II"
	second, err := store.UpsertBatch(ctx, []model.PlaceFields{{
		ProviderPlaceID: "it-1",
		Name:            &renamed,
		ProviderPayload: json.RawMessage(`{"id":"it-1","v":2}`),
		LastFetchedAt:   t0.Add(-time.Hour),
	}})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second[0].ID != first[0].ID {
		t.Fatalf("row identity changed: %s -> %s", first[0].ID, second[0].ID)
	}
	if !second[0].CreatedAt.Equal(first[0].CreatedAt) {
		t.Fatalf("created_at moved: %v -> %v", first[0].CreatedAt, second[0].CreatedAt)
	}
	if !second[0].LastFetchedAt.Equal(t0) {
		t.Fatalf("last_fetched_at regressed to %v, want %v", second[0].LastFetchedAt, t0)
	}
	if second[0].Name == nil || *second[0].Name != renamed {
		t.Fatalf("name not refreshed: %+v", second[0].Name)
	}

	// a newer fetch advances last_fetched_at
	t2 := t0.Add(time.Hour)
	third, err := store.UpsertBatch(ctx, []model.PlaceFields{{
		ProviderPlaceID: "it-1",
		Name:            &renamed,
		LastFetchedAt:   t2,
	}})
	if err != nil {
		t.Fatalf("third upsert: %v", err)
	}
	if !third[0].LastFetchedAt.Equal(t2) {
		t.Fatalf("last_fetched_at = %v, want %v", third[0].LastFetchedAt, t2)
	}
}

func TestGetByProviderIDs_RealOrderAndMissing(t *testing.T) {
	pool := newIntegrationPool(t)
	store := New(pool)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	if _, err := store.UpsertBatch(ctx, []model.PlaceFields{
		{ProviderPlaceID: "it-a", LastFetchedAt: now},
		{ProviderPlaceID: "it-b", LastFetchedAt: now},
	}); err != nil {
		t.Fatalf("seed upsert: %v", err)
	}

	got, err := store.GetByProviderIDs(ctx, []string{"it-b", "it-missing", "it-a"})
	if err != nil {
		t.Fatalf("GetByProviderIDs: %v", err)
	}
	if len(got) != 2 || got[0].ProviderPlaceID != "it-b" || got[1].ProviderPlaceID != "it-a" {
		t.Fatalf("got %+v, want [it-b it-a]", got)
	}
}
