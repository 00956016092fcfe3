//go:build integration

// Package integration exercises the optional backends against real
// PostgreSQL and Redis instances. Tests skip when a backend is unreachable.
//
// Run with:
//
//	go test -v -tags=integration ./test/integration/...
package integration

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer/report"
	"github.com/Adithya-Monish-Kumar-K/hunt/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/hunt/pkg/redis"
)

const schema = `
CREATE TABLE IF NOT EXISTS index_builds (
    id          BIGSERIAL PRIMARY KEY,
    path        TEXT NOT NULL,
    mode        TEXT NOT NULL,
    documents   INT NOT NULL,
    indexed     INT NOT NULL,
    bytes       BIGINT NOT NULL,
    report      JSONB NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS index_build_failures (
    build_id    BIGINT NOT NULL REFERENCES index_builds(id) ON DELETE CASCADE,
    filename    TEXT NOT NULL,
    error       TEXT NOT NULL
);`

func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	cfg := config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "hunt_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "hunt"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
	db, err := postgres.New(context.Background(), cfg)
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.DB.Exec(schema); err != nil {
		t.Fatalf("applying schema: %v", err)
	}
	return db
}

func skipIfNoRedis(t *testing.T) *pkgredis.Client {
	t.Helper()
	client, err := pkgredis.NewClient(context.Background(), config.RedisConfig{
		Addr:     envOrDefault("TEST_REDIS_ADDR", "localhost:6379"),
		DB:       envOrDefaultInt("TEST_REDIS_DB", 15),
		PoolSize: 4,
	})
	if err != nil {
		t.Skipf("skipping integration test: redis unavailable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestBuildStore(t *testing.T) {
	db := skipIfNoPostgres(t)
	store := report.NewStore(db)
	ctx := context.Background()
	path := fmt.Sprintf("/tmp/hunt-it-%d/index.bin", time.Now().UnixNano())

	latest, err := store.LatestBuild(ctx, path)
	if err != nil || latest != nil {
		t.Fatalf("LatestBuild before any build = %v, %v", latest, err)
	}

	rep := &indexer.Report{
		Mode:      indexer.ModeSkipAndReport,
		Documents: 3,
		Indexed:   2,
		Skipped:   []indexer.Failure{{Filename: "locked.txt", Error: "permission denied"}},
		StartedAt: time.Now().UTC(),
		Duration:  15 * time.Millisecond,
	}
	id, err := store.SaveBuild(ctx, path, 2048, rep)
	if err != nil {
		t.Fatalf("SaveBuild: %v", err)
	}
	t.Cleanup(func() { db.DB.Exec(`DELETE FROM index_builds WHERE id = $1`, id) })

	latest, err = store.LatestBuild(ctx, path)
	if err != nil {
		t.Fatalf("LatestBuild: %v", err)
	}
	if latest.ID != id || latest.Bytes != 2048 || latest.Report.Indexed != 2 {
		t.Errorf("LatestBuild = %+v", latest)
	}
	if len(latest.Report.Skipped) != 1 || latest.Report.Skipped[0].Filename != "locked.txt" {
		t.Errorf("skipped = %+v", latest.Report.Skipped)
	}

	var failures int
	if err := db.DB.QueryRow(`SELECT COUNT(*) FROM index_build_failures WHERE build_id = $1`, id).Scan(&failures); err != nil {
		t.Fatal(err)
	}
	if failures != 1 {
		t.Errorf("failure rows = %d, want 1", failures)
	}
}

func TestQueryCacheRedis(t *testing.T) {
	client := skipIfNoRedis(t)
	ctx := context.Background()
	fingerprint := fmt.Sprintf("%08x", time.Now().UnixNano()&0xffffffff)
	qc := cache.New(client, time.Minute, fingerprint, nil)
	t.Cleanup(func() { qc.Invalidate(ctx) })

	calls := 0
	compute := func() ([]byte, error) {
		calls++
		return []byte(`{"total":1}`), nil
	}
	if _, hit, err := qc.GetOrCompute(ctx, "exact", "fox", 0, compute); err != nil || hit {
		t.Fatalf("first lookup hit=%v err=%v", hit, err)
	}
	data, hit, err := qc.GetOrCompute(ctx, "exact", "fox", 0, compute)
	if err != nil || !hit || string(data) != `{"total":1}` || calls != 1 {
		t.Errorf("second lookup = %s hit=%v err=%v calls=%d", data, hit, err, calls)
	}

	if err := qc.Rescope(ctx, fingerprint+"-next"); err != nil {
		t.Fatalf("Rescope: %v", err)
	}
	if _, hit, _ := qc.GetOrCompute(ctx, "exact", "fox", 0, compute); hit {
		t.Error("response cached for the previous index was served")
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
