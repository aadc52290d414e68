package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"gorm.io/driver/sqlite"

	"cookiewarden/internal/config"
	"cookiewarden/internal/database"
	"cookiewarden/internal/domain"
	"cookiewarden/internal/router"
	"cookiewarden/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		HTTPAddr:               "127.0.0.1:0",
		DatabaseDriver:         database.DriverSQLite,
		SyncProfile:            "default",
		SyncInterval:           time.Minute,
		DeviceID:               "test-device",
		Cooldown:               time.Second,
		CookiePollInterval:     time.Second,
		TrackerRefreshInterval: time.Hour,
		LogLevel:               "info",
	}
}

func testLocal(t *testing.T) store.LocalScope {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := database.SetupDB(database.WithDialector(sqlite.Open(dsn)))
	if err != nil {
		t.Fatalf("setup database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return database.NewLocalScope(db)
}

func TestBuildServicesWithoutCloud(t *testing.T) {
	ctx := context.Background()

	svc, err := buildServices(ctx, testConfig(), testLocal(t))
	if err != nil {
		t.Fatalf("buildServices: %v", err)
	}
	defer svc.close()

	if svc.syncer != nil {
		t.Fatalf("syncer built without REDIS_URL")
	}

	// Auto-block is on by default, so the built-in tracker list is installed.
	if _, ok := svc.engine.Match("doubleclick.net", domain.ResourceScript); !ok {
		t.Fatalf("built-in tracker not blocked after startup")
	}

	off := false
	resp := svc.router.Handle(ctx, router.Request{Type: router.TypeUpdateState, State: &domain.StatePatch{AutoBlockEnabled: &off}})
	if !resp.Success {
		t.Fatalf("UPDATE_STATE failed: %s", resp.Error)
	}
	if _, ok := svc.engine.Match("doubleclick.net", domain.ResourceScript); ok {
		t.Fatalf("tracker still blocked with auto-block off")
	}

	resp = svc.router.Handle(ctx, router.Request{Type: router.TypeBlockSite, Domain: "x.com"})
	if !resp.Success {
		t.Fatalf("BLOCK_SITE failed: %s", resp.Error)
	}
	if _, ok := svc.engine.Match("cdn.x.com", domain.ResourceImage); !ok {
		t.Fatalf("blacklisted domain not blocked")
	}

	resp = svc.router.Handle(ctx, router.Request{Type: router.TypeSyncStatus})
	if resp.Sync == nil || resp.Sync.Enabled {
		t.Fatalf("SYNC_STATUS = %+v, want disabled", resp.Sync)
	}
}

func TestBuildServicesStateSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	local := testLocal(t)

	first, err := buildServices(ctx, testConfig(), local)
	if err != nil {
		t.Fatalf("buildServices: %v", err)
	}
	resp := first.router.Handle(ctx, router.Request{Type: router.TypeWhitelistSite, Domain: "bank.example"})
	if !resp.Success {
		t.Fatalf("WHITELIST_SITE failed: %s", resp.Error)
	}
	first.close()

	second, err := buildServices(ctx, testConfig(), local)
	if err != nil {
		t.Fatalf("buildServices after restart: %v", err)
	}
	defer second.close()

	if !second.store.Snapshot().Whitelist.Contains("bank.example") {
		t.Fatalf("whitelist lost across restart: %v", second.store.Snapshot().Whitelist)
	}
}

func TestBuildServicesWithCloud(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	cfg := testConfig()
	cfg.RedisURL = "redis://" + mr.Addr()

	svc, err := buildServices(ctx, cfg, testLocal(t))
	if err != nil {
		t.Fatalf("buildServices: %v", err)
	}
	defer svc.close()

	if svc.syncer == nil {
		t.Fatalf("syncer not built with REDIS_URL")
	}

	resp := svc.router.Handle(ctx, router.Request{Type: router.TypeBlockSite, Domain: "ads.example"})
	if !resp.Success {
		t.Fatalf("BLOCK_SITE failed: %s", resp.Error)
	}

	pushed, err := svc.syncer.Push(ctx)
	if err != nil || !pushed {
		t.Fatalf("Push = %v, %v; want true, nil", pushed, err)
	}

	status := svc.router.Handle(ctx, router.Request{Type: router.TypeSyncStatus}).Sync
	if status == nil || !status.Enabled || status.LastPush == nil {
		t.Fatalf("SYNC_STATUS = %+v, want enabled with a last push", status)
	}
}

func TestBuildServicesUnreachableCloud(t *testing.T) {
	cfg := testConfig()
	cfg.RedisURL = "redis://127.0.0.1:1"

	svc, err := buildServices(context.Background(), cfg, testLocal(t))
	if err != nil {
		t.Fatalf("buildServices: %v", err)
	}
	defer svc.close()

	if svc.syncer != nil {
		t.Fatalf("syncer built for unreachable redis")
	}
}

func TestServerExposesMetrics(t *testing.T) {
	ctx := context.Background()

	svc, err := buildServices(ctx, testConfig(), testLocal(t))
	if err != nil {
		t.Fatalf("buildServices: %v", err)
	}
	defer svc.close()

	svc.router.Handle(ctx, router.Request{Type: router.TypeGetState})

	rec := httptest.NewRecorder()
	svc.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"cookiewarden_router_messages_total", "cookiewarden_rules_installed"} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %s", want)
		}
	}
}

type fixedOrigin string

func (o fixedOrigin) ActiveOrigin(context.Context) (string, bool) {
	return string(o), true
}

func TestNewClassifierSiteMatching(t *testing.T) {
	ctx := context.Background()
	sibling := domain.CookieObservation{Name: "opaque", Domain: "api.example.com"}
	origin := fixedOrigin("www.example.com")

	cfg := testConfig()
	if newClassifier(cfg, origin).IsEssential(ctx, sibling) {
		t.Fatalf("sibling subdomain cookie kept without registrable-domain matching")
	}

	cfg.CrossSiteByRegistrable = true
	if !newClassifier(cfg, origin).IsEssential(ctx, sibling) {
		t.Fatalf("sibling subdomain cookie removed with registrable-domain matching")
	}
}
