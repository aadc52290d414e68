// Package app wires every component of the service and owns its lifecycle.
package app

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"cookiewarden/internal/app/server"
	"cookiewarden/internal/browser"
	"cookiewarden/internal/classifier"
	"cookiewarden/internal/cloud"
	"cookiewarden/internal/config"
	"cookiewarden/internal/coordinator"
	"cookiewarden/internal/database"
	"cookiewarden/internal/domain"
	"cookiewarden/internal/metrics"
	"cookiewarden/internal/router"
	"cookiewarden/internal/rules"
	"cookiewarden/internal/store"
	"cookiewarden/internal/support"
)

// Run starts the service and blocks until ctx is canceled or a component
// fails.
func Run(ctx context.Context, cfg *config.Config) error {
	log.SetLevel(cfg.Level())

	dialector, err := database.Dialector(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	db, err := database.SetupDB(database.WithDialector(dialector))
	if err != nil {
		return err
	}

	svc, err := buildServices(ctx, cfg, database.NewLocalScope(db))
	if err != nil {
		return err
	}
	defer svc.close()

	session, err := browser.Connect(ctx, cfg.BrowserControlURL, cfg.BrowserHeadless)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("Closing browser failed", "error", err)
		}
	}()

	bridge, err := svc.attachBrowser(ctx, cfg, session)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return svc.server.ListenAndServe(gctx) })
	g.Go(func() error { return bridge.watcher.Run(gctx) })
	g.Go(func() error { return bridge.enforcer.Run(gctx) })

	if svc.syncer != nil {
		g.Go(func() error {
			svc.syncer.Run(gctx)
			return nil
		})
		g.Go(func() error {
			svc.cloud.RunHeartbeat(gctx, cloud.DefaultHeartbeatInterval, cloud.DefaultHeartbeatTTL)
			return nil
		})
	}

	if len(cfg.TrackerListURLs) > 0 {
		g.Go(func() error {
			svc.trackers.RunRefreshLoop(gctx, cfg.TrackerListURLs, cfg.TrackerRefreshInterval, svc.resync)
			return nil
		})
	}

	log.Info("cookiewarden running", "addr", cfg.HTTPAddr, "cloud", svc.syncer != nil, "auth", cfg.AuthEnabled())
	return g.Wait()
}

// services are the components that do not need a browser.
type services struct {
	registry *prometheus.Registry

	redis    *redis.Client
	cloud    *cloud.Scope
	store    *store.Store
	syncer   *store.Syncer
	activity *store.ActivityLog

	trackers *rules.TrackerList
	engine   *rules.MemoryEngine
	rules    *rules.Synchronizer

	router *router.Router
	server *server.Server

	coordinatorMetrics *metrics.Coordinator
	browserMetrics     *metrics.Browser
}

func buildServices(ctx context.Context, cfg *config.Config, local store.LocalScope) (_ *services, err error) {
	svc := &services{registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			svc.close()
		}
	}()

	svc.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m, err := newMetrics(svc.registry)
	if err != nil {
		return nil, err
	}
	svc.coordinatorMetrics = m.coordinator
	svc.browserMetrics = m.browser

	var cloudScope store.CloudScope
	if cfg.CloudEnabled() {
		client, cerr := cloud.NewClient(ctx, cfg.RedisURL)
		if cerr != nil {
			log.Warn("Cloud sync disabled, redis unreachable", "error", cerr)
		} else {
			deviceID := cfg.DeviceID
			if deviceID == "" {
				deviceID = support.InstanceID()
			}
			svc.redis = client
			svc.cloud = cloud.NewScope(client, cfg.SyncProfile, deviceID)
			cloudScope = svc.cloud
		}
	}

	svc.store = store.New(local, cloudScope)
	svc.activity = store.NewActivityLog(local, store.DefaultActivityLimit)

	svc.trackers = rules.NewTrackerList()
	if cfg.TrackerListPath != "" {
		n, lerr := svc.trackers.LoadFile(cfg.TrackerListPath)
		if lerr != nil {
			return nil, lerr
		}
		log.Info("Loaded tracker list", "path", cfg.TrackerListPath, "domains", n)
	}

	svc.engine = rules.NewMemoryEngine()
	svc.rules = rules.NewSynchronizer(svc.engine, rules.NewCompiler(), svc.trackers, m.rules)

	if _, err = svc.store.Load(ctx); err != nil {
		return nil, err
	}
	if err = svc.rules.Seed(ctx); err != nil {
		return nil, err
	}
	svc.resync(ctx)

	routerCfg := &router.Config{
		Store:    svc.store,
		Rules:    svc.rules,
		Activity: svc.activity,
		Metrics:  m.router,
	}
	if cloudScope != nil {
		svc.syncer = store.NewSyncer(svc.store, cloudScope,
			store.WithSyncInterval(cfg.SyncInterval),
			store.WithPullHook(svc.onPull),
			store.WithSyncMetrics(m.sync),
		)
		routerCfg.Sync = svc.syncer
	}
	svc.router = router.New(routerCfg)

	svc.server = server.New(&server.Config{
		Addr:       cfg.HTTPAddr,
		Messages:   svc.router,
		State:      svc.store,
		Rules:      svc.engine,
		Gatherer:   svc.registry,
		AuthSecret: cfg.AuthSecret,
	})

	return svc, nil
}

type browserComponents struct {
	coordinator *coordinator.Coordinator
	watcher     *browser.Watcher
	enforcer    *browser.Enforcer
}

func (svc *services) attachBrowser(ctx context.Context, cfg *config.Config, session *browser.Session) (*browserComponents, error) {
	cookies := browser.NewCookieStore(session.Browser)

	coord := coordinator.New(&coordinator.Config{
		Store:                  svc.store,
		Cookies:                cookies,
		Classifier:             newClassifier(cfg, browser.NewOrigin(session.Browser)),
		Activity:               svc.activity,
		Metrics:                svc.coordinatorMetrics,
		Cooldown:               cfg.Cooldown,
		NeutralizeBeforeDelete: cfg.NeutralizeBeforeDelete,
	})

	if cfg.SweepOnStartup {
		removed, err := coord.Sweep(ctx)
		if err != nil {
			return nil, fmt.Errorf("app: startup sweep: %w", err)
		}
		log.Info("Startup sweep finished", "removed", removed)
	}

	return &browserComponents{
		coordinator: coord,
		watcher:     browser.NewWatcher(cookies, coord.OnCookieObserved, cfg.CookiePollInterval, svc.browserMetrics),
		enforcer:    browser.NewEnforcer(session.Browser, svc.engine, svc.browserMetrics),
	}, nil
}

func newClassifier(cfg *config.Config, origin classifier.OriginResolver) *classifier.Classifier {
	opts := []classifier.Option{classifier.WithOriginResolver(origin)}
	if cfg.CrossSiteByRegistrable {
		opts = append(opts, classifier.WithRegistrableDomainMatch())
	}
	return classifier.New(opts...)
}

// resync rebuilds the rules from the store's state at the time the
// synchronizer lock is taken.
func (svc *services) resync(ctx context.Context) {
	if _, err := svc.rules.SyncCurrent(ctx, svc.store.Snapshot); err != nil {
		log.Error("Rule sync failed", "error", err)
	}
}

func (svc *services) onPull(ctx context.Context, _ domain.ExtensionState) {
	svc.resync(ctx)
}

func (svc *services) close() {
	if svc.redis != nil {
		if err := svc.redis.Close(); err != nil {
			log.Warn("Closing redis client failed", "error", err)
		}
	}
}

type allMetrics struct {
	coordinator *metrics.Coordinator
	rules       *metrics.Rules
	router      *metrics.Router
	browser     *metrics.Browser
	sync        *metrics.Sync
}

func newMetrics(reg prometheus.Registerer) (m *allMetrics, err error) {
	m = &allMetrics{}

	if m.coordinator, err = metrics.NewCoordinator(metrics.Namespace, reg); err != nil {
		return nil, fmt.Errorf("app: coordinator metrics: %w", err)
	}
	if m.rules, err = metrics.NewRules(metrics.Namespace, reg); err != nil {
		return nil, fmt.Errorf("app: rules metrics: %w", err)
	}
	if m.router, err = metrics.NewRouter(metrics.Namespace, reg); err != nil {
		return nil, fmt.Errorf("app: router metrics: %w", err)
	}
	if m.browser, err = metrics.NewBrowser(metrics.Namespace, reg); err != nil {
		return nil, fmt.Errorf("app: browser metrics: %w", err)
	}
	if m.sync, err = metrics.NewSync(metrics.Namespace, reg); err != nil {
		return nil, fmt.Errorf("app: sync metrics: %w", err)
	}
	return m, nil
}
