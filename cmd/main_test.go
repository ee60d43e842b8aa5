package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/commskill/internal/adapters/provider"
	"github.com/okian/commskill/internal/adapters/repository"
	"github.com/okian/commskill/internal/config"
	"github.com/okian/commskill/internal/domain/dedupe"
	"github.com/okian/commskill/pkg/auth"
	"github.com/okian/commskill/pkg/logger"
)

func TestConfigFromEnvironment(t *testing.T) {
	convey.Convey("Given environment overrides", t, func() {
		_ = os.Setenv("COMMSKILL_ADDR", ":9090")
		_ = os.Setenv("COMMSKILL_QUEUE_SIZE", "25")
		_ = os.Setenv("COMMSKILL_WORKER_COUNT", "3")
		defer func() {
			_ = os.Unsetenv("COMMSKILL_ADDR")
			_ = os.Unsetenv("COMMSKILL_QUEUE_SIZE")
			_ = os.Unsetenv("COMMSKILL_WORKER_COUNT")
		}()

		cfg, err := config.Load()
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
		convey.So(cfg.QueueSize, convey.ShouldEqual, 25)
		convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
	})
}

func TestBuild(t *testing.T) {
	convey.Convey("Given the default in-memory configuration", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.WorkerCount = 1
		log := logger.Nop()

		app, err := build(ctx, cfg, log)
		convey.So(err, convey.ShouldBeNil)
		defer app.close(log)
		convey.So(app.closers, convey.ShouldBeEmpty)

		convey.So(app.svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = app.svc.Stop(ctx) }()

		srv := httptest.NewServer(app.handler)
		defer srv.Close()

		get := func(path, token string) int {
			req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+path, nil)
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			resp, err := http.DefaultClient.Do(req)
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			return resp.StatusCode
		}

		convey.Convey("Public routes are served", func() {
			convey.So(get("/", ""), convey.ShouldEqual, http.StatusOK)
			convey.So(get("/healthz", ""), convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml", ""), convey.ShouldEqual, http.StatusOK)
			convey.So(get("/api-docs", ""), convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("API routes require a token signed with the configured secret", func() {
			convey.So(get("/api/user/profile", ""), convey.ShouldEqual, http.StatusUnauthorized)

			mgr, err := auth.NewManager(cfg.JWTSecret, time.Hour)
			convey.So(err, convey.ShouldBeNil)
			tok, err := mgr.Issue("u1")
			convey.So(err, convey.ShouldBeNil)
			convey.So(get("/api/user/profile", tok), convey.ShouldEqual, http.StatusOK)
			convey.So(get("/api/video/test-connection", tok), convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Chat is unavailable without an OpenAI key", func() {
			mgr, _ := auth.NewManager(cfg.JWTSecret, time.Hour)
			tok, _ := mgr.Issue("u1")
			req, _ := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/api/chat/start", nil)
			req.Header.Set("Authorization", "Bearer "+tok)
			resp, err := http.DefaultClient.Do(req)
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusServiceUnavailable)
		})
	})

	convey.Convey("Given an unreachable database", t, func() {
		cfg := config.New()
		cfg.StoreDriver = config.BackendPostgres
		cfg.StoreDSN = "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1"

		_, err := build(context.Background(), cfg, logger.Nop())
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestBackendSelection(t *testing.T) {
	convey.Convey("Given backend settings", t, func() {
		ctx := context.Background()
		cfg := config.New()
		app := &application{}

		convey.Convey("Memory backends need no closers", func() {
			store, err := newStore(ctx, cfg, app)
			convey.So(err, convey.ShouldBeNil)
			_, ok := store.(*repository.MemoryStore)
			convey.So(ok, convey.ShouldBeTrue)

			d, err := newDeduper(ctx, cfg, app)
			convey.So(err, convey.ShouldBeNil)
			_, ok = d.(*dedupe.InMemoryDeduper)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(app.closers, convey.ShouldBeEmpty)
		})

		convey.Convey("The annotator depends on the configured providers", func() {
			convey.So(newAnnotator(cfg, logger.Nop()), convey.ShouldBeNil)

			cfg.ProviderEndpoint = "http://annotator.local/annotate"
			_, ok := newAnnotator(cfg, logger.Nop()).(*provider.HTTPAnnotator)
			convey.So(ok, convey.ShouldBeTrue)

			cfg.AssemblyAIAPIKey = "aai-key"
			_, ok = newAnnotator(cfg, logger.Nop()).(*provider.Composite)
			convey.So(ok, convey.ShouldBeTrue)
		})

		convey.Convey("The coach needs an OpenAI key", func() {
			store := repository.NewMemoryStore()
			convey.So(newCoach(cfg, store, logger.Nop()), convey.ShouldBeNil)

			cfg.OpenAIAPIKey = "sk-test"
			convey.So(newCoach(cfg, store, logger.Nop()), convey.ShouldNotBeNil)
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.So(updateSystemMetrics, convey.ShouldNotPanic)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
	})
}
