package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/okian/commskill/internal/adapters/coach"
	"github.com/okian/commskill/internal/adapters/http/api"
	"github.com/okian/commskill/internal/adapters/http/site"
	"github.com/okian/commskill/internal/adapters/http/swagger"
	"github.com/okian/commskill/internal/adapters/provider"
	"github.com/okian/commskill/internal/adapters/repository"
	"github.com/okian/commskill/internal/adapters/storage"
	service "github.com/okian/commskill/internal/app"
	"github.com/okian/commskill/internal/config"
	"github.com/okian/commskill/internal/domain/dedupe"
	"github.com/okian/commskill/internal/domain/scoring"
	"github.com/okian/commskill/pkg/auth"
	"github.com/okian/commskill/pkg/logger"
	"github.com/okian/commskill/pkg/metrics"
)

// HTTP server timeout constants. Uploads and synchronous analysis are slow,
// so reads and writes get far more time than headers.
const (
	readTimeout           = 5 * time.Minute
	writeTimeout          = 15 * time.Minute
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
	defaultMediaBucket    = "commskill-media"
)

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString("commskill: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (.env -> defaults -> optional file -> env)
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.InitWith(os.Stdout, cfg.LogFormat); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	if cfg.JWTSecret == config.DevJWTSecret {
		log.Warn(ctx, "using the development JWT secret; set COMMSKILL_JWT_SECRET")
	}

	app, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.close(log)

	if err := app.svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	if err := app.svc.Stop(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "service shutdown failed", logger.Error(err))
	}

	log.Info(shutdownCtx, "server stopped")
	return nil
}

// application is the wired service and everything that must be released
// with it.
type application struct {
	svc     *service.Service
	handler http.Handler
	closers []io.Closer
}

func (a *application) close(log logger.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			log.Warn(context.Background(), "close failed", logger.Error(err))
		}
	}
}

// build wires the backends named by cfg into a service and its router.
func build(ctx context.Context, cfg *config.Config, log logger.Logger) (*application, error) {
	app := &application{}
	fail := func(err error) (*application, error) {
		app.close(log)
		return nil, err
	}

	store, err := newStore(ctx, cfg, app)
	if err != nil {
		return fail(err)
	}
	deduper, err := newDeduper(ctx, cfg, app)
	if err != nil {
		return fail(err)
	}
	media, err := newMediaStore(ctx, cfg)
	if err != nil {
		return fail(err)
	}

	sc, err := cfg.Scoring()
	if err != nil {
		return fail(err)
	}
	scorer, err := scoring.NewScorer(scoring.WithConfig(sc), scoring.WithLogger(log.Named("scoring")))
	if err != nil {
		return fail(err)
	}

	opts := []service.Option{
		service.WithLogger(log.Named("service")),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithJobTimeout(cfg.JobTimeout),
		service.WithStore(store),
		service.WithMedia(media),
		service.WithDeduper(deduper),
		service.WithScorer(scorer),
		service.WithHistoryLimit(cfg.HistoryLimit),
		service.WithMediaURLExpiry(cfg.MediaURLExpiry),
		service.WithMediaCleanup(cfg.MediaCleanup),
	}
	if a := newAnnotator(cfg, log); a != nil {
		opts = append(opts, service.WithAnnotator(a))
	} else {
		log.Warn(ctx, "no provider_endpoint configured; video analysis is disabled")
	}
	if c := newCoach(cfg, store, log); c != nil {
		opts = append(opts, service.WithCoach(c))
	}
	app.svc = service.New(opts...)

	mgr, err := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return fail(err)
	}
	app.handler = newRouter(ctx, cfg, app.svc, mgr, log)
	return app, nil
}

func newStore(ctx context.Context, cfg *config.Config, app *application) (repository.Store, error) {
	if cfg.StoreDriver == config.BackendMemory {
		return repository.NewMemoryStore(), nil
	}
	store, err := repository.Open(ctx, cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	app.closers = append(app.closers, store)
	return store, nil
}

func newDeduper(ctx context.Context, cfg *config.Config, app *application) (dedupe.Deduper, error) {
	if cfg.DedupeBackend == config.BackendMemory {
		return dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.DedupeSize)), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	app.closers = append(app.closers, client)
	d := dedupe.NewRedisDeduper(client, dedupe.WithTTL(cfg.DedupeTTL))
	if err := d.Ping(ctx); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return d, nil
}

func newMediaStore(ctx context.Context, cfg *config.Config) (storage.MediaStore, error) {
	if cfg.MediaBackend == config.BackendMemory {
		return storage.NewMemoryMediaStore(defaultMediaBucket), nil
	}
	s, err := storage.NewMinioStore(ctx, storage.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		Region:    cfg.MinioRegion,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect media store: %w", err)
	}
	return s, nil
}

// newAnnotator returns nil when no annotation endpoint is configured.
func newAnnotator(cfg *config.Config, log logger.Logger) provider.Annotator {
	if cfg.ProviderEndpoint == "" {
		return nil
	}
	video := provider.NewHTTPAnnotator(cfg.ProviderEndpoint,
		provider.WithAPIKey(cfg.ProviderAPIKey),
		provider.WithLanguage(cfg.ProviderLanguage),
		provider.WithHTTPLogger(log.Named("provider")),
	)
	if cfg.AssemblyAIAPIKey == "" {
		return video
	}
	return provider.NewComposite(video,
		provider.NewAssemblyAITranscriber(cfg.AssemblyAIAPIKey, cfg.AssemblyAIBaseURL, cfg.ProviderLanguage))
}

// newCoach returns nil when no OpenAI key is configured.
func newCoach(cfg *config.Config, store repository.Store, log logger.Logger) service.Coach {
	if cfg.OpenAIAPIKey == "" {
		return nil
	}
	return coach.New(coach.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL),
		coach.WithModel(cfg.OpenAIModel),
		coach.WithMaxConversations(cfg.CoachMaxConversations),
		coach.WithConversationTTL(cfg.CoachConversationTTL),
		coach.WithScoreSource(service.ScoreSource(store)),
		coach.WithLogger(log.Named("coach")),
	)
}

func newRouter(ctx context.Context, cfg *config.Config, svc *service.Service, authn api.Authenticator, log logger.Logger) chi.Router {
	r := api.NewServer(svc, svc, authn,
		api.WithCORSOrigins(cfg.CORSOrigins...),
		api.WithMaxUploadBytes(cfg.MaxUploadBytes),
		api.WithLogger(log.Named("http")),
	).Router()
	swagger.Register(ctx, r)
	site.Register(ctx, r)
	return r
}

// startSystemMetricsUpdater updates system metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
