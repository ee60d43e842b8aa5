// Package service provides the analysis service behind the HTTP API: it
// uploads media, tracks sessions, runs the scoring pipeline and stores
// the results.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/commskill/internal/adapters/coach"
	jobqueue "github.com/okian/commskill/internal/adapters/mq/queue"
	workerpool "github.com/okian/commskill/internal/adapters/mq/worker"
	"github.com/okian/commskill/internal/adapters/provider"
	repository "github.com/okian/commskill/internal/adapters/repository"
	"github.com/okian/commskill/internal/adapters/storage"
	"github.com/okian/commskill/internal/domain/dedupe"
	"github.com/okian/commskill/internal/domain/scoring"
	"github.com/okian/commskill/internal/domain/types"
	"github.com/okian/commskill/pkg/logger"
	"github.com/okian/commskill/pkg/metrics"
)

const (
	defaultQueueSize    = 1000
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
	maxClaimAttempts    = 3
	defaultURLExpiry    = time.Hour
	defaultJobTimeout   = 10 * time.Minute
	defaultBucket       = "commskill-media"
)

// Service implements the API dependencies for communication-skill analysis.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	sessions  repository.SessionStore
	media     storage.MediaStore
	annotator provider.Annotator
	coach     Coach
	deduper   dedupe.Deduper
	scorer    *scoring.Scorer
	queue     *jobqueue.InMemoryQueue
	pool      *workerpool.Pool

	// Configuration
	workerCount  int
	queueSize    int
	jobTimeout   time.Duration
	historyLimit int
	urlExpiry    time.Duration
	cleanupMedia bool
	now          func() time.Time

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a Service. Collaborators that are not supplied default to
// in-memory implementations; without an annotator only scoring of supplied
// annotations works.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU(),
		queueSize:    defaultQueueSize,
		jobTimeout:   defaultJobTimeout,
		historyLimit: defaultHistoryLimit,
		urlExpiry:    defaultURLExpiry,
		cleanupMedia: true,
		now:          time.Now,
		logger:       logger.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.sessions == nil {
		s.sessions = repository.NewMemorySessionStore()
	}
	if s.media == nil {
		s.media = storage.NewMemoryMediaStore(defaultBucket)
	}
	if s.deduper == nil {
		s.deduper = dedupe.NewInMemoryDeduper()
	}
	if s.scorer == nil {
		// the default configuration always validates
		s.scorer, _ = scoring.NewScorer(scoring.WithLogger(s.logger.Named("scoring")))
	}

	return s
}

// Start builds the job queue and worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting analysis service...")

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.queue = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s,
		workerpool.WithPoolLogger(s.logger),
		workerpool.WithWorkerOptions(workerpool.WithJobTimeout(s.jobTimeout)),
	)
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "analysis service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
	)

	return nil
}

// Stop drains queued analyses until ctx expires, then stops the workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping analysis service...")

	err := s.pool.Shutdown(ctx)
	s.cancel()

	if closer, ok := s.store.(interface{ Close() error }); ok {
		if cerr := closer.Close(); cerr != nil {
			s.logger.Error(ctx, "error closing store", logger.Error(cerr))
		}
	}

	s.started = false
	s.logger.Info(ctx, "analysis service stopped")

	if err != nil {
		return fmt.Errorf("stop workers: %w", err)
	}
	return nil
}

// Started reports whether Start has been called without a matching Stop.
func (s *Service) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// ConnectionReport describes the reachable backing services.
type ConnectionReport = types.ConnectionReport

// TestConnection checks the media store and, when it supports it, the
// record store.
func (s *Service) TestConnection(ctx context.Context) (ConnectionReport, error) {
	bucket, err := s.media.Ping(ctx)
	if err != nil {
		metrics.RecordError("storage", "ping")
		return ConnectionReport{}, fmt.Errorf("media store: %w", err)
	}

	report := ConnectionReport{Bucket: bucket, Storage: "ok", Store: "ok"}
	if pinger, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		if err := pinger.Ping(ctx); err != nil {
			metrics.RecordError("repository", "ping")
			return report, fmt.Errorf("record store: %w", err)
		}
	}
	return report, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"totalRecords": s.store.Count(ctx),
	}
	if sized, ok := s.deduper.(interface{ Size() int64 }); ok {
		stats["dedupeSize"] = sized.Size()
	}

	if s.started {
		queueLen := s.queue.Len()
		stats["queueLength"] = queueLen
		stats["workerCount"] = s.pool.Size()
		metrics.UpdateQueueSize(queueLen)
	}

	return stats
}

// LatestScores returns the owner's most recent scores.
func (s *Service) LatestScores(ctx context.Context, owner string) (scoring.Scores, bool) {
	return storeScores{store: s.store}.LatestScores(ctx, owner)
}

type storeScores struct {
	store repository.Store
}

func (ss storeScores) LatestScores(ctx context.Context, owner string) (scoring.Scores, bool) {
	recs, err := ss.store.List(ctx, owner, 1)
	if err != nil || len(recs) == 0 {
		return nil, false
	}
	return recs[0].Scores, true
}

// ScoreSource lets the coach read an owner's latest scores from store.
func ScoreSource(store repository.Store) coach.ScoreSource {
	return storeScores{store: store}
}
