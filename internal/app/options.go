package service

import (
	"context"
	"time"

	"github.com/okian/commskill/internal/adapters/coach"
	"github.com/okian/commskill/internal/adapters/provider"
	repository "github.com/okian/commskill/internal/adapters/repository"
	"github.com/okian/commskill/internal/adapters/storage"
	"github.com/okian/commskill/internal/domain/dedupe"
	"github.com/okian/commskill/internal/domain/model"
	"github.com/okian/commskill/internal/domain/scoring"
	"github.com/okian/commskill/pkg/logger"
)

// Coach is the chat and feedback collaborator.
type Coach interface {
	Start(ctx context.Context, owner string) coach.Conversation
	Send(ctx context.Context, owner, conversationID, message string) (coach.Reply, error)
	End(ctx context.Context, owner, conversationID string) error
	Insights(ctx context.Context, scores scoring.Scores) (*model.Insights, error)
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued analyses.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithJobTimeout bounds a single asynchronous analysis.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.jobTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the analysis record store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithSessions sets the session store.
func WithSessions(sessions repository.SessionStore) Option {
	return func(s *Service) {
		if sessions != nil {
			s.sessions = sessions
		}
	}
}

// WithMedia sets the media store uploads go to.
func WithMedia(media storage.MediaStore) Option {
	return func(s *Service) {
		if media != nil {
			s.media = media
		}
	}
}

// WithAnnotator sets the annotation provider.
func WithAnnotator(a provider.Annotator) Option {
	return func(s *Service) {
		if a != nil {
			s.annotator = a
		}
	}
}

// WithCoach sets the chat coach. It also produces analysis feedback.
func WithCoach(c Coach) Option {
	return func(s *Service) {
		if c != nil {
			s.coach = c
		}
	}
}

// WithDeduper sets the duplicate upload detector.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}

// WithScorer sets the scorer.
func WithScorer(sc *scoring.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithHistoryLimit sets the default page size for History.
func WithHistoryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithMediaURLExpiry sets how long provider download URLs stay valid.
func WithMediaURLExpiry(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.urlExpiry = d
		}
	}
}

// WithMediaCleanup controls whether uploaded media is deleted once analyzed.
func WithMediaCleanup(enabled bool) Option {
	return func(s *Service) {
		s.cleanupMedia = enabled
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
