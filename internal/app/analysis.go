package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	jobqueue "github.com/okian/commskill/internal/adapters/mq/queue"
	"github.com/okian/commskill/internal/adapters/provider"
	repository "github.com/okian/commskill/internal/adapters/repository"
	"github.com/okian/commskill/internal/adapters/storage"
	"github.com/okian/commskill/internal/domain/annotations"
	"github.com/okian/commskill/internal/domain/model"
	"github.com/okian/commskill/internal/domain/scoring"
	"github.com/okian/commskill/internal/domain/types"
	"github.com/okian/commskill/pkg/logger"
	"github.com/okian/commskill/pkg/metrics"
)

// Upload describes a video submitted by a user.
type Upload = types.Upload

// StartResult is returned by StartAnalysis.
type StartResult = types.StartResult

// StartAnalysis uploads the video, creates a session and queues the
// analysis. It returns ErrBackpressure when the queue is full.
func (s *Service) StartAnalysis(ctx context.Context, owner string, up Upload) (StartResult, error) {
	s.mu.RLock()
	started, q := s.started, s.queue
	s.mu.RUnlock()
	if !started {
		return StartResult{}, ErrNotStarted
	}

	locator, digest, err := s.upload(ctx, owner, up)
	if err != nil {
		return StartResult{}, err
	}

	sess := model.NewSession(owner, locator, s.now())
	key := owner + ":" + digest
	prev, dup, err := s.claim(ctx, owner, key, sess.ID)
	if err != nil {
		s.discard(ctx, locator)
		return StartResult{}, err
	}
	if dup {
		s.discard(ctx, locator)
		metrics.RecordAnalysisDuplicate()
		s.logger.Debug(ctx, "duplicate upload", logger.String("sessionID", prev.ID))
		return StartResult{Session: prev, Duplicate: true}, nil
	}

	if err := s.sessions.Create(ctx, sess); err != nil {
		s.release(ctx, key)
		s.discard(ctx, locator)
		return StartResult{}, fmt.Errorf("create session: %w", err)
	}

	job := model.Job{SessionID: sess.ID, OwnerID: owner, VideoURL: locator, Digest: key}
	if err := q.Enqueue(ctx, job); err != nil {
		s.release(ctx, key)
		s.discard(ctx, locator)
		s.failSession(ctx, sess.ID, err)
		metrics.RecordAnalysisFailed("enqueue")
		if errors.Is(err, jobqueue.ErrFull) || errors.Is(err, jobqueue.ErrClosed) {
			return StartResult{}, fmt.Errorf("%w: %w", ErrBackpressure, err)
		}
		return StartResult{}, fmt.Errorf("enqueue: %w", err)
	}

	s.logger.Info(ctx, "analysis queued",
		logger.String("sessionID", sess.ID),
		logger.String("owner", owner),
	)
	return StartResult{Session: sess}, nil
}

// ProcessJob runs a queued analysis and records its outcome on the session.
// It implements the worker processor.
func (s *Service) ProcessJob(ctx context.Context, j model.Job) error { //nolint:gocritic // hugeParam: Job arrives by value from the queue
	if _, err := s.sessions.Update(ctx, j.SessionID, func(sess *model.Session) error {
		return sess.Transition(model.StatusProcessing, s.now())
	}); err != nil {
		return fmt.Errorf("start session %s: %w", j.SessionID, err)
	}

	rec, err := s.process(ctx, j.OwnerID, j.VideoURL, j.Digest)
	if err != nil {
		s.failSession(ctx, j.SessionID, err)
		s.release(ctx, j.Digest)
		s.discard(ctx, j.VideoURL)
		return err
	}

	if _, err := s.sessions.Update(ctx, j.SessionID, func(sess *model.Session) error {
		return sess.Complete(rec.ID, s.now())
	}); err != nil {
		return fmt.Errorf("complete session %s: %w", j.SessionID, err)
	}
	return nil
}

// Process analyzes the video at videoURL, stores the record and, when the
// video lives in the media store, deletes it afterwards.
func (s *Service) Process(ctx context.Context, owner, videoURL string) (model.AnalysisRecord, error) {
	return s.process(ctx, owner, videoURL, "")
}

func (s *Service) process(ctx context.Context, owner, videoURL, digest string) (model.AnalysisRecord, error) {
	if videoURL == "" {
		return model.AnalysisRecord{}, ErrMissingVideoURL
	}
	if s.annotator == nil {
		return model.AnalysisRecord{}, ErrNoAnnotator
	}

	start := time.Now()
	fetchURL := videoURL
	if s.owned(videoURL) {
		u, err := s.media.AccessURL(ctx, videoURL, s.urlExpiry)
		if err != nil {
			metrics.RecordAnalysisFailed("access_url")
			return model.AnalysisRecord{}, fmt.Errorf("media url: %w", err)
		}
		fetchURL = u
	}

	raw, err := s.annotator.Annotate(ctx, fetchURL)
	if err != nil {
		metrics.RecordAnalysisFailed("annotate")
		if ctx.Err() == nil && !errors.Is(err, provider.ErrUpstream) {
			err = fmt.Errorf("%w: %w", provider.ErrUpstream, err)
		}
		return model.AnalysisRecord{}, fmt.Errorf("annotate: %w", err)
	}

	res, err := s.Score(ctx, raw)
	if err != nil {
		metrics.RecordAnalysisFailed("score")
		return model.AnalysisRecord{}, err
	}

	rec := model.NewAnalysisRecord(owner, videoURL, res.Scores, s.insights(ctx, res.Scores), s.now())
	rec.Digest = digest
	if err := s.store.Save(ctx, rec); err != nil {
		metrics.RecordAnalysisFailed("save")
		return model.AnalysisRecord{}, fmt.Errorf("save analysis: %w", err)
	}

	if s.cleanupMedia {
		s.discard(ctx, videoURL)
	}

	metrics.RecordAnalysisCompleted()
	s.logger.Info(ctx, "analysis completed",
		logger.String("analysisID", rec.ID),
		logger.String("owner", owner),
		logger.Duration("took", time.Since(start)),
	)
	return rec, nil
}

// UploadAndAnalyze uploads the video and analyzes it synchronously.
func (s *Service) UploadAndAnalyze(ctx context.Context, owner string, up Upload) (model.AnalysisRecord, error) {
	locator, _, err := s.upload(ctx, owner, up)
	if err != nil {
		return model.AnalysisRecord{}, err
	}
	rec, err := s.Process(ctx, owner, locator)
	if err != nil {
		s.discard(ctx, locator)
		return model.AnalysisRecord{}, err
	}
	return rec, nil
}

// Score scores raw annotations without storing anything.
func (s *Service) Score(ctx context.Context, raw *annotations.RawAnnotations) (scoring.Result, error) {
	start := time.Now()
	res, err := s.scorer.Score(ctx, raw)
	metrics.RecordScoringLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return scoring.Result{}, fmt.Errorf("score: %w", err)
	}

	for _, d := range res.Fallbacks {
		metrics.RecordScoringFallback(string(d))
	}
	for d, v := range res.Scores {
		metrics.ObserveDimensionScore(string(d), v)
	}
	if len(res.Fallbacks) > 0 {
		s.logger.Debug(ctx, "scoring used fallbacks", logger.Any("dimensions", res.Fallbacks))
	}
	return res, nil
}

// Session returns the owner's analysis session.
func (s *Service) Session(ctx context.Context, owner, id string) (model.Session, error) {
	sess, err := s.sessions.Get(ctx, owner, id)
	if err != nil {
		return model.Session{}, fmt.Errorf("session %s: %w", id, err)
	}
	return sess, nil
}

// History lists the owner's analyses, newest first. A non-positive limit
// selects the default page size; limits are capped.
func (s *Service) History(ctx context.Context, owner string, limit int) ([]model.AnalysisRecord, error) {
	if limit <= 0 {
		limit = s.historyLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	recs, err := s.store.List(ctx, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return recs, nil
}

// Get returns one of the owner's analyses.
func (s *Service) Get(ctx context.Context, owner, id string) (model.AnalysisRecord, error) {
	rec, err := s.store.Get(ctx, owner, id)
	if err != nil {
		return model.AnalysisRecord{}, fmt.Errorf("analysis %s: %w", id, err)
	}
	return rec, nil
}

// Delete removes one of the owner's analyses and its media, if still stored.
// The upload it came from may be analyzed again afterwards.
func (s *Service) Delete(ctx context.Context, owner, id string) error {
	rec, err := s.store.Delete(ctx, owner, id)
	if err != nil {
		return fmt.Errorf("delete analysis %s: %w", id, err)
	}
	s.release(ctx, rec.Digest)
	s.discard(ctx, rec.VideoURL)
	return nil
}

// SaveResults stores scores computed by the client. Engagement is derived
// when the client sent every component but not engagement itself.
func (s *Service) SaveResults(ctx context.Context, owner, videoURL string, scores scoring.Scores) (model.AnalysisRecord, error) {
	if videoURL == "" {
		return model.AnalysisRecord{}, ErrMissingVideoURL
	}
	if len(scores) == 0 {
		return model.AnalysisRecord{}, fmt.Errorf("%w: no scores", ErrInvalidScores)
	}
	if err := scores.Validate(); err != nil {
		return model.AnalysisRecord{}, fmt.Errorf("%w: %w", ErrInvalidScores, err)
	}

	scores = copyScores(scores)
	if _, ok := scores[scoring.DimEngagement]; !ok && hasComponents(scores) {
		cfg := s.scorer.Config()
		scores[scoring.DimEngagement] = scoring.Engagement(scores, cfg.Policy, cfg.Weights)
	}

	rec := model.NewAnalysisRecord(owner, videoURL, scores, nil, s.now())
	if err := s.store.Save(ctx, rec); err != nil {
		return model.AnalysisRecord{}, fmt.Errorf("save results: %w", err)
	}
	return rec, nil
}

func (s *Service) upload(ctx context.Context, owner string, up Upload) (locator, digest string, err error) {
	if up.Empty() {
		return "", "", ErrEmptyVideo
	}

	h := sha256.New()
	key := storage.ObjectKey(owner, uuid.NewString(), up.Filename, s.now())
	locator, err = s.media.Upload(ctx, key, io.TeeReader(up.Body, h), up.Size, storage.ContentType(up.Filename))
	if err != nil {
		metrics.RecordAnalysisFailed("upload")
		return "", "", fmt.Errorf("upload video: %w", err)
	}
	return locator, hex.EncodeToString(h.Sum(nil)), nil
}

func (s *Service) insights(ctx context.Context, scores scoring.Scores) *model.Insights {
	if s.coach == nil {
		return nil
	}
	ins, err := s.coach.Insights(ctx, scores)
	if err != nil {
		s.logger.Warn(ctx, "feedback generation failed", logger.Error(err))
		return nil
	}
	return ins
}

// owned reports whether url points into the media store.
func (s *Service) owned(url string) bool {
	scheme, _, _, err := storage.ParseLocator(url)
	return err == nil && (scheme == storage.SchemeS3 || scheme == storage.SchemeMemory)
}

// discard deletes media the service uploaded. Failures are logged only.
func (s *Service) discard(ctx context.Context, locator string) {
	if !s.owned(locator) {
		return
	}
	if err := s.media.Delete(ctx, locator); err != nil {
		metrics.RecordMediaCleanupFailure()
		s.logger.Warn(ctx, "media cleanup failed",
			logger.String("locator", locator),
			logger.Error(err),
		)
	}
}

// claim takes key for session id. When key is held by a session that can
// no longer be found here, because it was forgotten or lives on another
// instance, the claim is taken over. dup=true returns the holder.
func (s *Service) claim(ctx context.Context, owner, key, id string) (model.Session, bool, error) {
	for range maxClaimAttempts {
		existing, dup, err := s.deduper.Claim(ctx, key, id)
		if err != nil {
			return model.Session{}, false, fmt.Errorf("claim upload: %w", err)
		}
		if !dup {
			return model.Session{}, false, nil
		}

		prev, err := s.sessions.Get(ctx, owner, existing)
		if err == nil {
			return prev, true, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return model.Session{}, false, fmt.Errorf("duplicate upload: %w", err)
		}

		ok, err := s.deduper.Replace(ctx, key, existing, id)
		if err != nil {
			return model.Session{}, false, fmt.Errorf("take over upload: %w", err)
		}
		if ok {
			s.logger.Debug(ctx, "took over stale upload claim", logger.String("previous", existing))
			return model.Session{}, false, nil
		}
	}
	return model.Session{}, false, fmt.Errorf("%w: upload claim contended", ErrBackpressure)
}

func (s *Service) release(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.deduper.Release(ctx, key); err != nil {
		s.logger.Warn(ctx, "dedupe release failed", logger.Error(err))
	}
}

func (s *Service) failSession(ctx context.Context, id string, cause error) {
	if _, err := s.sessions.Update(ctx, id, func(sess *model.Session) error {
		return sess.Fail(cause, s.now())
	}); err != nil {
		s.logger.Error(ctx, "failed to mark session failed",
			logger.String("sessionID", id),
			logger.Error(err),
		)
	}
}

func copyScores(in scoring.Scores) scoring.Scores {
	out := make(scoring.Scores, len(in)+1)
	for d, v := range in {
		out[d] = v
	}
	return out
}

func hasComponents(scores scoring.Scores) bool {
	for _, d := range scoring.Components {
		if _, ok := scores[d]; !ok {
			return false
		}
	}
	return true
}
