package coach

import (
	"context"
	"time"

	"github.com/okian/commskill/internal/domain/scoring"
	"github.com/okian/commskill/pkg/logger"
)

const (
	defaultModel      = "gpt-4o-mini"
	defaultMaxHistory = 20
	defaultMaxTokens  = 512

	defaultMaxConversations = 10_000
	defaultConversationTTL  = 2 * time.Hour
)

// ScoreSource returns an owner's latest scores.
type ScoreSource interface {
	LatestScores(ctx context.Context, owner string) (scoring.Scores, bool)
}

// Option applies a configuration option to the Coach.
type Option func(*Coach)

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(c *Coach) {
		if model != "" {
			c.model = model
		}
	}
}

// WithMaxHistory bounds the number of messages kept per conversation.
func WithMaxHistory(n int) Option {
	return func(c *Coach) {
		if n > 1 {
			c.maxHistory = n
		}
	}
}

// WithScoreSource sets where the coach reads the owner's scores from.
func WithScoreSource(src ScoreSource) Option {
	return func(c *Coach) {
		c.scores = src
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Coach) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMaxConversations bounds the number of live conversations. 0 or
// negative means unbounded.
func WithMaxConversations(n int) Option {
	return func(c *Coach) {
		c.maxConversations = n
	}
}

// WithConversationTTL sets how long an idle conversation is kept. 0 or
// negative keeps conversations until they are ended or evicted.
func WithConversationTTL(d time.Duration) Option {
	return func(c *Coach) {
		c.ttl = d
	}
}

// WithClock sets the time source used for conversation expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Coach) {
		if now != nil {
			c.now = now
		}
	}
}
