package loadtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/okian/commskill/internal/domain/scoring"
	"github.com/okian/commskill/pkg/logger"
)

const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Errors returned by Run.
var (
	ErrNoTokens   = errors.New("loadtest: token issuer is required")
	ErrMismatches = errors.New("loadtest: remote scores differ from local scores")
	ErrFailures   = errors.New("loadtest: requests failed")
)

// Report is the outcome of a run.
type Report struct {
	Stats      Stats
	Mismatches []Mismatch
}

// Run executes a complete load test against cfg.BaseURL.
func Run(ctx context.Context, cfg Config) (Report, error) {
	if err := cfg.defaults(); err != nil {
		return Report{}, err
	}
	stats := Stats{StartTime: time.Now()}

	cfg.Logger.Info(ctx, "starting load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("payloads", cfg.Payloads),
		logger.Int("users", cfg.Users),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Bool("save", cfg.Save))

	if err := checkServiceHealth(ctx, &cfg); err != nil {
		return Report{Stats: stats}, fmt.Errorf("service health check failed: %w", err)
	}

	payloads, err := generatePayloads(ctx, &cfg, &stats)
	if err != nil {
		return Report{Stats: stats}, fmt.Errorf("payload generation failed: %w", err)
	}

	tokens, err := issueTokens(&cfg, payloads)
	if err != nil {
		return Report{Stats: stats}, err
	}
	client := newHTTPClient(cfg.BaseURL, cfg.Timeout, tokens)

	outcomes := submitPayloads(ctx, &cfg, client, payloads, &stats)

	mismatches, err := verifyScores(ctx, &cfg, outcomes, &stats)
	if err != nil {
		return Report{Stats: stats}, fmt.Errorf("result verification failed: %w", err)
	}

	if cfg.Save {
		if err := saveAndCheckHistory(ctx, &cfg, client, outcomes, &stats); err != nil {
			return Report{Stats: stats, Mismatches: mismatches}, fmt.Errorf("history verification failed: %w", err)
		}
	}

	if cfg.OutputFile != "" {
		if err := savePayloadsToFile(cfg.OutputFile, payloads); err != nil {
			cfg.Logger.Warn(ctx, "failed to save payloads to file", logger.Error(err))
		} else {
			cfg.Logger.Info(ctx, "payloads saved to file", logger.String("filename", cfg.OutputFile))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, cfg.Logger, stats)

	report := Report{Stats: stats, Mismatches: mismatches}
	switch {
	case stats.Failed > 0:
		return report, fmt.Errorf("%w: %d of %d", ErrFailures, stats.Failed, stats.Submitted)
	case stats.Mismatched > 0:
		return report, fmt.Errorf("%w: %d payloads", ErrMismatches, stats.Mismatched)
	}
	cfg.Logger.Info(ctx, "load test completed successfully")
	return report, nil
}

func (c *Config) defaults() error {
	if c.Tokens == nil {
		return ErrNoTokens
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
	if c.Payloads <= 0 {
		c.Payloads = DefaultPayloads
	}
	if c.Users <= 0 {
		c.Users = DefaultUsers
	}
	if c.Users > c.Payloads {
		c.Users = c.Payloads
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU() * WorkerChannelMultiplier
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Scorer == nil {
		sc, err := scoring.NewScorer()
		if err != nil {
			return err
		}
		c.Scorer = sc
	}
	return nil
}

func issueTokens(cfg *Config, payloads []Payload) (map[string]string, error) {
	tokens := make(map[string]string, cfg.Users)
	for _, p := range payloads {
		if _, ok := tokens[p.UserID]; ok {
			continue
		}
		tok, err := cfg.Tokens.Issue(p.UserID)
		if err != nil {
			return nil, fmt.Errorf("issue token for %s: %w", p.UserID, err)
		}
		tokens[p.UserID] = tok
	}
	return tokens, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, cfg *Config) error {
	client := newHTTPClient(cfg.BaseURL, cfg.Timeout, nil)
	status, err := client.Do(ctx, http.MethodGet, "/healthz", "", nil, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", status)
	}
	cfg.Logger.Info(ctx, "service is healthy")
	return nil
}

// savePayloadsToFile writes payloads as a JSON array.
func savePayloadsToFile(filename string, payloads []Payload) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(payloads, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal payloads: %w", err)
	}
	return os.WriteFile(filename, data, filePermission)
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats Stats) {
	var successRate, perSecond float64
	if stats.Submitted > 0 {
		successRate = float64(stats.Successful) / float64(stats.Submitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("payloadsGenerated", stats.PayloadsGenerated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("successful", stats.Successful),
		logger.Int("failed", stats.Failed),
		logger.Int("mismatched", stats.Mismatched),
		logger.Int("saved", stats.Saved),
		logger.Int("historyChecked", stats.HistoryChecked),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("requestsPerSecond", perSecond))
}
