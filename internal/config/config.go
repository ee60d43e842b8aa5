// Package config defines service configuration and how it is loaded.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/commskill/internal/domain/scoring"
)

// Backend names.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendMinio    = "minio"
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
)

// DevJWTSecret is the default signing secret. It is only fit for local use.
const DevJWTSecret = "commskill-dev-secret"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory analysis queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of analysis workers.
	WorkerCount int `koanf:"worker_count"`
	// JobTimeout bounds one asynchronous analysis.
	JobTimeout time.Duration `koanf:"job_timeout"`

	// DedupeBackend is memory or redis.
	DedupeBackend string        `koanf:"dedupe_backend"`
	DedupeSize    int           `koanf:"dedupe_size"`
	DedupeTTL     time.Duration `koanf:"dedupe_ttl"`
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`

	// StoreDriver is memory, postgres or mysql.
	StoreDriver string `koanf:"store_driver"`
	StoreDSN    string `koanf:"store_dsn"`

	// MediaBackend is memory or minio.
	MediaBackend   string        `koanf:"media_backend"`
	MinioEndpoint  string        `koanf:"minio_endpoint"`
	MinioAccessKey string        `koanf:"minio_access_key"`
	MinioSecretKey string        `koanf:"minio_secret_key"`
	MinioBucket    string        `koanf:"minio_bucket"`
	MinioRegion    string        `koanf:"minio_region"`
	MinioUseSSL    bool          `koanf:"minio_use_ssl"`
	MediaURLExpiry time.Duration `koanf:"media_url_expiry"`
	MediaCleanup   bool          `koanf:"media_cleanup"`

	// ProviderEndpoint is the video annotation service. Empty disables
	// server-side analysis; clients can still submit annotations to score.
	ProviderEndpoint string `koanf:"provider_endpoint"`
	ProviderAPIKey   string `koanf:"provider_api_key"`
	ProviderLanguage string `koanf:"provider_language"`

	// AssemblyAIAPIKey enables AssemblyAI transcription for speech.
	AssemblyAIAPIKey  string `koanf:"assemblyai_api_key"`
	AssemblyAIBaseURL string `koanf:"assemblyai_base_url"`

	// OpenAIAPIKey enables the coach.
	OpenAIAPIKey  string `koanf:"openai_api_key"`
	OpenAIBaseURL string `koanf:"openai_base_url"`
	OpenAIModel   string `koanf:"openai_model"`
	// CoachMaxConversations and CoachConversationTTL bound the chats kept
	// in memory.
	CoachMaxConversations int           `koanf:"coach_max_conversations"`
	CoachConversationTTL  time.Duration `koanf:"coach_conversation_ttl"`

	JWTSecret string        `koanf:"jwt_secret"`
	JWTTTL    time.Duration `koanf:"jwt_ttl"`

	CORSOrigins []string `koanf:"cors_origins"`

	// MaxUploadBytes caps uploaded videos.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`
	// HistoryLimit is the default page size of GET /api/video/history.
	HistoryLimit int `koanf:"history_limit"`

	ScoringPolicy    string             `koanf:"scoring_policy"`
	ScoringWeights   map[string]float64 `koanf:"scoring_weights"`
	ScoringFallbacks map[string]float64 `koanf:"scoring_fallbacks"`
	IdealMinWPM      float64            `koanf:"ideal_min_wpm"`
	IdealMaxWPM      float64            `koanf:"ideal_max_wpm"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":8080",
		QueueSize:             1000,
		WorkerCount:           runtime.NumCPU(),
		JobTimeout:            10 * time.Minute,
		DedupeBackend:         BackendMemory,
		DedupeSize:            50_000,
		DedupeTTL:             24 * time.Hour,
		RedisAddr:             "localhost:6379",
		StoreDriver:           BackendMemory,
		MediaBackend:          BackendMemory,
		MinioBucket:           "commskill-videos",
		MinioRegion:           "us-east-1",
		MediaURLExpiry:        time.Hour,
		MediaCleanup:          true,
		OpenAIModel:           "gpt-4o-mini",
		CoachMaxConversations: 10_000,
		CoachConversationTTL:  2 * time.Hour,
		JWTSecret:             DevJWTSecret,
		JWTTTL:                24 * time.Hour,
		CORSOrigins:           []string{"*"},
		MaxUploadBytes:        50 << 20,
		HistoryLimit:          10,
		ScoringPolicy:         string(scoring.PolicyWeighted),
		IdealMinWPM:           scoring.DefaultIdealMinWPM,
		IdealMaxWPM:           scoring.DefaultIdealMaxWPM,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MaxUploadBytes <= 0:
		return fmt.Errorf("%w: max_upload_bytes must be positive", ErrInvalidConfig)
	case c.JWTSecret == "":
		return fmt.Errorf("%w: jwt_secret must not be empty", ErrInvalidConfig)
	}

	if !oneOf(c.StoreDriver, BackendMemory, BackendPostgres, BackendMySQL) {
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	if c.StoreDriver != BackendMemory && c.StoreDSN == "" {
		return fmt.Errorf("%w: store_dsn is required for %s", ErrInvalidConfig, c.StoreDriver)
	}
	if !oneOf(c.DedupeBackend, BackendMemory, BackendRedis) {
		return fmt.Errorf("%w: unknown dedupe_backend %q", ErrInvalidConfig, c.DedupeBackend)
	}
	if !oneOf(c.MediaBackend, BackendMemory, BackendMinio) {
		return fmt.Errorf("%w: unknown media_backend %q", ErrInvalidConfig, c.MediaBackend)
	}
	if c.MediaBackend == BackendMinio && c.MinioEndpoint == "" {
		return fmt.Errorf("%w: minio_endpoint is required", ErrInvalidConfig)
	}

	sc, err := c.Scoring()
	if err != nil {
		return err
	}
	if err := sc.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Scoring builds the scoring configuration.
func (c *Config) Scoring() (scoring.Config, error) {
	sc := scoring.DefaultConfig()

	policy, err := scoring.ParsePolicy(c.ScoringPolicy)
	if err != nil {
		return sc, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	sc.Policy = policy
	sc.IdealMinWPM, sc.IdealMaxWPM = c.IdealMinWPM, c.IdealMaxWPM

	if len(c.ScoringWeights) > 0 {
		w := make(scoring.Weights, len(c.ScoringWeights))
		for k, v := range c.ScoringWeights {
			d, err := scoring.ParseDimension(k)
			if err != nil {
				return sc, fmt.Errorf("%w: scoring_weights: %w", ErrInvalidConfig, err)
			}
			w[d] = v
		}
		sc.Weights = w
	}
	for k, v := range c.ScoringFallbacks {
		d, err := scoring.ParseDimension(k)
		if err != nil {
			return sc, fmt.Errorf("%w: scoring_fallbacks: %w", ErrInvalidConfig, err)
		}
		sc.Fallbacks[d] = v
	}
	return sc, nil
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
