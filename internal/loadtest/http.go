package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/commskill/pkg/logger"
)

// HTTPClient wraps http.Client and signs requests with per-user tokens.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	tokens  map[string]string
}

func newHTTPClient(baseURL string, timeout time.Duration, tokens map[string]string) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		tokens:  tokens,
	}
}

// Do sends a request as user and decodes a JSON response into out when it
// is non-nil. It returns the status code.
func (c *HTTPClient) Do(ctx context.Context, method, path, user string, body, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok, ok := c.tokens[user]; ok {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// submitPayloads posts every payload to /api/video/score using a pool of
// cfg.Workers goroutines. Outcomes are returned in payload order.
func submitPayloads(ctx context.Context, cfg *Config, client *HTTPClient, payloads []Payload, stats *Stats) []Outcome {
	cfg.Logger.Info(ctx, "submitting payloads",
		logger.Int("payloads", len(payloads)), logger.Int("workers", cfg.Workers))

	outcomes := make([]Outcome, len(payloads))
	var (
		submitted  int64
		successful int64
		failed     int64
	)

	jobs := make(chan int, cfg.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					return
				}
				p := payloads[idx]
				out := Outcome{Payload: p}
				out.Status, out.Err = client.Do(ctx, http.MethodPost, "/api/video/score", p.UserID, p.Annotations, &out.Response)
				outcomes[idx] = out

				n := atomic.AddInt64(&submitted, 1)
				if out.Err != nil {
					atomic.AddInt64(&failed, 1)
					if cfg.Verbose {
						cfg.Logger.Warn(ctx, "score request failed", logger.Int("index", idx), logger.Error(out.Err))
					}
				} else {
					atomic.AddInt64(&successful, 1)
				}
				if cfg.Verbose && n%100 == 0 {
					cfg.Logger.Info(ctx, "progress", logger.Int64("submitted", n), logger.Int("total", len(payloads)))
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range payloads {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()
	wg.Wait()

	stats.Submitted = int(atomic.LoadInt64(&submitted))
	stats.Successful = int(atomic.LoadInt64(&successful))
	stats.Failed = int(atomic.LoadInt64(&failed))

	cfg.Logger.Info(ctx, "submission completed",
		logger.Int("successful", stats.Successful), logger.Int("failed", stats.Failed))
	return outcomes
}
