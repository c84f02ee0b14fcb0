package demo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"

	"github.com/kioko/matchpulse/internal/domain/event"
	"github.com/kioko/matchpulse/pkg/logger"
)

// Submission result codes.
const (
	resultSuccess   = "success"
	resultDuplicate = "duplicate"
	resultFailed    = "failed"
)

// httpClient wraps http.Client with a request timeout.
type httpClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *httpClient {
	return &httpClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *httpClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *httpClient) Post(ctx context.Context, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitEvents submits events concurrently using a worker pool.
func submitEvents(ctx context.Context, config *Config, events []event.Event, stats *Stats) error {
	logger.Get().Info(ctx, "submitting events",
		logger.Int("count", len(events)),
		logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/events"

	var (
		successful int64
		duplicate  int64
		failed     int64
		submitted  int64
	)

	eventChan := make(chan event.Event, config.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range eventChan {
				select {
				case <-ctx.Done():
					return
				default:
					result := submitSingleEvent(ctx, client, url, ev)
					atomic.AddInt64(&submitted, 1)
					switch result {
					case resultSuccess:
						atomic.AddInt64(&successful, 1)
					case resultDuplicate:
						atomic.AddInt64(&duplicate, 1)
					case resultFailed:
						atomic.AddInt64(&failed, 1)
					}
				}
			}
		}()
	}

	go func() {
		defer close(eventChan)
		for _, ev := range events {
			select {
			case <-ctx.Done():
				return
			case eventChan <- ev:
			}
		}
	}()

	wg.Wait()

	stats.EventsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.EventsSuccessful = int(atomic.LoadInt64(&successful))
	stats.EventsDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.EventsFailed = int(atomic.LoadInt64(&failed))

	logger.Get().Info(ctx, "event submission completed",
		logger.Int("successful", stats.EventsSuccessful),
		logger.Int("duplicate", stats.EventsDuplicate),
		logger.Int("failed", stats.EventsFailed))
	return nil
}

// submitSingleEvent submits a single event and returns the result code.
func submitSingleEvent(ctx context.Context, client *httpClient, url string, ev event.Event) string {
	data, err := event.Encode(ev)
	if err != nil {
		return resultFailed
	}

	resp, err := client.Post(ctx, url, data)
	if err != nil {
		return resultFailed
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return resultFailed
	}

	switch resp.StatusCode {
	case http.StatusAccepted:
		return resultSuccess
	case http.StatusOK:
		var ack AckResponse
		if err := json.Unmarshal(body, &ack); err == nil && ack.Duplicate {
			return resultDuplicate
		}
		return resultDuplicate
	default:
		return resultFailed
	}
}
