package testsessions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := marshalJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// marshalJSON marshals a struct to JSON
func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// unmarshalJSON unmarshals JSON to a struct
func unmarshalJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// registerBuildings registers the building population before any sessions
// are submitted so each building carries a zip-derived baseline.
func registerBuildings(ctx context.Context, config *Config, stats *Stats) error {
	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/buildings"

	for i := 0; i < config.NumBuildings; i++ {
		payload := map[string]string{
			"building_id": buildingID(i),
			"address":     "100 Test St #" + buildingID(i),
			"zip_code":    zipCodes[i%len(zipCodes)],
		}

		resp, err := client.Post(ctx, url, payload)
		if err != nil {
			return fmt.Errorf("failed to register %s: %w", buildingID(i), err)
		}
		_, _ = readResponseBody(resp)
		if resp.StatusCode != StatusCreated {
			return fmt.Errorf("registering %s returned status %d", buildingID(i), resp.StatusCode)
		}
		stats.BuildingsRegistered++
	}

	log.Printf("Registered %d buildings", stats.BuildingsRegistered)
	return nil
}

// submitSessions submits sessions concurrently using worker pools
func submitSessions(ctx context.Context, config *Config, sessions []Session, stats *Stats) error {
	log.Printf("Submitting %d sessions with %d workers...", len(sessions), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/sessions"

	var (
		successful int64
		duplicate  int64
		failed     int64
		submitted  int64
	)

	var lastReport time.Time
	reportInterval := 1 * time.Second

	sessionChan := make(chan Session, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for s := range sessionChan {
				select {
				case <-ctx.Done():
					return
				default:
					result := submitSingleSession(ctx, client, url, s)

					atomic.AddInt64(&submitted, 1)
					switch result {
					case "success":
						atomic.AddInt64(&successful, 1)
					case "duplicate":
						atomic.AddInt64(&duplicate, 1)
					case "failed":
						atomic.AddInt64(&failed, 1)
					}

					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&submitted)
						succ := atomic.LoadInt64(&successful)
						dup := atomic.LoadInt64(&duplicate)
						fail := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("Progress: %d/%d submitted (success: %d, duplicate: %d, failed: %d)",
								total, len(sessions), succ, dup, fail)
						} else {
							fmt.Printf("\rSubmitted: %d/%d (success: %d, duplicate: %d, failed: %d)",
								total, len(sessions), succ, dup, fail)
						}
					}
				}
			}
		}()
	}

	go func() {
		defer close(sessionChan)
		for _, s := range sessions {
			select {
			case <-ctx.Done():
				return
			case sessionChan <- s:
			}
		}
	}()

	wg.Wait()

	if !config.Verbose {
		fmt.Println()
	}

	stats.SessionsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.SessionsSuccessful = int(atomic.LoadInt64(&successful))
	stats.SessionsDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.SessionsFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`Session submission completed:
   Successful: %d
   Duplicate: %d
   Failed: %d
`, stats.SessionsSuccessful, stats.SessionsDuplicate, stats.SessionsFailed)

	return nil
}

// submitSingleSession submits a single session and returns the result
func submitSingleSession(ctx context.Context, client *HTTPClient, url string, s Session) string {
	resp, err := client.Post(ctx, url, s)
	if err != nil {
		return "failed"
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return "failed"
	}

	switch resp.StatusCode {
	case StatusAccepted:
		var ack AckResponse
		if err := unmarshalJSON(body, &ack); err == nil && ack.Status == "accepted" {
			return "success"
		}
		return "success"
	case StatusOK:
		var ack AckResponse
		if err := unmarshalJSON(body, &ack); err == nil && ack.Duplicate {
			return "duplicate"
		}
		return "duplicate"
	default:
		return "failed"
	}
}
