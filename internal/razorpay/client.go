package razorpay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultBaseURL = "https://api.razorpay.com/v1/payment_links"
	// PageSize is the maximum page size the payment-links endpoint allows.
	PageSize = 100
)

// RawRecord is one payment link exactly as the API returned it. The endpoint
// guarantees no fixed schema across records, so it stays a map until the
// normalizer flattens it.
type RawRecord = map[string]any

// UpstreamError is any non-success response from the payment-links API. The
// caller decides what to do with it; nothing here retries.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the Razorpay payment-links API with basic auth.
type Client struct {
	keyID     string
	keySecret string
	client    *http.Client

	// BaseURL and PageDelay are overridable for tests.
	BaseURL   string
	PageDelay time.Duration
	// DebugDump writes raw response bodies of the first and final page to
	// local JSON files.
	DebugDump bool

	requestCount int
}

func NewClient(keyID, keySecret string) *Client {
	return &Client{
		keyID:     keyID,
		keySecret: keySecret,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		BaseURL:   defaultBaseURL,
		PageDelay: 500 * time.Millisecond,
	}
}

// RequestCount returns how many API requests this client has issued.
func (c *Client) RequestCount() int {
	return c.requestCount
}

type linksResponse struct {
	PaymentLinks []RawRecord `json:"payment_links"`
}

func (c *Client) getPage(ctx context.Context, params url.Values) (*linksResponse, []byte, error) {
	reqURL := c.BaseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)

	c.requestCount++
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Debug().
			Int("status_code", resp.StatusCode).
			Str("response_body", string(body)).
			Msg("Non-200 response from API")
		return nil, nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var page linksResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &page, body, nil
}

// Probe issues a single count=1 request to confirm reachability, credential
// correctness and the expected response shape before the full page loop runs.
func (c *Client) Probe(ctx context.Context) error {
	log.Info().Str("key_id", maskKey(c.keyID)).Msg("Validating payment-links API credentials")

	params := url.Values{}
	params.Set("count", "1")
	page, body, err := c.getPage(ctx, params)
	if err != nil {
		return fmt.Errorf("credential probe failed: %w", err)
	}
	if page.PaymentLinks == nil {
		// Connected, but the response is not the collection we expect.
		var raw map[string]any
		keys := []string{}
		if json.Unmarshal(body, &raw) == nil {
			for k := range raw {
				keys = append(keys, k)
			}
		}
		log.Warn().Strs("response_keys", keys).Msg("Connected to API but payment_links field not found")
		return fmt.Errorf("credential probe failed: payment_links field missing from response")
	}

	log.Info().Msg("Successfully connected to payment-links API")
	return nil
}

// FetchAll retrieves every payment link in the optional [from, to] unix-second
// window, in API order. Pages of PageSize are requested until a short page
// signals the end of the stream. Any failure aborts; nothing is retried.
func (c *Client) FetchAll(ctx context.Context, from, to *int64) ([]RawRecord, error) {
	if err := c.Probe(ctx); err != nil {
		return nil, err
	}

	log.Info().
		Str("from", tsLabel(from, "all time")).
		Str("to", tsLabel(to, "present")).
		Msg("Starting to fetch all payment links")

	var all []RawRecord
	skip := 0
	requestNum := 0
	start := time.Now()

	for {
		requestNum++
		params := url.Values{}
		params.Set("count", strconv.Itoa(PageSize))
		params.Set("skip", strconv.Itoa(skip))
		if from != nil {
			params.Set("from", strconv.FormatInt(*from, 10))
		}
		if to != nil {
			params.Set("to", strconv.FormatInt(*to, 10))
		}

		log.Info().
			Int("request", requestNum).
			Int("skip", skip).
			Int("count", PageSize).
			Msg("Fetching payment links page")

		page, body, err := c.getPage(ctx, params)
		if err != nil {
			log.Error().Err(err).Int("request", requestNum).Msg("Page request failed")
			return nil, err
		}

		got := len(page.PaymentLinks)
		log.Info().Int("request", requestNum).Int("retrieved", got).Msg("Retrieved payment links page")

		if c.DebugDump && (requestNum == 1 || got < PageSize) {
			dumpResponse(body, fmt.Sprintf("razorpay_response_%d.json", requestNum))
		}

		all = append(all, page.PaymentLinks...)

		if got < PageSize {
			log.Info().
				Int("retrieved", got).
				Int("requested", PageSize).
				Msg("Received short page, ending pagination")
			break
		}

		skip += PageSize
		log.Info().Int("fetched_so_far", len(all)).Msg("Fetched payment links so far")

		// Small delay between pages to stay under the API rate limit.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.PageDelay):
		}
	}

	log.Info().
		Dur("duration", time.Since(start)).
		Int("requests", requestNum).
		Int("total", len(all)).
		Msg("Completed fetching payment links")

	return all, nil
}

func dumpResponse(body []byte, filename string) {
	if err := os.WriteFile(filename, body, 0o644); err != nil {
		log.Warn().Err(err).Str("file", filename).Msg("Failed to write debug dump")
		return
	}
	log.Debug().Str("file", filename).Msg("Debug data dumped")
}

func tsLabel(ts *int64, fallback string) string {
	if ts == nil {
		return fallback
	}
	return time.Unix(*ts, 0).UTC().Format("2006-01-02 15:04:05")
}

func maskKey(key string) string {
	if len(key) > 8 {
		return key[:4] + "..." + key[len(key)-4:]
	}
	return "****"
}
