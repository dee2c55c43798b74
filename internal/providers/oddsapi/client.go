package oddsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/XavierBriggs/fortuna/services/line-engine/internal/retry"
	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/models"
)

const (
	DefaultBaseURL = "https://api.the-odds-api.com/v4"

	usedHeader      = "x-requests-used"
	remainingHeader = "x-requests-remaining"
)

// ErrMissingAPIKey is returned when the client has no key configured
var ErrMissingAPIKey = errors.New("odds api key not configured")

// StatusError is a non-200 response from the provider
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("odds api error: status=%d, body=%s", e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed if repeated
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Options configures a Client
type Options struct {
	APIKey            string
	BaseURL           string
	Regions           string
	Bookmakers        []string
	RequestsPerSecond float64
	Timeout           time.Duration
	MaxAttempts       int
	Logger            zerolog.Logger
}

// Client handles odds provider requests
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	regions    string
	bookmakers []string
	limiter    *rate.Limiter
	retry      *retry.RetryPolicy
	log        zerolog.Logger
}

// New creates a new odds provider client
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Regions == "" {
		opts.Regions = "us"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		regions:    opts.Regions,
		bookmakers: opts.Bookmakers,
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		retry:      retry.NewRetryPolicy(opts.MaxAttempts, 500*time.Millisecond),
		log:        opts.Logger.With().Str("component", "oddsapi").Logger(),
	}
}

// FetchGameOdds fetches game lines for a sport. Empty markets requests
// h2h, spreads and totals.
func (c *Client) FetchGameOdds(ctx context.Context, sport string, markets []string) ([]models.GameOdds, *models.APIUsage, error) {
	sportKey, err := SportKey(sport)
	if err != nil {
		return nil, nil, err
	}
	if len(markets) == 0 {
		markets = GameMarkets
	}
	events, usage, err := c.fetchEvents(ctx, sportKey, markets)
	if err != nil {
		return nil, usage, err
	}
	return ToGameOdds(events), usage, nil
}

// FetchPlayerProps fetches over/under player props for a sport
func (c *Client) FetchPlayerProps(ctx context.Context, sport string) ([]models.PlayerProp, *models.APIUsage, error) {
	sportKey, err := SportKey(sport)
	if err != nil {
		return nil, nil, err
	}
	markets := PropMarkets(sportKey)
	if len(markets) == 0 {
		return nil, nil, fmt.Errorf("%w: no prop markets for %s", ErrUnsupportedSport, sport)
	}
	events, usage, err := c.fetchEvents(ctx, sportKey, markets)
	if err != nil {
		return nil, usage, err
	}
	return ToPlayerProps(events), usage, nil
}

func (c *Client) fetchEvents(ctx context.Context, sportKey string, markets []string) ([]Event, *models.APIUsage, error) {
	if c.apiKey == "" {
		return nil, nil, ErrMissingAPIKey
	}

	params := url.Values{}
	params.Set("apiKey", c.apiKey)
	params.Set("regions", c.regions)
	params.Set("markets", strings.Join(markets, ","))
	params.Set("oddsFormat", "american")
	if len(c.bookmakers) > 0 {
		params.Set("bookmakers", strings.Join(c.bookmakers, ","))
	}
	endpoint := fmt.Sprintf("%s/sports/%s/odds?%s", c.baseURL, sportKey, params.Encode())

	var (
		raw   []Event
		usage *models.APIUsage
	)
	err := c.retry.Execute(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.Stop(err)
		}
		var err error
		raw, usage, err = c.get(ctx, endpoint)
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return retry.Stop(err)
		}
		if err != nil {
			c.log.Warn().Err(err).Str("sport", sportKey).Msg("odds request failed")
		}
		return err
	})
	if err != nil {
		return nil, usage, fmt.Errorf("fetch %s odds: %w", sportKey, err)
	}

	events := make([]Event, 0, len(raw))
	for _, e := range raw {
		if err := e.Validate(); err != nil {
			c.log.Warn().Err(err).Msg("skipping malformed event")
			continue
		}
		events = append(events, e)
	}

	if usage != nil {
		c.log.Debug().
			Int("used", usage.Used).
			Int("remaining", usage.Remaining).
			Str("sport", sportKey).
			Msg("odds api usage")
	}
	return events, usage, nil
}

// get makes one HTTP GET request and decodes the event list
func (c *Client) get(ctx context.Context, endpoint string) ([]Event, *models.APIUsage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, retry.Stop(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	usage := parseUsage(resp.Header)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, usage, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var events []Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, usage, retry.Stop(fmt.Errorf("decoding response: %w", err))
	}
	return events, usage, nil
}

func parseUsage(h http.Header) *models.APIUsage {
	used, errUsed := strconv.Atoi(h.Get(usedHeader))
	remaining, errRemaining := strconv.Atoi(h.Get(remainingHeader))
	if errUsed != nil && errRemaining != nil {
		return nil
	}
	return &models.APIUsage{Used: used, Remaining: remaining}
}
