package footballdata

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/scorecast/scorecast/internal/domain/fixture"
	"github.com/scorecast/scorecast/internal/domain/rawdata"
	"github.com/scorecast/scorecast/internal/platform/cache"
	"github.com/scorecast/scorecast/internal/platform/logging"
	"github.com/scorecast/scorecast/internal/platform/resilience"
	"github.com/scorecast/scorecast/internal/usecase"
)

const (
	defaultBaseURL     = "https://api.football-data.org/v4"
	defaultCompetition = "PL"
	maxResponseBytes   = 6 << 20
)

// UpstreamHTTPError reports a non-2xx reply from football-data.org.
// The status and (abbreviated) body are preserved so callers can
// mirror them.
type UpstreamHTTPError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamHTTPError) Error() string {
	return fmt.Sprintf("upstream status=%d body=%s", e.StatusCode, e.Body)
}

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Token          string
	Competition    string
	Timeout        time.Duration
	Logger         *logging.Logger
	Cache          *cache.Store
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the football-data.org v4 API. Requests are
// deduplicated per canonical key while in flight, and completed
// replies are cached in the injected store with their status code.
// Requests are never retried; the provider enforces a strict
// per-minute quota.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	token          string
	competition    string
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	cache          *cache.Store
	flight         resilience.SingleFlight
}

// Response is a raw upstream reply, suitable for gateway passthrough.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	competition := strings.TrimSpace(cfg.Competition)
	if competition == "" {
		competition = defaultCompetition
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		token:          strings.TrimSpace(cfg.Token),
		competition:    competition,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
		cache:          cfg.Cache,
	}
}

func (c *Client) Competition() string {
	return c.competition
}

// CanonicalKey builds the cache and dedup key for an upstream call:
// the cleaned path plus the query sorted by parameter name. Empty
// values are dropped so "?status=" and no query hash the same.
func CanonicalKey(path string, query url.Values) string {
	path = normalizePath(path)
	if len(query) == 0 {
		return path
	}

	keys := make([]string, 0, len(query))
	for key := range query {
		if strings.TrimSpace(query.Get(key)) == "" {
			continue
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return path
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(path)
	b.WriteByte('?')
	for i, key := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(query.Get(key)))
	}
	return b.String()
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(path, "/")
}

// Do performs a GET against the upstream API. Non-2xx replies are
// returned as a Response with a nil error so gateway callers can
// mirror them verbatim; only transport-level failures error.
func (c *Client) Do(ctx context.Context, path string, query url.Values) (Response, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "football-data circuit breaker rejected request", "state", c.breaker.State())
			return Response{}, fmt.Errorf("%w: football data provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	key := CanonicalKey(path, query)
	if c.cache != nil {
		if v, ok := c.cache.Get(ctx, key); ok {
			if resp, ok := v.(Response); ok {
				return resp, nil
			}
		}
	}

	out, err, _ := c.flight.Do(key, func() (any, error) {
		resp, reqErr := c.execute(ctx, path, query)
		if c.circuitEnabled {
			if reqErr != nil || isBreakerFailureStatus(resp.StatusCode) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		if reqErr == nil && c.cache != nil {
			// Non-2xx replies are cached too; a 429 within the TTL is
			// replayed instead of burning more of the quota.
			c.cache.Set(ctx, key, resp)
		}
		return resp, reqErr
	})
	if err != nil {
		return Response{}, err
	}

	resp, ok := out.(Response)
	if !ok {
		return Response{}, fmt.Errorf("unexpected response payload type %T", out)
	}
	return resp, nil
}

func (c *Client) execute(ctx context.Context, path string, query url.Values) (Response, error) {
	fullURL := c.baseURL + normalizePath(path)
	if encoded := query.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("X-Auth-Token", c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		sanitized := sanitizeSensitiveText(err.Error(), c.token)
		c.logger.WarnContext(ctx, "football-data request failed", "url", fullURL, "error", sanitized)
		return Response{}, fmt.Errorf("%w: send request: %s", usecase.ErrDependencyUnavailable, sanitized)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Response{}, fmt.Errorf("%w: read response body: %v", usecase.ErrDependencyUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.WarnContext(ctx, "football-data non-ok reply",
			"url", fullURL,
			"status", resp.StatusCode,
			"body", abbreviateBody(raw),
		)
	}

	return Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        raw,
	}, nil
}

// MatchesInRange fetches competition matches with kickoff between the
// given dates (inclusive, date precision).
func (c *Client) MatchesInRange(ctx context.Context, dateFrom, dateTo time.Time) ([]fixture.Fixture, rawdata.Payload, error) {
	query := url.Values{}
	query.Set("dateFrom", dateFrom.UTC().Format("2006-01-02"))
	query.Set("dateTo", dateTo.UTC().Format("2006-01-02"))
	return c.matches(ctx, query)
}

// MatchesBySeason fetches every competition match of a season.
func (c *Client) MatchesBySeason(ctx context.Context, season int) ([]fixture.Fixture, rawdata.Payload, error) {
	query := url.Values{}
	query.Set("season", strconv.Itoa(season))
	return c.matches(ctx, query)
}

// MatchesByMatchday fetches the full round for a matchday and season.
func (c *Client) MatchesByMatchday(ctx context.Context, matchday, season int) ([]fixture.Fixture, rawdata.Payload, error) {
	query := url.Values{}
	query.Set("matchday", strconv.Itoa(matchday))
	query.Set("season", strconv.Itoa(season))
	return c.matches(ctx, query)
}

func (c *Client) matches(ctx context.Context, query url.Values) ([]fixture.Fixture, rawdata.Payload, error) {
	path := "/competitions/" + c.competition + "/matches"

	resp, err := c.Do(ctx, path, query)
	if err != nil {
		return nil, rawdata.Payload{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, rawdata.Payload{}, &UpstreamHTTPError{
			StatusCode: resp.StatusCode,
			Body:       abbreviateBody(resp.Body),
		}
	}

	var envelope matchesEnvelope
	if err := sonic.Unmarshal(resp.Body, &envelope); err != nil {
		return nil, rawdata.Payload{}, fmt.Errorf("decode provider payload: %w", err)
	}

	fixtures := mapMatches(envelope.Matches)
	return fixtures, c.buildArchivePayload(path, query, resp.Body), nil
}

func mapMatches(items []matchItem) []fixture.Fixture {
	out := make([]fixture.Fixture, 0, len(items))
	for _, item := range items {
		if item.ID <= 0 {
			continue
		}

		kickoff, err := time.Parse(time.RFC3339, strings.TrimSpace(item.UTCDate))
		if err != nil {
			continue
		}

		fx := fixture.Fixture{
			ID:       item.ID,
			Kickoff:  kickoff.UTC(),
			Status:   fixture.NormalizeStatus(item.Status),
			Matchday: item.Matchday,
			Season:   seasonStartYear(item.Season),
			HomeTeam: mapTeam(item.HomeTeam),
			AwayTeam: mapTeam(item.AwayTeam),
		}
		if item.Matchday != nil {
			fx.Round = fmt.Sprintf("Matchday %d", *item.Matchday)
		}
		if fixture.IsFinishedStatus(fx.Status) || fixture.IsLiveStatus(fx.Status) {
			fx.HomeGoals = item.Score.FullTime.Home
			fx.AwayGoals = item.Score.FullTime.Away
		}
		out = append(out, fx)
	}

	fixture.SortByKickoff(out)
	return out
}

func mapTeam(item teamItem) fixture.Team {
	short := strings.TrimSpace(item.ShortName)
	if short == "" {
		short = strings.TrimSpace(item.TLA)
	}
	return fixture.Team{
		Name:  strings.TrimSpace(item.Name),
		Short: short,
		Crest: strings.TrimSpace(item.Crest),
	}
}

func seasonStartYear(item seasonItem) int {
	start := strings.TrimSpace(item.StartDate)
	if len(start) < 4 {
		return 0
	}
	year, err := strconv.Atoi(start[:4])
	if err != nil {
		return 0
	}
	return year
}

func (c *Client) buildArchivePayload(path string, query url.Values, raw []byte) rawdata.Payload {
	sum := sha256.Sum256(raw)
	return rawdata.Payload{
		Source:      "football-data",
		EntityType:  "api_response",
		EntityKey:   CanonicalKey(path, query),
		Competition: c.competition,
		Season:      query.Get("season"),
		Matchday:    query.Get("matchday"),
		PayloadJSON: string(raw),
		PayloadHash: hex.EncodeToString(sum[:]),
	}
}

func sanitizeSensitiveText(value, token string) string {
	value = strings.TrimSpace(value)
	if value == "" || token == "" {
		return value
	}
	return strings.ReplaceAll(value, token, "REDACTED")
}

func isBreakerFailureStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
