package jobqueue

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/scorecast/scorecast/internal/platform/resilience"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// errQStashTransient marks failures worth counting against the
// breaker. Permanent rejections (bad token, malformed request) pass
// through without tripping it.
var errQStashTransient = crerr.New("qstash transient failure")

const errorBodyLimit = 4096

type QStashPublisherConfig struct {
	BaseURL          string
	Token            string
	TargetBaseURL    string
	Retries          int
	InternalJobToken string
	Timeout          time.Duration
	CircuitBreaker   resilience.CircuitBreakerConfig
}

// QStashPublisher schedules delayed refresh jobs through Upstash
// QStash. The queue calls back into our internal job endpoints with
// the forwarded job token.
type QStashPublisher struct {
	client           *http.Client
	baseURL          string
	token            string
	targetBaseURL    string
	retries          int
	internalJobToken string
	logger           *slog.Logger
	breaker          *resilience.CircuitBreaker
	circuitEnabled   bool
}

func NewQStashPublisher(cfg QStashPublisherConfig, logger *slog.Logger) *QStashPublisher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &QStashPublisher{
		client:           &http.Client{Timeout: timeout},
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		token:            strings.TrimSpace(cfg.Token),
		targetBaseURL:    strings.TrimRight(strings.TrimSpace(cfg.TargetBaseURL), "/"),
		retries:          cfg.Retries,
		internalJobToken: strings.TrimSpace(cfg.InternalJobToken),
		logger:           logger,
		breaker:          resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled:   breakerCfg.Enabled,
	}
}

// jobEnvelope is one fully prepared publish call: the QStash publish
// URL, the callback target, and the serialized payload.
type jobEnvelope struct {
	publishURL string
	targetURL  string
	path       string
	body       []byte
	delay      time.Duration
	dedupID    string
}

// Enqueue publishes one job callback. A zero delay publishes
// immediately; a non-empty deduplication id collapses duplicate
// publishes on the QStash side.
func (p *QStashPublisher) Enqueue(ctx context.Context, path string, payload any, delay time.Duration, deduplicationID string) error {
	if p.circuitEnabled {
		if err := p.breaker.Allow(); err != nil {
			p.logger.WarnContext(ctx, "qstash circuit breaker rejected request", "state", p.breaker.State())
			return fmt.Errorf("qstash is temporarily unavailable: %w", err)
		}
	}

	env, err := p.prepare(path, payload, delay, deduplicationID)
	if err != nil {
		return err
	}

	preview := env.curlPreview(p.retries, p.internalJobToken != "")
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.String("qstash.publish_url", env.publishURL),
			attribute.String("qstash.target_url", env.targetURL),
			attribute.String("qstash.path", env.path),
			attribute.String("qstash.request_curl_preview", preview),
		)
	}
	p.logger.InfoContext(ctx, "qstash publish request", "path", env.path, "target_url", env.targetURL, "curl_preview", preview)

	err = p.send(ctx, env)
	p.recordCircuitResult(err)
	if err != nil {
		return err
	}

	p.logger.InfoContext(ctx, "qstash job published", "path", env.path, "delay", formatDelay(env.delay), "deduplication_id", env.dedupID)
	return nil
}

func (p *QStashPublisher) prepare(path string, payload any, delay time.Duration, dedupID string) (jobEnvelope, error) {
	path = "/" + strings.TrimLeft(strings.TrimSpace(path), "/")
	if path == "/" {
		return jobEnvelope{}, crerr.New("job path is required")
	}

	baseURL, err := parseHTTPBaseURL(p.baseURL)
	if err != nil {
		return jobEnvelope{}, crerr.Wrap(err, "invalid QSTASH_BASE_URL")
	}
	targetBaseURL, err := parseHTTPBaseURL(p.targetBaseURL)
	if err != nil {
		return jobEnvelope{}, crerr.Wrap(err, "invalid QSTASH_TARGET_BASE_URL")
	}

	bodyPayload := payload
	if bodyPayload == nil {
		bodyPayload = map[string]any{}
	}
	body, err := sonic.Marshal(bodyPayload)
	if err != nil {
		return jobEnvelope{}, crerr.Wrap(err, "marshal job payload")
	}

	targetURL := targetBaseURL + path
	return jobEnvelope{
		publishURL: baseURL + "/v2/publish/" + targetURL,
		targetURL:  targetURL,
		path:       path,
		body:       body,
		delay:      delay,
		dedupID:    strings.TrimSpace(dedupID),
	}, nil
}

func (p *QStashPublisher) send(ctx context.Context, env jobEnvelope) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, env.publishURL, strings.NewReader(string(env.body)))
	if err != nil {
		return crerr.Wrap(err, "create qstash request")
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Upstash-Method", http.MethodPost)
	if p.retries > 0 {
		req.Header.Set("Upstash-Retries", strconv.Itoa(p.retries))
	}
	if env.delay > 0 {
		req.Header.Set("Upstash-Delay", formatDelay(env.delay))
	}
	if env.dedupID != "" {
		req.Header.Set("Upstash-Deduplication-Id", env.dedupID)
	}
	if p.internalJobToken != "" {
		req.Header.Set("Upstash-Forward-X-Internal-Job-Token", p.internalJobToken)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: publish job target_url=%s: %v", errQStashTransient, env.targetURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 == 2 {
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	detail := fmt.Sprintf("publish job status=%d target_url=%s body=%s", resp.StatusCode, env.targetURL, strings.TrimSpace(string(raw)))
	if isRetryableStatus(resp.StatusCode) {
		return fmt.Errorf("%w: %s", errQStashTransient, detail)
	}
	return stderrors.New(detail)
}

// curlPreview renders the publish call as a copy-pasteable curl line
// with credentials masked, for span attributes and logs.
func (env jobEnvelope) curlPreview(retries int, withForwardToken bool) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString("curl -X POST ")
	_, _ = buf.WriteString(shellQuote(env.publishURL))

	header := func(value string) {
		_, _ = buf.WriteString(" -H ")
		_, _ = buf.WriteString(shellQuote(value))
	}
	header("Authorization: Bearer ***")
	header("Content-Type: application/json")
	header("Upstash-Method: POST")
	if retries > 0 {
		header("Upstash-Retries: " + strconv.Itoa(retries))
	}
	if env.delay > 0 {
		header("Upstash-Delay: " + formatDelay(env.delay))
	}
	if env.dedupID != "" {
		header("Upstash-Deduplication-Id: " + env.dedupID)
	}
	if withForwardToken {
		header("Upstash-Forward-X-Internal-Job-Token: ***")
	}

	_, _ = buf.WriteString(" -d ")
	_, _ = buf.WriteString(shellQuote(truncateForLog(string(env.body), 4096)))
	_, _ = buf.WriteString(" # ")
	_, _ = buf.WriteString(shellQuote("path=" + env.path))

	return buf.String()
}

func (p *QStashPublisher) recordCircuitResult(err error) {
	if !p.circuitEnabled || p.breaker == nil {
		return
	}
	if err != nil && stderrors.Is(err, errQStashTransient) {
		p.breaker.RecordFailure()
		return
	}
	p.breaker.RecordSuccess()
}

func parseHTTPBaseURL(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", crerr.New("value is empty")
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", crerr.Wrapf(err, "parse %q", candidate)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", crerr.Newf("%q uses unsupported scheme=%q; expected http or https", candidate, parsed.Scheme)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return "", crerr.Newf("%q has empty host", candidate)
	}

	return strings.TrimRight(candidate, "/"), nil
}

func formatDelay(delay time.Duration) string {
	if delay <= 0 {
		return "0s"
	}
	return strconv.Itoa(int(delay.Round(time.Second).Seconds())) + "s"
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "'\"'\"'") + "'"
}

func truncateForLog(value string, max int) string {
	if max <= 0 || len(value) <= max {
		return value
	}
	return value[:max] + "...(truncated)"
}

func isRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= http.StatusInternalServerError
}
