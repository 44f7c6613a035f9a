package jobqueue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/scorecast/scorecast/internal/platform/resilience"
)

func newTestPublisher(t *testing.T, handler http.HandlerFunc, breaker resilience.CircuitBreakerConfig) *QStashPublisher {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewQStashPublisher(QStashPublisherConfig{
		BaseURL:          server.URL,
		Token:            "qstash-token",
		TargetBaseURL:    "https://api.scorecast.example",
		Retries:          2,
		InternalJobToken: "job-secret",
		CircuitBreaker:   breaker,
	}, nil)
}

func TestQStashPublisher_PublishesJob(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth, gotDedup, gotForward string
	publisher := newTestPublisher(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotDedup = r.Header.Get("Upstash-Deduplication-Id")
		gotForward = r.Header.Get("Upstash-Forward-X-Internal-Job-Token")
		w.WriteHeader(http.StatusOK)
	}, resilience.CircuitBreakerConfig{})

	err := publisher.Enqueue(context.Background(), "/v1/internal/jobs/refresh", nil, 90*time.Second, "fixture-refresh-1")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if !strings.HasPrefix(gotPath, "/v2/publish/") || !strings.Contains(gotPath, "/v1/internal/jobs/refresh") {
		t.Fatalf("publish path = %q", gotPath)
	}
	if gotAuth != "Bearer qstash-token" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotDedup != "fixture-refresh-1" {
		t.Fatalf("deduplication id = %q", gotDedup)
	}
	if gotForward != "job-secret" {
		t.Fatalf("forwarded job token = %q", gotForward)
	}
}

func TestQStashPublisher_ServerErrorTripsBreaker(t *testing.T) {
	t.Parallel()

	publisher := newTestPublisher(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusInternalServerError)
	}, resilience.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 1,
		OpenTimeout:      time.Minute,
		HalfOpenMaxReq:   1,
	})

	if err := publisher.Enqueue(context.Background(), "/v1/internal/jobs/refresh", nil, 0, ""); err == nil {
		t.Fatal("expected publish failure")
	}

	err := publisher.Enqueue(context.Background(), "/v1/internal/jobs/refresh", nil, 0, "")
	if err == nil || !strings.Contains(err.Error(), "temporarily unavailable") {
		t.Fatalf("expected breaker rejection, got %v", err)
	}
}

func TestQStashPublisher_RequiresJobPath(t *testing.T) {
	t.Parallel()

	publisher := newTestPublisher(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}, resilience.CircuitBreakerConfig{})

	if err := publisher.Enqueue(context.Background(), "  ", nil, 0, ""); err == nil {
		t.Fatal("expected error for empty job path")
	}
}
