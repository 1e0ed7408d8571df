package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cartloop/ranking-service/internal/ports"
	"github.com/google/uuid"
)

type fakeOutboxRepo struct {
	mu        sync.Mutex
	pending   []ports.OutboxRecord
	published []uuid.UUID
	failed    []uuid.UUID
	swept     int
}

func (f *fakeOutboxRepo) Enqueue(context.Context, ports.OutboxEvent) error { return nil }

func (f *fakeOutboxRepo) FetchUnpublished(_ context.Context, limit, maxRetries int) ([]ports.OutboxRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ports.OutboxRecord, 0, limit)
	for _, rec := range f.pending {
		if rec.RetryCount < maxRetries && len(out) < limit {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeOutboxRepo) MarkPublished(_ context.Context, eventID uuid.UUID, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, eventID)
	remaining := f.pending[:0]
	for _, rec := range f.pending {
		if rec.EventID != eventID {
			remaining = append(remaining, rec)
		}
	}
	f.pending = remaining
	return nil
}

func (f *fakeOutboxRepo) MarkFailed(_ context.Context, eventID uuid.UUID, _ string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, eventID)
	for i := range f.pending {
		if f.pending[i].EventID == eventID {
			f.pending[i].RetryCount++
		}
	}
	return nil
}

func (f *fakeOutboxRepo) SweepExhausted(_ context.Context, maxRetries int, _ time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	remaining := f.pending[:0]
	swept := 0
	for _, rec := range f.pending {
		if rec.RetryCount >= maxRetries {
			swept++
			continue
		}
		remaining = append(remaining, rec)
	}
	f.pending = remaining
	f.swept += swept
	return swept, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *fakePublisher) Publish(context.Context, string, string, []byte, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return errors.New("broker unavailable")
	}
	return nil
}

func pendingRecord(retries int) ports.OutboxRecord {
	return ports.OutboxRecord{
		EventID:      uuid.New(),
		EventType:    "product.viewed",
		PartitionKey: "p1",
		Payload:      []byte(`{}`),
		OccurredAt:   time.Now().UTC(),
		RetryCount:   retries,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOutboxWorkerPublishesPendingRows(t *testing.T) {
	t.Parallel()

	repo := &fakeOutboxRepo{pending: []ports.OutboxRecord{pendingRecord(0), pendingRecord(0)}}
	publisher := &fakePublisher{}
	worker := NewOutboxWorker(testLogger(), repo, publisher, time.Second, 100, 10)

	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("process once: %v", err)
	}
	if len(repo.published) != 2 || len(repo.failed) != 0 {
		t.Fatalf("expected 2 published, got published=%d failed=%d", len(repo.published), len(repo.failed))
	}
	if len(repo.pending) != 0 {
		t.Fatalf("expected queue drained, got %d pending", len(repo.pending))
	}
}

func TestOutboxWorkerRetriesWithinTick(t *testing.T) {
	t.Parallel()

	repo := &fakeOutboxRepo{pending: []ports.OutboxRecord{pendingRecord(0)}}
	// Two transient failures still resolve inside one tick's retry budget.
	publisher := &fakePublisher{failures: 2}
	worker := NewOutboxWorker(testLogger(), repo, publisher, time.Second, 100, 10)

	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("process once: %v", err)
	}
	if len(repo.published) != 1 {
		t.Fatalf("expected row published after retries, got %d", len(repo.published))
	}
	if publisher.calls != 3 {
		t.Fatalf("expected 3 publish attempts, got %d", publisher.calls)
	}
}

func TestOutboxWorkerMarksFailedRows(t *testing.T) {
	t.Parallel()

	repo := &fakeOutboxRepo{pending: []ports.OutboxRecord{pendingRecord(0)}}
	publisher := &fakePublisher{failures: 1000}
	worker := NewOutboxWorker(testLogger(), repo, publisher, time.Second, 100, 10)

	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("process once: %v", err)
	}
	if len(repo.failed) != 1 || len(repo.published) != 0 {
		t.Fatalf("expected 1 failed, got published=%d failed=%d", len(repo.published), len(repo.failed))
	}
	if repo.pending[0].RetryCount != 1 {
		t.Fatalf("expected retry count bumped, got %d", repo.pending[0].RetryCount)
	}
}

func TestOutboxWorkerSweepsExhaustedRows(t *testing.T) {
	t.Parallel()

	repo := &fakeOutboxRepo{pending: []ports.OutboxRecord{pendingRecord(10), pendingRecord(0)}}
	publisher := &fakePublisher{}
	worker := NewOutboxWorker(testLogger(), repo, publisher, time.Second, 100, 10)

	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("process once: %v", err)
	}
	// The exhausted row is never fetched for publishing, only swept.
	if repo.swept != 1 {
		t.Fatalf("expected 1 swept row, got %d", repo.swept)
	}
	if len(repo.published) != 1 {
		t.Fatalf("expected the healthy row published, got %d", len(repo.published))
	}
}
