package application

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cartloop/ranking-service/internal/domain"
	"github.com/cartloop/ranking-service/internal/ports"
	"github.com/shopspring/decimal"
)

type fakeBuckets struct {
	mu   sync.Mutex
	data map[string]map[string]decimal.Decimal
}

func newFakeBuckets() *fakeBuckets {
	return &fakeBuckets{data: make(map[string]map[string]decimal.Decimal)}
}

func (f *fakeBuckets) IncrementScore(_ context.Context, bucket, productID string, delta decimal.Decimal, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.add(bucket, productID, delta)
	return nil
}

func (f *fakeBuckets) IncrementMany(_ context.Context, bucket string, deltas map[string]decimal.Decimal, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for productID, delta := range deltas {
		f.add(bucket, productID, delta)
	}
	return nil
}

func (f *fakeBuckets) add(bucket, productID string, delta decimal.Decimal) {
	if f.data[bucket] == nil {
		f.data[bucket] = make(map[string]decimal.Decimal)
	}
	f.data[bucket][productID] = f.data[bucket][productID].Add(delta)
}

func (f *fakeBuckets) Snapshot(_ context.Context, bucket string) ([]domain.MemberScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	members := make([]domain.MemberScore, 0, len(f.data[bucket]))
	for productID, score := range f.data[bucket] {
		members = append(members, domain.MemberScore{ProductID: productID, Score: score})
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ProductID < members[j].ProductID })
	return members, nil
}

func (f *fakeBuckets) TopN(ctx context.Context, bucket string, n int) ([]domain.MemberScore, error) {
	members, _ := f.Snapshot(ctx, bucket)
	sort.Slice(members, func(i, j int) bool { return members[i].Score.GreaterThan(members[j].Score) })
	if n > 0 && len(members) > n {
		members = members[:n]
	}
	return members, nil
}

func (f *fakeBuckets) RemoveMember(_ context.Context, bucket, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data[bucket], productID)
	return nil
}

func (f *fakeBuckets) Promote(_ context.Context, staging, live string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.data[staging]) == 0 {
		delete(f.data, live)
		return nil
	}
	f.data[live] = f.data[staging]
	delete(f.data, staging)
	return nil
}

func (f *fakeBuckets) Delete(_ context.Context, buckets ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, bucket := range buckets {
		delete(f.data, bucket)
	}
	return nil
}

func (f *fakeBuckets) score(bucket, productID string) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[bucket][productID]
}

func (f *fakeBuckets) has(bucket string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.data[bucket]) > 0
}

type fakeLedger struct {
	mu        sync.Mutex
	seen      map[string]struct{}
	recordErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{seen: make(map[string]struct{})}
}

func (f *fakeLedger) FilterNew(_ context.Context, eventIDs []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fresh := make([]string, 0, len(eventIDs))
	for _, id := range eventIDs {
		if _, ok := f.seen[id]; !ok {
			fresh = append(fresh, id)
		}
	}
	return fresh, nil
}

func (f *fakeLedger) Record(_ context.Context, entries []ports.LedgerEntry, _ time.Time) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, entry := range entries {
		f.seen[entry.EventID] = struct{}{}
	}
	return nil
}

type fakeSnapshots struct {
	mu      sync.Mutex
	periods map[string][]domain.RankedProduct
}

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{periods: make(map[string][]domain.RankedProduct)}
}

func (f *fakeSnapshots) ReplacePeriod(_ context.Context, periodKey string, rows []domain.RankedProduct, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.periods[periodKey] = append([]domain.RankedProduct(nil), rows...)
	return nil
}

func (f *fakeSnapshots) ListPeriod(_ context.Context, periodKey string, limit int) ([]domain.RankedProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.periods[periodKey]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return append([]domain.RankedProduct(nil), rows...), nil
}

func (f *fakeSnapshots) rows(periodKey string) []domain.RankedProduct {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.RankedProduct(nil), f.periods[periodKey]...)
}

type fakeDeadLetters struct {
	mu     sync.Mutex
	parked []ports.DeadLetterRecord
}

func (f *fakeDeadLetters) Park(_ context.Context, rec ports.DeadLetterRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.parked = append(f.parked, rec)
	return nil
}

func (f *fakeDeadLetters) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.parked)
}

type fakeEventLog struct {
	mu      sync.Mutex
	entries []ports.ProductEventEntry
	outbox  []ports.OutboxEvent
}

func (f *fakeEventLog) AppendWithOutbox(_ context.Context, entry ports.ProductEventEntry, event ports.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	f.outbox = append(f.outbox, event)
	return nil
}

type testEnv struct {
	service     *Service
	buckets     *fakeBuckets
	ledger      *fakeLedger
	snapshots   *fakeSnapshots
	deadLetters *fakeDeadLetters
	eventLog    *fakeEventLog
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		buckets:     newFakeBuckets(),
		ledger:      newFakeLedger(),
		snapshots:   newFakeSnapshots(),
		deadLetters: &fakeDeadLetters{},
		eventLog:    &fakeEventLog{},
	}
	service, err := NewService(Dependencies{
		Config: Config{
			Weights: domain.Weights{
				View:  decimal.NewFromInt(1),
				Like:  decimal.NewFromInt(2),
				Order: decimal.NewFromInt(10),
			},
		},
		Ledger:      env.ledger,
		Buckets:     env.buckets,
		Snapshots:   env.snapshots,
		EventLog:    env.eventLog,
		DeadLetters: env.deadLetters,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	env.service = service
	return env
}

func envelopePayload(t *testing.T, eventID string, eventType domain.EventType, at time.Time, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	payload, err := json.Marshal(domain.Envelope{
		EventID:       eventID,
		EventType:     eventType,
		OccurredAt:    at,
		SchemaVersion: "1.0",
		Data:          raw,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return payload
}

func inbound(eventID string, payload []byte) InboundRecord {
	return InboundRecord{Topic: "product.interactions", Partition: 0, Offset: 1, EventID: eventID, Payload: payload}
}
