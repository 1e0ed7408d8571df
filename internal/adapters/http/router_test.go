package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cartloop/ranking-service/internal/application"
	"github.com/cartloop/ranking-service/internal/domain"
	"github.com/cartloop/ranking-service/internal/ports"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type stubLedger struct{}

func (stubLedger) FilterNew(_ context.Context, ids []string) ([]string, error) { return ids, nil }
func (stubLedger) Record(context.Context, []ports.LedgerEntry, time.Time) error {
	return nil
}

type stubBuckets struct{}

func (stubBuckets) IncrementScore(context.Context, string, string, decimal.Decimal, time.Duration) error {
	return nil
}
func (stubBuckets) IncrementMany(context.Context, string, map[string]decimal.Decimal, time.Duration) error {
	return nil
}
func (stubBuckets) Snapshot(context.Context, string) ([]domain.MemberScore, error) { return nil, nil }
func (stubBuckets) TopN(context.Context, string, int) ([]domain.MemberScore, error) {
	return []domain.MemberScore{{ProductID: "p9", Score: decimal.NewFromInt(4)}}, nil
}
func (stubBuckets) RemoveMember(context.Context, string, string) error          { return nil }
func (stubBuckets) Promote(context.Context, string, string, time.Duration) error { return nil }
func (stubBuckets) Delete(context.Context, ...string) error                     { return nil }

type stubSnapshots struct{}

func (stubSnapshots) ReplacePeriod(context.Context, string, []domain.RankedProduct, time.Time) error {
	return nil
}
func (stubSnapshots) ListPeriod(context.Context, string, int) ([]domain.RankedProduct, error) {
	return []domain.RankedProduct{{ProductID: "p1", Score: decimal.NewFromInt(15), Position: 1}}, nil
}

type stubEventLog struct{}

func (stubEventLog) AppendWithOutbox(context.Context, ports.ProductEventEntry, ports.OutboxEvent) error {
	return nil
}

type stubDeadLetters struct{}

func (stubDeadLetters) Park(context.Context, ports.DeadLetterRecord) error { return nil }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	service, err := application.NewService(application.Dependencies{
		Config: application.Config{
			Weights: domain.Weights{
				View:  decimal.NewFromInt(1),
				Like:  decimal.NewFromInt(2),
				Order: decimal.NewFromInt(10),
			},
		},
		Ledger:      stubLedger{},
		Buckets:     stubBuckets{},
		Snapshots:   stubSnapshots{},
		EventLog:    stubEventLog{},
		DeadLetters: stubDeadLetters{},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return NewRouter(NewHandler(service))
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestGetRankings(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/rankings/daily:20250901?limit=10", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data struct {
			PeriodKey string       `json:"period_key"`
			Rankings  []rankingRow `json:"rankings"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Data.Rankings) != 1 || body.Data.Rankings[0].ProductID != "p1" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	if body.Data.Rankings[0].Score != "15" {
		t.Fatalf("expected score rendered as string, got %q", body.Data.Rankings[0].Score)
	}
}

func TestGetRankingsRejectsBadPeriod(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/rankings/hourly:2025090112", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetLiveRankings(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/rankings/live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "p9") {
		t.Fatalf("expected live member in body, got %s", rec.Body.String())
	}
}

func TestStartRollupAndPollJob(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"period_key": "daily:20250901"}`)
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/admin/rollups", body))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var accepted struct {
		Data struct {
			JobID string `json:"job_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if _, err := uuid.Parse(accepted.Data.JobID); err != nil {
		t.Fatalf("expected a job uuid, got %q", accepted.Data.JobID)
	}

	statusRec := httptest.NewRecorder()
	router.ServeHTTP(statusRec, httptest.NewRequest(http.MethodGet, "/v1/admin/jobs/"+accepted.Data.JobID, nil))
	if statusRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", statusRec.Code)
	}
}

func TestStartRollupValidation(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/admin/rollups", strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing period_key, got %d", rec.Code)
	}
}

func TestGetJobNotFound(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/admin/jobs/"+uuid.NewString(), nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	badRec := httptest.NewRecorder()
	router.ServeHTTP(badRec, httptest.NewRequest(http.MethodGet, "/v1/admin/jobs/not-a-uuid", nil))
	if badRec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", badRec.Code)
	}
}
