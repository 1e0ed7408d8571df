package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cartloop/ranking-service/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type rankingRow struct {
	ProductID string `json:"product_id"`
	Score     string `json:"score"`
	Position  int    `json:"rank_position"`
}

type liveRow struct {
	ProductID string `json:"product_id"`
	Score     string `json:"score"`
}

func (h *Handler) getRankings(w http.ResponseWriter, r *http.Request) {
	periodKey := chi.URLParam(r, "period")
	limit := queryInt(r, "limit", 100)
	rows, err := h.service.QueryRankings(r.Context(), periodKey, limit)
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	out := make([]rankingRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, rankingRow{
			ProductID: row.ProductID,
			Score:     row.Score.String(),
			Position:  row.Position,
		})
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"period_key": periodKey,
		"rankings":   out,
	})
}

func (h *Handler) getLiveRankings(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	rows, err := h.service.LiveTopN(r.Context(), time.Now().UTC(), limit)
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	out := make([]liveRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, liveRow{ProductID: row.ProductID, Score: row.Score.String()})
	}
	writeSuccess(w, http.StatusOK, map[string]any{"rankings": out})
}

type rollupRequest struct {
	PeriodKey string `json:"period_key"`
	FromDate  string `json:"from_date,omitempty"`
	ToDate    string `json:"to_date,omitempty"`
}

func (h *Handler) startRollup(w http.ResponseWriter, r *http.Request) {
	var req rollupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if req.PeriodKey == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "period_key is required")
		return
	}
	var from, to *time.Time
	if req.FromDate != "" || req.ToDate != "" {
		f, err := domain.ParseDateKey(req.FromDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid from_date")
			return
		}
		t, err := domain.ParseDateKey(req.ToDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid to_date")
			return
		}
		from, to = &f, &t
	}
	job, err := h.service.StartRollupJob(req.PeriodKey, from, to)
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	writeSuccess(w, http.StatusAccepted, map[string]any{
		"job_id": job.ID.String(),
		"status": string(job.Status),
	})
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "job_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid job id")
		return
	}
	job, err := h.service.JobStatus(jobID)
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"job_id":     job.ID.String(),
		"kind":       job.Kind,
		"period_key": job.PeriodKey,
		"status":     string(job.Status),
		"error":      job.Error,
		"created_at": job.CreatedAt.Format(time.RFC3339),
		"updated_at": job.UpdatedAt.Format(time.RFC3339),
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
