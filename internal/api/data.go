package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/RichardoC/agroai/internal/httpx"
	"github.com/RichardoC/agroai/internal/oceandata"
	"go.uber.org/zap"
)

type recordRequest struct {
	Region    string     `json:"region"`
	Parameter string     `json:"parameter"`
	Value     *float64   `json:"value"`
	Unit      string     `json:"unit"`
	Timestamp *time.Time `json:"timestamp"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	Depth     *float64   `json:"depth"`
}

func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 1000 {
			httpx.WriteError(w, "limit must be between 1 and 1000", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := h.records.ListByUser(r.Context(), currentUser(r).ID, limit)
	if err != nil {
		h.logger.Error("failed to list ocean records", zap.Error(err))
		httpx.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	httpx.WriteJSON(w, records, http.StatusOK)
}

func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	req, err := httpx.Decode[recordRequest](w, r)
	if err != nil {
		httpx.WriteDecodeError(w, err)
		return
	}
	if req.Value == nil {
		httpx.WriteError(w, "value is required", http.StatusBadRequest)
		return
	}

	rec := &oceandata.Record{
		UserID:    currentUser(r).ID,
		Region:    req.Region,
		Parameter: req.Parameter,
		Value:     *req.Value,
		Unit:      req.Unit,
		Timestamp: time.Now().UTC(),
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Depth:     req.Depth,
	}
	if req.Timestamp != nil {
		rec.Timestamp = req.Timestamp.UTC()
	}

	err = h.records.Create(r.Context(), rec)
	if errors.Is(err, oceandata.ErrInvalidRegion) || errors.Is(err, oceandata.ErrInvalidRecord) {
		httpx.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Error("failed to create ocean record", zap.Error(err))
		httpx.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	httpx.WriteJSON(w, rec, http.StatusCreated)
}
