package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/opensource-logistics/stratum/internal/archive"
	"github.com/opensource-logistics/stratum/internal/domain"
	"github.com/opensource-logistics/stratum/internal/ingest"
	"github.com/opensource-logistics/stratum/internal/mcdm"
	"github.com/opensource-logistics/stratum/internal/pipeline"
	"github.com/opensource-logistics/stratum/internal/repository"
	"github.com/opensource-logistics/stratum/internal/review"
	"github.com/opensource-logistics/stratum/internal/usage"
	"github.com/opensource-logistics/stratum/internal/worker"
)

// latestRankingTTL bounds how long the latest-ranking cache entry lives
// when the API backfills it on a cache miss.
const latestRankingTTL = time.Hour

// Handler holds dependencies for API handlers.
type Handler struct {
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	engine   *review.Engine
	tracker  *usage.Service
	archiver *archive.Archiver
	version  string
	tier     domain.Tier
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, engine *review.Engine, tracker *usage.Service, archiver *archive.Archiver, version string, tier domain.Tier) *Handler {
	return &Handler{
		repo:     repo,
		cache:    cache,
		bus:      bus,
		engine:   engine,
		tracker:  tracker,
		archiver: archiver,
		version:  version,
		tier:     tier,
	}
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// Info describes the running instance: version, tier and the score
// pipeline revision. It requires no tenant header.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version":       h.version,
		"tier":          h.tier,
		"engineVersion": pipeline.EngineVersion,
		"statColumns":   mcdm.StatColumns(),
	})
}

// ============================================================================
// ITEM HANDLERS
// ============================================================================

// CreateItem handles POST /v1/items requests.
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req domain.ItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	item := req.ToItem(tenantID)
	if item.Empty() {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "at least one item attribute is required",
		})
		return
	}

	if err := h.repo.SaveItem(ctx, tenantID, item); err != nil {
		slog.Error("failed to save item", "tenant_id", tenantID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save item",
		})
		return
	}

	h.invalidateItems(ctx, tenantID)
	h.publishEvent(ctx, tenantID, domain.TopicItemCreated, item)

	writeJSON(w, http.StatusCreated, item)
}

// ListItems returns the current inventory snapshot for the tenant.
// The marshalled response is cached briefly to keep repeated dashboard
// polls off the repository.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	if h.cache != nil {
		if data, err := h.cache.Get(ctx, tenantID, domain.CacheKeyItems); err == nil && data != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(data)
			return
		}
	}

	items, err := h.repo.ListItems(ctx, tenantID)
	if err != nil {
		slog.Error("failed to list items", "tenant_id", tenantID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list items",
		})
		return
	}
	if items == nil {
		items = []*domain.Item{}
	}

	resp := map[string]interface{}{
		"items": items,
		"count": len(items),
	}

	if h.cache != nil {
		if data, err := json.Marshal(resp); err == nil {
			_ = h.cache.Set(ctx, tenantID, domain.CacheKeyItems, data, time.Minute)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetItem retrieves one inventory item by its snapshot ID.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	id, err := itemID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid item id",
		})
		return
	}

	item, err := h.repo.GetItem(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "item not found",
			})
			return
		}
		slog.Error("failed to get item", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get item",
		})
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// DeleteItem removes one inventory item from the snapshot.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	id, err := itemID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid item id",
		})
		return
	}

	if err := h.repo.DeleteItem(ctx, tenantID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "item not found",
			})
			return
		}
		slog.Error("failed to delete item", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to delete item",
		})
		return
	}

	h.invalidateItems(ctx, tenantID)
	h.publishEvent(ctx, tenantID, domain.TopicItemDeleted, map[string]int{"id": id})

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "item deleted",
	})
}

// ImportItems handles POST /v1/items/import requests. The body is a raw
// CSV snapshot; parsed rows upsert by their 1-based position ID.
func (h *Handler) ImportItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	result, err := ingest.Parse(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	if len(result.Items) > 0 {
		for _, item := range result.Items {
			item.TenantID = tenantID
		}
		if err := h.repo.SaveItems(ctx, tenantID, result.Items); err != nil {
			slog.Error("failed to save imported items", "tenant_id", tenantID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save items",
			})
			return
		}
	}

	h.invalidateItems(ctx, tenantID)
	h.publishEvent(ctx, tenantID, domain.TopicItemUpdated, result)

	slog.Info("items imported",
		"tenant_id", tenantID,
		"imported", result.Imported,
		"skipped", result.Skipped)

	writeJSON(w, http.StatusOK, result)
}

// ============================================================================
// CONFIG HANDLERS
// ============================================================================

// GetConfig returns the tenant's pipeline configuration, falling back to
// the built-in defaults when none has been saved.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	cfg, err := h.repo.GetPipelineConfig(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusOK, domain.DefaultPipelineConfig())
			return
		}
		slog.Error("failed to get pipeline config", "tenant_id", tenantID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get config",
		})
		return
	}

	writeJSON(w, http.StatusOK, cfg)
}

// GetConfigDefaults returns the built-in pipeline configuration.
func (h *Handler) GetConfigDefaults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.DefaultPipelineConfig())
}

// UpdateConfig handles PUT /v1/config requests. The body replaces the
// whole pipeline configuration; the version counter is bumped server-side
// and the change is announced on the bus so workers pick it up on the
// next run.
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req domain.PipelineConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if err := validateThresholds(req.Thresholds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}
	warnWeights(tenantID, req.Weights)

	current, err := h.repo.GetPipelineConfig(ctx, tenantID)
	switch {
	case err == nil:
		req.Version = current.Version + 1
	case errors.Is(err, repository.ErrNotFound):
		req.Version = 1
	default:
		slog.Error("failed to load pipeline config", "tenant_id", tenantID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load config",
		})
		return
	}

	req.TenantID = tenantID
	if err := h.repo.SavePipelineConfig(ctx, tenantID, &req); err != nil {
		slog.Error("failed to save pipeline config", "tenant_id", tenantID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save config",
		})
		return
	}

	h.publishEvent(ctx, tenantID, domain.TopicConfigUpdated, map[string]int{"version": req.Version})

	slog.Info("pipeline config updated", "tenant_id", tenantID, "version", req.Version)
	writeJSON(w, http.StatusOK, req)
}

func validateThresholds(t domain.ABCThresholds) error {
	if t.A < 0 || t.B < 0 || t.C < 0 {
		return fmt.Errorf("thresholds must be non-negative")
	}
	if t.A+t.B > 100 {
		return fmt.Errorf("thresholds a+b must not exceed 100")
	}
	return nil
}

// warnWeights logs a warning for aggregation weight pairs that do not sum
// to 1.0. A skewed pair is legal but almost always a configuration
// mistake, so it is flagged rather than rejected.
func warnWeights(tenantID string, w domain.AggregationWeights) {
	pairs := map[string]float64{
		"criticality": w.Criticality.Risk + w.Criticality.Fluctuation,
		"demand":      w.Demand.DailyUsage + w.Demand.AverageStock,
		"supply":      w.Supply.LeadTime + w.Supply.Consignment,
	}
	for group, total := range pairs {
		if total < 0.99 || total > 1.01 {
			slog.Warn("aggregation weights do not sum to 1.0",
				"tenant_id", tenantID,
				"group", group,
				"total_weight", total)
		}
	}
}

// ============================================================================
// RANKING HANDLERS
// ============================================================================

// CreateRanking handles POST /v1/rankings requests. Runs are asynchronous:
// the handler publishes a request on the bus and a worker picks it up, so
// the response carries a request ID to correlate with the completed
// ranking, not the ranking itself.
func (h *Handler) CreateRanking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	traceID := GetTraceID(ctx)

	if h.bus == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "event bus not available",
		})
		return
	}

	requestID := uuid.New().String()
	msg := worker.RankingRequestMessage{
		RequestID: requestID,
		TenantID:  tenantID,
		TraceID:   traceID,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to encode ranking request",
		})
		return
	}

	if err := h.bus.Publish(ctx, tenantID, domain.TopicRankingRequested, payload); err != nil {
		slog.Error("failed to publish ranking request", "tenant_id", tenantID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to request ranking",
		})
		return
	}

	slog.Info("ranking requested", "request_id", requestID, "tenant_id", tenantID, "trace_id", traceID)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"requestId": requestID,
		"status":    domain.RankingPending,
		"traceId":   traceID,
	})
}

// ListRankings returns ranking run summaries, newest first.
func (h *Handler) ListRankings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "invalid limit",
			})
			return
		}
		limit = n
	}

	rankings, err := h.repo.ListRankings(ctx, tenantID, limit)
	if err != nil {
		slog.Error("failed to list rankings", "tenant_id", tenantID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list rankings",
		})
		return
	}
	if rankings == nil {
		rankings = []*domain.RankingSummary{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rankings": rankings,
		"count":    len(rankings),
	})
}

// GetRanking retrieves a ranking run by ID, items included.
func (h *Handler) GetRanking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	rankingID := chi.URLParam(r, "id")

	if rankingID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "ranking id is required",
		})
		return
	}

	ranking, err := h.repo.GetRanking(ctx, tenantID, rankingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "ranking not found",
			})
			return
		}
		slog.Error("failed to get ranking", "id", rankingID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get ranking",
		})
		return
	}

	writeJSON(w, http.StatusOK, ranking)
}

// LatestRanking returns the most recent completed ranking, cache-first.
func (h *Handler) LatestRanking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	if h.cache != nil {
		if ranking, err := h.cache.GetRanking(ctx, tenantID, domain.CacheKeyLatestRanking); err == nil && ranking != nil {
			writeJSON(w, http.StatusOK, ranking)
			return
		}
	}

	ranking, err := h.repo.LatestRanking(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "no completed ranking",
			})
			return
		}
		slog.Error("failed to get latest ranking", "tenant_id", tenantID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get latest ranking",
		})
		return
	}

	// Backfill the cache so the next poll skips the repository.
	if h.cache != nil {
		if err := h.cache.SetRanking(ctx, tenantID, domain.CacheKeyLatestRanking, ranking, latestRankingTTL); err != nil {
			slog.Warn("failed to cache latest ranking", "tenant_id", tenantID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, ranking)
}

// ReclassifyRequest is the request body for POST /v1/rankings/{id}/reclassify.
type ReclassifyRequest struct {
	Thresholds domain.ABCThresholds `json:"thresholds"`
}

// ReclassifyRanking re-cuts a completed ranking's ABC classes under
// alternative thresholds. Scores are not recomputed and the stored
// ranking is left untouched; the response is a what-if view.
func (h *Handler) ReclassifyRanking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	rankingID := chi.URLParam(r, "id")

	if rankingID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "ranking id is required",
		})
		return
	}

	var req ReclassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if err := validateThresholds(req.Thresholds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	ranking, err := h.repo.GetRanking(ctx, tenantID, rankingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "ranking not found",
			})
			return
		}
		slog.Error("failed to get ranking", "id", rankingID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get ranking",
		})
		return
	}
	if ranking.Status != domain.RankingCompleted {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": "ranking is not completed",
		})
		return
	}

	// Crisp classes keep the crisp ordering; fuzzy classes are cut on the
	// fuzzy ordering and merged back by item ID.
	items := mcdm.ClassifyABC(ranking.Items, req.Thresholds, mcdm.ScoreTOPSIS)
	fuzzy := mcdm.ClassifyABC(ranking.Items, req.Thresholds, mcdm.ScoreFuzzyTOPSIS)
	fuzzyByID := make(map[int]string, len(fuzzy))
	for _, it := range fuzzy {
		fuzzyByID[it.ID] = it.FuzzyClass
	}
	for i := range items {
		if class, ok := fuzzyByID[items[i].ID]; ok {
			items[i].FuzzyClass = class
		}
	}
	ranking.Items = items

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ranking":    ranking,
		"thresholds": req.Thresholds,
	})
}

// ExportRanking handles GET /v1/rankings/{id}/export. The response body
// is the ranking as CSV; with ?archive=true the same document is also
// written to object storage and the object key returned in the
// X-Archive-Object header.
func (h *Handler) ExportRanking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	rankingID := chi.URLParam(r, "id")

	if rankingID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "ranking id is required",
		})
		return
	}

	ranking, err := h.repo.GetRanking(ctx, tenantID, rankingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "ranking not found",
			})
			return
		}
		slog.Error("failed to get ranking", "id", rankingID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get ranking",
		})
		return
	}

	data, err := archive.RankingCSV(ranking)
	if err != nil {
		slog.Error("failed to render ranking csv", "id", rankingID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to render csv",
		})
		return
	}

	if r.URL.Query().Get("archive") == "true" {
		if h.archiver == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "archive not configured",
			})
			return
		}
		object, err := h.archiver.Export(ctx, ranking)
		if err != nil {
			slog.Error("failed to archive ranking", "id", rankingID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to archive ranking",
			})
			return
		}
		w.Header().Set("X-Archive-Object", object)
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "ranking-"+ranking.ID+".csv"))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ============================================================================
// STATS HANDLERS
// ============================================================================

// GetStats returns descriptive statistics per column. With ?column=name
// only that column is computed. Score columns are only populated once a
// ranking has completed; before that the stats describe the raw snapshot.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	items, err := h.statsItems(ctx, tenantID)
	if err != nil {
		slog.Error("failed to load items for stats", "tenant_id", tenantID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load items",
		})
		return
	}

	if column := r.URL.Query().Get("column"); column != "" {
		if !validColumn(column) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("unknown column %q (valid: %s)", column, strings.Join(mcdm.StatColumns(), ", ")),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"column":    column,
			"stats":     mcdm.CalculateStats(mcdm.Column(items, column)),
			"itemCount": len(items),
		})
		return
	}

	all := make(map[string]domain.ColumnStats, len(mcdm.StatColumns()))
	for _, name := range mcdm.StatColumns() {
		all[name] = mcdm.CalculateStats(mcdm.Column(items, name))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stats":     all,
		"itemCount": len(items),
	})
}

// GetCorrelations returns the Pearson correlation matrix over the given
// columns (?columns=a,b,c), or all columns when unspecified.
func (h *Handler) GetCorrelations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	columns := mcdm.StatColumns()
	if s := r.URL.Query().Get("columns"); s != "" {
		columns = strings.Split(s, ",")
		for i := range columns {
			columns[i] = strings.TrimSpace(columns[i])
		}
		for _, column := range columns {
			if !validColumn(column) {
				writeJSON(w, http.StatusBadRequest, map[string]string{
					"error": fmt.Sprintf("unknown column %q (valid: %s)", column, strings.Join(mcdm.StatColumns(), ", ")),
				})
				return
			}
		}
		if len(columns) < 2 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "at least two columns are required",
			})
			return
		}
	}

	items, err := h.statsItems(ctx, tenantID)
	if err != nil {
		slog.Error("failed to load items for correlations", "tenant_id", tenantID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load items",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"correlations": mcdm.CalculateCorrelationMatrix(items, columns),
		"itemCount":    len(items),
	})
}

// statsItems prefers the latest completed ranking, whose items carry
// computed scores, and falls back to the raw snapshot before the first
// run.
func (h *Handler) statsItems(ctx context.Context, tenantID string) ([]domain.Item, error) {
	ranking, err := h.repo.LatestRanking(ctx, tenantID)
	if err == nil {
		return ranking.Items, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	items, err := h.repo.ListItems(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Item, len(items))
	for i, item := range items {
		out[i] = *item
	}
	return out, nil
}

func validColumn(name string) bool {
	for _, column := range mcdm.StatColumns() {
		if column == name {
			return true
		}
	}
	return false
}

// ============================================================================
// REVIEW HANDLERS
// ============================================================================

// ListFlags returns review flags for a ranking (?rankingId=..., default
// the latest completed run).
func (h *Handler) ListFlags(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	rankingID := r.URL.Query().Get("rankingId")
	if rankingID == "" {
		ranking, err := h.repo.LatestRanking(ctx, tenantID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				writeJSON(w, http.StatusOK, map[string]interface{}{
					"flags": []*domain.ReviewFlag{},
					"count": 0,
				})
				return
			}
			slog.Error("failed to get latest ranking", "tenant_id", tenantID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to get latest ranking",
			})
			return
		}
		rankingID = ranking.ID
	}

	flags, err := h.repo.ListFlags(ctx, tenantID, rankingID)
	if err != nil {
		slog.Error("failed to list flags", "ranking_id", rankingID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list flags",
		})
		return
	}
	if flags == nil {
		flags = []*domain.ReviewFlag{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"flags":     flags,
		"count":     len(flags),
		"rankingId": rankingID,
	})
}

// ListReviewRules returns all saved review rules, disabled ones included,
// plus how many are currently loaded in the engine.
func (h *Handler) ListReviewRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rules, err := h.repo.ListReviewRules(ctx, domain.GlobalTenant)
	if err != nil {
		slog.Error("failed to list review rules", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list review rules",
		})
		return
	}
	if rules == nil {
		rules = []*domain.ReviewRule{}
	}

	loaded := 0
	if h.engine != nil {
		loaded = h.engine.RulesCount()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules":  rules,
		"count":  len(rules),
		"loaded": loaded,
	})
}

// CreateReviewRuleRequest is the request body for creating a review rule.
type CreateReviewRuleRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Expression  string `json:"expression"`
	Severity    string `json:"severity"`
	Enabled     bool   `json:"enabled"`
}

// CreateReviewRule creates a review rule and saves it to the database.
// Rules are saved globally (tenant_id = "*") so they apply to all tenants.
// Enabled rules are reloaded into the engine immediately.
func (h *Handler) CreateReviewRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateReviewRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	// Validate
	if req.ID == "" || req.Name == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, name, and expression are required",
		})
		return
	}
	severity := req.Severity
	if severity == "" {
		severity = domain.SeverityInfo
	}
	switch severity {
	case domain.SeverityInfo, domain.SeverityWarning, domain.SeverityCritical:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": `severity must be "info", "warning" or "critical"`,
		})
		return
	}

	rule := &domain.ReviewRule{
		ID:          req.ID,
		TenantID:    domain.GlobalTenant,
		Name:        req.Name,
		Description: req.Description,
		Expression:  req.Expression,
		Severity:    severity,
		Enabled:     req.Enabled,
	}

	// Validate CEL expression before persisting
	if h.engine != nil {
		if err := h.engine.ValidateRule(rule); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "invalid CEL expression: " + err.Error(),
			})
			return
		}
	}

	if err := h.repo.SaveReviewRule(ctx, domain.GlobalTenant, rule); err != nil {
		slog.Error("failed to save review rule", "id", rule.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save review rule",
		})
		return
	}

	h.reloadReviewRules(ctx)

	slog.Info("review rule created", "id", rule.ID, "name", rule.Name, "severity", rule.Severity)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"rule": rule,
	})
}

// reloadReviewRules refreshes the engine from the database so a saved
// rule takes effect without a restart. Failures are logged, not surfaced:
// the rule is already persisted and will load on the next restart.
func (h *Handler) reloadReviewRules(ctx context.Context) {
	if h.engine == nil {
		return
	}
	rules, err := h.repo.ListReviewRules(ctx, domain.GlobalTenant)
	if err != nil {
		slog.Error("failed to list review rules for reload", "error", err)
		return
	}
	if err := h.engine.ReloadRules(rules); err != nil {
		slog.Error("failed to reload review rules", "error", err)
		return
	}
	slog.Info("review rules reloaded", "loaded", h.engine.RulesCount())
}

// ============================================================================
// USAGE HANDLERS
// ============================================================================

// MovementRequest is the request body for POST /v1/movements.
type MovementRequest struct {
	ItemID    int     `json:"itemId"`
	Type      string  `json:"type"`
	Quantity  float64 `json:"quantity"`
	Reference string  `json:"reference,omitempty"`
}

// RecordMovement records a stock movement for an item.
func (h *Handler) RecordMovement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	if h.tracker == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "usage tracking not available",
		})
		return
	}

	var req MovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	// Validate
	if req.ItemID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "itemId is required",
		})
		return
	}
	if req.Type != domain.MovementIssue && req.Type != domain.MovementReceipt {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": `type must be "issue" or "receipt"`,
		})
		return
	}
	if req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "quantity must be positive",
		})
		return
	}

	movement := &domain.Movement{
		TenantID:  tenantID,
		ItemID:    req.ItemID,
		Type:      req.Type,
		Quantity:  req.Quantity,
		Reference: req.Reference,
	}
	if err := h.tracker.Record(ctx, movement); err != nil {
		slog.Error("failed to record movement", "item_id", req.ItemID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to record movement",
		})
		return
	}

	writeJSON(w, http.StatusCreated, movement)
}

// GetUsage returns the observed-demand summary for one item.
func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	if h.tracker == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "usage tracking not available",
		})
		return
	}

	id, err := itemID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid item id",
		})
		return
	}

	summary, err := h.tracker.Summary(ctx, tenantID, id)
	if err != nil {
		slog.Error("failed to compute usage summary", "item_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to compute usage",
		})
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// ============================================================================
// HELPERS
// ============================================================================

func itemID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}

// publishEvent marshals payload and publishes it on the tenant's topic.
// Publishing is best-effort; a bus failure never fails the request.
func (h *Handler) publishEvent(ctx context.Context, tenantID, topic string, payload interface{}) {
	if h.bus == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := h.bus.Publish(ctx, tenantID, topic, data); err != nil {
		slog.Warn("failed to publish event", "topic", topic, "error", err)
	}
}

func (h *Handler) invalidateItems(ctx context.Context, tenantID string) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Delete(ctx, tenantID, domain.CacheKeyItems); err != nil {
		slog.Warn("failed to invalidate items cache", "tenant_id", tenantID, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
