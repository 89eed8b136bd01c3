// Package pipeline orchestrates a full ranking run: qualitative mapping,
// criteria aggregation, entropy weighting, crisp and fuzzy TOPSIS scoring,
// and ABC classification over an item snapshot.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/opensource-logistics/stratum/internal/domain"
	"github.com/opensource-logistics/stratum/internal/mcdm"
)

// EngineVersion identifies the ranking engine build in ranking metadata.
const EngineVersion = "stratum-1.0"

var tracer = otel.Tracer("stratum-pipeline")

// Runner executes ranking runs. The crisp and fuzzy tracks operate on
// independent copies of the snapshot and write disjoint result fields,
// so they can run concurrently.
type Runner struct {
	// Parallel runs the crisp and fuzzy tracks concurrently.
	Parallel bool
}

// NewRunner creates a runner with parallel track execution enabled.
func NewRunner() *Runner {
	return &Runner{Parallel: true}
}

// RunInput contains everything needed for a single ranking run.
type RunInput struct {
	TenantID string
	TraceID  string

	// RequestID, when set, becomes the ranking ID so the ID handed out at
	// enqueue time can be polled directly.
	RequestID string

	Items     []domain.Item
	Config    *domain.PipelineConfig
	StartTime time.Time
}

// Run executes both ranking tracks over the snapshot and assembles a
// completed Ranking. Items are never mutated; all derived values land on
// the copies inside the returned ranking. An empty snapshot produces an
// empty completed ranking.
func (r *Runner) Run(ctx context.Context, input *RunInput) *domain.Ranking {
	startTime := input.StartTime
	if startTime.IsZero() {
		startTime = time.Now()
	}

	ctx, span := tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(
			attribute.String("tenant.id", input.TenantID),
			attribute.Int("item.count", len(input.Items)),
		),
	)
	defer span.End()

	cfg := input.Config
	if cfg == nil {
		cfg = domain.DefaultPipelineConfig()
	}

	id := input.RequestID
	if id == "" {
		id = uuid.New().String()
	}

	ranking := &domain.Ranking{
		ID:            id,
		TenantID:      input.TenantID,
		Status:        domain.RankingRunning,
		ConfigVersion: cfg.Version,
		CreatedAt:     time.Now().UTC(),
	}

	// Qualitative mapping feeds the crisp track; the fuzzy track maps the
	// raw labels to fuzzy numbers itself.
	mapStart := time.Now()
	mapped := mcdm.ApplyMappings(input.Items, cfg.Mapping)
	mappingMs := time.Since(mapStart).Milliseconds()

	var (
		crisp   []domain.Item
		weights domain.EntropyWeights
		crispMs int64

		fuzzy   []domain.Item
		fuzzyMs int64
	)

	crispTrack := func() error {
		trackStart := time.Now()
		aggregated := mcdm.CalculateAggregations(mapped, cfg.Weights)
		weights = mcdm.CalculateEntropyWeights(aggregated)
		scored := mcdm.CalculateTOPSIS(aggregated, weights)
		crisp = mcdm.ClassifyABC(scored, cfg.Thresholds, mcdm.ScoreTOPSIS)
		crispMs = time.Since(trackStart).Milliseconds()
		return nil
	}

	fuzzyTrack := func() error {
		trackStart := time.Now()
		scored := mcdm.CalculateFuzzyTOPSIS(input.Items, cfg.Fuzzy)
		fuzzy = mcdm.ClassifyABC(scored, cfg.Thresholds, mcdm.ScoreFuzzyTOPSIS)
		fuzzyMs = time.Since(trackStart).Milliseconds()
		return nil
	}

	if r.Parallel {
		g, _ := errgroup.WithContext(ctx)
		g.Go(crispTrack)
		g.Go(fuzzyTrack)
		if err := g.Wait(); err != nil {
			ranking.Status = domain.RankingFailed
			ranking.Error = err.Error()
			ranking.CompletedAt = time.Now().UTC()
			span.RecordError(err)
			return ranking
		}
	} else {
		crispTrack()
		fuzzyTrack()
	}

	// The crisp track determines item order; fuzzy results merge in by ID.
	fuzzyByID := make(map[int]domain.Item, len(fuzzy))
	for _, it := range fuzzy {
		fuzzyByID[it.ID] = it
	}
	for i := range crisp {
		if f, ok := fuzzyByID[crisp[i].ID]; ok {
			crisp[i].FuzzyTOPSISScore = f.FuzzyTOPSISScore
			crisp[i].FuzzyClass = f.FuzzyClass
		}
	}

	ranking.Items = crisp
	ranking.Weights = weights
	ranking.Status = domain.RankingCompleted
	ranking.CompletedAt = time.Now().UTC()
	ranking.Metadata = domain.RankingMetadata{
		TraceID:       input.TraceID,
		ItemCount:     len(input.Items),
		MappingMs:     mappingMs,
		CrispMs:       crispMs,
		FuzzyMs:       fuzzyMs,
		TotalMs:       time.Since(startTime).Milliseconds(),
		EngineVersion: EngineVersion,
	}

	span.SetAttributes(attribute.String("ranking.id", ranking.ID))
	return ranking
}
