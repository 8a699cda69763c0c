package risk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/aggregate"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/disputes"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/ingest"
	"github.com/NicholasBallas/idr-intelligence-platform/pkg/logger"
)

// ErrProviderNotFound is returned when no disputes exist for a provider
var ErrProviderNotFound = errors.New("provider not found")

// viewCache is the memoization contract the service needs from the query
// cache layer
type viewCache interface {
	GetOrCompute(ctx context.Context, key string, compute func(context.Context) ([]byte, error)) ([]byte, error)
	Invalidate(ctx context.Context) error
}

// Service runs the analytical pipeline: ingestion, aggregation, flagging and
// scoring over the dispute store, with filtered views served through the
// query cache. Aggregates, flags and scores are pure functions of the current
// store content and are never persisted as a source of truth.
type Service struct {
	store  disputes.DisputeStore
	cache  viewCache
	engine *Engine
	loader *ingest.Loader
}

// NewService creates the pipeline service. cache may be nil, in which case
// every view is computed directly.
func NewService(store disputes.DisputeStore, cache viewCache, engine *Engine) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		engine: engine,
		loader: ingest.NewLoader(store),
	}
}

// IngestBatch loads one raw quarterly batch into the store and retires every
// cached view once the batch lands. A failed cache invalidation is logged,
// not fatal: stale entries age out by TTL.
func (s *Service) IngestBatch(ctx context.Context, records []ingest.RawRecord, progress ingest.ProgressFunc) (*ingest.Report, error) {
	report, err := s.loader.Load(ctx, records, progress)
	if err != nil {
		return nil, err
	}

	if report.Succeeded() > 0 && s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			logger.WithContext(ctx).Error("Cache invalidation after ingest failed", zap.Error(err))
		}
	}

	return report, nil
}

// QueryDisputes returns disputes matching the filter
func (s *Service) QueryDisputes(ctx context.Context, filter disputes.Filter) ([]disputes.Dispute, error) {
	return s.store.QueryDisputes(ctx, filter)
}

// Aggregates returns the rollup along the given dimension for the filtered
// dispute set, served through the cache
func (s *Service) Aggregates(ctx context.Context, filter disputes.Filter, groupBy aggregate.GroupBy) (map[string]*aggregate.Aggregate, error) {
	if !groupBy.Valid() {
		return nil, fmt.Errorf("unknown grouping dimension %q", groupBy)
	}

	compute := func(ctx context.Context) ([]byte, error) {
		ds, err := s.store.QueryDisputes(ctx, filter)
		if err != nil {
			return nil, err
		}
		aggs, err := aggregate.Compute(ctx, ds, groupBy)
		if err != nil {
			return nil, err
		}
		return json.Marshal(aggs)
	}

	payload, err := s.view(ctx, fmt.Sprintf("aggregates|%s|%s", groupBy, filter.Key()), compute)
	if err != nil {
		return nil, err
	}

	var aggs map[string]*aggregate.Aggregate
	if err := json.Unmarshal(payload, &aggs); err != nil {
		return nil, fmt.Errorf("decode cached aggregates: %w", err)
	}
	return aggs, nil
}

// ProviderReports computes flags and risk scores for every provider in the
// filtered dispute set, ordered by score descending. minScore drops reports
// below the cut-off after the cached view is materialized, so score filters
// share one cache entry per dispute filter.
func (s *Service) ProviderReports(ctx context.Context, filter disputes.Filter, minScore int) ([]ProviderReport, error) {
	compute := func(ctx context.Context) ([]byte, error) {
		reports, err := s.computeProviderReports(ctx, filter)
		if err != nil {
			return nil, err
		}
		return json.Marshal(reports)
	}

	payload, err := s.view(ctx, "reports|"+filter.Key(), compute)
	if err != nil {
		return nil, err
	}

	var reports []ProviderReport
	if err := json.Unmarshal(payload, &reports); err != nil {
		return nil, fmt.Errorf("decode cached reports: %w", err)
	}

	if minScore > 0 {
		kept := reports[:0]
		for _, r := range reports {
			if r.Risk.Score >= minScore {
				kept = append(kept, r)
			}
		}
		reports = kept
	}

	return reports, nil
}

// ProviderReport returns the report for a single provider NPI
func (s *Service) ProviderReport(ctx context.Context, npi string) (*ProviderReport, error) {
	reports, err := s.ProviderReports(ctx, disputes.Filter{ProviderNPI: npi}, 0)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, ErrProviderNotFound
	}
	return &reports[0], nil
}

// view serves a computation through the cache when one is configured
func (s *Service) view(ctx context.Context, key string, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	if s.cache == nil {
		return compute(ctx)
	}
	return s.cache.GetOrCompute(ctx, key, compute)
}

func (s *Service) computeProviderReports(ctx context.Context, filter disputes.Filter) ([]ProviderReport, error) {
	ds, err := s.store.QueryDisputes(ctx, filter)
	if err != nil {
		return nil, err
	}

	aggs, err := aggregate.Compute(ctx, ds, aggregate.GroupByProvider)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(aggs))
	for _, d := range ds {
		key := d.ProviderNPI
		if key == "" {
			key = d.ProviderName
		}
		if _, ok := names[key]; !ok {
			names[key] = d.ProviderName
		}
	}

	reports := make([]ProviderReport, 0, len(aggs))
	for key, agg := range aggs {
		flags := s.engine.EvaluateFlags(agg)
		reports = append(reports, ProviderReport{
			Provider:     key,
			ProviderName: names[key],
			Aggregate:    agg,
			Flags:        flags,
			Risk:         s.engine.Score(agg, flags),
		})
	}

	sort.Slice(reports, func(i, j int) bool {
		if reports[i].Risk.Score != reports[j].Risk.Score {
			return reports[i].Risk.Score > reports[j].Risk.Score
		}
		return reports[i].Provider < reports[j].Provider
	})

	return reports, nil
}
