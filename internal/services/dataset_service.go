package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/montanaflynn/stats"

	"parkinsight/internal/enrichers"
	apperrors "parkinsight/internal/errors"
	"parkinsight/internal/models"
	"parkinsight/internal/transformers"
	"parkinsight/pkg/cache"
	"parkinsight/pkg/cahcd"
	"parkinsight/pkg/config"
	"parkinsight/pkg/logger"
	"parkinsight/pkg/metrics"
	"parkinsight/pkg/mhvillage"
	"parkinsight/pkg/rivco"
)

// FetchParams identifies one fetch of a dataset source. The tuple is also
// the cache key, so two requests with the same params share a cache entry.
type FetchParams struct {
	County     string
	State      string
	CountyCode string
	Query      string
	Limit      int
}

func (p FetchParams) tuple() []string {
	return []string{p.County, p.State, p.CountyCode, p.Query, fmt.Sprintf("%d", p.Limit)}
}

// DatasetService orchestrates the fetch -> flatten -> enrich -> sanitize
// pipeline for every dataset source, with explicit caching of the flattened
// record lists.
type DatasetService struct {
	cfg   *config.Config
	store cache.Store
	cahcd *cahcd.Client
	rivco *rivco.Client
	mhv   *mhvillage.Client
}

func NewDatasetService(
	cfg *config.Config,
	store cache.Store,
	cahcdClient *cahcd.Client,
	rivcoClient *rivco.Client,
	mhvClient *mhvillage.Client,
) *DatasetService {
	return &DatasetService{
		cfg:   cfg,
		store: store,
		cahcd: cahcdClient,
		rivco: rivcoClient,
		mhv:   mhvClient,
	}
}

// Records returns the flattened record list for a source, serving from the
// cache when possible. The boolean reports a cache hit. A fetch failure is
// logged and absorbed into an empty record list; only an unknown source is
// an error.
func (s *DatasetService) Records(ctx context.Context, source string, p FetchParams) ([]models.Value, bool, error) {
	key := cache.Key(source, p.tuple()...)

	if entry, ok, err := s.store.Get(ctx, key); err == nil && ok {
		cached, err := models.DecodeJSON(entry.Payload)
		if err == nil && cached.Kind() == models.KindArray {
			return cached.Items(), true, nil
		}
		logger.GlobalLogger.Errorf("dropping undecodable cache entry: key=%s, error=%v", key, err)
		_ = s.store.Delete(ctx, key)
	} else if err != nil {
		logger.GlobalLogger.Errorf("cache get failed: key=%s, error=%v", key, err)
	}

	payload, err := s.fetch(ctx, source, p)
	if err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok && appErr.Code == apperrors.ErrCodeUnknownDataset {
			return nil, false, err
		}
		metrics.FetchErrorsTotal.WithLabelValues(source).Inc()
		logger.GlobalLogger.Errorf("fetch failed, treating as empty payload: source=%s, error=%v", source, err)
		payload = models.Null()
	}

	records := transformers.FlattenRecords(payload)
	if p.Limit > 0 && len(records) > p.Limit {
		records = records[:p.Limit]
	}

	encoded, err := models.Array(records...).MarshalJSON()
	if err == nil {
		entry := &cache.Entry{Payload: encoded, FetchedAt: time.Now()}
		ttl := time.Duration(s.cfg.Cache.TTLMinutes) * time.Minute
		if err := s.store.Set(ctx, key, entry, ttl); err != nil {
			logger.GlobalLogger.Errorf("cache set failed: key=%s, error=%v", key, err)
		}
	}
	return records, false, nil
}

func (s *DatasetService) fetch(ctx context.Context, source string, p FetchParams) (models.Value, error) {
	start := time.Now()
	defer func() {
		metrics.FetchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	}()

	var payload models.Value
	var err error
	switch source {
	case SourceCAHCD:
		code := p.CountyCode
		if code == "" {
			code = s.cfg.Sources.CAHCD.CountyCode
		}
		payload, err = s.cahcd.FetchParks(ctx, code)
	case SourceRivCo:
		query := p.Query
		if query == "" {
			query = p.County
		}
		if query == "" {
			query = "Riverside"
		}
		payload, err = s.rivco.FetchParcels(ctx, query, p.Limit)
	case SourceMHVillage:
		county := p.County
		if county == "" {
			county = "Riverside"
		}
		state := p.State
		if state == "" {
			state = "CA"
		}
		payload, err = s.mhv.FetchParkDetails(ctx, county, state, 0)
	default:
		return models.Null(), apperrors.NewAppError(
			fmt.Sprintf("unknown dataset source %q", source),
			"unknown dataset source",
			apperrors.ErrCodeUnknownDataset,
			http.StatusNotFound,
			nil,
		)
	}
	if err != nil {
		return models.Null(), apperrors.NewAppError(
			fmt.Sprintf("%s fetch failed", source),
			"upstream fetch failed",
			apperrors.ErrCodeFetchFailed,
			http.StatusBadGateway,
			err,
		)
	}
	return payload, nil
}

// TableOptions tunes the display table assembly.
type TableOptions struct {
	// WithCoordinates filters out rows lacking lat/lng when true. Nil means
	// the per-source default (on for assessor parcels, off for communities).
	WithCoordinates *bool
}

// Table builds the sanitized display table and summary metrics for a source.
// The boolean reports whether the underlying records came from the cache.
func (s *DatasetService) Table(ctx context.Context, source string, p FetchParams, opts TableOptions) (models.Table, models.DatasetSummary, bool, error) {
	records, hit, err := s.Records(ctx, source, p)
	if err != nil {
		return models.Table{}, models.DatasetSummary{}, false, err
	}

	var table models.Table
	var summary models.DatasetSummary
	switch source {
	case SourceCAHCD:
		table, summary = s.cahcdTable(records)
	case SourceRivCo:
		table, summary = s.rivcoTable(records, opts)
	case SourceMHVillage:
		table, summary = s.mhvillageTable(records, opts)
	}
	summary.Source = source
	return table, summary, hit, nil
}

// Invalidate evicts every cache entry for a source.
func (s *DatasetService) Invalidate(ctx context.Context, source string) error {
	return s.store.DeleteByPrefix(ctx, cache.SourcePrefix(source))
}

// Ping reports whether the cache backend is reachable.
func (s *DatasetService) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return apperrors.NewAppError(
			"cache ping failed",
			"cache backend unavailable",
			apperrors.ErrCodeServiceUnavailable,
			http.StatusServiceUnavailable,
			err,
		)
	}
	return nil
}

func (s *DatasetService) sanitizeOptions(prefer []string, maxCols int) transformers.SanitizeOptions {
	if maxCols <= 0 {
		maxCols = s.cfg.Display.MaxColumns
	}
	return transformers.SanitizeOptions{
		PreferredColumns: prefer,
		MaxColumns:       maxCols,
		NumericThreshold: s.cfg.Display.NumericThreshold,
	}
}

func (s *DatasetService) cahcdTable(records []models.Value) (models.Table, models.DatasetSummary) {
	table := models.BuildTable(records)
	for _, col := range cahcdNumericColumns {
		table = transformers.CoerceNumericColumn(table, col)
	}

	summary := models.DatasetSummary{
		RowCount: len(table.Rows),
		Metrics: []models.Metric{
			{Label: "Parks", Value: float64(len(table.Rows))},
			{Label: "Total lots", Value: columnSum(table, "totalNumberLots")},
			{Label: "MH lots", Value: columnSum(table, "numberMhLots")},
			{Label: "RV lots (drains)", Value: columnSum(table, "numberRvLotsDrains")},
		},
	}
	return transformers.SanitizeTable(table, s.sanitizeOptions(cahcdPreferredColumns, 0)), summary
}

func (s *DatasetService) rivcoTable(records []models.Value, opts TableOptions) (models.Table, models.DatasetSummary) {
	enriched := make([]models.Value, len(records))
	for i, rec := range records {
		enriched[i] = enrichers.EnrichRecord(rec, enrichers.SummarizeAssessor(rec))
	}

	table := models.BuildTable(enriched)
	for _, col := range rivcoNumericColumns {
		table = transformers.CoerceNumericColumn(table, col)
	}

	withCoords := *s.cfg.Display.WithCoordinates
	if opts.WithCoordinates != nil {
		withCoords = *opts.WithCoordinates
	}
	if withCoords {
		table = filterWithCoordinates(table, "lat", "lng")
	}

	summary := models.DatasetSummary{
		RowCount: len(table.Rows),
		Metrics: []models.Metric{
			{Label: "Parcels", Value: float64(len(table.Rows))},
			{Label: "With coordinates", Value: float64(coordinateCount(table, "lat", "lng"))},
			{Label: "Avg assessed total (latest)", Value: columnMean(table, "assessedLatest")},
		},
	}
	return transformers.SanitizeTable(table, s.sanitizeOptions(rivcoPreferredColumns, 0)), summary
}

func (s *DatasetService) mhvillageTable(records []models.Value, opts TableOptions) (models.Table, models.DatasetSummary) {
	display := make([]models.Value, len(records))
	for i, rec := range records {
		expanded := renameDisplayColumns(transformers.ExpandRecord(rec))
		display[i] = enrichers.EnrichRecord(expanded, enrichers.ExtractAmenities(rec))
	}

	table := models.BuildTable(display)
	for _, col := range mhvillageNumericColumns {
		table = transformers.CoerceNumericColumn(table, col)
	}

	if opts.WithCoordinates != nil && *opts.WithCoordinates {
		table = filterWithCoordinates(table, "Latitude", "Longitude")
	}

	summary := models.DatasetSummary{
		RowCount: len(table.Rows),
		Metrics: []models.Metric{
			{Label: "Communities", Value: float64(len(table.Rows))},
			{Label: "Total sites", Value: columnSum(table, "Total Sites")},
			{Label: "With photos", Value: float64(photoCount(table))},
		},
	}
	return transformers.SanitizeTable(table, s.sanitizeOptions(mhvillagePreferredColumns, mhvillageMaxColumns)), summary
}

// numericColumn collects the non-null numeric values of a column.
func numericColumn(t models.Table, col string) []float64 {
	var out []float64
	for _, v := range t.Column(col) {
		if f, ok := v.AsFloat(); ok {
			out = append(out, f)
		}
	}
	return out
}

func columnSum(t models.Table, col string) float64 {
	sum, err := stats.Sum(numericColumn(t, col))
	if err != nil {
		return 0
	}
	return sum
}

func columnMean(t models.Table, col string) float64 {
	mean, err := stats.Mean(numericColumn(t, col))
	if err != nil {
		return 0
	}
	return mean
}

func coordinateCount(t models.Table, latCol, lngCol string) int {
	n := 0
	for i := range t.Rows {
		if _, latOK := t.Cell(i, latCol).AsFloat(); !latOK {
			continue
		}
		if _, lngOK := t.Cell(i, lngCol).AsFloat(); lngOK {
			n++
		}
	}
	return n
}

func filterWithCoordinates(t models.Table, latCol, lngCol string) models.Table {
	out := models.Table{Columns: t.Columns}
	for i := range t.Rows {
		_, latOK := t.Cell(i, latCol).AsFloat()
		_, lngOK := t.Cell(i, lngCol).AsFloat()
		if latOK && lngOK {
			out.Rows = append(out.Rows, t.Rows[i])
		}
	}
	return out
}

func photoCount(t models.Table) int {
	n := 0
	for _, v := range t.Column("Photos") {
		if v.Kind() == models.KindArray && v.Len() > 0 {
			n++
		}
	}
	return n
}
