package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutor-center-api/internal/billing"
	"github.com/noah-isme/tutor-center-api/internal/dto"
	appErrors "github.com/noah-isme/tutor-center-api/pkg/errors"
	"github.com/noah-isme/tutor-center-api/pkg/export"
)

type datasetPDFRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// RevenueQuery filters the revenue dashboard. Year 0 means every year.
type RevenueQuery struct {
	Year   int
	Months []int
}

// RevenueService buckets class income for the dashboard.
type RevenueService struct {
	catalog catalogLoader
	cache   *CacheService
	csv     csvRenderer
	pdf     datasetPDFRenderer
	logger  *zap.Logger
	ttl     time.Duration
}

// NewRevenueService constructs a RevenueService. fontPath may be empty.
func NewRevenueService(catalog catalogLoader, cache *CacheService, fontPath string, ttl time.Duration, logger *zap.Logger) *RevenueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RevenueService{
		catalog: catalog,
		cache:   cache,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(fontPath),
		logger:  logger,
		ttl:     ttl,
	}
}

// Revenue returns the bucketed dashboard for the query.
func (s *RevenueService) Revenue(ctx context.Context, query RevenueQuery) (*dto.RevenueResponse, bool, error) {
	filter, err := revenueFilter(query)
	if err != nil {
		return nil, false, err
	}
	months := append([]int(nil), query.Months...)
	sort.Ints(months)

	key := revenueCacheKey(query.Year, months)
	var resp dto.RevenueResponse
	hit, cacheErr := s.cache.Get(ctx, key, &resp)
	if cacheErr != nil {
		s.logger.Debug("revenue cache unavailable", zap.Error(cacheErr))
	}
	if hit {
		return &resp, true, nil
	}

	snapshot, err := s.catalog.Load(ctx, nil)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load revenue data")
	}
	resp = dto.RevenueResponse{Year: query.Year, Months: months, Revenue: billing.BucketRevenue(snapshot.Classes, snapshot.Lookup, filter)}
	_ = s.cache.Set(ctx, key, resp, s.ttl)
	return &resp, false, nil
}

// Export renders the dashboard buckets as csv or pdf.
func (s *RevenueService) Export(ctx context.Context, query RevenueQuery, format string) ([]byte, string, string, error) {
	resp, _, err := s.Revenue(ctx, query)
	if err != nil {
		return nil, "", "", err
	}
	dataset := revenueDataset(resp)
	name := "revenue_all"
	if query.Year != 0 {
		name = fmt.Sprintf("revenue_%d", query.Year)
	}
	switch format {
	case "", "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", "", appErrors.Internal(err, "failed to render revenue csv")
		}
		return payload, name + ".csv", "text/csv", nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, "Revenue")
		if err != nil {
			return nil, "", "", appErrors.Internal(err, "failed to render revenue pdf")
		}
		return payload, name + ".pdf", "application/pdf", nil
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func revenueFilter(query RevenueQuery) (billing.RevenueFilter, error) {
	if query.Year < 0 || query.Year > 9999 {
		return billing.RevenueFilter{}, appErrors.Clone(appErrors.ErrValidation, "year is out of range")
	}
	filter := billing.RevenueFilter{Year: query.Year}
	for _, m := range query.Months {
		if m < 1 || m > 12 {
			return billing.RevenueFilter{}, appErrors.Clone(appErrors.ErrValidation, "months must be between 1 and 12")
		}
		filter.Months = append(filter.Months, time.Month(m))
	}
	return filter, nil
}

func revenueDataset(resp *dto.RevenueResponse) export.Dataset {
	dataset := export.Dataset{Headers: []string{"dimension", "key", "label", "classCount", "amount"}}
	add := func(dimension string, buckets []billing.Bucket) {
		for _, b := range buckets {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"dimension":  dimension,
				"key":        b.Key,
				"label":      b.Label,
				"classCount": strconv.Itoa(b.ClassCount),
				"amount":     formatAmount(b.Amount),
			})
		}
	}
	add("teacher", resp.ByTeacher)
	add("course", resp.ByCourse)
	add("grade", resp.ByGrade)
	add("month", resp.ByMonth)
	dataset.Rows = append(dataset.Rows, map[string]string{
		"dimension":  "total",
		"classCount": strconv.Itoa(resp.ClassCount),
		"amount":     formatAmount(resp.GrandTotal),
	})
	return dataset
}
