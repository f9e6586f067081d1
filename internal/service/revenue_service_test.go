package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/tutor-center-api/pkg/errors"
)

func TestRevenueServiceBuckets(t *testing.T) {
	svc := NewRevenueService(tutoringCatalog(), nil, "", time.Minute, zap.NewNop())

	resp, hit, err := svc.Revenue(context.Background(), RevenueQuery{Year: 2025})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2700.0, resp.GrandTotal)
	assert.Equal(t, 5, resp.ClassCount)
	require.Len(t, resp.ByMonth, 2)
	assert.Equal(t, "2025-03", resp.ByMonth[0].Key)
	assert.Equal(t, 2200.0, resp.ByMonth[0].Amount)
	assert.Equal(t, "C20", resp.ByCourse[0].Key)
	assert.Equal(t, "G8 English", resp.ByCourse[0].Label)
}

func TestRevenueServiceMonthFilter(t *testing.T) {
	svc := NewRevenueService(tutoringCatalog(), nil, "", time.Minute, zap.NewNop())

	resp, _, err := svc.Revenue(context.Background(), RevenueQuery{Year: 2025, Months: []int{4}})
	require.NoError(t, err)
	assert.Equal(t, 500.0, resp.GrandTotal)
	assert.Equal(t, []int{4}, resp.Months)

	resp, _, err = svc.Revenue(context.Background(), RevenueQuery{Year: 2024})
	require.NoError(t, err)
	assert.Zero(t, resp.GrandTotal)
	assert.Empty(t, resp.ByTeacher)
}

func TestRevenueServiceCachesPerFilter(t *testing.T) {
	catalog := tutoringCatalog()
	cacheRepo := &stubCacheRepo{}
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	svc := NewRevenueService(catalog, cache, "", time.Minute, zap.NewNop())

	_, _, err := svc.Revenue(context.Background(), RevenueQuery{Year: 2025, Months: []int{3, 1}})
	require.NoError(t, err)
	_, hit, err := svc.Revenue(context.Background(), RevenueQuery{Year: 2025, Months: []int{1, 3}})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, catalog.calls)
	assert.Contains(t, cacheRepo.store, "revenue:2025:01,03")
}

func TestRevenueServiceRejectsBadMonths(t *testing.T) {
	svc := NewRevenueService(tutoringCatalog(), nil, "", time.Minute, zap.NewNop())

	_, _, err := svc.Revenue(context.Background(), RevenueQuery{Year: 2025, Months: []int{13}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRevenueServiceExport(t *testing.T) {
	svc := NewRevenueService(tutoringCatalog(), nil, "", time.Minute, zap.NewNop())

	payload, name, contentType, err := svc.Export(context.Background(), RevenueQuery{Year: 2025}, "csv")
	require.NoError(t, err)
	assert.Equal(t, "revenue_2025.csv", name)
	assert.Equal(t, "text/csv", contentType)
	assert.Contains(t, string(payload), "total")

	payload, name, _, err = svc.Export(context.Background(), RevenueQuery{}, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "revenue_all.pdf", name)
	assert.Equal(t, "%PDF", string(payload[:4]))

	_, _, _, err = svc.Export(context.Background(), RevenueQuery{}, "xlsx")
	require.Error(t, err)
}
