package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/tutor-center-api/pkg/errors"
)

func TestCacheRepositoryNamespacesKeys(t *testing.T) {
	assert.Equal(t, "tutor:billing:students:2025-04", NewCacheRepository(nil, "", nil).key("billing:students:2025-04"))
	assert.Equal(t, "staging:revenue:2025:all", NewCacheRepository(nil, " staging: ", nil).key("revenue:2025:all"))
}

func TestCacheRepositoryWithoutClientIsAlwaysMiss(t *testing.T) {
	repo := NewCacheRepository(nil, "tutor", nil)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "billing:students:2025-04", map[string]int{"total": 1}, time.Minute))
	var dest map[string]int
	assert.ErrorIs(t, repo.Get(ctx, "billing:students:2025-04", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.DeleteByPattern(ctx, "billing:*"))
	assert.NoError(t, repo.Close())
}
