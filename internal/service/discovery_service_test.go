package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Xushengqwer/listing_search/internal/models"
	"github.com/Xushengqwer/listing_search/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDiscoveryService(t *testing.T, listingRepo *stubListingRepository, historyRepo *stubHistoryRepository, degraded bool) *DiscoveryService {
	t.Helper()
	return NewDiscoveryService(listingRepo, historyRepo, testSubstrate(), degraded, testLogger(t))
}

func rankedResult(ids ...string) *models.SearchResult {
	hits := make([]models.ListingHit, 0, len(ids))
	for _, id := range ids {
		hits = append(hits, models.ListingHit{EsListingDocument: models.EsListingDocument{ID: id}})
	}
	return &models.SearchResult{Hits: hits, Total: int64(len(ids))}
}

func TestPopularDegradedReturnsEmpty(t *testing.T) {
	popularCalled := false
	listingRepo := &stubListingRepository{
		popularFn: func(ctx context.Context, size int) (*models.SearchResult, error) {
			popularCalled = true
			return rankedResult("l1"), nil
		},
	}
	svc := newDiscoveryService(t, listingRepo, &stubHistoryRepository{}, true)

	got := svc.Popular(context.Background(), 10)
	assert.Empty(t, got.Hits)
	assert.False(t, popularCalled)
}

func TestPopularCachesAcrossCalls(t *testing.T) {
	popularCalls := 0
	listingRepo := &stubListingRepository{
		popularFn: func(ctx context.Context, size int) (*models.SearchResult, error) {
			popularCalls++
			return rankedResult("l1", "l2"), nil
		},
	}
	svc := newDiscoveryService(t, listingRepo, &stubHistoryRepository{}, false)

	first := svc.Popular(context.Background(), 10)
	second := svc.Popular(context.Background(), 10)

	require.Len(t, first.Hits, 2)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, popularCalls)
}

func TestPopularEmptyCatalogShortCircuits(t *testing.T) {
	popularCalled := false
	countCalls := 0
	listingRepo := &stubListingRepository{
		countFn: func(ctx context.Context) (int64, error) {
			countCalls++
			return 0, nil
		},
		popularFn: func(ctx context.Context, size int) (*models.SearchResult, error) {
			popularCalled = true
			return rankedResult("l1"), nil
		},
	}
	svc := newDiscoveryService(t, listingRepo, &stubHistoryRepository{}, false)

	got := svc.Popular(context.Background(), 10)
	assert.Empty(t, got.Hits)
	assert.False(t, popularCalled)

	// 空结果同样被缓存，后续调用不再重复探测目录。
	svc.Popular(context.Background(), 10)
	assert.Equal(t, 1, countCalls)
}

func TestTrendingRepoErrorDegradesToEmpty(t *testing.T) {
	listingRepo := &stubListingRepository{
		trendingFn: func(ctx context.Context, size int) (*models.SearchResult, error) {
			return nil, errors.New("es 不可用")
		},
	}
	svc := newDiscoveryService(t, listingRepo, &stubHistoryRepository{}, false)

	got := svc.Trending(context.Background(), 10)
	require.NotNil(t, got)
	assert.Empty(t, got.Hits)
}

func TestTrendingTermsCachesAcrossCalls(t *testing.T) {
	termsCalls := 0
	historyRepo := &stubHistoryRepository{
		trendingFn: func(ctx context.Context, limit int, lookback time.Duration) ([]models.TrendingTerm, error) {
			termsCalls++
			return []models.TrendingTerm{{Text: "bike", Count: 4}}, nil
		},
	}
	svc := newDiscoveryService(t, &stubListingRepository{}, historyRepo, false)

	first := svc.TrendingTerms(context.Background(), 10)
	second := svc.TrendingTerms(context.Background(), 10)

	require.Len(t, first, 1)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, termsCalls)
}

func TestTrendingTermsErrorDegradesToEmpty(t *testing.T) {
	historyRepo := &stubHistoryRepository{
		trendingFn: func(ctx context.Context, limit int, lookback time.Duration) ([]models.TrendingTerm, error) {
			return nil, errors.New("聚合超时")
		},
	}
	svc := newDiscoveryService(t, &stubListingRepository{}, historyRepo, false)

	got := svc.TrendingTerms(context.Background(), 10)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRecommendationsNoHistoryFallsBackToPopular(t *testing.T) {
	feedCalled := false
	listingRepo := &stubListingRepository{
		popularFn: func(ctx context.Context, size int) (*models.SearchResult, error) {
			return rankedResult("pop-1"), nil
		},
		feedFn: func(ctx context.Context, categoryIDs []string, size int) (*models.SearchResult, error) {
			feedCalled = true
			return rankedResult("feed-1"), nil
		},
	}
	svc := newDiscoveryService(t, listingRepo, &stubHistoryRepository{}, false)

	got := svc.Recommendations(context.Background(), "u1", 10)
	require.Len(t, got.Hits, 1)
	assert.Equal(t, "pop-1", got.Hits[0].ID)
	assert.False(t, got.BasedOnHistory)
	assert.Empty(t, got.TopCategories)
	assert.False(t, feedCalled)
}

func TestRecommendationsHistoryErrorFallsBackToPopular(t *testing.T) {
	listingRepo := &stubListingRepository{
		popularFn: func(ctx context.Context, size int) (*models.SearchResult, error) {
			return rankedResult("pop-1"), nil
		},
	}
	historyRepo := &stubHistoryRepository{
		historyFn: func(ctx context.Context, identity models.Identity, limit int) ([]models.SearchHistoryDocument, error) {
			return nil, errors.New("历史索引不可用")
		},
	}
	svc := newDiscoveryService(t, listingRepo, historyRepo, false)

	got := svc.Recommendations(context.Background(), "u1", 10)
	require.Len(t, got.Hits, 1)
	assert.Equal(t, "pop-1", got.Hits[0].ID)
	assert.False(t, got.BasedOnHistory)
}

func TestRecommendationsHistoryWithoutCategoriesUsesUnfilteredFeed(t *testing.T) {
	var gotCategories []string
	feedCalled := false
	listingRepo := &stubListingRepository{
		feedFn: func(ctx context.Context, categoryIDs []string, size int) (*models.SearchResult, error) {
			feedCalled = true
			gotCategories = categoryIDs
			return rankedResult("feed-1"), nil
		},
	}
	historyRepo := &stubHistoryRepository{
		historyFn: func(ctx context.Context, identity models.Identity, limit int) ([]models.SearchHistoryDocument, error) {
			return []models.SearchHistoryDocument{
				{Query: "bike", Timestamp: time.Now().UTC()},
			}, nil
		},
	}
	svc := newDiscoveryService(t, listingRepo, historyRepo, false)

	got := svc.Recommendations(context.Background(), "u1", 10)
	require.True(t, feedCalled)
	assert.Nil(t, gotCategories)
	assert.False(t, got.BasedOnHistory)
	require.Len(t, got.Hits, 1)
	assert.Equal(t, "feed-1", got.Hits[0].ID)
}

func TestRecommendationsUsesTopCategories(t *testing.T) {
	var gotCategories []string
	listingRepo := &stubListingRepository{
		feedFn: func(ctx context.Context, categoryIDs []string, size int) (*models.SearchResult, error) {
			gotCategories = categoryIDs
			return rankedResult("feed-1", "feed-2"), nil
		},
	}
	now := time.Now().UTC()
	historyRepo := &stubHistoryRepository{
		historyFn: func(ctx context.Context, identity models.Identity, limit int) ([]models.SearchHistoryDocument, error) {
			return []models.SearchHistoryDocument{
				{Query: "bike", CategoryID: "cat-bikes", Timestamp: now},
				{Query: "bike light", CategoryID: "cat-bikes", Timestamp: now},
				{Query: "desk", CategoryID: "cat-furniture", Timestamp: now},
				// 超出回看窗口的记录不参与偏好统计。
				{Query: "old phone", CategoryID: "cat-phones", Timestamp: now.AddDate(-1, 0, 0)},
			}, nil
		},
	}
	svc := newDiscoveryService(t, listingRepo, historyRepo, false)

	got := svc.Recommendations(context.Background(), "u1", 10)
	assert.True(t, got.BasedOnHistory)
	assert.Equal(t, []string{"cat-bikes", "cat-furniture"}, got.TopCategories)
	assert.Equal(t, []string{"cat-bikes", "cat-furniture"}, gotCategories)
	assert.Len(t, got.Hits, 2)
}

func TestRelatedMissingTargetReturnsEmpty(t *testing.T) {
	relatedCalled := false
	listingRepo := &stubListingRepository{
		getFn: func(ctx context.Context, listingID string) (*models.EsListingDocument, error) {
			return nil, nil
		},
		relatedFn: func(ctx context.Context, seed repositories.RelatedSeed, size int) (*models.SearchResult, error) {
			relatedCalled = true
			return rankedResult("l1"), nil
		},
	}
	svc := newDiscoveryService(t, listingRepo, &stubHistoryRepository{}, false)

	got := svc.Related(context.Background(), "missing", 10)
	assert.Empty(t, got.Hits)
	assert.False(t, relatedCalled)
}

func TestRelatedPrimaryFailureFallsBackToSameCategory(t *testing.T) {
	var gotExclude, gotCategory string
	listingRepo := &stubListingRepository{
		getFn: func(ctx context.Context, listingID string) (*models.EsListingDocument, error) {
			return &models.EsListingDocument{ID: listingID, Title: "City Bike", CategoryID: "cat-bikes", Price: 900}, nil
		},
		relatedFn: func(ctx context.Context, seed repositories.RelatedSeed, size int) (*models.SearchResult, error) {
			return nil, errors.New("主查询超时")
		},
		sameCatFn: func(ctx context.Context, excludeID, categoryID string, size int) (*models.SearchResult, error) {
			gotExclude, gotCategory = excludeID, categoryID
			return rankedResult("l2"), nil
		},
	}
	svc := newDiscoveryService(t, listingRepo, &stubHistoryRepository{}, false)

	got := svc.Related(context.Background(), "l1", 10)
	require.Len(t, got.Hits, 1)
	assert.Equal(t, "l2", got.Hits[0].ID)
	assert.Equal(t, "l1", gotExclude)
	assert.Equal(t, "cat-bikes", gotCategory)
}

func TestRelatedBothTiersFailReturnsEmpty(t *testing.T) {
	listingRepo := &stubListingRepository{
		getFn: func(ctx context.Context, listingID string) (*models.EsListingDocument, error) {
			return &models.EsListingDocument{ID: listingID, CategoryID: "cat-bikes"}, nil
		},
		relatedFn: func(ctx context.Context, seed repositories.RelatedSeed, size int) (*models.SearchResult, error) {
			return nil, errors.New("主查询超时")
		},
		sameCatFn: func(ctx context.Context, excludeID, categoryID string, size int) (*models.SearchResult, error) {
			return nil, errors.New("降级查询也超时")
		},
	}
	svc := newDiscoveryService(t, listingRepo, &stubHistoryRepository{}, false)

	got := svc.Related(context.Background(), "l1", 10)
	require.NotNil(t, got)
	assert.Empty(t, got.Hits)
}

func TestRelatedSeedCarriesTargetFields(t *testing.T) {
	var gotSeed repositories.RelatedSeed
	listingRepo := &stubListingRepository{
		getFn: func(ctx context.Context, listingID string) (*models.EsListingDocument, error) {
			return &models.EsListingDocument{
				ID:          listingID,
				Title:       "City Bike",
				Description: "轻便通勤自行车",
				CategoryID:  "cat-bikes",
				LocationID:  "loc-sh",
				Price:       900,
			}, nil
		},
		relatedFn: func(ctx context.Context, seed repositories.RelatedSeed, size int) (*models.SearchResult, error) {
			gotSeed = seed
			return rankedResult("l2"), nil
		},
	}
	svc := newDiscoveryService(t, listingRepo, &stubHistoryRepository{}, false)

	svc.Related(context.Background(), "l1", 10)
	assert.Equal(t, repositories.RelatedSeed{
		ID:          "l1",
		Title:       "City Bike",
		Description: "轻便通勤自行车",
		CategoryID:  "cat-bikes",
		LocationID:  "loc-sh",
		Price:       900,
	}, gotSeed)
}
