package service

import (
	"context"
	"testing"
	"time"

	commonconfig "github.com/Xushengqwer/go-common/config"
	"github.com/Xushengqwer/go-common/core"
	"github.com/Xushengqwer/listing_search/config"
	"github.com/Xushengqwer/listing_search/internal/models"
	"github.com/Xushengqwer/listing_search/internal/repositories"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *core.ZapLogger {
	t.Helper()
	logger, err := core.NewZapLogger(commonconfig.ZapConfig{})
	require.NoError(t, err)
	return logger
}

func testSubstrate() *Substrate {
	return NewSubstrate(config.EngineConfig{})
}

// stubListingRepository 以函数字段实现 ListingRepository，未设置的方法返回零值。
type stubListingRepository struct {
	indexFn       func(ctx context.Context, doc models.EsListingDocument) error
	deleteFn      func(ctx context.Context, listingID string) error
	getFn         func(ctx context.Context, listingID string) (*models.EsListingDocument, error)
	bulkFn        func(ctx context.Context, docs []models.EsListingDocument) (int, bool, error)
	countFn       func(ctx context.Context) (int64, error)
	searchFn      func(ctx context.Context, q repositories.ListingQuery) (*models.SearchResult, error)
	completionsFn func(ctx context.Context, prefix string, size int) ([]repositories.CompletionSuggestion, error)
	fuzzyFn       func(ctx context.Context, prefix string, size int) ([]repositories.FuzzyCandidate, error)
	popularFn     func(ctx context.Context, size int) (*models.SearchResult, error)
	trendingFn    func(ctx context.Context, size int) (*models.SearchResult, error)
	relatedFn     func(ctx context.Context, seed repositories.RelatedSeed, size int) (*models.SearchResult, error)
	sameCatFn     func(ctx context.Context, excludeID, categoryID string, size int) (*models.SearchResult, error)
	feedFn        func(ctx context.Context, categoryIDs []string, size int) (*models.SearchResult, error)
}

func (s *stubListingRepository) IndexListing(ctx context.Context, doc models.EsListingDocument) error {
	if s.indexFn != nil {
		return s.indexFn(ctx, doc)
	}
	return nil
}

func (s *stubListingRepository) DeleteListing(ctx context.Context, listingID string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, listingID)
	}
	return nil
}

func (s *stubListingRepository) GetListing(ctx context.Context, listingID string) (*models.EsListingDocument, error) {
	if s.getFn != nil {
		return s.getFn(ctx, listingID)
	}
	return nil, nil
}

func (s *stubListingRepository) BulkIndexListings(ctx context.Context, docs []models.EsListingDocument) (int, bool, error) {
	if s.bulkFn != nil {
		return s.bulkFn(ctx, docs)
	}
	return len(docs), false, nil
}

func (s *stubListingRepository) CountActive(ctx context.Context) (int64, error) {
	if s.countFn != nil {
		return s.countFn(ctx)
	}
	return 1, nil
}

func (s *stubListingRepository) SearchListings(ctx context.Context, q repositories.ListingQuery) (*models.SearchResult, error) {
	if s.searchFn != nil {
		return s.searchFn(ctx, q)
	}
	return models.EmptySearchResult(), nil
}

func (s *stubListingRepository) SuggestCompletions(ctx context.Context, prefix string, size int) ([]repositories.CompletionSuggestion, error) {
	if s.completionsFn != nil {
		return s.completionsFn(ctx, prefix, size)
	}
	return nil, nil
}

func (s *stubListingRepository) FuzzyCandidates(ctx context.Context, prefix string, size int) ([]repositories.FuzzyCandidate, error) {
	if s.fuzzyFn != nil {
		return s.fuzzyFn(ctx, prefix, size)
	}
	return nil, nil
}

func (s *stubListingRepository) Popular(ctx context.Context, size int) (*models.SearchResult, error) {
	if s.popularFn != nil {
		return s.popularFn(ctx, size)
	}
	return models.EmptySearchResult(), nil
}

func (s *stubListingRepository) Trending(ctx context.Context, size int) (*models.SearchResult, error) {
	if s.trendingFn != nil {
		return s.trendingFn(ctx, size)
	}
	return models.EmptySearchResult(), nil
}

func (s *stubListingRepository) RelatedBySeed(ctx context.Context, seed repositories.RelatedSeed, size int) (*models.SearchResult, error) {
	if s.relatedFn != nil {
		return s.relatedFn(ctx, seed, size)
	}
	return models.EmptySearchResult(), nil
}

func (s *stubListingRepository) SameCategory(ctx context.Context, excludeID, categoryID string, size int) (*models.SearchResult, error) {
	if s.sameCatFn != nil {
		return s.sameCatFn(ctx, excludeID, categoryID, size)
	}
	return models.EmptySearchResult(), nil
}

func (s *stubListingRepository) CategoryFeed(ctx context.Context, categoryIDs []string, size int) (*models.SearchResult, error) {
	if s.feedFn != nil {
		return s.feedFn(ctx, categoryIDs, size)
	}
	return models.EmptySearchResult(), nil
}

// stubHistoryRepository 以函数字段实现 HistoryRepository。
type stubHistoryRepository struct {
	recordFn     func(ctx context.Context, identity models.Identity, query, categoryID, locationID string, resultCount int64) error
	engagementFn func(ctx context.Context, identity models.Identity, upd repositories.EngagementUpdate) error
	historyFn    func(ctx context.Context, identity models.Identity, limit int) ([]models.SearchHistoryDocument, error)
	mergeFn      func(ctx context.Context, sessionID, userID string) (int64, error)
	trendingFn   func(ctx context.Context, limit int, lookback time.Duration) ([]models.TrendingTerm, error)
}

func (s *stubHistoryRepository) Record(ctx context.Context, identity models.Identity, query, categoryID, locationID string, resultCount int64) error {
	if s.recordFn != nil {
		return s.recordFn(ctx, identity, query, categoryID, locationID, resultCount)
	}
	return nil
}

func (s *stubHistoryRepository) UpdateEngagement(ctx context.Context, identity models.Identity, upd repositories.EngagementUpdate) error {
	if s.engagementFn != nil {
		return s.engagementFn(ctx, identity, upd)
	}
	return nil
}

func (s *stubHistoryRepository) History(ctx context.Context, identity models.Identity, limit int) ([]models.SearchHistoryDocument, error) {
	if s.historyFn != nil {
		return s.historyFn(ctx, identity, limit)
	}
	return nil, nil
}

func (s *stubHistoryRepository) MergeSession(ctx context.Context, sessionID, userID string) (int64, error) {
	if s.mergeFn != nil {
		return s.mergeFn(ctx, sessionID, userID)
	}
	return 0, nil
}

func (s *stubHistoryRepository) TrendingTerms(ctx context.Context, limit int, lookback time.Duration) ([]models.TrendingTerm, error) {
	if s.trendingFn != nil {
		return s.trendingFn(ctx, limit, lookback)
	}
	return nil, nil
}

// stubCatalogClient 以函数字段实现 catalog.Client。
type stubCatalogClient struct {
	expandFn func(ctx context.Context, categoryID string) ([]string, error)
	fetchFn  func(ctx context.Context) ([]models.ListingPayload, error)
}

func (s *stubCatalogClient) ExpandCategory(ctx context.Context, categoryID string) ([]string, error) {
	if s.expandFn != nil {
		return s.expandFn(ctx, categoryID)
	}
	return []string{categoryID}, nil
}

func (s *stubCatalogClient) FetchAllListings(ctx context.Context) ([]models.ListingPayload, error) {
	if s.fetchFn != nil {
		return s.fetchFn(ctx)
	}
	return nil, nil
}
