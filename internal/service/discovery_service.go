package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Xushengqwer/go-common/core"

	"github.com/Xushengqwer/listing_search/internal/models"
	"github.com/Xushengqwer/listing_search/internal/repositories"

	"go.uber.org/zap"
)

// DiscoveryService 聚合非查询驱动的发现类读路径：热门、趋势、趋势词、
// 个性化推荐和相关列表项。全部操作遵守降级策略：任何下游故障
// 都收敛为空结果，永不向调用方抛错。
type DiscoveryService struct {
	listingRepo repositories.ListingRepository
	historyRepo repositories.HistoryRepository
	sub         *Substrate
	degraded    bool
	logger      *core.ZapLogger
}

// NewDiscoveryService 创建 DiscoveryService 的一个新实例。
func NewDiscoveryService(
	listingRepo repositories.ListingRepository,
	historyRepo repositories.HistoryRepository,
	sub *Substrate,
	degraded bool,
	logger *core.ZapLogger,
) *DiscoveryService {
	if logger == nil {
		panic("创建 DiscoveryService 失败：Logger 实例不能为 nil。")
	}
	if listingRepo == nil {
		logger.Fatal("创建 DiscoveryService 失败：ListingRepository 实例不能为 nil。")
	}
	if historyRepo == nil {
		logger.Fatal("创建 DiscoveryService 失败：HistoryRepository 实例不能为 nil。")
	}
	if sub == nil {
		logger.Fatal("创建 DiscoveryService 失败：共享基础设施 (Substrate) 不能为 nil。")
	}

	logger.Info("DiscoveryService 初始化成功")
	return &DiscoveryService{
		listingRepo: listingRepo,
		historyRepo: historyRepo,
		sub:         sub,
		degraded:    degraded,
		logger:      logger,
	}
}

// cachedRankedSet 是热门与趋势共用的读路径：
// 缓存命中直接返回；空目录时短路为空结果并同样缓存（避免反复轰击空目录）；
// 否则执行给定查询并缓存。
func (s *DiscoveryService) cachedRankedSet(
	ctx context.Context,
	cacheKey string,
	ttl time.Duration,
	fetch func(context.Context) (*models.SearchResult, error),
) *models.SearchResult {
	if s.degraded {
		return models.EmptySearchResult()
	}
	if cached, ok := s.sub.Cache.Get(cacheKey); ok {
		if result, ok := cached.(*models.SearchResult); ok {
			s.logger.Debug("发现类查询命中缓存", zap.String("cache_key", cacheKey))
			return result
		}
	}

	countCtx, cancel := context.WithTimeout(ctx, s.sub.Cfg.OutboundTimeout)
	activeCount, countErr := s.listingRepo.CountActive(countCtx)
	cancel()
	if countErr == nil && activeCount == 0 {
		// 空目录：不发排序查询，空结果同样按 TTL 缓存。
		empty := models.EmptySearchResult()
		s.sub.Cache.Set(cacheKey, empty, ttl)
		s.logger.Debug("目录为空，发现类查询短路为空结果", zap.String("cache_key", cacheKey))
		return empty
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.sub.Cfg.OutboundTimeout)
	defer cancel()
	result, err := fetch(fetchCtx)
	if err != nil {
		s.logger.Error("发现类查询失败，降级为空结果",
			zap.String("cache_key", cacheKey),
			zap.Error(err),
		)
		return models.EmptySearchResult()
	}

	s.sub.Cache.Set(cacheKey, result, ttl)
	return result
}

// Popular 返回按浏览量排序的可见列表项。
func (s *DiscoveryService) Popular(ctx context.Context, size int) *models.SearchResult {
	if size <= 0 {
		size = 10
	}
	cacheKey := fmt.Sprintf("popular:%d", size)
	return s.cachedRankedSet(ctx, cacheKey, s.sub.Cfg.PopularCacheTTL, func(fetchCtx context.Context) (*models.SearchResult, error) {
		return s.listingRepo.Popular(fetchCtx, size)
	})
}

// Trending 返回按时间衰减打分排序的可见列表项。
func (s *DiscoveryService) Trending(ctx context.Context, size int) *models.SearchResult {
	if size <= 0 {
		size = 10
	}
	cacheKey := fmt.Sprintf("trending:%d", size)
	return s.cachedRankedSet(ctx, cacheKey, s.sub.Cfg.TrendingCacheTTL, func(fetchCtx context.Context) (*models.SearchResult, error) {
		return s.listingRepo.Trending(fetchCtx, size)
	})
}

// TrendingTerms 返回回看窗口内出现至少 2 次的查询词，按出现次数降序。
func (s *DiscoveryService) TrendingTerms(ctx context.Context, limit int) []models.TrendingTerm {
	if limit <= 0 {
		limit = 10
	}
	if s.degraded {
		return []models.TrendingTerm{}
	}

	cacheKey := fmt.Sprintf("trending-terms:%d", limit)
	if cached, ok := s.sub.Cache.Get(cacheKey); ok {
		if terms, ok := cached.([]models.TrendingTerm); ok {
			return terms
		}
	}

	termsCtx, cancel := context.WithTimeout(ctx, s.sub.Cfg.OutboundTimeout)
	defer cancel()

	terms, err := s.historyRepo.TrendingTerms(termsCtx, limit, s.sub.Cfg.TrendingLookback)
	if err != nil {
		s.logger.Error("趋势词聚合失败，降级为空列表", zap.Error(err))
		return []models.TrendingTerm{}
	}
	if terms == nil {
		terms = []models.TrendingTerm{}
	}

	s.sub.Cache.Set(cacheKey, terms, s.sub.Cfg.TrendingTermsCacheTTL)
	return terms
}

// Recommendations 基于用户最近历史的分类偏好给出个性化推荐。
// 三级递进：无历史 → 热门兜底；有历史但提炼不出分类偏好 → 无过滤最新优先；
// 有分类偏好 → 限定前三分类的最新列表项，并标注推荐依据。
func (s *DiscoveryService) Recommendations(ctx context.Context, userID string, size int) *models.RecommendationResult {
	if size <= 0 {
		size = 10
	}
	if s.degraded {
		return &models.RecommendationResult{SearchResult: *models.EmptySearchResult()}
	}

	identity := models.Identity{UserID: userID}
	historyCtx, cancel := context.WithTimeout(ctx, s.sub.Cfg.OutboundTimeout)
	records, err := s.historyRepo.History(historyCtx, identity, 100)
	cancel()
	if err != nil {
		s.logger.Warn("读取推荐历史失败，降级为热门兜底",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		records = nil
	}

	// 只采信回看窗口内的记录。
	cutoff := time.Now().UTC().Add(-s.sub.Cfg.RecommendationLookback)
	categoryCounts := map[string]int{}
	recentCount := 0
	for _, record := range records {
		if record.Timestamp.Before(cutoff) {
			continue
		}
		recentCount++
		if record.CategoryID != "" {
			categoryCounts[record.CategoryID]++
		}
	}

	if recentCount == 0 {
		s.logger.Debug("用户近期无搜索历史，推荐退化为热门列表", zap.String("user_id", userID))
		popular := s.Popular(ctx, size)
		return &models.RecommendationResult{SearchResult: *popular, BasedOnHistory: false}
	}

	topCategories := topNByCount(categoryCounts, 3)

	feedCtx, cancel := context.WithTimeout(ctx, s.sub.Cfg.OutboundTimeout)
	defer cancel()

	if len(topCategories) == 0 {
		// 有历史但没有分类信号：无过滤、最新优先。
		result, err := s.listingRepo.CategoryFeed(feedCtx, nil, size)
		if err != nil {
			s.logger.Error("无过滤推荐查询失败，降级为空结果", zap.String("user_id", userID), zap.Error(err))
			return &models.RecommendationResult{SearchResult: *models.EmptySearchResult()}
		}
		return &models.RecommendationResult{SearchResult: *result, BasedOnHistory: false}
	}

	result, err := s.listingRepo.CategoryFeed(feedCtx, topCategories, size)
	if err != nil {
		s.logger.Error("个性化推荐查询失败，降级为空结果",
			zap.String("user_id", userID),
			zap.Strings("top_categories", topCategories),
			zap.Error(err),
		)
		return &models.RecommendationResult{SearchResult: *models.EmptySearchResult()}
	}

	s.logger.Info("个性化推荐完成",
		zap.String("user_id", userID),
		zap.Strings("top_categories", topCategories),
		zap.Int("returned_hits_count", len(result.Hits)),
	)
	return &models.RecommendationResult{
		SearchResult:   *result,
		TopCategories:  topCategories,
		BasedOnHistory: true,
	}
}

// Related 返回与目标列表项相似的可见列表项。
// 三级降级：主查询（分类/地区/价格带/文本相似的组合）失败时退到同分类查询，
// 再失败返回空结果——对调用方永远不是异常。
func (s *DiscoveryService) Related(ctx context.Context, listingID string, size int) *models.SearchResult {
	if size <= 0 {
		size = 10
	}
	if s.degraded {
		return models.EmptySearchResult()
	}

	getCtx, cancel := context.WithTimeout(ctx, s.sub.Cfg.OutboundTimeout)
	target, err := s.listingRepo.GetListing(getCtx, listingID)
	cancel()
	if err != nil {
		s.logger.Error("取回相关推荐目标失败，降级为空结果",
			zap.String("listing_id", listingID),
			zap.Error(err),
		)
		return models.EmptySearchResult()
	}
	if target == nil {
		s.logger.Debug("相关推荐目标不存在", zap.String("listing_id", listingID))
		return models.EmptySearchResult()
	}

	seed := repositories.RelatedSeed{
		ID:          target.ID,
		Title:       target.Title,
		Description: target.Description,
		CategoryID:  target.CategoryID,
		LocationID:  target.LocationID,
		Price:       target.Price,
	}

	primaryCtx, cancel := context.WithTimeout(ctx, s.sub.Cfg.OutboundTimeout)
	result, err := s.listingRepo.RelatedBySeed(primaryCtx, seed, size)
	cancel()
	if err == nil {
		return result
	}
	s.logger.Warn("相关推荐主查询失败，降级为同分类查询",
		zap.String("listing_id", listingID),
		zap.Error(err),
	)

	fallbackCtx, cancel := context.WithTimeout(ctx, s.sub.Cfg.OutboundTimeout)
	defer cancel()
	fallback, err := s.listingRepo.SameCategory(fallbackCtx, target.ID, target.CategoryID, size)
	if err != nil {
		s.logger.Error("同分类降级查询也失败，返回空结果",
			zap.String("listing_id", listingID),
			zap.Error(err),
		)
		return models.EmptySearchResult()
	}
	return fallback
}
