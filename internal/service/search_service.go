package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Xushengqwer/go-common/core"

	"github.com/Xushengqwer/listing_search/internal/catalog"
	"github.com/Xushengqwer/listing_search/internal/models"
	"github.com/Xushengqwer/listing_search/internal/repositories"

	"go.uber.org/zap"
)

// SearchService 封装主搜索与搜索历史相关的业务逻辑。
// 它是 API 处理层和仓库层之间的中介，负责分类展开、降级策略
// 和历史记录的旁路写入。对调用方的契约：搜索类读操作永不抛错，
// 任何故障都收敛为空结果加一条诊断日志。
type SearchService struct {
	listingRepo   repositories.ListingRepository
	historyRepo   repositories.HistoryRepository
	catalogClient catalog.Client
	sub           *Substrate
	degraded      bool // 启动期索引不可用时置位，所有读操作直接返回空结果。
	logger        *core.ZapLogger
}

// NewSearchService 创建 SearchService 的一个新实例。
// 关键依赖缺失时快速失败，确保服务不会以不完整状态启动。
func NewSearchService(
	listingRepo repositories.ListingRepository,
	historyRepo repositories.HistoryRepository,
	catalogClient catalog.Client,
	sub *Substrate,
	degraded bool,
	logger *core.ZapLogger,
) *SearchService {
	if logger == nil {
		panic("创建 SearchService 失败：Logger 实例不能为 nil。")
	}
	if listingRepo == nil {
		logger.Fatal("创建 SearchService 失败：ListingRepository 实例不能为 nil。服务将无法执行搜索操作。")
	}
	if historyRepo == nil {
		logger.Fatal("创建 SearchService 失败：HistoryRepository 实例不能为 nil。服务将无法记录搜索历史。")
	}
	if catalogClient == nil {
		logger.Fatal("创建 SearchService 失败：目录服务客户端不能为 nil。服务将无法展开分类筛选。")
	}
	if sub == nil {
		logger.Fatal("创建 SearchService 失败：共享基础设施 (Substrate) 不能为 nil。")
	}

	logger.Info("SearchService 初始化成功", zap.Bool("degraded", degraded))
	return &SearchService{
		listingRepo:   listingRepo,
		historyRepo:   historyRepo,
		catalogClient: catalogClient,
		sub:           sub,
		degraded:      degraded,
		logger:        logger,
	}
}

// resolveCategoryFilter 把请求里的分类 ID 展开为过滤集合。
// 三种出口与约定语义一一对应：
//   - 展开成功且非空：按展开后的集合过滤；
//   - 展开成功但为空（目录不认识该分类）：强制空结果，不是错误；
//   - 展开失败（目录服务故障）：收窄为按原始分类 ID 过滤，不让整个请求失败。
func (s *SearchService) resolveCategoryFilter(ctx context.Context, categoryID string) (ids []string, forceEmpty bool) {
	if categoryID == "" {
		return nil, false
	}

	expandCtx, cancel := context.WithTimeout(ctx, s.sub.Cfg.OutboundTimeout)
	defer cancel()

	expanded, err := s.catalogClient.ExpandCategory(expandCtx, categoryID)
	if err != nil {
		s.logger.Warn("分类展开失败，降级为按原始分类 ID 过滤",
			zap.String("category_id", categoryID),
			zap.Error(err),
		)
		return []string{categoryID}, false
	}
	if len(expanded) == 0 {
		s.logger.Info("分类展开结果为空，搜索将返回空结果",
			zap.String("category_id", categoryID),
		)
		return nil, true
	}
	return expanded, false
}

// Search 执行列表项搜索。identity 如有效，搜索事件会在旁路异步记入历史。
// 永不返回错误：索引故障时返回空结果（调用方拿到的总是可渲染的响应）。
func (s *SearchService) Search(ctx context.Context, identity models.Identity, req models.SearchRequest) *models.SearchResult {
	logFields := []zap.Field{
		zap.String("搜索关键词", req.Query),
		zap.Int("每页数量", req.Size),
		zap.String("排序方式", req.SortBy),
	}
	if req.CategoryID != "" {
		logFields = append(logFields, zap.String("筛选_分类ID", req.CategoryID))
	}
	if req.LocationID != "" {
		logFields = append(logFields, zap.String("筛选_地区ID", req.LocationID))
	}
	s.logger.Info("正在处理列表项搜索请求", logFields...)

	if s.degraded {
		s.logger.Warn("服务处于降级模式，搜索直接返回空结果")
		return models.EmptySearchResult()
	}

	categoryIDs, forceEmpty := s.resolveCategoryFilter(ctx, req.CategoryID)

	query := repositories.ListingQuery{
		Query:              req.Query,
		CategoryIDs:        categoryIDs,
		ForceEmptyCategory: forceEmpty,
		LocationID:         req.LocationID,
		MinPrice:           req.MinPrice,
		MaxPrice:           req.MaxPrice,
		SortBy:             req.SortBy,
		SearchAfter:        req.SearchAfter,
		Size:               req.Size,
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.sub.Cfg.OutboundTimeout)
	defer cancel()

	result, err := s.listingRepo.SearchListings(searchCtx, query)
	if err != nil {
		// 降级为空结果而不是向上抛错：搜索故障不应打断用户侧的页面渲染。
		s.logger.Error("调用 ListingRepository 执行搜索时发生错误，降级为空结果",
			zap.Error(err),
			zap.String("搜索关键词_OnError", req.Query),
		)
		return models.EmptySearchResult()
	}

	s.logger.Info("列表项搜索成功完成",
		zap.Int64("总命中数", result.Total),
		zap.Int("返回结果数", len(result.Hits)),
		zap.Int64("查询耗时_ms", result.Took),
	)

	// 旁路记录搜索历史：不阻塞响应，失败只记日志。
	if identity.Valid() {
		go func(id models.Identity, query, categoryID, locationID string, resultCount int64) {
			recordCtx, recordCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer recordCancel()
			if err := s.historyRepo.Record(recordCtx, id, query, categoryID, locationID, resultCount); err != nil {
				s.logger.Warn("旁路记录搜索历史失败（不影响搜索结果）",
					zap.String("identity_key", id.Key()),
					zap.Error(err),
				)
			}
		}(identity, req.Query, req.CategoryID, req.LocationID, result.Total)
	}

	return result
}

// RecordSearch 显式记录一次搜索事件（由 API 层在客户端主动上报时调用）。
func (s *SearchService) RecordSearch(ctx context.Context, identity models.Identity, req models.RecordSearchRequest) error {
	if !identity.Valid() {
		return fmt.Errorf("记录搜索事件需要恰好一个有效身份（用户 ID 或会话 ID）")
	}
	if strings.TrimSpace(req.Query) == "" && req.CategoryID == "" && req.LocationID == "" {
		s.logger.Debug("搜索事件内容为空，跳过记录", zap.String("identity_key", identity.Key()))
		return nil
	}

	err := s.historyRepo.Record(ctx, identity, req.Query, req.CategoryID, req.LocationID, req.ResultCount)
	if err != nil {
		s.logger.Error("记录搜索事件失败",
			zap.String("identity_key", identity.Key()),
			zap.String("query", req.Query),
			zap.Error(err),
		)
		return fmt.Errorf("记录搜索事件失败: %w", err)
	}
	return nil
}

// UpdateEngagement 把点击/停留/转化信号合并进最近的匹配历史记录。
func (s *SearchService) UpdateEngagement(ctx context.Context, identity models.Identity, req models.EngagementRequest) error {
	if !identity.Valid() {
		return fmt.Errorf("回报参与度需要恰好一个有效身份（用户 ID 或会话 ID）")
	}

	upd := repositories.EngagementUpdate{
		Query:          req.Query,
		CategoryID:     req.CategoryID,
		LocationID:     req.LocationID,
		ClickedResults: req.ClickedResults,
		Converted:      req.Converted,
	}
	if req.DwellTime > 0 {
		dwell := req.DwellTime
		upd.DwellTime = &dwell
	}

	if err := s.historyRepo.UpdateEngagement(ctx, identity, upd); err != nil {
		s.logger.Error("合并参与度信号失败",
			zap.String("identity_key", identity.Key()),
			zap.Error(err),
		)
		return fmt.Errorf("合并参与度信号失败: %w", err)
	}
	return nil
}

// History 返回该身份最近的搜索记录（带短 TTL 缓存）。
// 历史是建议性数据而非权威数据，缓存带来的延迟窗口可以接受。
func (s *SearchService) History(ctx context.Context, identity models.Identity, limit int) ([]models.SearchHistoryDocument, error) {
	if !identity.Valid() {
		return nil, fmt.Errorf("查询搜索历史需要恰好一个有效身份（用户 ID 或会话 ID）")
	}
	if limit <= 0 {
		limit = 20
	}

	cacheKey := fmt.Sprintf("history:%s:%d", identity.Key(), limit)
	if cached, ok := s.sub.Cache.Get(cacheKey); ok {
		if records, ok := cached.([]models.SearchHistoryDocument); ok {
			s.logger.Debug("搜索历史命中缓存", zap.String("cache_key", cacheKey))
			return records, nil
		}
	}

	historyCtx, cancel := context.WithTimeout(ctx, s.sub.Cfg.OutboundTimeout)
	defer cancel()

	records, err := s.historyRepo.History(historyCtx, identity, limit)
	if err != nil {
		s.logger.Error("检索搜索历史失败，降级为空列表",
			zap.String("identity_key", identity.Key()),
			zap.Error(err),
		)
		return []models.SearchHistoryDocument{}, nil
	}

	s.sub.Cache.Set(cacheKey, records, s.sub.Cfg.HistoryCacheTTL)
	return records, nil
}

// MergeSession 在用户登录时把匿名会话的历史并入其档案。
func (s *SearchService) MergeSession(ctx context.Context, sessionID, userID string) (int64, error) {
	if sessionID == "" || userID == "" {
		return 0, fmt.Errorf("会话合并需要同时提供会话 ID 和用户 ID")
	}

	merged, err := s.historyRepo.MergeSession(ctx, sessionID, userID)
	if err != nil {
		s.logger.Error("会话历史合并失败",
			zap.String("session_id", sessionID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return 0, fmt.Errorf("会话历史合并失败: %w", err)
	}

	s.logger.Info("会话历史合并完成",
		zap.String("session_id", sessionID),
		zap.String("user_id", userID),
		zap.Int64("merged_records", merged),
	)
	return merged, nil
}
