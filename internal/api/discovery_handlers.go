package api

import (
	"net/http"

	"github.com/Xushengqwer/gateway/pkg/response"
	"github.com/Xushengqwer/go-common/core"
	"github.com/Xushengqwer/listing_search/internal/models"
	"github.com/Xushengqwer/listing_search/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DiscoveryHandler 封装发现类接口：热门、趋势、个性化推荐与相似商品.
type DiscoveryHandler struct {
	discoveryService *service.DiscoveryService
	logger           *core.ZapLogger
}

// NewDiscoveryHandler 创建 DiscoveryHandler 实例.
func NewDiscoveryHandler(discoverySvc *service.DiscoveryService, logger *core.ZapLogger) *DiscoveryHandler {
	if logger == nil {
		panic("NewDiscoveryHandler: logger cannot be nil")
	}
	if discoverySvc == nil {
		logger.Fatal("NewDiscoveryHandler: DiscoveryService 不能为 nil")
	}

	return &DiscoveryHandler{
		discoveryService: discoverySvc,
		logger:           logger,
	}
}

// Popular 处理热门商品请求
// @Summary      获取热门商品
// @Description  按浏览量降序返回在售商品。
// @Tags         Discovery
// @Produce      json
// @Param        size  query     int  false  "返回数量" default(20) minimum(1) maximum(100)
// @Success      200   {object}  models.SwaggerSearchResultResponse "热门商品列表。"
// @Router       /api/v1/popular [get]
func (h *DiscoveryHandler) Popular(c *gin.Context) {
	size := boundedIntQuery(c, "size", 20, 100)
	results := h.discoveryService.Popular(c.Request.Context(), size)
	response.RespondSuccess(c, results, "热门商品获取成功")
}

// Trending 处理趋势商品请求
// @Summary      获取趋势商品
// @Description  返回结合浏览量与新近度加权的趋势商品，新发布商品获得时间衰减加成。
// @Tags         Discovery
// @Produce      json
// @Param        size  query     int  false  "返回数量" default(20) minimum(1) maximum(100)
// @Success      200   {object}  models.SwaggerSearchResultResponse "趋势商品列表。"
// @Router       /api/v1/trending [get]
func (h *DiscoveryHandler) Trending(c *gin.Context) {
	size := boundedIntQuery(c, "size", 20, 100)
	results := h.discoveryService.Trending(c.Request.Context(), size)
	response.RespondSuccess(c, results, "趋势商品获取成功")
}

// TrendingTerms 处理趋势搜索词请求
// @Summary      获取趋势搜索词
// @Description  聚合近期搜索历史，返回出现次数最多的查询词（至少出现两次）。
// @Tags         Discovery
// @Produce      json
// @Param        limit  query     int  false  "返回数量" default(10) minimum(1) maximum(50)
// @Success      200    {object}  models.SwaggerTrendingTermsResponse "趋势搜索词列表。"
// @Router       /api/v1/trending-terms [get]
func (h *DiscoveryHandler) TrendingTerms(c *gin.Context) {
	limit := boundedIntQuery(c, "limit", 10, 50)
	terms := h.discoveryService.TrendingTerms(c.Request.Context(), limit)
	if terms == nil {
		terms = make([]models.TrendingTerm, 0)
	}
	response.RespondSuccess(c, terms, "趋势搜索词获取成功")
}

// Recommendations 处理个性化推荐请求
// @Summary      获取个性化推荐
// @Description  基于用户近 30 天搜索历史中的偏好分类推荐商品；历史不足时回落到热门商品。
// @Tags         Discovery
// @Produce      json
// @Param        userId  path      string  true   "用户 ID"
// @Param        size    query     int     false  "返回数量" default(20) minimum(1) maximum(100)
// @Success      200     {object}  models.SwaggerRecommendationResponse "推荐结果及其依据。"
// @Failure      400     {object}  models.SwaggerErrorResponse "缺少用户 ID。"
// @Router       /api/v1/recommendations/{userId} [get]
func (h *DiscoveryHandler) Recommendations(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "缺少用户 ID")
		return
	}
	size := boundedIntQuery(c, "size", 20, 100)

	results := h.discoveryService.Recommendations(c.Request.Context(), userID, size)
	h.logger.Debug("个性化推荐完成",
		zap.String("user_id", userID),
		zap.Bool("based_on_history", results.BasedOnHistory),
		zap.Int("count", len(results.Hits)),
	)
	response.RespondSuccess(c, results, "推荐获取成功")
}

// Related 处理相似商品请求
// @Summary      获取相似商品
// @Description  返回与指定商品相似的在售商品：同分类、同地区、相近价格及文本相似度加权。
// @Tags         Discovery
// @Produce      json
// @Param        id    path      string  true   "商品 ID"
// @Param        size  query     int     false  "返回数量" default(10) minimum(1) maximum(50)
// @Success      200   {object}  models.SwaggerSearchResultResponse "相似商品列表。源商品不存在时为空数组。"
// @Failure      400   {object}  models.SwaggerErrorResponse "缺少商品 ID。"
// @Router       /api/v1/listings/{id}/related [get]
func (h *DiscoveryHandler) Related(c *gin.Context) {
	listingID := c.Param("id")
	if listingID == "" {
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "缺少商品 ID")
		return
	}
	size := boundedIntQuery(c, "size", 10, 50)

	results := h.discoveryService.Related(c.Request.Context(), listingID, size)
	response.RespondSuccess(c, results, "相似商品获取成功")
}

// RegisterRoutes 将发现类路由注册到提供的 Gin 路由组上。
func (h *DiscoveryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/popular", h.Popular)
	rg.GET("/trending", h.Trending)
	rg.GET("/trending-terms", h.TrendingTerms)
	rg.GET("/recommendations/:userId", h.Recommendations)
	rg.GET("/listings/:id/related", h.Related)
	h.logger.Info("DiscoveryHandler 的所有路由已注册完成。")
}
