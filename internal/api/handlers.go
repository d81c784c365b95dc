package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/Xushengqwer/gateway/pkg/response"
	"github.com/Xushengqwer/go-common/core"
	"github.com/Xushengqwer/listing_search/internal/models"
	"github.com/Xushengqwer/listing_search/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SearchHandler 封装搜索、自动补全与搜索历史相关的 API 请求处理逻辑.
type SearchHandler struct {
	searchService  *service.SearchService
	suggestService *service.SuggestService
	logger         *core.ZapLogger
}

// NewSearchHandler 创建 SearchHandler 实例.
func NewSearchHandler(
	searchSvc *service.SearchService,
	suggestSvc *service.SuggestService,
	logger *core.ZapLogger,
) *SearchHandler {
	if logger == nil {
		panic("NewSearchHandler: logger cannot be nil")
	}
	if searchSvc == nil {
		logger.Fatal("NewSearchHandler: SearchService 不能为 nil")
	}
	if suggestSvc == nil {
		logger.Fatal("NewSearchHandler: SuggestService 不能为 nil")
	}

	return &SearchHandler{
		searchService:  searchSvc,
		suggestService: suggestSvc,
		logger:         logger,
	}
}

// SearchListings 处理商品搜索请求
// @Summary      搜索商品
// @Description  根据关键词、分类、地区、价格区间等条件搜索在售商品，支持游标式分页。
// @Tags         Search
// @Produce      json
// @Param        q            query     string  false  "搜索关键词（支持拼写容错）"
// @Param        category_id  query     string  false  "分类 ID（自动包含所有后代分类）"
// @Param        location_id  query     string  false  "地区 ID（精确匹配）"
// @Param        min_price    query     number  false  "价格下界（含）" minimum(0)
// @Param        max_price    query     number  false  "价格上界（含）" minimum(0)
// @Param        sort_by      query     string  false  "排序方式" default(newest) Enums(newest, price-low, price-high, popular)
// @Param        size         query     int     false  "每页数量" default(20) minimum(1) maximum(100)
// @Param        search_after query     string  false  "游标：上一页最后一条命中的 sort 值（JSON 数组）"
// @Success      200          {object}  models.SwaggerSearchResultResponse "搜索成功。结果集为空时 hits 为空数组。"
// @Failure      400          {object}  models.SwaggerErrorResponse "请求参数无效。"
// @Router       /api/v1/search [get]
func (h *SearchHandler) SearchListings(c *gin.Context) {
	var req models.SearchRequest

	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Warn("请求参数绑定或验证失败", zap.Error(err))
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "请求参数无效")
		return
	}

	// search_after 是 JSON 数组（上一页 hit 的 sort 值），无法用 form 标签绑定。
	if raw := c.Query("search_after"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.SearchAfter); err != nil {
			h.logger.Warn("search_after 游标解析失败", zap.String("raw", raw), zap.Error(err))
			response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "search_after 游标格式无效")
			return
		}
	}
	h.logger.Debug("绑定后的搜索请求", zap.Any("request", req))

	identity := identityFromRequest(c)
	results := h.searchService.Search(c.Request.Context(), identity, req)

	h.logger.Info("搜索完成",
		zap.String("query", req.Query),
		zap.Int("结果数量", len(results.Hits)),
		zap.Int64("total", results.Total),
	)
	response.RespondSuccess(c, results, "搜索成功")
}

// Suggest 处理自动补全建议请求
// @Summary      获取搜索建议
// @Description  根据输入前缀返回自动补全建议，融合补全词典、模糊匹配、个人历史与趋势词。
// @Tags         Search
// @Produce      json
// @Param        q  query     string  true  "输入前缀"
// @Success      200  {object}  models.SwaggerSuggestionsResponse "建议列表，最多 10 条，历史建议排在最前。"
// @Router       /api/v1/suggest [get]
func (h *SearchHandler) Suggest(c *gin.Context) {
	prefix := strings.TrimSpace(c.Query("q"))
	identity := identityFromRequest(c)

	suggestions := h.suggestService.Suggest(c.Request.Context(), prefix, identity)
	if suggestions == nil {
		suggestions = make([]models.Suggestion, 0)
	}

	h.logger.Debug("自动补全完成", zap.String("prefix", prefix), zap.Int("count", len(suggestions)))
	response.RespondSuccess(c, suggestions, "建议获取成功")
}

// RecordSearch 处理显式记录搜索事件的请求
// @Summary      记录搜索事件
// @Description  将一次搜索写入调用方的历史档案。同一标识在 5 分钟窗口内重复相同查询会合并计数。
// @Tags         History
// @Accept       json
// @Produce      json
// @Param        body  body      models.RecordSearchRequest  true  "搜索事件"
// @Success      200   {object}  models.SwaggerErrorResponse "记录成功。"
// @Failure      400   {object}  models.SwaggerErrorResponse "请求体无效或查询为空。"
// @Failure      500   {object}  models.SwaggerErrorResponse "写入搜索历史失败。"
// @Router       /api/v1/history [post]
func (h *SearchHandler) RecordSearch(c *gin.Context) {
	var req models.RecordSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("记录搜索请求体解析失败", zap.Error(err))
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "请求体无效")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "查询关键词不能为空")
		return
	}

	identity := identityFromRequest(c)
	if err := h.searchService.RecordSearch(c.Request.Context(), identity, req); err != nil {
		h.logger.Error("记录搜索事件失败", zap.String("query", req.Query), zap.Error(err))
		response.RespondError(c, http.StatusInternalServerError, response.ErrCodeServerInternal, "记录搜索事件失败")
		return
	}
	response.RespondSuccess(c, gin.H{"recorded": true}, "搜索事件已记录")
}

// UpdateEngagement 处理参与度信号回报
// @Summary      回报参与度信号
// @Description  将点击、停留时长、转化信号并入最近一条匹配的搜索历史记录（并集/取最大/逻辑或）。
// @Tags         History
// @Accept       json
// @Produce      json
// @Param        body  body      models.EngagementRequest  true  "参与度信号"
// @Success      200   {object}  models.SwaggerErrorResponse "信号已合并。"
// @Failure      400   {object}  models.SwaggerErrorResponse "请求体无效。"
// @Failure      500   {object}  models.SwaggerErrorResponse "合并参与度信号失败。"
// @Router       /api/v1/history/engagement [post]
func (h *SearchHandler) UpdateEngagement(c *gin.Context) {
	var req models.EngagementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("参与度请求体解析失败", zap.Error(err))
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "请求体无效")
		return
	}

	identity := identityFromRequest(c)
	if err := h.searchService.UpdateEngagement(c.Request.Context(), identity, req); err != nil {
		h.logger.Error("合并参与度信号失败", zap.String("query", req.Query), zap.Error(err))
		response.RespondError(c, http.StatusInternalServerError, response.ErrCodeServerInternal, "合并参与度信号失败")
		return
	}
	response.RespondSuccess(c, gin.H{"merged": true}, "参与度信号已合并")
}

// GetHistory 处理查询搜索历史的请求
// @Summary      获取搜索历史
// @Description  返回调用方（按用户或会话标识）最近的搜索历史，按时间倒序。
// @Tags         History
// @Produce      json
// @Param        limit  query     int  false  "返回条数" default(20) minimum(1) maximum(100)
// @Success      200    {object}  models.SwaggerErrorResponse "历史记录列表。"
// @Router       /api/v1/history [get]
func (h *SearchHandler) GetHistory(c *gin.Context) {
	limit := boundedIntQuery(c, "limit", 20, 100)
	identity := identityFromRequest(c)

	records, err := h.searchService.History(c.Request.Context(), identity, limit)
	if err != nil {
		h.logger.Error("查询搜索历史失败", zap.String("identity", identity.Key()), zap.Error(err))
		records = make([]models.SearchHistoryDocument, 0)
	}
	if records == nil {
		records = make([]models.SearchHistoryDocument, 0)
	}
	response.RespondSuccess(c, records, "搜索历史获取成功")
}

// MergeSession 处理登录时的会话历史合并
// @Summary      合并匿名会话历史
// @Description  用户登录后，将其匿名会话期间积累的搜索历史归属到用户档案。操作幂等。
// @Tags         History
// @Accept       json
// @Produce      json
// @Param        body  body      models.MergeSessionRequest  true  "会话与用户标识"
// @Success      200   {object}  models.SwaggerErrorResponse "合并完成，返回受影响的记录数。"
// @Failure      400   {object}  models.SwaggerErrorResponse "缺少会话或用户标识。"
// @Failure      500   {object}  models.SwaggerErrorResponse "合并会话历史失败。"
// @Router       /api/v1/history/merge [post]
func (h *SearchHandler) MergeSession(c *gin.Context) {
	var req models.MergeSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("会话合并请求体解析失败", zap.Error(err))
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "缺少会话或用户标识")
		return
	}

	merged, err := h.searchService.MergeSession(c.Request.Context(), req.SessionID, req.UserID)
	if err != nil {
		h.logger.Error("合并会话历史失败",
			zap.String("session_id", req.SessionID),
			zap.String("user_id", req.UserID),
			zap.Error(err),
		)
		response.RespondError(c, http.StatusInternalServerError, response.ErrCodeServerInternal, "合并会话历史失败")
		return
	}
	response.RespondSuccess(c, models.MergeSessionResult{Merged: merged}, "会话历史合并完成")
}

// RegisterRoutes 将搜索与历史相关的路由注册到提供的 Gin 路由组上。
func (h *SearchHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/search", h.SearchListings)
	rg.GET("/suggest", h.Suggest)
	rg.GET("/history", h.GetHistory)
	rg.POST("/history", h.RecordSearch)
	rg.POST("/history/engagement", h.UpdateEngagement)
	rg.POST("/history/merge", h.MergeSession)
	h.logger.Info("SearchHandler 的所有路由已注册完成。")
}

// boundedIntQuery 解析带默认值与上限的整型查询参数，非法值回落到默认值。
func boundedIntQuery(c *gin.Context, name string, def, max int) int {
	raw := c.DefaultQuery(name, strconv.Itoa(def))
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
