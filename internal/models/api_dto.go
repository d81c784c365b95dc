package models

// SearchRequest 定义搜索 API 请求的参数及验证规则.
type SearchRequest struct {
	Query      string   `form:"q"`                                                   // 搜索关键词，非必需。
	CategoryID string   `form:"category_id" binding:"omitempty"`                     // 可选，按分类筛选（将被扩展为自身加后代分类）。
	LocationID string   `form:"location_id" binding:"omitempty"`                     // 可选，按地区精确筛选。
	MinPrice   *float64 `form:"min_price" binding:"omitempty,gte=0"`                 // 可选，价格下界（含）。
	MaxPrice   *float64 `form:"max_price" binding:"omitempty,gte=0"`                 // 可选，价格上界（含）。
	SortBy     string   `form:"sort_by,default=newest" binding:"omitempty,oneof=newest price-low price-high popular"`
	Size       int      `form:"size,default=20" binding:"omitempty,min=1,max=100"` // 每页数量，默认 20，范围 1-100。

	// SearchAfter 是游标式分页参数：上一页最后一条命中的 sort 值。
	// 由 handler 从 search_after 查询参数（JSON 数组）解析填充。
	SearchAfter []interface{} `form:"-"`
}

// ListingHit 是一条搜索命中：文档本体加相关性评分与排序值。
// Sort 原样回传，调用方将其作为下一页请求的 search_after 游标。
type ListingHit struct {
	EsListingDocument
	Score float64       `json:"score,omitempty"`
	Sort  []interface{} `json:"sort,omitempty"`
}

// SearchResult 定义搜索 API 的响应数据结构.
type SearchResult struct {
	Hits  []ListingHit `json:"hits"`
	Total int64        `json:"total"`
	Took  int64        `json:"took_ms,omitempty"`
}

// EmptySearchResult 返回契约约定的“无结果”降级响应。
func EmptySearchResult() *SearchResult {
	return &SearchResult{Hits: []ListingHit{}, Total: 0}
}

// SuggestionType 区分建议项的来源。
type SuggestionType string

const (
	SuggestionTypeAutocomplete SuggestionType = "autocomplete"
	SuggestionTypeHistory      SuggestionType = "history"
	SuggestionTypeTrending     SuggestionType = "trending"
)

// Suggestion 是自动补全接口返回的一条建议。
type Suggestion struct {
	Text  string         `json:"text"`
	Score float64        `json:"score"`
	Type  SuggestionType `json:"type"`
}

// RecommendationResult 是个性化推荐的响应：搜索结果加推荐依据。
type RecommendationResult struct {
	SearchResult
	TopCategories  []string `json:"top_categories,omitempty"` // 命中的个人偏好分类。
	BasedOnHistory bool     `json:"based_on_history"`         // 是否基于搜索历史（否则为热门兜底）。
}

// RecordSearchRequest 是记录搜索事件的请求体。
type RecordSearchRequest struct {
	Query       string `json:"query"`
	CategoryID  string `json:"category_id,omitempty"`
	LocationID  string `json:"location_id,omitempty"`
	ResultCount int64  `json:"result_count"`
}

// EngagementRequest 是回报用户参与度（点击、停留、转化）的请求体。
// 匹配规则与记录搜索相同：同一标识、同一规范化查询、5 分钟窗口内的最近一条。
type EngagementRequest struct {
	Query          string   `json:"query,omitempty"`
	CategoryID     string   `json:"category_id,omitempty"`
	LocationID     string   `json:"location_id,omitempty"`
	ClickedResults []string `json:"clicked_results,omitempty"` // 并集合并。
	DwellTime      int64    `json:"dwell_time,omitempty"`      // 取最大值合并。
	Converted      *bool    `json:"converted,omitempty"`       // OR 合并，置真后不回退。
}

// MergeSessionRequest 是登录时将匿名会话历史并入用户档案的请求体。
type MergeSessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	UserID    string `json:"user_id" binding:"required"`
}

// MergeSessionResult 报告会话合并影响的记录数。
type MergeSessionResult struct {
	Merged int64 `json:"merged"`
}

// ReindexResult 报告一次全量重建索引的结果。
type ReindexResult struct {
	Count     int  `json:"count"`      // 成功写入的文档数。
	HadErrors bool `json:"had_errors"` // 批量写入过程中是否出现过单条失败。
}

// HealthReport 是健康检查的响应。
type HealthReport struct {
	Status        string `json:"status"`         // "ok" 或 "degraded"。
	Elasticsearch string `json:"elasticsearch"`  // "up" 或 "down"。
	Degraded      bool   `json:"degraded"`       // 启动重试耗尽后以降级模式运行。
}
