package models

// SwaggerSearchResultResponse 是专门为 Swagger 文档生成的辅助结构体。
// 它解决了 swag 工具无法解析泛型类型 response.APIResponse[models.SearchResult] 的问题；
// 实际响应仍使用 gateway 的泛型封装。
type SwaggerSearchResultResponse struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Data    SearchResult `json:"data,omitempty"`
}

// SwaggerSuggestionsResponse 对应自动补全接口的响应。
type SwaggerSuggestionsResponse struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Data    []Suggestion `json:"data,omitempty"`
}

// SwaggerRecommendationResponse 对应个性化推荐接口的响应。
type SwaggerRecommendationResponse struct {
	Code    int                  `json:"code"`
	Message string               `json:"message"`
	Data    RecommendationResult `json:"data,omitempty"`
}

// SwaggerTrendingTermsResponse 对应趋势搜索词接口的响应。
type SwaggerTrendingTermsResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    []TrendingTerm `json:"data,omitempty"`
}

// SwaggerErrorResponse 是错误响应的文档辅助结构体。
type SwaggerErrorResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
