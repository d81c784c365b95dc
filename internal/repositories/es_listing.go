// FileName: repositories/listing_repository.go
package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Xushengqwer/go-common/core"
	"github.com/Xushengqwer/listing_search/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

// CompletionSuggestion 是补全建议的单条候选：建议文本及索引给出的得分。
type CompletionSuggestion struct {
	Text  string
	Score float64
}

// FuzzyCandidate 是模糊匹配得到的候选文档片段，建议引擎从中抽取候选词。
type FuzzyCandidate struct {
	Title        string
	CategoryName string
	Score        float64
}

// ListingRepository 定义了列表项文档在 Elasticsearch 中持久化和检索相关的操作接口。
// 这种接口化设计使得业务逻辑层可以解耦具体的存储实现。
type ListingRepository interface {
	// IndexListing 索引（创建或更新）一个列表项文档。
	// 相同 ID 的文档已存在时更新，否则创建。
	IndexListing(ctx context.Context, doc models.EsListingDocument) error

	// DeleteListing 根据 ID 删除一个列表项文档。文档不存在视为幂等成功。
	DeleteListing(ctx context.Context, listingID string) error

	// GetListing 按 ID 取回单个文档，不存在时返回 (nil, nil)。
	GetListing(ctx context.Context, listingID string) (*models.EsListingDocument, error)

	// BulkIndexListings 批量写入文档（全量重建用），返回成功条数与是否有条目失败。
	BulkIndexListings(ctx context.Context, docs []models.EsListingDocument) (int, bool, error)

	// CountActive 统计公开可见（ACTIVE 且卖家有效）的文档数量。
	CountActive(ctx context.Context) (int64, error)

	// SearchListings 执行主搜索查询。
	SearchListings(ctx context.Context, q ListingQuery) (*models.SearchResult, error)

	// SuggestCompletions 对 suggest 字段做前缀补全查找。
	SuggestCompletions(ctx context.Context, prefix string, size int) ([]CompletionSuggestion, error)

	// FuzzyCandidates 对标题与分类名做带拼写容错的匹配，返回候选文档片段。
	FuzzyCandidates(ctx context.Context, prefix string, size int) ([]FuzzyCandidate, error)

	// Popular 返回按浏览量排序的可见文档。
	Popular(ctx context.Context, size int) (*models.SearchResult, error)

	// Trending 返回按时间衰减 function_score 排序的可见文档。
	Trending(ctx context.Context, size int) (*models.SearchResult, error)

	// RelatedBySeed 按种子字段的 should 组合查询相关文档。
	RelatedBySeed(ctx context.Context, seed RelatedSeed, size int) (*models.SearchResult, error)

	// SameCategory 是相关推荐的降级查询：同分类、排除目标、最新优先。
	SameCategory(ctx context.Context, excludeID, categoryID string, size int) (*models.SearchResult, error)

	// CategoryFeed 返回限定分类集合（可为空）的最新文档，供个性化推荐使用。
	CategoryFeed(ctx context.Context, categoryIDs []string, size int) (*models.SearchResult, error)
}

// esListingRepository 是 ListingRepository 接口针对 Elasticsearch 的具体实现。
// indexName 是稳定别名，仓库从不直接引用版本化物理索引。
type esListingRepository struct {
	client    *elasticsearch.Client // 注入的 Elasticsearch Go 客户端实例。
	indexName string                // 操作目标：列表项索引的别名。
	logger    *core.ZapLogger       // 注入的 Logger 实例，用于结构化日志记录。
}

// NewESListingRepository 创建一个新的 esListingRepository 实例。
// 注意：此构造函数在关键依赖缺失时会 panic / Fatal，这是快速失败的策略，
// 确保服务不会以不完整状态启动。
func NewESListingRepository(client *elasticsearch.Client, indexName string, logger *core.ZapLogger) ListingRepository {
	if logger == nil {
		panic("创建 esListingRepository 失败：Logger 实例不能为 nil")
	}
	if client == nil {
		logger.Fatal("创建 esListingRepository 失败：Elasticsearch 客户端实例 (client) 不能为 nil。服务将无法执行任何数据库操作。")
	}
	if indexName == "" {
		logger.Fatal("创建 esListingRepository 失败：列表项索引别名 (indexName) 不能为空。无法确定操作的目标索引。")
	}

	logger.Info("Elasticsearch ListingRepository 初始化成功",
		zap.String("index_alias", indexName),
	)
	return &esListingRepository{
		client:    client,
		indexName: indexName,
		logger:    logger,
	}
}

// logAndWrapESError 处理和记录 Elasticsearch API 响应中的错误：
// 读取响应体、记录状态码与响应内容，并返回统一格式的包装错误。
func (repo *esListingRepository) logAndWrapESError(res *esapi.Response, operationDesc string, contextIdentifier interface{}) error {
	var errBody strings.Builder
	var readErr error
	if res.Body != nil {
		_, readErr = io.Copy(&errBody, res.Body)
	}

	logFields := []zap.Field{
		zap.Any("context_identifier", contextIdentifier),
		zap.String("es_status", res.Status()),
	}

	responseBodyStr := errBody.String()
	if readErr != nil {
		logFields = append(logFields, zap.Error(fmt.Errorf("读取 Elasticsearch 错误响应体失败: %w", readErr)))
	} else if responseBodyStr != "" {
		logFields = append(logFields, zap.String("es_error_response_body", responseBodyStr))
	}

	repo.logger.Error(fmt.Sprintf("Elasticsearch 操作 '%s' 失败", operationDesc), logFields...)

	if responseBodyStr != "" {
		return fmt.Errorf("Elasticsearch 操作 '%s' 失败，状态码: %s，响应: %s", operationDesc, res.Status(), responseBodyStr)
	}
	return fmt.Errorf("Elasticsearch 操作 '%s' 失败，状态码: %s", operationDesc, res.Status())
}

// IndexListing 在 Elasticsearch 中索引（创建或更新）一个列表项文档。
// 使用文档自身 ID 作为 _id 实现幂等写入。
func (repo *esListingRepository) IndexListing(ctx context.Context, doc models.EsListingDocument) error {
	// 每次写入都刷新最后更新时间戳，统一用 UTC 避免时区问题。
	doc.UpdatedAt = time.Now().UTC()
	if doc.Suggest == nil {
		doc.Suggest = models.BuildSuggestInputs(doc.Title, doc.CategoryName)
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		repo.logger.Error("序列化 EsListingDocument 为 JSON 失败，无法发送给 Elasticsearch",
			zap.String("listing_id", doc.ID),
			zap.Error(err),
		)
		return fmt.Errorf("序列化列表项文档 (ID: %s) 失败: %w", doc.ID, err)
	}
	repo.logger.Debug("准备索引的文档JSON体", zap.String("document_id", doc.ID), zap.ByteString("payload", payload))

	req := esapi.IndexRequest{
		Index:      repo.indexName,
		DocumentID: doc.ID,
		Body:       bytes.NewReader(payload),
		// "false": 异步刷新。写入先进内存缓冲区和事务日志，短时间内对搜索不可见，
		// 但写入性能高。对 Kafka 消费这类高吞吐索引场景是首选。
		Refresh: "false",
	}

	res, err := req.Do(ctx, repo.client)
	if err != nil {
		repo.logger.Error("执行 Elasticsearch 索引请求时发生连接或客户端错误",
			zap.String("listing_id", doc.ID),
			zap.Error(err),
		)
		return fmt.Errorf("Elasticsearch 索引请求 (ID: %s) 失败: %w", doc.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return repo.logAndWrapESError(res, "索引列表项文档", doc.ID)
	}

	repo.logger.Info("成功发送索引/更新请求到 Elasticsearch",
		zap.String("listing_id", doc.ID),
		zap.String("es_status", res.Status()),
	)

	var resultDetails map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&resultDetails); err == nil {
		if esResult, ok := resultDetails["result"].(string); ok {
			repo.logger.Debug("Elasticsearch 索引/更新操作的详细结果",
				zap.String("listing_id", doc.ID),
				zap.String("es_operation_result", esResult),
			)
		}
	}
	return nil
}

// DeleteListing 根据文档 ID 删除一个列表项文档。
// 此操作幂等：目标文档本就不存在 (404) 时视为成功，因为"文档不存在"这个目标状态已达成。
func (repo *esListingRepository) DeleteListing(ctx context.Context, listingID string) error {
	repo.logger.Info("准备从 Elasticsearch 删除列表项文档", zap.String("document_id", listingID))

	req := esapi.DeleteRequest{
		Index:      repo.indexName,
		DocumentID: listingID,
		Refresh:    "false",
	}

	res, err := req.Do(ctx, repo.client)
	if err != nil {
		repo.logger.Error("执行 Elasticsearch 删除请求时发生连接或客户端错误",
			zap.String("listing_id", listingID),
			zap.Error(err),
		)
		return fmt.Errorf("Elasticsearch 删除请求 (ID: %s) 失败: %w", listingID, err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		repo.logger.Warn("尝试删除的文档在 Elasticsearch 中未找到，视为操作成功 (幂等性)",
			zap.String("listing_id", listingID),
			zap.String("es_status", res.Status()),
		)
		return nil
	}

	if res.IsError() {
		return repo.logAndWrapESError(res, "删除列表项文档", listingID)
	}

	repo.logger.Info("成功发送删除请求到 Elasticsearch",
		zap.String("listing_id", listingID),
		zap.String("es_status", res.Status()),
	)
	return nil
}

// GetListing 按 ID 取回单个文档。不存在时返回 (nil, nil) 而非错误，
// 调用方（相关推荐引擎）把"目标不存在"作为正常分支处理。
func (repo *esListingRepository) GetListing(ctx context.Context, listingID string) (*models.EsListingDocument, error) {
	req := esapi.GetRequest{
		Index:      repo.indexName,
		DocumentID: listingID,
	}

	res, err := req.Do(ctx, repo.client)
	if err != nil {
		repo.logger.Error("执行 Elasticsearch 取回请求时发生连接或客户端错误",
			zap.String("listing_id", listingID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("Elasticsearch 取回请求 (ID: %s) 失败: %w", listingID, err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		repo.logger.Debug("请求的列表项文档不存在", zap.String("listing_id", listingID))
		return nil, nil
	}
	if res.IsError() {
		return nil, repo.logAndWrapESError(res, "取回列表项文档", listingID)
	}

	var getResponse struct {
		Source models.EsListingDocument `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&getResponse); err != nil {
		repo.logger.Error("解码 Elasticsearch 取回响应体失败", zap.String("listing_id", listingID), zap.Error(err))
		return nil, fmt.Errorf("解码取回响应 (ID: %s) 失败: %w", listingID, err)
	}
	return &getResponse.Source, nil
}

// BulkIndexListings 通过 _bulk API 批量写入文档，用于全量重建。
// 返回成功写入的条数和是否存在失败条目；部分失败不中断整体写入。
func (repo *esListingRepository) BulkIndexListings(ctx context.Context, docs []models.EsListingDocument) (int, bool, error) {
	if len(docs) == 0 {
		return 0, false, nil
	}

	const batchSize = 500
	totalIndexed := 0
	hadErrors := false
	now := time.Now().UTC()

	for start := 0; start < len(docs); start += batchSize {
		end := start + batchSize
		if end > len(docs) {
			end = len(docs)
		}

		var buf bytes.Buffer
		for i := start; i < end; i++ {
			doc := docs[i]
			doc.UpdatedAt = now
			if doc.Suggest == nil {
				doc.Suggest = models.BuildSuggestInputs(doc.Title, doc.CategoryName)
			}

			meta := map[string]interface{}{
				"index": map[string]interface{}{"_index": repo.indexName, "_id": doc.ID},
			}
			metaLine, err := json.Marshal(meta)
			if err != nil {
				return totalIndexed, true, fmt.Errorf("序列化批量写入元数据 (ID: %s) 失败: %w", doc.ID, err)
			}
			docLine, err := json.Marshal(doc)
			if err != nil {
				repo.logger.Error("序列化批量写入文档失败，跳过该条", zap.String("listing_id", doc.ID), zap.Error(err))
				hadErrors = true
				continue
			}
			buf.Write(metaLine)
			buf.WriteByte('\n')
			buf.Write(docLine)
			buf.WriteByte('\n')
		}

		req := esapi.BulkRequest{
			Body:    bytes.NewReader(buf.Bytes()),
			Refresh: "false",
		}
		res, err := req.Do(ctx, repo.client)
		if err != nil {
			repo.logger.Error("执行 Elasticsearch 批量写入请求时发生连接或客户端错误",
				zap.Int("batch_start", start),
				zap.Error(err),
			)
			return totalIndexed, true, fmt.Errorf("Elasticsearch 批量写入请求失败: %w", err)
		}

		if res.IsError() {
			wrapErr := repo.logAndWrapESError(res, "批量写入列表项文档", fmt.Sprintf("batch_start: %d", start))
			res.Body.Close()
			return totalIndexed, true, wrapErr
		}

		var bulkResponse struct {
			Errors bool `json:"errors"`
			Items  []map[string]struct {
				Status int `json:"status"`
				Error  *struct {
					Type   string `json:"type"`
					Reason string `json:"reason"`
				} `json:"error"`
			} `json:"items"`
		}
		decodeErr := json.NewDecoder(res.Body).Decode(&bulkResponse)
		res.Body.Close()
		if decodeErr != nil {
			repo.logger.Error("解码批量写入响应体失败", zap.Error(decodeErr))
			return totalIndexed, true, fmt.Errorf("解码批量写入响应失败: %w", decodeErr)
		}

		batchIndexed := 0
		for _, item := range bulkResponse.Items {
			for _, detail := range item {
				if detail.Status >= 200 && detail.Status < 300 {
					batchIndexed++
				} else if detail.Error != nil {
					hadErrors = true
					repo.logger.Warn("批量写入中的单条文档失败",
						zap.Int("status", detail.Status),
						zap.String("error_type", detail.Error.Type),
						zap.String("error_reason", detail.Error.Reason),
					)
				}
			}
		}
		totalIndexed += batchIndexed
		if bulkResponse.Errors {
			hadErrors = true
		}
	}

	repo.logger.Info("批量写入列表项文档完成",
		zap.Int("total_documents", len(docs)),
		zap.Int("indexed", totalIndexed),
		zap.Bool("had_errors", hadErrors),
	)
	return totalIndexed, hadErrors, nil
}

// CountActive 统计公开可见的文档数量。
// 热门/趋势/建议引擎用它做空目录短路，避免对空索引发起排序查询。
func (repo *esListingRepository) CountActive(ctx context.Context) (int64, error) {
	queryBody := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": visibilityFilters(),
			},
		},
	}
	queryJSON, err := json.Marshal(queryBody)
	if err != nil {
		return 0, fmt.Errorf("序列化可见文档统计查询失败: %w", err)
	}

	req := esapi.CountRequest{
		Index: []string{repo.indexName},
		Body:  bytes.NewReader(queryJSON),
	}
	res, err := req.Do(ctx, repo.client)
	if err != nil {
		repo.logger.Error("执行 Elasticsearch 统计请求时发生连接或客户端错误", zap.Error(err))
		return 0, fmt.Errorf("Elasticsearch 统计请求失败: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, repo.logAndWrapESError(res, "统计可见文档", repo.indexName)
	}

	var countResponse struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&countResponse); err != nil {
		return 0, fmt.Errorf("解码统计响应失败: %w", err)
	}
	return countResponse.Count, nil
}

// esSearchResponse 是搜索响应的解码结构，带高亮与排序值。
type esSearchResponse struct {
	Took int `json:"took"`
	Hits struct {
		Total struct {
			Value    int64  `json:"value"`
			Relation string `json:"relation"`
		} `json:"total"`
		Hits []struct {
			Source    models.EsListingDocument `json:"_source"`
			Score     float64                  `json:"_score,omitempty"`
			Sort      []interface{}            `json:"sort,omitempty"`
			Highlight map[string][]string      `json:"highlight,omitempty"`
		} `json:"hits"`
	} `json:"hits"`
}

// executeSearch 发送查询 DSL 并把响应映射到应用层结果模型。
// 每条命中保留索引给出的排序值，调用方可将其原样作为下一页的 search_after 游标。
func (repo *esListingRepository) executeSearch(ctx context.Context, queryJSON []byte, operationDesc string, contextIdentifier interface{}) (*models.SearchResult, error) {
	searchReq := esapi.SearchRequest{
		Index: []string{repo.indexName},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := searchReq.Do(ctx, repo.client)
	if err != nil {
		repo.logger.Error("执行 Elasticsearch 搜索请求时发生连接或客户端错误",
			zap.String("operation", operationDesc),
			zap.Error(err),
		)
		return nil, fmt.Errorf("Elasticsearch 搜索请求 ('%s') 失败: %w", operationDesc, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, repo.logAndWrapESError(res, operationDesc, contextIdentifier)
	}

	var esResponse esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		repo.logger.Error("解码 Elasticsearch 搜索响应体失败",
			zap.String("operation", operationDesc),
			zap.Error(err),
		)
		return nil, fmt.Errorf("解码 Elasticsearch 搜索响应 ('%s') 失败: %w", operationDesc, err)
	}

	searchResult := &models.SearchResult{
		Hits:  make([]models.ListingHit, 0, len(esResponse.Hits.Hits)),
		Total: esResponse.Hits.Total.Value,
		Took:  int64(esResponse.Took),
	}
	for _, hit := range esResponse.Hits.Hits {
		doc := hit.Source
		if len(hit.Highlight) > 0 {
			doc.Highlights = hit.Highlight
		}
		searchResult.Hits = append(searchResult.Hits, models.ListingHit{
			EsListingDocument: doc,
			Score:             hit.Score,
			Sort:              hit.Sort,
		})
	}
	return searchResult, nil
}

// SearchListings 执行主搜索查询。
func (repo *esListingRepository) SearchListings(ctx context.Context, q ListingQuery) (*models.SearchResult, error) {
	repo.logger.Info("开始执行列表项搜索",
		zap.String("query_keywords", q.Query),
		zap.Int("size", q.Size),
		zap.String("sort_by", q.SortBy),
		zap.Int("category_filter_count", len(q.CategoryIDs)),
		zap.String("filter_location_id", q.LocationID),
		zap.Bool("has_cursor", len(q.SearchAfter) > 0),
	)

	queryJSON, err := buildListingSearchQuery(q)
	if err != nil {
		repo.logger.Error("构建列表项搜索查询 DSL 失败", zap.Error(err))
		return nil, fmt.Errorf("构建搜索查询失败: %w", err)
	}
	repo.logger.Debug("构建的列表项搜索查询 DSL", zap.String("dsl_query", string(queryJSON)))

	result, err := repo.executeSearch(ctx, queryJSON, "搜索列表项", q.Query)
	if err != nil {
		return nil, err
	}

	repo.logger.Info("列表项搜索成功完成",
		zap.Int64("query_took_ms", result.Took),
		zap.Int64("total_hits_found", result.Total),
		zap.Int("returned_hits_count", len(result.Hits)),
		zap.String("query_keywords", q.Query),
	)
	return result, nil
}

// SuggestCompletions 对 suggest 字段做前缀补全查找。
func (repo *esListingRepository) SuggestCompletions(ctx context.Context, prefix string, size int) ([]CompletionSuggestion, error) {
	queryJSON, err := buildCompletionSuggestQuery(prefix, size)
	if err != nil {
		return nil, fmt.Errorf("构建补全建议查询失败: %w", err)
	}

	searchReq := esapi.SearchRequest{
		Index: []string{repo.indexName},
		Body:  bytes.NewReader(queryJSON),
	}
	res, err := searchReq.Do(ctx, repo.client)
	if err != nil {
		repo.logger.Error("执行 Elasticsearch 补全建议请求时发生连接或客户端错误",
			zap.String("prefix", prefix),
			zap.Error(err),
		)
		return nil, fmt.Errorf("Elasticsearch 补全建议请求 (prefix: %s) 失败: %w", prefix, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, repo.logAndWrapESError(res, "补全建议查询", prefix)
	}

	var suggestResponse struct {
		Suggest struct {
			ListingSuggest []struct {
				Options []struct {
					Text  string  `json:"text"`
					Score float64 `json:"_score"`
				} `json:"options"`
			} `json:"listing-suggest"`
		} `json:"suggest"`
	}
	if err := json.NewDecoder(res.Body).Decode(&suggestResponse); err != nil {
		repo.logger.Error("解码补全建议响应体失败", zap.String("prefix", prefix), zap.Error(err))
		return nil, fmt.Errorf("解码补全建议响应 (prefix: %s) 失败: %w", prefix, err)
	}

	var suggestions []CompletionSuggestion
	for _, entry := range suggestResponse.Suggest.ListingSuggest {
		for _, option := range entry.Options {
			suggestions = append(suggestions, CompletionSuggestion{
				Text:  option.Text,
				Score: option.Score,
			})
		}
	}
	repo.logger.Debug("补全建议查询完成",
		zap.String("prefix", prefix),
		zap.Int("suggestion_count", len(suggestions)),
	)
	return suggestions, nil
}

// FuzzyCandidates 对标题与分类名做带拼写容错的匹配，返回候选文档片段。
func (repo *esListingRepository) FuzzyCandidates(ctx context.Context, prefix string, size int) ([]FuzzyCandidate, error) {
	queryJSON, err := buildFuzzyCandidateQuery(prefix, size)
	if err != nil {
		return nil, fmt.Errorf("构建模糊候选查询失败: %w", err)
	}

	result, err := repo.executeSearch(ctx, queryJSON, "模糊候选查询", prefix)
	if err != nil {
		return nil, err
	}

	candidates := make([]FuzzyCandidate, 0, len(result.Hits))
	for _, hit := range result.Hits {
		candidates = append(candidates, FuzzyCandidate{
			Title:        hit.Title,
			CategoryName: hit.CategoryName,
			Score:        hit.Score,
		})
	}
	return candidates, nil
}

// Popular 返回按浏览量排序的可见文档。
func (repo *esListingRepository) Popular(ctx context.Context, size int) (*models.SearchResult, error) {
	queryJSON, err := buildPopularQuery(size)
	if err != nil {
		return nil, fmt.Errorf("构建热门查询失败: %w", err)
	}
	return repo.executeSearch(ctx, queryJSON, "热门列表项查询", size)
}

// Trending 返回按时间衰减 function_score 排序的可见文档。
func (repo *esListingRepository) Trending(ctx context.Context, size int) (*models.SearchResult, error) {
	queryJSON, err := buildTrendingQuery(size, time.Now())
	if err != nil {
		return nil, fmt.Errorf("构建趋势查询失败: %w", err)
	}
	return repo.executeSearch(ctx, queryJSON, "趋势列表项查询", size)
}

// RelatedBySeed 按种子字段的 should 组合查询相关文档。
func (repo *esListingRepository) RelatedBySeed(ctx context.Context, seed RelatedSeed, size int) (*models.SearchResult, error) {
	queryJSON, err := buildRelatedQuery(seed, size)
	if err != nil {
		return nil, fmt.Errorf("构建相关列表项查询失败: %w", err)
	}
	return repo.executeSearch(ctx, queryJSON, "相关列表项查询", seed.ID)
}

// SameCategory 是相关推荐的降级查询。
func (repo *esListingRepository) SameCategory(ctx context.Context, excludeID, categoryID string, size int) (*models.SearchResult, error) {
	queryJSON, err := buildSameCategoryQuery(excludeID, categoryID, size)
	if err != nil {
		return nil, fmt.Errorf("构建同分类降级查询失败: %w", err)
	}
	return repo.executeSearch(ctx, queryJSON, "同分类降级查询", excludeID)
}

// CategoryFeed 返回限定分类集合的最新文档。
func (repo *esListingRepository) CategoryFeed(ctx context.Context, categoryIDs []string, size int) (*models.SearchResult, error) {
	queryJSON, err := buildCategoryFeedQuery(categoryIDs, size)
	if err != nil {
		return nil, fmt.Errorf("构建分类供给查询失败: %w", err)
	}
	return repo.executeSearch(ctx, queryJSON, "分类供给查询", categoryIDs)
}
