// FileName: repositories/es_history.go
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
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EngagementUpdate 描述一次互动回报要合并进历史记录的字段。
// 合并规则：clickedResults 取并集，dwellTime 取最大值，converted 一旦为 true 即保持。
type EngagementUpdate struct {
	Query          string
	CategoryID     string
	LocationID     string
	ClickedResults []string
	DwellTime      *int64
	Converted      *bool
}

// HistoryRepository 定义了搜索历史记录在 Elasticsearch 中的操作接口。
// 历史既是分析日志也是个性化输入，对调用方只承诺"尽力而为"：
// 写入失败不应影响搜索主流程。
type HistoryRepository interface {
	// Record 记录一次搜索事件。5 分钟内同身份同规范化查询的记录被合并
	// （search_count 递增、时间戳刷新）而不是重复插入。
	Record(ctx context.Context, identity models.Identity, query, categoryID, locationID string, resultCount int64) error

	// UpdateEngagement 把点击/停留/转化信号合并进最近的匹配记录；
	// 找不到匹配记录时插入一条新记录承载这些信号。
	UpdateEngagement(ctx context.Context, identity models.Identity, upd EngagementUpdate) error

	// History 返回该身份最近的搜索记录，新的在前。
	History(ctx context.Context, identity models.Identity, limit int) ([]models.SearchHistoryDocument, error)

	// MergeSession 把会话名下的全部记录改挂到用户名下（登录时调用），
	// 返回实际迁移的记录数。重复调用幂等：第二次迁移 0 条。
	MergeSession(ctx context.Context, sessionID, userID string) (int64, error)

	// TrendingTerms 聚合回看窗口内的非空查询词，
	// 只保留出现至少 2 次的词，按出现次数降序。
	TrendingTerms(ctx context.Context, limit int, lookback time.Duration) ([]models.TrendingTerm, error)
}

// esHistoryRepository 是 HistoryRepository 接口针对 Elasticsearch 的具体实现。
type esHistoryRepository struct {
	client         *elasticsearch.Client
	indexName      string
	coalesceWindow time.Duration // 同查询合并窗口，默认 5 分钟。
	logger         *core.ZapLogger
}

// NewESHistoryRepository 创建一个新的 esHistoryRepository 实例。
func NewESHistoryRepository(client *elasticsearch.Client, indexName string, coalesceWindow time.Duration, logger *core.ZapLogger) HistoryRepository {
	if logger == nil {
		panic("创建 esHistoryRepository 失败：Logger 实例不能为 nil")
	}
	if client == nil {
		logger.Fatal("创建 esHistoryRepository 失败：Elasticsearch 客户端实例 (client) 不能为 nil。")
	}
	if indexName == "" {
		logger.Fatal("创建 esHistoryRepository 失败：搜索历史索引名称 (indexName) 不能为空。")
	}
	if coalesceWindow <= 0 {
		coalesceWindow = 5 * time.Minute
	}

	logger.Info("Elasticsearch HistoryRepository 初始化成功",
		zap.String("index_name", indexName),
		zap.Duration("coalesce_window", coalesceWindow),
	)
	return &esHistoryRepository{
		client:         client,
		indexName:      indexName,
		coalesceWindow: coalesceWindow,
		logger:         logger,
	}
}

// logAndWrapESErrorForHistory 处理和记录搜索历史操作的 Elasticsearch 错误响应。
func (repo *esHistoryRepository) logAndWrapESErrorForHistory(res *esapi.Response, operationDesc string, contextIdentifier interface{}) error {
	var errorBodyContent string
	if res.Body != nil {
		bodyBytes, err := io.ReadAll(res.Body)
		if err == nil {
			errorBodyContent = string(bodyBytes)
		}
	}

	logFields := []zap.Field{
		zap.Any("context_identifier", contextIdentifier),
		zap.String("es_status", res.Status()),
	}
	if errorBodyContent != "" {
		logFields = append(logFields, zap.String("es_error_response_body", errorBodyContent))
	}

	repo.logger.Error(fmt.Sprintf("Elasticsearch 搜索历史操作 '%s' 失败", operationDesc), logFields...)

	if errorBodyContent != "" {
		return fmt.Errorf("Elasticsearch 搜索历史操作 '%s' 失败，状态码: %s，响应: %s", operationDesc, res.Status(), errorBodyContent)
	}
	return fmt.Errorf("Elasticsearch 搜索历史操作 '%s' 失败，状态码: %s", operationDesc, res.Status())
}

// identityTermClause 返回按身份精确匹配的过滤子句。
// Identity 的校验（恰好一个键非空）由调用方在入口处完成。
func identityTermClause(identity models.Identity) map[string]interface{} {
	if identity.UserID != "" {
		return map[string]interface{}{
			"term": map[string]interface{}{"user_id": identity.UserID},
		}
	}
	return map[string]interface{}{
		"term": map[string]interface{}{"session_id": identity.SessionID},
	}
}

// findRecentRecord 在合并窗口内查找同身份同规范化查询的最近一条记录。
// 未找到时返回 (nil, nil)。
func (repo *esHistoryRepository) findRecentRecord(ctx context.Context, identity models.Identity, normalizedQuery string) (*models.SearchHistoryDocument, error) {
	since := time.Now().UTC().Add(-repo.coalesceWindow)

	queryBody := map[string]interface{}{
		"size": 1,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []map[string]interface{}{
					identityTermClause(identity),
					{"term": map[string]interface{}{"query.keyword": normalizedQuery}},
					{"range": map[string]interface{}{
						"timestamp": map[string]interface{}{"gte": since.Format(time.RFC3339)},
					}},
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"timestamp": map[string]interface{}{"order": "desc"}},
		},
	}
	queryJSON, err := json.Marshal(queryBody)
	if err != nil {
		return nil, fmt.Errorf("序列化历史记录查找查询失败: %w", err)
	}

	searchReq := esapi.SearchRequest{
		Index: []string{repo.indexName},
		Body:  bytes.NewReader(queryJSON),
	}
	res, err := searchReq.Do(ctx, repo.client)
	if err != nil {
		return nil, fmt.Errorf("Elasticsearch 历史记录查找请求失败: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, repo.logAndWrapESErrorForHistory(res, "查找合并窗口内的历史记录", identity.Key())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source models.SearchHistoryDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("解码历史记录查找响应失败: %w", err)
	}
	if len(esResponse.Hits.Hits) == 0 {
		return nil, nil
	}
	doc := esResponse.Hits.Hits[0].Source
	return &doc, nil
}

// Record 记录一次搜索事件（见接口说明的合并语义）。
func (repo *esHistoryRepository) Record(ctx context.Context, identity models.Identity, query, categoryID, locationID string, resultCount int64) error {
	normalized := models.NormalizeQuery(query)
	now := time.Now().UTC()

	existing, err := repo.findRecentRecord(ctx, identity, normalized)
	if err != nil {
		return err
	}

	if existing != nil {
		// 窗口内已有同查询记录：脚本化递增而不是插入重复记录。
		scriptBody := map[string]interface{}{
			"script": map[string]interface{}{
				"source": "ctx._source.search_count += 1; ctx._source.timestamp = params.now; ctx._source.result_count = params.result_count;",
				"lang":   "painless",
				"params": map[string]interface{}{
					"now":          now.Format(time.RFC3339),
					"result_count": resultCount,
				},
			},
		}
		payload, err := json.Marshal(scriptBody)
		if err != nil {
			return fmt.Errorf("序列化历史记录递增脚本失败: %w", err)
		}

		req := esapi.UpdateRequest{
			Index:      repo.indexName,
			DocumentID: existing.ID,
			Body:       bytes.NewReader(payload),
			Refresh:    "true", // 立即可见：同一窗口内的下一次搜索必须能找到这条记录。
		}
		res, err := req.Do(ctx, repo.client)
		if err != nil {
			repo.logger.Error("执行历史记录递增更新时发生连接或客户端错误",
				zap.String("record_id", existing.ID),
				zap.Error(err),
			)
			return fmt.Errorf("Elasticsearch 历史记录递增更新 (ID: %s) 失败: %w", existing.ID, err)
		}
		defer res.Body.Close()
		if res.IsError() {
			return repo.logAndWrapESErrorForHistory(res, "递增历史记录搜索次数", existing.ID)
		}

		repo.logger.Debug("已合并到窗口内的既有历史记录",
			zap.String("record_id", existing.ID),
			zap.String("identity_key", identity.Key()),
			zap.String("normalized_query", normalized),
		)
		return nil
	}

	// 窗口内无匹配：插入新记录，search_count 从 1 开始。
	doc := models.SearchHistoryDocument{
		ID:          uuid.NewString(),
		UserID:      identity.UserID,
		SessionID:   identity.SessionID,
		Query:       normalized,
		CategoryID:  categoryID,
		LocationID:  locationID,
		Timestamp:   now,
		ResultCount: resultCount,
		SearchCount: 1,
	}
	return repo.insertRecord(ctx, doc)
}

func (repo *esHistoryRepository) insertRecord(ctx context.Context, doc models.SearchHistoryDocument) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("序列化搜索历史文档失败: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      repo.indexName,
		DocumentID: doc.ID,
		Body:       bytes.NewReader(payload),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, repo.client)
	if err != nil {
		repo.logger.Error("执行搜索历史写入请求时发生连接或客户端错误",
			zap.String("record_id", doc.ID),
			zap.Error(err),
		)
		return fmt.Errorf("Elasticsearch 搜索历史写入请求 (ID: %s) 失败: %w", doc.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return repo.logAndWrapESErrorForHistory(res, "写入搜索历史记录", doc.ID)
	}

	repo.logger.Debug("新的搜索历史记录已写入",
		zap.String("record_id", doc.ID),
		zap.String("query", doc.Query),
	)
	return nil
}

// UpdateEngagement 把互动信号合并进最近的匹配记录。
func (repo *esHistoryRepository) UpdateEngagement(ctx context.Context, identity models.Identity, upd EngagementUpdate) error {
	normalized := models.NormalizeQuery(upd.Query)
	now := time.Now().UTC()

	existing, err := repo.findRecentRecord(ctx, identity, normalized)
	if err != nil {
		return err
	}

	if existing == nil {
		// 没有可合并的记录（比如点击发生在合并窗口之外）：
		// 插入一条承载互动信号的新记录，避免信号丢失。
		doc := models.SearchHistoryDocument{
			ID:             uuid.NewString(),
			UserID:         identity.UserID,
			SessionID:      identity.SessionID,
			Query:          normalized,
			CategoryID:     upd.CategoryID,
			LocationID:     upd.LocationID,
			Timestamp:      now,
			SearchCount:    1,
			ClickedResults: upd.ClickedResults,
		}
		if upd.DwellTime != nil {
			doc.DwellTime = *upd.DwellTime
		}
		if upd.Converted != nil {
			doc.Converted = *upd.Converted
		}
		return repo.insertRecord(ctx, doc)
	}

	// 合并规则在脚本里实现：点击取并集，停留取最大值，转化为 OR。
	scriptSource := `
if (ctx._source.clicked_results == null) { ctx._source.clicked_results = []; }
for (item in params.clicked) {
  if (!ctx._source.clicked_results.contains(item)) { ctx._source.clicked_results.add(item); }
}
if (params.dwell != null) {
  long current = ctx._source.dwell_time != null ? ctx._source.dwell_time : 0;
  if (params.dwell > current) { ctx._source.dwell_time = params.dwell; }
}
if (params.converted != null && params.converted) { ctx._source.converted = true; }
`
	params := map[string]interface{}{
		"clicked": upd.ClickedResults,
	}
	if upd.ClickedResults == nil {
		params["clicked"] = []string{}
	}
	if upd.DwellTime != nil {
		params["dwell"] = *upd.DwellTime
	} else {
		params["dwell"] = nil
	}
	if upd.Converted != nil {
		params["converted"] = *upd.Converted
	} else {
		params["converted"] = nil
	}

	updateBody := map[string]interface{}{
		"script": map[string]interface{}{
			"source": scriptSource,
			"lang":   "painless",
			"params": params,
		},
	}
	payload, err := json.Marshal(updateBody)
	if err != nil {
		return fmt.Errorf("序列化互动合并脚本失败: %w", err)
	}

	req := esapi.UpdateRequest{
		Index:      repo.indexName,
		DocumentID: existing.ID,
		Body:       bytes.NewReader(payload),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, repo.client)
	if err != nil {
		repo.logger.Error("执行互动信号合并更新时发生连接或客户端错误",
			zap.String("record_id", existing.ID),
			zap.Error(err),
		)
		return fmt.Errorf("Elasticsearch 互动合并更新 (ID: %s) 失败: %w", existing.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return repo.logAndWrapESErrorForHistory(res, "合并互动信号", existing.ID)
	}

	repo.logger.Debug("互动信号已合并进历史记录",
		zap.String("record_id", existing.ID),
		zap.Int("clicked_count", len(upd.ClickedResults)),
	)
	return nil
}

// History 返回该身份最近的搜索记录，新的在前。
func (repo *esHistoryRepository) History(ctx context.Context, identity models.Identity, limit int) ([]models.SearchHistoryDocument, error) {
	if limit <= 0 {
		limit = 20
	}

	queryBody := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []map[string]interface{}{
					identityTermClause(identity),
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"timestamp": map[string]interface{}{"order": "desc"}},
		},
	}
	queryJSON, err := json.Marshal(queryBody)
	if err != nil {
		return nil, fmt.Errorf("序列化历史查询失败: %w", err)
	}

	searchReq := esapi.SearchRequest{
		Index: []string{repo.indexName},
		Body:  bytes.NewReader(queryJSON),
	}
	res, err := searchReq.Do(ctx, repo.client)
	if err != nil {
		repo.logger.Error("执行搜索历史检索请求时发生连接或客户端错误",
			zap.String("identity_key", identity.Key()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("Elasticsearch 搜索历史检索请求失败: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, repo.logAndWrapESErrorForHistory(res, "检索搜索历史", identity.Key())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source models.SearchHistoryDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("解码搜索历史检索响应失败: %w", err)
	}

	records := make([]models.SearchHistoryDocument, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		records = append(records, hit.Source)
	}
	return records, nil
}

// MergeSession 通过 update_by_query 把会话名下的全部记录改挂到用户名下。
func (repo *esHistoryRepository) MergeSession(ctx context.Context, sessionID, userID string) (int64, error) {
	updateBody := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{"session_id": sessionID},
		},
		"script": map[string]interface{}{
			"source": "ctx._source.user_id = params.user_id; ctx._source.session_id = null;",
			"lang":   "painless",
			"params": map[string]interface{}{
				"user_id": userID,
			},
		},
	}
	payload, err := json.Marshal(updateBody)
	if err != nil {
		return 0, fmt.Errorf("序列化会话合并请求失败: %w", err)
	}

	refresh := true
	req := esapi.UpdateByQueryRequest{
		Index:   []string{repo.indexName},
		Body:    bytes.NewReader(payload),
		Refresh: &refresh, // 合并后立即可见，保证重复调用时第二次迁移 0 条。
	}
	res, err := req.Do(ctx, repo.client)
	if err != nil {
		repo.logger.Error("执行会话合并请求时发生连接或客户端错误",
			zap.String("session_id", sessionID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return 0, fmt.Errorf("Elasticsearch 会话合并请求失败: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, repo.logAndWrapESErrorForHistory(res, "合并会话历史到用户", sessionID)
	}

	var mergeResponse struct {
		Updated int64 `json:"updated"`
	}
	if err := json.NewDecoder(res.Body).Decode(&mergeResponse); err != nil {
		return 0, fmt.Errorf("解码会话合并响应失败: %w", err)
	}

	repo.logger.Info("会话历史已合并到用户名下",
		zap.String("session_id", sessionID),
		zap.String("user_id", userID),
		zap.Int64("merged_records", mergeResponse.Updated),
	)
	return mergeResponse.Updated, nil
}

// TrendingTerms 聚合回看窗口内的非空查询词。
func (repo *esHistoryRepository) TrendingTerms(ctx context.Context, limit int, lookback time.Duration) ([]models.TrendingTerm, error) {
	if limit <= 0 {
		limit = 10
	}
	since := time.Now().UTC().Add(-lookback)

	queryBody := map[string]interface{}{
		"size": 0,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []map[string]interface{}{
					{"range": map[string]interface{}{
						"timestamp": map[string]interface{}{"gte": since.Format(time.RFC3339)},
					}},
				},
				"must_not": []map[string]interface{}{
					{"term": map[string]interface{}{"query.keyword": ""}},
				},
			},
		},
		"aggs": map[string]interface{}{
			"trending_terms": map[string]interface{}{
				"terms": map[string]interface{}{
					"field":         "query.keyword",
					"size":          limit,
					"min_doc_count": 2, // 只出现一次的查询不算趋势。
					"order":         map[string]interface{}{"_count": "desc"},
				},
			},
		},
	}
	queryJSON, err := json.Marshal(queryBody)
	if err != nil {
		return nil, fmt.Errorf("序列化趋势词聚合查询失败: %w", err)
	}
	repo.logger.Debug("构建的趋势词聚合查询 DSL", zap.String("dsl_query", string(queryJSON)))

	searchReq := esapi.SearchRequest{
		Index: []string{repo.indexName},
		Body:  bytes.NewReader(queryJSON),
	}
	res, err := searchReq.Do(ctx, repo.client)
	if err != nil {
		repo.logger.Error("执行趋势词聚合请求时发生连接或客户端错误", zap.Error(err))
		return nil, fmt.Errorf("Elasticsearch 趋势词聚合请求失败: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, repo.logAndWrapESErrorForHistory(res, "聚合趋势搜索词", fmt.Sprintf("limit: %d", limit))
	}

	var esResponse struct {
		Aggregations struct {
			TrendingTerms struct {
				Buckets []struct {
					Key      string `json:"key"`
					DocCount int64  `json:"doc_count"`
				} `json:"buckets"`
			} `json:"trending_terms"`
		} `json:"aggregations"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("解码趋势词聚合响应失败: %w", err)
	}

	terms := make([]models.TrendingTerm, 0, len(esResponse.Aggregations.TrendingTerms.Buckets))
	for _, bucket := range esResponse.Aggregations.TrendingTerms.Buckets {
		if strings.TrimSpace(bucket.Key) == "" {
			continue
		}
		terms = append(terms, models.TrendingTerm{
			Text:  bucket.Key,
			Count: bucket.DocCount,
		})
	}

	repo.logger.Info("趋势搜索词聚合完成",
		zap.Int("term_count", len(terms)),
		zap.Duration("lookback", lookback),
	)
	return terms, nil
}
