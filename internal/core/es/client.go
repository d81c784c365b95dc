package es

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Xushengqwer/go-common/core"
	"github.com/Xushengqwer/listing_search/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

// ESClient 包含初始化后的 Elasticsearch 客户端及索引生命周期状态。
// 其他组件读写时一律使用 Alias() 返回的别名，绝不直接引用版本化物理索引名；
// 唯一的例外是全量重建（RecreateListingsIndex）期间的原子切换。
type ESClient struct {
	Client      *elasticsearch.Client
	ListingsCfg config.ListingsIndexConfig
	HistoryCfg  config.IndexSpecificConfig

	// Degraded 表示启动时连接重试已耗尽、服务以降级模式运行：
	// 搜索类读操作返回空结果，但进程不会崩溃。
	Degraded bool

	logger *core.ZapLogger
}

// Alias 返回列表项索引的稳定别名。
func (c *ESClient) Alias() string {
	return c.ListingsCfg.Alias
}

// HistoryIndex 返回搜索历史索引名。
func (c *ESClient) HistoryIndex() string {
	return c.HistoryCfg.Name
}

// getListingsIndexMapping 定义列表项索引的映射和设置。
// title 与 description 可全文检索，另有 completion 类型的 suggest 字段喂前缀建议；
// 各关联 ID 为 keyword 以支持精确过滤；user_is_active 允许缺失
// （老文档兼容：缺失视为卖家有效，由查询侧处理）。
func getListingsIndexMapping(shards int, replicas int) string {
	return fmt.Sprintf(`{
       "settings": {
          "number_of_shards": %d,
          "number_of_replicas": %d
       },
       "mappings": {
          "properties": {
             "id": { "type": "keyword" },
             "title": { "type": "text" },
             "description": { "type": "text" },
             "price": { "type": "double" },
             "view_count": { "type": "long" },
             "status": { "type": "keyword" },
             "user_is_active": { "type": "boolean" },
             "category_id": { "type": "keyword" },
             "category_name": {
                "type": "text",
                "fields": {
                   "keyword": { "type": "keyword", "ignore_above": 256 }
                }
             },
             "category_slug": { "type": "keyword" },
             "location_id": { "type": "keyword" },
             "city": { "type": "keyword" },
             "country": { "type": "keyword" },
             "zone_id": { "type": "keyword" },
             "zone_name": { "type": "keyword" },
             "images": { "type": "keyword", "index": false },
             "user_id": { "type": "keyword" },
             "created_at": { "type": "date" },
             "updated_at": { "type": "date" },
             "suggest": { "type": "completion" }
          }
       }
    }`, shards, replicas)
}

// getSearchHistoryIndexMapping 定义搜索历史索引的映射和设置。
// query 同时保留 keyword 子字段，供趋势词聚合与会话合并查找使用。
func getSearchHistoryIndexMapping(shards int, replicas int) string {
	return fmt.Sprintf(`{
        "settings": {
            "number_of_shards": %d,
            "number_of_replicas": %d
        },
        "mappings": {
            "properties": {
                "id": { "type": "keyword" },
                "user_id": { "type": "keyword" },
                "session_id": { "type": "keyword" },
                "query": {
                   "type": "text",
                   "fields": {
                      "keyword": { "type": "keyword", "ignore_above": 256 }
                   }
                },
                "category_id": { "type": "keyword" },
                "location_id": { "type": "keyword" },
                "timestamp": { "type": "date" },
                "result_count": { "type": "long" },
                "search_count": { "type": "long" },
                "clicked_results": { "type": "keyword" },
                "dwell_time": { "type": "long" },
                "converted": { "type": "boolean" }
            }
        }
    }`, shards, replicas)
}

// NewESClient 初始化 Elasticsearch 客户端并执行启动序列：
// 带固定间隔重试的连通性检查、索引存在性检查与创建、别名绑定。
// 重试耗尽时不返回错误，而是置 Degraded 标记让服务降级运行——
// 搜索子系统对调用方的契约是不因索引不可用而崩溃进程。
func NewESClient(cfg config.ESConfig, logger *core.ZapLogger, transport http.RoundTripper) (*ESClient, error) {
	esClientCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: transport,
	}

	esClient, err := elasticsearch.NewClient(esClientCfg)
	if err != nil {
		logger.Error("创建 Elasticsearch 客户端失败", zap.Error(err))
		return nil, fmt.Errorf("创建 Elasticsearch 客户端失败: %w", err)
	}
	logger.Info("Elasticsearch 客户端配置完成", zap.Strings("addresses", cfg.Addresses))

	client := &ESClient{
		Client:      esClient,
		ListingsCfg: cfg.ListingsIndex,
		HistoryCfg:  cfg.HistoryIndex,
		logger:      logger,
	}

	// --- 带重试的 Ping 检查 ---
	maxRetries := cfg.ConnectMaxRetries
	if maxRetries == 0 {
		maxRetries = 5
	}
	retryDelay := cfg.ConnectRetryDelay
	if retryDelay <= 0 {
		retryDelay = 3 * time.Second
	}

	pingOnce := func() error {
		ctxPing, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelPing()
		pingRes, pingErr := esClient.Ping(esClient.Ping.WithContext(ctxPing))
		if pingErr != nil {
			return pingErr
		}
		defer pingRes.Body.Close()
		if pingRes.IsError() {
			return fmt.Errorf("elasticsearch Ping 不成功: %s", pingRes.Status())
		}
		return nil
	}
	notify := func(pingErr error, next time.Duration) {
		logger.Warn("Ping Elasticsearch 失败，将按固定间隔重试",
			zap.Duration("next_retry_in", next),
			zap.Error(pingErr),
		)
	}
	// 固定间隔而非指数退避：启动期重试次数很少，常数间隔足够。
	err = backoff.RetryNotify(pingOnce, backoff.WithMaxRetries(backoff.NewConstantBackOff(retryDelay), maxRetries), notify)
	if err != nil {
		logger.Error("Elasticsearch 连接重试已耗尽，服务将以降级模式启动（搜索返回空结果）",
			zap.Uint64("max_retries", maxRetries),
			zap.Error(err),
		)
		client.Degraded = true
		return client, nil
	}
	logger.Info("Elasticsearch 客户端连接成功 (Ping 成功)")

	// --- 启动期索引生命周期：创建或绑定 ---
	if ensureErr := client.EnsureIndices(context.Background()); ensureErr != nil {
		// 索引创建失败同样降级而非崩溃；修复接口或重启可恢复。
		logger.Error("启动期索引创建/绑定失败，服务将以降级模式启动", zap.Error(ensureErr))
		client.Degraded = true
	}

	return client, nil
}

// EnsureIndices 确保两个逻辑集合就绪：
//   - 列表项：版本化物理索引 + 指向它的可写别名；物理索引已存在而别名缺失时只补绑别名。
//   - 搜索历史：单代索引，不存在则创建。
func (c *ESClient) EnsureIndices(ctx context.Context) error {
	physical := c.ListingsCfg.PhysicalName()
	if c.ListingsCfg.Alias == "" {
		c.logger.Error("未配置列表项索引别名 (listingsIndex.alias 为空)")
		return fmt.Errorf("列表项索引别名未在配置中指定")
	}

	exists, err := c.indexExists(ctx, physical)
	if err != nil {
		return fmt.Errorf("检查列表项索引 '%s' 是否存在失败: %w", physical, err)
	}

	if !exists {
		c.logger.Warn("列表项索引不存在，将尝试创建并绑定别名",
			zap.String("physical_index", physical),
			zap.String("alias", c.ListingsCfg.Alias),
		)
		mapping := getListingsIndexMapping(c.shardsOrDefault(c.ListingsCfg.NumberOfShards), c.ListingsCfg.NumberOfReplicas)
		if err := c.createIndex(ctx, physical, mapping); err != nil {
			return err
		}
	} else {
		c.logger.Info("列表项索引已存在", zap.String("physical_index", physical))
	}

	// 无论索引是否新建，都重申别名绑定（幂等）。
	if err := c.bindWriteAlias(ctx, physical); err != nil {
		return err
	}

	// --- 搜索历史索引 ---
	if c.HistoryCfg.Name == "" {
		c.logger.Error("未配置搜索历史索引的名称 (historyIndex.name 为空)")
		return fmt.Errorf("搜索历史索引名称未在配置中指定")
	}
	historyExists, err := c.indexExists(ctx, c.HistoryCfg.Name)
	if err != nil {
		return fmt.Errorf("检查搜索历史索引 '%s' 是否存在失败: %w", c.HistoryCfg.Name, err)
	}
	if !historyExists {
		c.logger.Warn("搜索历史索引不存在，将尝试创建", zap.String("index_name", c.HistoryCfg.Name))
		mapping := getSearchHistoryIndexMapping(c.shardsOrDefault(c.HistoryCfg.NumberOfShards), c.HistoryCfg.NumberOfReplicas)
		if err := c.createIndex(ctx, c.HistoryCfg.Name, mapping); err != nil {
			return err
		}
	} else {
		c.logger.Info("搜索历史索引已存在", zap.String("index_name", c.HistoryCfg.Name))
	}

	return nil
}

// RecreateListingsIndex 删除并重建版本化物理索引，随后重新绑定可写别名。
// 仅由全量重建调用：该索引是目录库的可重建投影，完全重建是可接受的。
func (c *ESClient) RecreateListingsIndex(ctx context.Context) error {
	physical := c.ListingsCfg.PhysicalName()

	exists, err := c.indexExists(ctx, physical)
	if err != nil {
		return fmt.Errorf("重建前检查列表项索引 '%s' 失败: %w", physical, err)
	}
	if exists {
		c.logger.Warn("全量重建：删除现有列表项物理索引", zap.String("physical_index", physical))
		delRes, delErr := c.Client.Indices.Delete([]string{physical}, c.Client.Indices.Delete.WithContext(ctx))
		if delErr != nil {
			return fmt.Errorf("删除列表项索引 '%s' 失败: %w", physical, delErr)
		}
		defer delRes.Body.Close()
		// 404 视为成功：目标状态（索引不存在）已达成。
		if delRes.IsError() && delRes.StatusCode != 404 {
			return fmt.Errorf("删除列表项索引 '%s' 失败, 状态码: %s", physical, delRes.Status())
		}
	}

	mapping := getListingsIndexMapping(c.shardsOrDefault(c.ListingsCfg.NumberOfShards), c.ListingsCfg.NumberOfReplicas)
	if err := c.createIndex(ctx, physical, mapping); err != nil {
		return err
	}
	if err := c.bindWriteAlias(ctx, physical); err != nil {
		return err
	}
	c.logger.Info("全量重建：列表项索引已重建并重新绑定别名",
		zap.String("physical_index", physical),
		zap.String("alias", c.ListingsCfg.Alias),
	)
	return nil
}

// FixAliasWriteIndex 修复别名背后恰好一个可写索引的不变量：
// 枚举别名当前指向的全部物理索引，对每一个重申 is_write_index 绑定
// （当前版本为 true，其余为 false）。
func (c *ESClient) FixAliasWriteIndex(ctx context.Context) error {
	alias := c.ListingsCfg.Alias
	physical := c.ListingsCfg.PhysicalName()

	res, err := c.Client.Indices.GetAlias(
		c.Client.Indices.GetAlias.WithContext(ctx),
		c.Client.Indices.GetAlias.WithName(alias),
	)
	if err != nil {
		return fmt.Errorf("查询别名 '%s' 的索引列表失败: %w", alias, err)
	}
	defer res.Body.Close()
	if res.StatusCode == 404 {
		// 别名不存在：直接绑定到当前版本即可。
		c.logger.Warn("别名不存在，将直接绑定到当前物理索引",
			zap.String("alias", alias),
			zap.String("physical_index", physical),
		)
		return c.bindWriteAlias(ctx, physical)
	}
	if res.IsError() {
		return fmt.Errorf("查询别名 '%s' 失败, 状态码: %s", alias, res.Status())
	}

	var aliasMap map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&aliasMap); err != nil {
		return fmt.Errorf("解码别名 '%s' 响应失败: %w", alias, err)
	}

	actions := make([]map[string]interface{}, 0, len(aliasMap))
	for indexName := range aliasMap {
		actions = append(actions, map[string]interface{}{
			"add": map[string]interface{}{
				"index":          indexName,
				"alias":          alias,
				"is_write_index": indexName == physical,
			},
		})
	}
	if len(actions) == 0 {
		return c.bindWriteAlias(ctx, physical)
	}

	body, err := json.Marshal(map[string]interface{}{"actions": actions})
	if err != nil {
		return fmt.Errorf("序列化别名修复请求失败: %w", err)
	}
	updRes, err := c.Client.Indices.UpdateAliases(strings.NewReader(string(body)), c.Client.Indices.UpdateAliases.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("执行别名修复请求失败: %w", err)
	}
	defer updRes.Body.Close()
	if updRes.IsError() {
		return fmt.Errorf("别名修复请求失败, 状态码: %s", updRes.Status())
	}

	c.logger.Info("别名可写索引绑定已修复",
		zap.String("alias", alias),
		zap.Int("bound_indices", len(actions)),
		zap.String("write_index", physical),
	)
	return nil
}

// Ping 做一次即时连通性探测，供健康检查使用。
func (c *ESClient) Ping(ctx context.Context) error {
	res, err := c.Client.Ping(c.Client.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch Ping 不成功: %s", res.Status())
	}
	return nil
}

// --- 内部辅助 ---

func (c *ESClient) shardsOrDefault(shards int) int {
	if shards <= 0 {
		return 1
	}
	return shards
}

func (c *ESClient) indexExists(ctx context.Context, name string) (bool, error) {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := c.Client.Indices.Exists([]string{name}, c.Client.Indices.Exists.WithContext(checkCtx))
	if err != nil {
		c.logger.Error("检查索引是否存在时发生网络或请求错误", zap.String("index_name", name), zap.Error(err))
		return false, err
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return false, nil
	}
	if res.IsError() {
		return false, fmt.Errorf("检查索引 '%s' 存在性时出错: %s", name, res.Status())
	}
	return true, nil
}

func (c *ESClient) createIndex(ctx context.Context, name, mapping string) error {
	createCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	createReq := esapi.IndicesCreateRequest{
		Index: name,
		Body:  strings.NewReader(mapping),
	}
	res, err := createReq.Do(createCtx, c.Client)
	if err != nil {
		c.logger.Error("发送创建索引请求失败", zap.String("index_name", name), zap.Error(err))
		return fmt.Errorf("发送创建索引 '%s' 请求失败: %w", name, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		var errorBody strings.Builder
		if _, readErr := io.Copy(&errorBody, res.Body); readErr != nil {
			c.logger.Error("创建索引失败，且无法读取错误响应体",
				zap.String("index_name", name),
				zap.String("status", res.Status()),
				zap.Error(readErr),
			)
		} else {
			c.logger.Error("创建索引失败",
				zap.String("index_name", name),
				zap.String("status", res.Status()),
				zap.String("raw_response", errorBody.String()),
			)
		}
		return fmt.Errorf("创建索引 '%s' 失败, 状态码: %s, 响应: %s", name, res.Status(), errorBody.String())
	}

	c.logger.Info("成功创建索引及映射", zap.String("index_name", name))
	return nil
}

// bindWriteAlias 将别名绑定到给定物理索引并标记 is_write_index。幂等。
func (c *ESClient) bindWriteAlias(ctx context.Context, physical string) error {
	body, err := json.Marshal(map[string]interface{}{
		"actions": []map[string]interface{}{
			{
				"add": map[string]interface{}{
					"index":          physical,
					"alias":          c.ListingsCfg.Alias,
					"is_write_index": true,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("序列化别名绑定请求失败: %w", err)
	}

	res, err := c.Client.Indices.UpdateAliases(strings.NewReader(string(body)), c.Client.Indices.UpdateAliases.WithContext(ctx))
	if err != nil {
		c.logger.Error("执行别名绑定请求失败",
			zap.String("alias", c.ListingsCfg.Alias),
			zap.String("physical_index", physical),
			zap.Error(err),
		)
		return fmt.Errorf("绑定别名 '%s' 到索引 '%s' 失败: %w", c.ListingsCfg.Alias, physical, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("绑定别名 '%s' 到索引 '%s' 失败, 状态码: %s", c.ListingsCfg.Alias, physical, res.Status())
	}

	c.logger.Info("别名已绑定为可写索引",
		zap.String("alias", c.ListingsCfg.Alias),
		zap.String("physical_index", physical),
	)
	return nil
}
