package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Xushengqwer/go-common/core"
	"github.com/Xushengqwer/listing_search/config"
	"github.com/Xushengqwer/listing_search/internal/models"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Client 定义搜索服务对商品目录服务（listings/categories 的权威数据源）的依赖。
// 接口化便于在服务层测试中用桩实现替换真实 HTTP 调用。
type Client interface {
	// ExpandCategory 将一个分类 ID 展开为它自身及全部子孙分类的 ID 列表。
	// 分类树由目录服务维护，搜索服务不持有层级关系。
	// 返回空切片表示该分类下没有可检索的分类（调用方应短路为空结果）。
	ExpandCategory(ctx context.Context, categoryID string) ([]string, error)

	// FetchAllListings 分页拉取目录服务中的全部列表项，用于全量重建索引。
	// 索引只是目录库的投影，重建时以目录服务为准。
	FetchAllListings(ctx context.Context) ([]models.ListingPayload, error)
}

// httpClient 是 Client 的 HTTP 实现，调用目录服务的内部接口。
type httpClient struct {
	baseURL string
	client  *http.Client
	logger  *core.ZapLogger
}

// NewHTTPClient 创建目录服务的 HTTP 客户端。
// 出站请求经 otelhttp 包装以延续调用链追踪。
func NewHTTPClient(cfg config.CatalogConfig, logger *core.ZapLogger) Client {
	if logger == nil {
		panic("创建目录服务客户端失败：Logger 实例不能为 nil")
	}
	if cfg.BaseURL == "" {
		logger.Fatal("创建目录服务客户端失败：未配置目录服务地址 (catalog.baseURL)")
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	logger.Info("目录服务客户端初始化成功",
		zap.String("base_url", cfg.BaseURL),
		zap.Duration("request_timeout", timeout),
	)
	return &httpClient{
		baseURL: cfg.BaseURL,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

// expandCategoryResponse 是目录服务分类展开接口的响应体。
type expandCategoryResponse struct {
	CategoryIDs []string `json:"categoryIds"`
}

func (c *httpClient) ExpandCategory(ctx context.Context, categoryID string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/internal/categories/%s/descendants", c.baseURL, url.PathEscape(categoryID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("构建分类展开请求失败 (分类ID: %s): %w", categoryID, err)
	}

	res, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("调用目录服务展开分类失败",
			zap.String("category_id", categoryID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("调用目录服务展开分类 (ID: %s) 失败: %w", categoryID, err)
	}
	defer res.Body.Close()

	// 目录服务不认识该分类时返回 404：对搜索而言等价于"该分类下没有东西"，
	// 展开为空列表而不是错误，让调用方短路为空结果。
	if res.StatusCode == http.StatusNotFound {
		c.logger.Warn("目录服务未找到请求的分类，按空展开处理",
			zap.String("category_id", categoryID),
		)
		return []string{}, nil
	}
	if res.StatusCode != http.StatusOK {
		c.logger.Error("目录服务展开分类返回非预期状态码",
			zap.String("category_id", categoryID),
			zap.Int("status_code", res.StatusCode),
		)
		return nil, fmt.Errorf("目录服务展开分类 (ID: %s) 返回状态码 %d", categoryID, res.StatusCode)
	}

	var body expandCategoryResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("解码目录服务分类展开响应失败 (分类ID: %s): %w", categoryID, err)
	}

	c.logger.Debug("分类展开成功",
		zap.String("category_id", categoryID),
		zap.Int("expanded_count", len(body.CategoryIDs)),
	)
	return body.CategoryIDs, nil
}

// listListingsResponse 是目录服务列表项导出接口的分页响应体。
type listListingsResponse struct {
	Listings []models.ListingPayload `json:"listings"`
	Total    int                     `json:"total"`
}

func (c *httpClient) FetchAllListings(ctx context.Context) ([]models.ListingPayload, error) {
	const pageSize = 500

	var all []models.ListingPayload
	offset := 0
	for {
		endpoint := fmt.Sprintf("%s/internal/listings?offset=%d&limit=%d", c.baseURL, offset, pageSize)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("构建列表项导出请求失败 (offset: %d): %w", offset, err)
		}

		res, err := c.client.Do(req)
		if err != nil {
			c.logger.Error("调用目录服务导出列表项失败",
				zap.Int("offset", offset),
				zap.Error(err),
			)
			return nil, fmt.Errorf("调用目录服务导出列表项 (offset: %d) 失败: %w", offset, err)
		}

		if res.StatusCode != http.StatusOK {
			res.Body.Close()
			return nil, fmt.Errorf("目录服务导出列表项 (offset: %d) 返回状态码 %d", offset, res.StatusCode)
		}

		var page listListingsResponse
		decodeErr := json.NewDecoder(res.Body).Decode(&page)
		res.Body.Close()
		if decodeErr != nil {
			return nil, fmt.Errorf("解码目录服务列表项导出响应失败 (offset: %d): %w", offset, decodeErr)
		}

		all = append(all, page.Listings...)
		if len(page.Listings) < pageSize {
			break
		}
		offset += pageSize
	}

	c.logger.Info("从目录服务导出全部列表项完成", zap.Int("total_listings", len(all)))
	return all, nil
}
