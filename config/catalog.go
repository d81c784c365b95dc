package config

import "time"

// CatalogConfig 定义目录服务 (Catalog Store) 的访问配置。
// 本服务只消费其分类层级展开接口，展开失败时按原始分类 ID 降级过滤。
type CatalogConfig struct {
	BaseURL        string        `mapstructure:"baseURL" json:"baseURL" yaml:"baseURL"`                      // 例如 http://catalog-service:8080
	RequestTimeout time.Duration `mapstructure:"requestTimeout" json:"requestTimeout" yaml:"requestTimeout"` // 单次展开请求的超时
}
