package config

import (
	"fmt"
	"time"
)

// IndexSpecificConfig 定义单个 Elasticsearch 索引的特定配置，如分片和副本数。
type IndexSpecificConfig struct {
	Name             string `mapstructure:"name" json:"name" yaml:"name"`                                     // 索引（或别名解析目标）的逻辑名称
	NumberOfShards   int    `mapstructure:"numberOfShards" json:"numberOfShards" yaml:"numberOfShards"`       // 主分片数量
	NumberOfReplicas int    `mapstructure:"numberOfReplicas" json:"numberOfReplicas" yaml:"numberOfReplicas"` // 每个主分片的副本数量
}

// ListingsIndexConfig 描述列表项索引的版本化布局：
// 物理索引名为 "<alias>_v<version>"，稳定别名 alias 始终指向当前可写索引。
// 读写流量一律通过别名，只有全量重建时由生命周期管理器直接操作物理索引。
type ListingsIndexConfig struct {
	Alias            string `mapstructure:"alias" json:"alias" yaml:"alias"`                                  // 稳定别名，例如 "listings"
	Version          int    `mapstructure:"version" json:"version" yaml:"version"`                            // 当前映射代号，构成物理索引名
	NumberOfShards   int    `mapstructure:"numberOfShards" json:"numberOfShards" yaml:"numberOfShards"`       // 主分片数量
	NumberOfReplicas int    `mapstructure:"numberOfReplicas" json:"numberOfReplicas" yaml:"numberOfReplicas"` // 副本数量
}

// PhysicalName 返回当前版本的物理索引名。
func (c ListingsIndexConfig) PhysicalName() string {
	version := c.Version
	if version <= 0 {
		version = 1
	}
	return fmt.Sprintf("%s_v%d", c.Alias, version)
}

// ESConfig 定义 Elasticsearch 的连接和索引配置。
type ESConfig struct {
	Addresses []string `mapstructure:"addresses" json:"addresses" yaml:"addresses"`
	Username  string   `mapstructure:"username" json:"username" yaml:"username"`
	Password  string   `mapstructure:"password" json:"password" yaml:"password"`

	// 启动时连接检查的重试配置：固定间隔，最多 ConnectMaxRetries 次；
	// 全部失败后服务以降级模式继续运行（搜索类读操作返回空结果）。
	ConnectMaxRetries uint64        `mapstructure:"connectMaxRetries" json:"connectMaxRetries" yaml:"connectMaxRetries"`
	ConnectRetryDelay time.Duration `mapstructure:"connectRetryDelay" json:"connectRetryDelay" yaml:"connectRetryDelay"`

	// 列表项索引（版本化 + 别名）的配置。
	ListingsIndex ListingsIndexConfig `mapstructure:"listingsIndex" json:"listingsIndex" yaml:"listingsIndex"`

	// 搜索历史索引的配置（单代，无别名）。
	HistoryIndex IndexSpecificConfig `mapstructure:"historyIndex" json:"historyIndex" yaml:"historyIndex"`
}
