package config

import "github.com/Xushengqwer/go-common/config"

// ListingSearchConfig 是服务的顶层配置，由 core.LoadConfig 从 YAML 加载。
type ListingSearchConfig struct {
	Server              config.ServerConfig `mapstructure:"server" json:"server" yaml:"server"`
	ZapConfig           config.ZapConfig    `mapstructure:"zapConfig" json:"zapConfig" yaml:"zapConfig"`
	TracerConfig        config.TracerConfig `mapstructure:"tracerConfig" json:"tracerConfig" yaml:"tracerConfig"`
	KafkaConfig         KafkaConfig         `mapstructure:"kafkaConfig" json:"kafkaConfig" yaml:"kafkaConfig"`
	ElasticsearchConfig ESConfig            `mapstructure:"elasticsearchConfig" json:"elasticsearchConfig" yaml:"elasticsearchConfig"`
	EngineConfig        EngineConfig        `mapstructure:"engineConfig" json:"engineConfig" yaml:"engineConfig"`
	CatalogConfig       CatalogConfig       `mapstructure:"catalogConfig" json:"catalogConfig" yaml:"catalogConfig"`
}
