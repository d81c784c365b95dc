package service

import (
	"github.com/Xushengqwer/listing_search/config"
	"github.com/Xushengqwer/listing_search/internal/pkg/cache"
	"github.com/Xushengqwer/listing_search/internal/pkg/dedup"
	"github.com/Xushengqwer/listing_search/internal/pkg/ratelimit"
)

// Substrate 聚合各服务共享的进程内基础设施：缓存、请求合并器、限流器，
// 以及引擎的可调参数。它由服务实例持有、随实例生命周期创建和销毁，
// 而不是进程级单例——测试可以为每个用例构造隔离的实例。
type Substrate struct {
	Cache   *cache.Cache
	Dedup   *dedup.Deduplicator
	Limiter *ratelimit.Limiter
	Cfg     config.EngineConfig
}

// NewSubstrate 按给定的引擎配置构造一套共享基础设施。
// 配置中的零值字段会被填充为默认值。
func NewSubstrate(cfg config.EngineConfig) *Substrate {
	cfg.ApplyDefaults()
	return &Substrate{
		Cache:   cache.New(),
		Dedup:   dedup.New(cfg.DedupGracePeriod),
		Limiter: ratelimit.New(),
		Cfg:     cfg,
	}
}
