package config

import "time"

// EngineConfig 汇集搜索与推荐引擎的全部可调参数。
// 这些数值（合并窗口、衰减速率、各项上限等）来自线上调优经验，没有理论推导；
// 因此以具名配置的形式暴露，允许按环境覆盖，而不是散落在代码里的魔法数字。
type EngineConfig struct {
	// HistoryCoalesceWindow 是搜索历史合并窗口：同一标识在窗口内重复同一
	// 规范化查询时更新既有记录而非新建。
	HistoryCoalesceWindow time.Duration `mapstructure:"historyCoalesceWindow" json:"historyCoalesceWindow" yaml:"historyCoalesceWindow"`

	// TrendingLookback 是趋势词聚合的回看窗口。
	TrendingLookback time.Duration `mapstructure:"trendingLookback" json:"trendingLookback" yaml:"trendingLookback"`

	// --- 缓存 TTL ---
	SuggestCacheTTL       time.Duration `mapstructure:"suggestCacheTTL" json:"suggestCacheTTL" yaml:"suggestCacheTTL"`             // 自动补全结果
	TrendingTermsCacheTTL time.Duration `mapstructure:"trendingTermsCacheTTL" json:"trendingTermsCacheTTL" yaml:"trendingTermsCacheTTL"` // 趋势词聚合
	PopularCacheTTL       time.Duration `mapstructure:"popularCacheTTL" json:"popularCacheTTL" yaml:"popularCacheTTL"`             // 热门商品
	TrendingCacheTTL      time.Duration `mapstructure:"trendingCacheTTL" json:"trendingCacheTTL" yaml:"trendingCacheTTL"`          // 趋势商品
	HistoryCacheTTL       time.Duration `mapstructure:"historyCacheTTL" json:"historyCacheTTL" yaml:"historyCacheTTL"`             // 历史读取

	// --- 去重与限流 ---
	DedupGracePeriod      time.Duration `mapstructure:"dedupGracePeriod" json:"dedupGracePeriod" yaml:"dedupGracePeriod"`                // 去重键完成后的保留窗口
	SuggestRateLimit      int           `mapstructure:"suggestRateLimit" json:"suggestRateLimit" yaml:"suggestRateLimit"`                // 每窗口允许的建议请求数
	SuggestRateWindow     time.Duration `mapstructure:"suggestRateWindow" json:"suggestRateWindow" yaml:"suggestRateWindow"`             // 固定限流窗口时长
	OutboundTimeout       time.Duration `mapstructure:"outboundTimeout" json:"outboundTimeout" yaml:"outboundTimeout"`                   // 对索引的单次出站调用超时
	RecommendationLookback time.Duration `mapstructure:"recommendationLookback" json:"recommendationLookback" yaml:"recommendationLookback"` // 推荐采样历史的回看窗口

	// --- 建议评分权重（见 SuggestWeights 字段注释） ---
	Suggest SuggestWeights `mapstructure:"suggest" json:"suggest" yaml:"suggest"`
}

// SuggestWeights 是建议引擎历史候选综合评分的各分量权重与上限。
type SuggestWeights struct {
	RecencyDecayPerDay float64 `mapstructure:"recencyDecayPerDay" json:"recencyDecayPerDay" yaml:"recencyDecayPerDay"` // 每日衰减量，recency = max(0, 100 - days*decay)
	ResultScoreCap     float64 `mapstructure:"resultScoreCap" json:"resultScoreCap" yaml:"resultScoreCap"`             // resultCount/5 的上限
	PrefixMatchScore   float64 `mapstructure:"prefixMatchScore" json:"prefixMatchScore" yaml:"prefixMatchScore"`       // 历史查询以前缀开头
	ContainsMatchScore float64 `mapstructure:"containsMatchScore" json:"containsMatchScore" yaml:"containsMatchScore"` // 历史查询包含前缀
	SimilarityFactor   float64 `mapstructure:"similarityFactor" json:"similarityFactor" yaml:"similarityFactor"`       // Jaro-Winkler 相似度的放大系数
	EngagementCap      float64 `mapstructure:"engagementCap" json:"engagementCap" yaml:"engagementCap"`                // 参与度分量上限
	FrequencyCap       float64 `mapstructure:"frequencyCap" json:"frequencyCap" yaml:"frequencyCap"`                   // 频次分量上限
	ClickScore         float64 `mapstructure:"clickScore" json:"clickScore" yaml:"clickScore"`                         // 每次点击的参与度加分
	CategoryBoost      float64 `mapstructure:"categoryBoost" json:"categoryBoost" yaml:"categoryBoost"`                // 命中偏好分类的加分
	LocationBoost      float64 `mapstructure:"locationBoost" json:"locationBoost" yaml:"locationBoost"`                // 命中偏好地区的加分
	TrendingBoostCap   float64 `mapstructure:"trendingBoostCap" json:"trendingBoostCap" yaml:"trendingBoostCap"`       // 历史候选趋势加分上限
	MinHistoryScore    float64 `mapstructure:"minHistoryScore" json:"minHistoryScore" yaml:"minHistoryScore"`          // 前缀非空时历史候选的入选门槛

	// 补全候选（非历史路径）的趋势加分：min(cap, 出现次数 * perCount)。
	CompletionTrendingPerCount float64 `mapstructure:"completionTrendingPerCount" json:"completionTrendingPerCount" yaml:"completionTrendingPerCount"`
	CompletionTrendingCap      float64 `mapstructure:"completionTrendingCap" json:"completionTrendingCap" yaml:"completionTrendingCap"`
}

// DefaultEngineConfig 返回与线上既有行为一致的默认参数。
// 配置文件中任何字段为零值时，用这里的默认值补齐。
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		HistoryCoalesceWindow:  5 * time.Minute,
		TrendingLookback:       30 * 24 * time.Hour,
		SuggestCacheTTL:        time.Minute,
		TrendingTermsCacheTTL:  5 * time.Minute,
		PopularCacheTTL:        15 * time.Minute,
		TrendingCacheTTL:       10 * time.Minute,
		HistoryCacheTTL:        time.Minute,
		DedupGracePeriod:       100 * time.Millisecond,
		SuggestRateLimit:       30,
		SuggestRateWindow:      10 * time.Second,
		OutboundTimeout:        3 * time.Second,
		RecommendationLookback: 30 * 24 * time.Hour,
		Suggest: SuggestWeights{
			RecencyDecayPerDay: 3,
			ResultScoreCap:     30,
			PrefixMatchScore:   150,
			ContainsMatchScore: 80,
			SimilarityFactor:   50,
			EngagementCap:      40,
			FrequencyCap:       30,
			ClickScore:         5,
			CategoryBoost:      25,
			LocationBoost:      15,
			TrendingBoostCap:   30,
			MinHistoryScore:    50,

			CompletionTrendingPerCount: 5,
			CompletionTrendingCap:      50,
		},
	}
}

// ApplyDefaults 用默认值补齐未设置的字段。
func (c *EngineConfig) ApplyDefaults() {
	def := DefaultEngineConfig()
	if c.HistoryCoalesceWindow <= 0 {
		c.HistoryCoalesceWindow = def.HistoryCoalesceWindow
	}
	if c.TrendingLookback <= 0 {
		c.TrendingLookback = def.TrendingLookback
	}
	if c.SuggestCacheTTL <= 0 {
		c.SuggestCacheTTL = def.SuggestCacheTTL
	}
	if c.TrendingTermsCacheTTL <= 0 {
		c.TrendingTermsCacheTTL = def.TrendingTermsCacheTTL
	}
	if c.PopularCacheTTL <= 0 {
		c.PopularCacheTTL = def.PopularCacheTTL
	}
	if c.TrendingCacheTTL <= 0 {
		c.TrendingCacheTTL = def.TrendingCacheTTL
	}
	if c.HistoryCacheTTL <= 0 {
		c.HistoryCacheTTL = def.HistoryCacheTTL
	}
	if c.DedupGracePeriod <= 0 {
		c.DedupGracePeriod = def.DedupGracePeriod
	}
	if c.SuggestRateLimit <= 0 {
		c.SuggestRateLimit = def.SuggestRateLimit
	}
	if c.SuggestRateWindow <= 0 {
		c.SuggestRateWindow = def.SuggestRateWindow
	}
	if c.OutboundTimeout <= 0 {
		c.OutboundTimeout = def.OutboundTimeout
	}
	if c.RecommendationLookback <= 0 {
		c.RecommendationLookback = def.RecommendationLookback
	}
	if c.Suggest == (SuggestWeights{}) {
		c.Suggest = def.Suggest
	}
}
