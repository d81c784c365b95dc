package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Xushengqwer/go-common/core"

	"github.com/Xushengqwer/listing_search/internal/models"
	"github.com/Xushengqwer/listing_search/internal/pkg/textsim"
	"github.com/Xushengqwer/listing_search/internal/repositories"

	"go.uber.org/zap"
)

// SuggestService 实现类型容错的自动补全：合并前缀补全、模糊匹配、
// 个性化搜索历史和趋势词四路信号为一个有序建议列表。
// 这是建议接口的完整后端；限流、请求合并和缓存都在这一层完成。
type SuggestService struct {
	listingRepo repositories.ListingRepository
	historyRepo repositories.HistoryRepository
	sub         *Substrate
	degraded    bool
	logger      *core.ZapLogger
}

// NewSuggestService 创建 SuggestService 的一个新实例。
func NewSuggestService(
	listingRepo repositories.ListingRepository,
	historyRepo repositories.HistoryRepository,
	sub *Substrate,
	degraded bool,
	logger *core.ZapLogger,
) *SuggestService {
	if logger == nil {
		panic("创建 SuggestService 失败：Logger 实例不能为 nil。")
	}
	if listingRepo == nil {
		logger.Fatal("创建 SuggestService 失败：ListingRepository 实例不能为 nil。")
	}
	if historyRepo == nil {
		logger.Fatal("创建 SuggestService 失败：HistoryRepository 实例不能为 nil。")
	}
	if sub == nil {
		logger.Fatal("创建 SuggestService 失败：共享基础设施 (Substrate) 不能为 nil。")
	}

	logger.Info("SuggestService 初始化成功")
	return &SuggestService{
		listingRepo: listingRepo,
		historyRepo: historyRepo,
		sub:         sub,
		degraded:    degraded,
		logger:      logger,
	}
}

// preference 是从用户最近历史提炼出的偏好：频次最高的前三个分类和地区。
// 只用于加分，从不作为过滤条件。
type preference struct {
	topCategories map[string]bool
	topLocations  map[string]bool
}

// Suggest 返回前缀的建议列表。永不返回错误：限流拒绝、降级模式
// 和任何下游故障都收敛为空列表。
func (s *SuggestService) Suggest(ctx context.Context, prefix string, identity models.Identity) []models.Suggestion {
	prefix = models.NormalizeQuery(prefix)

	// 1. 按身份限流。拒绝是静默的：这是防滥用手段，不是正确性机制。
	limitKey := "anon"
	if identity.Valid() {
		limitKey = identity.Key()
	}
	if !s.sub.Limiter.Allow("suggest:"+limitKey, s.sub.Cfg.SuggestRateLimit, s.sub.Cfg.SuggestRateWindow) {
		s.logger.Debug("建议请求被限流", zap.String("limit_key", limitKey))
		return []models.Suggestion{}
	}

	if s.degraded {
		return []models.Suggestion{}
	}

	// 2. 缓存键带前缀和身份；击键触发的重复请求经请求合并器收敛为一次计算。
	cacheKey := fmt.Sprintf("suggest:%s:%s", limitKey, prefix)
	result, err := s.sub.Dedup.Do(cacheKey, func() (interface{}, error) {
		if cached, ok := s.sub.Cache.Get(cacheKey); ok {
			if suggestions, ok := cached.([]models.Suggestion); ok {
				return suggestions, nil
			}
		}
		suggestions := s.compute(ctx, prefix, identity)
		s.sub.Cache.Set(cacheKey, suggestions, s.sub.Cfg.SuggestCacheTTL)
		return suggestions, nil
	})
	if err != nil {
		return []models.Suggestion{}
	}
	suggestions, ok := result.([]models.Suggestion)
	if !ok {
		return []models.Suggestion{}
	}
	return suggestions
}

// compute 是建议列表的实际计算路径（缓存未命中时执行一次）。
func (s *SuggestService) compute(ctx context.Context, prefix string, identity models.Identity) []models.Suggestion {
	prefixRunes := []rune(prefix)

	// 3. 空目录短路：索引里没有可见文档时，针对较长前缀直接返回空，
	// 避免对空目录产生噪音式的残缺建议。
	if len(prefixRunes) >= 2 {
		countCtx, cancel := context.WithTimeout(ctx, s.sub.Cfg.OutboundTimeout)
		activeCount, err := s.listingRepo.CountActive(countCtx)
		cancel()
		if err == nil && activeCount == 0 {
			s.logger.Debug("可见文档数为零，建议请求短路为空列表", zap.String("prefix", prefix))
			return []models.Suggestion{}
		}
	}

	// 4. 个人偏好（加分用，不过滤）。
	pref := s.loadPreference(ctx, identity)

	// 5. 趋势词查表（带缓存）。
	trendingCounts := s.loadTrendingCounts(ctx)

	// merged 以小写文本为键汇总各路候选，冲突时保留较高分。
	merged := make(map[string]*models.Suggestion)

	// 6. 前缀足够长时并行发起补全查找和模糊匹配。
	if len(prefixRunes) >= 2 {
		var completions []repositories.CompletionSuggestion
		var fuzzy []repositories.FuzzyCandidate
		var wg sync.WaitGroup
		wg.Add(2)

		go func() {
			defer wg.Done()
			lookupCtx, cancel := context.WithTimeout(ctx, s.sub.Cfg.OutboundTimeout)
			defer cancel()
			results, err := s.listingRepo.SuggestCompletions(lookupCtx, prefix, 10)
			if err != nil {
				s.logger.Warn("补全查找失败，该路信号跳过", zap.String("prefix", prefix), zap.Error(err))
				return
			}
			completions = results
		}()
		go func() {
			defer wg.Done()
			lookupCtx, cancel := context.WithTimeout(ctx, s.sub.Cfg.OutboundTimeout)
			defer cancel()
			results, err := s.listingRepo.FuzzyCandidates(lookupCtx, prefix, 5)
			if err != nil {
				s.logger.Warn("模糊候选查找失败，该路信号跳过", zap.String("prefix", prefix), zap.Error(err))
				return
			}
			fuzzy = results
		}()
		wg.Wait()

		weights := s.sub.Cfg.Suggest
		for _, c := range completions {
			text := strings.TrimSpace(c.Text)
			if text == "" {
				continue
			}
			trendingBoost := minF(weights.CompletionTrendingCap, float64(trendingCounts[strings.ToLower(text)])*weights.CompletionTrendingPerCount)
			s.mergeCandidate(merged, text, c.Score*1.2+trendingBoost, models.SuggestionTypeAutocomplete)
		}
		s.mergeFuzzyCandidates(merged, fuzzy, prefix)
	}

	// 7. 历史候选：综合评分后优先于其他信号。
	historySuggestions := s.historyCandidates(ctx, prefix, identity, pref, trendingCounts)
	for i := range historySuggestions {
		h := historySuggestions[i]
		key := strings.ToLower(h.Text)
		if existing, ok := merged[key]; ok {
			// 已有同文本候选：抬分并强制归类为历史来源。
			if h.Score > existing.Score {
				existing.Score = h.Score
			}
			existing.Type = models.SuggestionTypeHistory
		} else {
			merged[key] = &models.Suggestion{Text: h.Text, Score: h.Score, Type: models.SuggestionTypeHistory}
		}
	}

	// 8. 最终排序：历史候选整体在前（内部按分数降序），其余按分数降序，截断到 10。
	final := make([]models.Suggestion, 0, len(merged))
	for _, cand := range merged {
		final = append(final, *cand)
	}
	sort.SliceStable(final, func(i, j int) bool {
		iHistory := final[i].Type == models.SuggestionTypeHistory
		jHistory := final[j].Type == models.SuggestionTypeHistory
		if iHistory != jHistory {
			return iHistory
		}
		return final[i].Score > final[j].Score
	})
	if len(final) > 10 {
		final = final[:10]
	}

	s.logger.Debug("建议计算完成",
		zap.String("prefix", prefix),
		zap.Int("suggestion_count", len(final)),
	)
	return final
}

// mergeCandidate 把一个候选并入集合，同文本（忽略大小写）保留较高分。
func (s *SuggestService) mergeCandidate(merged map[string]*models.Suggestion, text string, score float64, typ models.SuggestionType) {
	key := strings.ToLower(text)
	if existing, ok := merged[key]; ok {
		if score > existing.Score {
			existing.Score = score
		}
		return
	}
	merged[key] = &models.Suggestion{Text: text, Score: score, Type: typ}
}

// mergeFuzzyCandidates 从模糊匹配的文档里抽取候选词：
// 与前缀对齐的单词得 1.5 倍文档分，仅包含前缀的单词得原始文档分，
// 整个标题命中得 1.2 倍文档分。
func (s *SuggestService) mergeFuzzyCandidates(merged map[string]*models.Suggestion, fuzzy []repositories.FuzzyCandidate, prefix string) {
	lowerPrefix := strings.ToLower(prefix)
	for _, doc := range fuzzy {
		for _, field := range []string{doc.Title, doc.CategoryName} {
			for _, word := range strings.Fields(field) {
				lowerWord := strings.ToLower(word)
				if strings.HasPrefix(lowerWord, lowerPrefix) {
					s.mergeCandidate(merged, word, doc.Score*1.5, models.SuggestionTypeAutocomplete)
				} else if strings.Contains(lowerWord, lowerPrefix) {
					s.mergeCandidate(merged, word, doc.Score, models.SuggestionTypeAutocomplete)
				}
			}
		}
		title := strings.TrimSpace(doc.Title)
		if title != "" && strings.Contains(strings.ToLower(title), lowerPrefix) {
			s.mergeCandidate(merged, title, doc.Score*1.2, models.SuggestionTypeAutocomplete)
		}
	}
}

// loadPreference 从最近 50 条历史提炼频次最高的前三个分类和地区。
func (s *SuggestService) loadPreference(ctx context.Context, identity models.Identity) preference {
	pref := preference{
		topCategories: map[string]bool{},
		topLocations:  map[string]bool{},
	}
	if !identity.Valid() {
		return pref
	}

	historyCtx, cancel := context.WithTimeout(ctx, s.sub.Cfg.OutboundTimeout)
	defer cancel()

	records, err := s.historyRepo.History(historyCtx, identity, 50)
	if err != nil {
		s.logger.Debug("读取偏好历史失败，建议不带个性化加分",
			zap.String("identity_key", identity.Key()),
			zap.Error(err),
		)
		return pref
	}

	categoryCounts := map[string]int{}
	locationCounts := map[string]int{}
	for _, record := range records {
		if record.CategoryID != "" {
			categoryCounts[record.CategoryID]++
		}
		if record.LocationID != "" {
			locationCounts[record.LocationID]++
		}
	}
	for _, id := range topNByCount(categoryCounts, 3) {
		pref.topCategories[id] = true
	}
	for _, id := range topNByCount(locationCounts, 3) {
		pref.topLocations[id] = true
	}
	return pref
}

// loadTrendingCounts 返回趋势词到出现次数的查表（带缓存）。
func (s *SuggestService) loadTrendingCounts(ctx context.Context) map[string]int64 {
	const cacheKey = "trending-terms:lookup"
	if cached, ok := s.sub.Cache.Get(cacheKey); ok {
		if counts, ok := cached.(map[string]int64); ok {
			return counts
		}
	}

	termsCtx, cancel := context.WithTimeout(ctx, s.sub.Cfg.OutboundTimeout)
	defer cancel()

	terms, err := s.historyRepo.TrendingTerms(termsCtx, 20, s.sub.Cfg.TrendingLookback)
	if err != nil {
		s.logger.Debug("趋势词聚合失败，建议不带趋势加分", zap.Error(err))
		return map[string]int64{}
	}

	counts := make(map[string]int64, len(terms))
	for _, term := range terms {
		counts[strings.ToLower(term.Text)] = term.Count
	}
	s.sub.Cache.Set(cacheKey, counts, s.sub.Cfg.TrendingTermsCacheTTL)
	return counts
}

// historyCandidates 为每条非空历史查询计算综合评分并返回前 8 条候选。
// 前缀非空时过滤掉低于入选门槛的候选；前缀为空时不过滤（纯历史回显）。
func (s *SuggestService) historyCandidates(
	ctx context.Context,
	prefix string,
	identity models.Identity,
	pref preference,
	trendingCounts map[string]int64,
) []models.Suggestion {
	if !identity.Valid() {
		return nil
	}

	historyCtx, cancel := context.WithTimeout(ctx, s.sub.Cfg.OutboundTimeout)
	defer cancel()

	records, err := s.historyRepo.History(historyCtx, identity, 15)
	if err != nil {
		s.logger.Debug("读取历史候选失败，该路信号跳过",
			zap.String("identity_key", identity.Key()),
			zap.Error(err),
		)
		return nil
	}

	weights := s.sub.Cfg.Suggest
	now := time.Now().UTC()
	var candidates []models.Suggestion

	for _, record := range records {
		query := strings.TrimSpace(record.Query)
		if query == "" {
			continue
		}

		daysSince := now.Sub(record.Timestamp).Hours() / 24
		recencyScore := maxF(0, 100-daysSince*weights.RecencyDecayPerDay)
		resultScore := minF(weights.ResultScoreCap, float64(record.ResultCount)/5)

		var similarityScore float64
		if prefix == "" {
			// 前缀为空时没有可比对的文本，相似度分量退化为再计一次新近度。
			similarityScore = recencyScore
		} else if strings.HasPrefix(query, prefix) {
			similarityScore = weights.PrefixMatchScore
		} else if strings.Contains(query, prefix) {
			similarityScore = weights.ContainsMatchScore
		} else {
			similarityScore = textsim.JaroWinkler(prefix, query) * weights.SimilarityFactor
		}

		engagementScore := float64(len(record.ClickedResults)) * weights.ClickScore
		if record.Converted {
			engagementScore += 20
		}
		engagementScore = minF(weights.EngagementCap, engagementScore)

		frequencyScore := minF(weights.FrequencyCap, float64(record.SearchCount)*5)

		var personalizationBoost float64
		if record.CategoryID != "" && pref.topCategories[record.CategoryID] {
			personalizationBoost += weights.CategoryBoost
		}
		if record.LocationID != "" && pref.topLocations[record.LocationID] {
			personalizationBoost += weights.LocationBoost
		}

		var trendingBoost float64
		if count, ok := trendingCounts[strings.ToLower(query)]; ok {
			trendingBoost = minF(weights.TrendingBoostCap, float64(count)*3)
		}

		score := recencyScore + resultScore + similarityScore + engagementScore + frequencyScore + personalizationBoost + trendingBoost
		if prefix != "" && score <= weights.MinHistoryScore {
			continue
		}

		candidates = append(candidates, models.Suggestion{
			Text:  query,
			Score: score,
			Type:  models.SuggestionTypeHistory,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > 8 {
		candidates = candidates[:8]
	}
	return candidates
}

// topNByCount 按计数降序返回前 n 个键；计数相同按键名升序保证确定性。
func topNByCount(counts map[string]int, n int) []string {
	type entry struct {
		key   string
		count int
	}
	entries := make([]entry, 0, len(counts))
	for key, count := range counts {
		entries = append(entries, entry{key, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].key < entries[j].key
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	result := make([]string, 0, len(entries))
	for _, e := range entries {
		result = append(result, e.key)
	}
	return result
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
