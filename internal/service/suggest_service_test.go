package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Xushengqwer/listing_search/internal/models"
	"github.com/Xushengqwer/listing_search/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSuggestService(t *testing.T, listingRepo *stubListingRepository, historyRepo *stubHistoryRepository, degraded bool) *SuggestService {
	t.Helper()
	return NewSuggestService(listingRepo, historyRepo, testSubstrate(), degraded, testLogger(t))
}

func TestSuggestDegradedReturnsEmpty(t *testing.T) {
	svc := newSuggestService(t, &stubListingRepository{}, &stubHistoryRepository{}, true)

	got := svc.Suggest(context.Background(), "bike", models.Identity{UserID: "u1"})
	assert.Empty(t, got)
}

func TestSuggestRateLimitStopsRepoCalls(t *testing.T) {
	countCalls := 0
	listingRepo := &stubListingRepository{
		countFn: func(ctx context.Context) (int64, error) {
			countCalls++
			return 10, nil
		},
	}
	svc := newSuggestService(t, listingRepo, &stubHistoryRepository{}, false)
	svc.sub.Cfg.SuggestRateLimit = 1

	svc.Suggest(context.Background(), "bike one", models.Identity{UserID: "u1"})
	callsAfterFirst := countCalls

	// 同身份窗口内的第二次请求被限流，不再触达仓库。
	got := svc.Suggest(context.Background(), "bike two", models.Identity{UserID: "u1"})
	assert.Empty(t, got)
	assert.Equal(t, callsAfterFirst, countCalls)
}

func TestSuggestEmptyCatalogShortCircuits(t *testing.T) {
	completionCalled := false
	listingRepo := &stubListingRepository{
		countFn: func(ctx context.Context) (int64, error) { return 0, nil },
		completionsFn: func(ctx context.Context, prefix string, size int) ([]repositories.CompletionSuggestion, error) {
			completionCalled = true
			return nil, nil
		},
	}
	svc := newSuggestService(t, listingRepo, &stubHistoryRepository{}, false)

	got := svc.Suggest(context.Background(), "bike", models.Identity{SessionID: "s1"})
	assert.Empty(t, got)
	assert.False(t, completionCalled)
}

func TestSuggestCompletionScoringWithTrendingBoost(t *testing.T) {
	listingRepo := &stubListingRepository{
		completionsFn: func(ctx context.Context, prefix string, size int) ([]repositories.CompletionSuggestion, error) {
			return []repositories.CompletionSuggestion{{Text: "bike", Score: 10}}, nil
		},
	}
	historyRepo := &stubHistoryRepository{
		trendingFn: func(ctx context.Context, limit int, lookback time.Duration) ([]models.TrendingTerm, error) {
			return []models.TrendingTerm{{Text: "bike", Count: 4}}, nil
		},
	}
	svc := newSuggestService(t, listingRepo, historyRepo, false)

	got := svc.Suggest(context.Background(), "bik", models.Identity{SessionID: "s1"})
	require.Len(t, got, 1)
	assert.Equal(t, "bike", got[0].Text)
	assert.Equal(t, models.SuggestionTypeAutocomplete, got[0].Type)
	// score*1.2 + min(50, count*5) = 10*1.2 + 20
	assert.InDelta(t, 32.0, got[0].Score, 1e-9)
}

func TestSuggestTrendingBoostIsCapped(t *testing.T) {
	listingRepo := &stubListingRepository{
		completionsFn: func(ctx context.Context, prefix string, size int) ([]repositories.CompletionSuggestion, error) {
			return []repositories.CompletionSuggestion{{Text: "bike", Score: 10}}, nil
		},
	}
	historyRepo := &stubHistoryRepository{
		trendingFn: func(ctx context.Context, limit int, lookback time.Duration) ([]models.TrendingTerm, error) {
			return []models.TrendingTerm{{Text: "bike", Count: 1000}}, nil
		},
	}
	svc := newSuggestService(t, listingRepo, historyRepo, false)

	got := svc.Suggest(context.Background(), "bik", models.Identity{SessionID: "s1"})
	require.Len(t, got, 1)
	// 趋势加分最多 50。
	assert.InDelta(t, 62.0, got[0].Score, 1e-9)
}

func TestSuggestFuzzyWordExtraction(t *testing.T) {
	listingRepo := &stubListingRepository{
		fuzzyFn: func(ctx context.Context, prefix string, size int) ([]repositories.FuzzyCandidate, error) {
			return []repositories.FuzzyCandidate{{Title: "Mountain Bike", CategoryName: "", Score: 10}}, nil
		},
	}
	svc := newSuggestService(t, listingRepo, &stubHistoryRepository{}, false)

	got := svc.Suggest(context.Background(), "bik", models.Identity{SessionID: "s1"})

	byText := map[string]models.Suggestion{}
	for _, sugg := range got {
		byText[sugg.Text] = sugg
	}

	// 前缀对齐的单词得 1.5 倍文档分。
	require.Contains(t, byText, "Bike")
	assert.InDelta(t, 15.0, byText["Bike"].Score, 1e-9)

	// 包含前缀的完整标题得 1.2 倍文档分。
	require.Contains(t, byText, "Mountain Bike")
	assert.InDelta(t, 12.0, byText["Mountain Bike"].Score, 1e-9)

	// 与前缀无关的单词不进入候选。
	assert.NotContains(t, byText, "Mountain")
}

func TestSuggestHistoryCompositeScore(t *testing.T) {
	now := time.Now().UTC()
	historyRepo := &stubHistoryRepository{
		historyFn: func(ctx context.Context, identity models.Identity, limit int) ([]models.SearchHistoryDocument, error) {
			return []models.SearchHistoryDocument{{
				Query:          "iphone",
				Timestamp:      now,
				ResultCount:    100,
				SearchCount:    2,
				ClickedResults: []string{"l1", "l2"},
				Converted:      true,
			}}, nil
		},
		trendingFn: func(ctx context.Context, limit int, lookback time.Duration) ([]models.TrendingTerm, error) {
			return []models.TrendingTerm{{Text: "iphone", Count: 10}}, nil
		},
	}
	svc := newSuggestService(t, &stubListingRepository{}, historyRepo, false)

	got := svc.Suggest(context.Background(), "ip", models.Identity{UserID: "u1"})
	require.Len(t, got, 1)
	assert.Equal(t, models.SuggestionTypeHistory, got[0].Type)
	// recency(≈100) + result(min(30,20)=20) + prefix(150) + engagement(2*5+20=30)
	// + frequency(2*5=10) + trending(min(30,30)=30) = 340
	assert.InDelta(t, 340.0, got[0].Score, 0.5)
}

func TestSuggestHistoryBelowThresholdFiltered(t *testing.T) {
	// 一条很旧、无互动、与前缀毫无相似的记录：综合分低于入选门槛。
	historyRepo := &stubHistoryRepository{
		historyFn: func(ctx context.Context, identity models.Identity, limit int) ([]models.SearchHistoryDocument, error) {
			return []models.SearchHistoryDocument{{
				Query:       "zzzz",
				Timestamp:   time.Now().UTC().AddDate(0, 0, -40),
				ResultCount: 0,
				SearchCount: 1,
			}}, nil
		},
	}
	svc := newSuggestService(t, &stubListingRepository{}, historyRepo, false)

	got := svc.Suggest(context.Background(), "ip", models.Identity{UserID: "u1"})
	assert.Empty(t, got)
}

func TestSuggestEmptyPrefixReturnsHistoryOnly(t *testing.T) {
	completionCalled := false
	listingRepo := &stubListingRepository{
		completionsFn: func(ctx context.Context, prefix string, size int) ([]repositories.CompletionSuggestion, error) {
			completionCalled = true
			return nil, nil
		},
	}
	historyRepo := &stubHistoryRepository{
		historyFn: func(ctx context.Context, identity models.Identity, limit int) ([]models.SearchHistoryDocument, error) {
			return []models.SearchHistoryDocument{
				{Query: "bike", Timestamp: time.Now().UTC(), SearchCount: 1},
				{Query: "desk", Timestamp: time.Now().UTC().AddDate(0, 0, -5), SearchCount: 1},
			}, nil
		},
	}
	svc := newSuggestService(t, listingRepo, historyRepo, false)

	got := svc.Suggest(context.Background(), "", models.Identity{UserID: "u1"})
	require.Len(t, got, 2)
	for _, sugg := range got {
		assert.Equal(t, models.SuggestionTypeHistory, sugg.Type)
	}
	// 空前缀不触发补全/模糊信号。
	assert.False(t, completionCalled)
	// 新近的记录分更高，排在前面。
	assert.Equal(t, "bike", got[0].Text)
}

func TestSuggestHistoryEntriesComeFirst(t *testing.T) {
	listingRepo := &stubListingRepository{
		completionsFn: func(ctx context.Context, prefix string, size int) ([]repositories.CompletionSuggestion, error) {
			// 高分的补全候选。
			return []repositories.CompletionSuggestion{{Text: "bike rack deluxe", Score: 500}}, nil
		},
	}
	historyRepo := &stubHistoryRepository{
		historyFn: func(ctx context.Context, identity models.Identity, limit int) ([]models.SearchHistoryDocument, error) {
			return []models.SearchHistoryDocument{
				{Query: "bike", Timestamp: time.Now().UTC(), SearchCount: 1},
			}, nil
		},
	}
	svc := newSuggestService(t, listingRepo, historyRepo, false)

	got := svc.Suggest(context.Background(), "bik", models.Identity{UserID: "u1"})
	require.GreaterOrEqual(t, len(got), 2)
	// 历史建议整体排在非历史建议之前，即使后者分数更高。
	assert.Equal(t, models.SuggestionTypeHistory, got[0].Type)
	assert.Equal(t, "bike", got[0].Text)
}

func TestSuggestTruncatesToTen(t *testing.T) {
	listingRepo := &stubListingRepository{
		completionsFn: func(ctx context.Context, prefix string, size int) ([]repositories.CompletionSuggestion, error) {
			var out []repositories.CompletionSuggestion
			for i := 0; i < 20; i++ {
				out = append(out, repositories.CompletionSuggestion{Text: fmt.Sprintf("bike %d", i), Score: float64(i)})
			}
			return out, nil
		},
	}
	svc := newSuggestService(t, listingRepo, &stubHistoryRepository{}, false)

	got := svc.Suggest(context.Background(), "bik", models.Identity{SessionID: "s1"})
	assert.Len(t, got, 10)
}

func TestSuggestCompletionTrendingBoostIsConfigurable(t *testing.T) {
	listingRepo := &stubListingRepository{
		completionsFn: func(ctx context.Context, prefix string, size int) ([]repositories.CompletionSuggestion, error) {
			return []repositories.CompletionSuggestion{{Text: "bike", Score: 10}}, nil
		},
	}
	historyRepo := &stubHistoryRepository{
		trendingFn: func(ctx context.Context, limit int, lookback time.Duration) ([]models.TrendingTerm, error) {
			return []models.TrendingTerm{{Text: "bike", Count: 4}}, nil
		},
	}
	svc := newSuggestService(t, listingRepo, historyRepo, false)
	svc.sub.Cfg.Suggest.CompletionTrendingPerCount = 10
	svc.sub.Cfg.Suggest.CompletionTrendingCap = 25

	got := svc.Suggest(context.Background(), "bik", models.Identity{SessionID: "s1"})
	require.Len(t, got, 1)
	// 10*1.2 + min(25, 4*10) = 37
	assert.InDelta(t, 37.0, got[0].Score, 1e-9)
}

func TestSuggestClickScoreIsConfigurable(t *testing.T) {
	historyRepo := &stubHistoryRepository{
		historyFn: func(ctx context.Context, identity models.Identity, limit int) ([]models.SearchHistoryDocument, error) {
			return []models.SearchHistoryDocument{{
				Query:          "iphone",
				Timestamp:      time.Now().UTC(),
				ResultCount:    100,
				SearchCount:    2,
				ClickedResults: []string{"l1", "l2"},
				Converted:      true,
			}}, nil
		},
	}
	svc := newSuggestService(t, &stubListingRepository{}, historyRepo, false)
	svc.sub.Cfg.Suggest.ClickScore = 1

	got := svc.Suggest(context.Background(), "ip", models.Identity{UserID: "u1"})
	require.Len(t, got, 1)
	// 相对默认点击权重（2 次点击 ×5=10 对 ×1=2）少 8 分：
	// recency(≈100) + result(20) + prefix(150) + engagement(2+20=22) + frequency(10) = 302
	assert.InDelta(t, 302.0, got[0].Score, 0.5)
}

func TestSuggestResultIsCached(t *testing.T) {
	completionCalls := 0
	listingRepo := &stubListingRepository{
		completionsFn: func(ctx context.Context, prefix string, size int) ([]repositories.CompletionSuggestion, error) {
			completionCalls++
			return []repositories.CompletionSuggestion{{Text: "bike", Score: 10}}, nil
		},
	}
	svc := newSuggestService(t, listingRepo, &stubHistoryRepository{}, false)

	first := svc.Suggest(context.Background(), "bik", models.Identity{SessionID: "s1"})
	second := svc.Suggest(context.Background(), "bik", models.Identity{SessionID: "s1"})

	assert.Equal(t, first, second)
	assert.Equal(t, 1, completionCalls)
}
