package repositories

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unmarshalQuery(t *testing.T, raw []byte) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

// sortFieldNames 抽取排序子句里的字段名序列，方便断言排序模式。
func sortFieldNames(t *testing.T, body map[string]interface{}) []string {
	t.Helper()
	rawSort, ok := body["sort"].([]interface{})
	require.True(t, ok, "查询体必须包含 sort 数组")

	var fields []string
	for _, clause := range rawSort {
		m, ok := clause.(map[string]interface{})
		require.True(t, ok)
		require.Len(t, m, 1)
		for field := range m {
			fields = append(fields, field)
		}
	}
	return fields
}

func TestBuildSortClauseAlwaysEndsWithID(t *testing.T) {
	for _, sortBy := range []string{"newest", "price-low", "price-high", "popular", "", "unknown"} {
		raw, err := buildListingSearchQuery(ListingQuery{SortBy: sortBy, Size: 20})
		require.NoError(t, err, sortBy)

		fields := sortFieldNames(t, unmarshalQuery(t, raw))
		require.NotEmpty(t, fields, sortBy)
		// id desc 是游标翻页的强制决胜项，任何排序模式都不能缺。
		assert.Equal(t, "id", fields[len(fields)-1], "sort_by=%s", sortBy)
	}
}

func TestBuildSortClauseModes(t *testing.T) {
	assert.Equal(t, []string{"price", "created_at", "id"},
		sortFieldNames(t, unmarshalQuery(t, mustBuild(t, ListingQuery{SortBy: "price-low"}))))
	assert.Equal(t, []string{"view_count", "created_at", "id"},
		sortFieldNames(t, unmarshalQuery(t, mustBuild(t, ListingQuery{SortBy: "popular"}))))
	assert.Equal(t, []string{"created_at", "id"},
		sortFieldNames(t, unmarshalQuery(t, mustBuild(t, ListingQuery{SortBy: "newest"}))))
}

func mustBuild(t *testing.T, q ListingQuery) []byte {
	t.Helper()
	raw, err := buildListingSearchQuery(q)
	require.NoError(t, err)
	return raw
}

func TestVisibilityFiltersPresentInEveryReadQuery(t *testing.T) {
	builders := map[string][]byte{
		"search":        mustBuild(t, ListingQuery{Query: "bike"}),
		"popular":       mustBuildWith(t, func() ([]byte, error) { return buildPopularQuery(10) }),
		"trending":      mustBuildWith(t, func() ([]byte, error) { return buildTrendingQuery(10, time.Now()) }),
		"category_feed": mustBuildWith(t, func() ([]byte, error) { return buildCategoryFeedQuery([]string{"c1"}, 10) }),
	}

	for name, raw := range builders {
		asText := string(raw)
		assert.Contains(t, asText, `"status":"ACTIVE"`, name)
		assert.Contains(t, asText, `"user_is_active":true`, name)
		// 字段缺失的老文档同样可见。
		assert.Contains(t, asText, `"exists"`, name)
	}
}

func mustBuildWith(t *testing.T, build func() ([]byte, error)) []byte {
	t.Helper()
	raw, err := build()
	require.NoError(t, err)
	return raw
}

func TestBuildListingSearchQueryEmptyQueryMatchesAll(t *testing.T) {
	body := unmarshalQuery(t, mustBuild(t, ListingQuery{Query: "   "}))
	boolQuery := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	must := boolQuery["must"].(map[string]interface{})
	assert.Contains(t, must, "match_all")
}

func TestBuildListingSearchQueryFuzzyMultiMatch(t *testing.T) {
	body := unmarshalQuery(t, mustBuild(t, ListingQuery{Query: "iphoen"}))
	boolQuery := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	multiMatch := boolQuery["must"].(map[string]interface{})["multi_match"].(map[string]interface{})

	assert.Equal(t, "iphoen", multiMatch["query"])
	assert.Equal(t, "AUTO", multiMatch["fuzziness"])
	assert.ElementsMatch(t,
		[]interface{}{"title^3", "category_name^2", "description"},
		multiMatch["fields"].([]interface{}))
}

func TestBuildListingSearchQueryForceEmptyCategory(t *testing.T) {
	raw := mustBuild(t, ListingQuery{ForceEmptyCategory: true})
	assert.Contains(t, string(raw), `"match_none"`)
	assert.NotContains(t, string(raw), `"terms"`)
}

func TestBuildListingSearchQueryCategoryTerms(t *testing.T) {
	raw := mustBuild(t, ListingQuery{CategoryIDs: []string{"c1", "c2", "c3"}})
	body := unmarshalQuery(t, raw)
	filters := body["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]interface{})

	var termsFilter map[string]interface{}
	for _, f := range filters {
		if terms, ok := f.(map[string]interface{})["terms"]; ok {
			termsFilter = terms.(map[string]interface{})
		}
	}
	require.NotNil(t, termsFilter, "展开后的分类集合应编译为 terms 过滤器")
	assert.Len(t, termsFilter["category_id"].([]interface{}), 3)
}

func TestBuildListingSearchQueryPriceRange(t *testing.T) {
	minP, maxP := 100.0, 500.0

	raw := mustBuild(t, ListingQuery{MinPrice: &minP, MaxPrice: &maxP})
	assert.Contains(t, string(raw), `"gte":100`)
	assert.Contains(t, string(raw), `"lte":500`)

	// 单边区间也成立。
	rawMinOnly := mustBuild(t, ListingQuery{MinPrice: &minP})
	assert.Contains(t, string(rawMinOnly), `"gte":100`)
	assert.NotContains(t, string(rawMinOnly), `"lte"`)
}

func TestBuildListingSearchQuerySearchAfter(t *testing.T) {
	cursor := []interface{}{1717200000000, "listing-42"}
	raw := mustBuild(t, ListingQuery{SearchAfter: cursor})
	body := unmarshalQuery(t, raw)
	require.Contains(t, body, "search_after")
	assert.Len(t, body["search_after"].([]interface{}), 2)

	// 无游标时不得出现 search_after 键。
	rawFirstPage := mustBuild(t, ListingQuery{})
	assert.NotContains(t, unmarshalQuery(t, rawFirstPage), "search_after")
}

func TestBuildTrendingQueryFunctionScore(t *testing.T) {
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	body := unmarshalQuery(t, mustBuildWith(t, func() ([]byte, error) { return buildTrendingQuery(20, now) }))

	fs := body["query"].(map[string]interface{})["function_score"].(map[string]interface{})
	assert.Equal(t, "sum", fs["score_mode"])
	assert.Equal(t, "multiply", fs["boost_mode"])

	functions := fs["functions"].([]interface{})
	require.Len(t, functions, 3)

	fvf := functions[0].(map[string]interface{})["field_value_factor"].(map[string]interface{})
	assert.Equal(t, "view_count", fvf["field"])
	assert.Equal(t, "log1p", fvf["modifier"])
	assert.InDelta(t, 0.1, fvf["factor"].(float64), 1e-9)
	assert.InDelta(t, 2.0, functions[0].(map[string]interface{})["weight"].(float64), 1e-9)
	assert.InDelta(t, 1.5, functions[1].(map[string]interface{})["weight"].(float64), 1e-9)
	assert.InDelta(t, 1.2, functions[2].(map[string]interface{})["weight"].(float64), 1e-9)

	// 时间窗基于传入的 now 计算。
	asText := string(mustBuildWith(t, func() ([]byte, error) { return buildTrendingQuery(20, now) }))
	assert.Contains(t, asText, "2025-06-24T00:00:00Z") // now - 7d
	assert.Contains(t, asText, "2025-06-01T00:00:00Z") // now - 30d
}

func TestBuildRelatedQueryClauses(t *testing.T) {
	seed := RelatedSeed{
		ID:         "l-1",
		Title:      "mountain bike",
		CategoryID: "cat-bikes",
		LocationID: "loc-sz",
		Price:      1000,
	}
	raw := mustBuildWith(t, func() ([]byte, error) { return buildRelatedQuery(seed, 10) })
	asText := string(raw)

	assert.Contains(t, asText, `"boost":3`)  // 同分类
	assert.Contains(t, asText, `"boost":2`)  // 同地区 / more_like_this
	assert.Contains(t, asText, `"gte":700`)  // price * 0.7
	assert.Contains(t, asText, `"lte":1300`) // price * 1.3
	assert.Contains(t, asText, `"more_like_this"`)

	body := unmarshalQuery(t, raw)
	boolQuery := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	// 至少命中一个相似信号，且排除种子自身。
	assert.Equal(t, float64(1), boolQuery["minimum_should_match"])
	mustNot := boolQuery["must_not"].([]interface{})
	assert.Contains(t, mustNot[0].(map[string]interface{})["term"].(map[string]interface{}), "id")
}

func TestBuildRelatedQueryBareSeed(t *testing.T) {
	// 种子缺全部信号字段时没有 should 子句，minimum_should_match 必须归零，
	// 否则查询语义上永不匹配。
	raw := mustBuildWith(t, func() ([]byte, error) { return buildRelatedQuery(RelatedSeed{ID: "l-1"}, 10) })
	body := unmarshalQuery(t, raw)
	boolQuery := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	assert.Equal(t, float64(0), boolQuery["minimum_should_match"])
	assert.NotContains(t, boolQuery, "should")
}

func TestBuildCategoryFeedQueryUnfiltered(t *testing.T) {
	// 分类集合为 nil 时退化为"最新优先"，不加 terms 过滤。
	raw := mustBuildWith(t, func() ([]byte, error) { return buildCategoryFeedQuery(nil, 10) })
	assert.NotContains(t, string(raw), `"terms"`)

	rawFiltered := mustBuildWith(t, func() ([]byte, error) { return buildCategoryFeedQuery([]string{"c1"}, 10) })
	assert.Contains(t, string(rawFiltered), `"terms"`)
}

func TestBuildCompletionSuggestQuery(t *testing.T) {
	body := unmarshalQuery(t, mustBuildWith(t, func() ([]byte, error) { return buildCompletionSuggestQuery("bik", 10) }))
	suggest := body["suggest"].(map[string]interface{})["listing-suggest"].(map[string]interface{})
	assert.Equal(t, "bik", suggest["prefix"])

	completion := suggest["completion"].(map[string]interface{})
	assert.Equal(t, "suggest", completion["field"])
	assert.Equal(t, true, completion["skip_duplicates"])
}

func TestBuildFuzzyCandidateQuery(t *testing.T) {
	body := unmarshalQuery(t, mustBuildWith(t, func() ([]byte, error) { return buildFuzzyCandidateQuery("bkie", 5) }))
	boolQuery := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	multiMatch := boolQuery["must"].(map[string]interface{})["multi_match"].(map[string]interface{})

	assert.Equal(t, "AUTO", multiMatch["fuzziness"])
	assert.ElementsMatch(t, []interface{}{"title^3", "category_name^2"}, multiMatch["fields"].([]interface{}))
	assert.ElementsMatch(t, []interface{}{"id", "title", "category_name"}, body["_source"].([]interface{}))
}
