// FileName: repositories/buildSearchQuery.go
package repositories

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ListingQuery 是服务层与仓库层之间的结构化查询描述。
// 服务层只填写过滤条件和排序意图，不接触任何 Elasticsearch DSL；
// 翻译为具体查询语法是仓库层的职责，这样换索引技术时只动这一层。
type ListingQuery struct {
	// Query 为空时匹配全部文档（配合过滤器做"浏览全部"）。
	Query string

	// CategoryIDs 是经目录服务展开后的分类 ID 集合（自身 + 全部子孙）。
	// 为空切片且 ForceEmptyCategory 为 true 时构建一个必然不匹配的过滤器，
	// 返回空结果而不是报错（分类展开为空的约定语义）。
	CategoryIDs        []string
	ForceEmptyCategory bool

	LocationID string

	// 价格区间，闭区间。nil 表示该端无界。
	MinPrice *float64
	MaxPrice *float64

	// SortBy 取值: "newest"(默认) / "price-low" / "price-high" / "popular"。
	SortBy string

	// SearchAfter 是上一页最后一条命中的排序值，用于游标式翻页。
	SearchAfter []interface{}

	Size int
}

// visibilityFilters 返回公开可见性的过滤子句，所有面向用户的读路径共用：
//   - status 必须是 ACTIVE；
//   - user_is_active 为 true，或该字段缺失（在字段引入前写入的老文档视为卖家有效，
//     这是刻意保留的兼容语义，改掉会悄悄隐藏或放出历史列表项）。
func visibilityFilters() []map[string]interface{} {
	return []map[string]interface{}{
		{
			"term": map[string]interface{}{"status": "ACTIVE"},
		},
		{
			"bool": map[string]interface{}{
				"should": []map[string]interface{}{
					{"term": map[string]interface{}{"user_is_active": true}},
					{"bool": map[string]interface{}{
						"must_not": map[string]interface{}{
							"exists": map[string]interface{}{"field": "user_is_active"},
						},
					}},
				},
				"minimum_should_match": 1,
			},
		},
	}
}

// buildSortClause 把排序意图翻译为 Elasticsearch 排序子句。
// 每种模式最后都以 "id desc" 收尾：这是让 search_after 游标翻页
// 在任何模式下都确定且稳定的强制决胜项，绝不能省略。
func buildSortClause(sortBy string) []interface{} {
	switch sortBy {
	case "price-low":
		return []interface{}{
			map[string]interface{}{"price": map[string]interface{}{"order": "asc"}},
			map[string]interface{}{"created_at": map[string]interface{}{"order": "desc"}},
			map[string]interface{}{"id": map[string]interface{}{"order": "desc"}},
		}
	case "price-high":
		return []interface{}{
			map[string]interface{}{"price": map[string]interface{}{"order": "desc"}},
			map[string]interface{}{"created_at": map[string]interface{}{"order": "desc"}},
			map[string]interface{}{"id": map[string]interface{}{"order": "desc"}},
		}
	case "popular":
		return []interface{}{
			// missing: "_last" 让没有 view_count 的老文档排在末尾而不是按 0 参与排序。
			map[string]interface{}{"view_count": map[string]interface{}{"order": "desc", "missing": "_last"}},
			map[string]interface{}{"created_at": map[string]interface{}{"order": "desc"}},
			map[string]interface{}{"id": map[string]interface{}{"order": "desc"}},
		}
	default: // "newest" 及未知值
		return []interface{}{
			map[string]interface{}{"created_at": map[string]interface{}{"order": "desc"}},
			map[string]interface{}{"id": map[string]interface{}{"order": "desc"}},
		}
	}
}

// buildListingSearchQuery 根据结构化查询描述构建主搜索的查询 DSL。
func buildListingSearchQuery(q ListingQuery) ([]byte, error) {
	// --- 1. 主查询 ---
	var mainQueryDSL map[string]interface{}
	if strings.TrimSpace(q.Query) == "" {
		mainQueryDSL = map[string]interface{}{
			"match_all": map[string]interface{}{},
		}
	} else {
		// 标题权重最高，分类名次之，描述兜底；fuzziness AUTO 提供拼写容错。
		mainQueryDSL = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     q.Query,
				"fields":    []string{"title^3", "category_name^2", "description"},
				"type":      "best_fields",
				"fuzziness": "AUTO",
			},
		}
	}

	// --- 2. 过滤器 ---
	filters := visibilityFilters()

	if q.ForceEmptyCategory {
		// 分类展开后没有任何可检索分类：按约定返回空结果而不是错误。
		filters = append(filters, map[string]interface{}{
			"match_none": map[string]interface{}{},
		})
	} else if len(q.CategoryIDs) > 0 {
		filters = append(filters, map[string]interface{}{
			"terms": map[string]interface{}{"category_id": q.CategoryIDs},
		})
	}

	if q.LocationID != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"location_id": q.LocationID},
		})
	}

	if q.MinPrice != nil || q.MaxPrice != nil {
		rangeBody := map[string]interface{}{}
		if q.MinPrice != nil {
			rangeBody["gte"] = *q.MinPrice
		}
		if q.MaxPrice != nil {
			rangeBody["lte"] = *q.MaxPrice
		}
		filters = append(filters, map[string]interface{}{
			"range": map[string]interface{}{"price": rangeBody},
		})
	}

	finalQueryDSL := map[string]interface{}{
		"bool": map[string]interface{}{
			"must":   mainQueryDSL,
			"filter": filters,
		},
	}

	// --- 3. 组装请求体 ---
	esQueryRequest := map[string]interface{}{
		"size":             q.Size,
		"sort":             buildSortClause(q.SortBy),
		"query":            finalQueryDSL,
		"track_total_hits": true,
		"highlight": map[string]interface{}{
			"fields": map[string]interface{}{
				"title":       map[string]interface{}{},
				"description": map[string]interface{}{"fragment_size": 150, "number_of_fragments": 1},
			},
		},
	}

	// 游标翻页：提供 search_after 时从上一页末尾之后继续，不使用 from。
	if len(q.SearchAfter) > 0 {
		esQueryRequest["search_after"] = q.SearchAfter
	}

	queryJSON, err := json.Marshal(esQueryRequest)
	if err != nil {
		return nil, fmt.Errorf("序列化列表项搜索查询为 JSON 失败: %w", err)
	}
	return queryJSON, nil
}

// buildPopularQuery 构建"热门"查询：仅过滤可见性，按浏览量降序
// （缺失字段排末尾），浏览量相同按创建时间降序。
func buildPopularQuery(size int) ([]byte, error) {
	esQueryRequest := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": visibilityFilters(),
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"view_count": map[string]interface{}{"order": "desc", "missing": "_last"}},
			map[string]interface{}{"created_at": map[string]interface{}{"order": "desc"}},
		},
	}
	queryJSON, err := json.Marshal(esQueryRequest)
	if err != nil {
		return nil, fmt.Errorf("序列化热门查询为 JSON 失败: %w", err)
	}
	return queryJSON, nil
}

// buildTrendingQuery 构建"趋势"查询：在可见性过滤之上用加法 function_score 打分——
// 浏览量压力项 log1p(view_count)*0.1 权重 2.0，近 7 天权重 1.5，近 30 天权重 1.2；
// 各函数得分相加后乘以基础相关性（match_all 恒为 1），按最终得分降序、创建时间降序。
func buildTrendingQuery(size int, now time.Time) ([]byte, error) {
	sevenDaysAgo := now.AddDate(0, 0, -7).UTC().Format(time.RFC3339)
	thirtyDaysAgo := now.AddDate(0, 0, -30).UTC().Format(time.RFC3339)

	esQueryRequest := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"function_score": map[string]interface{}{
				"query": map[string]interface{}{
					"bool": map[string]interface{}{
						"filter": visibilityFilters(),
					},
				},
				"functions": []map[string]interface{}{
					{
						"field_value_factor": map[string]interface{}{
							"field":    "view_count",
							"modifier": "log1p",
							"factor":   0.1,
							"missing":  0,
						},
						"weight": 2.0,
					},
					{
						"filter": map[string]interface{}{
							"range": map[string]interface{}{
								"created_at": map[string]interface{}{"gte": sevenDaysAgo},
							},
						},
						"weight": 1.5,
					},
					{
						"filter": map[string]interface{}{
							"range": map[string]interface{}{
								"created_at": map[string]interface{}{"gte": thirtyDaysAgo},
							},
						},
						"weight": 1.2,
					},
				},
				"score_mode": "sum",
				"boost_mode": "multiply",
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"_score": map[string]interface{}{"order": "desc"}},
			map[string]interface{}{"created_at": map[string]interface{}{"order": "desc"}},
		},
	}
	queryJSON, err := json.Marshal(esQueryRequest)
	if err != nil {
		return nil, fmt.Errorf("序列化趋势查询为 JSON 失败: %w", err)
	}
	return queryJSON, nil
}

// RelatedSeed 描述相关推荐的种子列表项字段，由仓库从目标文档抽取。
type RelatedSeed struct {
	ID          string
	Title       string
	Description string
	CategoryID  string
	LocationID  string
	Price       float64
}

// buildRelatedQuery 构建相关列表项查询：同分类（boost 3.0）、同地区（boost 2.0）、
// 价格 ±30%（boost 1.5）、标题+描述的 more_like_this 文本相似（boost 2.0），
// 任一 should 子句命中即可；始终排除目标自身并限定可见文档。
func buildRelatedQuery(seed RelatedSeed, size int) ([]byte, error) {
	var should []map[string]interface{}

	if seed.CategoryID != "" {
		should = append(should, map[string]interface{}{
			"term": map[string]interface{}{
				"category_id": map[string]interface{}{"value": seed.CategoryID, "boost": 3.0},
			},
		})
	}
	if seed.LocationID != "" {
		should = append(should, map[string]interface{}{
			"term": map[string]interface{}{
				"location_id": map[string]interface{}{"value": seed.LocationID, "boost": 2.0},
			},
		})
	}
	if seed.Price > 0 {
		should = append(should, map[string]interface{}{
			"range": map[string]interface{}{
				"price": map[string]interface{}{
					"gte":   seed.Price * 0.7,
					"lte":   seed.Price * 1.3,
					"boost": 1.5,
				},
			},
		})
	}
	likeText := strings.TrimSpace(seed.Title + " " + seed.Description)
	if likeText != "" {
		should = append(should, map[string]interface{}{
			"more_like_this": map[string]interface{}{
				"fields":          []string{"title", "description"},
				"like":            likeText,
				"min_term_freq":   1,
				"min_doc_freq":    1,
				"max_query_terms": 12,
				"boost":           2.0,
			},
		})
	}

	minimumShouldMatch := 0
	if len(should) > 0 {
		minimumShouldMatch = 1
	}

	filters := visibilityFilters()
	boolQuery := map[string]interface{}{
		"filter": filters,
		"must_not": []map[string]interface{}{
			{"term": map[string]interface{}{"id": seed.ID}},
		},
		"minimum_should_match": minimumShouldMatch,
	}
	if len(should) > 0 {
		boolQuery["should"] = should
	}

	esQueryRequest := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"bool": boolQuery,
		},
		"sort": []interface{}{
			map[string]interface{}{"_score": map[string]interface{}{"order": "desc"}},
			map[string]interface{}{"created_at": map[string]interface{}{"order": "desc"}},
		},
	}
	queryJSON, err := json.Marshal(esQueryRequest)
	if err != nil {
		return nil, fmt.Errorf("序列化相关列表项查询为 JSON 失败: %w", err)
	}
	return queryJSON, nil
}

// buildSameCategoryQuery 是相关推荐主查询失败时的降级查询：
// 仅按同分类过滤并排除目标自身，按创建时间降序。
func buildSameCategoryQuery(excludeID, categoryID string, size int) ([]byte, error) {
	filters := visibilityFilters()
	if categoryID != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"category_id": categoryID},
		})
	}

	esQueryRequest := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": filters,
				"must_not": []map[string]interface{}{
					{"term": map[string]interface{}{"id": excludeID}},
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"created_at": map[string]interface{}{"order": "desc"}},
		},
	}
	queryJSON, err := json.Marshal(esQueryRequest)
	if err != nil {
		return nil, fmt.Errorf("序列化同分类降级查询为 JSON 失败: %w", err)
	}
	return queryJSON, nil
}

// buildCategoryFeedQuery 构建个性化推荐的供给查询：
// 可见文档中限定给定分类集合，按创建时间降序。分类集合为空时不加分类过滤
// （推荐引擎在历史有记录但无法提炼分类偏好时退化为"最新优先"）。
func buildCategoryFeedQuery(categoryIDs []string, size int) ([]byte, error) {
	filters := visibilityFilters()
	if len(categoryIDs) > 0 {
		filters = append(filters, map[string]interface{}{
			"terms": map[string]interface{}{"category_id": categoryIDs},
		})
	}

	esQueryRequest := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": filters,
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"created_at": map[string]interface{}{"order": "desc"}},
			map[string]interface{}{"id": map[string]interface{}{"order": "desc"}},
		},
		"track_total_hits": true,
	}
	queryJSON, err := json.Marshal(esQueryRequest)
	if err != nil {
		return nil, fmt.Errorf("序列化分类供给查询为 JSON 失败: %w", err)
	}
	return queryJSON, nil
}

// buildCompletionSuggestQuery 构建前缀补全查询：completion suggester，
// skip_duplicates 去重，最多 size 条。
func buildCompletionSuggestQuery(prefix string, size int) ([]byte, error) {
	esQueryRequest := map[string]interface{}{
		"suggest": map[string]interface{}{
			"listing-suggest": map[string]interface{}{
				"prefix": prefix,
				"completion": map[string]interface{}{
					"field":           "suggest",
					"size":            size,
					"skip_duplicates": true,
				},
			},
		},
	}
	queryJSON, err := json.Marshal(esQueryRequest)
	if err != nil {
		return nil, fmt.Errorf("序列化补全建议查询为 JSON 失败: %w", err)
	}
	return queryJSON, nil
}

// buildFuzzyCandidateQuery 构建建议引擎的模糊候选查询：
// 对标题（boost 3）与分类名（boost 2）做带拼写容错的多字段匹配，取前 size 个文档。
func buildFuzzyCandidateQuery(prefix string, size int) ([]byte, error) {
	esQueryRequest := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":     prefix,
						"fields":    []string{"title^3", "category_name^2"},
						"fuzziness": "AUTO",
					},
				},
				"filter": visibilityFilters(),
			},
		},
		"_source": []string{"id", "title", "category_name"},
	}
	queryJSON, err := json.Marshal(esQueryRequest)
	if err != nil {
		return nil, fmt.Errorf("序列化模糊候选查询为 JSON 失败: %w", err)
	}
	return queryJSON, nil
}
