package models

import (
	"fmt"
	"strings"
	"time"
)

// Identity 标识一次搜索行为的归属：要么是已登录用户，要么是匿名会话。
// 不变量：UserID 与 SessionID 恰好一个非空，两者不可同时为空。
type Identity struct {
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Valid 检查恰好一个标识字段非空。
func (i Identity) Valid() bool {
	return (i.UserID != "") != (i.SessionID != "")
}

// Key 返回用于缓存、限流等场景的稳定标识键。
func (i Identity) Key() string {
	if i.UserID != "" {
		return fmt.Sprintf("user:%s", i.UserID)
	}
	return fmt.Sprintf("session:%s", i.SessionID)
}

// NormalizeQuery 规范化搜索词：小写并去除首尾空白。
// 记录与合并搜索历史时统一使用该形式，保证 "Go" 与 "go" 归并为同一条记录。
func NormalizeQuery(query string) string {
	return strings.TrimSpace(strings.ToLower(query))
}

// SearchHistoryDocument 表示存储在 Elasticsearch 中的一条搜索历史记录。
// 同一标识在 5 分钟窗口内重复同一规范化查询时，更新既有记录而非新建
// （递增 search_count 并刷新 timestamp），这是合并规则而非严格去重约束。
type SearchHistoryDocument struct {
	ID             string    `json:"id"`                    // 文档 ID（UUID）。
	UserID         string    `json:"user_id,omitempty"`     // 已登录用户 ID，与 session_id 互斥。
	SessionID      string    `json:"session_id,omitempty"`  // 匿名会话 ID，登录合并后被清空。
	Query          string    `json:"query"`                 // 规范化后的查询词，可能为空串。
	CategoryID     string    `json:"category_id,omitempty"` // 搜索时附带的分类过滤。
	LocationID     string    `json:"location_id,omitempty"` // 搜索时附带的地区过滤。
	Timestamp      time.Time `json:"timestamp"`             // 最后触达时间。
	ResultCount    int64     `json:"result_count"`          // 当次搜索的结果数。
	SearchCount    int64     `json:"search_count"`          // 重复搜索计数，首次为 1。
	ClickedResults []string  `json:"clicked_results,omitempty"`
	DwellTime      int64     `json:"dwell_time"` // 停留秒数，按 max 合并，单调不减。
	Converted      bool      `json:"converted"`  // 转化标记，置真后保持为真。
}

// TrendingTerm 是趋势搜索词聚合的一项结果。
type TrendingTerm struct {
	Text  string `json:"text"`
	Count int64  `json:"count"`
}
