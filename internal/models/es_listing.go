package models

import (
	"strings"
	"time"
)

// ListingStatus 表示商品列表项的生命周期状态。
// 只有 ACTIVE 状态的列表项才允许出现在公开的搜索、热门、推荐结果中。
type ListingStatus string

const (
	ListingStatusActive  ListingStatus = "ACTIVE"
	ListingStatusSold    ListingStatus = "SOLD"
	ListingStatusHidden  ListingStatus = "HIDDEN"
	ListingStatusDeleted ListingStatus = "DELETED"
)

// SuggestInput 是写入 Elasticsearch completion 字段的加权输入项。
// input 为候选前缀串，weight 影响补全建议的基础得分。
type SuggestInput struct {
	Input  []string `json:"input"`
	Weight int      `json:"weight"`
}

// EsListingDocument 表示存储在 Elasticsearch 中的商品列表项文档结构。
// 它是目录库 (Catalog Store) 数据的反范式化投影：分类、地区等关联信息
// 在写入时拷贝进文档，允许在下一次写入前保持少量陈旧。
type EsListingDocument struct {
	ID           string        `json:"id"`                       // 列表项唯一标识符（不透明字符串，不可变）。
	Title        string        `json:"title"`                    // 标题，可全文检索，同时喂给补全建议。
	Description  string        `json:"description"`              // 描述，可全文检索。
	Price        float64       `json:"price"`                    // 价格，非负。
	ViewCount    int64         `json:"view_count"`               // 浏览量，用于热门排序。
	Status       ListingStatus `json:"status"`                   // 状态枚举，见 ListingStatus。
	UserIsActive *bool         `json:"user_is_active,omitempty"` // 卖家是否有效。历史文档可能缺失该字段，缺失视为有效。
	CategoryID   string        `json:"category_id"`              // 分类 ID（反范式化）。
	CategoryName string        `json:"category_name"`            // 分类名称，可检索，权重低于标题。
	CategorySlug string        `json:"category_slug"`            // 分类 slug。
	LocationID   string        `json:"location_id"`              // 地区 ID。
	City         string        `json:"city"`                     // 城市名。
	Country      string        `json:"country"`                  // 国家名。
	ZoneID       string        `json:"zone_id"`                  // 区域 ID。
	ZoneName     string        `json:"zone_name"`                // 区域名。
	Images       []string      `json:"images,omitempty"`         // 图片 URL 列表，保持顺序。
	UserID       string        `json:"user_id"`                  // 卖家用户 ID。
	CreatedAt    time.Time     `json:"created_at"`               // 创建时间。
	UpdatedAt    time.Time     `json:"updated_at"`               // 文档最后更新时间。

	// Suggest 是由标题与分类名派生的补全建议输入，仅在索引写入时填充。
	Suggest []SuggestInput `json:"suggest,omitempty"`

	// Highlights 仅用于搜索响应，携带命中片段，不会被写入索引。
	Highlights map[string][]string `json:"highlights,omitempty"`
}

// IsPubliclyVisible 判断文档是否允许出现在公开结果集中。
// user_is_active 缺失（nil）视为有效，兼容字段引入之前写入的历史文档。
func (d *EsListingDocument) IsPubliclyVisible() bool {
	if d.Status != ListingStatusActive {
		return false
	}
	return d.UserIsActive == nil || *d.UserIsActive
}

// BuildSuggestInputs 从标题与分类名派生补全建议输入。
// 标题权重高于分类名；空串会被跳过。
func BuildSuggestInputs(title, categoryName string) []SuggestInput {
	inputs := make([]SuggestInput, 0, 2)
	if t := strings.TrimSpace(title); t != "" {
		inputs = append(inputs, SuggestInput{Input: []string{t}, Weight: 10})
	}
	if c := strings.TrimSpace(categoryName); c != "" {
		inputs = append(inputs, SuggestInput{Input: []string{c}, Weight: 5})
	}
	return inputs
}
