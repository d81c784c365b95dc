package models

import "time"

// KafkaListingUpsertEvent 镜像目录服务在列表项创建/更新（含审核通过）时
// 发送的事件结构。关联的分类、地区信息已在上游反范式化。
type KafkaListingUpsertEvent struct {
	EventID string         `json:"event_id"` // 事件唯一标识，用于日志追踪。
	Listing ListingPayload `json:"listing"`
}

// ListingPayload 是事件中携带的列表项数据，与 EsListingDocument 一一对应
// （suggest 字段由本服务在写入前派生，不经由事件传输）。
type ListingPayload struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Price        float64       `json:"price"`
	ViewCount    int64         `json:"view_count"`
	Status       ListingStatus `json:"status"`
	UserIsActive *bool         `json:"user_is_active,omitempty"`
	CategoryID   string        `json:"category_id"`
	CategoryName string        `json:"category_name"`
	CategorySlug string        `json:"category_slug"`
	LocationID   string        `json:"location_id"`
	City         string        `json:"city"`
	Country      string        `json:"country"`
	ZoneID       string        `json:"zone_id"`
	ZoneName     string        `json:"zone_name"`
	Images       []string      `json:"images,omitempty"`
	UserID       string        `json:"user_id"`
	CreatedAt    time.Time     `json:"created_at"`
}

// ToDocument 将事件负载转换为 Elasticsearch 文档模型，并派生补全建议输入。
// 事件格式与存储格式由此解耦。
func (p ListingPayload) ToDocument() EsListingDocument {
	return EsListingDocument{
		ID:           p.ID,
		Title:        p.Title,
		Description:  p.Description,
		Price:        p.Price,
		ViewCount:    p.ViewCount,
		Status:       p.Status,
		UserIsActive: p.UserIsActive,
		CategoryID:   p.CategoryID,
		CategoryName: p.CategoryName,
		CategorySlug: p.CategorySlug,
		LocationID:   p.LocationID,
		City:         p.City,
		Country:      p.Country,
		ZoneID:       p.ZoneID,
		ZoneName:     p.ZoneName,
		Images:       p.Images,
		UserID:       p.UserID,
		CreatedAt:    p.CreatedAt,
		Suggest:      BuildSuggestInputs(p.Title, p.CategoryName),
	}
}

// KafkaListingDeleteEvent 镜像列表项删除事件的结构。
type KafkaListingDeleteEvent struct {
	EventID   string `json:"event_id"`
	Operation string `json:"operation"`  // 操作类型，期望值为 "delete"。
	ListingID string `json:"listing_id"` // 需要删除的列表项标识。
}
