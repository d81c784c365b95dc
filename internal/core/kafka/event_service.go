package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/Xushengqwer/go-common/core"
	"github.com/Xushengqwer/listing_search/internal/models"
	"github.com/Xushengqwer/listing_search/internal/repositories"

	"go.uber.org/zap"
)

// 包级别定义的哨兵错误 (sentinel errors)，用于表示特定的、可预期的错误条件。
// 上层调用者（Kafka 消息处理器）可以使用 errors.Is() 来检查这些错误类型，
// 并据此决定后续行为（对于永久性错误，发送到死信队列而不是重试）。
var (
	ErrInvalidListingID   = errors.New("无效的列表项ID")
	ErrEmptyTitle         = errors.New("列表项标题不能为空")
	ErrInvalidEventFormat = errors.New("无效的事件格式或缺少关键数据")
)

// EventService 封装处理列表项 Kafka 事件的业务逻辑。
// 它依赖 ListingRepository 与 Elasticsearch 进行交互。
type EventService struct {
	listingRepo repositories.ListingRepository
	logger      *core.ZapLogger
}

// NewEventService 创建 EventService 的新实例。
// 关键依赖为 nil 时 panic，防止服务以损坏状态启动。
func NewEventService(listingRepo repositories.ListingRepository, logger *core.ZapLogger) *EventService {
	if listingRepo == nil {
		panic("致命错误 [事件服务]: ListingRepository 依赖注入失败，实例不能为 nil")
	}
	if logger == nil {
		panic("致命错误 [事件服务]: ZapLogger 依赖注入失败，实例不能为 nil")
	}
	return &EventService{
		listingRepo: listingRepo,
		logger:      logger,
	}
}

// HandleListingUpsertEvent 处理列表项创建/更新事件：
// 验证事件数据，将其转换为索引文档模型，然后调用仓库层写入。
// 返回的错误可能包装了哨兵错误（ErrInvalidListingID、ErrEmptyTitle），
// 供上层用 errors.Is 判定是否为永久性失败。
func (s *EventService) HandleListingUpsertEvent(ctx context.Context, event *models.KafkaListingUpsertEvent) error {
	listing := event.Listing
	s.logger.Info("开始处理列表项写入事件 (ListingUpsertEvent)",
		zap.String("event_id", event.EventID),
		zap.String("listing_id", listing.ID))

	// 来自外部系统的数据要先过基本校验，避免无效数据污染索引。
	if listing.ID == "" {
		s.logger.Error("处理 ListingUpsertEvent 失败：事件中缺少列表项 ID",
			zap.String("event_id", event.EventID),
		)
		return fmt.Errorf("处理列表项写入事件失败，列表项 ID 为空: %w", ErrInvalidListingID)
	}
	if listing.Title == "" {
		s.logger.Error("处理 ListingUpsertEvent 失败：事件中的列表项标题为空",
			zap.String("event_id", event.EventID),
			zap.String("listing_id", listing.ID),
		)
		return fmt.Errorf("处理列表项写入事件失败，列表项 ID '%s' 的标题为空: %w", listing.ID, ErrEmptyTitle)
	}

	// 事件模型到索引文档模型的转换（含 suggest 字段派生）在 ToDocument 完成，
	// 事件格式和存储格式由此解耦。
	doc := listing.ToDocument()
	s.logger.Debug("已将 Kafka 事件数据映射到 EsListingDocument 模型",
		zap.String("event_id", event.EventID),
		zap.String("listing_id", listing.ID))

	if err := s.listingRepo.IndexListing(ctx, doc); err != nil {
		s.logger.Error("调用 ListingRepository 的 IndexListing 操作失败",
			zap.String("event_id", event.EventID),
			zap.String("listing_id", listing.ID),
			zap.Error(err),
		)
		// 底层错误包装后向上传递，消费者处理器据此决定重试或进 DLQ。
		return fmt.Errorf("索引列表项 ID '%s' 到 Elasticsearch 失败: %w", listing.ID, err)
	}

	s.logger.Info("成功处理并索引列表项写入事件",
		zap.String("event_id", event.EventID),
		zap.String("listing_id", listing.ID))
	return nil
}

// HandleListingDeleteEvent 处理列表项删除事件。
// 仓库层把"文档本就不存在"视为幂等成功，这里不需要特判。
func (s *EventService) HandleListingDeleteEvent(ctx context.Context, event *models.KafkaListingDeleteEvent) error {
	s.logger.Info("开始处理列表项删除事件 (ListingDeleteEvent)",
		zap.String("event_id", event.EventID),
		zap.String("listing_id", event.ListingID))

	if event.ListingID == "" {
		s.logger.Error("处理 ListingDeleteEvent 失败：事件中缺少列表项 ID",
			zap.String("event_id", event.EventID),
		)
		return fmt.Errorf("处理列表项删除事件失败，列表项 ID 为空: %w", ErrInvalidListingID)
	}

	if err := s.listingRepo.DeleteListing(ctx, event.ListingID); err != nil {
		s.logger.Error("调用 ListingRepository 的 DeleteListing 操作失败",
			zap.String("event_id", event.EventID),
			zap.String("listing_id", event.ListingID),
			zap.Error(err),
		)
		return fmt.Errorf("从 Elasticsearch 删除列表项 ID '%s' 失败: %w", event.ListingID, err)
	}

	s.logger.Info("成功处理列表项删除事件",
		zap.String("event_id", event.EventID),
		zap.String("listing_id", event.ListingID))
	return nil
}
