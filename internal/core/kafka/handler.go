package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Xushengqwer/go-common/core"
	"github.com/Xushengqwer/listing_search/internal/models"
	"go.uber.org/zap"

	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff/v4"
)

// Handler 实现 sarama.ConsumerGroupHandler，负责处理从 Kafka 接收到的列表项事件。
// 职责：
//  1. 消息路由：按主题分发给对应的处理函数（写入事件 / 删除事件）。
//  2. 业务调用：通过注入的 EventService 执行实际处理。
//  3. 重试：对可重试错误执行指数退避。
//  4. 死信队列：最终失败的消息发送到 DLQ。
//  5. 生命周期：Setup 关闭 ready 通道发出就绪信号，供消费组等待。
type Handler struct {
	eventService   *EventService
	dlqProducer    sarama.SyncProducer
	dlqTopic       string
	maxRetry       uint64
	topicToHandler map[string]MessageHandlerFunc
	ready          chan bool
	logger         *core.ZapLogger
}

// MessageHandlerFunc 是单个主题消息处理函数的签名。
type MessageHandlerFunc func(ctx context.Context, message *sarama.ConsumerMessage) error

// NewHandler 创建并初始化 Kafka 消息处理程序。
// upsertTopic 承载列表项创建/更新事件，deleteTopic 承载删除事件。
func NewHandler(
	eventSvc *EventService,
	producer sarama.SyncProducer,
	dlqTopic string,
	upsertTopic string,
	deleteTopic string,
	logger *core.ZapLogger,
	maxRetries uint64,
) *Handler {
	if logger == nil {
		panic("致命错误 [Kafka Handler]: Logger 实例不能为 nil")
	}
	if eventSvc == nil {
		logger.Error("创建 Kafka Handler 失败: EventService 实例不能为 nil")
		panic("致命错误 [Kafka Handler]: EventService 实例不能为 nil")
	}
	// DLQ 生产者与主题要么都配置要么都不配置；只配了一半时 DLQ 不可用，提前提示。
	if producer == nil && dlqTopic != "" {
		logger.Warn("DLQ 主题已配置，但 DLQ 生产者未提供。DLQ 功能可能无法正常工作。", zap.String("dlq_topic", dlqTopic))
	}
	if producer != nil && dlqTopic == "" {
		logger.Warn("DLQ 生产者已提供，但 DLQ 主题未配置。DLQ 功能可能无法正常工作。")
	}

	h := &Handler{
		eventService: eventSvc,
		dlqProducer:  producer,
		dlqTopic:     dlqTopic,
		maxRetry:     maxRetries,
		ready:        make(chan bool),
		logger:       logger,
	}

	// 主题到处理函数的映射是消息路由的核心，新增主题时在这里挂新的处理器。
	h.topicToHandler = map[string]MessageHandlerFunc{
		upsertTopic: h.handleListingUpsertEvent,
		deleteTopic: h.handleListingDeleteEvent,
	}
	logger.Info("Kafka Handler 初始化完成",
		zap.Strings("subscribed_topics_for_handler", []string{upsertTopic, deleteTopic}),
		zap.Uint64("max_processing_retries", maxRetries),
		zap.Bool("dlq_producer_configured", producer != nil),
		zap.String("dlq_topic_configured", dlqTopic),
	)
	return h
}

// Ready 返回一个只读通道，供外部（ConsumerGroup）等待 Handler 准备就绪。
// Setup 成功完成时该通道被关闭。
func (h *Handler) Ready() <-chan bool {
	return h.ready
}

// Setup 在新的消费者组会话开始时由 Sarama 调用。
// 通过关闭 ready 通道发出就绪信号；用 select 防止重平衡时重复关闭导致 panic。
func (h *Handler) Setup(session sarama.ConsumerGroupSession) error {
	h.logger.Info("Kafka Handler 开始执行 Setup...", zap.String("member_id", session.MemberID()))
	select {
	case <-h.ready:
		h.logger.Info("Kafka Handler 的 ready 通道已被关闭，Setup 跳过关闭操作。", zap.String("member_id", session.MemberID()))
	default:
		close(h.ready)
	}
	h.logger.Info("Kafka Handler Setup 完成，已准备好消费消息。", zap.String("member_id", session.MemberID()))
	return nil
}

// Cleanup 在消费者组会话结束时调用。当前没有会话级资源需要释放。
func (h *Handler) Cleanup(session sarama.ConsumerGroupSession) error {
	h.logger.Info("Kafka Handler Cleanup 完成。", zap.String("member_id", session.MemberID()))
	return nil
}

// ConsumeClaim 是消息处理的核心循环，Sarama 为每个分配的分区声明调用一次。
// 持续从 claim.Messages() 拉取消息直到通道关闭（会话结束或重平衡）。
func (h *Handler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	topic := claim.Topic()
	partition := claim.Partition()

	h.logger.Info("开始消费来自特定分区的消息",
		zap.String("topic", topic),
		zap.Int32("partition", partition),
		zap.Int64("initial_offset", claim.InitialOffset()),
	)

	for message := range claim.Messages() {
		offset := message.Offset
		h.logger.Debug("收到 Kafka 消息",
			zap.String("topic", message.Topic),
			zap.Int32("partition", message.Partition),
			zap.Int64("offset", offset),
			zap.ByteString("key", message.Key),
			zap.Int("value_length", len(message.Value)),
			zap.Time("kafka_timestamp", message.Timestamp),
		)

		handlerFunc, ok := h.topicToHandler[message.Topic]
		if !ok {
			// 未注册处理函数通常是配置错误；跳过并标记，避免卡住消费流。
			h.logger.Warn("未找到针对该主题注册的消息处理函数，将跳过此消息",
				zap.String("topic", message.Topic),
				zap.Int64("offset", offset),
				zap.Int32("partition", message.Partition),
			)
			session.MarkMessage(message, "")
			continue
		}

		processErr := h.processWithRetry(session.Context(), message, handlerFunc)

		if processErr != nil {
			h.logger.Error("消息在所有重试尝试后处理失败，准备发送到死信队列 (DLQ)",
				zap.String("topic", message.Topic),
				zap.Int64("offset", offset),
				zap.Int32("partition", message.Partition),
				zap.Error(processErr),
			)

			// DLQ 发送用独立的带超时上下文，避免生产者阻塞拖住整个消费者。
			dlqCtx, dlqCancel := context.WithTimeout(context.Background(), 10*time.Second)
			dlqErr := SendToDLQ(dlqCtx, h.dlqProducer, h.dlqTopic, message, processErr, h.logger)
			dlqCancel()

			if dlqErr != nil {
				// DLQ 也失败说明 DLQ 系统本身可能不可用。仍标记原消息以保证消费流继续，
				// 依赖告警与人工介入处理可能丢失的消息。
				h.logger.Error("发送消息到死信队列 (DLQ) 失败，可能导致消息丢失，需要人工关注！",
					zap.String("topic", message.Topic),
					zap.Int64("offset", offset),
					zap.Int32("partition", message.Partition),
					zap.NamedError("original_processing_error", processErr),
					zap.NamedError("dlq_send_error", dlqErr),
				)
				session.MarkMessage(message, "")
			} else {
				h.logger.Info("消息已成功发送到死信队列 (DLQ)",
					zap.String("original_topic", message.Topic),
					zap.Int64("original_offset", offset),
					zap.Int32("original_partition", message.Partition),
					zap.String("dlq_topic", h.dlqTopic),
				)
				session.MarkMessage(message, "")
			}
		} else {
			session.MarkMessage(message, "")
			h.logger.Debug("消息处理成功",
				zap.String("topic", message.Topic),
				zap.Int64("offset", offset),
				zap.Int32("partition", message.Partition),
			)
		}

		// 每条消息处理后检查会话上下文，及时响应外部关闭信号。
		if session.Context().Err() != nil {
			h.logger.Info("会话上下文在消息处理后被取消，准备停止消费此分区",
				zap.String("topic", topic),
				zap.Int32("partition", partition),
				zap.Int64("last_processed_offset", offset),
				zap.Error(session.Context().Err()),
			)
			return session.Context().Err()
		}
	}

	h.logger.Info("已完成消费分区中的所有消息（或会话结束）",
		zap.String("topic", topic),
		zap.Int32("partition", partition),
	)
	return nil
}

// processWithRetry 使用指数退避执行消息处理函数，可重试错误触发重试，
// 永久性错误（验证失败、反序列化失败）立即中止。
// 返回所有重试耗尽后的最终错误，成功则为 nil。
func (h *Handler) processWithRetry(ctx context.Context, message *sarama.ConsumerMessage, handlerFunc MessageHandlerFunc) error {
	bo := backoff.NewExponentialBackOff()
	// 重试次数由 WithMaxRetries 控制，不另设总时长上限。
	bo.MaxElapsedTime = 0

	retryableOperation := func() error {
		err := handlerFunc(ctx, message)
		if err != nil {
			if isPermanentError(err) {
				h.logger.Error("消息处理遇到永久性错误，将停止重试并标记为最终失败",
					zap.String("topic", message.Topic),
					zap.Int64("offset", message.Offset),
					zap.Int32("partition", message.Partition),
					zap.Error(err),
				)
				return backoff.Permanent(err)
			}
			h.logger.Warn("消息处理失败，将基于退避策略尝试重试",
				zap.String("topic", message.Topic),
				zap.Int64("offset", message.Offset),
				zap.Int32("partition", message.Partition),
				zap.Error(err),
			)
			return err
		}
		return nil
	}

	notifyFunc := func(err error, nextRetryDuration time.Duration) {
		h.logger.Warn("准备重试消息处理操作",
			zap.String("topic", message.Topic),
			zap.Int64("offset", message.Offset),
			zap.Int32("partition", message.Partition),
			zap.Duration("next_retry_in", nextRetryDuration),
			zap.Error(err),
		)
	}

	return backoff.RetryNotify(retryableOperation, backoff.WithMaxRetries(bo, h.maxRetry), notifyFunc)
}

// --- 特定主题的消息处理函数实现 ---

// handleListingUpsertEvent 反序列化列表项写入事件并交给 EventService。
func (h *Handler) handleListingUpsertEvent(ctx context.Context, message *sarama.ConsumerMessage) error {
	var event models.KafkaListingUpsertEvent

	if err := json.Unmarshal(message.Value, &event); err != nil {
		// 反序列化失败是永久性的：消息内容不会在重试时变化。
		h.logger.Error("反序列化 'ListingUpsertEvent' 消息失败，数据格式可能不正确或与模型不匹配",
			zap.String("topic", message.Topic),
			zap.Int64("offset", message.Offset),
			zap.Int32("partition", message.Partition),
			zap.ByteString("raw_value_snippet", message.Value[:minInt(1024, len(message.Value))]),
			zap.Error(err),
		)
		return backoff.Permanent(fmt.Errorf("反序列化 ListingUpsertEvent 失败 (主题: %s, 偏移量: %d): %w", message.Topic, message.Offset, err))
	}

	h.logger.Debug("成功反序列化 ListingUpsertEvent，准备交由 EventService 处理",
		zap.String("event_listing_id", event.Listing.ID),
		zap.String("topic", message.Topic),
		zap.Int64("offset", message.Offset),
	)

	return h.eventService.HandleListingUpsertEvent(ctx, &event)
}

// handleListingDeleteEvent 反序列化列表项删除事件并交给 EventService。
func (h *Handler) handleListingDeleteEvent(ctx context.Context, message *sarama.ConsumerMessage) error {
	var event models.KafkaListingDeleteEvent

	if err := json.Unmarshal(message.Value, &event); err != nil {
		h.logger.Error("反序列化 'ListingDeleteEvent' 消息失败，数据格式可能不正确或与模型不匹配",
			zap.String("topic", message.Topic),
			zap.Int64("offset", message.Offset),
			zap.Int32("partition", message.Partition),
			zap.ByteString("raw_value_snippet", message.Value[:minInt(1024, len(message.Value))]),
			zap.Error(err),
		)
		return backoff.Permanent(fmt.Errorf("反序列化 ListingDeleteEvent 失败 (主题: %s, 偏移量: %d): %w", message.Topic, message.Offset, err))
	}

	// 业务层面校验操作类型，只处理预期的 "delete" 操作。
	const expectedOperation = "delete"
	if event.Operation != expectedOperation {
		h.logger.Warn("收到的 ListingDeleteEvent 操作类型与预期不符，将跳过处理此消息",
			zap.String("topic", message.Topic),
			zap.Int64("offset", message.Offset),
			zap.Int32("partition", message.Partition),
			zap.String("event_listing_id", event.ListingID),
			zap.String("received_operation", event.Operation),
			zap.String("expected_operation", expectedOperation),
		)
		// 识别为不适用的消息即视为处理完毕：不重试，不进 DLQ。
		return nil
	}

	h.logger.Debug("成功反序列化 ListingDeleteEvent 并验证通过，准备交由 EventService 处理",
		zap.String("event_listing_id", event.ListingID),
		zap.String("topic", message.Topic),
		zap.Int64("offset", message.Offset),
	)

	return h.eventService.HandleListingDeleteEvent(ctx, &event)
}

// isPermanentError 判断错误是否为不应重试的永久性错误：
// 上下文取消/超时、已知的业务验证哨兵错误、JSON 反序列化错误。
// 其余错误视为暂时性（网络波动、ES 临时过载），允许重试。
func isPermanentError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	if errors.Is(err, ErrInvalidListingID) ||
		errors.Is(err, ErrEmptyTitle) ||
		errors.Is(err, ErrInvalidEventFormat) {
		return true
	}

	var syntaxError *json.SyntaxError
	var unmarshalTypeError *json.UnmarshalTypeError
	if errors.As(err, &syntaxError) || errors.As(err, &unmarshalTypeError) {
		return true
	}

	return false
}

// minInt 返回两个整数中较小的一个，用于截断日志里的原始消息体。
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
