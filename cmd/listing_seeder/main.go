package main

import (
	"encoding/json"
	"flag"
	"log"
	"path/filepath"
	"time"

	"github.com/IBM/sarama"
	"github.com/Xushengqwer/go-common/core"
	"github.com/Xushengqwer/listing_search/config"
	internalKafka "github.com/Xushengqwer/listing_search/internal/core/kafka"
	"github.com/Xushengqwer/listing_search/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 本地开发用的数据种子工具：向商品事件主题发送一批测试商品，
// 再发送两条删除事件（其中一条指向不存在的商品，验证删除幂等性）。
func main() {
	var configFile string
	defaultConfigPath := filepath.Join("..", "..", "config", "config.development.yaml")

	flag.StringVar(&configFile, "config", defaultConfigPath, "指定配置文件的路径 (相对于当前工作目录或绝对路径)")
	flag.Parse()

	if !filepath.IsAbs(configFile) {
		absPath, err := filepath.Abs(configFile)
		if err != nil {
			log.Fatalf("无法将配置文件路径 '%s' 转换为绝对路径: %v", configFile, err)
		}
		configFile = absPath
	}
	log.Printf("使用的配置文件: %s", configFile)

	var cfg config.ListingSearchConfig
	if err := core.LoadConfig(configFile, &cfg); err != nil {
		log.Fatalf("致命错误: 加载配置文件 '%s' 失败: %v", configFile, err)
	}
	log.Println("配置文件加载成功。")

	logger, loggerErr := core.NewZapLogger(cfg.ZapConfig)
	if loggerErr != nil {
		log.Fatalf("致命错误: 初始化 ZapLogger 失败: %v", loggerErr)
	}
	defer func() {
		if err := logger.Logger().Sync(); err != nil {
			log.Printf("警告: ZapLogger Sync 操作失败: %v\n", err)
		}
	}()
	logger.Info("Listing Seeder 的 Zap Logger 初始化成功。")

	kafkaCfg := cfg.KafkaConfig
	if len(kafkaCfg.SubscribedTopics) < 2 {
		logger.Fatal("Kafka 配置错误：subscribedTopics 至少需要包含两个主题 (一个用于新增/更新，一个用于删除)。")
	}

	upsertTopic := kafkaCfg.SubscribedTopics[0]
	deleteTopic := kafkaCfg.SubscribedTopics[1]

	logger.Info("Listing Seeder 将使用以下主题",
		zap.String("新增/更新事件主题", upsertTopic),
		zap.String("删除事件主题", deleteTopic),
	)

	saramaConfig, err := internalKafka.ConfigureSarama(kafkaCfg, logger)
	if err != nil {
		logger.Fatal("配置 Sarama (Kafka 客户端库) 失败", zap.Error(err))
	}

	producer, err := sarama.NewSyncProducer(kafkaCfg.Brokers, saramaConfig)
	if err != nil {
		logger.Fatal("创建 Kafka 同步生产者 (SyncProducer) 失败", zap.Error(err))
	}
	defer func() {
		if err := producer.Close(); err != nil {
			logger.Error("关闭 Kafka 同步生产者时发生错误", zap.Error(err))
		} else {
			logger.Info("Kafka 同步生产者已成功关闭。")
		}
	}()
	logger.Info("Kafka 同步生产者 (SyncProducer) 初始化成功并已连接。", zap.Strings("Brokers地址", kafkaCfg.Brokers))

	active := true
	inactive := false
	now := time.Now().UTC()

	testUpsertEvents := []models.KafkaListingUpsertEvent{
		{
			EventID: uuid.NewString(),
			Listing: models.ListingPayload{
				ID:           "seed-1001",
				Title:        "iPhone 13 Pro 256GB 深空灰 九五成新",
				Description:  "个人自用一年，无拆无修，电池健康 89%，配件齐全。",
				Price:        3200,
				ViewCount:    420,
				Status:       models.ListingStatusActive,
				UserIsActive: &active,
				CategoryID:   "cat-phones",
				CategoryName: "手机数码",
				CategorySlug: "phones",
				LocationID:   "loc-sz",
				City:         "深圳",
				Country:      "CN",
				ZoneID:       "zone-nanshan",
				ZoneName:     "南山区",
				Images:       []string{"http://example.com/img/seed-1001-1.jpg"},
				UserID:       "user-seed-01",
				CreatedAt:    now.Add(-48 * time.Hour),
			},
		},
		{
			EventID: uuid.NewString(),
			Listing: models.ListingPayload{
				ID:           "seed-1002",
				Title:        "宜家书桌 LINNMON 120x60 白色",
				Description:  "搬家出售，桌面有轻微使用痕迹，自取优先。",
				Price:        80,
				ViewCount:    35,
				Status:       models.ListingStatusActive,
				UserIsActive: &active,
				CategoryID:   "cat-furniture",
				CategoryName: "家具家居",
				CategorySlug: "furniture",
				LocationID:   "loc-sz",
				City:         "深圳",
				Country:      "CN",
				ZoneID:       "zone-futian",
				ZoneName:     "福田区",
				UserID:       "user-seed-02",
				CreatedAt:    now.Add(-2 * time.Hour),
			},
		},
		{
			EventID: uuid.NewString(),
			Listing: models.ListingPayload{
				ID:           "seed-1003",
				Title:        "捷安特公路车 TCR Advanced 2",
				Description:  "骑行不到 500 公里，碳纤维车架，尺码 M。",
				Price:        8800,
				ViewCount:    1280,
				Status:       models.ListingStatusActive,
				UserIsActive: &inactive, // 卖家已停用，不应出现在公开搜索结果里
				CategoryID:   "cat-bikes",
				CategoryName: "自行车",
				CategorySlug: "bikes",
				LocationID:   "loc-gz",
				City:         "广州",
				Country:      "CN",
				ZoneID:       "zone-tianhe",
				ZoneName:     "天河区",
				UserID:       "user-seed-03",
				CreatedAt:    now.Add(-240 * time.Hour),
			},
		},
		{
			EventID: uuid.NewString(),
			Listing: models.ListingPayload{
				ID:           "seed-1004",
				Title:        "Kindle Paperwhite 5 8GB",
				Description:  "已下架商品样例，用于验证可见性过滤。",
				Price:        450,
				ViewCount:    90,
				Status:       models.ListingStatusSold,
				UserIsActive: &active,
				CategoryID:   "cat-phones",
				CategoryName: "手机数码",
				CategorySlug: "phones",
				LocationID:   "loc-sz",
				City:         "深圳",
				Country:      "CN",
				ZoneID:       "zone-nanshan",
				ZoneName:     "南山区",
				UserID:       "user-seed-01",
				CreatedAt:    now.Add(-12 * time.Hour),
			},
		},
	}

	logger.Info("开始发送商品新增/更新事件到 Kafka...", zap.Int("消息数量", len(testUpsertEvents)))
	for _, event := range testUpsertEvents {
		payloadBytes, err := json.Marshal(event)
		if err != nil {
			logger.Error("序列化 KafkaListingUpsertEvent 为 JSON 时发生错误",
				zap.String("商品ID", event.Listing.ID),
				zap.Error(err))
			continue
		}
		msg := &sarama.ProducerMessage{
			Topic: upsertTopic,
			Key:   sarama.StringEncoder(event.Listing.ID),
			Value: sarama.ByteEncoder(payloadBytes),
		}
		partition, offset, err := producer.SendMessage(msg)
		if err != nil {
			logger.Error("发送商品新增/更新事件到 Kafka 失败",
				zap.String("目标主题", upsertTopic),
				zap.String("商品ID", event.Listing.ID),
				zap.Error(err),
			)
		} else {
			logger.Info("商品新增/更新事件成功发送到 Kafka",
				zap.String("目标主题", upsertTopic),
				zap.String("商品ID", event.Listing.ID),
				zap.Int32("分区(Partition)", partition),
				zap.Int64("偏移量(Offset)", offset),
			)
		}
		time.Sleep(100 * time.Millisecond)
	}
	logger.Info("所有商品新增/更新事件已发送（或已尝试发送）到 Kafka。")

	testDeleteEvents := []models.KafkaListingDeleteEvent{
		{
			EventID:   uuid.NewString(),
			Operation: "delete",
			ListingID: "seed-1004",
		},
		{
			EventID:   uuid.NewString(),
			Operation: "delete",
			ListingID: "seed-9999", // 不存在的商品，验证删除操作的幂等性
		},
	}

	logger.Info("开始发送商品删除事件到 Kafka...", zap.Int("消息数量", len(testDeleteEvents)))
	for _, event := range testDeleteEvents {
		payloadBytes, err := json.Marshal(event)
		if err != nil {
			logger.Error("序列化 KafkaListingDeleteEvent 为 JSON 时发生错误",
				zap.String("商品ID", event.ListingID),
				zap.Error(err))
			continue
		}
		msg := &sarama.ProducerMessage{
			Topic: deleteTopic,
			Key:   sarama.StringEncoder(event.ListingID),
			Value: sarama.ByteEncoder(payloadBytes),
		}
		partition, offset, err := producer.SendMessage(msg)
		if err != nil {
			logger.Error("发送商品删除事件到 Kafka 失败",
				zap.String("目标主题", deleteTopic),
				zap.String("商品ID", event.ListingID),
				zap.Error(err),
			)
		} else {
			logger.Info("商品删除事件成功发送到 Kafka",
				zap.String("目标主题", deleteTopic),
				zap.String("商品ID", event.ListingID),
				zap.Int32("分区(Partition)", partition),
				zap.Int64("偏移量(Offset)", offset),
			)
		}
		time.Sleep(100 * time.Millisecond)
	}
	logger.Info("所有商品删除事件已发送（或已尝试发送）到 Kafka。")

	logger.Info("所有测试数据均已处理完毕。")
}
