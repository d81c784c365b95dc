package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/Xushengqwer/listing_search/docs"

	"github.com/Xushengqwer/go-common/core"
	sharedTracing "github.com/Xushengqwer/go-common/core/tracing"
	"github.com/Xushengqwer/listing_search/config"
	"github.com/Xushengqwer/listing_search/constants"
	"github.com/Xushengqwer/listing_search/internal/api"
	"github.com/Xushengqwer/listing_search/internal/catalog"
	coreES "github.com/Xushengqwer/listing_search/internal/core/es"
	coreKafka "github.com/Xushengqwer/listing_search/internal/core/kafka"
	repoES "github.com/Xushengqwer/listing_search/internal/repositories"
	"github.com/Xushengqwer/listing_search/internal/service"
	"github.com/Xushengqwer/listing_search/router"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// @title 商品搜索与推荐服务 API
// @version 1.0.0
// @description 分类信息市场的搜索与推荐服务：全文搜索、自动补全、个性化推荐、热门与趋势商品。商品数据经 Kafka 事件索引。
// @termsOfService http://swagger.io/terms/

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8083
// @schemes http https
func main() {
	// --- 0. 配置和基础设置 ---
	var configFile string
	flag.StringVar(&configFile, "config", "config/config.development.yaml", "指定配置文件的路径")
	flag.Parse()

	var cfg config.ListingSearchConfig
	if err := core.LoadConfig(configFile, &cfg); err != nil {
		log.Fatalf("致命错误: 加载配置文件 '%s' 失败: %v", configFile, err)
	}

	logger, loggerErr := core.NewZapLogger(cfg.ZapConfig)
	if loggerErr != nil {
		log.Fatalf("致命错误: 初始化 ZapLogger 失败: %v", loggerErr)
	}
	defer func() {
		logger.Info("正在同步所有日志条目...")
		if err := logger.Logger().Sync(); err != nil {
			log.Printf("警告: ZapLogger Sync 操作失败: %v\n", err)
		}
	}()
	logger.Info("Logger 初始化成功。")

	// --- HTTP Transport 和 Tracer 初始化 ---
	baseHttpTransport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	var esHttpClientTransport http.RoundTripper = baseHttpTransport

	var tracerShutdown func(context.Context) error = func(ctx context.Context) error { return nil }
	if cfg.TracerConfig.Enabled {
		var err error
		tracerShutdown, err = sharedTracing.InitTracerProvider(
			constants.ServiceName,
			constants.ServiceVersion,
			cfg.TracerConfig,
		)
		if err != nil {
			logger.Fatal("初始化分布式追踪 TracerProvider 失败", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			logger.Info("正在关闭分布式追踪 TracerProvider...")
			if err := tracerShutdown(ctx); err != nil {
				logger.Error("关闭分布式追踪 TracerProvider 时发生错误", zap.Error(err))
			} else {
				logger.Info("分布式追踪 TracerProvider 已成功关闭。")
			}
		}()
		logger.Info("分布式追踪功能已初始化。")
		http.DefaultTransport = otelhttp.NewTransport(http.DefaultTransport)
		logger.Debug("OpenTelemetry HTTP Transport 已初始化并设置为默认值 (用于出站请求追踪)。")
	} else {
		logger.Info("分布式追踪功能已禁用 (根据配置)。")
	}

	// --- 核心组件初始化 ---

	// 1. Elasticsearch 客户端。连接重试耗尽时不崩溃，以降级模式启动：
	// 所有面向用户的读接口返回空结果，健康检查如实上报。
	esClientCore, err := coreES.NewESClient(cfg.ElasticsearchConfig, logger, esHttpClientTransport)
	if err != nil {
		logger.Fatal("创建 Elasticsearch 客户端失败", zap.Error(err))
	}
	if esClientCore.Degraded {
		logger.Warn("Elasticsearch 不可用，服务以降级模式启动。")
	} else {
		logger.Info("Elasticsearch 客户端初始化成功。")
	}

	// 配置文件省略的引擎参数补齐为默认值，后续组件直接取用。
	cfg.EngineConfig.ApplyDefaults()

	// 2. Repositories。列表项读写都经别名，物理索引切换对仓库透明。
	listingRepo := repoES.NewESListingRepository(esClientCore.Client, esClientCore.Alias(), logger)
	logger.Info("商品 Elasticsearch Repository 初始化成功。", zap.String("alias", esClientCore.Alias()))

	historyRepo := repoES.NewESHistoryRepository(
		esClientCore.Client,
		esClientCore.HistoryIndex(),
		cfg.EngineConfig.HistoryCoalesceWindow,
		logger,
	)
	logger.Info("搜索历史 Elasticsearch Repository 初始化成功。", zap.String("index_name", esClientCore.HistoryIndex()))

	// 3. 商品目录服务客户端（分类展开与全量导出）。
	catalogClient := catalog.NewHTTPClient(cfg.CatalogConfig, logger)
	logger.Info("商品目录服务客户端初始化成功。", zap.String("base_url", cfg.CatalogConfig.BaseURL))

	// 4. 进程内共享基础设施：TTL 缓存、请求去重、固定窗口限流。
	sub := service.NewSubstrate(cfg.EngineConfig)

	// 5. 业务服务层。
	searchSvc := service.NewSearchService(listingRepo, historyRepo, catalogClient, sub, esClientCore.Degraded, logger)
	suggestSvc := service.NewSuggestService(listingRepo, historyRepo, sub, esClientCore.Degraded, logger)
	discoverySvc := service.NewDiscoveryService(listingRepo, historyRepo, sub, esClientCore.Degraded, logger)
	adminSvc := service.NewAdminService(esClientCore, listingRepo, catalogClient, logger)
	logger.Info("业务服务层初始化成功。")

	// 6. Kafka 事件处理服务（商品事件写入索引）。
	eventSvc := coreKafka.NewEventService(listingRepo, logger)
	logger.Info("EventService 初始化成功。")

	// 7. Sarama 配置。
	saramaCfg, err := coreKafka.ConfigureSarama(cfg.KafkaConfig, logger)
	if err != nil {
		logger.Fatal("配置 Sarama (Kafka 客户端库) 失败", zap.Error(err))
	}
	logger.Info("Sarama (Kafka 客户端库) 配置初始化成功。")

	// 8. DLQ 同步生产者。
	dlqProducer, err := coreKafka.NewSyncProducer(cfg.KafkaConfig, saramaCfg, logger)
	if err != nil {
		logger.Fatal("创建 Kafka DLQ 同步生产者失败", zap.Error(err))
	}
	defer func() {
		logger.Info("正在关闭 Kafka DLQ 生产者...")
		if err := dlqProducer.Close(); err != nil {
			logger.Error("关闭 Kafka DLQ 生产者时发生错误", zap.Error(err))
		} else {
			logger.Info("Kafka DLQ 生产者已成功关闭。")
		}
	}()
	logger.Info("Kafka DLQ 同步生产者初始化成功。")

	// 9. Kafka 消息处理器。约定 SubscribedTopics[0] 为商品新增/更新事件，
	// SubscribedTopics[1] 为删除事件。
	var upsertTopic, deleteTopic string
	if len(cfg.KafkaConfig.SubscribedTopics) >= 1 {
		upsertTopic = cfg.KafkaConfig.SubscribedTopics[0]
	} else {
		logger.Fatal("Kafka 配置错误：未找到用于商品新增/更新事件的主题 (SubscribedTopics[0])")
	}
	if len(cfg.KafkaConfig.SubscribedTopics) >= 2 {
		deleteTopic = cfg.KafkaConfig.SubscribedTopics[1]
	} else {
		logger.Warn("Kafka 配置警告：未明确找到用于删除事件的主题 (期望在 SubscribedTopics[1])。如果服务不处理删除事件，此警告可忽略。")
	}
	if upsertTopic == "" || (deleteTopic == "" && len(cfg.KafkaConfig.SubscribedTopics) > 1) {
		logger.Fatal("Kafka 主题配置不完整：upsertTopic 或 deleteTopic 未能正确从 SubscribedTopics 中提取。")
	}

	kafkaHandler := coreKafka.NewHandler(
		eventSvc,
		dlqProducer,
		cfg.KafkaConfig.DLQTopic,
		upsertTopic,
		deleteTopic,
		logger,
		cfg.KafkaConfig.MaxRetryAttempts,
	)
	logger.Info("Kafka 消息处理器 (Handler) 初始化成功。")

	// 10. Kafka 消费者组。
	consumerGroup, err := coreKafka.NewConsumerGroup(
		cfg.KafkaConfig,
		saramaCfg,
		kafkaHandler,
		logger,
	)
	if err != nil {
		logger.Fatal("创建 Kafka 消费者组失败", zap.Error(err))
	}
	defer func() {
		logger.Info("正在关闭 Kafka 消费者组...")
		if err := consumerGroup.Close(); err != nil {
			logger.Error("关闭 Kafka 消费者组时发生错误", zap.Error(err))
		} else {
			logger.Info("Kafka 消费者组已成功关闭。")
		}
	}()
	logger.Info("Kafka 消费者组初始化成功。")

	// 11. API Handler (控制器)。
	searchApiHandler := api.NewSearchHandler(searchSvc, suggestSvc, logger)
	discoveryApiHandler := api.NewDiscoveryHandler(discoverySvc, logger)
	adminApiHandler := api.NewAdminHandler(adminSvc, logger)
	logger.Info("API Handler 初始化成功。")

	// 12. Gin Web 引擎及路由。
	ginRouter := router.SetupRouter(logger, &cfg, searchApiHandler, discoveryApiHandler, adminApiHandler)
	logger.Info("Gin Web 引擎及 API 路由初始化和注册成功。")

	// --- 服务启动与优雅关闭 ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumerGroup.Start(ctx)
	logger.Info("Kafka 消费者组已启动，开始在后台消费消息。")

	serverAddr := cfg.Server.ListenAddr
	if serverAddr == "" {
		serverAddr = ":" + cfg.Server.Port
	} else if !strings.Contains(serverAddr, ":") {
		serverAddr = serverAddr + ":" + cfg.Server.Port
	}

	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: ginRouter,
	}

	go func() {
		logger.Info("HTTP API 服务器正在启动...", zap.String("listen_address", serverAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP API 服务器启动失败或意外停止", zap.Error(err))
			cancel()
		}
	}()

	quitSignal := make(chan os.Signal, 1)
	signal.Notify(quitSignal, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("服务已成功启动。正在监听中断或终止信号以进行优雅关闭...")

	receivedSignal := <-quitSignal
	logger.Info("接收到关闭信号，开始进行服务的优雅关闭...", zap.String("signal", receivedSignal.String()))

	cancel()
	logger.Info("已发出全局上下文取消信号，通知所有组件开始关闭。")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	logger.Info("正在优雅地关闭 HTTP API 服务器...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("关闭 HTTP API 服务器时发生错误", zap.Error(err))
	} else {
		logger.Info("HTTP API 服务器已成功关闭。")
	}

	logger.Info("服务所有组件已完成关闭流程，程序即将退出。")
}
