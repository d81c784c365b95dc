package router

import (
	"time"

	"github.com/Xushengqwer/go-common/core"
	commonMiddleware "github.com/Xushengqwer/go-common/middleware"
	"github.com/Xushengqwer/listing_search/config"
	"github.com/Xushengqwer/listing_search/constants"
	_ "github.com/Xushengqwer/listing_search/docs"
	"github.com/Xushengqwer/listing_search/internal/api"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	otelgin "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// SetupRouter 初始化并配置 Gin 引擎，注册全部中间件与 API 路由。
// 中间件顺序：链路追踪最先，随后是 panic 恢复、请求日志与请求超时；
// 业务路由统一挂在 /api/v1 分组下。
func SetupRouter(
	logger *core.ZapLogger,
	cfg *config.ListingSearchConfig,
	searchHandler *api.SearchHandler,
	discoveryHandler *api.DiscoveryHandler,
	adminHandler *api.AdminHandler,
) *gin.Engine {
	logger.Info("开始为商品搜索服务设置 Gin 路由...")

	router := gin.Default()

	router.Use(otelgin.Middleware(constants.ServiceName))
	logger.Info("OpenTelemetry (OTel) 中间件已注册。", zap.String("service_name", constants.ServiceName))

	router.Use(commonMiddleware.ErrorHandlingMiddleware(logger))
	logger.Info("全局错误处理 (Panic Recovery) 中间件已注册。")

	if baseLogger := logger.Logger(); baseLogger != nil {
		router.Use(commonMiddleware.RequestLoggerMiddleware(baseLogger))
		logger.Info("请求日志中间件已注册。")
	} else {
		logger.Warn("无法获取底层的 *zap.Logger 实例，跳过请求日志中间件的注册。")
	}

	var requestTimeout time.Duration
	if cfg.Server.RequestTimeout > 0 {
		requestTimeout = cfg.Server.RequestTimeout
	} else {
		logger.Warn("配置文件中的请求超时 (server.requestTimeout) 无效或未设置，将使用默认超时10秒。",
			zap.Duration("parsed_duration_from_config", cfg.Server.RequestTimeout),
		)
		requestTimeout = 10 * time.Second
	}
	router.Use(commonMiddleware.RequestTimeoutMiddleware(logger, requestTimeout))
	logger.Info("请求超时中间件已注册。", zap.Duration("timeout_duration", requestTimeout))

	apiV1Group := router.Group("/api/v1")
	logger.Info("API 路由将统一注册到基础路径 /api/v1 分组下。")

	if searchHandler == nil || discoveryHandler == nil || adminHandler == nil {
		logger.Error("存在未初始化的 API Handler 实例，路由无法注册！")
		panic("致命错误：API Handler 未初始化，无法注册路由。")
	}
	searchHandler.RegisterRoutes(apiV1Group)
	discoveryHandler.RegisterRoutes(apiV1Group)
	adminHandler.RegisterRoutes(apiV1Group)
	logger.Info("所有业务相关的 API 路由已注册完成。")

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	logger.Info("Swagger UI 路由已注册。可以通过 /swagger/index.html 访问 API 文档。")

	logger.Info("商品搜索服务的 Gin 路由设置已全部完成。")
	return router
}
