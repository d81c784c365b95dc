package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Xushengqwer/go-common/core"

	"github.com/Xushengqwer/listing_search/internal/catalog"
	"github.com/Xushengqwer/listing_search/internal/core/es"
	"github.com/Xushengqwer/listing_search/internal/models"
	"github.com/Xushengqwer/listing_search/internal/repositories"

	"go.uber.org/zap"
)

// AdminService 承载运维面操作：全量重建索引、别名修复和健康检查。
// 与面向用户的读路径不同，这里的操作会把错误如实返回给调用方——
// 运维接口需要知道失败，而不是拿到一个静默的空结果。
type AdminService struct {
	esClient      *es.ESClient
	listingRepo   repositories.ListingRepository
	catalogClient catalog.Client
	logger        *core.ZapLogger
}

// NewAdminService 创建 AdminService 的一个新实例。
func NewAdminService(
	esClient *es.ESClient,
	listingRepo repositories.ListingRepository,
	catalogClient catalog.Client,
	logger *core.ZapLogger,
) *AdminService {
	if logger == nil {
		panic("创建 AdminService 失败：Logger 实例不能为 nil。")
	}
	if esClient == nil {
		logger.Fatal("创建 AdminService 失败：ESClient 实例不能为 nil。")
	}
	if listingRepo == nil {
		logger.Fatal("创建 AdminService 失败：ListingRepository 实例不能为 nil。")
	}
	if catalogClient == nil {
		logger.Fatal("创建 AdminService 失败：目录服务客户端不能为 nil。")
	}

	logger.Info("AdminService 初始化成功")
	return &AdminService{
		esClient:      esClient,
		listingRepo:   listingRepo,
		catalogClient: catalogClient,
		logger:        logger,
	}
}

// ReindexAll 执行全量重建：从目录服务导出全部列表项，删除并重建
// 版本化物理索引，再经别名批量写回。非增量的完全重建是可接受的，
// 因为权威数据在目录库，这个索引只是可重建的投影。
func (s *AdminService) ReindexAll(ctx context.Context) (*models.ReindexResult, error) {
	s.logger.Info("开始全量重建列表项索引")
	started := time.Now()

	// 先导出再删索引：导出失败时现有索引原样保留，重建请求不落地。
	payloads, err := s.catalogClient.FetchAllListings(ctx)
	if err != nil {
		s.logger.Error("从目录服务导出列表项失败，重建中止（现有索引未动）", zap.Error(err))
		return nil, fmt.Errorf("从目录服务导出列表项失败: %w", err)
	}

	if err := s.esClient.RecreateListingsIndex(ctx); err != nil {
		s.logger.Error("重建列表项物理索引失败", zap.Error(err))
		return nil, fmt.Errorf("重建列表项物理索引失败: %w", err)
	}

	docs := make([]models.EsListingDocument, 0, len(payloads))
	for i := range payloads {
		docs = append(docs, payloads[i].ToDocument())
	}

	count, hadErrors, err := s.listingRepo.BulkIndexListings(ctx, docs)
	if err != nil {
		s.logger.Error("全量重建批量写入失败",
			zap.Int("indexed_before_failure", count),
			zap.Error(err),
		)
		return nil, fmt.Errorf("全量重建批量写入失败 (已写入 %d 条): %w", count, err)
	}

	s.logger.Info("全量重建完成",
		zap.Int("total_documents", len(docs)),
		zap.Int("indexed", count),
		zap.Bool("had_errors", hadErrors),
		zap.Duration("elapsed", time.Since(started)),
	)
	return &models.ReindexResult{Count: count, HadErrors: hadErrors}, nil
}

// FixAlias 修复"别名背后恰好一个可写索引"的不变量。
func (s *AdminService) FixAlias(ctx context.Context) error {
	if err := s.esClient.FixAliasWriteIndex(ctx); err != nil {
		s.logger.Error("别名修复失败", zap.Error(err))
		return fmt.Errorf("别名修复失败: %w", err)
	}
	return nil
}

// Health 返回服务健康报告：即时探测索引连通性并带上降级标记。
func (s *AdminService) Health(ctx context.Context) *models.HealthReport {
	report := &models.HealthReport{
		Status:        "ok",
		Elasticsearch: "up",
		Degraded:      s.esClient.Degraded,
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.esClient.Ping(pingCtx); err != nil {
		s.logger.Warn("健康检查：Elasticsearch 探测失败", zap.Error(err))
		report.Elasticsearch = "down"
	}

	if report.Elasticsearch == "down" || report.Degraded {
		report.Status = "degraded"
	}
	return report
}
