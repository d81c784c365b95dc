package api

import (
	"net/http"

	"github.com/Xushengqwer/gateway/pkg/response"
	"github.com/Xushengqwer/go-common/core"
	"github.com/Xushengqwer/listing_search/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler 封装运维接口：全量重建索引、别名修复与健康检查.
// 与面向用户的读接口不同，这些操作失败时如实返回错误。
type AdminHandler struct {
	adminService *service.AdminService
	logger       *core.ZapLogger
}

// NewAdminHandler 创建 AdminHandler 实例.
func NewAdminHandler(adminSvc *service.AdminService, logger *core.ZapLogger) *AdminHandler {
	if logger == nil {
		panic("NewAdminHandler: logger cannot be nil")
	}
	if adminSvc == nil {
		logger.Fatal("NewAdminHandler: AdminService 不能为 nil")
	}

	return &AdminHandler{
		adminService: adminSvc,
		logger:       logger,
	}
}

// Reindex 处理全量重建索引请求
// @Summary      全量重建商品索引
// @Description  从商品目录服务导出全部商品，删除并重建物理索引，重新绑定写别名后批量写入。
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  models.SwaggerErrorResponse "重建完成，返回写入文档数。"
// @Failure      500  {object}  models.SwaggerErrorResponse "重建失败。导出阶段失败时现有索引保持不变。"
// @Router       /api/v1/admin/reindex [post]
func (h *AdminHandler) Reindex(c *gin.Context) {
	h.logger.Info("收到全量重建索引请求")

	result, err := h.adminService.ReindexAll(c.Request.Context())
	if err != nil {
		h.logger.Error("全量重建索引失败", zap.Error(err))
		response.RespondError(c, http.StatusInternalServerError, response.ErrCodeServerInternal, "全量重建索引失败")
		return
	}

	h.logger.Info("全量重建索引完成",
		zap.Int("indexed", result.Count),
		zap.Bool("had_errors", result.HadErrors),
	)
	response.RespondSuccess(c, result, "索引重建完成")
}

// FixAlias 处理别名修复请求
// @Summary      修复搜索别名
// @Description  重新断言搜索别名指向唯一的写索引，用于索引切换中断后的恢复。
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  models.SwaggerErrorResponse "别名状态已修复。"
// @Failure      500  {object}  models.SwaggerErrorResponse "修复别名失败。"
// @Router       /api/v1/admin/fix-alias [post]
func (h *AdminHandler) FixAlias(c *gin.Context) {
	if err := h.adminService.FixAlias(c.Request.Context()); err != nil {
		h.logger.Error("修复别名失败", zap.Error(err))
		response.RespondError(c, http.StatusInternalServerError, response.ErrCodeServerInternal, "修复别名失败")
		return
	}
	response.RespondSuccess(c, gin.H{"fixed": true}, "别名状态已修复")
}

// HealthCheck 健康检查处理函数
// @Summary      健康检查
// @Description  报告服务与 Elasticsearch 的连通状态，以及是否处于降级模式。
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  models.SwaggerErrorResponse "健康报告。"
// @Router       /api/v1/_health [get]
func (h *AdminHandler) HealthCheck(c *gin.Context) {
	report := h.adminService.Health(c.Request.Context())
	response.RespondSuccess(c, report, "服务存活")
}

// RegisterRoutes 将运维路由注册到提供的 Gin 路由组上。
func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/admin/reindex", h.Reindex)
	rg.POST("/admin/fix-alias", h.FixAlias)
	rg.GET("/_health", h.HealthCheck)
	h.logger.Info("AdminHandler 的所有路由已注册完成。")
}
