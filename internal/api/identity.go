package api

import (
	"github.com/Xushengqwer/listing_search/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	headerUserID    = "X-User-ID"
	headerSessionID = "X-Session-ID"
)

// identityFromRequest 从请求头解析调用方身份。
// 已登录用户带 X-User-ID；匿名用户带 X-Session-ID。两者都缺失时
// 生成一个新的会话 ID 并通过响应头回传，供客户端后续请求携带。
func identityFromRequest(c *gin.Context) models.Identity {
	if userID := c.GetHeader(headerUserID); userID != "" {
		return models.Identity{UserID: userID}
	}
	if sessionID := c.GetHeader(headerSessionID); sessionID != "" {
		return models.Identity{SessionID: sessionID}
	}
	sessionID := uuid.NewString()
	c.Header(headerSessionID, sessionID)
	return models.Identity{SessionID: sessionID}
}
