package constants

// 服务标识，用于链路追踪与日志标注。
const (
	ServiceName    = "listing-search-service"
	ServiceVersion = "1.0.0"
)
