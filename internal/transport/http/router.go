package httptransport

import (
	"context"
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"orderdesk/dashboard/internal/config"
	"orderdesk/dashboard/internal/domain"
	"orderdesk/dashboard/internal/health"
	"orderdesk/dashboard/internal/listing"
	"orderdesk/dashboard/internal/middleware"
	"orderdesk/dashboard/internal/monitoring"
	"orderdesk/dashboard/internal/pool"
	"orderdesk/dashboard/internal/service"
	"orderdesk/dashboard/internal/websocket"
)

// 上传接口路径，请求体上限单独计算
const uploadPath = "/api/v1/emails/upload"

// Handler 聚合所有 HTTP 处理逻辑。
type Handler struct {
	emails       *service.EmailService
	orders       *service.OrderService
	uploads      *service.UploadService
	dashboardSvc *service.DashboardService
	emailList    *listing.Controller[service.EmailSummary]
	orderList    *listing.Controller[domain.Order]
	oauth        OAuthLinker
	background   *pool.WorkerPool
	maxFileSize  int64
	maxFiles     int
	logger       *zap.Logger
}

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config           *config.Config
	EmailService     *service.EmailService
	OrderService     *service.OrderService
	UploadService    *service.UploadService
	DashboardService *service.DashboardService
	EmailList        *listing.Controller[service.EmailSummary]
	OrderList        *listing.Controller[domain.Order]
	OAuth            OAuthLinker
	WebSocketHub     *websocket.Hub            // 可选
	Metrics          *monitoring.Metrics       // 可选
	Health           *health.HealthChecker     // liveness / readiness，可选
	Reporter         *monitoring.HealthChecker // 详细健康报告，可选
	Background       *pool.WorkerPool          // 变更后的列表刷新任务，可选
	Logger           *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()

	// 有指标时使用带 panic 计数的恢复中间件
	var monitor *middleware.MonitoringMiddleware
	if deps.Metrics != nil {
		monitor = middleware.NewMonitoringMiddleware(deps.Metrics, logger)
		router.Use(monitor.PanicRecovery())
	} else {
		router.Use(middleware.RecoveryHandler(logger))
	}
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.SecurityHeaders())

	// 上传接口按附件上限放宽，其余使用默认限制
	router.Use(middleware.DynamicBodySizeLimit(map[string]int64{
		uploadPath: middleware.UploadBodyLimit(deps.Config.Upload.MaxFileSize, deps.Config.Upload.MaxFiles),
	}, middleware.DefaultBodyLimit))

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader, "X-Max-Body-Size"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	if monitor != nil {
		router.Use(monitor.HTTPMetrics())
	}

	handler := &Handler{
		emails:       deps.EmailService,
		orders:       deps.OrderService,
		uploads:      deps.UploadService,
		dashboardSvc: deps.DashboardService,
		emailList:    deps.EmailList,
		orderList:    deps.OrderList,
		oauth:        deps.OAuth,
		background:   deps.Background,
		maxFileSize:  deps.Config.Upload.MaxFileSize,
		maxFiles:     deps.Config.Upload.MaxFiles,
		logger:       logger,
	}

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		if deps.Reporter == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		report := deps.Reporter.CheckHealth()
		status := http.StatusOK
		if report.Status == monitoring.HealthStatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, report)
	})
	if deps.Health != nil {
		router.GET("/health/live", gin.WrapF(deps.Health.LiveHandler()))
		router.GET("/health/ready", gin.WrapF(deps.Health.ReadyHandler()))
	}

	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	// ========== WebSocket Routes ==========
	if deps.WebSocketHub != nil {
		router.GET("/ws", websocket.HandleWebSocket(deps.WebSocketHub))
	}

	// V1 API
	v1 := router.Group("/api/v1")
	v1.Use(middleware.ValidateContentType("application/json", "multipart/form-data"))
	{
		v1.GET("/dashboard", handler.dashboard)

		// ========== Email Routes ==========
		emailRoutes := v1.Group("/emails")
		{
			emailRoutes.GET("", handler.listEmails)
			emailRoutes.POST("/refresh", handler.refreshEmails)
			emailRoutes.GET("/stats", handler.emailStats)
			emailRoutes.POST("/upload", handler.uploadEmail)
			emailRoutes.GET("/:trackingId", handler.getEmail)
			emailRoutes.DELETE("/:trackingId", handler.deleteEmail)
			emailRoutes.POST("/:trackingId/reprocess", handler.reprocessEmail)
			emailRoutes.POST("/:trackingId/convert", handler.convertEmail)
		}

		// ========== Order Routes ==========
		orderRoutes := v1.Group("/orders")
		{
			orderRoutes.GET("", handler.listOrders)
			orderRoutes.POST("/refresh", handler.refreshOrders)
			orderRoutes.GET("/stats", handler.orderStats)
			orderRoutes.GET("/:id", handler.getOrder)
			orderRoutes.PUT("/:id", handler.updateOrder)
			orderRoutes.DELETE("/:id", handler.deleteOrder)
		}

		// ========== Auth Routes ==========
		if deps.OAuth != nil {
			v1.GET("/auth/:provider", handler.oauthRedirect)
		}
	}

	return router
}

// refreshLists 数据变更后让有订阅者的列表立即重新拉取
//
// 轮询在没有订阅者或已有拉取进行时自动跳过。
func (h *Handler) refreshLists() {
	if h.emailList != nil {
		h.submit(func(ctx context.Context) { h.emailList.Poll(ctx) })
	}
	if h.orderList != nil {
		h.submit(func(ctx context.Context) { h.orderList.Poll(ctx) })
	}
}

// submit 交给后台协程池执行，没有协程池时直接起协程
func (h *Handler) submit(task pool.Task) {
	if h.background == nil {
		go task(context.Background())
		return
	}
	if !h.background.TrySubmit(task) {
		h.logger.Debug("Background queue full, skipping list refresh")
	}
}
