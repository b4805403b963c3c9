package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"orderdesk/dashboard/internal/cache"
	"orderdesk/dashboard/internal/client"
	"orderdesk/dashboard/internal/config"
	"orderdesk/dashboard/internal/domain"
	"orderdesk/dashboard/internal/health"
	"orderdesk/dashboard/internal/listing"
	"orderdesk/dashboard/internal/logger"
	"orderdesk/dashboard/internal/monitoring"
	"orderdesk/dashboard/internal/pool"
	"orderdesk/dashboard/internal/service"
	httptransport "orderdesk/dashboard/internal/transport/http"
	"orderdesk/dashboard/internal/websocket"
)

const (
	version = "1.0.0"

	// 统计缓存最多保存的条目数
	cacheMaxEntries = 64

	// 变更后刷新列表的后台任务
	backgroundWorkers = 2
	backgroundQueue   = 16

	healthCheckInterval = 30 * time.Second
	backendCheckTimeout = 5 * time.Second
)

// main 启动订单看板服务：HTTP API、WebSocket 推送与列表后台轮询。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.NewLogger(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		LogFile:     cfg.Log.File,
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting orderdesk dashboard server",
		zap.String("version", version),
		zap.String("api_url", cfg.API.URL),
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 初始化监控系统
	metrics := monitoring.NewMetrics()

	// 后端客户端
	apiClient, err := client.New(client.Config{
		BaseURL:    cfg.API.URL,
		Timeout:    cfg.API.Timeout,
		MaxRetries: cfg.API.MaxRetries,
		RetryDelay: cfg.API.RetryDelay,
		RateLimit:  cfg.API.RateLimit,
		RateBurst:  cfg.API.RateBurst,
	}, client.WithLogger(log.Named("client")), client.WithObserver(metrics))
	if err != nil {
		log.Fatal("failed to create api client", zap.Error(err))
	}

	// 初始化服务层，统计缓存由各服务共享
	statsCache := cache.NewLocalCache(cacheMaxEntries, cfg.Cache.StatsTTL)
	defer statsCache.Stop()

	emailService := service.NewEmailService(apiClient, statsCache, cfg.Cache.StatsTTL, log)
	emailService.SetRecorder(metrics)
	orderService := service.NewOrderService(apiClient, statsCache, cfg.Cache.StatsTTL, log)
	orderService.SetRecorder(metrics)
	uploadService := service.NewUploadService(apiClient, statsCache, log)
	uploadService.SetRecorder(metrics)
	dashboardService := service.NewDashboardService(orderService, log)

	// 创建 WebSocket Hub
	wsHub := websocket.NewHub(cfg.CORS.AllowedOrigins, []string{websocket.TopicEmails, websocket.TopicOrders}, log)
	wsHub.SetObserver(metrics)

	// 列表控制器：只有存在订阅者时才后台轮询，每次状态变化推送给订阅者
	emailList := listing.New("emails", emailService.List, nil,
		listing.WithInterval[service.EmailSummary](cfg.Poll.Interval),
		listing.WithIsActive[service.EmailSummary](func() bool { return wsHub.HasSubscribers(websocket.TopicEmails) }),
		listing.WithErrorMessage[service.EmailSummary](client.Message),
		listing.WithPollObserver[service.EmailSummary](metrics),
		listing.WithLogger[service.EmailSummary](log),
	)
	emailList.Subscribe(func(s listing.Snapshot[service.EmailSummary]) { wsHub.Publish(websocket.TopicEmails, s) })
	wsHub.SetSnapshotProvider(websocket.TopicEmails, func() any { return emailList.Snapshot() })

	orderList := listing.New("orders", orderService.List, nil,
		listing.WithInterval[domain.Order](cfg.Poll.Interval),
		listing.WithIsActive[domain.Order](func() bool { return wsHub.HasSubscribers(websocket.TopicOrders) }),
		listing.WithErrorMessage[domain.Order](client.Message),
		listing.WithPollObserver[domain.Order](metrics),
		listing.WithLogger[domain.Order](log),
	)
	orderList.Subscribe(func(s listing.Snapshot[domain.Order]) { wsHub.Publish(websocket.TopicOrders, s) })
	wsHub.SetSnapshotProvider(websocket.TopicOrders, func() any { return orderList.Snapshot() })

	background := pool.NewWorkerPool(backgroundWorkers, backgroundQueue, log)

	// 健康检查
	healthChecker := health.NewHealthChecker(apiClient.BaseURL()+cfg.API.HealthPath, log)
	reporter := monitoring.NewHealthChecker(map[string]monitoring.DependencyCheck{
		"backend": func() error {
			ctx, cancel := context.WithTimeout(context.Background(), backendCheckTimeout)
			defer cancel()
			_, err := apiClient.EmailStats(ctx)
			return err
		},
		"email_list": listHealth(emailList),
		"order_list": listHealth(orderList),
	}, metrics, log, version, environment(cfg))

	// 创建 HTTP 服务器
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:           cfg,
		EmailService:     emailService,
		OrderService:     orderService,
		UploadService:    uploadService,
		DashboardService: dashboardService,
		EmailList:        emailList,
		OrderList:        orderList,
		OAuth:            apiClient,
		WebSocketHub:     wsHub,
		Metrics:          metrics,
		Health:           healthChecker,
		Reporter:         reporter,
		Background:       background,
		Logger:           log,
	})

	httpAddr := cfg.Server.Addr()
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// WebSocket Hub goroutine
	group.Go(func() error {
		log.Info("starting WebSocket hub")
		wsHub.Run(groupCtx)
		return nil
	})

	// 列表首次加载并启动后台轮询
	group.Go(func() error {
		log.Info("starting list pollers", zap.Duration("interval", cfg.Poll.Interval))
		background.Start(groupCtx)
		emailList.Start()
		orderList.Start()

		initial, initialCtx := errgroup.WithContext(groupCtx)
		initial.Go(func() error {
			emailList.Refresh(initialCtx)
			return nil
		})
		initial.Go(func() error {
			orderList.Refresh(initialCtx)
			return nil
		})
		return initial.Wait()
	})

	// 监控服务 goroutine
	group.Go(func() error {
		log.Info("starting monitoring services", zap.Duration("interval", healthCheckInterval))
		reporter.StartPeriodicHealthCheck(groupCtx, healthCheckInterval)
		return nil
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// 关闭 HTTP 服务器
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		// 停止轮询并取消进行中的拉取
		background.Stop()
		emailList.Close()
		orderList.Close()

		log.Info("servers stopped")
		return nil
	})

	// 等待所有 goroutine 完成
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}

// listHealth 列表最近一次拉取失败时报告为不健康
func listHealth[T any](ctrl *listing.Controller[T]) monitoring.DependencyCheck {
	return func() error {
		s := ctrl.Snapshot()
		if s.State == listing.StateError {
			return fmt.Errorf("%s list: %s", ctrl.Name(), s.Error)
		}
		return nil
	}
}

func environment(cfg *config.Config) string {
	if cfg.Log.Development {
		return "development"
	}
	return "production"
}
