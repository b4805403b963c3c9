// Package health 提供 liveness / readiness 探针。
package health

import (
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"
)

const (
	goroutineThreshold = 1000
	backendTimeout     = 5 * time.Second
)

// HealthChecker 健康检查器
type HealthChecker struct {
	health     healthcheck.Handler
	backendURL string
	logger     *zap.Logger
}

// NewHealthChecker 创建健康检查器
//
// backendURL 是后端的一个轻量 GET 接口，readiness 依赖它返回 2xx。
func NewHealthChecker(backendURL string, logger *zap.Logger) *HealthChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	hc := &HealthChecker{
		health:     healthcheck.NewHandler(),
		backendURL: backendURL,
		logger:     logger,
	}

	hc.addChecks()

	return hc
}

// addChecks 添加健康检查
func (hc *HealthChecker) addChecks() {
	// 进程自身
	hc.health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(goroutineThreshold))

	// 后端连通性
	hc.health.AddReadinessCheck("backend", hc.BackendCheck())
}

// BackendCheck 后端 HTTP GET 检查
func (hc *HealthChecker) BackendCheck() healthcheck.Check {
	check := healthcheck.HTTPGetCheck(hc.backendURL, backendTimeout)
	return func() error {
		if err := check(); err != nil {
			hc.logger.Warn("Backend health check failed",
				zap.String("url", hc.backendURL),
				zap.Error(err))
			return err
		}
		return nil
	}
}

// Handler 返回完整的健康检查处理器（/live 与 /ready）
func (hc *HealthChecker) Handler() http.Handler {
	return hc.health
}

// LiveHandler liveness 探针
func (hc *HealthChecker) LiveHandler() http.HandlerFunc {
	return hc.health.LiveEndpoint
}

// ReadyHandler readiness 探针
func (hc *HealthChecker) ReadyHandler() http.HandlerFunc {
	return hc.health.ReadyEndpoint
}
