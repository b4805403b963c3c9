package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"API_URL",
	"ORDERDESK_API_URL",
	"ORDERDESK_API_TIMEOUT",
	"ORDERDESK_API_MAX_RETRIES",
	"ORDERDESK_API_RATE_LIMIT",
	"ORDERDESK_SERVER_HOST",
	"ORDERDESK_SERVER_PORT",
	"ORDERDESK_POLL_INTERVAL",
	"ORDERDESK_CACHE_STATS_TTL",
	"ORDERDESK_UPLOAD_MAX_FILE_SIZE",
	"ORDERDESK_CORS_ALLOWED_ORIGINS",
	"ORDERDESK_LOG_LEVEL",
	"ORDERDESK_LOG_DEVELOPMENT",
}

// clearEnv 清空相关环境变量，测试结束后自动恢复
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	t.Run("加载默认配置成功", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
		assert.Equal(t, "http://localhost:3000/api", cfg.API.URL)
		assert.Equal(t, 15*time.Second, cfg.API.Timeout)
		assert.Equal(t, 2, cfg.API.MaxRetries)
		assert.Equal(t, 500*time.Millisecond, cfg.API.RetryDelay)
		assert.Equal(t, 20.0, cfg.API.RateLimit)
		assert.Equal(t, 10, cfg.API.RateBurst)
		assert.Equal(t, "/emails/stats", cfg.API.HealthPath)
		assert.Equal(t, 30*time.Second, cfg.Poll.Interval)
		assert.Equal(t, 10*time.Second, cfg.Cache.StatsTTL)
		assert.Equal(t, int64(10*1024*1024), cfg.Upload.MaxFileSize)
		assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.False(t, cfg.Log.Development)
	})

	t.Run("加载自定义配置成功", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ORDERDESK_SERVER_HOST", "127.0.0.1")
		t.Setenv("ORDERDESK_SERVER_PORT", "9090")
		t.Setenv("ORDERDESK_API_URL", "https://orders.example.com/api/")
		t.Setenv("ORDERDESK_API_TIMEOUT", "3s")
		t.Setenv("ORDERDESK_API_MAX_RETRIES", "5")
		t.Setenv("ORDERDESK_POLL_INTERVAL", "1m")
		t.Setenv("ORDERDESK_CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
		t.Setenv("ORDERDESK_LOG_LEVEL", "debug")
		t.Setenv("ORDERDESK_LOG_DEVELOPMENT", "true")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "127.0.0.1", cfg.Server.Host)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "https://orders.example.com/api", cfg.API.URL, "尾部斜杠应被去掉")
		assert.Equal(t, 3*time.Second, cfg.API.Timeout)
		assert.Equal(t, 5, cfg.API.MaxRetries)
		assert.Equal(t, time.Minute, cfg.Poll.Interval)
		assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.True(t, cfg.Log.Development)
	})

	t.Run("兼容旧的API_URL变量", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("API_URL", "http://legacy:4000/api")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "http://legacy:4000/api", cfg.API.URL)
	})

	t.Run("带前缀的变量优先", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("API_URL", "http://legacy:4000/api")
		t.Setenv("ORDERDESK_API_URL", "http://primary:5000/api")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "http://primary:5000/api", cfg.API.URL)
	})

	t.Run("无效的后端地址失败", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ORDERDESK_API_URL", "not a url")

		cfg, err := Load()
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid api.url")
	})

	t.Run("无效的轮询间隔失败", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ORDERDESK_POLL_INTERVAL", "invalid-duration")

		cfg, err := Load()
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid poll.interval")
	})

	t.Run("非正数附件大小失败", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ORDERDESK_UPLOAD_MAX_FILE_SIZE", "0")

		cfg, err := Load()
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("负数重试次数归零", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ORDERDESK_API_MAX_RETRIES", "-3")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 0, cfg.API.MaxRetries)
	})
}

func TestParseList(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "单个项目",
			input:    "item1",
			expected: []string{"item1"},
		},
		{
			name:     "多个项目",
			input:    "item1,item2,item3",
			expected: []string{"item1", "item2", "item3"},
		},
		{
			name:     "带空格的项目",
			input:    " item1 , item2 , item3 ",
			expected: []string{"item1", "item2", "item3"},
		},
		{
			name:     "空字符串",
			input:    "",
			expected: []string{},
		},
		{
			name:     "只有逗号",
			input:    ",,,",
			expected: []string{},
		},
		{
			name:     "混合空值",
			input:    "item1,,item2,",
			expected: []string{"item1", "item2"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := parseList(tc.input)
			assert.Equal(t, tc.expected, result)
		})
	}
}
