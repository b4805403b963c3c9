package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// APIConfig 定义订单提取后端的访问配置
type APIConfig struct {
	URL        string        // 后端基础地址，默认 "http://localhost:3000/api"
	Timeout    time.Duration // 单次请求超时，默认 15 秒
	MaxRetries int           // GET/PUT 最大重试次数，默认 2
	RetryDelay time.Duration // 首次重试前的等待时间，之后指数增长
	RateLimit  float64       // 每秒最多发出的请求数，<=0 表示不限速
	RateBurst  int           // 令牌桶容量
	HealthPath string        // 就绪检查访问的后端路径
}

// PollConfig 定义列表后台轮询配置
type PollConfig struct {
	Interval time.Duration // 轮询间隔，默认 30 秒
}

// CacheConfig 定义统计数据缓存配置
type CacheConfig struct {
	StatsTTL time.Duration // 统计数据缓存时间，默认 10 秒
}

// UploadConfig 定义邮件上传配置
type UploadConfig struct {
	MaxFileSize int64 // 单个附件最大字节数，默认 10 MiB
	MaxFiles    int   // 单次上传最多附件数量
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
	File        string // 日志文件路径，留空只输出到控制台
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server ServerConfig // HTTP 服务器配置
	API    APIConfig    // 后端访问配置
	Poll   PollConfig   // 列表轮询配置
	Cache  CacheConfig  // 缓存配置
	Upload UploadConfig // 上传配置
	CORS   CORSConfig   // 跨域配置
	Log    LogConfig    // 日志配置
}

// Addr 返回 HTTP 监听地址
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量（最高优先级）
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: ORDERDESK_
// 例如: ORDERDESK_SERVER_PORT, ORDERDESK_API_URL
//
// 后端地址同时兼容旧的 API_URL 变量。
//
// 返回值:
//   - *Config: 加载成功的配置对象
//   - error: 配置验证失败时返回错误
func Load() (*Config, error) {
	// 尝试加载 .env 文件（静默失败，因为 .env 文件是可选的）
	loadEnvFile()

	v := viper.New()
	v.SetEnvPrefix("orderdesk")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("api.url", "ORDERDESK_API_URL", "API_URL")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("api.url", "http://localhost:3000/api")
	v.SetDefault("api.timeout", "15s")
	v.SetDefault("api.max_retries", 2)
	v.SetDefault("api.retry_delay", "500ms")
	v.SetDefault("api.rate_limit", 20)
	v.SetDefault("api.rate_burst", 10)
	v.SetDefault("api.health_path", "/emails/stats")
	v.SetDefault("poll.interval", "30s")
	v.SetDefault("cache.stats_ttl", "10s")
	v.SetDefault("upload.max_file_size", 10*1024*1024)
	v.SetDefault("upload.max_files", 10)
	v.SetDefault("cors.allowed_origins", "*")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.file", "")

	apiURL := strings.TrimRight(strings.TrimSpace(v.GetString("api.url")), "/")
	parsed, err := url.Parse(apiURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid api.url %q", apiURL)
	}

	timeout, err := time.ParseDuration(v.GetString("api.timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid api.timeout: %w", err)
	}

	retryDelay, err := time.ParseDuration(v.GetString("api.retry_delay"))
	if err != nil {
		retryDelay = 500 * time.Millisecond
	}

	maxRetries := v.GetInt("api.max_retries")
	if maxRetries < 0 {
		maxRetries = 0
	}

	pollInterval, err := time.ParseDuration(v.GetString("poll.interval"))
	if err != nil {
		return nil, fmt.Errorf("invalid poll.interval: %w", err)
	}
	if pollInterval <= 0 {
		return nil, fmt.Errorf("poll.interval must be positive")
	}

	statsTTL, err := time.ParseDuration(v.GetString("cache.stats_ttl"))
	if err != nil {
		statsTTL = 10 * time.Second
	}

	maxFileSize := v.GetInt64("upload.max_file_size")
	if maxFileSize <= 0 {
		return nil, fmt.Errorf("upload.max_file_size must be positive")
	}

	maxFiles := v.GetInt("upload.max_files")
	if maxFiles <= 0 {
		maxFiles = 10
	}

	corsOrigins := parseList(v.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("server.host"),
			Port: v.GetInt("server.port"),
		},
		API: APIConfig{
			URL:        apiURL,
			Timeout:    timeout,
			MaxRetries: maxRetries,
			RetryDelay: retryDelay,
			RateLimit:  v.GetFloat64("api.rate_limit"),
			RateBurst:  v.GetInt("api.rate_burst"),
			HealthPath: v.GetString("api.health_path"),
		},
		Poll: PollConfig{
			Interval: pollInterval,
		},
		Cache: CacheConfig{
			StatsTTL: statsTTL,
		},
		Upload: UploadConfig{
			MaxFileSize: maxFileSize,
			MaxFiles:    maxFiles,
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
			File:        v.GetString("log.file"),
		},
	}

	return cfg, nil
}

// parseList 将逗号分隔的字符串解析为字符串切片
//
// 参数:
//   - value: 逗号分隔的字符串，如 "item1,item2,item3"
//
// 返回值:
//   - []string: 解析后的字符串切片，已去除空白字符
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件
//
// 加载顺序：
//  1. 当前目录的 .env
//  2. 父目录的 .env
//
// 已存在的环境变量不会被覆盖。
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
