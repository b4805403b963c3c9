// orderctl 是订单看板后端的命令行客户端。
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"orderdesk/dashboard/internal/client"
	"orderdesk/dashboard/internal/config"
	"orderdesk/dashboard/internal/logger"
	"orderdesk/dashboard/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app 命令共享的依赖，在 PersistentPreRunE 中初始化
type app struct {
	apiURL  string
	timeout time.Duration
	verbose bool

	client  *client.Client
	emails  *service.EmailService
	orders  *service.OrderService
	uploads *service.UploadService
	log     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	defaults := defaultAPIConfig()

	rootCmd := &cobra.Command{
		Use:           "orderctl",
		Short:         "Inspect and manage emails and extracted orders",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.apiURL, "api-url", defaults.URL, "backend base URL")
	flags.DurationVar(&a.timeout, "timeout", defaults.Timeout, "per-request timeout")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log requests to stderr")

	rootCmd.AddCommand(
		newEmailsCmd(a),
		newOrdersCmd(a),
		newOAuthURLCmd(a),
	)
	return rootCmd
}

// defaultAPIConfig 读取环境变量 / .env 中的后端配置，失败时使用内置默认值
func defaultAPIConfig() config.APIConfig {
	cfg, err := config.Load()
	if err != nil {
		return config.APIConfig{URL: client.DefaultBaseURL, Timeout: 15 * time.Second}
	}
	return cfg.API
}

func (a *app) init() error {
	a.log = zap.NewNop()
	if a.verbose {
		a.log = logger.NewDevelopmentLogger()
	}

	c, err := client.New(client.Config{
		BaseURL: a.apiURL,
		Timeout: a.timeout,
	}, client.WithLogger(a.log))
	if err != nil {
		return err
	}
	a.client = c

	// 命令行每次只执行一个操作，不缓存统计
	a.emails = service.NewEmailService(c, nil, 0, a.log)
	a.orders = service.NewOrderService(c, nil, 0, a.log)
	a.uploads = service.NewUploadService(c, nil, a.log)
	return nil
}

func newOAuthURLCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "oauth-url [provider]",
		Short:     "Print the backend OAuth entry URL",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{client.ProviderGoogle, client.ProviderGmail},
		RunE: func(cmd *cobra.Command, args []string) error {
			url, ok := a.client.OAuthURL(args[0])
			if !ok {
				return fmt.Errorf("unknown provider %q", args[0])
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), url)
			return err
		},
	}
}

// printJSON 以缩进 JSON 输出结果
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
