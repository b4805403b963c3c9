package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"orderdesk/dashboard/internal/client"
	"orderdesk/dashboard/internal/listing"
)

const watchHelp = "commands: page N | next | prev | filter key=value... | refresh | quit"

// watchList 打开一个本地列表视图
//
// 先拉取一次，之后按间隔后台轮询；从标准输入读取翻页和筛选命令，
// 每次状态提交后输出一行 JSON 快照。输入结束后继续轮询，直到被中断。
func watchList[T any](cmd *cobra.Command, a *app, name string, fetch listing.Fetcher[T], initial map[string]string, interval time.Duration) error {
	ctx := cmd.Context()

	ctrl := listing.New(name, fetch, initial,
		listing.WithInterval[T](interval),
		listing.WithErrorMessage[T](client.Message),
		listing.WithLogger[T](a.log),
	)
	defer ctrl.Close()

	out := &lineWriter{w: cmd.OutOrStdout()}
	unsubscribe := ctrl.Subscribe(func(s listing.Snapshot[T]) {
		if !s.Loading {
			out.write(s)
		}
	})
	defer unsubscribe()

	ctrl.Refresh(ctx)
	ctrl.Start()

	done := make(chan struct{})
	defer close(done)
	lines := readLines(cmd.InOrStdin(), done)

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			quit, err := applyWatchCommand(ctx, ctrl, line)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				continue
			}
			if quit {
				return nil
			}
		}
	}
}

// applyWatchCommand 执行一条交互命令，返回是否退出
func applyWatchCommand[T any](ctx context.Context, ctrl *listing.Controller[T], line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "quit", "exit":
		return true, nil
	case "refresh":
		ctrl.Refresh(ctx)
	case "next":
		ctrl.GoToPage(ctx, ctrl.Snapshot().Filters.Page()+1)
	case "prev":
		if page := ctrl.Snapshot().Filters.Page(); page > 1 {
			ctrl.GoToPage(ctx, page-1)
		}
	case "page":
		if len(fields) != 2 {
			return false, errors.New("usage: page N")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 {
			return false, fmt.Errorf("invalid page %q", fields[1])
		}
		ctrl.GoToPage(ctx, n)
	case "filter":
		if len(fields) < 2 {
			return false, errors.New("usage: filter key=value...")
		}
		partial := make(map[string]string, len(fields)-1)
		for _, kv := range fields[1:] {
			key, value, ok := strings.Cut(kv, "=")
			if !ok || key == "" {
				return false, fmt.Errorf("invalid filter %q", kv)
			}
			partial[key] = value
		}
		ctrl.UpdateFilters(ctx, partial)
	default:
		return false, fmt.Errorf("unknown command %q (%s)", fields[0], watchHelp)
	}
	return false, nil
}

// readLines 逐行读取输入，读完后关闭返回的通道
func readLines(r io.Reader, done <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()
	return lines
}

// lineWriter 串行输出单行 JSON，前台操作与后台轮询可能同时提交
type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lineWriter) write(v any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = json.NewEncoder(l.w).Encode(v)
}

// nonEmpty 只保留有值的过滤条件
func nonEmpty(filters map[string]string) map[string]string {
	out := make(map[string]string, len(filters))
	for k, v := range filters {
		if v != "" {
			out[k] = v
		}
	}
	return out
}
