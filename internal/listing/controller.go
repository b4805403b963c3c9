// Package listing 实现分页、可过滤列表的状态控制器。
//
// 每个 Controller 持有一份列表状态（条目、分页、过滤条件、加载标记、错误），
// 前台操作（UpdateFilters / GoToPage / Refresh）同步执行一次拉取并返回最新快照；
// 后台轮询在 IsActive 为真时静默刷新。
//
// 每次拉取都会分配递增的代号，只有最后发起的拉取可以提交结果，
// 被取代的拉取会被取消，其结果（成功或失败）直接丢弃。
package listing

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"orderdesk/dashboard/internal/domain"
)

// DefaultPollInterval 默认后台轮询间隔
const DefaultPollInterval = 30 * time.Second

// State 列表状态
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// 轮询结果分类
const (
	PollFetched         = "fetched"
	PollSkippedInactive = "skipped_inactive"
	PollSkippedBusy     = "skipped_busy"
)

// Fetcher 按过滤条件拉取一页数据
type Fetcher[T any] func(ctx context.Context, filters domain.Filters) (domain.Page[T], error)

// ErrorMessage 把拉取错误转换为展示给用户的消息
type ErrorMessage func(err error) string

// PollObserver 记录每次轮询的结果
type PollObserver interface {
	ObservePoll(resource, outcome string)
}

// Snapshot 某一时刻的列表状态
type Snapshot[T any] struct {
	State      State             `json:"state"`
	Items      []T               `json:"items"`
	Pagination domain.Pagination `json:"pagination"`
	Filters    domain.Filters    `json:"filters"`
	Loading    bool              `json:"loading"`
	Error      string            `json:"error,omitempty"`
}

// Controller 列表状态控制器，可被多个 goroutine 同时使用
type Controller[T any] struct {
	name      string
	fetch     Fetcher[T]
	interval  time.Duration
	isActive  func() bool
	newTicker func(time.Duration) Ticker
	message   ErrorMessage
	observer  PollObserver
	logger    *zap.Logger

	// notifyMu 保证监听器按提交顺序收到快照
	notifyMu sync.Mutex

	mu         sync.Mutex
	state      Snapshot[T]
	generation uint64
	inflight   int
	cancelLast context.CancelFunc
	listeners  map[int]func(Snapshot[T])
	nextID     int
	closed     bool

	lifetime  context.Context
	stop      context.CancelFunc
	startOnce sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Option 控制器可选项
type Option[T any] func(*Controller[T])

// WithInterval 设置轮询间隔
func WithInterval[T any](d time.Duration) Option[T] {
	return func(c *Controller[T]) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithIsActive 设置轮询前的活跃判断，返回 false 时跳过本次轮询
func WithIsActive[T any](fn func() bool) Option[T] {
	return func(c *Controller[T]) {
		if fn != nil {
			c.isActive = fn
		}
	}
}

// WithTicker 替换轮询使用的 ticker，测试时注入
func WithTicker[T any](fn func(time.Duration) Ticker) Option[T] {
	return func(c *Controller[T]) {
		if fn != nil {
			c.newTicker = fn
		}
	}
}

// WithErrorMessage 设置错误消息转换
func WithErrorMessage[T any](fn ErrorMessage) Option[T] {
	return func(c *Controller[T]) {
		if fn != nil {
			c.message = fn
		}
	}
}

// WithPollObserver 设置轮询观察者
func WithPollObserver[T any](o PollObserver) Option[T] {
	return func(c *Controller[T]) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithLogger 设置日志记录器
func WithLogger[T any](l *zap.Logger) Option[T] {
	return func(c *Controller[T]) {
		if l != nil {
			c.logger = l
		}
	}
}

func defaultMessage(err error) string { return err.Error() }

type nopPollObserver struct{}

func (nopPollObserver) ObservePoll(string, string) {}

// New 创建列表控制器，初始状态为 loading
//
// 参数:
//   - name: 资源名，用于日志和指标，例如 "emails"
//   - fetch: 拉取函数
//   - initial: 初始过滤条件，page/limit 缺失时使用默认值
func New[T any](name string, fetch Fetcher[T], initial map[string]string, opts ...Option[T]) *Controller[T] {
	lifetime, stop := context.WithCancel(context.Background())
	c := &Controller[T]{
		name:      name,
		fetch:     fetch,
		interval:  DefaultPollInterval,
		isActive:  func() bool { return true },
		newTicker: newRealTicker,
		message:   defaultMessage,
		observer:  nopPollObserver{},
		logger:    zap.NewNop(),
		state: Snapshot[T]{
			State:      StateLoading,
			Items:      []T{},
			Pagination: domain.DefaultPagination(),
			Filters:    domain.NewFilters(initial),
			Loading:    true,
		},
		listeners: make(map[int]func(Snapshot[T])),
		lifetime:  lifetime,
		stop:      stop,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name 资源名
func (c *Controller[T]) Name() string {
	return c.name
}

// Snapshot 返回当前状态的副本
func (c *Controller[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller[T]) snapshotLocked() Snapshot[T] {
	s := c.state
	s.Items = make([]T, len(c.state.Items))
	copy(s.Items, c.state.Items)
	s.Filters = c.state.Filters.Clone()
	return s
}

// settle 用一次拉取的结果更新快照
//
// 成功时整体替换条目与分页；失败时进入 error 并清空条目，分页保持不变。
func (s *Snapshot[T]) settle(page domain.Page[T], err error, message ErrorMessage) {
	s.Loading = false
	if err != nil {
		s.State = StateError
		s.Error = message(err)
		s.Items = []T{}
		return
	}
	s.State = StateReady
	s.Error = ""
	s.Items = page.Items
	if s.Items == nil {
		s.Items = []T{}
	}
	s.Pagination = page.Pagination.Resolve()
}

// Load 按给定过滤条件执行一次独立拉取，返回提交后的快照
//
// 不读写任何控制器状态，适合每个请求各自持有过滤条件的场景。
// 拉取随 ctx 取消；message 为 nil 时使用错误本身的文本。
func Load[T any](ctx context.Context, fetch Fetcher[T], filters domain.Filters, message ErrorMessage) Snapshot[T] {
	if message == nil {
		message = defaultMessage
	}
	s := Snapshot[T]{
		State:      StateLoading,
		Items:      []T{},
		Pagination: domain.DefaultPagination(),
		Filters:    filters.Clone(),
		Loading:    true,
	}
	page, err := fetch(ctx, filters.Clone())
	s.settle(page, err, message)
	return s
}

// Subscribe 注册状态变化监听器，返回取消函数
//
// 监听器在每次状态变化提交后同步调用，不能在回调中再调用控制器的前台操作。
func (c *Controller[T]) Subscribe(fn func(Snapshot[T])) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// UpdateFilters 合并过滤条件、页码重置为 1 并重新拉取
func (c *Controller[T]) UpdateFilters(ctx context.Context, partial map[string]string) Snapshot[T] {
	return c.run(ctx, func(f domain.Filters) domain.Filters { return f.Merge(partial) }, true)
}

// GoToPage 只修改页码并重新拉取
func (c *Controller[T]) GoToPage(ctx context.Context, page int) Snapshot[T] {
	return c.run(ctx, func(f domain.Filters) domain.Filters { return f.WithPage(page) }, true)
}

// Refresh 使用当前过滤条件重新拉取
func (c *Controller[T]) Refresh(ctx context.Context) Snapshot[T] {
	return c.run(ctx, nil, true)
}

// Poll 执行一次后台轮询
//
// IsActive 为 false 或已有拉取在进行时跳过，返回是否真正发起了拉取。
func (c *Controller[T]) Poll(ctx context.Context) bool {
	if !c.isActive() {
		c.observer.ObservePoll(c.name, PollSkippedInactive)
		return false
	}

	c.mu.Lock()
	busy := c.inflight > 0
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return false
	}
	if busy {
		c.observer.ObservePoll(c.name, PollSkippedBusy)
		return false
	}

	c.observer.ObservePoll(c.name, PollFetched)
	c.run(ctx, nil, false)
	return true
}

// Start 启动后台轮询，重复调用无效
func (c *Controller[T]) Start() {
	c.startOnce.Do(func() {
		c.wg.Add(1)
		go c.pollLoop()
	})
}

func (c *Controller[T]) pollLoop() {
	defer c.wg.Done()

	ticker := c.newTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.lifetime.Done():
			return
		case <-ticker.C():
			c.Poll(c.lifetime)
		}
	}
}

// Close 停止轮询并取消进行中的拉取，之后的前台操作直接返回当前快照
func (c *Controller[T]) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.stop()
		c.wg.Wait()
	})
}

// run 执行一次拉取
//
// mutate 非 nil 时先修改过滤条件；foreground 为 true 时进入 loading。
func (c *Controller[T]) run(ctx context.Context, mutate func(domain.Filters) domain.Filters, foreground bool) Snapshot[T] {
	c.mu.Lock()
	if c.closed {
		s := c.snapshotLocked()
		c.mu.Unlock()
		return s
	}

	if mutate != nil {
		c.state.Filters = mutate(c.state.Filters)
	}
	filters := c.state.Filters.Clone()

	c.generation++
	gen := c.generation
	if c.cancelLast != nil {
		c.cancelLast()
	}

	// 拉取不随调用方取消，只随被取代或控制器关闭而取消
	fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stopAfter := context.AfterFunc(c.lifetime, cancel)
	c.cancelLast = cancel
	c.inflight++

	if foreground {
		c.state.Loading = true
		c.state.State = StateLoading
	}
	c.mu.Unlock()

	if foreground {
		c.notify()
	}

	page, err := c.fetch(fetchCtx, filters)
	stopAfter()
	cancel()

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	c.inflight--
	if gen != c.generation || c.closed {
		// 过期结果直接丢弃
		c.logger.Debug("Discarding stale list result",
			zap.String("resource", c.name),
			zap.Uint64("generation", gen),
			zap.Uint64("current", c.generation))
		s := c.snapshotLocked()
		c.mu.Unlock()
		return s
	}

	c.cancelLast = nil
	c.state.settle(page, err, c.message)
	if err != nil {
		c.logger.Warn("List fetch failed",
			zap.String("resource", c.name),
			zap.Bool("background", !foreground),
			zap.String("error", c.state.Error))
	}

	s := c.snapshotLocked()
	listeners := c.listenersLocked()
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
	return s
}

func (c *Controller[T]) listenersLocked() []func(Snapshot[T]) {
	out := make([]func(Snapshot[T]), 0, len(c.listeners))
	for _, fn := range c.listeners {
		out = append(out, fn)
	}
	return out
}

func (c *Controller[T]) notify() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	s := c.snapshotLocked()
	listeners := c.listenersLocked()
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}
