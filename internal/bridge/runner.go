package bridge

import (
	"context"
	"errors"
	"time"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/clients/logger"
)

// DefaultTick Runner 默认节拍
const DefaultTick = 100 * time.Millisecond

const execTimeout = 5 * time.Second

var ErrRunnerStopped = errors.New("bridge: runner stopped")

type call struct {
	fn  func(*Bridge) error
	res chan error
}

// Runner 在单个 goroutine 里驱动 Bridge：串口数据、定时节拍和外部调用
// 都经由同一个 select 串行执行。
type Runner struct {
	b     *Bridge
	lc    logger.LoggingClient
	tick  time.Duration
	calls chan call
	done  chan struct{}
}

func NewRunner(b *Bridge, tick time.Duration, lc logger.LoggingClient) *Runner {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Runner{
		b:     b,
		lc:    lc,
		tick:  tick,
		calls: make(chan call),
		done:  make(chan struct{}),
	}
}

// Run 阻塞直到 ctx 取消。rx 关闭后继续运行定时器和外部调用。
func (r *Runner) Run(ctx context.Context, rx <-chan []byte) {
	defer close(r.done)
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	r.b.Tick(time.Now())
	for {
		select {
		case <-ctx.Done():
			r.lc.Debug("bridge runner stopped")
			return
		case p, ok := <-rx:
			if !ok {
				r.lc.Warn("bridge: serial receive channel closed")
				rx = nil
				continue
			}
			r.b.OnBytesReceived(p)
		case now := <-ticker.C:
			r.b.Tick(now)
		case c := <-r.calls:
			c.res <- c.fn(r.b)
		}
	}
}

// Exec 在 Runner 的 goroutine 里执行 fn 并返回其结果
func (r *Runner) Exec(ctx context.Context, fn func(*Bridge) error) error {
	c := call{fn: fn, res: make(chan error, 1)}
	select {
	case r.calls <- c:
	case <-r.done:
		return ErrRunnerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-c.res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Command 线程安全的控制入口
func (r *Runner) Command(id string, a Action) error {
	return r.do(func(b *Bridge) error { return b.Command(id, a) })
}

// RequestStatus 线程安全的状态查询入口
func (r *Runner) RequestStatus(id string) error {
	return r.do(func(b *Bridge) error { return b.RequestStatus(id) })
}

func (r *Runner) do(fn func(*Bridge) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), execTimeout)
	defer cancel()
	return r.Exec(ctx, fn)
}
