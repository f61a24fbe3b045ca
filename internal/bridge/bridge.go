// Package bridge 把一条串口链路上的多个 ARC 卷帘汇总成一个控制器：
// 收帧更新状态、通知观察者、下发命令、驱动轮询。
//
// Bridge 不是并发安全的，所有方法必须在同一个执行上下文里调用（见 Runner）。
package bridge

import (
	"errors"
	"fmt"
	"time"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/clients/logger"

	"github.com/linjuya-lu/device_arc_go/internal/arc"
	"github.com/linjuya-lu/device_arc_go/internal/poller"
	"github.com/linjuya-lu/device_arc_go/internal/registry"
	"github.com/linjuya-lu/device_arc_go/internal/transport"
)

var (
	ErrUnknownBlind     = errors.New("bridge: unknown blind")
	ErrControlInhibited = errors.New("bridge: control inhibited until first position report")
)

// 状态文本（除运动状态外）
const (
	StatusNotPaired = "not paired"
	StatusOffline   = "offline"
)

// EventPollTimeout 重试耗尽时上报的事件
const EventPollTimeout = "poll_timeout"

// Config 控制器参数
type Config struct {
	Poll poller.Config

	// MoveInhibit 运动命令后暂停轮询的时间，结束后补查一次位置
	MoveInhibit time.Duration
	// StartupGuard 启动后未收到位置前拒绝控制命令的时间，0 表示关闭
	StartupGuard time.Duration
	// OfflineAfter 曾经在线的卷帘静默多久判为离线，0 表示关闭
	OfflineAfter time.Duration
}

type Bridge struct {
	cfg   Config
	lc    logger.LoggingClient
	reg   *registry.Registry
	link  *transport.Transport
	sched *poller.Scheduler

	observers []Observer

	now        time.Time
	started    time.Time
	moved      bool
	followUp   map[string]struct{}
	discovered map[string]string
}

// New 构造控制器，link 必须已经绑定到打开的串口
func New(cfg Config, link *transport.Transport, lc logger.LoggingClient) (*Bridge, error) {
	if link == nil {
		return nil, errors.New("bridge: link transport required")
	}
	if cfg.MoveInhibit < 0 || cfg.StartupGuard < 0 || cfg.OfflineAfter < 0 {
		return nil, errors.New("bridge: negative duration in config")
	}
	b := &Bridge{
		cfg:        cfg,
		lc:         lc,
		reg:        registry.New(),
		link:       link,
		followUp:   make(map[string]struct{}),
		discovered: make(map[string]string),
	}
	sched, err := poller.New(cfg.Poll, poller.SenderFunc(b.sendStatusQuery), lc)
	if err != nil {
		return nil, err
	}
	sched.OnTimeout(b.onPollTimeout)
	b.sched = sched
	return b, nil
}

// Subscribe 注册观察者
func (b *Bridge) Subscribe(o Observer) {
	b.observers = append(b.observers, o)
}

// AddBlind 注册一个卷帘并加入轮询
func (b *Bridge) AddBlind(id, name string, invert bool) error {
	if err := arc.ValidateBlindID(id); err != nil {
		return err
	}
	if err := b.reg.Register(id, name, invert); err != nil {
		return err
	}
	b.sched.Add(id)
	b.lc.Debugf("Registered blind id='%s' invert=%v", id, invert)
	return nil
}

// RemoveBlind 先取消未完成的轮询请求，再删除记录
func (b *Bridge) RemoveBlind(id string) error {
	b.sched.Remove(id)
	delete(b.followUp, id)
	if err := b.reg.Remove(id); err != nil {
		return fmt.Errorf("%w %q: %w", ErrUnknownBlind, id, err)
	}
	b.lc.Debugf("Removed blind id='%s'", id)
	return nil
}

// Blind 返回卷帘记录副本
func (b *Bridge) Blind(id string) (registry.BlindRecord, error) {
	rec, err := b.reg.Lookup(id)
	if err != nil {
		return registry.BlindRecord{}, fmt.Errorf("%w %q: %w", ErrUnknownBlind, id, err)
	}
	return rec, nil
}

// Blinds 按注册顺序返回所有记录
func (b *Bridge) Blinds() []registry.BlindRecord {
	return b.reg.Snapshot()
}

// PollState 返回卷帘在轮询器中的状态
func (b *Bridge) PollState(id string) poller.State {
	return b.sched.State(id)
}

// OutstandingPolls 当前等待应答的请求数
func (b *Bridge) OutstandingPolls() int {
	return b.sched.Outstanding()
}

// LinkStats 链路计数
func (b *Bridge) LinkStats() transport.Stats {
	return b.link.Stats()
}

// Discovered 广播查询中应答、但未注册的地址 → 版本号
func (b *Bridge) Discovered() map[string]string {
	out := make(map[string]string, len(b.discovered))
	for k, v := range b.discovered {
		out[k] = v
	}
	return out
}

func (b *Bridge) sendStatusQuery(id string) error {
	return b.link.Send(arc.Frame{Address: id, Command: arc.CmdStatusQuery})
}
