// Package poller 负责链路上每个卷帘的状态查询调度。
// 不会阻塞，时间只通过 Tick 推进。
package poller

import (
	"errors"
	"time"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/clients/logger"
)

type entry struct {
	queued bool
	req    *Request
}

// Scheduler 每个卷帘最多一个未完成的 Request
type Scheduler struct {
	cfg  Config
	lc   logger.LoggingClient
	send Sender

	order   []string
	entries map[string]*entry

	lastCycle    time.Time
	inhibitUntil time.Time

	onTimeout func(blindID string)
}

// New 校验 cfg，零值字段取默认值
func New(cfg Config, send Sender, lc logger.LoggingClient) (*Scheduler, error) {
	if send == nil {
		return nil, errors.New("poller: sender required")
	}
	if cfg.Interval < 0 || cfg.Timeout < 0 || cfg.MaxRetries < 0 {
		return nil, errors.New("poller: negative interval, timeout or retries")
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Scheduler{
		cfg:     cfg,
		lc:      lc,
		send:    send,
		entries: make(map[string]*entry),
	}, nil
}

// OnTimeout 注册重试耗尽回调，每个请求只触发一次
func (s *Scheduler) OnTimeout(fn func(blindID string)) {
	s.onTimeout = fn
}

func (s *Scheduler) Config() Config { return s.cfg }

// Add 开始跟踪一个卷帘，重复添加无效果
func (s *Scheduler) Add(blindID string) {
	if _, ok := s.entries[blindID]; ok {
		return
	}
	s.entries[blindID] = &entry{}
	s.order = append(s.order, blindID)
}

// Remove 删除卷帘并取消其未完成请求
func (s *Scheduler) Remove(blindID string) {
	if _, ok := s.entries[blindID]; !ok {
		return
	}
	delete(s.entries, blindID)
	for i, id := range s.order {
		if id == blindID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Request 排队一次按需查询，下一次 Tick 时发送
func (s *Scheduler) Request(blindID string) bool {
	e, ok := s.entries[blindID]
	if !ok {
		return false
	}
	e.queued = true
	return true
}

// RequestAll 所有卷帘排队
func (s *Scheduler) RequestAll() {
	for _, e := range s.entries {
		e.queued = true
	}
}

// Inhibit 在 until 之前暂停发送，超时判断照常进行
func (s *Scheduler) Inhibit(until time.Time) {
	if until.After(s.inhibitUntil) {
		s.inhibitUntil = until
	}
}

// Inhibited now 时刻是否处于暂停发送状态
func (s *Scheduler) Inhibited(now time.Time) bool {
	return now.Before(s.inhibitUntil)
}

// OnResponse 完成卷帘的未完成请求，没有请求时返回 false
func (s *Scheduler) OnResponse(blindID string, now time.Time) bool {
	e, ok := s.entries[blindID]
	if !ok || e.req == nil {
		return false
	}
	s.lc.Tracef("poller: %s answered after %s (retries=%d)", blindID, now.Sub(e.req.IssuedAt), e.req.Retries)
	e.req = nil
	return true
}

// State 返回卷帘当前状态
func (s *Scheduler) State(blindID string) State {
	if e, ok := s.entries[blindID]; ok && e.req != nil {
		return StateAwaitingResponse
	}
	return StateIdle
}

// Pending 返回未完成请求的副本
func (s *Scheduler) Pending(blindID string) (Request, bool) {
	if e, ok := s.entries[blindID]; ok && e.req != nil {
		return *e.req, true
	}
	return Request{}, false
}

// Outstanding 等待应答的请求数
func (s *Scheduler) Outstanding() int {
	n := 0
	for _, e := range s.entries {
		if e.req != nil {
			n++
		}
	}
	return n
}

// Tick 处理超时和重试，到期时开始新一轮轮询，然后发送排队的查询
func (s *Scheduler) Tick(now time.Time) {
	s.expire(now)

	if s.cfg.AutoPoll && !s.Inhibited(now) {
		if s.lastCycle.IsZero() || now.Sub(s.lastCycle) >= s.cfg.Interval {
			s.lastCycle = now
			s.RequestAll()
		}
	}

	s.dispatch(now)
}

func (s *Scheduler) expire(now time.Time) {
	for _, id := range s.order {
		e := s.entries[id]
		if e.req == nil || now.Sub(e.req.IssuedAt) < s.cfg.Timeout {
			continue
		}
		if e.req.Retries < s.cfg.MaxRetries {
			e.req.Retries++
			e.req.IssuedAt = now
			s.lc.Debugf("poller: %s timed out, retry %d/%d", id, e.req.Retries, s.cfg.MaxRetries)
			s.transmit(id)
			continue
		}
		s.lc.Warnf("poller: %s did not answer after %d retries", id, e.req.Retries)
		e.req = nil
		if s.onTimeout != nil {
			s.onTimeout(id)
		}
	}
}

func (s *Scheduler) dispatch(now time.Time) {
	if s.Inhibited(now) {
		return
	}
	for _, id := range s.order {
		if s.cfg.HalfDuplex && s.Outstanding() > 0 {
			return
		}
		e := s.entries[id]
		if !e.queued || e.req != nil {
			continue
		}
		e.queued = false
		e.req = &Request{BlindID: id, IssuedAt: now}
		s.transmit(id)
	}
}

// transmit 发送失败按超时处理，由重试逻辑兜底
func (s *Scheduler) transmit(id string) {
	if err := s.send.SendStatusQuery(id); err != nil {
		s.lc.Errorf("poller: status query to %s failed: %v", id, err)
	}
}
