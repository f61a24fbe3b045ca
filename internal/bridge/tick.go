package bridge

import (
	"time"

	"github.com/linjuya-lu/device_arc_go/internal/registry"
)

// Tick 推进时间：运动抑制、轮询、离线检测
func (b *Bridge) Tick(now time.Time) {
	b.now = now
	if b.started.IsZero() {
		b.started = now
	}

	if b.moved {
		b.moved = false
		b.sched.Inhibit(now.Add(b.cfg.MoveInhibit))
		// 抑制结束后补查一次最终位置
		for id := range b.followUp {
			b.sched.Request(id)
		}
		clear(b.followUp)
	}

	b.sched.Tick(now)
	b.detectOffline(now)
}

// onPollTimeout 重试耗尽：清掉运动状态和链路质量，再通知观察者。
// 离线和未配对状态比 unknown 更具体，保留不覆盖。
func (b *Bridge) onPollTimeout(id string) {
	ok := b.update(id, func(r *registry.BlindRecord) {
		r.Motion = registry.MotionUnknown
		if r.Status != StatusOffline && r.Status != StatusNotPaired {
			r.Status = registry.MotionUnknown.String()
		}
		r.LinkQuality = 0
		r.LastEvent = EventPollTimeout
	})
	if !ok {
		return
	}
	for _, o := range b.observers {
		o.PollTimeout(id)
	}
}

func (b *Bridge) detectOffline(now time.Time) {
	if b.cfg.OfflineAfter == 0 {
		return
	}
	for _, rec := range b.reg.Snapshot() {
		if rec.LastSeen.IsZero() || rec.Status == StatusOffline {
			continue
		}
		if now.Sub(rec.LastSeen) < b.cfg.OfflineAfter {
			continue
		}
		b.lc.Warnf("Blind %s silent since %s, marking offline", rec.ID, rec.LastSeen.Format(time.RFC3339))
		b.update(rec.ID, func(r *registry.BlindRecord) {
			r.Status = StatusOffline
			r.LinkQuality = 0
		})
	}
}
