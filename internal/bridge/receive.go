package bridge

import (
	"strings"

	"github.com/linjuya-lu/device_arc_go/internal/arc"
	"github.com/linjuya-lu/device_arc_go/internal/registry"
)

// OnBytesReceived 把串口读到的字节送入 transport 并处理解出的帧
func (b *Bridge) OnBytesReceived(p []byte) {
	if err := b.link.Feed(p); err != nil {
		b.lc.Warnf("bridge: %v", err)
	}
	for _, f := range b.link.PollFrames() {
		b.handleFrame(f)
	}
}

func (b *Bridge) handleFrame(f arc.Frame) {
	switch f.Command {
	case arc.RspStatus:
		b.handleStatus(f)
	case arc.RspError:
		b.handleError(f)
	case arc.RspVersion:
		b.handleVersion(f)
	default:
		// 半双工总线上能看到自己或其他主机的下行命令
		b.lc.Tracef("bridge: ignoring %s", f)
	}
}

func (b *Bridge) handleStatus(f arc.Frame) {
	rep, err := arc.ParseStatusReport(f.Payload)
	if err != nil {
		b.lc.Warnf("bridge: %s: %v", f.Address, err)
		return
	}
	if _, err := b.reg.Lookup(f.Address); err != nil {
		b.lc.Debugf("bridge: status from unregistered blind %s", f.Address)
		return
	}
	b.sched.OnResponse(f.Address, b.now)

	motion := motionFromWire(rep.Motion)
	b.update(f.Address, func(r *registry.BlindRecord) {
		if rep.Position >= 0 {
			r.Position = fromWire(rep.Position, r.InvertPosition)
		}
		r.Motion = motion
		r.Status = motion.String()
		r.LinkQuality = arc.LinkQuality(rep.RSSI)
		r.LastSeen = b.now
	})
}

func (b *Bridge) handleError(f arc.Frame) {
	if _, err := b.reg.Lookup(f.Address); err != nil {
		b.lc.Debugf("bridge: error report from unregistered blind %s", f.Address)
		return
	}
	b.sched.OnResponse(f.Address, b.now)

	var status string
	switch f.Payload[0] {
	case arc.ErrCodeNotPaired:
		status = StatusNotPaired
	case arc.ErrCodeNoLink:
		status = StatusOffline
	default:
		b.lc.Warnf("bridge: %s reported unknown error %q", f.Address, f.Payload[0])
		return
	}
	b.lc.Warnf("Blind %s: %s", f.Address, status)
	b.update(f.Address, func(r *registry.BlindRecord) {
		r.Motion = registry.MotionUnknown
		r.Status = status
		r.LinkQuality = 0
	})
}

func (b *Bridge) handleVersion(f arc.Frame) {
	version := strings.TrimSpace(string(f.Payload))
	if _, err := b.reg.Lookup(f.Address); err != nil {
		if _, seen := b.discovered[f.Address]; !seen {
			b.lc.Infof("Discovered blind %s (version %s)", f.Address, version)
		}
		b.discovered[f.Address] = version
		return
	}
	b.update(f.Address, func(r *registry.BlindRecord) {
		r.Version = version
		r.LastSeen = b.now
	})
}

func motionFromWire(m byte) registry.MotionState {
	switch m {
	case arc.MotionIdle:
		return registry.MotionIdle
	case arc.MotionOpening:
		return registry.MotionOpening
	case arc.MotionClosing:
		return registry.MotionClosing
	case arc.MotionStopped:
		return registry.MotionStopped
	default:
		return registry.MotionUnknown
	}
}
