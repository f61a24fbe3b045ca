package bridge

import (
	"fmt"

	"github.com/linjuya-lu/device_arc_go/internal/arc"
	"github.com/linjuya-lu/device_arc_go/internal/registry"
)

// Command 向卷帘下发控制命令。
// 位置按逻辑值给出，InvertPosition 的换算在这里完成。
func (b *Bridge) Command(id string, a Action) error {
	rec, err := b.reg.Lookup(id)
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrUnknownBlind, id, err)
	}
	if b.guarded(rec) {
		return fmt.Errorf("%w: %s", ErrControlInhibited, id)
	}

	f := arc.Frame{Address: id}
	var motion registry.MotionState
	switch a.Kind {
	case ActionOpen:
		f.Command, motion = arc.CmdOpen, registry.MotionOpening
	case ActionClose:
		f.Command, motion = arc.CmdClose, registry.MotionClosing
	case ActionStop:
		f.Command, motion = arc.CmdStop, registry.MotionStopped
	case ActionSetPosition:
		target := toWire(a.Position, rec.InvertPosition)
		f.Command, f.Payload = arc.CmdMove, arc.MovePayload(target)
		motion = moveDirection(rec, target)
	default:
		return fmt.Errorf("bridge: unsupported action %s", a)
	}

	if err := b.link.Send(f); err != nil {
		return err
	}
	b.lc.Infof("Blind %s: %s", id, a)

	b.update(id, func(r *registry.BlindRecord) {
		r.Motion = motion
		r.Status = motion.String()
	})
	b.moved = true
	b.followUp[id] = struct{}{}
	return nil
}

// RequestStatus 请求一次状态查询，id 为空表示全部
func (b *Bridge) RequestStatus(id string) error {
	if id == "" {
		b.sched.RequestAll()
		return nil
	}
	if !b.sched.Request(id) {
		return fmt.Errorf("%w %q", ErrUnknownBlind, id)
	}
	return nil
}

// Discover 广播版本查询，应答的未注册地址记入 Discovered
func (b *Bridge) Discover() error {
	return b.link.Send(arc.Frame{Address: arc.BroadcastAddress, Command: arc.CmdVersionQuery})
}

// QueryVersion 查询单个卷帘的固件版本
func (b *Bridge) QueryVersion(id string) error {
	if _, err := b.reg.Lookup(id); err != nil {
		return fmt.Errorf("%w %q: %w", ErrUnknownBlind, id, err)
	}
	return b.link.Send(arc.Frame{Address: id, Command: arc.CmdVersionQuery})
}

// guarded 启动保护期内、位置仍未知的卷帘不接受控制
func (b *Bridge) guarded(rec registry.BlindRecord) bool {
	if b.cfg.StartupGuard == 0 || rec.Position >= 0 {
		return false
	}
	if b.started.IsZero() {
		return true
	}
	return b.now.Before(b.started.Add(b.cfg.StartupGuard))
}

// moveDirection 线上位置 0 为全开，数值变小即为打开方向
func moveDirection(rec registry.BlindRecord, wireTarget int) registry.MotionState {
	if rec.Position < 0 {
		return registry.MotionUnknown
	}
	current := toWire(rec.Position, rec.InvertPosition)
	switch {
	case wireTarget < current:
		return registry.MotionOpening
	case wireTarget > current:
		return registry.MotionClosing
	default:
		return registry.MotionIdle
	}
}
