package bridge

import "github.com/linjuya-lu/device_arc_go/internal/registry"

// Observer 接收状态变化，每个不同的变化只通知一次。
// 回调在 bridge 的执行上下文中调用，不能阻塞。
type Observer interface {
	PublishPosition(blindID string, position int)
	PublishStatusText(blindID string, text string)
	PublishLinkQuality(blindID string, percent int)
	PollTimeout(blindID string)
}

// notifyChanges 对比前后两份记录，只通知真正变化的字段
func (b *Bridge) notifyChanges(before, after registry.BlindRecord) {
	id := after.ID
	if after.Position >= 0 && after.Position != before.Position {
		for _, o := range b.observers {
			o.PublishPosition(id, after.Position)
		}
	}
	if after.Status != before.Status {
		for _, o := range b.observers {
			o.PublishStatusText(id, after.Status)
		}
	}
	if after.LinkQuality != before.LinkQuality {
		for _, o := range b.observers {
			o.PublishLinkQuality(id, after.LinkQuality)
		}
	}
}

// update 修改记录并通知观察者，记录不存在时返回 false
func (b *Bridge) update(id string, mutate func(*registry.BlindRecord)) bool {
	before, after, err := b.reg.Update(id, mutate)
	if err != nil {
		b.lc.Debugf("bridge: update %s: %v", id, err)
		return false
	}
	b.notifyChanges(before, after)
	return true
}
