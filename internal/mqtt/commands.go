package mqtt

import (
	"strings"

	"github.com/linjuya-lu/device_arc_go/internal/bridge"
)

// Commander 接收 MQTT 下发的命令，一般是 bridge.Runner
type Commander interface {
	Command(blindID string, a bridge.Action) error
	RequestStatus(blindID string) error
}

// SubscribeCommands 订阅 <prefix>/+/set、set_position 和 refresh
func (p *Publisher) SubscribeCommands(cmd Commander) error {
	for _, suffix := range []string{topicSet, topicSetPosition, topicRefresh} {
		filter := p.prefix + "/+/" + suffix
		if err := p.conn.Subscribe(filter, func(topic string, payload []byte) {
			p.handleCommand(cmd, topic, payload)
		}); err != nil {
			return err
		}
		p.lc.Debugf("Subscribed to %s", filter)
	}
	return nil
}

func (p *Publisher) handleCommand(cmd Commander, topic string, payload []byte) {
	blindID, suffix, ok := p.splitTopic(topic)
	if !ok {
		p.lc.Warnf("mqtt: unexpected command topic %s", topic)
		return
	}
	body := strings.TrimSpace(string(payload))

	var err error
	switch suffix {
	case topicSet, topicSetPosition:
		var a bridge.Action
		if a, err = bridge.ParseAction(body); err == nil {
			if suffix == topicSetPosition && a.Kind != bridge.ActionSetPosition {
				p.lc.Warnf("mqtt: %s expects a position, got %q", topic, body)
				return
			}
			err = cmd.Command(blindID, a)
		}
	case topicRefresh:
		err = cmd.RequestStatus(blindID)
	default:
		return
	}
	if err != nil {
		p.lc.Errorf("mqtt command %s %q: %v", topic, body, err)
	}
}

// splitTopic <prefix>/<blind>/<suffix>
func (p *Publisher) splitTopic(topic string) (blindID, suffix string, ok bool) {
	rest, found := strings.CutPrefix(topic, p.prefix+"/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
