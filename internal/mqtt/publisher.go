package mqtt

import (
	"strconv"
	"strings"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/clients/logger"

	"github.com/linjuya-lu/device_arc_go/internal/bridge"
)

// 主题后缀：<prefix>/<blind>/<suffix>
const (
	topicPosition    = "position"
	topicStatus      = "status"
	topicLinkQuality = "link_quality"
	topicEvent       = "event"
	topicSet         = "set"
	topicSetPosition = "set_position"
	topicRefresh     = "refresh"

	availabilitySuffix = "availability"
	payloadOnline      = "online"
	payloadOffline     = "offline"
)

// Publisher 把卷帘状态变化发布到 MQTT，实现 bridge.Observer
type Publisher struct {
	conn   Conn
	prefix string
	retain bool
	lc     logger.LoggingClient
}

var _ bridge.Observer = (*Publisher)(nil)

func NewPublisher(conn Conn, prefix string, retain bool, lc logger.LoggingClient) *Publisher {
	return &Publisher{
		conn:   conn,
		prefix: strings.TrimSuffix(prefix, "/"),
		retain: retain,
		lc:     lc,
	}
}

func (p *Publisher) topic(blindID, suffix string) string {
	return p.prefix + "/" + blindID + "/" + suffix
}

// AvailabilityTopic 桥的在线状态主题
func (p *Publisher) AvailabilityTopic() string {
	return p.prefix + "/" + availabilitySuffix
}

// Announce 发布在线状态
func (p *Publisher) Announce() {
	p.send(p.AvailabilityTopic(), true, payloadOnline)
}

func (p *Publisher) PublishPosition(blindID string, position int) {
	p.send(p.topic(blindID, topicPosition), p.retain, strconv.Itoa(position))
}

func (p *Publisher) PublishStatusText(blindID string, text string) {
	p.send(p.topic(blindID, topicStatus), p.retain, text)
}

func (p *Publisher) PublishLinkQuality(blindID string, percent int) {
	p.send(p.topic(blindID, topicLinkQuality), p.retain, strconv.Itoa(percent))
}

// PollTimeout 事件不保留
func (p *Publisher) PollTimeout(blindID string) {
	p.send(p.topic(blindID, topicEvent), false, bridge.EventPollTimeout)
}

func (p *Publisher) send(topic string, retain bool, payload string) {
	if err := p.conn.Publish(topic, retain, []byte(payload)); err != nil {
		p.lc.Errorf("mqtt publish %s: %v", topic, err)
	}
}
