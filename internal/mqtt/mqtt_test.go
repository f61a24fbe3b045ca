package mqtt

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/clients/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linjuya-lu/device_arc_go/internal/bridge"
	"github.com/linjuya-lu/device_arc_go/internal/config"
	"github.com/linjuya-lu/device_arc_go/internal/registry"
)

type message struct {
	topic   string
	retain  bool
	payload string
}

type fakeConn struct {
	published []message
	handlers  map[string]func(string, []byte)
}

func newFakeConn() *fakeConn {
	return &fakeConn{handlers: make(map[string]func(string, []byte))}
}

func (f *fakeConn) Publish(topic string, retain bool, payload []byte) error {
	f.published = append(f.published, message{topic, retain, string(payload)})
	return nil
}

func (f *fakeConn) Subscribe(topic string, handler func(string, []byte)) error {
	f.handlers[topic] = handler
	return nil
}

func (f *fakeConn) deliver(filter, topic, payload string) {
	f.handlers[filter](topic, []byte(payload))
}

type fakeCommander struct {
	actions  []string
	requests []string
	err      error
}

func (f *fakeCommander) Command(id string, a bridge.Action) error {
	f.actions = append(f.actions, id+":"+a.String())
	return f.err
}

func (f *fakeCommander) RequestStatus(id string) error {
	f.requests = append(f.requests, id)
	return f.err
}

func TestPublisherTopics(t *testing.T) {
	conn := newFakeConn()
	p := NewPublisher(conn, "arc/", true, logger.NewMockClient())

	p.Announce()
	p.PublishPosition("B1", 40)
	p.PublishStatusText("B1", "opening")
	p.PublishLinkQuality("B1", 87)
	p.PollTimeout("B1")

	assert.Equal(t, []message{
		{"arc/availability", true, "online"},
		{"arc/B1/position", true, "40"},
		{"arc/B1/status", true, "opening"},
		{"arc/B1/link_quality", true, "87"},
		{"arc/B1/event", false, "poll_timeout"},
	}, conn.published)
}

func TestCommandRouting(t *testing.T) {
	conn := newFakeConn()
	p := NewPublisher(conn, "arc", false, logger.NewMockClient())
	cmd := &fakeCommander{}
	require.NoError(t, p.SubscribeCommands(cmd))
	require.Len(t, conn.handlers, 3)

	conn.deliver("arc/+/set", "arc/B1/set", "OPEN")
	conn.deliver("arc/+/set", "arc/B2/set", "stop")
	conn.deliver("arc/+/set_position", "arc/B1/set_position", "65")
	conn.deliver("arc/+/set_position", "arc/B1/set_position", "CLOSE")
	conn.deliver("arc/+/set", "arc/B1/set", "sideways")
	conn.deliver("arc/+/set", "other/B1/set", "OPEN")
	conn.deliver("arc/+/refresh", "arc/B3/refresh", "")

	assert.Equal(t, []string{"B1:open", "B2:stop", "B1:set-position(65)"}, cmd.actions)
	assert.Equal(t, []string{"B3"}, cmd.requests)

	// 命令失败只记日志
	cmd.err = errors.New("unknown blind")
	conn.deliver("arc/+/set", "arc/B9/set", "CLOSE")
	assert.Len(t, cmd.actions, 4)
}

func TestDiscoveryPayloads(t *testing.T) {
	conn := newFakeConn()
	p := NewPublisher(conn, "arc", true, logger.NewMockClient())
	d := NewDiscovery(p, "homeassistant", "arcbridge", 1)

	rec := registry.BlindRecord{ID: "B2", Name: "bedroom", InvertPosition: true, Version: "A21"}
	require.NoError(t, d.Publish(rec))
	require.Len(t, conn.published, 2)

	cover := conn.published[0]
	assert.Equal(t, "homeassistant/cover/arcbridge_B2/config", cover.topic)
	assert.True(t, cover.retain)

	var cc CoverConfig
	require.NoError(t, json.Unmarshal([]byte(cover.payload), &cc))
	assert.Equal(t, "arc/B2/set", cc.CommandTopic)
	assert.Equal(t, "arc/B2/set_position", cc.SetPositionTopic)
	assert.Equal(t, "arc/availability", cc.AvailabilityTopic)
	assert.Equal(t, 100, cc.PositionOpen)
	assert.Equal(t, 0, cc.PositionClosed)
	assert.Equal(t, "A21", cc.Device.SwVersion)

	assert.Equal(t, "homeassistant/sensor/arcbridge_B2_lq/config", conn.published[1].topic)

	require.NoError(t, d.Remove("B2"))
	assert.Equal(t, "", conn.published[2].payload)
	assert.Equal(t, "homeassistant/sensor/arcbridge_B2_lq/config", conn.published[3].topic)
}

func TestOptionsFromConfig(t *testing.T) {
	c := config.Default().MQTT
	c.Broker = "tcp://broker:1883"
	opts := OptionsFromConfig(c)
	assert.Equal(t, "tcp://broker:1883", opts.Broker)
	assert.Equal(t, "arc/availability", opts.WillTopic)
	assert.Equal(t, c.ConnectTimeout.D(), opts.ConnectTimeout)
}
