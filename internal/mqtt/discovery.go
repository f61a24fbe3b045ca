package mqtt

import (
	"encoding/json"
	"fmt"

	"github.com/linjuya-lu/device_arc_go/internal/registry"
)

type DeviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	SwVersion    string   `json:"sw_version,omitempty"`
	ViaDevice    string   `json:"via_device,omitempty"`
}

// CoverConfig Home Assistant cover 自动发现负载
type CoverConfig struct {
	Name              string     `json:"name"`
	UniqueID          string     `json:"unique_id"`
	DeviceClass       string     `json:"device_class"`
	CommandTopic      string     `json:"command_topic"`
	PositionTopic     string     `json:"position_topic"`
	SetPositionTopic  string     `json:"set_position_topic"`
	StateTopic        string     `json:"state_topic"`
	AvailabilityTopic string     `json:"availability_topic"`
	PayloadOpen       string     `json:"payload_open"`
	PayloadClose      string     `json:"payload_close"`
	PayloadStop       string     `json:"payload_stop"`
	StateOpening      string     `json:"state_opening"`
	StateClosing      string     `json:"state_closing"`
	StateStopped      string     `json:"state_stopped"`
	PositionOpen      int        `json:"position_open"`
	PositionClosed    int        `json:"position_closed"`
	QoS               byte       `json:"qos"`
	Device            DeviceInfo `json:"device"`
}

// SensorConfig 链路质量传感器
type SensorConfig struct {
	Name              string     `json:"name"`
	UniqueID          string     `json:"unique_id"`
	StateTopic        string     `json:"state_topic"`
	AvailabilityTopic string     `json:"availability_topic"`
	UnitOfMeasurement string     `json:"unit_of_measurement"`
	StateClass        string     `json:"state_class"`
	EntityCategory    string     `json:"entity_category"`
	Device            DeviceInfo `json:"device"`
}

// Discovery 为每个卷帘发布 retained 的自动发现配置
type Discovery struct {
	pub    *Publisher
	prefix string
	node   string
	qos    byte
}

func NewDiscovery(pub *Publisher, discoveryPrefix, node string, qos byte) *Discovery {
	return &Discovery{pub: pub, prefix: discoveryPrefix, node: node, qos: qos}
}

func (d *Discovery) objectID(blindID string) string {
	return d.node + "_" + blindID
}

func (d *Discovery) coverTopic(blindID string) string {
	return fmt.Sprintf("%s/cover/%s/config", d.prefix, d.objectID(blindID))
}

func (d *Discovery) sensorTopic(blindID string) string {
	return fmt.Sprintf("%s/sensor/%s_lq/config", d.prefix, d.objectID(blindID))
}

// Cover 生成卷帘的 cover 配置；线上 0 为全开，反转时对调
func (d *Discovery) Cover(rec registry.BlindRecord) CoverConfig {
	p := d.pub
	dev := d.device(rec)
	open, closed := 0, 100
	if rec.InvertPosition {
		open, closed = 100, 0
	}
	return CoverConfig{
		Name:              rec.Name,
		UniqueID:          d.objectID(rec.ID),
		DeviceClass:       "blind",
		CommandTopic:      p.topic(rec.ID, topicSet),
		PositionTopic:     p.topic(rec.ID, topicPosition),
		SetPositionTopic:  p.topic(rec.ID, topicSetPosition),
		StateTopic:        p.topic(rec.ID, topicStatus),
		AvailabilityTopic: p.AvailabilityTopic(),
		PayloadOpen:       "OPEN",
		PayloadClose:      "CLOSE",
		PayloadStop:       "STOP",
		StateOpening:      registry.MotionOpening.String(),
		StateClosing:      registry.MotionClosing.String(),
		StateStopped:      registry.MotionStopped.String(),
		PositionOpen:      open,
		PositionClosed:    closed,
		QoS:               d.qos,
		Device:            dev,
	}
}

// LinkQualitySensor 生成链路质量传感器配置
func (d *Discovery) LinkQualitySensor(rec registry.BlindRecord) SensorConfig {
	return SensorConfig{
		Name:              rec.Name + " link quality",
		UniqueID:          d.objectID(rec.ID) + "_lq",
		StateTopic:        d.pub.topic(rec.ID, topicLinkQuality),
		AvailabilityTopic: d.pub.AvailabilityTopic(),
		UnitOfMeasurement: "%",
		StateClass:        "measurement",
		EntityCategory:    "diagnostic",
		Device:            d.device(rec),
	}
}

func (d *Discovery) device(rec registry.BlindRecord) DeviceInfo {
	return DeviceInfo{
		Identifiers:  []string{d.objectID(rec.ID)},
		Name:         rec.Name,
		Manufacturer: "ARC",
		Model:        "ARC motor",
		SwVersion:    rec.Version,
		ViaDevice:    d.node,
	}
}

// Publish 发布一个卷帘的全部发现配置
func (d *Discovery) Publish(rec registry.BlindRecord) error {
	if err := d.publishJSON(d.coverTopic(rec.ID), d.Cover(rec)); err != nil {
		return err
	}
	return d.publishJSON(d.sensorTopic(rec.ID), d.LinkQualitySensor(rec))
}

// Remove 发布空负载，删除 Home Assistant 中的实体
func (d *Discovery) Remove(blindID string) error {
	if err := d.pub.conn.Publish(d.coverTopic(blindID), true, nil); err != nil {
		return err
	}
	return d.pub.conn.Publish(d.sensorTopic(blindID), true, nil)
}

func (d *Discovery) publishJSON(topic string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal discovery %s: %w", topic, err)
	}
	return d.pub.conn.Publish(topic, true, b)
}
