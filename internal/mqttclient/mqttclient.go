// Package mqttclient 把串口上收发的原始帧包装成 EdgeX 消息格式镜像到 MQTT，
// 用于现场抓包排查。
package mqttclient

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/clients/logger"
	"github.com/google/uuid"

	"github.com/linjuya-lu/device_arc_go/internal/mqtt"
	"github.com/linjuya-lu/device_arc_go/internal/transport"
)

// EdgexMessage 是 EdgeX MessageBus 的通用消息格式
type EdgexMessage struct {
	ApiVersion    string      `json:"apiVersion"`
	ReceivedTopic string      `json:"receivedTopic,omitempty"`
	CorrelationID string      `json:"correlationID"`
	RequestID     string      `json:"requestID"`
	ErrorCode     int         `json:"errorCode"`
	Payload       interface{} `json:"payload,omitempty"`
	ContentType   string      `json:"contentType"`
}

// SerialPayload 是 payload 部分的结构
type SerialPayload struct {
	Port      string `json:"port"`
	Direction string `json:"direction"` // rx / tx
	Timestamp int64  `json:"timestamp"` // Unix 纳秒
	Data      string `json:"data"`      // 原始帧的十六进制
}

// FrameTap 实现 transport 的 trace 回调
type FrameTap struct {
	conn  mqtt.Conn
	topic string
	port  string
	lc    logger.LoggingClient
	now   func() time.Time
}

func NewFrameTap(conn mqtt.Conn, topic, port string, lc logger.LoggingClient) *FrameTap {
	return &FrameTap{conn: conn, topic: topic, port: port, lc: lc, now: time.Now}
}

// Trace 组装并发布一条 EdgeX 格式的消息
func (t *FrameTap) Trace(dir transport.Direction, raw []byte) {
	body, err := json.Marshal(t.envelope(dir, raw))
	if err != nil {
		t.lc.Errorf("marshal raw frame: %v", err)
		return
	}
	if err := t.conn.Publish(t.topic, false, body); err != nil {
		t.lc.Errorf("publish raw frame to %s: %v", t.topic, err)
	}
}

func (t *FrameTap) envelope(dir transport.Direction, raw []byte) EdgexMessage {
	return EdgexMessage{
		ApiVersion:    "v3",
		CorrelationID: uuid.NewString(),
		RequestID:     uuid.NewString(),
		Payload: SerialPayload{
			Port:      t.port,
			Direction: string(dir),
			Timestamp: t.now().UnixNano(),
			Data:      hex.EncodeToString(raw),
		},
		ContentType: "application/json",
	}
}
