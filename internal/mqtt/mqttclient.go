package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/edgexfoundry/go-mod-core-contracts/v4/clients/logger"

	"github.com/linjuya-lu/device_arc_go/internal/config"
)

// publishWait 后台等待发布确认的上限
const publishWait = 10 * time.Second

// Conn 发布/订阅的最小接口，便于测试替换
type Conn interface {
	Publish(topic string, retain bool, payload []byte) error
	Subscribe(topic string, handler func(topic string, payload []byte)) error
}

// ClientOptions 配置 MQTT 客户端行为
// Broker: tcp://host:port
// KeepAlive: 心跳间隔
// ConnectTimeout: 连接超时
// DefaultQos: 发布和订阅使用的 QoS
type ClientOptions struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	DefaultQos     byte
	// WillTopic 非空时设置遗嘱消息 "offline"
	WillTopic string
}

// OptionsFromConfig 由 mqtt 配置段生成客户端参数
func OptionsFromConfig(c config.MQTT) ClientOptions {
	return ClientOptions{
		Broker:         c.Broker,
		ClientID:       c.ClientID,
		Username:       c.Username,
		Password:       c.Password,
		KeepAlive:      c.KeepAlive.D(),
		ConnectTimeout: c.ConnectTimeout.D(),
		DefaultQos:     c.QoS,
		WillTopic:      c.TopicPrefix + "/" + availabilitySuffix,
	}
}

// Client 封装 Paho MQTT 客户端。Publish 不阻塞，确认结果在后台记录日志。
type Client struct {
	inner paho.Client
	opts  ClientOptions
	lc    logger.LoggingClient
}

// NewClient 创建一个新的 MQTT 客户端并连接到 Broker
func NewClient(opts ClientOptions, lc logger.LoggingClient) (*Client, error) {
	p := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetKeepAlive(opts.KeepAlive).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)
	if opts.Username != "" {
		p.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		p.SetPassword(opts.Password)
	}
	if opts.WillTopic != "" {
		p.SetWill(opts.WillTopic, payloadOffline, opts.DefaultQos, true)
	}
	p.SetConnectionLostHandler(func(_ paho.Client, err error) {
		lc.Warnf("mqtt connection lost: %v", err)
	})

	c := &Client{opts: opts, lc: lc}
	c.inner = paho.NewClient(p)
	tok := c.inner.Connect()
	if !tok.WaitTimeout(opts.ConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect timeout after %s", opts.ConnectTimeout)
	}
	if err := tok.Error(); err != nil {
		return nil, err
	}
	lc.Infof("Connected to MQTT broker %s as %s", opts.Broker, opts.ClientID)
	return c, nil
}

// Publish 异步发布
func (c *Client) Publish(topic string, retain bool, payload []byte) error {
	tok := c.inner.Publish(topic, c.opts.DefaultQos, retain, payload)
	go func() {
		if !tok.WaitTimeout(publishWait) {
			c.lc.Warnf("mqtt publish to %s not acknowledged after %s", topic, publishWait)
			return
		}
		if err := tok.Error(); err != nil {
			c.lc.Errorf("mqtt publish to %s failed: %v", topic, err)
		}
	}()
	return nil
}

// Subscribe 订阅主题，handler 在 paho 的回调 goroutine 中执行
func (c *Client) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	tok := c.inner.Subscribe(topic, c.opts.DefaultQos, func(_ paho.Client, m paho.Message) {
		handler(m.Topic(), m.Payload())
	})
	if !tok.WaitTimeout(c.opts.ConnectTimeout) {
		return fmt.Errorf("mqtt subscribe %s timeout", topic)
	}
	return tok.Error()
}

// Disconnect 断开与 Broker 的连接
func (c *Client) Disconnect(quiesce uint) {
	c.inner.Disconnect(quiesce)
}
