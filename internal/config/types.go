package config

import (
	"fmt"
	"time"
)

// Port 描述一个串口设备
type Port struct {
	Name      string `yaml:"name"`      // 逻辑名称
	Device    string `yaml:"device"`    // 串口设备节点
	Type      string `yaml:"type"`      // uart/rs485/rs232
	Baudrate  int    `yaml:"baudrate"`  // 波特率
	DEPin     int    `yaml:"dePin"`     // RS-485 DE/RE 控制 GPIO 编号
	TimeoutMs int    `yaml:"timeoutMs"` // 读操作超时（毫秒）
}

// Blind 一个静态配置的卷帘
type Blind struct {
	ID             string `yaml:"blind_id"`
	Name           string `yaml:"name"`
	InvertPosition bool   `yaml:"invert_position"`
}

// MQTT 状态发布与命令订阅，Broker 为空时不启用
type MQTT struct {
	Broker          string   `yaml:"broker"` // tcp://host:port
	ClientID        string   `yaml:"client_id"`
	Username        string   `yaml:"username"`
	Password        string   `yaml:"password"`
	KeepAlive       Duration `yaml:"keep_alive"`
	ConnectTimeout  Duration `yaml:"connect_timeout"`
	QoS             byte     `yaml:"qos"`
	Retain          bool     `yaml:"retain"`
	TopicPrefix     string   `yaml:"topic_prefix"`
	Discovery       bool     `yaml:"discovery"` // Home Assistant 自动发现
	DiscoveryPrefix string   `yaml:"discovery_prefix"`
	RawTopic        string   `yaml:"raw_topic"` // 非空时把收发原始帧镜像到该主题
}

// Enabled 是否配置了 broker
func (m MQTT) Enabled() bool {
	return m.Broker != ""
}

// Config ArcBridge 段的全部配置
type Config struct {
	Port Port `yaml:"port"`

	AutoPoll         bool     `yaml:"auto_poll"`
	AutoPollInterval Duration `yaml:"auto_poll_interval"`
	PollTimeout      Duration `yaml:"poll_timeout"`
	MaxRetries       int      `yaml:"max_retries"`
	HalfDuplex       bool     `yaml:"half_duplex"`
	MoveInhibit      Duration `yaml:"move_inhibit"`
	StartupGuard     Duration `yaml:"startup_guard"`
	OfflineAfter     Duration `yaml:"offline_after"`
	TickInterval     Duration `yaml:"tick_interval"`

	Blinds []Blind `yaml:"blinds"`
	MQTT   MQTT    `yaml:"mqtt"`
}

// Duration 接受 "10s"、"250ms" 这类 Go 时长字符串
type Duration time.Duration

func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}
