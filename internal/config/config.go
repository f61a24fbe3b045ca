// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/linjuya-lu/device_arc_go/internal/bridge"
	"github.com/linjuya-lu/device_arc_go/internal/poller"
)

// DefaultPath 默认配置文件，可用驱动配置 ArcConfigFile 覆盖
const DefaultPath = "./res/arc-bridge.yaml"

// Default 返回填好默认值的配置
func Default() Config {
	return Config{
		Port: Port{
			Name:      "arc",
			Device:    "/dev/ttyUSB0",
			Type:      "uart",
			Baudrate:  9600,
			TimeoutMs: 100,
		},
		AutoPoll:         true,
		AutoPollInterval: Duration(poller.DefaultInterval),
		PollTimeout:      Duration(poller.DefaultTimeout),
		MaxRetries:       poller.DefaultMaxRetries,
		HalfDuplex:       true,
		MoveInhibit:      Duration(5 * time.Second),
		OfflineAfter:     Duration(60 * time.Second),
		TickInterval:     Duration(bridge.DefaultTick),
		MQTT: MQTT{
			ClientID:        "device-arc-bridge",
			KeepAlive:       Duration(30 * time.Second),
			ConnectTimeout:  Duration(5 * time.Second),
			TopicPrefix:     "arc",
			DiscoveryPrefix: "homeassistant",
		},
	}
}

// Load 读取 YAML 文件的 ArcBridge 段，未出现的键保留默认值
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse 解析并校验配置内容
func Parse(data []byte) (*Config, error) {
	doc := struct {
		ArcBridge Config `yaml:"ArcBridge"`
	}{ArcBridge: Default()}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	cfg := doc.ArcBridge
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// PollConfig 轮询器参数
func (c *Config) PollConfig() poller.Config {
	return poller.Config{
		AutoPoll:   c.AutoPoll,
		Interval:   c.AutoPollInterval.D(),
		Timeout:    c.PollTimeout.D(),
		MaxRetries: c.MaxRetries,
		HalfDuplex: c.HalfDuplex,
	}
}

// BridgeConfig 控制器参数
func (c *Config) BridgeConfig() bridge.Config {
	return bridge.Config{
		Poll:         c.PollConfig(),
		MoveInhibit:  c.MoveInhibit.D(),
		StartupGuard: c.StartupGuard.D(),
		OfflineAfter: c.OfflineAfter.D(),
	}
}
