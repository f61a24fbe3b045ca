// internal/driver/init.go
package driver

import (
	"context"
	"fmt"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/clients/logger"

	"github.com/linjuya-lu/device_arc_go/internal/bridge"
	"github.com/linjuya-lu/device_arc_go/internal/config"
	"github.com/linjuya-lu/device_arc_go/internal/mqtt"
	"github.com/linjuya-lu/device_arc_go/internal/mqttclient"
	"github.com/linjuya-lu/device_arc_go/internal/serial"
	"github.com/linjuya-lu/device_arc_go/internal/transport"
)

// bridgeStack 持有一条串口链路上的全部组件
type bridgeStack struct {
	cfg    *config.Config
	lc     logger.LoggingClient
	port   serial.Port
	bridge *bridge.Bridge
	runner *bridge.Runner

	mqttClient *mqtt.Client
	publisher  *mqtt.Publisher
	discovery  *mqtt.Discovery

	// static 配置文件中声明的卷帘
	static map[string]struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

// InitializeBridge 负责：
//  1. 打开串口
//  2. 连接 MQTT（配置了 broker 时）
//  3. 组装 transport / bridge / runner 并注册配置中的卷帘
func InitializeBridge(cfg *config.Config, lc logger.LoggingClient, observers ...bridge.Observer) (*bridgeStack, error) {
	port, err := serial.NewPort(cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("unsupported port %s: %w", cfg.Port.Name, err)
	}
	if err := port.Open(); err != nil {
		return nil, fmt.Errorf("open port %s: %w", cfg.Port.Name, err)
	}

	var conn mqtt.Conn
	var client *mqtt.Client
	if cfg.MQTT.Enabled() {
		client, err = mqtt.NewClient(mqtt.OptionsFromConfig(cfg.MQTT), lc)
		if err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("初始化 MQTT 客户端失败: %w", err)
		}
		conn = client
	}

	s, err := newBridgeStack(cfg, port, conn, lc, observers...)
	if err != nil {
		_ = port.Close()
		if client != nil {
			client.Disconnect(250)
		}
		return nil, err
	}
	s.mqttClient = client
	return s, nil
}

// newBridgeStack 只组装，不启动 goroutine；conn 为 nil 时不发布 MQTT
func newBridgeStack(cfg *config.Config, port serial.Port, conn mqtt.Conn, lc logger.LoggingClient, observers ...bridge.Observer) (*bridgeStack, error) {
	link := transport.New(port, lc)
	b, err := bridge.New(cfg.BridgeConfig(), link, lc)
	if err != nil {
		return nil, err
	}
	for _, o := range observers {
		b.Subscribe(o)
	}

	s := &bridgeStack{
		cfg:    cfg,
		lc:     lc,
		port:   port,
		bridge: b,
		runner: bridge.NewRunner(b, cfg.TickInterval.D(), lc),
		static: make(map[string]struct{}, len(cfg.Blinds)),
		done:   make(chan struct{}),
	}

	if conn != nil {
		s.publisher = mqtt.NewPublisher(conn, cfg.MQTT.TopicPrefix, cfg.MQTT.Retain, lc)
		b.Subscribe(s.publisher)
		if cfg.MQTT.RawTopic != "" {
			link.SetTrace(mqttclient.NewFrameTap(conn, cfg.MQTT.RawTopic, cfg.Port.Device, lc).Trace)
		}
		if cfg.MQTT.Discovery {
			s.discovery = mqtt.NewDiscovery(s.publisher, cfg.MQTT.DiscoveryPrefix, cfg.MQTT.ClientID, cfg.MQTT.QoS)
		}
	}

	for _, bl := range cfg.Blinds {
		if err := b.AddBlind(bl.ID, bl.Name, bl.InvertPosition); err != nil {
			return nil, fmt.Errorf("blind %s: %w", bl.ID, err)
		}
		s.static[bl.ID] = struct{}{}
	}
	return s, nil
}

func (s *bridgeStack) isStatic(blindID string) bool {
	_, ok := s.static[blindID]
	return ok
}

// Start 启动串口读循环和 runner，然后订阅 MQTT 命令
func (s *bridgeStack) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	rx := make(chan []byte, 16)
	serial.StartReadLoop(ctx, s.port, rx, s.lc)
	go func() {
		defer close(s.done)
		s.runner.Run(ctx, rx)
	}()

	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.SubscribeCommands(s.runner); err != nil {
		return fmt.Errorf("subscribe mqtt commands: %w", err)
	}
	s.publisher.Announce()
	if s.discovery != nil {
		for _, rec := range s.bridge.Blinds() {
			if err := s.discovery.Publish(rec); err != nil {
				s.lc.Errorf("publish discovery for %s: %v", rec.ID, err)
			}
		}
	}
	return nil
}

// Stop 停止 runner 并释放串口和 MQTT
func (s *bridgeStack) Stop() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	if s.mqttClient != nil {
		_ = s.mqttClient.Publish(s.publisher.AvailabilityTopic(), true, []byte("offline"))
		s.mqttClient.Disconnect(250)
	}
	return s.port.Close()
}
