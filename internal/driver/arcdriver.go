// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019-2023 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package driver provides an implementation of a ProtocolDriver interface
// for ARC blinds behind a serial bridge.
package driver

import (
	"context"
	goerrors "errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/edgexfoundry/device-sdk-go/v4/pkg/interfaces"
	dsModels "github.com/edgexfoundry/device-sdk-go/v4/pkg/models"
	"github.com/edgexfoundry/go-mod-core-contracts/v4/clients/logger"
	"github.com/edgexfoundry/go-mod-core-contracts/v4/errors"
	"github.com/edgexfoundry/go-mod-core-contracts/v4/models"

	"github.com/linjuya-lu/device_arc_go/internal/bridge"
	"github.com/linjuya-lu/device_arc_go/internal/config"
	"github.com/linjuya-lu/device_arc_go/internal/registry"
)

// ConfigFileKey 驱动配置中指定 YAML 路径的键
const ConfigFileKey = "ArcConfigFile"

const (
	requestTimeout = 5 * time.Second
	// discoverWait 广播版本查询后收集应答的时间
	discoverWait = 3 * time.Second
)

type ArcDriver struct {
	lc      logger.LoggingClient
	asyncCh chan<- *dsModels.AsyncValues
	sdk     interfaces.DeviceServiceSDK

	stack   *bridgeStack
	devices *deviceTable
	locker  sync.Mutex
}

var once sync.Once
var driver *ArcDriver

func NewArcDeviceDriver() interfaces.ProtocolDriver {
	once.Do(func() {
		driver = &ArcDriver{devices: newDeviceTable()}
	})
	return driver
}

func (d *ArcDriver) Initialize(sdk interfaces.DeviceServiceSDK) error {
	d.sdk = sdk
	d.lc = sdk.LoggingClient()
	d.asyncCh = sdk.AsyncValuesChannel()

	path := config.DefaultPath
	if p, ok := sdk.DriverConfigs()[ConfigFileKey]; ok && p != "" {
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load arc bridge config: %w", err)
	}

	stack, err := InitializeBridge(cfg, d.lc, newAsyncObserver(d.devices, d.asyncCh, d.lc))
	if err != nil {
		return fmt.Errorf("初始化卷帘桥失败: %w", err)
	}
	d.stack = stack
	d.lc.Infof("ARC bridge on %s (%s, %d baud), %d blinds configured",
		cfg.Port.Device, cfg.Port.Type, cfg.Port.Baudrate, len(cfg.Blinds))
	return nil
}

func (d *ArcDriver) Start() error {
	if err := d.stack.Start(); err != nil {
		return err
	}
	d.lc.Infof("卷帘桥已启动")
	return nil
}

func (d *ArcDriver) Stop(force bool) error {
	d.lc.Info("ArcDriver.Stop: arc bridge driver is stopping...")
	if d.stack == nil {
		return nil
	}
	return d.stack.Stop()
}

// exec 在 runner 上执行，超时映射为 EdgeX 错误
func (d *ArcDriver) exec(blindID string, fn func(*bridge.Bridge) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	return edgexError(blindID, d.stack.runner.Exec(ctx, fn))
}

// blindFor 先查绑定表，查不到再解析协议属性
func (d *ArcDriver) blindFor(deviceName string, protocols map[string]models.ProtocolProperties) (string, error) {
	if id, ok := d.devices.Blind(deviceName); ok {
		return id, nil
	}
	p, err := parseProtocol(protocols)
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

func (d *ArcDriver) HandleReadCommands(deviceName string, protocols map[string]models.ProtocolProperties, reqs []dsModels.CommandRequest) ([]*dsModels.CommandValue, error) {
	id, err := d.blindFor(deviceName, protocols)
	if err != nil {
		return nil, err
	}

	var rec registry.BlindRecord
	if err := d.exec(id, func(b *bridge.Bridge) error {
		var err error
		rec, err = b.Blind(id)
		return err
	}); err != nil {
		return nil, err
	}

	res := make([]*dsModels.CommandValue, 0, len(reqs))
	for _, req := range reqs {
		cv, err := readValue(req.DeviceResourceName, rec)
		if err != nil {
			return nil, err
		}
		d.lc.Debugf("读取值: %s.%s = %v", deviceName, req.DeviceResourceName, cv.Value)
		res = append(res, cv)
	}
	return res, nil
}

func (d *ArcDriver) HandleWriteCommands(deviceName string, protocols map[string]models.ProtocolProperties, reqs []dsModels.CommandRequest,
	params []*dsModels.CommandValue) error {
	if len(reqs) != len(params) {
		return errors.NewCommonEdgeX(errors.KindContractInvalid,
			fmt.Sprintf("%d requests but %d values", len(reqs), len(params)), nil)
	}
	id, err := d.blindFor(deviceName, protocols)
	if err != nil {
		return err
	}

	// 先全部解析，避免只执行一半
	ops := make([]writeOp, len(reqs))
	for i, req := range reqs {
		if ops[i], err = parseWrite(req.DeviceResourceName, params[i]); err != nil {
			return err
		}
	}

	for i, op := range ops {
		d.lc.Infof("写入值: %s.%s = %v", deviceName, reqs[i].DeviceResourceName, params[i].Value)
		switch {
		case op.action != nil:
			a := *op.action
			err = d.exec(id, func(b *bridge.Bridge) error { return b.Command(id, a) })
		case op.refresh:
			err = d.exec(id, func(b *bridge.Bridge) error { return b.RequestStatus(id) })
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *ArcDriver) AddDevice(deviceName string, protocols map[string]models.ProtocolProperties, adminState models.AdminState) error {
	d.locker.Lock()
	defer d.locker.Unlock()
	return d.addDevice(deviceName, protocols)
}

func (d *ArcDriver) addDevice(deviceName string, protocols map[string]models.ProtocolProperties) error {
	p, err := parseProtocol(protocols)
	if err != nil {
		return err
	}
	if err := d.devices.Bind(deviceName, p.ID); err != nil {
		return err
	}

	var rec registry.BlindRecord
	err = d.exec(p.ID, func(b *bridge.Bridge) error {
		if err := b.AddBlind(p.ID, deviceName, p.Invert); err != nil && !goerrors.Is(err, registry.ErrDuplicateID) {
			return err
		}
		rec, err = b.Blind(p.ID)
		return err
	})
	if err != nil {
		d.devices.Unbind(deviceName)
		return err
	}
	if rec.InvertPosition != p.Invert {
		d.lc.Warnf("Device %s: blind %s already registered with invert_position=%v", deviceName, p.ID, rec.InvertPosition)
	}
	if disc := d.stack.discovery; disc != nil {
		if err := disc.Publish(rec); err != nil {
			d.lc.Errorf("publish discovery for %s: %v", p.ID, err)
		}
	}
	d.lc.Debugf("a new Device is added: %s (blind %s)", deviceName, p.ID)
	return nil
}

func (d *ArcDriver) UpdateDevice(deviceName string, protocols map[string]models.ProtocolProperties, adminState models.AdminState) error {
	d.locker.Lock()
	defer d.locker.Unlock()

	p, err := parseProtocol(protocols)
	if err != nil {
		return err
	}
	if id, ok := d.devices.Blind(deviceName); ok {
		var rec registry.BlindRecord
		if err := d.exec(id, func(b *bridge.Bridge) error {
			rec, err = b.Blind(id)
			return err
		}); err == nil && id == p.ID && rec.InvertPosition == p.Invert {
			return nil
		}
		if err := d.removeDevice(deviceName); err != nil {
			return err
		}
	}
	d.lc.Debugf("Device %s is updated", deviceName)
	return d.addDevice(deviceName, protocols)
}

func (d *ArcDriver) RemoveDevice(deviceName string, protocols map[string]models.ProtocolProperties) error {
	d.locker.Lock()
	defer d.locker.Unlock()
	return d.removeDevice(deviceName)
}

func (d *ArcDriver) removeDevice(deviceName string) error {
	id, ok := d.devices.Unbind(deviceName)
	if !ok {
		return nil
	}
	// 配置文件中的卷帘只解除绑定，继续轮询
	if d.stack.isStatic(id) {
		d.lc.Debugf("Device %s is removed, blind %s stays configured", deviceName, id)
		return nil
	}
	err := d.exec(id, func(b *bridge.Bridge) error { return b.RemoveBlind(id) })
	if err != nil && !goerrors.Is(err, bridge.ErrUnknownBlind) {
		return err
	}
	if disc := d.stack.discovery; disc != nil {
		if err := disc.Remove(id); err != nil {
			d.lc.Errorf("remove discovery for %s: %v", id, err)
		}
	}
	d.lc.Debugf("Device %s is removed (blind %s)", deviceName, id)
	return nil
}

// Discover 广播版本查询，稍后把应答但未注册的卷帘交给 SDK
func (d *ArcDriver) Discover() error {
	if err := d.exec(arcBroadcast, func(b *bridge.Bridge) error { return b.Discover() }); err != nil {
		return err
	}
	go func() {
		time.Sleep(discoverWait)
		var found map[string]string
		if err := d.exec(arcBroadcast, func(b *bridge.Bridge) error {
			found = b.Discovered()
			return nil
		}); err != nil {
			d.lc.Errorf("collect discovered blinds: %v", err)
			return
		}
		devices := discoveredDevices(found, d.devices)
		d.lc.Infof("Discovered %d new ARC blinds", len(devices))
		d.sdk.DiscoveredDeviceChannel() <- devices
	}()
	return nil
}

const arcBroadcast = "broadcast"

// discoveredDevices 过滤已绑定的卷帘
func discoveredDevices(found map[string]string, table *deviceTable) []dsModels.DiscoveredDevice {
	ids := make([]string, 0, len(found))
	for id := range found {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]dsModels.DiscoveredDevice, 0, len(ids))
	for _, id := range ids {
		version := found[id]
		if _, bound := table.Device(id); bound {
			continue
		}
		out = append(out, dsModels.DiscoveredDevice{
			Name:        discoveredName + id,
			Protocols:   protocolsFor(id, false),
			Description: fmt.Sprintf("ARC blind %s, firmware %s", id, version),
			Labels:      []string{"arc", "blind"},
		})
	}
	return out
}

func (d *ArcDriver) ValidateDevice(device models.Device) error {
	_, err := parseProtocol(device.Protocols)
	return err
}
