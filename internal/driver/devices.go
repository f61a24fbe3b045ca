package driver

import (
	"fmt"
	"sync"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/errors"
)

// deviceTable 是 EdgeX 设备名 ↔ 卷帘 ID 的内存映射
type deviceTable struct {
	mu       sync.RWMutex
	byDevice map[string]string
	byBlind  map[string]string
}

func newDeviceTable() *deviceTable {
	return &deviceTable{
		byDevice: make(map[string]string),
		byBlind:  make(map[string]string),
	}
}

// Bind 绑定设备和卷帘，一个卷帘只能属于一个设备
func (t *deviceTable) Bind(deviceName, blindID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if owner, ok := t.byBlind[blindID]; ok && owner != deviceName {
		return errors.NewCommonEdgeX(
			errors.KindDuplicateName,
			fmt.Sprintf("blind %s already bound to device %s", blindID, owner),
			nil,
		)
	}
	if old, ok := t.byDevice[deviceName]; ok {
		delete(t.byBlind, old)
	}
	t.byDevice[deviceName] = blindID
	t.byBlind[blindID] = deviceName
	return nil
}

// Unbind 删除设备的绑定，返回原卷帘 ID
func (t *deviceTable) Unbind(deviceName string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.byDevice[deviceName]
	if !ok {
		return "", false
	}
	delete(t.byDevice, deviceName)
	delete(t.byBlind, id)
	return id, true
}

func (t *deviceTable) Blind(deviceName string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.byDevice[deviceName]
	return id, ok
}

func (t *deviceTable) Device(blindID string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	name, ok := t.byBlind[blindID]
	return name, ok
}
