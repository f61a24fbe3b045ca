package driver

import (
	"time"

	dsModels "github.com/edgexfoundry/device-sdk-go/v4/pkg/models"
	"github.com/edgexfoundry/go-mod-core-contracts/v4/clients/logger"
	"github.com/edgexfoundry/go-mod-core-contracts/v4/common"

	"github.com/linjuya-lu/device_arc_go/internal/bridge"
)

// asyncObserver 把卷帘状态变化作为异步读数推给 SDK。
// 只推送已绑定 EdgeX 设备的卷帘；通道满时丢弃，不阻塞 bridge。
type asyncObserver struct {
	devices *deviceTable
	ch      chan<- *dsModels.AsyncValues
	lc      logger.LoggingClient
	now     func() time.Time
}

var _ bridge.Observer = (*asyncObserver)(nil)

func newAsyncObserver(devices *deviceTable, ch chan<- *dsModels.AsyncValues, lc logger.LoggingClient) *asyncObserver {
	return &asyncObserver{devices: devices, ch: ch, lc: lc, now: time.Now}
}

func (o *asyncObserver) PublishPosition(blindID string, position int) {
	o.push(blindID, ResourcePosition, common.ValueTypeInt8, int8(position))
}

func (o *asyncObserver) PublishStatusText(blindID string, text string) {
	o.push(blindID, ResourceStatus, common.ValueTypeString, text)
}

func (o *asyncObserver) PublishLinkQuality(blindID string, percent int) {
	o.push(blindID, ResourceLinkQuality, common.ValueTypeUint8, uint8(percent))
}

func (o *asyncObserver) PollTimeout(blindID string) {
	o.push(blindID, ResourceEvent, common.ValueTypeString, bridge.EventPollTimeout)
}

func (o *asyncObserver) push(blindID, resource, valueType string, value any) {
	if o.ch == nil {
		return
	}
	deviceName, ok := o.devices.Device(blindID)
	if !ok {
		return
	}
	cv, err := dsModels.NewCommandValue(resource, valueType, value)
	if err != nil {
		o.lc.Errorf("create CommandValue %s.%s: %v", deviceName, resource, err)
		return
	}
	cv.Origin = o.now().UnixNano()

	av := &dsModels.AsyncValues{
		DeviceName:    deviceName,
		SourceName:    resource,
		CommandValues: []*dsModels.CommandValue{cv},
	}
	select {
	case o.ch <- av:
	default:
		o.lc.Warnf("async values channel full, dropping %s.%s", deviceName, resource)
	}
}
