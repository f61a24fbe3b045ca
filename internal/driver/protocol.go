package driver

import (
	"fmt"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/errors"
	"github.com/edgexfoundry/go-mod-core-contracts/v4/models"
	"github.com/spf13/cast"

	"github.com/linjuya-lu/device_arc_go/internal/arc"
)

// 设备协议属性
const (
	ProtocolName   = "arc"
	PropBlindID    = "BlindId"
	PropInvert     = "InvertPosition"
	discoveredName = "arc-blind-"
)

type blindProtocol struct {
	ID     string
	Invert bool
}

// parseProtocol 从 protocols["arc"] 中取出卷帘地址和反转标志
func parseProtocol(protocols map[string]models.ProtocolProperties) (blindProtocol, error) {
	props, ok := protocols[ProtocolName]
	if !ok {
		return blindProtocol{}, errors.NewCommonEdgeX(errors.KindContractInvalid,
			fmt.Sprintf("protocol %q not defined", ProtocolName), nil)
	}
	id, err := cast.ToStringE(props[PropBlindID])
	if err != nil || id == "" {
		return blindProtocol{}, errors.NewCommonEdgeX(errors.KindContractInvalid,
			fmt.Sprintf("protocol property %s missing or invalid", PropBlindID), err)
	}
	if err := arc.ValidateBlindID(id); err != nil {
		return blindProtocol{}, errors.NewCommonEdgeX(errors.KindContractInvalid, "invalid blind id", err)
	}

	p := blindProtocol{ID: id}
	if v, ok := props[PropInvert]; ok && v != nil && v != "" {
		if p.Invert, err = cast.ToBoolE(v); err != nil {
			return blindProtocol{}, errors.NewCommonEdgeX(errors.KindContractInvalid,
				fmt.Sprintf("protocol property %s=%v", PropInvert, v), err)
		}
	}
	return p, nil
}

func protocolsFor(id string, invert bool) map[string]models.ProtocolProperties {
	return map[string]models.ProtocolProperties{
		ProtocolName: {
			PropBlindID: id,
			PropInvert:  cast.ToString(invert),
		},
	}
}
