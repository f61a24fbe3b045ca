// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2025 YourCompany
//
// SPDX-License-Identifier: Apache-2.0

package driver

import (
	"context"
	goerrors "errors"
	"fmt"

	dsModels "github.com/edgexfoundry/device-sdk-go/v4/pkg/models"
	"github.com/edgexfoundry/go-mod-core-contracts/v4/common"
	"github.com/edgexfoundry/go-mod-core-contracts/v4/errors"
	"github.com/spf13/cast"

	"github.com/linjuya-lu/device_arc_go/internal/bridge"
	"github.com/linjuya-lu/device_arc_go/internal/registry"
)

// DeviceResource 名称，与 res/profiles 中的 arc-blind 设备模板一致
const (
	ResourcePosition       = "Position"       // Int8 R/W，-1 表示未知
	ResourceMotion         = "Motion"         // String R
	ResourceStatus         = "Status"         // String R
	ResourceLinkQuality    = "LinkQuality"    // Uint8 R
	ResourceVersion        = "Version"        // String R
	ResourceLastSeen       = "LastSeen"       // Int64 R，Unix 毫秒
	ResourceInvertPosition = "InvertPosition" // Bool R
	ResourceCommand        = "Command"        // String W: open/close/stop/0~100
	ResourceRefresh        = "Refresh"        // Bool W
	ResourceEvent          = "Event"          // String R，最近一次异步事件
)

// readValue 把卷帘记录中的一个字段封装成 CommandValue
func readValue(resource string, rec registry.BlindRecord) (*dsModels.CommandValue, error) {
	switch resource {
	case ResourcePosition:
		return dsModels.NewCommandValue(resource, common.ValueTypeInt8, int8(rec.Position))
	case ResourceMotion:
		return dsModels.NewCommandValue(resource, common.ValueTypeString, rec.Motion.String())
	case ResourceStatus:
		return dsModels.NewCommandValue(resource, common.ValueTypeString, rec.Status)
	case ResourceLinkQuality:
		return dsModels.NewCommandValue(resource, common.ValueTypeUint8, uint8(rec.LinkQuality))
	case ResourceVersion:
		return dsModels.NewCommandValue(resource, common.ValueTypeString, rec.Version)
	case ResourceLastSeen:
		var ms int64
		if !rec.LastSeen.IsZero() {
			ms = rec.LastSeen.UnixMilli()
		}
		return dsModels.NewCommandValue(resource, common.ValueTypeInt64, ms)
	case ResourceInvertPosition:
		return dsModels.NewCommandValue(resource, common.ValueTypeBool, rec.InvertPosition)
	case ResourceEvent:
		return dsModels.NewCommandValue(resource, common.ValueTypeString, rec.LastEvent)
	default:
		return nil, errors.NewCommonEdgeX(errors.KindContractInvalid,
			fmt.Sprintf("resource %s is not readable", resource), nil)
	}
}

// writeOp 一次写请求在 bridge 上的动作
type writeOp struct {
	action  *bridge.Action
	refresh bool
}

// parseWrite 把写请求转换成 bridge 动作，不接触 bridge
func parseWrite(resource string, param *dsModels.CommandValue) (writeOp, error) {
	switch resource {
	case ResourceCommand:
		s, err := cast.ToStringE(param.Value)
		if err != nil {
			return writeOp{}, errors.NewCommonEdgeX(errors.KindContractInvalid, "Command expects a string", err)
		}
		a, err := bridge.ParseAction(s)
		if err != nil {
			return writeOp{}, errors.NewCommonEdgeX(errors.KindContractInvalid, "invalid Command", err)
		}
		return writeOp{action: &a}, nil
	case ResourcePosition:
		p, err := cast.ToIntE(param.Value)
		if err != nil || p < 0 || p > 100 {
			return writeOp{}, errors.NewCommonEdgeX(errors.KindContractInvalid,
				fmt.Sprintf("Position %v out of range 0-100", param.Value), err)
		}
		a := bridge.SetPosition(p)
		return writeOp{action: &a}, nil
	case ResourceRefresh:
		v, err := cast.ToBoolE(param.Value)
		if err != nil {
			return writeOp{}, errors.NewCommonEdgeX(errors.KindContractInvalid, "Refresh expects a bool", err)
		}
		return writeOp{refresh: v}, nil
	default:
		return writeOp{}, errors.NewCommonEdgeX(errors.KindContractInvalid,
			fmt.Sprintf("resource %s is not writable", resource), nil)
	}
}

// edgexError 把 bridge 错误映射到 EdgeX 错误类型
func edgexError(blindID string, err error) error {
	if err == nil {
		return nil
	}
	kind := errors.KindServerError
	switch {
	case goerrors.Is(err, bridge.ErrUnknownBlind):
		kind = errors.KindEntityDoesNotExist
	case goerrors.Is(err, bridge.ErrControlInhibited):
		kind = errors.KindServiceLocked
	case goerrors.Is(err, bridge.ErrRunnerStopped):
		kind = errors.KindServiceUnavailable
	case goerrors.Is(err, context.DeadlineExceeded):
		kind = errors.KindServiceUnavailable
	}
	return errors.NewCommonEdgeX(kind, fmt.Sprintf("blind %s", blindID), err)
}
