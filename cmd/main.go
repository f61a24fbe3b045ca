// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018-2022 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/edgexfoundry/device-sdk-go/v4/pkg/startup"

	device_arc "github.com/linjuya-lu/device_arc_go"
	"github.com/linjuya-lu/device_arc_go/internal/driver"
)

const (
	serviceName string = "device-arc-bridge"
)

func main() {
	d := driver.NewArcDeviceDriver()
	startup.Bootstrap(serviceName, device_arc.Version, d)
}
