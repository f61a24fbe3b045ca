package serial

import (
	"errors"
	"fmt"
	"time"

	"github.com/tarm/serial"

	"github.com/linjuya-lu/device_arc_go/internal/config"
)

var errNotOpen = errors.New("serial: port not open")

// UARTPort 全双工串口（UART / RS-232），直接使用 tarm/serial
type UARTPort struct {
	cfg    config.Port
	handle *serial.Port
}

func NewUARTPort(cfg config.Port) Port {
	return &UARTPort{cfg: cfg}
}

// tarmConfig ARC 链路固定 8N1
func tarmConfig(cfg config.Port) *serial.Config {
	return &serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baudrate,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: time.Duration(cfg.TimeoutMs) * time.Millisecond,
	}
}

func (u *UARTPort) Open() error {
	p, err := serial.OpenPort(tarmConfig(u.cfg))
	if err != nil {
		return fmt.Errorf("open %s %s failed: %w", u.cfg.Type, u.cfg.Device, err)
	}
	u.handle = p
	return nil
}

func (u *UARTPort) Close() error {
	if u.handle == nil {
		return nil
	}
	err := u.handle.Close()
	u.handle = nil
	return err
}

func (u *UARTPort) Read(p []byte) (int, error) {
	if u.handle == nil {
		return 0, errNotOpen
	}
	return u.handle.Read(p)
}

func (u *UARTPort) Write(p []byte) (int, error) {
	if u.handle == nil {
		return 0, errNotOpen
	}
	n, err := u.handle.Write(p)
	if err != nil {
		return n, fmt.Errorf("UART write failed: %w", err)
	}
	return n, nil
}

// Name 返回逻辑名称
func (u *UARTPort) Name() string {
	return u.cfg.Name
}
