package serial

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"

	"github.com/linjuya-lu/device_arc_go/internal/config"
)

// deSettle DE 拉高后等待收发器切换
const deSettle = 2 * time.Millisecond

// deLine RS-485 收发方向控制线
type deLine interface {
	Set(high bool) error
	Close() error
}

// RS485Port 半双工串口：Write 时拉高 DE，发完后切回接收
type RS485Port struct {
	cfg  config.Port
	rw   io.ReadWriteCloser
	de   deLine
	wait func(time.Duration)
}

// 构造 RS485Port 实例
func NewRS485Port(cfg config.Port) Port {
	return &RS485Port{cfg: cfg, wait: time.Sleep}
}

// Open 导出 GPIO 并打开串口
func (r *RS485Port) Open() error {
	de, err := openSysfsGPIO(sysfsGPIO, r.cfg.DEPin, exportSettle)
	if err != nil {
		return fmt.Errorf("GPIO %d: %w", r.cfg.DEPin, err)
	}
	// 默认低电平 (接收)
	if err := de.Set(false); err != nil {
		de.Close()
		return fmt.Errorf("init GPIO %d low: %w", r.cfg.DEPin, err)
	}

	p, err := serial.OpenPort(tarmConfig(r.cfg))
	if err != nil {
		de.Close()
		return fmt.Errorf("open rs485 %s failed: %w", r.cfg.Device, err)
	}
	r.rw, r.de = p, de
	return nil
}

// Close 关闭串口和 GPIO
func (r *RS485Port) Close() error {
	var firstErr error
	if r.rw != nil {
		firstErr = r.rw.Close()
		r.rw = nil
	}
	if r.de != nil {
		if err := r.de.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.de = nil
	}
	return firstErr
}

func (r *RS485Port) Read(p []byte) (int, error) {
	if r.rw == nil {
		return 0, errNotOpen
	}
	return r.rw.Read(p)
}

// Write 切到发送 → 写整帧 → 等比特发完 → 切回接收
func (r *RS485Port) Write(p []byte) (int, error) {
	if r.rw == nil {
		return 0, errNotOpen
	}
	if err := r.de.Set(true); err != nil {
		return 0, fmt.Errorf("GPIO DE high failed: %w", err)
	}
	r.wait(deSettle)

	n, err := r.rw.Write(p)
	if err != nil {
		// 出错切回接收
		_ = r.de.Set(false)
		return n, fmt.Errorf("serial write failed: %w", err)
	}
	r.wait(txDuration(n, r.cfg.Baudrate))

	if err := r.de.Set(false); err != nil {
		return n, fmt.Errorf("GPIO DE low failed: %w", err)
	}
	return n, nil
}

// Name 返回端口名称
func (r *RS485Port) Name() string {
	return r.cfg.Name
}

// txDuration 8N1 每字节 10 bit
func txDuration(n, baud int) time.Duration {
	if baud <= 0 {
		return 0
	}
	return time.Duration(n*10) * time.Second / time.Duration(baud)
}
