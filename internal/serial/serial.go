// internal/serial/serial.go

package serial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/clients/logger"

	"github.com/linjuya-lu/device_arc_go/internal/config"
)

// Port 是整个 serial 包对外暴露的通用串口接口
type Port interface {
	Open() error
	Close() error
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Name() string
}

// 串口类型
const (
	TypeUART  = "uart"
	TypeRS232 = "rs232"
	TypeRS485 = "rs485"
)

// NewPort 根据配置创建对应的串口实现（UART / RS-232 / RS-485），不打开端口
func NewPort(cfg config.Port) (Port, error) {
	if cfg.Device == "" {
		return nil, errors.New("serial: device path required")
	}
	if cfg.Baudrate <= 0 {
		return nil, fmt.Errorf("serial: invalid baudrate %d", cfg.Baudrate)
	}
	switch cfg.Type {
	case TypeUART, TypeRS232, "":
		// RS-232 对主机来说与普通 UART 相同，只是电平不同
		return NewUARTPort(cfg), nil
	case TypeRS485:
		return NewRS485Port(cfg), nil
	default:
		return nil, fmt.Errorf("unknown port type %s", cfg.Type)
	}
}

const readBufSize = 256

// StartReadLoop 在后台协程里不断读串口，把每次读到的字节拷贝后送进 out。
// ctx 取消后退出并关闭 out。读超时（0 字节）直接忽略。
func StartReadLoop(ctx context.Context, p io.Reader, out chan<- []byte, lc logger.LoggingClient) {
	go func() {
		defer close(out)
		buf := make([]byte, readBufSize)
		for {
			if ctx.Err() != nil {
				return
			}
			n, err := p.Read(buf)
			if n > 0 {
				chunk := append([]byte(nil), buf[:n]...)
				select {
				case out <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if err != nil && !errors.Is(err, io.EOF) {
				lc.Errorf("serial read failed: %v", err)
				// 读取出错，稍后重试
				select {
				case <-time.After(100 * time.Millisecond):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
}
