package serial

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const sysfsGPIO = "/sys/class/gpio"

// exportSettle 导出后等待内核创建 gpioN 目录
const exportSettle = 100 * time.Millisecond

// sysfsLine 通过 sysfs 控制的 GPIO 输出
type sysfsLine struct {
	root string
	pin  int
	f    *os.File
}

// openSysfsGPIO 导出引脚、设为输出并打开 value 文件
func openSysfsGPIO(root string, pin int, settle time.Duration) (*sysfsLine, error) {
	l := &sysfsLine{root: root, pin: pin}
	if err := l.export(); err != nil {
		return nil, err
	}
	time.Sleep(settle)
	if err := l.write("direction", "out"); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(l.path("value"), os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("gpio%d: open value: %w", pin, err)
	}
	l.f = f
	return l, nil
}

func (l *sysfsLine) path(attr string) string {
	return filepath.Join(l.root, "gpio"+strconv.Itoa(l.pin), attr)
}

// export 已导出的引脚写 export 会报 EBUSY，忽略
func (l *sysfsLine) export() error {
	f, err := os.OpenFile(filepath.Join(l.root, "export"), os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("gpio%d: export: %w", l.pin, err)
	}
	defer f.Close()
	_, _ = f.WriteString(strconv.Itoa(l.pin))
	return nil
}

func (l *sysfsLine) write(attr, v string) error {
	if err := os.WriteFile(l.path(attr), []byte(v), 0); err != nil {
		return fmt.Errorf("gpio%d: set %s=%s: %w", l.pin, attr, v, err)
	}
	return nil
}

func (l *sysfsLine) Set(high bool) error {
	v := "0"
	if high {
		v = "1"
	}
	if _, err := l.f.WriteString(v); err != nil {
		return fmt.Errorf("gpio%d: write value: %w", l.pin, err)
	}
	return nil
}

func (l *sysfsLine) Close() error {
	return l.f.Close()
}
