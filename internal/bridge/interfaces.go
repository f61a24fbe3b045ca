package bridge

import "time"

// Pollable 由外部定时器驱动
type Pollable interface {
	Tick(now time.Time)
}

// Commandable 接受控制命令
type Commandable interface {
	Command(blindID string, a Action) error
}

// FrameSink 接收串口收到的原始字节
type FrameSink interface {
	OnBytesReceived(p []byte)
}

var (
	_ Pollable    = (*Bridge)(nil)
	_ Commandable = (*Bridge)(nil)
	_ FrameSink   = (*Bridge)(nil)
	_ Commandable = (*Runner)(nil)
)
