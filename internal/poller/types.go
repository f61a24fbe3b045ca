package poller

import "time"

const (
	DefaultInterval   = 10 * time.Second
	DefaultTimeout    = 2 * time.Second
	DefaultMaxRetries = 3
)

// Config 调度器运行参数
type Config struct {
	AutoPoll   bool
	Interval   time.Duration
	Timeout    time.Duration
	MaxRetries int

	// HalfDuplex 整条链路同时只允许一个未完成请求，否则按卷帘计
	HalfDuplex bool
}

// State 单个卷帘在调度器中的状态
type State int

const (
	StateIdle State = iota
	StateAwaitingResponse
)

func (s State) String() string {
	if s == StateAwaitingResponse {
		return "awaiting-response"
	}
	return "idle"
}

// Request 一次未完成的状态查询
type Request struct {
	BlindID  string
	IssuedAt time.Time
	Retries  int
}

// Sender 把状态查询发到线上
type Sender interface {
	SendStatusQuery(blindID string) error
}

// SenderFunc 让普通函数实现 Sender
type SenderFunc func(blindID string) error

func (f SenderFunc) SendStatusQuery(blindID string) error { return f(blindID) }
