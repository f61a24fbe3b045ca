// Package transport 负责串口字节流的缓存、组帧与发送。
// Transport 不是并发安全的，只能由 bridge 的单一执行上下文使用。
package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/clients/logger"
	"github.com/linjuya-lu/device_arc_go/internal/arc"
)

// MaxBuffer 接收缓存上限，超过后清空
const MaxBuffer = 256

var ErrBufferOverflow = errors.New("transport: receive buffer overflow")

// Direction 标记 trace 回调中的收发方向
type Direction string

const (
	DirRx Direction = "rx"
	DirTx Direction = "tx"
)

// Stats 链路计数
type Stats struct {
	FramesIn       uint64
	FramesOut      uint64
	ChecksumErrors uint64
	Malformed      uint64
	Overflows      uint64
}

type Transport struct {
	lc    logger.LoggingClient
	w     io.Writer
	store []byte
	buf   []byte
	max   int
	stats Stats

	// ready 已解出、等待 PollFrames 取走的帧
	ready []arc.Frame
	// stale 最近一个有效帧之后收到的字节数
	stale int
	trace func(dir Direction, raw []byte)
}

// New 构造 Transport，w 一般是已打开的 serial.Port
func New(w io.Writer, lc logger.LoggingClient) *Transport {
	store := make([]byte, 0, MaxBuffer)
	return &Transport{
		lc:    lc,
		w:     w,
		store: store,
		buf:   store,
		max:   MaxBuffer,
	}
}

// SetTrace 注册原始帧回调（收发各一次）
func (t *Transport) SetTrace(fn func(dir Direction, raw []byte)) {
	t.trace = fn
}

// Buffered 当前缓存的字节数
func (t *Transport) Buffered() int {
	return len(t.buf)
}

func (t *Transport) Stats() Stats {
	return t.stats
}

// Feed 追加新收到的字节并立即解出其中的完整帧。
// 连续超过上限字节没有有效帧时清空缓存并返回 ErrBufferOverflow。
func (t *Transport) Feed(p []byte) error {
	t.buf = append(t.buf, p...)
	t.stale += len(p)
	t.drain()
	if t.stale > t.max || len(t.buf) > cap(t.store) {
		t.lc.Warnf("transport: %d bytes without a valid frame, dropping %d buffered bytes", t.stale, len(t.buf))
		t.buf = t.store[:0]
		t.stale = 0
		t.stats.Overflows++
		return ErrBufferOverflow
	}
	t.compact()
	return nil
}

// PollFrames 取走 Feed 已解出的所有帧
func (t *Transport) PollFrames() []arc.Frame {
	frames := t.ready
	t.ready = nil
	return frames
}

// drain 解出缓存中所有完整帧，
// 丢弃帧头前的杂散数据，校验失败时从下一个字节重新找帧头，未完整的帧留待下次。
func (t *Transport) drain() {
	for len(t.buf) > 0 {
		i := bytes.IndexByte(t.buf, arc.StartMarker)
		if i < 0 {
			t.buf = t.buf[:0]
			return
		}
		t.buf = t.buf[i:]

		f, n, err := arc.Decode(t.buf)
		switch {
		case err == nil:
			if t.trace != nil {
				t.trace(DirRx, append([]byte(nil), t.buf[:n]...))
			}
			t.ready = append(t.ready, f)
			t.stats.FramesIn++
			t.stale = len(t.buf) - n
		case errors.Is(err, arc.ErrIncomplete):
			return
		case errors.Is(err, arc.ErrChecksumMismatch):
			t.stats.ChecksumErrors++
			t.lc.Debugf("transport: %v, resyncing", err)
		default:
			t.stats.Malformed++
			t.lc.Debugf("transport: discard %d bytes: %v", n, err)
		}
		t.buf = t.buf[n:]
	}
}

// compact 把剩余数据挪回缓存起始处，避免底层数组无限后移
func (t *Transport) compact() {
	t.buf = t.store[:copy(t.store[:cap(t.store)], t.buf)]
}

// Send 编码并写入一帧
func (t *Transport) Send(f arc.Frame) error {
	raw, err := arc.Encode(f.Command, f.Address, f.Payload)
	if err != nil {
		return err
	}
	if _, err := t.w.Write(raw); err != nil {
		return fmt.Errorf("transport: write %s: %w", f, err)
	}
	t.stats.FramesOut++
	if t.trace != nil {
		t.trace(DirTx, raw)
	}
	t.lc.Debugf("TX -> %s", f)
	return nil
}
