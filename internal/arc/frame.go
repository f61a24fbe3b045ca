// Package arc 实现 ARC 卷帘电机串口链路的帧编解码。
//
// 帧格式：
//
//	[START 0x21][ADDR 4B][CMD 1B][LEN 1B][PAYLOAD LEN B][CHECKSUM 1B]
//
// ADDR 为 1~4 个可见 ASCII 字符，不足 4 字节右侧补 0x00；
// CHECKSUM 为 ADDR、CMD、LEN、PAYLOAD 逐字节累加和（取低 8 位）。
package arc

import (
	"bytes"
	"fmt"
)

const (
	StartMarker byte = 0x21 // '!'
	AddrLen          = 4
	MaxPayload       = 32

	headerLen   = 1 + AddrLen + 1 + 1
	MaxFrameLen = headerLen + MaxPayload + 1
	MinFrameLen = headerLen + 1

	// BroadcastAddress 所有电机都会应答的广播地址（仅用于版本查询）
	BroadcastAddress = "000"
)

// Command 帧类型（命令或应答）
type Command byte

// 下行命令
const (
	CmdOpen         Command = 'o'
	CmdClose        Command = 'c'
	CmdStop         Command = 's'
	CmdMove         Command = 'm' // payload: 1 字节目标位置 0~100
	CmdStatusQuery  Command = 'r'
	CmdVersionQuery Command = 'v'
)

// 上行应答
const (
	RspStatus  Command = 'R' // payload: 位置, 运动状态, RSSI
	RspVersion Command = 'V' // payload: ASCII 版本号
	RspError   Command = 'E' // payload: 'p' 未配对 / 'l' 无链路
)

var commandNames = map[Command]string{
	CmdOpen:         "open",
	CmdClose:        "close",
	CmdStop:         "stop",
	CmdMove:         "move",
	CmdStatusQuery:  "status-query",
	CmdVersionQuery: "version-query",
	RspStatus:       "status",
	RspVersion:      "version",
	RspError:        "error",
}

// Valid 判断是否为协议定义的命令字
func (c Command) Valid() bool {
	_, ok := commandNames[c]
	return ok
}

func (c Command) String() string {
	if n, ok := commandNames[c]; ok {
		return n
	}
	return fmt.Sprintf("cmd(0x%02X)", byte(c))
}

// Frame 一帧已解码的报文
type Frame struct {
	Address  string
	Command  Command
	Payload  []byte
	Checksum byte
}

func (f Frame) String() string {
	return fmt.Sprintf("%s %s % X", f.Address, f.Command, f.Payload)
}

// ValidateAddress 检查地址是否可以放进 ADDR 字段
func ValidateAddress(id string) error {
	if len(id) == 0 || len(id) > AddrLen {
		return fmt.Errorf("arc: address %q must be 1-%d characters", id, AddrLen)
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7E {
			return fmt.Errorf("arc: address %q contains non-printable byte 0x%02X", id, id[i])
		}
	}
	return nil
}

// ValidateBlindID 在 ValidateAddress 的基础上拒绝广播地址
func ValidateBlindID(id string) error {
	if err := ValidateAddress(id); err != nil {
		return err
	}
	if id == BroadcastAddress {
		return fmt.Errorf("%w: %q", ErrBroadcastAddress, id)
	}
	return nil
}

// Encode 组一帧完整报文
func Encode(cmd Command, blindID string, payload []byte) ([]byte, error) {
	if !cmd.Valid() {
		return nil, fmt.Errorf("arc: unknown command 0x%02X", byte(cmd))
	}
	if err := ValidateAddress(blindID); err != nil {
		return nil, err
	}
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("arc: payload %d bytes exceeds %d", len(payload), MaxPayload)
	}

	buf := make([]byte, headerLen+len(payload)+1)
	buf[0] = StartMarker
	copy(buf[1:1+AddrLen], blindID)
	buf[1+AddrLen] = byte(cmd)
	buf[2+AddrLen] = byte(len(payload))
	copy(buf[headerLen:], payload)
	buf[len(buf)-1] = checksum(buf[1 : len(buf)-1])
	return buf, nil
}

// Decode 从 buf 起始处解一帧，返回帧和消耗的字节数。
//   - ErrIncomplete：数据不足，consumed 为 0，等待更多数据
//   - ErrChecksumMismatch：consumed 为 1，调用方从下一个字节重新找帧头
//   - ErrMalformed：帧头非法时 consumed 为 1；校验通过但内容非法时丢弃整帧
func Decode(buf []byte) (Frame, int, error) {
	if len(buf) == 0 {
		return Frame{}, 0, newFramingError(ErrIncomplete, "empty buffer")
	}
	if buf[0] != StartMarker {
		return Frame{}, 1, newFramingError(ErrMalformed, fmt.Sprintf("start byte 0x%02X", buf[0]))
	}
	if len(buf) < headerLen {
		return Frame{}, 0, newFramingError(ErrIncomplete, fmt.Sprintf("%d/%d header bytes", len(buf), headerLen))
	}

	addr, ok := decodeAddress(buf[1 : 1+AddrLen])
	if !ok {
		return Frame{}, 1, newFramingError(ErrMalformed, fmt.Sprintf("address % X", buf[1:1+AddrLen]))
	}
	n := int(buf[2+AddrLen])
	if n > MaxPayload {
		return Frame{}, 1, newFramingError(ErrMalformed, fmt.Sprintf("length %d exceeds %d", n, MaxPayload))
	}
	total := headerLen + n + 1
	if len(buf) < total {
		return Frame{}, 0, newFramingError(ErrIncomplete, fmt.Sprintf("%d/%d frame bytes", len(buf), total))
	}

	sum := checksum(buf[1 : total-1])
	if sum != buf[total-1] {
		return Frame{}, 1, newFramingError(ErrChecksumMismatch, fmt.Sprintf("got 0x%02X want 0x%02X", buf[total-1], sum))
	}

	cmd := Command(buf[1+AddrLen])
	if !cmd.Valid() {
		return Frame{}, total, newFramingError(ErrMalformed, fmt.Sprintf("unknown command 0x%02X", byte(cmd)))
	}

	f := Frame{
		Address:  addr,
		Command:  cmd,
		Payload:  append([]byte(nil), buf[headerLen:total-1]...),
		Checksum: sum,
	}
	if err := validatePayload(f); err != nil {
		return Frame{}, total, newFramingError(ErrMalformed, err.Error())
	}
	return f, total, nil
}

// checksum 逐字节累加，取低 8 位
func checksum(b []byte) byte {
	var s byte
	for _, c := range b {
		s += c
	}
	return s
}

// decodeAddress 去掉右侧 0x00 填充，补齐部分之前不允许出现 0x00
func decodeAddress(raw []byte) (string, bool) {
	trimmed := bytes.TrimRight(raw, "\x00")
	if len(trimmed) == 0 {
		return "", false
	}
	for _, c := range trimmed {
		if c < 0x21 || c > 0x7E {
			return "", false
		}
	}
	return string(trimmed), true
}

func validatePayload(f Frame) error {
	switch f.Command {
	case CmdOpen, CmdClose, CmdStop, CmdStatusQuery, CmdVersionQuery:
		if len(f.Payload) != 0 {
			return fmt.Errorf("%s carries %d payload bytes", f.Command, len(f.Payload))
		}
	case CmdMove:
		if len(f.Payload) != 1 || f.Payload[0] > 100 {
			return fmt.Errorf("move payload % X", f.Payload)
		}
	case RspStatus:
		if len(f.Payload) != statusReportLen {
			return fmt.Errorf("status payload %d bytes", len(f.Payload))
		}
		if p := f.Payload[0]; p > 100 && p != PositionUnknown {
			return fmt.Errorf("status position %d", p)
		}
	case RspError:
		if len(f.Payload) != 1 {
			return fmt.Errorf("error payload %d bytes", len(f.Payload))
		}
	}
	return nil
}
