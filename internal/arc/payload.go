package arc

import "fmt"

// PositionUnknown 状态应答里表示电机尚未标定位置
const PositionUnknown byte = 0xFF

const statusReportLen = 3

// 状态应答中的运动状态字节
const (
	MotionIdle    byte = 0
	MotionOpening byte = 1
	MotionClosing byte = 2
	MotionStopped byte = 3
)

// 错误应答代码
const (
	ErrCodeNotPaired byte = 'p' // Enp
	ErrCodeNoLink    byte = 'l' // Enl
)

// StatusReport 是 RspStatus 的负载，Position 为 -1 表示未知
type StatusReport struct {
	Position int
	Motion   byte
	RSSI     byte
}

// Bytes 编码为 RspStatus 负载
func (s StatusReport) Bytes() []byte {
	pos := PositionUnknown
	if s.Position >= 0 && s.Position <= 100 {
		pos = byte(s.Position)
	}
	return []byte{pos, s.Motion, s.RSSI}
}

// ParseStatusReport 解析 RspStatus 负载
func ParseStatusReport(p []byte) (StatusReport, error) {
	if len(p) != statusReportLen {
		return StatusReport{}, fmt.Errorf("arc: status payload %d bytes", len(p))
	}
	r := StatusReport{Position: int(p[0]), Motion: p[1], RSSI: p[2]}
	if p[0] == PositionUnknown {
		r.Position = -1
	} else if p[0] > 100 {
		return StatusReport{}, fmt.Errorf("arc: status position %d out of range", p[0])
	}
	return r, nil
}

// MovePayload 目标位置负载，超出范围截断到 0~100
func MovePayload(pos int) []byte {
	if pos < 0 {
		pos = 0
	}
	if pos > 100 {
		pos = 100
	}
	return []byte{byte(pos)}
}

// LinkQuality 把 hub 上报的原始 R 值（越小越好）换算成 0~100%
func LinkQuality(rssi byte) int {
	return (255 - int(rssi)) * 100 / 255
}

// ErrorReport 编码 RspError 负载
func ErrorReport(code byte) []byte {
	return []byte{code}
}
