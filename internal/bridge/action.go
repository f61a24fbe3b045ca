package bridge

import (
	"fmt"
	"strconv"
	"strings"
)

// ActionKind 控制命令种类
type ActionKind int

const (
	ActionOpen ActionKind = iota + 1
	ActionClose
	ActionStop
	ActionSetPosition
)

// Action 一次控制命令，Position 仅对 ActionSetPosition 有效
type Action struct {
	Kind     ActionKind
	Position int
}

func Open() Action { return Action{Kind: ActionOpen} }

func Close() Action { return Action{Kind: ActionClose} }

func Stop() Action { return Action{Kind: ActionStop} }

func SetPosition(p int) Action { return Action{Kind: ActionSetPosition, Position: p} }

func (a Action) String() string {
	switch a.Kind {
	case ActionOpen:
		return "open"
	case ActionClose:
		return "close"
	case ActionStop:
		return "stop"
	case ActionSetPosition:
		return fmt.Sprintf("set-position(%d)", a.Position)
	default:
		return fmt.Sprintf("action(%d)", int(a.Kind))
	}
}

// ParseAction 解析 "open"/"close"/"stop" 或 0~100 的数字
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "open":
		return Open(), nil
	case "close":
		return Close(), nil
	case "stop":
		return Stop(), nil
	}
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return Action{}, fmt.Errorf("bridge: unknown action %q", s)
	}
	if p < 0 || p > 100 {
		return Action{}, fmt.Errorf("bridge: position %d out of range 0-100", p)
	}
	return SetPosition(p), nil
}

// toWire 反转标志在边界处统一换算，来回两个方向共用
func toWire(p int, invert bool) int {
	p = clampPosition(p)
	if invert {
		return 100 - p
	}
	return p
}

func fromWire(p int, invert bool) int {
	return toWire(p, invert)
}

func clampPosition(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
