// Package registry 保存桥下所有卷帘的状态记录，是卷帘状态的唯一来源。
package registry

import (
	goerrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/errors"
)

var (
	ErrDuplicateID = goerrors.New("blind id already registered")
	ErrNotFound    = goerrors.New("blind not found")
)

// MotionState 卷帘运动状态
type MotionState int

const (
	MotionUnknown MotionState = iota
	MotionIdle
	MotionOpening
	MotionClosing
	MotionStopped
)

func (m MotionState) String() string {
	switch m {
	case MotionIdle:
		return "idle"
	case MotionOpening:
		return "opening"
	case MotionClosing:
		return "closing"
	case MotionStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// BlindRecord 一个卷帘的当前状态，Position 为 -1 表示未知
type BlindRecord struct {
	ID             string
	Name           string
	InvertPosition bool

	Position    int
	Motion      MotionState
	LinkQuality int
	LastSeen    time.Time
	Status      string
	Version     string
	// LastEvent 最近一次异步事件，如 poll_timeout
	LastEvent string
}

// Registry 内存表：卷帘 ID → BlindRecord，保持注册顺序
type Registry struct {
	mu      sync.RWMutex
	records map[string]*BlindRecord
	order   []string
}

func New() *Registry {
	return &Registry{records: make(map[string]*BlindRecord)}
}

// Register 新增一个卷帘，ID 重复时返回 ErrDuplicateID
func (r *Registry) Register(id, name string, invert bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; ok {
		return errors.NewCommonEdgeX(errors.KindDuplicateName, fmt.Sprintf("blind %q", id), ErrDuplicateID)
	}
	if name == "" {
		name = id
	}
	r.records[id] = &BlindRecord{
		ID:             id,
		Name:           name,
		InvertPosition: invert,
		Position:       -1,
		Motion:         MotionUnknown,
		Status:         MotionUnknown.String(),
	}
	r.order = append(r.order, id)
	return nil
}

// Remove 删除卷帘记录
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return notFound(id)
	}
	delete(r.records, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Lookup 返回记录副本
func (r *Registry) Lookup(id string) (BlindRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return BlindRecord{}, notFound(id)
	}
	return *rec, nil
}

// Update 在写锁内执行 mutate，返回修改前后的副本
func (r *Registry) Update(id string, mutate func(*BlindRecord)) (before, after BlindRecord, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return BlindRecord{}, BlindRecord{}, notFound(id)
	}
	before = *rec
	mutate(rec)
	// ID 不允许被修改
	rec.ID = id
	return before, *rec, nil
}

// ForEach 按注册顺序遍历所有记录副本
func (r *Registry) ForEach(fn func(BlindRecord)) {
	for _, rec := range r.Snapshot() {
		fn(rec)
	}
}

// Snapshot 按注册顺序返回所有记录副本
func (r *Registry) Snapshot() []BlindRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]BlindRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.records[id])
	}
	return out
}

// IDs 按注册顺序返回所有 ID
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func notFound(id string) error {
	return errors.NewCommonEdgeX(errors.KindEntityDoesNotExist, fmt.Sprintf("blind %q", id), ErrNotFound)
}
