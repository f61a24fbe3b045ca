package arc

import "errors"

var (
	ErrIncomplete       = errors.New("arc: incomplete frame")
	ErrChecksumMismatch = errors.New("arc: checksum mismatch")
	ErrMalformed        = errors.New("arc: malformed frame")

	// ErrBroadcastAddress 广播地址不能作为卷帘 ID
	ErrBroadcastAddress = errors.New("arc: broadcast address is not a blind id")
)

// FramingError 携带具体原因，errors.Is 可匹配上面三个哨兵错误
type FramingError struct {
	Kind   error
	Detail string
}

func newFramingError(kind error, detail string) *FramingError {
	return &FramingError{Kind: kind, Detail: detail}
}

func (e *FramingError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Detail
}

func (e *FramingError) Unwrap() error { return e.Kind }
