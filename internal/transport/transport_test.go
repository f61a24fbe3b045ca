package transport

import (
	"bytes"
	"errors"
	"testing"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/clients/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linjuya-lu/device_arc_go/internal/arc"
)

func mustEncode(t *testing.T, cmd arc.Command, id string, payload []byte) []byte {
	t.Helper()
	raw, err := arc.Encode(cmd, id, payload)
	require.NoError(t, err)
	return raw
}

// stream 拼一段带杂散数据、坏校验和假帧头的字节流
func stream(t *testing.T) []byte {
	var s []byte
	s = append(s, 0x00, 0x13, 0x7F)
	s = append(s, mustEncode(t, arc.RspStatus, "B1", arc.StatusReport{Position: 40, RSSI: 0x20}.Bytes())...)

	bad := mustEncode(t, arc.RspStatus, "B2", arc.StatusReport{Position: 10}.Bytes())
	bad[len(bad)-1] ^= 0xFF
	s = append(s, bad...)

	// 假帧头，声明长度 30，后面的真帧要等它校验失败后才能被找到
	s = append(s, arc.StartMarker, 'Z', 'Z', 0, 0, 'V', 30)
	s = append(s, mustEncode(t, arc.RspVersion, "B2", []byte("A21"))...)
	s = append(s, mustEncode(t, arc.RspError, "B3", []byte{arc.ErrCodeNoLink})...)
	s = append(s, make([]byte, 20)...)
	s = append(s, mustEncode(t, arc.CmdStop, "B1", nil)...)
	return s
}

func TestPollFramesChunkIndependent(t *testing.T) {
	data := stream(t)

	whole := New(&bytes.Buffer{}, logger.NewMockClient())
	require.NoError(t, whole.Feed(data))
	all := whole.PollFrames()

	single := New(&bytes.Buffer{}, logger.NewMockClient())
	var byByte []arc.Frame
	for _, b := range data {
		require.NoError(t, single.Feed([]byte{b}))
		byByte = append(byByte, single.PollFrames()...)
	}

	chunked := New(&bytes.Buffer{}, logger.NewMockClient())
	var byChunk []arc.Frame
	for i := 0; i < len(data); i += 5 {
		end := i + 5
		if end > len(data) {
			end = len(data)
		}
		require.NoError(t, chunked.Feed(data[i:end]))
		byChunk = append(byChunk, chunked.PollFrames()...)
	}

	require.Len(t, all, 4)
	assert.Equal(t, all, byByte)
	assert.Equal(t, all, byChunk)

	assert.Equal(t, "B1", all[0].Address)
	assert.Equal(t, arc.RspStatus, all[0].Command)
	assert.Equal(t, arc.RspVersion, all[1].Command)
	assert.Equal(t, []byte("A21"), all[1].Payload)
	assert.Equal(t, arc.RspError, all[2].Command)
	assert.Equal(t, arc.CmdStop, all[3].Command)

	assert.Zero(t, whole.Buffered())
	assert.GreaterOrEqual(t, whole.Stats().ChecksumErrors, uint64(2))
}

// 超过缓存上限的一大块有效帧不能被当成溢出丢掉
func TestFeedLongStreamOfValidFrames(t *testing.T) {
	var data []byte
	for len(data) <= MaxBuffer {
		data = append(data, mustEncode(t, arc.CmdOpen, "B1", nil)...)
	}
	count := len(data) / len(mustEncode(t, arc.CmdOpen, "B1", nil))

	whole := New(&bytes.Buffer{}, logger.NewMockClient())
	require.NoError(t, whole.Feed(data))
	all := whole.PollFrames()
	require.Len(t, all, count)
	assert.Zero(t, whole.Stats().Overflows)
	assert.Empty(t, whole.PollFrames())

	single := New(&bytes.Buffer{}, logger.NewMockClient())
	var byByte []arc.Frame
	for _, b := range data {
		require.NoError(t, single.Feed([]byte{b}))
		byByte = append(byByte, single.PollFrames()...)
	}
	assert.Equal(t, all, byByte)
}

func TestFeedOverflowCountsBytesSinceLastFrame(t *testing.T) {
	tr := New(&bytes.Buffer{}, logger.NewMockClient())
	chunk := append(mustEncode(t, arc.CmdOpen, "B1", nil), bytes.Repeat([]byte{0x55}, 200)...)
	require.NoError(t, tr.Feed(chunk))

	err := tr.Feed(bytes.Repeat([]byte{0x55}, 100))
	assert.True(t, errors.Is(err, ErrBufferOverflow))
	assert.Equal(t, uint64(1), tr.Stats().Overflows)

	// 溢出前解出的帧保留
	assert.Len(t, tr.PollFrames(), 1)
}

func TestPollFramesKeepsIncompleteTail(t *testing.T) {
	raw := mustEncode(t, arc.RspStatus, "B1", arc.StatusReport{Position: 5}.Bytes())
	tr := New(&bytes.Buffer{}, logger.NewMockClient())

	require.NoError(t, tr.Feed(raw[:6]))
	assert.Empty(t, tr.PollFrames())
	assert.Equal(t, 6, tr.Buffered())

	require.NoError(t, tr.Feed(raw[6:]))
	frames := tr.PollFrames()
	require.Len(t, frames, 1)
	assert.Equal(t, "B1", frames[0].Address)
}

func TestFeedOverflow(t *testing.T) {
	tr := New(&bytes.Buffer{}, logger.NewMockClient())
	garbage := bytes.Repeat([]byte{0x55}, MaxBuffer)
	require.NoError(t, tr.Feed(garbage))

	err := tr.Feed([]byte{0x55})
	assert.True(t, errors.Is(err, ErrBufferOverflow))
	assert.Zero(t, tr.Buffered())
	assert.Equal(t, uint64(1), tr.Stats().Overflows)

	// 溢出后链路仍然可用
	require.NoError(t, tr.Feed(mustEncode(t, arc.CmdOpen, "B1", nil)))
	assert.Len(t, tr.PollFrames(), 1)
}

func TestSendWritesEncodedFrame(t *testing.T) {
	var out bytes.Buffer
	tr := New(&out, logger.NewMockClient())

	var traced [][]byte
	tr.SetTrace(func(dir Direction, raw []byte) {
		assert.Equal(t, DirTx, dir)
		traced = append(traced, raw)
	})

	require.NoError(t, tr.Send(arc.Frame{Address: "B1", Command: arc.CmdMove, Payload: []byte{70}}))
	want := mustEncode(t, arc.CmdMove, "B1", []byte{70})
	assert.Equal(t, want, out.Bytes())
	assert.Equal(t, [][]byte{want}, traced)
	assert.Equal(t, uint64(1), tr.Stats().FramesOut)

	assert.Error(t, tr.Send(arc.Frame{Address: "", Command: arc.CmdOpen}))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("port closed") }

func TestSendWriteError(t *testing.T) {
	tr := New(failingWriter{}, logger.NewMockClient())
	err := tr.Send(arc.Frame{Address: "B1", Command: arc.CmdOpen})
	assert.ErrorContains(t, err, "port closed")
}
