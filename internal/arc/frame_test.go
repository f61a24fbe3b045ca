package arc

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeLayout(t *testing.T) {
	raw, err := Encode(CmdMove, "B1", []byte{40})
	require.NoError(t, err)

	want := []byte{StartMarker, 'B', '1', 0x00, 0x00, 'm', 0x01, 40}
	want = append(want, byte(('B'+'1'+'m'+0x01+40)%256))
	assert.Equal(t, want, raw)
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ids := []string{"B1", "B2", "ABC", "WXYZ", "000", "x"}

	payloadFor := func(cmd Command) []byte {
		switch cmd {
		case CmdMove:
			return MovePayload(rng.Intn(101))
		case RspStatus:
			pos := rng.Intn(102) - 1
			return StatusReport{Position: pos, Motion: byte(rng.Intn(4)), RSSI: byte(rng.Intn(256))}.Bytes()
		case RspVersion:
			p := make([]byte, rng.Intn(MaxPayload+1))
			rng.Read(p)
			return p
		case RspError:
			return []byte{ErrCodeNotPaired}
		}
		return nil
	}

	for cmd := range commandNames {
		for _, id := range ids {
			payload := payloadFor(cmd)
			raw, err := Encode(cmd, id, payload)
			require.NoError(t, err)

			f, n, err := Decode(raw)
			require.NoError(t, err, "cmd=%s id=%s", cmd, id)
			assert.Equal(t, len(raw), n)
			assert.Equal(t, id, f.Address)
			assert.Equal(t, cmd, f.Command)
			if len(payload) == 0 {
				assert.Empty(t, f.Payload)
			} else {
				assert.Equal(t, payload, f.Payload)
			}
		}
	}
}

func TestEncodeRejectsBadInput(t *testing.T) {
	_, err := Encode(CmdOpen, "", nil)
	assert.Error(t, err)

	_, err = Encode(CmdOpen, "TOOLONG", nil)
	assert.Error(t, err)

	_, err = Encode(CmdOpen, "a b", nil)
	assert.Error(t, err)

	_, err = Encode(Command('z'), "B1", nil)
	assert.Error(t, err)

	_, err = Encode(RspVersion, "B1", make([]byte, MaxPayload+1))
	assert.Error(t, err)
}

func TestValidateBlindID(t *testing.T) {
	assert.NoError(t, ValidateBlindID("B1"))
	assert.NoError(t, ValidateBlindID("0001"))
	assert.True(t, errors.Is(ValidateBlindID(BroadcastAddress), ErrBroadcastAddress))
	assert.Error(t, ValidateBlindID(""))

	// 广播地址本身可以编码发送
	_, err := Encode(CmdVersionQuery, BroadcastAddress, nil)
	assert.NoError(t, err)
}

func TestDecodeIncomplete(t *testing.T) {
	raw, err := Encode(RspStatus, "B1", StatusReport{Position: 40, RSSI: 0x10}.Bytes())
	require.NoError(t, err)

	for i := 0; i < len(raw); i++ {
		_, n, err := Decode(raw[:i])
		assert.True(t, errors.Is(err, ErrIncomplete), "prefix %d: %v", i, err)
		assert.Zero(t, n)
	}
}

func TestDecodeChecksumMismatch(t *testing.T) {
	raw, err := Encode(CmdStop, "B1", nil)
	require.NoError(t, err)
	raw[len(raw)-1]++

	_, n, err := Decode(raw)
	assert.True(t, errors.Is(err, ErrChecksumMismatch))
	assert.Equal(t, 1, n)

	var fe *FramingError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, ErrChecksumMismatch, fe.Kind)
}

func TestDecodeMalformed(t *testing.T) {
	t.Run("start byte", func(t *testing.T) {
		_, n, err := Decode([]byte{0x00, 0x01})
		assert.True(t, errors.Is(err, ErrMalformed))
		assert.Equal(t, 1, n)
	})

	t.Run("length", func(t *testing.T) {
		buf := []byte{StartMarker, 'B', '1', 0, 0, 'o', MaxPayload + 1}
		_, n, err := Decode(buf)
		assert.True(t, errors.Is(err, ErrMalformed))
		assert.Equal(t, 1, n)
	})

	t.Run("address", func(t *testing.T) {
		buf := []byte{StartMarker, 0, 'B', 0, 0, 'o', 0, 0}
		_, n, err := Decode(buf)
		assert.True(t, errors.Is(err, ErrMalformed))
		assert.Equal(t, 1, n)
	})

	t.Run("unknown command drops whole frame", func(t *testing.T) {
		buf := []byte{StartMarker, 'B', '1', 0, 0, 'z', 0}
		buf = append(buf, checksum(buf[1:]))
		_, n, err := Decode(buf)
		assert.True(t, errors.Is(err, ErrMalformed))
		assert.Equal(t, len(buf), n)
	})

	t.Run("status position out of range", func(t *testing.T) {
		buf := []byte{StartMarker, 'B', '1', 0, 0, 'R', 3, 150, 0, 0}
		buf = append(buf, checksum(buf[1:]))
		_, n, err := Decode(buf)
		assert.True(t, errors.Is(err, ErrMalformed))
		assert.Equal(t, len(buf), n)
	})
}

func TestStatusReport(t *testing.T) {
	r, err := ParseStatusReport(StatusReport{Position: -1, Motion: MotionClosing, RSSI: 3}.Bytes())
	require.NoError(t, err)
	assert.Equal(t, -1, r.Position)
	assert.Equal(t, MotionClosing, r.Motion)

	_, err = ParseStatusReport([]byte{1})
	assert.Error(t, err)
}

func TestLinkQuality(t *testing.T) {
	assert.Equal(t, 100, LinkQuality(0x00))
	assert.Equal(t, 0, LinkQuality(0xFF))
	assert.Equal(t, 50, LinkQuality(0x7F))
}
