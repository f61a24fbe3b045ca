package poller

import (
	"errors"
	"testing"
	"time"

	"github.com/edgexfoundry/go-mod-core-contracts/v4/clients/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []string
	fail bool
}

func (f *fakeSender) SendStatusQuery(id string) error {
	f.sent = append(f.sent, id)
	if f.fail {
		return errors.New("write failed")
	}
	return nil
}

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newScheduler(t *testing.T, cfg Config, ids ...string) (*Scheduler, *fakeSender) {
	t.Helper()
	fs := &fakeSender{}
	s, err := New(cfg, fs, logger.NewMockClient())
	require.NoError(t, err)
	for _, id := range ids {
		s.Add(id)
	}
	return s, fs
}

func assertInvariant(t *testing.T, s *Scheduler) {
	t.Helper()
	for _, id := range s.order {
		if s.State(id) == StateAwaitingResponse {
			_, ok := s.Pending(id)
			assert.True(t, ok)
		}
	}
	if s.cfg.HalfDuplex {
		assert.LessOrEqual(t, s.Outstanding(), 1)
	}
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{}, nil, logger.NewMockClient())
	assert.Error(t, err)

	_, err = New(Config{Timeout: -time.Second}, &fakeSender{}, logger.NewMockClient())
	assert.Error(t, err)

	s, err := New(Config{}, &fakeSender{}, logger.NewMockClient())
	require.NoError(t, err)
	assert.Equal(t, DefaultInterval, s.Config().Interval)
	assert.Equal(t, DefaultTimeout, s.Config().Timeout)
}

func TestAutoPollCycle(t *testing.T) {
	s, fs := newScheduler(t, Config{AutoPoll: true, Interval: 10 * time.Second, Timeout: 2 * time.Second}, "B1", "B2")

	s.Tick(t0)
	assert.Equal(t, []string{"B1", "B2"}, fs.sent)
	assert.Equal(t, StateAwaitingResponse, s.State("B1"))

	assert.True(t, s.OnResponse("B1", t0.Add(100*time.Millisecond)))
	assert.True(t, s.OnResponse("B2", t0.Add(200*time.Millisecond)))
	assert.False(t, s.OnResponse("B2", t0.Add(300*time.Millisecond)))

	s.Tick(t0.Add(5 * time.Second))
	assert.Len(t, fs.sent, 2)

	s.Tick(t0.Add(10 * time.Second))
	assert.Equal(t, []string{"B1", "B2", "B1", "B2"}, fs.sent)
}

func TestAtMostOneOutstandingPerBlind(t *testing.T) {
	s, fs := newScheduler(t, Config{AutoPoll: true, Interval: time.Second, Timeout: 5 * time.Second}, "B1")

	for i := 0; i < 4; i++ {
		s.Request("B1")
		s.Tick(t0.Add(time.Duration(i) * time.Second))
		assertInvariant(t, s)
	}
	// 超时前不会重复发送
	assert.Equal(t, []string{"B1"}, fs.sent)
	assert.Equal(t, 1, s.Outstanding())
}

func TestHalfDuplexSerializesBlinds(t *testing.T) {
	s, fs := newScheduler(t, Config{Timeout: time.Second, HalfDuplex: true}, "B1", "B2", "B3")
	s.RequestAll()

	s.Tick(t0)
	assert.Equal(t, []string{"B1"}, fs.sent)
	assertInvariant(t, s)

	s.OnResponse("B1", t0)
	s.Tick(t0.Add(10 * time.Millisecond))
	assert.Equal(t, []string{"B1", "B2"}, fs.sent)

	s.OnResponse("B2", t0)
	s.Tick(t0.Add(20 * time.Millisecond))
	assert.Equal(t, []string{"B1", "B2", "B3"}, fs.sent)
	assertInvariant(t, s)
}

func TestRetriesThenSingleTimeout(t *testing.T) {
	s, fs := newScheduler(t, Config{Timeout: 2 * time.Second, MaxRetries: 3}, "B1")
	var timeouts []string
	s.OnTimeout(func(id string) { timeouts = append(timeouts, id) })

	s.Request("B1")
	now := t0
	s.Tick(now)
	for i := 0; i < 3; i++ {
		now = now.Add(2 * time.Second)
		s.Tick(now)
		assert.Empty(t, timeouts, "retry %d", i+1)
		req, ok := s.Pending("B1")
		require.True(t, ok)
		assert.Equal(t, i+1, req.Retries)
	}
	assert.Len(t, fs.sent, 4)

	now = now.Add(2 * time.Second)
	s.Tick(now)
	assert.Equal(t, []string{"B1"}, timeouts)
	assert.Equal(t, StateIdle, s.State("B1"))

	// 没有新请求时不会再次触发
	s.Tick(now.Add(time.Minute))
	assert.Len(t, timeouts, 1)
	assert.Len(t, fs.sent, 4)
}

func TestResponseResetsRetries(t *testing.T) {
	s, _ := newScheduler(t, Config{Timeout: time.Second, MaxRetries: 3}, "B1")
	s.Request("B1")
	s.Tick(t0)
	s.Tick(t0.Add(time.Second))

	req, _ := s.Pending("B1")
	assert.Equal(t, 1, req.Retries)

	s.OnResponse("B1", t0.Add(1500*time.Millisecond))
	s.Request("B1")
	s.Tick(t0.Add(2 * time.Second))
	req, ok := s.Pending("B1")
	require.True(t, ok)
	assert.Zero(t, req.Retries)
}

func TestSendFailureFollowsTimeoutPath(t *testing.T) {
	s, fs := newScheduler(t, Config{Timeout: time.Second, MaxRetries: 1}, "B1")
	fs.fail = true
	fired := 0
	s.OnTimeout(func(string) { fired++ })

	s.Request("B1")
	s.Tick(t0)
	s.Tick(t0.Add(time.Second))
	s.Tick(t0.Add(2 * time.Second))
	assert.Equal(t, 1, fired)
	assert.Len(t, fs.sent, 2)
}

func TestRemoveCancelsOutstanding(t *testing.T) {
	s, fs := newScheduler(t, Config{Timeout: time.Second, HalfDuplex: true}, "B1", "B2")
	fired := 0
	s.OnTimeout(func(string) { fired++ })

	s.RequestAll()
	s.Tick(t0)
	require.Equal(t, StateAwaitingResponse, s.State("B1"))

	s.Remove("B1")
	assert.Zero(t, s.Outstanding())
	assert.False(t, s.Request("B1"))

	s.Tick(t0.Add(5 * time.Second))
	assert.Zero(t, fired)
	assert.Equal(t, []string{"B1", "B2"}, fs.sent)
}

func TestInhibitHoldsDispatch(t *testing.T) {
	s, fs := newScheduler(t, Config{AutoPoll: true, Interval: time.Minute}, "B1")
	s.Inhibit(t0.Add(3 * time.Second))

	s.Tick(t0)
	s.Tick(t0.Add(2 * time.Second))
	assert.Empty(t, fs.sent)

	s.Tick(t0.Add(3 * time.Second))
	assert.Equal(t, []string{"B1"}, fs.sent)
}
