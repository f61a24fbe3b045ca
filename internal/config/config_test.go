package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
ArcBridge:
  port:
    name: arc
    device: /dev/ttyS3
    type: rs485
    baudrate: 115200
    dePin: 17
  auto_poll_interval: 30s
  poll_timeout: 1500ms
  half_duplex: false
  blinds:
    - blind_id: B1
      name: kitchen
    - blind_id: B2
      invert_position: true
  mqtt:
    broker: tcp://127.0.0.1:1883
    discovery: true
`

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "rs485", cfg.Port.Type)
	assert.Equal(t, 17, cfg.Port.DEPin)
	assert.Equal(t, 100, cfg.Port.TimeoutMs)

	assert.True(t, cfg.AutoPoll)
	assert.Equal(t, 30*time.Second, cfg.AutoPollInterval.D())
	assert.Equal(t, 1500*time.Millisecond, cfg.PollTimeout.D())
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.False(t, cfg.HalfDuplex)
	assert.Equal(t, 5*time.Second, cfg.MoveInhibit.D())

	require.Len(t, cfg.Blinds, 2)
	assert.Equal(t, Blind{ID: "B1", Name: "kitchen"}, cfg.Blinds[0])
	assert.True(t, cfg.Blinds[1].InvertPosition)

	assert.True(t, cfg.MQTT.Enabled())
	assert.Equal(t, "arc", cfg.MQTT.TopicPrefix)
	assert.Equal(t, "homeassistant", cfg.MQTT.DiscoveryPrefix)

	bc := cfg.BridgeConfig()
	assert.Equal(t, 30*time.Second, bc.Poll.Interval)
	assert.Equal(t, 3, bc.Poll.MaxRetries)
	assert.Equal(t, time.Minute, bc.OfflineAfter)
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad duration":   "ArcBridge:\n  poll_timeout: soon\n",
		"zero interval":  "ArcBridge:\n  auto_poll_interval: 0s\n",
		"duplicate id":   "ArcBridge:\n  blinds:\n    - blind_id: B1\n    - blind_id: B1\n",
		"long id":        "ArcBridge:\n  blinds:\n    - blind_id: ABCDE\n",
		"broadcast id":   "ArcBridge:\n  blinds:\n    - blind_id: \"000\"\n",
		"port type":      "ArcBridge:\n  port:\n    type: can\n",
		"rs485 no pin":   "ArcBridge:\n  port:\n    type: rs485\n",
		"negative retry": "ArcBridge:\n  max_retries: -1\n",
		"qos":            "ArcBridge:\n  mqtt:\n    broker: tcp://x:1883\n    qos: 3\n",
		"not yaml":       "ArcBridge: [",
	}
	for name, doc := range cases {
		_, err := Parse([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arc-bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyS3", cfg.Port.Device)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEmptyDocumentUsesDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
	assert.False(t, cfg.MQTT.Enabled())
}
