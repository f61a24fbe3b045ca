// internal/config/validate.go
package config

import (
	"fmt"

	"github.com/linjuya-lu/device_arc_go/internal/arc"
)

// Validate 只做检查，不修改配置
func Validate(cfg *Config) error {
	p := cfg.Port
	if p.Device == "" {
		return fmt.Errorf("port: device is required")
	}
	if p.Baudrate <= 0 {
		return fmt.Errorf("port: invalid baudrate %d", p.Baudrate)
	}
	switch p.Type {
	case "uart", "rs232":
	case "rs485":
		if p.DEPin <= 0 {
			return fmt.Errorf("port: rs485 requires dePin")
		}
	default:
		return fmt.Errorf("port: unknown type %q", p.Type)
	}
	if p.TimeoutMs < 0 {
		return fmt.Errorf("port: negative timeoutMs")
	}

	if cfg.AutoPollInterval <= 0 {
		return fmt.Errorf("auto_poll_interval must be positive")
	}
	if cfg.PollTimeout <= 0 {
		return fmt.Errorf("poll_timeout must be positive")
	}
	if cfg.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	if cfg.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive")
	}
	if cfg.MoveInhibit < 0 || cfg.StartupGuard < 0 || cfg.OfflineAfter < 0 {
		return fmt.Errorf("move_inhibit, startup_guard and offline_after must not be negative")
	}

	seen := make(map[string]struct{}, len(cfg.Blinds))
	for i, b := range cfg.Blinds {
		if err := arc.ValidateBlindID(b.ID); err != nil {
			return fmt.Errorf("blinds[%d]: %w", i, err)
		}
		if _, dup := seen[b.ID]; dup {
			return fmt.Errorf("blinds[%d]: duplicate blind_id %q", i, b.ID)
		}
		seen[b.ID] = struct{}{}
	}

	if cfg.MQTT.Enabled() {
		if cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt: qos %d out of range", cfg.MQTT.QoS)
		}
		if cfg.MQTT.TopicPrefix == "" {
			return fmt.Errorf("mqtt: topic_prefix is required")
		}
		if cfg.MQTT.Discovery && cfg.MQTT.DiscoveryPrefix == "" {
			return fmt.Errorf("mqtt: discovery_prefix is required when discovery is on")
		}
	}
	return nil
}
