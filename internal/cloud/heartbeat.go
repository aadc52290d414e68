package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

const (
	DefaultHeartbeatInterval = 15 * time.Second
	DefaultHeartbeatTTL      = 30 * time.Second
)

// RunHeartbeat marks this device live in the profile until ctx is done.
func (s *Scope) RunHeartbeat(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	if ttl <= interval {
		ttl = 2 * interval
	}

	heartbeatKey := s.heartbeatPrefix() + s.deviceID

	sendHeartbeat := func() {
		if err := s.client.SetEx(ctx, heartbeatKey, "alive", ttl).Err(); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("Failed to update device heartbeat", "key", heartbeatKey, "error", err)
		}
	}

	sendHeartbeat()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sendHeartbeat()
		}
	}
}

// LiveDevices implements the store.DeviceCounter interface for *Scope.
func (s *Scope) LiveDevices(ctx context.Context) (int, error) {
	keys, err := s.client.Keys(ctx, s.heartbeatPrefix()+"*").Result()
	if err != nil {
		return 0, fmt.Errorf("cloud: list devices: %w", err)
	}
	return len(keys), nil
}
