package cloud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"cookiewarden/internal/store"
)

const keyPrefix = "cookiewarden:sync:"

// Scope is a store.CloudScope backed by a redis hash.  Every write is
// announced on the profile's update channel with the writing device id.
type Scope struct {
	client   *redis.Client
	profile  string
	deviceID string
}

// type check
var (
	_ store.CloudScope    = (*Scope)(nil)
	_ store.CloudWatcher  = (*Scope)(nil)
	_ store.DeviceCounter = (*Scope)(nil)
)

func NewScope(client *redis.Client, profile, deviceID string) *Scope {
	if profile == "" {
		profile = "default"
	}
	return &Scope{
		client:   client,
		profile:  profile,
		deviceID: deviceID,
	}
}

func (s *Scope) dataKey() string {
	return keyPrefix + s.profile
}

func (s *Scope) channel() string {
	return keyPrefix + s.profile + ":updates"
}

func (s *Scope) heartbeatPrefix() string {
	return keyPrefix + s.profile + ":device:"
}

// GetAll implements the store.CloudScope interface for *Scope.
func (s *Scope) GetAll(ctx context.Context) (map[string][]byte, error) {
	opCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	raw, err := s.client.HGetAll(opCtx, s.dataKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("cloud: read %s: %w", s.dataKey(), err)
	}

	out := make(map[string][]byte, len(raw))
	for k, v := range raw {
		out[k] = []byte(v)
	}
	return out, nil
}

// SetAll implements the store.CloudScope interface for *Scope.
func (s *Scope) SetAll(ctx context.Context, values map[string][]byte) error {
	if len(values) == 0 {
		return nil
	}

	opCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	fields := make(map[string]any, len(values))
	for k, v := range values {
		fields[k] = v
	}

	_, err := s.client.TxPipelined(opCtx, func(pipe redis.Pipeliner) error {
		pipe.HSet(opCtx, s.dataKey(), fields)
		pipe.Publish(opCtx, s.channel(), s.deviceID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cloud: write %s: %w", s.dataKey(), err)
	}
	return nil
}

// WatchUpdates implements the store.CloudWatcher interface for *Scope.
// Announcements from this device are ignored.
func (s *Scope) WatchUpdates(ctx context.Context, onUpdate func(ctx context.Context)) {
	pubsub := s.client.Subscribe(ctx, s.channel())
	defer pubsub.Close()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) || ctx.Err() != nil {
				return
			}
			log.Error("Cloud sync: subscription error", "error", err)
			time.Sleep(time.Second)
			continue
		}

		if msg.Payload == s.deviceID {
			continue
		}

		log.Debug("Cloud sync: update announced", "device", msg.Payload)
		onUpdate(ctx)
	}
}
