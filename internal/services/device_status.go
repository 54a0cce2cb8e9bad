package services

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// DeviceStatusStore holds the per-user "currently monitoring/recording"
// indicator flags the client UI polls. Sealing a session must reset them so
// the app reflects the window closing.
type DeviceStatusStore interface {
	MarkMonitoring(ctx context.Context, userID string) error
	ResetFlags(ctx context.Context, userID string) error
}

type redisDeviceStatus struct {
	rdb *redis.Client
}

func NewRedisDeviceStatus(rdb *redis.Client) DeviceStatusStore {
	return &redisDeviceStatus{rdb: rdb}
}

func monitoringKey(userID string) string { return "user:" + userID + ":monitoring" }
func recordingKey(userID string) string  { return "user:" + userID + ":recording" }

func (s *redisDeviceStatus) MarkMonitoring(ctx context.Context, userID string) error {
	return s.rdb.Set(ctx, monitoringKey(userID), "1", 0).Err()
}

func (s *redisDeviceStatus) ResetFlags(ctx context.Context, userID string) error {
	return s.rdb.MSet(ctx, monitoringKey(userID), "0", recordingKey(userID), "0").Err()
}
