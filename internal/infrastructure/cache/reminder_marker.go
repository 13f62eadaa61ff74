package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ReminderMarker remembers which appointments already had a reminder queued.
type ReminderMarker interface {
	// MarkSent returns true the first time it is called for an appointment within the TTL.
	MarkSent(ctx context.Context, appointmentID uuid.UUID) (bool, error)
	// Unmark forgets a mark, used when the reminder could not be queued.
	Unmark(ctx context.Context, appointmentID uuid.UUID) error
}

type redisReminderMarker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisReminderMarker(client *redis.Client, ttl time.Duration) ReminderMarker {
	return &redisReminderMarker{client: client, ttl: ttl}
}

func reminderKey(appointmentID uuid.UUID) string {
	return fmt.Sprintf("reminder:sent:%s", appointmentID)
}

func (m *redisReminderMarker) MarkSent(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	return m.client.SetNX(ctx, reminderKey(appointmentID), time.Now().UTC().Format(time.RFC3339), m.ttl).Result()
}

func (m *redisReminderMarker) Unmark(ctx context.Context, appointmentID uuid.UUID) error {
	return m.client.Del(ctx, reminderKey(appointmentID)).Err()
}
