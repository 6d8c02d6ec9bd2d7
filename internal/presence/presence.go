package presence

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AbheyTiwari/RTC/internal/app"
)

// keyTTL bounds how long a room's roll set survives a crashed instance.
const keyTTL = 24 * time.Hour

// Tracker mirrors live room occupancy into redis: one set of roll numbers
// per room. The relay maintains it on join/leave; the admission endpoint
// consults it to reject a roll number that is already connected, including
// connections held by other instances.
type Tracker struct {
	rdb *redis.Client
	log *slog.Logger
}

// New connects to redis and verifies connectivity
func New(ctx context.Context, cfg app.Config, log *slog.Logger) (*Tracker, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Tracker{rdb: rdb, log: log}, nil
}

// Add marks a roll number as live in a room.
func (t *Tracker) Add(ctx context.Context, room, roll string) error {
	pipe := t.rdb.Pipeline()
	pipe.SAdd(ctx, key(room), roll)
	pipe.Expire(ctx, key(room), keyTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Remove clears a roll number when its connection ends.
func (t *Tracker) Remove(ctx context.Context, room, roll string) error {
	return t.rdb.SRem(ctx, key(room), roll).Err()
}

// Live reports whether a roll number is currently connected to a room.
func (t *Tracker) Live(ctx context.Context, room, roll string) (bool, error) {
	return t.rdb.SIsMember(ctx, key(room), roll).Result()
}

// Count returns the number of live occupants in a room.
func (t *Tracker) Count(ctx context.Context, room string) (int64, error) {
	return t.rdb.SCard(ctx, key(room)).Result()
}

// Close shuts down the redis connection
func (t *Tracker) Close() { _ = t.rdb.Close() }

// key namespacing for per-room roll sets
func key(room string) string { return "room:" + room + ":rolls" }
