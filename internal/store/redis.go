package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"teltonika-codec/internal/pipeline"
)

// Store keeps per-device state in Redis.
//
//	dev:<imei>:<field>          string attributes (fw, model, iccid, getver_raw)
//	dev:<imei>:last             last TrackingObject as JSON
//	cmd:<imei>:<cmd>:<yyyymmdd> daily command counter
type Store struct {
	rdb redis.UniversalClient
	ttl time.Duration
	now func() time.Time
}

func New(rdb redis.UniversalClient, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl, now: time.Now}
}

// InitRedis connects to addr and checks the connection with PING.
func InitRedis(ctx context.Context, addr string, db int, ttl time.Duration) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return New(rdb, ttl), nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func DeviceKey(imei, field string) string {
	return "dev:" + imei + ":" + field
}

func (s *Store) SaveString(ctx context.Context, key, value string) error {
	if err := s.rdb.Set(ctx, key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", key, err)
	}
	return nil
}

// GetString returns "" without error when key does not exist.
func (s *Store) GetString(ctx context.Context, key string) (string, error) {
	val, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis GET %s: %w", key, err)
	}
	return val, nil
}

// IncDailyCmdCounter counts one more attempt of cmd for imei today (UTC). allowed is
// false once the count passes limit; limit <= 0 means unlimited.
func (s *Store) IncDailyCmdCounter(ctx context.Context, imei, cmd string, limit int) (bool, int64, error) {
	now := s.now().UTC()
	key := "cmd:" + imei + ":" + cmd + ":" + now.Format("20060102")

	var incr *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.Expire(ctx, key, 25*time.Hour)
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("redis INCR %s: %w", key, err)
	}
	n := incr.Val()
	return limit <= 0 || n <= int64(limit), n, nil
}

func (s *Store) SaveTracking(ctx context.Context, tr *pipeline.TrackingObject) error {
	b, err := json.Marshal(tr)
	if err != nil {
		return err
	}
	key := DeviceKey(tr.IMEI, "last")
	if err := s.rdb.Set(ctx, key, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", key, err)
	}
	return nil
}

// LastTracking returns nil without error when nothing was stored for imei.
func (s *Store) LastTracking(ctx context.Context, imei string) (*pipeline.TrackingObject, error) {
	key := DeviceKey(imei, "last")
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET %s: %w", key, err)
	}
	var tr pipeline.TrackingObject
	if err := json.Unmarshal(b, &tr); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &tr, nil
}
