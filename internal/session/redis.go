package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	fieldUserID    = "uid"
	fieldFlashType = "flash_type"
	fieldFlashMsg  = "flash_msg"
)

// RedisStore keeps each session as a hash under "<prefix><id>" with a TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore returns a Store backed by client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: "studymate:session:", ttl: ttl}
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

// UserID reads the bound user and slides the key's TTL in the same MULTI/EXEC.
// EXPIRE on a missing key is a no-op, so unknown ids are not resurrected.
func (s *RedisStore) UserID(ctx context.Context, id string) (int64, error) {
	key := s.key(id)
	var get *redis.StringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.HGet(ctx, key, fieldUserID)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("redis hget: %w", err)
	}
	v, err := get.Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrNoSession
		}
		return 0, fmt.Errorf("redis hget: %w", err)
	}
	uid, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt session %s: %w", id, err)
	}
	return uid, nil
}

func (s *RedisStore) SetUserID(ctx context.Context, id string, userID int64) error {
	key := s.key(id)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldUserID, userID)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set user: %w", err)
	}
	return nil
}

func (s *RedisStore) PutFlash(ctx context.Context, id string, f Flash) error {
	key := s.key(id)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, key, fieldUserID, 0)
		pipe.HSet(ctx, key, fieldFlashType, f.Type, fieldFlashMsg, f.Message)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis put flash: %w", err)
	}
	return nil
}

// PopFlash reads and deletes the flash fields inside one MULTI/EXEC.
func (s *RedisStore) PopFlash(ctx context.Context, id string) (*Flash, error) {
	key := s.key(id)
	var get *redis.SliceCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.HMGet(ctx, key, fieldFlashType, fieldFlashMsg)
		pipe.HDel(ctx, key, fieldFlashType, fieldFlashMsg)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis pop flash: %w", err)
	}

	vals := get.Val()
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return nil, nil
	}
	typ, _ := vals[0].(string)
	msg, _ := vals[1].(string)
	return &Flash{Type: typ, Message: msg}, nil
}

func (s *RedisStore) Destroy(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
