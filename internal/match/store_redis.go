package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix  = "chess:match:"
	defaultSessionTTL = 24 * time.Hour
)

// RedisStore 는 진행 중인 대국 상태를 JSON 으로 보관한다.
// 쓰기는 WATCH 로 보호해 읽은 뒤 수순이 바뀌었으면 거절한다.
type RedisStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for match store")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreFromClient(rdb, ttl), nil
}

func NewRedisStoreFromClient(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl, prefix: defaultKeyPrefix}
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func (s *RedisStore) key(id string) string { return s.prefix + id }

// Create 는 같은 ID 가 없을 때만 쓴다.
func (s *RedisStore) Create(ctx context.Context, st State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal match: %w", err)
	}
	ok, err := s.rdb.SetNX(ctx, s.key(st.ID), raw, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return ErrDuplicateRecord
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (State, error) {
	raw, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, ErrSnapshotNotFound
	}
	if err != nil {
		return State{}, fmt.Errorf("redis get: %w", err)
	}
	return decodeState(raw)
}

// Save 는 저장된 수순 길이가 expectedPly 일 때만 덮어쓴다.
func (s *RedisStore) Save(ctx context.Context, st State, expectedPly int) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal match: %w", err)
	}
	key := s.key(st.ID)
	txf := func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrSnapshotNotFound
		}
		if err != nil {
			return err
		}
		stored, err := decodeState(cur)
		if err != nil {
			return err
		}
		if stored.Ply != expectedPly {
			return ErrConcurrentUpdate
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, raw, s.ttl)
			return nil
		})
		return err
	}
	err = s.rdb.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrConcurrentUpdate
	}
	return err
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, s.key(id)).Err()
}

func decodeState(raw []byte) (State, error) {
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, fmt.Errorf("decode match: %w", err)
	}
	return st, nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("redis db %q: %w", p, err)
		}
		db = n
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Username: u.User.Username(), Password: pass, DB: db}, nil
}
