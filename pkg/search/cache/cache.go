package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/iWorld-y/post_radar/pkg/logger"
	"github.com/iWorld-y/post_radar/pkg/search"
)

const keyPrefix = "post_radar:search:"

// ErrMiss 缓存未命中
var ErrMiss = errors.New("cache: miss")

// Store 缓存存储
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisStore 基于 Redis 的 Store
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore 包装 Redis 客户端
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// NewRedisClient 创建并 Ping Redis 客户端
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Get implements Store
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return val, err
}

// Set implements Store
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

// Searcher 缓存搜索结果的装饰器。并发的相同请求只会打到后端一次，缓存读写失败时直接请求后端
type Searcher struct {
	next  search.Searcher
	store Store
	ttl   time.Duration
	group singleflight.Group
}

var _ search.Searcher = (*Searcher)(nil)

// New 创建缓存装饰器
func New(next search.Searcher, store Store, ttl time.Duration) *Searcher {
	return &Searcher{next: next, store: store, ttl: ttl}
}

// Key 计算缓存键
func Key(req *search.Request) string {
	sum := sha1.Sum([]byte(req.Query + "\x00" + req.StartDate + "\x00" + req.EndDate))
	topic := req.Topic
	if topic == "" {
		topic = search.TopicGeneral
	}
	return fmt.Sprintf("%s%s:%d:%s", keyPrefix, topic, req.MaxResults, hex.EncodeToString(sum[:]))
}

// Search implements search.Searcher
func (s *Searcher) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	key := Key(req)

	if data, err := s.store.Get(ctx, key); err == nil {
		var resp search.Response
		if err := json.Unmarshal(data, &resp); err == nil {
			logger.Log.Debugf("搜索缓存命中 [%s]", req.Query)
			return &resp, nil
		}
		logger.Log.Warnf("搜索缓存内容损坏 [%s]，重新请求", key)
	} else if !errors.Is(err, ErrMiss) {
		logger.Log.Warnf("读取搜索缓存失败 [%s]: %v", key, err)
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		resp, err := s.next.Search(ctx, req)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(resp); err == nil {
			if err := s.store.Set(ctx, key, data, s.ttl); err != nil {
				logger.Log.Warnf("写入搜索缓存失败 [%s]: %v", key, err)
			}
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*search.Response), nil
}
