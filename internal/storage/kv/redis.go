// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisProbeTimeout = 2 * time.Second

// RedisConfig Redis 驱动配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// KeyPrefix 所有 key 统一加前缀，便于多应用共用实例
	KeyPrefix string
}

// redisStore 远端实现：TTL 与原子性委托给 Redis 原生 key 过期与单 key 操作
type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore 创建 Redis 存储；构造时 Ping 探测连接，失败返回 ErrUnavailable，
// 保证 Select 能在任何调用方观察到错误之前降级（同 einoext 工厂的握手方式）
func NewRedisStore(ctx context.Context, cfg RedisConfig) (Store, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if opts.Addr == "" {
		opts.Addr = "localhost:6379"
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, redisProbeTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis ping %s: %v", ErrUnavailable, opts.Addr, err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "coassist"
	}
	return &redisStore{client: client, prefix: prefix}, nil
}

func (s *redisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrOperationFailed, key, err)
	}
	return nil
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrOperationFailed, key, err)
	}
	return val, nil
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: del %s: %v", ErrOperationFailed, key, err)
	}
	return nil
}

func (s *redisStore) Touch(ctx context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		ok, err := s.client.Persist(ctx, s.key(key)).Result()
		if err != nil {
			return fmt.Errorf("%w: persist %s: %v", ErrOperationFailed, key, err)
		}
		if !ok {
			// PERSIST 对不存在的 key 和本就无 TTL 的 key 都返回 false，需 EXISTS 区分
			n, err := s.client.Exists(ctx, s.key(key)).Result()
			if err != nil {
				return fmt.Errorf("%w: exists %s: %v", ErrOperationFailed, key, err)
			}
			if n == 0 {
				return ErrNotFound
			}
		}
		return nil
	}
	ok, err := s.client.PExpire(ctx, s.key(key), ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: pexpire %s: %v", ErrOperationFailed, key, err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *redisStore) Name() string { return "redis" }

func (s *redisStore) Close() error { return s.client.Close() }

func (s *redisStore) key(k string) string { return s.prefix + ":" + k }
