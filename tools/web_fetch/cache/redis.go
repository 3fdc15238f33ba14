package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mohammad-safakhou/askweb/tools/web_fetch/models"
	"github.com/redis/go-redis/v9"
)

type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(ctx context.Context, ro RedisOptions, ttl time.Duration) (*Redis, error) {
	if ro.Timeout <= 0 {
		ro.Timeout = 5 * time.Second
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         ro.Addr,
		Password:     ro.Password,
		DB:           ro.DB,
		DialTimeout:  ro.Timeout,
		ReadTimeout:  ro.Timeout,
		WriteTimeout: ro.Timeout,
	})
	pctx, cancel := context.WithTimeout(ctx, ro.Timeout)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", ro.Addr, err)
	}
	return &Redis{client: rdb, ttl: ttl}, nil
}

func (r *Redis) Get(ctx context.Context, url string) (models.Page, bool, error) {
	val, err := r.client.Get(ctx, Key(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Page{}, false, nil
	}
	if err != nil {
		return models.Page{}, false, err
	}
	var page models.Page
	if err := json.Unmarshal(val, &page); err != nil {
		return models.Page{}, false, fmt.Errorf("decode cached page: %w", err)
	}
	return page, true, nil
}

func (r *Redis) Set(ctx context.Context, url string, page models.Page) error {
	data, err := json.Marshal(page)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, Key(url), data, r.ttl).Err()
}

func (r *Redis) Close() error { return r.client.Close() }
