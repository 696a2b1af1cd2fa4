package repository

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/nomadz/paygate/internal/config"
	"github.com/nomadz/paygate/internal/model"
	"github.com/nomadz/paygate/internal/service"
)

type RedisClient struct {
	Client *redis.Client
}

func NewRedisClient(cfg *config.Config) (*RedisClient, error) {
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address is empty")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{Client: rdb}, nil
}

func (r *RedisClient) Close() error {
	return r.Client.Close()
}

// RedisStatsRepo keeps daily settlement totals in one hash per mint and day.
type RedisStatsRepo struct {
	client *RedisClient
	prefix string
}

func NewRedisStatsRepo(client *RedisClient) *RedisStatsRepo {
	return &RedisStatsRepo{client: client, prefix: "stats"}
}

func (r *RedisStatsRepo) GetDailySettlement(ctx context.Context, mint model.Pubkey) (*service.SettlementUsage, error) {
	usage := &service.SettlementUsage{FeeVolume: decimal.Zero, DestinationVolume: decimal.Zero}
	vals, err := r.client.Client.HGetAll(ctx, r.makeKey(mint)).Result()
	if err != nil {
		if err == redis.Nil {
			return usage, nil
		}
		return nil, err
	}
	if v, ok := vals["settlements"]; ok {
		n, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("stats settlements: %w", err)
		}
		usage.Settlements = n.IntPart()
	}
	if v, ok := vals["fee"]; ok {
		if usage.FeeVolume, err = decimal.NewFromString(v); err != nil {
			return nil, fmt.Errorf("stats fee volume: %w", err)
		}
	}
	if v, ok := vals["destination"]; ok {
		if usage.DestinationVolume, err = decimal.NewFromString(v); err != nil {
			return nil, fmt.Errorf("stats destination volume: %w", err)
		}
	}
	return usage, nil
}

func (r *RedisStatsRepo) AddDailySettlement(ctx context.Context, mint model.Pubkey, fee, destination uint64) error {
	if fee > math.MaxInt64 || destination > math.MaxInt64 {
		return fmt.Errorf("settlement volume exceeds stats counter range")
	}
	key := r.makeKey(mint)
	_, err := r.client.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, "settlements", 1)
		pipe.HIncrBy(ctx, key, "fee", int64(fee))
		pipe.HIncrBy(ctx, key, "destination", int64(destination))
		// Set Expiry (2 days is safe)
		pipe.Expire(ctx, key, 48*time.Hour)
		return nil
	})
	return err
}

func (r *RedisStatsRepo) makeKey(mint model.Pubkey) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, mint.String(), today())
}
