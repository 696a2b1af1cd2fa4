package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nomadz/paygate/internal/middleware"
	"github.com/nomadz/paygate/internal/pkg/logger"
)

type RedisIdempotencyStore struct {
	client *RedisClient
	ttl    time.Duration
	prefix string
}

func NewRedisIdempotencyStore(client *RedisClient, ttl time.Duration) *RedisIdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisIdempotencyStore{
		client: client,
		ttl:    ttl,
		prefix: "idem:",
	}
}

type idemWire struct {
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status"`
	Body        []byte `json:"body"`
	CreatedAt   int64  `json:"created_at"`
	Processing  bool   `json:"processing"`
}

func (s *RedisIdempotencyStore) GetOrLock(ctx context.Context, key, fingerprint string) (*middleware.IdempotencyRecord, bool) {
	payload := encodeIdemRecord(middleware.IdempotencyRecord{
		Fingerprint: fingerprint,
		CreatedAt:   time.Now().UTC(),
		Processing:  true,
	})
	locked, err := s.client.Client.SetNX(ctx, s.prefix+key, payload, s.ttl).Result()
	if err != nil {
		logger.Warn("idempotency lock failed", "key", key, "error", err)
		return nil, false
	}
	if locked {
		return nil, false
	}
	raw, err := s.client.Client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	rec, err := decodeIdemRecord(raw)
	if err != nil {
		return nil, false
	}
	return rec, true
}

func (s *RedisIdempotencyStore) Save(ctx context.Context, key, fingerprint string, status int, body []byte) {
	payload := encodeIdemRecord(middleware.IdempotencyRecord{
		Fingerprint: fingerprint,
		Status:      status,
		Body:        body,
		CreatedAt:   time.Now().UTC(),
	})
	if err := s.client.Client.Set(ctx, s.prefix+key, payload, s.ttl).Err(); err != nil {
		logger.Warn("idempotency save failed", "key", key, "error", err)
	}
}

func (s *RedisIdempotencyStore) Unlock(ctx context.Context, key string) {
	_ = s.client.Client.Del(ctx, s.prefix+key).Err()
}

func encodeIdemRecord(rec middleware.IdempotencyRecord) []byte {
	data, _ := json.Marshal(idemWire{
		Fingerprint: rec.Fingerprint,
		Status:      rec.Status,
		Body:        rec.Body,
		CreatedAt:   rec.CreatedAt.Unix(),
		Processing:  rec.Processing,
	})
	return data
}

func decodeIdemRecord(raw []byte) (*middleware.IdempotencyRecord, error) {
	var wire idemWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, err
	}
	return &middleware.IdempotencyRecord{
		Fingerprint: wire.Fingerprint,
		Status:      wire.Status,
		Body:        wire.Body,
		CreatedAt:   time.Unix(wire.CreatedAt, 0).UTC(),
		Processing:  wire.Processing,
	}, nil
}
