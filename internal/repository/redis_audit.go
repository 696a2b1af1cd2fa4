package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nomadz/paygate/internal/model"
)

type RedisAuditRepo struct {
	client  *RedisClient
	listKey string
	listMax int
}

func NewRedisAuditRepo(client *RedisClient, listKey string, listMax int) *RedisAuditRepo {
	if listKey == "" {
		listKey = "audit_logs"
	}
	if listMax <= 0 {
		listMax = 10000
	}
	return &RedisAuditRepo{
		client:  client,
		listKey: listKey,
		listMax: listMax,
	}
}

func (r *RedisAuditRepo) Insert(ctx context.Context, entry *model.AuditLog) error {
	if entry == nil {
		return nil
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	pipe := r.client.Client.Pipeline()
	pipe.LPush(ctx, r.listKey, payload)
	pipe.LTrim(ctx, r.listKey, 0, int64(r.listMax-1))
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisAuditRepo) List(ctx context.Context, signer string, limit int, from, to *time.Time) ([]*model.AuditLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	fetch := limit * 5
	if fetch < 100 {
		fetch = 100
	}
	if fetch > r.listMax {
		fetch = r.listMax
	}
	items, err := r.client.Client.LRange(ctx, r.listKey, 0, int64(fetch-1)).Result()
	if err != nil {
		return nil, err
	}
	results := make([]*model.AuditLog, 0, limit)
	for _, raw := range items {
		var entry model.AuditLog
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		if signer != "" && entry.Signer != signer {
			continue
		}
		if from != nil && entry.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && entry.CreatedAt.After(*to) {
			continue
		}
		results = append(results, &entry)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}
