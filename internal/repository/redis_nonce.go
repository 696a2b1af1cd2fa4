package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/nomadz/paygate/internal/model"
)

// advanceNonceScript compares zero-padded nonces as strings and sets the key
// only when the new one is greater. Returns {1, ""} or {0, current}.
var advanceNonceScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur and cur >= ARGV[1] then
	return {0, cur}
end
redis.call('SET', KEYS[1], ARGV[1])
return {1, ''}
`)

// RedisNonceStore keeps nonces without a TTL; an expired nonce would reopen replay.
type RedisNonceStore struct {
	client *RedisClient
	prefix string
}

func NewRedisNonceStore(client *RedisClient) *RedisNonceStore {
	return &RedisNonceStore{client: client, prefix: "nonce:"}
}

func (s *RedisNonceStore) Advance(ctx context.Context, signer model.Pubkey, nonce uint64) (uint64, bool, error) {
	res, err := advanceNonceScript.Run(ctx, s.client.Client, []string{s.prefix + signer.String()}, padNonce(nonce)).Slice()
	if err != nil {
		return 0, false, err
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("unexpected nonce script reply: %v", res)
	}
	if flag, _ := res[0].(int64); flag == 1 {
		return nonce, true, nil
	}
	cur, _ := res[1].(string)
	last, err := strconv.ParseUint(cur, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt nonce for %s: %w", signer.String(), err)
	}
	return last, false, nil
}
