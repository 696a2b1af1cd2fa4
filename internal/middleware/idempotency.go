package middleware

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"

	"github.com/nomadz/paygate/internal/pkg/apperrors"
)

const HeaderIdempotencyKey = "X-Idempotency-Key"

type IdempotencyRecord struct {
	Fingerprint string // method, path and body hash of the request that took the key
	Status      int
	Body        []byte
	CreatedAt   time.Time
	Processing  bool // 正在处理中，用于防止并发竞争
}

type IdempotencyStore interface {
	// GetOrLock returns (record, true) if exists; (nil,false) if newly locked by caller.
	GetOrLock(ctx context.Context, key, fingerprint string) (*IdempotencyRecord, bool)
	Save(ctx context.Context, key, fingerprint string, status int, body []byte)
	Unlock(ctx context.Context, key string)
}

// InMemIdempotencyStore is used when neither Redis nor a database is configured.
type InMemIdempotencyStore struct {
	mu      sync.RWMutex
	records map[string]*IdempotencyRecord // Key: signer + ":" + IdempotencyKey
}

func NewInMemIdempotencyStore() *InMemIdempotencyStore {
	return &InMemIdempotencyStore{
		records: make(map[string]*IdempotencyRecord),
	}
}

func (s *InMemIdempotencyStore) GetOrLock(_ context.Context, key, fingerprint string) (*IdempotencyRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[key]; ok {
		return rec, true
	}

	s.records[key] = &IdempotencyRecord{
		Fingerprint: fingerprint,
		Processing:  true,
		CreatedAt:   time.Now(),
	}
	return nil, false
}

func (s *InMemIdempotencyStore) Save(_ context.Context, key, fingerprint string, status int, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = &IdempotencyRecord{
		Fingerprint: fingerprint,
		Status:      status,
		Body:        body,
		CreatedAt:   time.Now(),
		Processing:  false,
	}
}

func (s *InMemIdempotencyStore) Unlock(_ context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
}

// IdempotencyMiddleware replays the stored response for a repeated
// X-Idempotency-Key from the same signer. A key reused for a different
// request is rejected. Must run after SignerAuthMiddleware.
func IdempotencyMiddleware(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		idemKey := c.GetHeader(HeaderIdempotencyKey)
		if idemKey == "" {
			c.Next()
			return
		}

		signerKey, ok := SignerFromContext(c)
		if !ok {
			c.Next()
			return
		}
		fullKey := signerKey.String() + ":" + idemKey
		ctx := c.Request.Context()

		fingerprint, err := requestFingerprint(c)
		if err != nil {
			abortWith(c, apperrors.NewInvalidRequest("failed to read request body"))
			return
		}

		record, hit := store.GetOrLock(ctx, fullKey, fingerprint)
		if hit {
			if record.Fingerprint != fingerprint {
				abortWith(c, apperrors.New(apperrors.ErrIdempotencyKeyReused,
					"idempotency key reused with a different request", nil))
				return
			}
			if record.Processing {
				abortWith(c, apperrors.New(apperrors.ErrNonce, "request with this idempotency key is in progress", nil))
				return
			}
			c.Header("X-Idempotent-Replay", "true")
			c.Data(record.Status, "application/json; charset=utf-8", record.Body)
			c.Abort()
			return
		}

		w := &responseBodyWriter{body: nil, ResponseWriter: c.Writer}
		c.Writer = w

		c.Next()
		// errors must be rendered here so the stored body is the real response
		renderErrors(c)

		// 服务器内部错误允许重试，所以解锁但不保存结果
		if c.Writer.Status() < 500 {
			store.Save(ctx, fullKey, fingerprint, c.Writer.Status(), w.body)
		} else {
			store.Unlock(ctx, fullKey)
		}
	}
}

// requestFingerprint is keccak256(method || " " || path || "\n" || body).
func requestFingerprint(c *gin.Context) (string, error) {
	var body []byte
	if c.Request.Body != nil {
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return "", err
		}
		body = raw
		c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	}
	h := crypto.Keccak256Hash([]byte(c.Request.Method+" "+c.Request.URL.Path+"\n"), body)
	return h.Hex(), nil
}

type responseBodyWriter struct {
	gin.ResponseWriter
	body []byte
}

func (w *responseBodyWriter) Write(b []byte) (int, error) {
	w.body = append(w.body, b...)
	return w.ResponseWriter.Write(b)
}
