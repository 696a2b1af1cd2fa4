package middleware

import (
	"bytes"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nomadz/paygate/internal/manager"
	"github.com/nomadz/paygate/internal/model"
	"github.com/nomadz/paygate/internal/pkg/apperrors"
	"github.com/nomadz/paygate/internal/signer"
)

const (
	HeaderSigner     = "X-Signer"
	HeaderNonce      = "X-Nonce"
	HeaderSignature  = "X-Signature"
	ContextSignerKey = "signer"
)

// SignerAuthMiddleware verifies the ed25519 request signature and consumes
// the request nonce. The authenticated key is stored under ContextSignerKey.
func SignerAuthMiddleware(nonces *manager.NonceManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		signerKey, err := model.ParsePubkey(c.GetHeader(HeaderSigner))
		if err != nil {
			abortWith(c, apperrors.New(apperrors.ErrAuthFailed, "missing or invalid "+HeaderSigner+" header", err))
			return
		}
		nonce, err := strconv.ParseUint(c.GetHeader(HeaderNonce), 10, 64)
		if err != nil {
			abortWith(c, apperrors.New(apperrors.ErrAuthFailed, "missing or invalid "+HeaderNonce+" header", err))
			return
		}
		sig, err := signer.ParseSignature(c.GetHeader(HeaderSignature))
		if err != nil {
			abortWith(c, apperrors.New(apperrors.ErrAuthFailed, "missing or invalid "+HeaderSignature+" header", err))
			return
		}

		var body []byte
		if c.Request.Body != nil {
			body, err = io.ReadAll(c.Request.Body)
			if err != nil {
				abortWith(c, apperrors.NewInvalidRequest("failed to read request body"))
				return
			}
			c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
		}

		digest := signer.RequestDigest(c.Request.Method, c.Request.URL.Path, nonce, body)
		if !signer.Verify(signerKey, digest, sig) {
			abortWith(c, apperrors.New(apperrors.ErrAuthFailed, "signature verification failed", nil))
			return
		}
		// only verified requests may advance the nonce
		if err := nonces.Consume(c.Request.Context(), signerKey, nonce); err != nil {
			abortWith(c, err)
			return
		}

		c.Set(ContextSignerKey, signerKey)
		c.Next()
	}
}

// SignerFromContext returns the key authenticated by SignerAuthMiddleware.
func SignerFromContext(c *gin.Context) (model.Pubkey, bool) {
	val, exists := c.Get(ContextSignerKey)
	if !exists {
		return model.Pubkey{}, false
	}
	key, ok := val.(model.Pubkey)
	return key, ok
}

func abortWith(c *gin.Context, err error) {
	c.Error(err)
	c.Abort()
}
