package natsobj

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/leaseway/leaseway/pkg/storage"
)

// defaultSignedURLTTL bounds signed URLs when the caller gives no
// ExpiresIn.
const defaultSignedURLTTL = 15 * time.Minute

// urlSigner builds object URLs per the configured mode. With a secret it
// appends an HMAC-signed expiring token; with only a base it returns
// stable public URLs; unconfigured it refuses.
type urlSigner struct {
	base   string
	secret []byte
}

func newURLSigner(cfg storage.ObjectStoreConfig) *urlSigner {
	return &urlSigner{
		base:   strings.TrimSuffix(cfg.PublicURLBase, "/"),
		secret: []byte(cfg.SigningSecret),
	}
}

func (s *urlSigner) sign(key string, opts storage.SignOptions) (string, error) {
	if s.base == "" {
		return "", storage.ErrSigningUnsupported
	}

	target := s.base + "/" + url.PathEscape(key)

	// Public-base-only mode is an explicit opt-in to non-expiring URLs.
	if len(s.secret) == 0 {
		return target, nil
	}

	expiresIn := opts.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultSignedURLTTL
	}
	method := opts.Method
	if method == "" {
		method = "GET"
	}

	claims := jwt.MapClaims{
		"sub": key,
		"mth": method,
		"exp": jwt.NewNumericDate(time.Now().Add(expiresIn)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing object URL: %w", err)
	}

	return target + "?token=" + token, nil
}

// VerifyToken checks a signed URL token for key, returning the authorized
// method. The public delivery handler in front of the bucket uses this to
// gate access.
func (s *urlSigner) VerifyToken(key, token string) (string, error) {
	if len(s.secret) == 0 {
		return "", storage.ErrSigningUnsupported
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("verifying object URL token: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims shape")
	}
	sub, _ := claims["sub"].(string)
	if sub != key {
		return "", fmt.Errorf("token subject %q does not match object %q", sub, key)
	}
	method, _ := claims["mth"].(string)
	return method, nil
}

// VerifyToken on the Store exposes the signer for delivery handlers that
// hold the adapter.
func (st *Store) VerifyToken(key, token string) (string, error) {
	return st.signer.VerifyToken(key, token)
}
