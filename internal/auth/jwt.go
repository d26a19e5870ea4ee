package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc/metadata"
)

const (
	KindAdmin  = "admin"
	KindDriver = "driver"
)

var (
	ErrMissingToken = errors.New("missing authorization")
	ErrInvalidToken = errors.New("invalid token")
	ErrRevoked      = errors.New("session expired or logged out")
)

// Principal represents the authenticated caller of a session.
type Principal struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"` // admin username or driver name
	Kind      string `json:"kind"` // "admin" | "driver"
	SessionID string `json:"-"`
}

type principalKey struct{}

// WithPrincipal stores the principal in context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext retrieves the principal from context (if any).
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

type claims struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// BearerFromMD extracts the Bearer token from gRPC metadata.
func BearerFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", ErrMissingToken
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return "", ErrMissingToken
	}
	return splitBearer(vals[0])
}

// BearerFromRequest extracts the Bearer token from the Authorization header.
func BearerFromRequest(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", ErrMissingToken
	}
	return splitBearer(h)
}

func splitBearer(h string) (string, error) {
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	tok := strings.TrimSpace(parts[1])
	if tok == "" {
		return "", ErrMissingToken
	}
	return tok, nil
}

// parseJWT validates signature and expiry and extracts the principal. It does not
// consult the session store.
func parseJWT(tokenStr string, secret []byte) (*Principal, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is empty")
	}
	tok, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	c, _ := tok.Claims.(*claims)
	if c == nil || c.Name == "" || c.Kind == "" || c.ID == "" {
		return nil, ErrInvalidToken
	}
	kind := strings.ToLower(c.Kind)
	if kind != KindAdmin && kind != KindDriver {
		return nil, ErrInvalidToken
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return nil, ErrInvalidToken
	}
	return &Principal{ID: id, Name: c.Name, Kind: kind, SessionID: c.ID}, nil
}
