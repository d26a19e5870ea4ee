package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Session is a login issued to an admin or driver.
type Session struct {
	ID        string    `json:"-"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Principal Principal `json:"-"`
}

// Sessions issues signed session tokens and checks them against a SessionStore,
// so logging out invalidates a token before it expires.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	store  SessionStore
	now    func() time.Time
}

func NewSessions(secret string, ttl time.Duration, store SessionStore) *Sessions {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{secret: []byte(secret), ttl: ttl, store: store, now: time.Now}
}

// Issue creates and records a new session for p.
func (s *Sessions) Issue(ctx context.Context, p Principal) (*Session, error) {
	if p.ID <= 0 || p.Name == "" || (p.Kind != KindAdmin && p.Kind != KindDriver) {
		return nil, errors.New("incomplete principal")
	}
	now := s.now()
	sess := &Session{ID: uuid.NewString(), ExpiresAt: now.Add(s.ttl)}
	p.SessionID = sess.ID
	sess.Principal = p

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Name: p.Name,
		Kind: p.Kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.ID, 10),
			ID:        sess.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	})
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	if err := s.store.Save(ctx, sess.ID, s.ttl); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	sess.Token = signed
	return sess, nil
}

// Verify returns the principal of a live session token.
func (s *Sessions) Verify(ctx context.Context, token string) (*Principal, error) {
	p, err := parseJWT(token, s.secret)
	if err != nil {
		return nil, err
	}
	ok, err := s.store.Exists(ctx, p.SessionID)
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if !ok {
		return nil, ErrRevoked
	}
	return p, nil
}

// Revoke ends the session of p.
func (s *Sessions) Revoke(ctx context.Context, p *Principal) error {
	if p == nil || p.SessionID == "" {
		return nil
	}
	return s.store.Delete(ctx, p.SessionID)
}

// VerifyFromMD authenticates a gRPC call from its Bearer metadata.
func (s *Sessions) VerifyFromMD(ctx context.Context) (*Principal, error) {
	tok, err := BearerFromMD(ctx)
	if err != nil {
		return nil, err
	}
	return s.Verify(ctx, tok)
}
