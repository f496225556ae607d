package accounts

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ResetTokenTTL is how long an emailed reset token stays redeemable.
const ResetTokenTTL = 10 * time.Minute

// SessionClaims are the claims embedded in a session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	UID string `json:"uid,omitempty"`
}

// UserID returns the user the token was issued for.
func (c *SessionClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject
}

// TokenService issues and verifies signed session tokens, and issues
// and hashes one-time password reset tokens. It performs no I/O;
// persisting reset hashes is the caller's responsibility.
type TokenService struct {
	signingKey []byte
	sessionTTL time.Duration
	issuer     string
	logger     Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, sessionTTL time.Duration, issuer string, logger Logger) *TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenService{
		signingKey: signingKey,
		sessionTTL: sessionTTL,
		issuer:     issuer,
		logger:     logger,
	}
}

// IssueSession produces a signed token embedding the user id and issue
// time, expiring after the configured session duration.
func (ts *TokenService) IssueSession(userID string) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.sessionTTL)),
		},
		UID: userID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign session token")
	}

	return signed, nil
}

// VerifySession verifies signature, issuer and expiry, returning the
// decoded claims. Expired and tampered tokens come back as auth-category
// errors, not panics; the caller decides how to surface them.
func (ts *TokenService) VerifySession(raw string) (*SessionClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("VerifySession unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, goerrors.Wrap(err, goerrors.CategoryAuth, "session token is expired").
				WithCode(goerrors.CodeUnauthorized).
				WithTextCode(TextCodeTokenExpired)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryAuth, "session token is malformed").
			WithCode(goerrors.CodeUnauthorized).
			WithTextCode(TextCodeTokenMalformed)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		ts.logger.Error("VerifySession could not decode claims")
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// IssueResetToken generates a high-entropy one-time secret. The
// plaintext is for the reset email, the hash and expiry are for the
// user record; the plaintext is never persisted.
func (ts *TokenService) IssueResetToken() (plaintext, hash string, expires time.Time, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", time.Time{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate reset token")
	}

	plaintext = hex.EncodeToString(buf)
	return plaintext, ts.HashResetToken(plaintext), time.Now().Add(ResetTokenTTL), nil
}

// HashResetToken is the deterministic transform used to look up a
// stored reset token by the plaintext a user presents.
func (ts *TokenService) HashResetToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
