package services

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// defaultTokenTTL is the fixed validity window of a session token.
const defaultTokenTTL = 24 * time.Hour

// TokenService issues and verifies stateless session tokens. Tokens are
// HS256 JWTs binding an account id for 24 hours; nothing is persisted
// server-side.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret []byte) *TokenService {
	return &TokenService{
		secret: secret,
		ttl:    defaultTokenTTL,
		now:    time.Now,
	}
}

// Issue produces a signed token for the account, valid for 24 hours.
func (s *TokenService) Issue(accountID int) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(accountID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks the token signature and validity window and returns the
// embedded account id. It is side-effect free.
func (s *TokenService) Verify(tokenString string) (int, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrTokenInvalid
	}
	if !token.Valid {
		return 0, ErrTokenInvalid
	}

	accountID, err := strconv.Atoi(strings.TrimSpace(claims.Subject))
	if err != nil || accountID < 1 {
		return 0, ErrTokenInvalid
	}
	return accountID, nil
}
