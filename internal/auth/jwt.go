package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	AccessToken  = "access"
	RefreshToken = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID    uint   `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 access/refresh tokens.
type Tokens struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	now func() time.Time
}

func NewTokens(secret string, accessTTL, refreshTTL time.Duration) *Tokens {
	return &Tokens{Secret: []byte(secret), AccessTTL: accessTTL, RefreshTTL: refreshTTL, now: time.Now}
}

type Pair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (t *Tokens) Issue(userID uint) (Pair, error) {
	access, err := t.sign(userID, AccessToken, t.AccessTTL)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := t.sign(userID, RefreshToken, t.RefreshTTL)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

// Access mints a fresh access token from a valid refresh token.
func (t *Tokens) Access(refresh string) (string, error) {
	claims, err := t.Parse(refresh, RefreshToken)
	if err != nil {
		return "", err
	}
	return t.sign(claims.UserID, AccessToken, t.AccessTTL)
}

func (t *Tokens) sign(userID uint, kind string, ttl time.Duration) (string, error) {
	now := t.clock()
	claims := Claims{
		UserID:    userID,
		TokenType: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.Secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return s, nil
}

// Parse verifies signature, expiry and token type.
func (t *Tokens) Parse(tokenStr, kind string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return t.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.clock))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != kind || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (t *Tokens) clock() time.Time {
	if t.now == nil {
		return time.Now()
	}
	return t.now()
}
