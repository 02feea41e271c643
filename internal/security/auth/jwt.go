package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identify a login session. RegisteredClaims.ID carries the session id.
type Claims struct {
	UserID   int64 `json:"user_id"`
	Remember bool  `json:"remember,omitempty"`
	jwt.RegisteredClaims
}

// SessionID returns the server-side session record the token refers to
func (c *Claims) SessionID() string {
	return c.ID
}

type TokenManager struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewTokenManager(secret, issuer string) *TokenManager {
	if secret == "" {
		secret = "change-me-in-production"
	}
	if issuer == "" {
		issuer = "grievanceportal"
	}
	return &TokenManager{secret: []byte(secret), issuer: issuer, now: time.Now}
}

func (tm *TokenManager) GenerateToken(userID int64, sessionID string, remember bool, expiresIn time.Duration) (string, error) {
	if userID <= 0 || sessionID == "" {
		return "", fmt.Errorf("user_id and session_id required")
	}
	now := tm.now()
	claims := Claims{
		UserID:   userID,
		Remember: remember,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			Issuer:    tm.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

func (tm *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	}, jwt.WithIssuer(tm.issuer), jwt.WithTimeFunc(tm.now))
	if err != nil {
		return nil, fmt.Errorf("parse token failed: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" || claims.UserID <= 0 {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
