package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "polyform-sync"

// Claims is a room ticket: it admits one session into a space with an access
// mode ("edit" or "view").
type Claims struct {
	SpaceID   string `json:"space_id"`
	SessionID string `json:"session_id"`
	Mode      string `json:"mode"`
	jwt.RegisteredClaims
}

func (c *Claims) CanEdit() bool {
	return c.Mode == "edit"
}

func GenerateToken(spaceID, sessionID, mode string, expiration time.Duration, secret string) (string, error) {
	if spaceID == "" {
		return "", errors.New("space id is required")
	}
	if sessionID == "" {
		return "", errors.New("session id is required")
	}

	now := time.Now()
	claims := Claims{
		SpaceID:   spaceID,
		SessionID: sessionID,
		Mode:      mode,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   spaceID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign ticket: %w", err)
	}

	return signed, nil
}

func ValidateToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("invalid ticket: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid ticket claims")
	}

	return claims, nil
}
