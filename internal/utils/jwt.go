package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MapTokenTTL is how long a map token stays valid after it is issued.
const MapTokenTTL = 24 * time.Hour

var ErrInvalidMapToken = errors.New("invalid map token")

// GenerateMapToken signs a token whose subject is the map id.
func GenerateMapToken(signingKey string, mapID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   mapID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(MapTokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(signingKey))
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// VerifyMapToken checks the signature and expiry of tokenStr and returns the map id it was issued for.
func VerifyMapToken(signingKey string, tokenStr string) (string, error) {
	claims := new(jwt.RegisteredClaims)
	_, err := jwt.NewParser(
		jwt.WithLeeway(5*time.Minute),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name})).
		ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("invalid signing method: %s", token.Header["alg"])
			}
			return []byte(signingKey), nil
		})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidMapToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: no subject", ErrInvalidMapToken)
	}
	return claims.Subject, nil
}
