// Package auth is the authentication collaborator adapter. The relay core
// never validates credentials itself; inbound events reach it with an
// identity already resolved by this package at the transport boundary.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ParticipantClaims is the identity payload carried by a session token.
type ParticipantClaims struct {
	ParticipantID string `json:"participant_id"`
	DisplayName   string `json:"display_name"`
	jwt.RegisteredClaims
}

type TokenService struct {
	secret   []byte
	lifetime time.Duration
}

func NewTokenService(secret []byte, lifetime time.Duration) *TokenService {
	return &TokenService{secret: secret, lifetime: lifetime}
}

// Issue creates a signed session token for a participant.
func (s *TokenService) Issue(participantID, displayName string) (string, error) {
	now := time.Now()
	claims := &ParticipantClaims{
		ParticipantID: participantID,
		DisplayName:   displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "chat-relay",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses and validates signature and expiry, returning the identity
// claims carried by the token.
func (s *TokenService) Verify(tokenString string) (*ParticipantClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ParticipantClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*ParticipantClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}
