package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func Test_Issue_Then_Verify_Round_Trip(t *testing.T) {
	req := require.New(t)
	service := NewTokenService([]byte("unit-test-secret"), time.Hour)

	token, err := service.Issue("alice", "Alice")
	req.NoError(err)
	req.NotEmpty(token)

	claims, err := service.Verify(token)
	req.NoError(err)
	req.Equal("alice", claims.ParticipantID)
	req.Equal("Alice", claims.DisplayName)
	req.Equal("chat-relay", claims.Issuer)
}

func Test_Verify_Rejects_Wrong_Secret(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenService([]byte("secret-one"), time.Hour)
	verifier := NewTokenService([]byte("secret-two"), time.Hour)

	token, err := issuer.Issue("alice", "Alice")
	req.NoError(err)

	_, err = verifier.Verify(token)
	req.Error(err)
}

func Test_Verify_Rejects_Expired_Token(t *testing.T) {
	req := require.New(t)
	service := NewTokenService([]byte("unit-test-secret"), -time.Minute)

	token, err := service.Issue("alice", "Alice")
	req.NoError(err)

	_, err = service.Verify(token)
	req.ErrorIs(err, jwt.ErrTokenExpired)
}

func Test_Verify_Rejects_Garbage(t *testing.T) {
	req := require.New(t)
	service := NewTokenService([]byte("unit-test-secret"), time.Hour)

	_, err := service.Verify("not.a.token")
	req.Error(err)
}
