package auth

import (
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "chat-relay/errors"
)

func Test_CredentialStore_Claim_Then_Verify(t *testing.T) {
	req := require.New(t)
	store := NewCredentialStore()

	req.False(store.Known("alice"))
	req.NoError(store.Register("alice", "open sesame"))
	req.True(store.Known("alice"))

	req.NoError(store.Verify("alice", "open sesame"))
	req.ErrorIs(store.Verify("alice", "wrong"), apperrors.ErrInvalidPassword)
}

func Test_CredentialStore_Claimed_Id_Cannot_Be_Reclaimed(t *testing.T) {
	req := require.New(t)
	store := NewCredentialStore()

	req.NoError(store.Register("alice", "first"))
	req.ErrorIs(store.Register("alice", "second"), apperrors.ErrInvalidPassword)

	// The original password still holds
	req.NoError(store.Verify("alice", "first"))
}

func Test_CredentialStore_Unknown_Id_Fails_Verification(t *testing.T) {
	req := require.New(t)
	store := NewCredentialStore()

	req.ErrorIs(store.Verify("ghost", "whatever"), apperrors.ErrInvalidPassword)
}

func Test_CredentialStore_Rejects_Empty_Password(t *testing.T) {
	req := require.New(t)
	store := NewCredentialStore()

	req.ErrorIs(store.Register("alice", ""), apperrors.ErrInvalidPassword)
	req.False(store.Known("alice"))
}
