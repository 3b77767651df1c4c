package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_HashPassword_Then_Compare(t *testing.T) {
	req := require.New(t)

	hash, err := HashPassword("correct horse battery staple")
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	ok, err := ComparePassword("correct horse battery staple", hash)
	req.NoError(err)
	req.True(ok)

	ok, err = ComparePassword("wrong password", hash)
	req.NoError(err)
	req.False(ok)
}

func Test_HashPassword_Salts_Are_Unique(t *testing.T) {
	req := require.New(t)

	first, err := HashPassword("same input")
	req.NoError(err)
	second, err := HashPassword("same input")
	req.NoError(err)

	req.NotEqual(first, second)
}

func Test_ComparePassword_Rejects_Malformed_Hash(t *testing.T) {
	req := require.New(t)

	_, err := ComparePassword("anything", "not-an-encoded-hash")
	req.Error(err)

	_, err = ComparePassword("anything", "$argon2id$v=19$m=65536,t=3,p=2$notbase64!!$hash")
	req.Error(err)
}
