package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	secret := []byte("secret")
	token, err := GenerateToken("sess-1", secret, time.Minute)
	require.NoError(t, err)

	claims, err := ParseToken(token, secret)
	require.NoError(t, err)
	require.Equal(t, "sess-1", claims.SessionID)

	_, err = ParseToken(token, []byte("other"))
	require.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	token, err := GenerateToken("sess-1", []byte("secret"), -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(token, []byte("secret"))
	require.Error(t, err)
}
