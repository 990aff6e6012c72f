package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crm-whatsapp/crm-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 10)
	now := time.Now()
	sess := &domain.Session{ID: "sid-1", Username: "ana", Role: domain.RoleAdmin, CreatedAt: now, ExpiresAt: now.Add(tm.TTL())}

	token, err := tm.GenerateToken(sess)
	require.NoError(t, err)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", claims.SessionID)
	assert.Equal(t, "ana", claims.Username)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
}

func TestParseToken_Rejects(t *testing.T) {
	tm := NewTokenManager("secret", 10)
	now := time.Now()

	t.Run("other secret", func(t *testing.T) {
		token, err := NewTokenManager("other", 10).GenerateToken(&domain.Session{ID: "x", CreatedAt: now, ExpiresAt: now.Add(time.Minute)})
		require.NoError(t, err)
		_, err = tm.ParseToken(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := tm.GenerateToken(&domain.Session{ID: "x", CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(-time.Minute)})
		require.NoError(t, err)
		_, err = tm.ParseToken(token)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tm.ParseToken("not-a-token")
		assert.Error(t, err)
	})
}
