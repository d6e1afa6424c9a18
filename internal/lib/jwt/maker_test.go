package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTMaker_GenerateAndParseToken_ValidCases(t *testing.T) {
	secretKey := "test_secret_key_1234567890"
	tokenTTL := 15 * time.Minute
	maker := NewJWTMaker(secretKey, tokenTTL)

	tests := []struct {
		name     string
		uid      string
		userName string
		role     string
	}{
		{
			name:     "admin user",
			uid:      "8c4a7e9d-0001-4d3b-9a51-a1b2c3d4e5f6",
			userName: "Администратор Библиотеки",
			role:     "admin",
		},
		{
			name:     "regular user",
			uid:      "8c4a7e9d-0002-4d3b-9a51-a1b2c3d4e5f6",
			userName: "Читатель Обычный",
			role:     "user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := maker.GenerateToken(tt.uid, tt.userName, tt.role)
			require.NoError(t, err)
			require.NotEmpty(t, token)

			claims, err := maker.ParseToken(token)
			require.NoError(t, err)
			assert.Equal(t, tt.uid, claims.UID)
			assert.Equal(t, tt.userName, claims.Name)
			assert.Equal(t, tt.role, claims.Role)
		})
	}
}

func TestJWTMaker_ParseToken_InvalidCases(t *testing.T) {
	maker := NewJWTMaker("test_secret_key_1234567890", 15*time.Minute)

	t.Run("garbage token", func(t *testing.T) {
		_, err := maker.ParseToken("not.a.token")
		require.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTMaker("another_secret_key", 15*time.Minute)
		token, err := other.GenerateToken("uid", "name", "user")
		require.NoError(t, err)

		_, err = maker.ParseToken(token)
		require.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := NewJWTMaker("test_secret_key_1234567890", -time.Minute)
		token, err := expired.GenerateToken("uid", "name", "user")
		require.NoError(t, err)

		_, err = maker.ParseToken(token)
		require.Error(t, err)
	})
}
