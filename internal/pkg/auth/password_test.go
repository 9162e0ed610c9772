package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/marketplace-backend/internal/config"
	"golang.org/x/crypto/bcrypt"
)

func newPasswordManager() *PasswordManager {
	cfg := &config.Config{}
	cfg.Security.BcryptCost = bcrypt.MinCost
	return NewPasswordManager(cfg)
}

func TestHashAndVerifyPassword(t *testing.T) {
	pm := newPasswordManager()

	hash, err := pm.HashPassword("Str0ng&Secret")
	require.NoError(t, err)
	assert.NotEqual(t, "Str0ng&Secret", hash)

	assert.NoError(t, pm.VerifyPassword("Str0ng&Secret", hash))
	assert.Error(t, pm.VerifyPassword("wrong-password", hash))
}

func TestValidatePassword(t *testing.T) {
	pm := newPasswordManager()

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"strong password", "Str0ng&Secret", false},
		{"too short", "S0g&t", true},
		{"no uppercase", "str0ng&secret", true},
		{"no lowercase", "STR0NG&SECRET", true},
		{"no number", "Strong&Secret", true},
		{"no special character", "Str0ngSecret", true},
		{"sequential numbers", "Valid&pw456X", true},
		{"sequential letters", "Vabc&pw9X", true},
		{"repeating characters", "Vaaa&pw9X", true},
		{"common password", "Password&9", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pm.ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
