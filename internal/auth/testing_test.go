package auth

import (
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database/dbtest"
	"github.com/mrlokans/library/internal/database/users"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testPassword = "correct-horse-battery"

func testConfig() config.Auth {
	return config.Auth{
		AccessTokenSecret:  "access-secret-access-secret-0123456789",
		RefreshTokenSecret: "refresh-secret-refresh-secret-0123456789",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    7 * 24 * time.Hour,
		BcryptCost:         bcrypt.MinCost,
		SecureCookies:      false,
		MaxLoginAttempts:   5,
		RateLimitWindow:    15 * time.Minute,
		LockoutDuration:    30 * time.Minute,
	}
}

func setupService(t *testing.T) (*Service, *users.Repository) {
	t.Helper()
	cfg := testConfig()
	repo := users.NewRepository(dbtest.New(t).DB)
	return NewService(repo, NewTokenIssuer(cfg), cfg, nil), repo
}
