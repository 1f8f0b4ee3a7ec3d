package service_test

import (
	"context"
	"testing"

	"calmatevibes-api/dto"
	"calmatevibes-api/models"
	"calmatevibes-api/repository"
	"calmatevibes-api/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func TestLogin(t *testing.T) {
	ctx := context.Background()
	auth := service.NewAuthService(repository.NewMemoryUserRepository(), testSecret)

	created, err := auth.CreateUser(ctx, dto.CreateUserRequest{
		Email: "Admin@CalmateVibes.com", Password: "supersecreta", Username: "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, "admin@calmatevibes.com", created.Email)
	assert.Equal(t, "light", created.Theme)

	resp, ttl, err := auth.Login(ctx, dto.LoginRequest{Email: "admin@calmatevibes.com", Password: "supersecreta"})
	require.NoError(t, err)
	assert.Equal(t, service.SessionTTL, ttl)
	assert.Equal(t, created.ID, resp.User.ID)

	token, err := jwt.Parse(resp.Token, func(*jwt.Token) (interface{}, error) { return testSecret, nil })
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, created.ID, claims["userId"])

	_, ttl, err = auth.Login(ctx, dto.LoginRequest{Email: "admin@calmatevibes.com", Password: "supersecreta", RememberMe: true})
	require.NoError(t, err)
	assert.Equal(t, service.RememberTTL, ttl)

	_, _, err = auth.Login(ctx, dto.LoginRequest{Email: "admin@calmatevibes.com", Password: "otra"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, _, err = auth.Login(ctx, dto.LoginRequest{Email: "nadie@calmatevibes.com", Password: "x"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	auth := service.NewAuthService(repository.NewMemoryUserRepository(), testSecret)

	req := dto.CreateUserRequest{Email: "a@b.com", Password: "12345678", Username: "ana"}
	_, err := auth.CreateUser(ctx, req)
	require.NoError(t, err)

	_, err = auth.CreateUser(ctx, req)
	assert.ErrorIs(t, err, models.ErrEmailTaken)
	assert.Equal(t, models.CodeNameTaken, models.ErrorCode(err))
}

func TestMe(t *testing.T) {
	ctx := context.Background()
	auth := service.NewAuthService(repository.NewMemoryUserRepository(), testSecret)

	created, err := auth.CreateUser(ctx, dto.CreateUserRequest{Email: "yo@b.com", Password: "12345678", Username: "yo"})
	require.NoError(t, err)

	me, err := auth.Me(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "yo", me.Username)

	_, err = auth.Me(ctx, "not-an-id")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	users := repository.NewMemoryUserRepository()
	auth := service.NewAuthService(users, testSecret)

	require.NoError(t, auth.EnsureAdmin(ctx, "", ""))
	require.NoError(t, auth.EnsureAdmin(ctx, "root@calmatevibes.com", "cambiame123"))
	require.NoError(t, auth.EnsureAdmin(ctx, "root@calmatevibes.com", "otra-clave"))

	u, err := users.FindByEmail(ctx, "root@calmatevibes.com")
	require.NoError(t, err)
	assert.Equal(t, "root", u.Username)

	_, _, err = auth.Login(ctx, dto.LoginRequest{Email: "root@calmatevibes.com", Password: "cambiame123"})
	assert.NoError(t, err, "existing admin is left untouched")
}
