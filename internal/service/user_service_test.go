package service

import (
	"context"
	"testing"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCreateUser(t *testing.T) {
	svc := NewUserService(newFakeUserRepo(), newFakeTokenRepo())

	resp, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Username:   "clerk1",
		Email:      "clerk1@court.gov.vn",
		Phone:      "+84901234567",
		Department: "Civil Division",
		Password:   "secret123",
		Role:       model.RoleStaff,
	})
	require.NoError(t, err)
	assert.Equal(t, "clerk1", resp.Username)
	assert.Equal(t, model.RoleStaff, resp.Role)
	assert.Equal(t, "Civil Division", resp.Department)
}

func TestCreateUserValidation(t *testing.T) {
	existing := &model.User{ID: uuid.New(), Username: "clerk1", Email: "clerk1@court.gov.vn", Role: model.RoleStaff}
	svc := NewUserService(newFakeUserRepo(existing), newFakeTokenRepo())
	ctx := context.Background()

	base := CreateUserRequest{
		Username: "clerk2",
		Email:    "clerk2@court.gov.vn",
		Password: "secret123",
		Role:     model.RoleStaff,
	}

	badRole := base
	badRole.Role = "supervisor"
	_, err := svc.CreateUser(ctx, badRole)
	assert.EqualError(t, err, "invalid role")

	approver := base
	approver.Role = model.ApproverRoleForLevel(3)
	_, err = svc.CreateUser(ctx, approver)
	assert.NoError(t, err)

	dupUsername := base
	dupUsername.Username = "clerk1"
	dupUsername.Email = "other@court.gov.vn"
	_, err = svc.CreateUser(ctx, dupUsername)
	assert.EqualError(t, err, "username already exists")

	dupEmail := base
	dupEmail.Username = "clerk3"
	dupEmail.Email = "clerk1@court.gov.vn"
	_, err = svc.CreateUser(ctx, dupEmail)
	assert.EqualError(t, err, "email already exists")
}

func seedLoginUser(t *testing.T, password string) (*fakeUserRepo, *model.User) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &model.User{
		ID:       uuid.New(),
		Username: "clerk1",
		Email:    "clerk1@court.gov.vn",
		Password: string(hash),
		Role:     model.RoleStaff,
	}
	return newFakeUserRepo(user), user
}

func TestLogin(t *testing.T) {
	userRepo, _ := seedLoginUser(t, "secret123")
	tokenRepo := newFakeTokenRepo()
	svc := NewUserService(userRepo, tokenRepo)

	tokens, err := svc.Login(context.Background(), LoginUserRequest{
		Email:    "clerk1@court.gov.vn",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.Token)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Len(t, tokenRepo.tokens, 1)
}

func TestLoginWrongPassword(t *testing.T) {
	userRepo, _ := seedLoginUser(t, "secret123")
	svc := NewUserService(userRepo, newFakeTokenRepo())

	_, err := svc.Login(context.Background(), LoginUserRequest{
		Email:    "clerk1@court.gov.vn",
		Password: "wrong",
	})
	assert.EqualError(t, err, "invalid email or password")
}

func TestRefreshTokenRotation(t *testing.T) {
	userRepo, _ := seedLoginUser(t, "secret123")
	tokenRepo := newFakeTokenRepo()
	svc := NewUserService(userRepo, tokenRepo)
	ctx := context.Background()

	tokens, err := svc.Login(ctx, LoginUserRequest{Email: "clerk1@court.gov.vn", Password: "secret123"})
	require.NoError(t, err)

	rotated, err := svc.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	// The presented token is consumed; replaying it fails
	_, err = svc.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	assert.EqualError(t, err, "invalid refresh token")
}

func TestLogoutRevokesToken(t *testing.T) {
	userRepo, _ := seedLoginUser(t, "secret123")
	tokenRepo := newFakeTokenRepo()
	svc := NewUserService(userRepo, tokenRepo)
	ctx := context.Background()

	tokens, err := svc.Login(ctx, LoginUserRequest{Email: "clerk1@court.gov.vn", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, tokens.RefreshToken))
	assert.Empty(t, tokenRepo.tokens)
}

func TestDeleteUserRevokesTokens(t *testing.T) {
	userRepo, user := seedLoginUser(t, "secret123")
	tokenRepo := newFakeTokenRepo()
	svc := NewUserService(userRepo, tokenRepo)
	ctx := context.Background()

	_, err := svc.Login(ctx, LoginUserRequest{Email: "clerk1@court.gov.vn", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(ctx, user.ID.String()))
	assert.Empty(t, tokenRepo.tokens)
	_, err = svc.GetUserByID(ctx, user.ID.String())
	assert.Error(t, err)
}
