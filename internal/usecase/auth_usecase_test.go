package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"medical-office-api/config"
	"medical-office-api/internal/delivery/dto"
	"medical-office-api/internal/domain/entity"
	"medical-office-api/internal/infrastructure/cache"
	"medical-office-api/internal/service"
	"medical-office-api/pkg/jwt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type authFixture struct {
	uc     AuthUsecase
	users  *fakeUserRepo
	tokens *fakeTokenStore
	audit  *fakeAuditRepo
	jwt    *jwt.JWTService
	user   *entity.User
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret!"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := &entity.User{
		ID:       uuid.New(),
		RoleID:   entity.RoleIDSecretary,
		Email:    "secretary@medical-office.local",
		Password: string(hash),
		FullName: "Front Desk",
		IsActive: true,
	}

	f := &authFixture{
		users:  newFakeUserRepo(user),
		tokens: newFakeTokenStore(),
		audit:  &fakeAuditRepo{},
		jwt: jwt.NewJWTService(config.JWTConfig{
			Secret: "test-secret", AccessExpiry: 15 * time.Minute, RefreshExpiry: time.Hour,
		}),
		user: user,
	}
	f.uc = NewAuthUsecase(&fakeTransactor{}, quietLogger(), f.users,
		service.NewAuditService(quietLogger(), f.audit), f.jwt, f.tokens)
	return f
}

func TestLoginIssuesStoredTokens(t *testing.T) {
	f := newAuthFixture(t)

	resp, err := f.uc.Login(context.Background(), &dto.LoginRequest{Email: " Secretary@Medical-Office.local ", Password: "s3cret!"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Fatalf("ExpiresIn = %d", resp.ExpiresIn)
	}

	claims, err := f.jwt.ValidateToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.RoleID != entity.RoleIDSecretary || claims.UserID != f.user.ID {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if f.tokens.count(cache.AccessTokenKind) != 1 || f.tokens.count(cache.RefreshTokenKind) != 1 {
		t.Fatalf("tokens not stored: %v", f.tokens.tokens)
	}
	if actions := f.audit.actions(); len(actions) != 1 || actions[0] != entity.AuditActionUserLogin {
		t.Fatalf("unexpected audit %v", actions)
	}
}

func TestLoginRejections(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if _, err := f.uc.Login(ctx, &dto.LoginRequest{Email: f.user.Email, Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, err := f.uc.Login(ctx, &dto.LoginRequest{Email: "nobody@example.com", Password: "s3cret!"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: %v", err)
	}

	f.user.IsActive = false
	if _, err := f.uc.Login(ctx, &dto.LoginRequest{Email: f.user.Email, Password: "s3cret!"}); !errors.Is(err, ErrUserInactive) {
		t.Fatalf("inactive user: %v", err)
	}
}

func TestRefreshTokenRotates(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	login, err := f.uc.Login(ctx, &dto.LoginRequest{Email: f.user.Email, Password: "s3cret!"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	refreshed, err := f.uc.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Fatal("refresh token should rotate")
	}

	if _, err := f.uc.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: login.RefreshToken}); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("reused refresh token: %v", err)
	}
	if _, err := f.uc.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: login.AccessToken}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token used to refresh: %v", err)
	}
}

func TestLogoutRevokesBothTokens(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	login, err := f.uc.Login(ctx, &dto.LoginRequest{Email: f.user.Email, Password: "s3cret!"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	access, err := f.jwt.ValidateToken(login.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}

	if err := f.uc.Logout(ctx, f.user.ID, access.TokenID, &dto.LogoutRequest{RefreshToken: login.RefreshToken}); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if len(f.tokens.tokens) != 0 {
		t.Fatalf("tokens left after logout: %v", f.tokens.tokens)
	}
	if _, err := f.uc.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: login.RefreshToken}); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("refresh after logout: %v", err)
	}
}

func TestGetCurrentUser(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	resp, err := f.uc.GetCurrentUser(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("GetCurrentUser: %v", err)
	}
	if resp.Role != entity.RoleSecretary || resp.Email != f.user.Email {
		t.Fatalf("unexpected user %+v", resp)
	}

	if _, err := f.uc.GetCurrentUser(ctx, uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown user: %v", err)
	}
}
