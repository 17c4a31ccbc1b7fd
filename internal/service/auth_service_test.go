package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/skillforge/skillforge-api/internal/models"
	"github.com/skillforge/skillforge-api/pkg/config"
	appErrors "github.com/skillforge/skillforge-api/pkg/errors"
)

type mockUserRepo struct {
	byEmail   map[string]*models.User
	byID      map[string]*models.User
	created   *models.User
	lastLogin map[string]time.Time
	passwords map[string]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		byEmail:   map[string]*models.User{},
		byID:      map[string]*models.User{},
		lastLogin: map[string]time.Time{},
		passwords: map[string]string{},
	}
}

func (m *mockUserRepo) add(u *models.User) {
	m.byEmail[u.Email] = u
	m.byID[u.ID] = u
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.byID[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "new-user"
	}
	m.created = user
	m.add(user)
	return nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, user *models.User) error {
	m.add(user)
	return nil
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLogin[id] = ts
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	m.passwords[id] = passwordHash
	if u, ok := m.byID[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Expiry: time.Hour, Issuer: "skillforge-test"}
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthServiceRegisterDefaultsToStudent(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testJWTConfig())

	result, err := svc.Register(context.Background(), models.RegisterRequest{
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, result.User.Role)
	assert.True(t, result.User.IsActive)
	assert.NotEmpty(t, result.Token)
	require.NotNil(t, repo.created)
	assert.NotEqual(t, "secret123", repo.created.PasswordHash)
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(&models.User{ID: "u1", Email: "taken@example.com"})
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testJWTConfig())

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Name:     "Someone",
		Email:    "taken@example.com",
		Password: "secret123",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Status, appErrors.FromError(err).Status)
}

func TestAuthServiceLogin(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(&models.User{
		ID:           "u1",
		Name:         "Ada",
		Email:        "ada@example.com",
		PasswordHash: hashPassword(t, "secret123"),
		Role:         models.RoleTeacher,
		IsActive:     true,
	})
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testJWTConfig())

	result, err := svc.Login(context.Background(), models.LoginRequest{Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Contains(t, repo.lastLogin, "u1")

	claims, err := svc.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(&models.User{ID: "u1", Email: "ada@example.com", PasswordHash: hashPassword(t, "secret123"), IsActive: true})
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testJWTConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ada@example.com", Password: "nope-nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Status, appErrors.FromError(err).Status)
}

func TestAuthServiceLoginUnknownEmailSameError(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testJWTConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ghost@example.com", Password: "whatever"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginDeactivatedAccount(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(&models.User{ID: "u1", Email: "ada@example.com", PasswordHash: hashPassword(t, "secret123"), IsActive: false})
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testJWTConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ada@example.com", Password: "secret123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceUpdateProfileReissuesToken(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(&models.User{ID: "u1", Name: "Ada", Email: "ada@example.com", IsActive: true})
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testJWTConfig())

	newName := "Ada L."
	result, err := svc.UpdateProfile(context.Background(), "u1", models.UpdateProfileRequest{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", result.User.Name)

	claims, err := svc.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", claims.Name)
}

func TestAuthServiceChangePassword(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(&models.User{ID: "u1", Email: "ada@example.com", PasswordHash: hashPassword(t, "old-secret"), IsActive: true})
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testJWTConfig())

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "new-secret",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Status, appErrors.FromError(err).Status)

	err = svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{
		CurrentPassword: "old-secret",
		NewPassword:     "new-secret",
	})
	require.NoError(t, err)
	assert.Contains(t, repo.passwords, "u1")
}

func TestAuthServiceAuthenticateRejectsInactive(t *testing.T) {
	repo := newMockUserRepo()
	user := &models.User{ID: "u1", Name: "Ada", Email: "ada@example.com", PasswordHash: hashPassword(t, "secret123"), IsActive: true}
	repo.add(user)
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testJWTConfig())

	result, err := svc.Login(context.Background(), models.LoginRequest{Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)

	claims, err := svc.Authenticate(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)

	user.IsActive = false
	_, err = svc.Authenticate(context.Background(), result.Token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsTampered(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testJWTConfig())

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Status, appErrors.FromError(err).Status)
}
