package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinebook/internal/shared/config"
	"cinebook/internal/users"
)

// mockRepository is an in-memory Repository for service tests.
type mockRepository struct {
	byEmail   map[string]*users.User
	byID      map[string]*users.User
	createErr error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		byEmail: make(map[string]*users.User),
		byID:    make(map[string]*users.User),
	}
}

func (m *mockRepository) CreateUser(ctx context.Context, user *users.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	m.byEmail[user.Email] = user
	m.byID[user.ID.String()] = user
	return nil
}

func (m *mockRepository) GetUserByEmail(ctx context.Context, email string) (*users.User, error) {
	user, ok := m.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (m *mockRepository) GetUserByID(ctx context.Context, id string) (*users.User, error) {
	user, ok := m.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (m *mockRepository) UpdateUserPassword(ctx context.Context, userID string, hashedPassword string) error {
	user, ok := m.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.Password = hashedPassword
	return nil
}

func (m *mockRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	_, ok := m.byEmail[email]
	return ok, nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:           "test-jwt-secret",
			JWTExpiresIn:     15 * time.Minute,
			RefreshExpiresIn: 24 * time.Hour,
		},
	}
}

func TestRegister(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, testConfig())
	ctx := context.Background()

	req := &RegisterRequest{
		FirstName: "Linh",
		LastName:  "Tran",
		Email:     "linh@example.com",
		Password:  "password123",
	}

	resp, err := svc.Register(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "linh@example.com", resp.User.Email)
	assert.Equal(t, string(users.RoleUser), resp.User.Role)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)

	// Self-registration never yields an admin and stores only a hash.
	stored := repo.byEmail["linh@example.com"]
	require.NotNil(t, stored)
	assert.Equal(t, users.RoleUser, stored.Role)
	assert.NotEqual(t, "password123", stored.Password)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, testConfig())
	ctx := context.Background()

	req := &RegisterRequest{
		FirstName: "Linh",
		LastName:  "Tran",
		Email:     "linh@example.com",
		Password:  "password123",
	}

	_, err := svc.Register(ctx, req)
	require.NoError(t, err)

	_, err = svc.Register(ctx, req)
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestLogin(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, testConfig())
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{
		FirstName: "Linh",
		LastName:  "Tran",
		Email:     "linh@example.com",
		Password:  "password123",
	})
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "valid credentials", email: "linh@example.com", password: "password123"},
		{name: "wrong password", email: "linh@example.com", password: "wrong", wantErr: ErrInvalidCredentials},
		{name: "unknown email", email: "nobody@example.com", password: "password123", wantErr: ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Login(ctx, &LoginRequest{Email: tt.email, Password: tt.password})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.email, resp.User.Email)
			assert.NotEmpty(t, resp.AccessToken)
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, testConfig())
	ctx := context.Background()

	resp, err := svc.Register(ctx, &RegisterRequest{
		FirstName: "Linh",
		LastName:  "Tran",
		Email:     "linh@example.com",
		Password:  "password123",
	})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, "linh@example.com", claims.Email)
	assert.Equal(t, "access", claims.Type)
	assert.Equal(t, "cinebook", claims.Issuer)
}

func TestRefreshTokenRejectsAccessToken(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, testConfig())
	ctx := context.Background()

	resp, err := svc.Register(ctx, &RegisterRequest{
		FirstName: "Linh",
		LastName:  "Tran",
		Email:     "linh@example.com",
		Password:  "password123",
	})
	require.NoError(t, err)

	// An access token must not be accepted on the refresh path.
	_, err = svc.RefreshToken(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	pair, err := svc.RefreshToken(ctx, resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
}

func TestChangePassword(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, testConfig())
	ctx := context.Background()

	resp, err := svc.Register(ctx, &RegisterRequest{
		FirstName: "Linh",
		LastName:  "Tran",
		Email:     "linh@example.com",
		Password:  "password123",
	})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, resp.User.ID, &ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "newpassword456",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = svc.ChangePassword(ctx, resp.User.ID, &ChangePasswordRequest{
		CurrentPassword: "password123",
		NewPassword:     "newpassword456",
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, &LoginRequest{Email: "linh@example.com", Password: "newpassword456"})
	assert.NoError(t, err)
}
