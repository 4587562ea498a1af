package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"coursehub/internal/repository"
	"coursehub/pkg/models"
)

// fakeUserRepo keeps accounts in memory; the embedded interface covers
// methods the tests never reach
type fakeUserRepo struct {
	repository.UserRepository
	mu    sync.Mutex
	users map[string]*models.User // keyed by ID
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Username == user.Username {
			return fmt.Errorf("create_user: username already exists")
		}
	}
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("get_user: %w", models.ErrNotFound)
	}
	out := *user
	return &out, nil
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, fmt.Errorf("get_user: %w", models.ErrNotFound)
}

func (f *fakeUserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
	return nil
}

func newAuthServiceForTest() (AuthService, *fakeUserRepo) {
	repo := newFakeUserRepo()
	svc := NewAuthService(repo, "test-secret", "coursehub-test", time.Hour)
	return svc, repo
}

const goodPassword = "Str0ngPass!word"

func TestRegisterCreatesUser(t *testing.T) {
	svc, repo := newAuthServiceForTest()

	user, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "  ada  ",
		Email:    "Ada@Example.COM",
		Password: goodPassword,
	})
	require.NoError(t, err)

	assert.Equal(t, "ada", user.Username, "username must be trimmed")
	assert.Equal(t, "ada@example.com", user.Email, "email must be lowercased")
	assert.Equal(t, models.UserRoleUser, user.Role)
	assert.Empty(t, user.PasswordHash, "hash must not leave the service")

	stored, err := repo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(goodPassword)))
}

func TestRegisterRejectsBadInput(t *testing.T) {
	svc, _ := newAuthServiceForTest()

	cases := []struct {
		name string
		req  models.RegisterRequest
	}{
		{"short username", models.RegisterRequest{Username: "ab", Email: "a@b.com", Password: goodPassword}},
		{"bad email", models.RegisterRequest{Username: "ada", Email: "not-an-email", Password: goodPassword}},
		{"weak password", models.RegisterRequest{Username: "ada", Email: "a@b.com", Password: "short"}},
		{"password missing classes", models.RegisterRequest{Username: "ada", Email: "a@b.com", Password: "alllowercaseletters"}},
	}

	for _, tc := range cases {
		_, err := svc.Register(context.Background(), tc.req)
		assert.Error(t, err, tc.name)
	}
}

func TestRegisterRejectsTakenUsername(t *testing.T) {
	svc, _ := newAuthServiceForTest()

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "ada", Email: "ada@example.com", Password: goodPassword,
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), models.RegisterRequest{
		Username: "ada", Email: "other@example.com", Password: goodPassword,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUsernameTaken))
}

func TestLoginReturnsToken(t *testing.T) {
	svc, _ := newAuthServiceForTest()

	user, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "ada", Email: "ada@example.com", Password: goodPassword,
	})
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Username: "ada", Password: goodPassword,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, user.ID, resp.User.ID)
	assert.Equal(t, "ada", resp.User.Username)
	assert.Greater(t, resp.ExpiresIn, 0)
	assert.LessOrEqual(t, resp.ExpiresIn, 3600)
}

func TestLoginRejectsWrongCredentials(t *testing.T) {
	svc, _ := newAuthServiceForTest()

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "ada", Email: "ada@example.com", Password: goodPassword,
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{Username: "ada", Password: "Wrong0ne!pass"})
	assert.True(t, errors.Is(err, ErrInvalidCredentials))

	// Unknown accounts fail the same way as bad passwords
	_, err = svc.Login(context.Background(), models.LoginRequest{Username: "nobody", Password: goodPassword})
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
}

func TestValidateTokenRoundTrip(t *testing.T) {
	svc, _ := newAuthServiceForTest()

	user, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "ada", Email: "ada@example.com", Password: goodPassword,
	})
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "ada", Password: goodPassword})
	require.NoError(t, err)

	got, err := svc.ValidateToken(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "ada", got.Username)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc, _ := newAuthServiceForTest()

	_, err := svc.ValidateToken(context.Background(), "not.a.token")
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	svc, _ := newAuthServiceForTest()
	otherSvc := NewAuthService(newFakeUserRepo(), "other-secret", "coursehub-test", time.Hour)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "ada", Email: "ada@example.com", Password: goodPassword,
	})
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "ada", Password: goodPassword})
	require.NoError(t, err)

	_, err = otherSvc.ValidateToken(context.Background(), resp.Token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestValidateTokenDeletedUser(t *testing.T) {
	svc, repo := newAuthServiceForTest()

	user, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "ada", Email: "ada@example.com", Password: goodPassword,
	})
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "ada", Password: goodPassword})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(context.Background(), user.ID))

	_, err = svc.ValidateToken(context.Background(), resp.Token)
	assert.True(t, errors.Is(err, ErrInvalidToken), "a deleted account's token must stop working")
}
