package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/bigblink-erp/bigblink-erp/internal/shared"
)

type memoryRepo struct {
	users  map[int64]User
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: map[int64]User{}, nextID: 1}
}

func (m *memoryRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memoryRepo) FindByID(_ context.Context, id int64) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &u, nil
}

func (m *memoryRepo) Create(_ context.Context, u User) (int64, error) {
	if existing, _ := m.FindByEmail(context.Background(), u.Email); existing != nil {
		return 0, ErrEmailTaken
	}
	u.ID = m.nextID
	u.IsActive = true
	m.nextID++
	m.users[u.ID] = u
	return u.ID, nil
}

func (m *memoryRepo) List(_ context.Context) ([]User, error) {
	var out []User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memoryRepo) SetActive(_ context.Context, id int64, active bool) error {
	u, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.IsActive = active
	m.users[id] = u
	return nil
}

func seedUser(t *testing.T, repo *memoryRepo, email, password, role string) User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	id, err := repo.Create(context.Background(), User{Email: email, Name: "Test User", Role: role, PasswordHash: string(hash)})
	require.NoError(t, err)
	return repo.users[id]
}

func TestAuthenticateAndParseToken(t *testing.T) {
	repo := newMemoryRepo()
	seedUser(t, repo, "finance@bigblink.test", "s3cret-pass", RoleFinance)
	svc := NewService(repo, "test-secret", time.Hour)

	token, user, err := svc.Authenticate(context.Background(), "finance@bigblink.test", "s3cret-pass")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, RoleFinance, user.Role)

	actor, err := svc.ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, user.ID, actor.ID)
	require.Equal(t, "finance@bigblink.test", actor.Email)
	require.Equal(t, RoleFinance, actor.Role)
}

func TestAuthenticateRejectsBadPassword(t *testing.T) {
	repo := newMemoryRepo()
	seedUser(t, repo, "finance@bigblink.test", "s3cret-pass", RoleFinance)
	svc := NewService(repo, "test-secret", time.Hour)

	_, _, err := svc.Authenticate(context.Background(), "finance@bigblink.test", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateRejectsInactiveUser(t *testing.T) {
	repo := newMemoryRepo()
	u := seedUser(t, repo, "finance@bigblink.test", "s3cret-pass", RoleFinance)
	require.NoError(t, repo.SetActive(context.Background(), u.ID, false))
	svc := NewService(repo, "test-secret", time.Hour)

	_, _, err := svc.Authenticate(context.Background(), "finance@bigblink.test", "s3cret-pass")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	repo := newMemoryRepo()
	seedUser(t, repo, "finance@bigblink.test", "s3cret-pass", RoleFinance)
	svc := NewService(repo, "test-secret", time.Hour)

	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.WithNow(func() time.Time { return issued })
	token, _, err := svc.Authenticate(context.Background(), "finance@bigblink.test", "s3cret-pass")
	require.NoError(t, err)

	svc.WithNow(func() time.Time { return issued.Add(2 * time.Hour) })
	_, err = svc.ParseToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	repo := newMemoryRepo()
	seedUser(t, repo, "finance@bigblink.test", "s3cret-pass", RoleFinance)
	svc := NewService(repo, "test-secret", time.Hour)
	other := NewService(repo, "other-secret", time.Hour)

	token, _, err := svc.Authenticate(context.Background(), "finance@bigblink.test", "s3cret-pass")
	require.NoError(t, err)
	_, err = other.ParseToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRegisterValidatesRoleAndPassword(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, "test-secret", time.Hour)

	_, err := svc.Register(context.Background(), "ops@bigblink.test", "Ops", "SUPERUSER", "longenough")
	require.Error(t, err)

	_, err = svc.Register(context.Background(), "ops@bigblink.test", "Ops", RoleOps, "short")
	require.Error(t, err)

	user, err := svc.Register(context.Background(), "Ops@Bigblink.Test", "Ops", RoleOps, "longenough")
	require.NoError(t, err)
	require.Equal(t, "ops@bigblink.test", user.Email)

	_, err = svc.Register(context.Background(), "ops@bigblink.test", "Ops Two", RoleOps, "longenough")
	require.Error(t, err)
}
