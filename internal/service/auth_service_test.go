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

	"github.com/noah-isme/tutorhub-api/internal/models"
	appErrors "github.com/noah-isme/tutorhub-api/pkg/errors"
)

type memoryIdentityStore struct {
	users       map[string]*models.User
	sessions    map[string]*models.RefreshSession
	auditLogs   []*models.AuditLog
	lastLogin   map[string]time.Time
	revokedAll  []string
	createErr   error
	findUserErr error
}

func newMemoryIdentityStore(users ...*models.User) *memoryIdentityStore {
	store := &memoryIdentityStore{
		users:     map[string]*models.User{},
		sessions:  map[string]*models.RefreshSession{},
		lastLogin: map[string]time.Time{},
	}
	for _, u := range users {
		store.users[u.ID] = u
	}
	return store
}

func (m *memoryIdentityStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryIdentityStore) FindByID(_ context.Context, id string) (*models.User, error) {
	if m.findUserErr != nil {
		return nil, m.findUserErr
	}
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryIdentityStore) UpdateLastLogin(_ context.Context, id string, ts time.Time) error {
	m.lastLogin[id] = ts
	return nil
}

func (m *memoryIdentityStore) UpdatePassword(_ context.Context, id, hash string, _ time.Time) error {
	m.users[id].PasswordHash = hash
	return nil
}

func (m *memoryIdentityStore) CreateSession(_ context.Context, s *models.RefreshSession) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.sessions[s.TokenHash] = s
	return nil
}

func (m *memoryIdentityStore) FindSession(_ context.Context, hash string) (*models.RefreshSession, error) {
	if s, ok := m.sessions[hash]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryIdentityStore) RevokeSession(_ context.Context, id string, at time.Time) error {
	for _, s := range m.sessions {
		if s.ID == id {
			s.Revoked = true
			s.RevokedAt = &at
		}
	}
	return nil
}

func (m *memoryIdentityStore) RevokeUserSessions(_ context.Context, userID string, at time.Time) error {
	m.revokedAll = append(m.revokedAll, userID)
	for _, s := range m.sessions {
		if s.UserID == userID {
			s.Revoked = true
			s.RevokedAt = &at
		}
	}
	return nil
}

func (m *memoryIdentityStore) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newAuthService(store identityStore, cfg AuthConfig) *AuthService {
	if cfg.AccessTokenSecret == "" {
		cfg.AccessTokenSecret = "secret"
	}
	cfg.BcryptCost = bcrypt.MinCost
	return NewAuthService(store, validator.New(), zap.NewNop(), cfg)
}

func TestAuthServiceLoginOpensHashedSession(t *testing.T) {
	store := newMemoryIdentityStore(&models.User{ID: "u1", Email: "t@example.com", PasswordHash: hashed(t, "password"), Active: true, Role: models.RoleTeacher})
	svc := newAuthService(store, AuthConfig{AccessTokenExpiry: time.Hour, RefreshTokenExpiry: 24 * time.Hour})

	session, err := svc.Login(context.Background(), models.Credentials{
		Email:      "t@example.com",
		Password:   "password",
		ClientInfo: models.ClientInfo{IP: "10.0.0.1", UserAgent: "curl"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", session.TokenType)
	assert.Equal(t, models.RoleTeacher, session.User.Role)
	assert.Contains(t, store.lastLogin, "u1")

	stored, ok := store.sessions[HashSessionToken(session.RefreshToken)]
	require.True(t, ok)
	assert.NotEqual(t, session.RefreshToken, stored.TokenHash)
	assert.Equal(t, "10.0.0.1", stored.IPAddress)
	require.Len(t, store.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogin, store.auditLogs[0].Action)

	claims, err := svc.ValidateToken(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}

func TestAuthServiceLoginRejections(t *testing.T) {
	store := newMemoryIdentityStore(
		&models.User{ID: "u1", Email: "on@example.com", PasswordHash: hashed(t, "password"), Active: true, Role: models.RoleStudent},
		&models.User{ID: "u2", Email: "off@example.com", PasswordHash: hashed(t, "password"), Active: false, Role: models.RoleStudent},
	)
	svc := newAuthService(store, AuthConfig{AccessTokenExpiry: time.Hour})

	cases := []struct {
		name  string
		creds models.Credentials
		code  string
	}{
		{"wrong password", models.Credentials{Email: "on@example.com", Password: "nope"}, appErrors.ErrInvalidCredentials.Code},
		{"unknown email", models.Credentials{Email: "ghost@example.com", Password: "password"}, appErrors.ErrInvalidCredentials.Code},
		{"inactive", models.Credentials{Email: "off@example.com", Password: "password"}, appErrors.ErrInactiveAccount.Code},
		{"malformed", models.Credentials{Email: "not-an-email"}, appErrors.ErrValidation.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tc.creds)
			require.Error(t, err)
			assert.Equal(t, tc.code, appErrors.FromError(err).Code)
		})
	}
	assert.Empty(t, store.sessions)
}

func TestAuthServiceSingleSessionRevokesPrevious(t *testing.T) {
	store := newMemoryIdentityStore(&models.User{ID: "u1", Email: "a@example.com", PasswordHash: hashed(t, "password"), Active: true, Role: models.RoleAdmin})
	svc := newAuthService(store, AuthConfig{AccessTokenExpiry: time.Hour, SingleSession: true})

	first, err := svc.Login(context.Background(), models.Credentials{Email: "a@example.com", Password: "password"})
	require.NoError(t, err)
	_, err = svc.Login(context.Background(), models.Credentials{Email: "a@example.com", Password: "password"})
	require.NoError(t, err)

	assert.True(t, store.sessions[HashSessionToken(first.RefreshToken)].Revoked)
	assert.Equal(t, []string{"u1", "u1"}, store.revokedAll)
}

func TestAuthServiceRefreshRotates(t *testing.T) {
	store := newMemoryIdentityStore(&models.User{ID: "u1", Email: "s@example.com", Active: true, Role: models.RoleStudent})
	store.sessions[HashSessionToken("token")] = &models.RefreshSession{ID: "rt1", UserID: "u1", TokenHash: HashSessionToken("token"), ExpiresAt: time.Now().Add(time.Hour)}
	svc := newAuthService(store, AuthConfig{AccessTokenExpiry: time.Hour, RefreshTokenExpiry: time.Hour})

	session, err := svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: "token"})
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEqual(t, "token", session.RefreshToken)
	assert.True(t, store.sessions[HashSessionToken("token")].Revoked)

	_, err = svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: "token"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshExpiredOrUnknown(t *testing.T) {
	store := newMemoryIdentityStore(&models.User{ID: "u1", Active: true, Role: models.RoleStudent})
	store.sessions[HashSessionToken("old")] = &models.RefreshSession{ID: "rt1", UserID: "u1", ExpiresAt: time.Now().Add(-time.Minute)}
	svc := newAuthService(store, AuthConfig{AccessTokenExpiry: time.Hour})

	for _, token := range []string{"old", "unknown"} {
		_, err := svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: token})
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
	}
}

func TestAuthServiceLogoutChecksOwner(t *testing.T) {
	store := newMemoryIdentityStore()
	store.sessions[HashSessionToken("mine")] = &models.RefreshSession{ID: "rt1", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}
	svc := newAuthService(store, AuthConfig{AccessTokenExpiry: time.Hour})

	err := svc.Logout(context.Background(), "u2", "mine", models.ClientInfo{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Logout(context.Background(), "u1", "mine", models.ClientInfo{}))
	assert.True(t, store.sessions[HashSessionToken("mine")].Revoked)
	assert.Equal(t, models.AuditActionLogout, store.auditLogs[0].Action)
}

func TestAuthServiceChangePassword(t *testing.T) {
	oldHash := hashed(t, "old-password")
	store := newMemoryIdentityStore(&models.User{ID: "u1", PasswordHash: oldHash, Active: true})
	svc := newAuthService(store, AuthConfig{AccessTokenExpiry: time.Hour})

	err := svc.ChangePassword(context.Background(), "u1", models.PasswordChange{OldPassword: "wrong-one", NewPassword: "newpassword"})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.ChangePassword(context.Background(), "u1", models.PasswordChange{OldPassword: "old-password", NewPassword: "newpassword"}))
	assert.NotEqual(t, oldHash, store.users["u1"].PasswordHash)
	assert.Equal(t, []string{"u1"}, store.revokedAll)
}

func TestAuthServiceMe(t *testing.T) {
	store := newMemoryIdentityStore(&models.User{ID: "u1", Email: "t@example.com", FullName: "Ayse", Role: models.RoleTeacher, Active: true})
	svc := newAuthService(store, AuthConfig{})

	info, err := svc.Me(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, info.Role)

	_, err = svc.Me(context.Background(), "nobody")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTokenIssuerRejectsForeignTokens(t *testing.T) {
	user := &models.User{ID: "u1", Role: models.RoleStudent}
	verifier := NewTokenIssuer(AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "tutorhub"})

	cases := map[string]*TokenIssuer{
		"foreign issuer": NewTokenIssuer(AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "other"}),
		"wrong secret":   NewTokenIssuer(AuthConfig{AccessTokenSecret: "nope", AccessTokenExpiry: time.Hour, Issuer: "tutorhub"}),
	}
	for name, issuer := range cases {
		t.Run(name, func(t *testing.T) {
			token, _, err := issuer.Sign(user)
			require.NoError(t, err)
			_, err = verifier.Parse(token)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
		})
	}
}

func TestTokenIssuerRejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer(AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Minute})
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _, err := issuer.Sign(&models.User{ID: "u1", Role: models.RoleAdmin})
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Parse(token)
	assert.Error(t, err)
}

func TestTokenIssuerOpaqueHashes(t *testing.T) {
	issuer := NewTokenIssuer(AuthConfig{AccessTokenSecret: "secret"})
	plain, hash, err := issuer.Opaque()
	require.NoError(t, err)
	assert.Len(t, hash, 64)
	assert.Equal(t, HashSessionToken(plain), hash)
}
