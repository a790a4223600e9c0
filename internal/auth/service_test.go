package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	pkgAuth "github.com/harvestlink/harvestlink-backend/pkg/auth"
	"github.com/harvestlink/harvestlink-backend/pkg/auth/session"
	"github.com/harvestlink/harvestlink-backend/pkg/config"
	"github.com/harvestlink/harvestlink-backend/pkg/db/models"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
	pkgerrors "github.com/harvestlink/harvestlink-backend/pkg/errors"
	"github.com/harvestlink/harvestlink-backend/pkg/security"
)

var testPasswordCfg = config.PasswordConfig{
	ArgonMemoryKB:    8 * 1024,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

var testJWTCfg = config.JWTConfig{
	Secret:                 "secret",
	Issuer:                 "harvestlink",
	ExpirationMinutes:      15,
	RefreshTokenTTLMinutes: 60,
}

type stubUserRepo struct {
	user      *models.User
	lastLogin time.Time
}

func (s *stubUserRepo) FindByLogin(_ context.Context, login string) (*models.User, error) {
	if s.user != nil && (login == s.user.Username || login == s.user.Email) {
		return s.user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) UpdateLastLogin(_ context.Context, _ uuid.UUID, at time.Time) error {
	s.lastLogin = at
	return nil
}

type fakeSessions struct {
	sessions map[string]string
	owners   map[string]uuid.UUID
	revoked  []string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]string{}, owners: map[string]uuid.UUID{}}
}

func (f *fakeSessions) Generate(_ context.Context, accessID string, userID uuid.UUID) (string, error) {
	token := "refresh-" + accessID
	f.sessions[accessID] = token
	f.owners[accessID] = userID
	return token, nil
}

func (f *fakeSessions) Rotate(ctx context.Context, oldAccessID, provided string) (session.Rotation, error) {
	if f.sessions[oldAccessID] != provided || provided == "" {
		return session.Rotation{}, session.ErrInvalidRefreshToken
	}
	owner := f.owners[oldAccessID]
	delete(f.sessions, oldAccessID)
	next := session.NewAccessID()
	token, _ := f.Generate(ctx, next, owner)
	return session.Rotation{UserID: owner, AccessID: next, RefreshToken: token}, nil
}

func (f *fakeSessions) Revoke(_ context.Context, accessID string) error {
	f.revoked = append(f.revoked, accessID)
	delete(f.sessions, accessID)
	return nil
}

func newTestUser(t *testing.T) *models.User {
	t.Helper()
	hash, err := security.HashPassword("harvest-time", testPasswordCfg)
	require.NoError(t, err)
	return &models.User{
		ID:           uuid.New(),
		Username:     "greenacres",
		Email:        "farm@example.com",
		PasswordHash: hash,
		Role:         enums.UserRoleFarmer,
	}
}

func newTestService(t *testing.T, repo *stubUserRepo, sessions *fakeSessions) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{UserRepo: repo, SessionManager: sessions, JWTConfig: testJWTCfg})
	require.NoError(t, err)
	return svc
}

func TestLoginByUsernameOrEmail(t *testing.T) {
	user := newTestUser(t)
	repo := &stubUserRepo{user: user}
	sessions := newFakeSessions()
	svc := newTestService(t, repo, sessions)

	for _, login := range []string{"greenacres", "FARM@example.com"} {
		resp, err := svc.Login(context.Background(), LoginRequest{Login: login, Password: "harvest-time"})
		require.NoError(t, err, login)
		assert.Equal(t, user.ID, resp.User.ID)
		assert.NotEmpty(t, resp.RefreshToken)

		claims, err := pkgAuth.ParseAccessToken(testJWTCfg, resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, enums.UserRoleFarmer, claims.Role)
		assert.Equal(t, "refresh-"+claims.ID, resp.RefreshToken)
	}
	assert.False(t, repo.lastLogin.IsZero())
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t, &stubUserRepo{user: newTestUser(t)}, newFakeSessions())

	_, err := svc.Login(context.Background(), LoginRequest{Login: "greenacres", Password: "nope"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = svc.Login(context.Background(), LoginRequest{Login: "nobody", Password: "harvest-time"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = svc.Login(context.Background(), LoginRequest{Login: " ", Password: "harvest-time"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestRefreshRotatesSession(t *testing.T) {
	user := newTestUser(t)
	sessions := newFakeSessions()
	svc := newTestService(t, &stubUserRepo{user: user}, sessions)

	login, err := svc.Login(context.Background(), LoginRequest{Login: "greenacres", Password: "harvest-time"})
	require.NoError(t, err)

	pair, err := svc.Refresh(context.Background(), login.AccessToken, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, pair.RefreshToken)

	_, err = svc.Refresh(context.Background(), login.AccessToken, login.RefreshToken)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = svc.Refresh(context.Background(), "garbage", pair.RefreshToken)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestLogoutRevokes(t *testing.T) {
	sessions := newFakeSessions()
	svc := newTestService(t, &stubUserRepo{}, sessions)

	require.NoError(t, svc.Logout(context.Background(), "access-1"))
	assert.Equal(t, []string{"access-1"}, sessions.revoked)
	assert.True(t, pkgerrors.IsCode(svc.Logout(context.Background(), ""), pkgerrors.CodeUnauthorized))
}

func TestMe(t *testing.T) {
	user := newTestUser(t)
	svc := newTestService(t, &stubUserRepo{user: user}, newFakeSessions())

	dto, err := svc.Me(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "greenacres", dto.Username)

	_, err = svc.Me(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
