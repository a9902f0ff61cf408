package service

import (
	"context"
	"testing"
	"time"

	"laundry/internal/apperror"
	"laundry/internal/model"
	"laundry/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	users  map[uuid.UUID]model.User
	tokens map[string]model.RefreshToken
	pruned int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]model.User{}, tokens: map[string]model.RefreshToken{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	ensureID(&user.ID)
	user.CreatedAt, user.UpdatedAt = testNow, testNow
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *fakeUserRepo) find(match func(model.User) bool) (*model.User, error) {
	for _, u := range r.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Email == email })
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Username == username })
}

func (r *fakeUserRepo) List(_ context.Context, page repository.Page) ([]model.User, int64, error) {
	var rows []model.User
	for _, u := range r.users {
		rows = append(rows, u)
	}
	return paginate(rows, page), int64(len(rows)), nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) SaveRefreshToken(_ context.Context, token *model.RefreshToken) error {
	r.tokens[token.Token] = *token
	return nil
}

func (r *fakeUserRepo) FindRefreshToken(_ context.Context, token string) (*model.RefreshToken, error) {
	t, ok := r.tokens[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (r *fakeUserRepo) DeleteRefreshToken(_ context.Context, token string) error {
	delete(r.tokens, token)
	return nil
}

func (r *fakeUserRepo) DeleteExpiredRefreshTokens(_ context.Context, now time.Time) error {
	for k, t := range r.tokens {
		if t.ExpiresAt.Before(now) {
			delete(r.tokens, k)
			r.pruned++
		}
	}
	return nil
}

var testTokens = TokenConfig{Secret: []byte("user-service-secret"), AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour}

func newUserFixture(t *testing.T) (*fakeUserRepo, UserService, *UserResponse) {
	t.Helper()
	repo := newFakeUserRepo()
	svc := NewUserService(repo, testTokens, fixedClock)
	branch := uuid.NewString()
	user, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Username: "counter1",
		Email:    "Counter1@Example.com",
		Phone:    "+16502530000",
		Password: "s3cret-pass",
		Role:     model.RoleStaff,
		BranchID: branch,
	})
	require.NoError(t, err)
	return repo, svc, user
}

func TestLoginIssuesSignedClaims(t *testing.T) {
	repo, svc, user := newUserFixture(t)

	tokens, err := svc.Login(context.Background(), LoginUserRequest{Email: "counter1@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	parsed, err := jwt.Parse(tokens.AccessToken, func(*jwt.Token) (interface{}, error) { return testTokens.Secret, nil },
		jwt.WithTimeFunc(fixedClock))
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, user.ID.String(), claims["sub"])
	assert.Equal(t, model.RoleStaff, claims["role"])
	assert.Equal(t, *user.BranchID, claims["branch_id"])
	assert.Equal(t, testNow.Add(time.Hour).Format(timeLayout), tokens.ExpiresAt)

	assert.Len(t, tokens.RefreshToken, 64)
	assert.Contains(t, repo.tokens, tokens.RefreshToken)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	_, svc, _ := newUserFixture(t)

	_, err := svc.Login(context.Background(), LoginUserRequest{Email: "counter1@example.com", Password: "wrong"})
	requireAppError(t, err, apperror.KindUnauthorized, apperror.CodeInvalidCredentials)

	_, err = svc.Login(context.Background(), LoginUserRequest{Email: "nobody@example.com", Password: "s3cret-pass"})
	requireAppError(t, err, apperror.KindUnauthorized, apperror.CodeInvalidCredentials)
}

func TestRefreshRotatesToken(t *testing.T) {
	repo, svc, _ := newUserFixture(t)
	ctx := context.Background()
	first, err := svc.Login(ctx, LoginUserRequest{Email: "counter1@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	second, err := svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.NotContains(t, repo.tokens, first.RefreshToken)

	_, err = svc.Refresh(ctx, first.RefreshToken)
	requireAppError(t, err, apperror.KindUnauthorized, apperror.CodeInvalidCredentials)

	require.NoError(t, svc.Logout(ctx, second.RefreshToken))
	assert.Empty(t, repo.tokens)
}

func TestRefreshRejectsExpiredToken(t *testing.T) {
	repo, svc, user := newUserFixture(t)
	repo.tokens["stale"] = model.RefreshToken{UserID: user.ID, Token: "stale", ExpiresAt: testNow.Add(-time.Minute)}

	_, err := svc.Refresh(context.Background(), "stale")
	requireAppError(t, err, apperror.KindUnauthorized, apperror.CodeInvalidCredentials)
	assert.NotContains(t, repo.tokens, "stale")
}

func TestCreateUserRejectsDuplicates(t *testing.T) {
	_, svc, _ := newUserFixture(t)

	_, err := svc.CreateUser(context.Background(), CreateUserRequest{Username: "counter1", Email: "other@example.com", Password: "password1", Role: model.RoleStaff})
	requireAppError(t, err, apperror.KindConflict, apperror.CodeDuplicateUser)

	_, err = svc.CreateUser(context.Background(), CreateUserRequest{Username: "other", Email: "counter1@example.com", Password: "password1", Role: model.RoleStaff})
	requireAppError(t, err, apperror.KindConflict, apperror.CodeDuplicateUser)
}

func TestUpdateAndDeleteUser(t *testing.T) {
	repo, svc, user := newUserFixture(t)
	ctx := context.Background()

	updated, err := svc.UpdateUser(ctx, user.ID.String(), UpdateUserRequest{Role: model.RoleManager, Email: "Lead@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleManager, updated.Role)
	assert.Equal(t, "lead@example.com", updated.Email)

	require.NoError(t, svc.DeleteUser(ctx, user.ID.String()))
	assert.Empty(t, repo.users)

	_, err = svc.GetUserByID(ctx, user.ID.String())
	requireAppError(t, err, apperror.KindNotFound, apperror.CodeUserNotFound)
}
