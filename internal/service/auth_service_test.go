package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/academy-manager/academy-api/internal/models"
	appErrors "github.com/academy-manager/academy-api/pkg/errors"
)

var testAuthConfig = AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "academy-api"}

func hashed(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	users := newMemUsers(models.User{ID: "123", Email: "user@example.com", PasswordHash: hashed(t, "password"), Active: true, Role: models.RoleAdmin})
	pd := &fakePersonalData{records: map[string]*models.PersonalData{"123": withDisability("123", "")}}
	svc := NewAuthService(users, pd, nil, validator.New(), zap.NewNop(), testAuthConfig)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "USER@example.com", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, "Ana Lopez", res.User.FullName)

	claims, err := svc.ValidateToken(context.Background(), res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "123", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "academy-api", claims.Issuer)
}

func TestAuthServiceLoginFailures(t *testing.T) {
	users := newMemUsers(
		models.User{ID: "1", Email: "off@example.com", PasswordHash: hashed(t, "password"), Active: false, Role: models.RoleStudent},
		models.User{ID: "2", Email: "on@example.com", PasswordHash: hashed(t, "password"), Active: true, Role: models.RoleStudent},
	)
	svc := NewAuthService(users, &fakePersonalData{}, nil, nil, nil, testAuthConfig)
	ctx := context.Background()

	_, err := svc.Login(ctx, models.LoginRequest{Email: "off@example.com", Password: "password"})
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "on@example.com", Password: "wrong"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "ghost@example.com", Password: "password"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRegister(t *testing.T) {
	db, mock := newTxMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	users := newMemUsers()
	pd := &fakePersonalData{}
	svc := NewAuthService(users, pd, db, nil, nil, testAuthConfig)

	res, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "New@Example.com",
		Password: "secret123",
		PersonalData: PersonalDataRequest{
			FirstName:            "Luis",
			LastName:             "Garcia",
			NationalID:           "12345678Z",
			DisabilityPercentage: decPtr("40"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, res.User.Role)
	assert.Equal(t, "new@example.com", res.User.Email)
	assert.Equal(t, "Luis Garcia", res.User.FullName)
	require.Len(t, pd.upserts, 1)
	assert.True(t, pd.upserts[0].DisabilityPercentage.Decimal.Equal(dec("40")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthServiceRegisterRollsBack(t *testing.T) {
	db, mock := newTxMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	users := newMemUsers()
	users.createErr = errors.New("connection lost")
	pd := &fakePersonalData{}
	svc := NewAuthService(users, pd, db, nil, nil, testAuthConfig)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:        "new@example.com",
		Password:     "secret123",
		PersonalData: PersonalDataRequest{FirstName: "Luis", LastName: "Garcia", NationalID: "1"},
	})
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Empty(t, pd.upserts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	users := newMemUsers(models.User{ID: "1", Email: "taken@example.com"})
	svc := NewAuthService(users, &fakePersonalData{}, nil, nil, nil, testAuthConfig)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:        "taken@example.com",
		Password:     "secret123",
		PersonalData: PersonalDataRequest{FirstName: "A", LastName: "B", NationalID: "1"},
	})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsForeignTokens(t *testing.T) {
	svc := NewAuthService(newMemUsers(models.User{ID: "u1", Role: models.RoleAdmin, Active: true}), &fakePersonalData{}, nil, nil, nil, testAuthConfig)

	other := NewAuthService(newMemUsers(), &fakePersonalData{}, nil, nil, nil, AuthConfig{AccessTokenSecret: "other", AccessTokenExpiry: time.Hour})
	token, _, err := other.generateAccessToken(&models.User{ID: "u1", Role: models.RoleAdmin}, "")
	require.NoError(t, err)
	_, err = svc.ValidateToken(context.Background(), token)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateToken(context.Background(), unsigned)
	assert.Error(t, err)

	expired := NewAuthService(newMemUsers(), &fakePersonalData{}, nil, nil, nil, AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: -time.Minute})
	token, _, err = expired.generateAccessToken(&models.User{ID: "u1", Role: models.RoleAdmin}, "")
	require.NoError(t, err)
	_, err = svc.ValidateToken(context.Background(), token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsDeactivatedUser(t *testing.T) {
	users := newMemUsers(models.User{ID: "123", Email: "admin@example.com", PasswordHash: hashed(t, "password"), Active: true, Role: models.RoleAdmin})
	auth := NewAuthService(users, &fakePersonalData{}, nil, nil, nil, testAuthConfig)
	directory := NewUserService(users, &fakePersonalData{}, nil, nil)
	ctx := context.Background()

	res, err := auth.Login(ctx, models.LoginRequest{Email: "admin@example.com", Password: "password"})
	require.NoError(t, err)
	_, err = auth.ValidateToken(ctx, res.AccessToken)
	require.NoError(t, err)

	require.NoError(t, directory.Delete(ctx, "123"))

	claims, err := auth.ValidateToken(ctx, res.AccessToken)
	assert.Nil(t, claims)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenUsesStoredRole(t *testing.T) {
	users := newMemUsers(models.User{ID: "u1", Email: "t@example.com", Active: true, Role: models.RoleAdmin})
	svc := NewAuthService(users, &fakePersonalData{}, nil, nil, nil, testAuthConfig)
	token, _, err := svc.generateAccessToken(&models.User{ID: "u1", Email: "t@example.com", Role: models.RoleAdmin}, "")
	require.NoError(t, err)

	demoted := users.byID["u1"]
	demoted.Role = models.RoleStudent
	users.byID["u1"] = demoted

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, claims.Role)

	delete(users.byID, "u1")
	_, err = svc.ValidateToken(context.Background(), token)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
