package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims Claims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuthenticate_ValidToken(t *testing.T) {
	owner := uuid.New()
	token := signToken(t, Claims{
		Sub: owner.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testSecret)

	var gotOwner uuid.UUID
	var gotOK bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOwner, gotOK = OwnerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	m := NewJWTMiddleware(testSecret, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	m.Authenticate(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, gotOK)
	assert.Equal(t, owner, gotOwner)
}

type fakeRegistry struct {
	ids    []uuid.UUID
	emails []string
}

func (f *fakeRegistry) Ensure(_ context.Context, id uuid.UUID, email string) error {
	f.ids = append(f.ids, id)
	f.emails = append(f.emails, email)
	return nil
}

func TestAuthenticate_RecordsUser(t *testing.T) {
	owner := uuid.New()
	token := signToken(t, Claims{
		Sub:   owner.String(),
		Email: "dev@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testSecret)

	reg := &fakeRegistry{}
	m := NewJWTMiddleware(testSecret, reg)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)

	require.Len(t, reg.ids, 1)
	assert.Equal(t, owner, reg.ids[0])
	assert.Equal(t, "dev@example.com", reg.emails[0])
}

func TestAuthenticate_MissingToken(t *testing.T) {
	m := NewJWTMiddleware(testSecret, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	m.Authenticate(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("next handler must not run")
	})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticate_WrongSecret(t *testing.T) {
	token := signToken(t, Claims{Sub: uuid.NewString()}, "other-secret")

	m := NewJWTMiddleware(testSecret, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	m.Authenticate(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("next handler must not run")
	})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticate_NonUUIDSubject(t *testing.T) {
	token := signToken(t, Claims{Sub: "not-a-uuid"}, testSecret)

	m := NewJWTMiddleware(testSecret, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	m.Authenticate(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("next handler must not run")
	})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
