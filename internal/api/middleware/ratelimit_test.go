package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/saturnlabs/docchat/internal/auth"
)

func limited(rl *RateLimiter, r *http.Request) int {
	rec := httptest.NewRecorder()
	rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, r)
	return rec.Code
}

func ownerRequest(owner uuid.UUID) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	return req.WithContext(auth.WithOwner(req.Context(), owner))
}

func TestOwnerKey(t *testing.T) {
	owner := uuid.New()
	assert.Equal(t, "owner:"+owner.String(), OwnerKey(ownerRequest(owner)))

	anon := httptest.NewRequest(http.MethodGet, "/", nil)
	anon.RemoteAddr = "203.0.113.9:51407"
	assert.Equal(t, "host:203.0.113.9", OwnerKey(anon), "port is not part of the bucket key")
}

func TestRateLimiter_BurstExhaustion(t *testing.T) {
	rl := NewRateLimiter(0, 2, OwnerKey) // zero refill, the burst is all there is
	owner := uuid.New()

	assert.Equal(t, http.StatusOK, limited(rl, ownerRequest(owner)))
	assert.Equal(t, http.StatusOK, limited(rl, ownerRequest(owner)))
	assert.Equal(t, http.StatusTooManyRequests, limited(rl, ownerRequest(owner)))
}

func TestRateLimiter_BucketsAreIndependent(t *testing.T) {
	rl := NewRateLimiter(0, 1, OwnerKey)
	first := uuid.New()
	second := uuid.New()

	assert.Equal(t, http.StatusOK, limited(rl, ownerRequest(first)))
	assert.Equal(t, http.StatusTooManyRequests, limited(rl, ownerRequest(first)))
	assert.Equal(t, http.StatusOK, limited(rl, ownerRequest(second)), "another owner keeps their own budget")
}

func TestRateLimiter_SameHostSharesBucket(t *testing.T) {
	rl := NewRateLimiter(0, 1, OwnerKey)

	req1 := httptest.NewRequest(http.MethodGet, "/", nil)
	req1.RemoteAddr = "203.0.113.9:40001"
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.RemoteAddr = "203.0.113.9:40002"

	assert.Equal(t, http.StatusOK, limited(rl, req1))
	assert.Equal(t, http.StatusTooManyRequests, limited(rl, req2), "a new connection is not a fresh budget")
}
