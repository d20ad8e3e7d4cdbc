package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solperp/permitgate/internal/model"
)

func TestInMemStoreLockAndSave(t *testing.T) {
	store := NewInMemIdempotencyStore()

	rec, hit := store.GetOrLock("t1:key")
	assert.False(t, hit)
	assert.Nil(t, rec)

	// Second caller sees the in-flight lock.
	rec, hit = store.GetOrLock("t1:key")
	require.True(t, hit)
	assert.True(t, rec.Processing)

	store.Save("t1:key", 200, []byte(`{"ok":true}`))

	rec, hit = store.GetOrLock("t1:key")
	require.True(t, hit)
	assert.False(t, rec.Processing)
	assert.Equal(t, 200, rec.Status)
	assert.Equal(t, `{"ok":true}`, string(rec.Body))
}

func TestInMemStoreUnlock(t *testing.T) {
	store := NewInMemIdempotencyStore()

	_, hit := store.GetOrLock("t1:key")
	require.False(t, hit)

	store.Unlock("t1:key")

	_, hit = store.GetOrLock("t1:key")
	assert.False(t, hit)
}

func idemRouter(store IdempotencyStore) (*gin.Engine, *int) {
	gin.SetMode(gin.TestMode)
	calls := 0

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextTenantKey, &model.Tenant{ID: "t1"})
	})
	r.Use(IdempotencyMiddleware(store))
	r.POST("/sign", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"nonce": strconv.Itoa(calls)})
	})
	return r, &calls
}

func TestIdempotencyReplaysResponse(t *testing.T) {
	r, calls := idemRouter(NewInMemIdempotencyStore())

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sign", nil)
	req.Header.Set(HeaderIdempotencyKey, "abc")
	r.ServeHTTP(first, req)

	second := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/sign", nil)
	req2.Header.Set(HeaderIdempotencyKey, "abc")
	r.ServeHTTP(second, req2)

	assert.Equal(t, 1, *calls)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestIdempotencyMissingHeaderPassesThrough(t *testing.T) {
	r, calls := idemRouter(NewInMemIdempotencyStore())

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/sign", nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, 2, *calls)
}

func TestIdempotencyKeysScopedByTenant(t *testing.T) {
	store := NewInMemIdempotencyStore()
	gin.SetMode(gin.TestMode)
	calls := 0

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextTenantKey, &model.Tenant{ID: c.GetHeader("X-Test-Tenant")})
	})
	r.Use(IdempotencyMiddleware(store))
	r.POST("/sign", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{})
	})

	for _, tenant := range []string{"t1", "t2"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/sign", nil)
		req.Header.Set(HeaderIdempotencyKey, "same-key")
		req.Header.Set("X-Test-Tenant", tenant)
		r.ServeHTTP(w, req)
	}

	assert.Equal(t, 2, calls)
}
