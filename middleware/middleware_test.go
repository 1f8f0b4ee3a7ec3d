package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var secret = []byte("middleware-secret")

func init() {
	gin.SetMode(gin.TestMode)
}

func sign(t *testing.T, key []byte, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func protected() *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthMiddleware(secret), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(UserIDKey))
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	userID := primitive.NewObjectID().Hex()
	valid := sign(t, secret, jwt.MapClaims{"userId": userID, "exp": time.Now().Add(time.Hour).Unix()})

	tests := []struct {
		name   string
		setup  func(*http.Request)
		status int
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+valid) }, http.StatusOK},
		{"cookie fallback", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: TokenCookieName, Value: valid}) }, http.StatusOK},
		{"missing token", func(*http.Request) {}, http.StatusUnauthorized},
		{"wrong secret", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+sign(t, []byte("other"), jwt.MapClaims{"userId": userID}))
		}, http.StatusUnauthorized},
		{"expired", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+sign(t, secret, jwt.MapClaims{"userId": userID, "exp": time.Now().Add(-time.Minute).Unix()}))
		}, http.StatusUnauthorized},
		{"malformed user id", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+sign(t, secret, jwt.MapClaims{"userId": "42"}))
		}, http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tc.setup(req)
			w := httptest.NewRecorder()
			protected().ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, userID, w.Body.String())
			}
		})
	}
}

func TestSetAuthCookie(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	SetAuthCookie(c, "abc", time.Hour, true)

	cookie := w.Result().Cookies()[0]
	assert.Equal(t, TokenCookieName, cookie.Name)
	assert.Equal(t, "abc", cookie.Value)
	assert.Equal(t, 3600, cookie.MaxAge)
	assert.True(t, cookie.Secure)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteNoneMode, cookie.SameSite)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestAdminSecret(t *testing.T) {
	handler := func(expected, given string) int {
		r := gin.New()
		r.POST("/admin", AdminSecret(expected), func(c *gin.Context) { c.Status(http.StatusCreated) })
		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		if given != "" {
			req.Header.Set(AdminSecretHeader, given)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusCreated, handler("s3cret", "s3cret"))
	assert.Equal(t, http.StatusForbidden, handler("s3cret", "nope"))
	assert.Equal(t, http.StatusForbidden, handler("s3cret", ""))
	assert.Equal(t, http.StatusInternalServerError, handler("", "anything"))
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/boom", func(*gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "kaboom")
}

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(2, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, left, _ := l.Allow(ctx, "1.2.3.4")
	assert.False(t, ok)
	assert.Equal(t, time.Minute, left)

	ok, _, _ = l.Allow(ctx, "5.6.7.8")
	assert.True(t, ok, "keys are independent")

	now = now.Add(61 * time.Second)
	ok, _, _ = l.Allow(ctx, "1.2.3.4")
	assert.True(t, ok, "new window")
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	return false, 0, errors.New("redis down")
}

func TestRateLimiter(t *testing.T) {
	serve := func(l Limiter) *httptest.ResponseRecorder {
		r := gin.New()
		r.Use(RateLimiter(l))
		r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		return w
	}

	l := NewMemoryLimiter(1, time.Minute)
	assert.Equal(t, http.StatusOK, serve(l).Code)
	w := serve(l)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, serve(failingLimiter{}).Code)
}
