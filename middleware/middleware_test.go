package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/blogicum/config"
	"github.com/cppla/blogicum/policy"
	"github.com/cppla/blogicum/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testConfig = config.AppConfig{JWTSecret: "secret", AdminUsernames: []string{"root"}, LoginURL: "/auth/login/"}

func whoami(ctx *gin.Context) {
	r := CurrentRequester(ctx)
	ctx.JSON(http.StatusOK, gin.H{"id": r.UserID, "staff": r.Staff})
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdentify(t *testing.T) {
	blacklist := utils.NewTokenBlacklist(nil)
	r := gin.New()
	r.Use(Identify(testConfig, blacklist))
	r.GET("/", whoami)

	token, err := utils.GenerateToken("secret", policy.Requester{UserID: 5, Username: "root", Staff: true}, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.JSONEq(t, `{"id":5,"staff":true}`, serve(r, req).Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
	assert.JSONEq(t, `{"id":5,"staff":true}`, serve(r, req).Body.String())

	// A staff name without the staff claim is an ordinary user.
	plain, err := utils.GenerateToken("secret", policy.Requester{UserID: 6, Username: "root"}, time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+plain)
	assert.JSONEq(t, `{"id":6,"staff":false}`, serve(r, req).Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	assert.JSONEq(t, `{"id":0,"staff":false}`, serve(r, req).Body.String())

	blacklist.Revoke(context.Background(), token, time.Now().Add(time.Hour))
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.JSONEq(t, `{"id":0,"staff":false}`, serve(r, req).Body.String())
}

func TestLoginRequired(t *testing.T) {
	r := gin.New()
	r.Use(Identify(testConfig, nil))
	r.GET("/posts/create/", LoginRequired("/auth/login/"), whoami)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/posts/create/?x=1", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login/?next=%2Fposts%2Fcreate%2F%3Fx%3D1", w.Header().Get("Location"))
}

func TestStaffRequired(t *testing.T) {
	r := gin.New()
	r.Use(func(ctx *gin.Context) {
		switch ctx.GetHeader("X-Test-User") {
		case "staff":
			ctx.Set(ContextRequesterKey, policy.Requester{UserID: 1, Staff: true})
		case "user":
			ctx.Set(ContextRequesterKey, policy.Requester{UserID: 2})
		}
	})
	r.GET("/admin", StaffRequired(), whoami)

	for header, want := range map[string]int{"": http.StatusUnauthorized, "user": http.StatusForbidden, "staff": http.StatusOK} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("X-Test-User", header)
		assert.Equal(t, want, serve(r, req).Code, "user %q", header)
	}
}

func TestRateLimiter(t *testing.T) {
	l := NewRateLimiter(4)
	r := gin.New()
	r.Use(l.Middleware())
	r.POST("/", whoami)
	r.GET("/", whoami)

	codes := []int{}
	for i := 0; i < 3; i++ {
		codes = append(codes, serve(r, httptest.NewRequest(http.MethodPost, "/", nil)).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)

	assert.True(t, l.Allow("another-client"))
}

func TestRateLimiterSweepsIdleClients(t *testing.T) {
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(60)
	l.now = func() time.Time { return clock }

	require.True(t, l.Allow("a"))
	clock = clock.Add(time.Minute)
	require.True(t, l.Allow("b"))
	assert.Len(t, l.clients, 2)

	clock = clock.Add(limiterIdle)
	require.True(t, l.Allow("b"))
	assert.Len(t, l.clients, 1, "a expired and was swept")
	assert.Contains(t, l.clients, "b")

	clock = clock.Add(time.Minute)
	l.clients["stale"] = &clientLimiter{expires: clock.Add(-time.Hour)}
	require.True(t, l.Allow("b"))
	assert.Contains(t, l.clients, "stale", "no sweep before limiterIdle has passed")
}
