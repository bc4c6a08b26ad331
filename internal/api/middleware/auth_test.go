package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/agencyhq/agencysite/internal/core/auth"
	"github.com/agencyhq/agencysite/internal/platform/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSessions struct {
	token   string
	session *auth.Session
	user    *auth.User
}

func (f *fakeSessions) CurrentSession(_ context.Context, token string) (*auth.Session, *auth.User, error) {
	if token != f.token {
		return nil, nil, auth.ErrUnauthorized
	}
	return f.session, f.user, nil
}

func newFake() *fakeSessions {
	user := &auth.User{ID: uuid.New(), Email: "admin@example.com"}
	return &fakeSessions{
		token:   "good-token",
		session: &auth.Session{ID: uuid.New(), UserID: user.ID},
		user:    user,
	}
}

func protectedEngine(sessions SessionAuthenticator) *gin.Engine {
	r := gin.New()
	r.Use(ClientInfo())
	r.GET("/admin", NewAuthMiddleware(sessions).Authenticate(), func(c *gin.Context) {
		userID, _ := GetUserID(c)
		sessionID, _ := GetSessionID(c)
		c.JSON(http.StatusOK, gin.H{"user": userID.String(), "session": sessionID.String()})
	})
	return r
}

func TestAuthenticate(t *testing.T) {
	fake := newFake()
	r := protectedEngine(fake)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"no token", "Bearer", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer good-token", http.StatusOK},
		{"scheme is case-insensitive", "bearer good-token", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Contains(t, w.Body.String(), fake.session.ID.String())
			}
		})
	}
}

func TestContextHelpers_NotSet(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	_, ok := GetUserID(c)
	assert.False(t, ok)
	_, ok = GetSessionID(c)
	assert.False(t, ok)
	assert.Nil(t, GetUser(c))

	c.Set(ContextUserID, "not-a-uuid")
	_, ok = GetUserID(c)
	assert.False(t, ok)
}

func TestClientInfo(t *testing.T) {
	r := gin.New()
	r.Use(ClientInfo())
	var got auth.Client
	r.GET("/", func(c *gin.Context) {
		got = GetClient(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	req.Header.Set("User-Agent", "curl/8")
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "203.0.113.7", got.IPAddress)
	assert.Equal(t, "curl/8", got.UserAgent)
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(ClientInfo(), RequestLogger(logger.Nop()))
	r.GET("/fail", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://admin.example.com"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://admin.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
