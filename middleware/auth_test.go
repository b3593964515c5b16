package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drills-server/config"
)

var testAuth = config.AuthConfig{
	JWTSigningKey: "test-signing-key",
	Issuer:        "https://auth.test/realms/drills",
	CookieName:    "drills_id",
}

func signToken(t *testing.T, key string, c claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

func validClaims(sub string, roles ...string) claims {
	return claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    testAuth.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(testAuth), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": UserID(c)})
	})
	r.GET("/admin", AuthMiddleware(testAuth), RoleCheckMiddleware([]string{"admin"}), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	expired := validClaims("u1")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	wrongIssuer := validClaims("u1")
	wrongIssuer.Issuer = "https://elsewhere"
	noSubject := validClaims("")

	tests := []struct {
		name       string
		header     string
		cookie     string
		wantStatus int
		wantBody   string
	}{
		{"bearer header", "Bearer " + signToken(t, testAuth.JWTSigningKey, validClaims("u1")), "", http.StatusOK, `{"user":"u1"}`},
		{"cookie", "", signToken(t, testAuth.JWTSigningKey, validClaims("u2")), http.StatusOK, `{"user":"u2"}`},
		{"missing", "", "", http.StatusUnauthorized, `{"error":"Authorization header required"}`},
		{"bad scheme", "Token abc", "", http.StatusUnauthorized, `{"error":"Authorization header format must be Bearer {token}"}`},
		{"wrong key", "Bearer " + signToken(t, "other-key", validClaims("u1")), "", http.StatusUnauthorized, `{"error":"Invalid token signature"}`},
		{"expired", "Bearer " + signToken(t, testAuth.JWTSigningKey, expired), "", http.StatusUnauthorized, `{"error":"Token expired"}`},
		{"wrong issuer", "Bearer " + signToken(t, testAuth.JWTSigningKey, wrongIssuer), "", http.StatusUnauthorized, `{"error":"Invalid token issuer"}`},
		{"no subject", "Bearer " + signToken(t, testAuth.JWTSigningKey, noSubject), "", http.StatusUnauthorized, `{"error":"Token has no subject"}`},
		{"garbage", "Bearer not-a-jwt", "", http.StatusUnauthorized, `{"error":"Invalid token"}`},
	}
	r := newRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: testAuth.CookieName, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestRoleCheckMiddleware(t *testing.T) {
	r := newRouter()

	tests := []struct {
		name       string
		roles      []string
		wantStatus int
	}{
		{"admin", []string{"student", "admin"}, http.StatusNoContent},
		{"student", []string{"student"}, http.StatusForbidden},
		{"no roles", nil, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, testAuth.JWTSigningKey, validClaims("u1", tt.roles...)))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
