package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "s3cret"

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"tenant_id": TenantID(c).String(), "admin": IsAdmin(c)})
	})
	r.GET("/", handlers...)
	return r
}

func serve(r *gin.Engine, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestAuthRequired(t *testing.T) {
	tenant := uuid.New()
	r := newEngine(AuthRequired(secret))

	valid := sign(t, jwt.SigningMethodHS256, []byte(secret), Claims{TenantID: tenant.String()})
	w := serve(r, "Authorization", "Bearer "+valid)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), tenant.String())

	tests := []struct {
		name  string
		value string
	}{
		{"missing bearer prefix", valid},
		{"wrong secret", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), Claims{TenantID: tenant.String()})},
		{"wrong algorithm", "Bearer " + sign(t, jwt.SigningMethodHS512, []byte(secret), Claims{TenantID: tenant.String()})},
		{"expired", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), Claims{
			TenantID:         tenant.String(),
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
		})},
		{"no tenant", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), Claims{Role: RoleAdmin})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, "Authorization", tt.value)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAdminRequired(t *testing.T) {
	r := newEngine(AuthRequired(secret), AdminRequired())

	user := sign(t, jwt.SigningMethodHS256, []byte(secret), Claims{TenantID: uuid.NewString()})
	assert.Equal(t, http.StatusForbidden, serve(r, "Authorization", "Bearer "+user).Code)

	admin := sign(t, jwt.SigningMethodHS256, []byte(secret), Claims{TenantID: uuid.NewString(), Role: RoleAdmin})
	w := serve(r, "Authorization", "Bearer "+admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"admin":true`)
}

func TestTriggerAuth(t *testing.T) {
	r := newEngine(TriggerAuth("tok"))

	assert.Equal(t, http.StatusOK, serve(r, "X-Trigger-Token", "tok").Code)
	assert.Equal(t, http.StatusOK, serve(r, "Authorization", "Bearer tok").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "X-Trigger-Token", "nope").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "", "").Code)

	disabled := newEngine(TriggerAuth(""))
	assert.Equal(t, http.StatusForbidden, serve(disabled, "X-Trigger-Token", "").Code)
}
