package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, subject, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: subject})
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return s
}

func runAuth(t *testing.T, headers map[string]string) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var got string
	r := gin.New()
	r.Use(AuthMiddleware())
	r.GET("/", func(c *gin.Context) {
		got = GetUserID(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("middleware rejected request: status %d", w.Code)
	}
	return got
}

func TestAuthMiddleware(t *testing.T) {
	t.Run("bearer token subject", func(t *testing.T) {
		token := signedToken(t, "user-42", "any-key")
		if got := runAuth(t, map[string]string{"Authorization": "Bearer " + token}); got != "user-42" {
			t.Errorf("user id = %q, want user-42", got)
		}
	})

	t.Run("verified subject with configured secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s3cret")
		token := signedToken(t, "user-7", "s3cret")
		if got := runAuth(t, map[string]string{"Authorization": "Bearer " + token}); got != "user-7" {
			t.Errorf("user id = %q, want user-7", got)
		}
	})

	t.Run("bad signature ignored when secret configured", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s3cret")
		token := signedToken(t, "user-7", "wrong-key")
		// 验签失败不拒绝请求，只是不提取身份
		if got := runAuth(t, map[string]string{"Authorization": "Bearer " + token}); got != "" {
			t.Errorf("user id = %q, want empty", got)
		}
	})

	t.Run("x-user-id fallback", func(t *testing.T) {
		if got := runAuth(t, map[string]string{"X-User-ID": "legacy-user"}); got != "legacy-user" {
			t.Errorf("user id = %q, want legacy-user", got)
		}
	})

	t.Run("no credentials", func(t *testing.T) {
		if got := runAuth(t, nil); got != "" {
			t.Errorf("user id = %q, want empty", got)
		}
	})

	t.Run("garbage token falls back to header", func(t *testing.T) {
		headers := map[string]string{
			"Authorization": "Bearer not.a.token",
			"X-User-ID":     "fallback-user",
		}
		if got := runAuth(t, headers); got != "fallback-user" {
			t.Errorf("user id = %q, want fallback-user", got)
		}
	})
}
