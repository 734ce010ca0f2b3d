package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	toolsec "DChat/tools/security"

	"github.com/gin-gonic/gin"
)

func newAuthRouter(secret []byte) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", Middleware(DefaultOptions(secret)), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": UserID(c)})
	})
	return r
}

func TestMiddlewareAcceptsBearerToken(t *testing.T) {
	secret := []byte("test-secret")
	r := newAuthRouter(secret)

	token, _, err := toolsec.Generate(toolsec.DefaultOptions(secret), "user-42")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d body=%s", w.Code, w.Body.String())
	}
	if body := w.Body.String(); body != `{"userId":"user-42"}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestMiddlewareAcceptsRawToken(t *testing.T) {
	secret := []byte("test-secret")
	r := newAuthRouter(secret)

	token, _, err := toolsec.Generate(toolsec.DefaultOptions(secret), "user-42")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	// 不带 Bearer 前缀也接受
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
}

func TestMiddlewareRejects(t *testing.T) {
	secret := []byte("test-secret")
	r := newAuthRouter(secret)

	// 无令牌
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: want 401, got %d", w.Code)
	}

	// 坏令牌
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: want 401, got %d", w.Code)
	}

	// 其他密钥签的令牌
	token, _, err := toolsec.Generate(toolsec.DefaultOptions([]byte("other-secret")), "user-42")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("foreign token: want 401, got %d", w.Code)
	}
}
