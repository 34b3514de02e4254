package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestAuthService() *AuthService {
	return NewAuthService(&AuthConfig{JWTSecret: "test-secret", TokenDuration: time.Hour})
}

func TestAuthService_TokenRoundTrip(t *testing.T) {
	auth := newTestAuthService()

	token, expiresAt, err := auth.GenerateToken("user-1", "ada@example.com", "user")
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Error("Token should expire in the future")
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() failed: %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "ada@example.com" || claims.Role != "user" {
		t.Errorf("Unexpected claims: %+v", claims)
	}

	fresh, userID, _, err := auth.RefreshToken(token)
	if err != nil {
		t.Fatalf("RefreshToken() failed: %v", err)
	}
	if userID != "user-1" || fresh == "" {
		t.Errorf("Unexpected refresh result: %s %s", userID, fresh)
	}

	other := NewAuthService(&AuthConfig{JWTSecret: "other-secret"})
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("Token signed with another secret should be rejected")
	}

	expired := NewAuthService(&AuthConfig{JWTSecret: "test-secret", TokenDuration: -time.Minute})
	stale, _, _ := expired.GenerateToken("user-1", "ada@example.com", "user")
	if _, err := auth.ValidateToken(stale); err == nil {
		t.Error("Expired token should be rejected")
	}
}

func runWithAuth(handler gin.HandlerFunc, setup func(r *http.Request)) (*httptest.ResponseRecorder, string) {
	var seen string
	router := gin.New()
	router.GET("/", handler, func(c *gin.Context) {
		seen = GetUserID(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if setup != nil {
		setup(req)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w, seen
}

func TestAuthentication(t *testing.T) {
	auth := newTestAuthService()
	token, _, _ := auth.GenerateToken("user-1", "ada@example.com", "user")

	tests := []struct {
		name       string
		setup      func(r *http.Request)
		wantStatus int
		wantUser   string
	}{
		{"no token", nil, http.StatusUnauthorized, ""},
		{"malformed header", func(r *http.Request) { r.Header.Set("Authorization", "Token abc") }, http.StatusUnauthorized, ""},
		{"invalid token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc") }, http.StatusUnauthorized, ""},
		{"bearer token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK, "user-1"},
		{"cookie token", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: TokenCookieName, Value: token}) }, http.StatusOK, "user-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, user := runWithAuth(Authentication(auth), tt.setup)
			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if user != tt.wantUser {
				t.Errorf("Expected user %q, got %q", tt.wantUser, user)
			}
		})
	}
}

func TestOptionalAuthentication(t *testing.T) {
	auth := newTestAuthService()
	token, _, _ := auth.GenerateToken("user-2", "b@example.com", "user")

	w, user := runWithAuth(OptionalAuthentication(auth), nil)
	if w.Code != http.StatusOK || user != "" {
		t.Errorf("Guest request: status %d, user %q", w.Code, user)
	}

	w, user = runWithAuth(OptionalAuthentication(auth), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer not-a-jwt")
	})
	if w.Code != http.StatusOK || user != "" {
		t.Errorf("Invalid token should be ignored: status %d, user %q", w.Code, user)
	}

	w, user = runWithAuth(OptionalAuthentication(auth), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	if w.Code != http.StatusOK || user != "user-2" {
		t.Errorf("Valid token: status %d, user %q", w.Code, user)
	}
}

func TestRateLimiter(t *testing.T) {
	router := gin.New()
	router.Use(RateLimiter(1, 2))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("Unexpected status sequence %v", codes)
	}

	// another client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Second client should not be limited, got %d", w.Code)
	}
}

func TestRequestValidation(t *testing.T) {
	router := gin.New()
	router.Use(RequestValidation(100))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := map[string]int{
		"/":              http.StatusOK,
		"/?limit=10":     http.StatusOK,
		"/?limit=0":      http.StatusBadRequest,
		"/?limit=101":    http.StatusBadRequest,
		"/?limit=abc":    http.StatusBadRequest,
		"/?cursor=":      http.StatusBadRequest,
		"/?cursor=abc12": http.StatusOK,
	}

	for target, want := range tests {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != want {
			t.Errorf("%s: expected %d, got %d", target, want, w.Code)
		}
	}
}

func TestCORS(t *testing.T) {
	router := gin.New()
	router.Use(CORS([]string{"https://app.example.com"}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204 for preflight, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Unexpected allow origin %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Unlisted origin should not be allowed, got %q", got)
	}
}
