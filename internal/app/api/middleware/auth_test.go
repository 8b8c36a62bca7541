package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Talha654/overlayPix-backend/pkg/config"
	"github.com/Talha654/overlayPix-backend/pkg/logctx"
	"github.com/Talha654/overlayPix-backend/pkg/types"
)

const testSecret = "test-secret"

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

func newVerifier(t *testing.T, auth config.AuthConfig) *TokenVerifier {
	t.Helper()
	v, err := NewTokenVerifier(&config.Config{Auth: auth}, zap.NewNop().Sugar())
	require.NoError(t, err)
	return v
}

func newAuthRouter(v *TokenVerifier, extra ...gin.HandlerFunc) (*gin.Engine, *types.Actor, *string) {
	gin.SetMode(gin.TestMode)
	var got types.Actor
	var ctxUser string
	r := gin.New()
	r.Use(TraceMiddleware(), RequestLoggerMiddleware(zap.NewNop().Sugar()), AuthMiddleware(v))
	r.Use(extra...)
	r.GET("/me", func(c *gin.Context) {
		got, _ = ActorFrom(c)
		ctxUser, _ = c.Request.Context().Value(logctx.UserIDKey).(string)
		c.Status(http.StatusNoContent)
	})
	return r, &got, &ctxUser
}

func get(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	r, got, ctxUser := newAuthRouter(newVerifier(t, config.AuthConfig{JWTSecret: testSecret}))

	w := get(r, sign(t, jwt.MapClaims{
		"sub":   "user-1",
		"email": "a@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}))
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, types.Actor{ID: "user-1", Email: "a@example.com"}, *got)
	require.Equal(t, "user-1", *ctxUser)
	require.NotEmpty(t, w.Header().Get(TraceIDHeader))
}

func TestAuthMiddleware_FirebaseAnonymous(t *testing.T) {
	r, got, _ := newAuthRouter(newVerifier(t, config.AuthConfig{JWTSecret: testSecret}))

	w := get(r, sign(t, jwt.MapClaims{
		"sub":      "anon-1",
		"exp":      time.Now().Add(time.Hour).Unix(),
		"firebase": map[string]any{"sign_in_provider": "anonymous"},
	}))
	require.Equal(t, http.StatusNoContent, w.Code)
	require.True(t, got.Anonymous)
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	v := newVerifier(t, config.AuthConfig{JWTSecret: testSecret, Issuer: "overlaypix"})
	r, _, _ := newAuthRouter(v)
	future := time.Now().Add(time.Hour).Unix()

	cases := map[string]string{
		"missing":      "",
		"garbage":      "not-a-jwt",
		"expired":      sign(t, jwt.MapClaims{"sub": "u", "iss": "overlaypix", "exp": time.Now().Add(-time.Minute).Unix()}),
		"no expiry":    sign(t, jwt.MapClaims{"sub": "u", "iss": "overlaypix"}),
		"wrong issuer": sign(t, jwt.MapClaims{"sub": "u", "iss": "other", "exp": future}),
		"no subject":   sign(t, jwt.MapClaims{"iss": "overlaypix", "exp": future}),
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			w := get(r, tok)
			require.Equal(t, http.StatusUnauthorized, w.Code)
			require.Contains(t, w.Body.String(), "UNAUTHORIZED")
		})
	}

	w := get(r, sign(t, jwt.MapClaims{"sub": "u", "iss": "overlaypix", "exp": future}))
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestAuthMiddleware_NotConfiguredRejectsAll(t *testing.T) {
	r, _, _ := newAuthRouter(newVerifier(t, config.AuthConfig{}))
	w := get(r, sign(t, jwt.MapClaims{"sub": "u", "exp": time.Now().Add(time.Hour).Unix()}))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	r, _, _ := newAuthRouter(newVerifier(t, config.AuthConfig{JWTSecret: testSecret}), RequireAdmin())
	exp := time.Now().Add(time.Hour).Unix()

	w := get(r, sign(t, jwt.MapClaims{"sub": "u", "exp": exp}))
	require.Equal(t, http.StatusForbidden, w.Code)

	w = get(r, sign(t, jwt.MapClaims{"sub": "u", "exp": exp, "admin": true}))
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestNewTokenVerifier_BadPEM(t *testing.T) {
	_, err := NewTokenVerifier(&config.Config{Auth: config.AuthConfig{JWTPublicKey: "-----BEGIN PUBLIC KEY-----\nxx\n-----END PUBLIC KEY-----"}}, zap.NewNop().Sugar())
	require.Error(t, err)
}
