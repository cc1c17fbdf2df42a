package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/hmochat/internal/pkg/jwt"
)

func newEngine(mw ...gin.HandlerFunc) (*gin.Engine, *string) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	seen := new(string)
	r.GET("/ping", func(c *gin.Context) {
		*seen = c.GetString(ContextSessionIDKey) + "|" + c.GetString(ContextRequestIDKey)
		c.String(http.StatusOK, "ok")
	})
	return r, seen
}

func TestSessionAuth(t *testing.T) {
	secret := []byte("test-secret")
	r, seen := newEngine(SessionAuth(secret))

	token, err := jwt.GenerateToken("sess-1", secret, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, "ok", w.Body.String())
	require.Equal(t, "sess-1|", *seen)

	other, err := jwt.GenerateToken("sess-1", []byte("other"), time.Hour)
	require.NoError(t, err)
	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer " + other} {
		*seen = ""
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.NotEqual(t, "ok", w.Body.String(), header)
		require.Empty(t, *seen, header)
	}
}

func TestRequestID(t *testing.T) {
	r, seen := newEngine(RequestID())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-Id", "abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, "abc", w.Header().Get("X-Request-Id"))
	require.Equal(t, "|abc", *seen)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Len(t, w.Header().Get("X-Request-Id"), 36)
}

func TestCORS(t *testing.T) {
	r, _ := newEngine(CORS([]string{"http://localhost:8501/"}))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://localhost:8501")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, "http://localhost:8501", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/ping", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	open, _ := newEngine(CORS(nil))
	w = httptest.NewRecorder()
	open.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
