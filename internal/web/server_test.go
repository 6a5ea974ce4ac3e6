package web

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/institute-cms/internal/cms/controller"
	"github.com/Laisky/institute-cms/internal/cms/dao"
	"github.com/Laisky/institute-cms/internal/cms/service"
	"github.com/Laisky/institute-cms/library/auth"
	"github.com/Laisky/institute-cms/library/jwt"
)

var (
	ginModeOnce sync.Once
)

func setupGinTestMode() {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.TestMode)
	})
}

func TestAllowCORS(t *testing.T) {
	setupGinTestMode()
	t.Parallel()

	hosts := []string{"academy.example.com", "*.institute.example"}
	tests := []struct {
		name           string
		method         string
		origin         string
		expectedStatus int
		expectedCORS   bool
	}{
		{
			name:           "No origin header - should pass through",
			method:         "GET",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Exact host",
			method:         "GET",
			origin:         "https://academy.example.com",
			expectedStatus: http.StatusOK,
			expectedCORS:   true,
		},
		{
			name:           "Wildcard subdomain",
			method:         "POST",
			origin:         "https://admin.institute.example",
			expectedStatus: http.StatusOK,
			expectedCORS:   true,
		},
		{
			name:           "Wildcard apex",
			method:         "GET",
			origin:         "https://institute.example",
			expectedStatus: http.StatusOK,
			expectedCORS:   true,
		},
		{
			name:           "Multiple level subdomain",
			method:         "GET",
			origin:         "https://api.v2.institute.example",
			expectedStatus: http.StatusOK,
			expectedCORS:   true,
		},
		{
			name:           "Allowed preflight",
			method:         "OPTIONS",
			origin:         "https://academy.example.com",
			expectedStatus: http.StatusNoContent,
			expectedCORS:   true,
		},
		{
			name:           "Disallowed preflight",
			method:         "OPTIONS",
			origin:         "https://evil.com",
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "Disallowed GET passes without headers",
			method:         "GET",
			origin:         "https://evil.com",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Suffix trick",
			method:         "GET",
			origin:         "https://institute.example.evil.com",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Not a subdomain",
			method:         "GET",
			origin:         "https://notinstitute.example",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Case insensitive",
			method:         "GET",
			origin:         "https://Academy.EXAMPLE.com",
			expectedStatus: http.StatusOK,
			expectedCORS:   true,
		},
		{
			name:           "Malformed origin",
			method:         "GET",
			origin:         "not-a-valid-url",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Origin with port",
			method:         "GET",
			origin:         "http://academy.example.com:8080",
			expectedStatus: http.StatusOK,
			expectedCORS:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := gin.New()
			router.Use(newAllowCORS(hosts))
			router.Any("/test", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"message": "success"})
			})

			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code, "Status code mismatch")
			if tt.expectedCORS {
				assert.Equal(t, tt.origin, w.Header().Get("Access-Control-Allow-Origin"))
				assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
				assert.Equal(t, "Origin", w.Header().Get("Vary"))
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Methods"))
			}
		})
	}
}

func TestAllowCORSNoHosts(t *testing.T) {
	setupGinTestMode()

	router := gin.New()
	router.Use(newAllowCORS(nil))
	router.Any("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/test", nil)
	req.Header.Set("Origin", "https://academy.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func newTestEngine(t *testing.T, opt Options) *gin.Engine {
	t.Helper()
	setupGinTestMode()

	cms, err := service.New(dao.NewMemory(), nil,
		service.WithLogger(logSDK.Shared.Named("test_web")))
	require.NoError(t, err)
	signer, err := jwt.NewSigner([]byte("test-secret"), time.Hour)
	require.NoError(t, err)
	authn, err := auth.New(signer, nil)
	require.NoError(t, err)

	return NewServer(controller.New(cms, authn, 0), opt)
}

func TestServerRoutes(t *testing.T) {
	mediaDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(mediaDir, "logo.png"), []byte("png"), 0o644))

	siteDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(siteDir, "index.html"), []byte("<html>site</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(siteDir, "app.js"), []byte("console.log(1)"), 0o644))

	reg := prometheus.NewRegistry()
	m, err := service.NewMetrics(reg)
	require.NoError(t, err)
	require.NotNil(t, m)

	engine := newTestEngine(t, Options{
		MediaDir:       mediaDir,
		MediaURLPrefix: "/uploads",
		SiteDir:        siteDir,
		Gatherer:       reg,
	})

	tests := []struct {
		name     string
		path     string
		status   int
		contains string
	}{
		{name: "health", path: "/health", status: http.StatusOK, contains: "hello, world"},
		{name: "metrics", path: "/metrics", status: http.StatusOK},
		{name: "uploads", path: "/uploads/logo.png", status: http.StatusOK, contains: "png"},
		{name: "public api", path: "/api/content", status: http.StatusOK, contains: "courses"},
		{name: "admin needs token", path: "/api/admin/content", status: http.StatusUnauthorized},
		{name: "unknown api", path: "/api/nope", status: http.StatusNotFound},
		{name: "site asset", path: "/app.js", status: http.StatusOK, contains: "console.log"},
		{name: "site missing asset", path: "/missing.css", status: http.StatusNotFound},
		{name: "client route", path: "/courses/devops", status: http.StatusOK, contains: "site"},
		{name: "site root", path: "/", status: http.StatusOK, contains: "site"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
			require.Equal(t, tc.status, w.Code, w.Body.String())
			if tc.contains != "" {
				require.True(t, strings.Contains(w.Body.String(), tc.contains), w.Body.String())
			}
		})
	}
}

func TestServerWithoutSite(t *testing.T) {
	engine := newTestEngine(t, Options{SiteDir: filepath.Join(t.TempDir(), "absent")})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/courses", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}
