// Package web gin server
package web

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Laisky/institute-cms/internal/cms/controller"
	"github.com/Laisky/institute-cms/library/log"
)

// Options configures the HTTP server.
type Options struct {
	// CORSHosts lists allowed origin hosts, "*.example.com" also matches subdomains.
	CORSHosts []string
	// MediaDir is served under MediaURLPrefix when set.
	MediaDir       string
	MediaURLPrefix string
	// SiteDir holds the built frontend served for unknown routes.
	SiteDir  string
	Gatherer prometheus.Gatherer
}

// LoadOptionsFromConfig reads settings.web.
func LoadOptionsFromConfig() Options {
	return Options{
		CORSHosts: gconfig.Shared.GetStringSlice("settings.web.cors_hosts"),
		SiteDir:   strings.TrimSpace(gconfig.Shared.GetString("settings.web.site_dir")),
	}
}

// NewServer builds the gin engine with every route mounted.
func NewServer(ctrl *controller.Controller, opt Options) *gin.Engine {
	if !gconfig.Shared.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	server := gin.New()
	server.Use(
		gin.Recovery(),
		gmw.NewLoggerMiddleware(
			gmw.WithLoggerMwColored(),
			gmw.WithLevel(log.Logger.Level().String()),
			gmw.WithLogger(log.Logger.Named("gin")),
		),
		newAllowCORS(opt.CORSHosts),
	)

	server.Any("/health", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "hello, world")
	})

	gatherer := opt.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	server.GET("/metrics", gmw.FromStd(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}).ServeHTTP))

	if opt.MediaDir != "" {
		prefix := opt.MediaURLPrefix
		if prefix == "" {
			prefix = "/uploads"
		}
		server.Static(prefix, opt.MediaDir)
	}

	ctrl.Register(server)

	if site := newSiteHandler(opt.SiteDir, log.Logger.Named("site")); site != nil {
		server.NoRoute(gmw.FromStd(site.ServeHTTP))
	}

	return server
}

// RunServer serves until ctx is done, then shuts down gracefully.
func RunServer(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Logger.Info("listening on http", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "http server exit")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Logger.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown http server")
	}

	return nil
}

// newAllowCORS echoes allowed origins. An empty host list allows nothing.
func newAllowCORS(hosts []string) gin.HandlerFunc {
	exact := make(map[string]struct{}, len(hosts))
	var suffixes []string
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		switch {
		case h == "":
		case strings.HasPrefix(h, "*."):
			suffixes = append(suffixes, h[1:])
			exact[h[2:]] = struct{}{}
		default:
			exact[h] = struct{}{}
		}
	}

	allowed := func(origin string) bool {
		parsed, err := url.Parse(origin)
		if err != nil || parsed.Host == "" {
			return false
		}

		host := strings.ToLower(parsed.Hostname())
		if _, ok := exact[host]; ok {
			return true
		}
		for _, suffix := range suffixes {
			if strings.HasSuffix(host, suffix) {
				return true
			}
		}

		return false
	}

	return func(ctx *gin.Context) {
		origin := strings.TrimSpace(ctx.Request.Header.Get("Origin"))

		if origin != "" && allowed(origin) {
			ctx.Header("Access-Control-Allow-Origin", origin)
			ctx.Header("Access-Control-Allow-Credentials", "true")
			ctx.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
			ctx.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin, X-Requested-With")
			ctx.Header("Access-Control-Max-Age", "86400")
			ctx.Header("Vary", "Origin")

			if ctx.Request.Method == http.MethodOptions {
				ctx.AbortWithStatus(http.StatusNoContent)
				return
			}
		} else if origin != "" && ctx.Request.Method == http.MethodOptions {
			// preflight from a disallowed origin
			ctx.AbortWithStatus(http.StatusForbidden)
			return
		}

		ctx.Next()
	}
}
