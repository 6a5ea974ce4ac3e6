package web

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
)

// siteHandler serves the built institute frontend and falls back to index.html
// for client side routes.
type siteHandler struct {
	root   string
	index  []byte
	logger logSDK.Logger
}

// newSiteHandler returns nil when dir is empty or has no index.html.
func newSiteHandler(dir string, logger logSDK.Logger) *siteHandler {
	if dir == "" {
		return nil
	}

	indexPath := filepath.Join(dir, "index.html")
	index, err := os.ReadFile(indexPath)
	if err != nil {
		logger.Warn("site index not found, frontend disabled",
			zap.Error(err), zap.String("path", indexPath))
		return nil
	}

	logger.Info("serve site frontend", zap.String("dir", dir))
	return &siteHandler{
		root:   dir,
		index:  index,
		logger: logger,
	}
}

func (h *siteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	// unknown api routes are never client routes
	if strings.HasPrefix(r.URL.Path, "/api/") {
		http.NotFound(w, r)
		return
	}

	clean := strings.TrimPrefix(filepath.Clean("/"+r.URL.Path), "/")
	if clean == "" {
		h.serveIndex(w, r)
		return
	}

	fsPath := filepath.Join(h.root, clean)
	if info, err := os.Stat(fsPath); err == nil && !info.IsDir() {
		http.ServeFile(w, r, fsPath)
		return
	}

	// a missing asset is a 404, a missing page is a client route
	if filepath.Ext(clean) != "" {
		h.logger.Debug("site asset not found", zap.String("path", r.URL.Path))
		http.NotFound(w, r)
		return
	}

	h.serveIndex(w, r)
}

func (h *siteHandler) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(h.index); err != nil {
		h.logger.Warn("write site index", zap.Error(err))
	}
}
