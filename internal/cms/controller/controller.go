// Package controller exposes the content store over HTTP.
package controller

import (
	"net/http"
	"strconv"

	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/institute-cms/internal/cms/model"
	"github.com/Laisky/institute-cms/internal/cms/service"
	"github.com/Laisky/institute-cms/library/auth"
	"github.com/Laisky/institute-cms/library/throttle"
)

// Controller holds the HTTP handlers of the content store.
type Controller struct {
	cms       *service.CMS
	auth      *auth.Authenticator
	logins    *throttle.Throttle
	maxUpload int64
}

// New creates a controller. maxUpload caps how much of an upload is read into memory.
func New(cms *service.CMS, authn *auth.Authenticator, maxUpload int64) *Controller {
	if maxUpload <= 0 {
		maxUpload = service.DefaultMaxMediaBytes
	}

	return &Controller{
		cms:       cms,
		auth:      authn,
		logins:    throttle.MustNew(throttle.DefaultLoginConfig),
		maxUpload: maxUpload,
	}
}

// WithLoginThrottle replaces the limit on login attempts.
func (c *Controller) WithLoginThrottle(t *throttle.Throttle) *Controller {
	c.logins = t
	return c
}

// Register mounts public, login and admin routes on r.
func (c *Controller) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.GET("/content", c.getContent)
	api.GET("/courses", c.listCourses)
	api.GET("/courses/:slug", c.getCourse)
	api.GET("/categories", c.listCategories)
	api.GET("/learning-paths", c.listLearningPaths)
	api.GET("/pages/:name", c.getPage)
	api.GET("/blog/posts", c.listPosts)
	api.GET("/blog/posts/:slug", c.getPost)

	api.POST("/admin/login", c.login)

	admin := api.Group("/admin", c.auth.Middleware())
	admin.GET("/content", c.adminGetContent)
	admin.PUT("/content", c.saveContent)
	admin.GET("/draft", c.getDraft)
	admin.POST("/publish", c.publish)
	admin.POST("/validate", c.validate)
	admin.GET("/versions", c.listVersions)
	admin.POST("/versions/:id/restore", c.restoreVersion)
	admin.GET("/backups", c.listBackups)
	admin.POST("/backups", c.createBackup)
	admin.POST("/backups/:filename/restore", c.restoreBackup)
	admin.DELETE("/backups/:filename", c.deleteBackup)
	admin.GET("/media", c.listMedia)
	admin.POST("/media", c.uploadMedia)
	admin.DELETE("/media/:filename", c.deleteMedia)
	admin.GET("/audit", c.listAudit)
	admin.GET("/blog/posts", c.adminListPosts)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// statusOf maps store error codes to HTTP statuses.
func statusOf(err error) int {
	typed, ok := model.AsError(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch typed.Code {
	case model.ErrCodeNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes err as JSON. Server side failures are logged and their
// details are not sent to the client.
func abortWithError(ctx *gin.Context, err error) {
	status := statusOf(err)
	resp := errorResponse{Error: err.Error()}
	if typed, ok := model.AsError(err); ok {
		resp.Code = string(typed.Code)
		if typed.Message != "" {
			resp.Error = typed.Message
		}
	}

	if status >= http.StatusInternalServerError {
		gmw.GetLogger(ctx).Error("cms request failed",
			zap.String("path", ctx.FullPath()),
			zap.Error(err))
		resp.Error = "internal error"
	}

	ctx.AbortWithStatusJSON(status, resp)
}

// queryInt reads a positive integer query parameter, 0 means absent or invalid.
func queryInt(ctx *gin.Context, key string) int {
	v, err := strconv.Atoi(ctx.Query(key))
	if err != nil || v < 0 {
		return 0
	}

	return v
}

func queryBool(ctx *gin.Context, key string) bool {
	v, _ := strconv.ParseBool(ctx.Query(key))
	return v
}
