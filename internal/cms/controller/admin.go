package controller

import (
	"io"
	"net/http"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/institute-cms/internal/cms/model"
	"github.com/Laisky/institute-cms/library/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type saveResponse struct {
	Content  *model.Content            `json:"content"`
	Warnings []model.ValidationWarning `json:"warnings"`
}

type backupResponse struct {
	Filename string `json:"filename"`
}

type deleteResponse struct {
	Deleted bool `json:"deleted"`
}

func (c *Controller) login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
		return
	}

	if !c.logins.Allow(req.Username) {
		gmw.GetLogger(ctx).Warn("admin login throttled", zap.String("user", req.Username))
		ctx.JSON(http.StatusTooManyRequests, errorResponse{Error: "too many login attempts"})
		return
	}

	token, claims, err := c.auth.Login(req.Username, req.Password)
	if err != nil {
		gmw.GetLogger(ctx).Info("admin login rejected", zap.String("user", req.Username))
		ctx.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid username or password"})
		return
	}

	c.logins.Reset(req.Username)
	gmw.GetLogger(ctx).Info("admin login", zap.String("user", claims.Username))
	ctx.JSON(http.StatusOK, loginResponse{
		Token:     token,
		Username:  claims.Username,
		ExpiresAt: claims.ExpiresAt.Time,
	})
}

// adminGetContent returns the published document, or the draft with ?draft=true.
func (c *Controller) adminGetContent(ctx *gin.Context) {
	if queryBool(ctx, "draft") {
		c.getDraft(ctx)
		return
	}

	c.getContent(ctx)
}

func (c *Controller) getDraft(ctx *gin.Context) {
	draft, err := c.cms.GetDraft(ctx.Request.Context())
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, draft)
}

// saveContent replaces the published document, or the draft with ?draft=true.
func (c *Controller) saveContent(ctx *gin.Context) {
	data, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		abortWithError(ctx, model.InvalidArgumentf("read body: %v", err))
		return
	}

	content, err := model.DecodeContent(data)
	if err != nil {
		abortWithError(ctx, model.InvalidArgumentf("decode content: %v", err))
		return
	}

	saved, err := c.cms.SaveContent(ctx.Request.Context(), content, auth.Username(ctx), queryBool(ctx, "draft"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, saveResponse{
		Content:  saved,
		Warnings: c.cms.ValidateContent(saved),
	})
}

func (c *Controller) publish(ctx *gin.Context) {
	content, err := c.cms.PublishContent(ctx.Request.Context(), auth.Username(ctx))
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, content)
}

// validate checks the posted document without saving it.
func (c *Controller) validate(ctx *gin.Context) {
	data, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		abortWithError(ctx, model.InvalidArgumentf("read body: %v", err))
		return
	}

	warnings, err := c.cms.ValidateDocument(data)
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"warnings": warnings})
}

func (c *Controller) listVersions(ctx *gin.Context) {
	versions, err := c.cms.GetVersionHistory(ctx.Request.Context(), queryInt(ctx, "limit"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, versions)
}

func (c *Controller) restoreVersion(ctx *gin.Context) {
	content, err := c.cms.RestoreVersion(ctx.Request.Context(), ctx.Param("id"), auth.Username(ctx))
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, content)
}

func (c *Controller) listBackups(ctx *gin.Context) {
	backups, err := c.cms.GetBackups(ctx.Request.Context())
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, backups)
}

func (c *Controller) createBackup(ctx *gin.Context) {
	filename, err := c.cms.CreateBackup(ctx.Request.Context(), auth.Username(ctx))
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, backupResponse{Filename: filename})
}

func (c *Controller) restoreBackup(ctx *gin.Context) {
	content, err := c.cms.RestoreBackup(ctx.Request.Context(), ctx.Param("filename"), auth.Username(ctx))
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, content)
}

func (c *Controller) deleteBackup(ctx *gin.Context) {
	deleted, err := c.cms.DeleteBackup(ctx.Request.Context(), ctx.Param("filename"), auth.Username(ctx))
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, deleteResponse{Deleted: deleted})
}

func (c *Controller) listMedia(ctx *gin.Context) {
	assets, err := c.cms.GetMediaFiles(ctx.Request.Context())
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, assets)
}

// uploadMedia stores the multipart field "file".
func (c *Controller) uploadMedia(ctx *gin.Context) {
	header, err := ctx.FormFile("file")
	if err != nil {
		abortWithError(ctx, model.InvalidArgumentf("missing form file %q", "file"))
		return
	}
	if header.Size > c.maxUpload {
		abortWithError(ctx, model.InvalidArgumentf("file is larger than %d bytes", c.maxUpload))
		return
	}

	f, err := header.Open()
	if err != nil {
		abortWithError(ctx, model.StorageFailure(errors.WithStack(err), "open upload"))
		return
	}
	defer f.Close() // nolint: errcheck

	data, err := io.ReadAll(io.LimitReader(f, c.maxUpload+1))
	if err != nil {
		abortWithError(ctx, model.StorageFailure(errors.WithStack(err), "read upload"))
		return
	}

	asset, err := c.cms.SaveMediaFile(ctx.Request.Context(), auth.Username(ctx), header.Filename, data)
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, asset)
}

func (c *Controller) deleteMedia(ctx *gin.Context) {
	deleted, err := c.cms.DeleteMediaFile(ctx.Request.Context(), auth.Username(ctx), ctx.Param("filename"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, deleteResponse{Deleted: deleted})
}

func (c *Controller) listAudit(ctx *gin.Context) {
	entries, err := c.cms.GetAuditLogs(ctx.Request.Context(), queryInt(ctx, "limit"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, entries)
}

// adminListPosts returns every post including unpublished ones.
func (c *Controller) adminListPosts(ctx *gin.Context) {
	posts, err := c.cms.ListPosts(ctx.Request.Context(), true)
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, posts)
}
