package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Laisky/institute-cms/internal/cms/model"
	"github.com/Laisky/institute-cms/internal/cms/service"
)

type postResponse struct {
	Post *model.BlogPost `json:"post"`
	HTML string          `json:"html"`
}

func (c *Controller) getContent(ctx *gin.Context) {
	content, err := c.cms.GetContent(ctx.Request.Context())
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, content)
}

func (c *Controller) listCourses(ctx *gin.Context) {
	courses, err := c.cms.ListCourseSummaries(ctx.Request.Context())
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, courses)
}

func (c *Controller) getCourse(ctx *gin.Context) {
	course, err := c.cms.GetCourse(ctx.Request.Context(), ctx.Param("slug"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, course)
}

func (c *Controller) listCategories(ctx *gin.Context) {
	categories, err := c.cms.ListCategories(ctx.Request.Context())
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, categories)
}

func (c *Controller) listLearningPaths(ctx *gin.Context) {
	paths, err := c.cms.ListLearningPaths(ctx.Request.Context())
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, paths)
}

func (c *Controller) getPage(ctx *gin.Context) {
	page, err := c.cms.GetPageSEO(ctx.Request.Context(), ctx.Param("name"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, page)
}

// listPosts returns published post cards, ?featured=true puts featured posts first.
func (c *Controller) listPosts(ctx *gin.Context) {
	posts, err := c.cms.ListPostSummaries(ctx.Request.Context(), queryBool(ctx, "featured"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, posts)
}

func (c *Controller) getPost(ctx *gin.Context) {
	post, err := c.cms.GetPost(ctx.Request.Context(), ctx.Param("slug"), false)
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, postResponse{
		Post: post,
		HTML: service.RenderPost(post),
	})
}
