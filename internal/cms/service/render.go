package service

import (
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/Laisky/institute-cms/internal/cms/model"
)

// ParseMarkdown2HTML renders markdown to HTML.
func ParseMarkdown2HTML(md []byte) string {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank,
	})

	return string(markdown.ToHTML(md, p, renderer))
}

// RenderPost returns the HTML body of a post.
// Posts stored as HTML are returned unchanged.
func RenderPost(post *model.BlogPost) string {
	if post == nil {
		return ""
	}
	if post.Format == model.PostFormatMarkdown {
		return ParseMarkdown2HTML([]byte(post.Content))
	}

	return post.Content
}
