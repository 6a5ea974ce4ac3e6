package service

import (
	"context"
	"sort"

	"github.com/Laisky/errors/v2"
	"github.com/jinzhu/copier"

	"github.com/Laisky/institute-cms/internal/cms/model"
)

// CourseSummary is the catalog card of a course.
type CourseSummary struct {
	Slug     string           `json:"slug"`
	Title    string           `json:"title"`
	Subtitle string           `json:"subtitle,omitempty"`
	Category string           `json:"category,omitempty"`
	Level    string           `json:"level,omitempty"`
	Image    string           `json:"image,omitempty"`
	Tools    []string         `json:"tools"`
	Duration model.FlexString `json:"duration,omitzero"`
	Fees     model.FlexString `json:"fees,omitzero"`
}

// PostSummary is the listing card of a blog post.
type PostSummary struct {
	ID          model.FlexString `json:"id,omitzero"`
	Slug        string           `json:"slug"`
	Title       string           `json:"title"`
	Excerpt     string           `json:"excerpt,omitempty"`
	Category    string           `json:"category,omitempty"`
	Tags        []string         `json:"tags"`
	Author      string           `json:"author,omitempty"`
	Image       string           `json:"image,omitempty"`
	Published   bool             `json:"published"`
	Featured    bool             `json:"featured"`
	PublishedAt string           `json:"publishedAt,omitempty"`
}

// orderLess sorts by explicit order, missing orders last, keeping input order on ties.
func orderLess(a, b *int) bool {
	switch {
	case a == nil && b == nil:
		return false
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return *a < *b
	}
}

// ListCourses returns the visible courses in display order.
func (s *CMS) ListCourses(ctx context.Context) ([]model.Course, error) {
	c, err := s.GetContent(ctx)
	if err != nil {
		return nil, err
	}

	courses := make([]model.Course, 0, len(c.Courses))
	for _, course := range c.Courses {
		if course.IsVisible() {
			courses = append(courses, course)
		}
	}
	sort.SliceStable(courses, func(i, j int) bool {
		return orderLess(courses[i].Order, courses[j].Order)
	})

	return courses, nil
}

// ListCourseSummaries returns catalog cards of the visible courses.
func (s *CMS) ListCourseSummaries(ctx context.Context) ([]CourseSummary, error) {
	courses, err := s.ListCourses(ctx)
	if err != nil {
		return nil, err
	}

	summaries := []CourseSummary{}
	if err = copier.Copy(&summaries, &courses); err != nil {
		return nil, errors.Wrap(err, "copy course summaries")
	}

	return summaries, nil
}

// GetCourse returns a visible course by slug.
func (s *CMS) GetCourse(ctx context.Context, slug string) (*model.Course, error) {
	courses, err := s.ListCourses(ctx)
	if err != nil {
		return nil, err
	}

	for i := range courses {
		if courses[i].Slug == slug {
			return &courses[i], nil
		}
	}

	return nil, model.NotFoundf("course %q not found", slug)
}

// ListPosts returns blog posts newest first. Drafts are only included on request.
func (s *CMS) ListPosts(ctx context.Context, includeDrafts bool) ([]model.BlogPost, error) {
	c, err := s.GetContent(ctx)
	if err != nil {
		return nil, err
	}

	posts := make([]model.BlogPost, 0, len(c.Blog.Posts))
	for _, post := range c.Blog.Posts {
		if includeDrafts || post.Published {
			posts = append(posts, post)
		}
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].SortTime().After(posts[j].SortTime())
	})

	return posts, nil
}

// ListPostSummaries returns listing cards of published posts, featured posts first when asked.
func (s *CMS) ListPostSummaries(ctx context.Context, featuredFirst bool) ([]PostSummary, error) {
	posts, err := s.ListPosts(ctx, false)
	if err != nil {
		return nil, err
	}
	if featuredFirst {
		sort.SliceStable(posts, func(i, j int) bool {
			return posts[i].Featured && !posts[j].Featured
		})
	}

	summaries := []PostSummary{}
	if err = copier.Copy(&summaries, &posts); err != nil {
		return nil, errors.Wrap(err, "copy post summaries")
	}

	return summaries, nil
}

// GetPost returns a post by slug. Unpublished posts are only found when includeDrafts is set.
func (s *CMS) GetPost(ctx context.Context, slug string, includeDrafts bool) (*model.BlogPost, error) {
	posts, err := s.ListPosts(ctx, includeDrafts)
	if err != nil {
		return nil, err
	}

	for i := range posts {
		if posts[i].Slug == slug {
			return &posts[i], nil
		}
	}

	return nil, model.NotFoundf("post %q not found", slug)
}

// ListCategories returns course categories in display order.
func (s *CMS) ListCategories(ctx context.Context) ([]model.Category, error) {
	c, err := s.GetContent(ctx)
	if err != nil {
		return nil, err
	}

	categories := append([]model.Category{}, c.CourseCategories...)
	sort.SliceStable(categories, func(i, j int) bool {
		return orderLess(categories[i].Order, categories[j].Order)
	})

	return categories, nil
}

// ListLearningPaths returns learning paths in display order.
func (s *CMS) ListLearningPaths(ctx context.Context) ([]model.LearningPath, error) {
	c, err := s.GetContent(ctx)
	if err != nil {
		return nil, err
	}

	paths := append([]model.LearningPath{}, c.LearningPaths...)
	sort.SliceStable(paths, func(i, j int) bool {
		return orderLess(paths[i].Order, paths[j].Order)
	})

	return paths, nil
}

// GetPageSEO returns the metadata of a named page.
func (s *CMS) GetPageSEO(ctx context.Context, name string) (*model.PageSEO, error) {
	c, err := s.GetContent(ctx)
	if err != nil {
		return nil, err
	}

	page, ok := c.Pages[name]
	if !ok {
		return nil, model.NotFoundf("page %q not found", name)
	}

	return &page, nil
}
