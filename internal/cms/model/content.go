// Package model defines the content document and its history records.
package model

import (
	"bytes"
	"encoding/json"

	"github.com/Laisky/errors/v2"
)

// Content is the whole editable state of the website.
//
// Top-level sections the struct does not declare are kept in Extra.
type Content struct {
	Courses          []Course           `json:"courses"`
	Institute        Institute          `json:"institute"`
	Pages            map[string]PageSEO `json:"pages"`
	CourseCategories []Category         `json:"courseCategories"`
	LearningPaths    []LearningPath     `json:"learningPaths"`
	Blog             Blog               `json:"blog"`
	Extra            Extra              `json:"-"`
}

type contentAlias Content

// MarshalJSON implements json.Marshaler.
func (c Content) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(contentAlias(c), c.Extra)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Content) UnmarshalJSON(data []byte) error {
	var a contentAlias
	extra, err := unmarshalWithExtra(data, &a)
	if err != nil {
		return errors.Wrap(err, "decode content")
	}

	*c = Content(a)
	c.Extra = extra
	return nil
}

// Normalize replaces nil collections with empty ones so the
// document always serializes lists as [] and maps as {}.
func (c *Content) Normalize() {
	if c.Courses == nil {
		c.Courses = []Course{}
	}
	if c.Pages == nil {
		c.Pages = map[string]PageSEO{}
	}
	if c.CourseCategories == nil {
		c.CourseCategories = []Category{}
	}
	if c.LearningPaths == nil {
		c.LearningPaths = []LearningPath{}
	}
	if c.Blog.Posts == nil {
		c.Blog.Posts = []BlogPost{}
	}
	for i := range c.Courses {
		if c.Courses[i].Tools == nil {
			c.Courses[i].Tools = []string{}
		}
	}
	for i := range c.Blog.Posts {
		if c.Blog.Posts[i].Tags == nil {
			c.Blog.Posts[i].Tags = []string{}
		}
	}
}

// Clone returns a deep copy of c.
func (c *Content) Clone() (*Content, error) {
	if c == nil {
		return nil, nil
	}

	data, err := json.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "marshal content")
	}

	return DecodeContent(data)
}

// DecodeContent parses a JSON content document.
func DecodeContent(data []byte) (*Content, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty content document")
	}

	c := new(Content)
	if err := json.Unmarshal(data, c); err != nil {
		return nil, errors.WithStack(err)
	}

	return c, nil
}

// Institute is the institute profile shown in headers and footers.
type Institute struct {
	Name     string          `json:"name"`
	Tagline  string          `json:"tagline,omitempty"`
	Address  string          `json:"address,omitempty"`
	Phone    string          `json:"phone,omitempty"`
	Email    string          `json:"email,omitempty"`
	Website  string          `json:"website,omitempty"`
	Logo     string          `json:"logo,omitempty"`
	Branding json.RawMessage `json:"branding,omitempty"`
	Extra    Extra           `json:"-"`
}

type instituteAlias Institute

// MarshalJSON implements json.Marshaler.
func (i Institute) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(instituteAlias(i), i.Extra)
}

// UnmarshalJSON implements json.Unmarshaler.
func (i *Institute) UnmarshalJSON(data []byte) error {
	var a instituteAlias
	extra, err := unmarshalWithExtra(data, &a)
	if err != nil {
		return errors.Wrap(err, "decode institute")
	}

	*i = Institute(a)
	i.Extra = extra
	return nil
}

// PageSEO is the search metadata of one page.
type PageSEO struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	OGImage     string `json:"ogImage,omitempty"`
	Extra       Extra  `json:"-"`
}

type pageSEOAlias PageSEO

// MarshalJSON implements json.Marshaler.
func (p PageSEO) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(pageSEOAlias(p), p.Extra)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *PageSEO) UnmarshalJSON(data []byte) error {
	var a pageSEOAlias
	extra, err := unmarshalWithExtra(data, &a)
	if err != nil {
		return errors.Wrap(err, "decode page seo")
	}

	*p = PageSEO(a)
	p.Extra = extra
	return nil
}

// Category groups courses on the catalog page.
type Category struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Order       *int   `json:"order,omitempty"`
	Extra       Extra  `json:"-"`
}

type categoryAlias Category

// MarshalJSON implements json.Marshaler.
func (c Category) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(categoryAlias(c), c.Extra)
}

// UnmarshalJSON implements json.Unmarshaler.
//
// A bare string is accepted as a category name.
func (c *Category) UnmarshalJSON(data []byte) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '"' {
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return errors.Wrap(err, "decode category name")
		}
		*c = Category{Slug: Slugify(name), Name: name}
		return nil
	}

	data, kept, err := coerceMembers(data, categoryCoercions)
	if err != nil {
		return errors.Wrap(err, "decode category")
	}

	var a categoryAlias
	extra, err := unmarshalWithExtra(data, &a)
	if err != nil {
		return errors.Wrap(err, "decode category")
	}

	*c = Category(a)
	c.Extra = extra.mergeKept(kept)
	return nil
}

// LearningPath is an ordered track of courses.
type LearningPath struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Courses     []string `json:"courses,omitempty"`
	Order       *int     `json:"order,omitempty"`
	Extra       Extra    `json:"-"`
}

type learningPathAlias LearningPath

// MarshalJSON implements json.Marshaler.
func (l LearningPath) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(learningPathAlias(l), l.Extra)
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *LearningPath) UnmarshalJSON(data []byte) error {
	data, kept, err := coerceMembers(data, learningPathCoercions)
	if err != nil {
		return errors.Wrap(err, "decode learning path")
	}

	var a learningPathAlias
	extra, err := unmarshalWithExtra(data, &a)
	if err != nil {
		return errors.Wrap(err, "decode learning path")
	}

	*l = LearningPath(a)
	l.Extra = extra.mergeKept(kept)
	return nil
}

// Blog holds blog settings and all posts, drafts included.
type Blog struct {
	Settings json.RawMessage `json:"settings,omitempty"`
	Posts    []BlogPost      `json:"posts"`
	Extra    Extra           `json:"-"`
}

type blogAlias Blog

// MarshalJSON implements json.Marshaler.
func (b Blog) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(blogAlias(b), b.Extra)
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Blog) UnmarshalJSON(data []byte) error {
	var a blogAlias
	extra, err := unmarshalWithExtra(data, &a)
	if err != nil {
		return errors.Wrap(err, "decode blog")
	}

	*b = Blog(a)
	b.Extra = extra
	return nil
}
