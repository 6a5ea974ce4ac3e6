package model

import (
	"time"

	"github.com/Laisky/errors/v2"
)

// PostFormat tells how a post's content is written.
type PostFormat string

const (
	PostFormatHTML     PostFormat = "html"
	PostFormatMarkdown PostFormat = "markdown"
)

// BlogPost is one article in the blog section.
type BlogPost struct {
	ID          FlexString `json:"id,omitzero"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Excerpt     string     `json:"excerpt,omitempty"`
	Category    string     `json:"category,omitempty"`
	Tags        []string   `json:"tags"`
	Author      string     `json:"author,omitempty"`
	Image       string     `json:"image,omitempty"`
	Format      PostFormat `json:"format,omitempty"`
	Published   bool       `json:"published"`
	Featured    bool       `json:"featured"`
	CreatedAt   string     `json:"createdAt,omitempty"`
	UpdatedAt   string     `json:"updatedAt,omitempty"`
	PublishedAt string     `json:"publishedAt,omitempty"`
	Extra       Extra      `json:"-"`
}

type blogPostAlias BlogPost

// MarshalJSON implements json.Marshaler.
func (p BlogPost) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(blogPostAlias(p), p.Extra)
}

// UnmarshalJSON implements json.Unmarshaler.
//
// "published":1 and "tags":"news" are coerced like course members.
func (p *BlogPost) UnmarshalJSON(data []byte) error {
	data, kept, err := coerceMembers(data, postCoercions)
	if err != nil {
		return errors.Wrap(err, "decode blog post")
	}

	var a blogPostAlias
	extra, err := unmarshalWithExtra(data, &a)
	if err != nil {
		return errors.Wrap(err, "decode blog post")
	}

	*p = BlogPost(a)
	p.Extra = extra.mergeKept(kept)
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// SortTime returns the most meaningful timestamp of the post for ordering.
// Zero time when none of the timestamps parse.
func (p *BlogPost) SortTime() time.Time {
	for _, raw := range []string{p.PublishedAt, p.CreatedAt, p.UpdatedAt} {
		if raw == "" {
			continue
		}
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t
			}
		}
	}

	return time.Time{}
}
