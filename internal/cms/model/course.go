package model

import (
	"regexp"
	"strings"

	"github.com/Laisky/errors/v2"
)

var (
	slugRegexp    = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	nonSlugRegexp = regexp.MustCompile(`[^a-z0-9]+`)
)

// Course is one entry of the course catalog.
type Course struct {
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Subtitle    string     `json:"subtitle,omitempty"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	Level       string     `json:"level,omitempty"`
	Image       string     `json:"image,omitempty"`
	Tools       []string   `json:"tools"`
	Outcomes    []string   `json:"outcomes,omitempty"`
	Duration    FlexString `json:"duration,omitzero"`
	Fees        FlexString `json:"fees,omitzero"`
	Visible     *bool      `json:"visible,omitempty"`
	Order       *int       `json:"order,omitempty"`
	Extra       Extra      `json:"-"`
}

type courseAlias Course

// MarshalJSON implements json.Marshaler.
func (c Course) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(courseAlias(c), c.Extra)
}

// UnmarshalJSON implements json.Unmarshaler.
//
// Loosely typed members such as "order":"2" or "tools":"docker" are coerced.
// A member that cannot be coerced is kept raw in Extra.
func (c *Course) UnmarshalJSON(data []byte) error {
	data, kept, err := coerceMembers(data, courseCoercions)
	if err != nil {
		return errors.Wrap(err, "decode course")
	}

	var a courseAlias
	extra, err := unmarshalWithExtra(data, &a)
	if err != nil {
		return errors.Wrap(err, "decode course")
	}

	*c = Course(a)
	c.Extra = extra.mergeKept(kept)
	return nil
}

// IsVisible reports whether the course is listed publicly, absent means visible.
func (c *Course) IsVisible() bool {
	return c.Visible == nil || *c.Visible
}

// IsValidSlug reports whether s is a lowercase URL-safe slug.
func IsValidSlug(s string) bool {
	return slugRegexp.MatchString(s)
}

// Slugify turns a display name into a URL-safe slug.
func Slugify(name string) string {
	s := nonSlugRegexp.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}
