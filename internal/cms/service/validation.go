package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/xeipuuv/gojsonschema"

	"github.com/Laisky/institute-cms/internal/cms/model"
)

// contentSchema describes the structural shape of a content document.
// Sections not listed here are allowed and preserved.
const contentSchema = `{
  "type": "object",
  "properties": {
    "courses": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["slug", "title"],
        "properties": {
          "slug": {"type": "string"},
          "title": {"type": "string"},
          "tools": {"type": "array", "items": {"type": "string"}},
          "outcomes": {"type": "array", "items": {"type": "string"}},
          "duration": {"type": ["string", "number"]},
          "fees": {"type": ["string", "number"]},
          "visible": {"type": "boolean"},
          "order": {"type": "integer"}
        }
      }
    },
    "institute": {
      "type": "object",
      "properties": {
        "name": {"type": "string"},
        "email": {"type": "string"},
        "phone": {"type": "string"}
      }
    },
    "pages": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "title": {"type": "string"},
          "description": {"type": "string"}
        }
      }
    },
    "courseCategories": {
      "type": "array",
      "items": {"type": ["object", "string"]}
    },
    "learningPaths": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "slug": {"type": "string"},
          "courses": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "blog": {
      "type": "object",
      "properties": {
        "posts": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["slug", "title"],
            "properties": {
              "id": {"type": ["string", "number"]},
              "slug": {"type": "string"},
              "title": {"type": "string"},
              "tags": {"type": "array", "items": {"type": "string"}},
              "published": {"type": "boolean"},
              "featured": {"type": "boolean"},
              "format": {"enum": ["", "html", "markdown"]}
            }
          }
        }
      }
    }
  }
}`

// Validator checks content documents for problems worth reporting to an editor.
type Validator struct {
	schema *gojsonschema.Schema
}

// NewValidator compiles the content schema.
func NewValidator() (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(contentSchema))
	if err != nil {
		return nil, errors.Wrap(err, "compile content schema")
	}

	return &Validator{schema: schema}, nil
}

// ValidateJSON checks a raw document before it is decoded.
// A document that cannot be parsed at all is an error, anything else is a warning.
func (v *Validator) ValidateJSON(data []byte) ([]model.ValidationWarning, error) {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, model.InvalidArgumentf("content is not valid json: %v", err)
	}

	warnings := []model.ValidationWarning{}
	for _, desc := range result.Errors() {
		warnings = append(warnings, model.ValidationWarning{
			Code:    model.WarnSchema,
			Path:    schemaFieldPath(desc.Field()),
			Message: desc.Description(),
		})
	}

	return warnings, nil
}

// schemaFieldPath turns "courses.1.slug" into "courses[1].slug".
func schemaFieldPath(field string) string {
	if field == "(root)" {
		return ""
	}

	var b strings.Builder
	for i, part := range strings.Split(field, ".") {
		if _, err := strconv.Atoi(part); err == nil {
			b.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}

	return b.String()
}

// Validate checks a decoded document.
func (v *Validator) Validate(c *model.Content) []model.ValidationWarning {
	warnings := []model.ValidationWarning{}
	if c == nil {
		return warnings
	}

	if data, err := json.Marshal(c); err == nil {
		if schemaWarnings, err := v.ValidateJSON(data); err == nil {
			warnings = append(warnings, schemaWarnings...)
		}
	}

	warnings = append(warnings, checkCourses(c)...)
	warnings = append(warnings, checkPosts(c)...)
	warnings = append(warnings, checkReferences(c)...)
	return warnings
}

func checkSlug(kind, path, slug string, seen map[string]string, dupCode model.WarningCode) []model.ValidationWarning {
	switch {
	case slug == "":
		return []model.ValidationWarning{{
			Code:    model.WarnMissingField,
			Path:    path,
			Message: kind + " slug is empty",
		}}
	case !model.IsValidSlug(slug):
		return []model.ValidationWarning{{
			Code:    model.WarnInvalidSlug,
			Path:    path,
			Message: fmt.Sprintf("%s slug %q should be lowercase letters, digits and dashes", kind, slug),
		}}
	}

	if first, ok := seen[slug]; ok {
		return []model.ValidationWarning{{
			Code:    dupCode,
			Path:    path,
			Message: fmt.Sprintf("%s slug %q already used at %s", kind, slug, first),
		}}
	}
	seen[slug] = path
	return nil
}

func checkCourses(c *model.Content) (warnings []model.ValidationWarning) {
	seen := map[string]string{}
	for i, course := range c.Courses {
		prefix := fmt.Sprintf("courses[%d]", i)
		warnings = append(warnings, checkSlug("course", prefix+".slug", course.Slug, seen, model.WarnDuplicateCourseSlug)...)
		if strings.TrimSpace(course.Title) == "" {
			warnings = append(warnings, model.ValidationWarning{
				Code:    model.WarnMissingField,
				Path:    prefix + ".title",
				Message: "course title is empty",
			})
		}
	}

	return warnings
}

func checkPosts(c *model.Content) (warnings []model.ValidationWarning) {
	seen := map[string]string{}
	for i, post := range c.Blog.Posts {
		prefix := fmt.Sprintf("blog.posts[%d]", i)
		warnings = append(warnings, checkSlug("post", prefix+".slug", post.Slug, seen, model.WarnDuplicatePostSlug)...)
		if strings.TrimSpace(post.Title) == "" {
			warnings = append(warnings, model.ValidationWarning{
				Code:    model.WarnMissingField,
				Path:    prefix + ".title",
				Message: "post title is empty",
			})
		}
	}

	return warnings
}

// checkReferences reports learning paths pointing at courses that do not exist.
func checkReferences(c *model.Content) (warnings []model.ValidationWarning) {
	courses := make(map[string]struct{}, len(c.Courses))
	for _, course := range c.Courses {
		courses[course.Slug] = struct{}{}
	}

	for i, path := range c.LearningPaths {
		for j, slug := range path.Courses {
			if _, ok := courses[slug]; !ok {
				warnings = append(warnings, model.ValidationWarning{
					Code:    model.WarnUnknownReference,
					Path:    fmt.Sprintf("learningPaths[%d].courses[%d]", i, j),
					Message: fmt.Sprintf("course %q does not exist", slug),
				})
			}
		}
	}

	return warnings
}

// ValidateContent reports problems in c. Problems never block a save.
func (s *CMS) ValidateContent(c *model.Content) []model.ValidationWarning {
	return s.validator.Validate(c)
}

// ValidateDocument checks a raw JSON document, structurally then semantically.
func (s *CMS) ValidateDocument(data []byte) ([]model.ValidationWarning, error) {
	return s.validator.ValidateDocument(data)
}

// ValidateDocument checks a raw JSON document, structurally then semantically.
func (v *Validator) ValidateDocument(data []byte) ([]model.ValidationWarning, error) {
	warnings, err := v.ValidateJSON(data)
	if err != nil {
		return nil, err
	}

	c, err := model.DecodeContent(data)
	if err != nil {
		// shape errors are already reported by the schema
		return warnings, nil
	}

	warnings = append(warnings, checkCourses(c)...)
	warnings = append(warnings, checkPosts(c)...)
	warnings = append(warnings, checkReferences(c)...)
	return warnings, nil
}
