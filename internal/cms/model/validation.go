package model

// WarningCode classifies a content quality problem.
type WarningCode string

const (
	WarnDuplicateCourseSlug WarningCode = "duplicate-course-slug"
	WarnDuplicatePostSlug   WarningCode = "duplicate-post-slug"
	WarnMissingField        WarningCode = "missing-field"
	WarnInvalidSlug         WarningCode = "invalid-slug"
	WarnUnknownReference    WarningCode = "unknown-reference"
	WarnSchema              WarningCode = "schema"
)

// ValidationWarning is a non-fatal content problem.
type ValidationWarning struct {
	Code    WarningCode `json:"code"`
	Path    string      `json:"path"`
	Message string      `json:"message"`
}
