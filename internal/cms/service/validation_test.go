package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Laisky/institute-cms/internal/cms/model"
)

func warningCodes(warnings []model.ValidationWarning) map[model.WarningCode][]string {
	codes := map[model.WarningCode][]string{}
	for _, w := range warnings {
		codes[w.Code] = append(codes[w.Code], w.Path)
	}
	return codes
}

func TestDuplicateSlugIsSavedAndFlagged(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	c := decode(t, `{"courses":[
		{"slug":"devops","title":"DevOps"},
		{"slug":"devops","title":"DevOps Advanced"}
	]}`)

	saved, err := env.cms.SaveContent(ctx, c, "admin", false)
	require.NoError(t, err)
	require.Len(t, saved.Courses, 2)

	got, err := env.cms.GetContent(ctx)
	require.NoError(t, err)
	require.Len(t, got.Courses, 2)

	codes := warningCodes(env.cms.ValidateContent(got))
	require.Equal(t, []string{"courses[1].slug"}, codes[model.WarnDuplicateCourseSlug])
}

func TestValidateContent(t *testing.T) {
	env := newTestEnv(t)

	c := decode(t, `{
		"courses":[{"slug":"","title":"No slug"},{"slug":"Bad Slug","title":""}],
		"learningPaths":[{"slug":"cloud","courses":["aws"]}],
		"blog":{"posts":[{"slug":"hello","title":"Hi"},{"slug":"hello","title":"Again"}]}
	}`)

	codes := warningCodes(env.cms.ValidateContent(c))
	require.Equal(t, []string{"courses[0].slug", "courses[1].title"}, codes[model.WarnMissingField])
	require.Equal(t, []string{"courses[1].slug"}, codes[model.WarnInvalidSlug])
	require.Equal(t, []string{"blog.posts[1].slug"}, codes[model.WarnDuplicatePostSlug])
	require.Equal(t, []string{"learningPaths[0].courses[0]"}, codes[model.WarnUnknownReference])
	require.Empty(t, codes[model.WarnSchema])

	require.Empty(t, env.cms.ValidateContent(model.Seed()))
	require.Empty(t, env.cms.ValidateContent(nil))
}

func TestValidateDocument(t *testing.T) {
	env := newTestEnv(t)

	warnings, err := env.cms.ValidateDocument([]byte(`{"courses":[{"slug":"devops","title":"DevOps","visible":"yes"}]}`))
	require.NoError(t, err)
	codes := warningCodes(warnings)
	require.Equal(t, []string{"courses[0].visible"}, codes[model.WarnSchema])

	warnings, err = env.cms.ValidateDocument([]byte(`{"courses":[{"slug":"a","title":"A"},{"slug":"a","title":"B"}]}`))
	require.NoError(t, err)
	require.Equal(t, []string{"courses[1].slug"}, warningCodes(warnings)[model.WarnDuplicateCourseSlug])

	_, err = env.cms.ValidateDocument([]byte(`{not json`))
	require.True(t, model.IsCode(err, model.ErrCodeInvalidArgument))
}

func TestSchemaFieldPath(t *testing.T) {
	require.Equal(t, "courses[1].slug", schemaFieldPath("courses.1.slug"))
	require.Equal(t, "blog.posts[0]", schemaFieldPath("blog.posts.0"))
	require.Equal(t, "", schemaFieldPath("(root)"))
}
