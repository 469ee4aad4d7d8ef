package advisory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestTable(t *testing.T) {
	tests := []struct {
		message   string
		stage     Stage
		pre, post bool
	}{
		{"create", PreValidation, false, false},
		{"create", PreOperation, false, false},
		{"create", PostOperation, false, true},
		{"update", PreValidation, false, false},
		{"update", PreOperation, true, false},
		{"update", PostOperation, true, true},
		{"delete", PreOperation, true, false},
		{"delete", PostOperation, true, false},
		{"assign", PreOperation, true, false},
		{"Assign", PostOperation, true, true},
	}
	for _, tt := range tests {
		s := Suggest(tt.message, tt.stage)
		assert.Equal(t, tt.pre, s.PreImage, "%s/%s pre", tt.message, tt.stage)
		assert.Equal(t, tt.post, s.PostImage, "%s/%s post", tt.message, tt.stage)
	}
}

func TestSuggestRecommendation(t *testing.T) {
	assert.Equal(t, "Use Post-Image for values after operation.", Suggest("create", PostOperation).Recommended)
	assert.Equal(t, "Use Pre-Image if you need previous values. Use Post-Image for values after operation.",
		Suggest("update", PostOperation).Recommended)
	assert.Equal(t, "", Suggest("create", PreValidation).Recommended)
}

func TestSuggestNonStandard(t *testing.T) {
	for _, s := range []Suggestion{Suggest("merge", PostOperation), Suggest("update", Stage("MainOperation"))} {
		assert.False(t, s.PreImage)
		assert.False(t, s.PostImage)
		assert.Equal(t, "Not a standard combination. Check plugin docs.", s.Recommended)
	}
}

func TestGuideline(t *testing.T) {
	assert.Contains(t, Guideline(PostOperation), "Post-Operation Stage")
	assert.Contains(t, Guideline(PreValidation), "No Post-Image")
	assert.Contains(t, Guideline(Stage("later")), "Unknown plugin stage")
}

func TestParseStage(t *testing.T) {
	st, err := ParseStage("postoperation")
	require.NoError(t, err)
	assert.Equal(t, PostOperation, st)

	_, err = ParseStage("Post")
	assert.Error(t, err)
}

func TestAdvice(t *testing.T) {
	a := Advice("update", PostOperation)
	assert.Contains(t, a, "\n\n---\nPost-Operation Stage:")
	assert.Contains(t, a, "\n\nImage Suggestion: Use Pre-Image if you need previous values.")
}
