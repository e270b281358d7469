package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerboost/internal/types"
)

func TestBuildReport(t *testing.T) {
	out := types.OptimizeResumeOutput{
		OptimizedText: `<h2>Skills</h2><p onclick="x()">Go, PostgreSQL</p><script>alert(1)</script>`,
		ATSScore:      140,
		Suggestions:   []types.Suggestion{{ID: "s1", Text: "Quantify impact", PointImpact: 4}},
		Keywords: []types.Keyword{
			{Keyword: "PostgreSQL", PointImpact: 3},
			{Keyword: "Terraform", PointImpact: 2},
		},
	}

	report, err := buildReport("cv.pdf", out)
	require.NoError(t, err)

	assert.Equal(t, "cv.pdf", report.Source)
	assert.NotContains(t, report.Result.OptimizedText, "script")
	assert.NotContains(t, report.Result.OptimizedText, "onclick")
	assert.Equal(t, 100, report.Result.ATSScore)
	assert.True(t, report.Result.Keywords[0].Present)
	assert.False(t, report.Result.Keywords[1].Present)
	assert.Equal(t, []string{"Terraform"}, report.MissingKeywords)
	assert.Equal(t, 100, report.Score.Total)
	assert.Equal(t, 1, report.Score.TotalSuggestions)
}
