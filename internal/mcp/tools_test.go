package mcp

import (
	"context"
	"io"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinic-assessment-server/internal/domain"
	"github.com/clinic-assessment-server/internal/scoring"
)

func newTestServer() *Server {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewServer(domain.MCPConfig{ServerName: "clinic-assessment", ServerVersion: "test"},
		scoring.NewEngine(scoring.DefaultCatalog()), logger)
}

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, r)
	require.Len(t, r.Content, 1)
	text, ok := r.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestGetCatalog(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	res, out, err := s.handleGetCatalog(ctx, nil, GetCatalogParams{})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Len(t, out.Categories, 13)
	assert.Equal(t, map[string]int{"male": 174, "female": 189}, out.MaxScore)

	res, out, err = s.handleGetCatalog(ctx, nil, GetCatalogParams{Gender: "male"})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Len(t, out.Categories, 12)
	assert.Equal(t, map[string]int{"male": 174}, out.MaxScore)
	assert.Equal(t, "12 categories, 4 tiers", resultText(t, res))

	res, _, err = s.handleGetCatalog(ctx, nil, GetCatalogParams{Gender: "robot"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestScoreSelection(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	res, eval, err := s.handleScoreSelection(ctx, nil, ScoreSelectionParams{
		Gender: "male",
		Selections: []domain.QuestionRef{
			{Category: "digestion", Question: "d1"},
			{Category: "sleep", Question: "s1"},
		},
		Skipped: []string{"sleep"},
	})
	require.NoError(t, err)
	require.NotNil(t, eval)
	assert.False(t, res.IsError)
	assert.Equal(t, 3, eval.RawScore)
	assert.Equal(t, 174, eval.MaxScore)
	assert.Equal(t, 2, eval.NormalizedScore)
	assert.Equal(t, []string{"sleep"}, eval.Skipped)
	assert.Contains(t, resultText(t, res), "Score 3/174, normalized 2")
}

func TestScoreSelection_Errors(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	res, eval, err := s.handleScoreSelection(ctx, nil, ScoreSelectionParams{Gender: ""})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Nil(t, eval)

	res, _, err = s.handleScoreSelection(ctx, nil, ScoreSelectionParams{
		Gender:     "male",
		Selections: []domain.QuestionRef{{Category: "menstrual", Question: "mn1"}},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "Scoring failed")
}

func TestClassifyScore(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	tests := []struct {
		score int
		level int
	}{
		{0, 1}, {30, 1}, {31, 2}, {50, 2}, {51, 3}, {80, 3}, {81, 4}, {100, 4},
	}
	for _, tt := range tests {
		res, tier, err := s.handleClassifyScore(ctx, nil, ClassifyScoreParams{NormalizedScore: tt.score})
		require.NoError(t, err)
		assert.False(t, res.IsError)
		assert.Equal(t, tt.level, tier.Level, "score %d", tt.score)
	}

	res, _, err := s.handleClassifyScore(ctx, nil, ClassifyScoreParams{NormalizedScore: 101})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
