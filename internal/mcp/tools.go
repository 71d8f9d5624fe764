package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/clinic-assessment-server/internal/domain"
	"github.com/clinic-assessment-server/internal/scoring"
)

// GetCatalogParams defines parameters for the get_catalog tool
type GetCatalogParams struct {
	Gender string `json:"gender,omitempty" jsonschema:"male or female; omit to list every category"`
}

// GetCatalogResult defines the result structure for the get_catalog tool
type GetCatalogResult struct {
	Sections   []scoring.Section  `json:"sections"`
	Categories []scoring.Category `json:"categories"`
	Tiers      []scoring.Tier     `json:"tiers"`
	MaxScore   map[string]int     `json:"max_score"`
}

// ScoreSelectionParams defines parameters for the score_selection tool
type ScoreSelectionParams struct {
	Gender     string               `json:"gender" jsonschema:"male or female"`
	Selections []domain.QuestionRef `json:"selections" jsonschema:"selected questions as category and question ids"`
	Skipped    []string             `json:"skipped_categories,omitempty" jsonschema:"category ids the patient skipped"`
}

// ClassifyScoreParams defines parameters for the classify_score tool
type ClassifyScoreParams struct {
	NormalizedScore int `json:"normalized_score" jsonschema:"normalized score between 0 and 100"`
}

func (s *Server) handleGetCatalog(ctx context.Context, req *mcp.CallToolRequest, params GetCatalogParams) (*mcp.CallToolResult, GetCatalogResult, error) {
	s.logger.WithField("tool", "get_catalog").Info("Tool invoked")

	catalog := s.engine.Catalog()
	result := GetCatalogResult{
		Sections: catalog.Sections(),
		Tiers:    catalog.Tiers(),
		MaxScore: make(map[string]int, 2),
	}

	genders := []domain.Gender{domain.GenderMale, domain.GenderFemale}
	if params.Gender != "" {
		g, err := domain.ParseGender(params.Gender)
		if err != nil {
			return createErrorResult("Invalid gender", err), GetCatalogResult{}, nil
		}
		genders = []domain.Gender{g}
		result.Categories = catalog.CategoriesFor(g)
	} else {
		result.Categories = catalog.Categories()
	}
	for _, g := range genders {
		maxScore, err := s.engine.MaxPossibleScore(g)
		if err != nil {
			return createErrorResult("Invalid gender", err), GetCatalogResult{}, nil
		}
		result.MaxScore[g.String()] = maxScore
	}

	text := fmt.Sprintf("%d categories, %d tiers", len(result.Categories), len(result.Tiers))
	return textResult(text), result, nil
}

func (s *Server) handleScoreSelection(ctx context.Context, req *mcp.CallToolRequest, params ScoreSelectionParams) (*mcp.CallToolResult, *scoring.Evaluation, error) {
	s.logger.WithField("tool", "score_selection").Info("Tool invoked")

	g, err := domain.ParseGender(params.Gender)
	if err != nil {
		return createErrorResult("Invalid gender", err), nil, nil
	}

	eval, err := s.engine.Evaluate(g, domain.NewSelection(params.Selections...), params.Skipped)
	if err != nil {
		return createErrorResult("Scoring failed", err), nil, nil
	}

	text := fmt.Sprintf("Score %d/%d, normalized %d: %s",
		eval.RawScore, eval.MaxScore, eval.NormalizedScore, eval.Tier.Label)
	return textResult(text), eval, nil
}

func (s *Server) handleClassifyScore(ctx context.Context, req *mcp.CallToolRequest, params ClassifyScoreParams) (*mcp.CallToolResult, scoring.Tier, error) {
	s.logger.WithField("tool", "classify_score").Info("Tool invoked")

	if params.NormalizedScore < 0 || params.NormalizedScore > 100 {
		return createErrorResult("Invalid score", fmt.Errorf("normalized_score must be between 0 and 100, got %d", params.NormalizedScore)), scoring.Tier{}, nil
	}

	tier := s.engine.Classify(params.NormalizedScore)
	return textResult(fmt.Sprintf("%d: %s", params.NormalizedScore, tier.Label)), tier, nil
}
